package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, 24, cfg.Fetch.SinceHours)
	assert.Equal(t, 500, cfg.Fetch.MaxProfileStatuses)
	assert.Equal(t, 92, cfg.Fetch.MaxProfileAgeDays)
	assert.Equal(t, 40, cfg.Fetch.PageSize)
	assert.Equal(t, "mastohuman.db", cfg.Database.Path)
	assert.Equal(t, "openai", cfg.LLM.Provider)
	assert.Equal(t, "site_output", cfg.Site.OutputDir)
	assert.Equal(t, 30*time.Second, cfg.MastodonTimeout())
	assert.Equal(t, 2*time.Minute, cfg.LLMTimeout())
}

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig().Fetch, cfg.Fetch)
}

func TestLoadParsesYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
mastodon:
  base_url: https://example.social
  access_token: secret
fetch:
  since_hours: 48
  workers: 2
llm:
  provider: none
site:
  title: Reading Room
  archive_dir: site_archive
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "https://example.social", cfg.Mastodon.BaseURL)
	assert.Equal(t, 48, cfg.Fetch.SinceHours)
	assert.Equal(t, 2, cfg.Fetch.Workers)
	assert.Equal(t, "none", cfg.LLM.Provider)
	assert.Equal(t, "Reading Room", cfg.Site.Title)
	assert.Equal(t, "site_archive", cfg.Site.ArchiveDir)
	// Untouched sections keep defaults
	assert.Equal(t, 500, cfg.Fetch.MaxProfileStatuses)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("MASTODON_BASE_URL", "https://env.social")
	t.Setenv("MASTODON_ACCESS_TOKEN", "env-token")
	t.Setenv("MASTOHUMAN_DB", "/tmp/env.db")
	t.Setenv("MASTOHUMAN_OUTPUT_DIR", "/tmp/env_site")

	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "https://env.social", cfg.Mastodon.BaseURL)
	assert.Equal(t, "env-token", cfg.Mastodon.AccessToken)
	assert.Equal(t, "/tmp/env.db", cfg.Database.Path)
	assert.Equal(t, "/tmp/env_site", cfg.Site.OutputDir)
}

func TestEnvOverridePinsProvider(t *testing.T) {
	t.Setenv("LLM_API_KEY", "")
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("OPENROUTER_API_KEY", "")
	t.Setenv("GEMINI_API_KEY", "gem-key")

	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "gemini", cfg.LLM.Provider)
	assert.Equal(t, "gem-key", cfg.LLM.APIKey)
}

func TestProviderKeyDoesNotFlipConfiguredProvider(t *testing.T) {
	t.Setenv("LLM_API_KEY", "")
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("OPENROUTER_API_KEY", "router-key")
	t.Setenv("GEMINI_API_KEY", "")

	path := filepath.Join(t.TempDir(), "config.yaml")
	content := "llm:\n  provider: openai\n  api_key: file-key\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "openai", cfg.LLM.Provider, "a stray env key must not override the configured provider")
	assert.Equal(t, "file-key", cfg.LLM.APIKey)
}

func TestProviderNoneStaysNone(t *testing.T) {
	t.Setenv("LLM_API_KEY", "")
	t.Setenv("OPENAI_API_KEY", "oa-key")
	t.Setenv("OPENROUTER_API_KEY", "")
	t.Setenv("GEMINI_API_KEY", "")

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("llm:\n  provider: none\n"), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "none", cfg.LLM.Provider)
}

func TestMatchingProviderKeyFillsAPIKey(t *testing.T) {
	t.Setenv("LLM_API_KEY", "")
	t.Setenv("OPENAI_API_KEY", "oa-key")
	t.Setenv("OPENROUTER_API_KEY", "router-key")
	t.Setenv("GEMINI_API_KEY", "")

	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "openai", cfg.LLM.Provider)
	assert.Equal(t, "oa-key", cfg.LLM.APIKey)
}

func TestValidate(t *testing.T) {
	cfg := DefaultConfig()
	require.Error(t, cfg.Validate(), "missing base_url should fail")

	cfg.Mastodon.BaseURL = "https://example.social"
	require.Error(t, cfg.Validate(), "missing access_token should fail")

	cfg.Mastodon.AccessToken = "secret"
	require.NoError(t, cfg.Validate())

	cfg.LLM.Provider = "mystery"
	require.Error(t, cfg.Validate())
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg := DefaultConfig()
	cfg.Mastodon.BaseURL = "https://example.social"
	cfg.Site.Title = "Saved Title"
	require.NoError(t, cfg.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "https://example.social", loaded.Mastodon.BaseURL)
	assert.Equal(t, "Saved Title", loaded.Site.Title)
}
