package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mastohuman/internal/config"
)

func writeTestConfig(t *testing.T, cfg *config.Config) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, cfg.Save(path))
	return path
}

func execute(t *testing.T, args ...string) error {
	t.Helper()
	rootCmd.SetArgs(args)
	return rootCmd.Execute()
}

func TestSubcommandsRegistered(t *testing.T) {
	expected := []string{"run", "ingest", "summarize", "render", "status", "serve", "clean"}

	registered := make(map[string]bool)
	for _, c := range rootCmd.Commands() {
		registered[c.Name()] = true
	}
	for _, name := range expected {
		assert.True(t, registered[name], "missing subcommand %s", name)
	}
}

func TestStatusOnEmptyDatabase(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Database.Path = filepath.Join(t.TempDir(), "test.db")
	path := writeTestConfig(t, cfg)

	require.NoError(t, execute(t, "--config", path, "status"))
}

func TestCleanRemovesOutputDirs(t *testing.T) {
	outputDir := filepath.Join(t.TempDir(), "site")
	archiveDir := filepath.Join(t.TempDir(), "archive")
	require.NoError(t, os.MkdirAll(filepath.Join(outputDir, "people"), 0755))
	require.NoError(t, os.MkdirAll(archiveDir, 0755))

	cfg := config.DefaultConfig()
	cfg.Site.OutputDir = outputDir
	cfg.Site.ArchiveDir = archiveDir
	path := writeTestConfig(t, cfg)

	require.NoError(t, execute(t, "--config", path, "clean"))

	_, err := os.Stat(outputDir)
	assert.True(t, os.IsNotExist(err), "output dir should be removed")
	_, err = os.Stat(archiveDir)
	assert.True(t, os.IsNotExist(err), "archive dir should be removed")
}

func TestIngestRequiresCredentials(t *testing.T) {
	t.Setenv("MASTODON_BASE_URL", "")
	t.Setenv("MASTODON_ACCESS_TOKEN", "")

	cfg := config.DefaultConfig()
	cfg.Database.Path = filepath.Join(t.TempDir(), "test.db")
	path := writeTestConfig(t, cfg)

	err := execute(t, "--config", path, "ingest")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "base_url")
}

func TestRenderEmptyDatabase(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Database.Path = filepath.Join(t.TempDir(), "test.db")
	cfg.Site.OutputDir = filepath.Join(t.TempDir(), "site")
	path := writeTestConfig(t, cfg)

	require.NoError(t, execute(t, "--config", path, "render"))

	_, err := os.Stat(filepath.Join(cfg.Site.OutputDir, "index.html"))
	assert.NoError(t, err)
}
