// Package config loads mastohuman configuration from a YAML file with
// environment variable overrides. Defaults are chosen so that a config file
// is only needed for the Mastodon credentials.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all mastohuman configuration.
type Config struct {
	// Mastodon API access
	Mastodon MastodonConfig `yaml:"mastodon"`

	// Fetch limits for the ingest pipeline
	Fetch FetchConfig `yaml:"fetch"`

	// Database
	Database DatabaseConfig `yaml:"database"`

	// LLM summarization
	LLM LLMConfig `yaml:"llm"`

	// Static site rendering
	Site SiteConfig `yaml:"site"`

	// Logging
	Logging LoggingConfig `yaml:"logging"`
}

// MastodonConfig configures the Mastodon API client.
type MastodonConfig struct {
	BaseURL     string `yaml:"base_url"`
	AccessToken string `yaml:"access_token"`
	Timeout     string `yaml:"timeout"`
	UserAgent   string `yaml:"user_agent"`
}

// FetchConfig bounds how much history the ingest pipeline pulls.
type FetchConfig struct {
	SinceHours         int `yaml:"since_hours"`
	MaxProfileStatuses int `yaml:"max_profile_statuses"`
	MaxProfileAgeDays  int `yaml:"max_profile_age_days"`
	PageSize           int `yaml:"page_size"`
	Workers            int `yaml:"workers"`
}

// DatabaseConfig configures the SQLite store.
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// LLMConfig configures the summarization provider.
type LLMConfig struct {
	Provider    string  `yaml:"provider"` // openai, openrouter, gemini, none
	Model       string  `yaml:"model"`
	Temperature float64 `yaml:"temperature"`
	MaxTokens   int     `yaml:"max_tokens"`
	APIKey      string  `yaml:"api_key"`
	BaseURL     string  `yaml:"base_url"`
	Timeout     string  `yaml:"timeout"`
}

// SiteConfig configures the static site builder.
type SiteConfig struct {
	Title        string `yaml:"title"`
	OutputDir    string `yaml:"output_dir"`
	ArchiveDir   string `yaml:"archive_dir"`
	BaseURL      string `yaml:"base_url"`
	TemplatesDir string `yaml:"templates_dir"` // empty = embedded templates
}

// LoggingConfig configures the category file logger.
type LoggingConfig struct {
	Level      string          `yaml:"level"` // debug, info, warn, error
	DebugMode  bool            `yaml:"debug_mode"`
	Categories map[string]bool `yaml:"categories"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Mastodon: MastodonConfig{
			Timeout:   "30s",
			UserAgent: "mastohuman/0.1",
		},
		Fetch: FetchConfig{
			SinceHours:         24,
			MaxProfileStatuses: 500,
			MaxProfileAgeDays:  92,
			PageSize:           40,
			Workers:            4,
		},
		Database: DatabaseConfig{
			Path: "mastohuman.db",
		},
		LLM: LLMConfig{
			Provider:    "openai",
			Model:       "gpt-4o",
			Temperature: 0.7,
			MaxTokens:   1000,
			Timeout:     "120s",
		},
		Site: SiteConfig{
			Title:     "My Mastodon Reader",
			OutputDir: "site_output",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load loads configuration from a YAML file.
// A missing file is not an error; defaults plus env overrides are returned.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.applyEnvOverrides()
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyEnvOverrides()

	return cfg, nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("MASTODON_BASE_URL"); v != "" {
		c.Mastodon.BaseURL = v
	}
	if v := os.Getenv("MASTODON_ACCESS_TOKEN"); v != "" {
		c.Mastodon.AccessToken = v
	}

	// LLM API keys. The generic key and the key matching the configured
	// provider fill in llm.api_key; the provider itself only switches when
	// the configured one has no key at all (bare env setups).
	if key := os.Getenv("LLM_API_KEY"); key != "" {
		c.LLM.APIKey = key
	}
	providerKeyEnv := map[string]string{
		"openai":     "OPENAI_API_KEY",
		"openrouter": "OPENROUTER_API_KEY",
		"gemini":     "GEMINI_API_KEY",
	}
	if env, ok := providerKeyEnv[c.LLM.Provider]; ok {
		if key := os.Getenv(env); key != "" {
			c.LLM.APIKey = key
		}
	}
	if c.LLM.APIKey == "" && c.LLM.Provider != "none" {
		for _, provider := range []string{"openai", "openrouter", "gemini"} {
			if key := os.Getenv(providerKeyEnv[provider]); key != "" {
				c.LLM.Provider = provider
				c.LLM.APIKey = key
				break
			}
		}
	}

	if v := os.Getenv("MASTOHUMAN_DB"); v != "" {
		c.Database.Path = v
	}
	if v := os.Getenv("MASTOHUMAN_OUTPUT_DIR"); v != "" {
		c.Site.OutputDir = v
	}
}

// MastodonTimeout parses the configured Mastodon request timeout.
func (c *Config) MastodonTimeout() time.Duration {
	d, err := time.ParseDuration(c.Mastodon.Timeout)
	if err != nil || d <= 0 {
		return 30 * time.Second
	}
	return d
}

// LLMTimeout parses the configured LLM request timeout.
func (c *Config) LLMTimeout() time.Duration {
	d, err := time.ParseDuration(c.LLM.Timeout)
	if err != nil || d <= 0 {
		return 2 * time.Minute
	}
	return d
}

// Validate checks settings that have no usable zero value.
func (c *Config) Validate() error {
	if c.Mastodon.BaseURL == "" {
		return fmt.Errorf("mastodon.base_url is required (or set MASTODON_BASE_URL)")
	}
	if c.Mastodon.AccessToken == "" {
		return fmt.Errorf("mastodon.access_token is required (or set MASTODON_ACCESS_TOKEN)")
	}
	switch c.LLM.Provider {
	case "openai", "openrouter", "gemini", "none":
	default:
		return fmt.Errorf("unknown llm.provider %q (valid: openai, openrouter, gemini, none)", c.LLM.Provider)
	}
	return nil
}
