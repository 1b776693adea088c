// mastohuman turns the accounts you follow on Mastodon into a quiet,
// summarized static site: ingest their posts into SQLite, summarize each
// person with an LLM, render HTML.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"mastohuman/internal/config"
	"mastohuman/internal/logging"
	"mastohuman/internal/mastodon"
	"mastohuman/internal/store"
)

var (
	// Global flags
	configPath string
	verbose    bool

	// Logger
	logger *zap.Logger
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "mastohuman",
	Short: "mastohuman - a human-paced Mastodon reader",
	Long: `mastohuman mirrors the people you follow into a local SQLite cache,
summarizes what each person has been posting about, and renders a static
HTML site you can read at your own pace.

Typical daily use:
  mastohuman run        # ingest, summarize, render, archive
  mastohuman serve      # read the result`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		zcfg := zap.NewProductionConfig()
		if verbose {
			zcfg = zap.NewDevelopmentConfig()
			zcfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = zcfg.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}

		// Category file logs are driven by the logging section of the config
		if err := logging.Initialize(configPath); err != nil {
			logger.Warn("File logging unavailable", zap.Error(err))
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
		logging.CloseAll()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "config.yaml", "Path to config file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(ingestCmd)
	rootCmd.AddCommand(summarizeCmd)
	rootCmd.AddCommand(renderCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(cleanCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadConfig loads and returns the configuration for the current invocation.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

// openStore opens the SQLite store configured for this invocation.
func openStore(cfg *config.Config) (*store.Store, error) {
	return store.Open(cfg.Database.Path)
}

// newMastodonClient builds the API client after validating credentials exist.
func newMastodonClient(cfg *config.Config) (*mastodon.Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return mastodon.NewClient(mastodon.Config{
		BaseURL:     cfg.Mastodon.BaseURL,
		AccessToken: cfg.Mastodon.AccessToken,
		UserAgent:   cfg.Mastodon.UserAgent,
		Timeout:     cfg.MastodonTimeout(),
	}), nil
}

// signalContext returns a context cancelled by SIGINT/SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}
