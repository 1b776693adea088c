package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"mastohuman/internal/etl"
)

var (
	sinceHours int
	forceFetch bool
	ingestMax  int
)

// ingestCmd fetches the following list and mirrors each author's history.
var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Fetch followed accounts and their recent posts into the cache",
	Long: `Refreshes the following list (when stale), then syncs each followed
account's status history into the local SQLite cache, stalest account first.
Boosts are skipped; syncing stops per author once a full page of already
known posts shows up.`,
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().IntVar(&sinceHours, "since-hours", 0, "Activity window in hours (0 = config default)")
	ingestCmd.Flags().BoolVar(&forceFetch, "force-fetch", false, "Ignore freshness windows and the overlap stop")
	ingestCmd.Flags().IntVar(&ingestMax, "limit", 0, "Max accounts to sync (0 = all)")
}

func runIngest(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	client, err := newMastodonClient(cfg)
	if err != nil {
		return err
	}

	opts := etl.RunOptions{
		SinceHours: cfg.Fetch.SinceHours,
		ForceFetch: forceFetch,
		Limit:      ingestMax,
	}
	if sinceHours > 0 {
		opts.SinceHours = sinceHours
	}

	logger.Info("Starting ingest",
		zap.Int("since_hours", opts.SinceHours),
		zap.Bool("force_fetch", opts.ForceFetch),
		zap.Int("limit", opts.Limit))

	if err := etl.NewIngestor(st, client, cfg).Run(ctx, opts); err != nil {
		return err
	}

	logger.Info("Ingest complete")
	return nil
}
