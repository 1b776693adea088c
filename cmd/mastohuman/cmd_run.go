package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"mastohuman/internal/etl"
	"mastohuman/internal/llm"
	"mastohuman/internal/render"
)

// runCmd executes the full daily pipeline.
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the full pipeline: ingest, summarize, render, archive",
	Long: `Runs the complete daily pipeline in order:
  1. Ingest:    sync the following list and each author's recent posts
  2. Summarize: generate headline/blurb summaries for changed accounts
  3. Render:    build the static site into the output directory
  4. Archive:   copy the output to a timestamped archive (when configured)`,
	RunE: runPipeline,
}

func init() {
	runCmd.Flags().IntVar(&sinceHours, "since-hours", 0, "Activity window in hours (0 = config default)")
	runCmd.Flags().BoolVar(&forceFetch, "force-fetch", false, "Ignore freshness windows and the overlap stop")
	runCmd.Flags().IntVar(&ingestMax, "limit", 0, "Max accounts to process (0 = all)")
	runCmd.Flags().BoolVar(&forceLLM, "force-llm", false, "Regenerate summaries even when cached")
	runCmd.Flags().BoolVar(&noLLM, "no-llm", false, "Render placeholder summaries instead of stored ones")
}

func runPipeline(cmd *cobra.Command, args []string) error {
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

	mastoClient, err := newMastodonClient(cfg)
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

	logger.Info("Pipeline: ingest")
	if err := etl.NewIngestor(st, mastoClient, cfg).Run(ctx, opts); err != nil {
		return err
	}

	logger.Info("Pipeline: summarize")
	llmClient, err := llm.NewClientFromConfig(cfg)
	if err != nil {
		return err
	}
	if err := llm.NewSummarizer(st, llmClient, cfg).ProcessAll(ctx, forceLLM, ingestMax); err != nil {
		return err
	}

	logger.Info("Pipeline: render")
	builder, err := render.NewBuilder(st, cfg)
	if err != nil {
		return err
	}
	if err := builder.Build(noLLM); err != nil {
		return err
	}

	archived, err := builder.ArchiveRun()
	if err != nil {
		return err
	}
	if archived != "" {
		logger.Info("Pipeline: archived", zap.String("path", archived))
	}

	logger.Info("Pipeline complete", zap.String("output_dir", cfg.Site.OutputDir))
	return nil
}
