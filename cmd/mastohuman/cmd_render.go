package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"mastohuman/internal/render"
)

var (
	noLLM bool
	watch bool
)

// renderCmd builds the static site from the local cache.
var renderCmd = &cobra.Command{
	Use:   "render",
	Short: "Build the static HTML site from the cache",
	Long: `Renders the front page and one page per followed person into the
configured output directory. With --watch and a disk templates_dir, the site
is rebuilt whenever a template or stylesheet changes.`,
	RunE: runRender,
}

func init() {
	renderCmd.Flags().BoolVar(&noLLM, "no-llm", false, "Render placeholder summaries instead of stored ones")
	renderCmd.Flags().BoolVar(&watch, "watch", false, "Rebuild when templates change (requires site.templates_dir)")
}

func runRender(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	rebuild := func() error {
		// Reparse templates each time so watch picks up edits
		builder, err := render.NewBuilder(st, cfg)
		if err != nil {
			return err
		}
		return builder.Build(noLLM)
	}

	if err := rebuild(); err != nil {
		return err
	}
	logger.Info("Site rendered", zap.String("output_dir", cfg.Site.OutputDir))

	if !watch {
		return nil
	}

	ctx, cancel := signalContext()
	defer cancel()

	logger.Info("Watching for template changes", zap.String("dir", cfg.Site.TemplatesDir))
	if err := render.Watch(ctx, cfg.Site.TemplatesDir, rebuild); err != nil && ctx.Err() == nil {
		return err
	}
	return nil
}
