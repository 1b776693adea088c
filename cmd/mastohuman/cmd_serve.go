package main

import (
	"github.com/spf13/cobra"

	"mastohuman/internal/serve"
)

// serveCmd hosts the rendered site locally.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the rendered site on http://127.0.0.1:8000/",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	return serve.Site(ctx, cfg.Site.OutputDir)
}
