package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// cleanCmd removes generated artifacts. The database is left alone.
var cleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Remove the site output and archive directories",
	RunE:  runClean,
}

func runClean(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	targets := []string{cfg.Site.OutputDir}
	if cfg.Site.ArchiveDir != "" {
		targets = append(targets, cfg.Site.ArchiveDir)
	}

	for _, dir := range targets {
		if dir == "" || dir == "." || dir == "/" {
			continue
		}
		if _, err := os.Stat(dir); os.IsNotExist(err) {
			continue
		}
		if err := os.RemoveAll(dir); err != nil {
			return fmt.Errorf("failed to remove %s: %w", dir, err)
		}
		fmt.Printf("Removed %s\n", dir)
	}
	return nil
}
