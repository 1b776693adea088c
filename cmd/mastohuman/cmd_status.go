package main

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

// statusCmd prints cache statistics.
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show cache statistics and the last ingest run",
	RunE:  showStatus,
}

func showStatus(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	stats, err := st.Stats()
	if err != nil {
		return err
	}

	fmt.Printf("Database: %s\n\n", cfg.Database.Path)
	for _, table := range []string{"accounts", "statuses", "summaries", "person_docs", "ingest_runs"} {
		fmt.Printf("  %-12s %d\n", table, stats[table])
	}

	run, err := st.LastIngestRun()
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			fmt.Println("\nNo ingest runs recorded yet.")
			return nil
		}
		return err
	}

	fmt.Printf("\nLast ingest run: %s\n", run.ID)
	fmt.Printf("  started:   %s\n", run.StartedAt.Format("2006-01-02 15:04:05 MST"))
	if !run.CompletedAt.IsZero() {
		fmt.Printf("  completed: %s (%s)\n",
			run.CompletedAt.Format("2006-01-02 15:04:05 MST"),
			run.CompletedAt.Sub(run.StartedAt).Round(time.Millisecond))
	}
	if run.Notes != "" {
		fmt.Printf("  notes:     %s\n", run.Notes)
	}
	return nil
}
