package store

import (
	"database/sql"
	"fmt"
	"time"
)

// IngestRun records one execution of the ingest pipeline.
type IngestRun struct {
	ID          string
	StartedAt   time.Time
	CompletedAt time.Time
	SinceHours  int
	Notes       string
}

// RecordIngestRun stores a completed pipeline run.
func (s *Store) RecordIngestRun(run IngestRun) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`
		INSERT INTO ingest_runs (id, started_at, completed_at, since_hours, notes)
		VALUES (?, ?, ?, ?, ?)`,
		run.ID, run.StartedAt.UTC(), run.CompletedAt.UTC(), run.SinceHours, run.Notes)
	if err != nil {
		return fmt.Errorf("failed to record ingest run: %w", err)
	}
	return nil
}

// LastIngestRun returns the most recently completed run.
// Returns sql.ErrNoRows when no run has happened yet.
func (s *Store) LastIngestRun() (IngestRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var run IngestRun
	var completedAt sql.NullTime
	var notes sql.NullString
	err := s.db.QueryRow(`
		SELECT id, started_at, completed_at, since_hours, notes
		FROM ingest_runs ORDER BY started_at DESC LIMIT 1`).
		Scan(&run.ID, &run.StartedAt, &completedAt, &run.SinceHours, &notes)
	if err != nil {
		return IngestRun{}, err
	}
	run.StartedAt = run.StartedAt.UTC()
	run.CompletedAt = scanTime(completedAt)
	run.Notes = notes.String
	return run, nil
}
