// Package store persists accounts, statuses, summaries and ingest runs in a
// local SQLite database. A single connection with WAL journaling is shared by
// the whole process; callers go through Store methods, never raw SQL.
package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"mastohuman/internal/logging"
)

// Store wraps the SQLite database holding the local Mastodon mirror.
type Store struct {
	db     *sql.DB
	mu     sync.RWMutex
	dbPath string
}

// Open initializes the SQLite database at the given path.
func Open(path string) (*Store, error) {
	timer := logging.StartTimer(logging.CategoryStore, "Open")
	defer timer.Stop()

	logging.Store("Opening store at path: %s", path)

	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		logging.StoreDebug("Failed to set sqlite busy_timeout: %v", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		logging.StoreDebug("Failed to set sqlite journal_mode=WAL: %v", err)
	}
	// NORMAL is safe under WAL and much faster than the FULL default.
	if _, err := db.Exec("PRAGMA synchronous = NORMAL"); err != nil {
		logging.StoreDebug("Failed to set sqlite synchronous=NORMAL: %v", err)
	}

	s := &Store{db: db, dbPath: path}
	if err := s.initialize(); err != nil {
		db.Close()
		return nil, err
	}
	logging.StoreDebug("Database schema initialized")

	return s, nil
}

// initialize creates the required tables.
func (s *Store) initialize() error {
	accountsTable := `
	CREATE TABLE IF NOT EXISTS accounts (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		server_account_id TEXT NOT NULL,
		acct TEXT NOT NULL UNIQUE,
		display_name TEXT,
		url TEXT,
		avatar_url TEXT,
		bot BOOLEAN DEFAULT FALSE,
		created_at DATETIME,
		last_seen_at DATETIME NOT NULL,
		last_fetch_at DATETIME
	);
	CREATE INDEX IF NOT EXISTS idx_accounts_last_seen ON accounts(last_seen_at);
	CREATE INDEX IF NOT EXISTS idx_accounts_last_fetch ON accounts(last_fetch_at);
	`

	statusesTable := `
	CREATE TABLE IF NOT EXISTS statuses (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		remote_id TEXT NOT NULL UNIQUE,
		account_acct TEXT NOT NULL,
		created_at DATETIME NOT NULL,
		uri TEXT,
		url TEXT,
		content_html TEXT NOT NULL,
		content_text TEXT NOT NULL,
		language TEXT,
		visibility TEXT,
		is_boost BOOLEAN DEFAULT FALSE,
		is_reply BOOLEAN DEFAULT FALSE,
		in_reply_to_id TEXT,
		media_attachments_json TEXT,
		fetched_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_statuses_acct ON statuses(account_acct);
	CREATE INDEX IF NOT EXISTS idx_statuses_created ON statuses(created_at);
	`

	ingestRunsTable := `
	CREATE TABLE IF NOT EXISTS ingest_runs (
		id TEXT PRIMARY KEY,
		started_at DATETIME NOT NULL,
		completed_at DATETIME,
		since_hours INTEGER NOT NULL,
		notes TEXT
	);
	`

	personDocsTable := `
	CREATE TABLE IF NOT EXISTS person_docs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		account_acct TEXT NOT NULL UNIQUE,
		doc_hash TEXT NOT NULL,
		doc_text TEXT NOT NULL,
		generated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	`

	summariesTable := `
	CREATE TABLE IF NOT EXISTS summaries (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		account_acct TEXT NOT NULL UNIQUE,
		doc_hash TEXT NOT NULL,
		headline TEXT NOT NULL,
		blurb TEXT NOT NULL,
		tags_json TEXT,
		llm_provider TEXT NOT NULL,
		llm_model TEXT NOT NULL,
		prompt_version TEXT NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_summaries_hash ON summaries(doc_hash);
	`

	for _, table := range []string{
		accountsTable,
		statusesTable,
		ingestRunsTable,
		personDocsTable,
		summariesTable,
	} {
		if _, err := s.db.Exec(table); err != nil {
			return fmt.Errorf("failed to create table: %w", err)
		}
	}

	// Additive migrations for databases created by older versions
	if err := RunMigrations(s.db); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	logging.Store("Closing store database connection")
	return s.db.Close()
}

// DB returns the underlying SQL database connection.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Stats returns row counts per table.
func (s *Store) Stats() (map[string]int64, error) {
	timer := logging.StartTimer(logging.CategoryStore, "Stats")
	defer timer.Stop()

	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := make(map[string]int64)
	for _, table := range []string{"accounts", "statuses", "ingest_runs", "person_docs", "summaries"} {
		var count int64
		if err := s.db.QueryRow("SELECT COUNT(*) FROM " + table).Scan(&count); err != nil {
			return nil, fmt.Errorf("failed to count %s: %w", table, err)
		}
		stats[table] = count
	}
	return stats, nil
}

// scanTime converts a nullable DATETIME column to a time.Time, zero when NULL.
func scanTime(nt sql.NullTime) time.Time {
	if !nt.Valid {
		return time.Time{}
	}
	return nt.Time.UTC()
}
