package store

import (
	"database/sql"
	"fmt"

	"mastohuman/internal/logging"
)

// Migration defines a database schema migration.
type Migration struct {
	Table  string
	Column string
	Def    string
}

// pendingMigrations lists all schema migrations to apply.
// These handle cases where tables exist but are missing newer columns.
var pendingMigrations = []Migration{
	// Status metadata added after the first release
	{"statuses", "language", "TEXT"},
	{"statuses", "media_attachments_json", "TEXT"},
	// Summary provenance columns
	{"summaries", "llm_provider", "TEXT NOT NULL DEFAULT ''"},
	{"summaries", "llm_model", "TEXT NOT NULL DEFAULT ''"},
	{"summaries", "prompt_version", "TEXT NOT NULL DEFAULT '1.0'"},
}

// RunMigrations applies schema migrations for existing databases.
func RunMigrations(db *sql.DB) error {
	timer := logging.StartTimer(logging.CategoryStore, "RunMigrations")
	defer timer.Stop()

	applied := 0
	for _, m := range pendingMigrations {
		if !tableExists(db, m.Table) {
			continue
		}
		if columnExists(db, m.Table, m.Column) {
			continue
		}

		query := fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s", m.Table, m.Column, m.Def)
		if _, err := db.Exec(query); err != nil {
			// Column may already exist in a different form; not fatal
			logging.Get(logging.CategoryStore).Warn("Migration failed: %s.%s: %v", m.Table, m.Column, err)
			continue
		}
		logging.Store("Migration applied: added %s.%s", m.Table, m.Column)
		applied++
	}

	logging.StoreDebug("Schema migrations complete: applied=%d", applied)
	return nil
}

// columnExists checks if a column exists in a table using PRAGMA table_info.
func columnExists(db *sql.DB, table, column string) bool {
	rows, err := db.Query(fmt.Sprintf("PRAGMA table_info(%s)", table))
	if err != nil {
		return false
	}
	defer rows.Close()

	for rows.Next() {
		var cid int
		var name, ctype string
		var notnull, pk int
		var dfltValue interface{}
		if err := rows.Scan(&cid, &name, &ctype, &notnull, &dfltValue, &pk); err != nil {
			continue
		}
		if name == column {
			return true
		}
	}
	return false
}

// tableExists checks if a table exists in the database.
func tableExists(db *sql.DB, table string) bool {
	var count int
	query := "SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?"
	if err := db.QueryRow(query, table).Scan(&count); err != nil {
		return false
	}
	return count > 0
}
