package store

import (
	"database/sql"
	"fmt"
	"time"

	"mastohuman/internal/logging"
)

// Status is a single post mirrored from the server. ContentText is the
// normalized plain-text form used for person documents; ContentHTML keeps the
// original markup for rendering.
type Status struct {
	ID          int64
	RemoteID    string
	AccountAcct string
	CreatedAt   time.Time
	URI         string
	URL         string
	ContentHTML string
	ContentText string
	Language    string
	Visibility  string
	IsBoost     bool
	IsReply     bool
	InReplyToID string
	MediaJSON   string
	FetchedAt   time.Time
}

const statusColumns = `id, remote_id, account_acct, created_at, uri, url,
	content_html, content_text, language, visibility, is_boost, is_reply,
	in_reply_to_id, media_attachments_json, fetched_at`

func scanStatus(row interface{ Scan(...interface{}) error }) (Status, error) {
	var st Status
	var uri, url, language, visibility, inReplyToID, mediaJSON sql.NullString
	var createdAt time.Time
	var fetchedAt sql.NullTime

	err := row.Scan(&st.ID, &st.RemoteID, &st.AccountAcct, &createdAt, &uri, &url,
		&st.ContentHTML, &st.ContentText, &language, &visibility, &st.IsBoost,
		&st.IsReply, &inReplyToID, &mediaJSON, &fetchedAt)
	if err != nil {
		return Status{}, err
	}

	st.CreatedAt = createdAt.UTC()
	st.URI = uri.String
	st.URL = url.String
	st.Language = language.String
	st.Visibility = visibility.String
	st.InReplyToID = inReplyToID.String
	st.MediaJSON = mediaJSON.String
	st.FetchedAt = scanTime(fetchedAt)
	return st, nil
}

// HasStatus reports whether a status with the given remote ID is stored.
func (s *Store) HasStatus(remoteID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var count int
	err := s.db.QueryRow("SELECT COUNT(*) FROM statuses WHERE remote_id = ?", remoteID).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to check status existence: %w", err)
	}
	return count > 0, nil
}

// InsertStatus stores a new status. Duplicate remote IDs are ignored so
// overlapping pages are idempotent.
func (s *Store) InsertStatus(st Status) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`
		INSERT OR IGNORE INTO statuses
			(remote_id, account_acct, created_at, uri, url, content_html, content_text,
			 language, visibility, is_boost, is_reply, in_reply_to_id, media_attachments_json)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		st.RemoteID, st.AccountAcct, st.CreatedAt.UTC(), st.URI, st.URL,
		st.ContentHTML, st.ContentText, st.Language, st.Visibility,
		st.IsBoost, st.IsReply, st.InReplyToID, st.MediaJSON)
	if err != nil {
		return fmt.Errorf("failed to insert status %s: %w", st.RemoteID, err)
	}

	logging.StoreDebug("Inserted status %s for %s", st.RemoteID, st.AccountAcct)
	return nil
}

// OriginalStatuses returns an account's own posts (no boosts, no replies),
// newest first, capped at limit. These feed both the person document and the
// person page.
func (s *Store) OriginalStatuses(acct string, limit int) ([]Status, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query("SELECT "+statusColumns+` FROM statuses
		WHERE account_acct = ? AND is_boost = 0 AND is_reply = 0
		ORDER BY created_at DESC
		LIMIT ?`, acct, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query statuses for %s: %w", acct, err)
	}
	defer rows.Close()

	var statuses []Status
	for rows.Next() {
		st, err := scanStatus(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan status: %w", err)
		}
		statuses = append(statuses, st)
	}
	return statuses, rows.Err()
}
