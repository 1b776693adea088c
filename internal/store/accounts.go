package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"mastohuman/internal/logging"
)

// Account is a followed Mastodon account mirrored locally.
// Acct is the canonical user@instance handle and the stable key everywhere.
type Account struct {
	ID              int64
	ServerAccountID string
	Acct            string
	DisplayName     string
	URL             string
	AvatarURL       string
	Bot             bool
	CreatedAt       time.Time // zero when the server did not report it
	LastSeenAt      time.Time // last time the account appeared in the following list
	LastFetchAt     time.Time // zero when statuses were never fetched
}

const accountColumns = `id, server_account_id, acct, display_name, url, avatar_url, bot,
	created_at, last_seen_at, last_fetch_at`

func scanAccount(row interface{ Scan(...interface{}) error }) (Account, error) {
	var a Account
	var displayName, url, avatarURL sql.NullString
	var createdAt, lastFetchAt sql.NullTime
	var lastSeenAt time.Time

	err := row.Scan(&a.ID, &a.ServerAccountID, &a.Acct, &displayName, &url, &avatarURL,
		&a.Bot, &createdAt, &lastSeenAt, &lastFetchAt)
	if err != nil {
		return Account{}, err
	}

	a.DisplayName = displayName.String
	a.URL = url.String
	a.AvatarURL = avatarURL.String
	a.CreatedAt = scanTime(createdAt)
	a.LastSeenAt = lastSeenAt.UTC()
	a.LastFetchAt = scanTime(lastFetchAt)
	return a, nil
}

// UpsertAccount inserts the account or refreshes its mutable metadata.
// last_seen_at is always bumped: presence in an upsert means the account is
// still in the following list.
func (s *Store) UpsertAccount(a Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if a.LastSeenAt.IsZero() {
		a.LastSeenAt = time.Now().UTC()
	}

	var createdAt interface{}
	if !a.CreatedAt.IsZero() {
		createdAt = a.CreatedAt.UTC()
	}

	_, err := s.db.Exec(`
		INSERT INTO accounts (server_account_id, acct, display_name, url, avatar_url, bot, created_at, last_seen_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(acct) DO UPDATE SET
			server_account_id = excluded.server_account_id,
			display_name = excluded.display_name,
			url = excluded.url,
			avatar_url = excluded.avatar_url,
			bot = excluded.bot,
			last_seen_at = excluded.last_seen_at`,
		a.ServerAccountID, a.Acct, a.DisplayName, a.URL, a.AvatarURL, a.Bot, createdAt, a.LastSeenAt.UTC())
	if err != nil {
		return fmt.Errorf("failed to upsert account %s: %w", a.Acct, err)
	}

	logging.StoreDebug("Upserted account %s", a.Acct)
	return nil
}

// GetAccount loads an account by acct. Returns sql.ErrNoRows when missing.
func (s *Store) GetAccount(acct string) (Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRow("SELECT "+accountColumns+" FROM accounts WHERE acct = ?", acct)
	return scanAccount(row)
}

// TouchAccountFetched records that the account's statuses were just synced.
func (s *Store) TouchAccountFetched(acct string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec("UPDATE accounts SET last_fetch_at = ? WHERE acct = ?", at.UTC(), acct)
	if err != nil {
		return fmt.Errorf("failed to mark account synced: %w", err)
	}
	return nil
}

// NewestAccountSeenAt returns the most recent last_seen_at across all
// accounts, or the zero time when the table is empty. Used to decide whether
// the following list needs a refresh.
// Selects the column rather than MAX(): an aggregate loses the DATETIME
// decltype and the driver would hand back a raw string.
func (s *Store) NewestAccountSeenAt() (time.Time, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var seen time.Time
	err := s.db.QueryRow("SELECT last_seen_at FROM accounts ORDER BY last_seen_at DESC LIMIT 1").Scan(&seen)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to query newest last_seen_at: %w", err)
	}
	return seen.UTC(), nil
}

// ActiveAccounts returns accounts seen since the cutoff, ordered by
// last_fetch_at ascending with never-fetched accounts first, so the stalest
// profiles get synced before fresh ones. limit <= 0 means no limit.
func (s *Store) ActiveAccounts(seenSince time.Time, limit int) ([]Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := "SELECT " + accountColumns + ` FROM accounts
		WHERE last_seen_at >= ?
		ORDER BY last_fetch_at IS NOT NULL, last_fetch_at ASC`
	args := []interface{}{seenSince.UTC()}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query active accounts: %w", err)
	}
	defer rows.Close()

	var accounts []Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan account: %w", err)
		}
		accounts = append(accounts, a)
	}
	return accounts, rows.Err()
}

// RecentlyFetchedAccounts returns accounts seen since the cutoff ordered by
// last_fetch_at descending, so just-ingested profiles are summarized first
// during limited runs. limit <= 0 means no limit.
func (s *Store) RecentlyFetchedAccounts(seenSince time.Time, limit int) ([]Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := "SELECT " + accountColumns + ` FROM accounts
		WHERE last_seen_at >= ?
		ORDER BY last_fetch_at DESC`
	args := []interface{}{seenSince.UTC()}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query recently fetched accounts: %w", err)
	}
	defer rows.Close()

	var accounts []Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan account: %w", err)
		}
		accounts = append(accounts, a)
	}
	return accounts, rows.Err()
}

// AllAccountsBySeen returns every account ordered by last_seen_at descending,
// the order the front page lists people in.
func (s *Store) AllAccountsBySeen() ([]Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query("SELECT " + accountColumns + " FROM accounts ORDER BY last_seen_at DESC")
	if err != nil {
		return nil, fmt.Errorf("failed to query accounts: %w", err)
	}
	defer rows.Close()

	var accounts []Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan account: %w", err)
		}
		accounts = append(accounts, a)
	}
	return accounts, rows.Err()
}
