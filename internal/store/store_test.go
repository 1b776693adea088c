package store

import (
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestOpenCreatesSchema(t *testing.T) {
	s := openTestStore(t)

	stats, err := s.Stats()
	require.NoError(t, err)
	for _, table := range []string{"accounts", "statuses", "ingest_runs", "person_docs", "summaries"} {
		count, ok := stats[table]
		assert.True(t, ok, "missing table %s", table)
		assert.Zero(t, count)
	}
}

func TestUpsertAccountRefreshesMetadata(t *testing.T) {
	s := openTestStore(t)

	first := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
	require.NoError(t, s.UpsertAccount(Account{
		ServerAccountID: "101",
		Acct:            "alice@example.social",
		DisplayName:     "Alice",
		LastSeenAt:      first,
	}))

	second := first.Add(24 * time.Hour)
	require.NoError(t, s.UpsertAccount(Account{
		ServerAccountID: "101",
		Acct:            "alice@example.social",
		DisplayName:     "Alice B.",
		LastSeenAt:      second,
	}))

	got, err := s.GetAccount("alice@example.social")
	require.NoError(t, err)
	assert.Equal(t, "Alice B.", got.DisplayName)
	assert.True(t, got.LastSeenAt.Equal(second), "last_seen_at should be bumped")

	stats, err := s.Stats()
	require.NoError(t, err)
	assert.EqualValues(t, 1, stats["accounts"], "upsert must not duplicate")
}

func TestGetAccountMissing(t *testing.T) {
	s := openTestStore(t)

	_, err := s.GetAccount("ghost@nowhere")
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestActiveAccountsStalestFirst(t *testing.T) {
	s := openTestStore(t)

	now := time.Now().UTC()
	for _, acct := range []string{"never@a", "old@a", "fresh@a"} {
		require.NoError(t, s.UpsertAccount(Account{
			ServerAccountID: acct,
			Acct:            acct,
			LastSeenAt:      now,
		}))
	}
	require.NoError(t, s.TouchAccountFetched("old@a", now.Add(-2*time.Hour)))
	require.NoError(t, s.TouchAccountFetched("fresh@a", now.Add(-time.Minute)))

	accounts, err := s.ActiveAccounts(now.Add(-time.Hour), 0)
	require.NoError(t, err)
	require.Len(t, accounts, 3)

	// Never-fetched first, then ascending by last_fetch_at
	assert.Equal(t, "never@a", accounts[0].Acct)
	assert.Equal(t, "old@a", accounts[1].Acct)
	assert.Equal(t, "fresh@a", accounts[2].Acct)

	limited, err := s.ActiveAccounts(now.Add(-time.Hour), 2)
	require.NoError(t, err)
	assert.Len(t, limited, 2)
}

func TestActiveAccountsExcludesUnfollowed(t *testing.T) {
	s := openTestStore(t)

	now := time.Now().UTC()
	require.NoError(t, s.UpsertAccount(Account{
		ServerAccountID: "1", Acct: "current@a", LastSeenAt: now,
	}))
	require.NoError(t, s.UpsertAccount(Account{
		ServerAccountID: "2", Acct: "gone@a", LastSeenAt: now.Add(-48 * time.Hour),
	}))

	accounts, err := s.ActiveAccounts(now.Add(-24*time.Hour), 0)
	require.NoError(t, err)
	require.Len(t, accounts, 1)
	assert.Equal(t, "current@a", accounts[0].Acct)
}

func TestNewestAccountSeenAt(t *testing.T) {
	s := openTestStore(t)

	zero, err := s.NewestAccountSeenAt()
	require.NoError(t, err)
	assert.True(t, zero.IsZero())

	now := time.Now().UTC().Truncate(time.Second)
	require.NoError(t, s.UpsertAccount(Account{ServerAccountID: "1", Acct: "a@a", LastSeenAt: now.Add(-time.Hour)}))
	require.NoError(t, s.UpsertAccount(Account{ServerAccountID: "2", Acct: "b@a", LastSeenAt: now}))

	newest, err := s.NewestAccountSeenAt()
	require.NoError(t, err)
	assert.True(t, newest.Equal(now), "want %v, got %v", now, newest)
}

func TestInsertStatusIdempotent(t *testing.T) {
	s := openTestStore(t)

	st := Status{
		RemoteID:    "111",
		AccountAcct: "alice@example.social",
		CreatedAt:   time.Now().UTC(),
		ContentHTML: "<p>hello</p>",
		ContentText: "hello",
	}
	require.NoError(t, s.InsertStatus(st))
	require.NoError(t, s.InsertStatus(st))

	stats, err := s.Stats()
	require.NoError(t, err)
	assert.EqualValues(t, 1, stats["statuses"])

	exists, err := s.HasStatus("111")
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = s.HasStatus("999")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestOriginalStatusesFiltersAndOrders(t *testing.T) {
	s := openTestStore(t)

	base := time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)
	insert := func(id string, offset time.Duration, boost, reply bool) {
		require.NoError(t, s.InsertStatus(Status{
			RemoteID:    id,
			AccountAcct: "alice@example.social",
			CreatedAt:   base.Add(offset),
			ContentHTML: "<p>" + id + "</p>",
			ContentText: id,
			IsBoost:     boost,
			IsReply:     reply,
		}))
	}
	insert("oldest", 0, false, false)
	insert("boost", time.Hour, true, false)
	insert("reply", 2*time.Hour, false, true)
	insert("newest", 3*time.Hour, false, false)

	statuses, err := s.OriginalStatuses("alice@example.social", 10)
	require.NoError(t, err)
	require.Len(t, statuses, 2)
	assert.Equal(t, "newest", statuses[0].RemoteID)
	assert.Equal(t, "oldest", statuses[1].RemoteID)

	capped, err := s.OriginalStatuses("alice@example.social", 1)
	require.NoError(t, err)
	require.Len(t, capped, 1)
	assert.Equal(t, "newest", capped[0].RemoteID)
}

func TestSummaryCacheRoundTrip(t *testing.T) {
	s := openTestStore(t)

	cached, err := s.HasSummaryForDoc("alice@example.social", "hash1")
	require.NoError(t, err)
	assert.False(t, cached)

	sum := Summary{
		AccountAcct:   "alice@example.social",
		DocHash:       "hash1",
		Headline:      "Alice ships a release",
		Blurb:         "Posts about the new version.",
		TagsJSON:      `["software"]`,
		LLMProvider:   "openai",
		LLMModel:      "gpt-4o",
		PromptVersion: "1.0",
	}
	doc := PersonDoc{AccountAcct: "alice@example.social", DocHash: "hash1", DocText: "doc body"}
	require.NoError(t, s.SaveSummary(sum, doc))

	cached, err = s.HasSummaryForDoc("alice@example.social", "hash1")
	require.NoError(t, err)
	assert.True(t, cached)

	// Changed content means a different hash and a cache miss
	cached, err = s.HasSummaryForDoc("alice@example.social", "hash2")
	require.NoError(t, err)
	assert.False(t, cached)

	got, err := s.GetSummary("alice@example.social")
	require.NoError(t, err)
	assert.Equal(t, "Alice ships a release", got.Headline)

	gotDoc, err := s.GetPersonDoc("alice@example.social")
	require.NoError(t, err)
	assert.Equal(t, "doc body", gotDoc.DocText)
}

func TestSaveSummaryReplacesLive(t *testing.T) {
	s := openTestStore(t)

	first := Summary{
		AccountAcct: "alice@example.social", DocHash: "h1",
		Headline: "First", Blurb: "b", LLMProvider: "openai", LLMModel: "gpt-4o", PromptVersion: "1.0",
	}
	require.NoError(t, s.SaveSummary(first, PersonDoc{AccountAcct: "alice@example.social", DocHash: "h1", DocText: "d1"}))

	second := first
	second.DocHash = "h2"
	second.Headline = "Second"
	require.NoError(t, s.SaveSummary(second, PersonDoc{AccountAcct: "alice@example.social", DocHash: "h2", DocText: "d2"}))

	got, err := s.GetSummary("alice@example.social")
	require.NoError(t, err)
	assert.Equal(t, "Second", got.Headline)
	assert.Equal(t, "h2", got.DocHash)

	stats, err := s.Stats()
	require.NoError(t, err)
	assert.EqualValues(t, 1, stats["summaries"], "one live summary per acct")
	assert.EqualValues(t, 1, stats["person_docs"])
}

func TestIngestRunRoundTrip(t *testing.T) {
	s := openTestStore(t)

	_, err := s.LastIngestRun()
	assert.ErrorIs(t, err, sql.ErrNoRows)

	start := time.Date(2026, 3, 1, 6, 0, 0, 0, time.UTC)
	require.NoError(t, s.RecordIngestRun(IngestRun{
		ID: "run-1", StartedAt: start, CompletedAt: start.Add(time.Minute),
		SinceHours: 24, Notes: "full_run",
	}))
	require.NoError(t, s.RecordIngestRun(IngestRun{
		ID: "run-2", StartedAt: start.Add(time.Hour), CompletedAt: start.Add(61 * time.Minute),
		SinceHours: 24, Notes: "limit=5",
	}))

	last, err := s.LastIngestRun()
	require.NoError(t, err)
	assert.Equal(t, "run-2", last.ID)
	assert.Equal(t, "limit=5", last.Notes)
	assert.Equal(t, 24, last.SinceHours)
}

func TestMigrationsAreIdempotent(t *testing.T) {
	s := openTestStore(t)

	// Schema init already ran migrations; running again must be a no-op.
	require.NoError(t, RunMigrations(s.DB()))

	for _, m := range pendingMigrations {
		assert.True(t, columnExists(s.DB(), m.Table, m.Column),
			"column %s.%s should exist", m.Table, m.Column)
	}
}
