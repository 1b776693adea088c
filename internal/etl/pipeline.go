// Package etl implements the ingest pipeline: syncing the following list,
// mirroring each author's status history into the store, and normalizing
// post HTML into the text form the summarizer consumes.
package etl

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"mastohuman/internal/config"
	"mastohuman/internal/logging"
	"mastohuman/internal/mastodon"
	"mastohuman/internal/store"
)

const (
	// Following list is considered fresh for this long; repeated runs skip
	// the sync entirely so short pipelines stay snappy.
	followingRefreshWindow = 4 * time.Hour

	// Accounts considered "currently followed" were seen within this window.
	activeWindow = 24 * time.Hour

	// Per-author sync cooldown; an author fetched this recently is skipped.
	authorSyncCooldown = 15 * time.Minute

	// Page size for the following list (the API maximum).
	followingPageSize = 80
)

// RunOptions are the per-invocation knobs of the ingest pipeline.
type RunOptions struct {
	SinceHours int  // active-account window in hours, 0 = default 24h
	ForceFetch bool // ignore freshness windows and the overlap stop
	Limit      int  // max accounts to sync, 0 = all
}

// Ingestor drives the ingest pipeline against one store and one instance.
type Ingestor struct {
	store  *store.Store
	client *mastodon.Client
	cfg    *config.Config
}

// NewIngestor creates an ingestor.
func NewIngestor(st *store.Store, client *mastodon.Client, cfg *config.Config) *Ingestor {
	return &Ingestor{store: st, client: client, cfg: cfg}
}

// Run executes one full ingest:
//  1. refresh the following list (the source of truth for who we mirror),
//  2. pick target accounts, stalest first,
//  3. sync each author's history, bounded by the configured worker count,
//  4. record the run.
func (ing *Ingestor) Run(ctx context.Context, opts RunOptions) error {
	runStart := time.Now().UTC()

	refresh, err := ing.shouldRefreshFollowing(opts.ForceFetch)
	if err != nil {
		return err
	}
	if refresh {
		if err := ing.syncFollowing(ctx); err != nil {
			return fmt.Errorf("following sync failed: %w", err)
		}
	} else {
		logging.Ingest("Skipping following list sync (cache is fresh)")
	}

	window := activeWindow
	if opts.SinceHours > 0 {
		window = time.Duration(opts.SinceHours) * time.Hour
	}
	targets, err := ing.store.ActiveAccounts(time.Now().UTC().Add(-window), opts.Limit)
	if err != nil {
		return err
	}
	logging.Ingest("Targeting %d accounts for content sync (limit: %d)", len(targets), opts.Limit)

	workers := ing.cfg.Fetch.Workers
	if workers <= 0 {
		workers = 1
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for _, account := range targets {
		g.Go(func() error {
			return ing.syncAuthor(gctx, account, opts.ForceFetch)
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	notes := "full_run"
	if opts.Limit > 0 {
		notes = fmt.Sprintf("limit=%d", opts.Limit)
	}
	run := store.IngestRun{
		ID:          uuid.NewString(),
		StartedAt:   runStart,
		CompletedAt: time.Now().UTC(),
		SinceHours:  opts.SinceHours,
		Notes:       notes,
	}
	if err := ing.store.RecordIngestRun(run); err != nil {
		return err
	}

	logging.Ingest("Ingestion complete (run %s)", run.ID)
	return nil
}

// shouldRefreshFollowing reports whether the following list needs an API
// refresh, based on the newest last_seen_at in the store.
func (ing *Ingestor) shouldRefreshFollowing(force bool) (bool, error) {
	if force {
		return true, nil
	}

	newest, err := ing.store.NewestAccountSeenAt()
	if err != nil {
		return false, err
	}
	if newest.IsZero() {
		return true, nil
	}
	return time.Since(newest) >= followingRefreshWindow, nil
}

// syncFollowing fetches the complete following list and upserts every
// account, bumping last_seen_at.
func (ing *Ingestor) syncFollowing(ctx context.Context) error {
	timer := logging.StartTimer(logging.CategoryIngest, "syncFollowing")
	defer timer.StopWithInfo()

	logging.Ingest("Fetching following list...")

	me, err := ing.client.VerifyCredentials(ctx)
	if err != nil {
		return fmt.Errorf("credential verification failed: %w", err)
	}

	count := 0
	pager := ing.client.Following(me.ID, followingPageSize)
	for {
		page, err := pager.Next(ctx)
		if err != nil {
			return err
		}
		if page == nil {
			break
		}
		for _, api := range page {
			acc := store.Account{
				ServerAccountID: api.ID,
				Acct:            api.Acct,
				DisplayName:     api.DisplayName,
				URL:             api.URL,
				AvatarURL:       api.Avatar,
				Bot:             api.Bot,
				CreatedAt:       api.CreatedAt,
				LastSeenAt:      time.Now().UTC(),
			}
			if err := ing.store.UpsertAccount(acc); err != nil {
				return err
			}
			count++
		}
	}

	logging.Ingest("Following list synced. Total followed: %d", count)
	return nil
}

// syncAuthor mirrors one author's status history into the store.
func (ing *Ingestor) syncAuthor(ctx context.Context, account store.Account, force bool) error {
	if !force && !account.LastFetchAt.IsZero() {
		if delta := time.Since(account.LastFetchAt); delta < authorSyncCooldown {
			logging.IngestDebug("Skipping %s (synced %dm ago)", account.Acct, int(delta.Minutes()))
			return nil
		}
	}

	logging.Ingest("Syncing author: %s...", account.Acct)

	cutoff := time.Now().UTC().AddDate(0, 0, -ing.cfg.Fetch.MaxProfileAgeDays)
	fetched := 0

	pager := ing.client.AccountStatuses(account.ServerAccountID, ing.cfg.Fetch.PageSize)
	for {
		page, err := pager.Next(ctx)
		if err != nil {
			return fmt.Errorf("status fetch for %s failed: %w", account.Acct, err)
		}
		if page == nil {
			break
		}

		pageExisting := 0
		for _, post := range page {
			if post.CreatedAt.Before(cutoff) {
				logging.IngestDebug("Reached age limit for %s", account.Acct)
				return ing.store.TouchAccountFetched(account.Acct, time.Now().UTC())
			}
			if post.IsBoost() {
				continue
			}

			exists, err := ing.store.HasStatus(post.ID)
			if err != nil {
				return err
			}
			if exists {
				pageExisting++
				continue
			}

			if err := ing.store.InsertStatus(ing.toStatus(account.Acct, post)); err != nil {
				return err
			}
			fetched++
		}

		// Overlap stop: a full page of already-known statuses means the
		// mirror has caught up with history.
		if !force && len(page) > 0 && pageExisting == len(page) {
			logging.IngestDebug("Overlap detected for %s, stopping sync", account.Acct)
			break
		}
		if fetched >= ing.cfg.Fetch.MaxProfileStatuses {
			break
		}
	}

	return ing.store.TouchAccountFetched(account.Acct, time.Now().UTC())
}

// toStatus converts a wire status to its stored form.
func (ing *Ingestor) toStatus(acct string, post mastodon.Status) store.Status {
	st := store.Status{
		RemoteID:    post.ID,
		AccountAcct: acct,
		CreatedAt:   post.CreatedAt,
		URI:         post.URI,
		URL:         post.URL,
		ContentHTML: post.Content,
		ContentText: NormalizeContent(post.Content),
		Language:    post.Language,
		Visibility:  post.Visibility,
		IsReply:     post.IsReply(),
	}
	if st.IsReply {
		st.InReplyToID = *post.InReplyToID
	}
	if len(post.MediaAttachments) > 0 {
		if data, err := json.Marshal(post.MediaAttachments); err == nil {
			st.MediaJSON = string(data)
		}
	}
	return st
}
