package llm

import (
	"context"
	"encoding/json"
	"time"

	"mastohuman/internal/config"
	"mastohuman/internal/etl"
	"mastohuman/internal/logging"
	"mastohuman/internal/store"
)

// summarizeWindow selects which accounts get summaries: the ones seen in the
// last daily pipeline.
const summarizeWindow = 24 * time.Hour

// Summarizer generates and caches per-account summaries.
type Summarizer struct {
	store  *store.Store
	client Client // nil when provider is "none"
	cfg    *config.Config
}

// NewSummarizer creates a summarizer. client may be nil to disable
// generation entirely.
func NewSummarizer(st *store.Store, client Client, cfg *config.Config) *Summarizer {
	return &Summarizer{store: st, client: client, cfg: cfg}
}

// ProcessAll generates summaries for recently seen accounts, newest-fetched
// first so limited runs line up with what ingest just pulled.
// force bypasses the doc-hash cache; limit <= 0 means all accounts.
func (s *Summarizer) ProcessAll(ctx context.Context, force bool, limit int) error {
	cutoff := time.Now().UTC().Add(-summarizeWindow)
	accounts, err := s.store.RecentlyFetchedAccounts(cutoff, limit)
	if err != nil {
		return err
	}
	logging.Summarize("Processing summaries for %d accounts (limit: %d)", len(accounts), limit)

	for _, account := range accounts {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := s.processAccount(ctx, account, force); err != nil {
			return err
		}
	}
	return nil
}

// processAccount builds the person document, consults the cache, and asks
// the provider for a fresh summary when needed.
func (s *Summarizer) processAccount(ctx context.Context, account store.Account, force bool) error {
	statuses, err := s.store.OriginalStatuses(account.Acct, s.cfg.Fetch.MaxProfileStatuses)
	if err != nil {
		return err
	}
	if len(statuses) == 0 {
		logging.Summarize("No original statuses for %s, skipping summary", account.Acct)
		return nil
	}

	docText := etl.BuildPersonDocument(account, statuses)
	docHash := etl.DocHash(docText)

	cached, err := s.store.HasSummaryForDoc(account.Acct, docHash)
	if err != nil {
		return err
	}
	if cached && !force {
		logging.SummarizeDebug("Summary cached for %s", account.Acct)
		return nil
	}

	if s.client == nil {
		logging.Get(logging.CategorySummarize).Warn("No LLM provider configured")
		return nil
	}

	logging.Summarize("Summarizing %s...", account.Acct)
	result, err := s.client.GenerateSummary(ctx, docText)
	if err != nil {
		logging.LLMError("LLM error for %s: %v", account.Acct, err)
		result = FallbackSummary()
	}

	tagsJSON, err := json.Marshal(result.Tags)
	if err != nil {
		tagsJSON = []byte("[]")
	}

	sum := store.Summary{
		AccountAcct:   account.Acct,
		DocHash:       docHash,
		Headline:      result.Headline,
		Blurb:         result.Blurb,
		TagsJSON:      string(tagsJSON),
		LLMProvider:   s.client.Provider(),
		LLMModel:      s.client.Model(),
		PromptVersion: PromptVersion,
	}
	doc := store.PersonDoc{
		AccountAcct: account.Acct,
		DocHash:     docHash,
		DocText:     docText,
	}
	return s.store.SaveSummary(sum, doc)
}
