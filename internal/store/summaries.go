package store

import (
	"database/sql"
	"fmt"
	"time"

	"mastohuman/internal/logging"
)

// Summary is the LLM-generated headline and blurb for one account. There is
// exactly one live summary per acct; regeneration replaces it.
type Summary struct {
	ID            int64
	AccountAcct   string
	DocHash       string
	Headline      string
	Blurb         string
	TagsJSON      string
	LLMProvider   string
	LLMModel      string
	PromptVersion string
	CreatedAt     time.Time
}

// PersonDoc is the canonical text document the summary was generated from,
// kept for debugging and cache validation.
type PersonDoc struct {
	ID          int64
	AccountAcct string
	DocHash     string
	DocText     string
	GeneratedAt time.Time
}

// HasSummaryForDoc reports whether the account already has a summary
// generated from the document with the given hash. This is the LLM cache
// check: same doc hash means the posts have not changed.
func (s *Store) HasSummaryForDoc(acct, docHash string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var count int
	err := s.db.QueryRow(
		"SELECT COUNT(*) FROM summaries WHERE account_acct = ? AND doc_hash = ?",
		acct, docHash).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to check summary cache: %w", err)
	}
	return count > 0, nil
}

// SaveSummary replaces the account's summary and the person document it was
// generated from in one transaction.
func (s *Store) SaveSummary(sum Summary, doc PersonDoc) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(`
		INSERT INTO summaries
			(account_acct, doc_hash, headline, blurb, tags_json, llm_provider, llm_model, prompt_version)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(account_acct) DO UPDATE SET
			doc_hash = excluded.doc_hash,
			headline = excluded.headline,
			blurb = excluded.blurb,
			tags_json = excluded.tags_json,
			llm_provider = excluded.llm_provider,
			llm_model = excluded.llm_model,
			prompt_version = excluded.prompt_version,
			created_at = CURRENT_TIMESTAMP`,
		sum.AccountAcct, sum.DocHash, sum.Headline, sum.Blurb, sum.TagsJSON,
		sum.LLMProvider, sum.LLMModel, sum.PromptVersion)
	if err != nil {
		return fmt.Errorf("failed to save summary for %s: %w", sum.AccountAcct, err)
	}

	_, err = tx.Exec(`
		INSERT INTO person_docs (account_acct, doc_hash, doc_text)
		VALUES (?, ?, ?)
		ON CONFLICT(account_acct) DO UPDATE SET
			doc_hash = excluded.doc_hash,
			doc_text = excluded.doc_text,
			generated_at = CURRENT_TIMESTAMP`,
		doc.AccountAcct, doc.DocHash, doc.DocText)
	if err != nil {
		return fmt.Errorf("failed to save person doc for %s: %w", doc.AccountAcct, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit summary: %w", err)
	}

	logging.StoreDebug("Saved summary for %s (hash %.8s)", sum.AccountAcct, sum.DocHash)
	return nil
}

// GetSummary loads the live summary for an account.
// Returns sql.ErrNoRows when the account was never summarized.
func (s *Store) GetSummary(acct string) (Summary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var sum Summary
	var tagsJSON sql.NullString
	var createdAt sql.NullTime
	err := s.db.QueryRow(`
		SELECT id, account_acct, doc_hash, headline, blurb, tags_json,
		       llm_provider, llm_model, prompt_version, created_at
		FROM summaries WHERE account_acct = ?`, acct).
		Scan(&sum.ID, &sum.AccountAcct, &sum.DocHash, &sum.Headline, &sum.Blurb,
			&tagsJSON, &sum.LLMProvider, &sum.LLMModel, &sum.PromptVersion, &createdAt)
	if err != nil {
		return Summary{}, err
	}
	sum.TagsJSON = tagsJSON.String
	sum.CreatedAt = scanTime(createdAt)
	return sum, nil
}

// GetPersonDoc loads the stored person document for an account.
func (s *Store) GetPersonDoc(acct string) (PersonDoc, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var doc PersonDoc
	var generatedAt sql.NullTime
	err := s.db.QueryRow(`
		SELECT id, account_acct, doc_hash, doc_text, generated_at
		FROM person_docs WHERE account_acct = ?`, acct).
		Scan(&doc.ID, &doc.AccountAcct, &doc.DocHash, &doc.DocText, &generatedAt)
	if err != nil {
		return PersonDoc{}, err
	}
	doc.GeneratedAt = scanTime(generatedAt)
	return doc, nil
}
