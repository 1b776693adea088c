package etl

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"mastohuman/internal/store"
)

// maxPostChars truncates extremely long posts to keep the LLM context small.
const maxPostChars = 1000

// BuildPersonDocument creates the canonical text representation of an
// account's recent original posts, the input to the summarizer. The document
// is also what gets hashed for the LLM cache, so its format is part of the
// cache key: change it and every summary regenerates.
func BuildPersonDocument(account store.Account, statuses []store.Status) string {
	var lines []string

	display := account.DisplayName
	if display == "" {
		display = account.Acct
	}
	lines = append(lines, fmt.Sprintf("Account: %s (%s)", display, account.Acct))
	lines = append(lines, strings.Repeat("-", 20))
	lines = append(lines, "Recent Original Posts (Newest First):")
	lines = append(lines, "")

	for _, s := range statuses {
		content := s.ContentText
		if runes := []rune(content); len(runes) > maxPostChars {
			content = string(runes[:maxPostChars]) + "[...]"
		}
		lines = append(lines, fmt.Sprintf("[%s] %s", s.CreatedAt.Format("2006-01-02 15:04"), content))
		lines = append(lines, "")
	}

	return strings.Join(lines, "\n")
}

// DocHash returns the cache key for a person document.
func DocHash(doc string) string {
	sum := sha256.Sum256([]byte(doc))
	return hex.EncodeToString(sum[:])
}
