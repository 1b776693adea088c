// Package llm generates per-person summaries from person documents via a
// configurable provider: any OpenAI-compatible chat completions API, Google
// Gemini, or none at all.
package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"mastohuman/internal/config"
)

// PromptVersion tags stored summaries with the prompt that produced them.
// Bump it when editorPrompt changes so stale summaries can be told apart.
const PromptVersion = "1.0"

// editorPrompt is the system instruction for every summary request.
const editorPrompt = "You are a helpful personal news editor. " +
	"Analyze the following social media posts from a specific person. " +
	"Write a concise, engaging news headline (max 80 chars) and a short summary blurb (1-3 sentences) " +
	"describing what they have been posting about recently. " +
	"Focus on the most recent content. " +
	"Return JSON matching: {headline, blurb, tags}."

// SummaryOutput is the structured result of one summary generation.
type SummaryOutput struct {
	Headline string   `json:"headline"`
	Blurb    string   `json:"blurb"`
	Tags     []string `json:"tags"`
}

// FallbackSummary is stored when the provider fails, so the site always has
// something to render for the account.
func FallbackSummary() SummaryOutput {
	return SummaryOutput{
		Headline: "Summary Unavailable",
		Blurb:    "Could not generate summary.",
	}
}

// Client generates a summary for one person document.
type Client interface {
	GenerateSummary(ctx context.Context, doc string) (SummaryOutput, error)
	Provider() string
	Model() string
}

// NewClientFromConfig builds the configured provider client.
// Provider "none" returns (nil, nil); callers treat a nil client as
// summarization disabled.
func NewClientFromConfig(cfg *config.Config) (Client, error) {
	switch cfg.LLM.Provider {
	case "openai", "openrouter":
		return NewOpenAIClient(cfg), nil
	case "gemini":
		return NewGeminiClient(cfg)
	case "none":
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown llm provider: %s", cfg.LLM.Provider)
	}
}

// parseSummaryJSON decodes a model response into a SummaryOutput, tolerating
// markdown code fences around the JSON object.
func parseSummaryJSON(raw string) (SummaryOutput, error) {
	text := strings.TrimSpace(raw)
	if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```json")
		text = strings.TrimPrefix(text, "```")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
		text = strings.TrimSpace(text)
	}

	var out SummaryOutput
	if err := json.Unmarshal([]byte(text), &out); err != nil {
		return SummaryOutput{}, fmt.Errorf("failed to parse summary JSON: %w", err)
	}
	if out.Headline == "" {
		return SummaryOutput{}, fmt.Errorf("summary JSON missing headline")
	}
	return out, nil
}
