package llm

import (
	"context"
	"fmt"
	"time"

	"google.golang.org/genai"

	"mastohuman/internal/config"
	"mastohuman/internal/logging"
)

// GeminiClient implements Client using the Google GenAI SDK.
type GeminiClient struct {
	client      *genai.Client
	model       string
	temperature float32
	maxTokens   int32
}

// NewGeminiClient creates a Gemini-backed summary client.
func NewGeminiClient(cfg *config.Config) (*GeminiClient, error) {
	if cfg.LLM.APIKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}

	model := cfg.LLM.Model
	if model == "" || model == "gpt-4o" {
		// Config default is an OpenAI model; pick a Gemini one instead
		model = "gemini-2.5-flash"
	}

	client, err := genai.NewClient(context.Background(), &genai.ClientConfig{
		APIKey: cfg.LLM.APIKey,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}

	return &GeminiClient{
		client:      client,
		model:       model,
		temperature: float32(cfg.LLM.Temperature),
		maxTokens:   int32(cfg.LLM.MaxTokens),
	}, nil
}

// Provider returns "gemini".
func (c *GeminiClient) Provider() string { return "gemini" }

// Model returns the model used for generation.
func (c *GeminiClient) Model() string { return c.model }

// GenerateSummary sends the person document and parses the JSON summary.
func (c *GeminiClient) GenerateSummary(ctx context.Context, doc string) (SummaryOutput, error) {
	startTime := time.Now()
	logging.LLMDebug("[gemini] GenerateSummary: model=%s doc_len=%d", c.model, len(doc))

	temp := c.temperature
	genConfig := &genai.GenerateContentConfig{
		Temperature:       &temp,
		MaxOutputTokens:   c.maxTokens,
		ResponseMIMEType:  "application/json",
		SystemInstruction: genai.NewContentFromText(editorPrompt, genai.RoleUser),
	}

	contents := []*genai.Content{
		genai.NewContentFromText(doc, genai.RoleUser),
	}

	result, err := c.client.Models.GenerateContent(ctx, c.model, contents, genConfig)
	if err != nil {
		logging.LLMError("[gemini] GenerateSummary failed: %v", err)
		return SummaryOutput{}, fmt.Errorf("gemini generation failed: %w", err)
	}

	text := result.Text()
	if text == "" {
		return SummaryOutput{}, fmt.Errorf("no completion returned")
	}

	out, err := parseSummaryJSON(text)
	if err != nil {
		return SummaryOutput{}, err
	}

	logging.LLM("[gemini] GenerateSummary: completed in %v", time.Since(startTime))
	return out, nil
}
