package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"mastohuman/internal/config"
	"mastohuman/internal/logging"
)

// OpenAIClient implements Client for any OpenAI-compatible chat completions
// API. The openrouter provider is this client pointed at a different base
// URL.
type OpenAIClient struct {
	provider    string
	apiKey      string
	baseURL     string
	model       string
	temperature float64
	maxTokens   int
	httpClient  *http.Client
	mu          sync.Mutex
	lastRequest time.Time
}

type openAIMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openAIResponseFormat struct {
	Type string `json:"type"`
}

type openAIRequest struct {
	Model          string                `json:"model"`
	Messages       []openAIMessage       `json:"messages"`
	MaxTokens      int                   `json:"max_tokens,omitempty"`
	Temperature    float64               `json:"temperature"`
	ResponseFormat *openAIResponseFormat `json:"response_format,omitempty"`
}

type openAIResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// NewOpenAIClient creates a client for the configured OpenAI-compatible
// endpoint.
func NewOpenAIClient(cfg *config.Config) *OpenAIClient {
	baseURL := cfg.LLM.BaseURL
	if baseURL == "" {
		switch cfg.LLM.Provider {
		case "openrouter":
			baseURL = "https://openrouter.ai/api/v1"
		default:
			baseURL = "https://api.openai.com/v1"
		}
	}
	return &OpenAIClient{
		provider:    cfg.LLM.Provider,
		apiKey:      cfg.LLM.APIKey,
		baseURL:     strings.TrimRight(baseURL, "/"),
		model:       cfg.LLM.Model,
		temperature: cfg.LLM.Temperature,
		maxTokens:   cfg.LLM.MaxTokens,
		httpClient:  &http.Client{Timeout: cfg.LLMTimeout()},
	}
}

// Provider returns the configured provider name.
func (c *OpenAIClient) Provider() string { return c.provider }

// Model returns the model used for completions.
func (c *OpenAIClient) Model() string { return c.model }

// GenerateSummary sends the person document and parses the JSON summary.
func (c *OpenAIClient) GenerateSummary(ctx context.Context, doc string) (SummaryOutput, error) {
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.httpClient.Timeout)
		defer cancel()
	}

	startTime := time.Now()
	logging.LLMDebug("[%s] GenerateSummary: model=%s doc_len=%d", c.provider, c.model, len(doc))

	if c.apiKey == "" {
		return SummaryOutput{}, fmt.Errorf("API key not configured")
	}

	// Minimum spacing between requests
	c.mu.Lock()
	if elapsed := time.Since(c.lastRequest); elapsed < 100*time.Millisecond {
		time.Sleep(100*time.Millisecond - elapsed)
	}
	c.lastRequest = time.Now()
	c.mu.Unlock()

	reqBody := openAIRequest{
		Model: c.model,
		Messages: []openAIMessage{
			{Role: "system", Content: editorPrompt},
			{Role: "user", Content: doc},
		},
		MaxTokens:      c.maxTokens,
		Temperature:    c.temperature,
		ResponseFormat: &openAIResponseFormat{Type: "json_object"},
	}

	const maxRetries = 3
	var lastErr error

	for i := 0; i <= maxRetries; i++ {
		if i > 0 {
			if err := sleepCtx(ctx, time.Duration(1<<uint(i-1))*time.Second); err != nil {
				return SummaryOutput{}, err
			}
		}

		jsonData, err := json.Marshal(reqBody)
		if err != nil {
			return SummaryOutput{}, fmt.Errorf("failed to marshal request: %w", err)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(jsonData))
		if err != nil {
			return SummaryOutput{}, fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+c.apiKey)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("request failed: %w", err)
			continue
		}

		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = fmt.Errorf("failed to read response: %w", err)
			continue
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			lastErr = fmt.Errorf("rate limit exceeded (429)")
			continue
		}

		if resp.StatusCode != http.StatusOK {
			// Some endpoints reject response_format; retry once without it.
			if reqBody.ResponseFormat != nil && resp.StatusCode == http.StatusBadRequest &&
				strings.Contains(string(body), "response_format") {
				reqBody.ResponseFormat = nil
				lastErr = fmt.Errorf("endpoint rejected response_format, retrying without it")
				continue
			}
			return SummaryOutput{}, fmt.Errorf("API request failed with status %d: %s", resp.StatusCode, string(body))
		}

		var apiResp openAIResponse
		if err := json.Unmarshal(body, &apiResp); err != nil {
			return SummaryOutput{}, fmt.Errorf("failed to parse response: %w", err)
		}
		if apiResp.Error != nil {
			return SummaryOutput{}, fmt.Errorf("API error: %s", apiResp.Error.Message)
		}
		if len(apiResp.Choices) == 0 {
			return SummaryOutput{}, fmt.Errorf("no completion returned")
		}

		out, err := parseSummaryJSON(apiResp.Choices[0].Message.Content)
		if err != nil {
			return SummaryOutput{}, err
		}

		logging.LLM("[%s] GenerateSummary: completed in %v", c.provider, time.Since(startTime))
		return out, nil
	}

	logging.LLMError("[%s] GenerateSummary: max retries exceeded: %v", c.provider, lastErr)
	return SummaryOutput{}, fmt.Errorf("max retries exceeded: %w", lastErr)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
