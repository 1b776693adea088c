// Package mastodon is a minimal Mastodon v1 REST client covering the calls
// the ingest pipeline needs: credential verification, the following list and
// per-account status history. Pagination follows the Link header; 429
// responses are waited out using the server's reset hints.
package mastodon

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"mastohuman/internal/logging"
)

// Config configures the API client.
type Config struct {
	BaseURL     string
	AccessToken string
	UserAgent   string
	Timeout     time.Duration
}

// Client talks to one Mastodon instance on behalf of one user.
type Client struct {
	baseURL     string
	accessToken string
	userAgent   string
	httpClient  *http.Client
}

// NewClient creates a new API client.
func NewClient(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	userAgent := cfg.UserAgent
	if userAgent == "" {
		userAgent = "mastohuman/0.1"
	}
	return &Client{
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		accessToken: cfg.AccessToken,
		userAgent:   userAgent,
		httpClient:  &http.Client{Timeout: timeout},
	}
}

// get performs an authenticated GET with rate-limit waiting and retries for
// transient failures. Returns the body and the response headers (needed for
// Link pagination).
func (c *Client) get(ctx context.Context, rawURL string) ([]byte, http.Header, error) {
	const maxRetries = 3
	var lastErr error

	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			if err := sleepCtx(ctx, time.Duration(1<<uint(attempt-1))*time.Second); err != nil {
				return nil, nil, err
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+c.accessToken)
		req.Header.Set("User-Agent", c.userAgent)
		req.Header.Set("Accept", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("request failed: %w", err)
			logging.MastodonDebug("GET %s failed (attempt %d): %v", rawURL, attempt+1, err)
			continue
		}

		body, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
		resp.Body.Close()
		if err != nil {
			lastErr = fmt.Errorf("failed to read response: %w", err)
			continue
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			wait := rateLimitWait(resp.Header)
			logging.Mastodon("Rate limited; waiting %v before retrying %s", wait, rawURL)
			if err := sleepCtx(ctx, wait); err != nil {
				return nil, nil, err
			}
			// A waited-out 429 does not consume a retry
			attempt--
			continue
		}

		if resp.StatusCode != http.StatusOK {
			return nil, nil, fmt.Errorf("API request failed with status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
		}

		return body, resp.Header, nil
	}

	return nil, nil, fmt.Errorf("max retries exceeded: %w", lastErr)
}

// rateLimitWait derives the backoff for a 429 from the response headers.
func rateLimitWait(h http.Header) time.Duration {
	if v := h.Get("X-RateLimit-Reset"); v != "" {
		if reset, err := time.Parse(time.RFC3339, v); err == nil {
			if d := time.Until(reset); d > 0 {
				return d + time.Second
			}
		}
	}
	if v := h.Get("Retry-After"); v != "" {
		if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
			return time.Duration(secs) * time.Second
		}
	}
	return 30 * time.Second
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

// VerifyCredentials returns the account the access token belongs to.
func (c *Client) VerifyCredentials(ctx context.Context) (Account, error) {
	body, _, err := c.get(ctx, c.baseURL+"/api/v1/accounts/verify_credentials")
	if err != nil {
		return Account{}, err
	}
	var acc Account
	if err := json.Unmarshal(body, &acc); err != nil {
		return Account{}, fmt.Errorf("failed to parse account: %w", err)
	}
	return acc, nil
}

// Following starts paging through the accounts the given user follows.
func (c *Client) Following(accountID string, limit int) *AccountPager {
	u := fmt.Sprintf("%s/api/v1/accounts/%s/following?limit=%d", c.baseURL, url.PathEscape(accountID), limit)
	return &AccountPager{client: c, next: u}
}

// AccountStatuses starts paging through an account's status history.
// Boosts are excluded server-side; replies are included and flagged locally.
func (c *Client) AccountStatuses(accountID string, limit int) *StatusPager {
	u := fmt.Sprintf("%s/api/v1/accounts/%s/statuses?limit=%d&exclude_reblogs=true", c.baseURL, url.PathEscape(accountID), limit)
	return &StatusPager{client: c, next: u}
}

// AccountPager iterates pages of accounts via the Link header.
type AccountPager struct {
	client *Client
	next   string
}

// Next returns the next page, or (nil, nil) when exhausted.
func (p *AccountPager) Next(ctx context.Context) ([]Account, error) {
	if p.next == "" {
		return nil, nil
	}
	body, header, err := p.client.get(ctx, p.next)
	if err != nil {
		return nil, err
	}
	var page []Account
	if err := json.Unmarshal(body, &page); err != nil {
		return nil, fmt.Errorf("failed to parse accounts page: %w", err)
	}
	p.next = parseNextLink(header.Get("Link"))
	if len(page) == 0 {
		p.next = ""
		return nil, nil
	}
	return page, nil
}

// StatusPager iterates pages of statuses via the Link header.
type StatusPager struct {
	client *Client
	next   string
}

// Next returns the next page, or (nil, nil) when exhausted.
func (p *StatusPager) Next(ctx context.Context) ([]Status, error) {
	if p.next == "" {
		return nil, nil
	}
	body, header, err := p.client.get(ctx, p.next)
	if err != nil {
		return nil, err
	}
	var page []Status
	if err := json.Unmarshal(body, &page); err != nil {
		return nil, fmt.Errorf("failed to parse statuses page: %w", err)
	}
	p.next = parseNextLink(header.Get("Link"))
	if len(page) == 0 {
		p.next = ""
		return nil, nil
	}
	return page, nil
}

// parseNextLink extracts the rel="next" URL from a Link header.
// Format: <https://host/path?max_id=123>; rel="next", <...>; rel="prev"
func parseNextLink(link string) string {
	for _, part := range strings.Split(link, ",") {
		part = strings.TrimSpace(part)
		if !strings.Contains(part, `rel="next"`) {
			continue
		}
		start := strings.Index(part, "<")
		end := strings.Index(part, ">")
		if start < 0 || end <= start {
			continue
		}
		return part[start+1 : end]
	}
	return ""
}
