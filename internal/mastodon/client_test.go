package mastodon

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testClient(serverURL string) *Client {
	return NewClient(Config{
		BaseURL:     serverURL,
		AccessToken: "test-token",
		Timeout:     5 * time.Second,
	})
}

func TestVerifyCredentials(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/accounts/verify_credentials", r.URL.Path)
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
		json.NewEncoder(w).Encode(Account{ID: "42", Acct: "me", Username: "me"})
	}))
	defer server.Close()

	acc, err := testClient(server.URL).VerifyCredentials(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "42", acc.ID)
	assert.Equal(t, "me", acc.Acct)
}

func TestVerifyCredentialsUnauthorized(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"The access token is invalid"}`, http.StatusUnauthorized)
	}))
	defer server.Close()

	_, err := testClient(server.URL).VerifyCredentials(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
}

func TestFollowingPagination(t *testing.T) {
	var server *httptest.Server
	server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/accounts/42/following", r.URL.Path)

		switch r.URL.Query().Get("max_id") {
		case "":
			w.Header().Set("Link", fmt.Sprintf(`<%s/api/v1/accounts/42/following?limit=2&max_id=2>; rel="next"`, server.URL))
			json.NewEncoder(w).Encode([]Account{{ID: "1", Acct: "a@x"}, {ID: "2", Acct: "b@x"}})
		case "2":
			// Last page: no Link header
			json.NewEncoder(w).Encode([]Account{{ID: "3", Acct: "c@x"}})
		default:
			t.Errorf("unexpected max_id %q", r.URL.Query().Get("max_id"))
		}
	}))
	defer server.Close()

	ctx := context.Background()
	pager := testClient(server.URL).Following("42", 2)

	var all []Account
	for {
		page, err := pager.Next(ctx)
		require.NoError(t, err)
		if page == nil {
			break
		}
		all = append(all, page...)
	}

	require.Len(t, all, 3)
	assert.Equal(t, "a@x", all[0].Acct)
	assert.Equal(t, "c@x", all[2].Acct)
}

func TestAccountStatusesExcludesReblogsParam(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "true", r.URL.Query().Get("exclude_reblogs"))
		json.NewEncoder(w).Encode([]Status{{ID: "9", Content: "<p>hi</p>"}})
	}))
	defer server.Close()

	page, err := testClient(server.URL).AccountStatuses("42", 40).Next(context.Background())
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, "9", page[0].ID)
}

func TestRateLimitWaitAndRetry(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.Header().Set("Retry-After", "1")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		json.NewEncoder(w).Encode(Account{ID: "42", Acct: "me"})
	}))
	defer server.Close()

	start := time.Now()
	acc, err := testClient(server.URL).VerifyCredentials(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "42", acc.ID)
	assert.Equal(t, 2, calls)
	assert.GreaterOrEqual(t, time.Since(start), time.Second, "should have waited out the 429")
}

func TestRateLimitWaitCancellable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// No reset headers: client falls back to the 30s default wait
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	_, err := testClient(server.URL).VerifyCredentials(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestParseNextLink(t *testing.T) {
	tests := []struct {
		name string
		link string
		want string
	}{
		{
			"next and prev",
			`<https://h/x?max_id=3>; rel="next", <https://h/x?since_id=9>; rel="prev"`,
			"https://h/x?max_id=3",
		},
		{
			"prev only",
			`<https://h/x?since_id=9>; rel="prev"`,
			"",
		},
		{"empty", "", ""},
		{"malformed", `rel="next"`, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, parseNextLink(tt.link))
		})
	}
}

func TestStatusPredicates(t *testing.T) {
	replyTo := "123"
	assert.True(t, (&Status{InReplyToID: &replyTo}).IsReply())
	empty := ""
	assert.False(t, (&Status{InReplyToID: &empty}).IsReply())
	assert.False(t, (&Status{}).IsReply())

	assert.True(t, (&Status{Reblog: &Status{ID: "1"}}).IsBoost())
	assert.False(t, (&Status{}).IsBoost())
}
