package jina

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/predator4hack/ai-shark-sub001/internal/resilience"
)

func newReader(t *testing.T, h http.HandlerFunc) Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewClient("test-key", WithBaseURL(srv.URL+"/"))
}

func newSearcher(t *testing.T, h http.HandlerFunc) Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewClient("test-key", WithSearchBaseURL(srv.URL))
}

func TestRead(t *testing.T) {
	t.Parallel()
	c := newReader(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		assert.Equal(t, "markdown", r.Header.Get("X-Return-Format"))
		assert.Equal(t, removeSelector, r.Header.Get("X-Remove-Selector"))

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "https://acme.ai/team", body["url"])

		_, _ = w.Write([]byte(`{"code":200,"status":20000,"data":{"title":"Team","url":"https://acme.ai/team","content":"# Team\n\nJane Doe, CEO","usage":{"tokens":812}}}`))
	})

	got, err := c.Read(context.Background(), "https://acme.ai/team")
	require.NoError(t, err)
	assert.Equal(t, 200, got.Code)
	assert.Equal(t, "Team", got.Data.Title)
	assert.Contains(t, got.Data.Content, "Jane Doe")
	assert.Equal(t, 812, got.Data.Usage.Tokens)
}

func TestRead_Errors(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name          string
		status        int
		body          string
		wantMsg       string
		wantTransient bool
		wantFatal     bool
	}{
		{"rate limited", http.StatusTooManyRequests, `{"error":"rate limit"}`, "429", true, false},
		{"unavailable", http.StatusServiceUnavailable, "down", "503", true, false},
		{"unauthorized", http.StatusUnauthorized, "", "401", false, true},
		{"malformed", http.StatusOK, "{not json", "decode read response", true, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			var calls atomic.Int32
			c := newReader(t, func(w http.ResponseWriter, _ *http.Request) {
				calls.Add(1)
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})

			_, err := c.Read(context.Background(), "https://acme.ai")
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantMsg)
			assert.Equal(t, tt.wantTransient, resilience.IsTransient(err))
			assert.Equal(t, tt.wantFatal, resilience.IsFatal(err))
			assert.EqualValues(t, 1, calls.Load(), "the client never retries")
		})
	}
}

func TestRead_CancelledContext(t *testing.T) {
	t.Parallel()
	c := newReader(t, func(_ http.ResponseWriter, _ *http.Request) {
		t.Error("request should not reach the server")
	})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.Read(ctx, "https://acme.ai")
	require.ErrorIs(t, err, context.Canceled)
	assert.False(t, resilience.IsTransient(err))
}

func TestSearch(t *testing.T) {
	t.Parallel()
	c := newSearcher(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "crunchbase.com", r.Header.Get("X-Site"))

		var req searchRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "Acme Health seed round", req.Query)
		assert.Equal(t, 3, req.Num)

		_, _ = w.Write([]byte(`{"code":200,"data":[{"title":"Acme raises $2M","url":"https://crunchbase.com/acme","description":"Seed","content":"Acme Health raised..."}]}`))
	})

	got, err := c.Search(context.Background(), "Acme Health seed round", WithCount(3), WithSite("crunchbase.com"))
	require.NoError(t, err)
	require.Len(t, got.Data, 1)
	assert.Equal(t, "Acme raises $2M", got.Data[0].Title)
	assert.Equal(t, "Seed", got.Data[0].Description)
}

func TestSearch_DefaultsOmitOptionalFields(t *testing.T) {
	t.Parallel()
	c := newSearcher(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("X-Site"))
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.NotContains(t, body, "num")
		_, _ = w.Write([]byte(`{"code":200,"data":[]}`))
	})

	got, err := c.Search(context.Background(), "Acme")
	require.NoError(t, err)
	assert.Empty(t, got.Data)
}

func TestSearch_NoResults(t *testing.T) {
	t.Parallel()
	c := newSearcher(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
	})

	got, err := c.Search(context.Background(), "obscure founder")
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnprocessableEntity, got.Code)
	assert.Empty(t, got.Data)
}

func TestSearch_StatusClassification(t *testing.T) {
	t.Parallel()
	tests := []struct {
		status        int
		wantTransient bool
		wantFatal     bool
	}{
		{http.StatusTooManyRequests, true, false},
		{http.StatusBadGateway, true, false},
		{http.StatusPaymentRequired, false, true},
		{http.StatusNotFound, false, true},
	}
	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			t.Parallel()
			c := newSearcher(t, func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
			})
			_, err := c.Search(context.Background(), "q")
			require.Error(t, err)
			assert.Equal(t, tt.wantTransient, resilience.IsTransient(err))
			assert.Equal(t, tt.wantFatal, resilience.IsFatal(err))
		})
	}
}

func TestNewClient_Options(t *testing.T) {
	t.Parallel()
	hc := &http.Client{}
	c := NewClient("", WithHTTPClient(hc), WithBaseURL(""), WithSearchBaseURL("https://search.local/")).(*httpClient)
	assert.Same(t, hc, c.http)
	assert.Equal(t, defaultReaderURL, c.readerURL)
	assert.Equal(t, "https://search.local", c.searchURL)
}

func TestAnonymousRequestsOmitAuthorization(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`{"code":200,"data":[]}`))
	}))
	t.Cleanup(srv.Close)

	_, err := NewClient("", WithSearchBaseURL(srv.URL)).Search(context.Background(), "Acme")
	require.NoError(t, err)
}
