package perplexity

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/predator4hack/ai-shark-sub001/internal/resilience"
)

func serve(t *testing.T, h http.HandlerFunc, opts ...Option) Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewClient("pplx-key", append([]Option{WithBaseURL(srv.URL)}, opts...)...)
}

func userMsg(q string) []Message { return []Message{{Role: "user", Content: q}} }

func TestChatCompletion(t *testing.T) {
	t.Parallel()
	c := serve(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer pplx-key", r.Header.Get("Authorization"))

		var req ChatCompletionRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, defaultModel, req.Model)
		assert.Equal(t, []string{"crunchbase.com", "techcrunch.com"}, req.SearchDomainFilter)
		assert.Equal(t, RecencyYear, req.SearchRecencyFilter)
		require.NotNil(t, req.WebSearchOptions)
		assert.Equal(t, "high", req.WebSearchOptions.SearchContextSize)

		_, _ = w.Write([]byte(`{
			"id": "cmpl-1",
			"model": "sonar",
			"choices": [{"index": 0, "finish_reason": "stop", "message": {"role": "assistant", "content": "  Acme raised a $2M seed in 2024.\n"}}],
			"usage": {"prompt_tokens": 40, "completion_tokens": 12, "total_tokens": 52, "search_context_size": "high"},
			"citations": ["https://techcrunch.com/acme", "https://acme.ai/press"],
			"search_results": [{"title": "Acme raises seed", "url": "https://techcrunch.com/acme", "date": "2024-03-02", "snippet": "Acme Health..."}]
		}`))
	})

	resp, err := c.ChatCompletion(context.Background(), ChatCompletionRequest{
		Messages:            userMsg("What funding has Acme raised?"),
		SearchDomainFilter:  []string{"crunchbase.com", "techcrunch.com"},
		SearchRecencyFilter: RecencyYear,
		WebSearchOptions:    &WebSearchOptions{SearchContextSize: "high"},
	})
	require.NoError(t, err)
	assert.Equal(t, "Acme raised a $2M seed in 2024.", resp.Text())
	assert.Equal(t, 52, resp.Usage.TotalTokens)
	assert.Equal(t, "high", resp.Usage.SearchContextSize)

	sources := resp.Sources()
	require.Len(t, sources, 2)
	assert.Equal(t, "Acme raises seed", sources[0].Title)
	assert.Equal(t, SearchResult{URL: "https://acme.ai/press"}, sources[1])
}

func TestChatCompletion_OmitsUnsetFields(t *testing.T) {
	t.Parallel()
	c := serve(t, func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		for _, k := range []string{"temperature", "max_tokens", "search_domain_filter", "search_recency_filter", "web_search_options"} {
			assert.NotContains(t, body, k)
		}
		_, _ = w.Write([]byte(`{"choices":[]}`))
	})

	_, err := c.ChatCompletion(context.Background(), ChatCompletionRequest{Messages: userMsg("q")})
	require.NoError(t, err)
}

func TestChatCompletion_Model(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name      string
		opts      []Option
		reqModel  string
		wantModel string
	}{
		{"default", nil, "", "sonar"},
		{"client model", []Option{WithModel("sonar-pro")}, "", "sonar-pro"},
		{"empty option keeps default", []Option{WithModel("")}, "", "sonar"},
		{"request wins", []Option{WithModel("sonar-pro")}, "sonar-reasoning", "sonar-reasoning"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			c := serve(t, func(w http.ResponseWriter, r *http.Request) {
				var req ChatCompletionRequest
				require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
				assert.Equal(t, tt.wantModel, req.Model)
				_, _ = w.Write([]byte(`{}`))
			}, tt.opts...)

			_, err := c.ChatCompletion(context.Background(), ChatCompletionRequest{Model: tt.reqModel, Messages: userMsg("q")})
			require.NoError(t, err)
		})
	}
}

func TestChatCompletion_Options(t *testing.T) {
	t.Parallel()
	temp, maxTokens := 0.2, 400
	c := serve(t, func(w http.ResponseWriter, r *http.Request) {
		var req ChatCompletionRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.NotNil(t, req.Temperature)
		require.NotNil(t, req.MaxTokens)
		assert.InDelta(t, 0.2, *req.Temperature, 1e-9)
		assert.Equal(t, 400, *req.MaxTokens)
		_, _ = w.Write([]byte(`{}`))
	})

	_, err := c.ChatCompletion(context.Background(), ChatCompletionRequest{
		Messages:    userMsg("q"),
		Temperature: &temp,
		MaxTokens:   &maxTokens,
	})
	require.NoError(t, err)
}

func TestChatCompletion_NoMessages(t *testing.T) {
	t.Parallel()
	_, err := NewClient("k").ChatCompletion(context.Background(), ChatCompletionRequest{})
	require.Error(t, err)
	assert.True(t, resilience.IsFatal(err))
}

func TestChatCompletion_Errors(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name          string
		status        int
		body          string
		wantMsg       string
		wantTransient bool
		wantFatal     bool
	}{
		{"rate limited", http.StatusTooManyRequests, `{"error":"slow down"}`, "status 429: {\"error\":\"slow down\"}", true, false},
		{"server error", http.StatusInternalServerError, "oops", "status 500", true, false},
		{"bad key", http.StatusUnauthorized, "", "status 401", false, true},
		{"bad request", http.StatusBadRequest, `{"error":"invalid model"}`, "invalid model", false, true},
		{"malformed", http.StatusOK, `{"choices": [`, "decode response", true, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			c := serve(t, func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})
			_, err := c.ChatCompletion(context.Background(), ChatCompletionRequest{Messages: userMsg("q")})
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantMsg)
			assert.Equal(t, tt.wantTransient, resilience.IsTransient(err))
			assert.Equal(t, tt.wantFatal, resilience.IsFatal(err))
		})
	}
}

func TestChatCompletion_CancelledContext(t *testing.T) {
	t.Parallel()
	c := serve(t, func(_ http.ResponseWriter, _ *http.Request) {
		t.Error("request should not reach the server")
	})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.ChatCompletion(ctx, ChatCompletionRequest{Messages: userMsg("q")})
	require.ErrorIs(t, err, context.Canceled)
	assert.False(t, resilience.IsTransient(err))
}

func TestText(t *testing.T) {
	t.Parallel()
	var nilResp *ChatCompletionResponse
	assert.Empty(t, nilResp.Text())
	assert.Empty(t, (&ChatCompletionResponse{}).Text())
}

func TestSources_CitationsOnly(t *testing.T) {
	t.Parallel()
	r := &ChatCompletionResponse{Citations: []string{"https://a.example", "", "https://a.example", "https://b.example"}}
	assert.Equal(t, []SearchResult{{URL: "https://a.example"}, {URL: "https://b.example"}}, r.Sources())

	var nilResp *ChatCompletionResponse
	assert.Nil(t, nilResp.Sources())
}

func TestNewClient_Defaults(t *testing.T) {
	t.Parallel()
	hc := &http.Client{}
	c := NewClient("k", WithHTTPClient(hc), WithBaseURL("https://proxy.local/")).(*httpClient)
	assert.Same(t, hc, c.http)
	assert.Equal(t, "https://proxy.local", c.baseURL)
	assert.Equal(t, defaultModel, c.model)
}
