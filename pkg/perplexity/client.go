// Package perplexity calls Perplexity's search-grounded chat completions
// (the sonar models) and exposes the web sources each answer cites.
package perplexity

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/predator4hack/ai-shark-sub001/internal/resilience"
)

const (
	defaultBaseURL = "https://api.perplexity.ai"
	defaultModel   = "sonar"
)

// Recency filters accepted by SearchRecencyFilter.
const (
	RecencyDay   = "day"
	RecencyWeek  = "week"
	RecencyMonth = "month"
	RecencyYear  = "year"
)

// Client runs one grounded completion per call.
type Client interface {
	ChatCompletion(ctx context.Context, req ChatCompletionRequest) (*ChatCompletionResponse, error)
}

// ChatCompletionRequest is the body of POST /chat/completions. An empty
// Model uses the client's model.
type ChatCompletionRequest struct {
	Model               string            `json:"model"`
	Messages            []Message         `json:"messages"`
	Temperature         *float64          `json:"temperature,omitempty"`
	MaxTokens           *int              `json:"max_tokens,omitempty"`
	SearchDomainFilter  []string          `json:"search_domain_filter,omitempty"`
	SearchRecencyFilter string            `json:"search_recency_filter,omitempty"`
	WebSearchOptions    *WebSearchOptions `json:"web_search_options,omitempty"`
}

// WebSearchOptions tunes how much web context the model retrieves.
// SearchContextSize is "low", "medium" or "high".
type WebSearchOptions struct {
	SearchContextSize string `json:"search_context_size,omitempty"`
}

// Message is one chat turn.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatCompletionResponse is the completion with its grounding sources.
// Older models return only Citations; newer ones also fill SearchResults.
type ChatCompletionResponse struct {
	ID            string         `json:"id"`
	Model         string         `json:"model"`
	Choices       []Choice       `json:"choices"`
	Usage         Usage          `json:"usage"`
	Citations     []string       `json:"citations"`
	SearchResults []SearchResult `json:"search_results"`
}

// Choice is one completion choice.
type Choice struct {
	Index        int     `json:"index"`
	FinishReason string  `json:"finish_reason"`
	Message      Message `json:"message"`
}

// Usage is the token and search accounting of one call.
type Usage struct {
	PromptTokens      int    `json:"prompt_tokens"`
	CompletionTokens  int    `json:"completion_tokens"`
	TotalTokens       int    `json:"total_tokens"`
	SearchContextSize string `json:"search_context_size"`
}

// SearchResult is one web page the answer drew on.
type SearchResult struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Date    string `json:"date"`
	Snippet string `json:"snippet"`
}

// Text returns the trimmed content of the first choice.
func (r *ChatCompletionResponse) Text() string {
	if r == nil || len(r.Choices) == 0 {
		return ""
	}
	return strings.TrimSpace(r.Choices[0].Message.Content)
}

// Sources returns SearchResults followed by any cited URL they do not
// already cover, in citation order. Citation-only sources have just a URL.
func (r *ChatCompletionResponse) Sources() []SearchResult {
	if r == nil {
		return nil
	}
	seen := make(map[string]bool, len(r.SearchResults))
	out := make([]SearchResult, 0, len(r.SearchResults)+len(r.Citations))
	for _, sr := range r.SearchResults {
		seen[sr.URL] = true
		out = append(out, sr)
	}
	for _, u := range r.Citations {
		if u == "" || seen[u] {
			continue
		}
		seen[u] = true
		out = append(out, SearchResult{URL: u})
	}
	return out
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL overrides the API root. Empty keeps the default.
func WithBaseURL(u string) Option {
	return func(c *httpClient) {
		if u != "" {
			c.baseURL = strings.TrimRight(u, "/")
		}
	}
}

// WithModel sets the model used when a request names none. Empty keeps sonar.
func WithModel(model string) Option {
	return func(c *httpClient) {
		if model != "" {
			c.model = model
		}
	}
}

// WithHTTPClient replaces the underlying *http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) { c.http = hc }
}

type httpClient struct {
	apiKey  string
	baseURL string
	model   string
	http    *http.Client
}

// NewClient returns a Perplexity client.
func NewClient(apiKey string, opts ...Option) Client {
	c := &httpClient{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		model:   defaultModel,
		http:    &http.Client{Timeout: 90 * time.Second},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *httpClient) ChatCompletion(ctx context.Context, req ChatCompletionRequest) (*ChatCompletionResponse, error) {
	if len(req.Messages) == 0 {
		return nil, resilience.NewFatalError(eris.New("perplexity: request has no messages"), 0)
	}
	if req.Model == "" {
		req.Model = c.model
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, eris.Wrap(err, "perplexity: marshal request")
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, eris.Wrap(err, "perplexity: create request")
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.http.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return nil, eris.Wrap(ctx.Err(), "perplexity: send request")
		}
		return nil, resilience.NewTransientError(eris.Wrap(err, "perplexity: send request"), 0)
	}
	defer resp.Body.Close() //nolint:errcheck

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resilience.NewTransientError(eris.Wrap(err, "perplexity: read response"), 0)
	}
	if resp.StatusCode != http.StatusOK {
		statusErr := eris.Errorf("perplexity: unexpected status %d: %s", resp.StatusCode, bytes.TrimSpace(raw))
		return nil, resilience.ClassifyResponse(statusErr, resp)
	}

	var out ChatCompletionResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, resilience.NewTransientError(eris.Wrap(err, "perplexity: decode response"), 0)
	}
	return &out, nil
}
