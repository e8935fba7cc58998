// Package firecrawl is a small client for Firecrawl's single-page scrape
// endpoint, used as the fallback page reader when Jina cannot render a page.
package firecrawl

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rotisserie/eris"

	"github.com/predator4hack/ai-shark-sub001/internal/resilience"
)

const (
	defaultBaseURL = "https://api.firecrawl.dev/v1"

	// Firecrawl waits this long for a page before giving up server side.
	defaultPageTimeoutMs = 30000

	// Longest error body kept on an APIError.
	maxErrorBody = 512
)

// Boilerplate never worth sending to the completion service.
var defaultExcludeTags = []string{"nav", "footer", "script", "style", "form"}

// Client scrapes one page at a time.
type Client interface {
	Scrape(ctx context.Context, req ScrapeRequest) (*ScrapeResponse, error)
}

// ScrapeRequest is the body of POST /scrape.
type ScrapeRequest struct {
	URL             string   `json:"url"`
	Formats         []string `json:"formats,omitempty"`
	OnlyMainContent bool     `json:"onlyMainContent,omitempty"`
	ExcludeTags     []string `json:"excludeTags,omitempty"`
	WaitFor         int      `json:"waitFor,omitempty"`
	Timeout         int      `json:"timeout,omitempty"`
}

// ScrapeResponse is the body returned by POST /scrape.
type ScrapeResponse struct {
	Success bool     `json:"success"`
	Error   string   `json:"error,omitempty"`
	Data    Document `json:"data"`
}

// Document is one scraped page.
type Document struct {
	Markdown string   `json:"markdown"`
	Metadata Metadata `json:"metadata"`
}

// Metadata describes the page Firecrawl actually fetched.
type Metadata struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Language    string `json:"language"`
	SourceURL   string `json:"sourceURL"`
	URL         string `json:"url"`
	StatusCode  int    `json:"statusCode"`
}

// PageURL returns the final URL of the page, falling back to the requested one.
func (m Metadata) PageURL() string {
	if m.URL != "" {
		return m.URL
	}
	return m.SourceURL
}

// APIError is a non-2xx reply from Firecrawl.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("firecrawl: HTTP %d: %s", e.StatusCode, e.Body)
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL points the client at another API root. Empty keeps the default.
func WithBaseURL(url string) Option {
	return func(c *httpClient) {
		if url != "" {
			c.baseURL = url
		}
	}
}

// WithHTTPClient replaces the underlying *http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) { c.http = hc }
}

// WithPageTimeout sets the server-side page timeout sent with each request.
func WithPageTimeout(d time.Duration) Option {
	return func(c *httpClient) {
		if d > 0 {
			c.pageTimeout = int(d.Milliseconds())
		}
	}
}

type httpClient struct {
	apiKey      string
	baseURL     string
	pageTimeout int
	http        *http.Client
}

// NewClient returns a Firecrawl client authenticated with apiKey.
func NewClient(apiKey string, opts ...Option) Client {
	c := &httpClient{
		apiKey:      apiKey,
		baseURL:     defaultBaseURL,
		pageTimeout: defaultPageTimeoutMs,
		http:        &http.Client{Timeout: 90 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Scrape fills in markdown output, main-content extraction, the boilerplate
// tag list and the page timeout when the caller left them unset.
func (c *httpClient) Scrape(ctx context.Context, req ScrapeRequest) (*ScrapeResponse, error) {
	if req.URL == "" {
		return nil, resilience.NewFatalError(eris.New("firecrawl: scrape: empty url"), 0)
	}
	if len(req.Formats) == 0 {
		req.Formats = []string{"markdown"}
		req.OnlyMainContent = true
	}
	if req.ExcludeTags == nil {
		req.ExcludeTags = defaultExcludeTags
	}
	if req.Timeout == 0 {
		req.Timeout = c.pageTimeout
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, eris.Wrap(err, "firecrawl: marshal request")
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/scrape", bytes.NewReader(body))
	if err != nil {
		return nil, eris.Wrap(err, "firecrawl: create request")
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.http.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return nil, eris.Wrap(ctx.Err(), "firecrawl: scrape")
		}
		return nil, resilience.NewTransientError(eris.Wrap(err, "firecrawl: scrape"), 0)
	}
	defer resp.Body.Close() //nolint:errcheck

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resilience.NewTransientError(eris.Wrap(err, "firecrawl: read body"), 0)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		if len(data) > maxErrorBody {
			data = data[:maxErrorBody]
		}
		apiErr := &APIError{StatusCode: resp.StatusCode, Body: string(data)}
		return nil, resilience.ClassifyResponse(apiErr, resp)
	}

	var out ScrapeResponse
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, resilience.NewTransientError(eris.Wrap(err, "firecrawl: decode response"), 0)
	}
	return &out, nil
}
