// Package jina talks to two Jina AI services: the reader (r.jina.ai), which
// renders a URL as markdown, and search (s.jina.ai), which returns web
// results with page content inline. Each call is made once; callers own
// retries.
package jina

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
	defaultReaderURL = "https://r.jina.ai"
	defaultSearchURL = "https://s.jina.ai"

	// Page chrome stripped by the reader before conversion.
	removeSelector = "nav, header, footer, aside, form, script, style"
)

// Client reads pages and runs web searches.
type Client interface {
	Read(ctx context.Context, targetURL string) (*ReadResponse, error)
	Search(ctx context.Context, query string, opts ...SearchOption) (*SearchResponse, error)
}

// ReadResponse is the reader's JSON envelope.
type ReadResponse struct {
	Code   int      `json:"code"`
	Status int      `json:"status"`
	Data   ReadData `json:"data"`
}

// ReadData is one rendered page.
type ReadData struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	URL         string `json:"url"`
	Content     string `json:"content"`
	Usage       Usage  `json:"usage"`
}

// Usage is the token count Jina bills for a call.
type Usage struct {
	Tokens int `json:"tokens"`
}

// SearchResponse is the search JSON envelope. Code is 422 when the query
// matched nothing.
type SearchResponse struct {
	Code int            `json:"code"`
	Data []SearchResult `json:"data"`
}

// SearchResult is one hit, with the page content when Jina fetched it.
type SearchResult struct {
	Title       string `json:"title"`
	URL         string `json:"url"`
	Description string `json:"description"`
	Content     string `json:"content"`
	Usage       Usage  `json:"usage"`
}

type searchRequest struct {
	Query string `json:"q"`
	Num   int    `json:"num,omitempty"`
}

// SearchOption adjusts one search call.
type SearchOption func(*searchOpts)

type searchOpts struct {
	num  int
	site string
}

// WithCount asks for at most n results.
func WithCount(n int) SearchOption {
	return func(o *searchOpts) { o.num = n }
}

// WithSite restricts results to one domain.
func WithSite(domain string) SearchOption {
	return func(o *searchOpts) { o.site = domain }
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL overrides the reader URL. Empty keeps the default.
func WithBaseURL(u string) Option {
	return func(c *httpClient) {
		if u != "" {
			c.readerURL = strings.TrimRight(u, "/")
		}
	}
}

// WithSearchBaseURL overrides the search URL. Empty keeps the default.
func WithSearchBaseURL(u string) Option {
	return func(c *httpClient) {
		if u != "" {
			c.searchURL = strings.TrimRight(u, "/")
		}
	}
}

// WithHTTPClient replaces the underlying *http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) { c.http = hc }
}

type httpClient struct {
	apiKey    string
	readerURL string
	searchURL string
	http      *http.Client
}

// NewClient returns a Jina client. An empty apiKey sends anonymous requests,
// which Jina serves at a lower rate limit.
func NewClient(apiKey string, opts ...Option) Client {
	c := &httpClient{
		apiKey:    apiKey,
		readerURL: defaultReaderURL,
		searchURL: defaultSearchURL,
		http:      &http.Client{Timeout: 45 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Read renders targetURL as markdown.
func (c *httpClient) Read(ctx context.Context, targetURL string) (*ReadResponse, error) {
	req, err := c.newRequest(ctx, c.readerURL+"/", map[string]string{"url": targetURL})
	if err != nil {
		return nil, err
	}
	req.Header.Set("X-Return-Format", "markdown")
	req.Header.Set("X-Remove-Selector", removeSelector)

	body, _, err := c.do(req)
	if err != nil {
		return nil, eris.Wrapf(err, "jina: read %s", targetURL)
	}
	var out ReadResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, resilience.NewTransientError(eris.Wrap(err, "jina: decode read response"), 0)
	}
	return &out, nil
}

// Search runs query. No results is an empty response, not an error.
func (c *httpClient) Search(ctx context.Context, query string, opts ...SearchOption) (*SearchResponse, error) {
	var so searchOpts
	for _, opt := range opts {
		opt(&so)
	}

	req, err := c.newRequest(ctx, c.searchURL+"/", searchRequest{Query: query, Num: so.num})
	if err != nil {
		return nil, err
	}
	if so.site != "" {
		req.Header.Set("X-Site", so.site)
	}

	body, status, err := c.do(req)
	if status == http.StatusUnprocessableEntity {
		return &SearchResponse{Code: status}, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "jina: search")
	}
	var out SearchResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, resilience.NewTransientError(eris.Wrap(err, "jina: decode search response"), 0)
	}
	return &out, nil
}

func (c *httpClient) newRequest(ctx context.Context, endpoint string, payload any) (*http.Request, error) {
	buf, err := json.Marshal(payload)
	if err != nil {
		return nil, eris.Wrap(err, "jina: marshal request")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(buf))
	if err != nil {
		return nil, eris.Wrap(err, "jina: create request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	return req, nil
}

// do returns the body of a 200 reply. Any other status comes back with a
// classified error alongside the status code.
func (c *httpClient) do(req *http.Request) ([]byte, int, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		if ctxErr := req.Context().Err(); ctxErr != nil {
			return nil, 0, ctxErr
		}
		return nil, 0, resilience.NewTransientError(eris.Wrap(err, "http request"), 0)
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, resilience.NewTransientError(eris.Wrap(err, "read body"), 0)
	}
	if resp.StatusCode != http.StatusOK {
		statusErr := eris.Errorf("unexpected status %d: %s", resp.StatusCode, bytes.TrimSpace(body))
		return nil, resp.StatusCode, resilience.ClassifyResponse(statusErr, resp)
	}
	return body, resp.StatusCode, nil
}
