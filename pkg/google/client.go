// Package google queries the Google Programmable Search (Custom Search JSON)
// API, one page of web results per call.
package google

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rotisserie/eris"

	"github.com/predator4hack/ai-shark-sub001/internal/resilience"
)

const (
	defaultBaseURL = "https://www.googleapis.com/customsearch/v1"

	// The API returns at most ten results per page.
	maxNum = 10
)

// Client runs one search query.
type Client interface {
	Search(ctx context.Context, query string, num int) (*SearchResponse, error)
}

// SearchResponse is one page of results.
type SearchResponse struct {
	Items             []Item            `json:"items"`
	SearchInformation SearchInformation `json:"searchInformation"`
}

// Item is one web result.
type Item struct {
	Title       string `json:"title"`
	Link        string `json:"link"`
	Snippet     string `json:"snippet"`
	DisplayLink string `json:"displayLink"`
}

// SearchInformation carries the estimated result count, as a string.
type SearchInformation struct {
	TotalResults string `json:"totalResults"`
}

// Total parses TotalResults, returning 0 when it is absent or malformed.
func (s SearchInformation) Total() int {
	n, _ := strconv.Atoi(s.TotalResults)
	return n
}

// APIError is Google's JSON error envelope. Reason carries the first
// detail reason, such as "dailyLimitExceeded" or "keyInvalid".
type APIError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Status  string `json:"status"`
	Reason  string `json:"-"`
}

func (e *APIError) Error() string {
	msg := fmt.Sprintf("google: HTTP %d", e.Code)
	if e.Status != "" {
		msg += " " + e.Status
	}
	if e.Reason != "" {
		msg += " (" + e.Reason + ")"
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	return msg
}

func parseAPIError(status int, body []byte) *APIError {
	var env struct {
		Error struct {
			APIError
			Errors []struct {
				Reason string `json:"reason"`
			} `json:"errors"`
		} `json:"error"`
	}
	apiErr := &APIError{Code: status}
	if json.Unmarshal(body, &env) == nil {
		apiErr.Message = env.Error.Message
		apiErr.Status = env.Error.Status
		if len(env.Error.Errors) > 0 {
			apiErr.Reason = env.Error.Errors[0].Reason
		}
	}
	return apiErr
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL overrides the API endpoint. Empty keeps the default.
func WithBaseURL(u string) Option {
	return func(c *httpClient) {
		if u != "" {
			c.baseURL = u
		}
	}
}

// WithHTTPClient replaces the underlying *http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) { c.http = hc }
}

// WithCountry biases results toward a two-letter country code (the gl
// parameter).
func WithCountry(gl string) Option {
	return func(c *httpClient) { c.country = gl }
}

type httpClient struct {
	apiKey  string
	cx      string
	baseURL string
	country string
	http    *http.Client
}

// NewClient returns a client for the search engine cx.
func NewClient(apiKey, cx string, opts ...Option) Client {
	c := &httpClient{
		apiKey:  apiKey,
		cx:      cx,
		baseURL: defaultBaseURL,
		http:    &http.Client{Timeout: 15 * time.Second},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Search returns up to num results. num outside 1..10 asks for ten.
func (c *httpClient) Search(ctx context.Context, query string, num int) (*SearchResponse, error) {
	if num <= 0 || num > maxNum {
		num = maxNum
	}
	params := url.Values{
		"key": {c.apiKey},
		"cx":  {c.cx},
		"q":   {query},
		"num": {strconv.Itoa(num)},
	}
	if c.country != "" {
		params.Set("gl", c.country)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, eris.Wrap(err, "google: create request")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, eris.Wrap(ctx.Err(), "google: search")
		}
		return nil, resilience.NewTransientError(eris.Wrap(err, "google: search"), 0)
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resilience.NewTransientError(eris.Wrap(err, "google: read response"), 0)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, resilience.ClassifyResponse(parseAPIError(resp.StatusCode, body), resp)
	}

	var out SearchResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, resilience.NewTransientError(eris.Wrap(err, "google: unmarshal response"), 0)
	}
	return &out, nil
}
