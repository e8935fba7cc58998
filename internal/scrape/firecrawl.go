package scrape

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/predator4hack/ai-shark-sub001/internal/resilience"
	"github.com/predator4hack/ai-shark-sub001/pkg/firecrawl"
)

// FirecrawlAdapter is the last-resort Scraper. Firecrawl renders JavaScript,
// so it reads pages the Jina reader returns as challenge pages.
type FirecrawlAdapter struct {
	client  firecrawl.Client
	breaker *resilience.CircuitBreaker
}

// NewFirecrawlAdapter wraps client. Firecrawl bills per page, so two
// consecutive failures stop calls for two minutes.
func NewFirecrawlAdapter(client firecrawl.Client) *FirecrawlAdapter {
	return &FirecrawlAdapter{
		client: client,
		breaker: resilience.NewCircuitBreaker("firecrawl", resilience.CircuitBreakerConfig{
			FailureThreshold: 2,
			ResetTimeout:     2 * time.Minute,
		}),
	}
}

// Name implements Scraper.
func (f *FirecrawlAdapter) Name() string { return "firecrawl" }

// Supports is false while the breaker is open.
func (f *FirecrawlAdapter) Supports(_ string) bool {
	return f.breaker.State() != resilience.CircuitOpen
}

// Scrape fetches targetURL as markdown and rejects unreadable pages.
func (f *FirecrawlAdapter) Scrape(ctx context.Context, targetURL string) (*Result, error) {
	return resilience.ExecuteVal(ctx, f.breaker, func(ctx context.Context) (*Result, error) {
		resp, err := f.client.Scrape(ctx, firecrawl.ScrapeRequest{URL: targetURL})
		if err != nil {
			return nil, err
		}
		if !resp.Success {
			return nil, eris.Errorf("firecrawl: scrape not successful: %s", resp.Error)
		}
		meta := resp.Data.Metadata
		if unreadable(resp.Data.Markdown, meta.StatusCode) {
			return nil, eris.Errorf("firecrawl: unreadable page (status %d)", meta.StatusCode)
		}

		page := Page{
			URL:        meta.PageURL(),
			Title:      meta.Title,
			Markdown:   resp.Data.Markdown,
			StatusCode: meta.StatusCode,
		}
		if page.URL == "" {
			page.URL = targetURL
		}
		return &Result{Page: page, Source: "firecrawl"}, nil
	})
}
