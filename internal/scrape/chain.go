package scrape

import (
	"context"
	"sync"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// ErrFiltered is returned for URLs the chain's URLFilter rejects.
var ErrFiltered = eris.New("scrape: url filtered")

// Chain reads a page with the first scraper that can, in priority order.
type Chain struct {
	filter   *URLFilter
	scrapers []Scraper
}

// NewChain builds a chain over scrapers. A nil filter uses the defaults.
func NewChain(filter *URLFilter, scrapers ...Scraper) *Chain {
	if filter == nil {
		filter = NewURLFilter(nil, nil)
	}
	return &Chain{filter: filter, scrapers: scrapers}
}

// Len returns the number of scrapers.
func (c *Chain) Len() int { return len(c.scrapers) }

// Wants reports whether the chain would try rawURL at all.
func (c *Chain) Wants(rawURL string) bool { return !c.filter.Skip(rawURL) }

// Scrape returns the first successful read of targetURL. When every
// scraper fails, the last failure is returned.
func (c *Chain) Scrape(ctx context.Context, targetURL string) (*Result, error) {
	if !c.Wants(targetURL) {
		return nil, eris.Wrapf(ErrFiltered, "scrape: %s", targetURL)
	}

	var lastErr error
	for _, s := range c.scrapers {
		if ctx.Err() != nil {
			return nil, eris.Wrap(ctx.Err(), "scrape: cancelled")
		}
		if !s.Supports(targetURL) {
			continue
		}
		res, err := s.Scrape(ctx, targetURL)
		if err != nil {
			zap.L().Debug("scrape: falling back",
				zap.String("scraper", s.Name()),
				zap.String("url", targetURL),
				zap.Error(err),
			)
			lastErr = err
			continue
		}
		if res != nil {
			return res, nil
		}
	}
	if lastErr == nil {
		return nil, eris.Errorf("scrape: no scraper available for %s", targetURL)
	}
	return nil, eris.Wrapf(lastErr, "scrape: every scraper failed for %s", targetURL)
}

// ScrapeAll reads urls with at most limit in flight and returns the pages
// that succeeded, keyed by requested URL. Duplicates are read once.
func (c *Chain) ScrapeAll(ctx context.Context, urls []string, limit int) map[string]Page {
	pages := make(map[string]Page, len(urls))
	if len(urls) == 0 {
		return pages
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(limit, 1))

	seen := make(map[string]bool, len(urls))
	for _, u := range urls {
		if seen[u] {
			continue
		}
		seen[u] = true
		g.Go(func() error {
			res, err := c.Scrape(gctx, u)
			if err != nil {
				return nil
			}
			mu.Lock()
			pages[u] = res.Page
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	zap.L().Debug("scrape: batch done", zap.Int("requested", len(seen)), zap.Int("read", len(pages)))
	return pages
}
