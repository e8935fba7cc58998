// Package search fans keyword searches about founders and companies out to
// several providers and collects their normalized results.
package search

import (
	"context"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/predator4hack/ai-shark-sub001/internal/model"
)

// Provider is one keyword-search integration. Each call issues a small fixed
// set of query variants and concatenates their results in query order.
// Errors are returned, never swallowed; the orchestrator isolates failures.
type Provider interface {
	Name() string
	SearchPersonInfo(ctx context.Context, company, person, role string) (model.ProviderResponse, error)
	SearchCompany(ctx context.Context, company string) (model.ProviderResponse, error)
}

// ProviderOption configures a provider.
type ProviderOption func(*base)

// WithResultsPerQuery caps the number of results kept from each query.
func WithResultsPerQuery(n int) ProviderOption {
	return func(b *base) {
		if n > 0 {
			b.perQuery = n
		}
	}
}

// WithRateLimit limits the provider to perSec queries per second. Zero or
// negative disables limiting.
func WithRateLimit(perSec float64) ProviderOption {
	return func(b *base) {
		if perSec > 0 {
			b.limiter = rate.NewLimiter(rate.Limit(perSec), 1)
		} else {
			b.limiter = rate.NewLimiter(rate.Inf, 0)
		}
	}
}

// base holds what every provider shares: its name, a per-query result cap
// and a rate limiter.
type base struct {
	name     string
	perQuery int
	limiter  *rate.Limiter
}

func newBase(name string, opts []ProviderOption) base {
	b := base{
		name:     name,
		perQuery: 5,
		limiter:  rate.NewLimiter(rate.Inf, 0),
	}
	for _, o := range opts {
		o(&b)
	}
	return b
}

// Name implements Provider.
func (b *base) Name() string { return b.name }

type queryFunc func(ctx context.Context, query string) ([]model.SearchResult, error)

// run issues each query in order and concatenates the results. No
// de-duplication is done across queries. The first failing query aborts
// the call.
func (b *base) run(ctx context.Context, queries []string, fn queryFunc) (model.ProviderResponse, error) {
	resp := model.ProviderResponse{Source: b.name, Results: []model.SearchResult{}}
	for _, q := range queries {
		if err := b.limiter.Wait(ctx); err != nil {
			return model.ProviderResponse{}, eris.Wrapf(err, "search: %s rate limit wait", b.name)
		}
		results, err := fn(ctx, q)
		if err != nil {
			return model.ProviderResponse{}, eris.Wrapf(err, "search: %s query %q", b.name, q)
		}
		if len(results) > b.perQuery {
			results = results[:b.perQuery]
		}
		for i := range results {
			if results[i].Metadata == nil {
				results[i].Metadata = make(map[string]any, 2)
			}
			results[i].Metadata["provider"] = b.name
			results[i].Metadata["query"] = q
		}
		resp.Results = append(resp.Results, results...)
	}
	return resp, nil
}
