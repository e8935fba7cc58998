package scrape

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/predator4hack/ai-shark-sub001/internal/resilience"
	"github.com/predator4hack/ai-shark-sub001/pkg/jina"
)

// JinaAdapter wraps a Jina Reader client as a Scraper with a circuit breaker.
type JinaAdapter struct {
	client  jina.Client
	breaker *resilience.CircuitBreaker
}

// NewJinaAdapter creates a JinaAdapter from a Jina client.
// Three consecutive failures open the circuit for 60s, causing immediate
// fallback to the next scraper.
func NewJinaAdapter(client jina.Client) *JinaAdapter {
	return &JinaAdapter{
		client: client,
		breaker: resilience.NewCircuitBreaker("jina-reader", resilience.CircuitBreakerConfig{
			FailureThreshold: 3,
			ResetTimeout:     60 * time.Second,
		}),
	}
}

// Name implements Scraper.
func (j *JinaAdapter) Name() string { return "jina" }

// Supports returns true unless the circuit breaker is open.
func (j *JinaAdapter) Supports(_ string) bool {
	return j.breaker.State() != resilience.CircuitOpen
}

// Scrape fetches a URL via Jina Reader and validates the response.
func (j *JinaAdapter) Scrape(ctx context.Context, targetURL string) (*Result, error) {
	return resilience.ExecuteVal(ctx, j.breaker, func(ctx context.Context) (*Result, error) {
		resp, err := j.client.Read(ctx, targetURL)
		if err != nil {
			return nil, err
		}
		if needsFallback(resp) {
			return nil, eris.New("jina: response needs fallback")
		}
		return &Result{
			Page: Page{
				URL:        resp.Data.URL,
				Title:      resp.Data.Title,
				Markdown:   resp.Data.Content,
				StatusCode: resp.Code,
			},
			Source: "jina",
		}, nil
	})
}

// needsFallback reports whether a Jina response should be retried with a
// different scraper.
func needsFallback(resp *jina.ReadResponse) bool {
	if resp == nil {
		return true
	}
	return unreadable(resp.Data.Content, resp.Code)
}
