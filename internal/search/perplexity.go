package search

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/predator4hack/ai-shark-sub001/internal/cost"
	"github.com/predator4hack/ai-shark-sub001/internal/model"
	"github.com/predator4hack/ai-shark-sub001/pkg/perplexity"
)

const perplexitySystem = "You are a research assistant. Answer factually and concisely using web sources. " +
	"Say \"unknown\" when sources do not cover a point."

// PerplexityProvider asks Perplexity's search-grounded chat model and
// normalizes its answer and cited sources into search results.
type PerplexityProvider struct {
	base
	client perplexity.Client
	costs  *cost.Calculator
}

// NewPerplexityProvider creates a PerplexityProvider. costs may be nil.
func NewPerplexityProvider(client perplexity.Client, costs *cost.Calculator, opts ...ProviderOption) *PerplexityProvider {
	return &PerplexityProvider{base: newBase("perplexity", opts), client: client, costs: costs}
}

// SearchPersonInfo implements Provider.
func (p *PerplexityProvider) SearchPersonInfo(ctx context.Context, company, person, role string) (model.ProviderResponse, error) {
	return p.run(ctx, []string{
		fmt.Sprintf("Who is %s, %s of %s? Summarize their professional background, education and previous companies.", person, role, company),
		fmt.Sprintf("What notable achievements, press coverage or controversies involve %s of %s?", person, company),
	}, p.query)
}

// SearchCompany implements Provider.
func (p *PerplexityProvider) SearchCompany(ctx context.Context, company string) (model.ProviderResponse, error) {
	return p.run(ctx, []string{
		fmt.Sprintf("What does the startup %s do? Summarize its product, market and recent news.", company),
		fmt.Sprintf("What funding rounds has %s raised, and from which investors?", company),
	}, p.query)
}

// query returns the model's answer first, followed by the sources it drew on.
func (p *PerplexityProvider) query(ctx context.Context, q string) ([]model.SearchResult, error) {
	resp, err := p.client.ChatCompletion(ctx, perplexity.ChatCompletionRequest{
		Messages: []perplexity.Message{
			{Role: "system", Content: perplexitySystem},
			{Role: "user", Content: q},
		},
		WebSearchOptions: &perplexity.WebSearchOptions{SearchContextSize: "medium"},
	})
	if err != nil {
		return nil, err
	}

	if p.costs != nil {
		p.costs.Add("search:perplexity", p.costs.PerplexityQuery())
		zap.L().Debug("search: perplexity query cost",
			zap.Int("total_tokens", resp.Usage.TotalTokens),
			zap.Float64("cost_usd", p.costs.PerplexityQuery()),
		)
	}

	sources := resp.Sources()
	out := make([]model.SearchResult, 0, len(sources)+1)
	if text := resp.Text(); text != "" {
		answer := model.SearchResult{
			Title:    "Perplexity answer",
			Snippet:  text,
			Metadata: map[string]any{"citations": resp.Citations},
		}
		if len(resp.Citations) > 0 {
			answer.URL = resp.Citations[0]
		}
		out = append(out, answer)
	}
	for _, sr := range sources {
		r := model.SearchResult{Title: sr.Title, URL: sr.URL, Snippet: sr.Snippet}
		if sr.Date != "" {
			r.Metadata = map[string]any{"date": sr.Date}
		}
		out = append(out, r)
	}
	return out, nil
}
