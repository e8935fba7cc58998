package search

import (
	"context"
	"fmt"

	"github.com/predator4hack/ai-shark-sub001/internal/model"
	"github.com/predator4hack/ai-shark-sub001/pkg/google"
)

// GoogleProvider searches the web through the Google Custom Search API.
type GoogleProvider struct {
	base
	client google.Client
}

// NewGoogleProvider creates a GoogleProvider.
func NewGoogleProvider(client google.Client, opts ...ProviderOption) *GoogleProvider {
	return &GoogleProvider{base: newBase("google", opts), client: client}
}

// SearchPersonInfo implements Provider.
func (p *GoogleProvider) SearchPersonInfo(ctx context.Context, company, person, role string) (model.ProviderResponse, error) {
	return p.run(ctx, []string{
		fmt.Sprintf("%q %s", person, company),
		fmt.Sprintf("%s %s %s linkedin", person, role, company),
		fmt.Sprintf("%s education experience", person),
	}, p.query)
}

// SearchCompany implements Provider.
func (p *GoogleProvider) SearchCompany(ctx context.Context, company string) (model.ProviderResponse, error) {
	return p.run(ctx, []string{
		fmt.Sprintf("%q startup", company),
		fmt.Sprintf("%q raises OR funding OR investors", company),
		fmt.Sprintf("%q news", company),
	}, p.query)
}

func (p *GoogleProvider) query(ctx context.Context, q string) ([]model.SearchResult, error) {
	resp, err := p.client.Search(ctx, q, p.perQuery)
	if err != nil {
		return nil, err
	}
	out := make([]model.SearchResult, 0, len(resp.Items))
	for _, it := range resp.Items {
		out = append(out, model.SearchResult{
			Title:   it.Title,
			URL:     it.Link,
			Snippet: it.Snippet,
			Metadata: map[string]any{
				"display_link": it.DisplayLink,
			},
		})
	}
	return out, nil
}
