package search

import (
	"context"
	"fmt"

	"github.com/predator4hack/ai-shark-sub001/internal/model"
	"github.com/predator4hack/ai-shark-sub001/pkg/jina"
)

// JinaProvider searches the web through Jina Search.
type JinaProvider struct {
	base
	client jina.Client
}

// NewJinaProvider creates a JinaProvider.
func NewJinaProvider(client jina.Client, opts ...ProviderOption) *JinaProvider {
	return &JinaProvider{base: newBase("jina", opts), client: client}
}

// SearchPersonInfo implements Provider.
func (p *JinaProvider) SearchPersonInfo(ctx context.Context, company, person, role string) (model.ProviderResponse, error) {
	return p.run(ctx, []string{
		fmt.Sprintf("%s %s %s", person, role, company),
		fmt.Sprintf("%s %s founder background", person, company),
	}, p.query)
}

// SearchCompany implements Provider.
func (p *JinaProvider) SearchCompany(ctx context.Context, company string) (model.ProviderResponse, error) {
	return p.run(ctx, []string{
		fmt.Sprintf("%s startup", company),
		fmt.Sprintf("%s funding news", company),
	}, p.query)
}

func (p *JinaProvider) query(ctx context.Context, q string) ([]model.SearchResult, error) {
	resp, err := p.client.Search(ctx, q, jina.WithCount(p.perQuery))
	if err != nil {
		return nil, err
	}
	out := make([]model.SearchResult, 0, len(resp.Data))
	for _, r := range resp.Data {
		out = append(out, model.SearchResult{
			Title:   r.Title,
			URL:     r.URL,
			Snippet: r.Description,
			Content: r.Content,
		})
	}
	return out, nil
}
