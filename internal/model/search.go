// Package model defines the data shapes passed between pipeline stages.
package model

// SearchResult is a single hit from a search provider or a scrape step.
type SearchResult struct {
	Title    string         `json:"title"`
	URL      string         `json:"url"`
	Snippet  string         `json:"snippet"`
	Content  string         `json:"content,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// ProviderResponse holds the results one provider returned for one
// orchestration run, in query-variant order.
type ProviderResponse struct {
	Source  string         `json:"source"`
	Results []SearchResult `json:"results"`
	Error   string         `json:"error,omitempty"`
}

// Snippets concatenates the non-empty snippets (or content, when present)
// of every result, one per line, prefixed by the result title.
func (p ProviderResponse) Snippets() []string {
	out := make([]string, 0, len(p.Results))
	for _, r := range p.Results {
		text := r.Snippet
		if r.Content != "" {
			text = r.Content
		}
		if text == "" {
			continue
		}
		if r.Title != "" {
			text = r.Title + ": " + text
		}
		out = append(out, text)
	}
	return out
}
