// Package extract gathers public information about a company through a
// fixed set of extractors and renders it as public_data.md.
package extract

import (
	"context"

	"github.com/predator4hack/ai-shark-sub001/internal/model"
	"github.com/predator4hack/ai-shark-sub001/internal/search"
	"github.com/predator4hack/ai-shark-sub001/internal/synth"
)

// Extractor produces one section of the public-data report.
type Extractor interface {
	Name() string
	SectionTitle() string
	ShouldRun(meta model.CompanyMetadata) bool
	Extract(ctx context.Context, meta model.CompanyMetadata) (string, error)
}

// Searcher fans a query out to the search providers.
type Searcher interface {
	SearchAll(ctx context.Context, company, person, role string) []search.Outcome
	SearchCompanyAll(ctx context.Context, company string) []search.Outcome
}

// Analyzer turns material into structured results.
type Analyzer interface {
	Analyze(ctx context.Context, req synth.Request) (synth.Result, error)
	AnalyzeSearch(ctx context.Context, req synth.Request, responses []model.ProviderResponse) (synth.Result, error)
}

// DeckReader returns the text of a pitch deck file.
type DeckReader interface {
	Load(ctx context.Context, path string) (string, error)
}

// Deps are the collaborators the default extractors need.
type Deps struct {
	Search   Searcher
	Analyzer Analyzer
	Decks    DeckReader
}

// Registry is an ordered list of extractors.
type Registry struct {
	extractors []Extractor
}

// NewRegistry creates a registry holding exs in order.
func NewRegistry(exs ...Extractor) *Registry {
	return &Registry{extractors: exs}
}

// DefaultRegistry registers founders, company_news, and funding in that
// order.
func DefaultRegistry(deps Deps) *Registry {
	return NewRegistry(
		&FoundersExtractor{search: deps.Search, analyzer: deps.Analyzer},
		&NewsExtractor{search: deps.Search, analyzer: deps.Analyzer},
		&FundingExtractor{decks: deps.Decks, analyzer: deps.Analyzer},
	)
}

// Register appends e.
func (r *Registry) Register(e Extractor) {
	r.extractors = append(r.extractors, e)
}

// Extractors returns the registered extractors in order.
func (r *Registry) Extractors() []Extractor {
	return append([]Extractor(nil), r.extractors...)
}

// Names returns the registered extractor names in order.
func (r *Registry) Names() []string {
	names := make([]string, len(r.extractors))
	for i, e := range r.extractors {
		names[i] = e.Name()
	}
	return names
}

// Get returns the extractor named name.
func (r *Registry) Get(name string) (Extractor, bool) {
	for _, e := range r.extractors {
		if e.Name() == name {
			return e, true
		}
	}
	return nil, false
}
