package extract

import (
	"context"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/predator4hack/ai-shark-sub001/internal/model"
	"github.com/predator4hack/ai-shark-sub001/internal/prompt"
	"github.com/predator4hack/ai-shark-sub001/internal/search"
	"github.com/predator4hack/ai-shark-sub001/internal/synth"
)

// MetaDeckPath is the CompanyMetadata.Extra key holding the pitch deck path.
const MetaDeckPath = "deck_path"

var (
	founderFields = []string{"name", "current_role", "location", "education", "previous_companies", "achievements", "red_flags", "summary"}
	newsFields    = []string{"summary", "headlines", "partnerships", "controversies"}
	fundingFields = []string{"stage", "amount_raising", "valuation", "use_of_funds", "existing_investors", "summary"}
)

// FoundersExtractor profiles each known founder from web search results.
type FoundersExtractor struct {
	search   Searcher
	analyzer Analyzer
}

// Name implements Extractor.
func (e *FoundersExtractor) Name() string { return "founders" }

// SectionTitle implements Extractor.
func (e *FoundersExtractor) SectionTitle() string { return "Founders" }

// ShouldRun implements Extractor.
func (e *FoundersExtractor) ShouldRun(meta model.CompanyMetadata) bool {
	return len(meta.Founders) > 0
}

// Extract implements Extractor. A founder whose search or analysis fails
// gets an inline note; the extractor fails only when every founder did.
func (e *FoundersExtractor) Extract(ctx context.Context, meta model.CompanyMetadata) (string, error) {
	var (
		sb     strings.Builder
		failed int
		last   error
	)
	for i, f := range meta.Founders {
		if i > 0 {
			sb.WriteString("\n")
		}
		heading := f.Name
		if f.Role != "" {
			heading += " (" + f.Role + ")"
		}
		fmt.Fprintf(&sb, "### %s\n\n", heading)

		body, err := e.profile(ctx, meta.Company, f)
		if err != nil {
			failed++
			last = err
			zap.L().Warn("extract: founder profile failed",
				zap.String("company", meta.Company),
				zap.String("person", f.Name),
				zap.Error(err),
			)
			sb.WriteString(failureNote(err))
			continue
		}
		sb.WriteString(body)
	}
	if failed == len(meta.Founders) {
		return "", eris.Wrapf(last, "extract: all %d founder profiles failed", failed)
	}
	return sb.String(), nil
}

func (e *FoundersExtractor) profile(ctx context.Context, company string, f model.Founder) (string, error) {
	responses, err := search.RequireAny(e.search.SearchAll(ctx, company, f.Name, f.Role))
	if err != nil {
		return "", err
	}
	res, err := e.analyzer.AnalyzeSearch(ctx, synth.Request{
		Template: prompt.FounderProfile,
		Company:  company,
		Params:   map[string]string{"person": f.Name, "role": f.Role},
	}, responses)
	if err != nil {
		return "", err
	}
	return RenderResult(res, founderFields)
}

// NewsExtractor summarises recent coverage of the company.
type NewsExtractor struct {
	search   Searcher
	analyzer Analyzer
}

// Name implements Extractor.
func (e *NewsExtractor) Name() string { return "company_news" }

// SectionTitle implements Extractor.
func (e *NewsExtractor) SectionTitle() string { return "Company News" }

// ShouldRun implements Extractor.
func (e *NewsExtractor) ShouldRun(meta model.CompanyMetadata) bool {
	return strings.TrimSpace(meta.Company) != ""
}

// Extract implements Extractor.
func (e *NewsExtractor) Extract(ctx context.Context, meta model.CompanyMetadata) (string, error) {
	responses, err := search.RequireAny(e.search.SearchCompanyAll(ctx, meta.Company))
	if err != nil {
		return "", err
	}
	res, err := e.analyzer.AnalyzeSearch(ctx, synth.Request{
		Template: prompt.CompanyNews,
		Company:  meta.Company,
	}, responses)
	if err != nil {
		return "", err
	}
	return RenderResult(res, newsFields)
}

// FundingExtractor reads fundraising details from the pitch deck.
type FundingExtractor struct {
	decks    DeckReader
	analyzer Analyzer
}

// Name implements Extractor.
func (e *FundingExtractor) Name() string { return "funding" }

// SectionTitle implements Extractor.
func (e *FundingExtractor) SectionTitle() string { return "Funding" }

// ShouldRun implements Extractor. It needs a recorded deck path.
func (e *FundingExtractor) ShouldRun(meta model.CompanyMetadata) bool {
	return e.decks != nil && deckPath(meta) != ""
}

// Extract implements Extractor.
func (e *FundingExtractor) Extract(ctx context.Context, meta model.CompanyMetadata) (string, error) {
	text, err := e.decks.Load(ctx, deckPath(meta))
	if err != nil {
		return "", err
	}
	res, err := e.analyzer.Analyze(ctx, synth.Request{
		Template: prompt.Funding,
		Company:  meta.Company,
		Content:  text,
	})
	if err != nil {
		return "", err
	}
	return RenderResult(res, fundingFields)
}

func deckPath(meta model.CompanyMetadata) string {
	s, _ := meta.Extra[MetaDeckPath].(string)
	return strings.TrimSpace(s)
}
