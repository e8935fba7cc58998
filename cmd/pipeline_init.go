package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/predator4hack/ai-shark-sub001/internal/company"
	"github.com/predator4hack/ai-shark-sub001/internal/convert"
	"github.com/predator4hack/ai-shark-sub001/internal/cost"
	"github.com/predator4hack/ai-shark-sub001/internal/document"
	"github.com/predator4hack/ai-shark-sub001/internal/evaluate"
	"github.com/predator4hack/ai-shark-sub001/internal/extract"
	"github.com/predator4hack/ai-shark-sub001/internal/llm"
	"github.com/predator4hack/ai-shark-sub001/internal/model"
	"github.com/predator4hack/ai-shark-sub001/internal/ocr"
	"github.com/predator4hack/ai-shark-sub001/internal/prompt"
	"github.com/predator4hack/ai-shark-sub001/internal/questionnaire"
	"github.com/predator4hack/ai-shark-sub001/internal/resilience"
	"github.com/predator4hack/ai-shark-sub001/internal/scrape"
	"github.com/predator4hack/ai-shark-sub001/internal/search"
	"github.com/predator4hack/ai-shark-sub001/internal/store"
	"github.com/predator4hack/ai-shark-sub001/internal/synth"
	anthropicpkg "github.com/predator4hack/ai-shark-sub001/pkg/anthropic"
	"github.com/predator4hack/ai-shark-sub001/pkg/firecrawl"
	"github.com/predator4hack/ai-shark-sub001/pkg/google"
	"github.com/predator4hack/ai-shark-sub001/pkg/jina"
	"github.com/predator4hack/ai-shark-sub001/pkg/perplexity"
)

// pipelineEnv holds the initialized clients and stages shared by every
// command that touches a company workspace.
type pipelineEnv struct {
	Store     store.Store
	Workspace company.Workspace
	Prompts   *prompt.Store
	Completer llm.Completer
	Costs     *cost.Calculator
	Loader    *document.Loader
	Search    *search.Orchestrator
	Synth     *synth.Synthesizer
}

// Close logs the estimated spend and releases resources held by the
// pipeline environment.
func (pe *pipelineEnv) Close() {
	if pe.Costs != nil {
		lines, total := pe.Costs.Summary()
		for _, l := range lines {
			zap.L().Debug("cost: operation",
				zap.String("operation", l.Operation),
				zap.Int("calls", l.Calls),
				zap.Float64("usd", l.USD),
			)
		}
		if len(lines) > 0 {
			zap.L().Info("cost: estimated spend", zap.Float64("usd", total))
		}
	}
	if pe.Store != nil {
		_ = pe.Store.Close()
	}
}

// initPipeline validates cfg for mode, opens the run store, and builds the
// completion, search, and document stages. Callers should defer env.Close().
func initPipeline(ctx context.Context, mode string) (*pipelineEnv, error) {
	if err := cfg.Validate(mode); err != nil {
		return nil, err
	}

	prompts, err := prompt.Load(cfg.Prompts.Path)
	if err != nil {
		return nil, err
	}

	pdf, err := ocr.NewExtractor(cfg.OCR)
	if err != nil {
		return nil, err
	}

	st, err := store.Open(ctx, cfg.Store)
	if err != nil {
		return nil, err
	}

	costs := cost.FromConfig(cfg.Pricing)
	completer := llm.NewClient(anthropicpkg.NewClient(cfg.Anthropic.Key, anthropicpkg.WithTimeout(cfg.Anthropic.Timeout)), cfg.Anthropic, costs)
	policy := cfg.Retry.Policy()

	env := &pipelineEnv{
		Store:     st,
		Workspace: company.NewWorkspace(cfg.Paths.CompaniesDir),
		Prompts:   prompts,
		Completer: completer,
		Costs:     costs,
		Loader:    document.NewLoader(pdf),
		Search:    initSearch(costs, policy),
		Synth: synth.New(completer, prompts,
			synth.WithWindow(cfg.Synth.ChunkSize, cfg.Synth.Overlap),
			synth.WithRetry(policy),
			synth.WithMaxPromptChars(cfg.Synth.MaxPromptChars),
		),
	}

	zap.L().Debug("pipeline initialized",
		zap.String("mode", mode),
		zap.String("companies_dir", cfg.Paths.CompaniesDir),
		zap.Strings("providers", env.Search.Providers()),
	)
	return env, nil
}

// initSearch builds the configured providers that have credentials and the
// orchestrator that fans out to them. Scraping of top results is enabled
// when search.scrape_top is positive.
func initSearch(costs *cost.Calculator, policy resilience.RetryConfig) *search.Orchestrator {
	popts := []search.ProviderOption{
		search.WithResultsPerQuery(cfg.Search.ResultsPerQuery),
		search.WithRateLimit(cfg.Search.RatePerSec),
	}

	jinaClient := jina.NewClient(cfg.Jina.Key,
		jina.WithBaseURL(cfg.Jina.BaseURL),
		jina.WithSearchBaseURL(cfg.Jina.SearchBaseURL),
	)

	var providers []search.Provider
	for _, name := range cfg.Search.Providers {
		switch name {
		case "jina":
			if cfg.Jina.Key != "" {
				providers = append(providers, search.NewJinaProvider(jinaClient, popts...))
			}
		case "google":
			if cfg.Google.Key != "" && cfg.Google.CX != "" {
				gc := google.NewClient(cfg.Google.Key, cfg.Google.CX,
					google.WithBaseURL(cfg.Google.BaseURL),
					google.WithCountry(cfg.Google.Country),
				)
				providers = append(providers, search.NewGoogleProvider(gc, popts...))
			}
		case "perplexity":
			if cfg.Perplexity.Key != "" {
				pc := perplexity.NewClient(cfg.Perplexity.Key,
					perplexity.WithBaseURL(cfg.Perplexity.BaseURL),
					perplexity.WithModel(cfg.Perplexity.Model),
				)
				providers = append(providers, search.NewPerplexityProvider(pc, costs, popts...))
			}
		default:
			zap.L().Warn("unknown search provider in config", zap.String("provider", name))
		}
	}

	oopts := []search.OrchestratorOption{
		search.WithTimeout(time.Duration(cfg.Search.TimeoutSecs) * time.Second),
		search.WithRetry(policy),
		search.WithBreakers(resilience.NewServiceBreakers(cfg.Search.Breaker())),
	}
	if cfg.Search.ScrapeTop > 0 {
		// Jina reader first, Firecrawl as fallback.
		scrapers := []scrape.Scraper{scrape.NewJinaAdapter(jinaClient)}
		if cfg.Firecrawl.Key != "" {
			fc := firecrawl.NewClient(cfg.Firecrawl.Key, firecrawl.WithBaseURL(cfg.Firecrawl.BaseURL))
			scrapers = append(scrapers, scrape.NewFirecrawlAdapter(fc))
		}
		oopts = append(oopts, search.WithScraper(scrape.NewChain(scrape.NewURLFilter(nil, nil), scrapers...), cfg.Search.ScrapeTop))
	}

	return search.NewOrchestrator(providers, oopts...)
}

// questionnairePipeline builds the questionnaire stage from env and cfg.
// format overrides questionnaire.output_format when non-empty.
func (pe *pipelineEnv) questionnairePipeline(format string) *questionnaire.Pipeline {
	if format == "" {
		format = cfg.Questionnaire.OutputFormat
	}
	return questionnaire.New(pe.Workspace, pe.Completer, pe.Prompts,
		questionnaire.WithRetry(cfg.Retry.Policy()),
		questionnaire.WithMaxAttempts(cfg.Questionnaire.MaxAttempts),
		questionnaire.WithFormat(format),
		questionnaire.WithConverter(convert.NewPandoc(cfg.Convert.PandocPath)),
	)
}

// evaluator builds the evaluation stage from env and cfg.
func (pe *pipelineEnv) evaluator() *evaluate.Evaluator {
	return evaluate.NewEvaluator(evaluate.Deps{
		Completer: pe.Completer,
		Prompts:   pe.Prompts,
		Retry:     cfg.Retry.Policy(),
		MaxChars:  cfg.Synth.MaxPromptChars,
	}, pe.Workspace, pe.Loader)
}

// extractors builds the default public-data extractor registry.
func (pe *pipelineEnv) extractors() *extract.Registry {
	return extract.DefaultRegistry(extract.Deps{
		Search:   pe.Search,
		Analyzer: pe.Synth,
		Decks:    pe.Loader,
	})
}

// track records a run of command against companyName in the store.
func (pe *pipelineEnv) track(ctx context.Context, companyName, command string, fn func(ctx context.Context) error) error {
	err := store.Track(ctx, pe.Store, companyName, command, func(ctx context.Context, _ *model.Run) error {
		return fn(ctx)
	})
	if err != nil {
		return eris.Wrapf(err, "%s %s", command, companyName)
	}
	return nil
}
