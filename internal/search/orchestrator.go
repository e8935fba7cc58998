package search

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/predator4hack/ai-shark-sub001/internal/model"
	"github.com/predator4hack/ai-shark-sub001/internal/resilience"
	"github.com/predator4hack/ai-shark-sub001/internal/scrape"
)

// DefaultTimeout bounds each provider task, retries included.
const DefaultTimeout = 30 * time.Second

// ErrNoProviderSucceeded is returned by RequireAny when every provider failed.
var ErrNoProviderSucceeded = eris.New("search: no provider succeeded")

// Outcome is the result of one provider task. Exactly one of Response and
// Err is meaningful; a failed outcome still carries Response.Source and
// Response.Error for reporting.
type Outcome struct {
	Provider string
	Response model.ProviderResponse
	Err      error
	Duration time.Duration
}

// Succeeded reports whether the provider returned without error.
func (o Outcome) Succeeded() bool { return o.Err == nil }

// Responses returns the responses of the successful outcomes, in the order
// the outcomes completed.
func Responses(outcomes []Outcome) []model.ProviderResponse {
	out := make([]model.ProviderResponse, 0, len(outcomes))
	for _, o := range outcomes {
		if o.Succeeded() {
			out = append(out, o.Response)
		}
	}
	return out
}

// RequireAny returns the successful responses, or ErrNoProviderSucceeded when
// there are none. A provider that succeeded with zero results still counts.
func RequireAny(outcomes []Outcome) ([]model.ProviderResponse, error) {
	responses := Responses(outcomes)
	if len(responses) > 0 {
		return responses, nil
	}
	msgs := make([]string, 0, len(outcomes))
	for _, o := range outcomes {
		msgs = append(msgs, o.Provider+": "+o.Err.Error())
	}
	return nil, eris.Wrapf(ErrNoProviderSucceeded, "search: %d providers failed [%s]", len(outcomes), strings.Join(msgs, "; "))
}

// OrchestratorOption configures an Orchestrator.
type OrchestratorOption func(*Orchestrator)

// WithTimeout sets the per-provider task timeout.
func WithTimeout(d time.Duration) OrchestratorOption {
	return func(o *Orchestrator) {
		if d > 0 {
			o.timeout = d
		}
	}
}

// WithRetry sets the retry policy applied to each provider call.
func WithRetry(cfg resilience.RetryConfig) OrchestratorOption {
	return func(o *Orchestrator) { o.retry = cfg }
}

// WithBreakers sets the per-provider circuit breakers.
func WithBreakers(b *resilience.ServiceBreakers) OrchestratorOption {
	return func(o *Orchestrator) {
		if b != nil {
			o.breakers = b
		}
	}
}

// WithScraper fetches full page content for the top n results of each
// successful provider response.
func WithScraper(chain *scrape.Chain, n int) OrchestratorOption {
	return func(o *Orchestrator) {
		o.scraper = chain
		o.scrapeTop = n
	}
}

// Orchestrator runs every configured provider concurrently and joins all
// of them, keeping each provider's value or error.
type Orchestrator struct {
	providers []Provider
	timeout   time.Duration
	retry     resilience.RetryConfig
	breakers  *resilience.ServiceBreakers
	scraper   *scrape.Chain
	scrapeTop int
}

// NewOrchestrator creates an Orchestrator over providers.
func NewOrchestrator(providers []Provider, opts ...OrchestratorOption) *Orchestrator {
	o := &Orchestrator{
		providers: providers,
		timeout:   DefaultTimeout,
		retry:     resilience.DefaultRetryConfig(),
		breakers:  resilience.NewServiceBreakers(resilience.DefaultCircuitBreakerConfig()),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Providers returns the configured provider names.
func (o *Orchestrator) Providers() []string {
	names := make([]string, len(o.providers))
	for i, p := range o.providers {
		names[i] = p.Name()
	}
	return names
}

// SearchAll runs SearchPersonInfo on every provider. The returned outcomes
// are in completion order and always have one entry per provider.
func (o *Orchestrator) SearchAll(ctx context.Context, company, person, role string) []Outcome {
	return o.fanOut(ctx, "person", func(ctx context.Context, p Provider) (model.ProviderResponse, error) {
		return p.SearchPersonInfo(ctx, company, person, role)
	}, zap.String("company", company), zap.String("person", person))
}

// SearchCompanyAll runs SearchCompany on every provider.
func (o *Orchestrator) SearchCompanyAll(ctx context.Context, company string) []Outcome {
	return o.fanOut(ctx, "company", func(ctx context.Context, p Provider) (model.ProviderResponse, error) {
		return p.SearchCompany(ctx, company)
	}, zap.String("company", company))
}

type providerCall func(ctx context.Context, p Provider) (model.ProviderResponse, error)

func (o *Orchestrator) fanOut(ctx context.Context, kind string, call providerCall, fields ...zap.Field) []Outcome {
	log := zap.L().With(fields...).With(zap.String("kind", kind))
	log.Info("search: fan-out started", zap.Strings("providers", o.Providers()))

	var (
		mu       sync.Mutex
		outcomes = make([]Outcome, 0, len(o.providers))
	)

	var g errgroup.Group
	g.SetLimit(max(1, len(o.providers)))

	for _, p := range o.providers {
		g.Go(func() error {
			start := time.Now()
			tctx, cancel := context.WithTimeout(ctx, o.timeout)
			defer cancel()

			resp, err := o.callProvider(tctx, p, call)
			if err == nil {
				o.enrich(tctx, &resp)
			}

			out := Outcome{Provider: p.Name(), Response: resp, Err: err, Duration: time.Since(start)}
			if err != nil {
				out.Response = model.ProviderResponse{Source: p.Name(), Error: err.Error()}
				log.Warn("search: provider failed",
					zap.String("provider", p.Name()),
					zap.String("error_kind", resilience.Kind(err)),
					zap.Int("status", resilience.StatusCode(err)),
					zap.Duration("duration", out.Duration),
					zap.Error(err),
				)
			} else {
				log.Info("search: provider done",
					zap.String("provider", p.Name()),
					zap.Int("results", len(resp.Results)),
					zap.Duration("duration", out.Duration),
				)
			}

			mu.Lock()
			outcomes = append(outcomes, out)
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	succeeded := 0
	for _, out := range outcomes {
		if out.Succeeded() {
			succeeded++
		}
	}
	log.Info("search: fan-out finished",
		zap.Int("succeeded", succeeded),
		zap.Int("failed", len(outcomes)-succeeded),
	)
	return outcomes
}

// callProvider runs call under the retry policy, with each attempt passing
// through the provider's circuit breaker. An open circuit is not retried.
func (o *Orchestrator) callProvider(ctx context.Context, p Provider, call providerCall) (model.ProviderResponse, error) {
	policy := o.retry
	policy.Name = "search." + p.Name()
	base := policy.ShouldRetry
	if base == nil {
		base = resilience.IsRetryable
	}
	policy.ShouldRetry = func(err error) bool {
		return !errors.Is(err, resilience.ErrCircuitOpen) && base(err)
	}
	if policy.OnRetry == nil {
		policy.OnRetry = resilience.RetryLogger(p.Name(), "search")
	}

	breaker := o.breakers.Get(p.Name())
	return resilience.DoVal(ctx, policy, func(ctx context.Context) (model.ProviderResponse, error) {
		return resilience.ExecuteVal(ctx, breaker, func(ctx context.Context) (model.ProviderResponse, error) {
			return call(ctx, p)
		})
	})
}

// enrich fills Content for the top results using the scrape chain.
func (o *Orchestrator) enrich(ctx context.Context, resp *model.ProviderResponse) {
	if o.scraper == nil || o.scrapeTop <= 0 {
		return
	}
	var urls []string
	for _, r := range resp.Results {
		if len(urls) >= o.scrapeTop {
			break
		}
		if r.URL != "" && r.Content == "" && o.scraper.Wants(r.URL) {
			urls = append(urls, r.URL)
		}
	}
	if len(urls) == 0 {
		return
	}
	pages := o.scraper.ScrapeAll(ctx, urls, len(urls))
	for i := range resp.Results {
		if page, ok := pages[resp.Results[i].URL]; ok && resp.Results[i].Content == "" {
			resp.Results[i].Content = page.Markdown
		}
	}
}
