// Package synth turns raw research material into structured JSON by running
// it through the completion service window by window and merging the
// per-window answers.
package synth

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/predator4hack/ai-shark-sub001/internal/document"
	"github.com/predator4hack/ai-shark-sub001/internal/llm"
	"github.com/predator4hack/ai-shark-sub001/internal/model"
	"github.com/predator4hack/ai-shark-sub001/internal/prompt"
	"github.com/predator4hack/ai-shark-sub001/internal/resilience"
)

// Defaults for the synthesizer.
const (
	DefaultWindowSize     = 1000
	DefaultMaxPromptChars = 12000
	excerptChars          = 200
)

// Request describes one analysis. Template defaults to prompt.Analyze.
// Params are passed to the template in addition to company and content.
// Images are attached to the first window only.
type Request struct {
	Template string
	Company  string
	Content  string
	Params   map[string]string
	Images   []llm.Image
}

// Synthesizer runs windowed analyses.
type Synthesizer struct {
	completer      llm.Completer
	prompts        *prompt.Store
	chunker        *document.Chunker
	policy         resilience.RetryConfig
	maxPromptChars int
}

// Option configures a Synthesizer.
type Option func(*Synthesizer)

// WithWindow sets the window size and overlap in characters.
func WithWindow(size, overlap int) Option {
	return func(s *Synthesizer) {
		s.chunker = document.NewChunker(document.WithChunkSize(size), document.WithOverlap(overlap))
	}
}

// WithRetry sets the retry policy for each window's completion.
func WithRetry(cfg resilience.RetryConfig) Option {
	return func(s *Synthesizer) { s.policy = cfg }
}

// WithMaxPromptChars bounds the material built from search results.
func WithMaxPromptChars(n int) Option {
	return func(s *Synthesizer) {
		if n > 0 {
			s.maxPromptChars = n
		}
	}
}

// New creates a Synthesizer with 1000-character windows, no overlap, and a
// 3-attempt retry policy with a 2s base backoff.
func New(completer llm.Completer, prompts *prompt.Store, opts ...Option) *Synthesizer {
	s := &Synthesizer{
		completer:      completer,
		prompts:        prompts,
		chunker:        document.NewChunker(document.WithChunkSize(DefaultWindowSize), document.WithOverlap(0)),
		policy:         resilience.DefaultRetryConfig(),
		maxPromptChars: DefaultMaxPromptChars,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// AnalyzeWindows analyzes each window of req.Content and returns one Result
// per window, in order. A window whose call or parse still fails after all
// retries yields an error record instead of aborting the others. A fatal
// template error is returned directly.
func (s *Synthesizer) AnalyzeWindows(ctx context.Context, req Request) ([]Result, error) {
	tmpl := req.Template
	if tmpl == "" {
		tmpl = prompt.Analyze
	}
	chunks := s.chunker.ChunkText(req.Content, map[string]any{"company": req.Company})
	log := zap.L().With(zap.String("company", req.Company), zap.String("template", tmpl))
	log.Info("synth: analyzing", zap.Int("windows", len(chunks)), zap.Int("chars", utf8.RuneCountInString(req.Content)))

	results := make([]Result, 0, len(chunks))
	for _, ch := range chunks {
		params := make(map[string]string, len(req.Params)+2)
		for k, v := range req.Params {
			params[k] = v
		}
		params["company"] = req.Company
		params["content"] = ch.Text

		system, user, err := s.prompts.Render(tmpl, params)
		if err != nil {
			return nil, err
		}

		var images []llm.Image
		if ch.Index == 0 {
			images = req.Images
		}

		start := time.Now()
		var out Result
		_, err = llm.CompleteJSON(ctx, s.completer, s.policy, llm.Request{
			System:    system,
			Prompt:    user,
			Images:    images,
			Operation: "synth." + tmpl,
		}, &out)
		if err != nil {
			log.Warn("synth: window failed",
				zap.Int("window", ch.Index),
				zap.String("error_kind", resilience.Kind(err)),
				zap.Error(err),
			)
			results = append(results, Result{
				KeyError:      err.Error(),
				KeyRawExcerpt: Excerpt(ch.Text, excerptChars),
			})
			continue
		}
		if out == nil {
			out = Result{}
		}
		log.Debug("synth: window done", zap.Int("window", ch.Index), zap.Duration("elapsed", time.Since(start)))
		results = append(results, out)
	}
	return results, nil
}

// Analyze analyzes req.Content window by window and merges the results.
// Callers must check IsError on the returned Result.
func (s *Synthesizer) Analyze(ctx context.Context, req Request) (Result, error) {
	windows, err := s.AnalyzeWindows(ctx, req)
	if err != nil {
		return nil, err
	}
	return Merge(windows), nil
}

// AnalyzeSearch builds bounded material from provider responses and
// analyzes it.
func (s *Synthesizer) AnalyzeSearch(ctx context.Context, req Request, responses []model.ProviderResponse) (Result, error) {
	req.Content = BuildContent(responses, s.maxPromptChars)
	return s.Analyze(ctx, req)
}

// BuildContent renders provider responses as plain text, one block per
// provider, truncated to maxChars characters.
func BuildContent(responses []model.ProviderResponse, maxChars int) string {
	var sb strings.Builder
	for _, resp := range responses {
		snippets := resp.Snippets()
		if len(snippets) == 0 {
			continue
		}
		sb.WriteString("Source: ")
		sb.WriteString(resp.Source)
		sb.WriteString("\n")
		for _, s := range snippets {
			sb.WriteString("- ")
			sb.WriteString(s)
			sb.WriteString("\n")
		}
		sb.WriteString("\n")
	}
	return Excerpt(strings.TrimSpace(sb.String()), maxChars)
}

// Excerpt returns at most n characters of s, never splitting a character.
func Excerpt(s string, n int) string {
	if n <= 0 || utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n])
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
