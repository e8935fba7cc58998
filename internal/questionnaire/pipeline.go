// Package questionnaire generates the founders checklist for a company
// from its analysis reports.
package questionnaire

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/predator4hack/ai-shark-sub001/internal/company"
	"github.com/predator4hack/ai-shark-sub001/internal/convert"
	"github.com/predator4hack/ai-shark-sub001/internal/llm"
	"github.com/predator4hack/ai-shark-sub001/internal/model"
	"github.com/predator4hack/ai-shark-sub001/internal/prompt"
	"github.com/predator4hack/ai-shark-sub001/internal/resilience"
)

// Output formats.
const (
	FormatMarkdown = "markdown"
	FormatDocx     = "docx"
	FormatBoth     = "both"
)

// Metadata keys set on every result that reaches validation.
const (
	MetaValidationPassed = "validation_passed"
	MetaValidationIssues = "validation_issues"
)

// Pipeline runs load, prompt, generate, validate, and persist for one
// company at a time. It is safe for concurrent use across companies.
type Pipeline struct {
	ws        company.Workspace
	completer llm.Completer
	prompts   *prompt.Store
	retry     resilience.RetryConfig
	converter convert.Converter
	format    string
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithRetry sets the generation retry policy.
func WithRetry(cfg resilience.RetryConfig) Option {
	return func(p *Pipeline) { p.retry = cfg }
}

// WithMaxAttempts overrides the number of generation attempts.
func WithMaxAttempts(n int) Option {
	return func(p *Pipeline) {
		if n > 0 {
			p.retry.MaxAttempts = n
		}
	}
}

// WithFormat selects markdown, docx, or both. Markdown is always written;
// docx adds a converted twin.
func WithFormat(format string) Option {
	return func(p *Pipeline) { p.format = format }
}

// WithConverter sets the docx converter.
func WithConverter(c convert.Converter) Option {
	return func(p *Pipeline) { p.converter = c }
}

// New creates a Pipeline writing into ws.
func New(ws company.Workspace, completer llm.Completer, prompts *prompt.Store, opts ...Option) *Pipeline {
	p := &Pipeline{
		ws:        ws,
		completer: completer,
		prompts:   prompts,
		retry:     resilience.DefaultRetryConfig(),
		format:    FormatMarkdown,
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Process generates the questionnaire for companyName. The returned result
// is never nil. A non-nil error is returned only for structural failures
// (missing reports, bad templates, unwritable output); generation that
// fails after all retries yields Success=false with Error set.
func (p *Pipeline) Process(ctx context.Context, companyName string) (*model.QuestionnaireResult, error) {
	start := time.Now()
	res := model.NewQuestionnaireResult(companyName)
	log := zap.L().With(zap.String("company", companyName))

	fail := func(err error) (*model.QuestionnaireResult, error) {
		res.Error = err.Error()
		res.ProcessingTime = time.Since(start)
		if merr := p.ws.MarkStep(companyName, "questionnaire", model.StepFailed, err.Error()); merr != nil {
			log.Warn("questionnaire: metadata update failed", zap.Error(merr))
		}
		return res, err
	}

	log.Info("questionnaire: loading reports", zap.String("stage", "load"))
	dir, err := p.ws.Path(companyName, company.AnalysisDir)
	if err != nil {
		return fail(err)
	}
	coll, err := LoadReports(dir, companyName)
	if err != nil {
		return fail(err)
	}
	types := usableTypes(coll)
	res.Metadata["reports"] = types
	res.Metadata["report_count"] = len(types)
	res.Metadata["total_words"] = coll.TotalWords()

	log.Info("questionnaire: building prompt", zap.String("stage", "prompt"), zap.Strings("reports", types))
	system, user, err := p.prompts.Render(prompt.Questionnaire, BuildParams(coll))
	if err != nil {
		return fail(err)
	}

	log.Info("questionnaire: generating", zap.String("stage", "generate"), zap.Int("max_attempts", p.retry.MaxAttempts))
	content, err := p.generate(ctx, system, user)
	if err != nil {
		res.Error = err.Error()
		res.ProcessingTime = time.Since(start)
		log.Error("questionnaire: generation failed",
			zap.String("error_kind", resilience.Kind(err)),
			zap.Error(err),
		)
		if merr := p.ws.MarkStep(companyName, "questionnaire", model.StepFailed, err.Error()); merr != nil {
			log.Warn("questionnaire: metadata update failed", zap.Error(merr))
		}
		return res, nil
	}
	res.Content = content

	issues := Validate(content)
	res.Metadata[MetaValidationPassed] = len(issues) == 0
	res.Metadata[MetaValidationIssues] = issues
	if len(issues) > 0 {
		log.Warn("questionnaire: validation failed, saving anyway",
			zap.String("stage", "validate"),
			zap.Strings("issues", issues),
		)
	}

	res.ProcessingTime = time.Since(start)
	files, err := p.persist(ctx, companyName, content, types, res.ProcessingTime)
	if err != nil {
		return fail(err)
	}
	res.OutputFiles = files
	res.Success = true
	res.ProcessingTime = time.Since(start)

	if err := p.ws.MarkStep(companyName, "questionnaire", model.StepCompleted,
		fmt.Sprintf("%d reports, %d chars", len(types), len(content))); err != nil {
		log.Warn("questionnaire: metadata update failed", zap.Error(err))
	}
	log.Info("questionnaire: done",
		zap.Strings("files", files),
		zap.Duration("elapsed", res.ProcessingTime),
	)
	return res, nil
}

func (p *Pipeline) generate(ctx context.Context, system, user string) (string, error) {
	policy := p.retry
	if policy.Name == "" {
		policy.Name = "questionnaire.generate"
	}
	return resilience.DoVal(ctx, policy, func(ctx context.Context) (string, error) {
		resp, err := p.completer.Complete(ctx, llm.Request{
			System:    system,
			Prompt:    user,
			Operation: "questionnaire",
		})
		if err != nil {
			return "", err
		}
		text := strings.TrimSpace(resp.Text)
		if text == "" {
			return "", resilience.NewTransientError(llm.ErrEmptyResponse, 0)
		}
		return text, nil
	})
}

func (p *Pipeline) persist(ctx context.Context, companyName, content string, types []string, elapsed time.Duration) ([]string, error) {
	if _, err := p.ws.Ensure(companyName); err != nil {
		return nil, err
	}
	mdPath, err := p.ws.Path(companyName, company.ChecklistFile)
	if err != nil {
		return nil, err
	}

	doc := Header(companyName, time.Now().UTC(), elapsed, types) + content + "\n"
	if err := os.WriteFile(mdPath, []byte(doc), 0o644); err != nil { //nolint:gosec
		return nil, eris.Wrapf(err, "questionnaire: write %s", mdPath)
	}
	files := []string{mdPath}

	if p.format == FormatDocx || p.format == FormatBoth {
		if p.converter == nil {
			return nil, resilience.NewFatalError(eris.New("questionnaire: docx output requested without a converter"), 0)
		}
		docxPath := convert.Twin(mdPath, ".docx")
		if err := p.converter.Convert(ctx, mdPath, docxPath); err != nil {
			return nil, err
		}
		files = append(files, docxPath)
	}
	return files, nil
}

// Header renders the metadata block written above the generated content.
func Header(companyName string, at time.Time, elapsed time.Duration, reportTypes []string) string {
	names := make([]string, len(reportTypes))
	for i, t := range reportTypes {
		names[i] = DisplayName(t)
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "# Founders Checklist: %s\n\n", companyName)
	fmt.Fprintf(&sb, "> Generated: %s\n", at.Format(time.RFC3339))
	fmt.Fprintf(&sb, "> Processing time: %.2fs\n", elapsed.Seconds())
	fmt.Fprintf(&sb, "> Source reports: %s\n\n---\n\n", strings.Join(names, ", "))
	return sb.String()
}

// DisplayName turns a report type tag such as "market_analysis" into
// "Market Analysis".
func DisplayName(reportType string) string {
	s := strings.NewReplacer("_", " ", "-", " ").Replace(reportType)
	return cases.Title(language.English).String(strings.Join(strings.Fields(s), " "))
}

func usableTypes(coll *model.AnalysisReportCollection) []string {
	valid := coll.Valid()
	var out []string
	for _, t := range coll.Types() {
		if r, ok := valid[t]; ok && !r.IsSummary() {
			out = append(out, t)
		}
	}
	return out
}
