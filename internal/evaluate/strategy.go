// Package evaluate scores a generated questionnaire, either against a
// ground-truth founder checklist or, when none is available, on general
// diligence heuristics.
package evaluate

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/predator4hack/ai-shark-sub001/internal/llm"
	"github.com/predator4hack/ai-shark-sub001/internal/model"
	"github.com/predator4hack/ai-shark-sub001/internal/prompt"
	"github.com/predator4hack/ai-shark-sub001/internal/resilience"
	"github.com/predator4hack/ai-shark-sub001/internal/synth"
)

// Strategy names.
const (
	StrategyChecklist = "checklist"
	StrategyExpert    = "expert"
)

// ExpertNote is recorded on every expert-strategy result.
const ExpertNote = "No founder checklist was available; scores reflect general diligence heuristics only."

const defaultMaxChars = 12000

// Strategy scores generated questions for one company.
type Strategy interface {
	Name() string
	Analyze(ctx context.Context, company, questions string) (*model.EvaluationResult, error)
}

// Deps are the collaborators shared by both strategies.
type Deps struct {
	Completer llm.Completer
	Prompts   *prompt.Store
	Retry     resilience.RetryConfig
	// MaxChars bounds the questionnaire and checklist text sent to the model.
	MaxChars int
}

func (d Deps) maxChars() int {
	if d.MaxChars > 0 {
		return d.MaxChars
	}
	return defaultMaxChars
}

// Select returns ChecklistStrategy when checklist has content, otherwise
// ExpertStrategy. The choice is fixed for the returned value's lifetime.
func Select(deps Deps, checklist string) Strategy {
	if strings.TrimSpace(checklist) != "" {
		return &ChecklistStrategy{deps: deps, checklist: checklist}
	}
	return &ExpertStrategy{deps: deps}
}

// ChecklistStrategy scores questions against a founder checklist.
type ChecklistStrategy struct {
	deps      Deps
	checklist string
}

// Name implements Strategy.
func (s *ChecklistStrategy) Name() string { return StrategyChecklist }

// Analyze implements Strategy.
func (s *ChecklistStrategy) Analyze(ctx context.Context, company, questions string) (*model.EvaluationResult, error) {
	n := s.deps.maxChars()
	return score(ctx, s.deps, StrategyChecklist, prompt.EvaluateChecklist, map[string]string{
		"company":   company,
		"checklist": synth.Excerpt(s.checklist, n),
		"questions": synth.Excerpt(questions, n),
	})
}

// ExpertStrategy scores questions on domain heuristics alone.
type ExpertStrategy struct {
	deps Deps
}

// Name implements Strategy.
func (s *ExpertStrategy) Name() string { return StrategyExpert }

// Analyze implements Strategy. The result always carries ExpertNote.
func (s *ExpertStrategy) Analyze(ctx context.Context, company, questions string) (*model.EvaluationResult, error) {
	res, err := score(ctx, s.deps, StrategyExpert, prompt.EvaluateExpert, map[string]string{
		"company":   company,
		"questions": synth.Excerpt(questions, s.deps.maxChars()),
	})
	if err != nil {
		return nil, err
	}
	note := ExpertNote
	res.Notes = &note
	return res, nil
}

type scoredReply struct {
	Summary string `json:"summary"`
	Scores  []struct {
		Criterion     string  `json:"criterion"`
		Score         float64 `json:"score"`
		Justification string  `json:"justification"`
	} `json:"scores"`
	Suggestions []string `json:"suggestions"`
}

func score(ctx context.Context, deps Deps, strategy, tmpl string, params map[string]string) (*model.EvaluationResult, error) {
	system, user, err := deps.Prompts.Render(tmpl, params)
	if err != nil {
		return nil, err
	}

	var reply scoredReply
	if _, err := llm.CompleteJSON(ctx, deps.Completer, deps.Retry, llm.Request{
		System:    system,
		Prompt:    user,
		Operation: "evaluate." + strategy,
	}, &reply); err != nil {
		return nil, eris.Wrapf(err, "evaluate: %s strategy", strategy)
	}

	res := &model.EvaluationResult{
		Strategy:    strategy,
		Summary:     strings.TrimSpace(reply.Summary),
		Scores:      make([]model.CriterionScore, 0, len(reply.Scores)),
		Suggestions: make([]string, 0, len(reply.Suggestions)),
	}
	for _, sc := range reply.Scores {
		res.Scores = append(res.Scores, model.CriterionScore{
			Criterion:     strings.TrimSpace(sc.Criterion),
			Score:         min(max(sc.Score, 0), 10),
			Justification: strings.TrimSpace(sc.Justification),
		})
	}
	for _, s := range reply.Suggestions {
		if s = strings.TrimSpace(s); s != "" {
			res.Suggestions = append(res.Suggestions, s)
		}
	}
	return res, nil
}
