package evaluate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/predator4hack/ai-shark-sub001/internal/company"
	"github.com/predator4hack/ai-shark-sub001/internal/document"
	"github.com/predator4hack/ai-shark-sub001/internal/model"
	"github.com/predator4hack/ai-shark-sub001/internal/resilience"
)

// ErrNoQuestionnaire is returned when the company has no generated
// questionnaire to evaluate.
var ErrNoQuestionnaire = eris.New("evaluate: no questionnaire")

// ChecklistStem is the file stem looked up in the company directory when no
// checklist path is given.
const ChecklistStem = "checklist"

// Evaluator loads a company's questionnaire, picks a strategy, and writes
// evaluation.md and evaluation.json.
type Evaluator struct {
	deps   Deps
	ws     company.Workspace
	loader *document.Loader
}

// NewEvaluator creates an Evaluator.
func NewEvaluator(deps Deps, ws company.Workspace, loader *document.Loader) *Evaluator {
	return &Evaluator{deps: deps, ws: ws, loader: loader}
}

// Outcome is a finished evaluation and the files written for it.
type Outcome struct {
	Result *model.EvaluationResult
	Files  []string
}

// Run evaluates the questionnaire for companyName. checklistPath may be
// empty, in which case a checklist.{md,txt,docx,pdf} in the company
// directory is used if present.
func (e *Evaluator) Run(ctx context.Context, companyName, checklistPath string) (*Outcome, error) {
	log := zap.L().With(zap.String("company", companyName), zap.String("stage", "evaluate"))
	start := time.Now()

	qPath, err := e.ws.Path(companyName, company.ChecklistFile)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(qPath)
	if errors.Is(err, fs.ErrNotExist) || (err == nil && strings.TrimSpace(string(data)) == "") {
		return nil, resilience.NewFatalError(eris.Wrapf(ErrNoQuestionnaire, "evaluate: %s", qPath), 0)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "evaluate: read %s", qPath)
	}

	if checklistPath == "" {
		dir, err := e.ws.Dir(companyName)
		if err != nil {
			return nil, err
		}
		checklistPath = document.FindByStem(dir, ChecklistStem)
	}
	var checklist string
	if checklistPath != "" {
		checklist, err = e.loader.Load(ctx, checklistPath)
		if err != nil {
			return nil, err
		}
	}

	strategy := Select(e.deps, checklist)
	log.Info("evaluate: strategy selected",
		zap.String("strategy", strategy.Name()),
		zap.String("checklist", checklistPath),
	)

	res, err := strategy.Analyze(ctx, companyName, string(data))
	if err != nil {
		if merr := e.ws.MarkStep(companyName, "evaluation", model.StepFailed, err.Error()); merr != nil {
			log.Warn("evaluate: metadata update failed", zap.Error(merr))
		}
		return nil, err
	}

	files, err := e.write(companyName, res)
	if err != nil {
		return nil, err
	}
	if err := e.ws.MarkStep(companyName, "evaluation", model.StepCompleted,
		fmt.Sprintf("%s strategy, average %.1f", res.Strategy, res.AverageScore())); err != nil {
		log.Warn("evaluate: metadata update failed", zap.Error(err))
	}

	log.Info("evaluate: done",
		zap.Float64("average_score", res.AverageScore()),
		zap.Duration("elapsed", time.Since(start)),
	)
	return &Outcome{Result: res, Files: files}, nil
}

func (e *Evaluator) write(companyName string, res *model.EvaluationResult) ([]string, error) {
	mdPath, err := e.ws.Path(companyName, company.EvaluationMDFile)
	if err != nil {
		return nil, err
	}
	jsonPath, err := e.ws.Path(companyName, company.EvaluationJSON)
	if err != nil {
		return nil, err
	}

	if err := os.WriteFile(mdPath, []byte(RenderMarkdown(companyName, res)), 0o644); err != nil { //nolint:gosec
		return nil, eris.Wrapf(err, "evaluate: write %s", mdPath)
	}
	b, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		return nil, eris.Wrap(err, "evaluate: encode result")
	}
	if err := os.WriteFile(jsonPath, append(b, '\n'), 0o644); err != nil { //nolint:gosec
		return nil, eris.Wrapf(err, "evaluate: write %s", jsonPath)
	}
	return []string{mdPath, jsonPath}, nil
}

// RenderMarkdown formats an evaluation as a markdown report.
func RenderMarkdown(companyName string, res *model.EvaluationResult) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "# Evaluation: %s\n\n", companyName)
	fmt.Fprintf(&sb, "- Strategy: %s\n", res.Strategy)
	fmt.Fprintf(&sb, "- Average score: %.1f / 10\n\n", res.AverageScore())

	sb.WriteString("## Summary\n\n")
	sb.WriteString(orNone(res.Summary))
	sb.WriteString("\n\n## Scores\n\n")
	if len(res.Scores) == 0 {
		sb.WriteString("_None_\n")
	} else {
		sb.WriteString("| Criterion | Score | Justification |\n|---|---|---|\n")
		for _, s := range res.Scores {
			fmt.Fprintf(&sb, "| %s | %g | %s |\n", cell(s.Criterion), s.Score, cell(s.Justification))
		}
	}

	sb.WriteString("\n## Suggestions\n\n")
	if len(res.Suggestions) == 0 {
		sb.WriteString("_None_\n")
	}
	for _, s := range res.Suggestions {
		fmt.Fprintf(&sb, "- %s\n", s)
	}

	if res.Notes != nil {
		sb.WriteString("\n## Notes\n\n")
		sb.WriteString(*res.Notes)
		sb.WriteString("\n")
	}
	return sb.String()
}

func cell(s string) string {
	s = strings.ReplaceAll(s, "\n", " ")
	return strings.ReplaceAll(s, "|", `\|`)
}

func orNone(s string) string {
	if s == "" {
		return "_None_"
	}
	return s
}
