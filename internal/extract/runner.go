package extract

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/predator4hack/ai-shark-sub001/internal/company"
	"github.com/predator4hack/ai-shark-sub001/internal/model"
)

// StepPublicData is the metadata.json processing key for this run.
const StepPublicData = "public_data"

// Section is one extractor's rendered output.
type Section struct {
	Name  string
	Title string
	Body  string
	Err   error
}

// Report is the outcome of running a registry for one company.
type Report struct {
	Company  string
	Sections []Section
	Skipped  []string
}

// Failed returns the number of sections whose extractor failed.
func (r *Report) Failed() int {
	n := 0
	for _, s := range r.Sections {
		if s.Err != nil {
			n++
		}
	}
	return n
}

// Run executes every extractor whose ShouldRun is true, sequentially and in
// registry order. Extractor failures are kept on their section.
func (r *Registry) Run(ctx context.Context, meta model.CompanyMetadata) *Report {
	log := zap.L().With(zap.String("company", meta.Company), zap.String("stage", "public_data"))
	rep := &Report{Company: meta.Company}

	for _, e := range r.extractors {
		if !e.ShouldRun(meta) {
			log.Info("extract: skipped", zap.String("extractor", e.Name()))
			rep.Skipped = append(rep.Skipped, e.Name())
			continue
		}
		start := time.Now()
		body, err := e.Extract(ctx, meta)
		if err != nil {
			log.Warn("extract: failed", zap.String("extractor", e.Name()), zap.Error(err))
		} else {
			log.Info("extract: done", zap.String("extractor", e.Name()), zap.Duration("elapsed", time.Since(start)))
		}
		rep.Sections = append(rep.Sections, Section{
			Name:  e.Name(),
			Title: e.SectionTitle(),
			Body:  body,
			Err:   err,
		})
	}
	return rep
}

// Markdown renders the report as public_data.md.
func (r *Report) Markdown() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "# Public Data: %s\n", r.Company)
	for _, s := range r.Sections {
		fmt.Fprintf(&sb, "\n## %s\n\n", s.Title)
		if s.Err != nil {
			sb.WriteString(failureNote(s.Err))
			continue
		}
		sb.WriteString(strings.TrimRight(s.Body, "\n"))
		sb.WriteString("\n")
	}
	return sb.String()
}

// Publish runs the registry for companyName, writes public_data.md, and
// records the step in metadata.json. Founders given here are merged into
// the stored record before the run.
func Publish(ctx context.Context, reg *Registry, ws company.Workspace, companyName string, founders []model.Founder) (*Report, string, error) {
	meta, err := ws.UpdateMetadata(companyName, model.CompanyMetadata{Company: companyName, Founders: founders})
	if err != nil {
		return nil, "", err
	}

	rep := reg.Run(ctx, meta)

	path, err := ws.Path(companyName, company.PublicDataFile)
	if err != nil {
		return nil, "", err
	}
	if err := os.WriteFile(path, []byte(rep.Markdown()), 0o644); err != nil { //nolint:gosec
		return nil, "", eris.Wrapf(err, "extract: write %s", path)
	}

	status := model.StepCompleted
	if len(rep.Sections) > 0 && rep.Failed() == len(rep.Sections) {
		status = model.StepFailed
	}
	detail := fmt.Sprintf("%d sections, %d failed, %d skipped", len(rep.Sections), rep.Failed(), len(rep.Skipped))
	if err := ws.MarkStep(companyName, StepPublicData, status, detail); err != nil {
		return nil, "", err
	}
	return rep, path, nil
}
