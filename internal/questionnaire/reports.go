package questionnaire

import (
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/predator4hack/ai-shark-sub001/internal/model"
	"github.com/predator4hack/ai-shark-sub001/internal/resilience"
)

// ErrAnalysisLoad is returned when a company's analysis reports are missing
// or none of them is usable.
var ErrAnalysisLoad = eris.New("questionnaire: analysis load failed")

// Prompt slots filled from the report collection.
const (
	SlotBusiness    = "business_analysis"
	SlotMarket      = "market_analysis"
	SlotFinancial   = "financial_analysis"
	SlotTeam        = "team_analysis"
	SlotCompetitive = "competitive_analysis"
	SlotAdditional  = "additional_analysis"
)

// Slots lists the five expected report slots in prompt order.
var Slots = []string{SlotBusiness, SlotMarket, SlotFinancial, SlotTeam, SlotCompetitive}

var reportExts = []string{".md", ".markdown", ".txt"}

// LoadReports reads every report file in dir. The file stem becomes the
// report type. The collection must hold at least one valid report that is
// not a summary.
func LoadReports(dir, company string) (*model.AnalysisReportCollection, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, resilience.NewFatalError(eris.Wrapf(errors.Join(ErrAnalysisLoad, err), "questionnaire: read %s", dir), 0)
	}

	coll := model.NewAnalysisReportCollection(company)
	for _, e := range entries {
		ext := strings.ToLower(filepath.Ext(e.Name()))
		if e.IsDir() || !slices.Contains(reportExts, ext) {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, e.Name()))
		if err != nil {
			return nil, resilience.NewFatalError(eris.Wrapf(errors.Join(ErrAnalysisLoad, err), "questionnaire: read %s", e.Name()), 0)
		}
		stem := strings.TrimSuffix(e.Name(), filepath.Ext(e.Name()))
		r := model.NewAnalysisReport(stem, string(data))
		if !r.IsValid() {
			zap.L().Warn("questionnaire: skipping short report",
				zap.String("company", company),
				zap.String("report", stem),
				zap.Int("chars", r.CharCount),
				zap.Int("words", r.WordCount),
			)
		}
		coll.Add(r)
	}

	usable := 0
	for _, r := range coll.Valid() {
		if !r.IsSummary() {
			usable++
		}
	}
	if usable == 0 {
		return nil, resilience.NewFatalError(eris.Wrapf(ErrAnalysisLoad, "no valid analysis reports in %s", dir), 0)
	}
	return coll, nil
}

// BuildParams maps valid, non-summary reports onto prompt parameters.
// Types containing "business" or "market" go to those slots; other types
// use their own tag with an "_analysis" suffix. Reports that match none of
// the five slots are appended to additional_analysis. Every slot is
// present, empty when no report filled it.
func BuildParams(coll *model.AnalysisReportCollection) map[string]string {
	params := map[string]string{"company": coll.Company, SlotAdditional: ""}
	for _, s := range Slots {
		params[s] = ""
	}

	valid := coll.Valid()
	var extra []string
	for _, typ := range coll.Types() {
		r, ok := valid[typ]
		if !ok || r.IsSummary() {
			continue
		}
		slot := slotFor(typ)
		content := strings.TrimSpace(r.Content)
		if !slices.Contains(Slots, slot) {
			extra = append(extra, "### "+DisplayName(typ)+"\n"+content)
			continue
		}
		if params[slot] != "" {
			params[slot] += "\n\n"
		}
		params[slot] += content
	}
	params[SlotAdditional] = strings.Join(extra, "\n\n")
	return params
}

func slotFor(reportType string) string {
	t := strings.ToLower(strings.TrimSpace(reportType))
	switch {
	case strings.Contains(t, "business"):
		return SlotBusiness
	case strings.Contains(t, "market"):
		return SlotMarket
	}
	t = strings.NewReplacer("-", "_", " ", "_").Replace(t)
	if strings.HasSuffix(t, "_analysis") {
		return t
	}
	return t + "_analysis"
}
