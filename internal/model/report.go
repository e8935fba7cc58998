package model

import (
	"sort"
	"strings"
	"unicode/utf8"
)

// Validity thresholds for an analysis report.
const (
	MinReportChars = 50
	MinReportWords = 10
)

// AnalysisReport is one analysis artifact for a company. The type tag is the
// source filename stem (e.g. "business_analysis").
type AnalysisReport struct {
	Type      string `json:"type"`
	Content   string `json:"content"`
	CharCount int    `json:"char_count"`
	WordCount int    `json:"word_count"`
}

// NewAnalysisReport builds a report and derives its character and word counts.
func NewAnalysisReport(reportType, content string) AnalysisReport {
	return AnalysisReport{
		Type:      reportType,
		Content:   content,
		CharCount: utf8.RuneCountInString(content),
		WordCount: len(strings.Fields(content)),
	}
}

// IsValid reports whether the report has at least 50 characters and 10 words.
func (r AnalysisReport) IsValid() bool {
	return r.CharCount >= MinReportChars && r.WordCount >= MinReportWords
}

// IsSummary reports whether the report is a roll-up summary rather than a
// primary analysis.
func (r AnalysisReport) IsSummary() bool {
	return strings.Contains(strings.ToLower(r.Type), "summary")
}

// AnalysisReportCollection owns every report loaded for one company.
type AnalysisReportCollection struct {
	Company string                    `json:"company"`
	Reports map[string]AnalysisReport `json:"reports"`
}

// NewAnalysisReportCollection creates an empty collection for company.
func NewAnalysisReportCollection(company string) *AnalysisReportCollection {
	return &AnalysisReportCollection{
		Company: company,
		Reports: make(map[string]AnalysisReport),
	}
}

// Add stores r under its type tag, replacing any previous report of that type.
func (c *AnalysisReportCollection) Add(r AnalysisReport) {
	c.Reports[r.Type] = r
}

// Types returns the report type tags in sorted order.
func (c *AnalysisReportCollection) Types() []string {
	types := make([]string, 0, len(c.Reports))
	for t := range c.Reports {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

// TotalChars sums the character counts of all reports.
func (c *AnalysisReportCollection) TotalChars() int {
	var n int
	for _, r := range c.Reports {
		n += r.CharCount
	}
	return n
}

// TotalWords sums the word counts of all reports.
func (c *AnalysisReportCollection) TotalWords() int {
	var n int
	for _, r := range c.Reports {
		n += r.WordCount
	}
	return n
}

// Valid returns the subset of reports that satisfy IsValid.
func (c *AnalysisReportCollection) Valid() map[string]AnalysisReport {
	out := make(map[string]AnalysisReport, len(c.Reports))
	for t, r := range c.Reports {
		if r.IsValid() {
			out[t] = r
		}
	}
	return out
}
