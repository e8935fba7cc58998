package model

import "time"

// QuestionnaireResult is the outcome of one questionnaire-generation run.
// It starts out failed and is filled in as stages succeed.
type QuestionnaireResult struct {
	Company        string         `json:"company"`
	Success        bool           `json:"success"`
	Content        string         `json:"content,omitempty"`
	OutputFiles    []string       `json:"output_files,omitempty"`
	ProcessingTime time.Duration  `json:"processing_time"`
	Error          string         `json:"error,omitempty"`
	Metadata       map[string]any `json:"metadata"`
	GeneratedAt    time.Time      `json:"generated_at"`
}

// NewQuestionnaireResult returns an unsuccessful result for company.
func NewQuestionnaireResult(company string) *QuestionnaireResult {
	return &QuestionnaireResult{
		Company:     company,
		Metadata:    make(map[string]any),
		GeneratedAt: time.Now().UTC(),
	}
}
