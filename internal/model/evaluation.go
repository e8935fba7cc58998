package model

// CriterionScore is one scored criterion of an evaluation. Score is in [0, 10].
type CriterionScore struct {
	Criterion     string  `json:"criterion"`
	Score         float64 `json:"score"`
	Justification string  `json:"justification"`
}

// EvaluationResult is produced once per evaluation call.
type EvaluationResult struct {
	Strategy    string           `json:"strategy"`
	Summary     string           `json:"summary"`
	Scores      []CriterionScore `json:"scores"`
	Suggestions []string         `json:"suggestions"`
	Notes       *string          `json:"notes,omitempty"`
}

// AverageScore returns the mean criterion score, or 0 when there are none.
func (e EvaluationResult) AverageScore() float64 {
	if len(e.Scores) == 0 {
		return 0
	}
	var sum float64
	for _, s := range e.Scores {
		sum += s.Score
	}
	return sum / float64(len(e.Scores))
}
