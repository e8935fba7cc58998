package questionnaire

import (
	"strings"
	"unicode/utf8"
)

// MinContentChars is the shortest questionnaire that passes validation.
const MinContentChars = 200

var (
	questionTokens  = []string{"?", "what", "how", "why", "when", "which", "who", "describe", "explain"}
	structureTokens = []string{"#", "\n- ", "\n* ", "1.", "\n|"}
)

// Validate checks the shape of generated content and returns the problems
// found. An empty slice means the content passed.
func Validate(content string) []string {
	var issues []string
	if n := utf8.RuneCountInString(strings.TrimSpace(content)); n < MinContentChars {
		issues = append(issues, "content shorter than 200 characters")
	}
	lower := strings.ToLower(content)
	if !containsAny(lower, questionTokens) {
		issues = append(issues, "no question indicators")
	}
	if !containsAny("\n"+content, structureTokens) {
		issues = append(issues, "no headings or list markers")
	}
	return issues
}

func containsAny(s string, tokens []string) bool {
	for _, t := range tokens {
		if strings.Contains(s, t) {
			return true
		}
	}
	return false
}
