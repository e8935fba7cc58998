package questionnaire

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidate(t *testing.T) {
	long := strings.Repeat("x", 200)
	tests := []struct {
		name    string
		content string
		want    []string
	}{
		{"valid", "## Team\n1. What did you build before? " + long, nil},
		{"short", "## Team\nWhat?", []string{"content shorter than 200 characters"}},
		{"no questions", "## Team\n- " + long, []string{"no question indicators"}},
		{"no structure", "What " + long, []string{"no headings or list markers"}},
		{"empty", "", []string{"content shorter than 200 characters", "no question indicators", "no headings or list markers"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Validate(tt.content))
		})
	}
}

func TestValidate_ListAtStart(t *testing.T) {
	assert.Empty(t, Validate("- How do you price? "+strings.Repeat("y", 200)))
}
