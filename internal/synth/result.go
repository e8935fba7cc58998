package synth

import (
	"encoding/json"
	"fmt"

	"github.com/rotisserie/eris"
)

// Keys present on a window that could not be analyzed.
const (
	KeyError      = "error"
	KeyRawExcerpt = "raw_excerpt"
)

// KeyFailedWindows is set on a merged result when some windows failed.
const KeyFailedWindows = "failed_windows"

// Result is the structured output of one analyzed window, or of a merge.
type Result map[string]any

// IsError reports whether r is an error record.
func (r Result) IsError() bool {
	_, ok := r[KeyError]
	return ok
}

// String returns the field rendered as a string, or "" when absent.
func (r Result) String(key string) string {
	v, ok := r[key]
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

// Strings returns a list field as strings. Non-string elements are JSON
// encoded.
func (r Result) Strings(key string) []string {
	list, ok := r[key].([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(list))
	for _, v := range list {
		if s, ok := v.(string); ok {
			out = append(out, s)
			continue
		}
		b, _ := json.Marshal(v)
		out = append(out, string(b))
	}
	return out
}

// Decode converts r into v through its JSON form.
func (r Result) Decode(v any) error {
	b, err := json.Marshal(r)
	if err != nil {
		return eris.Wrap(err, "synth: encode result")
	}
	if err := json.Unmarshal(b, v); err != nil {
		return eris.Wrap(err, "synth: decode result")
	}
	return nil
}
