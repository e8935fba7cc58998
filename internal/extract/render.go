package extract

import (
	"fmt"
	"slices"
	"strings"

	"github.com/rotisserie/eris"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/predator4hack/ai-shark-sub001/internal/synth"
)

// RenderResult formats a synthesizer result as a markdown list. Keys in
// order come first; any other keys follow alphabetically. An error record
// is returned as an error.
func RenderResult(res synth.Result, order []string) (string, error) {
	if res.IsError() {
		return "", eris.Errorf("extract: analysis failed: %s", res.String(synth.KeyError))
	}

	keys := make([]string, 0, len(res))
	for _, k := range order {
		if _, ok := res[k]; ok {
			keys = append(keys, k)
		}
	}
	var rest []string
	for k := range res {
		if !slices.Contains(order, k) && k != synth.KeyFailedWindows {
			rest = append(rest, k)
		}
	}
	slices.Sort(rest)
	keys = append(keys, rest...)

	caser := cases.Title(language.English)
	var sb strings.Builder
	for _, k := range keys {
		label := caser.String(strings.ReplaceAll(k, "_", " "))
		if list := res.Strings(k); list != nil {
			if len(list) == 0 {
				fmt.Fprintf(&sb, "- **%s**: none\n", label)
				continue
			}
			fmt.Fprintf(&sb, "- **%s**:\n", label)
			for _, item := range list {
				fmt.Fprintf(&sb, "  - %s\n", item)
			}
			continue
		}
		v := res.String(k)
		if v == "" {
			v = synth.Unknown
		}
		fmt.Fprintf(&sb, "- **%s**: %s\n", label, v)
	}
	return sb.String(), nil
}

func failureNote(err error) string {
	return fmt.Sprintf("_Not available: %s_\n", firstLine(err.Error()))
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
