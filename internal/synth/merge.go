package synth

import (
	"encoding/json"
	"fmt"
	"slices"
	"strconv"
)

// Merge unions per-window results into one. Error records are skipped; if
// every window failed the first error record is returned with
// KeyFailedWindows set. Scalar fields become a FieldUnion rendering; list
// fields are concatenated and de-duplicated in first-seen order; nested
// objects are treated as scalars in their JSON form. A field that is a list
// in any window is a list in the merge.
func Merge(results []Result) Result {
	var (
		ok     []Result
		failed []Result
	)
	for _, r := range results {
		if r.IsError() {
			failed = append(failed, r)
		} else {
			ok = append(ok, r)
		}
	}

	if len(ok) == 0 {
		if len(failed) == 0 {
			return Result{}
		}
		out := Result{}
		for k, v := range failed[0] {
			out[k] = v
		}
		out[KeyFailedWindows] = len(failed)
		return out
	}

	var keys []string
	seenKey := make(map[string]bool)
	isList := make(map[string]bool)
	for _, r := range ok {
		for _, k := range sortedKeys(r) {
			if !seenKey[k] {
				seenKey[k] = true
				keys = append(keys, k)
			}
			if _, list := r[k].([]any); list {
				isList[k] = true
			}
		}
	}

	out := make(Result, len(keys)+1)
	for _, k := range keys {
		if isList[k] {
			out[k] = mergeList(ok, k)
			continue
		}
		u := NewFieldUnion()
		for _, r := range ok {
			if v, present := r[k]; present {
				u.Add(scalarString(v))
			}
		}
		out[k] = u.String()
	}
	if len(failed) > 0 {
		out[KeyFailedWindows] = len(failed)
	}
	return out
}

func mergeList(results []Result, key string) []any {
	merged := []any{}
	seen := make(map[string]bool)
	add := func(v any) {
		if v == nil {
			return
		}
		if s, ok := v.(string); ok && placeholders[normalize(s)] {
			return
		}
		id := identity(v)
		if seen[id] {
			return
		}
		seen[id] = true
		merged = append(merged, v)
	}
	for _, r := range results {
		switch v := r[key].(type) {
		case []any:
			for _, item := range v {
				add(item)
			}
		case nil:
		default:
			add(v)
		}
	}
	return merged
}

// identity is the de-duplication key for a list element. Strings compare
// case-insensitively.
func identity(v any) string {
	if s, ok := v.(string); ok {
		return "s:" + normalize(s)
	}
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return "j:" + string(b)
}

func scalarString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprint(t)
		}
		return string(b)
	}
}

func sortedKeys(r Result) []string {
	keys := make([]string, 0, len(r))
	for k := range r {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
