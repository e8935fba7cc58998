package synth

import (
	"maps"
	"slices"
	"strings"
)

// Unknown is rendered for a field with no meaningful values.
const Unknown = "unknown"

var placeholders = map[string]bool{
	"":        true,
	"unknown": true,
	"n/a":     true,
	"na":      true,
	"none":    true,
	"null":    true,
	"-":       true,
}

// FieldUnion collects the distinct values one scalar field took across
// windows. Rendering is deterministic: sorted, de-duplicated, joined by ", ".
type FieldUnion struct {
	values map[string]struct{}
}

// NewFieldUnion returns a union holding vals.
func NewFieldUnion(vals ...string) *FieldUnion {
	u := &FieldUnion{values: make(map[string]struct{})}
	for _, v := range vals {
		u.Add(v)
	}
	return u
}

// Add records v unless it is blank or a placeholder such as "unknown".
func (u *FieldUnion) Add(v string) {
	v = strings.TrimSpace(v)
	if placeholders[strings.ToLower(v)] {
		return
	}
	if u.values == nil {
		u.values = make(map[string]struct{})
	}
	u.values[v] = struct{}{}
}

// Len returns the number of distinct meaningful values.
func (u *FieldUnion) Len() int { return len(u.values) }

// Values returns the distinct values in sorted order.
func (u *FieldUnion) Values() []string {
	return slices.Sorted(maps.Keys(u.values))
}

// String renders the union, or Unknown when it is empty.
func (u *FieldUnion) String() string {
	if len(u.values) == 0 {
		return Unknown
	}
	return strings.Join(u.Values(), ", ")
}
