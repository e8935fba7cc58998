// Package cost estimates and tallies USD spend for completion and search
// calls.
package cost

import (
	"regexp"
	"slices"
	"sync"

	"github.com/predator4hack/ai-shark-sub001/internal/config"
)

// Rates holds per-provider pricing configuration.
type Rates struct {
	Anthropic  map[string]ModelRate
	Perplexity PerplexityRate
}

// ModelRate is USD per million tokens.
type ModelRate struct {
	Input  float64
	Output float64
}

// PerplexityRate holds Perplexity pricing.
type PerplexityRate struct {
	PerQuery float64
}

// Calculator prices API usage and keeps a running tally per operation.
// It is safe for concurrent use.
type Calculator struct {
	rates Rates

	mu    sync.Mutex
	spent map[string]float64
	calls map[string]int
}

// NewCalculator creates a Calculator with the given rates.
func NewCalculator(rates Rates) *Calculator {
	return &Calculator{
		rates: rates,
		spent: make(map[string]float64),
		calls: make(map[string]int),
	}
}

// FromConfig builds a Calculator from DefaultRates overlaid with any
// configured pricing. A configured model replaces the default entry.
func FromConfig(p config.PricingConfig) *Calculator {
	rates := DefaultRates()
	for model, mp := range p.Anthropic {
		rates.Anthropic[model] = ModelRate{Input: mp.Input, Output: mp.Output}
	}
	if p.Perplexity.PerQuery > 0 {
		rates.Perplexity.PerQuery = p.Perplexity.PerQuery
	}
	return NewCalculator(rates)
}

var dateSuffix = regexp.MustCompile(`-\d{8}$`)

// rate finds pricing for model. A dated snapshot id and its undated alias
// share a rate.
func (c *Calculator) rate(model string) (ModelRate, bool) {
	if r, ok := c.rates.Anthropic[model]; ok {
		return r, true
	}
	base := dateSuffix.ReplaceAllString(model, "")
	for name, r := range c.rates.Anthropic {
		if dateSuffix.ReplaceAllString(name, "") == base {
			return r, true
		}
	}
	return ModelRate{}, false
}

// Claude computes the cost for a Claude API call. Unknown models cost 0.
func (c *Calculator) Claude(model string, input, output int64) float64 {
	r, ok := c.rate(model)
	if !ok {
		return 0
	}
	return float64(input)/1e6*r.Input + float64(output)/1e6*r.Output
}

// PerplexityQuery returns the flat cost per Perplexity query.
func (c *Calculator) PerplexityQuery() float64 {
	return c.rates.Perplexity.PerQuery
}

// Add records usd against operation.
func (c *Calculator) Add(operation string, usd float64) {
	if operation == "" {
		operation = "other"
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.spent[operation] += usd
	c.calls[operation]++
}

// Line is the tally for one operation.
type Line struct {
	Operation string  `json:"operation"`
	Calls     int     `json:"calls"`
	USD       float64 `json:"usd"`
}

// Summary returns the tally sorted by operation name, and the total.
func (c *Calculator) Summary() ([]Line, float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	lines := make([]Line, 0, len(c.spent))
	var total float64
	for op, usd := range c.spent {
		lines = append(lines, Line{Operation: op, Calls: c.calls[op], USD: usd})
		total += usd
	}
	slices.SortFunc(lines, func(a, b Line) int {
		switch {
		case a.Operation < b.Operation:
			return -1
		case a.Operation > b.Operation:
			return 1
		}
		return 0
	})
	return lines, total
}

// DefaultRates returns the default pricing rates.
func DefaultRates() Rates {
	return Rates{
		Anthropic: map[string]ModelRate{
			"claude-haiku-4-5-20251001":  {Input: 1.00, Output: 5.00},
			"claude-sonnet-4-5-20250929": {Input: 3.00, Output: 15.00},
			"claude-opus-4-1-20250805":   {Input: 15.00, Output: 75.00},
		},
		Perplexity: PerplexityRate{PerQuery: 0.005},
	}
}
