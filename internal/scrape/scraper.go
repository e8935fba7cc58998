// Package scrape fetches full page content for search-result URLs through a
// chain of reader services.
package scrape

import (
	"context"
	"strings"
)

// Page is the readable content of one fetched URL.
type Page struct {
	URL        string `json:"url"`
	Title      string `json:"title"`
	Markdown   string `json:"markdown"`
	StatusCode int    `json:"status_code"`
}

// Result holds a scraped page with the scraper that produced it.
type Result struct {
	Page   Page
	Source string
}

// Scraper fetches a single URL and returns its content.
type Scraper interface {
	Scrape(ctx context.Context, url string) (*Result, error)
	Name() string
	Supports(url string) bool
}

// Pages shorter than this carry no usable company text.
const minPageChars = 100

// Short pages containing one of these are bot walls or login prompts.
var challengeSignatures = []string{
	"checking your browser",
	"enable javascript",
	"please enable cookies",
	"access denied",
	"403 forbidden",
	"just a moment",
	"cloudflare",
	"attention required",
	"sign in to view",
	"join linkedin",
}

// unreadable reports whether fetched content is an error page, too short,
// or a challenge page. A zero status means the reader did not report one.
func unreadable(content string, status int) bool {
	if status != 0 && status != 200 {
		return true
	}
	content = strings.TrimSpace(content)
	if len(content) < minPageChars {
		return true
	}
	if len(content) >= 1000 {
		return false
	}
	lower := strings.ToLower(content)
	for _, sig := range challengeSignatures {
		if strings.Contains(lower, sig) {
			return true
		}
	}
	return false
}
