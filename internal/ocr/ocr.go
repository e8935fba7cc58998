// Package ocr extracts text from pitch-deck and checklist PDFs.
package ocr

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/predator4hack/ai-shark-sub001/internal/config"
	"github.com/predator4hack/ai-shark-sub001/internal/resilience"
)

// minUsefulChars is the shortest pdftotext output treated as a real text layer.
// Image-only decks usually yield a few form feeds and page numbers.
const minUsefulChars = 200

// Extractor extracts text content from PDF files.
type Extractor interface {
	ExtractText(ctx context.Context, pdfPath string) (string, error)
}

// NewExtractor creates an Extractor based on config.
func NewExtractor(cfg config.OCRConfig) (Extractor, error) {
	switch cfg.Provider {
	case "local", "":
		return NewPdfToText(cfg.PdfToTextPath), nil
	case "mistral":
		if cfg.MistralKey == "" {
			return nil, resilience.NewFatalError(eris.New("ocr: mistral provider requires SHARK_OCR_MISTRAL_KEY"), 0)
		}
		return NewMistralOCR(cfg.MistralKey, cfg.MistralModel), nil
	case "auto":
		if cfg.MistralKey == "" {
			return NewPdfToText(cfg.PdfToTextPath), nil
		}
		return &Fallback{
			Primary:   NewPdfToText(cfg.PdfToTextPath),
			Secondary: NewMistralOCR(cfg.MistralKey, cfg.MistralModel),
		}, nil
	default:
		return nil, resilience.NewFatalError(eris.Errorf("ocr: unknown provider %q", cfg.Provider), 0)
	}
}

// Fallback runs Primary and switches to Secondary when Primary fails or
// returns too little text to be a real text layer.
type Fallback struct {
	Primary   Extractor
	Secondary Extractor
	MinChars  int
}

// ExtractText implements Extractor.
func (f *Fallback) ExtractText(ctx context.Context, pdfPath string) (string, error) {
	minChars := f.MinChars
	if minChars <= 0 {
		minChars = minUsefulChars
	}

	text, err := f.Primary.ExtractText(ctx, pdfPath)
	if err == nil && len(strings.TrimSpace(text)) >= minChars {
		return text, nil
	}

	zap.L().Info("ocr: primary extractor insufficient, using fallback",
		zap.String("path", pdfPath),
		zap.Int("chars", len(strings.TrimSpace(text))),
		zap.Error(err),
	)

	fallback, ferr := f.Secondary.ExtractText(ctx, pdfPath)
	if ferr != nil {
		if err == nil && strings.TrimSpace(text) != "" {
			return text, nil
		}
		return "", eris.Wrap(ferr, "ocr: fallback extraction")
	}
	return fallback, nil
}

// joinPages trims each page and joins the non-empty ones with a blank line,
// so every extractor returns decks in the same shape.
func joinPages(pages []string) string {
	kept := make([]string, 0, len(pages))
	for _, p := range pages {
		if p = strings.TrimSpace(p); p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, "\n\n")
}
