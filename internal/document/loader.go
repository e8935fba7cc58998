package document

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/predator4hack/ai-shark-sub001/internal/ocr"
	"github.com/predator4hack/ai-shark-sub001/internal/resilience"
)

// SupportedExtensions lists the file types Load understands, in lookup order.
var SupportedExtensions = []string{".md", ".txt", ".docx", ".pdf"}

// Loader reads source files (.md, .txt, .docx, .pdf) as text.
type Loader struct {
	pdf ocr.Extractor
}

// NewLoader creates a Loader that extracts PDFs with pdf.
func NewLoader(pdf ocr.Extractor) *Loader {
	return &Loader{pdf: pdf}
}

// Load returns the text content of path. Unsupported extensions and missing
// files are fatal.
func (l *Loader) Load(ctx context.Context, path string) (string, error) {
	ext := strings.ToLower(filepath.Ext(path))

	switch ext {
	case ".md", ".markdown", ".txt":
		data, err := os.ReadFile(path)
		if err != nil {
			return "", resilience.NewFatalError(eris.Wrapf(err, "document: read %s", path), 0)
		}
		return string(data), nil
	case ".docx":
		data, err := os.ReadFile(path)
		if err != nil {
			return "", resilience.NewFatalError(eris.Wrapf(err, "document: read %s", path), 0)
		}
		return DocxText(data)
	case ".pdf":
		if _, err := os.Stat(path); err != nil {
			return "", resilience.NewFatalError(eris.Wrapf(err, "document: stat %s", path), 0)
		}
		if l.pdf == nil {
			return "", resilience.NewFatalError(eris.New("document: no PDF extractor configured"), 0)
		}
		text, err := l.pdf.ExtractText(ctx, path)
		if err != nil {
			return "", eris.Wrapf(err, "document: extract %s", path)
		}
		return text, nil
	default:
		return "", resilience.NewFatalError(eris.Errorf("document: unsupported file type %q", ext), 0)
	}
}

// FindByStem returns the first existing file dir/stem+ext, trying
// SupportedExtensions in order. It returns "" when none exists.
func FindByStem(dir, stem string) string {
	for _, ext := range SupportedExtensions {
		p := filepath.Join(dir, stem+ext)
		if info, err := os.Stat(p); err == nil && !info.IsDir() {
			return p
		}
	}
	return ""
}
