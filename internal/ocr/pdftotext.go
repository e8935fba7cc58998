package ocr

import (
	"bytes"
	"context"
	"os/exec"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// PdfToText reads the text layer of a PDF with poppler's pdftotext.
type PdfToText struct {
	binPath  string
	maxPages int
}

// NewPdfToText returns a PdfToText that runs binPath, or "pdftotext" from
// PATH when binPath is empty.
func NewPdfToText(binPath string) *PdfToText {
	if binPath == "" {
		binPath = "pdftotext"
	}
	return &PdfToText{binPath: binPath}
}

// WithMaxPages limits extraction to the first n pages. Zero reads all pages.
func (p *PdfToText) WithMaxPages(n int) *PdfToText {
	p.maxPages = n
	return p
}

func (p *PdfToText) args(pdfPath string) []string {
	args := []string{"-layout", "-enc", "UTF-8"}
	if p.maxPages > 0 {
		args = append(args, "-l", strconv.Itoa(p.maxPages))
	}
	return append(args, pdfPath, "-")
}

// ExtractText returns the deck text with one blank line between pages.
// Blank pages, typical of image-only slides, are dropped.
func (p *PdfToText) ExtractText(ctx context.Context, pdfPath string) (string, error) {
	cmd := exec.CommandContext(ctx, p.binPath, p.args(pdfPath)...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return "", eris.Wrapf(err, "ocr: pdftotext failed for %s: %s", pdfPath, strings.TrimSpace(stderr.String()))
	}

	pages := strings.Split(stdout.String(), "\f")
	text := joinPages(pages)
	zap.L().Debug("ocr: pdftotext done",
		zap.String("path", pdfPath),
		zap.Int("pages", len(pages)),
		zap.Int("chars", len(text)),
	)
	return text, nil
}
