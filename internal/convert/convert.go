// Package convert turns generated markdown into other document formats.
package convert

import (
	"bytes"
	"context"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// Converter converts a markdown file into another format, writing dst.
type Converter interface {
	Convert(ctx context.Context, src, dst string) error
}

// Pandoc converts documents with the pandoc CLI. The output format is
// inferred by pandoc from the destination extension.
type Pandoc struct {
	binPath string
}

// NewPandoc creates a Pandoc converter. If binPath is empty, "pandoc" is used.
func NewPandoc(binPath string) *Pandoc {
	if binPath == "" {
		binPath = "pandoc"
	}
	return &Pandoc{binPath: binPath}
}

// Convert runs pandoc -f markdown src -o dst.
func (p *Pandoc) Convert(ctx context.Context, src, dst string) error {
	cmd := exec.CommandContext(ctx, p.binPath, "-f", "markdown", src, "-o", dst)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return eris.Wrapf(err, "convert: pandoc failed for %s: %s", src, strings.TrimSpace(stderr.String()))
	}
	zap.L().Debug("convert: wrote", zap.String("src", src), zap.String("dst", dst))
	return nil
}

// Twin returns path with its extension replaced by ext (".docx").
func Twin(path, ext string) string {
	return strings.TrimSuffix(path, filepath.Ext(path)) + ext
}
