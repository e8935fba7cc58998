package main

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/predator4hack/ai-shark-sub001/internal/document"
	"github.com/predator4hack/ai-shark-sub001/internal/ocr"
)

var (
	chunkSize    int
	chunkOverlap int
)

var chunkCmd = &cobra.Command{
	Use:   "chunk <file>",
	Short: "Split a document into overlapping chunks and print them as JSON",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		text, err := loadDocument(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		size, overlap := cfg.Chunk.Size, cfg.Chunk.Overlap
		if cmd.Flags().Changed("size") {
			size = chunkSize
		}
		if cmd.Flags().Changed("overlap") {
			overlap = chunkOverlap
		}
		chunker := document.NewChunker(document.WithChunkSize(size), document.WithOverlap(overlap))
		chunks := chunker.ChunkText(text, map[string]any{"source": filepath.Base(args[0])})
		return writeJSON(os.Stdout, chunks)
	},
}

var parseCmd = &cobra.Command{
	Use:   "parse <file>",
	Short: "Parse a document's markdown structure and print it as JSON",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		text, err := loadDocument(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		return writeJSON(os.Stdout, document.ParseContent(text, filepath.Base(args[0])))
	},
}

func loadDocument(ctx context.Context, path string) (string, error) {
	pdf, err := ocr.NewExtractor(cfg.OCR)
	if err != nil {
		return "", err
	}
	return document.NewLoader(pdf).Load(ctx, path)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func init() {
	chunkCmd.Flags().IntVar(&chunkSize, "size", document.DefaultChunkSize, "chunk size in characters (default from config)")
	chunkCmd.Flags().IntVar(&chunkOverlap, "overlap", document.DefaultChunkOverlap, "overlap in characters (default from config)")
	rootCmd.AddCommand(chunkCmd)
	rootCmd.AddCommand(parseCmd)
}
