package document

import (
	"maps"
	"unicode/utf8"

	"github.com/predator4hack/ai-shark-sub001/internal/model"
)

// DefaultChunkSize is the default number of characters per chunk.
const DefaultChunkSize = 1000

// DefaultChunkOverlap is the default number of overlapping characters.
const DefaultChunkOverlap = 200

// Chunker splits text into fixed-size overlapping windows. Sizes are counted
// in characters (runes), never splitting a multi-byte character.
type Chunker struct {
	chunkSize int
	overlap   int
}

// Option configures the Chunker.
type Option func(*Chunker)

// WithChunkSize sets the chunk size in characters.
func WithChunkSize(size int) Option {
	return func(c *Chunker) {
		if size > 0 {
			c.chunkSize = size
		}
	}
}

// WithOverlap sets the overlap between chunks in characters.
func WithOverlap(overlap int) Option {
	return func(c *Chunker) {
		if overlap >= 0 {
			c.overlap = overlap
		}
	}
}

// NewChunker creates a Chunker. An overlap that is not smaller than the
// chunk size is reduced to a quarter of the chunk size.
func NewChunker(opts ...Option) *Chunker {
	c := &Chunker{
		chunkSize: DefaultChunkSize,
		overlap:   DefaultChunkOverlap,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.overlap >= c.chunkSize {
		c.overlap = c.chunkSize / 4
	}
	return c
}

// Size returns the configured chunk size.
func (c *Chunker) Size() int { return c.chunkSize }

// Overlap returns the configured overlap.
func (c *Chunker) Overlap() int { return c.overlap }

// ChunkText splits text into windows of chunkSize characters, advancing by
// chunkSize-overlap per step. Text no longer than chunkSize yields exactly one
// chunk equal to the input. Each chunk carries a copy of metadata plus its
// chunk_index and total_chunks.
func (c *Chunker) ChunkText(text string, metadata map[string]any) []model.Chunk {
	n := utf8.RuneCountInString(text)

	// offsets[i] is the byte offset of rune i; offsets[n] == len(text).
	offsets := make([]int, 0, n+1)
	for i := range text {
		offsets = append(offsets, i)
	}
	offsets = append(offsets, len(text))

	var chunks []model.Chunk
	if n <= c.chunkSize {
		chunks = append(chunks, model.Chunk{Text: text, Start: 0, End: len(text)})
	} else {
		step := c.chunkSize - c.overlap
		for start := 0; ; start += step {
			end := min(start+c.chunkSize, n)
			chunks = append(chunks, model.Chunk{
				Text:  text[offsets[start]:offsets[end]],
				Start: offsets[start],
				End:   offsets[end],
			})
			if end == n {
				break
			}
		}
	}

	total := len(chunks)
	for i := range chunks {
		md := make(map[string]any, len(metadata)+2)
		maps.Copy(md, metadata)
		md["chunk_index"] = i
		md["total_chunks"] = total

		chunks[i].Index = i
		chunks[i].TotalChunks = total
		chunks[i].Metadata = md
	}
	return chunks
}

// ChunkText splits text with the default chunk size and overlap.
func ChunkText(text string, metadata map[string]any) []model.Chunk {
	return NewChunker().ChunkText(text, metadata)
}
