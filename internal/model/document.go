package model

// Table is a pipe-delimited markdown table. The first row is the header.
type Table struct {
	Headers []string   `json:"headers"`
	Rows    [][]string `json:"rows"`
}

// ParsedDocument is derived deterministically from raw markdown text.
type ParsedDocument struct {
	Filename  string            `json:"filename"`
	Sections  map[string]string `json:"sections"`
	Tables    []Table           `json:"tables"`
	Links     []string          `json:"links"`
	WordCount int               `json:"word_count"`
	Headers   []string          `json:"headers"`
}

// Chunk is a bounded slice of a larger text. Start and End are byte offsets
// into the source text.
type Chunk struct {
	Text        string         `json:"text"`
	Start       int            `json:"start"`
	End         int            `json:"end"`
	Index       int            `json:"chunk_index"`
	TotalChunks int            `json:"total_chunks"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}
