// Package document parses markdown into sections, tables, and links, splits
// long text into overlapping windows, and loads source files as text.
package document

import (
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/predator4hack/ai-shark-sub001/internal/model"
)

var (
	headingRe   = regexp.MustCompile(`^(#{1,6})[ \t]+(.+?)(?:[ \t]+#+)?[ \t]*$`)
	mdLinkRe    = regexp.MustCompile(`\[[^\]]*\]\((https?://[^)\s]+)\)`)
	bareURLRe   = regexp.MustCompile(`https?://[^\s<>()\[\]"'` + "`" + `]+`)
	tableSepRe  = regexp.MustCompile(`^\|?\s*:?-{2,}:?\s*(\|\s*:?-{2,}:?\s*)*\|?$`)
	fenceMarker = "```"
)

type heading struct {
	line  int
	level int
	text  string
}

// ParseContent parses markdown text into a ParsedDocument. Parsing is
// deterministic: identical input yields an identical result.
func ParseContent(text, filename string) model.ParsedDocument {
	doc := model.ParsedDocument{
		Filename: filename,
		Sections: make(map[string]string),
		Tables:   []model.Table{},
		Links:    []string{},
		Headers:  []string{},
	}
	if strings.TrimSpace(text) == "" {
		return doc
	}

	doc.WordCount = len(strings.Fields(text))

	lines := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	headings := findHeadings(lines)

	for i, h := range headings {
		doc.Headers = append(doc.Headers, h.text)

		end := len(lines)
		for _, next := range headings[i+1:] {
			if next.level <= h.level {
				end = next.line
				break
			}
		}
		body := strings.TrimSpace(strings.Join(lines[h.line+1:end], "\n"))
		doc.Sections[sectionKey(doc.Sections, h.text)] = body
	}

	doc.Tables = extractTables(lines)
	doc.Links = extractLinks(text)
	return doc
}

// findHeadings returns ATX headings outside fenced code blocks.
func findHeadings(lines []string) []heading {
	var out []heading
	inFence := false
	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, fenceMarker) {
			inFence = !inFence
			continue
		}
		if inFence {
			continue
		}
		m := headingRe.FindStringSubmatch(trimmed)
		if m == nil {
			continue
		}
		out = append(out, heading{line: i, level: len(m[1]), text: m[2]})
	}
	return out
}

// sectionKey disambiguates repeated heading text with a numeric suffix.
func sectionKey(sections map[string]string, text string) string {
	if _, taken := sections[text]; !taken {
		return text
	}
	for n := 2; ; n++ {
		key := text + " (" + strconv.Itoa(n) + ")"
		if _, taken := sections[key]; !taken {
			return key
		}
	}
}

// extractTables groups consecutive pipe-delimited rows outside fenced code
// blocks into tables. The first row of each group is the header row;
// separator rows are skipped.
func extractTables(lines []string) []model.Table {
	tables := []model.Table{}
	var rows [][]string

	flush := func() {
		if len(rows) > 0 {
			tables = append(tables, model.Table{Headers: rows[0], Rows: rows[1:]})
		}
		rows = nil
	}

	inFence := false
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, fenceMarker) {
			flush()
			inFence = !inFence
			continue
		}
		if inFence || !isTableRow(trimmed) {
			flush()
			continue
		}
		if tableSepRe.MatchString(trimmed) {
			continue
		}
		rows = append(rows, splitRow(trimmed))
	}
	flush()

	for i := range tables {
		if tables[i].Rows == nil {
			tables[i].Rows = [][]string{}
		}
	}
	return tables
}

func isTableRow(line string) bool {
	return strings.HasPrefix(line, "|") && strings.Count(line, "|") >= 2
}

func splitRow(line string) []string {
	line = strings.TrimPrefix(line, "|")
	line = strings.TrimSuffix(line, "|")
	cells := strings.Split(line, "|")
	for i, c := range cells {
		cells[i] = strings.TrimSpace(c)
	}
	return cells
}

// extractLinks returns the sorted set of markdown-link targets and bare
// http(s) URLs in text.
func extractLinks(text string) []string {
	set := make(map[string]struct{})
	for _, m := range mdLinkRe.FindAllStringSubmatch(text, -1) {
		set[m[1]] = struct{}{}
	}
	for _, u := range bareURLRe.FindAllString(text, -1) {
		u = strings.TrimRight(u, ".,;:!?")
		if u != "" {
			set[u] = struct{}{}
		}
	}

	links := make([]string, 0, len(set))
	for u := range set {
		links = append(links, u)
	}
	sort.Strings(links)
	return links
}
