package document

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"io"
	"strings"

	"github.com/rotisserie/eris"
)

// documentXML mirrors the parts of word/document.xml we read.
type documentXML struct {
	Body struct {
		Paragraphs []paragraph `xml:"p"`
	} `xml:"body"`
}

type paragraph struct {
	Props struct {
		Style struct {
			Val string `xml:"val,attr"`
		} `xml:"pStyle"`
	} `xml:"pPr"`
	Runs []run `xml:"r"`
}

type run struct {
	Text []textElement `xml:"t"`
}

type textElement struct {
	Content string `xml:",chardata"`
}

// DocxText extracts paragraph text from a .docx archive. Paragraphs styled
// Heading1..Heading6 are rendered as markdown headings so the parser can
// section them.
func DocxText(data []byte) (string, error) {
	reader, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", eris.Wrap(err, "document: open docx archive")
	}

	for _, file := range reader.File {
		if file.Name != "word/document.xml" {
			continue
		}

		rc, err := file.Open()
		if err != nil {
			return "", eris.Wrap(err, "document: open word/document.xml")
		}
		content, err := io.ReadAll(rc)
		rc.Close() //nolint:errcheck
		if err != nil {
			return "", eris.Wrap(err, "document: read word/document.xml")
		}
		return parseDocumentXML(content)
	}
	return "", eris.New("document: docx has no word/document.xml")
}

func parseDocumentXML(content []byte) (string, error) {
	var doc documentXML
	if err := xml.Unmarshal(content, &doc); err != nil {
		return "", eris.Wrap(err, "document: parse document.xml")
	}

	var sb strings.Builder
	for i, para := range doc.Body.Paragraphs {
		if i > 0 {
			sb.WriteString("\n")
		}
		var line strings.Builder
		for _, r := range para.Runs {
			for _, t := range r.Text {
				line.WriteString(t.Content)
			}
		}
		if level := headingLevel(para.Props.Style.Val); level > 0 && line.Len() > 0 {
			sb.WriteString(strings.Repeat("#", level) + " ")
		}
		sb.WriteString(line.String())
	}
	return strings.TrimSpace(sb.String()), nil
}

// headingLevel maps Word styles "Heading1".."Heading6" (or "Title") to a
// markdown heading level, 0 otherwise.
func headingLevel(style string) int {
	if style == "Title" {
		return 1
	}
	if len(style) == len("Heading1") && strings.HasPrefix(style, "Heading") {
		if d := style[len(style)-1]; d >= '1' && d <= '6' {
			return int(d - '0')
		}
	}
	return 0
}
