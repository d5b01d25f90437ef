// Package ingest turns stored uploads and web pages into searchable chunks.
package ingest

import (
	"bytes"
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/ledongthuc/pdf"
	"golang.org/x/net/html"
)

const (
	DefaultChunkSize    = 1024
	DefaultChunkOverlap = 128
)

// ErrNoContent is returned when a source yields no text.
var ErrNoContent = errors.New("no content extracted")

// Payload is one chunk of text with its metadata, before it gets an ID.
type Payload struct {
	Content  string
	Metadata map[string]string
}

// Chunker splits text into overlapping windows measured in runes.
type Chunker struct {
	Size    int
	Overlap int
}

// DefaultChunker returns the 1024/128 rune splitter.
func DefaultChunker() Chunker {
	return Chunker{Size: DefaultChunkSize, Overlap: DefaultChunkOverlap}
}

// ParseDocument extracts text from a stored file. PDFs are read page by page,
// HTML is stripped of markup, OOXML packages are unzipped for their text parts,
// legacy binary Office files yield ErrNoContent and anything else is treated
// as text.
func (c Chunker) ParseDocument(filename string, data []byte) ([]Payload, error) {
	var (
		chunks []Payload
		err    error
	)
	ext := strings.ToLower(filepath.Ext(filename))
	if legacyOffice[ext] {
		return nil, fmt.Errorf("%w: %s is a legacy office format", ErrNoContent, filename)
	}
	switch ext {
	case ".pdf":
		chunks, err = c.parsePDF(data)
	case ".html", ".htm":
		chunks, err = c.parseHTML(data)
	case ".docx":
		chunks, err = c.parseDOCX(data)
	case ".pptx":
		chunks, err = c.parsePPTX(data)
	case ".xlsx":
		chunks, err = c.parseXLSX(data)
	default:
		chunks = c.split(string(data), nil)
	}
	if err != nil {
		return nil, err
	}
	if len(chunks) == 0 {
		return nil, ErrNoContent
	}
	return chunks, nil
}

// SplitText chunks already extracted text.
func (c Chunker) SplitText(text string) []Payload {
	return c.split(text, nil)
}

func (c Chunker) parsePDF(data []byte) ([]Payload, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}
	var chunks []Payload
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			// unreadable pages are skipped
			continue
		}
		chunks = append(chunks, c.split(text, map[string]string{"page": strconv.Itoa(i)})...)
	}
	return chunks, nil
}

func (c Chunker) parseHTML(data []byte) ([]Payload, error) {
	doc, err := html.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	return c.split(extractText(doc), nil), nil
}

func (c Chunker) split(text string, base map[string]string) []Payload {
	parts := chunkText(normalizeText(text), c.Size, c.Overlap)
	out := make([]Payload, 0, len(parts))
	for idx, part := range parts {
		meta := make(map[string]string, len(base)+1)
		for k, v := range base {
			meta[k] = v
		}
		meta["chunk"] = strconv.Itoa(idx)
		out = append(out, Payload{Content: part, Metadata: meta})
	}
	return out
}

func normalizeText(text string) string {
	text = strings.ReplaceAll(text, "\x00", " ")
	text = strings.ToValidUTF8(text, "")
	return strings.Join(strings.Fields(text), " ")
}

func chunkText(text string, size, overlap int) []string {
	if size <= 0 {
		return nil
	}
	runes := []rune(text)
	if len(runes) == 0 {
		return nil
	}
	step := size - overlap
	if step <= 0 {
		step = size
	}
	var chunks []string
	for start := 0; start < len(runes); start += step {
		end := min(start+size, len(runes))
		if part := strings.TrimSpace(string(runes[start:end])); part != "" {
			chunks = append(chunks, part)
		}
		if end == len(runes) {
			break
		}
	}
	return chunks
}

func extractText(n *html.Node) string {
	var buf strings.Builder
	var walk func(*html.Node)
	walk = func(node *html.Node) {
		switch node.Type {
		case html.TextNode:
			buf.WriteString(node.Data)
			buf.WriteString(" ")
		case html.ElementNode:
			switch node.Data {
			case "script", "style", "noscript", "head":
				return
			}
		}
		for child := node.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	walk(n)
	return buf.String()
}
