package ingest

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"path"
	"sort"
	"strconv"
	"strings"
)

// legacyOffice lists binary Office formats. They are accepted for upload but
// carry no extractable text here.
var legacyOffice = map[string]bool{".doc": true, ".xls": true, ".ppt": true}

// Extractable reports whether ParseDocument can pull text out of filename.
func Extractable(filename string) bool {
	return !legacyOffice[strings.ToLower(path.Ext(filename))]
}

func (c Chunker) parseDOCX(data []byte) ([]Payload, error) {
	zr, err := openOffice(data)
	if err != nil {
		return nil, err
	}
	text, err := readPartText(zr, "word/document.xml")
	if err != nil {
		return nil, err
	}
	return c.split(text, nil), nil
}

func (c Chunker) parsePPTX(data []byte) ([]Payload, error) {
	zr, err := openOffice(data)
	if err != nil {
		return nil, err
	}
	type slide struct {
		num  int
		name string
	}
	var slides []slide
	for _, f := range zr.File {
		dir, base := path.Split(f.Name)
		if dir != "ppt/slides/" || !strings.HasPrefix(base, "slide") || !strings.HasSuffix(base, ".xml") {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSuffix(strings.TrimPrefix(base, "slide"), ".xml"))
		if err != nil {
			continue
		}
		slides = append(slides, slide{num: n, name: f.Name})
	}
	sort.Slice(slides, func(i, j int) bool { return slides[i].num < slides[j].num })

	var chunks []Payload
	for _, s := range slides {
		text, err := readPartText(zr, s.name)
		if err != nil {
			return nil, err
		}
		chunks = append(chunks, c.split(text, map[string]string{"slide": strconv.Itoa(s.num)})...)
	}
	return chunks, nil
}

// parseXLSX reads the shared string table, which holds the text of every
// string cell in the workbook.
func (c Chunker) parseXLSX(data []byte) ([]Payload, error) {
	zr, err := openOffice(data)
	if err != nil {
		return nil, err
	}
	text, err := readPartText(zr, "xl/sharedStrings.xml")
	if errors.Is(err, errMissingPart) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return c.split(text, nil), nil
}

var errMissingPart = errors.New("missing part")

func openOffice(data []byte) (*zip.Reader, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("open office document: %w", err)
	}
	return zr, nil
}

func readPartText(zr *zip.Reader, name string) (string, error) {
	for _, f := range zr.File {
		if f.Name != name {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return "", fmt.Errorf("read %s: %w", name, err)
		}
		defer rc.Close()
		text, err := xmlText(rc)
		if err != nil {
			return "", fmt.Errorf("parse %s: %w", name, err)
		}
		return text, nil
	}
	return "", fmt.Errorf("%w: %s", errMissingPart, name)
}

// xmlText collects the character data of <t> elements (w:t, a:t and the
// spreadsheet t). Runs inside a paragraph are joined as-is because Word
// splits words across runs.
func xmlText(r io.Reader) (string, error) {
	dec := xml.NewDecoder(r)
	var buf strings.Builder
	inText := false
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			return buf.String(), nil
		}
		if err != nil {
			return "", err
		}
		switch el := tok.(type) {
		case xml.StartElement:
			switch el.Name.Local {
			case "t":
				inText = true
			case "tab", "br":
				buf.WriteString(" ")
			}
		case xml.EndElement:
			switch el.Name.Local {
			case "t":
				inText = false
			case "p", "si":
				buf.WriteString("\n")
			}
		case xml.CharData:
			if inText {
				buf.Write(el)
			}
		}
	}
}
