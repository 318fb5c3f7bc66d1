package ingest

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/ledongthuc/pdf"
)

const (
	mimePDF  = "application/pdf"
	mimeDOCX = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	mimePPTX = "application/vnd.openxmlformats-officedocument.presentationml.presentation"
	mimeHTML = "text/html"
	mimeText = "text/plain"
)

// DetectType sniffs the content type from the bytes. The declared type and
// file extension are only used when sniffing finds nothing more specific.
func DetectType(name, declared string, data []byte) string {
	m := mimetype.Detect(data)
	for _, want := range []string{mimePDF, mimeDOCX, mimePPTX, mimeHTML} {
		if m.Is(want) {
			return want
		}
	}
	if m.Is(mimeText) {
		switch strings.ToLower(filepath.Ext(name)) {
		case ".md", ".markdown":
			return "text/markdown"
		case ".html", ".htm":
			return mimeHTML
		}
		return mimeText
	}
	if declared = strings.ToLower(strings.TrimSpace(declared)); declared != "" {
		return declared
	}
	return m.String()
}

// ExtractText returns the readable text of a document with whitespace
// collapsed. Supported: PDF, DOCX, PPTX, HTML and plain text.
func ExtractText(name, declared string, data []byte) (string, string, error) {
	if len(data) == 0 {
		return "", "", fmt.Errorf("empty file %q", name)
	}
	kind := DetectType(name, declared, data)

	var (
		text string
		err  error
	)
	switch {
	case kind == mimePDF:
		text, err = extractPDF(data)
	case kind == mimeDOCX:
		text, err = extractOpenXML(data, func(n string) bool { return n == "word/document.xml" })
	case kind == mimePPTX:
		text, err = extractOpenXML(data, func(n string) bool {
			return strings.HasPrefix(n, "ppt/slides/") && strings.HasSuffix(n, ".xml")
		})
	case kind == mimeHTML:
		text = extractHTML(string(data))
	case strings.HasPrefix(kind, "text/"):
		text = collapseWhitespace(string(data))
	default:
		return "", kind, fmt.Errorf("unsupported file type %s for %q", kind, name)
	}
	if err != nil {
		return "", kind, err
	}
	if text == "" {
		return "", kind, fmt.Errorf("no text found in %q", name)
	}
	return text, kind, nil
}

// Truncate cuts s to at most limit runes. A limit of 0 or less keeps s.
func Truncate(s string, limit int) string {
	if limit <= 0 {
		return s
	}
	n := 0
	for i := range s {
		if n == limit {
			return s[:i]
		}
		n++
	}
	return s
}

func extractPDF(data []byte) (string, error) {
	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("pdf reader: %w", err)
	}
	plain, err := r.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("pdf plaintext: %w", err)
	}
	b, err := io.ReadAll(plain)
	if err != nil {
		return "", fmt.Errorf("pdf read: %w", err)
	}
	return collapseWhitespace(string(b)), nil
}

// extractOpenXML gathers the <t> runs of every matching part, in archive
// order.
func extractOpenXML(data []byte, part func(name string) bool) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("open xml archive: %w", err)
	}
	var out strings.Builder
	for _, f := range zr.File {
		if !part(f.Name) {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return "", fmt.Errorf("open %s: %w", f.Name, err)
		}
		b, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return "", fmt.Errorf("read %s: %w", f.Name, err)
		}
		textRuns(&out, b)
		out.WriteString("\n")
	}
	return collapseWhitespace(out.String()), nil
}

func textRuns(out *strings.Builder, doc []byte) {
	dec := xml.NewDecoder(bytes.NewReader(doc))
	for {
		tok, err := dec.Token()
		if err != nil {
			return
		}
		se, ok := tok.(xml.StartElement)
		if !ok || se.Name.Local != "t" {
			continue
		}
		var v string
		if dec.DecodeElement(&v, &se) == nil && v != "" {
			out.WriteString(v)
			out.WriteString(" ")
		}
	}
}

var (
	scriptRe = regexp.MustCompile(`(?is)<(script|style)[^>]*>.*?</(script|style)>`)
	tagRe    = regexp.MustCompile(`(?s)<[^>]*>`)
)

func extractHTML(s string) string {
	s = scriptRe.ReplaceAllString(s, " ")
	s = tagRe.ReplaceAllString(s, " ")
	s = strings.NewReplacer("&nbsp;", " ", "&amp;", "&", "&lt;", "<", "&gt;", ">", "&quot;", `"`).Replace(s)
	return collapseWhitespace(s)
}

func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
