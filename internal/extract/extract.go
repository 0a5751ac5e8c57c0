// Package extract pulls plain text out of uploaded documents while keeping
// track of where each page starts and ends in the combined text.
package extract

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"

	"veriflow/internal/util"
)

// Page records the character span a single page occupies in Result.FullText.
// An unreadable page keeps its number with a zero-width span so page numbers
// stay aligned with the source document.
type Page struct {
	Number    int `json:"number"`
	CharStart int `json:"char_start"`
	CharEnd   int `json:"char_end"`
}

type Result struct {
	FullText  string `json:"full_text"`
	Pages     []Page `json:"pages"`
	PageCount int    `json:"page_count"`
}

// Extract reads the document at path and returns its text with page offsets.
// Only PDF input is supported; other extensions fail with ErrUnsupportedFormat
// before any file access.
func Extract(path string) (Result, error) {
	if strings.ToLower(filepath.Ext(path)) != ".pdf" {
		return Result{}, fmt.Errorf("%s: %w", filepath.Base(path), util.ErrUnsupportedFormat)
	}
	return extractPDF(path)
}

func extractPDF(path string) (Result, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return Result{}, fmt.Errorf("open pdf: %w", err)
	}
	defer f.Close()

	var (
		sb    strings.Builder
		pages = make([]Page, 0, r.NumPage())
	)
	for i := 1; i <= r.NumPage(); i++ {
		start := sb.Len()
		text := pageText(r, i)
		sb.WriteString(text)
		pages = append(pages, Page{Number: i, CharStart: start, CharEnd: sb.Len()})
		if i < r.NumPage() {
			sb.WriteString("\n")
		}
	}

	full := sb.String()
	if strings.TrimSpace(full) == "" {
		return Result{}, util.ErrNoExtractableText
	}
	return Result{FullText: full, Pages: pages, PageCount: r.NumPage()}, nil
}

// pageText extracts a single page, treating any per-page failure as an empty
// page rather than failing the whole document.
func pageText(r *pdf.Reader, num int) (text string) {
	defer func() {
		if recover() != nil {
			text = ""
		}
	}()
	p := r.Page(num)
	if p.V.IsNull() {
		return ""
	}
	raw, err := p.GetPlainText(nil)
	if err != nil {
		return ""
	}
	return util.SanitizeText(raw)
}
