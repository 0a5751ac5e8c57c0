// Package segment splits extracted document text into overlapping retrieval
// chunks and into individual sentence-level claims, both carrying byte
// offsets into the source text so results can be traced back to pages.
package segment

import (
	"strings"
	"unicode/utf8"

	"veriflow/internal/extract"
)

type Chunk struct {
	Index      int    `json:"index"`
	Content    string `json:"content"`
	StartChar  int    `json:"start_char"`
	EndChar    int    `json:"end_char"`
	PageNumber *int   `json:"page_number,omitempty"`
}

// ChunkText slices text into chunks of at most chunkSize bytes with the given
// overlap between neighbours. Split points prefer paragraph breaks, then
// sentence boundaries, then whitespace, and only hard-cut when the window
// contains none of those. Offsets always index into the original text.
func ChunkText(text string, chunkSize, overlap int, pages []extract.Page) []Chunk {
	if chunkSize <= 0 {
		chunkSize = 512
	}
	if overlap < 0 || overlap >= chunkSize {
		overlap = 0
	}

	out := make([]Chunk, 0)
	pos := 0
	for pos < len(text) {
		end := pos + chunkSize
		if end >= len(text) {
			end = len(text)
		} else {
			end = splitPoint(text, pos, end)
		}

		content := strings.TrimSpace(text[pos:end])
		if content != "" {
			// Offsets of the trimmed content within the original text.
			start := pos + strings.Index(text[pos:end], content)
			c := Chunk{
				Index:      len(out),
				Content:    content,
				StartChar:  start,
				EndChar:    start + len(content),
				PageNumber: pageFor(start, pages),
			}
			out = append(out, c)
		}
		if end >= len(text) {
			break
		}

		next := end - overlap
		if next <= pos {
			next = end
		}
		pos = next
	}
	return out
}

// splitPoint finds the best boundary in (start, limit] to end a chunk at.
func splitPoint(text string, start, limit int) int {
	window := text[start:limit]

	if i := strings.LastIndex(window, "\n\n"); i > 0 {
		return start + i + 2
	}
	if i := lastSentenceEnd(window); i > 0 {
		return start + i
	}
	if i := strings.LastIndexAny(window, " \t\n"); i > 0 {
		return start + i + 1
	}
	// Hard cut, but never in the middle of a rune.
	for limit > start && !utf8.RuneStart(text[limit]) {
		limit--
	}
	return limit
}

// lastSentenceEnd returns the byte offset just past the last sentence
// terminator in s followed by a space or end of window, or 0 if none.
func lastSentenceEnd(s string) int {
	for i := len(s) - 1; i > 0; i-- {
		switch s[i] {
		case '.', '!', '?':
			if i+1 == len(s) || s[i+1] == ' ' || s[i+1] == '\n' {
				return i + 1
			}
		}
	}
	return 0
}

// pageFor maps a byte offset to the first page whose span contains it.
func pageFor(offset int, pages []extract.Page) *int {
	for i := range pages {
		if offset >= pages[i].CharStart && offset < pages[i].CharEnd {
			n := pages[i].Number
			return &n
		}
	}
	return nil
}
