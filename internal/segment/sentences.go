package segment

import (
	"strings"

	"veriflow/internal/extract"
)

type Sentence struct {
	Index      int    `json:"index"`
	Content    string `json:"content"`
	StartChar  int    `json:"start_char"`
	EndChar    int    `json:"end_char"`
	PageNumber *int   `json:"page_number,omitempty"`
}

// Common abbreviations that end with a period but do not end a sentence.
var abbreviations = map[string]bool{
	"mr": true, "mrs": true, "ms": true, "dr": true, "prof": true,
	"sr": true, "jr": true, "st": true, "vs": true, "etc": true,
	"inc": true, "ltd": true, "co": true, "corp": true, "dept": true,
	"fig": true, "eq": true, "no": true, "vol": true, "pp": true,
	"e.g": true, "i.e": true, "al": true, "approx": true,
}

const minSentenceLen = 10

// ExtractSentences splits text into sentence-level claims. Terminator scanning
// guards against abbreviations, decimals, and single-letter initials. Each
// sentence carries its byte span in the original text; the scan cursor only
// moves forward, so repeated sentence text maps to distinct spans.
func ExtractSentences(text string, pages []extract.Page) []Sentence {
	out := make([]Sentence, 0)
	cursor := 0
	start := 0
	for i := 0; i < len(text); i++ {
		ch := text[i]
		if ch != '.' && ch != '!' && ch != '?' {
			continue
		}
		if ch == '.' && !isSentencePeriod(text, i) {
			continue
		}
		// Include trailing closers like quotes and parens.
		end := i + 1
		for end < len(text) && (text[end] == '"' || text[end] == '\'' || text[end] == ')') {
			end++
		}
		if end < len(text) && !isBoundary(text[end]) {
			continue
		}
		if s, ok := makeSentence(text, start, end, cursor, len(out), pages); ok {
			cursor = s.EndChar
			out = append(out, s)
		}
		start = end
	}
	// Trailing text with no terminator still counts as a claim.
	if s, ok := makeSentence(text, start, len(text), cursor, len(out), pages); ok {
		out = append(out, s)
	}
	return out
}

func makeSentence(text string, start, end, cursor, index int, pages []extract.Page) (Sentence, bool) {
	content := strings.TrimSpace(text[start:end])
	if len(content) < minSentenceLen || !strings.ContainsAny(content, "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ") {
		return Sentence{}, false
	}
	// Locate the trimmed content at or after the cursor so duplicate
	// sentences keep monotonically increasing offsets.
	at := strings.Index(text[cursor:], content)
	var s, e int
	if at >= 0 {
		s = cursor + at
		e = s + len(content)
	} else {
		s = cursor
		e = cursor + len(content)
		if e > len(text) {
			e = len(text)
		}
	}
	return Sentence{
		Index:      index,
		Content:    content,
		StartChar:  s,
		EndChar:    e,
		PageNumber: pageFor(s, pages),
	}, true
}

func isBoundary(b byte) bool {
	return b == ' ' || b == '\n' || b == '\r' || b == '\t'
}

// isSentencePeriod reports whether the period at text[i] plausibly ends a
// sentence rather than an abbreviation, decimal number, or initial.
func isSentencePeriod(text string, i int) bool {
	// Decimal like "3.14".
	if i > 0 && i+1 < len(text) && isDigit(text[i-1]) && isDigit(text[i+1]) {
		return false
	}
	// Single-letter initial like "J. Smith".
	if i > 0 && isUpper(text[i-1]) && (i == 1 || isBoundary(text[i-2])) {
		return false
	}
	// Known abbreviation immediately before the period.
	w := i - 1
	for w >= 0 && (isLetter(text[w]) || text[w] == '.') {
		w--
	}
	word := strings.ToLower(strings.TrimSuffix(text[w+1:i], "."))
	return !abbreviations[word]
}

func isDigit(b byte) bool  { return b >= '0' && b <= '9' }
func isUpper(b byte) bool  { return b >= 'A' && b <= 'Z' }
func isLetter(b byte) bool { return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') }
