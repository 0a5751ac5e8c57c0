package verify

import (
	"encoding/json"
	"strconv"
	"strings"
)

// resolveCitations maps the model's free-form citations back onto the
// evidence chunks that were shown to it. Matching prefers filename plus page,
// then filename alone; an unmatchable citation falls back to the top chunk.
// Citations that cannot be grounded at all are dropped.
func resolveCitations(raw []rawCitation, evidence []EvidenceChunk) []Citation {
	out := make([]Citation, 0, len(raw))
	for _, rc := range raw {
		chunk, ok := matchChunk(rc, evidence)
		if !ok {
			continue
		}
		quote := strings.TrimSpace(rc.Quote)
		if quote == "" {
			quote = truncate(chunk.Content, 200)
		}
		// The model's cited page wins when it gave one; the chunk's page is
		// only a fallback.
		pageNumber := chunk.PageNumber
		if page, ok := citationPage(rc.Page); ok {
			pageNumber = &page
		}
		out = append(out, citationFromChunk(chunk, quote, pageNumber, strings.TrimSpace(rc.Relevance)))
	}
	return out
}

func citationFromChunk(chunk EvidenceChunk, quote string, pageNumber *int, relevance string) Citation {
	start, end := chunk.StartChar, chunk.EndChar
	return Citation{
		DocumentID: chunk.DocumentID,
		Filename:   chunk.Filename,
		CitedText:  quote,
		PageNumber: pageNumber,
		StartChar:  &start,
		EndChar:    &end,
		Similarity: chunk.Similarity,
		Relevance:  relevance,
	}
}

func matchChunk(rc rawCitation, evidence []EvidenceChunk) (EvidenceChunk, bool) {
	if len(evidence) == 0 {
		return EvidenceChunk{}, false
	}
	docName := strings.ToLower(strings.TrimSpace(rc.Document))
	page, hasPage := citationPage(rc.Page)

	if docName != "" {
		for _, ev := range evidence {
			if !strings.Contains(strings.ToLower(ev.Filename), docName) {
				continue
			}
			if !hasPage || (ev.PageNumber != nil && *ev.PageNumber == page) {
				return ev, true
			}
		}
		// Filename matched but no page agreed; take the first filename match.
		for _, ev := range evidence {
			if strings.Contains(strings.ToLower(ev.Filename), docName) {
				return ev, true
			}
		}
	}
	return evidence[0], true
}

// citationPage reads the page field, which models emit as a number, a quoted
// number, or junk like "N/A".
func citationPage(raw json.RawMessage) (int, bool) {
	if len(raw) == 0 {
		return 0, false
	}
	var n int
	if err := json.Unmarshal(raw, &n); err == nil {
		return n, true
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if n, err := strconv.Atoi(strings.TrimSpace(s)); err == nil {
			return n, true
		}
	}
	return 0, false
}
