package verify

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rawPage(v string) json.RawMessage { return json.RawMessage(v) }

func TestResolveCitationsFilenameAndPage(t *testing.T) {
	raw := []rawCitation{{Document: "audited_financials", Page: rawPage("7"), Quote: "Operating costs rose 8%.", Relevance: "cost claim"}}
	got := resolveCitations(raw, sampleEvidence())
	require.Len(t, got, 1)
	assert.Equal(t, "d1", got[0].DocumentID)
	require.NotNil(t, got[0].PageNumber)
	assert.Equal(t, 7, *got[0].PageNumber)
	assert.Equal(t, "Operating costs rose 8%.", got[0].CitedText)
}

func TestResolveCitationsFilenameOnlyWhenPageMisses(t *testing.T) {
	raw := []rawCitation{{Document: "legal_opinion.pdf", Page: rawPage("99"), Quote: "Delaware"}}
	got := resolveCitations(raw, sampleEvidence())
	require.Len(t, got, 1)
	assert.Equal(t, "d2", got[0].DocumentID)
	require.NotNil(t, got[0].PageNumber)
	assert.Equal(t, 99, *got[0].PageNumber, "model's cited page is kept even when no chunk carries it")
}

func TestResolveCitationsUnknownDocumentFallsBackToTopChunk(t *testing.T) {
	raw := []rawCitation{{Document: "nonexistent.pdf", Page: rawPage("1")}}
	got := resolveCitations(raw, sampleEvidence())
	require.Len(t, got, 1)
	assert.Equal(t, "d1", got[0].DocumentID)
	assert.NotEmpty(t, got[0].CitedText, "empty quote falls back to chunk content")
}

func TestResolveCitationsStringPage(t *testing.T) {
	raw := []rawCitation{{Document: "board_minutes", Page: rawPage(`"2"`), Quote: "approved"}}
	got := resolveCitations(raw, sampleEvidence())
	require.Len(t, got, 1)
	assert.Equal(t, "d3", got[0].DocumentID)
}

func TestResolveCitationsNoEvidenceDropsAll(t *testing.T) {
	raw := []rawCitation{{Document: "anything.pdf"}}
	got := resolveCitations(raw, nil)
	assert.Empty(t, got)
}
