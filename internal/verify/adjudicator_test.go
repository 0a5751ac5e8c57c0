package verify

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"veriflow/internal/models"
	"veriflow/internal/providers"
)

type stubProvider struct {
	text string
	err  error
	n    int
}

func (s *stubProvider) Complete(ctx context.Context, req providers.CompletionRequest) (providers.CompletionResponse, providers.ProviderInfo, error) {
	s.n++
	if s.err != nil {
		return providers.CompletionResponse{}, providers.ProviderInfo{Name: "stub"}, s.err
	}
	return providers.CompletionResponse{Text: s.text}, providers.ProviderInfo{Name: "stub"}, nil
}

func page(n int) *int { return &n }

func sampleEvidence() []EvidenceChunk {
	return []EvidenceChunk{
		{ChunkID: "c1", DocumentID: "d1", Filename: "audited_financials.pdf", Content: "Revenue for FY2024 was $12.4M.", PageNumber: page(3), StartChar: 100, EndChar: 130, Similarity: 0.92},
		{ChunkID: "c2", DocumentID: "d2", Filename: "legal_opinion.pdf", Content: "The company is incorporated in Delaware.", PageNumber: page(1), StartChar: 0, EndChar: 40, Similarity: 0.81},
		{ChunkID: "c3", DocumentID: "d1", Filename: "audited_financials.pdf", Content: "Operating costs rose 8% year over year.", PageNumber: page(7), StartChar: 500, EndChar: 540, Similarity: 0.75},
		{ChunkID: "c4", DocumentID: "d3", Filename: "board_minutes.pdf", Content: "The board approved the filing.", PageNumber: page(2), StartChar: 10, EndChar: 40, Similarity: 0.72},
	}
}

func TestAdjudicateEmptyEvidenceSkipsModel(t *testing.T) {
	p := &stubProvider{text: `{"result": "validated", "confidence": 0.99}`}
	a := NewAdjudicator(p)

	v, err := a.Adjudicate(context.Background(), "Revenue was $12.4M.", page(1), "", nil)
	require.NoError(t, err)
	assert.Equal(t, models.ResultUncertain, v.Result)
	assert.Equal(t, 0.0, v.Confidence)
	assert.Equal(t, noEvidenceReasoning, v.Reasoning)
	assert.Empty(t, v.Citations)
	assert.Zero(t, p.n, "provider must not be called without evidence")
}

func TestParseVerdictStructuredJSON(t *testing.T) {
	text := `{"result": "validated", "confidence": 0.93, "reasoning": "Matches the audited figure.",
		"citations": [{"document": "audited_financials.pdf", "page": 3, "quote": "Revenue for FY2024 was $12.4M.", "relevance": "direct match"}]}`
	v := parseVerdict(text, sampleEvidence())

	assert.Equal(t, models.ResultValidated, v.Result)
	assert.Equal(t, 0.93, v.Confidence)
	require.Len(t, v.Citations, 1)
	c := v.Citations[0]
	assert.Equal(t, "d1", c.DocumentID)
	assert.Equal(t, "audited_financials.pdf", c.Filename)
	require.NotNil(t, c.PageNumber)
	assert.Equal(t, 3, *c.PageNumber)
	assert.Equal(t, "Revenue for FY2024 was $12.4M.", c.CitedText)
	assert.Equal(t, 0.92, c.Similarity)
}

func TestParseVerdictCodeFencedJSON(t *testing.T) {
	text := "```json\n{\"result\": \"INCORRECT\", \"confidence\": 0.88, \"reasoning\": \"Contradicts page 3.\", \"citations\": []}\n```"
	v := parseVerdict(text, sampleEvidence())
	assert.Equal(t, models.ResultIncorrect, v.Result)
	assert.Equal(t, 0.88, v.Confidence)
}

func TestParseVerdictProseAroundJSON(t *testing.T) {
	text := `Here is my assessment: {"result": "uncertain", "confidence": 0.4, "reasoning": "Evidence is partial.", "citations": []} Let me know if you need more.`
	v := parseVerdict(text, sampleEvidence())
	assert.Equal(t, models.ResultUncertain, v.Result)
	assert.Equal(t, 0.4, v.Confidence)
}

func TestParseVerdictAlternateFieldNames(t *testing.T) {
	text := `{"validation_result": "VALIDATED", "confidence_score": 0.9, "reasoning": "ok", "citations": []}`
	v := parseVerdict(text, sampleEvidence())
	assert.Equal(t, models.ResultValidated, v.Result)
	assert.Equal(t, 0.9, v.Confidence)
}

func TestParseVerdictClampsConfidence(t *testing.T) {
	v := parseVerdict(`{"result": "validated", "confidence": 1.7, "reasoning": "x", "citations": []}`, sampleEvidence())
	assert.Equal(t, 1.0, v.Confidence)
	v = parseVerdict(`{"result": "validated", "confidence": -0.2, "reasoning": "x", "citations": []}`, sampleEvidence())
	assert.Equal(t, 0.0, v.Confidence)
}

func TestKeywordFallbackValidated(t *testing.T) {
	v := parseVerdict("The claim is clearly VALIDATED by the audited figures.", sampleEvidence())
	assert.Equal(t, models.ResultValidated, v.Result)
	assert.Equal(t, 0.85, v.Confidence)
	assert.Len(t, v.Citations, 3, "fallback cites the top three evidence chunks")
	assert.Contains(t, v.Reasoning, "VALIDATED")
}

func TestKeywordFallbackIncorrect(t *testing.T) {
	v := parseVerdict("This statement contradicts the evidence on page 3.", sampleEvidence())
	assert.Equal(t, models.ResultIncorrect, v.Result)
	assert.Equal(t, 0.8, v.Confidence)
}

func TestKeywordFallbackDefaultsUncertain(t *testing.T) {
	v := parseVerdict("I cannot make a determination from the given material.", sampleEvidence())
	assert.Equal(t, models.ResultUncertain, v.Result)
	assert.Equal(t, 0.6, v.Confidence)
}

func TestAdjudicateProviderError(t *testing.T) {
	a := NewAdjudicator(&stubProvider{err: assert.AnError})
	_, err := a.Adjudicate(context.Background(), "claim", nil, "", sampleEvidence())
	require.Error(t, err)
}
