// Package verify adjudicates sentence-level claims against retrieved
// evidence. A claim goes through retrieval, a primary model verdict, an
// optional cross-check by a second model, and citation resolution.
package verify

import "veriflow/internal/models"

// EvidenceChunk is one retrieved passage a verdict can cite.
type EvidenceChunk struct {
	ChunkID    string  `json:"chunk_id"`
	DocumentID string  `json:"document_id"`
	Filename   string  `json:"filename"`
	Content    string  `json:"content"`
	PageNumber *int    `json:"page_number,omitempty"`
	StartChar  int     `json:"start_char"`
	EndChar    int     `json:"end_char"`
	Similarity float64 `json:"similarity"`
}

// Citation is a resolved reference from a verdict back into the evidence.
type Citation struct {
	DocumentID string  `json:"document_id"`
	Filename   string  `json:"filename"`
	CitedText  string  `json:"cited_text"`
	PageNumber *int    `json:"page_number,omitempty"`
	StartChar  *int    `json:"start_char,omitempty"`
	EndChar    *int    `json:"end_char,omitempty"`
	Similarity float64 `json:"similarity_score"`
	Relevance  string  `json:"relevance,omitempty"`
}

// Verdict is the adjudication outcome for a single claim.
type Verdict struct {
	Result     models.ValidationResult `json:"result"`
	Confidence float64                 `json:"confidence"`
	Reasoning  string                  `json:"reasoning"`
	Citations  []Citation              `json:"citations"`
}
