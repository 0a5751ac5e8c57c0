package verify

import (
	"context"
	"fmt"

	"veriflow/internal/providers"
	"veriflow/internal/vector"
)

// Retriever embeds a claim and pulls the closest supporting-document chunks
// from the project's namespace.
type Retriever struct {
	embedder      providers.EmbeddingProvider
	index         vector.Index
	topK          int
	minSimilarity float64
	embedDim      int
}

func NewRetriever(embedder providers.EmbeddingProvider, index vector.Index, topK int, minSimilarity float64, embedDim int) *Retriever {
	if topK <= 0 {
		topK = 5
	}
	return &Retriever{
		embedder:      embedder,
		index:         index,
		topK:          topK,
		minSimilarity: minSimilarity,
		embedDim:      embedDim,
	}
}

// Retrieve returns evidence for a claim ordered by similarity, dropping hits
// below the similarity floor. No matching evidence yields an empty slice,
// not an error.
func (r *Retriever) Retrieve(ctx context.Context, namespace, claim string) ([]EvidenceChunk, error) {
	vecs, _, err := r.embedder.Embed(ctx, providers.EmbedRequest{
		Operation: "verify_claim",
		Inputs:    []string{claim},
		Dimension: r.embedDim,
	})
	if err != nil {
		return nil, fmt.Errorf("embed claim: %w", err)
	}
	if len(vecs) == 0 {
		return nil, fmt.Errorf("embed claim: provider returned no vectors")
	}

	hits, err := r.index.Query(ctx, namespace, vecs[0], r.topK)
	if err != nil {
		return nil, fmt.Errorf("query evidence: %w", err)
	}

	out := make([]EvidenceChunk, 0, len(hits))
	for _, h := range hits {
		if h.Similarity < r.minSimilarity {
			continue
		}
		out = append(out, EvidenceChunk{
			ChunkID:    h.ID,
			DocumentID: h.DocumentID,
			Filename:   h.Filename,
			Content:    h.Content,
			PageNumber: h.PageNumber,
			StartChar:  h.StartChar,
			EndChar:    h.EndChar,
			Similarity: h.Similarity,
		})
	}
	return out, nil
}
