package verify

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"veriflow/internal/providers"
	"veriflow/internal/vector"
)

type stubEmbedder struct{ err error }

func (s *stubEmbedder) Embed(ctx context.Context, req providers.EmbedRequest) ([][]float32, providers.ProviderInfo, error) {
	if s.err != nil {
		return nil, providers.ProviderInfo{}, s.err
	}
	out := make([][]float32, len(req.Inputs))
	for i := range out {
		out[i] = []float32{0.1, 0.2, 0.3}
	}
	return out, providers.ProviderInfo{Name: "stub"}, nil
}

type stubIndex struct {
	hits []vector.Hit
	err  error
}

func (s *stubIndex) CreateNamespace(ctx context.Context, ns string) error { return nil }
func (s *stubIndex) Upsert(ctx context.Context, ns string, pts []vector.Point) error {
	return nil
}
func (s *stubIndex) Query(ctx context.Context, ns string, vec []float32, topK int) ([]vector.Hit, error) {
	return s.hits, s.err
}
func (s *stubIndex) DeleteByDocument(ctx context.Context, ns, docID string) error { return nil }
func (s *stubIndex) DeleteNamespace(ctx context.Context, ns string) error         { return nil }

func TestRetrieveFiltersBySimilarityFloor(t *testing.T) {
	idx := &stubIndex{hits: []vector.Hit{
		{ID: "c1", DocumentID: "d1", Content: "strong match", Similarity: 0.91},
		{ID: "c2", DocumentID: "d1", Content: "weak match", Similarity: 0.42},
		{ID: "c3", DocumentID: "d2", Content: "borderline", Similarity: 0.70},
	}}
	r := NewRetriever(&stubEmbedder{}, idx, 5, 0.7, 3)

	got, err := r.Retrieve(context.Background(), "proj-1", "some claim")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "c1", got[0].ChunkID)
	assert.Equal(t, "c3", got[1].ChunkID)
}

func TestRetrieveNoHitsIsEmptyNotError(t *testing.T) {
	r := NewRetriever(&stubEmbedder{}, &stubIndex{}, 5, 0.7, 3)
	got, err := r.Retrieve(context.Background(), "proj-1", "some claim")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestRetrieveEmbedFailure(t *testing.T) {
	r := NewRetriever(&stubEmbedder{err: assert.AnError}, &stubIndex{}, 5, 0.7, 3)
	_, err := r.Retrieve(context.Background(), "proj-1", "some claim")
	require.Error(t, err)
}
