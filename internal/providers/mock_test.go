package providers

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMockEmbedIsDeterministic(t *testing.T) {
	p := NewMockProvider(64)
	a, _, err := p.Embed(context.Background(), EmbedRequest{Inputs: []string{"claim one", "claim two"}})
	require.NoError(t, err)
	b, _, err := p.Embed(context.Background(), EmbedRequest{Inputs: []string{"claim one", "claim two"}})
	require.NoError(t, err)
	require.Len(t, a, 2)
	assert.Equal(t, a, b)
	assert.NotEqual(t, a[0], a[1])
	assert.Len(t, a[0], 64)
}

func TestMockEmbedVectorsAreUnitLength(t *testing.T) {
	p := NewMockProvider(128)
	vecs, _, err := p.Embed(context.Background(), EmbedRequest{Inputs: []string{"some claim text"}})
	require.NoError(t, err)
	require.Len(t, vecs, 1)

	var norm float64
	for _, x := range vecs[0] {
		norm += float64(x) * float64(x)
	}
	assert.InDelta(t, 1.0, norm, 1e-4)
}

func TestMockCompleteReturnsParsableVerdict(t *testing.T) {
	p := NewMockProvider(0)
	resp, info, err := p.Complete(context.Background(), CompletionRequest{User: "The sky is green."})
	require.NoError(t, err)
	assert.Equal(t, "mock", info.Name)

	var verdict struct {
		Result     string  `json:"result"`
		Confidence float64 `json:"confidence"`
		Reasoning  string  `json:"reasoning"`
	}
	require.NoError(t, json.Unmarshal([]byte(resp.Text), &verdict))
	assert.Contains(t, []string{"validated", "uncertain", "incorrect"}, verdict.Result)
	assert.NotEmpty(t, verdict.Reasoning)

	again, _, err := p.Complete(context.Background(), CompletionRequest{User: "The sky is green."})
	require.NoError(t, err)
	assert.Equal(t, resp.Text, again.Text)
}
