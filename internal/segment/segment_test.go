package segment

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"veriflow/internal/extract"
)

func TestChunkTextOffsetsIndexSource(t *testing.T) {
	text := strings.Repeat("The quick brown fox jumps over the lazy dog. ", 40)
	chunks := ChunkText(text, 128, 32, nil)
	require.NotEmpty(t, chunks)
	for _, c := range chunks {
		assert.Equal(t, c.Content, text[c.StartChar:c.EndChar])
		assert.LessOrEqual(t, len(c.Content), 128)
	}
}

func TestChunkTextPrefersParagraphBreaks(t *testing.T) {
	para := strings.Repeat("word ", 20)
	text := para + "\n\n" + para + "\n\n" + para
	chunks := ChunkText(text, len(para)+10, 0, nil)
	require.GreaterOrEqual(t, len(chunks), 3)
	assert.Equal(t, strings.TrimSpace(para), chunks[0].Content)
}

func TestChunkTextOverlapRepeatsTail(t *testing.T) {
	text := strings.Repeat("alpha beta gamma delta. ", 30)
	chunks := ChunkText(text, 100, 40, nil)
	require.Greater(t, len(chunks), 1)
	for i := 1; i < len(chunks); i++ {
		assert.Less(t, chunks[i].StartChar, chunks[i-1].EndChar, "chunk %d should overlap its predecessor", i)
	}
}

func TestChunkTextPageTagging(t *testing.T) {
	text := strings.Repeat("a", 50) + "\n" + strings.Repeat("b", 50)
	pages := []extract.Page{
		{Number: 1, CharStart: 0, CharEnd: 50},
		{Number: 2, CharStart: 51, CharEnd: 101},
	}
	chunks := ChunkText(text, 50, 0, pages)
	require.GreaterOrEqual(t, len(chunks), 2)
	require.NotNil(t, chunks[0].PageNumber)
	assert.Equal(t, 1, *chunks[0].PageNumber)
	last := chunks[len(chunks)-1]
	require.NotNil(t, last.PageNumber)
	assert.Equal(t, 2, *last.PageNumber)
}

func TestExtractSentencesBasic(t *testing.T) {
	text := "The study enrolled 120 patients. Results were significant! Were controls included? Yes, thirty matched controls."
	got := ExtractSentences(text, nil)
	require.Len(t, got, 4)
	assert.Equal(t, "The study enrolled 120 patients.", got[0].Content)
	assert.Equal(t, "Results were significant!", got[1].Content)
	assert.Equal(t, "Were controls included?", got[2].Content)
	for i, s := range got {
		assert.Equal(t, i, s.Index)
		assert.Equal(t, s.Content, text[s.StartChar:s.EndChar])
	}
}

func TestExtractSentencesGuardsAbbreviations(t *testing.T) {
	text := "Dr. Smith measured approx. 3.14 units per sample in Fig. 2 of the report."
	got := ExtractSentences(text, nil)
	require.Len(t, got, 1)
	assert.Equal(t, text, got[0].Content)
}

func TestExtractSentencesSkipsFragments(t *testing.T) {
	text := "1. 2. 3. A proper sentence appears only at the end of this list."
	got := ExtractSentences(text, nil)
	require.Len(t, got, 1)
	assert.Contains(t, got[0].Content, "A proper sentence")
}

func TestExtractSentencesRepeatedTextKeepsDistinctSpans(t *testing.T) {
	s := "This claim repeats verbatim in the document."
	text := s + " " + s + " " + s
	got := ExtractSentences(text, nil)
	require.Len(t, got, 3)
	for i := 1; i < len(got); i++ {
		assert.Greater(t, got[i].StartChar, got[i-1].StartChar)
		assert.GreaterOrEqual(t, got[i].StartChar, got[i-1].EndChar)
	}
	for _, g := range got {
		assert.Equal(t, s, text[g.StartChar:g.EndChar])
	}
}

func TestExtractSentencesTrailingTextWithoutTerminator(t *testing.T) {
	text := "First sentence ends here. and then the document just stops midway"
	got := ExtractSentences(text, nil)
	require.Len(t, got, 2)
	assert.Equal(t, "and then the document just stops midway", got[1].Content)
}
