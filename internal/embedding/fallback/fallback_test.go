package fallback

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmbed_PresenceOverSortedVocabulary(t *testing.T) {
	e := NewEmbedder(6)
	vecs := e.Embed([]string{"Dog cat", "cat bird"})

	// vocabulary: bird, cat, dog, pad_3, pad_4, pad_5
	require.Len(t, vecs, 2)
	assert.Equal(t, []float64{0, 1, 1, 0, 0, 0}, vecs[0])
	assert.Equal(t, []float64{1, 1, 0, 0, 0, 0}, vecs[1])
}

func TestEmbed_TruncatesVocabulary(t *testing.T) {
	e := NewEmbedder(2)
	vecs := e.Embed([]string{"zeta alpha beta"})
	assert.Equal(t, []float64{1, 1}, vecs[0])
}

func TestEmbed_Deterministic(t *testing.T) {
	e := NewEmbedder(0)
	assert.Equal(t, DefaultDimension, e.Dimension())

	texts := []string{"one two three", "three four"}
	assert.Equal(t, e.Embed(texts), e.Embed(texts))
	for _, v := range e.EmbedDocuments(context.Background(), texts) {
		assert.Len(t, v, DefaultDimension)
	}
}

func TestEmbedQuery(t *testing.T) {
	e := NewEmbedder(3).WithMinRelevance(0.2)
	assert.Equal(t, []float64{1, 0, 0}, e.EmbedQuery(context.Background(), "cat"))
	assert.Equal(t, 0.2, e.MinRelevance())
	assert.Empty(t, e.Embed(nil))
}
