package ranking

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"askdocs/internal/domain"
	"askdocs/internal/embedding/tfidf"
)

type fixedQuery struct {
	vec       []float64
	threshold float64
	calls     int
}

func (f *fixedQuery) EmbedQuery(context.Context, string) []float64 {
	f.calls++
	return f.vec
}

func (f *fixedQuery) MinRelevance() float64 { return f.threshold }

func TestCosine(t *testing.T) {
	v := []float64{0.3, -1.2, 4, 0.01}
	assert.InDelta(t, 1.0, Cosine(v, v), 1e-12)
	assert.InDelta(t, 0.0, Cosine([]float64{1, 0}, []float64{0, 1}), 1e-12)
	assert.InDelta(t, -1.0, Cosine([]float64{1, 1}, []float64{-2, -2}), 1e-12)
	assert.Zero(t, Cosine([]float64{0, 0}, []float64{1, 1}))
	assert.Zero(t, Cosine([]float64{1}, []float64{1, 1}))
}

func TestSimilarity_OrdersAndFilters(t *testing.T) {
	q := &fixedQuery{vec: []float64{1, 0}, threshold: 0.1}
	r := NewSimilarity(q, nil)
	chunks := []string{"a", "b", "c", "d"}
	embs := [][]float64{{0, 1}, {1, 0}, {1, 1}, {1, 0}}

	out := r.Rank(context.Background(), "x", chunks, embs, 5)

	require.Equal(t, Scored, out.Status)
	require.Len(t, out.Candidates, 3)
	// ties keep chunk order
	assert.Equal(t, 1, out.Candidates[0].ChunkIndex)
	assert.Equal(t, 3, out.Candidates[1].ChunkIndex)
	assert.Equal(t, 2, out.Candidates[2].ChunkIndex)
	assert.Equal(t, "b", out.Candidates[0].Content)
	assert.Equal(t, domain.MethodVector, out.Candidates[0].Method)
}

func TestSimilarity_TopKBeforeThreshold(t *testing.T) {
	q := &fixedQuery{vec: []float64{1, 0}, threshold: 0.1}
	out := NewSimilarity(q, nil).Rank(context.Background(), "x",
		[]string{"a", "b", "c"}, [][]float64{{1, 0}, {1, 0.2}, {0, 1}}, 2)
	require.Equal(t, Scored, out.Status)
	assert.Len(t, out.Candidates, 2)
}

func TestSimilarity_ZeroQueryIsUnavailable(t *testing.T) {
	q := &fixedQuery{vec: []float64{0, 0}, threshold: 0.1}
	out := NewSimilarity(q, nil).Rank(context.Background(), "x", []string{"a"}, [][]float64{{1, 0}}, 5)
	assert.Equal(t, Unavailable, out.Status)
	assert.Empty(t, out.Candidates)
}

func TestSimilarity_DimensionMismatch(t *testing.T) {
	q := &fixedQuery{vec: []float64{1, 0, 0}, threshold: 0.1}
	r := NewSimilarity(q, nil)

	all := r.Rank(context.Background(), "x", []string{"a", "b"}, [][]float64{{1, 0}, {0, 1}}, 5)
	assert.Equal(t, Unavailable, all.Status)

	some := r.Rank(context.Background(), "x", []string{"a", "b"}, [][]float64{{1, 0}, {1, 0, 0}}, 5)
	require.Equal(t, Scored, some.Status)
	require.Len(t, some.Candidates, 1)
	assert.Equal(t, 1, some.Candidates[0].ChunkIndex)
}

func TestSimilarity_BelowThresholdIsEmpty(t *testing.T) {
	q := &fixedQuery{vec: []float64{1, 0}, threshold: 0.1}
	out := NewSimilarity(q, nil).Rank(context.Background(), "x",
		[]string{"a", "b"}, [][]float64{{0, 1}, {0, 0}}, 5)
	assert.Equal(t, Empty, out.Status)
	assert.Empty(t, out.Candidates)
}

func TestSimilarity_BadInput(t *testing.T) {
	q := &fixedQuery{vec: []float64{1}, threshold: 0.1}
	r := NewSimilarity(q, nil)
	assert.Equal(t, Unavailable, r.Rank(context.Background(), "x", nil, nil, 5).Status)
	assert.Equal(t, Unavailable, r.Rank(context.Background(), "x", []string{"a", "b"}, [][]float64{{1}}, 5).Status)
	assert.Zero(t, q.calls)
}

func TestSimilarity_SparseCorpus(t *testing.T) {
	e := tfidf.NewEmbedder(tfidf.Config{}, nil)
	chunks := []string{"cat sat on mat", "dog ran very fast"}
	embs := e.EmbedDocuments(context.Background(), chunks)

	out := NewSimilarity(e, nil).Rank(context.Background(), "cat", chunks, embs, 5)

	require.Equal(t, Scored, out.Status)
	require.Len(t, out.Candidates, 1)
	assert.Equal(t, 0, out.Candidates[0].ChunkIndex)
	assert.Greater(t, out.Candidates[0].Score, 0.0)
}

func TestKeyword_ExactMatch(t *testing.T) {
	out := Keyword("Cat sat", []string{"dog", "cat sat"}, 5)
	require.Len(t, out, 1)
	assert.Equal(t, 1, out[0].ChunkIndex)
	assert.InDelta(t, 1.0+PhraseBonus, out[0].Score, 1e-12)
	assert.Equal(t, domain.MethodKeyword, out[0].Method)
}

func TestKeyword_OverlapOrderingAndTopK(t *testing.T) {
	chunks := []string{
		"nothing relevant here",
		"the cat",
		"cat and dog together",
		"a dog barked",
	}
	out := Keyword("cat dog", chunks, 2)

	require.Len(t, out, 2)
	assert.Equal(t, 2, out[0].ChunkIndex)
	assert.InDelta(t, 1.0, out[0].Score, 1e-12)
	// ties keep chunk order
	assert.Equal(t, 1, out[1].ChunkIndex)
	assert.InDelta(t, 0.5, out[1].Score, 1e-12)
}

func TestKeyword_PhraseBonusOnSubstring(t *testing.T) {
	out := Keyword("cat", []string{"concatenate strings"}, 5)
	require.Len(t, out, 1)
	assert.InDelta(t, PhraseBonus, out[0].Score, 1e-12)
}

func TestKeyword_EmptyQuery(t *testing.T) {
	// the empty string is a substring of every chunk, so only the bonus counts
	out := Keyword("", []string{"alpha", "beta"}, 5)
	require.Len(t, out, 2)
	for i, c := range out {
		assert.Equal(t, i, c.ChunkIndex)
		assert.InDelta(t, PhraseBonus, c.Score, 1e-12)
		assert.Equal(t, domain.MethodKeyword, c.Method)
	}

	// whitespace has no words and is not a substring here
	assert.Empty(t, Keyword("   ", []string{"a  b"}, 5))
	assert.Empty(t, Keyword("x", nil, 5))
}

func TestKeyword_SampleCorpus(t *testing.T) {
	out := Keyword("cat", []string{"cat sat on mat", "dog ran very fast"}, 5)
	require.Len(t, out, 1)
	assert.Equal(t, 0, out[0].ChunkIndex)
}
