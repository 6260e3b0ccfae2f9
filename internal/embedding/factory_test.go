package embedding

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"askdocs/internal/embedding/remote"
	"askdocs/internal/embedding/tfidf"
)

type stubBackend struct{}

func (stubBackend) Name() string { return "stub" }

func (stubBackend) Embed(context.Context, string, remote.Intent) ([]float64, error) {
	return []float64{1, 0}, nil
}

func TestNewFactory_RemoteIsShared(t *testing.T) {
	f, tier := NewFactory(Options{
		Preferred: TierRemote,
		Backend:   stubBackend{},
		Remote:    remote.Config{Dimension: 2},
	})
	assert.Equal(t, TierRemote, tier)
	a, b := f(), f()
	assert.Same(t, a, b)
	assert.Equal(t, "stub", a.Name())
	assert.Equal(t, []float64{1, 0}, a.EmbedQuery(context.Background(), "q"))
}

func TestNewFactory_RemoteWithoutBackendDegrades(t *testing.T) {
	f, tier := NewFactory(Options{Preferred: TierRemote})
	assert.Equal(t, TierSparse, tier)
	assert.Equal(t, "tfidf", f().Name())
}

func TestNewFactory_SparseSessionsAreFresh(t *testing.T) {
	f, _ := NewFactory(Options{Preferred: TierSparse, Sparse: tfidf.Config{MaxFeatures: 50}})
	a := f().(*tfidf.Embedder)
	b := f().(*tfidf.Embedder)
	a.EmbedDocuments(context.Background(), []string{"cat sat on mat", "dog ran fast"})

	assert.NotSame(t, a.Space(), b.Space())
	assert.False(t, b.Space().Fitted())
}

func TestNewFactory_Hash(t *testing.T) {
	f, tier := NewFactory(Options{Preferred: TierHash, HashDimension: 16, HashMinRelevance: 0.2})
	assert.Equal(t, TierHash, tier)
	p := f()
	assert.Equal(t, "hash", p.Name())
	assert.Equal(t, 16, p.Dimension())
	assert.Equal(t, 0.2, p.MinRelevance())
}
