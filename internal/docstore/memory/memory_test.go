package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"askdocs/internal/domain"
)

func TestStorage_SaveListGetDelete(t *testing.T) {
	s := NewStorage()
	ctx := context.Background()
	base := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	second := &domain.Document{UserID: "u1", Filename: "b.txt", Chunks: []string{"b"}, Embeddings: [][]float64{{1}}, CreatedAt: base.Add(time.Minute)}
	first := &domain.Document{UserID: "u1", Filename: "a.txt", Chunks: []string{"a"}, Embeddings: [][]float64{{2}}, CreatedAt: base}
	other := &domain.Document{UserID: "u2", Filename: "c.txt"}
	require.NoError(t, s.Save(ctx, second))
	require.NoError(t, s.Save(ctx, first))
	require.NoError(t, s.Save(ctx, other))
	assert.NotEmpty(t, first.ID)

	docs, err := s.ListByUser(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "a.txt", docs[0].Filename)
	assert.Equal(t, "b.txt", docs[1].Filename)

	got, err := s.Get(ctx, "u1", first.ID)
	require.NoError(t, err)
	assert.Equal(t, first.Chunks, got.Chunks)

	_, err = s.Get(ctx, "u2", first.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	require.NoError(t, s.Delete(ctx, "u1", first.ID))
	assert.ErrorIs(t, s.Delete(ctx, "u1", first.ID), domain.ErrNotFound)
	docs, _ = s.ListByUser(ctx, "u1")
	assert.Len(t, docs, 1)
}

func TestStorage_CopiesDocuments(t *testing.T) {
	s := NewStorage()
	ctx := context.Background()
	doc := &domain.Document{UserID: "u", Chunks: []string{"x"}, Embeddings: [][]float64{{1, 2}}}
	require.NoError(t, s.Save(ctx, doc))

	doc.Embeddings[0][0] = 99
	got, err := s.Get(ctx, doc.UserID, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, 1.0, got.Embeddings[0][0])
}

func TestStorage_RejectsMismatch(t *testing.T) {
	s := NewStorage()
	err := s.Save(context.Background(), &domain.Document{UserID: "u", Chunks: []string{"x"}})
	assert.Error(t, err)
	assert.Error(t, s.Save(context.Background(), nil))

	docs, err := s.ListByUser(context.Background(), "nobody")
	require.NoError(t, err)
	assert.Empty(t, docs)
}
