package memory

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"askdocs/internal/domain"
)

// Storage is an in-memory document store. Documents are copied on the way
// in and out so callers never share slices with the store.
type Storage struct {
	mu     sync.RWMutex
	byUser map[string]map[string]domain.Document
}

func NewStorage() *Storage {
	return &Storage{byUser: make(map[string]map[string]domain.Document)}
}

func (s *Storage) Save(_ context.Context, doc *domain.Document) error {
	if doc == nil {
		return errors.New("nil document")
	}
	if len(doc.Chunks) != len(doc.Embeddings) {
		return errors.New("chunks and embeddings length mismatch")
	}
	if doc.ID == "" {
		doc.ID = uuid.NewString()
	}
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = time.Now().UTC()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	docs, ok := s.byUser[doc.UserID]
	if !ok {
		docs = make(map[string]domain.Document)
		s.byUser[doc.UserID] = docs
	}
	docs[doc.ID] = clone(*doc)
	return nil
}

func (s *Storage) ListByUser(_ context.Context, userID string) ([]domain.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	docs := s.byUser[userID]
	out := make([]domain.Document, 0, len(docs))
	for _, d := range docs {
		out = append(out, clone(d))
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *Storage) Get(_ context.Context, userID, id string) (*domain.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.byUser[userID][id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	c := clone(d)
	return &c, nil
}

func (s *Storage) Delete(_ context.Context, userID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byUser[userID][id]; !ok {
		return domain.ErrNotFound
	}
	delete(s.byUser[userID], id)
	return nil
}

func clone(d domain.Document) domain.Document {
	d.Chunks = append([]string(nil), d.Chunks...)
	embs := make([][]float64, len(d.Embeddings))
	for i, v := range d.Embeddings {
		embs[i] = append([]float64(nil), v...)
	}
	d.Embeddings = embs
	return d
}
