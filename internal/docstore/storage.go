// Package docstore persists chunked and embedded documents per user.
package docstore

import (
	"context"

	"askdocs/internal/domain"
)

// Storage keeps documents keyed by their owning user.
type Storage interface {
	// Save stores doc. An empty ID is replaced by a generated one.
	Save(ctx context.Context, doc *domain.Document) error
	// ListByUser returns a user's documents, oldest first.
	ListByUser(ctx context.Context, userID string) ([]domain.Document, error)
	// Get returns one document or domain.ErrNotFound.
	Get(ctx context.Context, userID, id string) (*domain.Document, error)
	// Delete removes one document or returns domain.ErrNotFound.
	Delete(ctx context.Context, userID, id string) error
}
