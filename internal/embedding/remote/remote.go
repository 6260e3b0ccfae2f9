// Package remote embeds text with a hosted dense embedding service.
package remote

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"askdocs/internal/embedding/fallback"
)

const (
	// DefaultDimension is the width of text-embedding-004 vectors.
	DefaultDimension = 768
	// DefaultMinRelevance is the reporting threshold for dense scores.
	DefaultMinRelevance = 0.1
)

// ErrMissingCredential is returned by backend constructors when no API key is set.
var ErrMissingCredential = errors.New("missing API key")

// Intent tells the service how a text will be used. Documents and queries
// share one vector space but may be encoded differently.
type Intent string

const (
	IntentDocument Intent = "RETRIEVAL_DOCUMENT"
	IntentQuery    Intent = "RETRIEVAL_QUERY"
)

// Backend performs one embedding request.
type Backend interface {
	Name() string
	Embed(ctx context.Context, text string, intent Intent) ([]float64, error)
}

// Config tunes the remote embedder.
type Config struct {
	Dimension    int
	MinRelevance float64
	// Concurrency bounds in-flight requests per batch. Values below 2 keep
	// requests sequential.
	Concurrency int
}

// Embedder calls a Backend once per text. A failed item becomes a zero
// vector; without a backend every call is served by the fallback embedder.
type Embedder struct {
	backend      Backend
	dimension    int
	minRelevance float64
	concurrency  int
	fallback     *fallback.Embedder
	log          *zap.Logger
}

// NewEmbedder wraps backend. A nil backend means no usable credential.
func NewEmbedder(backend Backend, cfg Config, log *zap.Logger) *Embedder {
	if cfg.Dimension <= 0 {
		cfg.Dimension = DefaultDimension
	}
	if cfg.MinRelevance <= 0 {
		cfg.MinRelevance = DefaultMinRelevance
	}
	if cfg.Concurrency < 1 {
		cfg.Concurrency = 1
	}
	if log == nil {
		log = zap.NewNop()
	}
	if backend == nil {
		log.Warn("remote embedder has no credential, using fallback embeddings")
	}
	return &Embedder{
		backend:      backend,
		dimension:    cfg.Dimension,
		minRelevance: cfg.MinRelevance,
		concurrency:  cfg.Concurrency,
		fallback:     fallback.NewEmbedder(cfg.Dimension),
		log:          log,
	}
}

// Name returns the backend name, or "hash" when running on the fallback.
func (e *Embedder) Name() string {
	if e.backend == nil {
		return e.fallback.Name()
	}
	return e.backend.Name()
}

// Dimension returns the fixed vector width.
func (e *Embedder) Dimension() int { return e.dimension }

// MinRelevance returns the reporting threshold for dense scores.
func (e *Embedder) MinRelevance() float64 {
	if e.backend == nil {
		return e.fallback.MinRelevance()
	}
	return e.minRelevance
}

// EmbedDocuments embeds every text with the document intent. The result is
// always parallel to texts.
func (e *Embedder) EmbedDocuments(ctx context.Context, texts []string) [][]float64 {
	if len(texts) == 0 {
		return [][]float64{}
	}
	if e.backend == nil {
		return e.fallback.Embed(texts)
	}

	start := time.Now()
	out := make([][]float64, len(texts))
	if e.concurrency > 1 {
		g := new(errgroup.Group)
		g.SetLimit(e.concurrency)
		for i := range texts {
			i := i
			g.Go(func() error {
				out[i] = e.embedOne(ctx, i, texts[i], IntentDocument)
				return nil
			})
		}
		_ = g.Wait()
	} else {
		for i, text := range texts {
			out[i] = e.embedOne(ctx, i, text, IntentDocument)
		}
	}

	e.log.Info("remote embeddings generated",
		zap.String("backend", e.backend.Name()),
		zap.Int("count", len(out)),
		zap.Int("dimension", e.dimension),
		zap.Duration("elapsed", time.Since(start)))
	return out
}

// EmbedQuery embeds text with the query intent. Empty queries and failures
// yield a zero vector.
func (e *Embedder) EmbedQuery(ctx context.Context, text string) []float64 {
	if e.backend == nil {
		return e.fallback.Embed([]string{text})[0]
	}
	if text == "" {
		return make([]float64, e.dimension)
	}
	return e.embedOne(ctx, 0, text, IntentQuery)
}

func (e *Embedder) embedOne(ctx context.Context, idx int, text string, intent Intent) []float64 {
	if err := ctx.Err(); err != nil {
		return make([]float64, e.dimension)
	}
	vec, err := e.backend.Embed(ctx, text, intent)
	if err == nil && len(vec) != e.dimension {
		err = fmt.Errorf("got %d values, want %d", len(vec), e.dimension)
	}
	if err != nil {
		e.log.Warn("embedding failed, substituting zero vector",
			zap.Int("index", idx),
			zap.String("intent", string(intent)),
			zap.Error(err))
		return make([]float64, e.dimension)
	}
	return vec
}
