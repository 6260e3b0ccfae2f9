// Package ranking scores the chunks of one document against a query.
package ranking

import (
	"context"
	"math"
	"sort"

	"go.uber.org/zap"

	"askdocs/internal/domain"
	"askdocs/internal/embedding"
)

// Status tells the caller whether vector scoring produced something usable.
type Status int

const (
	// Scored means at least one candidate cleared the relevance threshold.
	Scored Status = iota
	// Empty means scoring ran but nothing cleared the threshold.
	Empty
	// Unavailable means vectors could not be compared at all.
	Unavailable
)

func (s Status) String() string {
	switch s {
	case Scored:
		return "scored"
	case Empty:
		return "empty"
	case Unavailable:
		return "unavailable"
	default:
		return "unknown"
	}
}

// Outcome is the result of vector ranking one document.
type Outcome struct {
	Status     Status
	Candidates []domain.Candidate
	// Reason explains an Unavailable outcome.
	Reason string
}

// QueryEmbedder is the part of an embedding provider the ranker needs.
type QueryEmbedder interface {
	EmbedQuery(ctx context.Context, text string) []float64
	MinRelevance() float64
}

// Similarity ranks chunks by cosine similarity of their stored vectors to
// the query vector.
type Similarity struct {
	embedder QueryEmbedder
	log      *zap.Logger
}

// NewSimilarity creates a ranker using embedder for query vectors and its
// relevance threshold.
func NewSimilarity(embedder QueryEmbedder, log *zap.Logger) *Similarity {
	if log == nil {
		log = zap.NewNop()
	}
	return &Similarity{embedder: embedder, log: log}
}

type scored struct {
	idx   int
	score float64
}

// Rank scores chunks against query. Pairs whose vector width differs from
// the query vector are skipped. Only Scored outcomes carry candidates.
func (s *Similarity) Rank(ctx context.Context, query string, chunks []string, embeddings [][]float64, topK int) Outcome {
	if len(chunks) == 0 || len(embeddings) == 0 {
		return Outcome{Status: Unavailable, Reason: "no chunks or embeddings"}
	}
	if len(chunks) != len(embeddings) {
		s.log.Warn("chunk and embedding counts differ",
			zap.Int("chunks", len(chunks)), zap.Int("embeddings", len(embeddings)))
		return Outcome{Status: Unavailable, Reason: "chunk and embedding counts differ"}
	}
	q := s.embedder.EmbedQuery(ctx, query)
	if embedding.IsZero(q) {
		return Outcome{Status: Unavailable, Reason: "zero query vector"}
	}

	pairs := make([]scored, 0, len(embeddings))
	for i, vec := range embeddings {
		if len(vec) != len(q) {
			s.log.Debug("dimension mismatch, skipping chunk",
				zap.Int("chunk", i), zap.Int("query_dim", len(q)), zap.Int("chunk_dim", len(vec)))
			continue
		}
		pairs = append(pairs, scored{idx: i, score: Cosine(q, vec)})
	}
	if len(pairs) == 0 {
		return Outcome{Status: Unavailable, Reason: "no comparable vectors"}
	}

	sort.SliceStable(pairs, func(i, j int) bool { return pairs[i].score > pairs[j].score })
	if topK > 0 && len(pairs) > topK {
		pairs = pairs[:topK]
	}
	threshold := s.embedder.MinRelevance()
	out := make([]domain.Candidate, 0, len(pairs))
	for _, p := range pairs {
		if p.score <= threshold {
			continue
		}
		out = append(out, domain.Candidate{
			ChunkIndex: p.idx,
			Content:    chunks[p.idx],
			Score:      p.score,
			Method:     domain.MethodVector,
		})
	}
	if len(out) == 0 {
		return Outcome{Status: Empty}
	}
	return Outcome{Status: Scored, Candidates: out}
}

// Cosine returns the cosine similarity of a and b, or 0 when either is a zero
// vector or the widths differ.
func Cosine(a, b []float64) float64 {
	if len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += a[i] * b[i]
		na += a[i] * a[i]
		nb += b[i] * b[i]
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
