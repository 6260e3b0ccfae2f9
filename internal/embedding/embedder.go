package embedding

import "context"

// Provider converts text into vectors. Implementations never fail: every
// error path resolves to a zero vector or a fallback provider.
type Provider interface {
	// Name returns the identifier of this provider implementation.
	Name() string
	// EmbedDocuments embeds texts for indexing. The result is parallel to texts.
	EmbedDocuments(ctx context.Context, texts []string) [][]float64
	// EmbedQuery embeds a single search query.
	EmbedQuery(ctx context.Context, text string) []float64
	// Dimension returns the current width of produced vectors.
	Dimension() int
	// MinRelevance is the cosine score a match must exceed to be reported.
	MinRelevance() float64
}

// CorpusFitter is implemented by providers whose vector space is derived
// from the texts they have seen.
type CorpusFitter interface {
	Fit(texts []string) error
}

// Zero returns an all-zero vector of the given width.
func Zero(dim int) []float64 {
	if dim < 0 {
		dim = 0
	}
	return make([]float64, dim)
}

// IsZero reports whether every component of v is zero. Empty vectors are zero.
func IsZero(v []float64) bool {
	for _, x := range v {
		if x != 0 {
			return false
		}
	}
	return true
}
