// Package fallback implements the last-resort bag-of-words embedder.
package fallback

import (
	"context"
	"sort"
	"strconv"
	"strings"
)

const (
	// DefaultDimension matches the width of the sparse tier.
	DefaultDimension = 1000
	// DefaultMinRelevance is the reporting threshold for presence vectors.
	DefaultMinRelevance = 0.05
)

// Embedder builds presence vectors over a vocabulary local to each batch.
// Vectors from different calls are not comparable unless the calls saw the
// same texts.
type Embedder struct {
	dimension    int
	minRelevance float64
}

// NewEmbedder creates a fallback embedder of the given width.
func NewEmbedder(dimension int) *Embedder {
	if dimension <= 0 {
		dimension = DefaultDimension
	}
	return &Embedder{dimension: dimension, minRelevance: DefaultMinRelevance}
}

// WithMinRelevance overrides the reporting threshold.
func (e *Embedder) WithMinRelevance(v float64) *Embedder {
	e.minRelevance = v
	return e
}

// Name returns the identifier of this embedder implementation.
func (e *Embedder) Name() string { return "hash" }

// Dimension returns the fixed vector width.
func (e *Embedder) Dimension() int { return e.dimension }

// MinRelevance returns the reporting threshold.
func (e *Embedder) MinRelevance() float64 { return e.minRelevance }

// EmbedDocuments embeds the batch over its own vocabulary.
func (e *Embedder) EmbedDocuments(_ context.Context, texts []string) [][]float64 {
	return e.Embed(texts)
}

// EmbedQuery embeds a single text over a vocabulary built from it alone.
func (e *Embedder) EmbedQuery(_ context.Context, text string) []float64 {
	return e.Embed([]string{text})[0]
}

// Embed is the context-free form used by other providers as their fallback.
func (e *Embedder) Embed(texts []string) [][]float64 {
	if len(texts) == 0 {
		return [][]float64{}
	}
	vocab := e.vocabulary(texts)
	out := make([][]float64, len(texts))
	for i, text := range texts {
		words := wordSet(text)
		vec := make([]float64, e.dimension)
		for j, term := range vocab {
			if _, ok := words[term]; ok {
				vec[j] = 1
			}
		}
		out[i] = vec
	}
	return out
}

// vocabulary returns the sorted distinct words of the batch, truncated to the
// dimension and padded with placeholder terms.
func (e *Embedder) vocabulary(texts []string) []string {
	all := make(map[string]struct{})
	for _, text := range texts {
		for w := range wordSet(text) {
			all[w] = struct{}{}
		}
	}
	terms := make([]string, 0, len(all))
	for w := range all {
		terms = append(terms, w)
	}
	sort.Strings(terms)
	if len(terms) > e.dimension {
		terms = terms[:e.dimension]
	}
	for len(terms) < e.dimension {
		terms = append(terms, "pad_"+strconv.Itoa(len(terms)))
	}
	return terms
}

func wordSet(text string) map[string]struct{} {
	words := strings.Fields(strings.ToLower(text))
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}
