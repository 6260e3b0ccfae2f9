package tfidf

import (
	"errors"
	"math"
	"sort"
)

var (
	errEmptyCorpus   = errors.New("empty corpus for TF-IDF fit")
	errMaxDFTooLow   = errors.New("max_df corresponds to fewer documents than min_df")
	errNoTermsRemain = errors.New("after pruning, no terms remain")
)

// VectorSpace is the fit state of one sparse embedding session: the texts
// seen so far and the vocabulary and IDF weights derived from them. A
// VectorSpace belongs to a single session and is not safe for concurrent use.
type VectorSpace struct {
	corpus     []string
	vocabulary map[string]int
	idf        []float64
	generation int
}

// NewVectorSpace returns an empty, unfitted vector space.
func NewVectorSpace() *VectorSpace {
	return &VectorSpace{}
}

// Fitted reports whether a model is available for transforms.
func (vs *VectorSpace) Fitted() bool { return len(vs.idf) > 0 }

// Dimension returns the width of the current fit, 0 when unfitted.
func (vs *VectorSpace) Dimension() int { return len(vs.idf) }

// Generation counts successful fits. Vectors from different generations
// must not be compared.
func (vs *VectorSpace) Generation() int { return vs.generation }

// CorpusSize returns the number of texts accumulated so far.
func (vs *VectorSpace) CorpusSize() int { return len(vs.corpus) }

// fit rebuilds vocabulary and IDF over the whole accumulated corpus. On error
// the previous fit is kept.
func (vs *VectorSpace) fit(a *analyzer, maxFeatures int, maxDF float64) error {
	n := len(vs.corpus)
	if n == 0 {
		return errEmptyCorpus
	}
	maxDocCount := maxDF * float64(n)
	if maxDocCount < 1 {
		return errMaxDFTooLow
	}

	df := make(map[string]int)
	tf := make(map[string]int)
	for _, text := range vs.corpus {
		seen := make(map[string]struct{})
		for _, term := range a.terms(text) {
			tf[term]++
			if _, ok := seen[term]; ok {
				continue
			}
			seen[term] = struct{}{}
			df[term]++
		}
	}

	terms := make([]string, 0, len(df))
	for term, count := range df {
		if float64(count) > maxDocCount {
			continue
		}
		terms = append(terms, term)
	}
	if len(terms) == 0 {
		return errNoTermsRemain
	}
	if maxFeatures > 0 && len(terms) > maxFeatures {
		sort.Slice(terms, func(i, j int) bool {
			if tf[terms[i]] != tf[terms[j]] {
				return tf[terms[i]] > tf[terms[j]]
			}
			return terms[i] < terms[j]
		})
		terms = terms[:maxFeatures]
	}
	sort.Strings(terms)

	vs.vocabulary = make(map[string]int, len(terms))
	vs.idf = make([]float64, len(terms))
	N := float64(n)
	for i, term := range terms {
		vs.vocabulary[term] = i
		// Smoothed IDF
		vs.idf[i] = math.Log((1+N)/(1+float64(df[term]))) + 1.0
	}
	vs.generation++
	return nil
}

// transform maps text onto the current fit as an L2-normalized TF-IDF vector.
func (vs *VectorSpace) transform(a *analyzer, text string) []float64 {
	vec := make([]float64, len(vs.idf))
	for _, term := range a.terms(text) {
		if idx, ok := vs.vocabulary[term]; ok {
			vec[idx]++
		}
	}
	norm := 0.0
	for i := range vec {
		vec[i] *= vs.idf[i]
		norm += vec[i] * vec[i]
	}
	norm = math.Sqrt(norm)
	if norm > 0 {
		for i := range vec {
			vec[i] /= norm
		}
	}
	return vec
}
