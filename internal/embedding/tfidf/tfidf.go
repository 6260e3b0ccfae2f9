package tfidf

import (
	"context"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"askdocs/internal/embedding/fallback"
)

const (
	// DefaultMaxFeatures caps the vocabulary and therefore the vector width.
	DefaultMaxFeatures = 1000
	// DefaultMaxDF drops terms appearing in more than this share of texts.
	DefaultMaxDF = 0.95
	// DefaultMinRelevance is lower than the dense threshold because sparse
	// vectors score lower.
	DefaultMinRelevance = 0.05
)

// Config tunes the sparse vectorizer.
type Config struct {
	MaxFeatures  int
	MaxDF        float64
	MinRelevance float64
}

// Embedder is a TF-IDF vectorizer refitted over every text its session has
// seen. It owns one VectorSpace; create a new Embedder per session.
type Embedder struct {
	space        *VectorSpace
	analyzer     *analyzer
	maxFeatures  int
	maxDF        float64
	minRelevance float64
	fallback     *fallback.Embedder
	log          *zap.Logger
}

// NewEmbedder creates an unfitted TF-IDF embedder with a fresh vector space.
func NewEmbedder(cfg Config, log *zap.Logger) *Embedder {
	return NewEmbedderWithSpace(cfg, NewVectorSpace(), log)
}

// NewEmbedderWithSpace binds the embedder to an explicit vector space.
func NewEmbedderWithSpace(cfg Config, space *VectorSpace, log *zap.Logger) *Embedder {
	if cfg.MaxFeatures <= 0 {
		cfg.MaxFeatures = DefaultMaxFeatures
	}
	if cfg.MaxDF <= 0 || cfg.MaxDF > 1 {
		cfg.MaxDF = DefaultMaxDF
	}
	if cfg.MinRelevance <= 0 {
		cfg.MinRelevance = DefaultMinRelevance
	}
	if space == nil {
		space = NewVectorSpace()
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Embedder{
		space:        space,
		analyzer:     newAnalyzer(),
		maxFeatures:  cfg.MaxFeatures,
		maxDF:        cfg.MaxDF,
		minRelevance: cfg.MinRelevance,
		fallback:     fallback.NewEmbedder(cfg.MaxFeatures).WithMinRelevance(cfg.MinRelevance),
		log:          log,
	}
}

// Name returns the identifier of this embedder implementation.
func (e *Embedder) Name() string { return "tfidf" }

// Space exposes the session's vector space.
func (e *Embedder) Space() *VectorSpace { return e.space }

// Dimension returns the width of the current fit, or the fallback width when
// nothing has been fitted yet.
func (e *Embedder) Dimension() int {
	if e.space.Fitted() {
		return e.space.Dimension()
	}
	return e.fallback.Dimension()
}

// MinRelevance returns the reporting threshold for sparse scores.
func (e *Embedder) MinRelevance() float64 { return e.minRelevance }

// EmbedDocuments adds texts to the session corpus, refits over the whole
// corpus and transforms texts with the new fit. If the fit fails the batch is
// embedded by the fallback embedder.
func (e *Embedder) EmbedDocuments(_ context.Context, texts []string) [][]float64 {
	if len(texts) == 0 {
		return [][]float64{}
	}
	e.space.corpus = append(e.space.corpus, texts...)
	if err := e.space.fit(e.analyzer, e.maxFeatures, e.maxDF); err != nil {
		e.log.Warn("tfidf fit failed, using fallback embeddings",
			zap.Int("corpus_size", e.space.CorpusSize()), zap.Error(err))
		return e.fallback.Embed(texts)
	}
	out := make([][]float64, len(texts))
	for i, text := range texts {
		out[i] = e.space.transform(e.analyzer, text)
	}
	e.log.Debug("tfidf embeddings generated",
		zap.Int("count", len(out)),
		zap.Int("dimension", e.space.Dimension()),
		zap.Int("generation", e.space.Generation()))
	return out
}

// Fit adds texts to the session corpus and refits without transforming
// anything. It primes a session before queries.
func (e *Embedder) Fit(texts []string) error {
	if len(texts) == 0 {
		return nil
	}
	e.space.corpus = append(e.space.corpus, texts...)
	if err := e.space.fit(e.analyzer, e.maxFeatures, e.maxDF); err != nil {
		return err
	}
	e.log.Debug("tfidf vectorizer fitted",
		zap.Int("corpus_size", e.space.CorpusSize()),
		zap.Int("dimension", e.space.Dimension()))
	return nil
}

// EmbedQuery transforms text with the current fit without refitting.
func (e *Embedder) EmbedQuery(_ context.Context, text string) []float64 {
	if !e.space.Fitted() {
		e.log.Debug("no fitted vectorizer for query, using fallback embedding")
		return e.fallback.Embed([]string{text})[0]
	}
	return e.space.transform(e.analyzer, text)
}

// analyzer lowercases, tokenizes, removes stop words and emits unigrams and
// bigrams of the remaining tokens.
type analyzer struct {
	tokenPattern *regexp.Regexp
	stopwords    map[string]struct{}
}

func newAnalyzer() *analyzer {
	return &analyzer{
		tokenPattern: regexp.MustCompile(`\b\w\w+\b`),
		stopwords:    englishStopwords(),
	}
}

func (a *analyzer) terms(text string) []string {
	raw := a.tokenPattern.FindAllString(strings.ToLower(text), -1)
	tokens := raw[:0]
	for _, t := range raw {
		if _, isStop := a.stopwords[t]; isStop {
			continue
		}
		tokens = append(tokens, t)
	}
	out := make([]string, 0, 2*len(tokens))
	out = append(out, tokens...)
	for i := 0; i+1 < len(tokens); i++ {
		out = append(out, tokens[i]+" "+tokens[i+1])
	}
	return out
}
