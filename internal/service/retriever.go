package service

import (
	"context"
	"sort"
	"strings"

	"go.uber.org/zap"

	"askdocs/internal/domain"
	"askdocs/internal/embedding"
	"askdocs/internal/ranking"
)

const (
	// DefaultTopK is the number of candidates a query returns.
	DefaultTopK = 5
	// DefaultSecondPassPerDocument bounds the keyword sweep that runs when
	// the first pass found nothing.
	DefaultSecondPassPerDocument = 3
)

// Retriever ranks the chunks of all of a user's documents for one question.
// Every stage degrades instead of failing: vector scoring falls back to
// keyword scoring per document, and an empty merge triggers a wider keyword
// sweep.
type Retriever struct {
	factory       embedding.Factory
	secondPassTop int
	log           *zap.Logger
}

// NewRetriever creates a retriever opening one provider session per query.
func NewRetriever(factory embedding.Factory, secondPassPerDocument int, log *zap.Logger) *Retriever {
	if secondPassPerDocument <= 0 {
		secondPassPerDocument = DefaultSecondPassPerDocument
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Retriever{factory: factory, secondPassTop: secondPassPerDocument, log: log}
}

// Retrieve returns the globally best candidates for question across docs.
// The result status is EmptyCorpus for no documents, NoResult when every
// fallback came up empty and Found otherwise.
func (r *Retriever) Retrieve(ctx context.Context, question string, docs []domain.Document, topK int) domain.Result {
	if len(docs) == 0 {
		return domain.Result{Status: domain.StatusEmptyCorpus}
	}
	if topK <= 0 {
		topK = DefaultTopK
	}

	provider := r.openSession(docs)
	sim := ranking.NewSimilarity(&queryOnce{provider: provider}, r.log)

	var all []domain.Candidate
	for i := range docs {
		all = append(all, r.rankDocument(ctx, sim, question, &docs[i], topK)...)
	}
	merged := mergeTop(all, topK)

	if len(merged) == 0 {
		r.log.Info("no candidates from first pass, widening keyword search",
			zap.Int("documents", len(docs)))
		all = all[:0]
		for i := range docs {
			all = append(all, tag(ranking.Keyword(question, docs[i].Chunks, r.secondPassTop), &docs[i])...)
		}
		merged = mergeTop(all, topK)
	}
	if len(merged) == 0 {
		return domain.Result{Status: domain.StatusNoResult}
	}
	r.log.Info("retrieved candidates",
		zap.Int("documents", len(docs)),
		zap.Int("candidates", len(merged)),
		zap.String("provider", provider.Name()))
	return domain.Result{Status: domain.StatusFound, Candidates: merged}
}

// openSession builds a fresh provider and, for corpus-fitted providers,
// fits it on every chunk of the user's documents so query vectors reflect
// that corpus.
func (r *Retriever) openSession(docs []domain.Document) embedding.Provider {
	provider := r.factory()
	fitter, ok := provider.(embedding.CorpusFitter)
	if !ok {
		return provider
	}
	var corpus []string
	for _, d := range docs {
		corpus = append(corpus, d.Chunks...)
	}
	if err := fitter.Fit(corpus); err != nil {
		r.log.Warn("could not fit query session", zap.Int("chunks", len(corpus)), zap.Error(err))
	}
	return provider
}

// rankDocument scores one document by vector similarity and falls back to
// keyword ranking when vectors are unusable or nothing clears the threshold.
// A panic while scoring is contained to this document.
func (r *Retriever) rankDocument(ctx context.Context, sim *ranking.Similarity, question string, doc *domain.Document, topK int) (out []domain.Candidate) {
	log := r.log.With(zap.String("document_id", doc.ID), zap.String("filename", doc.Filename))
	defer func() {
		if p := recover(); p != nil {
			log.Error("ranking document panicked, using keyword search", zap.Any("panic", p))
			out = tag(ranking.Keyword(question, doc.Chunks, topK), doc)
		}
	}()

	outcome := sim.Rank(ctx, question, doc.Chunks, doc.Embeddings, topK)
	if outcome.Status == ranking.Scored {
		return tag(outcome.Candidates, doc)
	}
	log.Debug("vector ranking gave nothing, using keyword search",
		zap.Stringer("status", outcome.Status), zap.String("reason", outcome.Reason))
	return tag(ranking.Keyword(question, doc.Chunks, topK), doc)
}

func tag(cands []domain.Candidate, doc *domain.Document) []domain.Candidate {
	for i := range cands {
		cands[i].DocumentID = doc.ID
		cands[i].Filename = doc.Filename
	}
	return cands
}

func mergeTop(cands []domain.Candidate, topK int) []domain.Candidate {
	out := append([]domain.Candidate(nil), cands...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	if len(out) > topK {
		out = out[:topK]
	}
	return out
}

// queryOnce memoizes the query vector so a session embeds each question once
// however many documents are scored.
type queryOnce struct {
	provider embedding.Provider
	text     string
	vec      []float64
	done     bool
}

func (q *queryOnce) EmbedQuery(ctx context.Context, text string) []float64 {
	if !q.done || q.text != text {
		q.vec = q.provider.EmbedQuery(ctx, text)
		q.text = text
		q.done = true
	}
	return q.vec
}

func (q *queryOnce) MinRelevance() float64 { return q.provider.MinRelevance() }

// ContextString joins candidate contents in ranked order, separated by a
// blank line.
func ContextString(cands []domain.Candidate) string {
	parts := make([]string, len(cands))
	for i, c := range cands {
		parts[i] = c.Content
	}
	return strings.Join(parts, "\n\n")
}

// Sources projects candidates onto the caller-facing source list.
func Sources(cands []domain.Candidate) []domain.Source {
	out := make([]domain.Source, len(cands))
	for i, c := range cands {
		out[i] = domain.Source{Filename: c.Filename, ChunkIndex: c.ChunkIndex, Score: c.Score}
	}
	return out
}
