package service

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"askdocs/internal/answer"
	"askdocs/internal/docstore"
	"askdocs/internal/domain"
	"askdocs/internal/embedding"
	"askdocs/internal/extract"
	"askdocs/internal/ranking"
)

// Processed is what ingestion hands to the document store.
type Processed struct {
	Chunks     []string
	Embeddings [][]float64
	Provider   string
}

// Answer is the caller-facing response to a question.
type Answer struct {
	Text       string
	Status     domain.Status
	Sources    []domain.Source
	Candidates []domain.Candidate
}

type RAGServiceImpl struct {
	chunker   domain.Chunker
	factory   embedding.Factory
	store     docstore.Storage
	retriever *Retriever
	generator answer.Generator
	topK      int
	log       *zap.Logger
}

func NewRAGService(chunker domain.Chunker, factory embedding.Factory, store docstore.Storage, retriever *Retriever, generator answer.Generator, topK int, log *zap.Logger) *RAGServiceImpl {
	if topK <= 0 {
		topK = DefaultTopK
	}
	if generator == nil {
		generator = answer.Extractive{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &RAGServiceImpl{
		chunker:   chunker,
		factory:   factory,
		store:     store,
		retriever: retriever,
		generator: generator,
		topK:      topK,
		log:       log,
	}
}

// ProcessForStorage chunks raw text and embeds the chunks in a fresh
// provider session, so every vector of the document shares one fit.
func (s *RAGServiceImpl) ProcessForStorage(ctx context.Context, rawText string) Processed {
	chunks := s.chunker.Chunk(rawText)
	provider := s.factory()
	return Processed{
		Chunks:     chunks,
		Embeddings: provider.EmbedDocuments(ctx, chunks),
		Provider:   provider.Name(),
	}
}

// Ingest processes raw text and stores it as a new document of userID.
func (s *RAGServiceImpl) Ingest(ctx context.Context, userID, filename, rawText string) (*domain.Document, error) {
	if strings.TrimSpace(rawText) == "" {
		return nil, errors.New("content cannot be empty")
	}
	start := time.Now()
	p := s.ProcessForStorage(ctx, rawText)
	doc := &domain.Document{
		UserID:     userID,
		Filename:   filename,
		Chunks:     p.Chunks,
		Embeddings: p.Embeddings,
		Provider:   p.Provider,
	}
	if err := s.store.Save(ctx, doc); err != nil {
		return nil, fmt.Errorf("save %s: %w", filename, err)
	}
	s.log.Info("document ingested",
		zap.String("user_id", userID),
		zap.String("document_id", doc.ID),
		zap.String("filename", filename),
		zap.Int("chunks", len(doc.Chunks)),
		zap.String("provider", doc.Provider),
		zap.Duration("elapsed", time.Since(start)))
	return doc, nil
}

// IngestFiles extracts and ingests every file matching the given paths or
// glob patterns.
func (s *RAGServiceImpl) IngestFiles(ctx context.Context, userID string, paths []string) ([]*domain.Document, error) {
	var docs []*domain.Document
	for _, p := range paths {
		matches, _ := filepath.Glob(p)
		if matches == nil {
			matches = []string{p}
		}
		for _, m := range matches {
			text, err := extract.FromFile(m)
			if err != nil {
				return docs, err
			}
			doc, err := s.Ingest(ctx, userID, filepath.Base(m), text)
			if err != nil {
				return docs, err
			}
			docs = append(docs, doc)
		}
	}
	if len(docs) == 0 {
		return nil, errors.New("no documents found")
	}
	return docs, nil
}

// Ask retrieves context from the user's documents and answers question.
// A user without documents gets domain.ErrEmptyCorpus.
func (s *RAGServiceImpl) Ask(ctx context.Context, userID, question string) (*Answer, error) {
	docs, err := s.store.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load documents: %w", err)
	}
	res := s.retriever.Retrieve(ctx, question, docs, s.topK)
	switch res.Status {
	case domain.StatusEmptyCorpus:
		return nil, domain.ErrEmptyCorpus
	case domain.StatusNoResult:
		return &Answer{Text: answer.NoResultAnswer, Status: res.Status, Sources: []domain.Source{}}, nil
	}

	contextText := ContextString(res.Candidates)
	text, err := s.generator.Generate(ctx, question, contextText)
	if err != nil {
		s.log.Warn("answer generation failed, using extractive answer", zap.Error(err))
		text, _ = answer.Extractive{}.Generate(ctx, question, contextText)
	}
	return &Answer{
		Text:       text,
		Status:     res.Status,
		Sources:    Sources(res.Candidates),
		Candidates: res.Candidates,
	}, nil
}

// Search returns ranked candidates without generating an answer. The result
// is returned even on error: domain.ErrEmptyCorpus when the user has no
// documents, domain.ErrNoRelevantResult when every ranker came up empty.
func (s *RAGServiceImpl) Search(ctx context.Context, userID, question string, topK int) (domain.Result, error) {
	docs, err := s.store.ListByUser(ctx, userID)
	if err != nil {
		return domain.Result{}, fmt.Errorf("load documents: %w", err)
	}
	if topK <= 0 {
		topK = s.topK
	}
	res := s.retriever.Retrieve(ctx, question, docs, topK)
	switch res.Status {
	case domain.StatusEmptyCorpus:
		return res, domain.ErrEmptyCorpus
	case domain.StatusNoResult:
		return res, fmt.Errorf("search %q: %w", question, domain.ErrNoRelevantResult)
	}
	return res, nil
}

// Rerank orders the chunks of a single document by keyword overlap.
func (s *RAGServiceImpl) Rerank(question string, chunks []string, topK int) []domain.Candidate {
	if topK <= 0 {
		topK = s.topK
	}
	return ranking.Keyword(question, chunks, topK)
}

// Documents lists the user's documents.
func (s *RAGServiceImpl) Documents(ctx context.Context, userID string) ([]domain.Document, error) {
	return s.store.ListByUser(ctx, userID)
}

// DeleteDocument removes one of the user's documents.
func (s *RAGServiceImpl) DeleteDocument(ctx context.Context, userID, id string) error {
	return s.store.Delete(ctx, userID, id)
}
