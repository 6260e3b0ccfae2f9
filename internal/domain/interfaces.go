package domain

import (
	"errors"
	"time"
)

var (
	// ErrEmptyCorpus is returned when a user has no documents to search.
	ErrEmptyCorpus = errors.New("no documents found, upload some documents first")
	// ErrNoRelevantResult marks a search that exhausted every fallback without a match.
	ErrNoRelevantResult = errors.New("no relevant information found")
	// ErrNotFound is returned by document stores for unknown ids.
	ErrNotFound = errors.New("document not found")
)

// Document is a stored, already chunked and embedded text owned by one user.
// Chunks and Embeddings are parallel: Embeddings[i] is the vector of Chunks[i].
type Document struct {
	ID         string      `json:"id" bson:"_id"`
	UserID     string      `json:"user_id" bson:"user_id"`
	Filename   string      `json:"filename" bson:"filename"`
	Chunks     []string    `json:"chunks" bson:"chunks"`
	Embeddings [][]float64 `json:"embeddings" bson:"embeddings"`
	Provider   string      `json:"provider" bson:"provider"`
	CreatedAt  time.Time   `json:"created_at" bson:"created_at"`
}

// Method records which ranker produced a candidate.
type Method string

const (
	MethodVector  Method = "vector"
	MethodKeyword Method = "keyword"
)

// Candidate is a chunk selected for a query together with its relevance score.
type Candidate struct {
	DocumentID string  `json:"document_id"`
	Filename   string  `json:"filename"`
	ChunkIndex int     `json:"chunk_index"`
	Content    string  `json:"content"`
	Score      float64 `json:"relevance_score"`
	Method     Method  `json:"method"`
}

// Source is the caller-facing projection of a candidate.
type Source struct {
	Filename   string  `json:"filename"`
	ChunkIndex int     `json:"chunk_index"`
	Score      float64 `json:"relevance_score"`
}

// Status is the terminal state of a retrieval.
type Status int

const (
	StatusFound Status = iota
	StatusNoResult
	StatusEmptyCorpus
)

func (s Status) String() string {
	switch s {
	case StatusFound:
		return "found"
	case StatusNoResult:
		return "no_result"
	case StatusEmptyCorpus:
		return "empty_corpus"
	default:
		return "unknown"
	}
}

// Result is the outcome of one retrieval across a user's documents.
type Result struct {
	Status     Status
	Candidates []Candidate
}

// Chunker splits raw text into retrieval units.
type Chunker interface {
	Chunk(text string) []string
}
