package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"time"

	"github.com/google/uuid"

	"askdocs/internal/domain"
)

// Storage is a minimal REST client keeping one Qdrant point per document.
// Stored embeddings vary in width between providers, so they live in the
// payload and every point carries the same one-dimensional marker vector.
type Storage struct {
	url        string
	apiKey     string
	collection string
	client     *http.Client
}

type Config struct {
	URL        string
	APIKey     string
	Collection string
	Timeout    time.Duration
}

func NewStorage(cfg Config) *Storage {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	if cfg.Collection == "" {
		cfg.Collection = "documents"
	}
	return &Storage{
		url:        cfg.URL,
		apiKey:     cfg.APIKey,
		collection: cfg.Collection,
		client:     &http.Client{Timeout: timeout},
	}
}

type payload struct {
	UserID     string      `json:"user_id"`
	Filename   string      `json:"filename"`
	Chunks     []string    `json:"chunks"`
	Embeddings [][]float64 `json:"embeddings"`
	Provider   string      `json:"provider"`
	CreatedAt  time.Time   `json:"created_at"`
}

type point struct {
	ID      string  `json:"id"`
	Payload payload `json:"payload"`
}

// Init creates the collection and the user_id payload index unless the
// collection is already there. Safe to call on every start.
func (s *Storage) Init(ctx context.Context) error {
	exists, err := s.collectionExists(ctx)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}
	body := map[string]any{
		"vectors": map[string]any{
			"size":     1,
			"distance": "Cosine",
		},
	}
	err = s.do(ctx, http.MethodPut, s.collectionURL(""), body, nil)
	// 409: another process created it between the check and the create
	var se *statusError
	if err != nil && !(errors.As(err, &se) && se.code == http.StatusConflict) {
		return err
	}
	index := map[string]any{"field_name": "user_id", "field_schema": "keyword"}
	return s.do(ctx, http.MethodPut, s.collectionURL("/index?wait=true"), index, nil)
}

func (s *Storage) Save(ctx context.Context, doc *domain.Document) error {
	if doc == nil {
		return errors.New("nil document")
	}
	if len(doc.Chunks) != len(doc.Embeddings) {
		return errors.New("chunks and embeddings length mismatch")
	}
	if doc.ID == "" {
		doc.ID = uuid.NewString()
	}
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = time.Now().UTC()
	}
	body := map[string]any{"points": []map[string]any{{
		"id":     doc.ID,
		"vector": []float64{1},
		"payload": payload{
			UserID:     doc.UserID,
			Filename:   doc.Filename,
			Chunks:     doc.Chunks,
			Embeddings: doc.Embeddings,
			Provider:   doc.Provider,
			CreatedAt:  doc.CreatedAt,
		},
	}}}
	return s.do(ctx, http.MethodPut, s.collectionURL("/points?wait=true"), body, nil)
}

func (s *Storage) ListByUser(ctx context.Context, userID string) ([]domain.Document, error) {
	docs := []domain.Document{}
	var offset any
	for {
		req := map[string]any{
			"filter":       userFilter(userID),
			"limit":        256,
			"with_payload": true,
			"with_vector":  false,
		}
		if offset != nil {
			req["offset"] = offset
		}
		var resp struct {
			Result struct {
				Points         []point `json:"points"`
				NextPageOffset any     `json:"next_page_offset"`
			} `json:"result"`
		}
		if err := s.do(ctx, http.MethodPost, s.collectionURL("/points/scroll"), req, &resp); err != nil {
			return nil, err
		}
		for _, p := range resp.Result.Points {
			docs = append(docs, toDocument(p))
		}
		if resp.Result.NextPageOffset == nil {
			break
		}
		offset = resp.Result.NextPageOffset
	}
	sort.SliceStable(docs, func(i, j int) bool { return docs[i].CreatedAt.Before(docs[j].CreatedAt) })
	return docs, nil
}

func (s *Storage) Get(ctx context.Context, userID, id string) (*domain.Document, error) {
	req := map[string]any{"ids": []string{id}, "with_payload": true}
	var resp struct {
		Result []point `json:"result"`
	}
	if err := s.do(ctx, http.MethodPost, s.collectionURL("/points"), req, &resp); err != nil {
		return nil, err
	}
	for _, p := range resp.Result {
		if p.Payload.UserID == userID {
			d := toDocument(p)
			return &d, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (s *Storage) Delete(ctx context.Context, userID, id string) error {
	if _, err := s.Get(ctx, userID, id); err != nil {
		return err
	}
	req := map[string]any{"points": []string{id}}
	return s.do(ctx, http.MethodPost, s.collectionURL("/points/delete?wait=true"), req, nil)
}

func userFilter(userID string) map[string]any {
	return map[string]any{
		"must": []map[string]any{{
			"key":   "user_id",
			"match": map[string]any{"value": userID},
		}},
	}
}

func toDocument(p point) domain.Document {
	return domain.Document{
		ID:         p.ID,
		UserID:     p.Payload.UserID,
		Filename:   p.Payload.Filename,
		Chunks:     p.Payload.Chunks,
		Embeddings: p.Payload.Embeddings,
		Provider:   p.Payload.Provider,
		CreatedAt:  p.Payload.CreatedAt,
	}
}

func (s *Storage) collectionURL(suffix string) string {
	return fmt.Sprintf("%s/collections/%s%s", s.url, s.collection, suffix)
}

func (s *Storage) do(ctx context.Context, method, url string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return err
	}
	if reader != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if s.apiKey != "" {
		req.Header.Set("api-key", s.apiKey)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return &statusError{method: method, url: url, code: resp.StatusCode, status: resp.Status}
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

func (s *Storage) collectionExists(ctx context.Context) (bool, error) {
	var resp struct {
		Result struct {
			Exists bool `json:"exists"`
		} `json:"result"`
	}
	if err := s.do(ctx, http.MethodGet, s.collectionURL("/exists"), nil, &resp); err != nil {
		return false, err
	}
	return resp.Result.Exists, nil
}

type statusError struct {
	method string
	url    string
	code   int
	status string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("qdrant %s %s failed: %s", e.method, e.url, e.status)
}
