package remote

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeBackend struct {
	mu      sync.Mutex
	fail    map[string]bool
	dim     int
	intents []Intent
	calls   atomic.Int32
}

func (f *fakeBackend) Name() string { return "fake" }

func (f *fakeBackend) Embed(_ context.Context, text string, intent Intent) ([]float64, error) {
	f.calls.Add(1)
	f.mu.Lock()
	f.intents = append(f.intents, intent)
	f.mu.Unlock()
	if f.fail[text] {
		return nil, errors.New("boom")
	}
	v := make([]float64, f.dim)
	v[0] = 1
	return v, nil
}

func tenTexts() []string {
	return []string{"t0", "t1", "t2", "t3", "t4", "t5", "t6", "t7", "t8", "t9"}
}

func TestEmbedDocuments_IsolatesFailures(t *testing.T) {
	for _, conc := range []int{1, 4} {
		b := &fakeBackend{dim: 8, fail: map[string]bool{"t2": true, "t5": true, "t7": true}}
		e := NewEmbedder(b, Config{Dimension: 8, Concurrency: conc}, nil)

		vecs := e.EmbedDocuments(context.Background(), tenTexts())

		require.Len(t, vecs, 10)
		for i, v := range vecs {
			require.Len(t, v, 8)
			zero := v[0] == 0
			switch i {
			case 2, 5, 7:
				assert.True(t, zero, "index %d should be zero (concurrency %d)", i, conc)
			default:
				assert.False(t, zero, "index %d should be embedded (concurrency %d)", i, conc)
			}
		}
		assert.EqualValues(t, 10, b.calls.Load())
	}
}

func TestEmbedDocuments_WrongWidthIsZero(t *testing.T) {
	b := &fakeBackend{dim: 4}
	e := NewEmbedder(b, Config{Dimension: 8}, nil)
	vecs := e.EmbedDocuments(context.Background(), []string{"a"})
	assert.Equal(t, make([]float64, 8), vecs[0])
}

func TestEmbed_IntentTags(t *testing.T) {
	b := &fakeBackend{dim: 3}
	e := NewEmbedder(b, Config{Dimension: 3}, nil)
	e.EmbedDocuments(context.Background(), []string{"doc"})
	e.EmbedQuery(context.Background(), "query")
	assert.Equal(t, []Intent{IntentDocument, IntentQuery}, b.intents)
}

func TestEmbedQuery_EmptyAndCancelled(t *testing.T) {
	b := &fakeBackend{dim: 3}
	e := NewEmbedder(b, Config{Dimension: 3}, nil)
	assert.Equal(t, []float64{0, 0, 0}, e.EmbedQuery(context.Background(), ""))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.Equal(t, []float64{0, 0, 0}, e.EmbedQuery(ctx, "query"))
	assert.Zero(t, b.calls.Load())
}

func TestNilBackendUsesFallback(t *testing.T) {
	e := NewEmbedder(nil, Config{Dimension: 4}, nil)
	assert.Equal(t, "hash", e.Name())
	assert.Equal(t, 4, e.Dimension())

	vecs := e.EmbedDocuments(context.Background(), []string{"b a", "c"})
	assert.Equal(t, [][]float64{{1, 1, 0, 0}, {0, 0, 1, 0}}, vecs)
	assert.Equal(t, []float64{1, 0, 0, 0}, e.EmbedQuery(context.Background(), "zzz"))
}

func TestDefaults(t *testing.T) {
	e := NewEmbedder(&fakeBackend{dim: DefaultDimension}, Config{}, nil)
	assert.Equal(t, DefaultDimension, e.Dimension())
	assert.Equal(t, DefaultMinRelevance, e.MinRelevance())
	assert.Equal(t, "fake", e.Name())
	assert.Empty(t, e.EmbedDocuments(context.Background(), nil))
}

func TestGemini_EmbedContent(t *testing.T) {
	var got geminiRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/models/text-embedding-004:embedContent", r.URL.Path)
		assert.Equal(t, "secret", r.URL.Query().Get("key"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"embedding":{"values":[0.1,0.2,0.3]}}`))
	}))
	defer srv.Close()
	t.Setenv("TEST_GEMINI_KEY", "secret")

	g, err := NewGemini(GeminiConfig{BaseURL: srv.URL, APIKeyEnv: "TEST_GEMINI_KEY"})
	require.NoError(t, err)

	v, err := g.Embed(context.Background(), "hello", IntentQuery)
	require.NoError(t, err)
	assert.Equal(t, []float64{0.1, 0.2, 0.3}, v)
	assert.Equal(t, "models/text-embedding-004", got.Model)
	assert.Equal(t, "RETRIEVAL_QUERY", got.TaskType)
	require.Len(t, got.Content.Parts, 1)
	assert.Equal(t, "hello", got.Content.Parts[0].Text)
}

func TestGemini_RetriesThenFails(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()
	t.Setenv("TEST_GEMINI_KEY", "secret")

	g, err := NewGemini(GeminiConfig{BaseURL: srv.URL, APIKeyEnv: "TEST_GEMINI_KEY", MaxRetries: 1})
	require.NoError(t, err)

	_, err = g.Embed(context.Background(), "hello", IntentDocument)
	assert.Error(t, err)
	assert.EqualValues(t, 2, hits.Load())
}

func TestGemini_ClientErrorNotRetried(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()
	t.Setenv("TEST_GEMINI_KEY", "secret")

	g, err := NewGemini(GeminiConfig{BaseURL: srv.URL, APIKeyEnv: "TEST_GEMINI_KEY", MaxRetries: 3})
	require.NoError(t, err)
	_, err = g.Embed(context.Background(), "hello", IntentDocument)
	assert.Error(t, err)
	assert.EqualValues(t, 1, hits.Load())
}

func TestGemini_MalformedResponseBecomesZeroVector(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"embedding":{}}`))
	}))
	defer srv.Close()
	t.Setenv("TEST_GEMINI_KEY", "secret")

	g, err := NewGemini(GeminiConfig{BaseURL: srv.URL, APIKeyEnv: "TEST_GEMINI_KEY"})
	require.NoError(t, err)
	e := NewEmbedder(g, Config{Dimension: 3}, nil)
	assert.Equal(t, [][]float64{{0, 0, 0}}, e.EmbedDocuments(context.Background(), []string{"x"}))
}

func TestMissingCredential(t *testing.T) {
	t.Setenv("TEST_MISSING_KEY", "")
	_, err := NewGemini(GeminiConfig{APIKeyEnv: "TEST_MISSING_KEY"})
	assert.ErrorIs(t, err, ErrMissingCredential)
	_, err = NewOpenAI(OpenAIConfig{APIKeyEnv: "TEST_MISSING_KEY"})
	assert.ErrorIs(t, err, ErrMissingCredential)
}

func TestOpenAI_Embed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/embeddings", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "RETRIEVAL_DOCUMENT", body["user"])
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"object":"list","model":"text-embedding-3-small","data":[{"object":"embedding","index":0,"embedding":[0.5,0.25]}]}`))
	}))
	defer srv.Close()
	t.Setenv("TEST_OPENAI_KEY", "sk-test")

	o, err := NewOpenAI(OpenAIConfig{BaseURL: srv.URL, APIKeyEnv: "TEST_OPENAI_KEY"})
	require.NoError(t, err)
	assert.Equal(t, "openai", o.Name())

	v, err := o.Embed(context.Background(), "hello", IntentDocument)
	require.NoError(t, err)
	assert.Equal(t, []float64{0.5, 0.25}, v)
}
