package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_MissingFileGivesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "tfidf", cfg.Embedder.Type)
	assert.Equal(t, 500, cfg.Chunker.Size)
	assert.Equal(t, 5, cfg.Retrieval.TopK)
	assert.Equal(t, 3, cfg.Retrieval.SecondPassPerDocument)
	assert.Equal(t, 1000, cfg.Embedder.TFIDF.MaxFeatures)
	assert.Equal(t, 0.95, cfg.Embedder.TFIDF.MaxDF)
	assert.Equal(t, "memory", cfg.Store.Type)
	assert.Equal(t, "extractive", cfg.Answer.Type)
}

func TestLoad_AppliesProviderDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	yml := `
embedder:
  type: gemini
  concurrency: 4
  cache:
    addr: localhost:6379
store:
  type: mongo
answer:
  type: openai
`
	require.NoError(t, os.WriteFile(path, []byte(yml), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.NotNil(t, cfg.Embedder.Gemini)
	assert.Equal(t, "GEMINI_API_KEY", cfg.Embedder.Gemini.APIKeyEnv)
	assert.Equal(t, "text-embedding-004", cfg.Embedder.Gemini.Model)
	assert.Equal(t, 768, cfg.Embedder.Dimension)
	assert.Equal(t, 0.1, cfg.Embedder.MinRelevance)
	assert.Equal(t, 4, cfg.Embedder.Concurrency)
	assert.Equal(t, 24, cfg.Embedder.Cache.TTLHours)
	require.NotNil(t, cfg.Store.Mongo)
	assert.Equal(t, "MONGO_URL", cfg.Store.Mongo.URIEnv)
	assert.Equal(t, "askmydocs", cfg.Store.Mongo.Database)
	assert.Equal(t, "gpt-4o-mini", cfg.Answer.Model)
}

func TestLoad_OpenAIDimensionFollowsRequestedWidth(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yml := `
embedder:
  type: openai
  openai:
    dimensions: 256
`
	require.NoError(t, os.WriteFile(path, []byte(yml), 0o644))
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 256, cfg.Embedder.Dimension)
	assert.Equal(t, 256, cfg.Embedder.OpenAI.Dimensions)

	// an explicit embedder.dimension still wins
	yml = `
embedder:
  type: openai
  dimension: 512
  openai:
    dimensions: 256
`
	require.NoError(t, os.WriteFile(path, []byte(yml), 0o644))
	cfg, err = Load(path)
	require.NoError(t, err)
	assert.Equal(t, 512, cfg.Embedder.Dimension)

	require.NoError(t, os.WriteFile(path, []byte("embedder:\n  type: openai\n"), 0o644))
	cfg, err = Load(path)
	require.NoError(t, err)
	assert.Equal(t, 1536, cfg.Embedder.Dimension)
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("embedder: [oops"), 0o644))
	_, err := Load(path)
	assert.Error(t, err)
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	cfg := defaultConfig()
	cfg.Embedder.Type = "openai"
	applyConfigDefaults(cfg)
	require.NoError(t, Save(path, cfg))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg.Embedder.Type, loaded.Embedder.Type)
	assert.Equal(t, cfg.Embedder.OpenAI, loaded.Embedder.OpenAI)
	assert.Equal(t, cfg.Embedder.Dimension, loaded.Embedder.Dimension)
	assert.Equal(t, cfg.Retrieval, loaded.Retrieval)
	assert.Equal(t, cfg.Chunker, loaded.Chunker)
}

func TestLoadDefault_WritesUserConfig(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { _ = os.Chdir(wd) })

	cfg, path, err := LoadDefault()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, ".config", "askdocs", "config.yaml"), path)
	assert.FileExists(t, path)
	assert.Equal(t, "tfidf", cfg.Embedder.Type)
}
