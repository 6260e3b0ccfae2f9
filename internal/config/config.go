package config

import (
	"errors"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"askdocs/internal/logging"
)

// GeminiEmbedderConfig holds configuration for the Gemini embedder.
type GeminiEmbedderConfig struct {
	BaseURL     string `yaml:"base_url"`
	APIKeyEnv   string `yaml:"api_key_env"`
	Model       string `yaml:"model"`
	TimeoutSecs int    `yaml:"timeout_secs"`
	MaxRetries  int    `yaml:"max_retries"`
}

// OpenAIEmbedderConfig holds configuration for the OpenAI-compatible embedder.
type OpenAIEmbedderConfig struct {
	BaseURL    string `yaml:"base_url"`
	APIKeyEnv  string `yaml:"api_key_env"`
	Model      string `yaml:"model"`
	Dimensions int    `yaml:"dimensions"`
}

// TFIDFConfig tunes the local sparse embedder.
type TFIDFConfig struct {
	MaxFeatures  int     `yaml:"max_features"`
	MaxDF        float64 `yaml:"max_df"`
	MinRelevance float64 `yaml:"min_relevance"`
}

// HashConfig tunes the last-resort embedder.
type HashConfig struct {
	Dimension    int     `yaml:"dimension"`
	MinRelevance float64 `yaml:"min_relevance"`
}

// CacheConfig enables a Redis cache in front of remote embedders.
type CacheConfig struct {
	Addr      string `yaml:"addr"`
	Password  string `yaml:"password"`
	DB        int    `yaml:"db"`
	TTLHours  int    `yaml:"ttl_hours"`
	KeyPrefix string `yaml:"key_prefix"`
}

// EmbedderConfig selects and configures the text embedder implementation.
// Type is one of gemini, openai, tfidf or hash.
type EmbedderConfig struct {
	Type         string                `yaml:"type"`
	Dimension    int                   `yaml:"dimension"`
	MinRelevance float64               `yaml:"min_relevance"`
	Concurrency  int                   `yaml:"concurrency"`
	Gemini       *GeminiEmbedderConfig `yaml:"gemini,omitempty"`
	OpenAI       *OpenAIEmbedderConfig `yaml:"openai,omitempty"`
	TFIDF        TFIDFConfig           `yaml:"tfidf"`
	Hash         HashConfig            `yaml:"hash"`
	Cache        *CacheConfig          `yaml:"cache,omitempty"`
}

// ChunkerConfig configures how documents are split into chunks.
type ChunkerConfig struct {
	Size int `yaml:"size"`
}

// StoreConfig selects and configures the document store implementation.
type StoreConfig struct {
	Type   string        `yaml:"type"`
	Mongo  *MongoConfig  `yaml:"mongo,omitempty"`
	Qdrant *QdrantConfig `yaml:"qdrant,omitempty"`
}

// MongoConfig contains connection details for a MongoDB document store.
type MongoConfig struct {
	URIEnv      string `yaml:"uri_env"`
	Database    string `yaml:"database"`
	Collection  string `yaml:"collection"`
	TimeoutSecs int    `yaml:"timeout_secs"`
}

// QdrantConfig contains connection details for a Qdrant document store.
type QdrantConfig struct {
	URL         string `yaml:"url"`
	APIKey      string `yaml:"api_key"`
	Collection  string `yaml:"collection"`
	TimeoutSecs int    `yaml:"timeout_secs"`
}

// AnswerConfig selects the answer generator: openai or extractive.
type AnswerConfig struct {
	Type        string  `yaml:"type"`
	BaseURL     string  `yaml:"base_url"`
	APIKeyEnv   string  `yaml:"api_key_env"`
	Model       string  `yaml:"model"`
	Temperature float32 `yaml:"temperature"`
}

// RetrievalConfig tunes the query path.
type RetrievalConfig struct {
	TopK                  int `yaml:"top_k"`
	SecondPassPerDocument int `yaml:"second_pass_per_document"`
}

// AppConfig is the root application configuration structure.
type AppConfig struct {
	User      string          `yaml:"user"`
	Embedder  EmbedderConfig  `yaml:"embedder"`
	Chunker   ChunkerConfig   `yaml:"chunker"`
	Store     StoreConfig     `yaml:"store"`
	Answer    AnswerConfig    `yaml:"answer"`
	Retrieval RetrievalConfig `yaml:"retrieval"`
	Log       logging.Config  `yaml:"log"`
}

// Load reads a config from a specified path. If the file does not exist, returns defaults.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			cfg := defaultConfig()
			return cfg, nil
		}
		return nil, err
	}
	var cfg AppConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	applyConfigDefaults(&cfg)
	return &cfg, nil
}

// LoadDefault tries ./config.yaml first, then ~/.config/askdocs/config.yaml.
// If neither exists, it writes defaults to ~/.config/askdocs/config.yaml and returns them.
func LoadDefault() (*AppConfig, string, error) {
	cwdPath := "config.yaml"
	if _, err := os.Stat(cwdPath); err == nil {
		cfg, err := Load(cwdPath)
		return cfg, cwdPath, err
	}
	userPath, err := defaultUserConfigPath()
	if err != nil {
		return nil, "", err
	}
	if _, err := os.Stat(userPath); err == nil {
		cfg, err := Load(userPath)
		return cfg, userPath, err
	}
	cfg := defaultConfig()
	if err := Save(userPath, cfg); err != nil {
		return nil, "", err
	}
	return cfg, userPath, nil
}

// Save writes the config to the given path, creating directories as needed.
func Save(path string, cfg *AppConfig) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func defaultUserConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "askdocs", "config.yaml"), nil
}

func defaultConfig() *AppConfig {
	cfg := &AppConfig{
		Embedder: EmbedderConfig{Type: "tfidf"},
		Store:    StoreConfig{Type: "memory"},
		Answer:   AnswerConfig{Type: "extractive"},
	}
	applyConfigDefaults(cfg)
	return cfg
}

func applyConfigDefaults(cfg *AppConfig) {
	if cfg.User == "" {
		cfg.User = "local"
	}
	if cfg.Chunker.Size == 0 {
		cfg.Chunker.Size = 500
	}
	if cfg.Retrieval.TopK == 0 {
		cfg.Retrieval.TopK = 5
	}
	if cfg.Retrieval.SecondPassPerDocument == 0 {
		cfg.Retrieval.SecondPassPerDocument = 3
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "console"
	}

	e := &cfg.Embedder
	if e.Concurrency == 0 {
		e.Concurrency = 1
	}
	if e.TFIDF.MaxFeatures == 0 {
		e.TFIDF.MaxFeatures = 1000
	}
	if e.TFIDF.MaxDF == 0 {
		e.TFIDF.MaxDF = 0.95
	}
	if e.TFIDF.MinRelevance == 0 {
		e.TFIDF.MinRelevance = 0.05
	}
	if e.Hash.Dimension == 0 {
		e.Hash.Dimension = 1000
	}
	if e.Hash.MinRelevance == 0 {
		e.Hash.MinRelevance = 0.05
	}
	switch e.Type {
	case "gemini":
		if e.Gemini == nil {
			e.Gemini = &GeminiEmbedderConfig{}
		}
		if e.Gemini.BaseURL == "" {
			e.Gemini.BaseURL = "https://generativelanguage.googleapis.com/v1beta"
		}
		if e.Gemini.APIKeyEnv == "" {
			e.Gemini.APIKeyEnv = "GEMINI_API_KEY"
		}
		if e.Gemini.Model == "" {
			e.Gemini.Model = "text-embedding-004"
		}
		if e.Gemini.TimeoutSecs == 0 {
			e.Gemini.TimeoutSecs = 30
		}
		if e.Dimension == 0 {
			e.Dimension = 768
		}
	case "openai":
		if e.OpenAI == nil {
			e.OpenAI = &OpenAIEmbedderConfig{}
		}
		if e.OpenAI.BaseURL == "" {
			e.OpenAI.BaseURL = "https://api.openai.com/v1"
		}
		if e.OpenAI.APIKeyEnv == "" {
			e.OpenAI.APIKeyEnv = "OPENAI_API_KEY"
		}
		if e.OpenAI.Model == "" {
			e.OpenAI.Model = "text-embedding-3-small"
		}
		if e.Dimension == 0 {
			// a shortened openai width is the width the vectors will have
			e.Dimension = e.OpenAI.Dimensions
		}
		if e.Dimension == 0 {
			e.Dimension = 1536
		}
	}
	if e.MinRelevance == 0 {
		e.MinRelevance = 0.1
	}
	if e.Cache != nil {
		if e.Cache.TTLHours == 0 {
			e.Cache.TTLHours = 24
		}
		if e.Cache.KeyPrefix == "" {
			e.Cache.KeyPrefix = "emb:"
		}
	}

	if cfg.Store.Type == "mongo" {
		if cfg.Store.Mongo == nil {
			cfg.Store.Mongo = &MongoConfig{}
		}
		if cfg.Store.Mongo.URIEnv == "" {
			cfg.Store.Mongo.URIEnv = "MONGO_URL"
		}
		if cfg.Store.Mongo.Database == "" {
			cfg.Store.Mongo.Database = "askmydocs"
		}
		if cfg.Store.Mongo.Collection == "" {
			cfg.Store.Mongo.Collection = "documents"
		}
		if cfg.Store.Mongo.TimeoutSecs == 0 {
			cfg.Store.Mongo.TimeoutSecs = 10
		}
	}

	if cfg.Answer.Type == "" {
		cfg.Answer.Type = "extractive"
	}
	if cfg.Answer.Type == "openai" {
		if cfg.Answer.APIKeyEnv == "" {
			cfg.Answer.APIKeyEnv = "OPENAI_API_KEY"
		}
		if cfg.Answer.Model == "" {
			cfg.Answer.Model = "gpt-4o-mini"
		}
	}
}
