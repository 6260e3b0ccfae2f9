package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"askdocs/internal/answer"
	"askdocs/internal/chunker"
	"askdocs/internal/config"
	"askdocs/internal/docstore"
	"askdocs/internal/docstore/memory"
	"askdocs/internal/docstore/mongodb"
	"askdocs/internal/docstore/qdrant"
	"askdocs/internal/embedding"
	"askdocs/internal/embedding/cache"
	"askdocs/internal/embedding/remote"
	"askdocs/internal/embedding/tfidf"
	"askdocs/internal/service"
)

// app holds the assembled components and whatever needs closing on exit.
type app struct {
	svc     *service.RAGServiceImpl
	tier    embedding.Tier
	closers []func(context.Context) error
}

func (a *app) Close(ctx context.Context) {
	for i := len(a.closers) - 1; i >= 0; i-- {
		_ = a.closers[i](ctx)
	}
}

func build(ctx context.Context, cfg *config.AppConfig, log *zap.Logger) (*app, error) {
	a := &app{}

	preferred, err := embedding.ParseTier(cfg.Embedder.Type)
	if err != nil {
		return nil, err
	}
	backend, err := buildBackend(cfg.Embedder, log, a)
	if err != nil {
		return nil, err
	}
	opts := embedding.Options{
		Preferred: preferred,
		Backend:   backend,
		Remote: remote.Config{
			Dimension:    cfg.Embedder.Dimension,
			MinRelevance: cfg.Embedder.MinRelevance,
			Concurrency:  cfg.Embedder.Concurrency,
		},
		Sparse: tfidf.Config{
			MaxFeatures:  cfg.Embedder.TFIDF.MaxFeatures,
			MaxDF:        cfg.Embedder.TFIDF.MaxDF,
			MinRelevance: cfg.Embedder.TFIDF.MinRelevance,
		},
		HashDimension:    cfg.Embedder.Hash.Dimension,
		HashMinRelevance: cfg.Embedder.Hash.MinRelevance,
		Log:              log.Named("embedding"),
	}
	factory, tier := embedding.NewFactory(opts)
	a.tier = tier

	store, err := buildStore(ctx, cfg.Store, a)
	if err != nil {
		a.Close(ctx)
		return nil, err
	}

	var gen answer.Generator
	switch cfg.Answer.Type {
	case "extractive", "":
		gen = answer.Extractive{}
	case "openai":
		g, err := answer.NewOpenAI(answer.OpenAIConfig{
			BaseURL:     cfg.Answer.BaseURL,
			APIKeyEnv:   cfg.Answer.APIKeyEnv,
			Model:       cfg.Answer.Model,
			Temperature: cfg.Answer.Temperature,
		})
		if errors.Is(err, answer.ErrMissingCredential) {
			log.Warn("answer generator has no credential, using extractive answers", zap.Error(err))
			gen = answer.Extractive{}
			break
		}
		if err != nil {
			a.Close(ctx)
			return nil, err
		}
		gen = g
	default:
		a.Close(ctx)
		return nil, fmt.Errorf("unknown answer generator: %s", cfg.Answer.Type)
	}

	retriever := service.NewRetriever(factory, cfg.Retrieval.SecondPassPerDocument, log.Named("retriever"))
	a.svc = service.NewRAGService(
		chunker.NewWordChunker(cfg.Chunker.Size),
		factory,
		store,
		retriever,
		gen,
		cfg.Retrieval.TopK,
		log.Named("service"),
	)
	return a, nil
}

// buildBackend returns nil without error when the configured remote service
// has no credential, leaving tier selection to the factory.
func buildBackend(cfg config.EmbedderConfig, log *zap.Logger, a *app) (remote.Backend, error) {
	var (
		backend remote.Backend
		model   string
	)
	switch cfg.Type {
	case "gemini":
		g, err := remote.NewGemini(remote.GeminiConfig{
			BaseURL:    cfg.Gemini.BaseURL,
			APIKeyEnv:  cfg.Gemini.APIKeyEnv,
			Model:      cfg.Gemini.Model,
			Timeout:    time.Duration(cfg.Gemini.TimeoutSecs) * time.Second,
			MaxRetries: cfg.Gemini.MaxRetries,
		})
		if errors.Is(err, remote.ErrMissingCredential) {
			log.Warn("gemini embedder unavailable", zap.Error(err))
			return nil, nil
		}
		if err != nil {
			return nil, err
		}
		backend, model = g, cfg.Gemini.Model
	case "openai":
		o, err := remote.NewOpenAI(remote.OpenAIConfig{
			BaseURL:    cfg.OpenAI.BaseURL,
			APIKeyEnv:  cfg.OpenAI.APIKeyEnv,
			Model:      cfg.OpenAI.Model,
			Dimensions: cfg.OpenAI.Dimensions,
		})
		if errors.Is(err, remote.ErrMissingCredential) {
			log.Warn("openai embedder unavailable", zap.Error(err))
			return nil, nil
		}
		if err != nil {
			return nil, err
		}
		backend, model = o, cfg.OpenAI.Model
	default:
		return nil, nil
	}

	if cfg.Cache != nil && cfg.Cache.Addr != "" {
		client := goredis.NewClient(&goredis.Options{
			Addr:     cfg.Cache.Addr,
			Password: cfg.Cache.Password,
			DB:       cfg.Cache.DB,
		})
		a.closers = append(a.closers, func(context.Context) error { return client.Close() })
		backend = cache.New(backend, client, cache.Config{
			TTL:       time.Duration(cfg.Cache.TTLHours) * time.Hour,
			KeyPrefix: cfg.Cache.KeyPrefix,
			Model:     model,
		}, log.Named("cache"))
	}
	return backend, nil
}

func buildStore(ctx context.Context, cfg config.StoreConfig, a *app) (docstore.Storage, error) {
	switch cfg.Type {
	case "memory", "":
		return memory.NewStorage(), nil
	case "mongo":
		if cfg.Mongo == nil {
			return nil, errors.New("mongo config missing")
		}
		st, err := mongodb.Connect(ctx, mongodb.Config{
			URI:            os.Getenv(cfg.Mongo.URIEnv),
			Database:       cfg.Mongo.Database,
			Collection:     cfg.Mongo.Collection,
			ConnectTimeout: time.Duration(cfg.Mongo.TimeoutSecs) * time.Second,
		})
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, st.Close)
		return st, nil
	case "qdrant":
		if cfg.Qdrant == nil {
			return nil, errors.New("qdrant config missing")
		}
		st := qdrant.NewStorage(qdrant.Config{
			URL:        cfg.Qdrant.URL,
			APIKey:     cfg.Qdrant.APIKey,
			Collection: cfg.Qdrant.Collection,
			Timeout:    time.Duration(cfg.Qdrant.TimeoutSecs) * time.Second,
		})
		if err := st.Init(ctx); err != nil {
			return nil, err
		}
		return st, nil
	default:
		return nil, fmt.Errorf("unknown document store: %s", cfg.Type)
	}
}
