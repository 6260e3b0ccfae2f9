// Package cache memoizes remote embeddings in Redis.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"askdocs/internal/embedding/remote"
)

// Config tunes the cache.
type Config struct {
	TTL       time.Duration
	KeyPrefix string
	// Model is mixed into keys so a model change never serves stale vectors.
	Model string
}

// Backend wraps a remote backend with a Redis read-through cache. Redis
// errors are logged and bypassed; they never fail an embedding.
type Backend struct {
	next  remote.Backend
	redis *goredis.Client
	cfg   Config
	log   *zap.Logger
}

var _ remote.Backend = (*Backend)(nil)

// New wraps next. A nil client disables caching.
func New(next remote.Backend, client *goredis.Client, cfg Config, log *zap.Logger) *Backend {
	if cfg.TTL <= 0 {
		cfg.TTL = 24 * time.Hour
	}
	if cfg.KeyPrefix == "" {
		cfg.KeyPrefix = "emb:"
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Backend{next: next, redis: client, cfg: cfg, log: log}
}

// Name returns the wrapped backend's name.
func (b *Backend) Name() string { return b.next.Name() }

// Embed serves from Redis when possible and stores fresh results.
func (b *Backend) Embed(ctx context.Context, text string, intent remote.Intent) ([]float64, error) {
	if b.redis == nil {
		return b.next.Embed(ctx, text, intent)
	}
	key := b.key(text, intent)

	data, err := b.redis.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var vec []float64
		if err := json.Unmarshal(data, &vec); err == nil && len(vec) > 0 {
			b.log.Debug("embedding cache hit", zap.String("key", key))
			return vec, nil
		}
	case !errors.Is(err, goredis.Nil):
		b.log.Warn("embedding cache read failed", zap.Error(err))
	}

	vec, err := b.next.Embed(ctx, text, intent)
	if err != nil {
		return nil, err
	}
	if payload, err := json.Marshal(vec); err == nil {
		if err := b.redis.Set(ctx, key, payload, b.cfg.TTL).Err(); err != nil {
			b.log.Warn("embedding cache write failed", zap.Error(err))
		}
	}
	return vec, nil
}

func (b *Backend) key(text string, intent remote.Intent) string {
	h := sha256.Sum256([]byte(b.cfg.Model + "|" + string(intent) + "|" + text))
	return b.cfg.KeyPrefix + hex.EncodeToString(h[:])
}
