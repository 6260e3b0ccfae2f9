package embedding

import (
	"go.uber.org/zap"

	"askdocs/internal/embedding/fallback"
	"askdocs/internal/embedding/remote"
	"askdocs/internal/embedding/tfidf"
)

var (
	_ Provider = (*remote.Embedder)(nil)
	_ Provider = (*tfidf.Embedder)(nil)
	_ Provider = (*fallback.Embedder)(nil)

	_ CorpusFitter = (*tfidf.Embedder)(nil)
)

// Options describes every tier a factory may build.
type Options struct {
	// Preferred is the configured tier before credential checks.
	Preferred Tier
	// Backend is the remote backend, nil when no credential is available.
	Backend remote.Backend
	Remote  remote.Config
	Sparse  tfidf.Config
	// HashDimension and HashMinRelevance configure the last-resort tier.
	HashDimension    int
	HashMinRelevance float64
	Log              *zap.Logger
}

// NewFactory resolves the tier once and returns a factory for it. The remote
// embedder holds no fit state and is shared; the other tiers are built fresh
// for every session.
func NewFactory(opts Options) (Factory, Tier) {
	log := opts.Log
	if log == nil {
		log = zap.NewNop()
	}
	tier := SelectTier(opts.Preferred, opts.Backend != nil)
	if tier != opts.Preferred {
		log.Warn("embedding tier degraded",
			zap.Stringer("preferred", opts.Preferred),
			zap.Stringer("selected", tier))
	}

	switch tier {
	case TierRemote:
		shared := remote.NewEmbedder(opts.Backend, opts.Remote, log.Named("remote"))
		return func() Provider { return shared }, tier
	case TierSparse:
		return func() Provider {
			return tfidf.NewEmbedder(opts.Sparse, log.Named("tfidf"))
		}, tier
	default:
		return func() Provider {
			e := fallback.NewEmbedder(opts.HashDimension)
			if opts.HashMinRelevance > 0 {
				e.WithMinRelevance(opts.HashMinRelevance)
			}
			return e
		}, tier
	}
}
