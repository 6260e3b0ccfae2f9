package embedding

import (
	"fmt"
	"strings"
)

// Tier is a rung of the embedding degradation ladder.
type Tier int

const (
	TierRemote Tier = iota
	TierSparse
	TierHash
)

func (t Tier) String() string {
	switch t {
	case TierRemote:
		return "remote"
	case TierSparse:
		return "tfidf"
	case TierHash:
		return "hash"
	default:
		return fmt.Sprintf("tier(%d)", int(t))
	}
}

// ParseTier maps a configured embedder type onto a tier.
func ParseTier(name string) (Tier, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "gemini", "openai", "remote":
		return TierRemote, nil
	case "tfidf", "sparse", "":
		return TierSparse, nil
	case "hash":
		return TierHash, nil
	default:
		return 0, fmt.Errorf("unknown embedder: %s", name)
	}
}

// SelectTier picks the tier to build from the configured preference and
// whether a remote credential is present. A remote preference without a
// credential degrades to the sparse tier.
func SelectTier(preferred Tier, hasCredential bool) Tier {
	switch preferred {
	case TierRemote:
		if hasCredential {
			return TierRemote
		}
		return TierSparse
	case TierSparse, TierHash:
		return preferred
	default:
		return TierHash
	}
}

// Factory builds a fresh provider per session. Sparse providers returned by
// a factory never share fit state with one another.
type Factory func() Provider
