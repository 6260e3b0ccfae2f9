package ranking

import (
	"sort"
	"strings"

	"askdocs/internal/domain"
)

// PhraseBonus is added when the whole query occurs verbatim in a chunk.
const PhraseBonus = 0.5

// Keyword ranks chunks by the share of distinct query words they contain,
// plus PhraseBonus for a verbatim match. Zero scores are dropped.
func Keyword(query string, chunks []string, topK int) []domain.Candidate {
	lowerQuery := strings.ToLower(query)
	q := wordSet(lowerQuery)

	pairs := make([]scored, len(chunks))
	for i, ch := range chunks {
		lower := strings.ToLower(ch)
		score := 0.0
		if len(q) > 0 {
			c := wordSet(lower)
			overlap := 0
			for w := range q {
				if _, ok := c[w]; ok {
					overlap++
				}
			}
			score = float64(overlap) / float64(len(q))
		}
		if strings.Contains(lower, lowerQuery) {
			score += PhraseBonus
		}
		pairs[i] = scored{idx: i, score: score}
	}

	sort.SliceStable(pairs, func(i, j int) bool { return pairs[i].score > pairs[j].score })
	if topK > 0 && len(pairs) > topK {
		pairs = pairs[:topK]
	}
	out := make([]domain.Candidate, 0, len(pairs))
	for _, p := range pairs {
		if p.score <= 0 {
			continue
		}
		out = append(out, domain.Candidate{
			ChunkIndex: p.idx,
			Content:    chunks[p.idx],
			Score:      p.score,
			Method:     domain.MethodKeyword,
		})
	}
	return out
}

func wordSet(lower string) map[string]struct{} {
	words := strings.Fields(lower)
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}
