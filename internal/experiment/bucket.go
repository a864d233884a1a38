package experiment

import (
	"github.com/cespare/xxhash/v2"
)

// hashDraw maps a subject+experiment pair onto [0, 1) deterministically, so
// the same subject lands in the same bucket on every call and across
// restarts. The top 53 bits of the hash keep the full float64 mantissa.
func hashDraw(subjectID, experimentID string) float64 {
	h := xxhash.New()
	_, _ = h.WriteString(subjectID)
	_, _ = h.WriteString(":")
	_, _ = h.WriteString(experimentID)
	return float64(h.Sum64()>>11) / (1 << 53)
}

// pickVariant walks cumulative weight boundaries in variant order and
// returns the first variant whose boundary exceeds the threshold. If
// floating point error leaves the threshold past every boundary, the last
// variant wins; selection never fails for a non-empty variant list.
func pickVariant(variants []string, weights []float64, threshold float64) string {
	norm := normalizeWeights(len(variants), weights)

	var cum float64
	for i, v := range variants {
		cum += norm[i]
		if threshold < cum {
			return v
		}
	}
	return variants[len(variants)-1]
}

// normalizeWeights scales weights to sum to 1. Absent, mismatched, or
// non-positive weight lists fall back to a uniform split.
func normalizeWeights(n int, weights []float64) []float64 {
	if len(weights) != n {
		return uniformWeights(n)
	}

	var sum float64
	for _, w := range weights {
		if w < 0 {
			return uniformWeights(n)
		}
		sum += w
	}
	if sum <= 0 {
		return uniformWeights(n)
	}

	out := make([]float64, n)
	for i, w := range weights {
		out[i] = w / sum
	}
	return out
}

func uniformWeights(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = 1 / float64(n)
	}
	return out
}
