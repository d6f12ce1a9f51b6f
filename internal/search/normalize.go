package search

import "math"

// Normalize maps a method-native raw score onto [0,1].
//
// Semantic similarities (1/(1+distance)), keyword cosine scores, and
// exact hits are already in range and only get clamped. Fuzzy ratios
// arrive as ratio/100 and additionally pass through a square root,
// which spreads the high-similarity band the threshold admits
// (0.70–1.00) instead of bunching everything near the bottom of it.
func Normalize(method Method, raw float64) float64 {
	s := clamp01(raw)
	if method == MethodFuzzy {
		s = math.Sqrt(s)
	}
	return s
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
