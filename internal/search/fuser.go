package search

import (
	"math"
	"sort"

	"github.com/queryforge/schemafuse/internal/catalog"
)

// scoreEpsilon is the tolerance under which combined scores count as
// tied and the deterministic tie-break chain takes over.
const scoreEpsilon = 1e-9

// Fuser merges per-method candidate lists into one deduplicated,
// ranked result list. Fusion is pure: same inputs, same output.
type Fuser struct{}

// NewFuser creates a fuser.
func NewFuser() *Fuser {
	return &Fuser{}
}

// Fuse deduplicates candidates by entity key across methods, combines
// normalized scores per the configured policy, and returns results
// sorted by descending combined score, truncated to
// cfg.MaxCombinedResults.
//
// Methods are processed in canonical order and per-method lists are
// already sorted, so the first-seen sequence — the final tie-break —
// is deterministic.
//
// Ties within scoreEpsilon break by: more contributing methods, then
// exact present, then first-seen sequence.
func (f *Fuser) Fuse(perMethod map[Method][]*Candidate, cfg RetrievalConfig) []*FusedResult {
	grouped := make(map[catalog.Key]*FusedResult)
	var order []*FusedResult

	seq := 0
	for _, method := range CanonicalMethods() {
		for _, cand := range perMethod[method] {
			key := cand.Entity.Key()
			result, ok := grouped[key]
			if !ok {
				result = &FusedResult{
					Entity:          cand.Entity,
					PerMethodScores: make(map[Method]float64),
					seq:             seq,
				}
				seq++
				grouped[key] = result
				order = append(order, result)
			}

			score := Normalize(method, cand.RawScore)
			if existing, seen := result.PerMethodScores[method]; !seen || score > existing {
				if !seen {
					result.Methods = append(result.Methods, method)
				}
				result.PerMethodScores[method] = score
			}
		}
	}

	for _, result := range order {
		result.CombinedScore = combine(result.PerMethodScores, cfg)
	}

	sort.Slice(order, func(i, j int) bool {
		return compare(order[i], order[j])
	})

	if len(order) > cfg.MaxCombinedResults {
		order = order[:cfg.MaxCombinedResults]
	}
	if order == nil {
		order = []*FusedResult{}
	}
	return order
}

// combine merges per-method scores into one combined score in [0,1].
func combine(scores map[Method]float64, cfg RetrievalConfig) float64 {
	if len(scores) == 0 {
		return 0
	}

	switch cfg.policy() {
	case PolicyMean:
		var weightedSum, weightSum float64
		for method, s := range scores {
			w := cfg.weight(method)
			weightedSum += w * s
			weightSum += w
		}
		if weightSum == 0 {
			return 0
		}
		mean := weightedSum / weightSum
		// Exact-match floor: an exact name hit never ranks below its
		// own weighted contribution, whatever the other methods say.
		if s, ok := scores[MethodExact]; ok {
			if floor := cfg.weight(MethodExact) * s; floor > mean {
				mean = floor
			}
		}
		return clamp01(mean)

	default: // PolicyEvidence
		product := 1.0
		for method, s := range scores {
			product *= 1.0 - cfg.weight(method)*s
		}
		return clamp01(1.0 - product)
	}
}

// compare implements the deterministic ordering for fused results.
// Returns true if a should rank before b.
func compare(a, b *FusedResult) bool {
	if math.Abs(a.CombinedScore-b.CombinedScore) > scoreEpsilon {
		return a.CombinedScore > b.CombinedScore
	}

	// Tie-break 1: more contributing methods
	if len(a.Methods) != len(b.Methods) {
		return len(a.Methods) > len(b.Methods)
	}

	// Tie-break 2: exact match present
	_, aExact := a.PerMethodScores[MethodExact]
	_, bExact := b.PerMethodScores[MethodExact]
	if aExact != bExact {
		return aExact
	}

	// Tie-break 3: first-seen sequence (deterministic)
	return a.seq < b.seq
}

// Overlap computes the pairwise Jaccard overlap of entity keys between
// methods. Only methods present in perMethod appear in the matrix.
func Overlap(perMethod map[Method][]*Candidate) map[Method]map[Method]float64 {
	keySets := make(map[Method]map[catalog.Key]bool)
	var methods []Method
	for _, method := range CanonicalMethods() {
		candidates, ok := perMethod[method]
		if !ok {
			continue
		}
		keys := make(map[catalog.Key]bool, len(candidates))
		for _, c := range candidates {
			keys[c.Entity.Key()] = true
		}
		keySets[method] = keys
		methods = append(methods, method)
	}

	matrix := make(map[Method]map[Method]float64, len(methods))
	for _, a := range methods {
		matrix[a] = make(map[Method]float64, len(methods))
		for _, b := range methods {
			matrix[a][b] = jaccard(keySets[a], keySets[b])
		}
	}
	return matrix
}

func jaccard(a, b map[catalog.Key]bool) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 1.0
	}
	intersection := 0
	for k := range a {
		if b[k] {
			intersection++
		}
	}
	union := len(a) + len(b) - intersection
	if union == 0 {
		return 1.0
	}
	return float64(intersection) / float64(union)
}
