package search

import (
	"context"
	"sort"

	"github.com/queryforge/schemafuse/internal/catalog"
)

// Retriever produces raw candidates for one method. Implementations
// return candidates sorted by descending raw score with deterministic
// secondary order, capped at the method's top-k. A missing backing
// resource is reported as ERR_201_INDEX_UNAVAILABLE, never as a
// silent empty list.
type Retriever interface {
	Method() Method
	Retrieve(ctx context.Context, query string, cfg RetrievalConfig, scope catalog.Scope) ([]*Candidate, error)
}

// sortAndCap orders candidates by descending raw score, ties broken
// by entity key, and truncates to k (k <= 0 means no cap).
func sortAndCap(candidates []*Candidate, k int) []*Candidate {
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].RawScore != candidates[j].RawScore {
			return candidates[i].RawScore > candidates[j].RawScore
		}
		return candidates[i].Entity.Key().Less(candidates[j].Entity.Key())
	})
	if k > 0 && len(candidates) > k {
		candidates = candidates[:k]
	}
	return candidates
}
