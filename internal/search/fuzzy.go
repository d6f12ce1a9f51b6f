package search

import (
	"context"
	"strings"

	"github.com/queryforge/schemafuse/internal/catalog"
	fuseerrors "github.com/queryforge/schemafuse/internal/errors"
)

// FuzzyRetriever matches the query against entity names and aliases
// by Levenshtein similarity ratio (0–100). Matches at or above the
// configured threshold survive, capped per kind so one noisy variant
// can't crowd out the others. Runs straight off the catalog, so it is
// available whenever the catalog is reachable.
type FuzzyRetriever struct {
	catalog catalog.Catalog
}

var _ Retriever = (*FuzzyRetriever)(nil)

// NewFuzzyRetriever creates a fuzzy retriever.
func NewFuzzyRetriever(cat catalog.Catalog) *FuzzyRetriever {
	return &FuzzyRetriever{catalog: cat}
}

// Method returns MethodFuzzy.
func (r *FuzzyRetriever) Method() Method { return MethodFuzzy }

// Retrieve scans each kind's name list and keeps the best-ratio
// matches. Raw score is ratio/100.
func (r *FuzzyRetriever) Retrieve(ctx context.Context, query string, cfg RetrievalConfig, scope catalog.Scope) ([]*Candidate, error) {
	needle := strings.ToLower(strings.TrimSpace(query))

	var candidates []*Candidate
	for _, kind := range scope.Kinds() {
		names, err := r.catalog.ListNames(ctx, kind)
		if err != nil {
			return nil, fuseerrors.Wrap(fuseerrors.ErrCodeCatalogUnavailable, err).
				WithDetail("method", string(MethodFuzzy))
		}

		var kindMatches []*Candidate
		for _, entry := range names {
			ratio := levenshteinRatio(needle, strings.ToLower(entry.Name))
			for _, alias := range entry.Aliases {
				if r := levenshteinRatio(needle, strings.ToLower(alias)); r > ratio {
					ratio = r
				}
			}
			if ratio < cfg.FuzzyThreshold {
				continue
			}

			entity, err := r.catalog.GetByID(ctx, kind, entry.ID)
			if err != nil {
				return nil, fuseerrors.Wrap(fuseerrors.ErrCodeCatalogUnavailable, err).
					WithDetail("method", string(MethodFuzzy))
			}
			kindMatches = append(kindMatches, &Candidate{
				Entity:   entity,
				RawScore: float64(ratio) / 100.0,
				Method:   MethodFuzzy,
			})
		}
		candidates = append(candidates, sortAndCap(kindMatches, fuzzyPerKindLimit)...)
	}

	return sortAndCap(candidates, 0), nil
}

// levenshteinRatio returns a similarity ratio in [0,100]:
// 100·(1 − distance/maxLen). Equal strings score 100; fully distinct
// strings score 0.
func levenshteinRatio(a, b string) int {
	if a == b {
		return 100
	}
	ra, rb := []rune(a), []rune(b)
	maxLen := len(ra)
	if len(rb) > maxLen {
		maxLen = len(rb)
	}
	if maxLen == 0 {
		return 100
	}
	dist := levenshtein(ra, rb)
	return int(100 * (1 - float64(dist)/float64(maxLen)))
}

// levenshtein computes edit distance with a two-row matrix.
func levenshtein(a, b []rune) int {
	if len(a) == 0 {
		return len(b)
	}
	if len(b) == 0 {
		return len(a)
	}

	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for j := range prev {
		prev[j] = j
	}

	for i := 1; i <= len(a); i++ {
		curr[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			curr[j] = min3(
				prev[j]+1,      // deletion
				curr[j-1]+1,    // insertion
				prev[j-1]+cost, // substitution
			)
		}
		prev, curr = curr, prev
	}
	return prev[len(b)]
}

func min3(a, b, c int) int {
	if b < a {
		a = b
	}
	if c < a {
		a = c
	}
	return a
}
