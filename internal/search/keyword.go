package search

import (
	"context"
	"fmt"

	"github.com/queryforge/schemafuse/internal/catalog"
	fuseerrors "github.com/queryforge/schemafuse/internal/errors"
	"github.com/queryforge/schemafuse/internal/index"
)

// KeywordRetriever searches the ready lexical indexes in scope.
// Backends normalize their own scores, so raw scores are already in
// [0,1].
type KeywordRetriever struct {
	registry *index.Registry
	catalog  catalog.Catalog
}

var _ Retriever = (*KeywordRetriever)(nil)

// NewKeywordRetriever creates a keyword retriever.
func NewKeywordRetriever(registry *index.Registry, cat catalog.Catalog) *KeywordRetriever {
	return &KeywordRetriever{registry: registry, catalog: cat}
}

// Method returns MethodKeyword.
func (r *KeywordRetriever) Method() Method { return MethodKeyword }

// Retrieve collects scored hits from every ready lexical index in scope.
func (r *KeywordRetriever) Retrieve(ctx context.Context, query string, cfg RetrievalConfig, scope catalog.Scope) ([]*Candidate, error) {
	type readyIndex struct {
		kind catalog.Kind
		idx  index.LexicalIndex
	}
	var ready []readyIndex
	for _, kind := range scope.Kinds() {
		if idx, ok := r.registry.Lexical(kind); ok {
			ready = append(ready, readyIndex{kind: kind, idx: idx})
		}
	}
	if len(ready) == 0 {
		return nil, fuseerrors.IndexUnavailable(string(MethodKeyword))
	}

	var candidates []*Candidate
	for _, ri := range ready {
		hits, err := ri.idx.Search(ctx, query, cfg.KeywordTopK)
		if err != nil {
			return nil, fmt.Errorf("lexical search over %s: %w", ri.kind, err)
		}
		for _, hit := range hits {
			entity, err := r.catalog.GetByID(ctx, ri.kind, hit.ID)
			if err != nil {
				return nil, fmt.Errorf("resolve %s:%d: %w", ri.kind, hit.ID, err)
			}
			candidates = append(candidates, &Candidate{
				Entity:   entity,
				RawScore: hit.Score,
				Method:   MethodKeyword,
			})
		}
	}

	return sortAndCap(candidates, cfg.KeywordTopK), nil
}
