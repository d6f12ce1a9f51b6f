package search

import (
	"context"
	"fmt"

	"github.com/queryforge/schemafuse/internal/catalog"
	"github.com/queryforge/schemafuse/internal/embed"
	fuseerrors "github.com/queryforge/schemafuse/internal/errors"
	"github.com/queryforge/schemafuse/internal/index"
)

// SemanticRetriever embeds the query and searches the ready vector
// indexes in scope. Distance converts to similarity via 1/(1+d), so
// raw scores land in (0,1] with identical vectors scoring 1.
type SemanticRetriever struct {
	embedder embed.Embedder
	registry *index.Registry
	catalog  catalog.Catalog
}

var _ Retriever = (*SemanticRetriever)(nil)

// NewSemanticRetriever creates a semantic retriever.
func NewSemanticRetriever(embedder embed.Embedder, registry *index.Registry, cat catalog.Catalog) *SemanticRetriever {
	return &SemanticRetriever{embedder: embedder, registry: registry, catalog: cat}
}

// Method returns MethodSemantic.
func (r *SemanticRetriever) Method() Method { return MethodSemantic }

// Retrieve embeds the query and collects nearest neighbors from every
// ready vector index in scope.
func (r *SemanticRetriever) Retrieve(ctx context.Context, query string, cfg RetrievalConfig, scope catalog.Scope) ([]*Candidate, error) {
	type readyIndex struct {
		kind catalog.Kind
		idx  index.VectorIndex
	}
	var ready []readyIndex
	for _, kind := range scope.Kinds() {
		if idx, ok := r.registry.Vector(kind); ok {
			ready = append(ready, readyIndex{kind: kind, idx: idx})
		}
	}
	if len(ready) == 0 {
		return nil, fuseerrors.IndexUnavailable(string(MethodSemantic))
	}

	vec, err := r.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fuseerrors.Wrap(fuseerrors.ErrCodeEmbeddingFailed, err).
			WithDetail("method", string(MethodSemantic))
	}

	var candidates []*Candidate
	for _, ri := range ready {
		hits, err := ri.idx.Search(ctx, vec, cfg.SemanticTopK)
		if err != nil {
			return nil, fmt.Errorf("vector search over %s: %w", ri.kind, err)
		}
		for _, hit := range hits {
			entity, err := r.catalog.GetByID(ctx, ri.kind, hit.ID)
			if err != nil {
				return nil, fmt.Errorf("resolve %s:%d: %w", ri.kind, hit.ID, err)
			}
			candidates = append(candidates, &Candidate{
				Entity:   entity,
				RawScore: 1.0 / (1.0 + float64(hit.Distance)),
				Method:   MethodSemantic,
			})
		}
	}

	return sortAndCap(candidates, cfg.SemanticTopK), nil
}
