package search

import (
	"context"
	"strings"

	"github.com/queryforge/schemafuse/internal/catalog"
	fuseerrors "github.com/queryforge/schemafuse/internal/errors"
)

// ExactRetriever matches the query against entity names and declared
// aliases by case-insensitive, whitespace-trimmed equality. Every hit
// scores 1.0. Like fuzzy, it runs off the catalog and is available
// whenever the catalog is reachable.
type ExactRetriever struct {
	catalog catalog.Catalog
}

var _ Retriever = (*ExactRetriever)(nil)

// NewExactRetriever creates an exact retriever.
func NewExactRetriever(cat catalog.Catalog) *ExactRetriever {
	return &ExactRetriever{catalog: cat}
}

// Method returns MethodExact.
func (r *ExactRetriever) Method() Method { return MethodExact }

// Retrieve returns every entity whose name or alias equals the query.
func (r *ExactRetriever) Retrieve(ctx context.Context, query string, _ RetrievalConfig, scope catalog.Scope) ([]*Candidate, error) {
	needle := strings.ToLower(strings.TrimSpace(query))

	var candidates []*Candidate
	for _, kind := range scope.Kinds() {
		names, err := r.catalog.ListNames(ctx, kind)
		if err != nil {
			return nil, fuseerrors.Wrap(fuseerrors.ErrCodeCatalogUnavailable, err).
				WithDetail("method", string(MethodExact))
		}

		for _, entry := range names {
			if !exactMatches(needle, entry) {
				continue
			}
			entity, err := r.catalog.GetByID(ctx, kind, entry.ID)
			if err != nil {
				return nil, fuseerrors.Wrap(fuseerrors.ErrCodeCatalogUnavailable, err).
					WithDetail("method", string(MethodExact))
			}
			candidates = append(candidates, &Candidate{
				Entity:   entity,
				RawScore: 1.0,
				Method:   MethodExact,
			})
		}
	}

	return sortAndCap(candidates, 0), nil
}

func exactMatches(needle string, entry catalog.NameEntry) bool {
	if strings.ToLower(strings.TrimSpace(entry.Name)) == needle {
		return true
	}
	for _, alias := range entry.Aliases {
		if strings.ToLower(strings.TrimSpace(alias)) == needle {
			return true
		}
	}
	return false
}
