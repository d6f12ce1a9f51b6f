package search

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/queryforge/schemafuse/internal/catalog"
	"github.com/queryforge/schemafuse/internal/embed"
	fuseerrors "github.com/queryforge/schemafuse/internal/errors"
	"github.com/queryforge/schemafuse/internal/index"
)

func engineCatalog() *catalog.MemoryCatalog {
	cat := catalog.NewMemoryCatalog()
	cat.PutAll([]*catalog.Entity{
		{Kind: catalog.KindTable, ID: 1, Name: "customers", Description: "Customer master data"},
		{Kind: catalog.KindTable, ID: 2, Name: "orders", Description: "Order transactions placed by customers"},
		{Kind: catalog.KindColumn, ID: 10, Name: "customer_id", TableID: 1, TableName: "customers", Description: "Primary key"},
		{Kind: catalog.KindColumn, ID: 11, Name: "email", TableID: 1, TableName: "customers", Description: "Contact email", Aliases: []string{"mail"}},
		{Kind: catalog.KindDictionary, ID: 100, Name: "churn", Definition: "Customer attrition over a period", Category: "metrics"},
	})
	return cat
}

// newTestEngine builds an engine over an in-memory catalog with all
// indexes ready. Pass a scope to limit which kinds get indexes.
func newTestEngine(t *testing.T, indexScope catalog.Scope) *Engine {
	t.Helper()

	cat := engineCatalog()
	embedder := embed.NewStaticEmbedder()
	t.Cleanup(func() { _ = embedder.Close() })

	builder := &index.Builder{Embedder: embedder, Backend: index.BackendTFIDF}
	registry, err := builder.Build(context.Background(), cat, indexScope)
	require.NoError(t, err)
	t.Cleanup(func() { _ = registry.Close() })

	engine, err := NewEngine(cat, registry, embedder, DefaultRetrievalConfig())
	require.NoError(t, err)
	return engine
}

// newEngineWithoutIndexes builds an engine whose registry is empty, so
// semantic and keyword report their indexes unavailable.
func newEngineWithoutIndexes(t *testing.T) *Engine {
	t.Helper()

	embedder := embed.NewStaticEmbedder()
	t.Cleanup(func() { _ = embedder.Close() })

	engine, err := NewEngine(engineCatalog(), index.NewRegistry(), embedder, DefaultRetrievalConfig())
	require.NoError(t, err)
	return engine
}

func TestEngineSearchSingleMethod(t *testing.T) {
	engine := newTestEngine(t, nil)
	ctx := context.Background()

	t.Run("exact", func(t *testing.T) {
		results, err := engine.Search(ctx, "Customers", MethodExact, nil, nil)
		require.NoError(t, err)
		require.Len(t, results, 1)
		assert.Equal(t, "customers", results[0].Entity.Name)
		assert.Equal(t, 1.0, results[0].Score)
	})

	t.Run("exact via alias", func(t *testing.T) {
		results, err := engine.Search(ctx, "mail", MethodExact, nil, nil)
		require.NoError(t, err)
		require.Len(t, results, 1)
		assert.Equal(t, "email", results[0].Entity.Name)
	})

	t.Run("keyword sorted and normalized", func(t *testing.T) {
		results, err := engine.Search(ctx, "customer data", MethodKeyword, nil, nil)
		require.NoError(t, err)
		require.NotEmpty(t, results)
		for i, r := range results {
			assert.GreaterOrEqual(t, r.Score, 0.0)
			assert.LessOrEqual(t, r.Score, 1.0)
			if i > 0 {
				assert.GreaterOrEqual(t, results[i-1].Score, r.Score)
			}
		}
	})

	t.Run("semantic respects scope", func(t *testing.T) {
		results, err := engine.Search(ctx, "customer", MethodSemantic, catalog.Scope{catalog.KindDictionary}, nil)
		require.NoError(t, err)
		for _, r := range results {
			assert.Equal(t, catalog.KindDictionary, r.Entity.Kind)
		}
	})
}

func TestEngineValidation(t *testing.T) {
	engine := newTestEngine(t, nil)
	ctx := context.Background()

	t.Run("empty query", func(t *testing.T) {
		_, err := engine.Search(ctx, "   \t  ", MethodExact, nil, nil)
		assert.Equal(t, fuseerrors.ErrCodeQueryEmpty, fuseerrors.GetCode(err))

		_, err = engine.Compare(ctx, "", nil, nil, nil)
		assert.Equal(t, fuseerrors.ErrCodeQueryEmpty, fuseerrors.GetCode(err))
	})

	t.Run("invalid method", func(t *testing.T) {
		_, err := engine.Search(ctx, "customers", Method("regex"), nil, nil)
		assert.Equal(t, fuseerrors.ErrCodeInvalidMethod, fuseerrors.GetCode(err))

		_, err = engine.SearchMulti(ctx, "customers", []Method{"regex"}, nil, nil)
		assert.Equal(t, fuseerrors.ErrCodeInvalidMethod, fuseerrors.GetCode(err))
	})

	t.Run("invalid config rejected before dispatch", func(t *testing.T) {
		bad := DefaultRetrievalConfig()
		bad.FuzzyThreshold = 150
		_, err := engine.Compare(ctx, "customers", nil, nil, &bad)
		assert.Equal(t, fuseerrors.ErrCodeInvalidConfig, fuseerrors.GetCode(err))

		bad = DefaultRetrievalConfig()
		bad.MethodWeights = map[Method]float64{MethodExact: 1.5}
		_, err = engine.Compare(ctx, "customers", nil, nil, &bad)
		assert.Equal(t, fuseerrors.ErrCodeInvalidConfig, fuseerrors.GetCode(err))
	})
}

func TestEngineSearchMulti(t *testing.T) {
	engine := newTestEngine(t, nil)

	multi, err := engine.SearchMulti(context.Background(), "customers", nil, nil, nil)
	require.NoError(t, err)
	assert.Empty(t, multi.Failures)
	assert.Contains(t, multi.Results, MethodExact)
	assert.Contains(t, multi.Results, MethodSemantic)
	assert.Contains(t, multi.Results, MethodKeyword)
	assert.Contains(t, multi.Results, MethodFuzzy)
	require.NotEmpty(t, multi.Results[MethodExact])
	assert.Equal(t, "customers", multi.Results[MethodExact][0].Entity.Name)
}

func TestEnginePartialFailureIsolation(t *testing.T) {
	// Indexes built only for tables; a column-scoped query finds no
	// ready vector or lexical index, so semantic and keyword fail
	// while fuzzy and exact still answer from the catalog.
	engine := newTestEngine(t, catalog.Scope{catalog.KindTable})

	combined, err := engine.Compare(context.Background(), "email",
		nil, catalog.Scope{catalog.KindColumn}, nil)
	require.NoError(t, err)

	require.Len(t, combined.Failures, 2)
	failedMethods := map[Method]string{}
	for _, f := range combined.Failures {
		failedMethods[f.Method] = f.Code
	}
	assert.Equal(t, fuseerrors.ErrCodeIndexUnavailable, failedMethods[MethodSemantic])
	assert.Equal(t, fuseerrors.ErrCodeIndexUnavailable, failedMethods[MethodKeyword])

	require.NotEmpty(t, combined.Results, "exact still finds the column")
	assert.Equal(t, "email", combined.Results[0].Entity.Name)
	assert.Contains(t, combined.Results[0].Methods, MethodExact)
}

// failingCatalog errors on every read, simulating a lost backend.
type failingCatalog struct{}

func (failingCatalog) GetByID(context.Context, catalog.Kind, int64) (*catalog.Entity, error) {
	return nil, assert.AnError
}
func (failingCatalog) ListByKind(context.Context, catalog.Kind) ([]*catalog.Entity, error) {
	return nil, assert.AnError
}
func (failingCatalog) ListNames(context.Context, catalog.Kind) ([]catalog.NameEntry, error) {
	return nil, assert.AnError
}
func (failingCatalog) Close() error { return nil }

func TestEngineAllMethodsUnavailable(t *testing.T) {
	embedder := embed.NewStaticEmbedder()
	defer embedder.Close()

	engine, err := NewEngine(failingCatalog{}, index.NewRegistry(), embedder, DefaultRetrievalConfig())
	require.NoError(t, err)

	_, err = engine.Compare(context.Background(), "customers", nil, nil, nil)
	require.Error(t, err)
	assert.Equal(t, fuseerrors.ErrCodeAllMethodsUnavailable, fuseerrors.GetCode(err))

	_, err = engine.SearchMulti(context.Background(), "customers", nil, nil, nil)
	assert.Equal(t, fuseerrors.ErrCodeAllMethodsUnavailable, fuseerrors.GetCode(err))
}

// slowCatalog blocks reads until the context is done.
type slowCatalog struct{ inner catalog.Catalog }

func (s slowCatalog) GetByID(ctx context.Context, kind catalog.Kind, id int64) (*catalog.Entity, error) {
	return s.inner.GetByID(ctx, kind, id)
}
func (s slowCatalog) ListByKind(ctx context.Context, kind catalog.Kind) ([]*catalog.Entity, error) {
	return s.inner.ListByKind(ctx, kind)
}
func (s slowCatalog) ListNames(ctx context.Context, _ catalog.Kind) ([]catalog.NameEntry, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}
func (s slowCatalog) Close() error { return nil }

func TestEngineRetrievalTimeout(t *testing.T) {
	embedder := embed.NewStaticEmbedder()
	defer embedder.Close()

	cfg := DefaultRetrievalConfig()
	cfg.Timeout = 20 * time.Millisecond

	engine, err := NewEngine(slowCatalog{inner: engineCatalog()}, index.NewRegistry(), embedder, cfg)
	require.NoError(t, err)

	_, err = engine.Search(context.Background(), "customers", MethodFuzzy, nil, nil)
	require.Error(t, err)
	assert.Equal(t, fuseerrors.ErrCodeRetrievalTimeout, fuseerrors.GetCode(err))
	assert.True(t, fuseerrors.IsTimeout(err))
	assert.True(t, fuseerrors.IsRetryable(err))
	assert.Equal(t, "fuzzy", fuseerrors.Method(err))
}

func TestEngineCompareDeterministic(t *testing.T) {
	engine := newTestEngine(t, nil)
	ctx := context.Background()

	first, err := engine.Compare(ctx, "customer", nil, nil, nil)
	require.NoError(t, err)

	for range 5 {
		again, err := engine.Compare(ctx, "customer", nil, nil, nil)
		require.NoError(t, err)
		require.Len(t, again.Results, len(first.Results))
		for i := range first.Results {
			assert.Equal(t, first.Results[i].Entity.Key(), again.Results[i].Entity.Key())
			assert.Equal(t, first.Results[i].CombinedScore, again.Results[i].CombinedScore)
		}
	}
}

func TestEngineCompareDedupAndOverlap(t *testing.T) {
	engine := newTestEngine(t, nil)

	combined, err := engine.Compare(context.Background(), "customers", nil, nil, nil)
	require.NoError(t, err)
	require.NotEmpty(t, combined.Results)

	seen := map[catalog.Key]bool{}
	for _, r := range combined.Results {
		assert.False(t, seen[r.Entity.Key()], "no entity appears twice")
		seen[r.Entity.Key()] = true
		assert.GreaterOrEqual(t, r.CombinedScore, 0.0)
		assert.LessOrEqual(t, r.CombinedScore, 1.0)
		assert.NotEmpty(t, r.Methods)
	}

	assert.Equal(t, "customers", combined.Results[0].Entity.Name,
		"exact name hit ranks first")
	assert.NotEmpty(t, combined.Overlap)
}

func TestEngineAvailableMethods(t *testing.T) {
	engine := newTestEngine(t, catalog.Scope{catalog.KindTable})

	byMethod := map[string]index.MethodAvailability{}
	for _, m := range engine.AvailableMethods(catalog.Scope{catalog.KindColumn}) {
		byMethod[m.Method] = m
	}
	assert.False(t, byMethod[index.MethodSemantic].Available)
	assert.True(t, byMethod[index.MethodFuzzy].Available)
	assert.True(t, byMethod[index.MethodExact].Available)

	byMethod = map[string]index.MethodAvailability{}
	for _, m := range engine.AvailableMethods(catalog.Scope{catalog.KindTable}) {
		byMethod[m.Method] = m
	}
	assert.True(t, byMethod[index.MethodSemantic].Available)
	assert.True(t, byMethod[index.MethodKeyword].Available)
}
