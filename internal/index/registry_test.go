package index

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/queryforge/schemafuse/internal/catalog"
	"github.com/queryforge/schemafuse/internal/embed"
)

func testCatalog() *catalog.MemoryCatalog {
	cat := catalog.NewMemoryCatalog()
	cat.PutAll([]*catalog.Entity{
		{Kind: catalog.KindTable, ID: 1, Name: "customers", Description: "Customer master data"},
		{Kind: catalog.KindTable, ID: 2, Name: "orders", Description: "Order transactions"},
		{Kind: catalog.KindColumn, ID: 10, Name: "customer_id", TableID: 1, TableName: "customers"},
	})
	return cat
}

func TestRegistryAvailability(t *testing.T) {
	r := NewRegistry()
	defer r.Close()

	t.Run("empty registry", func(t *testing.T) {
		methods := r.AvailableMethods(nil)
		require.Len(t, methods, 4)
		byName := map[string]MethodAvailability{}
		for _, m := range methods {
			byName[m.Method] = m
		}
		assert.False(t, byName[MethodSemantic].Available)
		assert.False(t, byName[MethodKeyword].Available)
		assert.True(t, byName[MethodFuzzy].Available, "fuzzy runs off the catalog")
		assert.True(t, byName[MethodExact].Available, "exact runs off the catalog")
	})

	t.Run("registered index flips availability", func(t *testing.T) {
		lex := NewTFIDFIndex()
		require.NoError(t, lex.Add(context.Background(), []int64{1}, []string{"customers"}))
		id := r.RegisterLexical(catalog.KindTable, lex)
		require.NotEmpty(t, id)

		methods := r.AvailableMethods(catalog.Scope{catalog.KindTable})
		for _, m := range methods {
			if m.Method == MethodKeyword {
				assert.True(t, m.Available)
				assert.Equal(t, []string{id}, m.IndexIDs)
			}
		}

		// Out-of-scope kinds don't count.
		methods = r.AvailableMethods(catalog.Scope{catalog.KindColumn})
		for _, m := range methods {
			if m.Method == MethodKeyword {
				assert.False(t, m.Available)
			}
		}
	})

	t.Run("empty index is not ready", func(t *testing.T) {
		r.RegisterLexical(catalog.KindDictionary, NewTFIDFIndex())
		_, ok := r.Lexical(catalog.KindDictionary)
		assert.False(t, ok)
	})
}

func TestBuilderBuildsAllBackends(t *testing.T) {
	ctx := context.Background()
	embedder := embed.NewStaticEmbedder()
	defer embedder.Close()

	b := &Builder{Embedder: embedder, Backend: BackendTFIDF}
	registry, err := b.Build(ctx, testCatalog(), nil)
	require.NoError(t, err)
	defer registry.Close()

	vec, ok := registry.Vector(catalog.KindTable)
	require.True(t, ok)
	assert.Equal(t, 2, vec.Len())

	lex, ok := registry.Lexical(catalog.KindColumn)
	require.True(t, ok)
	assert.Equal(t, 1, lex.Len())

	// No dictionary entities, so nothing registered for that kind.
	_, ok = registry.Vector(catalog.KindDictionary)
	assert.False(t, ok)

	// Semantic search finds the customer table for a customer query.
	qvec, err := embedder.Embed(ctx, "customer data")
	require.NoError(t, err)
	hits, err := vec.Search(ctx, qvec, 1)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, int64(1), hits[0].ID)
}

func TestBuilderBleveBackend(t *testing.T) {
	b := &Builder{Backend: BackendBleve}
	registry, err := b.Build(context.Background(), testCatalog(), catalog.Scope{catalog.KindTable})
	require.NoError(t, err)
	defer registry.Close()

	lex, ok := registry.Lexical(catalog.KindTable)
	require.True(t, ok)

	hits, err := lex.Search(context.Background(), "orders", 5)
	require.NoError(t, err)
	require.NotEmpty(t, hits)
	assert.Equal(t, int64(2), hits[0].ID)
}

func TestBuilderUnknownBackend(t *testing.T) {
	b := &Builder{Backend: LexicalBackend("nope")}
	_, err := b.Build(context.Background(), testCatalog(), nil)
	assert.Error(t, err)
}
