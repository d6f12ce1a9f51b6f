package index

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func populateLexical(t *testing.T, idx LexicalIndex) {
	t.Helper()
	err := idx.Add(context.Background(),
		[]int64{1, 2, 3},
		[]string{
			"customers Customer master data",
			"orders Order transactions placed by customers",
			"warehouse_inventory Stock levels per warehouse",
		})
	require.NoError(t, err)
}

func TestTFIDFIndexSearch(t *testing.T) {
	idx := NewTFIDFIndex()
	defer idx.Close()
	populateLexical(t, idx)

	hits, err := idx.Search(context.Background(), "customer data", 10)
	require.NoError(t, err)
	require.NotEmpty(t, hits)

	assert.Equal(t, int64(1), hits[0].ID, "document about customer data ranks first")
	for _, h := range hits {
		assert.GreaterOrEqual(t, h.Score, 0.0)
		assert.LessOrEqual(t, h.Score, 1.0)
	}
	for i := 1; i < len(hits); i++ {
		assert.GreaterOrEqual(t, hits[i-1].Score, hits[i].Score)
	}
}

func TestTFIDFIndexNoMatch(t *testing.T) {
	idx := NewTFIDFIndex()
	defer idx.Close()
	populateLexical(t, idx)

	hits, err := idx.Search(context.Background(), "zzzzz qqqqq", 10)
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestTFIDFIndexSplitsIdentifiers(t *testing.T) {
	idx := NewTFIDFIndex()
	defer idx.Close()
	populateLexical(t, idx)

	hits, err := idx.Search(context.Background(), "inventory", 10)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, int64(3), hits[0].ID, "snake_case names are searchable by part")
}

func TestTFIDFIndexReplace(t *testing.T) {
	idx := NewTFIDFIndex()
	defer idx.Close()

	ctx := context.Background()
	require.NoError(t, idx.Add(ctx, []int64{1}, []string{"alpha"}))
	require.NoError(t, idx.Add(ctx, []int64{1}, []string{"beta"}))
	assert.Equal(t, 1, idx.Len())

	hits, err := idx.Search(ctx, "alpha", 10)
	require.NoError(t, err)
	assert.Empty(t, hits, "replaced document must not match its old text")
}

func TestBleveIndexSearch(t *testing.T) {
	idx, err := NewBleveIndex()
	require.NoError(t, err)
	defer idx.Close()
	populateLexical(t, idx)

	hits, err := idx.Search(context.Background(), "customers", 10)
	require.NoError(t, err)
	require.NotEmpty(t, hits)

	assert.InDelta(t, 1.0, hits[0].Score, 1e-9, "top hit normalizes to 1")
	for _, h := range hits {
		assert.GreaterOrEqual(t, h.Score, 0.0)
		assert.LessOrEqual(t, h.Score, 1.0)
	}
}

func TestBleveIndexEmptyQuery(t *testing.T) {
	idx, err := NewBleveIndex()
	require.NoError(t, err)
	defer idx.Close()
	populateLexical(t, idx)

	hits, err := idx.Search(context.Background(), "   ", 10)
	require.NoError(t, err)
	assert.Empty(t, hits)
	assert.Equal(t, 3, idx.Len())
}
