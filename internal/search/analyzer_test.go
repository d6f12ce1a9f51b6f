package search

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testHint = SchemaHint{
	Tables:  []string{"customers", "orders"},
	Columns: []string{"customer_id", "email"},
	Terms:   []string{"churn"},
}

func TestAnalyzeQueryShape(t *testing.T) {
	a := AnalyzeQuery(`find "active" customers AND orders`, testHint)

	assert.Equal(t, 5, a.WordCount)
	assert.True(t, a.HasOperators)
	assert.True(t, a.HasQuotes)
	assert.False(t, a.HasWildcards)
	assert.Equal(t, []string{"customers", "orders"}, a.TableMentions)
}

func TestAnalyzeQueryMentionsBidirectional(t *testing.T) {
	t.Run("schema name inside query", func(t *testing.T) {
		a := AnalyzeQuery("show churn by customers", testHint)
		assert.Equal(t, []string{"churn"}, a.TermMentions)
		assert.Contains(t, a.TableMentions, "customers")
	})

	t.Run("query inside schema name", func(t *testing.T) {
		a := AnalyzeQuery("cust", testHint)
		assert.Contains(t, a.TableMentions, "customers")
		assert.Contains(t, a.ColumnMentions, "customer_id")
	})

	t.Run("case insensitive", func(t *testing.T) {
		a := AnalyzeQuery("EMAIL", testHint)
		assert.Equal(t, []string{"email"}, a.ColumnMentions)
	})
}

func TestAnalyzeQuerySuggestions(t *testing.T) {
	t.Run("short query", func(t *testing.T) {
		a := AnalyzeQuery("ab", testHint)
		assert.NotEmpty(t, a.Suggestions)
	})

	t.Run("single word", func(t *testing.T) {
		a := AnalyzeQuery("churn", testHint)
		require.Len(t, a.Suggestions, 1)
		assert.Contains(t, a.Suggestions[0], "single-word")
	})

	t.Run("no schema matches", func(t *testing.T) {
		a := AnalyzeQuery("quarterly revenue report", testHint)
		found := false
		for _, s := range a.Suggestions {
			if s == "no schema names recognized; try table or column names" {
				found = true
			}
		}
		assert.True(t, found)
	})

	t.Run("well formed query", func(t *testing.T) {
		a := AnalyzeQuery("customers email addresses", testHint)
		assert.Empty(t, a.Suggestions)
	})
}

func TestEngineAnalyze(t *testing.T) {
	engine := newTestEngine(t, nil)

	a, err := engine.Analyze(context.Background(), "customer churn rate")
	require.NoError(t, err)
	assert.Contains(t, a.TermMentions, "churn")
	assert.Contains(t, a.TableMentions, "customers")
	assert.Equal(t, 3, a.WordCount)

	_, err = engine.Analyze(context.Background(), "  ")
	assert.Error(t, err)
}
