// Package index provides the retrieval backends: an HNSW vector index
// for semantic search and TF-IDF/Bleve lexical indexes for keyword
// search, plus the registry that tracks which (method, kind) pairs
// have a ready backend.
package index

import (
	"context"
	"fmt"
)

// VectorHit is one nearest-neighbor result from a vector index.
type VectorHit struct {
	ID       int64
	Distance float32
}

// LexicalHit is one scored result from a lexical index.
// Score is already normalized to [0,1] by the backend.
type LexicalHit struct {
	ID    int64
	Score float64
}

// VectorIndex finds nearest neighbors for an embedding.
type VectorIndex interface {
	// Add inserts vectors keyed by entity ID. Existing IDs are replaced.
	Add(ctx context.Context, ids []int64, vectors [][]float32) error

	// Search returns up to k nearest neighbors, closest first.
	Search(ctx context.Context, query []float32, k int) ([]VectorHit, error)

	// Len returns the number of indexed vectors.
	Len() int

	// Close releases resources.
	Close() error
}

// LexicalIndex scores documents against a text query.
type LexicalIndex interface {
	// Add indexes documents keyed by entity ID.
	Add(ctx context.Context, ids []int64, texts []string) error

	// Search returns up to k hits sorted by descending score.
	// Backends normalize scores so they never exceed 1.
	Search(ctx context.Context, query string, k int) ([]LexicalHit, error)

	// Len returns the number of indexed documents.
	Len() int

	// Close releases resources.
	Close() error
}

// LexicalBackend selects the keyword index implementation.
type LexicalBackend string

const (
	BackendTFIDF LexicalBackend = "tfidf"
	BackendBleve LexicalBackend = "bleve"
)

// MethodAvailability reports whether one retrieval method has a ready
// backend, and which registered index IDs serve it.
type MethodAvailability struct {
	Method    string   `json:"method"`
	Available bool     `json:"available"`
	IndexIDs  []string `json:"index_ids,omitempty"`
}

// ErrDimensionMismatch is returned when a vector's dimension doesn't
// match the index configuration.
type ErrDimensionMismatch struct {
	Expected int
	Got      int
}

func (e ErrDimensionMismatch) Error() string {
	return fmt.Sprintf("vector dimension mismatch: expected %d, got %d", e.Expected, e.Got)
}
