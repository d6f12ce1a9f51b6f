// Package catalog defines the searchable entity model (tables, columns,
// dictionary terms) and the EntityCatalog contract consumed by the
// retrieval layer. Catalog content is owned by the external data-source
// subsystem; this package only reads it.
package catalog

import (
	"context"
	"fmt"
	"strings"
)

// Kind identifies the entity variant.
type Kind string

const (
	KindTable      Kind = "table"
	KindColumn     Kind = "column"
	KindDictionary Kind = "dictionary"
)

// AllKinds returns every entity kind in canonical order.
func AllKinds() []Kind {
	return []Kind{KindTable, KindColumn, KindDictionary}
}

// ParseKind converts a string to a Kind.
func ParseKind(s string) (Kind, error) {
	switch Kind(strings.ToLower(strings.TrimSpace(s))) {
	case KindTable:
		return KindTable, nil
	case KindColumn:
		return KindColumn, nil
	case KindDictionary:
		return KindDictionary, nil
	}
	return "", fmt.Errorf("unknown entity kind %q", s)
}

// Key is the identity used for cross-method deduplication.
// Identifiers are unique within a variant's namespace, so the pair
// (Kind, ID) is globally unique.
type Key struct {
	Kind Kind
	ID   int64
}

// String renders the key as "kind:id" for logging and map debugging.
func (k Key) String() string {
	return fmt.Sprintf("%s:%d", k.Kind, k.ID)
}

// Less imposes a total order on keys (kind canonical order, then ID).
// Used as a deterministic final tie-break in sorted output.
func (k Key) Less(other Key) bool {
	if k.Kind != other.Kind {
		return kindRank(k.Kind) < kindRank(other.Kind)
	}
	return k.ID < other.ID
}

func kindRank(k Kind) int {
	switch k {
	case KindTable:
		return 0
	case KindColumn:
		return 1
	default:
		return 2
	}
}

// Entity is the unit being searched and returned. The Kind tag selects
// which fields are meaningful:
//
//	table:      ID, Name, Description
//	column:     ID, Name (column name), TableID, TableName, Description
//	dictionary: ID, Name (term), Definition, Category
//
// Aliases are alternative names declared by the schema owner; the
// exact retriever matches against them.
type Entity struct {
	Kind        Kind     `json:"kind"`
	ID          int64    `json:"id"`
	Name        string   `json:"name"`
	TableID     int64    `json:"table_id,omitempty"`
	TableName   string   `json:"table_name,omitempty"`
	Description string   `json:"description,omitempty"`
	Definition  string   `json:"definition,omitempty"`
	Category    string   `json:"category,omitempty"`
	Aliases     []string `json:"aliases,omitempty"`
}

// Key returns the deduplication identity for the entity.
func (e *Entity) Key() Key {
	return Key{Kind: e.Kind, ID: e.ID}
}

// IndexText returns the text representation indexed by the semantic
// and keyword backends: the name plus whatever descriptive text the
// variant carries.
func (e *Entity) IndexText() string {
	parts := []string{e.Name}
	if e.Kind == KindColumn && e.TableName != "" {
		parts = append(parts, e.TableName)
	}
	if e.Description != "" {
		parts = append(parts, e.Description)
	}
	if e.Definition != "" {
		parts = append(parts, e.Definition)
	}
	return strings.Join(parts, " ")
}

// NameEntry is the lightweight (id, name, aliases) projection used by
// the exact and fuzzy retrievers.
type NameEntry struct {
	ID      int64
	Name    string
	Aliases []string
}

// Scope restricts retrieval to a subset of entity kinds.
// The zero value (empty) means all kinds.
type Scope []Kind

// Kinds resolves the scope to a concrete kind list in canonical order.
func (s Scope) Kinds() []Kind {
	if len(s) == 0 {
		return AllKinds()
	}
	seen := make(map[Kind]bool, len(s))
	var kinds []Kind
	for _, k := range AllKinds() {
		for _, sk := range s {
			if sk == k && !seen[k] {
				seen[k] = true
				kinds = append(kinds, k)
			}
		}
	}
	return kinds
}

// Contains reports whether the scope includes the given kind.
func (s Scope) Contains(kind Kind) bool {
	if len(s) == 0 {
		return true
	}
	for _, k := range s {
		if k == kind {
			return true
		}
	}
	return false
}

// Catalog provides read access to the entities of one project.
// Implementations must be safe for concurrent readers; query execution
// never mutates catalog state.
type Catalog interface {
	// GetByID returns the entity with the given identity, or an error
	// if it does not exist.
	GetByID(ctx context.Context, kind Kind, id int64) (*Entity, error)

	// ListByKind returns all entities of one kind.
	ListByKind(ctx context.Context, kind Kind) ([]*Entity, error)

	// ListNames returns the (id, name, aliases) projection for one kind,
	// used by the exact and fuzzy retrievers.
	ListNames(ctx context.Context, kind Kind) ([]NameEntry, error)

	// Close releases resources.
	Close() error
}

// ErrNotFound is returned by GetByID when no entity matches.
type ErrNotFound struct {
	Kind Kind
	ID   int64
}

func (e ErrNotFound) Error() string {
	return fmt.Sprintf("entity %s:%d not found", e.Kind, e.ID)
}
