package index

import (
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/queryforge/schemafuse/internal/catalog"
)

// Method names reported by AvailableMethods. The search package owns
// the Method type; the registry speaks plain strings to stay below it
// in the dependency graph.
const (
	MethodSemantic = "semantic"
	MethodKeyword  = "keyword"
	MethodFuzzy    = "fuzzy"
	MethodExact    = "exact"
)

type registeredVector struct {
	id  string
	idx VectorIndex
}

type registeredLexical struct {
	id  string
	idx LexicalIndex
}

// Registry tracks which entity kinds have ready vector and lexical
// indexes. Each registration gets a stable UUID so availability
// reports and logs can name the backing index.
type Registry struct {
	mu       sync.RWMutex
	vectors  map[catalog.Kind]registeredVector
	lexicals map[catalog.Kind]registeredLexical
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		vectors:  make(map[catalog.Kind]registeredVector),
		lexicals: make(map[catalog.Kind]registeredLexical),
	}
}

// RegisterVector registers a vector index for one kind, replacing any
// previous registration. Returns the assigned index ID.
func (r *Registry) RegisterVector(kind catalog.Kind, idx VectorIndex) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	id := uuid.NewString()
	r.vectors[kind] = registeredVector{id: id, idx: idx}
	return id
}

// RegisterLexical registers a lexical index for one kind, replacing
// any previous registration. Returns the assigned index ID.
func (r *Registry) RegisterLexical(kind catalog.Kind, idx LexicalIndex) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	id := uuid.NewString()
	r.lexicals[kind] = registeredLexical{id: id, idx: idx}
	return id
}

// Vector returns the ready vector index for a kind, if any. An index
// with no documents is not considered ready.
func (r *Registry) Vector(kind catalog.Kind) (VectorIndex, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	reg, ok := r.vectors[kind]
	if !ok || reg.idx.Len() == 0 {
		return nil, false
	}
	return reg.idx, true
}

// Lexical returns the ready lexical index for a kind, if any.
func (r *Registry) Lexical(kind catalog.Kind) (LexicalIndex, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	reg, ok := r.lexicals[kind]
	if !ok || reg.idx.Len() == 0 {
		return nil, false
	}
	return reg.idx, true
}

// AvailableMethods reports per-method availability for a scope.
// Semantic and keyword require at least one ready index covering the
// scope; fuzzy and exact run off catalog name lists and are always
// available. Methods come back in canonical order.
func (r *Registry) AvailableMethods(scope catalog.Scope) []MethodAvailability {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var vectorIDs, lexicalIDs []string
	for _, kind := range scope.Kinds() {
		if reg, ok := r.vectors[kind]; ok && reg.idx.Len() > 0 {
			vectorIDs = append(vectorIDs, reg.id)
		}
		if reg, ok := r.lexicals[kind]; ok && reg.idx.Len() > 0 {
			lexicalIDs = append(lexicalIDs, reg.id)
		}
	}
	sort.Strings(vectorIDs)
	sort.Strings(lexicalIDs)

	return []MethodAvailability{
		{Method: MethodSemantic, Available: len(vectorIDs) > 0, IndexIDs: vectorIDs},
		{Method: MethodKeyword, Available: len(lexicalIDs) > 0, IndexIDs: lexicalIDs},
		{Method: MethodFuzzy, Available: true},
		{Method: MethodExact, Available: true},
	}
}

// Close closes every registered index.
func (r *Registry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var firstErr error
	for _, reg := range r.vectors {
		if err := reg.idx.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	for _, reg := range r.lexicals {
		if err := reg.idx.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
