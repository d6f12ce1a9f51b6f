package catalog

import (
	"context"
	"sort"
	"sync"
)

// MemoryCatalog is an in-memory Catalog backed by maps. It is the
// catalog used by tests and by ad-hoc CLI runs over fixture data.
type MemoryCatalog struct {
	mu       sync.RWMutex
	entities map[Kind]map[int64]*Entity
}

// NewMemoryCatalog creates an empty in-memory catalog.
func NewMemoryCatalog() *MemoryCatalog {
	return &MemoryCatalog{
		entities: make(map[Kind]map[int64]*Entity),
	}
}

// Put inserts or replaces an entity.
func (c *MemoryCatalog) Put(e *Entity) {
	c.mu.Lock()
	defer c.mu.Unlock()

	byID, ok := c.entities[e.Kind]
	if !ok {
		byID = make(map[int64]*Entity)
		c.entities[e.Kind] = byID
	}
	byID[e.ID] = e
}

// PutAll inserts or replaces a batch of entities.
func (c *MemoryCatalog) PutAll(entities []*Entity) {
	for _, e := range entities {
		c.Put(e)
	}
}

// GetByID returns the entity with the given identity.
func (c *MemoryCatalog) GetByID(_ context.Context, kind Kind, id int64) (*Entity, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if e, ok := c.entities[kind][id]; ok {
		return e, nil
	}
	return nil, ErrNotFound{Kind: kind, ID: id}
}

// ListByKind returns all entities of one kind, ordered by ID.
func (c *MemoryCatalog) ListByKind(_ context.Context, kind Kind) ([]*Entity, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	byID := c.entities[kind]
	out := make([]*Entity, 0, len(byID))
	for _, e := range byID {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// ListNames returns the (id, name, aliases) projection for one kind,
// ordered by ID.
func (c *MemoryCatalog) ListNames(ctx context.Context, kind Kind) ([]NameEntry, error) {
	entities, err := c.ListByKind(ctx, kind)
	if err != nil {
		return nil, err
	}
	out := make([]NameEntry, 0, len(entities))
	for _, e := range entities {
		out = append(out, NameEntry{ID: e.ID, Name: e.Name, Aliases: e.Aliases})
	}
	return out, nil
}

// Close is a no-op for the in-memory catalog.
func (c *MemoryCatalog) Close() error {
	return nil
}
