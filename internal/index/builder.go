package index

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/queryforge/schemafuse/internal/catalog"
	"github.com/queryforge/schemafuse/internal/embed"
)

// Builder constructs in-memory indexes from a catalog snapshot and
// registers them. It stands in for the external indexing subsystem so
// the CLI and tests can run end to end.
type Builder struct {
	Embedder embed.Embedder
	Backend  LexicalBackend
	HNSW     HNSWConfig
}

// Build indexes every kind in scope and returns a populated registry.
// Kinds with no entities are skipped: an empty index would register as
// not-ready anyway.
func (b *Builder) Build(ctx context.Context, cat catalog.Catalog, scope catalog.Scope) (*Registry, error) {
	registry := NewRegistry()

	for _, kind := range scope.Kinds() {
		entities, err := cat.ListByKind(ctx, kind)
		if err != nil {
			return nil, fmt.Errorf("list %s entities: %w", kind, err)
		}
		if len(entities) == 0 {
			continue
		}

		ids := make([]int64, len(entities))
		texts := make([]string, len(entities))
		for i, e := range entities {
			ids[i] = e.ID
			texts[i] = e.IndexText()
		}

		if b.Embedder != nil {
			if err := b.buildVector(ctx, registry, kind, ids, texts); err != nil {
				return nil, err
			}
		}
		if err := b.buildLexical(ctx, registry, kind, ids, texts); err != nil {
			return nil, err
		}

		slog.Debug("indexes_built",
			slog.String("kind", string(kind)),
			slog.Int("entities", len(entities)))
	}

	return registry, nil
}

func (b *Builder) buildVector(ctx context.Context, registry *Registry, kind catalog.Kind, ids []int64, texts []string) error {
	vectors, err := b.Embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return fmt.Errorf("embed %s entities: %w", kind, err)
	}

	cfg := b.HNSW
	if cfg.Dimensions == 0 {
		cfg.Dimensions = b.Embedder.Dimensions()
	}
	vecIdx, err := NewHNSWIndex(cfg)
	if err != nil {
		return fmt.Errorf("create vector index for %s: %w", kind, err)
	}
	if err := vecIdx.Add(ctx, ids, vectors); err != nil {
		return fmt.Errorf("populate vector index for %s: %w", kind, err)
	}
	registry.RegisterVector(kind, vecIdx)
	return nil
}

func (b *Builder) buildLexical(ctx context.Context, registry *Registry, kind catalog.Kind, ids []int64, texts []string) error {
	var lexIdx LexicalIndex
	switch b.Backend {
	case BackendBleve:
		idx, err := NewBleveIndex()
		if err != nil {
			return fmt.Errorf("create bleve index for %s: %w", kind, err)
		}
		lexIdx = idx
	case BackendTFIDF, "":
		lexIdx = NewTFIDFIndex()
	default:
		return fmt.Errorf("unknown lexical backend %q", b.Backend)
	}

	if err := lexIdx.Add(ctx, ids, texts); err != nil {
		return fmt.Errorf("populate lexical index for %s: %w", kind, err)
	}
	registry.RegisterLexical(kind, lexIdx)
	return nil
}
