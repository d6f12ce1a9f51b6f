package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/queryforge/schemafuse/internal/catalog"
	"github.com/queryforge/schemafuse/internal/config"
	"github.com/queryforge/schemafuse/internal/embed"
	"github.com/queryforge/schemafuse/internal/index"
	"github.com/queryforge/schemafuse/internal/search"
)

// buildEngine loads configuration, opens the catalog, builds in-memory
// indexes, and wires the search engine. The returned cleanup closes
// everything.
func buildEngine(ctx context.Context, dir string) (*search.Engine, func(), error) {
	cfg, err := config.Load(dir)
	if err != nil {
		return nil, nil, err
	}
	return buildEngineFromConfig(ctx, cfg)
}

func buildEngineFromConfig(ctx context.Context, cfg *config.Config) (*search.Engine, func(), error) {
	cat, err := openCatalog(cfg)
	if err != nil {
		return nil, nil, err
	}

	embedder := newEmbedder(cfg)
	closeAll := func() {
		_ = embedder.Close()
		_ = cat.Close()
	}

	builder := &index.Builder{
		Embedder: embedder,
		Backend:  index.LexicalBackend(cfg.Lexical.Backend),
	}
	registry, err := builder.Build(ctx, cat, nil)
	if err != nil {
		closeAll()
		return nil, nil, fmt.Errorf("failed to build indexes: %w", err)
	}

	rc, err := cfg.Retrieval()
	if err != nil {
		registry.Close()
		closeAll()
		return nil, nil, err
	}

	engine, err := search.NewEngine(cat, registry, embedder, rc)
	if err != nil {
		registry.Close()
		closeAll()
		return nil, nil, err
	}

	cleanup := func() {
		registry.Close()
		closeAll()
	}
	return engine, cleanup, nil
}

func openCatalog(cfg *config.Config) (catalog.Catalog, error) {
	switch strings.ToLower(cfg.Catalog.Driver) {
	case "memory":
		return catalog.NewMemoryCatalog(), nil
	default:
		cat, err := catalog.OpenSQLite(cfg.Catalog.Path)
		if err != nil {
			return nil, fmt.Errorf("failed to open catalog at %s: %w", cfg.Catalog.Path, err)
		}
		return cat, nil
	}
}

func newEmbedder(cfg *config.Config) embed.Embedder {
	var inner embed.Embedder
	switch strings.ToLower(cfg.Embeddings.Provider) {
	case "ollama":
		inner = embed.NewOllamaEmbedder(embed.OllamaConfig{
			Host:       cfg.Embeddings.OllamaHost,
			Model:      cfg.Embeddings.Model,
			Dimensions: cfg.Embeddings.Dimensions,
		})
	default:
		inner = embed.NewStaticEmbedder()
	}

	if cfg.Embeddings.CacheSize > 0 {
		return embed.NewCachedEmbedder(inner, cfg.Embeddings.CacheSize)
	}
	return inner
}

// parseKindsFlag converts --kind values into a scope.
func parseKindsFlag(kinds []string) (catalog.Scope, error) {
	scope := make(catalog.Scope, 0, len(kinds))
	for _, k := range kinds {
		kind, err := catalog.ParseKind(k)
		if err != nil {
			return nil, err
		}
		scope = append(scope, kind)
	}
	return scope, nil
}

// parseMethodsFlag converts --method values into typed methods.
func parseMethodsFlag(names []string) ([]search.Method, error) {
	methods := make([]search.Method, 0, len(names))
	for _, name := range names {
		m, err := search.ParseMethod(name)
		if err != nil {
			return nil, err
		}
		methods = append(methods, m)
	}
	return methods, nil
}

// describeEntity renders an entity's identity for text output.
func describeEntity(e *catalog.Entity) string {
	switch e.Kind {
	case catalog.KindColumn:
		if e.TableName != "" {
			return fmt.Sprintf("column %s.%s", e.TableName, e.Name)
		}
		return fmt.Sprintf("column %s", e.Name)
	case catalog.KindDictionary:
		return fmt.Sprintf("term %s", e.Name)
	default:
		return fmt.Sprintf("table %s", e.Name)
	}
}

// entityDetail returns the descriptive text for an entity, if any.
func entityDetail(e *catalog.Entity) string {
	if e.Description != "" {
		return e.Description
	}
	return e.Definition
}
