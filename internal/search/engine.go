package search

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/queryforge/schemafuse/internal/catalog"
	"github.com/queryforge/schemafuse/internal/embed"
	fuseerrors "github.com/queryforge/schemafuse/internal/errors"
	"github.com/queryforge/schemafuse/internal/index"
)

// ErrNilDependency is returned when a required dependency is nil.
var ErrNilDependency = errors.New("nil dependency")

// Engine coordinates the four retrievers: validation, parallel
// fan-out with per-method timeouts, normalization, and fusion.
// Query execution never mutates engine state, so one Engine serves
// concurrent queries.
type Engine struct {
	catalog    catalog.Catalog
	registry   *index.Registry
	retrievers map[Method]Retriever
	fuser      *Fuser
	config     RetrievalConfig
}

// NewEngine creates a search engine over a catalog and index registry.
func NewEngine(cat catalog.Catalog, registry *index.Registry, embedder embed.Embedder, cfg RetrievalConfig) (*Engine, error) {
	if cat == nil {
		return nil, fmt.Errorf("%w: catalog is required", ErrNilDependency)
	}
	if registry == nil {
		return nil, fmt.Errorf("%w: index registry is required", ErrNilDependency)
	}
	if embedder == nil {
		return nil, fmt.Errorf("%w: embedder is required", ErrNilDependency)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &Engine{
		catalog:  cat,
		registry: registry,
		retrievers: map[Method]Retriever{
			MethodSemantic: NewSemanticRetriever(embedder, registry, cat),
			MethodKeyword:  NewKeywordRetriever(registry, cat),
			MethodFuzzy:    NewFuzzyRetriever(cat),
			MethodExact:    NewExactRetriever(cat),
		},
		fuser:  NewFuser(),
		config: cfg,
	}, nil
}

// Config returns the engine's default retrieval configuration.
func (e *Engine) Config() RetrievalConfig {
	return e.config
}

// resolveConfig merges a per-request override with the engine default
// and validates the result before any retrieval runs.
func (e *Engine) resolveConfig(override *RetrievalConfig) (RetrievalConfig, error) {
	cfg := e.config
	if override != nil {
		cfg = *override
	}
	if err := cfg.Validate(); err != nil {
		return RetrievalConfig{}, err
	}
	return cfg, nil
}

func validateQuery(query string) (string, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return "", fuseerrors.EmptyQuery()
	}
	return query, nil
}

// Search runs a single retrieval method and returns its normalized
// candidates.
func (e *Engine) Search(ctx context.Context, query string, method Method, scope catalog.Scope, override *RetrievalConfig) ([]*Candidate, error) {
	cfg, err := e.resolveConfig(override)
	if err != nil {
		return nil, err
	}
	query, err = validateQuery(query)
	if err != nil {
		return nil, err
	}
	retriever, ok := e.retrievers[method]
	if !ok {
		_, err := ParseMethod(string(method))
		if err == nil {
			err = fuseerrors.InternalError(fmt.Sprintf("no retriever wired for method %q", method), nil)
		}
		return nil, err
	}

	candidates, err := e.retrieveWithTimeout(ctx, retriever, query, cfg, scope)
	if err != nil {
		return nil, err
	}
	return candidates, nil
}

// SearchMulti runs several methods in parallel and returns each
// method's results or failure independently. A method failing never
// disturbs the others; only all methods failing is an error.
func (e *Engine) SearchMulti(ctx context.Context, query string, methods []Method, scope catalog.Scope, override *RetrievalConfig) (*MultiResult, error) {
	cfg, err := e.resolveConfig(override)
	if err != nil {
		return nil, err
	}
	query, err = validateQuery(query)
	if err != nil {
		return nil, err
	}

	results, failures, err := e.fanOut(ctx, query, methods, scope, cfg)
	if err != nil {
		return nil, err
	}
	return &MultiResult{Results: results, Failures: failures}, nil
}

// Compare runs several methods in parallel, fuses their results into
// one deduplicated ranking, and reports the per-method overlap matrix.
// Failed methods are carried as partial failures alongside the fused
// results of the rest.
func (e *Engine) Compare(ctx context.Context, query string, methods []Method, scope catalog.Scope, override *RetrievalConfig) (*CombinedResult, error) {
	cfg, err := e.resolveConfig(override)
	if err != nil {
		return nil, err
	}
	query, err = validateQuery(query)
	if err != nil {
		return nil, err
	}

	results, failures, err := e.fanOut(ctx, query, methods, scope, cfg)
	if err != nil {
		return nil, err
	}

	return &CombinedResult{
		Results:  e.fuser.Fuse(results, cfg),
		Failures: failures,
		Overlap:  Overlap(results),
	}, nil
}

// Analyze builds schema hints from the catalog and runs the pure
// query analyzer.
func (e *Engine) Analyze(ctx context.Context, query string) (*QueryAnalysis, error) {
	query, err := validateQuery(query)
	if err != nil {
		return nil, err
	}

	hint := SchemaHint{}
	collect := func(kind catalog.Kind) ([]string, error) {
		entries, err := e.catalog.ListNames(ctx, kind)
		if err != nil {
			return nil, fuseerrors.Wrap(fuseerrors.ErrCodeCatalogUnavailable, err)
		}
		names := make([]string, 0, len(entries))
		for _, entry := range entries {
			names = append(names, entry.Name)
		}
		return names, nil
	}
	if hint.Tables, err = collect(catalog.KindTable); err != nil {
		return nil, err
	}
	if hint.Columns, err = collect(catalog.KindColumn); err != nil {
		return nil, err
	}
	if hint.Terms, err = collect(catalog.KindDictionary); err != nil {
		return nil, err
	}

	analysis := AnalyzeQuery(query, hint)
	return &analysis, nil
}

// AvailableMethods reports which methods have a ready backend for a
// scope.
func (e *Engine) AvailableMethods(scope catalog.Scope) []index.MethodAvailability {
	return e.registry.AvailableMethods(scope)
}

// resolveMethods validates the requested methods and returns them
// deduplicated in canonical order. Empty means all methods.
func resolveMethods(methods []Method) ([]Method, error) {
	if len(methods) == 0 {
		return CanonicalMethods(), nil
	}
	requested := make(map[Method]bool, len(methods))
	for _, m := range methods {
		if _, err := ParseMethod(string(m)); err != nil {
			return nil, err
		}
		requested[m] = true
	}
	var resolved []Method
	for _, m := range CanonicalMethods() {
		if requested[m] {
			resolved = append(resolved, m)
		}
	}
	return resolved, nil
}

// fanOut runs the requested methods in parallel, one goroutine each
// with its own timeout. Per-method errors are captured, never
// propagated through the group, so a slow or broken method cannot
// fail the rest. All methods failing is the one hard error.
func (e *Engine) fanOut(ctx context.Context, query string, methods []Method, scope catalog.Scope, cfg RetrievalConfig) (map[Method][]*Candidate, []MethodFailure, error) {
	resolved, err := resolveMethods(methods)
	if err != nil {
		return nil, nil, err
	}

	var mu sync.Mutex
	results := make(map[Method][]*Candidate, len(resolved))
	errs := make(map[Method]error, len(resolved))

	g, gctx := errgroup.WithContext(ctx)
	for _, method := range resolved {
		retriever := e.retrievers[method]
		g.Go(func() error {
			start := time.Now()
			candidates, err := e.retrieveWithTimeout(gctx, retriever, query, cfg, scope)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errs[retriever.Method()] = err
				slog.Warn("method_failed",
					slog.String("method", string(retriever.Method())),
					slog.String("error", err.Error()),
					slog.Duration("latency", time.Since(start)))
				return nil
			}
			results[retriever.Method()] = candidates
			return nil
		})
	}
	_ = g.Wait()

	failures := make([]MethodFailure, 0, len(errs))
	for _, method := range resolved {
		if err, ok := errs[method]; ok {
			failures = append(failures, MethodFailure{
				Method:  method,
				Code:    fuseerrors.GetCode(err),
				Message: err.Error(),
			})
		}
	}

	if len(results) == 0 {
		all := fuseerrors.AllMethodsUnavailable()
		for _, f := range failures {
			all = all.WithDetail(string(f.Method), f.Message)
		}
		return nil, nil, all
	}
	return results, failures, nil
}

// retrieveWithTimeout runs one retriever under the per-method
// deadline, normalizes scores, and maps deadline errors to the
// timeout code.
func (e *Engine) retrieveWithTimeout(ctx context.Context, retriever Retriever, query string, cfg RetrievalConfig, scope catalog.Scope) ([]*Candidate, error) {
	mctx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()

	candidates, err := retriever.Retrieve(mctx, query, cfg, scope)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(mctx.Err(), context.DeadlineExceeded) {
			return nil, fuseerrors.RetrievalTimeout(string(retriever.Method()), err)
		}
		return nil, err
	}

	for _, c := range candidates {
		c.Score = Normalize(retriever.Method(), c.RawScore)
	}
	return candidates, nil
}
