package server

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/queryforge/schemafuse/internal/catalog"
	fuseerrors "github.com/queryforge/schemafuse/internal/errors"
	"github.com/queryforge/schemafuse/internal/search"
)

// searchRequest is the body of the search, multi, and compare routes.
type searchRequest struct {
	Query   string          `json:"query"`
	Method  string          `json:"method,omitempty"`
	Methods []string        `json:"methods,omitempty"`
	Kinds   []string        `json:"kinds,omitempty"`
	Config  *configOverride `json:"config,omitempty"`
}

type benchmarkRequest struct {
	Queries []string `json:"queries"`
	Methods []string `json:"methods,omitempty"`
	Kinds   []string `json:"kinds,omitempty"`
}

// configOverride is a partial retrieval config. Unset fields keep the
// engine defaults.
type configOverride struct {
	SemanticTopK       *int               `json:"semantic_top_k,omitempty"`
	KeywordTopK        *int               `json:"keyword_top_k,omitempty"`
	FuzzyThreshold     *int               `json:"fuzzy_threshold,omitempty"`
	MaxCombinedResults *int               `json:"max_combined_results,omitempty"`
	Timeout            *string            `json:"timeout,omitempty"`
	CombinePolicy      *string            `json:"combine_policy,omitempty"`
	MethodWeights      map[string]float64 `json:"method_weights,omitempty"`
}

// apply merges the override onto base and returns the result, or nil
// if there is nothing to override.
func (o *configOverride) apply(base search.RetrievalConfig) (*search.RetrievalConfig, error) {
	if o == nil {
		return nil, nil
	}
	cfg := base
	if o.SemanticTopK != nil {
		cfg.SemanticTopK = *o.SemanticTopK
	}
	if o.KeywordTopK != nil {
		cfg.KeywordTopK = *o.KeywordTopK
	}
	if o.FuzzyThreshold != nil {
		cfg.FuzzyThreshold = *o.FuzzyThreshold
	}
	if o.MaxCombinedResults != nil {
		cfg.MaxCombinedResults = *o.MaxCombinedResults
	}
	if o.Timeout != nil {
		d, err := time.ParseDuration(*o.Timeout)
		if err != nil {
			return nil, fuseerrors.InvalidConfig("timeout", err.Error())
		}
		cfg.Timeout = d
	}
	if o.CombinePolicy != nil {
		cfg.CombinePolicy = search.CombinePolicy(*o.CombinePolicy)
	}
	if len(o.MethodWeights) > 0 {
		weights := make(map[search.Method]float64, len(o.MethodWeights))
		for m, w := range o.MethodWeights {
			weights[search.Method(m)] = w
		}
		cfg.MethodWeights = weights
	}
	return &cfg, nil
}

func parseScope(kinds []string) (catalog.Scope, error) {
	scope := make(catalog.Scope, 0, len(kinds))
	for _, k := range kinds {
		kind, err := catalog.ParseKind(k)
		if err != nil {
			return nil, fuseerrors.New(fuseerrors.ErrCodeInvalidScope, err.Error(), err).
				WithDetail("kind", k).
				WithSuggestion("valid kinds: table, column, dictionary")
		}
		scope = append(scope, kind)
	}
	return scope, nil
}

func parseMethods(names []string) ([]search.Method, error) {
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

func (s *Server) engine(w http.ResponseWriter, r *http.Request) (*search.Engine, bool) {
	project := chi.URLParam(r, "project")
	engine, err := s.provider.Engine(r.Context(), project)
	if err != nil {
		s.logger.Error("engine_resolution_failed",
			slog.String("project", project),
			slog.String("error", err.Error()))
		writeError(w, err)
		return nil, false
	}
	return engine, true
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, fuseerrors.New(fuseerrors.ErrCodeInvalidConfig,
			fmt.Sprintf("invalid request body: %v", err), err))
		return false
	}
	return true
}

// handleSearch runs a single retrieval method.
func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	engine, ok := s.engine(w, r)
	if !ok {
		return
	}
	var req searchRequest
	if !decodeBody(w, r, &req) {
		return
	}

	if req.Method == "" {
		writeError(w, fuseerrors.New(fuseerrors.ErrCodeInvalidMethod,
			"method is required", nil).
			WithSuggestion("valid methods: semantic, keyword, fuzzy, exact"))
		return
	}
	method, err := search.ParseMethod(req.Method)
	if err != nil {
		writeError(w, err)
		return
	}
	scope, err := parseScope(req.Kinds)
	if err != nil {
		writeError(w, err)
		return
	}
	override, err := req.Config.apply(engine.Config())
	if err != nil {
		writeError(w, err)
		return
	}

	candidates, err := engine.Search(r.Context(), req.Query, method, scope, override)
	if err != nil {
		writeError(w, err)
		return
	}
	writeData(w, http.StatusOK, map[string]any{
		"method":  method,
		"results": candidates,
	}, nil)
}

// handleSearchMulti runs several methods and returns their results
// side by side.
func (s *Server) handleSearchMulti(w http.ResponseWriter, r *http.Request) {
	engine, ok := s.engine(w, r)
	if !ok {
		return
	}
	var req searchRequest
	if !decodeBody(w, r, &req) {
		return
	}

	methods, err := parseMethods(req.Methods)
	if err != nil {
		writeError(w, err)
		return
	}
	scope, err := parseScope(req.Kinds)
	if err != nil {
		writeError(w, err)
		return
	}
	override, err := req.Config.apply(engine.Config())
	if err != nil {
		writeError(w, err)
		return
	}

	result, err := engine.SearchMulti(r.Context(), req.Query, methods, scope, override)
	if err != nil {
		writeError(w, err)
		return
	}
	writeData(w, http.StatusOK, map[string]any{
		"results": result.Results,
	}, result.Failures)
}

// handleCompare fuses several methods into one deduplicated ranking
// with the per-method overlap matrix.
func (s *Server) handleCompare(w http.ResponseWriter, r *http.Request) {
	engine, ok := s.engine(w, r)
	if !ok {
		return
	}
	var req searchRequest
	if !decodeBody(w, r, &req) {
		return
	}

	methods, err := parseMethods(req.Methods)
	if err != nil {
		writeError(w, err)
		return
	}
	scope, err := parseScope(req.Kinds)
	if err != nil {
		writeError(w, err)
		return
	}
	override, err := req.Config.apply(engine.Config())
	if err != nil {
		writeError(w, err)
		return
	}

	result, err := engine.Compare(r.Context(), req.Query, methods, scope, override)
	if err != nil {
		writeError(w, err)
		return
	}
	writeData(w, http.StatusOK, map[string]any{
		"results": result.Results,
		"overlap": result.Overlap,
	}, result.Failures)
}

// handleAnalyze inspects a query without running a search.
func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	engine, ok := s.engine(w, r)
	if !ok {
		return
	}
	var req searchRequest
	if !decodeBody(w, r, &req) {
		return
	}

	analysis, err := engine.Analyze(r.Context(), req.Query)
	if err != nil {
		writeError(w, err)
		return
	}
	writeData(w, http.StatusOK, analysis, nil)
}

// handleBenchmark runs the query×method benchmark matrix.
func (s *Server) handleBenchmark(w http.ResponseWriter, r *http.Request) {
	engine, ok := s.engine(w, r)
	if !ok {
		return
	}
	var req benchmarkRequest
	if !decodeBody(w, r, &req) {
		return
	}

	methods, err := parseMethods(req.Methods)
	if err != nil {
		writeError(w, err)
		return
	}
	scope, err := parseScope(req.Kinds)
	if err != nil {
		writeError(w, err)
		return
	}

	run, err := search.NewBenchmarkRunner(engine).Run(r.Context(), req.Queries, methods, scope)
	if err != nil {
		writeError(w, err)
		return
	}
	writeData(w, http.StatusOK, run, nil)
}

// handleMethods reports per-method availability.
func (s *Server) handleMethods(w http.ResponseWriter, r *http.Request) {
	engine, ok := s.engine(w, r)
	if !ok {
		return
	}
	scope, err := parseScope(splitQueryKinds(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeData(w, http.StatusOK, map[string]any{
		"methods": engine.AvailableMethods(scope),
	}, nil)
}

// splitQueryKinds reads repeated ?kind= query parameters.
func splitQueryKinds(r *http.Request) []string {
	return r.URL.Query()["kind"]
}
