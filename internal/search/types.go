// Package search implements multi-method retrieval over a schema
// catalog and the fusion of per-method results into a single ranked
// list. Four retrievers (semantic, keyword, fuzzy, exact) produce raw
// candidates; the fuser deduplicates across methods, combines scores,
// and keeps per-method provenance.
package search

import (
	"fmt"
	"time"

	"github.com/queryforge/schemafuse/internal/catalog"
	fuseerrors "github.com/queryforge/schemafuse/internal/errors"
)

// Method identifies one retrieval strategy.
type Method string

const (
	MethodSemantic Method = "semantic"
	MethodKeyword  Method = "keyword"
	MethodFuzzy    Method = "fuzzy"
	MethodExact    Method = "exact"
)

// CanonicalMethods returns all methods in canonical order. Fusion and
// availability reporting iterate methods in this order, which is what
// makes first-seen tie-breaking deterministic.
func CanonicalMethods() []Method {
	return []Method{MethodSemantic, MethodKeyword, MethodFuzzy, MethodExact}
}

// ParseMethod converts a string to a Method.
func ParseMethod(s string) (Method, error) {
	switch Method(s) {
	case MethodSemantic, MethodKeyword, MethodFuzzy, MethodExact:
		return Method(s), nil
	}
	return "", fuseerrors.New(fuseerrors.ErrCodeInvalidMethod,
		fmt.Sprintf("unknown search method %q", s), nil).
		WithDetail("method", s).
		WithSuggestion("valid methods: semantic, keyword, fuzzy, exact")
}

// Default configuration values.
const (
	DefaultSemanticTopK       = 5
	DefaultKeywordTopK        = 5
	DefaultFuzzyThreshold     = 70
	DefaultMaxCombinedResults = 20
	DefaultTimeout            = 5 * time.Second

	// fuzzyPerKindLimit caps fuzzy matches per entity kind.
	fuzzyPerKindLimit = 5
)

// DefaultMethodWeights reflect how much each method's evidence counts
// toward the combined score: exact name hits dominate, fuzzy spelling
// matches count least.
var DefaultMethodWeights = map[Method]float64{
	MethodExact:    1.0,
	MethodSemantic: 0.8,
	MethodKeyword:  0.7,
	MethodFuzzy:    0.6,
}

// CombinePolicy selects how per-method scores merge into one.
type CombinePolicy string

const (
	// PolicyEvidence combines scores as independent evidence:
	// combined = 1 − Π(1 − w_m·s_m). Monotone non-decreasing in every
	// per-method score and in the set of contributing methods.
	PolicyEvidence CombinePolicy = "evidence"

	// PolicyMean combines scores as a weighted mean with an
	// exact-match floor.
	PolicyMean CombinePolicy = "mean"
)

// RetrievalConfig carries per-query retrieval parameters.
type RetrievalConfig struct {
	SemanticTopK       int                `json:"semantic_top_k" yaml:"semantic_top_k"`
	KeywordTopK        int                `json:"keyword_top_k" yaml:"keyword_top_k"`
	FuzzyThreshold     int                `json:"fuzzy_threshold" yaml:"fuzzy_threshold"`
	MaxCombinedResults int                `json:"max_combined_results" yaml:"max_combined_results"`
	MethodWeights      map[Method]float64 `json:"method_weights,omitempty" yaml:"method_weights,omitempty"`
	Timeout            time.Duration      `json:"timeout" yaml:"timeout"`
	CombinePolicy      CombinePolicy      `json:"combine_policy" yaml:"combine_policy"`
}

// DefaultRetrievalConfig returns the default configuration.
func DefaultRetrievalConfig() RetrievalConfig {
	return RetrievalConfig{
		SemanticTopK:       DefaultSemanticTopK,
		KeywordTopK:        DefaultKeywordTopK,
		FuzzyThreshold:     DefaultFuzzyThreshold,
		MaxCombinedResults: DefaultMaxCombinedResults,
		Timeout:            DefaultTimeout,
		CombinePolicy:      PolicyEvidence,
	}
}

// Validate rejects out-of-range values. Called before any retrieval
// is dispatched so a bad config never produces partial work.
func (c *RetrievalConfig) Validate() error {
	if c.SemanticTopK <= 0 {
		return fuseerrors.InvalidConfig("semantic_top_k", "must be positive")
	}
	if c.KeywordTopK <= 0 {
		return fuseerrors.InvalidConfig("keyword_top_k", "must be positive")
	}
	if c.FuzzyThreshold < 0 || c.FuzzyThreshold > 100 {
		return fuseerrors.InvalidConfig("fuzzy_threshold", "must be in [0,100]")
	}
	if c.MaxCombinedResults <= 0 {
		return fuseerrors.InvalidConfig("max_combined_results", "must be positive")
	}
	if c.Timeout <= 0 {
		return fuseerrors.InvalidConfig("timeout", "must be positive")
	}
	for method, w := range c.MethodWeights {
		if _, err := ParseMethod(string(method)); err != nil {
			return fuseerrors.InvalidConfig("method_weights", fmt.Sprintf("unknown method %q", method))
		}
		if w < 0 || w > 1 {
			return fuseerrors.InvalidConfig("method_weights",
				fmt.Sprintf("weight for %s must be in [0,1], got %g", method, w))
		}
	}
	switch c.CombinePolicy {
	case PolicyEvidence, PolicyMean, "":
	default:
		return fuseerrors.InvalidConfig("combine_policy",
			fmt.Sprintf("unknown policy %q", c.CombinePolicy))
	}
	return nil
}

// weight returns the effective weight for a method.
func (c *RetrievalConfig) weight(m Method) float64 {
	if w, ok := c.MethodWeights[m]; ok {
		return w
	}
	return DefaultMethodWeights[m]
}

// policy returns the effective combine policy.
func (c *RetrievalConfig) policy() CombinePolicy {
	if c.CombinePolicy == "" {
		return PolicyEvidence
	}
	return c.CombinePolicy
}

// Candidate is one scored match from a single retrieval method.
// RawScore is the method-native score; Score is the normalized [0,1]
// score set by the engine.
type Candidate struct {
	Entity   *catalog.Entity `json:"entity"`
	RawScore float64         `json:"raw_score"`
	Score    float64         `json:"score"`
	Method   Method          `json:"method"`
}

// FusedResult is one deduplicated entity after fusion, with combined
// score and per-method provenance. Methods is in canonical order.
type FusedResult struct {
	Entity          *catalog.Entity    `json:"entity"`
	CombinedScore   float64            `json:"combined_score"`
	Methods         []Method           `json:"methods"`
	PerMethodScores map[Method]float64 `json:"per_method_scores"`

	// seq is the first-seen sequence across canonical method order,
	// used as the final deterministic tie-break.
	seq int
}

// MethodFailure describes one method that could not contribute.
type MethodFailure struct {
	Method  Method `json:"method"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// MultiResult holds independent per-method results.
type MultiResult struct {
	Results  map[Method][]*Candidate `json:"results"`
	Failures []MethodFailure         `json:"partial_failures,omitempty"`
}

// CombinedResult holds fused results plus any per-method failures
// that degraded (but did not abort) the query.
type CombinedResult struct {
	Results  []*FusedResult  `json:"results"`
	Failures []MethodFailure `json:"partial_failures,omitempty"`

	// Overlap is the pairwise Jaccard overlap of entity keys between
	// methods that returned results.
	Overlap map[Method]map[Method]float64 `json:"overlap,omitempty"`
}
