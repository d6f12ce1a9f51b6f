package cmd

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/queryforge/schemafuse/internal/output"
	"github.com/queryforge/schemafuse/internal/search"
)

// searchOptions holds CLI flags for search.
type searchOptions struct {
	method string   // empty = fused combined search
	kinds  []string // entity kinds to search
	limit  int
	policy string // "evidence" or "mean"
	format string // "text", "json"
}

func newSearchCmd() *cobra.Command {
	var opts searchOptions

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search the schema catalog",
		Long: `Search the schema catalog for tables, columns, and dictionary terms.

Without --method, all four methods run in parallel and their results
are fused into one deduplicated ranking. With --method, only that
method runs and its normalized scores are shown.

Examples:
  schemafuse search "customer churn"
  schemafuse search "email" --method exact
  schemafuse search "order total" --kind column --limit 5
  schemafuse search "revenue" --format json`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := strings.Join(args, " ")
			return runSearch(cmd.Context(), cmd, query, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.method, "method", "m", "", "Single method: semantic, keyword, fuzzy, exact (default: fused)")
	cmd.Flags().StringSliceVarP(&opts.kinds, "kind", "k", nil, "Restrict to kinds: table, column, dictionary (repeatable)")
	cmd.Flags().IntVarP(&opts.limit, "limit", "n", 0, "Maximum combined results (0 = config default)")
	cmd.Flags().StringVar(&opts.policy, "policy", "", "Combine policy: evidence, mean (default: config)")
	cmd.Flags().StringVarP(&opts.format, "format", "f", "text", "Output format: text, json")

	return cmd
}

func runSearch(ctx context.Context, cmd *cobra.Command, query string, opts searchOptions) error {
	engine, cleanup, err := buildEngine(ctx, projectDir)
	if err != nil {
		return err
	}
	defer cleanup()

	scope, err := parseKindsFlag(opts.kinds)
	if err != nil {
		return err
	}
	override := searchOverride(engine.Config(), opts)

	slog.Info("search_started",
		slog.String("query", query),
		slog.String("method", opts.method))

	out := output.New(cmd.OutOrStdout())

	if opts.method != "" {
		method, err := search.ParseMethod(opts.method)
		if err != nil {
			return err
		}
		candidates, err := engine.Search(ctx, query, method, scope, override)
		if err != nil {
			return err
		}
		if opts.format == "json" {
			return writeJSONOutput(cmd, candidates)
		}
		renderCandidates(out, query, method, candidates)
		return nil
	}

	result, err := engine.Compare(ctx, query, nil, scope, override)
	if err != nil {
		return err
	}
	if opts.format == "json" {
		return writeJSONOutput(cmd, result)
	}
	renderFused(out, query, result)
	return nil
}

// searchOverride builds a per-run config override from CLI flags, or
// nil when no flag deviates from the engine default.
func searchOverride(base search.RetrievalConfig, opts searchOptions) *search.RetrievalConfig {
	if opts.limit <= 0 && opts.policy == "" {
		return nil
	}
	cfg := base
	if opts.limit > 0 {
		cfg.MaxCombinedResults = opts.limit
	}
	if opts.policy != "" {
		cfg.CombinePolicy = search.CombinePolicy(opts.policy)
	}
	return &cfg
}

func writeJSONOutput(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func renderCandidates(out *output.Writer, query string, method search.Method, candidates []*search.Candidate) {
	if len(candidates) == 0 {
		out.Linef("No %s results for %q", method, query)
		return
	}

	out.Headerf("%d %s results for %q", len(candidates), method, query)
	out.Newline()
	for i, c := range candidates {
		out.Linef("%2d. %s  %s %s", i+1, out.Bar(c.Score, 10), out.Score(c.Score), describeEntity(c.Entity))
		if detail := entityDetail(c.Entity); detail != "" {
			out.Dim("      " + detail)
		}
	}
}

func renderFused(out *output.Writer, query string, result *search.CombinedResult) {
	for _, f := range result.Failures {
		out.Warningf("%s unavailable: %s", f.Method, f.Message)
	}

	if len(result.Results) == 0 {
		out.Linef("No results for %q", query)
		return
	}

	out.Headerf("%d results for %q", len(result.Results), query)
	out.Newline()
	for i, r := range result.Results {
		methods := make([]string, len(r.Methods))
		for j, m := range r.Methods {
			methods[j] = string(m)
		}
		out.Linef("%2d. %s  %s %s", i+1, out.Bar(r.CombinedScore, 10), out.Score(r.CombinedScore), describeEntity(r.Entity))
		out.Dim("      via " + strings.Join(methods, ", "))
		if detail := entityDetail(r.Entity); detail != "" {
			out.Dim("      " + detail)
		}
	}
}
