package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/queryforge/schemafuse/internal/output"
	"github.com/queryforge/schemafuse/internal/search"
)

type compareOptions struct {
	methods []string
	kinds   []string
	format  string
}

func newCompareCmd() *cobra.Command {
	var opts compareOptions

	cmd := &cobra.Command{
		Use:   "compare <query>",
		Short: "Compare retrieval methods on one query",
		Long: `Run several retrieval methods on the same query and show how their
result sets relate: the fused ranking with per-method provenance and
scores, plus the pairwise Jaccard overlap between methods.

Examples:
  schemafuse compare "customer lifetime value"
  schemafuse compare "email" --methods exact,fuzzy`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := strings.Join(args, " ")
			return runCompare(cmd.Context(), cmd, query, opts)
		},
	}

	cmd.Flags().StringSliceVar(&opts.methods, "methods", nil, "Methods to compare (default: all)")
	cmd.Flags().StringSliceVarP(&opts.kinds, "kind", "k", nil, "Restrict to kinds: table, column, dictionary (repeatable)")
	cmd.Flags().StringVarP(&opts.format, "format", "f", "text", "Output format: text, json")

	return cmd
}

func runCompare(ctx context.Context, cmd *cobra.Command, query string, opts compareOptions) error {
	engine, cleanup, err := buildEngine(ctx, projectDir)
	if err != nil {
		return err
	}
	defer cleanup()

	methods, err := parseMethodsFlag(opts.methods)
	if err != nil {
		return err
	}
	scope, err := parseKindsFlag(opts.kinds)
	if err != nil {
		return err
	}

	result, err := engine.Compare(ctx, query, methods, scope, nil)
	if err != nil {
		return err
	}
	if opts.format == "json" {
		return writeJSONOutput(cmd, result)
	}

	out := output.New(cmd.OutOrStdout())
	renderComparison(out, query, result)
	return nil
}

func renderComparison(out *output.Writer, query string, result *search.CombinedResult) {
	for _, f := range result.Failures {
		out.Warningf("%s unavailable: %s", f.Method, f.Message)
	}

	if len(result.Results) == 0 {
		out.Linef("No results for %q", query)
		return
	}

	out.Headerf("Fused ranking for %q", query)
	out.Newline()
	for i, r := range result.Results {
		out.Linef("%2d. %s %s", i+1, out.Score(r.CombinedScore), describeEntity(r.Entity))
		for _, m := range r.Methods {
			out.Dimf("      %-8s %.3f", m, r.PerMethodScores[m])
		}
	}

	if len(result.Overlap) < 2 {
		return
	}

	out.Newline()
	out.Header("Method overlap (Jaccard)")
	methods := overlapMethods(result.Overlap)

	header := fmt.Sprintf("%-10s", "")
	for _, m := range methods {
		header += fmt.Sprintf("%-10s", m)
	}
	out.Line(header)

	for _, a := range methods {
		row := fmt.Sprintf("%-10s", a)
		for _, b := range methods {
			row += fmt.Sprintf("%-10.2f", result.Overlap[a][b])
		}
		out.Line(row)
	}
}

// overlapMethods returns the overlap matrix's methods in canonical
// order.
func overlapMethods(overlap map[search.Method]map[search.Method]float64) []search.Method {
	var methods []search.Method
	for _, m := range search.CanonicalMethods() {
		if _, ok := overlap[m]; ok {
			methods = append(methods, m)
		}
	}
	return methods
}
