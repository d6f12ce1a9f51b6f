package cmd

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/queryforge/schemafuse/internal/output"
	"github.com/queryforge/schemafuse/internal/search"
)

type benchmarkOptions struct {
	methods []string
	kinds   []string
	format  string
}

func newBenchmarkCmd() *cobra.Command {
	var opts benchmarkOptions

	cmd := &cobra.Command{
		Use:   "benchmark <query>...",
		Short: "Measure per-method latency and success rate",
		Long: `Run every query against every method sequentially and report each
method's total time, average latency, and success rate. Individual
failures are recorded per query and never abort the run.

Examples:
  schemafuse benchmark "customers" "order total" "churn rate"
  schemafuse benchmark "email" --methods exact,fuzzy`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBenchmark(cmd.Context(), cmd, args, opts)
		},
	}

	cmd.Flags().StringSliceVar(&opts.methods, "methods", nil, "Methods to benchmark (default: all)")
	cmd.Flags().StringSliceVarP(&opts.kinds, "kind", "k", nil, "Restrict to kinds: table, column, dictionary (repeatable)")
	cmd.Flags().StringVarP(&opts.format, "format", "f", "text", "Output format: text, json")

	return cmd
}

func runBenchmark(ctx context.Context, cmd *cobra.Command, queries []string, opts benchmarkOptions) error {
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

	run, err := search.NewBenchmarkRunner(engine).Run(ctx, queries, methods, scope)
	if err != nil {
		return err
	}
	if opts.format == "json" {
		return writeJSONOutput(cmd, run)
	}

	out := output.New(cmd.OutOrStdout())
	renderBenchmark(out, run)
	return nil
}

func renderBenchmark(out *output.Writer, run *search.BenchmarkRun) {
	out.Headerf("Benchmark %s: %d queries x %d methods", run.ID, len(run.Queries), len(run.Methods))
	out.Newline()

	out.Linef("%-10s %12s %12s %10s", "method", "total", "avg", "success")
	for _, method := range run.Methods {
		stats := run.Stats[method]
		out.Linef("%-10s %12s %12s %9.0f%%",
			method, stats.TotalTime.Round(time.Microsecond), stats.AvgLatency.Round(time.Microsecond), stats.SuccessRate*100)
	}

	for _, method := range run.Methods {
		for _, o := range run.Outcomes[method] {
			if o.Error != "" {
				out.Warningf("%s %q: %s", method, o.Query, o.Error)
			}
		}
	}
}
