package cmd

import (
	"context"
	"strings"

	"github.com/spf13/cobra"

	"github.com/queryforge/schemafuse/internal/output"
	"github.com/queryforge/schemafuse/internal/search"
)

func newAnalyzeCmd() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "analyze <query>",
		Short: "Inspect a query without searching",
		Long: `Analyze a query's shape and its relationship to the schema: length,
word count, operator/quote/wildcard usage, which catalog names it
mentions, and suggestions for better phrasing. No search is run.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := strings.Join(args, " ")
			return runAnalyze(cmd.Context(), cmd, query, format)
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "text", "Output format: text, json")
	return cmd
}

func runAnalyze(ctx context.Context, cmd *cobra.Command, query, format string) error {
	engine, cleanup, err := buildEngine(ctx, projectDir)
	if err != nil {
		return err
	}
	defer cleanup()

	analysis, err := engine.Analyze(ctx, query)
	if err != nil {
		return err
	}
	if format == "json" {
		return writeJSONOutput(cmd, analysis)
	}

	out := output.New(cmd.OutOrStdout())
	renderAnalysis(out, analysis)
	return nil
}

func renderAnalysis(out *output.Writer, a *search.QueryAnalysis) {
	out.Headerf("Analysis of %q", a.Query)
	out.Newline()
	out.Linef("Length: %d runes, %d words", a.Length, a.WordCount)

	var flags []string
	if a.HasOperators {
		flags = append(flags, "operators")
	}
	if a.HasQuotes {
		flags = append(flags, "quotes")
	}
	if a.HasWildcards {
		flags = append(flags, "wildcards")
	}
	if len(flags) > 0 {
		out.Linef("Contains: %s", strings.Join(flags, ", "))
	}

	renderMentions(out, "Tables", a.TableMentions)
	renderMentions(out, "Columns", a.ColumnMentions)
	renderMentions(out, "Terms", a.TermMentions)

	if len(a.Suggestions) > 0 {
		out.Newline()
		for _, s := range a.Suggestions {
			out.Warning(s)
		}
	}
}

func renderMentions(out *output.Writer, label string, names []string) {
	if len(names) == 0 {
		return
	}
	out.Linef("%s mentioned: %s", label, strings.Join(names, ", "))
}
