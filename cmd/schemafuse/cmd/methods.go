package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/queryforge/schemafuse/internal/output"
)

func newMethodsCmd() *cobra.Command {
	var kinds []string
	var format string

	cmd := &cobra.Command{
		Use:   "methods",
		Short: "Show retrieval method availability",
		Long: `Show which retrieval methods have a ready backend. Fuzzy and exact
run directly off the catalog, so they are available whenever the
catalog is; semantic and keyword require built indexes.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runMethods(cmd.Context(), cmd, kinds, format)
		},
	}

	cmd.Flags().StringSliceVarP(&kinds, "kind", "k", nil, "Restrict to kinds: table, column, dictionary (repeatable)")
	cmd.Flags().StringVarP(&format, "format", "f", "text", "Output format: text, json")
	return cmd
}

func runMethods(ctx context.Context, cmd *cobra.Command, kinds []string, format string) error {
	engine, cleanup, err := buildEngine(ctx, projectDir)
	if err != nil {
		return err
	}
	defer cleanup()

	scope, err := parseKindsFlag(kinds)
	if err != nil {
		return err
	}

	availability := engine.AvailableMethods(scope)
	if format == "json" {
		return writeJSONOutput(cmd, availability)
	}

	out := output.New(cmd.OutOrStdout())
	for _, m := range availability {
		if m.Available {
			out.Successf("%-10s available (%d indexes)", m.Method, len(m.IndexIDs))
		} else {
			out.Errorf("%-10s unavailable", m.Method)
		}
	}
	return nil
}
