package cmd

import (
	"github.com/spf13/cobra"

	"github.com/queryforge/schemafuse/internal/output"
	"github.com/queryforge/schemafuse/pkg/version"
)

func newVersionCmd() *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Show version and build information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if jsonOut {
				return writeJSONOutput(cmd, version.GetInfo())
			}
			output.New(cmd.OutOrStdout()).Line(version.String())
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output as JSON")
	return cmd
}
