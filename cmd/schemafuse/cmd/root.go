// Package cmd provides the CLI commands for schemafuse.
package cmd

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/queryforge/schemafuse/internal/logging"
	"github.com/queryforge/schemafuse/pkg/version"
)

var (
	projectDir     string
	debugMode      bool
	loggingCleanup func()
)

// NewRootCmd creates the root command for the schemafuse CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "schemafuse",
		Short: "Multi-method schema search with score fusion",
		Long: `SchemaFuse searches a schema catalog (tables, columns, dictionary
terms) with four retrieval methods — semantic, keyword, fuzzy, exact —
and fuses their results into one deduplicated ranking.

Run 'schemafuse search <query>' in a project with a .schemafuse.yaml
to get started.`,
		Version:       version.Short(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.SetVersionTemplate("schemafuse version {{.Version}}\n")

	cmd.PersistentFlags().StringVar(&projectDir, "dir", ".", "Project directory holding .schemafuse.yaml")
	cmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "Enable debug logging to ~/.schemafuse/logs/")

	cmd.PersistentPreRunE = setupLogging
	cmd.PersistentPostRunE = teardownLogging

	cmd.AddCommand(newSearchCmd())
	cmd.AddCommand(newCompareCmd())
	cmd.AddCommand(newAnalyzeCmd())
	cmd.AddCommand(newBenchmarkCmd())
	cmd.AddCommand(newMethodsCmd())
	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newVersionCmd())

	return cmd
}

func setupLogging(_ *cobra.Command, _ []string) error {
	cfg := logging.DefaultConfig()
	if debugMode {
		cfg = logging.DebugConfig()
	}
	logger, cleanup, err := logging.Setup(cfg)
	if err != nil {
		return fmt.Errorf("failed to setup logging: %w", err)
	}
	loggingCleanup = cleanup
	if debugMode {
		logger.Info("debug_logging_enabled",
			slog.String("log_file", logging.DefaultLogPath()))
	}
	return nil
}

func teardownLogging(_ *cobra.Command, _ []string) error {
	if loggingCleanup != nil {
		loggingCleanup()
		loggingCleanup = nil
	}
	return nil
}

// Execute runs the root command.
func Execute() error {
	return NewRootCmd().Execute()
}
