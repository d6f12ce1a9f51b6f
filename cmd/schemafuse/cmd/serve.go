package cmd

import (
	"context"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/queryforge/schemafuse/internal/config"
	"github.com/queryforge/schemafuse/internal/server"
)

func newServeCmd() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP search API",
		Long: `Run the HTTP JSON API exposing search, compare, analyze, benchmark,
and method availability. Shuts down gracefully on SIGINT/SIGTERM.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), addr)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (default: config server.host:port)")
	return cmd
}

func runServe(ctx context.Context, addr string) error {
	cfg, err := config.Load(projectDir)
	if err != nil {
		return err
	}
	if addr == "" {
		addr = cfg.Addr()
	}

	engine, cleanup, err := buildEngineFromConfig(ctx, cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv := server.New(server.NewStaticProvider(engine), slog.Default())
	return srv.ListenAndServe(ctx, addr)
}
