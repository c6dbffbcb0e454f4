package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/jonathan/resume-tailor/internal/config"
	"github.com/jonathan/resume-tailor/internal/server"
)

// shutdownTimeout bounds how long in-flight requests may take after a signal
const shutdownTimeout = 30 * time.Second

func newServeCmd(opts *globalOptions) *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the REST API server",
		Long:  `Start an HTTP server that exposes REST endpoints for starting, inspecting and resuming tailoring runs.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := opts.settings(cmd, func(cfg *config.Config) {
				if cmd.Flags().Changed("port") {
					cfg.Port = port
				}
			})
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, cfg)
		},
	}

	cmd.Flags().IntVar(&port, "port", config.DefaultPort, "Port to listen on")
	return cmd
}

// runServe serves until ctx is cancelled, then shuts down gracefully
func runServe(ctx context.Context, cfg config.Config) error {
	a, logger, err := open(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}
	defer func() { _ = logger.Sync() }()
	defer a.Close()

	if !a.Durable {
		logger.Warn("no database configured: runs are kept in memory and lost on restart")
	}

	srv := server.New(server.Config{Port: cfg.Port}, a.Engine, logger)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(srv.ListenAndServe)
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
