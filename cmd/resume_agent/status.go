package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jonathan/resume-tailor/internal/observability"
)

func newStatusCmd(opts *globalOptions) *cobra.Command {
	var runID string

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the state of a tailoring run",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := opts.settings(cmd, nil)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			a, logger, err := open(ctx, cfg)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()
			defer a.Close()

			if !a.Durable {
				return fmt.Errorf("run status requires a database (set DATABASE_URL or --db-url)")
			}

			run, err := a.Engine.Get(ctx, runID)
			if err != nil {
				return fmt.Errorf("failed to get run %s: %w", runID, err)
			}
			return printRun(cmd.OutOrStdout(), observability.NewPrinter(cmd.OutOrStdout()), run, cfg.Verbose)
		},
	}

	cmd.Flags().StringVar(&runID, "run-id", "", "ID of the run")
	_ = cmd.MarkFlagRequired("run-id")
	return cmd
}
