package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jonathan/resume-tailor/internal/observability"
)

func newResumeCmd(opts *globalOptions) *cobra.Command {
	var (
		runID       string
		payloadPath string
		decline     bool
		out         string
	)

	cmd := &cobra.Command{
		Use:   "resume",
		Short: "Resume a suspended tailoring run",
		Long: `Continues a run that is waiting for more information.

--payload names a JSON file shaped like
  {"final_collected_info": "...", "updated_full_resume": "..."}
--decline finalizes the run with the draft it already has.
Runs are only resumable across processes when a database is configured.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if (payloadPath == "") == !decline {
				return fmt.Errorf("exactly one of --payload or --decline must be provided")
			}

			var payload json.RawMessage
			if payloadPath != "" {
				data, err := os.ReadFile(payloadPath)
				if err != nil {
					return fmt.Errorf("failed to read payload: %w", err)
				}
				if !json.Valid(data) {
					return fmt.Errorf("payload file %s is not valid JSON", payloadPath)
				}
				payload = data
			}

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
				return fmt.Errorf("resuming a run requires a database (set DATABASE_URL or --db-url)")
			}

			printer := observability.NewPrinter(cmd.OutOrStdout())
			if cfg.Verbose {
				a.Engine.OnProgress = printer.PrintProgress
			}

			run, err := a.Engine.Resume(ctx, runID, payload)
			if err != nil {
				return fmt.Errorf("failed to resume run %s: %w", runID, err)
			}
			if err := printRun(cmd.OutOrStdout(), printer, run, cfg.Verbose); err != nil {
				return err
			}
			return writeResult(out, run)
		},
	}

	cmd.Flags().StringVar(&runID, "run-id", "", "ID of the suspended run")
	cmd.Flags().StringVar(&payloadPath, "payload", "", "Path to the resumption payload JSON")
	cmd.Flags().BoolVar(&decline, "decline", false, "Finalize without new information")
	cmd.Flags().StringVarP(&out, "out", "o", "", "Also write the tailored resume to this file")
	_ = cmd.MarkFlagRequired("run-id")
	return cmd
}
