package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jonathan/resume-tailor/internal/config"
	"github.com/jonathan/resume-tailor/internal/observability"
	"github.com/jonathan/resume-tailor/internal/pipeline"
	"github.com/jonathan/resume-tailor/internal/types"
)

// defaultUserID is used when neither --user-id nor the config file names a user
const defaultUserID = "local"

type tailorOptions struct {
	originalResume string
	fullResume     string
	job            string
	strategy       string
	feedback       string
	userID         string
	jobID          string
	modelTier      string
	maxTokens      int
	artifactSink   string
	artifactDir    string
	interactive    bool
	out            string
}

func newTailorCmd(opts *globalOptions) *cobra.Command {
	o := &tailorOptions{}

	cmd := &cobra.Command{
		Use:   "tailor",
		Short: "Tailor a resume to a job description",
		Long: `Generates a tailored resume from the original resume, the full career record,
the job description, company strategy notes and recruiter feedback.

If the model reports missing information the run suspends. With --interactive
the questions are asked on stdin and the run resumes immediately; otherwise the
run ID is printed so it can be continued with 'resume_agent resume'.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runTailor(cmd, opts, o)
		},
	}

	f := cmd.Flags()
	f.StringVar(&o.originalResume, "original-resume", "", "Path to the resume being tailored")
	f.StringVar(&o.fullResume, "full-resume", "", "Path to the full career record")
	f.StringVarP(&o.job, "job", "j", "", "Path to the job description text file")
	f.StringVar(&o.strategy, "strategy", "", "Path to company strategy notes")
	f.StringVar(&o.feedback, "feedback", "", "Path to recruiter feedback")
	f.StringVar(&o.userID, "user-id", "", "User identifier (default \"local\")")
	f.StringVar(&o.jobID, "job-id", "", "Job identifier (defaults to the job file name)")
	f.StringVar(&o.modelTier, "model-tier", "", "Model tier: lite, standard or advanced")
	f.IntVar(&o.maxTokens, "max-output-tokens", 0, "Output-size hint per generation call")
	f.StringVar(&o.artifactSink, "artifact-sink", "", "Where to store the final resume: dir, s3 or postgres")
	f.StringVar(&o.artifactDir, "artifact-dir", "", "Root directory for the dir artifact sink")
	f.BoolVarP(&o.interactive, "interactive", "i", false, "Ask for missing information on stdin and resume immediately")
	f.StringVarP(&o.out, "out", "o", "", "Also write the tailored resume to this file")
	return cmd
}

// apply copies explicitly set flags over cfg
func (o *tailorOptions) apply(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	set := func(name string, dst *string, v string) {
		if flags.Changed(name) {
			*dst = v
		}
	}
	set("original-resume", &cfg.OriginalResume, o.originalResume)
	set("full-resume", &cfg.FullResume, o.fullResume)
	set("job", &cfg.Job, o.job)
	set("strategy", &cfg.Strategy, o.strategy)
	set("feedback", &cfg.Feedback, o.feedback)
	set("user-id", &cfg.UserID, o.userID)
	set("job-id", &cfg.JobID, o.jobID)
	set("model-tier", &cfg.ModelTier, o.modelTier)
	set("artifact-sink", &cfg.ArtifactSink, o.artifactSink)
	set("artifact-dir", &cfg.ArtifactDir, o.artifactDir)
	if flags.Changed("max-output-tokens") {
		cfg.MaxOutputTokens = o.maxTokens
	}
}

func runTailor(cmd *cobra.Command, opts *globalOptions, o *tailorOptions) error {
	cfg, err := opts.settings(cmd, func(cfg *config.Config) { o.apply(cmd, cfg) })
	if err != nil {
		return err
	}

	in, err := readStepInput(cfg)
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

	out := cmd.OutOrStdout()
	printer := observability.NewPrinter(out)
	if cfg.Verbose {
		a.Engine.OnProgress = printer.PrintProgress
	}

	run, err := a.Engine.Start(ctx, in)
	if err != nil {
		return err
	}

	if run.Status == pipeline.StatusSuspended && o.interactive {
		printer.PrintContinuationRequest(run.Continuation)
		payload, err := promptForInfo(cmd.InOrStdin(), out, run.Continuation)
		if err != nil {
			return err
		}
		if run, err = a.Engine.Resume(ctx, run.RunID, payload); err != nil {
			return err
		}
	}

	if run.Status == pipeline.StatusSuspended && !a.Durable {
		logger.Warnw("run is suspended but not persisted; set DATABASE_URL to resume it later", "run_id", run.RunID)
	}
	if err := printRun(out, printer, run, cfg.Verbose); err != nil {
		return err
	}
	return writeResult(o.out, run)
}

// readStepInput reads every input file named by cfg
func readStepInput(cfg config.Config) (types.StepInput, error) {
	in := types.StepInput{UserID: cfg.UserID, JobID: cfg.JobID}
	files := []struct {
		flag string
		path string
		dst  *string
	}{
		{"--original-resume", cfg.OriginalResume, &in.OriginalResume},
		{"--full-resume", cfg.FullResume, &in.FullResume},
		{"--job", cfg.Job, &in.JobDescription},
		{"--strategy", cfg.Strategy, &in.CompanyStrategy},
		{"--feedback", cfg.Feedback, &in.RecruiterFeedback},
	}

	var missing []string
	for _, f := range files {
		if f.path == "" {
			missing = append(missing, f.flag)
			continue
		}
		data, err := os.ReadFile(f.path)
		if err != nil {
			return in, fmt.Errorf("failed to read %s file: %w", strings.TrimPrefix(f.flag, "--"), err)
		}
		*f.dst = string(data)
	}
	if len(missing) > 0 {
		return in, fmt.Errorf("%s must be provided (via flag or config)", strings.Join(missing, ", "))
	}

	if in.UserID == "" {
		in.UserID = defaultUserID
	}
	if in.JobID == "" {
		in.JobID = strings.TrimSuffix(filepath.Base(cfg.Job), filepath.Ext(cfg.Job))
	}
	return in, nil
}

// promptForInfo reads free text until an empty line or EOF.
// No text declines the request and yields a nil payload.
func promptForInfo(in io.Reader, out io.Writer, req *types.ContinuationRequest) (json.RawMessage, error) {
	_, _ = fmt.Fprintln(out, "Provide the missing information, then an empty line (empty input keeps this draft):")

	var lines []string
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			break
		}
		lines = append(lines, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read input: %w", err)
	}
	if len(lines) == 0 {
		return nil, nil
	}

	info := strings.Join(lines, "\n")
	return json.Marshal(types.InfoCollectionResult{
		FinalCollectedInfo: info,
		UpdatedFullResume:  req.FullResume + "\n\nAdditional information:\n" + info,
	})
}

// printRun writes the run as indented JSON, or as boxes in verbose mode
func printRun(out io.Writer, printer *observability.Printer, run *pipeline.RunState, verbose bool) error {
	if verbose {
		printer.PrintRunState(run)
		return nil
	}
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(run)
}

// writeResult writes the final tailored resume to path, if both exist
func writeResult(path string, run *pipeline.RunState) error {
	if path == "" || run.Output == nil || run.Output.Failed() {
		return nil
	}
	if err := os.WriteFile(path, []byte(run.Output.TailoredResume), 0644); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}
