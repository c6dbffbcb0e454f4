// Package main provides the resume_agent CLI: tailor a resume, resume a suspended run, or serve the HTTP API.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jonathan/resume-tailor/internal/app"
	"github.com/jonathan/resume-tailor/internal/config"
	"github.com/jonathan/resume-tailor/internal/logging"
)

// newApp builds the application; tests replace it to avoid a real model provider
var newApp = app.New

// globalOptions are the persistent flags shared by every command
type globalOptions struct {
	configPath  string
	apiKey      string
	databaseURL string
	verbose     bool
}

func newRootCmd() *cobra.Command {
	opts := &globalOptions{}

	rootCmd := &cobra.Command{
		Use:   "resume_agent",
		Short: "Resume tailoring with human-in-the-loop follow-up",
		Long: `resume_agent tailors a resume to a job description. When the model finds
information gaps, the run suspends with a list of questions and can be resumed
later with the answers, or declined to keep the first draft.

Configuration can be loaded from a JSON file using --config. Environment
variables fill values the file leaves empty; command-line flags override both.`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "Path to config.json file (values can be overridden by other flags)")
	rootCmd.PersistentFlags().StringVar(&opts.apiKey, "api-key", "", "Gemini API Key (optional, defaults to GEMINI_API_KEY env var)")
	rootCmd.PersistentFlags().StringVar(&opts.databaseURL, "db-url", "", "PostgreSQL connection URL (optional, defaults to DATABASE_URL env var)")
	rootCmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "Print detailed debug information")

	rootCmd.AddCommand(
		newServeCmd(opts),
		newTailorCmd(opts),
		newResumeCmd(opts),
		newStatusCmd(opts),
	)
	return rootCmd
}

// settings loads the config file, applies explicitly set flags, then fills
// the remaining gaps from the environment and built-in defaults.
func (o *globalOptions) settings(cmd *cobra.Command, override func(cfg *config.Config)) (config.Config, error) {
	var cfg config.Config
	if o.configPath != "" {
		loaded, err := config.LoadConfig(o.configPath)
		if err != nil {
			return cfg, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = *loaded
	}

	flags := cmd.Flags()
	if flags.Changed("api-key") {
		cfg.APIKey = o.apiKey
	}
	if flags.Changed("db-url") {
		cfg.DatabaseURL = o.databaseURL
	}
	if flags.Changed("verbose") {
		cfg.Verbose = o.verbose
	}
	if override != nil {
		override(&cfg)
	}

	cfg = cfg.MergeWithDefaults(config.FromEnv())
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// open builds the logger and the application for cfg
func open(ctx context.Context, cfg config.Config) (*app.App, *zap.SugaredLogger, error) {
	logger, err := logging.New(cfg.Verbose)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create logger: %w", err)
	}
	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		_ = logger.Sync()
		return nil, nil, err
	}
	return a, logger, nil
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
