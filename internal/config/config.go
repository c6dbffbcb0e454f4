// Package config provides configuration loading and validation for the CLI and server.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/jonathan/resume-tailor/internal/llm"
)

// Artifact sink kinds
const (
	SinkDir      = "dir"
	SinkS3       = "s3"
	SinkPostgres = "postgres"
)

// Defaults applied by MergeWithDefaults when FromEnv and the config file leave a value empty
const (
	DefaultArtifactDir = "artifacts"
	DefaultS3Region    = "us-east-1"
	DefaultPort        = 8080
)

// Config represents the configuration that can be loaded from a JSON file.
// All fields are optional; missing values use defaults or must be provided via CLI flags.
type Config struct {
	// Input files
	OriginalResume string `json:"original_resume,omitempty"` // Path to the resume being tailored
	FullResume     string `json:"full_resume,omitempty"`     // Path to the complete career record
	Job            string `json:"job,omitempty"`             // Path to job description text
	Strategy       string `json:"strategy,omitempty"`        // Path to company strategy notes
	Feedback       string `json:"feedback,omitempty"`        // Path to recruiter feedback

	// Identity
	UserID string `json:"user_id,omitempty"`
	JobID  string `json:"job_id,omitempty"`

	// Generation
	APIKey          string `json:"api_key,omitempty"`           // Gemini API key
	ModelTier       string `json:"model_tier,omitempty"`        // lite, standard or advanced
	MaxOutputTokens int    `json:"max_output_tokens,omitempty"` // Output-size hint per generation call

	// Storage
	DatabaseURL     string `json:"database_url,omitempty"`     // PostgreSQL connection URL
	ValkeyAddr      string `json:"valkey_addr,omitempty"`      // Valkey address for continuations
	ValkeyPassword  string `json:"valkey_password,omitempty"`  // Valkey password
	ContinuationTTL string `json:"continuation_ttl,omitempty"` // Expiry of Valkey continuations, e.g. "72h"
	ArtifactSink    string `json:"artifact_sink,omitempty"`    // dir, s3 or postgres
	ArtifactDir     string `json:"artifact_dir,omitempty"`     // Root for the dir sink
	S3Bucket        string `json:"s3_bucket,omitempty"`
	S3Region        string `json:"s3_region,omitempty"`
	S3Endpoint      string `json:"s3_endpoint,omitempty"` // S3-compatible endpoint such as MinIO
	S3AccessKey     string `json:"s3_access_key,omitempty"`
	S3SecretKey     string `json:"s3_secret_key,omitempty"`

	// Behavior
	Port    int  `json:"port,omitempty"`
	Verbose bool `json:"verbose,omitempty"` // Print detailed debug information
}

// LoadConfig loads configuration from a JSON file.
// Returns an error if the file cannot be read or parsed.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		return nil, fmt.Errorf("config path is empty")
	}

	if !filepath.IsAbs(path) {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get current directory: %w", err)
		}
		path = filepath.Join(cwd, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	return &cfg, nil
}

// FromEnv reads configuration from environment variables.
// Unset or unparsable numeric values are left at zero.
func FromEnv() Config {
	cfg := Config{
		APIKey:          os.Getenv("GEMINI_API_KEY"),
		ModelTier:       os.Getenv("MODEL_TIER"),
		DatabaseURL:     os.Getenv("DATABASE_URL"),
		ValkeyAddr:      os.Getenv("VALKEY_ADDR"),
		ValkeyPassword:  os.Getenv("VALKEY_PASSWORD"),
		ContinuationTTL: os.Getenv("CONTINUATION_TTL"),
		ArtifactSink:    os.Getenv("ARTIFACT_SINK"),
		ArtifactDir:     os.Getenv("ARTIFACT_DIR"),
		S3Bucket:        os.Getenv("S3_BUCKET"),
		S3Region:        os.Getenv("S3_REGION"),
		S3Endpoint:      os.Getenv("S3_ENDPOINT"),
		S3AccessKey:     os.Getenv("S3_ACCESS_KEY"),
		S3SecretKey:     os.Getenv("S3_SECRET_KEY"),
	}
	if v, err := strconv.Atoi(os.Getenv("MAX_OUTPUT_TOKENS")); err == nil {
		cfg.MaxOutputTokens = v
	}
	if v, err := strconv.Atoi(os.Getenv("PORT")); err == nil {
		cfg.Port = v
	}
	return cfg
}

// Validate checks that the configuration has valid values.
// Note: This doesn't check for required input fields since those are handled
// by CLI flag validation after merging.
func (c *Config) Validate() error {
	if c.MaxOutputTokens < 0 {
		return fmt.Errorf("config error: 'max_output_tokens' must be non-negative")
	}
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("config error: 'port' must be between 0 and 65535")
	}

	if _, err := llm.ParseTier(c.ModelTier); err != nil {
		return fmt.Errorf("config error: %w", err)
	}

	if _, err := c.ContinuationTTLDuration(); err != nil {
		return err
	}

	switch c.ArtifactSink {
	case "", SinkDir:
	case SinkS3:
		if c.S3Bucket == "" {
			return fmt.Errorf("config error: 's3_bucket' is required for the s3 artifact sink")
		}
	case SinkPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("config error: 'database_url' is required for the postgres artifact sink")
		}
	default:
		return fmt.Errorf("config error: unknown artifact sink %q (want %s, %s or %s)", c.ArtifactSink, SinkDir, SinkS3, SinkPostgres)
	}

	for name, path := range map[string]string{
		"original_resume": c.OriginalResume,
		"full_resume":     c.FullResume,
		"job":             c.Job,
		"strategy":        c.Strategy,
		"feedback":        c.Feedback,
	} {
		if path == "" {
			continue
		}
		if _, err := os.Stat(path); os.IsNotExist(err) {
			return fmt.Errorf("config error: %s file not found: %s", name, path)
		}
	}

	return nil
}

// ContinuationTTLDuration parses ContinuationTTL. Empty means no expiry.
func (c *Config) ContinuationTTLDuration() (time.Duration, error) {
	if c.ContinuationTTL == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(c.ContinuationTTL)
	if err != nil || d < 0 {
		return 0, fmt.Errorf("config error: invalid 'continuation_ttl' %q", c.ContinuationTTL)
	}
	if d > 0 && d < time.Second {
		return 0, fmt.Errorf("config error: 'continuation_ttl' must be at least 1s, got %q", c.ContinuationTTL)
	}
	return d, nil
}

// MergeWithDefaults returns a new Config with empty fields filled from defaults,
// then any still-empty sink settings filled with built-in defaults.
// This is used to apply environment and config file values beneath CLI flags.
func (c *Config) MergeWithDefaults(defaults Config) Config {
	result := *c

	fill := func(dst *string, def string) {
		if *dst == "" {
			*dst = def
		}
	}
	fill(&result.OriginalResume, defaults.OriginalResume)
	fill(&result.FullResume, defaults.FullResume)
	fill(&result.Job, defaults.Job)
	fill(&result.Strategy, defaults.Strategy)
	fill(&result.Feedback, defaults.Feedback)
	fill(&result.UserID, defaults.UserID)
	fill(&result.JobID, defaults.JobID)
	fill(&result.APIKey, defaults.APIKey)
	fill(&result.ModelTier, defaults.ModelTier)
	fill(&result.DatabaseURL, defaults.DatabaseURL)
	fill(&result.ValkeyAddr, defaults.ValkeyAddr)
	fill(&result.ValkeyPassword, defaults.ValkeyPassword)
	fill(&result.ContinuationTTL, defaults.ContinuationTTL)
	fill(&result.ArtifactSink, defaults.ArtifactSink)
	fill(&result.ArtifactDir, defaults.ArtifactDir)
	fill(&result.S3Bucket, defaults.S3Bucket)
	fill(&result.S3Region, defaults.S3Region)
	fill(&result.S3Endpoint, defaults.S3Endpoint)
	fill(&result.S3AccessKey, defaults.S3AccessKey)
	fill(&result.S3SecretKey, defaults.S3SecretKey)

	if result.MaxOutputTokens == 0 {
		result.MaxOutputTokens = defaults.MaxOutputTokens
	}
	if result.Port == 0 {
		result.Port = defaults.Port
	}

	// Built-in defaults
	fill(&result.ArtifactSink, SinkDir)
	fill(&result.ArtifactDir, DefaultArtifactDir)
	fill(&result.S3Region, DefaultS3Region)
	if result.MaxOutputTokens == 0 {
		result.MaxOutputTokens = int(llm.DefaultMaxOutputTokens)
	}
	if result.Port == 0 {
		result.Port = DefaultPort
	}

	// Bool fields: cannot distinguish unset from false, so we don't merge
	// (CLI flags should always win for bools)

	return result
}
