package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_ValidJSON(t *testing.T) {
	content := `{
		"user_id": "U1",
		"job_id": "J1",
		"model_tier": "standard",
		"max_output_tokens": 6000,
		"artifact_sink": "s3",
		"s3_bucket": "resumes",
		"continuation_ttl": "72h",
		"verbose": true
	}`

	tmpFile := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(tmpFile, []byte(content), 0644))

	cfg, err := LoadConfig(tmpFile)
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, "U1", cfg.UserID)
	assert.Equal(t, "J1", cfg.JobID)
	assert.Equal(t, "standard", cfg.ModelTier)
	assert.Equal(t, 6000, cfg.MaxOutputTokens)
	assert.Equal(t, SinkS3, cfg.ArtifactSink)
	assert.Equal(t, "resumes", cfg.S3Bucket)
	assert.True(t, cfg.Verbose)
	assert.NoError(t, cfg.Validate())
}

func TestLoadConfig_InvalidJSON(t *testing.T) {
	tmpFile := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(tmpFile, []byte(`{ invalid json }`), 0644))

	cfg, err := LoadConfig(tmpFile)
	assert.Error(t, err)
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "failed to parse config JSON")
}

func TestLoadConfig_FileNotFound(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "failed to read config file")
}

func TestLoadConfig_EmptyPath(t *testing.T) {
	_, err := LoadConfig("")
	assert.Error(t, err)
}

func TestFromEnv(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "key")
	t.Setenv("DATABASE_URL", "postgres://localhost/db")
	t.Setenv("VALKEY_ADDR", "localhost:6379")
	t.Setenv("ARTIFACT_SINK", "postgres")
	t.Setenv("MAX_OUTPUT_TOKENS", "5000")
	t.Setenv("CONTINUATION_TTL", "1h")
	t.Setenv("PORT", "not-a-number")

	cfg := FromEnv()
	assert.Equal(t, "key", cfg.APIKey)
	assert.Equal(t, "postgres://localhost/db", cfg.DatabaseURL)
	assert.Equal(t, "localhost:6379", cfg.ValkeyAddr)
	assert.Equal(t, SinkPostgres, cfg.ArtifactSink)
	assert.Equal(t, 5000, cfg.MaxOutputTokens)
	assert.Equal(t, 0, cfg.Port)
	assert.NoError(t, cfg.Validate())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr string
	}{
		{name: "empty", cfg: Config{}},
		{name: "negative tokens", cfg: Config{MaxOutputTokens: -1}, wantErr: "max_output_tokens"},
		{name: "bad port", cfg: Config{Port: 70000}, wantErr: "port"},
		{name: "bad tier", cfg: Config{ModelTier: "huge"}, wantErr: "huge"},
		{name: "bad ttl", cfg: Config{ContinuationTTL: "soon"}, wantErr: "continuation_ttl"},
		{name: "negative ttl", cfg: Config{ContinuationTTL: "-1h"}, wantErr: "continuation_ttl"},
		{name: "sub-second ttl", cfg: Config{ContinuationTTL: "500ms"}, wantErr: "at least 1s"},
		{name: "s3 without bucket", cfg: Config{ArtifactSink: SinkS3}, wantErr: "s3_bucket"},
		{name: "postgres without url", cfg: Config{ArtifactSink: SinkPostgres}, wantErr: "database_url"},
		{name: "unknown sink", cfg: Config{ArtifactSink: "ftp"}, wantErr: "unknown artifact sink"},
		{name: "missing input file", cfg: Config{Job: "/nonexistent/job.txt"}, wantErr: "job file not found"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestContinuationTTLDuration(t *testing.T) {
	cfg := Config{ContinuationTTL: "90m"}
	d, err := cfg.ContinuationTTLDuration()
	require.NoError(t, err)
	assert.Equal(t, 90*time.Minute, d)

	d, err = (&Config{}).ContinuationTTLDuration()
	require.NoError(t, err)
	assert.Zero(t, d)

	d, err = (&Config{ContinuationTTL: "0s"}).ContinuationTTLDuration()
	require.NoError(t, err)
	assert.Zero(t, d, "zero disables expiry")

	_, err = (&Config{ContinuationTTL: "999ms"}).ContinuationTTLDuration()
	assert.Error(t, err)
}

func TestMergeWithDefaults(t *testing.T) {
	cfg := Config{
		UserID:    "from-flag",
		ModelTier: "lite",
	}
	defaults := Config{
		UserID:       "from-file",
		JobID:        "J1",
		APIKey:       "env-key",
		ArtifactSink: SinkS3,
		S3Bucket:     "bucket",
		Port:         9090,
	}

	merged := cfg.MergeWithDefaults(defaults)

	assert.Equal(t, "from-flag", merged.UserID)
	assert.Equal(t, "J1", merged.JobID)
	assert.Equal(t, "lite", merged.ModelTier)
	assert.Equal(t, "env-key", merged.APIKey)
	assert.Equal(t, SinkS3, merged.ArtifactSink)
	assert.Equal(t, "bucket", merged.S3Bucket)
	assert.Equal(t, 9090, merged.Port)
	assert.Equal(t, DefaultS3Region, merged.S3Region)
	assert.Equal(t, 4000, merged.MaxOutputTokens)

	// The receiver is not modified
	assert.Empty(t, cfg.JobID)
}

func TestMergeWithDefaults_EmptyDefaults(t *testing.T) {
	merged := (&Config{}).MergeWithDefaults(Config{})

	assert.Equal(t, SinkDir, merged.ArtifactSink)
	assert.Equal(t, DefaultArtifactDir, merged.ArtifactDir)
	assert.Equal(t, DefaultPort, merged.Port)
	assert.Equal(t, 4000, merged.MaxOutputTokens)
	assert.NoError(t, merged.Validate())
}
