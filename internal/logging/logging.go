// Package logging builds the structured loggers passed into every component.
// There is no package-level logger; callers own the handle they create here.
package logging

import (
	"context"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Standard field names for structured logging
const (
	FieldRunID      = "run_id"
	FieldUserID     = "user_id"
	FieldJobID      = "job_id"
	FieldStep       = "step"
	FieldState      = "state"
	FieldComponent  = "component"
	FieldError      = "error"
	FieldCount      = "count"
	FieldChars      = "chars"
	FieldDurationMS = "duration_ms"
	FieldMethod     = "method"
	FieldPath       = "path"
	FieldStatus     = "status"
)

// New creates a logger. Verbose mode uses a human-readable console encoder at
// debug level; otherwise JSON at info level.
func New(verbose bool) (*zap.SugaredLogger, error) {
	if !verbose {
		cfg := zap.NewProductionConfig()
		cfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
		cfg.OutputPaths = []string{"stderr"}
		l, err := cfg.Build()
		if err != nil {
			return nil, err
		}
		return l.Sugar(), nil
	}

	encCfg := zap.NewDevelopmentEncoderConfig()
	encCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(encCfg),
		zapcore.AddSync(os.Stderr),
		zap.DebugLevel,
	)
	return zap.New(core).Sugar(), nil
}

// Nop returns a logger that discards everything
func Nop() *zap.SugaredLogger {
	return zap.NewNop().Sugar()
}

// Component returns a named child logger for dependency injection.
// A nil base yields a no-op logger so constructors can accept optional loggers.
func Component(base *zap.SugaredLogger, name string) *zap.SugaredLogger {
	if base == nil {
		return Nop()
	}
	return base.Named(name).With(FieldComponent, name)
}

type runIDKey struct{}

// WithRunID returns a context tagged with the run identifier for log correlation
func WithRunID(ctx context.Context, runID string) context.Context {
	return context.WithValue(ctx, runIDKey{}, runID)
}

// RunID returns the run identifier carried by ctx, or ""
func RunID(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	id, _ := ctx.Value(runIDKey{}).(string)
	return id
}
