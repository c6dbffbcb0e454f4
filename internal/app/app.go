// Package app wires configuration into a ready-to-use tailoring engine.
package app

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/jonathan/resume-tailor/internal/config"
	"github.com/jonathan/resume-tailor/internal/db"
	"github.com/jonathan/resume-tailor/internal/llm"
	"github.com/jonathan/resume-tailor/internal/logging"
	"github.com/jonathan/resume-tailor/internal/objectstore"
	"github.com/jonathan/resume-tailor/internal/pipeline"
	"github.com/jonathan/resume-tailor/internal/tailoring"
	"github.com/jonathan/resume-tailor/internal/valkeystore"
)

// App holds the engine and the resources behind it
type App struct {
	Engine *pipeline.Engine
	// Durable is true when runs survive the process (Postgres-backed)
	Durable bool

	logger  *zap.SugaredLogger
	closers []func()
}

// New connects to the configured model provider and storage backends
func New(ctx context.Context, cfg config.Config, logger *zap.SugaredLogger) (*App, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("API key is required (set GEMINI_API_KEY or use --api-key)")
	}

	llmCfg := llm.DefaultConfig()
	llmCfg.MaxOutputTokens = int32(cfg.MaxOutputTokens)

	client, err := llm.NewClient(ctx, llmCfg, cfg.APIKey)
	if err != nil {
		return nil, err
	}

	a, err := NewWithClient(ctx, cfg, client, logger)
	if err != nil {
		_ = client.Close()
		return nil, err
	}
	a.closers = append(a.closers, func() { _ = client.Close() })
	return a, nil
}

// NewWithClient builds the App around an existing LLM client
func NewWithClient(ctx context.Context, cfg config.Config, client llm.Client, logger *zap.SugaredLogger) (*App, error) {
	a := &App{logger: logging.Component(logger, "app")}

	tier, err := llm.ParseTier(cfg.ModelTier)
	if err != nil {
		return nil, err
	}
	ttl, err := cfg.ContinuationTTLDuration()
	if err != nil {
		return nil, err
	}

	var (
		database *db.DB
		runs     pipeline.RunStore          = pipeline.NewMemoryRunStore()
		conts    pipeline.ContinuationStore = pipeline.NewMemoryContinuationStore()
	)

	if cfg.DatabaseURL != "" {
		database, err = db.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, database.Close)
		if err := database.EnsureSchema(ctx); err != nil {
			a.Close()
			return nil, err
		}
		runs = database.RunStore()
		conts = database.CheckpointStore()
		a.Durable = true
		a.logger.Debugw("using postgres run store")
	}

	if cfg.ValkeyAddr != "" {
		store, err := valkeystore.New(ctx, cfg.ValkeyAddr, cfg.ValkeyPassword, ttl)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.closers = append(a.closers, store.Close)
		conts = store
		a.logger.Debugw("using valkey continuation store", "ttl", ttl.String())
	}

	sink, err := a.artifactSink(ctx, cfg, database)
	if err != nil {
		a.Close()
		return nil, err
	}

	generator := tailoring.NewGenerator(client, tier, int32(cfg.MaxOutputTokens), logger)
	step := tailoring.NewStep(tailoring.NewController(generator, sink, logger), logger)
	a.Engine = pipeline.NewEngine(step, runs, conts, logger)
	return a, nil
}

func (a *App) artifactSink(ctx context.Context, cfg config.Config, database *db.DB) (tailoring.ArtifactSink, error) {
	switch cfg.ArtifactSink {
	case config.SinkPostgres:
		if database == nil {
			return nil, fmt.Errorf("postgres artifact sink requires a database URL")
		}
		return database.ArtifactSink(), nil
	case config.SinkS3:
		fs, err := objectstore.NewFileStore(ctx, objectstore.S3Config{
			EndpointURL: cfg.S3Endpoint,
			Region:      cfg.S3Region,
			AccessKey:   cfg.S3AccessKey,
			SecretKey:   cfg.S3SecretKey,
		})
		if err != nil {
			return nil, err
		}
		return objectstore.NewSink(fs, cfg.S3Bucket), nil
	case config.SinkDir, "":
		dir := cfg.ArtifactDir
		if dir == "" {
			dir = config.DefaultArtifactDir
		}
		return objectstore.NewSink(objectstore.NewDirStore(dir), ""), nil
	default:
		return nil, fmt.Errorf("unknown artifact sink %q", cfg.ArtifactSink)
	}
}

// Close releases resources in reverse order of acquisition
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
