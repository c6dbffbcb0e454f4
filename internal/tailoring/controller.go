// Package tailoring implements the resume tailoring step: one generation call,
// an optional suspension to collect missing information, and at most one
// refinement call after resumption.
package tailoring

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/jonathan/resume-tailor/internal/logging"
	"github.com/jonathan/resume-tailor/internal/types"
)

// StepName identifies this step in logs and run records
const StepName = "resume_tailorer"

// Controller states, used for logging transitions
const (
	StateInitialGenerate = "initial_generate"
	StateSuspended       = "suspended"
	StateFinalize        = "finalize"
)

// ArtifactSink persists the final artifact of a step
type ArtifactSink interface {
	Store(ctx context.Context, userID, jobID, kind, text string) error
}

// Controller drives the generate, suspend, resume, finalize cycle
type Controller struct {
	generator ResultGenerator
	sink      ArtifactSink
	logger    *zap.SugaredLogger
	now       func() time.Time
}

// NewController creates a Controller
func NewController(generator ResultGenerator, sink ArtifactSink, logger *zap.SugaredLogger) *Controller {
	return &Controller{
		generator: generator,
		sink:      sink,
		logger:    logging.Component(logger, "tailoring"),
		now:       time.Now,
	}
}

// Begin validates the input and runs the initial generation.
// With no gaps the result is finalized and returned. With gaps the step
// suspends: the returned error is a *SuspendSignal carrying the continuation.
func (c *Controller) Begin(ctx context.Context, in types.StepInput) (*types.TailoringResult, error) {
	if err := ValidateInput(in); err != nil {
		return nil, err
	}

	log := c.metadata(ctx, in.UserID, in.JobID)
	log.Debugw("generating", logging.FieldState, StateInitialGenerate)

	tc := types.NewTailoringContext(in)
	result, err := c.generator.Generate(ctx, tc)
	if err != nil {
		return nil, withStage(err, StageInitial)
	}

	log.Debugw("generated resume",
		logging.FieldCount, len(result.MissingInfo),
		logging.FieldChars, len(result.TailoredResume),
	)

	if !result.HasGaps() {
		return c.finalize(ctx, log, in.UserID, in.JobID, result)
	}

	cont := newContinuation(in, tc, result, c.now())
	log.Infow("missing critical info detected, suspending",
		logging.FieldState, StateSuspended,
		logging.FieldCount, len(result.MissingInfo),
		"missing_info", result.MissingInfo,
	)
	return nil, &SuspendSignal{Continuation: cont}
}

// Resume finishes a suspended step. A valid payload triggers exactly one
// refinement call; a declined or invalid payload, or a failed refinement,
// finalizes with the result produced before the suspension.
func (c *Controller) Resume(ctx context.Context, cont *Continuation, payload json.RawMessage) (*types.TailoringResult, error) {
	if cont == nil {
		return nil, fmt.Errorf("cannot resume: no continuation")
	}

	log := c.metadata(ctx, cont.UserID, cont.JobID)
	pending := cont.Pending
	final := &pending

	info, err := ParseResumption(payload)
	switch {
	case err != nil:
		log.Warnw("invalid collection result, using original resume", logging.FieldError, err)
	case info == nil:
		log.Infow("no collection result provided, using original resume")
	default:
		log.Infow("resuming with collected info", logging.FieldChars, len(info.FinalCollectedInfo))

		tc := cont.Context.WithCollectedInfo(*info)
		refined, genErr := c.generator.Generate(ctx, tc)
		if genErr != nil {
			log.Warnw("refinement failed, using original resume",
				logging.FieldError, withStage(genErr, StageRefinement),
			)
			break
		}

		log.Debugw("regenerated resume",
			logging.FieldCount, len(refined.MissingInfo),
			logging.FieldChars, len(refined.TailoredResume),
		)
		final = refined
	}

	return c.finalize(ctx, log, cont.UserID, cont.JobID, final)
}

func (c *Controller) finalize(ctx context.Context, log *zap.SugaredLogger, userID, jobID string, result *types.TailoringResult) (*types.TailoringResult, error) {
	if err := c.sink.Store(ctx, userID, jobID, types.ArtifactKindTailoredResume, result.TailoredResume); err != nil {
		return nil, &PersistenceError{Kind: types.ArtifactKindTailoredResume, Cause: err}
	}

	log.Debugw("tailored resume completed",
		logging.FieldState, StateFinalize,
		logging.FieldChars, len(result.TailoredResume),
	)
	return result, nil
}

// metadata returns the per-invocation logger tagged with step identity
func (c *Controller) metadata(ctx context.Context, userID, jobID string) *zap.SugaredLogger {
	log := c.logger.With(
		logging.FieldStep, StepName,
		logging.FieldUserID, userID,
		logging.FieldJobID, jobID,
	)
	if runID := logging.RunID(ctx); runID != "" {
		log = log.With(logging.FieldRunID, runID)
	}
	return log
}

// withStage records which generation call failed
func withStage(err error, stage string) error {
	var ge *GenerationError
	if errors.As(err, &ge) {
		tagged := *ge
		tagged.Stage = stage
		return &tagged
	}
	return &GenerationError{Stage: stage, Message: "generation failed", Cause: err}
}
