package tailoring

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"

	"github.com/jonathan/resume-tailor/internal/logging"
	"github.com/jonathan/resume-tailor/internal/types"
)

// Step is the boundary of the tailoring step. Every failure becomes an
// error output; only a *SuspendSignal is returned as an error.
type Step struct {
	controller *Controller
	logger     *zap.SugaredLogger
}

// NewStep wraps a controller
func NewStep(controller *Controller, logger *zap.SugaredLogger) *Step {
	return &Step{
		controller: controller,
		logger:     logging.Component(logger, "step"),
	}
}

// Run executes the step for fresh input
func (s *Step) Run(ctx context.Context, in types.StepInput) (types.StepOutput, error) {
	result, err := s.controller.Begin(ctx, in)
	return s.boundary(ctx, result, err)
}

// Resume finishes a suspended step with an optional payload
func (s *Step) Resume(ctx context.Context, cont *Continuation, payload json.RawMessage) (types.StepOutput, error) {
	result, err := s.controller.Resume(ctx, cont, payload)
	return s.boundary(ctx, result, err)
}

func (s *Step) boundary(ctx context.Context, result *types.TailoringResult, err error) (types.StepOutput, error) {
	if err != nil {
		if sig, ok := AsSuspend(err); ok {
			return types.StepOutput{}, sig
		}
		s.logger.Errorw("step failed",
			logging.FieldStep, StepName,
			logging.FieldRunID, logging.RunID(ctx),
			logging.FieldError, err,
		)
		return types.StepOutput{Error: err.Error()}, nil
	}

	missing := result.MissingInfo
	if missing == nil {
		missing = []string{}
	}
	return types.StepOutput{
		TailoredResume: result.TailoredResume,
		MissingInfo:    missing,
	}, nil
}
