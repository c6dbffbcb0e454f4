// Package pipeline hosts the tailoring step: it starts runs, checkpoints
// suspended steps and resumes them on request.
package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jonathan/resume-tailor/internal/logging"
	"github.com/jonathan/resume-tailor/internal/tailoring"
	"github.com/jonathan/resume-tailor/internal/types"
)

// Status is the lifecycle state of a run
type Status string

const (
	StatusRunning   Status = "running"
	StatusSuspended Status = "suspended"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Terminal reports whether no further transition is possible
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// RunState is the externally visible state of one step invocation
type RunState struct {
	RunID        string                     `json:"run_id"`
	Step         string                     `json:"step"`
	Status       Status                     `json:"status"`
	UserID       string                     `json:"user_id"`
	JobID        string                     `json:"job_id"`
	Continuation *types.ContinuationRequest `json:"continuation,omitempty"`
	Output       *types.StepOutput          `json:"output,omitempty"`
	CreatedAt    time.Time                  `json:"created_at"`
	UpdatedAt    time.Time                  `json:"updated_at"`
}

func (r RunState) clone() RunState {
	c := r
	if r.Continuation != nil {
		req := *r.Continuation
		req.MissingInfo = append([]string(nil), r.Continuation.MissingInfo...)
		c.Continuation = &req
	}
	if r.Output != nil {
		out := *r.Output
		out.MissingInfo = append([]string(nil), r.Output.MissingInfo...)
		c.Output = &out
	}
	return c
}

// ProgressEvent represents a state transition of a run
type ProgressEvent struct {
	RunID   string `json:"run_id"`
	Step    string `json:"step"`
	Status  Status `json:"status"`
	Message string `json:"message"`
	Content any    `json:"content,omitempty"`
}

// ProgressCallback is called on every run state transition
type ProgressCallback func(event ProgressEvent)

// Stepper runs and resumes one tailoring step
type Stepper interface {
	Run(ctx context.Context, in types.StepInput) (types.StepOutput, error)
	Resume(ctx context.Context, cont *tailoring.Continuation, payload json.RawMessage) (types.StepOutput, error)
}

// Engine is the runtime that hosts suspended steps between calls
type Engine struct {
	step   Stepper
	runs   RunStore
	conts  ContinuationStore
	logger *zap.SugaredLogger

	// OnProgress, when set, receives every state transition
	OnProgress ProgressCallback

	now   func() time.Time
	newID func() string
}

// NewEngine creates an Engine
func NewEngine(step Stepper, runs RunStore, conts ContinuationStore, logger *zap.SugaredLogger) *Engine {
	return &Engine{
		step:   step,
		runs:   runs,
		conts:  conts,
		logger: logging.Component(logger, "pipeline"),
		now:    time.Now,
		newID:  uuid.NewString,
	}
}

// Start creates a run and executes the step until it finishes or suspends
func (e *Engine) Start(ctx context.Context, in types.StepInput) (*RunState, error) {
	now := e.now().UTC()
	run := &RunState{
		RunID:     e.newID(),
		Step:      tailoring.StepName,
		Status:    StatusRunning,
		UserID:    in.UserID,
		JobID:     in.JobID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := e.runs.CreateRun(ctx, run); err != nil {
		return nil, fmt.Errorf("failed to create run: %w", err)
	}
	e.emit(run, "run started", nil)

	ctx = logging.WithRunID(ctx, run.RunID)
	out, err := e.step.Run(ctx, in)
	return e.settle(ctx, run, out, err)
}

// Resume continues a suspended run. A nil or null payload declines the
// request for more information. Each suspension can be resumed once.
func (e *Engine) Resume(ctx context.Context, runID string, payload json.RawMessage) (*RunState, error) {
	run, err := e.runs.GetRun(ctx, runID)
	if err != nil {
		return nil, err
	}
	if run.Status != StatusSuspended {
		return nil, fmt.Errorf("%w: status is %s", ErrNotSuspended, run.Status)
	}

	cont, err := e.conts.Take(ctx, runID)
	if err != nil {
		if errors.Is(err, ErrContinuationNotFound) {
			return nil, ErrAlreadyResumed
		}
		return nil, fmt.Errorf("failed to load continuation: %w", err)
	}

	run.Status = StatusRunning
	run.Continuation = nil
	run.UpdatedAt = e.now().UTC()
	if err := e.runs.UpdateRun(ctx, run); err != nil {
		return nil, e.putBack(ctx, runID, cont, fmt.Errorf("failed to update run: %w", err))
	}
	e.emit(run, "run resumed", nil)

	ctx = logging.WithRunID(ctx, run.RunID)
	out, stepErr := e.step.Resume(ctx, cont, payload)
	if stepErr != nil {
		return nil, e.reinstate(ctx, run, cont, fmt.Errorf("step returned unexpected error: %w", stepErr))
	}
	return e.settle(ctx, run, out, nil)
}

// putBack returns a taken continuation to the store so the run can be
// resumed again. Only valid while the step has not finalized.
func (e *Engine) putBack(ctx context.Context, runID string, cont *tailoring.Continuation, cause error) error {
	if err := e.conts.Save(context.WithoutCancel(ctx), runID, cont); err != nil {
		e.logger.Errorw("failed to restore continuation", logging.FieldRunID, runID, "error", err)
		return errors.Join(cause, fmt.Errorf("failed to restore continuation: %w", err))
	}
	e.logger.Warnw("resume aborted, continuation restored", logging.FieldRunID, runID, "error", cause)
	return cause
}

// reinstate puts the continuation back and marks the run suspended again
func (e *Engine) reinstate(ctx context.Context, run *RunState, cont *tailoring.Continuation, cause error) error {
	err := e.putBack(ctx, run.RunID, cont, cause)

	req := cont.Request
	run.Status = StatusSuspended
	run.Continuation = &req
	run.UpdatedAt = e.now().UTC()
	if uerr := e.runs.UpdateRun(context.WithoutCancel(ctx), run); uerr != nil {
		return errors.Join(err, fmt.Errorf("failed to update run: %w", uerr))
	}
	return err
}

// Get returns the current state of a run
func (e *Engine) Get(ctx context.Context, runID string) (*RunState, error) {
	return e.runs.GetRun(ctx, runID)
}

// settle records the outcome of a step execution. Once the step has
// finalized its artifact is stored, so a failed run update is returned
// without restoring the continuation.
func (e *Engine) settle(ctx context.Context, run *RunState, out types.StepOutput, stepErr error) (*RunState, error) {
	log := e.logger.With(logging.FieldRunID, run.RunID, logging.FieldStep, run.Step)

	if stepErr != nil {
		sig, ok := tailoring.AsSuspend(stepErr)
		if !ok || sig.Continuation == nil {
			return nil, e.abandon(ctx, run, fmt.Errorf("step returned unexpected error: %w", stepErr))
		}
		if err := e.conts.Save(ctx, run.RunID, sig.Continuation); err != nil {
			return nil, e.abandon(ctx, run, fmt.Errorf("failed to save continuation: %w", err))
		}
		req := sig.Continuation.Request
		run.Status = StatusSuspended
		run.Continuation = &req
	} else {
		run.Output = &out
		run.Status = StatusCompleted
		if out.Failed() {
			run.Status = StatusFailed
		}
	}

	run.UpdatedAt = e.now().UTC()
	if err := e.runs.UpdateRun(ctx, run); err != nil {
		return nil, fmt.Errorf("failed to update run: %w", err)
	}

	log.Infow("run settled", logging.FieldStatus, run.Status)
	switch run.Status {
	case StatusSuspended:
		e.emit(run, fmt.Sprintf("waiting for %d missing items", len(run.Continuation.MissingInfo)), run.Continuation)
	case StatusFailed:
		e.emit(run, run.Output.Error, nil)
	default:
		e.emit(run, "tailored resume ready", run.Output)
	}
	return run, nil
}

// abandon records a run as failed when the engine cannot carry it further
func (e *Engine) abandon(ctx context.Context, run *RunState, cause error) error {
	run.Status = StatusFailed
	run.Continuation = nil
	run.Output = &types.StepOutput{Error: cause.Error()}
	run.UpdatedAt = e.now().UTC()
	if err := e.runs.UpdateRun(context.WithoutCancel(ctx), run); err != nil {
		return errors.Join(cause, fmt.Errorf("failed to update run: %w", err))
	}
	e.emit(run, run.Output.Error, nil)
	return cause
}

func (e *Engine) emit(run *RunState, message string, content any) {
	if e.OnProgress == nil {
		return
	}
	e.OnProgress(ProgressEvent{
		RunID:   run.RunID,
		Step:    run.Step,
		Status:  run.Status,
		Message: message,
		Content: content,
	})
}
