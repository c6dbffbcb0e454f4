package tailoring

import (
	"errors"
	"fmt"
	"strings"
)

// ValidationError reports required step inputs that were missing or empty
type ValidationError struct {
	Fields []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("missing required fields for tailoring: %s", strings.Join(e.Fields, ", "))
}

// Generation stages
const (
	StageInitial    = "initial"
	StageRefinement = "refinement"
)

// GenerationError represents a failed or non-conformant generation call
type GenerationError struct {
	Stage   string
	Message string
	Cause   error
}

func (e *GenerationError) Error() string {
	prefix := "failed to generate resume analysis"
	if e.Stage == StageRefinement {
		prefix += " on restart"
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", prefix, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", prefix, e.Message)
}

func (e *GenerationError) Unwrap() error {
	return e.Cause
}

// ResumptionError represents a resumption payload that could not be used.
// It is never fatal: the step finalizes with the result it had before suspending.
type ResumptionError struct {
	Message string
	Cause   error
}

func (e *ResumptionError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("invalid collection result: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("invalid collection result: %s", e.Message)
}

func (e *ResumptionError) Unwrap() error {
	return e.Cause
}

// PersistenceError represents a failure to store the final artifact
type PersistenceError struct {
	Kind  string
	Cause error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("failed to store %s artifact: %v", e.Kind, e.Cause)
}

func (e *PersistenceError) Unwrap() error {
	return e.Cause
}

// SuspendSignal is returned when the step suspends to wait for more information.
// It is not a failure; it carries the continuation needed to resume the step and
// must be passed through every boundary unchanged.
type SuspendSignal struct {
	Continuation *Continuation
}

func (s *SuspendSignal) Error() string {
	if s.Continuation == nil {
		return "tailoring suspended"
	}
	return fmt.Sprintf("tailoring suspended: %d missing items", len(s.Continuation.Request.MissingInfo))
}

// AsSuspend extracts the suspension signal from err, if there is one
func AsSuspend(err error) (*SuspendSignal, bool) {
	var sig *SuspendSignal
	if errors.As(err, &sig) {
		return sig, true
	}
	return nil, false
}
