package pipeline

import "errors"

var (
	// ErrRunNotFound is returned when no run exists for an ID
	ErrRunNotFound = errors.New("run not found")
	// ErrNotSuspended is returned when resuming a run that is not waiting for input
	ErrNotSuspended = errors.New("run is not suspended")
	// ErrAlreadyResumed is returned when the continuation of a run was already consumed or has expired
	ErrAlreadyResumed = errors.New("run already resumed")
	// ErrContinuationNotFound is returned by a ContinuationStore with nothing stored for a run
	ErrContinuationNotFound = errors.New("continuation not found")
)
