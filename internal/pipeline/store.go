package pipeline

import (
	"context"
	"sync"

	"github.com/jonathan/resume-tailor/internal/tailoring"
)

// RunStore records the lifecycle of runs
type RunStore interface {
	CreateRun(ctx context.Context, run *RunState) error
	UpdateRun(ctx context.Context, run *RunState) error
	// GetRun returns ErrRunNotFound for an unknown ID
	GetRun(ctx context.Context, runID string) (*RunState, error)
}

// ContinuationStore checkpoints suspended steps.
// Take must be atomic: for a given Save, at most one Take succeeds.
type ContinuationStore interface {
	Save(ctx context.Context, runID string, cont *tailoring.Continuation) error
	// Take returns and removes the continuation, or ErrContinuationNotFound
	Take(ctx context.Context, runID string) (*tailoring.Continuation, error)
}

// MemoryRunStore is an in-process RunStore
type MemoryRunStore struct {
	mu   sync.RWMutex
	runs map[string]RunState
}

// NewMemoryRunStore creates an empty MemoryRunStore
func NewMemoryRunStore() *MemoryRunStore {
	return &MemoryRunStore{runs: make(map[string]RunState)}
}

func (s *MemoryRunStore) CreateRun(_ context.Context, run *RunState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs[run.RunID] = run.clone()
	return nil
}

func (s *MemoryRunStore) UpdateRun(_ context.Context, run *RunState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.runs[run.RunID]; !ok {
		return ErrRunNotFound
	}
	s.runs[run.RunID] = run.clone()
	return nil
}

func (s *MemoryRunStore) GetRun(_ context.Context, runID string) (*RunState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	run, ok := s.runs[runID]
	if !ok {
		return nil, ErrRunNotFound
	}
	c := run.clone()
	return &c, nil
}

// MemoryContinuationStore is an in-process ContinuationStore.
// Continuations are kept in encoded form so they round-trip like the durable stores.
type MemoryContinuationStore struct {
	mu    sync.Mutex
	items map[string][]byte
}

// NewMemoryContinuationStore creates an empty MemoryContinuationStore
func NewMemoryContinuationStore() *MemoryContinuationStore {
	return &MemoryContinuationStore{items: make(map[string][]byte)}
}

func (s *MemoryContinuationStore) Save(_ context.Context, runID string, cont *tailoring.Continuation) error {
	data, err := cont.Encode()
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[runID] = data
	return nil
}

func (s *MemoryContinuationStore) Take(_ context.Context, runID string) (*tailoring.Continuation, error) {
	s.mu.Lock()
	data, ok := s.items[runID]
	delete(s.items, runID)
	s.mu.Unlock()

	if !ok {
		return nil, ErrContinuationNotFound
	}
	return tailoring.DecodeContinuation(data)
}
