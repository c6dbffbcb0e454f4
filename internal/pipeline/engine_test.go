package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/resume-tailor/internal/logging"
	"github.com/jonathan/resume-tailor/internal/mocks"
	"github.com/jonathan/resume-tailor/internal/tailoring"
	"github.com/jonathan/resume-tailor/internal/types"
)

type engineFixture struct {
	engine *Engine
	gen    *mocks.MockGenerator
	sink   *mocks.MockArtifactSink
	events []ProgressEvent
}

func newEngineFixture(t *testing.T) *engineFixture {
	t.Helper()

	f := &engineFixture{
		gen:  new(mocks.MockGenerator),
		sink: new(mocks.MockArtifactSink),
	}
	step := tailoring.NewStep(tailoring.NewController(f.gen, f.sink, logging.Nop()), logging.Nop())
	f.engine = NewEngine(step, NewMemoryRunStore(), NewMemoryContinuationStore(), logging.Nop())
	f.engine.OnProgress = func(ev ProgressEvent) { f.events = append(f.events, ev) }

	ids := 0
	f.engine.newID = func() string {
		ids++
		return []string{"run-1", "run-2", "run-3"}[ids-1]
	}
	return f
}

func stepInput() types.StepInput {
	return types.StepInput{
		UserID:            "U1",
		JobID:             "J1",
		OriginalResume:    "original",
		FullResume:        "full",
		JobDescription:    "Requires certification X",
		CompanyStrategy:   "strategy",
		RecruiterFeedback: "feedback",
	}
}

func (f *engineFixture) suspendWith(t *testing.T, first *types.TailoringResult) *RunState {
	t.Helper()

	f.gen.On("Generate", mock.Anything, mock.MatchedBy(func(tc *types.TailoringContext) bool {
		return tc.AdditionalInfo == "" && tc.FullResume == "full"
	})).Return(first, nil).Once()

	run, err := f.engine.Start(context.Background(), stepInput())
	require.NoError(t, err)
	require.Equal(t, StatusSuspended, run.Status)
	return run
}

func TestEngine_StartCompletesWithoutGaps(t *testing.T) {
	f := newEngineFixture(t)

	f.gen.On("Generate", mock.Anything, mock.Anything).
		Return(&types.TailoringResult{MissingInfo: []string{}, TailoredResume: "v1"}, nil).Once()
	f.sink.On("Store", mock.Anything, "U1", "J1", types.ArtifactKindTailoredResume, "v1").Return(nil).Once()

	run, err := f.engine.Start(context.Background(), stepInput())
	require.NoError(t, err)

	assert.Equal(t, "run-1", run.RunID)
	assert.Equal(t, StatusCompleted, run.Status)
	assert.Equal(t, tailoring.StepName, run.Step)
	require.NotNil(t, run.Output)
	assert.Equal(t, "v1", run.Output.TailoredResume)
	assert.Nil(t, run.Continuation)

	stored, err := f.engine.Get(context.Background(), "run-1")
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, stored.Status)

	require.Len(t, f.events, 2)
	assert.Equal(t, StatusRunning, f.events[0].Status)
	assert.Equal(t, StatusCompleted, f.events[1].Status)
}

func TestEngine_StartValidationFailure(t *testing.T) {
	f := newEngineFixture(t)

	in := stepInput()
	in.FullResume = ""

	run, err := f.engine.Start(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, run.Status)
	assert.Contains(t, run.Output.Error, "full_resume")
	f.gen.AssertNotCalled(t, "Generate", mock.Anything, mock.Anything)
}

func TestEngine_StartSuspends(t *testing.T) {
	f := newEngineFixture(t)

	run := f.suspendWith(t, &types.TailoringResult{MissingInfo: []string{"certification X"}, TailoredResume: "v1"})

	require.NotNil(t, run.Continuation)
	assert.Equal(t, []string{"certification X"}, run.Continuation.MissingInfo)
	assert.Equal(t, "v1", run.Continuation.TailoredResume)
	assert.Nil(t, run.Output)

	stored, err := f.engine.Get(context.Background(), run.RunID)
	require.NoError(t, err)
	assert.Equal(t, StatusSuspended, stored.Status)
	assert.Equal(t, run.Continuation, stored.Continuation)

	f.sink.AssertNotCalled(t, "Store", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestEngine_ResumeScenario(t *testing.T) {
	f := newEngineFixture(t)
	run := f.suspendWith(t, &types.TailoringResult{MissingInfo: []string{"certification X"}, TailoredResume: "v1"})

	f.gen.On("Generate", mock.Anything, mock.MatchedBy(func(tc *types.TailoringContext) bool {
		return tc.AdditionalInfo == "Has cert X since 2021" && tc.FullResume == "full with cert X"
	})).Return(&types.TailoringResult{MissingInfo: []string{}, TailoredResume: "v2"}, nil).Once()
	f.sink.On("Store", mock.Anything, "U1", "J1", types.ArtifactKindTailoredResume, "v2").Return(nil).Once()

	done, err := f.engine.Resume(context.Background(), run.RunID,
		json.RawMessage(`{"final_collected_info":"Has cert X since 2021","updated_full_resume":"full with cert X"}`))
	require.NoError(t, err)

	assert.Equal(t, StatusCompleted, done.Status)
	assert.Equal(t, &types.StepOutput{TailoredResume: "v2", MissingInfo: []string{}}, done.Output)
	assert.Nil(t, done.Continuation)

	f.gen.AssertNumberOfCalls(t, "Generate", 2)
	f.sink.AssertNumberOfCalls(t, "Store", 1)
}

func TestEngine_ResumeDeclined(t *testing.T) {
	f := newEngineFixture(t)
	run := f.suspendWith(t, &types.TailoringResult{MissingInfo: []string{"gap"}, TailoredResume: "v1"})

	f.sink.On("Store", mock.Anything, "U1", "J1", types.ArtifactKindTailoredResume, "v1").Return(nil).Once()

	done, err := f.engine.Resume(context.Background(), run.RunID, nil)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, done.Status)
	assert.Equal(t, "v1", done.Output.TailoredResume)
	assert.Equal(t, []string{"gap"}, done.Output.MissingInfo)
	f.gen.AssertNumberOfCalls(t, "Generate", 1)
}

func TestEngine_ResumeTwice(t *testing.T) {
	f := newEngineFixture(t)
	run := f.suspendWith(t, &types.TailoringResult{MissingInfo: []string{"gap"}, TailoredResume: "v1"})
	f.sink.On("Store", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)

	_, err := f.engine.Resume(context.Background(), run.RunID, nil)
	require.NoError(t, err)

	_, err = f.engine.Resume(context.Background(), run.RunID, nil)
	assert.ErrorIs(t, err, ErrNotSuspended)
	f.sink.AssertNumberOfCalls(t, "Store", 1)
}

func TestEngine_ConcurrentResumeOnlyOneWins(t *testing.T) {
	f := newEngineFixture(t)
	run := f.suspendWith(t, &types.TailoringResult{MissingInfo: []string{"gap"}, TailoredResume: "v1"})
	f.sink.On("Store", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)
	f.engine.OnProgress = nil

	const callers = 8
	var wg sync.WaitGroup
	errs := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.engine.Resume(context.Background(), run.RunID, nil)
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.True(t, errors.Is(err, ErrAlreadyResumed) || errors.Is(err, ErrNotSuspended), "unexpected error: %v", err)
	}
	assert.Equal(t, 1, succeeded)
	f.sink.AssertNumberOfCalls(t, "Store", 1)
}

func TestEngine_ResumeUnknownRun(t *testing.T) {
	f := newEngineFixture(t)

	_, err := f.engine.Resume(context.Background(), "missing", nil)
	assert.ErrorIs(t, err, ErrRunNotFound)

	_, err = f.engine.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrRunNotFound)
}

func TestEngine_ResumeCompletedRun(t *testing.T) {
	f := newEngineFixture(t)

	f.gen.On("Generate", mock.Anything, mock.Anything).
		Return(&types.TailoringResult{MissingInfo: []string{}, TailoredResume: "v1"}, nil).Once()
	f.sink.On("Store", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)

	run, err := f.engine.Start(context.Background(), stepInput())
	require.NoError(t, err)

	_, err = f.engine.Resume(context.Background(), run.RunID, nil)
	assert.ErrorIs(t, err, ErrNotSuspended)
}

func TestEngine_ResumeAfterRestart(t *testing.T) {
	runs := NewMemoryRunStore()
	conts := NewMemoryContinuationStore()

	gen := new(mocks.MockGenerator)
	sink := new(mocks.MockArtifactSink)
	newStep := func() *tailoring.Step {
		return tailoring.NewStep(tailoring.NewController(gen, sink, logging.Nop()), logging.Nop())
	}

	gen.On("Generate", mock.Anything, mock.Anything).
		Return(&types.TailoringResult{MissingInfo: []string{"gap"}, TailoredResume: "v1"}, nil).Once()
	first := NewEngine(newStep(), runs, conts, logging.Nop())
	run, err := first.Start(context.Background(), stepInput())
	require.NoError(t, err)

	// A fresh engine sharing the stores picks up the checkpoint
	gen.On("Generate", mock.Anything, mock.Anything).
		Return(&types.TailoringResult{MissingInfo: []string{}, TailoredResume: "v2"}, nil).Once()
	sink.On("Store", mock.Anything, "U1", "J1", types.ArtifactKindTailoredResume, "v2").Return(nil).Once()

	second := NewEngine(newStep(), runs, conts, logging.Nop())
	done, err := second.Resume(context.Background(), run.RunID, json.RawMessage(`{"updated_full_resume":"full v2"}`))
	require.NoError(t, err)
	assert.Equal(t, "v2", done.Output.TailoredResume)
}

type failingContinuationStore struct {
	*MemoryContinuationStore
}

func (failingContinuationStore) Save(context.Context, string, *tailoring.Continuation) error {
	return errors.New("store unavailable")
}

func TestEngine_CheckpointFailureMarksRunFailed(t *testing.T) {
	gen := new(mocks.MockGenerator)
	step := tailoring.NewStep(tailoring.NewController(gen, new(mocks.MockArtifactSink), nil), nil)
	runs := NewMemoryRunStore()
	engine := NewEngine(step, runs, failingContinuationStore{NewMemoryContinuationStore()}, nil)
	engine.newID = func() string { return "run-1" }

	gen.On("Generate", mock.Anything, mock.Anything).
		Return(&types.TailoringResult{MissingInfo: []string{"gap"}, TailoredResume: "v1"}, nil).Once()

	_, err := engine.Start(context.Background(), stepInput())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to save continuation")

	stored, err := runs.GetRun(context.Background(), "run-1")
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, stored.Status)
	require.NotNil(t, stored.Output)
	assert.Contains(t, stored.Output.Error, "store unavailable")
	assert.Nil(t, stored.Continuation)
}

// flakyRunStore fails the next failUpdates calls to UpdateRun
type flakyRunStore struct {
	*MemoryRunStore
	mu          sync.Mutex
	failUpdates int
}

func (s *flakyRunStore) UpdateRun(ctx context.Context, run *RunState) error {
	s.mu.Lock()
	if s.failUpdates > 0 {
		s.failUpdates--
		s.mu.Unlock()
		return errors.New("connection reset")
	}
	s.mu.Unlock()
	return s.MemoryRunStore.UpdateRun(ctx, run)
}

func TestEngine_ResumeRetriesAfterRunUpdateFailure(t *testing.T) {
	gen := new(mocks.MockGenerator)
	sink := new(mocks.MockArtifactSink)
	step := tailoring.NewStep(tailoring.NewController(gen, sink, nil), nil)
	runs := &flakyRunStore{MemoryRunStore: NewMemoryRunStore()}
	engine := NewEngine(step, runs, NewMemoryContinuationStore(), nil)

	gen.On("Generate", mock.Anything, mock.Anything).
		Return(&types.TailoringResult{MissingInfo: []string{"gap"}, TailoredResume: "v1"}, nil).Once()
	run, err := engine.Start(context.Background(), stepInput())
	require.NoError(t, err)
	require.Equal(t, StatusSuspended, run.Status)

	runs.failUpdates = 1
	_, err = engine.Resume(context.Background(), run.RunID, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection reset")

	stored, err := engine.Get(context.Background(), run.RunID)
	require.NoError(t, err)
	assert.Equal(t, StatusSuspended, stored.Status)
	sink.AssertNotCalled(t, "Store", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)

	sink.On("Store", mock.Anything, "U1", "J1", types.ArtifactKindTailoredResume, "v1").Return(nil).Once()
	done, err := engine.Resume(context.Background(), run.RunID, nil)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, done.Status)
	assert.Equal(t, "v1", done.Output.TailoredResume)
	sink.AssertNumberOfCalls(t, "Store", 1)
}

// brokenStepper suspends on Run and fails Resume outside the step boundary
type brokenStepper struct {
	cont *tailoring.Continuation
}

func (s brokenStepper) Run(context.Context, types.StepInput) (types.StepOutput, error) {
	return types.StepOutput{}, &tailoring.SuspendSignal{Continuation: s.cont}
}

func (brokenStepper) Resume(context.Context, *tailoring.Continuation, json.RawMessage) (types.StepOutput, error) {
	return types.StepOutput{}, errors.New("controller crashed")
}

func TestEngine_ResumeStepErrorReinstatesSuspension(t *testing.T) {
	cont := &tailoring.Continuation{
		UserID:  "U1",
		JobID:   "J1",
		Pending: types.TailoringResult{MissingInfo: []string{"gap"}, TailoredResume: "v1"},
		Request: types.ContinuationRequest{MissingInfo: []string{"gap"}, TailoredResume: "v1", UserID: "U1", JobID: "J1"},
	}
	conts := NewMemoryContinuationStore()
	engine := NewEngine(brokenStepper{cont: cont}, NewMemoryRunStore(), conts, nil)

	run, err := engine.Start(context.Background(), stepInput())
	require.NoError(t, err)
	require.Equal(t, StatusSuspended, run.Status)

	_, err = engine.Resume(context.Background(), run.RunID, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "controller crashed")

	stored, err := engine.Get(context.Background(), run.RunID)
	require.NoError(t, err)
	assert.Equal(t, StatusSuspended, stored.Status)
	require.NotNil(t, stored.Continuation)
	assert.Equal(t, []string{"gap"}, stored.Continuation.MissingInfo)

	restored, err := conts.Take(context.Background(), run.RunID)
	require.NoError(t, err)
	assert.Equal(t, "v1", restored.Pending.TailoredResume)
}
