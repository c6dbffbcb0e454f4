package valkeystore

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/resume-tailor/internal/pipeline"
	"github.com/jonathan/resume-tailor/internal/tailoring"
	"github.com/jonathan/resume-tailor/internal/types"
)

var _ pipeline.ContinuationStore = (*Store)(nil)

func setUpTestStore(t *testing.T, ttl time.Duration) *Store {
	t.Helper()

	addr := os.Getenv("VALKEY_TEST_ADDR")
	if addr == "" {
		t.Skip("VALKEY_TEST_ADDR not set, skipping integration test")
	}

	s, err := New(context.Background(), addr, os.Getenv("VALKEY_TEST_PASSWORD"), ttl)
	require.NoError(t, err, "failed to connect to test valkey")
	t.Cleanup(s.Close)
	return s
}

func testContinuation() *tailoring.Continuation {
	return &tailoring.Continuation{
		UserID:  "U1",
		JobID:   "J1",
		Pending: types.TailoringResult{MissingInfo: []string{"certification X"}, TailoredResume: "v1"},
		Request: types.ContinuationRequest{MissingInfo: []string{"certification X"}, TailoredResume: "v1", UserID: "U1", JobID: "J1"},
	}
}

func TestKey(t *testing.T) {
	assert.Equal(t, "tailor:continuation:r1", key("r1"))
}

func TestExSeconds(t *testing.T) {
	tests := []struct {
		ttl  time.Duration
		want int64
	}{
		{time.Nanosecond, 1},
		{500 * time.Millisecond, 1},
		{time.Second, 1},
		{1500 * time.Millisecond, 2},
		{time.Hour, 3600},
	}
	for _, tt := range tests {
		t.Run(tt.ttl.String(), func(t *testing.T) {
			assert.Equal(t, tt.want, exSeconds(tt.ttl))
		})
	}
}

func TestStore_TakeOnce(t *testing.T) {
	s := setUpTestStore(t, time.Minute)
	ctx := context.Background()
	runID := uuid.NewString()

	require.NoError(t, s.Save(ctx, runID, testContinuation()))

	var wg sync.WaitGroup
	var mu sync.Mutex
	taken := 0
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := s.Take(ctx, runID); err == nil {
				mu.Lock()
				taken++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, taken)

	_, err := s.Take(ctx, runID)
	assert.ErrorIs(t, err, pipeline.ErrContinuationNotFound)
}

func TestStore_TTL(t *testing.T) {
	s := setUpTestStore(t, time.Minute)
	ctx := context.Background()
	runID := uuid.NewString()

	require.NoError(t, s.Save(ctx, runID, testContinuation()))

	ttl, err := s.Client.Do(ctx, s.Client.B().Ttl().Key(key(runID)).Build()).AsInt64()
	require.NoError(t, err)
	assert.Greater(t, ttl, int64(0))
	assert.LessOrEqual(t, ttl, int64(60))
}
