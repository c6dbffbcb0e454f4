package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/jonathan/resume-tailor/internal/pipeline"
	"github.com/jonathan/resume-tailor/internal/tailoring"
)

// CheckpointStore implements pipeline.ContinuationStore on the run_checkpoints table.
// A consumed checkpoint is kept with resumed_at set rather than deleted.
type CheckpointStore struct {
	db *DB
}

// CheckpointStore returns a pipeline.ContinuationStore backed by this database
func (db *DB) CheckpointStore() *CheckpointStore {
	return &CheckpointStore{db: db}
}

// Save stores the continuation of a suspended run
func (s *CheckpointStore) Save(ctx context.Context, runID string, cont *tailoring.Continuation) error {
	id, err := uuid.Parse(runID)
	if err != nil {
		return fmt.Errorf("invalid run id %q: %w", runID, err)
	}

	state, err := cont.Encode()
	if err != nil {
		return fmt.Errorf("failed to encode continuation: %w", err)
	}

	_, err = s.db.pool.Exec(ctx,
		`INSERT INTO run_checkpoints (run_id, state)
		 VALUES ($1, $2)
		 ON CONFLICT (run_id) DO UPDATE SET state = $2, created_at = NOW(), resumed_at = NULL`,
		id, state,
	)
	if err != nil {
		return fmt.Errorf("failed to save checkpoint: %w", err)
	}
	return nil
}

// Take marks the checkpoint resumed and returns it. The conditional update
// makes concurrent takers race on one row; only the first gets a result.
func (s *CheckpointStore) Take(ctx context.Context, runID string) (*tailoring.Continuation, error) {
	return s.query(ctx, runID,
		`UPDATE run_checkpoints SET resumed_at = NOW()
		 WHERE run_id = $1 AND resumed_at IS NULL
		 RETURNING state`)
}

func (s *CheckpointStore) query(ctx context.Context, runID, sql string) (*tailoring.Continuation, error) {
	id, err := uuid.Parse(runID)
	if err != nil {
		return nil, pipeline.ErrContinuationNotFound
	}

	var state []byte
	if err := s.db.pool.QueryRow(ctx, sql, id).Scan(&state); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, pipeline.ErrContinuationNotFound
		}
		return nil, fmt.Errorf("failed to load checkpoint: %w", err)
	}
	return tailoring.DecodeContinuation(state)
}
