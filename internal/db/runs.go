package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/jonathan/resume-tailor/internal/pipeline"
	"github.com/jonathan/resume-tailor/internal/types"
)

// RunStore implements pipeline.RunStore on the tailoring_runs table
type RunStore struct {
	db *DB
}

// RunStore returns a pipeline.RunStore backed by this database
func (db *DB) RunStore() *RunStore {
	return &RunStore{db: db}
}

// CreateRun inserts a new run
func (s *RunStore) CreateRun(ctx context.Context, run *pipeline.RunState) error {
	id, err := uuid.Parse(run.RunID)
	if err != nil {
		return fmt.Errorf("invalid run id %q: %w", run.RunID, err)
	}

	cont, output, err := encodeRunPayloads(run)
	if err != nil {
		return err
	}

	_, err = s.db.pool.Exec(ctx,
		`INSERT INTO tailoring_runs (id, step, user_id, job_id, status, continuation, output, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		id, run.Step, run.UserID, run.JobID, string(run.Status), cont, output, run.CreatedAt, run.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create run: %w", err)
	}
	return nil
}

// UpdateRun stores the status, pending request and output of a run
func (s *RunStore) UpdateRun(ctx context.Context, run *pipeline.RunState) error {
	id, err := uuid.Parse(run.RunID)
	if err != nil {
		return pipeline.ErrRunNotFound
	}

	cont, output, err := encodeRunPayloads(run)
	if err != nil {
		return err
	}

	tag, err := s.db.pool.Exec(ctx,
		`UPDATE tailoring_runs
		 SET status = $2, continuation = $3, output = $4, updated_at = $5
		 WHERE id = $1`,
		id, string(run.Status), cont, output, run.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update run: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return pipeline.ErrRunNotFound
	}
	return nil
}

// GetRun retrieves a run by ID
func (s *RunStore) GetRun(ctx context.Context, runID string) (*pipeline.RunState, error) {
	id, err := uuid.Parse(runID)
	if err != nil {
		return nil, pipeline.ErrRunNotFound
	}

	var (
		run          pipeline.RunState
		status       string
		cont, output []byte
	)
	err = s.db.pool.QueryRow(ctx,
		`SELECT id, step, user_id, job_id, status, continuation, output, created_at, updated_at
		 FROM tailoring_runs WHERE id = $1`,
		id,
	).Scan(&id, &run.Step, &run.UserID, &run.JobID, &status, &cont, &output, &run.CreatedAt, &run.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, pipeline.ErrRunNotFound
		}
		return nil, fmt.Errorf("failed to get run: %w", err)
	}

	run.RunID = id.String()
	run.Status = pipeline.Status(status)
	if err := decodeRunPayloads(&run, cont, output); err != nil {
		return nil, err
	}
	return &run, nil
}

func encodeRunPayloads(run *pipeline.RunState) (cont, output []byte, err error) {
	if run.Continuation != nil {
		if cont, err = json.Marshal(run.Continuation); err != nil {
			return nil, nil, fmt.Errorf("failed to marshal continuation request: %w", err)
		}
	}
	if run.Output != nil {
		if output, err = json.Marshal(run.Output); err != nil {
			return nil, nil, fmt.Errorf("failed to marshal output: %w", err)
		}
	}
	return cont, output, nil
}

func decodeRunPayloads(run *pipeline.RunState, cont, output []byte) error {
	if len(cont) > 0 {
		var req types.ContinuationRequest
		if err := json.Unmarshal(cont, &req); err != nil {
			return fmt.Errorf("failed to unmarshal continuation request: %w", err)
		}
		run.Continuation = &req
	}
	if len(output) > 0 {
		var out types.StepOutput
		if err := json.Unmarshal(output, &out); err != nil {
			return fmt.Errorf("failed to unmarshal output: %w", err)
		}
		run.Output = &out
	}
	return nil
}
