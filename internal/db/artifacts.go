package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// StoreArtifact upserts the text artifact of a kind for a user and job.
// A later store for the same key replaces the earlier text.
func (db *DB) StoreArtifact(ctx context.Context, userID, jobID, kind, text string) error {
	_, err := db.pool.Exec(ctx,
		`INSERT INTO artifacts (user_id, job_id, kind, text_content)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (user_id, job_id, kind) DO UPDATE SET text_content = $4, updated_at = NOW()`,
		userID, jobID, kind, text,
	)
	if err != nil {
		return fmt.Errorf("failed to store artifact %s: %w", kind, err)
	}
	return nil
}

// GetArtifact retrieves an artifact, or nil if none is stored
func (db *DB) GetArtifact(ctx context.Context, userID, jobID, kind string) (*Artifact, error) {
	var a Artifact
	err := db.pool.QueryRow(ctx,
		`SELECT id, user_id, job_id, kind, text_content, created_at, updated_at
		 FROM artifacts WHERE user_id = $1 AND job_id = $2 AND kind = $3`,
		userID, jobID, kind,
	).Scan(&a.ID, &a.UserID, &a.JobID, &a.Kind, &a.Text, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get artifact %s: %w", kind, err)
	}
	return &a, nil
}

// ArtifactSink adapts DB to the tailoring step's persistence sink
type ArtifactSink struct {
	db *DB
}

// ArtifactSink returns a sink writing to the artifacts table
func (db *DB) ArtifactSink() *ArtifactSink {
	return &ArtifactSink{db: db}
}

// Store implements tailoring.ArtifactSink
func (s *ArtifactSink) Store(ctx context.Context, userID, jobID, kind, text string) error {
	return s.db.StoreArtifact(ctx, userID, jobID, kind, text)
}
