package db

import (
	"time"

	"github.com/google/uuid"
)

// Artifact is a stored text artifact
type Artifact struct {
	ID        uuid.UUID `json:"id"`
	UserID    string    `json:"user_id"`
	JobID     string    `json:"job_id"`
	Kind      string    `json:"kind"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
