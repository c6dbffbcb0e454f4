// Package objectstore writes final artifacts to S3-compatible storage or a local directory.
package objectstore

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"
)

const contentTypeMarkdown = "text/markdown; charset=utf-8"

// FileStorer uploads an object and returns its location
type FileStorer interface {
	Upload(ctx context.Context, file io.Reader, bucket, key, contentType string) (string, error)
}

// Sink adapts a FileStorer to the tailoring step's persistence sink
type Sink struct {
	store  FileStorer
	bucket string
}

// NewSink creates a Sink writing under bucket
func NewSink(store FileStorer, bucket string) *Sink {
	return &Sink{store: store, bucket: bucket}
}

// ArtifactKey returns the object key for an artifact
func ArtifactKey(userID, jobID, kind string) string {
	return path.Join("users", sanitize(userID), "jobs", sanitize(jobID), sanitize(kind)+".md")
}

// Store implements tailoring.ArtifactSink
func (s *Sink) Store(ctx context.Context, userID, jobID, kind, text string) error {
	key := ArtifactKey(userID, jobID, kind)
	if _, err := s.store.Upload(ctx, strings.NewReader(text), s.bucket, key, contentTypeMarkdown); err != nil {
		return fmt.Errorf("failed to store %s: %w", key, err)
	}
	return nil
}

// sanitize keeps identifiers from escaping their key segment
func sanitize(segment string) string {
	r := strings.NewReplacer("/", "_", "\\", "_", "..", "_")
	return r.Replace(segment)
}
