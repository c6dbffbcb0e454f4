package objectstore

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// DirStore writes objects under a local root directory as <root>/<bucket>/<key>
type DirStore struct {
	Root string
}

// NewDirStore creates a DirStore
func NewDirStore(root string) *DirStore {
	return &DirStore{Root: root}
}

// Upload writes the object atomically and returns its file path
func (d *DirStore) Upload(ctx context.Context, file io.Reader, bucket, key, _ string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	dest := filepath.Join(d.Root, bucket, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return "", fmt.Errorf("failed to create directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(dest), ".upload-*")
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, file); err != nil {
		tmp.Close()
		return "", fmt.Errorf("failed to write file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("failed to write file: %w", err)
	}
	if err := os.Rename(tmp.Name(), dest); err != nil {
		return "", fmt.Errorf("failed to write file: %w", err)
	}
	return dest, nil
}
