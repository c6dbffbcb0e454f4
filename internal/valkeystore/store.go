// Package valkeystore keeps continuations of suspended runs in Valkey.
package valkeystore

import (
	"context"
	"fmt"
	"time"

	"github.com/valkey-io/valkey-go"

	"github.com/jonathan/resume-tailor/internal/pipeline"
	"github.com/jonathan/resume-tailor/internal/tailoring"
)

const keyPrefix = "tailor:continuation:"

// Store implements pipeline.ContinuationStore. Take uses GETDEL so a
// continuation can be consumed once even with concurrent resumers.
type Store struct {
	Client valkey.Client
	ttl    time.Duration
}

// New connects to Valkey and verifies the connection.
// A zero ttl keeps continuations until they are taken.
func New(ctx context.Context, address, password string, ttl time.Duration) (*Store, error) {
	client, err := valkey.NewClient(valkey.ClientOption{
		InitAddress: []string{address},
		Password:    password,
	})
	if err != nil {
		return nil, fmt.Errorf("unable to create Valkey client: %w", err)
	}

	if err := client.Do(ctx, client.B().Ping().Build()).Error(); err != nil {
		client.Close()
		return nil, fmt.Errorf("unable to ping Valkey: %w", err)
	}

	return &Store{Client: client, ttl: ttl}, nil
}

// Close releases the client
func (s *Store) Close() {
	s.Client.Close()
}

func key(runID string) string {
	return keyPrefix + runID
}

// exSeconds converts ttl to whole seconds for SET EX, rounding up so a
// positive ttl never becomes the invalid expiry 0
func exSeconds(ttl time.Duration) int64 {
	return int64((ttl + time.Second - 1) / time.Second)
}

func (s *Store) Save(ctx context.Context, runID string, cont *tailoring.Continuation) error {
	data, err := cont.Encode()
	if err != nil {
		return fmt.Errorf("failed to encode continuation: %w", err)
	}

	var cmd valkey.Completed
	if s.ttl > 0 {
		cmd = s.Client.B().Set().Key(key(runID)).Value(valkey.BinaryString(data)).ExSeconds(exSeconds(s.ttl)).Build()
	} else {
		cmd = s.Client.B().Set().Key(key(runID)).Value(valkey.BinaryString(data)).Build()
	}

	if err := s.Client.Do(ctx, cmd).Error(); err != nil {
		return fmt.Errorf("unable to save continuation for run (%s): %w", runID, err)
	}
	return nil
}

func (s *Store) Take(ctx context.Context, runID string) (*tailoring.Continuation, error) {
	return s.load(ctx, runID, s.Client.B().Getdel().Key(key(runID)).Build())
}

func (s *Store) load(ctx context.Context, runID string, cmd valkey.Completed) (*tailoring.Continuation, error) {
	data, err := s.Client.Do(ctx, cmd).AsBytes()
	if err != nil {
		if valkey.IsValkeyNil(err) {
			return nil, pipeline.ErrContinuationNotFound
		}
		return nil, fmt.Errorf("unable to load continuation for run (%s): %w", runID, err)
	}
	return tailoring.DecodeContinuation(data)
}
