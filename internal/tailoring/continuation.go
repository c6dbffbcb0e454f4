package tailoring

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jonathan/resume-tailor/internal/schemas"
	"github.com/jonathan/resume-tailor/internal/types"
)

// Continuation is the checkpoint of a suspended step: everything needed to
// finish it later, in a form that can be stored and loaded by any process.
type Continuation struct {
	UserID      string                    `json:"user_id"`
	JobID       string                    `json:"job_id"`
	Context     types.TailoringContext    `json:"context"`
	Pending     types.TailoringResult     `json:"pending"`
	Request     types.ContinuationRequest `json:"request"`
	SuspendedAt time.Time                 `json:"suspended_at"`
}

func newContinuation(in types.StepInput, tc *types.TailoringContext, pending *types.TailoringResult, now time.Time) *Continuation {
	missing := append([]string(nil), pending.MissingInfo...)
	return &Continuation{
		UserID:  in.UserID,
		JobID:   in.JobID,
		Context: *tc,
		Pending: types.TailoringResult{
			MissingInfo:    missing,
			TailoredResume: pending.TailoredResume,
		},
		Request: types.ContinuationRequest{
			MissingInfo:    append([]string(nil), missing...),
			TailoredResume: pending.TailoredResume,
			UserID:         in.UserID,
			JobID:          in.JobID,
			FullResume:     tc.FullResume,
		},
		SuspendedAt: now.UTC(),
	}
}

// Encode serializes the continuation for storage
func (c *Continuation) Encode() ([]byte, error) {
	return json.Marshal(c)
}

// DecodeContinuation restores a continuation produced by Encode
func DecodeContinuation(data []byte) (*Continuation, error) {
	var c Continuation
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("failed to decode continuation: %w", err)
	}
	if c.Pending.TailoredResume == "" {
		return nil, fmt.Errorf("failed to decode continuation: pending result has no tailored resume")
	}
	return &c, nil
}

// ParseResumption interprets the payload supplied on resume.
//
// An absent payload (nil, empty, JSON null, or an empty JSON string) means the
// caller declined and returns (nil, nil). A JSON string is decoded once and its
// contents parsed as the payload. Anything that does not match the
// InfoCollectionResult shape is a *ResumptionError.
func ParseResumption(payload json.RawMessage) (*types.InfoCollectionResult, error) {
	data := bytes.TrimSpace(payload)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil, nil
	}

	if data[0] == '"' {
		var inner string
		if err := json.Unmarshal(data, &inner); err != nil {
			return nil, &ResumptionError{Message: "malformed JSON string", Cause: err}
		}
		if inner == "" {
			return nil, nil
		}
		data = []byte(inner)
	}

	if err := schemas.Validate(schemas.InfoCollectionResult, string(data)); err != nil {
		return nil, &ResumptionError{Message: "payload does not match expected shape", Cause: err}
	}

	var info types.InfoCollectionResult
	if err := json.Unmarshal(data, &info); err != nil {
		return nil, &ResumptionError{Message: "failed to decode payload", Cause: err}
	}
	return &info, nil
}
