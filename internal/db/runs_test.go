package db

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/resume-tailor/internal/pipeline"
	"github.com/jonathan/resume-tailor/internal/types"
)

func TestRunPayloads_RoundTrip(t *testing.T) {
	run := &pipeline.RunState{
		RunID:  "6f1c1b9e-8f55-4a4e-9a57-1f0f1b2a3c4d",
		Status: pipeline.StatusSuspended,
		Continuation: &types.ContinuationRequest{
			MissingInfo:    []string{"certification X"},
			TailoredResume: "v1",
			UserID:         "U1",
			JobID:          "J1",
			FullResume:     "full",
		},
	}

	cont, output, err := encodeRunPayloads(run)
	require.NoError(t, err)
	assert.NotEmpty(t, cont)
	assert.Nil(t, output)

	var decoded pipeline.RunState
	require.NoError(t, decodeRunPayloads(&decoded, cont, output))
	assert.Equal(t, run.Continuation, decoded.Continuation)
	assert.Nil(t, decoded.Output)
}

func TestRunPayloads_ErrorOutput(t *testing.T) {
	run := &pipeline.RunState{Output: &types.StepOutput{Error: "missing required fields for tailoring: job_id"}}

	cont, output, err := encodeRunPayloads(run)
	require.NoError(t, err)
	assert.Nil(t, cont)
	assert.JSONEq(t, `{"error":"missing required fields for tailoring: job_id"}`, string(output))

	var decoded pipeline.RunState
	require.NoError(t, decodeRunPayloads(&decoded, cont, output))
	assert.True(t, decoded.Output.Failed())
}

func TestRunPayloads_CorruptJSON(t *testing.T) {
	var decoded pipeline.RunState
	assert.Error(t, decodeRunPayloads(&decoded, []byte(`{`), nil))
	assert.Error(t, decodeRunPayloads(&decoded, nil, []byte(`[`)))
}

func TestSchemaSQL_Embedded(t *testing.T) {
	for _, table := range []string{"tailoring_runs", "artifacts", "run_checkpoints"} {
		assert.Contains(t, schemaSQL, "CREATE TABLE IF NOT EXISTS "+table)
	}
	assert.Contains(t, schemaSQL, "UNIQUE (user_id, job_id, kind)")
}
