// Package types provides type definitions for structured data used throughout the resume-tailor system.
//
//nolint:revive // types is a standard Go package name pattern
package types

import "encoding/json"

// ArtifactKindTailoredResume is the artifact kind stored at finalization
const ArtifactKindTailoredResume = "tailored_resume"

// StepInput is everything a caller supplies to start one tailoring step.
// Every field is required; a missing field is reported before any generation call.
type StepInput struct {
	UserID            string `json:"user_id" validate:"required"`
	JobID             string `json:"job_id" validate:"required"`
	OriginalResume    string `json:"original_resume" validate:"required"`
	FullResume        string `json:"full_resume" validate:"required"`
	JobDescription    string `json:"job_description" validate:"required"`
	CompanyStrategy   string `json:"company_strategy" validate:"required"`
	RecruiterFeedback string `json:"recruiter_feedback" validate:"required"`
}

// TailoringContext is the working context of one step invocation.
// Only FullResume and AdditionalInfo change across a suspend/resume cycle.
type TailoringContext struct {
	OriginalResume    string `json:"original_resume"`
	FullResume        string `json:"full_resume"`
	JobDescription    string `json:"job_description"`
	CompanyStrategy   string `json:"company_strategy"`
	RecruiterFeedback string `json:"recruiter_feedback"`
	AdditionalInfo    string `json:"additional_collected_info"`
}

// NewTailoringContext builds the initial working context from step input
func NewTailoringContext(in StepInput) *TailoringContext {
	return &TailoringContext{
		OriginalResume:    in.OriginalResume,
		FullResume:        in.FullResume,
		JobDescription:    in.JobDescription,
		CompanyStrategy:   in.CompanyStrategy,
		RecruiterFeedback: in.RecruiterFeedback,
	}
}

// WithCollectedInfo returns a copy of the context carrying newly collected information
func (c *TailoringContext) WithCollectedInfo(info InfoCollectionResult) *TailoringContext {
	next := *c
	next.AdditionalInfo = info.FinalCollectedInfo
	next.FullResume = info.UpdatedFullResume
	return &next
}

// TailoringResult is the dual output of a single generation call
type TailoringResult struct {
	MissingInfo    []string `json:"missing_info"`
	TailoredResume string   `json:"tailored_resume"`
}

// HasGaps reports whether the generator flagged any missing information
func (r *TailoringResult) HasGaps() bool {
	return len(r.MissingInfo) > 0
}

// ContinuationRequest is handed to the external actor when the step suspends
type ContinuationRequest struct {
	MissingInfo    []string `json:"missing_info"`
	TailoredResume string   `json:"tailored_resume"`
	UserID         string   `json:"user_id"`
	JobID          string   `json:"job_id"`
	FullResume     string   `json:"full_resume"`
}

// InfoCollectionResult is the payload expected when a suspended step is resumed
type InfoCollectionResult struct {
	FinalCollectedInfo string `json:"final_collected_info"`
	UpdatedFullResume  string `json:"updated_full_resume"`
}

// StepOutput is the terminal result of a step: either a tailored resume or an error
type StepOutput struct {
	TailoredResume string
	MissingInfo    []string
	Error          string
}

// Failed reports whether the output carries an error
func (o *StepOutput) Failed() bool {
	return o.Error != ""
}

// MarshalJSON emits {tailored_resume, missing_info} or {error}, never both
func (o StepOutput) MarshalJSON() ([]byte, error) {
	if o.Error != "" {
		return json.Marshal(struct {
			Error string `json:"error"`
		}{Error: o.Error})
	}
	missing := o.MissingInfo
	if missing == nil {
		missing = []string{}
	}
	return json.Marshal(struct {
		TailoredResume string   `json:"tailored_resume"`
		MissingInfo    []string `json:"missing_info"`
	}{TailoredResume: o.TailoredResume, MissingInfo: missing})
}

// UnmarshalJSON accepts either shape produced by MarshalJSON
func (o *StepOutput) UnmarshalJSON(data []byte) error {
	var raw struct {
		TailoredResume string   `json:"tailored_resume"`
		MissingInfo    []string `json:"missing_info"`
		Error          string   `json:"error"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	o.TailoredResume = raw.TailoredResume
	o.MissingInfo = raw.MissingInfo
	o.Error = raw.Error
	return nil
}
