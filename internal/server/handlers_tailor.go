package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/jonathan/resume-tailor/internal/logging"
	"github.com/jonathan/resume-tailor/internal/types"
)

// handleStartTailoring starts a run from a StepInput body.
// Missing input fields are not rejected here: the run fails with an error output.
func (s *Server) handleStartTailoring(w http.ResponseWriter, r *http.Request) {
	var in types.StepInput
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(&in); err != nil {
		s.writeError(w, r, &ErrValidation{Message: "invalid JSON body: " + err.Error()})
		return
	}

	run, err := s.runner.Start(r.Context(), in)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusCreated, run)
}

// handleGetRun returns the state of a run
func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	run, err := s.runner.Get(r.Context(), r.PathValue("run_id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, run)
}

// handleResumeRun resumes a suspended run. The raw body is the resumption
// payload; an empty body declines the request for more information.
func (s *Server) handleResumeRun(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		s.writeError(w, r, &ErrValidation{Message: "failed to read body: " + err.Error()})
		return
	}

	var payload json.RawMessage
	if trimmed := bytes.TrimSpace(body); len(trimmed) > 0 {
		if !json.Valid(trimmed) {
			s.writeError(w, r, &ErrValidation{Message: "body is not valid JSON"})
			return
		}
		payload = trimmed
	}

	run, err := s.runner.Resume(r.Context(), r.PathValue("run_id"), payload)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, run)
}

// writeError maps err to a status code. Internal failures are logged and hidden from clients.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := HTTPStatus(err)
	if status == http.StatusInternalServerError {
		s.logger.Errorw("request failed",
			logging.FieldPath, r.URL.Path,
			logging.FieldError, err,
		)
		s.errorResponse(w, status, "internal server error")
		return
	}

	var verr *ErrValidation
	if errors.As(err, &verr) {
		s.errorResponse(w, status, verr.Error())
		return
	}
	s.errorResponse(w, status, err.Error())
}
