package processing

import (
	"errors"
	"fmt"
	"time"

	"recording-orchestrator/internal/engine"
)

var (
	// ErrUnauthorized is returned when the invoking identity does not match
	// the session's host identity.
	ErrUnauthorized = errors.New("identity does not match session host")

	// ErrSessionNotFound is returned when no session document exists.
	ErrSessionNotFound = errors.New("session not found")

	// ErrNoRecording is returned when the session carries no recording
	// location metadata.
	ErrNoRecording = errors.New("session has no recording metadata")

	// ErrEmptyInput is returned when the stability wait settled on zero clips.
	ErrEmptyInput = errors.New("no clips found after stability wait")
)

// StabilityTimeoutError reports that the clip listing never settled within
// the wait budget.
type StabilityTimeoutError struct {
	ClipCount  int
	Iterations int
	Elapsed    time.Duration
}

func (e *StabilityTimeoutError) Error() string {
	return fmt.Sprintf("clip listing did not stabilize after %s (%d iterations, last count %d)",
		e.Elapsed.Round(time.Millisecond), e.Iterations, e.ClipCount)
}

// SubmissionError reports the engine rejecting a job create call. Role names
// which job of the attempt was refused (single, batch-<n>, final-merge).
type SubmissionError struct {
	Role string
	Err  error
}

func (e *SubmissionError) Error() string {
	return fmt.Sprintf("submit %s job: %v", e.Role, e.Err)
}

func (e *SubmissionError) Unwrap() error { return e.Err }

// BatchFailureError reports one batch job reaching a terminal failure state.
// The attempt fails immediately; sibling jobs already on the engine keep
// running but are no longer waited on.
type BatchFailureError struct {
	BatchNumber int
	JobID       string
	Status      string
}

func (e *BatchFailureError) Error() string {
	return fmt.Sprintf("batch %d job %s finished %s", e.BatchNumber, e.JobID, e.Status)
}

// BatchTimeoutError reports the global batch wait deadline expiring before
// every batch completed.
type BatchTimeoutError struct {
	CompletedBatches int
	TotalBatches     int
	Elapsed          time.Duration
}

func (e *BatchTimeoutError) Error() string {
	return fmt.Sprintf("batch processing timed out after %s (%d/%d batches complete)",
		e.Elapsed.Round(time.Second), e.CompletedBatches, e.TotalBatches)
}

// AttemptInProgressError is returned when processing is requested while a
// previous attempt for the same session is still active.
type AttemptInProgressError struct {
	Stage         Stage
	CorrelationID string
}

func (e *AttemptInProgressError) Error() string {
	return fmt.Sprintf("processing already in progress (stage %s, attempt %s)", e.Stage, e.CorrelationID)
}

// errorKind buckets failures for metrics labels.
func errorKind(err error) string {
	var (
		stab       *StabilityTimeoutError
		submission *SubmissionError
		failure    *BatchFailureError
		timeout    *BatchTimeoutError
		invalid    *engine.InvalidInputError
	)
	switch {
	case errors.Is(err, ErrEmptyInput):
		return "empty_input"
	case errors.As(err, &stab):
		return "stability_timeout"
	case errors.As(err, &submission):
		return "submission"
	case errors.As(err, &failure):
		return "batch_failure"
	case errors.As(err, &timeout):
		return "batch_timeout"
	case errors.As(err, &invalid):
		return "invalid_input"
	default:
		return "internal"
	}
}
