package engine

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/service/mediaconvert"
)

// State is the lifecycle position of a transcoding job as reported by the
// engine.
type State string

const (
	StateSubmitted   State = "SUBMITTED"
	StateProgressing State = "PROGRESSING"
	StateComplete    State = "COMPLETE"
	StateError       State = "ERROR"
	StateCanceled    State = "CANCELED"
)

// Terminal reports whether the job will make no further progress.
func (s State) Terminal() bool {
	switch s {
	case StateComplete, StateError, StateCanceled:
		return true
	}
	return false
}

// Status is one observation of a job.
type Status struct {
	State           State
	ProgressPercent int
}

// Engine is the opaque job-accepting transcoding service: it receives a job
// specification and reports status by job id. The orchestrator never blocks
// on job completion through this interface directly; polling cadence is the
// caller's concern.
type Engine interface {
	// SubmitJob creates the job and returns its id.
	SubmitJob(ctx context.Context, input *mediaconvert.CreateJobInput) (string, error)

	// JobStatus queries the current status of a previously submitted job.
	JobStatus(ctx context.Context, jobID string) (Status, error)
}
