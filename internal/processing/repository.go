package processing

import (
	"context"
)

// Repository is the durable store for per-session recording state. The
// orchestrator reads before acting and writes after every stage transition,
// so a restart can tell where an attempt stood.
type Repository interface {
	// GetSession returns the session document, or ErrSessionNotFound.
	GetSession(ctx context.Context, sessionID string) (*RecordingSession, error)

	// UpdateRecording applies the update's non-nil fields in one atomic
	// write. Fields left nil are untouched.
	UpdateRecording(ctx context.Context, sessionID string, update RecordingUpdate) error

	// AppendJobReference appends ref to the session's job history. Existing
	// references are never replaced; history spans attempts.
	AppendJobReference(ctx context.Context, sessionID string, ref JobReference) error

	// UpdateJobReference updates the recorded status and progress of the job
	// identified by jobID.
	UpdateJobReference(ctx context.Context, sessionID, jobID, status string, progressPercent int) error

	// SetCompletedBatches overwrites the completed-batch counter in one
	// atomic write; completions from concurrent poll goroutines may land
	// close together.
	SetCompletedBatches(ctx context.Context, sessionID string, n int) error
}

// RecordingUpdate is a partial update of a session's processing fields.
type RecordingUpdate struct {
	Stage            *Stage
	ClipsCount       *int
	BatchCount       *int
	CompletedBatches *int
	FinalOutputKey   *string
	CorrelationID    *string
	ErrorMessage     *string
}
