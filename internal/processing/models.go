package processing

import (
	"fmt"
	"time"
)

// Stage is the persisted lifecycle position of a session's processing.
type Stage string

const (
	StageNotStarted      Stage = "NOT_STARTED"
	StageWaitingForClips Stage = "WAITING_FOR_CLIPS"
	StageBatchProcessing Stage = "BATCH_PROCESSING"
	StageFinalMerge      Stage = "FINAL_MERGE"
	StageSubmitted       Stage = "SUBMITTED"
	StageComplete        Stage = "COMPLETE"
	StageError           Stage = "ERROR"
)

// Active reports whether the stage belongs to an attempt that has not yet
// reached a terminal outcome. SUBMITTED counts as active: the final job is
// still running on the engine until a status refresh observes it finish.
func (s Stage) Active() bool {
	switch s {
	case StageWaitingForClips, StageBatchProcessing, StageFinalMerge, StageSubmitted:
		return true
	}
	return false
}

// ProcessingMode distinguishes the single-job path from the batch pipeline.
type ProcessingMode string

const (
	ModeSingle  ProcessingMode = "SINGLE"
	ModeBatched ProcessingMode = "BATCHED"
)

// Logical roles a job plays within one attempt.
const (
	RoleSingle     = "single"
	RoleFinalMerge = "final-merge"
)

// BatchRole returns the role name for batch n (1-based).
func BatchRole(n int) string {
	return fmt.Sprintf("batch-%d", n)
}

// JobReference records one submitted engine job. References are append-only
// within the session document so every attempt stays auditable.
type JobReference struct {
	Role            string `dynamodbav:"role" json:"role"`
	JobID           string `dynamodbav:"jobId" json:"jobId"`
	Status          string `dynamodbav:"status" json:"status"`
	ProgressPercent int    `dynamodbav:"progressPercent" json:"progressPercent"`
	CorrelationID   string `dynamodbav:"correlationId" json:"correlationId"`
}

// RecordingSession is the per-session document held in the metadata store.
// The session itself is created when recording starts; this subsystem only
// mutates the processing-relevant fields and never deletes the document.
type RecordingSession struct {
	SessionID         string         `dynamodbav:"sessionId" json:"sessionId"`
	HostIdentity      string         `dynamodbav:"hostIdentity" json:"hostIdentity"`
	StorageBucket     string         `dynamodbav:"storageBucket" json:"storageBucket"`
	StoragePrefixRoot string         `dynamodbav:"storagePrefixRoot" json:"storagePrefixRoot"`
	Stage             Stage          `dynamodbav:"stage" json:"stage"`
	JobReferences     []JobReference `dynamodbav:"jobReferences" json:"jobReferences"`
	ClipsCount        int            `dynamodbav:"clipsCount" json:"clipsCount"`
	BatchCount        int            `dynamodbav:"batchCount" json:"batchCount"`
	CompletedBatches  int            `dynamodbav:"completedBatches" json:"completedBatches"`
	FinalOutputKey    string         `dynamodbav:"finalOutputKey" json:"finalOutputKey"`
	CorrelationID     string         `dynamodbav:"correlationId" json:"correlationId"`
	ErrorMessage      string         `dynamodbav:"errorMessage" json:"errorMessage,omitempty"`
	UpdatedAt         time.Time      `dynamodbav:"updatedAt" json:"updatedAt"`
}

// Clip is one uploaded video segment, derived from the object listing and
// never persisted.
type Clip struct {
	Key          string
	LastModified time.Time
	SizeBytes    int64
}

// Result describes a successfully started processing attempt. The attempt's
// final job has been submitted, not completed.
type Result struct {
	JobID          string         `json:"jobId"`
	OutputKey      string         `json:"outputKey"`
	ClipsCount     int            `json:"clipsCount"`
	BatchCount     int            `json:"batchCount,omitempty"`
	ProcessingMode ProcessingMode `json:"processingMode"`
	CorrelationID  string         `json:"correlationId"`
}

// StatusResult is the read-side view of a session's processing state.
type StatusResult struct {
	SessionID        string `json:"sessionId"`
	Stage            Stage  `json:"stage"`
	ClipsCount       int    `json:"clipsCount"`
	BatchCount       int    `json:"batchCount"`
	CompletedBatches int    `json:"completedBatches"`
	ProgressPercent  int    `json:"progressPercent"`
	JobID            string `json:"jobId,omitempty"`
	FinalOutputKey   string `json:"finalOutputKey,omitempty"`
	CorrelationID    string `json:"correlationId,omitempty"`
	Error            string `json:"error,omitempty"`
}
