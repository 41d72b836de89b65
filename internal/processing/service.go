package processing

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/mediaconvert"
	"github.com/google/uuid"

	"recording-orchestrator/internal/engine"
	"recording-orchestrator/internal/platform/logger"
	"recording-orchestrator/internal/platform/metrics"
	"recording-orchestrator/internal/storage"
)

// BatchConfig bounds the batch pipeline.
type BatchConfig struct {
	MaxInputsPerJob int
	PollInterval    time.Duration
	MaxWait         time.Duration
}

// Service drives a session's recording from settled clip listing through job
// submission to persisted state. One Service handles many sessions; each
// StartProcessing call is one attempt, tagged with a fresh correlation id.
type Service struct {
	repo      Repository
	stability *StabilityChecker
	engine    engine.Engine
	poller    *Poller
	quality   engine.Quality
	limits    BatchConfig
	log       *slog.Logger
	metrics   *metrics.Metrics

	newID func() string
}

// NewService wires a Service. metrics may be nil to disable metric recording
// (e.g. in tests).
func NewService(repo Repository, lister storage.Lister, eng engine.Engine, stability StabilityConfig, limits BatchConfig, quality engine.Quality, log *slog.Logger, m *metrics.Metrics) *Service {
	return &Service{
		repo:      repo,
		stability: NewStabilityChecker(lister, stability, log),
		engine:    eng,
		poller:    NewPoller(eng, limits.PollInterval),
		quality:   quality,
		limits:    limits,
		log:       log,
		metrics:   m,
		newID:     uuid.NewString,
	}
}

// StartProcessing runs one processing attempt for the session: authorize,
// wait for the clip listing to settle, route to the single or batched path,
// and persist every transition. It returns once the attempt's final job has
// been accepted by the engine. Any failure is persisted as stage ERROR
// (best effort) before being returned.
func (s *Service) StartProcessing(ctx context.Context, sessionID, identity string) (*Result, error) {
	sess, err := s.repo.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	if identity == "" || !strings.EqualFold(identity, sess.HostIdentity) {
		return nil, ErrUnauthorized
	}
	if sess.StorageBucket == "" || sess.StoragePrefixRoot == "" {
		return nil, ErrNoRecording
	}
	if sess.Stage.Active() {
		return nil, &AttemptInProgressError{Stage: sess.Stage, CorrelationID: sess.CorrelationID}
	}

	correlationID := s.newID()
	log := logger.WithAttempt(s.log, sessionID, correlationID)

	if s.metrics != nil {
		s.metrics.IncAttempts()
		s.metrics.AttemptStarted()
		defer s.metrics.AttemptDone()
	}

	result, err := s.process(ctx, log, sess, correlationID)
	if err != nil {
		if s.metrics != nil {
			s.metrics.IncFailure(errorKind(err))
		}
		s.recordFailure(ctx, log, sessionID, err)
		return nil, err
	}

	log.Info("processing started",
		slog.String("mode", string(result.ProcessingMode)),
		slog.String("job_id", result.JobID),
		slog.Int("clips", result.ClipsCount))
	return result, nil
}

func (s *Service) process(ctx context.Context, log *slog.Logger, sess *RecordingSession, correlationID string) (*Result, error) {
	empty := ""
	if err := s.repo.UpdateRecording(ctx, sess.SessionID, RecordingUpdate{
		Stage:            stagePtr(StageWaitingForClips),
		CorrelationID:    &correlationID,
		CompletedBatches: intPtr(0),
		ErrorMessage:     &empty,
	}); err != nil {
		return nil, err
	}

	prefix := ClipsPrefix(sess.StoragePrefixRoot)
	log.Info("waiting for clip listing to settle",
		slog.String("bucket", sess.StorageBucket),
		slog.String("prefix", prefix))

	settled, err := s.stability.WaitForStability(ctx, sess.StorageBucket, prefix)
	if err != nil {
		return nil, err
	}
	clips := settled.Clips
	if len(clips) == 0 {
		return nil, ErrEmptyInput
	}

	log.Info("clip listing settled",
		slog.Int("clips", len(clips)),
		slog.Int("iterations", settled.Iterations),
		slog.Int64("elapsed_ms", settled.Elapsed.Milliseconds()))
	if s.metrics != nil {
		s.metrics.ObserveStabilityWait(settled.Elapsed)
	}

	if err := s.repo.UpdateRecording(ctx, sess.SessionID, RecordingUpdate{
		ClipsCount: intPtr(len(clips)),
	}); err != nil {
		return nil, err
	}

	if len(clips) <= s.limits.MaxInputsPerJob {
		return s.runSingle(ctx, log, sess, clips, correlationID)
	}
	return s.runBatched(ctx, log, sess, clips, correlationID)
}

// runSingle submits one HLS job over all clips and returns at submission.
func (s *Service) runSingle(ctx context.Context, log *slog.Logger, sess *RecordingSession, clips []Clip, correlationID string) (*Result, error) {
	job, err := engine.BuildHLSJob(
		clipURIs(sess.StorageBucket, clips),
		FinalDestination(sess.StorageBucket, sess.StoragePrefixRoot),
		s.quality,
	)
	if err != nil {
		return nil, err
	}
	tagJob(job, sess.SessionID, correlationID)

	jobID, err := s.engine.SubmitJob(ctx, job)
	if err != nil {
		return nil, &SubmissionError{Role: RoleSingle, Err: err}
	}
	log.Info("transcode job submitted", slog.String("job_id", jobID), slog.Int("inputs", len(clips)))
	if s.metrics != nil {
		s.metrics.IncJobSubmitted(RoleSingle)
	}

	if err := s.repo.AppendJobReference(ctx, sess.SessionID, JobReference{
		Role:          RoleSingle,
		JobID:         jobID,
		Status:        string(engine.StateSubmitted),
		CorrelationID: correlationID,
	}); err != nil {
		return nil, err
	}

	outputKey := FinalOutputKey(sess.StoragePrefixRoot)
	if err := s.repo.UpdateRecording(ctx, sess.SessionID, RecordingUpdate{
		Stage:          stagePtr(StageSubmitted),
		FinalOutputKey: &outputKey,
	}); err != nil {
		return nil, err
	}

	return &Result{
		JobID:          jobID,
		OutputKey:      outputKey,
		ClipsCount:     len(clips),
		ProcessingMode: ModeSingle,
		CorrelationID:  correlationID,
	}, nil
}

// ProcessingStatus returns the persisted view of the session's processing
// state. While the final job is outstanding the engine is queried live and
// the persisted status refreshed, so a terminal outcome is eventually
// reflected even though StartProcessing returned at submission.
func (s *Service) ProcessingStatus(ctx context.Context, sessionID string) (*StatusResult, error) {
	sess, err := s.repo.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	res := &StatusResult{
		SessionID:        sess.SessionID,
		Stage:            sess.Stage,
		ClipsCount:       sess.ClipsCount,
		BatchCount:       sess.BatchCount,
		CompletedBatches: sess.CompletedBatches,
		FinalOutputKey:   sess.FinalOutputKey,
		CorrelationID:    sess.CorrelationID,
		Error:            sess.ErrorMessage,
	}
	if len(sess.JobReferences) == 0 {
		return res, nil
	}

	latest := sess.JobReferences[len(sess.JobReferences)-1]
	res.JobID = latest.JobID
	res.ProgressPercent = latest.ProgressPercent

	if sess.Stage != StageSubmitted {
		return res, nil
	}

	status, err := s.poller.Status(ctx, latest.JobID)
	if err != nil {
		// The persisted view is still useful when the engine is unreachable.
		s.log.Warn("job status query failed",
			slog.String("session_id", sessionID),
			slog.String("job_id", latest.JobID),
			slog.String("error", err.Error()))
		return res, nil
	}

	res.ProgressPercent = status.ProgressPercent
	if err := s.repo.UpdateJobReference(ctx, sessionID, latest.JobID, string(status.State), status.ProgressPercent); err != nil {
		s.log.Warn("persist job status failed", slog.String("error", err.Error()))
	}

	switch status.State {
	case engine.StateComplete:
		res.Stage = StageComplete
		if err := s.repo.UpdateRecording(ctx, sessionID, RecordingUpdate{Stage: stagePtr(StageComplete)}); err != nil {
			s.log.Warn("persist completion failed", slog.String("error", err.Error()))
		}
	case engine.StateError, engine.StateCanceled:
		msg := fmt.Sprintf("final job %s finished %s", latest.JobID, status.State)
		res.Stage = StageError
		res.Error = msg
		if err := s.repo.UpdateRecording(ctx, sessionID, RecordingUpdate{Stage: stagePtr(StageError), ErrorMessage: &msg}); err != nil {
			s.log.Warn("persist failure state failed", slog.String("error", err.Error()))
		}
	}
	return res, nil
}

// recordFailure persists stage ERROR with the cause, best effort: a failed
// write is logged and the original failure still reaches the caller.
func (s *Service) recordFailure(ctx context.Context, log *slog.Logger, sessionID string, cause error) {
	log.Error("processing failed", slog.String("error", cause.Error()))

	msg := cause.Error()
	if err := s.repo.UpdateRecording(context.WithoutCancel(ctx), sessionID, RecordingUpdate{
		Stage:        stagePtr(StageError),
		ErrorMessage: &msg,
	}); err != nil {
		log.Error("persist failure state failed", slog.String("error", err.Error()))
	}
}

func clipURIs(bucket string, clips []Clip) []string {
	uris := make([]string, len(clips))
	for i, clip := range clips {
		uris[i] = ObjectURI(bucket, clip.Key)
	}
	return uris
}

// tagJob attaches the session and attempt ids to the engine job so engine-side
// records correlate with ours.
func tagJob(job *mediaconvert.CreateJobInput, sessionID, correlationID string) {
	job.UserMetadata = map[string]string{
		"sessionId":     sessionID,
		"correlationId": correlationID,
	}
}

func stagePtr(s Stage) *Stage { return &s }

func intPtr(n int) *int { return &n }
