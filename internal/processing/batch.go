package processing

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"recording-orchestrator/internal/engine"
)

// SplitBatches partitions clips into contiguous batches of at most max
// clips. Batch order preserves clip order and the last batch may be smaller;
// concatenating the batches reproduces the input exactly.
func SplitBatches(clips []Clip, max int) [][]Clip {
	if max <= 0 || len(clips) == 0 {
		return nil
	}

	batches := make([][]Clip, 0, (len(clips)+max-1)/max)
	for start := 0; start < len(clips); start += max {
		end := min(start+max, len(clips))
		batches = append(batches, clips[start:end])
	}
	return batches
}

// runBatched drives the multi-stage pipeline: one intermediate job per
// batch, a concurrent wait for all of them, then a final merge job over the
// batch outputs. It returns once the merge job is submitted; merge
// completion is observed later through the status path.
func (s *Service) runBatched(ctx context.Context, log *slog.Logger, sess *RecordingSession, clips []Clip, correlationID string) (*Result, error) {
	batches := SplitBatches(clips, s.limits.MaxInputsPerJob)
	log.Info("clip count exceeds per-job input limit, batching",
		slog.Int("clips", len(clips)),
		slog.Int("batches", len(batches)),
		slog.Int("max_inputs_per_job", s.limits.MaxInputsPerJob))

	if err := s.repo.UpdateRecording(ctx, sess.SessionID, RecordingUpdate{
		Stage:            stagePtr(StageBatchProcessing),
		BatchCount:       intPtr(len(batches)),
		CompletedBatches: intPtr(0),
	}); err != nil {
		return nil, err
	}

	jobIDs, err := s.submitBatches(ctx, log, sess, batches, correlationID)
	if err != nil {
		return nil, err
	}

	if err := s.awaitBatches(ctx, log, sess.SessionID, jobIDs); err != nil {
		return nil, err
	}

	if err := s.repo.UpdateRecording(ctx, sess.SessionID, RecordingUpdate{
		Stage: stagePtr(StageFinalMerge),
	}); err != nil {
		return nil, err
	}

	// Merge inputs follow batch number, not completion order, so the final
	// asset keeps the chronological clip sequence.
	partInputs := make([]string, len(batches))
	for i := range batches {
		partInputs[i] = ObjectURI(sess.StorageBucket, PartKey(sess.StoragePrefixRoot, i+1))
	}

	job, err := engine.BuildHLSJob(partInputs, FinalDestination(sess.StorageBucket, sess.StoragePrefixRoot), s.quality)
	if err != nil {
		return nil, err
	}
	tagJob(job, sess.SessionID, correlationID)

	mergeID, err := s.engine.SubmitJob(ctx, job)
	if err != nil {
		return nil, &SubmissionError{Role: RoleFinalMerge, Err: err}
	}
	log.Info("final merge job submitted", slog.String("job_id", mergeID), slog.Int("parts", len(batches)))
	if s.metrics != nil {
		s.metrics.IncJobSubmitted(RoleFinalMerge)
	}

	if err := s.repo.AppendJobReference(ctx, sess.SessionID, JobReference{
		Role:          RoleFinalMerge,
		JobID:         mergeID,
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
		JobID:          mergeID,
		OutputKey:      outputKey,
		ClipsCount:     len(clips),
		BatchCount:     len(batches),
		ProcessingMode: ModeBatched,
		CorrelationID:  correlationID,
	}, nil
}

// submitBatches fires every batch submission in parallel. Any single failure
// aborts the whole attempt; jobs the engine already accepted are left to run
// but never recorded as part of this attempt's pipeline.
func (s *Service) submitBatches(ctx context.Context, log *slog.Logger, sess *RecordingSession, batches [][]Clip, correlationID string) ([]string, error) {
	jobIDs := make([]string, len(batches))
	destination := PartsDestination(sess.StorageBucket, sess.StoragePrefixRoot)

	g, gctx := errgroup.WithContext(ctx)
	for i, batch := range batches {
		i, batch := i, batch
		n := i + 1
		g.Go(func() error {
			job, err := engine.BuildBatchJob(clipURIs(sess.StorageBucket, batch), n, destination, s.quality)
			if err != nil {
				return err
			}
			tagJob(job, sess.SessionID, correlationID)

			jobID, err := s.engine.SubmitJob(gctx, job)
			if err != nil {
				return &SubmissionError{Role: BatchRole(n), Err: err}
			}
			jobIDs[i] = jobID
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	for i, jobID := range jobIDs {
		if err := s.repo.AppendJobReference(ctx, sess.SessionID, JobReference{
			Role:          BatchRole(i + 1),
			JobID:         jobID,
			Status:        string(engine.StateSubmitted),
			CorrelationID: correlationID,
		}); err != nil {
			return nil, err
		}
	}

	log.Info("batch jobs submitted", slog.Int("count", len(jobIDs)))
	if s.metrics != nil {
		for range jobIDs {
			s.metrics.IncJobSubmitted("batch")
		}
	}
	return jobIDs, nil
}

// awaitBatches polls every batch job concurrently until all complete. The
// first terminal failure or poll error cancels the remaining waits; the
// shared deadline bounds the whole stage. Completion progress is persisted
// as each batch finishes.
func (s *Service) awaitBatches(ctx context.Context, log *slog.Logger, sessionID string, jobIDs []string) error {
	start := time.Now()
	var completed atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	for i, jobID := range jobIDs {
		jobID := jobID
		n := i + 1
		g.Go(func() error {
			status, err := s.poller.PollUntilTerminal(gctx, jobID, s.limits.MaxWait)
			if err != nil {
				if errors.Is(err, context.DeadlineExceeded) {
					return &BatchTimeoutError{
						CompletedBatches: int(completed.Load()),
						TotalBatches:     len(jobIDs),
						Elapsed:          time.Since(start),
					}
				}
				return err
			}
			if status.State != engine.StateComplete {
				return &BatchFailureError{BatchNumber: n, JobID: jobID, Status: string(status.State)}
			}

			done := int(completed.Add(1))
			// Progress writes use the parent context so a sibling failure
			// arriving between completion and persistence does not drop the
			// already-earned progress.
			if err := s.repo.UpdateJobReference(ctx, sessionID, jobID, string(status.State), 100); err != nil {
				log.Warn("record batch job completion failed", slog.String("job_id", jobID), slog.String("error", err.Error()))
			}
			if err := s.repo.SetCompletedBatches(ctx, sessionID, done); err != nil {
				log.Warn("persist batch progress failed", slog.String("error", err.Error()))
			}
			log.Info("batch complete",
				slog.Int("batch", n),
				slog.String("job_id", jobID),
				slog.Int("completed", done),
				slog.Int("total", len(jobIDs)))
			if s.metrics != nil {
				s.metrics.IncBatchCompleted()
			}
			return nil
		})
	}
	return g.Wait()
}
