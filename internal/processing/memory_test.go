package processing

import (
	"context"
	"errors"
	"testing"
)

func TestInMemoryRepository(t *testing.T) {
	ctx := context.Background()

	t.Run("get unknown session", func(t *testing.T) {
		repo := NewInMemoryRepository()
		if _, err := repo.GetSession(ctx, "ghost"); !errors.Is(err, ErrSessionNotFound) {
			t.Fatalf("err = %v, want ErrSessionNotFound", err)
		}
	})

	t.Run("partial updates leave other fields alone", func(t *testing.T) {
		repo := NewInMemoryRepository()
		seedSession(repo, StageNotStarted)

		if err := repo.UpdateRecording(ctx, testSession, RecordingUpdate{
			Stage:      stagePtr(StageWaitingForClips),
			ClipsCount: intPtr(7),
		}); err != nil {
			t.Fatalf("UpdateRecording: %v", err)
		}

		sess := mustGet(t, repo)
		if sess.Stage != StageWaitingForClips || sess.ClipsCount != 7 {
			t.Errorf("session = %+v", sess)
		}
		if sess.HostIdentity != testIdentity || sess.StorageBucket != testBucket {
			t.Errorf("untouched fields mutated: %+v", sess)
		}
		if sess.UpdatedAt.IsZero() {
			t.Error("updatedAt not set")
		}
	})

	t.Run("job references append in order", func(t *testing.T) {
		repo := NewInMemoryRepository()
		seedSession(repo, StageNotStarted)

		for _, ref := range []JobReference{
			{Role: BatchRole(1), JobID: "a"},
			{Role: BatchRole(2), JobID: "b"},
			{Role: RoleFinalMerge, JobID: "c"},
		} {
			if err := repo.AppendJobReference(ctx, testSession, ref); err != nil {
				t.Fatalf("AppendJobReference: %v", err)
			}
		}

		sess := mustGet(t, repo)
		if len(sess.JobReferences) != 3 || sess.JobReferences[2].Role != RoleFinalMerge {
			t.Fatalf("references = %+v", sess.JobReferences)
		}
	})

	t.Run("update job reference by id", func(t *testing.T) {
		repo := NewInMemoryRepository()
		seedSession(repo, StageNotStarted)
		_ = repo.AppendJobReference(ctx, testSession, JobReference{Role: BatchRole(1), JobID: "a", Status: "SUBMITTED"})

		if err := repo.UpdateJobReference(ctx, testSession, "a", "COMPLETE", 100); err != nil {
			t.Fatalf("UpdateJobReference: %v", err)
		}
		sess := mustGet(t, repo)
		if ref := sess.JobReferences[0]; ref.Status != "COMPLETE" || ref.ProgressPercent != 100 {
			t.Errorf("reference = %+v", ref)
		}
	})

	t.Run("returned sessions are copies", func(t *testing.T) {
		repo := NewInMemoryRepository()
		seedSession(repo, StageNotStarted)
		_ = repo.AppendJobReference(ctx, testSession, JobReference{JobID: "a"})

		sess := mustGet(t, repo)
		sess.Stage = StageError
		sess.JobReferences[0].JobID = "tampered"

		fresh := mustGet(t, repo)
		if fresh.Stage == StageError || fresh.JobReferences[0].JobID == "tampered" {
			t.Error("mutating a returned session leaked into the store")
		}
	})

	t.Run("set completed batches", func(t *testing.T) {
		repo := NewInMemoryRepository()
		seedSession(repo, StageNotStarted)
		if err := repo.SetCompletedBatches(ctx, testSession, 2); err != nil {
			t.Fatalf("SetCompletedBatches: %v", err)
		}
		if sess := mustGet(t, repo); sess.CompletedBatches != 2 {
			t.Errorf("completedBatches = %d, want 2", sess.CompletedBatches)
		}
	})
}
