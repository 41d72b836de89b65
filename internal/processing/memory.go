package processing

import (
	"context"
	"sync"
	"time"
)

// InMemoryRepository is a concurrency-safe in-memory Repository, used in
// tests and for local development without a real document store.
type InMemoryRepository struct {
	mu       sync.RWMutex
	sessions map[string]*RecordingSession
}

// NewInMemoryRepository returns an empty in-memory repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{sessions: make(map[string]*RecordingSession)}
}

// PutSession stores a session document, replacing any existing one. Used to
// seed state that the live-session subsystem would normally create.
func (r *InMemoryRepository) PutSession(sess *RecordingSession) {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *sess
	r.sessions[sess.SessionID] = &copied
}

// GetSession implements Repository.
func (r *InMemoryRepository) GetSession(ctx context.Context, sessionID string) (*RecordingSession, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	sess, ok := r.sessions[sessionID]
	if !ok {
		return nil, ErrSessionNotFound
	}
	copied := *sess
	copied.JobReferences = append([]JobReference(nil), sess.JobReferences...)
	return &copied, nil
}

// UpdateRecording implements Repository.
func (r *InMemoryRepository) UpdateRecording(ctx context.Context, sessionID string, update RecordingUpdate) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	sess, ok := r.sessions[sessionID]
	if !ok {
		return ErrSessionNotFound
	}

	if update.Stage != nil {
		sess.Stage = *update.Stage
	}
	if update.ClipsCount != nil {
		sess.ClipsCount = *update.ClipsCount
	}
	if update.BatchCount != nil {
		sess.BatchCount = *update.BatchCount
	}
	if update.CompletedBatches != nil {
		sess.CompletedBatches = *update.CompletedBatches
	}
	if update.FinalOutputKey != nil {
		sess.FinalOutputKey = *update.FinalOutputKey
	}
	if update.CorrelationID != nil {
		sess.CorrelationID = *update.CorrelationID
	}
	if update.ErrorMessage != nil {
		sess.ErrorMessage = *update.ErrorMessage
	}
	sess.UpdatedAt = time.Now().UTC()
	return nil
}

// AppendJobReference implements Repository.
func (r *InMemoryRepository) AppendJobReference(ctx context.Context, sessionID string, ref JobReference) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	sess, ok := r.sessions[sessionID]
	if !ok {
		return ErrSessionNotFound
	}
	sess.JobReferences = append(sess.JobReferences, ref)
	sess.UpdatedAt = time.Now().UTC()
	return nil
}

// UpdateJobReference implements Repository.
func (r *InMemoryRepository) UpdateJobReference(ctx context.Context, sessionID, jobID, status string, progressPercent int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	sess, ok := r.sessions[sessionID]
	if !ok {
		return ErrSessionNotFound
	}
	for i := range sess.JobReferences {
		if sess.JobReferences[i].JobID == jobID {
			sess.JobReferences[i].Status = status
			sess.JobReferences[i].ProgressPercent = progressPercent
			sess.UpdatedAt = time.Now().UTC()
			return nil
		}
	}
	return nil
}

// SetCompletedBatches implements Repository.
func (r *InMemoryRepository) SetCompletedBatches(ctx context.Context, sessionID string, n int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	sess, ok := r.sessions[sessionID]
	if !ok {
		return ErrSessionNotFound
	}
	sess.CompletedBatches = n
	sess.UpdatedAt = time.Now().UTC()
	return nil
}
