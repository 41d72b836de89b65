package processing

import (
	"context"
	"time"

	"recording-orchestrator/internal/engine"
)

// Poller is the generic job-status polling primitive: a single query for
// status endpoints, or an explicit query-sleep-repeat loop for callers that
// must block until a job finishes.
type Poller struct {
	engine   engine.Engine
	interval time.Duration

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// NewPoller returns a poller querying eng at the given interval.
func NewPoller(eng engine.Engine, interval time.Duration) *Poller {
	return &Poller{
		engine:   eng,
		interval: interval,
		now:      time.Now,
		sleep:    sleepContext,
	}
}

// Status performs one status query without blocking.
func (p *Poller) Status(ctx context.Context, jobID string) (engine.Status, error) {
	return p.engine.JobStatus(ctx, jobID)
}

// PollUntilTerminal blocks until jobID reaches COMPLETE, ERROR or CANCELED,
// or until maxWait passes. On deadline expiry the last observed status is
// returned together with context.DeadlineExceeded; the engine-side job is
// not canceled, the caller merely stops waiting.
func (p *Poller) PollUntilTerminal(ctx context.Context, jobID string, maxWait time.Duration) (engine.Status, error) {
	start := p.now()
	var last engine.Status

	for {
		status, err := p.engine.JobStatus(ctx, jobID)
		if err != nil {
			return last, err
		}
		last = status

		if status.State.Terminal() {
			return status, nil
		}
		if p.now().Add(p.interval).Sub(start) > maxWait {
			return last, context.DeadlineExceeded
		}
		if err := p.sleep(ctx, p.interval); err != nil {
			return last, err
		}
	}
}
