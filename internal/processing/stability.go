package processing

import (
	"context"
	"log/slog"
	"sort"
	"strings"
	"time"

	"recording-orchestrator/internal/storage"
)

// StabilityStrategy selects which signals must hold before the clip set is
// considered settled.
type StabilityStrategy string

const (
	// StrategyDual requires both a quiet window on the clip count and a
	// minimum age on the newest clip. Default.
	StrategyDual StabilityStrategy = "dual"

	// StrategyCountOnly requires only the quiet window on the clip count.
	StrategyCountOnly StabilityStrategy = "count-only"

	// StrategyAgeOnly requires only the minimum age on the newest clip.
	StrategyAgeOnly StabilityStrategy = "age-only"
)

// StabilityConfig tunes the settle-detection loop.
type StabilityConfig struct {
	Strategy           StabilityStrategy
	MaxWait            time.Duration
	Threshold          time.Duration // minimum age of the newest clip
	PollInterval       time.Duration
	RequiredIterations int
	ClipExtension      string // e.g. ".mp4"; empty accepts every key
}

// StabilityResult carries the settled clip list and timing metrics.
type StabilityResult struct {
	Clips      []Clip
	Iterations int
	Elapsed    time.Duration
}

// StabilityChecker polls the object listing until the set of clips under a
// recording prefix stops growing. Capture pipelines keep flushing clip files
// with variable latency after session stop, and the listing itself is
// eventually consistent, so a single quiet read is not enough to conclude
// that every clip has arrived.
type StabilityChecker struct {
	lister storage.Lister
	cfg    StabilityConfig
	log    *slog.Logger

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// NewStabilityChecker returns a checker over the given lister.
func NewStabilityChecker(lister storage.Lister, cfg StabilityConfig, log *slog.Logger) *StabilityChecker {
	return &StabilityChecker{
		lister: lister,
		cfg:    cfg,
		log:    log,
		now:    time.Now,
		sleep:  sleepContext,
	}
}

// WaitForStability blocks until the clip set under prefix is judged settled
// and returns it sorted by key, or fails with a StabilityTimeoutError once
// MaxWait elapses. Iterations that list zero clips never count toward
// stability; they simply retry. Transient listing errors are logged and
// retried without resetting the stable-iteration counter, so a blip does not
// restart an almost-finished wait.
func (c *StabilityChecker) WaitForStability(ctx context.Context, bucket, prefix string) (*StabilityResult, error) {
	start := c.now()
	deadline := start.Add(c.cfg.MaxWait)

	var (
		clips            []Clip
		previousCount    = -1
		stableIterations int
		iterations       int
	)

	for {
		if !c.now().Before(deadline) {
			return nil, &StabilityTimeoutError{
				ClipCount:  len(clips),
				Iterations: iterations,
				Elapsed:    c.now().Sub(start),
			}
		}

		iterations++
		listed, err := c.lister.List(ctx, bucket, prefix)
		switch {
		case err != nil:
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			c.log.Warn("clip listing failed, retrying",
				slog.String("prefix", prefix),
				slog.String("error", err.Error()))
		default:
			clips = filterClips(listed, c.cfg.ClipExtension)
			if len(clips) == 0 {
				c.log.Debug("no clips listed yet", slog.String("prefix", prefix))
				break
			}

			if len(clips) == previousCount {
				stableIterations++
			} else {
				stableIterations = 0
			}
			previousCount = len(clips)

			latestAge := c.now().Sub(newestClip(clips))
			if c.stable(stableIterations, latestAge) {
				return &StabilityResult{
					Clips:      clips,
					Iterations: iterations,
					Elapsed:    c.now().Sub(start),
				}, nil
			}
			c.log.Debug("clip listing not settled",
				slog.Int("clips", len(clips)),
				slog.Int("stable_iterations", stableIterations),
				slog.Int64("latest_age_ms", latestAge.Milliseconds()))
		}

		if err := c.sleep(ctx, c.cfg.PollInterval); err != nil {
			return nil, err
		}
	}
}

func (c *StabilityChecker) stable(stableIterations int, latestAge time.Duration) bool {
	countStable := stableIterations >= c.cfg.RequiredIterations
	ageStable := latestAge >= c.cfg.Threshold
	switch c.cfg.Strategy {
	case StrategyCountOnly:
		return countStable
	case StrategyAgeOnly:
		return ageStable
	default:
		return countStable && ageStable
	}
}

// filterClips keeps objects whose key carries the clip extension and sorts
// them by key.
func filterClips(objects []storage.Object, extension string) []Clip {
	clips := make([]Clip, 0, len(objects))
	for _, obj := range objects {
		if extension != "" && !strings.HasSuffix(obj.Key, extension) {
			continue
		}
		clips = append(clips, Clip{
			Key:          obj.Key,
			LastModified: obj.LastModified,
			SizeBytes:    obj.SizeBytes,
		})
	}
	sort.Slice(clips, func(i, j int) bool { return clips[i].Key < clips[j].Key })
	return clips
}

func newestClip(clips []Clip) time.Time {
	newest := clips[0].LastModified
	for _, clip := range clips[1:] {
		if clip.LastModified.After(newest) {
			newest = clip.LastModified
		}
	}
	return newest
}

// sleepContext waits for d or until ctx is done.
func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
