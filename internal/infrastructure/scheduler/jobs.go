package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/tf-oj/student-analytics/internal/application/analytics"
	"github.com/tf-oj/student-analytics/internal/domain/stats"
	"github.com/tf-oj/student-analytics/internal/domain/submission"
)

// DirtySweepJob marks the cached statistics of recently active users as
// dirty so the next read recomputes them. It is a safety net below the
// event-driven invalidation path.
type DirtySweepJob struct {
	events   submission.EventSource
	cache    stats.Cache
	lookback time.Duration
	logger   *slog.Logger
}

// NewDirtySweepJob creates a sweep covering users with submissions in
// the last lookback window.
func NewDirtySweepJob(events submission.EventSource, cache stats.Cache, lookback time.Duration, logger *slog.Logger) *DirtySweepJob {
	if logger == nil {
		logger = slog.Default()
	}
	return &DirtySweepJob{
		events:   events,
		cache:    cache,
		lookback: lookback,
		logger:   logger.With("job", "dirty_sweep"),
	}
}

func (j *DirtySweepJob) Name() string { return "dirty_sweep" }

func (j *DirtySweepJob) Run(ctx context.Context) error {
	since := time.Now().Add(-j.lookback)

	userIDs, err := j.events.ActiveUserIDs(ctx, since)
	if err != nil {
		return fmt.Errorf("dirty sweep: list active users: %w", err)
	}
	if len(userIDs) == 0 {
		j.logger.Info("no active users in window", "since", since)
		return nil
	}

	if err := j.cache.MarkDirtyBatch(ctx, userIDs); err != nil {
		return fmt.Errorf("dirty sweep: mark dirty: %w", err)
	}

	j.logger.Info("marked active users dirty", "users", len(userIDs), "since", since)
	return nil
}

// SnapshotRefresher recomputes and caches a user's statistics.
type SnapshotRefresher interface {
	StudentStats(ctx context.Context, userID int64, opts analytics.Options) (*stats.Snapshot, error)
}

// WarmJob recomputes snapshots for recently active users so their next
// read is a cache hit. Runs after the dirty sweep window so warmed
// entries are already fresh.
type WarmJob struct {
	events   submission.EventSource
	service  SnapshotRefresher
	opts     analytics.Options
	lookback time.Duration
	logger   *slog.Logger
}

// NewWarmJob creates a warmer covering users with submissions in the
// last lookback window.
func NewWarmJob(events submission.EventSource, service SnapshotRefresher, opts analytics.Options, lookback time.Duration, logger *slog.Logger) *WarmJob {
	if logger == nil {
		logger = slog.Default()
	}
	return &WarmJob{
		events:   events,
		service:  service,
		opts:     opts,
		lookback: lookback,
		logger:   logger.With("job", "cache_warm"),
	}
}

func (j *WarmJob) Name() string { return "cache_warm" }

func (j *WarmJob) Run(ctx context.Context) error {
	since := time.Now().Add(-j.lookback)

	userIDs, err := j.events.ActiveUserIDs(ctx, since)
	if err != nil {
		return fmt.Errorf("cache warm: list active users: %w", err)
	}

	opts := j.opts
	opts.ForceRefresh = true

	var failed int
	for _, id := range userIDs {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if _, err := j.service.StudentStats(ctx, id, opts); err != nil {
			failed++
			j.logger.Warn("warm failed for user", "user_id", id, "error", err)
		}
	}

	j.logger.Info("cache warm finished", "users", len(userIDs), "failed", failed)
	return nil
}

// JanitorJob removes cache entries that have outlived the retention
// window entirely. Expired entries already read as misses; this job
// reclaims their storage.
type JanitorJob struct {
	cache     stats.Cache
	retention time.Duration
	logger    *slog.Logger
}

// NewJanitorJob creates a janitor deleting entries older than retention.
func NewJanitorJob(cache stats.Cache, retention time.Duration, logger *slog.Logger) *JanitorJob {
	if logger == nil {
		logger = slog.Default()
	}
	return &JanitorJob{
		cache:     cache,
		retention: retention,
		logger:    logger.With("job", "cache_janitor"),
	}
}

func (j *JanitorJob) Name() string { return "cache_janitor" }

func (j *JanitorJob) Run(ctx context.Context) error {
	purged, err := j.cache.PurgeExpired(ctx, j.retention)
	if err != nil {
		return fmt.Errorf("janitor: purge expired: %w", err)
	}
	if purged > 0 {
		j.logger.Info("purged expired cache entries", "count", purged)
	}
	return nil
}
