package stats

import (
	"context"
	"time"
)

// DisabledCache is a Cache that stores nothing. Get always misses, so
// every request recomputes. Used when caching is turned off.
type DisabledCache struct{}

var _ Cache = DisabledCache{}

func (DisabledCache) Get(ctx context.Context, userID int64) (*Snapshot, error) {
	return nil, ErrCacheMiss
}

func (DisabledCache) Put(ctx context.Context, userID int64, snap *Snapshot, lastSubmissionAt *time.Time) error {
	return nil
}

func (DisabledCache) MarkDirty(ctx context.Context, userID int64) error { return nil }

func (DisabledCache) MarkDirtyBatch(ctx context.Context, userIDs []int64) error { return nil }

func (DisabledCache) MarkAllDirty(ctx context.Context) (int, error) { return 0, nil }

func (DisabledCache) Invalidate(ctx context.Context, userID int64) error { return nil }

func (DisabledCache) ClearAll(ctx context.Context) error { return nil }

func (DisabledCache) Stats(ctx context.Context) (CacheStats, error) { return CacheStats{}, nil }

func (DisabledCache) PurgeExpired(ctx context.Context, retention time.Duration) (int, error) {
	return 0, nil
}
