package stats

import (
	"context"
	"errors"
	"time"
)

// ErrCacheMiss is returned by Cache.Get when no valid snapshot exists:
// the record is absent, marked dirty, or older than the TTL.
var ErrCacheMiss = errors.New("stats cache: miss")

// Entry is the persisted cache record for one user. The user id is the
// sole key; there is no per-domain duplication.
type Entry struct {
	UserID   int64    `json:"uid"`
	Snapshot Snapshot `json:"stats"`

	// LastUpdated is set on every Put and on every dirty mark.
	LastUpdated time.Time `json:"lastUpdated"`

	// Dirty forces the next Get to miss regardless of TTL. Producers of
	// new submissions set it; Put clears it.
	Dirty bool `json:"dirty"`

	// LastSubmissionAt is the newest submission visible when the snapshot
	// was computed, nil for users without submissions.
	LastSubmissionAt *time.Time `json:"lastSubmissionTime,omitempty"`
}

// CacheStats are the observability counters for operational dashboards.
type CacheStats struct {
	TotalCached  int `json:"totalCached"`
	DirtyCount   int `json:"dirtyCount"`
	ExpiredCount int `json:"expiredCount"`
}

// Cache stores the last fully computed snapshot per user, gated by a TTL
// and a dirty flag. Writes are idempotent full-record overwrites
// (last-writer-wins); there is no cross-process locking.
type Cache interface {
	// Get returns the cached snapshot, or ErrCacheMiss when the record is
	// absent, dirty, or expired. It never returns a partial snapshot.
	Get(ctx context.Context, userID int64) (*Snapshot, error)

	// Put upserts the full record, clears the dirty flag and stamps
	// LastUpdated with the current time.
	Put(ctx context.Context, userID int64, snap *Snapshot, lastSubmissionAt *time.Time) error

	// MarkDirty flags an existing record so the next Get recomputes. It
	// is a no-op, not an insert, when no record exists.
	MarkDirty(ctx context.Context, userID int64) error

	// MarkDirtyBatch applies MarkDirty semantics to many users at once.
	MarkDirtyBatch(ctx context.Context, userIDs []int64) error

	// MarkAllDirty flags every record and returns how many were affected.
	MarkAllDirty(ctx context.Context) (int, error)

	// Invalidate deletes the record entirely.
	Invalidate(ctx context.Context, userID int64) error

	// ClearAll deletes every record.
	ClearAll(ctx context.Context) error

	// Stats returns the observability counters.
	Stats(ctx context.Context) (CacheStats, error)

	// PurgeExpired deletes records whose LastUpdated is older than the
	// given retention and returns how many were removed.
	PurgeExpired(ctx context.Context, retention time.Duration) (int, error)
}
