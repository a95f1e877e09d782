package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tf-oj/student-analytics/internal/domain/stats"
)

func newTestCache(t *testing.T, ttl time.Duration) (*StatsCache, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return NewStatsCache(client, ttl), mr
}

func testSnapshot(userID int64, at time.Time) *stats.Snapshot {
	return &stats.Snapshot{
		UserID:      userID,
		GeneratedAt: at,
		Totals: stats.Totals{
			TotalLines:       120,
			TotalSubmissions: 10,
			UniqueProblems:   4,
			AcceptedCount:    3,
		},
		Completion: stats.Completion{Attempted: 4, Solved: 3, CompletionRate: 75},
	}
}

func TestStatsCache_PutGetRoundTrip(t *testing.T) {
	cache, _ := newTestCache(t, 10*time.Minute)
	ctx := context.Background()
	now := time.Date(2024, 3, 20, 15, 0, 0, 0, time.UTC)
	cache.Now = func() time.Time { return now }

	_, err := cache.Get(ctx, 7)
	require.ErrorIs(t, err, stats.ErrCacheMiss)

	last := now.Add(-time.Hour)
	require.NoError(t, cache.Put(ctx, 7, testSnapshot(7, now), &last))

	snap, err := cache.Get(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, int64(7), snap.UserID)
	assert.Equal(t, 10, snap.Totals.TotalSubmissions)
	assert.Equal(t, 75.0, snap.Completion.CompletionRate)
}

func TestStatsCache_TTLExpiry(t *testing.T) {
	cache, _ := newTestCache(t, 10*time.Minute)
	ctx := context.Background()
	now := time.Date(2024, 3, 20, 15, 0, 0, 0, time.UTC)
	cache.Now = func() time.Time { return now }

	require.NoError(t, cache.Put(ctx, 7, testSnapshot(7, now), nil))

	// Exactly at the TTL the entry is still fresh.
	cache.Now = func() time.Time { return now.Add(10 * time.Minute) }
	_, err := cache.Get(ctx, 7)
	assert.NoError(t, err)

	// One instant past it the entry reads as a miss.
	cache.Now = func() time.Time { return now.Add(10*time.Minute + time.Millisecond) }
	_, err = cache.Get(ctx, 7)
	assert.ErrorIs(t, err, stats.ErrCacheMiss)
}

func TestStatsCache_MarkDirty(t *testing.T) {
	cache, _ := newTestCache(t, 10*time.Minute)
	ctx := context.Background()

	// Marking a user with no cached record inserts nothing.
	require.NoError(t, cache.MarkDirty(ctx, 7))
	cs, err := cache.Stats(ctx)
	require.NoError(t, err)
	assert.Zero(t, cs.TotalCached)

	now := time.Now()
	require.NoError(t, cache.Put(ctx, 7, testSnapshot(7, now), nil))
	require.NoError(t, cache.MarkDirty(ctx, 7))

	_, err = cache.Get(ctx, 7)
	assert.ErrorIs(t, err, stats.ErrCacheMiss, "dirty entries read as misses")

	cs, err = cache.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, cs.TotalCached)
	assert.Equal(t, 1, cs.DirtyCount)

	// A fresh Put clears the flag.
	require.NoError(t, cache.Put(ctx, 7, testSnapshot(7, now), nil))
	_, err = cache.Get(ctx, 7)
	assert.NoError(t, err)
}

func TestStatsCache_MarkDirtyBatch(t *testing.T) {
	cache, _ := newTestCache(t, 10*time.Minute)
	ctx := context.Background()
	now := time.Now()

	require.NoError(t, cache.Put(ctx, 1, testSnapshot(1, now), nil))
	require.NoError(t, cache.Put(ctx, 2, testSnapshot(2, now), nil))

	// User 3 has no record and is silently skipped.
	require.NoError(t, cache.MarkDirtyBatch(ctx, []int64{1, 2, 3}))

	cs, err := cache.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, cs.TotalCached)
	assert.Equal(t, 2, cs.DirtyCount)

	require.NoError(t, cache.MarkDirtyBatch(ctx, nil))
}

func TestStatsCache_MarkAllDirty(t *testing.T) {
	cache, _ := newTestCache(t, 10*time.Minute)
	ctx := context.Background()
	now := time.Now()

	n, err := cache.MarkAllDirty(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	for id := int64(1); id <= 5; id++ {
		require.NoError(t, cache.Put(ctx, id, testSnapshot(id, now), nil))
	}

	n, err = cache.MarkAllDirty(ctx)
	require.NoError(t, err)
	assert.Equal(t, 5, n)

	cs, err := cache.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 5, cs.DirtyCount)
}

func TestStatsCache_InvalidateAndClearAll(t *testing.T) {
	cache, _ := newTestCache(t, 10*time.Minute)
	ctx := context.Background()
	now := time.Now()

	require.NoError(t, cache.Put(ctx, 1, testSnapshot(1, now), nil))
	require.NoError(t, cache.Put(ctx, 2, testSnapshot(2, now), nil))

	require.NoError(t, cache.Invalidate(ctx, 1))
	_, err := cache.Get(ctx, 1)
	assert.ErrorIs(t, err, stats.ErrCacheMiss)
	_, err = cache.Get(ctx, 2)
	assert.NoError(t, err)

	require.NoError(t, cache.ClearAll(ctx))
	cs, err := cache.Stats(ctx)
	require.NoError(t, err)
	assert.Zero(t, cs.TotalCached)

	// Idempotent on an empty cache.
	require.NoError(t, cache.Invalidate(ctx, 1))
	require.NoError(t, cache.ClearAll(ctx))
}

func TestStatsCache_StatsCountsExpired(t *testing.T) {
	cache, _ := newTestCache(t, 10*time.Minute)
	ctx := context.Background()
	now := time.Date(2024, 3, 20, 15, 0, 0, 0, time.UTC)

	cache.Now = func() time.Time { return now.Add(-time.Hour) }
	require.NoError(t, cache.Put(ctx, 1, testSnapshot(1, now), nil))

	cache.Now = func() time.Time { return now }
	require.NoError(t, cache.Put(ctx, 2, testSnapshot(2, now), nil))

	cs, err := cache.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, cs.TotalCached)
	assert.Equal(t, 1, cs.ExpiredCount)
	assert.Zero(t, cs.DirtyCount)
}

func TestStatsCache_PurgeExpired(t *testing.T) {
	cache, _ := newTestCache(t, 10*time.Minute)
	ctx := context.Background()
	now := time.Date(2024, 3, 20, 15, 0, 0, 0, time.UTC)

	cache.Now = func() time.Time { return now.Add(-48 * time.Hour) }
	require.NoError(t, cache.Put(ctx, 1, testSnapshot(1, now), nil))

	cache.Now = func() time.Time { return now }
	require.NoError(t, cache.Put(ctx, 2, testSnapshot(2, now), nil))

	purged, err := cache.PurgeExpired(ctx, 24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 1, purged)

	cs, err := cache.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, cs.TotalCached)

	purged, err = cache.PurgeExpired(ctx, 24*time.Hour)
	require.NoError(t, err)
	assert.Zero(t, purged)
}

func TestStatsCache_IgnoresForeignKeys(t *testing.T) {
	cache, mr := newTestCache(t, 10*time.Minute)
	ctx := context.Background()

	require.NoError(t, mr.Set("session:12345", "unrelated"))
	require.NoError(t, cache.Put(ctx, 7, testSnapshot(7, time.Now()), nil))

	cs, err := cache.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, cs.TotalCached, "only namespaced keys are scanned")

	require.NoError(t, cache.ClearAll(ctx))
	assert.True(t, mr.Exists("session:12345"))
}
