package analytics

import (
	"context"
	"sync"
	"time"

	"github.com/tf-oj/student-analytics/internal/domain/problem"
	"github.com/tf-oj/student-analytics/internal/domain/stats"
	"github.com/tf-oj/student-analytics/internal/domain/submission"
)

type fakeEventSource struct {
	events []submission.Event
	err    error
	calls  int
}

func (f *fakeEventSource) EventsInRange(ctx context.Context, userID int64, from, to time.Time) ([]submission.Event, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	var out []submission.Event
	for _, ev := range f.events {
		if ev.UserID != userID {
			continue
		}
		if ev.SubmittedAt.Before(from) || ev.SubmittedAt.After(to) {
			continue
		}
		out = append(out, ev)
	}
	return out, nil
}

func (f *fakeEventSource) ActiveUserIDs(ctx context.Context, since time.Time) ([]int64, error) {
	if f.err != nil {
		return nil, f.err
	}
	seen := make(map[int64]struct{})
	var ids []int64
	for _, ev := range f.events {
		if ev.SubmittedAt.Before(since) {
			continue
		}
		if _, dup := seen[ev.UserID]; !dup {
			seen[ev.UserID] = struct{}{}
			ids = append(ids, ev.UserID)
		}
	}
	return ids, nil
}

type fakeProblemSource struct {
	statuses map[int64][]problem.AttemptStatus
	metadata map[string][]problem.Metadata
	err      error
}

func (f *fakeProblemSource) StatusesByUser(ctx context.Context, userID int64) ([]problem.AttemptStatus, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.statuses[userID], nil
}

func (f *fakeProblemSource) MetadataBatch(ctx context.Context, domain string, problemIDs []int64) ([]problem.Metadata, error) {
	if f.err != nil {
		return nil, f.err
	}
	wanted := make(map[int64]struct{}, len(problemIDs))
	for _, id := range problemIDs {
		wanted[id] = struct{}{}
	}
	var out []problem.Metadata
	for _, meta := range f.metadata[domain] {
		if _, ok := wanted[meta.ProblemID]; ok {
			out = append(out, meta)
		}
	}
	return out, nil
}

// fakeCache is an in-memory stats.Cache recording call counts. TTL is
// not modeled; expiry behavior is covered by the Redis implementation's
// own tests.
type fakeCache struct {
	mu      sync.Mutex
	entries map[int64]*stats.Snapshot
	dirty   map[int64]bool

	gets, puts, markDirties int
	getErr, putErr          error
}

func newFakeCache() *fakeCache {
	return &fakeCache{
		entries: make(map[int64]*stats.Snapshot),
		dirty:   make(map[int64]bool),
	}
}

func (c *fakeCache) Get(ctx context.Context, userID int64) (*stats.Snapshot, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gets++
	if c.getErr != nil {
		return nil, c.getErr
	}
	snap, ok := c.entries[userID]
	if !ok || c.dirty[userID] {
		return nil, stats.ErrCacheMiss
	}
	return snap, nil
}

func (c *fakeCache) Put(ctx context.Context, userID int64, snap *stats.Snapshot, lastSubmissionAt *time.Time) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.puts++
	if c.putErr != nil {
		return c.putErr
	}
	c.entries[userID] = snap
	c.dirty[userID] = false
	return nil
}

func (c *fakeCache) MarkDirty(ctx context.Context, userID int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.markDirties++
	if _, ok := c.entries[userID]; ok {
		c.dirty[userID] = true
	}
	return nil
}

func (c *fakeCache) MarkDirtyBatch(ctx context.Context, userIDs []int64) error {
	for _, id := range userIDs {
		if err := c.MarkDirty(ctx, id); err != nil {
			return err
		}
	}
	return nil
}

func (c *fakeCache) MarkAllDirty(ctx context.Context) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for id := range c.entries {
		c.dirty[id] = true
	}
	return len(c.entries), nil
}

func (c *fakeCache) Invalidate(ctx context.Context, userID int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, userID)
	delete(c.dirty, userID)
	return nil
}

func (c *fakeCache) ClearAll(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[int64]*stats.Snapshot)
	c.dirty = make(map[int64]bool)
	return nil
}

func (c *fakeCache) Stats(ctx context.Context) (stats.CacheStats, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	cs := stats.CacheStats{TotalCached: len(c.entries)}
	for id := range c.entries {
		if c.dirty[id] {
			cs.DirtyCount++
		}
	}
	return cs, nil
}

func (c *fakeCache) PurgeExpired(ctx context.Context, retention time.Duration) (int, error) {
	return 0, nil
}
