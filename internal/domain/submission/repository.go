package submission

import (
	"context"
	"time"
)

// EventSource is the read-only view of the submission log used by the
// analytics engine. Implementations issue range queries only and never
// write. Excluded kinds must be filtered inside the query.
type EventSource interface {
	// EventsInRange returns all non-excluded events for the user with
	// SubmittedAt in [from, to], in no particular order.
	EventsInRange(ctx context.Context, userID int64, from, to time.Time) ([]Event, error)

	// ActiveUserIDs returns the distinct user ids with at least one
	// non-excluded submission since the given time. Used by the periodic
	// bulk cache invalidation sweep.
	ActiveUserIDs(ctx context.Context, since time.Time) ([]int64, error)
}
