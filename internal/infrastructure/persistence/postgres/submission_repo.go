package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/tf-oj/student-analytics/internal/domain/submission"
)

// SubmissionRepository implements submission.EventSource over the judge's
// append-only submissions table. All queries are read-only range scans;
// pretest and generated submissions are filtered inside the query so
// they never reach the aggregators.
type SubmissionRepository struct {
	conn *Connection
}

// NewSubmissionRepository creates a new SubmissionRepository.
func NewSubmissionRepository(conn *Connection) *SubmissionRepository {
	return &SubmissionRepository{conn: conn}
}

// EventsInRange returns the user's non-excluded submission events with
// submitted_at in [from, to].
func (r *SubmissionRepository) EventsInRange(ctx context.Context, userID int64, from, to time.Time) ([]submission.Event, error) {
	rows, err := r.conn.Pool().Query(ctx, `
		SELECT id, user_id, domain_id, problem_id, submitted_at,
		       outcome, COALESCE(code, ''), language, time_ms, memory_kb, kind
		FROM submissions
		WHERE user_id = $1
		  AND submitted_at >= $2
		  AND submitted_at <= $3
		  AND kind != ALL($4)
	`, userID, from, to, excludedKinds())
	if err != nil {
		return nil, fmt.Errorf("postgres: query submissions for user %d: %w", userID, err)
	}
	defer rows.Close()

	var events []submission.Event
	for rows.Next() {
		var ev submission.Event
		var outcome, kind int
		if err := rows.Scan(
			&ev.ID,
			&ev.UserID,
			&ev.Problem.Domain,
			&ev.Problem.ProblemID,
			&ev.SubmittedAt,
			&outcome,
			&ev.Code,
			&ev.Language,
			&ev.TimeMS,
			&ev.MemoryKB,
			&kind,
		); err != nil {
			return nil, fmt.Errorf("postgres: scan submission row: %w", err)
		}
		ev.Outcome = submission.Outcome(outcome)
		ev.Kind = submission.Kind(kind)
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: iterate submissions for user %d: %w", userID, err)
	}

	return events, nil
}

// ActiveUserIDs returns distinct user ids with a non-excluded submission
// since the given time.
func (r *SubmissionRepository) ActiveUserIDs(ctx context.Context, since time.Time) ([]int64, error) {
	rows, err := r.conn.Pool().Query(ctx, `
		SELECT DISTINCT user_id
		FROM submissions
		WHERE submitted_at >= $1
		  AND kind != ALL($2)
	`, since, excludedKinds())
	if err != nil {
		return nil, fmt.Errorf("postgres: query active users: %w", err)
	}
	defer rows.Close()

	var userIDs []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("postgres: scan user id: %w", err)
		}
		userIDs = append(userIDs, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: iterate active users: %w", err)
	}

	return userIDs, nil
}

func excludedKinds() []int {
	kinds := make([]int, len(submission.ExcludedKinds))
	for i, k := range submission.ExcludedKinds {
		kinds[i] = int(k)
	}
	return kinds
}
