package postgres

import (
	"context"
	"fmt"

	"github.com/tf-oj/student-analytics/internal/domain/problem"
	"github.com/tf-oj/student-analytics/internal/domain/submission"
)

// ProblemRepository implements both problem.StatusSource and
// problem.MetadataSource over the judge's status and problem tables.
type ProblemRepository struct {
	conn *Connection
}

// NewProblemRepository creates a new ProblemRepository.
func NewProblemRepository(conn *Connection) *ProblemRepository {
	return &ProblemRepository{conn: conn}
}

// StatusesByUser returns every attempt-status row for the user across
// all domains, with no time filter.
func (r *ProblemRepository) StatusesByUser(ctx context.Context, userID int64) ([]problem.AttemptStatus, error) {
	rows, err := r.conn.Pool().Query(ctx, `
		SELECT user_id, domain_id, problem_id, outcome, score, starred
		FROM problem_statuses
		WHERE user_id = $1
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("postgres: query problem statuses for user %d: %w", userID, err)
	}
	defer rows.Close()

	var statuses []problem.AttemptStatus
	for rows.Next() {
		var st problem.AttemptStatus
		var outcome int
		if err := rows.Scan(&st.UserID, &st.Domain, &st.ProblemID, &outcome, &st.Score, &st.Starred); err != nil {
			return nil, fmt.Errorf("postgres: scan problem status row: %w", err)
		}
		st.Outcome = submission.Outcome(outcome)
		statuses = append(statuses, st)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: iterate problem statuses for user %d: %w", userID, err)
	}

	return statuses, nil
}

// MetadataBatch returns metadata for the given problem ids within one
// domain. Problems without a row are absent from the result.
func (r *ProblemRepository) MetadataBatch(ctx context.Context, domain string, problemIDs []int64) ([]problem.Metadata, error) {
	if len(problemIDs) == 0 {
		return nil, nil
	}

	rows, err := r.conn.Pool().Query(ctx, `
		SELECT domain_id, problem_id, COALESCE(difficulty, 0), COALESCE(tags, '{}')
		FROM problems
		WHERE domain_id = $1
		  AND problem_id = ANY($2)
	`, domain, problemIDs)
	if err != nil {
		return nil, fmt.Errorf("postgres: query problem metadata for domain %q: %w", domain, err)
	}
	defer rows.Close()

	var metas []problem.Metadata
	for rows.Next() {
		var m problem.Metadata
		if err := rows.Scan(&m.Domain, &m.ProblemID, &m.Difficulty, &m.Tags); err != nil {
			return nil, fmt.Errorf("postgres: scan problem metadata row: %w", err)
		}
		metas = append(metas, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: iterate problem metadata for domain %q: %w", domain, err)
	}

	return metas, nil
}
