// Package problem defines problem attempt status and problem metadata:
// the mutable per-user attempt table and the reference data it joins
// against. Both are read-only from the analytics engine's perspective.
package problem

import "github.com/tf-oj/student-analytics/internal/domain/submission"

// AttemptStatus is a user's last-write-wins status row for one problem.
// The judge updates it on every attempt.
type AttemptStatus struct {
	UserID    int64
	Domain    string
	ProblemID int64
	Outcome   submission.Outcome
	Score     int
	Starred   bool
}

// Ref returns the composite key joining this row to problem metadata.
func (s AttemptStatus) Ref() submission.ProblemRef {
	return submission.ProblemRef{Domain: s.Domain, ProblemID: s.ProblemID}
}

// Solved reports whether this attempt counts as solved: an accepted
// verdict or a full score.
func (s AttemptStatus) Solved() bool {
	return s.Outcome == submission.OutcomeAccepted || s.Score == 100
}

// Metadata is the reference data for one problem.
type Metadata struct {
	Domain     string
	ProblemID  int64
	Difficulty int
	Tags       []string
}

// Ref returns the composite lookup key for this problem.
func (m Metadata) Ref() submission.ProblemRef {
	return submission.ProblemRef{Domain: m.Domain, ProblemID: m.ProblemID}
}
