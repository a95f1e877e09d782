// Package submission defines the submission event log: the immutable,
// append-only record stream produced by the judge pipeline. This core only
// ever reads it.
package submission

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Outcome is the judge verdict of a submission. The numeric values mirror
// the judge's wire codes and must not be reordered.
type Outcome int

const (
	OutcomeAccepted            Outcome = 1
	OutcomeWrongAnswer         Outcome = 2
	OutcomeTimeLimitExceeded   Outcome = 3
	OutcomeMemoryLimitExceeded Outcome = 4
	OutcomeOutputLimitExceeded Outcome = 5
	OutcomeRuntimeError        Outcome = 6
	OutcomeCompileError        Outcome = 7
	OutcomeSystemError         Outcome = 8
)

// String returns the short verdict label used across the judge UI.
func (o Outcome) String() string {
	switch o {
	case OutcomeAccepted:
		return "AC"
	case OutcomeWrongAnswer:
		return "WA"
	case OutcomeTimeLimitExceeded:
		return "TLE"
	case OutcomeMemoryLimitExceeded:
		return "MLE"
	case OutcomeOutputLimitExceeded:
		return "OLE"
	case OutcomeRuntimeError:
		return "RE"
	case OutcomeCompileError:
		return "CE"
	case OutcomeSystemError:
		return "SE"
	default:
		return "UNKNOWN"
	}
}

// Kind classifies how a submission was produced. Pretest and generated
// submissions are excluded from every statistic.
type Kind int

const (
	KindNormal Kind = iota
	KindPretest
	KindGenerated
)

// ExcludedKinds lists the kinds filtered out of all aggregates at the
// source query, not after loading.
var ExcludedKinds = []Kind{KindPretest, KindGenerated}

// ProblemRef identifies a problem within its domain (partition).
type ProblemRef struct {
	Domain    string
	ProblemID int64
}

// Event is a single submission record. Events are immutable; the judge
// pipeline appends them and nothing ever mutates or deletes them.
type Event struct {
	ID          uuid.UUID
	UserID      int64
	Problem     ProblemRef
	SubmittedAt time.Time
	Outcome     Outcome
	Code        string
	Language    string
	TimeMS      int64
	MemoryKB    int64
	Kind        Kind
}

// CodeLines counts source lines the way the judge always has: split on
// the line separator and take the array length, with the empty source
// explicitly mapped to 0. A file with a trailing newline therefore counts
// one line more than its visible line count; downstream totals and
// averages assume this rule.
func (e Event) CodeLines() int {
	if e.Code == "" {
		return 0
	}
	return len(strings.Split(e.Code, "\n"))
}
