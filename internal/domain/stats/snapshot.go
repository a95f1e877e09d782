// Package stats defines the computed statistics snapshot and the cache
// that serves it. A snapshot is always assembled and replaced wholesale;
// nothing ever patches one in place.
package stats

import (
	"time"

	"github.com/tf-oj/student-analytics/internal/domain/submission"
)

// Totals are the running totals over the aggregation window.
type Totals struct {
	TotalLines       int `json:"totalLines"`
	TotalSubmissions int `json:"totalSubmissions"`
	UniqueProblems   int `json:"uniqueProblems"`

	AcceptedCount     int `json:"acCount"`
	WrongAnswerCount  int `json:"waCount"`
	TimeLimitCount    int `json:"tleCount"`
	MemoryLimitCount  int `json:"mleCount"`
	RuntimeErrorCount int `json:"reCount"`
	CompileErrorCount int `json:"ceCount"`

	// FirstAcceptedAt is the earliest accepted submission in the window,
	// nil when the user has none.
	FirstAcceptedAt *time.Time `json:"firstAcTime,omitempty"`

	// LastSubmissionAt is the latest submission in the window, nil when
	// the user has none. It is recorded alongside the cached snapshot.
	LastSubmissionAt *time.Time `json:"lastSubmissionTime,omitempty"`
}

// WeeklyStats is one ISO-week bucket of the dense weekly series.
type WeeklyStats struct {
	Year                  int     `json:"year"`
	Week                  int     `json:"week"`
	TotalLines            int     `json:"totalLines"`
	TotalSubmissions      int     `json:"totalSubmissions"`
	UniqueProblems        int     `json:"uniqueProblems"`
	AvgLinesPerSubmission float64 `json:"averageLinesPerSubmission"`
}

// MonthlyStats is one calendar-month bucket of the dense monthly series.
type MonthlyStats struct {
	Year                  int     `json:"year"`
	Month                 int     `json:"month"`
	TotalLines            int     `json:"totalLines"`
	TotalSubmissions      int     `json:"totalSubmissions"`
	UniqueProblems        int     `json:"uniqueProblems"`
	AvgLinesPerSubmission float64 `json:"averageLinesPerSubmission"`
	AvgLinesPerDay        float64 `json:"averageLinesPerDay"`
}

// OutcomeCount is one slice of the verdict distribution.
type OutcomeCount struct {
	Outcome    submission.Outcome `json:"status"`
	Count      int                `json:"count"`
	Percentage float64            `json:"percentage"`
}

// HourCount is one slot of the 24-entry hour-of-day distribution.
type HourCount struct {
	Hour  int `json:"hour"`
	Count int `json:"count"`
}

// Completion summarizes the user's cumulative problem completion.
type Completion struct {
	Attempted      int     `json:"attemptedProblems"`
	Solved         int     `json:"solvedProblems"`
	CompletionRate float64 `json:"completionRate"`
	Starred        int     `json:"starredProblems"`
}

// DifficultyCount is one entry of the difficulty histogram.
type DifficultyCount struct {
	Difficulty int `json:"difficulty"`
	Attempted  int `json:"count"`
	Solved     int `json:"solved"`
}

// TagCount is one entry of the capped, frequency-sorted tag histogram.
type TagCount struct {
	Tag       string `json:"tag"`
	Attempted int    `json:"count"`
	Solved    int    `json:"solved"`
}

// Snapshot is the full statistics object served to callers. A user with
// no history yields a snapshot with all-zero fields rather than a
// sentinel "no data" value.
type Snapshot struct {
	UserID      int64     `json:"uid"`
	GeneratedAt time.Time `json:"generatedAt"`

	Totals Totals `json:"totals"`

	// Weekly and Monthly are nil when the request excluded them, and an
	// empty-but-dense series otherwise.
	Weekly  []WeeklyStats  `json:"weeklyStats,omitempty"`
	Monthly []MonthlyStats `json:"monthlyStats,omitempty"`

	OutcomeDistribution []OutcomeCount `json:"statusDistribution"`
	HourDistribution    []HourCount    `json:"hourDistribution"`

	Completion             Completion        `json:"completion"`
	DifficultyDistribution []DifficultyCount `json:"difficultyDistribution"`
	TagDistribution        []TagCount        `json:"tagDistribution"`
}
