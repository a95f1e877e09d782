// Package analytics implements the per-user learning-analytics engine:
// single-pass aggregation over the submission log, cumulative problem
// aggregation, gap-filled time series and the cache-fronted orchestrator
// that assembles statistics snapshots.
package analytics

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/tf-oj/student-analytics/internal/domain/stats"
	"github.com/tf-oj/student-analytics/internal/domain/submission"
	"github.com/tf-oj/student-analytics/pkg/timeutil"
)

// WeeklyBucket is a sparse ISO-week aggregate before gap filling.
type WeeklyBucket struct {
	Year             int
	Week             int
	TotalLines       int
	TotalSubmissions int
	UniqueProblems   int
}

// MonthlyBucket is a sparse calendar-month aggregate before gap filling.
type MonthlyBucket struct {
	Year             int
	Month            int
	TotalLines       int
	TotalSubmissions int
	UniqueProblems   int
}

// RecordAggregation is everything derived from one traversal of the
// user's submission events within the lookback window.
type RecordAggregation struct {
	Weekly        []WeeklyBucket
	Monthly       []MonthlyBucket
	Totals        stats.Totals
	OutcomeCounts map[submission.Outcome]int
	HourCounts    map[int]int
}

// RecordAggregator scans a user's submission events once, bounded by the
// union of the weekly and monthly lookback windows, and produces all
// record-derived groupings in a single pass. If the event source is
// unreachable the call fails atomically with no partial result.
type RecordAggregator struct {
	events submission.EventSource

	// Now is the clock used for window computation. Overridable in tests.
	Now func() time.Time
}

// NewRecordAggregator creates a RecordAggregator reading from the given
// event source.
func NewRecordAggregator(events submission.EventSource) *RecordAggregator {
	return &RecordAggregator{events: events, Now: timeutil.Now}
}

type periodAccumulator struct {
	lines       int
	submissions int
	problems    map[submission.ProblemRef]struct{}
}

func (p *periodAccumulator) add(ev submission.Event) {
	p.lines += ev.CodeLines()
	p.submissions++
	p.problems[ev.Problem] = struct{}{}
}

// Aggregate queries the event log once and computes the weekly buckets,
// monthly buckets, totals, outcome histogram and hour-of-day histogram.
func (a *RecordAggregator) Aggregate(ctx context.Context, userID int64, weeks, months int) (*RecordAggregation, error) {
	now := a.Now()
	from := timeutil.EarlierOf(
		timeutil.WeeksWindowStart(now, weeks),
		timeutil.MonthsWindowStart(now, months),
	)

	events, err := a.events.EventsInRange(ctx, userID, from, now)
	if err != nil {
		return nil, fmt.Errorf("analytics: aggregate records for user %d: %w", userID, err)
	}

	weekStart := timeutil.WeeksWindowStart(now, weeks)
	monthStart := timeutil.MonthsWindowStart(now, months)

	weekly := make(map[[2]int]*periodAccumulator)
	monthly := make(map[[2]int]*periodAccumulator)
	allProblems := make(map[submission.ProblemRef]struct{})
	outcomes := make(map[submission.Outcome]int)
	hours := make(map[int]int)

	agg := &RecordAggregation{OutcomeCounts: outcomes, HourCounts: hours}
	totals := &agg.Totals

	for _, ev := range events {
		totals.TotalLines += ev.CodeLines()
		totals.TotalSubmissions++
		allProblems[ev.Problem] = struct{}{}
		outcomes[ev.Outcome]++
		hours[timeutil.HourOfDay(ev.SubmittedAt)]++

		switch ev.Outcome {
		case submission.OutcomeAccepted:
			totals.AcceptedCount++
			if totals.FirstAcceptedAt == nil || ev.SubmittedAt.Before(*totals.FirstAcceptedAt) {
				t := ev.SubmittedAt
				totals.FirstAcceptedAt = &t
			}
		case submission.OutcomeWrongAnswer:
			totals.WrongAnswerCount++
		case submission.OutcomeTimeLimitExceeded:
			totals.TimeLimitCount++
		case submission.OutcomeMemoryLimitExceeded:
			totals.MemoryLimitCount++
		case submission.OutcomeRuntimeError:
			totals.RuntimeErrorCount++
		case submission.OutcomeCompileError:
			totals.CompileErrorCount++
		}

		if totals.LastSubmissionAt == nil || ev.SubmittedAt.After(*totals.LastSubmissionAt) {
			t := ev.SubmittedAt
			totals.LastSubmissionAt = &t
		}

		if !ev.SubmittedAt.Before(weekStart) {
			y, w := timeutil.ISOWeek(ev.SubmittedAt)
			key := [2]int{y, w}
			acc := weekly[key]
			if acc == nil {
				acc = &periodAccumulator{problems: make(map[submission.ProblemRef]struct{})}
				weekly[key] = acc
			}
			acc.add(ev)
		}

		if !ev.SubmittedAt.Before(monthStart) {
			y, m := timeutil.YearMonth(ev.SubmittedAt)
			key := [2]int{y, m}
			acc := monthly[key]
			if acc == nil {
				acc = &periodAccumulator{problems: make(map[submission.ProblemRef]struct{})}
				monthly[key] = acc
			}
			acc.add(ev)
		}
	}

	totals.UniqueProblems = len(allProblems)

	for key, acc := range weekly {
		agg.Weekly = append(agg.Weekly, WeeklyBucket{
			Year:             key[0],
			Week:             key[1],
			TotalLines:       acc.lines,
			TotalSubmissions: acc.submissions,
			UniqueProblems:   len(acc.problems),
		})
	}
	sort.Slice(agg.Weekly, func(i, j int) bool {
		if agg.Weekly[i].Year != agg.Weekly[j].Year {
			return agg.Weekly[i].Year < agg.Weekly[j].Year
		}
		return agg.Weekly[i].Week < agg.Weekly[j].Week
	})

	for key, acc := range monthly {
		agg.Monthly = append(agg.Monthly, MonthlyBucket{
			Year:             key[0],
			Month:            key[1],
			TotalLines:       acc.lines,
			TotalSubmissions: acc.submissions,
			UniqueProblems:   len(acc.problems),
		})
	}
	sort.Slice(agg.Monthly, func(i, j int) bool {
		if agg.Monthly[i].Year != agg.Monthly[j].Year {
			return agg.Monthly[i].Year < agg.Monthly[j].Year
		}
		return agg.Monthly[i].Month < agg.Monthly[j].Month
	})

	return agg, nil
}
