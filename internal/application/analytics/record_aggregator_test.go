package analytics

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tf-oj/student-analytics/internal/domain/submission"
	"github.com/tf-oj/student-analytics/pkg/timeutil"
)

// fixedNow is Wednesday 2024-03-20 15:00 in Asia/Shanghai, ISO week
// 2024-W12.
var fixedNow = time.Date(2024, 3, 20, 15, 0, 0, 0, timeutil.ShanghaiTZ)

func shTime(year int, month time.Month, day, hour, minute int) time.Time {
	return time.Date(year, month, day, hour, minute, 0, 0, timeutil.ShanghaiTZ)
}

func makeEvent(userID int64, problemID int64, at time.Time, outcome submission.Outcome, code string) submission.Event {
	return submission.Event{
		ID:          uuid.New(),
		UserID:      userID,
		Problem:     submission.ProblemRef{Domain: "system", ProblemID: problemID},
		SubmittedAt: at,
		Outcome:     outcome,
		Code:        code,
		Language:    "cpp",
		Kind:        submission.KindNormal,
	}
}

func TestRecordAggregator_SinglePass(t *testing.T) {
	source := &fakeEventSource{events: []submission.Event{
		// 2024-03-12 is in ISO week 2024-W11, inside the 4-week window.
		makeEvent(7, 1001, shTime(2024, 3, 12, 10, 30), submission.OutcomeAccepted, "a\nb\nc"),
		makeEvent(7, 1001, shTime(2024, 3, 12, 11, 0), submission.OutcomeWrongAnswer, "a\nb"),
		// January is inside the 3-month window but outside the 4-week one.
		makeEvent(7, 1002, shTime(2024, 1, 5, 9, 0), submission.OutcomeTimeLimitExceeded, "x"),
		makeEvent(7, 1003, shTime(2024, 1, 5, 8, 0), submission.OutcomeAccepted, ""),
	}}

	agg := NewRecordAggregator(source)
	agg.Now = func() time.Time { return fixedNow }

	result, err := agg.Aggregate(context.Background(), 7, 4, 3)
	require.NoError(t, err)
	assert.Equal(t, 1, source.calls, "one traversal serves every grouping")

	assert.Equal(t, 4, result.Totals.TotalSubmissions)
	assert.Equal(t, 6, result.Totals.TotalLines, "empty source counts zero lines")
	assert.Equal(t, 3, result.Totals.UniqueProblems)
	assert.Equal(t, 2, result.Totals.AcceptedCount)
	assert.Equal(t, 1, result.Totals.WrongAnswerCount)
	assert.Equal(t, 1, result.Totals.TimeLimitCount)

	require.NotNil(t, result.Totals.FirstAcceptedAt)
	assert.True(t, result.Totals.FirstAcceptedAt.Equal(shTime(2024, 1, 5, 8, 0)))
	require.NotNil(t, result.Totals.LastSubmissionAt)
	assert.True(t, result.Totals.LastSubmissionAt.Equal(shTime(2024, 3, 12, 11, 0)))

	// Weekly buckets only cover the weekly window.
	require.Len(t, result.Weekly, 1)
	assert.Equal(t, WeeklyBucket{
		Year:             2024,
		Week:             11,
		TotalLines:       5,
		TotalSubmissions: 2,
		UniqueProblems:   1,
	}, result.Weekly[0])

	// Monthly buckets cover the wider monthly window, sorted ascending.
	require.Len(t, result.Monthly, 2)
	assert.Equal(t, MonthlyBucket{
		Year:             2024,
		Month:            1,
		TotalLines:       1,
		TotalSubmissions: 2,
		UniqueProblems:   2,
	}, result.Monthly[0])
	assert.Equal(t, MonthlyBucket{
		Year:             2024,
		Month:            3,
		TotalLines:       5,
		TotalSubmissions: 2,
		UniqueProblems:   1,
	}, result.Monthly[1])

	assert.Equal(t, 2, result.OutcomeCounts[submission.OutcomeAccepted])
	assert.Equal(t, 1, result.OutcomeCounts[submission.OutcomeWrongAnswer])
	assert.Equal(t, 1, result.OutcomeCounts[submission.OutcomeTimeLimitExceeded])

	assert.Equal(t, 1, result.HourCounts[8])
	assert.Equal(t, 1, result.HourCounts[9])
	assert.Equal(t, 1, result.HourCounts[10])
	assert.Equal(t, 1, result.HourCounts[11])
}

func TestRecordAggregator_NoEvents(t *testing.T) {
	agg := NewRecordAggregator(&fakeEventSource{})
	agg.Now = func() time.Time { return fixedNow }

	result, err := agg.Aggregate(context.Background(), 42, 12, 12)
	require.NoError(t, err)

	assert.Empty(t, result.Weekly)
	assert.Empty(t, result.Monthly)
	assert.Zero(t, result.Totals.TotalSubmissions)
	assert.Nil(t, result.Totals.FirstAcceptedAt)
	assert.Nil(t, result.Totals.LastSubmissionAt)
}

func TestRecordAggregator_SourceFailureIsAtomic(t *testing.T) {
	source := &fakeEventSource{err: errors.New("connection refused")}
	agg := NewRecordAggregator(source)
	agg.Now = func() time.Time { return fixedNow }

	result, err := agg.Aggregate(context.Background(), 7, 4, 3)
	require.Error(t, err)
	assert.Nil(t, result)
}

func TestRecordAggregator_LineCounting(t *testing.T) {
	// A 42-line file is represented with 41 separators.
	code := strings.TrimSuffix(strings.Repeat("line\n", 42), "\n")
	ev := makeEvent(7, 1001, shTime(2024, 3, 12, 10, 0), submission.OutcomeAccepted, code)
	assert.Equal(t, 42, ev.CodeLines())

	// Trailing newline counts one extra line; empty source counts none.
	assert.Equal(t, 43, submission.Event{Code: code + "\n"}.CodeLines())
	assert.Equal(t, 0, submission.Event{}.CodeLines())
	assert.Equal(t, 1, submission.Event{Code: "x"}.CodeLines())
}
