package analytics

import (
	"time"

	"github.com/tf-oj/student-analytics/internal/domain/stats"
	"github.com/tf-oj/student-analytics/pkg/timeutil"
)

// FillWeeklyGaps turns a sparse weekly series into a contiguous one
// covering the window from now minus the given number of weeks up to and
// including the current ISO week: a window of N weeks yields exactly N+1
// entries in strictly ascending (year, week) order. Weeks without
// activity get zero-valued buckets. Period keys come from pkg/timeutil,
// the same computation the aggregator buckets with.
func FillWeeklyGaps(sparse []WeeklyBucket, weeks int, now time.Time) []WeeklyBucket {
	byKey := make(map[[2]int]WeeklyBucket, len(sparse))
	for _, b := range sparse {
		byKey[[2]int{b.Year, b.Week}] = b
	}

	dense := make([]WeeklyBucket, 0, weeks+1)
	seen := make(map[[2]int]struct{}, weeks+1)

	// Stepping seven days at a time from now-weeks*7d lands on every ISO
	// week in the window exactly once, endpoints included.
	cursor := timeutil.ToShanghai(now).AddDate(0, 0, -weeks*7)
	for !cursor.After(timeutil.ToShanghai(now)) {
		year, week := timeutil.ISOWeek(cursor)
		key := [2]int{year, week}
		if _, dup := seen[key]; !dup {
			seen[key] = struct{}{}
			if b, ok := byKey[key]; ok {
				dense = append(dense, b)
			} else {
				dense = append(dense, WeeklyBucket{Year: year, Week: week})
			}
		}
		cursor = cursor.AddDate(0, 0, 7)
	}

	return dense
}

// FillMonthlyGaps is the calendar-month counterpart of FillWeeklyGaps: a
// window of N months yields N+1 entries, from the month N months back
// through the current month inclusive.
func FillMonthlyGaps(sparse []MonthlyBucket, months int, now time.Time) []MonthlyBucket {
	byKey := make(map[[2]int]MonthlyBucket, len(sparse))
	for _, b := range sparse {
		byKey[[2]int{b.Year, b.Month}] = b
	}

	endYear, endMonth := timeutil.YearMonth(now)
	start := timeutil.MonthsWindowStart(now, months)
	year, month := start.Year(), int(start.Month())

	dense := make([]MonthlyBucket, 0, months+1)
	for year < endYear || (year == endYear && month <= endMonth) {
		if b, ok := byKey[[2]int{year, month}]; ok {
			dense = append(dense, b)
		} else {
			dense = append(dense, MonthlyBucket{Year: year, Month: month})
		}
		month++
		if month > 12 {
			month = 1
			year++
		}
	}

	return dense
}

// FillHourGaps expands a sparse hour histogram into exactly 24 slots,
// hours 0 through 23 in order, regardless of any window.
func FillHourGaps(counts map[int]int) []stats.HourCount {
	dense := make([]stats.HourCount, 24)
	for hour := 0; hour < 24; hour++ {
		dense[hour] = stats.HourCount{Hour: hour, Count: counts[hour]}
	}
	return dense
}
