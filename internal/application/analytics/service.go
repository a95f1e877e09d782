package analytics

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/tf-oj/student-analytics/internal/domain/shared"
	"github.com/tf-oj/student-analytics/internal/domain/stats"
	"github.com/tf-oj/student-analytics/pkg/timeutil"
)

// Options controls one StudentStats request.
type Options struct {
	IncludeWeekly  bool
	IncludeMonthly bool

	// Weeks and Months are the lookback window sizes; non-positive values
	// fall back to 12.
	Weeks  int
	Months int

	// TopTags caps the tag histogram; non-positive falls back to 20.
	TopTags int

	// ForceRefresh bypasses the cache read (the result is still written
	// back).
	ForceRefresh bool
}

// DefaultOptions mirror the judge UI's statistics page request.
func DefaultOptions() Options {
	return Options{
		IncludeWeekly:  true,
		IncludeMonthly: true,
		Weeks:          12,
		Months:         12,
		TopTags:        DefaultTopTags,
	}
}

func (o *Options) normalize() {
	if o.Weeks <= 0 {
		o.Weeks = 12
	}
	if o.Months <= 0 {
		o.Months = 12
	}
	if o.TopTags <= 0 {
		o.TopTags = DefaultTopTags
	}
}

// MetricsRecorder receives operational counters from the service. The
// prometheus-backed implementation lives in the infrastructure layer.
type MetricsRecorder interface {
	CacheHit()
	CacheMiss()
	Recompute(d time.Duration)
	CacheWriteError()
}

type nopMetrics struct{}

func (nopMetrics) CacheHit()               {}
func (nopMetrics) CacheMiss()              {}
func (nopMetrics) Recompute(time.Duration) {}
func (nopMetrics) CacheWriteError()        {}

// Service composes the aggregators, the gap filler and the cache into
// the statistics entry point used by the page layer. All collaborators
// are injected; there is no process-wide registry.
type Service struct {
	records  *RecordAggregator
	problems *ProblemAggregator
	cache    stats.Cache
	logger   *slog.Logger
	metrics  MetricsRecorder

	// Now is the clock used for snapshot assembly. Overridable in tests.
	Now func() time.Time
}

// NewService wires the orchestrator. logger and metrics may be nil.
func NewService(records *RecordAggregator, problems *ProblemAggregator, cache stats.Cache, logger *slog.Logger, metrics MetricsRecorder) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if metrics == nil {
		metrics = nopMetrics{}
	}
	return &Service{
		records:  records,
		problems: problems,
		cache:    cache,
		logger:   logger.With("component", "analytics"),
		metrics:  metrics,
		Now:      timeutil.Now,
	}
}

// StudentStats returns the user's statistics snapshot, from cache when a
// fresh one exists, otherwise recomputed and written back. A failed
// write-back is logged and the freshly computed snapshot is still
// returned; the next request simply recomputes.
func (s *Service) StudentStats(ctx context.Context, userID int64, opts Options) (*stats.Snapshot, error) {
	if userID <= 0 {
		return nil, shared.WrapError("analytics", "StudentStats", shared.ErrInvalidID,
			fmt.Sprintf("user id %d", userID), nil)
	}
	opts.normalize()

	if !opts.ForceRefresh {
		snap, err := s.cache.Get(ctx, userID)
		switch {
		case err == nil:
			s.metrics.CacheHit()
			return snap, nil
		case errors.Is(err, stats.ErrCacheMiss):
			// fall through to recompute
		default:
			// A broken cache store must not take the statistics page down.
			s.logger.Warn("cache read failed, recomputing", "uid", userID, "error", err)
		}
	}
	s.metrics.CacheMiss()

	started := time.Now()
	snap, err := s.compute(ctx, userID, opts)
	if err != nil {
		return nil, err
	}
	s.metrics.Recompute(time.Since(started))

	if err := s.cache.Put(ctx, userID, snap, snap.Totals.LastSubmissionAt); err != nil {
		s.metrics.CacheWriteError()
		s.logger.Warn("cache write failed, serving uncached snapshot", "uid", userID, "error", err)
	}

	return snap, nil
}

// compute runs both aggregators concurrently and assembles the snapshot.
func (s *Service) compute(ctx context.Context, userID int64, opts Options) (*stats.Snapshot, error) {
	var (
		rec  *RecordAggregation
		prob *ProblemAggregation
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		rec, err = s.records.Aggregate(gctx, userID, opts.Weeks, opts.Months)
		return err
	})
	g.Go(func() error {
		var err error
		prob, err = s.problems.Aggregate(gctx, userID, opts.TopTags)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	now := s.Now()
	snap := &stats.Snapshot{
		UserID:      userID,
		GeneratedAt: now,
		Totals:      rec.Totals,

		OutcomeDistribution:    outcomeDistribution(rec),
		HourDistribution:       FillHourGaps(rec.HourCounts),
		Completion:             prob.Completion,
		DifficultyDistribution: prob.Difficulty,
		TagDistribution:        prob.Tags,
	}

	if opts.IncludeWeekly {
		snap.Weekly = weeklySeries(rec.Weekly, opts.Weeks, now)
	}
	if opts.IncludeMonthly {
		snap.Monthly = monthlySeries(rec.Monthly, opts.Months, now)
	}

	return snap, nil
}

// InvalidateUser marks the user's cached snapshot dirty. The submission
// ingestion side calls this on every judged record; it is the sole write
// path by which new activity becomes visible to subsequent reads.
//
// If a recomputation started before the new submission is already in
// flight, its eventual Put overwrites the dirty flag and the new
// activity stays hidden until the TTL expires or the next invalidation.
// That bounded staleness is an accepted property of the cache protocol.
func (s *Service) InvalidateUser(ctx context.Context, userID int64) error {
	if userID <= 0 {
		return shared.WrapError("analytics", "InvalidateUser", shared.ErrInvalidID,
			fmt.Sprintf("user id %d", userID), nil)
	}
	return s.cache.MarkDirty(ctx, userID)
}

// ClearAllCache deletes every cached snapshot (administrative reset).
func (s *Service) ClearAllCache(ctx context.Context) error {
	return s.cache.ClearAll(ctx)
}

// MarkAllDirty flags every cached snapshot for recomputation and returns
// the number of affected entries.
func (s *Service) MarkAllDirty(ctx context.Context) (int, error) {
	return s.cache.MarkAllDirty(ctx)
}

// CacheStats exposes the cache observability counters.
func (s *Service) CacheStats(ctx context.Context) (stats.CacheStats, error) {
	return s.cache.Stats(ctx)
}

func weeklySeries(sparse []WeeklyBucket, weeks int, now time.Time) []stats.WeeklyStats {
	dense := FillWeeklyGaps(sparse, weeks, now)
	series := make([]stats.WeeklyStats, len(dense))
	for i, b := range dense {
		series[i] = stats.WeeklyStats{
			Year:                  b.Year,
			Week:                  b.Week,
			TotalLines:            b.TotalLines,
			TotalSubmissions:      b.TotalSubmissions,
			UniqueProblems:        b.UniqueProblems,
			AvgLinesPerSubmission: safeRatio(b.TotalLines, b.TotalSubmissions),
		}
	}
	return series
}

func monthlySeries(sparse []MonthlyBucket, months int, now time.Time) []stats.MonthlyStats {
	dense := FillMonthlyGaps(sparse, months, now)
	series := make([]stats.MonthlyStats, len(dense))
	for i, b := range dense {
		series[i] = stats.MonthlyStats{
			Year:                  b.Year,
			Month:                 b.Month,
			TotalLines:            b.TotalLines,
			TotalSubmissions:      b.TotalSubmissions,
			UniqueProblems:        b.UniqueProblems,
			AvgLinesPerSubmission: safeRatio(b.TotalLines, b.TotalSubmissions),
			AvgLinesPerDay:        round2(float64(b.TotalLines) / float64(timeutil.DaysInMonth(b.Year, b.Month))),
		}
	}
	return series
}

func outcomeDistribution(rec *RecordAggregation) []stats.OutcomeCount {
	total := rec.Totals.TotalSubmissions
	dist := make([]stats.OutcomeCount, 0, len(rec.OutcomeCounts))
	for outcome, count := range rec.OutcomeCounts {
		pct := 0.0
		if total > 0 {
			pct = round2(float64(count) / float64(total) * 100)
		}
		dist = append(dist, stats.OutcomeCount{Outcome: outcome, Count: count, Percentage: pct})
	}
	sort.Slice(dist, func(i, j int) bool {
		if dist[i].Count != dist[j].Count {
			return dist[i].Count > dist[j].Count
		}
		return dist[i].Outcome < dist[j].Outcome
	})
	return dist
}

// safeRatio returns a/b rounded to two decimals, zero when b is zero.
func safeRatio(a, b int) float64 {
	if b == 0 {
		return 0
	}
	return round2(float64(a) / float64(b))
}

func round2(x float64) float64 {
	return math.Round(x*100) / 100
}
