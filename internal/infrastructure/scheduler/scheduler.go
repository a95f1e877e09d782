// Package scheduler runs the periodic maintenance jobs of the analytics
// engine (bulk cache dirty sweeps, expired-entry janitor) on cron
// schedules.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// Job is a unit of periodic work.
type Job interface {
	// Name returns the unique name of the job, used in logs.
	Name() string

	// Run executes the job. The context is cancelled when the scheduler
	// stops.
	Run(ctx context.Context) error
}

// Scheduler wraps a cron runner with structured logging and per-job
// timing.
type Scheduler struct {
	cron   *cron.Cron
	logger *slog.Logger
	ctx    context.Context
	cancel context.CancelFunc
}

// New creates a Scheduler evaluating cron expressions in the given
// timezone.
func New(logger *slog.Logger, tz *time.Location) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	if tz == nil {
		tz = time.UTC
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		cron:   cron.New(cron.WithLocation(tz)),
		logger: logger.With("component", "scheduler"),
		ctx:    ctx,
		cancel: cancel,
	}
}

// Register schedules a job with a standard five-field cron expression.
func (s *Scheduler) Register(spec string, job Job) error {
	_, err := s.cron.AddFunc(spec, func() {
		started := time.Now()
		log := s.logger.With("job", job.Name())
		log.Info("job started")

		if err := job.Run(s.ctx); err != nil {
			log.Error("job failed", "error", err, "duration", time.Since(started))
			return
		}
		log.Info("job completed", "duration", time.Since(started))
	})
	if err != nil {
		return fmt.Errorf("scheduler: register job %q with spec %q: %w", job.Name(), spec, err)
	}
	return nil
}

// Start begins running scheduled jobs in the background.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info("scheduler started")
}

// Stop cancels running jobs and waits for in-flight ones to finish.
func (s *Scheduler) Stop() {
	s.cancel()
	stopped := s.cron.Stop()
	<-stopped.Done()
	s.logger.Info("scheduler stopped")
}
