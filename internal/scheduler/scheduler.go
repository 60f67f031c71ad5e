// Package scheduler runs heterogeneous periodic jobs with independent
// intervals. It wraps robfig/cron with interval schedules, a per-job
// no-self-overlap guarantee, and a graceful bounded stop.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// Job is a value record describing one periodic job: an interval, a stable
// unique name, and the task to invoke. Jobs are plain data so tests can
// introspect what the services scheduled without running anything.
type Job struct {
	Interval time.Duration
	Name     string
	Task     func(ctx context.Context)
}

// Scheduler drives registered jobs. Jobs are independent: a slow job never
// blocks the cadence of others, and a single job never overlaps itself —
// a tick that is still running when the next interval elapses causes that
// next tick to be skipped.
type Scheduler struct {
	cron   *cron.Cron
	logger *slog.Logger
	names  map[string]bool
}

// New creates a stopped scheduler.
func New(logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}

	cronLogger := &slogCronLogger{logger: logger}

	return &Scheduler{
		cron: cron.New(
			cron.WithLogger(cronLogger),
			cron.WithChain(cron.SkipIfStillRunning(cronLogger)),
		),
		logger: logger,
		names:  make(map[string]bool),
	}
}

// Add registers jobs. Intervals must be positive and names unique across
// all registered jobs. May be called before Start only.
func (s *Scheduler) Add(jobs ...Job) error {
	for _, job := range jobs {
		if job.Interval <= 0 {
			return fmt.Errorf("scheduler: job %q: interval must be positive, got %s", job.Name, job.Interval)
		}

		if job.Name == "" {
			return fmt.Errorf("scheduler: job with interval %s has no name", job.Interval)
		}

		if s.names[job.Name] {
			return fmt.Errorf("scheduler: duplicate job name %q", job.Name)
		}

		if job.Task == nil {
			return fmt.Errorf("scheduler: job %q has no task", job.Name)
		}

		s.names[job.Name] = true

		task := job.Task
		name := job.Name

		s.cron.Schedule(cron.Every(job.Interval), cron.FuncJob(func() {
			task(context.Background())
		}))

		s.logger.Debug("job registered",
			slog.String("job", name),
			slog.Duration("interval", job.Interval),
		)
	}

	return nil
}

// Start begins issuing ticks. Idempotent.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info("scheduler started", slog.Int("jobs", len(s.names)))
}

// Stop ceases issuing new ticks and waits for in-flight ticks to finish,
// bounded by ctx. Returns an error wrapping ctx.Err() if the grace period
// expires first.
func (s *Scheduler) Stop(ctx context.Context) error {
	drained := s.cron.Stop()

	select {
	case <-drained.Done():
		s.logger.Info("scheduler stopped")

		return nil
	case <-ctx.Done():
		s.logger.Warn("scheduler stop grace period expired with ticks still running")

		return fmt.Errorf("scheduler: stop: %w", ctx.Err())
	}
}

// slogCronLogger adapts slog to cron.Logger. cron only logs skipped
// overlapping ticks and internal errors through this.
type slogCronLogger struct {
	logger *slog.Logger
}

func (l *slogCronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debug(msg, keysAndValues...)
}

func (l *slogCronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Error(msg, append(keysAndValues, "error", err)...)
}
