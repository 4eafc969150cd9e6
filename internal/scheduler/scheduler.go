// Package scheduler runs periodic admin jobs on cron schedules.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"ai-bot/internal/metrics"

	"github.com/robfig/cron/v3"
)

// JobFunc is one run of a scheduled job.
type JobFunc func(ctx context.Context) error

// Scheduler wraps a cron runner. Jobs run in UTC and never overlap with
// themselves.
type Scheduler struct {
	cron    *cron.Cron
	logger  *slog.Logger
	metrics *metrics.Metrics
	timeout time.Duration
}

// New creates a Scheduler. Each run gets timeout, or five minutes when zero.
func New(logger *slog.Logger, m *metrics.Metrics, timeout time.Duration) *Scheduler {
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}
	l := logger.With("component", "scheduler")
	cl := cronLogger{logger: l}
	return &Scheduler{
		cron: cron.New(
			cron.WithLocation(time.UTC),
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
		logger:  l,
		metrics: m,
		timeout: timeout,
	}
}

// Add registers fn under a standard five-field cron spec. An empty spec
// leaves the job disabled.
func (s *Scheduler) Add(name, spec string, fn JobFunc) error {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		s.logger.Info("job disabled", "job", name)
		return nil
	}
	if _, err := s.cron.AddFunc(spec, func() { s.run(name, fn) }); err != nil {
		return fmt.Errorf("schedule %s: %w", name, err)
	}
	s.logger.Info("job scheduled", "job", name, "schedule", spec)
	return nil
}

// Len returns the number of scheduled jobs.
func (s *Scheduler) Len() int {
	return len(s.cron.Entries())
}

// Start runs the scheduler in its own goroutine.
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop halts scheduling and waits for running jobs until ctx ends.
func (s *Scheduler) Stop(ctx context.Context) {
	done := s.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
		s.logger.Warn("scheduler stop timed out")
	}
}

func (s *Scheduler) run(name string, fn JobFunc) {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	started := time.Now()
	if err := fn(ctx); err != nil {
		s.logger.Error("job failed", "job", name, "error", err)
		if s.metrics != nil {
			s.metrics.Errors.WithLabelValues("job_" + name).Inc()
		}
		return
	}
	s.logger.Debug("job finished", "job", name, "duration", time.Since(started))
}

// cronLogger adapts slog to cron.Logger.
type cronLogger struct {
	logger *slog.Logger
}

func (c cronLogger) Info(msg string, keysAndValues ...interface{}) {
	c.logger.Debug(msg, keysAndValues...)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	c.logger.Error(msg, append(keysAndValues, "error", err)...)
}
