// Package payroll runs the monthly payroll job in the background.
package payroll

import (
	"context"
	"time"

	"go.uber.org/zap"

	"budgetbook/internal/models"
	"budgetbook/internal/services"
)

// Runner posts payroll for every budget that is due.
type Runner interface {
	RunDuePayrolls(ctx context.Context, now time.Time) (*services.PayrollBatchResult, error)
}

// Defaults used by NewScheduler.
const (
	DefaultWarmup        = 2 * time.Second
	DefaultRetryInterval = 15 * time.Second
	runTimeout           = 30 * time.Second
)

// DefaultBackoffs are the delays before each attempt of a single run.
var DefaultBackoffs = []time.Duration{0, 750 * time.Millisecond, 2 * time.Second}

// Scheduler posts payroll on startup and then at the first instant of every
// month. A failed run is retried a few times right away and then again after
// RetryInterval. Runs are idempotent per budget and month, so retrying is
// always safe. Backoffs are the delays before each attempt; empty means a
// single attempt.
type Scheduler struct {
	Runner        Runner
	Warmup        time.Duration
	RetryInterval time.Duration
	Backoffs      []time.Duration
	Logger        *zap.SugaredLogger

	now   func() time.Time
	after func(time.Duration) <-chan time.Time
}

// NewScheduler returns a Scheduler with the default timings.
func NewScheduler(runner Runner, logger *zap.SugaredLogger) *Scheduler {
	return &Scheduler{
		Runner:        runner,
		Warmup:        DefaultWarmup,
		RetryInterval: DefaultRetryInterval,
		Backoffs:      DefaultBackoffs,
		Logger:        logger,
		now:           time.Now,
		after:         time.After,
	}
}

// Run blocks until ctx is done. It always returns nil so it can share an
// errgroup with the HTTP server without stopping it.
func (s *Scheduler) Run(ctx context.Context) error {
	if !s.sleep(ctx, s.Warmup) {
		return nil
	}
	s.Logger.Infow("payroll scheduler started", "warmup", s.Warmup)

	for {
		batch, err := s.runWithRetry(ctx)
		if ctx.Err() != nil {
			return nil
		}

		var wait time.Duration
		if err != nil {
			wait = s.RetryInterval
			s.Logger.Errorw("payroll run failed", "error", err, "retry_in", wait)
		} else {
			next := NextMonthStart(s.now())
			wait = next.Sub(s.now())
			s.Logger.Infow("payroll run complete",
				"period", batch.Period,
				"posted", batch.Posted,
				"skipped", batch.Skipped,
				"next_run", next,
			)
		}

		if !s.sleep(ctx, wait) {
			return nil
		}
	}
}

func (s *Scheduler) runWithRetry(ctx context.Context) (*services.PayrollBatchResult, error) {
	backoffs := s.Backoffs
	if len(backoffs) == 0 {
		backoffs = []time.Duration{0}
	}

	var lastErr error
	for i, delay := range backoffs {
		if !s.sleep(ctx, delay) {
			return nil, ctx.Err()
		}

		runCtx, cancel := context.WithTimeout(ctx, runTimeout)
		batch, err := s.Runner.RunDuePayrolls(runCtx, s.now())
		cancel()
		if err == nil {
			if batch == nil {
				batch = &services.PayrollBatchResult{Period: models.PayrollPeriod(s.now())}
			}
			return batch, nil
		}
		lastErr = err
		s.Logger.Warnw("payroll attempt failed", "attempt", i+1, "attempts", len(backoffs), "error", err)
	}
	return nil, lastErr
}

// sleep waits for d and reports false when ctx ended first.
func (s *Scheduler) sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	select {
	case <-ctx.Done():
		return false
	case <-s.after(d):
		return true
	}
}

// NextMonthStart returns the first instant of the month after now, in now's
// location.
func NextMonthStart(now time.Time) time.Time {
	return time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location()).AddDate(0, 1, 0)
}
