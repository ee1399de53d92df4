// Package worker contains the delivery sweep and the optional in-process
// ticker that triggers it. It is decoupled from the HTTP layer: the api
// package holds a worker.Sweep interface and calls Run; it never needs the
// concrete Sweeper or Runner types.
package worker

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

// ─── SWEEP INTERFACE ──────────────────────────────────────────────────────────

// Sweep is the narrow interface the api package and the Runner use to trigger
// a delivery sweep. The concrete implementation is *Sweeper. In tests, any
// struct with a Run method satisfies the interface.
type Sweep interface {
	Run(ctx context.Context) (Result, error)
}

// ─── RUNNER ───────────────────────────────────────────────────────────────────

// RunnerConfig holds tuning parameters for the Runner.
type RunnerConfig struct {
	// Interval between sweeps. Zero or negative disables the Runner.
	Interval time.Duration

	// Timeout is the per-sweep context deadline. Default: 10 minutes.
	Timeout time.Duration
}

// Runner triggers a sweep once at start and then on every tick, as a
// safety net next to the external cron trigger.
type Runner struct {
	sweep  Sweep
	cfg    RunnerConfig
	logger *slog.Logger
}

// NewRunner constructs a Runner. Call Start to begin.
func NewRunner(sweep Sweep, cfg RunnerConfig, logger *slog.Logger) *Runner {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Minute
	}
	return &Runner{sweep: sweep, cfg: cfg, logger: logger}
}

// Enabled reports whether the Runner has a positive interval.
func (r *Runner) Enabled() bool {
	return r.cfg.Interval > 0
}

// Start blocks until ctx is cancelled. It returns immediately when the
// Runner is disabled. Call it in a goroutine from main:
//
//	go runner.Start(ctx)
func (r *Runner) Start(ctx context.Context) {
	if !r.Enabled() {
		r.logger.Info("worker: in-process sweep disabled")
		return
	}
	r.logger.Info("worker: starting", "interval", r.cfg.Interval)

	ticker := time.NewTicker(r.cfg.Interval)
	defer ticker.Stop()

	// Run once immediately to pick up anything that fell due while down.
	r.runOnce(ctx)

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("worker: stopped")
			return
		case <-ticker.C:
			r.runOnce(ctx)
		}
	}
}

func (r *Runner) runOnce(ctx context.Context) {
	sweepCtx, cancel := context.WithTimeout(ctx, r.cfg.Timeout)
	defer cancel()

	res, err := r.sweep.Run(sweepCtx)
	switch {
	case errors.Is(err, ErrSweepInProgress):
		r.logger.Info("worker: sweep already running elsewhere, skipping tick")
	case err != nil:
		r.logger.Error("worker: sweep failed", "error", err)
	default:
		r.logger.Debug("worker: sweep finished",
			"delivered", res.Delivered,
			"failed", res.Failed,
			"skipped", res.Skipped,
		)
	}
}
