// Package scheduler runs periodic jobs such as the liquidity queue sweep and
// the outbox relay.
package scheduler

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/bibbank/fund/internal/infrastructure/scheduler"

// Job is one tick of periodic work.
type Job func(ctx context.Context) error

// Runner invokes a job on a fixed interval until its context is cancelled.
// Ticks never overlap; a tick that outlasts the interval delays the next one.
type Runner struct {
	name     string
	interval time.Duration
	job      Job
	logger   *slog.Logger
	tracer   trace.Tracer
}

// NewRunner creates a runner. A nil logger falls back to slog.Default().
func NewRunner(name string, interval time.Duration, job Job, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{
		name:     name,
		interval: interval,
		job:      job,
		logger:   logger.With("job", name),
		tracer:   otel.Tracer(tracerName),
	}
}

// Run blocks until ctx is done. The first tick runs immediately.
func (r *Runner) Run(ctx context.Context) {
	r.logger.Info("scheduler started", "interval", r.interval.String())
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		r.Tick(ctx)
		select {
		case <-ctx.Done():
			r.logger.Info("scheduler stopped")
			return
		case <-ticker.C:
		}
	}
}

// Tick runs the job once inside a span. Failures are logged, never returned.
func (r *Runner) Tick(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	ctx, span := r.tracer.Start(ctx, "scheduler."+r.name,
		trace.WithAttributes(attribute.String("scheduler.job", r.name)))
	defer span.End()

	start := time.Now()
	if err := r.job(ctx); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		if ctx.Err() == nil {
			r.logger.ErrorContext(ctx, "scheduled job failed", "error", err, "duration", time.Since(start).String())
		}
		return
	}
	r.logger.DebugContext(ctx, "scheduled job finished", "duration", time.Since(start).String())
}
