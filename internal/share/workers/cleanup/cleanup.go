// Package cleanup runs the background expiry sweep for sharing sessions,
// independent of request handling.
package cleanup

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// SessionSweeper exposes the sweep operation of the session manager.
type SessionSweeper interface {
	Cleanup(ctx context.Context) (int, error)
}

// Worker periodically expires past-due sessions.
type Worker struct {
	sweeper  SessionSweeper
	interval time.Duration
	logger   *slog.Logger
}

// Option configures the Worker.
type Option func(*Worker)

// WithInterval overrides the sweep interval when greater than zero.
func WithInterval(interval time.Duration) Option {
	return func(w *Worker) {
		if interval > 0 {
			w.interval = interval
		}
	}
}

// WithLogger overrides the logger used for sweep reporting.
func WithLogger(logger *slog.Logger) Option {
	return func(w *Worker) {
		if logger != nil {
			w.logger = logger
		}
	}
}

// New constructs a Worker with options applied.
func New(sweeper SessionSweeper, opts ...Option) (*Worker, error) {
	if sweeper == nil {
		return nil, fmt.Errorf("sweeper is required")
	}
	w := &Worker{
		sweeper:  sweeper,
		interval: time.Minute,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(w)
		}
	}
	return w, nil
}

// Start runs the sweep on a fixed interval until ctx is cancelled.
func (w *Worker) Start(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if _, err := w.RunOnce(ctx); err != nil {
				w.logger.ErrorContext(ctx, "session expiry sweep failed", "error", err)
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// RunOnce performs a single sweep and reports how many sessions expired.
func (w *Worker) RunOnce(ctx context.Context) (int, error) {
	count, err := w.sweeper.Cleanup(ctx)
	if err != nil {
		return 0, fmt.Errorf("expire due sessions: %w", err)
	}
	if count > 0 {
		w.logger.InfoContext(ctx, "expired stale sharing sessions", "count", count)
	}
	return count, nil
}
