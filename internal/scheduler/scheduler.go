// Package scheduler runs the periodic producers of a session (synthetic
// generation, instrument jitter, chart refresh) on independent tickers while
// executing their bodies one at a time.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/errgroup"

	"github.com/couchcryptid/microburst-monitor/internal/observability"
)

// TaskFunc is the body of a periodic task. now is the tick time.
type TaskFunc func(ctx context.Context, now time.Time)

type task struct {
	name     string
	interval time.Duration
	fn       TaskFunc
}

// Scheduler owns a set of periodic tasks. Each task ticks on its own ticker;
// task bodies never overlap, so each one runs to completion before the next
// starts. Cancelling the context passed to Run stops every task and no body
// starts after cancellation.
type Scheduler struct {
	clock   clockwork.Clock
	logger  *slog.Logger
	metrics *observability.Metrics

	mu    sync.Mutex
	tasks []task

	runMu sync.Mutex
}

// New creates a Scheduler driven by clock.
func New(clock clockwork.Clock, logger *slog.Logger, metrics *observability.Metrics) *Scheduler {
	return &Scheduler{clock: clock, logger: logger, metrics: metrics}
}

// Every registers fn to run every interval. Tasks must be registered before
// Run is called.
func (s *Scheduler) Every(name string, interval time.Duration, fn TaskFunc) error {
	if interval <= 0 {
		return fmt.Errorf("task %s: interval must be positive, got %s", name, interval)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tasks = append(s.tasks, task{name: name, interval: interval, fn: fn})
	return nil
}

// Run ticks every registered task until ctx is cancelled and returns once all
// task loops have exited.
func (s *Scheduler) Run(ctx context.Context) error {
	s.mu.Lock()
	tasks := append([]task(nil), s.tasks...)
	s.mu.Unlock()

	g, ctx := errgroup.WithContext(ctx)
	for _, t := range tasks {
		g.Go(func() error {
			s.loop(ctx, t)
			return nil
		})
	}
	s.logger.Info("scheduler started", "tasks", len(tasks))

	err := g.Wait()
	s.logger.Info("scheduler stopped")
	return err
}

func (s *Scheduler) loop(ctx context.Context, t task) {
	ticker := s.clock.NewTicker(t.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.Chan():
			s.run(ctx, t, now)
		}
	}
}

func (s *Scheduler) run(ctx context.Context, t task, now time.Time) {
	s.runMu.Lock()
	defer s.runMu.Unlock()

	if ctx.Err() != nil {
		return
	}

	start := s.clock.Now()
	t.fn(ctx, now)
	s.metrics.TaskDuration.WithLabelValues(t.name).Observe(s.clock.Since(start).Seconds())
}
