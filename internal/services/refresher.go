package services

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Refreshable is anything the Refresher can trigger.
type Refreshable interface {
	Refresh(ctx context.Context) error
}

// RefreshFunc adapts a function to Refreshable.
type RefreshFunc func(ctx context.Context) error

// Refresh implements Refreshable
func (f RefreshFunc) Refresh(ctx context.Context) error { return f(ctx) }

// Refresher triggers a refresh on a fixed interval.
type Refresher struct {
	target   Refreshable
	interval time.Duration
	logger   *slog.Logger

	mu      sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
	running bool
}

// NewRefresher creates a refresher. It does nothing until Start.
func NewRefresher(target Refreshable, interval time.Duration, logger *slog.Logger) *Refresher {
	return &Refresher{
		target:   target,
		interval: interval,
		logger:   serviceLogger(logger, "refresher"),
	}
}

// ForDashboard wraps DashboardService.Refresh for a Refresher.
func ForDashboard(s *DashboardService) Refreshable {
	return RefreshFunc(func(ctx context.Context) error {
		_, err := s.Refresh(ctx)
		return err
	})
}

// Start begins ticking. The first refresh happens one interval after
// Start; the startup load is the caller's job. A second Start is a no-op.
func (r *Refresher) Start(ctx context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.running || r.interval <= 0 {
		return
	}

	ctx, cancel := context.WithCancel(ctx)
	r.cancel = cancel
	r.done = make(chan struct{})
	r.running = true

	go r.loop(ctx, r.done)
	r.logger.InfoContext(ctx, "refresher started", slog.Duration("interval", r.interval))
}

func (r *Refresher) loop(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := r.target.Refresh(ctx); err != nil && ctx.Err() == nil {
				r.logger.WarnContext(ctx, "scheduled refresh failed", slog.String("error", err.Error()))
			}
		}
	}
}

// Stop halts the ticker and waits for an in-progress tick to return.
func (r *Refresher) Stop() {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return
	}
	r.running = false
	cancel, done := r.cancel, r.done
	r.mu.Unlock()

	cancel()
	<-done
	r.logger.Info("refresher stopped")
}

// Running reports whether the ticker is active.
func (r *Refresher) Running() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.running
}
