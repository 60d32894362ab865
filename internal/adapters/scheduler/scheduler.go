// Package scheduler keeps catalog caches warm by refreshing them on a fixed
// interval.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-co-op/gocron"

	"github.com/okian/tofo/internal/adapters/cache"
	"github.com/okian/tofo/pkg/logger"
	"github.com/okian/tofo/pkg/metrics"
)

const defaultRunTimeout = 10 * time.Minute

// ErrInvalidInterval is returned when the refresh interval is not positive.
var ErrInvalidInterval = errors.New("refresh interval must be positive")

// Refresher refreshes every enabled catalog, honoring TTLs.
type Refresher interface {
	RefreshAll(ctx context.Context) []cache.Report
}

// Scheduler periodically runs RefreshAll and an optional follow-up job.
type Scheduler struct {
	scheduler *gocron.Scheduler
	refresher Refresher
	interval  time.Duration
	timeout   time.Duration
	after     func(ctx context.Context) error
	logger    logger.Logger

	mu     sync.Mutex
	ctx    context.Context
	cancel context.CancelFunc
	runs   int
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithRunTimeout bounds one refresh run.
func WithRunTimeout(d time.Duration) Option {
	return func(s *Scheduler) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// WithAfterRefresh runs fn after every refresh, e.g. to publish a new plan.
func WithAfterRefresh(fn func(ctx context.Context) error) Option {
	return func(s *Scheduler) { s.after = fn }
}

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) Option {
	return func(s *Scheduler) {
		if l != nil {
			s.logger = l
		}
	}
}

// New creates a Scheduler. Runs never overlap.
func New(r Refresher, interval time.Duration, opts ...Option) *Scheduler {
	gs := gocron.NewScheduler(time.UTC)
	gs.SingletonModeAll()
	s := &Scheduler{
		scheduler: gs,
		refresher: r,
		interval:  interval,
		timeout:   defaultRunTimeout,
		logger:    logger.Get().Named("scheduler"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start schedules the job and starts the scheduler. The first run happens
// immediately.
func (s *Scheduler) Start(ctx context.Context) error {
	if s.interval <= 0 {
		return fmt.Errorf("%w: %s", ErrInvalidInterval, s.interval)
	}

	s.mu.Lock()
	s.ctx, s.cancel = context.WithCancel(context.WithoutCancel(ctx))
	s.mu.Unlock()

	if _, err := s.scheduler.Every(s.interval).Do(s.run); err != nil {
		return fmt.Errorf("schedule refresh: %w", err)
	}
	s.scheduler.StartAsync()
	s.logger.Info(ctx, "scheduler started", logger.Duration("interval", s.interval))
	return nil
}

// Stop cancels a running job and stops future ones.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
	}
	s.mu.Unlock()
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}

// Runs returns how many refresh runs have completed.
func (s *Scheduler) Runs() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.runs
}

func (s *Scheduler) run() {
	s.mu.Lock()
	base := s.ctx
	s.mu.Unlock()
	if base == nil || base.Err() != nil {
		return
	}
	ctx, cancel := context.WithTimeout(base, s.timeout)
	defer cancel()

	start := time.Now()
	s.logger.Info(ctx, "running catalog refresh")
	failed := 0
	for _, r := range s.refresher.RefreshAll(ctx) {
		if r.Err != nil {
			failed++
			metrics.RecordErrorByComponent("scheduler", "refresh_failed")
			s.logger.Warn(ctx, "catalog refresh failed",
				logger.String("catalog", r.Source), logger.Error(r.Err))
			continue
		}
		s.logger.Debug(ctx, "catalog refreshed",
			logger.String("catalog", r.Source), logger.String("outcome", string(r.Outcome)))
	}

	if s.after != nil && ctx.Err() == nil {
		if err := s.after(ctx); err != nil {
			metrics.RecordErrorByComponent("scheduler", "after_refresh_failed")
			s.logger.Warn(ctx, "post-refresh job failed", logger.Error(err))
		}
	}

	s.mu.Lock()
	s.runs++
	s.mu.Unlock()
	s.logger.Info(ctx, "completed catalog refresh",
		logger.Int("failed", failed), logger.Duration("elapsed", time.Since(start)))
}
