package service

import (
	"time"

	"github.com/okian/tofo/internal/adapters/repository"
	"github.com/okian/tofo/internal/domain/scoring"
	"github.com/okian/tofo/pkg/logger"
)

// Option applies a configuration option to the Session.
type Option func(*Session)

// WithWorkerCount sets the number of worker goroutines per plan.
func WithWorkerCount(count int) Option {
	return func(s *Session) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the capacity of the per-plan unit queue.
func WithQueueSize(size int) Option {
	return func(s *Session) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithLogger sets a custom logger for the session.
func WithLogger(l logger.Logger) Option {
	return func(s *Session) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithScorer replaces the default equal-weight scoring engine.
func WithScorer(sc scoring.Scorer) Option {
	return func(s *Session) {
		if sc != nil {
			s.scorer = sc
		}
	}
}

// WithRepository publishes every plan to store.
func WithRepository(store repository.Store) Option {
	return func(s *Session) { s.repo = store }
}

// WithSecondaries adds secondary eclipses to the predicted events.
func WithSecondaries(enabled bool) Option {
	return func(s *Session) { s.secondaries = enabled }
}

// WithCompanionSource names the catalog providing field-of-view companions.
func WithCompanionSource(name string) Option {
	return func(s *Session) { s.companionSource = name }
}

// WithClock overrides the time source used for GeneratedAt.
func WithClock(now func() time.Time) Option {
	return func(s *Session) {
		if now != nil {
			s.now = now
		}
	}
}
