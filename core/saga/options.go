package saga

import (
	"errors"
	"log/slog"
	"time"

	"github.com/dmitrymomot/letsautomate/core/aggregate"
)

// Option configures a Saga.
type Option func(*sagaOptions)

type sagaOptions struct {
	pollInterval time.Duration
	redeliver    func(error) bool
	logger       *slog.Logger
}

// WithPollInterval sets how often the log is re-read when no live
// notification arrives.
func WithPollInterval(d time.Duration) Option {
	return func(o *sagaOptions) {
		if d > 0 {
			o.pollInterval = d
		}
	}
}

// WithRedeliver sets which submit errors stop the saga without committing,
// so the event is processed again after a restart. By default these are
// storage and lock failures, where nothing was recorded.
func WithRedeliver(fn func(error) bool) Option {
	return func(o *sagaOptions) {
		if fn != nil {
			o.redeliver = fn
		}
	}
}

// WithSagaLogger sets the saga logger.
func WithSagaLogger(l *slog.Logger) Option {
	return func(o *sagaOptions) {
		if l != nil {
			o.logger = l
		}
	}
}

func notRecorded(err error) bool {
	return errors.Is(err, aggregate.ErrStorage) || errors.Is(err, aggregate.ErrLock)
}

// SupervisorOption configures a Supervisor.
type SupervisorOption func(*supervisorOptions)

type supervisorOptions struct {
	initialInterval time.Duration
	maxInterval     time.Duration
	resetAfter      time.Duration
	maxRestarts     int
	logger          *slog.Logger
}

// WithBackoff sets the first and the largest pause between restarts.
func WithBackoff(initial, maxInterval time.Duration) SupervisorOption {
	return func(o *supervisorOptions) {
		if initial > 0 {
			o.initialInterval = initial
		}
		if maxInterval > 0 {
			o.maxInterval = maxInterval
		}
	}
}

// WithResetAfter sets how long a run must last for the backoff to start over.
func WithResetAfter(d time.Duration) SupervisorOption {
	return func(o *supervisorOptions) {
		if d > 0 {
			o.resetAfter = d
		}
	}
}

// WithMaxRestarts bounds the number of restarts. Zero means unlimited.
func WithMaxRestarts(n int) SupervisorOption {
	return func(o *supervisorOptions) {
		if n >= 0 {
			o.maxRestarts = n
		}
	}
}

// WithLogger sets the supervisor logger.
func WithLogger(l *slog.Logger) SupervisorOption {
	return func(o *supervisorOptions) {
		if l != nil {
			o.logger = l
		}
	}
}
