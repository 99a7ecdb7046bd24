package aggregate

import (
	"log/slog"
	"time"

	"github.com/dmitrymomot/letsautomate/core/logger"
)

// Option configures a Runtime.
type Option func(*options)

type options struct {
	locker         Locker
	logger         *slog.Logger
	retryInterval  time.Duration
	persistTimeout time.Duration
}

// WithLocker sets the per-key locker. Defaults to a MemoryLocker.
func WithLocker(l Locker) Option {
	return func(o *options) {
		if l != nil {
			o.locker = l
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithRetryInterval sets the pause between append retries.
func WithRetryInterval(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.retryInterval = d
		}
	}
}

// WithPersistTimeout bounds how long the runtime keeps trying to append a decided event.
func WithPersistTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.persistTimeout = d
		}
	}
}

func defaultOptions() options {
	return options{
		logger:         logger.Nop(),
		retryInterval:  200 * time.Millisecond,
		persistTimeout: 30 * time.Second,
	}
}
