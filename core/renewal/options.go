package renewal

import (
	"log/slog"
	"time"
)

const (
	DefaultInterval        = time.Hour
	DefaultRenewBefore     = 30 * 24 * time.Hour
	DefaultShutdownTimeout = 30 * time.Second
	DefaultConcurrency     = 4
)

// Option configures a Scheduler.
type Option func(*options)

type options struct {
	interval        time.Duration
	renewBefore     time.Duration
	shutdownTimeout time.Duration
	concurrency     int
	now             func() time.Time
	logger          *slog.Logger
}

// WithInterval sets the time between ticks.
func WithInterval(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.interval = d
		}
	}
}

// WithRenewBefore sets how long before expiry a certificate is renewed.
func WithRenewBefore(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.renewBefore = d
		}
	}
}

// WithShutdownTimeout bounds how long Stop waits for an in-flight tick.
func WithShutdownTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.shutdownTimeout = d
		}
	}
}

// WithConcurrency bounds how many renewals one tick submits at once.
func WithConcurrency(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.concurrency = n
		}
	}
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
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
