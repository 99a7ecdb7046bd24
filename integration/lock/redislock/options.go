package redislock

import (
	"log/slog"
	"time"
)

const (
	DefaultTTL           = 30 * time.Second
	DefaultRetryInterval = 50 * time.Millisecond
	DefaultPrefix        = "letsautomate:lock:"
)

type options struct {
	ttl           time.Duration
	retryInterval time.Duration
	prefix        string
	log           *slog.Logger
}

// Option configures a Locker.
type Option func(*options)

// WithTTL sets how long a lock survives without refresh.
func WithTTL(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.ttl = d
		}
	}
}

// WithRetryInterval sets the wait between attempts on a contended key.
func WithRetryInterval(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.retryInterval = d
		}
	}
}

// WithPrefix sets the Redis key prefix.
func WithPrefix(prefix string) Option {
	return func(o *options) {
		o.prefix = prefix
	}
}

// WithLogger sets the logger.
func WithLogger(log *slog.Logger) Option {
	return func(o *options) {
		if log != nil {
			o.log = log
		}
	}
}

// Config holds locker settings loaded from the environment.
type Config struct {
	TTL           time.Duration `env:"REDIS_LOCK_TTL" envDefault:"30s"`
	RetryInterval time.Duration `env:"REDIS_LOCK_RETRY_INTERVAL" envDefault:"50ms"`
	Prefix        string        `env:"REDIS_LOCK_PREFIX" envDefault:"letsautomate:lock:"`
}

// NewFromConfig creates a Locker from cfg. Explicit opts override cfg.
func NewFromConfig(cfg Config, client Client, opts ...Option) (*Locker, error) {
	base := []Option{
		WithTTL(cfg.TTL),
		WithRetryInterval(cfg.RetryInterval),
		WithPrefix(cfg.Prefix),
	}
	return New(client, append(base, opts...)...)
}
