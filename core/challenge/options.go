package challenge

import (
	"log/slog"
	"time"
)

const (
	DefaultAccountID           = "letsautomate"
	DefaultPropagationInterval = 30 * time.Second
	DefaultPropagationTimeout  = 6 * time.Hour
	DefaultChallengeInterval   = time.Second
	DefaultChallengeAttempts   = 10
	DefaultFinalizeInterval    = 3 * time.Second
	DefaultFinalizeAttempts    = 10
	DefaultCleanupRetries      = 3
	DefaultCleanupInterval     = 2 * time.Second
	DefaultCleanupTimeout      = time.Minute
	DefaultRecordTTL           = 60
)

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithAccountID sets the id the account key is stored under.
func WithAccountID(id string) Option {
	return func(o *Orchestrator) {
		if id != "" {
			o.accountID = id
		}
	}
}

// WithPropagation sets how often and for how long DNS is checked for the TXT records.
func WithPropagation(interval, timeout time.Duration) Option {
	return func(o *Orchestrator) {
		if interval > 0 {
			o.propagationInterval = interval
		}
		if timeout > 0 {
			o.propagationTimeout = timeout
		}
	}
}

// WithChallengePolling sets the challenge status polling budget.
func WithChallengePolling(interval time.Duration, attempts int) Option {
	return func(o *Orchestrator) {
		if interval > 0 {
			o.challengeInterval = interval
		}
		if attempts > 0 {
			o.challengeAttempts = attempts
		}
	}
}

// WithFinalizePolling sets the order status polling budget after finalization.
func WithFinalizePolling(interval time.Duration, attempts int) Option {
	return func(o *Orchestrator) {
		if interval > 0 {
			o.finalizeInterval = interval
		}
		if attempts > 0 {
			o.finalizeAttempts = attempts
		}
	}
}

// WithCleanup sets how many times record removal is retried after a
// successful order, the pause between attempts and the overall deadline.
func WithCleanup(retries int, interval, timeout time.Duration) Option {
	return func(o *Orchestrator) {
		if retries >= 0 {
			o.cleanupRetries = retries
		}
		if interval > 0 {
			o.cleanupInterval = interval
		}
		if timeout > 0 {
			o.cleanupTimeout = timeout
		}
	}
}

// WithRecordTTL sets the TTL of challenge records.
func WithRecordTTL(ttl int) Option {
	return func(o *Orchestrator) {
		if ttl >= 0 {
			o.recordTTL = ttl
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *Orchestrator) {
		if l != nil {
			o.logger = l
		}
	}
}
