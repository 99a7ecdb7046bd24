package pgstore

import (
	"log/slog"
	"time"

	"github.com/dmitrymomot/letsautomate/core/eventlog"
	"github.com/dmitrymomot/letsautomate/core/logger"
)

// Channel is the PostgreSQL NOTIFY channel carrying appended sequences.
const Channel = "certificate_events"

type options struct {
	now          func() time.Time
	log          *slog.Logger
	notifyBuffer int
	channel      string
}

// Option configures a Store.
type Option func(*options)

// WithClock overrides the clock used for default event timestamps.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
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

// WithNotifyBuffer sets the per-subscriber live buffer.
func WithNotifyBuffer(n int) Option {
	return func(o *options) {
		o.notifyBuffer = n
	}
}

// WithChannel overrides the NOTIFY channel name.
func WithChannel(name string) Option {
	return func(o *options) {
		if name != "" {
			o.channel = name
		}
	}
}

func defaultOptions() options {
	return options{
		now:          time.Now,
		log:          logger.Nop(),
		notifyBuffer: eventlog.DefaultNotifyBuffer,
		channel:      Channel,
	}
}
