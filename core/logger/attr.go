package logger

import (
	"log/slog"
	"strconv"
	"time"
)

// Group creates a group of attributes under a single key.
func Group(name string, attrs ...slog.Attr) slog.Attr {
	return slog.Attr{Key: name, Value: slog.GroupValue(attrs...)}
}

// Error logs a single error under "error". Nil yields an empty Attr.
func Error(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.Any("error", err)
}

// Errors groups the non-nil errors under "errors", keyed by their position.
func Errors(errs ...error) slog.Attr {
	as := make([]slog.Attr, 0, len(errs))
	for i, err := range errs {
		if err != nil {
			as = append(as, slog.Any(strconv.Itoa(i), err))
		}
	}
	if len(as) == 0 {
		return slog.Attr{}
	}
	return slog.Attr{Key: "errors", Value: slog.GroupValue(as...)}
}

func Duration(d time.Duration) slog.Attr {
	return slog.Duration("duration", d)
}

// Elapsed logs the time since start.
func Elapsed(start time.Time) slog.Attr {
	return slog.Duration("elapsed", time.Since(start))
}

func Component(name string) slog.Attr {
	return slog.String("component", name)
}

func Count(key string, n int) slog.Attr {
	return slog.Int(key, n)
}

func RetryCount(count int) slog.Attr {
	return slog.Int("retry_count", count)
}

// Domain logs a fully-qualified certificate name.
func Domain(fqdn string) slog.Attr {
	if fqdn == "" {
		return slog.Attr{}
	}
	return slog.String("domain", fqdn)
}

// Sequence logs a global event log position.
func Sequence(seq int64) slog.Attr {
	return slog.Int64("sequence", seq)
}

// GroupID logs a consumer group.
func GroupID(id string) slog.Attr {
	if id == "" {
		return slog.Attr{}
	}
	return slog.String("group_id", id)
}

func CommandType(name string) slog.Attr {
	if name == "" {
		return slog.Attr{}
	}
	return slog.String("command", name)
}

func EventType(name string) slog.Attr {
	if name == "" {
		return slog.Attr{}
	}
	return slog.String("event_type", name)
}
