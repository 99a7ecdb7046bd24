package health

import (
	"log/slog"
	"time"
)

const (
	DefaultCheckTimeout    = 5 * time.Second
	DefaultShutdownTimeout = 10 * time.Second
	DefaultReadTimeout     = 5 * time.Second
)

// Option configures the Server.
type Option func(*Server)

// WithLogger sets the logger.
func WithLogger(log *slog.Logger) Option {
	return func(s *Server) {
		if log != nil {
			s.logger = log
		}
	}
}

// WithCheckTimeout bounds a single readiness evaluation.
func WithCheckTimeout(d time.Duration) Option {
	return func(s *Server) {
		if d > 0 {
			s.checkTimeout = d
		}
	}
}

// WithShutdownTimeout sets the graceful shutdown budget.
func WithShutdownTimeout(d time.Duration) Option {
	return func(s *Server) {
		if d > 0 {
			s.shutdown = d
		}
	}
}
