package health

import (
	"context"
	"encoding/json"
	"net/http"
	"sort"

	"github.com/dmitrymomot/letsautomate/core/logger"
)

// Check reports whether a dependency is usable.
type Check func(ctx context.Context) error

// Report is the readiness response body.
type Report struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

const (
	statusReady    = "READY"
	statusNotReady = "NOT_READY"
	statusOK       = "ok"
)

// Evaluate runs every registered check and returns the combined report.
// The boolean is false when any check failed.
func (s *Server) Evaluate(ctx context.Context) (Report, bool) {
	s.mu.RLock()
	names := make([]string, 0, len(s.checks))
	for name := range s.checks {
		names = append(names, name)
	}
	checks := make(map[string]Check, len(s.checks))
	for name, fn := range s.checks {
		checks[name] = fn
	}
	s.mu.RUnlock()
	sort.Strings(names)

	ctx, cancel := context.WithTimeout(ctx, s.checkTimeout)
	defer cancel()

	report := Report{Status: statusReady, Checks: make(map[string]string, len(names))}
	ok := true
	for _, name := range names {
		if err := checks[name](ctx); err != nil {
			s.logger.WarnContext(ctx, "readiness check failed",
				logger.Component(name),
				logger.Error(err))
			report.Checks[name] = err.Error()
			ok = false
			continue
		}
		report.Checks[name] = statusOK
	}
	if !ok {
		report.Status = statusNotReady
	}
	return report, ok
}

func (s *Server) liveness(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ALIVE"))
}

func (s *Server) readiness(w http.ResponseWriter, r *http.Request) {
	report, ok := s.Evaluate(r.Context())

	status := http.StatusOK
	if !ok {
		status = http.StatusServiceUnavailable
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(report); err != nil {
		s.logger.ErrorContext(r.Context(), "failed to write readiness report", logger.Error(err))
	}
}

// Handler returns the probe routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health/live", s.liveness)
	mux.HandleFunc("GET /health/ready", s.readiness)
	return mux
}
