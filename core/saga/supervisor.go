package saga

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/dmitrymomot/letsautomate/core/logger"
)

const (
	DefaultInitialInterval = time.Second
	DefaultMaxInterval     = time.Minute
	DefaultResetAfter      = 5 * time.Minute
)

// Task is a long-running function. It should return nil once ctx is done.
type Task func(ctx context.Context) error

// SupervisorStats describes the supervised task.
type SupervisorStats struct {
	Restarts  int64
	Running   bool
	Exhausted bool
	LastError string
}

// Supervisor keeps a Task running, restarting it with exponential backoff.
type Supervisor struct {
	name string
	task Task
	opts supervisorOptions

	active    atomic.Bool
	running   atomic.Bool
	exhausted atomic.Bool
	restarts  atomic.Int64

	mu      sync.Mutex
	lastErr error
}

// NewSupervisor creates a Supervisor for task.
func NewSupervisor(name string, task Task, opts ...SupervisorOption) *Supervisor {
	o := supervisorOptions{
		initialInterval: DefaultInitialInterval,
		maxInterval:     DefaultMaxInterval,
		resetAfter:      DefaultResetAfter,
		logger:          logger.Nop(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	return &Supervisor{name: name, task: task, opts: o}
}

// Start runs the task until ctx is done and returns nil then. It returns an
// error only when the restart limit is reached.
func (s *Supervisor) Start(ctx context.Context) error {
	if !s.active.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	defer s.active.Store(false)

	log := s.opts.logger.With(logger.Component(s.name))

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = s.opts.initialInterval
	policy.MaxInterval = s.opts.maxInterval
	policy.MaxElapsedTime = 0
	policy.Reset()

	for {
		started := time.Now()
		err := s.runOnce(ctx)
		if ctx.Err() != nil {
			return nil
		}
		if err == nil {
			log.InfoContext(ctx, "supervised task finished")
			return nil
		}
		s.setLastErr(err)

		if time.Since(started) >= s.opts.resetAfter {
			policy.Reset()
		}

		restarts := s.restarts.Add(1)
		if s.opts.maxRestarts > 0 && restarts > int64(s.opts.maxRestarts) {
			s.exhausted.Store(true)
			log.ErrorContext(ctx, "supervised task gave up",
				logger.RetryCount(int(restarts-1)),
				logger.Error(err))
			return errors.Join(fmt.Errorf("%w: %s", ErrRestartsExhausted, s.name), err)
		}

		wait := policy.NextBackOff()
		log.WarnContext(ctx, "supervised task failed, restarting",
			logger.RetryCount(int(restarts)),
			logger.Duration(wait),
			logger.Error(err))

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil
		case <-timer.C:
		}
	}
}

func (s *Supervisor) runOnce(ctx context.Context) (err error) {
	s.running.Store(true)
	defer s.running.Store(false)
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%s panicked: %v", s.name, r)
		}
	}()
	return s.task(ctx)
}

// Run returns a function suitable for errgroup.Go.
func (s *Supervisor) Run(ctx context.Context) func() error {
	return func() error {
		return s.Start(ctx)
	}
}

// Stats returns the supervisor state.
func (s *Supervisor) Stats() SupervisorStats {
	s.mu.Lock()
	var last string
	if s.lastErr != nil {
		last = s.lastErr.Error()
	}
	s.mu.Unlock()

	return SupervisorStats{
		Restarts:  s.restarts.Load(),
		Running:   s.running.Load(),
		Exhausted: s.exhausted.Load(),
		LastError: last,
	}
}

// Healthcheck fails when the task is not running.
func (s *Supervisor) Healthcheck(ctx context.Context) error {
	stats := s.Stats()
	if stats.Exhausted {
		return errors.Join(ErrHealthcheckFailed, ErrRestartsExhausted)
	}
	if !stats.Running {
		return errors.Join(ErrHealthcheckFailed, ErrSupervisorStopped)
	}
	return nil
}

func (s *Supervisor) setLastErr(err error) {
	s.mu.Lock()
	s.lastErr = err
	s.mu.Unlock()
}
