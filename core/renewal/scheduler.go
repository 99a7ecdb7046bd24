package renewal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dmitrymomot/letsautomate/core/certificate"
	"github.com/dmitrymomot/letsautomate/core/logger"
)

// StateSource provides the current certificate state.
type StateSource interface {
	CurrentState(ctx context.Context) (certificate.AllCertificates, error)
}

// Submitter runs a certificate command.
type Submitter interface {
	Submit(ctx context.Context, cmd certificate.Command) (certificate.Event, error)
}

// Report summarizes one tick.
type Report struct {
	Due      int // certificates inside the renewal window
	Renewed  int // renewals started
	Failed   int
	Rejected int // incomplete entries skipped without a command
}

// Stats provides observability metrics for monitoring.
type Stats struct {
	Ticks     int64
	Renewed   int64
	Failed    int64
	LastTick  time.Time
	IsRunning bool
}

// Scheduler renews certificates close to expiry.
type Scheduler struct {
	state     StateSource
	submitter Submitter
	opts      options

	mu     sync.Mutex
	cancel context.CancelFunc
	wg     sync.WaitGroup

	ticks      atomic.Int64
	renewed    atomic.Int64
	failed     atomic.Int64
	lastTick   atomic.Int64 // unix nanos
	stateError atomic.Bool
}

// New creates a Scheduler.
func New(state StateSource, submitter Submitter, opts ...Option) (*Scheduler, error) {
	if state == nil || submitter == nil {
		return nil, ErrNilDependency
	}

	o := options{
		interval:        DefaultInterval,
		renewBefore:     DefaultRenewBefore,
		shutdownTimeout: DefaultShutdownTimeout,
		concurrency:     DefaultConcurrency,
		now:             time.Now,
		logger:          logger.Nop(),
	}
	for _, opt := range opts {
		opt(&o)
	}

	return &Scheduler{state: state, submitter: submitter, opts: o}, nil
}

// Check runs a single tick. It only fails when the state cannot be loaded;
// per-certificate failures are counted in the report.
func (s *Scheduler) Check(ctx context.Context) (Report, error) {
	var report Report
	s.ticks.Add(1)
	s.lastTick.Store(s.opts.now().UnixNano())

	state, err := s.state.CurrentState(ctx)
	if err != nil {
		s.stateError.Store(true)
		return report, fmt.Errorf("load certificate state: %w", err)
	}
	s.stateError.Store(false)

	deadline := s.opts.now().Add(s.opts.renewBefore)
	due := state.ExpiringBefore(deadline)
	report.Due = len(due)
	if len(due) > 0 {
		s.opts.logger.InfoContext(ctx, "found certificates to renew",
			logger.Count("due", len(due)),
			slog.Time("deadline", deadline))
	}

	var renewed, failed, rejected atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.concurrency)
	for _, c := range due {
		if gctx.Err() != nil {
			break
		}

		log := s.opts.logger.With(logger.Domain(c.Key().FQDN()))
		if c.Domain == "" || c.Wildcard == nil {
			rejected.Add(1)
			log.ErrorContext(ctx, "skipping renewal", logger.Error(fmt.Errorf("%w: %s", ErrInvalidEntry, c.Key())))
			continue
		}

		cmd := certificate.StartRenewCertificate{Domain: c.Domain, Subdomain: c.Subdomain, Wildcard: *c.Wildcard}
		g.Go(func() error {
			if _, err := s.submitter.Submit(gctx, cmd); err != nil {
				failed.Add(1)
				s.failed.Add(1)
				log.ErrorContext(gctx, "certificate renewal failed", logger.Error(err))
				return nil
			}
			renewed.Add(1)
			s.renewed.Add(1)
			log.InfoContext(gctx, "certificate renewal started")
			return nil
		})
	}
	_ = g.Wait()

	report.Renewed = int(renewed.Load())
	report.Failed = int(failed.Load())
	report.Rejected = int(rejected.Load())
	return report, nil
}

// Start ticks until ctx is done or Stop is called. The first check runs
// immediately.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.cancel != nil {
		s.mu.Unlock()
		return ErrAlreadyStarted
	}
	ctx, s.cancel = context.WithCancel(ctx)
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		if s.cancel != nil {
			s.cancel()
			s.cancel = nil
		}
		s.mu.Unlock()
	}()

	ticker := time.NewTicker(s.opts.interval)
	defer ticker.Stop()

	s.opts.logger.InfoContext(ctx, "renewal scheduler started",
		logger.Duration(s.opts.interval),
		slog.Duration("renew_before", s.opts.renewBefore))

	s.tick(ctx)
	for {
		select {
		case <-ctx.Done():
			s.opts.logger.InfoContext(context.Background(), "renewal scheduler stopping")
			return ctx.Err()
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

func (s *Scheduler) tick(ctx context.Context) {
	// Registering under the lock keeps Stop from waiting on a stale count.
	s.mu.Lock()
	if s.cancel == nil {
		s.mu.Unlock()
		return
	}
	s.wg.Add(1)
	s.mu.Unlock()
	defer s.wg.Done()

	// A tick must never take the scheduler down.
	defer func() {
		if r := recover(); r != nil {
			s.opts.logger.ErrorContext(ctx, "renewal tick panicked", slog.Any("panic", r))
		}
	}()

	report, err := s.Check(ctx)
	if err != nil {
		s.opts.logger.ErrorContext(ctx, "renewal tick failed", logger.Error(err))
		return
	}
	s.opts.logger.DebugContext(ctx, "renewal tick done",
		logger.Count("due", report.Due),
		logger.Count("renewed", report.Renewed),
		logger.Count("failed", report.Failed),
		logger.Count("rejected", report.Rejected))
}

// Stop cancels the loop and waits for the running tick, up to the shutdown timeout.
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	if s.cancel == nil {
		s.mu.Unlock()
		return ErrNotStarted
	}
	cancel := s.cancel
	s.cancel = nil
	s.mu.Unlock()

	cancel()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	timer := time.NewTimer(s.opts.shutdownTimeout)
	defer timer.Stop()

	select {
	case <-done:
		return nil
	case <-timer.C:
		s.opts.logger.WarnContext(context.Background(), "renewal scheduler shutdown timeout exceeded",
			logger.Duration(s.opts.shutdownTimeout))
		return ErrShutdownTimeout
	}
}

// Run returns a function suitable for errgroup.Go.
func (s *Scheduler) Run(ctx context.Context) func() error {
	return func() error {
		errCh := make(chan error, 1)
		go func() {
			errCh <- s.Start(ctx)
		}()

		select {
		case <-ctx.Done():
			_ = s.Stop()
			<-errCh
			return nil
		case err := <-errCh:
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil
			}
			return err
		}
	}
}

// Stats returns current counters.
func (s *Scheduler) Stats() Stats {
	s.mu.Lock()
	running := s.cancel != nil
	s.mu.Unlock()

	var last time.Time
	if ns := s.lastTick.Load(); ns != 0 {
		last = time.Unix(0, ns)
	}
	return Stats{
		Ticks:     s.ticks.Load(),
		Renewed:   s.renewed.Load(),
		Failed:    s.failed.Load(),
		LastTick:  last,
		IsRunning: running,
	}
}

// Healthcheck reports whether the scheduler is running and could read state
// on its last tick.
func (s *Scheduler) Healthcheck(ctx context.Context) error {
	if !s.Stats().IsRunning {
		return errors.Join(ErrHealthcheckFailed, ErrSchedulerNotRunning)
	}
	if s.stateError.Load() {
		return errors.Join(ErrHealthcheckFailed, ErrStateUnavailable)
	}
	return nil
}
