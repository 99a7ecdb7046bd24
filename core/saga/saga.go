package saga

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/dmitrymomot/letsautomate/core/eventlog"
	"github.com/dmitrymomot/letsautomate/core/logger"
)

// DeriveFunc maps a stored event to at most one command.
type DeriveFunc[C any] func(eventlog.StoredEvent) (C, bool, error)

// SubmitFunc runs a command. Its error is logged; whether the offset is
// committed afterwards depends on the redeliver policy.
type SubmitFunc[C any] func(ctx context.Context, cmd C) error

// Stats are the saga counters.
type Stats struct {
	Processed int64
	Submitted int64
	Failed    int64
	Offset    int64
}

// Saga reacts to events with follow-up commands.
type Saga[C any] struct {
	log     eventlog.Log
	groupID string
	derive  DeriveFunc[C]
	submit  SubmitFunc[C]
	opts    sagaOptions

	processed atomic.Int64
	submitted atomic.Int64
	failed    atomic.Int64
	offset    atomic.Int64
}

// New creates a Saga consuming log as groupID.
func New[C any](log eventlog.Log, groupID string, derive DeriveFunc[C], submit SubmitFunc[C], opts ...Option) *Saga[C] {
	o := sagaOptions{
		pollInterval: eventlog.DefaultPollInterval,
		redeliver:    notRecorded,
		logger:       logger.Nop(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	return &Saga[C]{log: log, groupID: groupID, derive: derive, submit: submit, opts: o}
}

// Run processes events until ctx is done, which returns nil, or until the
// stream, a commit or an unrecorded submit fails.
func (s *Saga[C]) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	log := s.opts.logger.With(logger.GroupID(s.groupID))

	feed, err := eventlog.SubscribeFromGroupOffset(ctx, s.log, s.groupID, eventlog.WithPollInterval(s.opts.pollInterval))
	if err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("%w: %w", ErrStreamFailed, err)
	}
	log.InfoContext(ctx, "saga started")

	for ev := range feed.Events() {
		if err := s.handle(ctx, log, ev); err != nil {
			return err
		}
		if ctx.Err() != nil {
			return nil
		}
	}

	if err := feed.Err(); err != nil {
		return fmt.Errorf("%w: %w", ErrStreamFailed, err)
	}
	return nil
}

// Stats returns current counters.
func (s *Saga[C]) Stats() Stats {
	return Stats{
		Processed: s.processed.Load(),
		Submitted: s.submitted.Load(),
		Failed:    s.failed.Load(),
		Offset:    s.offset.Load(),
	}
}

func (s *Saga[C]) handle(ctx context.Context, log *slog.Logger, ev eventlog.StoredEvent) error {
	log = log.With(logger.Sequence(ev.Sequence), logger.EventType(ev.Type))

	cmd, ok, err := s.derive(ev)
	switch {
	case err != nil:
		log.WarnContext(ctx, "skipping undecodable event", logger.Error(err))
	case ok:
		err := s.submit(ctx, cmd)
		if ctx.Err() != nil {
			// Cancelled mid-command: leave the offset so the event is redelivered.
			return nil
		}
		s.submitted.Add(1)
		if err != nil {
			s.failed.Add(1)
			if s.opts.redeliver(err) {
				return fmt.Errorf("%w: sequence %d: %w", ErrRedeliver, ev.Sequence, err)
			}
			log.WarnContext(ctx, "follow-up command failed", logger.Error(err))
		} else {
			log.DebugContext(ctx, "follow-up command submitted")
		}
	}

	if err := s.log.Commit(ctx, s.groupID, ev.Sequence); err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("%w: sequence %d: %w", ErrCommitFailed, ev.Sequence, err)
	}
	s.offset.Store(ev.Sequence)
	s.processed.Add(1)
	return nil
}
