package aggregate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"

	"github.com/dmitrymomot/letsautomate/core/eventlog"
	"github.com/dmitrymomot/letsautomate/core/logger"
)

// Runtime executes commands for one Aggregate against a Log.
type Runtime[S, C, E any] struct {
	log  eventlog.Log
	agg  Aggregate[S, C, E]
	opts options
}

// New creates a Runtime.
func New[S, C, E any](log eventlog.Log, agg Aggregate[S, C, E], opts ...Option) *Runtime[S, C, E] {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if o.locker == nil {
		o.locker = NewMemoryLocker()
	}
	return &Runtime[S, C, E]{log: log, agg: agg, opts: o}
}

// CurrentState replays the whole log. The result belongs to the caller.
func (r *Runtime[S, C, E]) CurrentState(ctx context.Context) (S, error) {
	state := r.agg.InitialState()

	events, err := r.log.LoadAll(ctx)
	if err != nil {
		return state, fmt.Errorf("%w: load events: %w", ErrStorage, err)
	}
	for _, ev := range events {
		if state, err = r.agg.Apply(state, ev); err != nil {
			return state, fmt.Errorf("%w: apply event %d (%s): %w", ErrStorage, ev.Sequence, ev.Type, err)
		}
	}
	return state, nil
}

// Submit validates and executes cmd, then persists exactly one event.
//
// A rejection returns a ValidationError and persists nothing. A failed external
// call persists the failure event and returns it together with an
// ExternalError. A persistence failure returns ErrStorage.
func (r *Runtime[S, C, E]) Submit(ctx context.Context, cmd C) (E, error) {
	var zero E
	key := r.agg.Key(cmd)
	log := r.opts.logger.With(slog.String("key", key))

	unlock, err := r.opts.locker.Lock(ctx, key)
	if err != nil {
		return zero, fmt.Errorf("%w %q: %w", ErrLock, key, err)
	}
	defer unlock()

	state, err := r.CurrentState(ctx)
	if err != nil {
		return zero, err
	}

	decision, err := r.agg.Execute(ctx, state, cmd)
	if err != nil {
		if errors.Is(err, ErrValidation) {
			log.DebugContext(ctx, "command rejected", logger.Error(err))
		}
		return zero, err
	}

	rec, err := r.agg.Encode(decision.Event)
	if err != nil {
		return zero, fmt.Errorf("%w: encode event: %w", ErrStorage, err)
	}
	// A stable id lets stores deduplicate an append retried after an ambiguous failure.
	if rec.UniqueID == "" {
		rec.UniqueID = uuid.NewString()
	}

	stored, err := r.persist(ctx, rec, decision.PersistRetries)
	if err != nil {
		log.ErrorContext(ctx, "failed to persist event",
			logger.EventType(rec.Type),
			logger.Error(err),
			logger.Errors(decision.Err))
		return zero, fmt.Errorf("%w: append %s: %w", ErrStorage, rec.Type, err)
	}

	if decision.Err != nil {
		log.WarnContext(ctx, "external call failed, failure recorded",
			logger.EventType(stored.Type),
			logger.Sequence(stored.Sequence),
			logger.Error(decision.Err))
		return decision.Event, decision.Err
	}

	log.DebugContext(ctx, "event persisted",
		logger.EventType(stored.Type),
		logger.Sequence(stored.Sequence))
	return decision.Event, nil
}

// persist appends rec on a context detached from the caller's cancellation:
// once external work has produced an outcome it must be recorded.
func (r *Runtime[S, C, E]) persist(ctx context.Context, rec eventlog.Record, retries int) (eventlog.StoredEvent, error) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.opts.persistTimeout)
	defer cancel()

	if retries <= 0 {
		return r.log.Append(ctx, rec)
	}

	var stored eventlog.StoredEvent
	attempt := 0
	op := func() error {
		attempt++
		ev, err := r.log.Append(ctx, rec)
		if err != nil {
			if !errors.Is(err, eventlog.ErrStorage) {
				return backoff.Permanent(err)
			}
			return err
		}
		stored = ev
		return nil
	}
	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(r.opts.retryInterval), uint64(retries)),
		ctx,
	)
	notify := func(err error, _ time.Duration) {
		r.opts.logger.WarnContext(ctx, "append failed, retrying",
			logger.EventType(rec.Type),
			logger.RetryCount(attempt),
			logger.Error(err))
	}
	if err := backoff.RetryNotify(op, policy, notify); err != nil {
		return eventlog.StoredEvent{}, err
	}
	return stored, nil
}
