package pgstore

import (
	"context"
	"errors"
	"strconv"

	"github.com/jackc/pgx/v5"

	"github.com/dmitrymomot/letsautomate/core/logger"
)

// Listen relays appends committed by any process to local subscribers until
// ctx is done. It holds one pooled connection for its lifetime.
func (s *Store) Listen(ctx context.Context) error {
	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return listenErr(ctx, err)
	}
	defer conn.Release()

	channel := pgx.Identifier{s.opts.channel}.Sanitize()
	if _, err := conn.Exec(ctx, "LISTEN "+channel); err != nil {
		return listenErr(ctx, err)
	}
	defer func() {
		_, _ = conn.Exec(context.WithoutCancel(ctx), "UNLISTEN "+channel)
	}()

	last, err := s.LastSequence(ctx)
	if err != nil {
		return listenErr(ctx, err)
	}
	s.mu.Lock()
	s.notified = max(s.notified, last)
	s.mu.Unlock()

	s.opts.log.InfoContext(ctx, "listening for event log notifications",
		logger.Component("pgstore"),
		logger.Sequence(last),
	)

	for {
		n, err := conn.Conn().WaitForNotification(ctx)
		if err != nil {
			return listenErr(ctx, err)
		}

		seq, err := strconv.ParseInt(n.Payload, 10, 64)
		if err != nil {
			s.opts.log.WarnContext(ctx, "ignoring notification",
				logger.Component("pgstore"),
				logger.Error(errors.Join(ErrBadNotifyValue, err)),
			)
			continue
		}
		if seq <= s.lastNotified() {
			continue
		}

		batch, err := s.LoadSince(ctx, s.lastNotified())
		if err != nil {
			return listenErr(ctx, err)
		}
		for _, ev := range batch {
			s.notify(ctx, ev)
		}
	}
}

func listenErr(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return nil
	}
	return errors.Join(ErrListenFailed, err)
}
