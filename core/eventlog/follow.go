package eventlog

import (
	"context"
	"errors"
	"time"
)

// DefaultPollInterval bounds how long a follower waits before re-reading storage
// when no live notification arrives. It covers appends made by other processes.
const DefaultPollInterval = time.Second

// FollowOption configures Follow and SubscribeFromGroupOffset.
type FollowOption func(*followOptions)

type followOptions struct {
	pollInterval time.Duration
}

// WithPollInterval sets the storage re-read interval.
func WithPollInterval(d time.Duration) FollowOption {
	return func(o *followOptions) {
		if d > 0 {
			o.pollInterval = d
		}
	}
}

// Feed is an ordered, gap-free stream of stored events.
type Feed struct {
	events chan StoredEvent
	done   chan struct{}
	err    error
}

// Events yields events in sequence order. The channel is closed when the feed
// ends, after which Err reports why.
func (f *Feed) Events() <-chan StoredEvent {
	return f.events
}

// Err returns the storage error that ended the feed. It returns nil while the
// feed is running and after a normal end caused by context cancellation.
func (f *Feed) Err() error {
	select {
	case <-f.done:
		return f.err
	default:
		return nil
	}
}

// Done is closed when the feed has ended.
func (f *Feed) Done() <-chan struct{} {
	return f.done
}

// Follow streams every event with a sequence greater than since, then keeps
// streaming new appends until ctx is done or storage fails.
func Follow(ctx context.Context, log Log, since int64, opts ...FollowOption) *Feed {
	o := followOptions{pollInterval: DefaultPollInterval}
	for _, opt := range opts {
		opt(&o)
	}

	f := &Feed{
		events: make(chan StoredEvent),
		done:   make(chan struct{}),
	}

	// Subscribe before the first read so no append falls between the two.
	sub := log.Subscribe(ctx)

	go func() {
		defer close(f.done)
		defer close(f.events)
		defer sub.Close()

		ticker := time.NewTicker(o.pollInterval)
		defer ticker.Stop()

		cursor := since
		for {
			batch, err := log.LoadSince(ctx, cursor)
			if err != nil {
				if ctx.Err() == nil && !errors.Is(err, context.Canceled) {
					f.err = WrapStorage(err)
				}
				return
			}
			for _, ev := range batch {
				select {
				case f.events <- ev:
					cursor = ev.Sequence
				case <-ctx.Done():
					return
				}
			}

			select {
			case <-ctx.Done():
				return
			case _, ok := <-sub.Events():
				if !ok {
					// Live side ended (log closed). Keep polling storage.
					sub = closedSubscription()
				}
			case <-ticker.C:
			}
		}
	}()

	return f
}

// SubscribeFromGroupOffset replays events after groupID's committed offset and
// then continues live, as one continuous feed. Re-subscribing resumes from the
// same offset until the consumer commits.
func SubscribeFromGroupOffset(ctx context.Context, log Log, groupID string, opts ...FollowOption) (*Feed, error) {
	offset, err := log.Offset(ctx, groupID)
	if err != nil {
		return nil, err
	}
	return Follow(ctx, log, offset, opts...), nil
}

// closedSubscription never delivers, so the follower falls back to its ticker.
func closedSubscription() *Subscription {
	return &Subscription{events: make(chan StoredEvent), cancel: func() {}}
}
