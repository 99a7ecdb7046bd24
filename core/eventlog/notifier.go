package eventlog

import (
	"context"

	"github.com/dmitrymomot/letsautomate/pkg/broadcast"
)

// DefaultNotifyBuffer is the per-subscriber buffer of live notifications.
const DefaultNotifyBuffer = 256

// Notifier fans appended events out to live subscribers without blocking appends.
// Log implementations embed it.
type Notifier struct {
	b *broadcast.MemoryBroadcaster[StoredEvent]
}

// NewNotifier creates a notifier with the given per-subscriber buffer.
func NewNotifier(buffer int) *Notifier {
	if buffer <= 0 {
		buffer = DefaultNotifyBuffer
	}
	return &Notifier{b: broadcast.NewMemoryBroadcaster[StoredEvent](buffer)}
}

// Notify publishes ev to current subscribers. Slow subscribers miss it.
func (n *Notifier) Notify(ctx context.Context, ev StoredEvent) {
	_ = n.b.Broadcast(ctx, broadcast.Message[StoredEvent]{Data: ev})
}

// Subscribe starts a live subscription bound to ctx.
func (n *Notifier) Subscribe(ctx context.Context) *Subscription {
	ctx, cancel := context.WithCancel(ctx)
	sub := n.b.Subscribe(ctx)
	out := make(chan StoredEvent)

	go func() {
		defer close(out)
		defer cancel()
		for msg := range sub.Receive(ctx) {
			select {
			case out <- msg.Data:
			case <-ctx.Done():
				return
			}
		}
	}()

	return &Subscription{events: out, cancel: cancel}
}

// Dropped reports notifications skipped because a subscriber lagged.
func (n *Notifier) Dropped() int64 {
	return n.b.Dropped()
}

// Close ends all subscriptions.
func (n *Notifier) Close() error {
	return n.b.Close()
}

// Subscription is a live, best-effort stream of appended events.
type Subscription struct {
	events <-chan StoredEvent
	cancel context.CancelFunc
}

// Events is closed when the subscription ends.
func (s *Subscription) Events() <-chan StoredEvent {
	return s.events
}

// Close ends the subscription.
func (s *Subscription) Close() {
	s.cancel()
}
