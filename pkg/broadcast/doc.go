// Package broadcast is a generic in-process fan-out.
//
// A MemoryBroadcaster delivers every message to all current subscribers without
// blocking the sender: each subscriber owns a bounded buffer and messages that
// do not fit are dropped for that subscriber only. Consumers that cannot
// tolerate gaps must treat deliveries as hints and re-read the source of truth.
//
//	b := broadcast.NewMemoryBroadcaster[int](64)
//	defer b.Close()
//
//	sub := b.Subscribe(ctx)
//	go func() {
//		for msg := range sub.Receive(ctx) {
//			fmt.Println(msg.Data)
//		}
//	}()
//
//	_ = b.Broadcast(ctx, broadcast.Message[int]{Data: 42})
//
// Subscriptions end when their context is cancelled, when Close is called on
// them, or when the broadcaster is closed. All types are safe for concurrent use.
package broadcast
