// Package eventlog defines the append-only event log that backs the
// certificate aggregates.
//
// Every appended record receives a globally unique, strictly increasing
// sequence number. Records are never mutated or deleted. Readers either replay
// a finite slice (LoadAll, LoadSince, LoadForEntity) or follow the log:
//
//	feed, err := eventlog.SubscribeFromGroupOffset(ctx, log, "certificate-saga")
//	if err != nil {
//		return err
//	}
//	for ev := range feed.Events() {
//		handle(ev)
//		_ = log.Commit(ctx, "certificate-saga", ev.Sequence)
//	}
//	return feed.Err()
//
// Live notifications (Subscribe) are best effort and may drop events for a
// slow subscriber. Follow and SubscribeFromGroupOffset only use them as a
// wake-up signal and always read the tail from storage, so their feeds are
// gap-free and ordered.
//
// MemoryLog is the in-process implementation. The PostgreSQL implementation
// lives in integration/eventlog/pgstore.
package eventlog
