package eventlog

import "context"

// Log is the append-only event log plus consumer-group offsets.
type Log interface {
	// Append assigns the next sequence, persists the record and notifies live subscribers.
	// On error the caller can assume neither that the record was stored nor that it was not.
	Append(ctx context.Context, rec Record) (StoredEvent, error)

	// LoadAll returns every event in ascending sequence order.
	LoadAll(ctx context.Context) ([]StoredEvent, error)
	// LoadSince returns events with a sequence strictly greater than seq.
	LoadSince(ctx context.Context, seq int64) ([]StoredEvent, error)
	// LoadForEntity returns the entity's events with a sequence strictly greater than seq.
	LoadForEntity(ctx context.Context, entityID string, seq int64) ([]StoredEvent, error)

	// Subscribe streams events appended after the call. Delivery is best effort.
	Subscribe(ctx context.Context) *Subscription

	// Commit records seq as the last event fully processed by groupID.
	// Committed offsets never move backwards.
	Commit(ctx context.Context, groupID string, seq int64) error
	// Offset returns the last committed sequence for groupID, 0 when none.
	Offset(ctx context.Context, groupID string) (int64, error)
}
