// Package aggregate runs event-sourced command handling over an eventlog.Log.
//
// An Aggregate describes how to fold stored events into state and how to turn
// a command into exactly one event. The Runtime adds the plumbing: per-key
// locking, replay, validation, persistence with retries, and the error
// taxonomy callers branch on.
//
//	rt := aggregate.New(log, certificates,
//		aggregate.WithLocker(aggregate.NewMemoryLocker()),
//		aggregate.WithLogger(log),
//	)
//	ev, err := rt.Submit(ctx, cmd)
//	switch {
//	case errors.Is(err, aggregate.ErrValidation):
//		// rejected, nothing persisted
//	case errors.Is(err, aggregate.ErrExternalService):
//		// ev is the persisted failure event
//	case errors.Is(err, aggregate.ErrStorage):
//		// persistence outcome unknown
//	}
//
// Submissions for the same key are serialized through a Locker, so two
// concurrent commands can never both validate against the same stale state.
// Submissions for different keys run in parallel.
package aggregate
