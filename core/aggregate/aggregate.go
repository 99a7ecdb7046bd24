package aggregate

import (
	"context"

	"github.com/dmitrymomot/letsautomate/core/eventlog"
)

// Aggregate defines the domain side of command handling.
type Aggregate[S, C, E any] interface {
	// InitialState is the state before any event.
	InitialState() S
	// Apply folds one stored event into state. The runtime owns state
	// exclusively during a fold, so implementations may mutate it.
	Apply(state S, ev eventlog.StoredEvent) (S, error)
	// Key identifies the unit of consistency a command targets.
	Key(cmd C) string
	// Execute validates cmd against state and performs any external work.
	// A returned error is a rejection: nothing is persisted.
	Execute(ctx context.Context, state S, cmd C) (Decision[E], error)
	// Encode turns a decided event into a log record.
	Encode(ev E) (eventlog.Record, error)
}

// Decision is the single event produced by Execute.
type Decision[E any] struct {
	Event E
	// Err is set when Event records a failed external call. The runtime
	// persists Event and then returns Err to the caller.
	Err error
	// PersistRetries is the number of extra append attempts after a failure.
	PersistRetries int
}

// Accept decides a successful event.
func Accept[E any](ev E) Decision[E] {
	return Decision[E]{Event: ev}
}

// Fail decides a failure event that records cause.
func Fail[E any](ev E, cause error) Decision[E] {
	return Decision[E]{Event: ev, Err: External(cause)}
}

// WithRetries sets how many extra append attempts the decision gets.
func (d Decision[E]) WithRetries(n int) Decision[E] {
	d.PersistRetries = n
	return d
}
