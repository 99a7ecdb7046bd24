// Package async runs background work as futures that callers may await later.
//
// Exec starts a function in its own goroutine and returns an ExecFuture:
//
//	f := async.Exec(ctx, record, deleteRecord)
//	// ...
//	if err := f.AwaitWithTimeout(time.Minute); errors.Is(err, async.ErrTimeout) {
//		log.Println("cleanup still running")
//	}
//
// A Tracker remembers every future it was handed so that a component which
// fires work and forgets it (DNS record cleanup, for example) can still drain
// that work on shutdown:
//
//	var t async.Tracker
//	t.Track(async.Exec(ctx, rec, cleanup))
//	t.Wait()
//
// ExecAll waits for a set of futures and joins their errors.
package async
