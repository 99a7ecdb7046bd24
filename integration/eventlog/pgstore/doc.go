// Package pgstore is the PostgreSQL implementation of eventlog.Log.
//
// Events live in certificate_events, consumer group offsets in
// certificate_events_offsets. Appends take a transaction-scoped advisory lock,
// so sequences become visible in commit order and a follower reading
// "sequence > n" never skips a row that commits later with a smaller number.
//
//	if err := pgstore.Migrate(ctx, pool, log); err != nil {
//		return err
//	}
//	store := pgstore.New(pool, pgstore.WithLogger(log))
//	g.Go(func() error { return store.Listen(ctx) })
//
// A record whose UniqueID is already stored is not appended twice; Append
// returns the stored event instead. Appends made through a context carrying a
// transaction (pg.WithTx) join that transaction and notify live subscribers
// only through PostgreSQL NOTIFY, which fires on commit.
//
// Listen relays NOTIFY messages from other processes to local subscribers.
// Without it, followers still observe foreign appends on their poll interval.
package pgstore
