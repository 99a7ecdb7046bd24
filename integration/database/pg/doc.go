// Package pg connects to PostgreSQL through a pgx connection pool, applies
// goose migrations and carries transactions through context.
//
//	var cfg pg.Config
//	config.MustLoad(&cfg)
//
//	pool, err := pg.Connect(ctx, cfg)
//	if err != nil {
//		return err
//	}
//	defer pool.Close()
//
// Connect retries the initial connection RetryAttempts times, RetryInterval
// apart, and pings the pool before returning it.
//
// Stores accept a Beginner (the pool) and resolve the connection per call with
// Conn, so a caller can group several writes into one transaction:
//
//	err := pg.InTx(ctx, pool, func(ctx context.Context, tx pgx.Tx) error {
//		if _, err := events.Append(ctx, rec); err != nil {
//			return err
//		}
//		return events.Commit(ctx, "certificate-saga", seq)
//	})
//
// Migrate applies migrations from PG_MIGRATIONS_PATH. MigrateFS applies
// migrations embedded in a package, tracked in their own version table.
//
// IsNotFoundError, IsDuplicateKeyError, IsForeignKeyViolationError and
// IsTxClosedError classify pgx errors.
package pg
