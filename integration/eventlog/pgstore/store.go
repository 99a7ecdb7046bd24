package pgstore

import (
	"context"
	"embed"
	"encoding/json"
	"log/slog"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dmitrymomot/letsautomate/core/eventlog"
	"github.com/dmitrymomot/letsautomate/integration/database/pg"
)

//go:embed migrations/*.sql
var migrations embed.FS

// MigrationsTable tracks the versions of this package's schema.
const MigrationsTable = "certificate_events_migrations"

// appendLockKey identifies the advisory lock serializing appends.
const appendLockKey int64 = 0x6c65747361757430

const (
	eventColumns = `sequence, unique_id, entity_id, event_type, version, payload, metadata, created_at`

	lockSQL       = `SELECT pg_advisory_xact_lock($1)`
	notifySQL     = `SELECT pg_notify($1, $2)`
	byUniqueIDSQL = `SELECT ` + eventColumns + ` FROM certificate_events WHERE unique_id = $1`
	insertSQL     = `INSERT INTO certificate_events (unique_id, entity_id, event_type, version, payload, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5::jsonb, $6::jsonb, $7)
		RETURNING ` + eventColumns
	sinceSQL     = `SELECT ` + eventColumns + ` FROM certificate_events WHERE sequence > $1 ORDER BY sequence`
	forEntitySQL = `SELECT ` + eventColumns + ` FROM certificate_events WHERE entity_id = $1 AND sequence > $2 ORDER BY sequence`
	lastSeqSQL   = `SELECT COALESCE(MAX(sequence), 0) FROM certificate_events`
	commitSQL    = `INSERT INTO certificate_events_offsets (group_id, sequence, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (group_id) DO UPDATE
		SET sequence = GREATEST(certificate_events_offsets.sequence, EXCLUDED.sequence), updated_at = now()`
	offsetSQL = `SELECT sequence FROM certificate_events_offsets WHERE group_id = $1`
)

var _ eventlog.Log = (*Store)(nil)

// Migrate creates or upgrades the event log schema.
func Migrate(ctx context.Context, pool *pgxpool.Pool, log *slog.Logger) error {
	return pg.MigrateFS(ctx, pool, migrations, "migrations", MigrationsTable, log)
}

// Store is an eventlog.Log backed by PostgreSQL.
type Store struct {
	pool     *pgxpool.Pool
	opts     options
	notifier *eventlog.Notifier
	closed   atomic.Bool

	mu       sync.Mutex
	notified int64
}

// New creates a store on pool. The schema must exist; see Migrate.
func New(pool *pgxpool.Pool, opts ...Option) (*Store, error) {
	if pool == nil {
		return nil, ErrNilPool
	}
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return &Store{
		pool:     pool,
		opts:     o,
		notifier: eventlog.NewNotifier(o.notifyBuffer),
	}, nil
}

func (s *Store) Append(ctx context.Context, rec eventlog.Record) (eventlog.StoredEvent, error) {
	if err := ctx.Err(); err != nil {
		return eventlog.StoredEvent{}, err
	}
	if err := rec.Validate(); err != nil {
		return eventlog.StoredEvent{}, err
	}
	if s.closed.Load() {
		return eventlog.StoredEvent{}, eventlog.ErrClosed
	}
	if rec.UniqueID == "" {
		rec.UniqueID = uuid.NewString()
	}
	if rec.Timestamp.IsZero() {
		rec.Timestamp = s.opts.now()
	}

	var ev eventlog.StoredEvent
	err := pg.InTx(ctx, s.pool, func(ctx context.Context, tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, lockSQL, appendLockKey); err != nil {
			return err
		}

		existing, err := scanEvent(tx.QueryRow(ctx, byUniqueIDSQL, rec.UniqueID))
		switch {
		case err == nil:
			ev = existing
			return nil
		case !pg.IsNotFoundError(err):
			return err
		}

		ev, err = scanEvent(tx.QueryRow(ctx, insertSQL,
			rec.UniqueID, rec.EntityID, rec.Type, rec.Version,
			string(rec.Payload), nullableJSON(rec.Metadata), rec.Timestamp.UTC(),
		))
		if err != nil {
			return err
		}
		_, err = tx.Exec(ctx, notifySQL, s.opts.channel, strconv.FormatInt(ev.Sequence, 10))
		return err
	})
	if err != nil {
		return eventlog.StoredEvent{}, storageErr(ctx, err)
	}

	// Inside a caller's transaction the row is not visible yet; NOTIFY fires on commit.
	if _, inTx := pg.TxFromContext(ctx); !inTx {
		s.notify(ctx, ev)
	}
	return ev, nil
}

func (s *Store) LoadAll(ctx context.Context) ([]eventlog.StoredEvent, error) {
	return s.LoadSince(ctx, 0)
}

func (s *Store) LoadSince(ctx context.Context, seq int64) ([]eventlog.StoredEvent, error) {
	if seq < 0 {
		return nil, eventlog.ErrInvalidSequence
	}
	return s.query(ctx, sinceSQL, seq)
}

func (s *Store) LoadForEntity(ctx context.Context, entityID string, seq int64) ([]eventlog.StoredEvent, error) {
	if seq < 0 {
		return nil, eventlog.ErrInvalidSequence
	}
	return s.query(ctx, forEntitySQL, entityID, seq)
}

func (s *Store) Subscribe(ctx context.Context) *eventlog.Subscription {
	return s.notifier.Subscribe(ctx)
}

func (s *Store) Commit(ctx context.Context, groupID string, seq int64) error {
	if groupID == "" {
		return eventlog.ErrMissingGroupID
	}
	if seq < 0 {
		return eventlog.ErrInvalidSequence
	}
	if _, err := pg.Conn(ctx, s.pool).Exec(ctx, commitSQL, groupID, seq); err != nil {
		return storageErr(ctx, err)
	}
	return nil
}

func (s *Store) Offset(ctx context.Context, groupID string) (int64, error) {
	if groupID == "" {
		return 0, eventlog.ErrMissingGroupID
	}
	var seq int64
	err := pg.Conn(ctx, s.pool).QueryRow(ctx, offsetSQL, groupID).Scan(&seq)
	switch {
	case err == nil:
		return seq, nil
	case pg.IsNotFoundError(err):
		return 0, nil
	default:
		return 0, storageErr(ctx, err)
	}
}

// LastSequence returns the highest stored sequence, 0 for an empty log.
func (s *Store) LastSequence(ctx context.Context) (int64, error) {
	var seq int64
	if err := pg.Conn(ctx, s.pool).QueryRow(ctx, lastSeqSQL).Scan(&seq); err != nil {
		return 0, storageErr(ctx, err)
	}
	return seq, nil
}

// Close rejects further appends and ends live subscriptions. The pool stays open.
func (s *Store) Close() error {
	s.closed.Store(true)
	return s.notifier.Close()
}

func (s *Store) query(ctx context.Context, sql string, args ...any) ([]eventlog.StoredEvent, error) {
	rows, err := pg.Conn(ctx, s.pool).Query(ctx, sql, args...)
	if err != nil {
		return nil, storageErr(ctx, err)
	}
	events, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (eventlog.StoredEvent, error) {
		return scanEvent(row)
	})
	if err != nil {
		return nil, storageErr(ctx, err)
	}
	return events, nil
}

// notify forwards ev to live subscribers unless a later event was already sent.
func (s *Store) notify(ctx context.Context, ev eventlog.StoredEvent) {
	s.mu.Lock()
	if ev.Sequence <= s.notified {
		s.mu.Unlock()
		return
	}
	s.notified = ev.Sequence
	s.mu.Unlock()

	s.notifier.Notify(ctx, ev)
}

func (s *Store) lastNotified() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.notified
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEvent(row scanner) (eventlog.StoredEvent, error) {
	var (
		ev       eventlog.StoredEvent
		payload  []byte
		metadata []byte
	)
	err := row.Scan(&ev.Sequence, &ev.UniqueID, &ev.EntityID, &ev.Type, &ev.Version, &payload, &metadata, &ev.Timestamp)
	if err != nil {
		return eventlog.StoredEvent{}, err
	}
	ev.Payload = json.RawMessage(payload)
	if len(metadata) > 0 {
		ev.Metadata = json.RawMessage(metadata)
	}
	ev.Timestamp = ev.Timestamp.UTC()
	return ev, nil
}

func nullableJSON(raw json.RawMessage) any {
	if len(raw) == 0 {
		return nil
	}
	return string(raw)
}

// storageErr keeps cancellation distinguishable from storage failures.
func storageErr(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return eventlog.WrapStorage(err)
}
