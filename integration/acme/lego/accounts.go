package lego

import (
	"context"
	"crypto"
	"embed"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/crypto/acme/autocert"

	"github.com/dmitrymomot/letsautomate/core/challenge"
	"github.com/dmitrymomot/letsautomate/integration/database/pg"
	"github.com/dmitrymomot/letsautomate/pkg/certutil"
)

//go:embed migrations/*.sql
var migrations embed.FS

// AccountsMigrationsTable tracks the versions of the account key schema.
const AccountsMigrationsTable = "acme_accounts_migrations"

// cacheKeySuffix follows autocert's naming of its own account key entry.
const cacheKeySuffix = "+acme_account_key"

var (
	_ challenge.AccountStore = (*MemoryAccountStore)(nil)
	_ challenge.AccountStore = (*PostgresAccountStore)(nil)
	_ challenge.AccountStore = (*CacheAccountStore)(nil)
)

// MigrateAccounts creates or upgrades the acme_accounts table.
func MigrateAccounts(ctx context.Context, pool *pgxpool.Pool, log *slog.Logger) error {
	if pool == nil {
		return ErrNilPool
	}
	return pg.MigrateFS(ctx, pool, migrations, "migrations", AccountsMigrationsTable, log)
}

// MemoryAccountStore keeps account keys in process memory.
type MemoryAccountStore struct {
	mu   sync.Mutex
	keys map[string]crypto.Signer
}

// NewMemoryAccountStore creates an empty store.
func NewMemoryAccountStore() *MemoryAccountStore {
	return &MemoryAccountStore{keys: make(map[string]crypto.Signer)}
}

func (s *MemoryAccountStore) GetOrCreate(_ context.Context, accountID string) (crypto.Signer, error) {
	if accountID == "" {
		return nil, ErrEmptyAccountID
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if key, ok := s.keys[accountID]; ok {
		return key, nil
	}
	key, err := certutil.NewAccountKey()
	if err != nil {
		return nil, err
	}
	s.keys[accountID] = key
	return key, nil
}

// PostgresAccountStore keeps PEM-encoded account keys in acme_accounts.
type PostgresAccountStore struct {
	pool *pgxpool.Pool
}

// NewPostgresAccountStore creates a store on pool. See MigrateAccounts.
func NewPostgresAccountStore(pool *pgxpool.Pool) (*PostgresAccountStore, error) {
	if pool == nil {
		return nil, ErrNilPool
	}
	return &PostgresAccountStore{pool: pool}, nil
}

// GetOrCreate returns the stored key or generates one. Concurrent callers
// racing on a new id all end up with the key that was inserted first.
func (s *PostgresAccountStore) GetOrCreate(ctx context.Context, accountID string) (crypto.Signer, error) {
	if accountID == "" {
		return nil, ErrEmptyAccountID
	}
	db := pg.Conn(ctx, s.pool)

	key, err := s.load(ctx, db, accountID)
	if err == nil || !pg.IsNotFoundError(err) {
		return key, err
	}

	fresh, err := certutil.NewAccountKey()
	if err != nil {
		return nil, err
	}
	encoded, err := certutil.EncodePrivateKey(fresh)
	if err != nil {
		return nil, err
	}
	_, err = db.Exec(ctx,
		`INSERT INTO acme_accounts (id, private_key) VALUES ($1, $2) ON CONFLICT (id) DO NOTHING`,
		accountID, encoded)
	if err != nil {
		return nil, fmt.Errorf("store account key: %w", err)
	}
	return s.load(ctx, db, accountID)
}

func (s *PostgresAccountStore) load(ctx context.Context, db pg.Querier, accountID string) (crypto.Signer, error) {
	var encoded string
	err := db.QueryRow(ctx, `SELECT private_key FROM acme_accounts WHERE id = $1`, accountID).Scan(&encoded)
	if err != nil {
		return nil, err
	}
	return certutil.ParsePrivateKey(encoded)
}

// CacheAccountStore keeps account keys in an autocert.Cache.
type CacheAccountStore struct {
	mu    sync.Mutex
	cache autocert.Cache
}

// NewCacheAccountStore creates a store on cache, e.g. autocert.DirCache.
func NewCacheAccountStore(cache autocert.Cache) (*CacheAccountStore, error) {
	if cache == nil {
		return nil, ErrNilCache
	}
	return &CacheAccountStore{cache: cache}, nil
}

func (s *CacheAccountStore) GetOrCreate(ctx context.Context, accountID string) (crypto.Signer, error) {
	if accountID == "" {
		return nil, ErrEmptyAccountID
	}
	name := accountID + cacheKeySuffix

	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := s.cache.Get(ctx, name)
	switch {
	case err == nil:
		return certutil.ParsePrivateKey(string(data))
	case !errors.Is(err, autocert.ErrCacheMiss):
		return nil, fmt.Errorf("read account key: %w", err)
	}

	key, err := certutil.NewAccountKey()
	if err != nil {
		return nil, err
	}
	encoded, err := certutil.EncodePrivateKey(key)
	if err != nil {
		return nil, err
	}
	if err := s.cache.Put(ctx, name, []byte(encoded)); err != nil {
		return nil, fmt.Errorf("store account key: %w", err)
	}
	return key, nil
}
