package lego

import (
	"context"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/crypto/acme/autocert"

	"github.com/dmitrymomot/letsautomate/core/challenge"
)

// Account store kinds accepted by ACME_ACCOUNT_STORE.
const (
	StorePostgres = "postgres"
	StoreDir      = "dir"
	StoreMemory   = "memory"
)

// Config holds the ACME client settings.
type Config struct {
	DirectoryURL    string `env:"ACME_DIRECTORY_URL" envDefault:"https://acme-v02.api.letsencrypt.org/directory"`
	Email           string `env:"ACME_EMAIL"`
	UserAgent       string `env:"ACME_USER_AGENT" envDefault:"letsautomate"`
	AccountStore    string `env:"ACME_ACCOUNT_STORE" envDefault:"postgres"`
	AccountCacheDir string `env:"ACME_ACCOUNT_CACHE_DIR" envDefault:"./acme-accounts"`
}

// NewFromConfig creates a Client from cfg. Explicit opts override cfg.
func NewFromConfig(cfg Config, opts ...Option) *Client {
	base := []Option{
		WithDirectoryURL(cfg.DirectoryURL),
		WithEmail(cfg.Email),
		WithUserAgent(cfg.UserAgent),
	}
	return New(append(base, opts...)...)
}

// NewAccountStoreFromConfig builds the store selected by cfg.AccountStore.
// The postgres store migrates its table before returning.
func NewAccountStoreFromConfig(ctx context.Context, cfg Config, pool *pgxpool.Pool, log *slog.Logger) (challenge.AccountStore, error) {
	switch cfg.AccountStore {
	case StorePostgres:
		if err := MigrateAccounts(ctx, pool, log); err != nil {
			return nil, err
		}
		return NewPostgresAccountStore(pool)
	case StoreDir:
		return NewCacheAccountStore(autocert.DirCache(cfg.AccountCacheDir))
	case StoreMemory:
		return NewMemoryAccountStore(), nil
	default:
		return nil, ErrUnknownStore
	}
}
