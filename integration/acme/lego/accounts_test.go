package lego_test

import (
	"context"
	"crypto/ecdsa"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/acme/autocert"

	"github.com/dmitrymomot/letsautomate/integration/acme/lego"
)

func TestMemoryAccountStoreReusesKey(t *testing.T) {
	t.Parallel()
	store := lego.NewMemoryAccountStore()
	ctx := context.Background()

	first, err := store.GetOrCreate(ctx, "letsautomate")
	require.NoError(t, err)
	again, err := store.GetOrCreate(ctx, "letsautomate")
	require.NoError(t, err)
	other, err := store.GetOrCreate(ctx, "other")
	require.NoError(t, err)

	assert.Same(t, first, again)
	assert.NotEqual(t, first.Public(), other.Public())
	_, isEC := first.(*ecdsa.PrivateKey)
	assert.True(t, isEC)

	_, err = store.GetOrCreate(ctx, "")
	assert.ErrorIs(t, err, lego.ErrEmptyAccountID)
}

func TestCacheAccountStorePersistsAcrossInstances(t *testing.T) {
	t.Parallel()
	dir := autocert.DirCache(t.TempDir())
	ctx := context.Background()

	store, err := lego.NewCacheAccountStore(dir)
	require.NoError(t, err)
	first, err := store.GetOrCreate(ctx, "letsautomate")
	require.NoError(t, err)

	reopened, err := lego.NewCacheAccountStore(dir)
	require.NoError(t, err)
	again, err := reopened.GetOrCreate(ctx, "letsautomate")
	require.NoError(t, err)

	assert.True(t, first.Public().(*ecdsa.PublicKey).Equal(again.Public()))
}

func TestCacheAccountStoreConcurrentCallersShareKey(t *testing.T) {
	t.Parallel()
	store, err := lego.NewCacheAccountStore(autocert.DirCache(t.TempDir()))
	require.NoError(t, err)

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		keys []*ecdsa.PublicKey
	)
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			key, err := store.GetOrCreate(context.Background(), "letsautomate")
			if !assert.NoError(t, err) {
				return
			}
			mu.Lock()
			keys = append(keys, key.Public().(*ecdsa.PublicKey))
			mu.Unlock()
		}()
	}
	wg.Wait()

	require.Len(t, keys, 8)
	for _, k := range keys[1:] {
		assert.True(t, keys[0].Equal(k))
	}
}

func TestStoreConstructorsRejectNil(t *testing.T) {
	t.Parallel()
	_, err := lego.NewCacheAccountStore(nil)
	assert.ErrorIs(t, err, lego.ErrNilCache)
	_, err = lego.NewPostgresAccountStore(nil)
	assert.ErrorIs(t, err, lego.ErrNilPool)
	assert.ErrorIs(t, lego.MigrateAccounts(context.Background(), nil, nil), lego.ErrNilPool)
}

func TestNewAccountStoreFromConfig(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	store, err := lego.NewAccountStoreFromConfig(ctx, lego.Config{AccountStore: lego.StoreMemory}, nil, nil)
	require.NoError(t, err)
	assert.IsType(t, &lego.MemoryAccountStore{}, store)

	store, err = lego.NewAccountStoreFromConfig(ctx, lego.Config{AccountStore: lego.StoreDir, AccountCacheDir: t.TempDir()}, nil, nil)
	require.NoError(t, err)
	assert.IsType(t, &lego.CacheAccountStore{}, store)

	_, err = lego.NewAccountStoreFromConfig(ctx, lego.Config{AccountStore: "s3"}, nil, nil)
	assert.ErrorIs(t, err, lego.ErrUnknownStore)

	_, err = lego.NewAccountStoreFromConfig(ctx, lego.Config{AccountStore: lego.StorePostgres}, nil, nil)
	assert.ErrorIs(t, err, lego.ErrNilPool)
}
