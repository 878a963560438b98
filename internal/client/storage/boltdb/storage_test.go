package boltdb

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.etcd.io/bbolt"

	"github.com/iudanet/labsync/internal/client/storage"
)

// newTestStorage создает временное BoltDB хранилище
func newTestStorage(t *testing.T) *Storage {
	t.Helper()

	store, err := New(context.Background(), filepath.Join(t.TempDir(), "client.db"))
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = store.Close()
	})

	return store
}

func TestNew_Success(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "testdb.db")

	store, err := New(context.Background(), dbPath)
	require.NoError(t, err)
	defer func() {
		require.NoError(t, store.Close())
	}()

	info, err := os.Stat(dbPath)
	require.NoError(t, err)
	assert.False(t, info.IsDir())
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
	assert.Equal(t, dbPath, store.Path())

	err = store.db.View(func(tx *bbolt.Tx) error {
		for _, b := range allBuckets {
			if tx.Bucket(b) == nil {
				return os.ErrNotExist
			}
		}
		return nil
	})
	require.NoError(t, err)
}

func TestNew_InvalidPath(t *testing.T) {
	store, err := New(context.Background(), filepath.Join(t.TempDir(), "missing", "dir", "db"))
	assert.Error(t, err)
	assert.Nil(t, store)
}

func TestNew_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	store, err := New(ctx, filepath.Join(t.TempDir(), "testdb.db"))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, store)
}

func TestClose(t *testing.T) {
	store, err := New(context.Background(), filepath.Join(t.TempDir(), "testdb.db"))
	require.NoError(t, err)

	assert.NoError(t, store.Close())

	err = store.View(context.Background(), func(tx storage.Tx) error { return nil })
	assert.ErrorIs(t, err, storage.ErrStorageClosed)
}

func TestInitBuckets_CreatesBuckets(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "testdb.db")

	db, err := bbolt.Open(dbPath, 0600, nil)
	require.NoError(t, err)
	defer db.Close()

	store := &Storage{db: db}
	require.NoError(t, store.initBuckets())

	// Повторная инициализация не падает
	require.NoError(t, store.initBuckets())

	err = db.View(func(tx *bbolt.Tx) error {
		for _, b := range allBuckets {
			if tx.Bucket(b) == nil {
				return os.ErrNotExist
			}
		}
		return nil
	})
	assert.NoError(t, err)
}

func TestReopen_KeepsData(t *testing.T) {
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "testdb.db")

	store, err := New(ctx, dbPath)
	require.NoError(t, err)
	id, err := store.DeviceID(ctx)
	require.NoError(t, err)
	require.NoError(t, store.Close())

	store, err = New(ctx, dbPath)
	require.NoError(t, err)
	defer store.Close()

	again, err := store.DeviceID(ctx)
	require.NoError(t, err)
	assert.Equal(t, id, again)
}
