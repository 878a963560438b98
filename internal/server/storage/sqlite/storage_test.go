package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/labsync/internal/models"
)

func setupTestStorage(t *testing.T) (*Storage, func()) {
	ctx := context.Background()

	// Используем in-memory database для тестов
	storage, err := New(ctx, ":memory:")
	require.NoError(t, err)

	cleanup := func() {
		_ = storage.Close()
	}

	return storage, cleanup
}

func createTestUser(t *testing.T, ctx context.Context, s *Storage) string {
	userID := uuid.New().String()
	err := s.CreateUser(ctx, &models.User{
		ID:          userID,
		Username:    "user_" + userID[:8],
		AuthKeyHash: "hash",
		PublicSalt:  "salt",
		CreatedAt:   time.Now(),
	})
	require.NoError(t, err)
	return userID
}

func TestNew_FileDatabase(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "server.db")

	s, err := New(ctx, path)
	require.NoError(t, err)

	v, err := s.SchemaVersion(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), v)
	require.NoError(t, s.Ping(ctx))
	require.NoError(t, s.Close())

	// повторное открытие не должно повторно применять миграции
	s, err = New(ctx, path)
	require.NoError(t, err)
	defer func() { _ = s.Close() }()
}

func TestDSN(t *testing.T) {
	assert.Equal(t, ":memory:", dsn(":memory:"))
	assert.Equal(t, "/tmp/a.db?_txlock=immediate", dsn("/tmp/a.db"))
	assert.Equal(t, "/tmp/a.db?cache=shared&_txlock=immediate", dsn("/tmp/a.db?cache=shared"))
}
