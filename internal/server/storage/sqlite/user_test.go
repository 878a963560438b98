package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/labsync/internal/models"
	"github.com/iudanet/labsync/internal/server/storage"
)

func TestUserStorage_CreateAndGet(t *testing.T) {
	ctx := context.Background()
	s, cleanup := setupTestStorage(t)
	defer cleanup()

	created := time.Now().UTC().Truncate(time.Millisecond)
	user := &models.User{
		ID:          uuid.New().String(),
		Username:    "alice",
		DisplayName: "Alice",
		Color:       "#ff0000",
		AuthKeyHash: "hash123",
		PublicSalt:  "salt123",
		CreatedAt:   created,
	}
	require.NoError(t, s.CreateUser(ctx, user))

	byID, err := s.GetUserByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, user, byID)

	byName, err := s.GetUserByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, user.ID, byName.ID)
	assert.Nil(t, byName.LastLogin)
}

func TestUserStorage_DuplicateUsername(t *testing.T) {
	ctx := context.Background()
	s, cleanup := setupTestStorage(t)
	defer cleanup()

	newUser := func() *models.User {
		return &models.User{
			ID:          uuid.New().String(),
			Username:    "duplicate",
			AuthKeyHash: "h",
			PublicSalt:  "s",
			CreatedAt:   time.Now(),
		}
	}

	require.NoError(t, s.CreateUser(ctx, newUser()))
	err := s.CreateUser(ctx, newUser())
	assert.ErrorIs(t, err, storage.ErrUserAlreadyExists)
}

func TestUserStorage_NotFound(t *testing.T) {
	ctx := context.Background()
	s, cleanup := setupTestStorage(t)
	defer cleanup()

	_, err := s.GetUserByID(ctx, "missing")
	assert.ErrorIs(t, err, storage.ErrUserNotFound)

	_, err = s.GetUserByUsername(ctx, "missing")
	assert.ErrorIs(t, err, storage.ErrUserNotFound)

	err = s.UpdateLastLogin(ctx, "missing", time.Now())
	assert.ErrorIs(t, err, storage.ErrUserNotFound)
}

func TestUserStorage_UpdateLastLogin(t *testing.T) {
	ctx := context.Background()
	s, cleanup := setupTestStorage(t)
	defer cleanup()

	userID := createTestUser(t, ctx, s)
	at := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	require.NoError(t, s.UpdateLastLogin(ctx, userID, at))

	user, err := s.GetUserByID(ctx, userID)
	require.NoError(t, err)
	require.NotNil(t, user.LastLogin)
	assert.True(t, at.Equal(*user.LastLogin))
}
