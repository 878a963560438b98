package storage

import (
	"context"

	"github.com/iudanet/labsync/internal/models"
)

//go:generate moq -out token_mock.go . TokenStorage

// TokenStorage defines interface for refresh token persistence
type TokenStorage interface {
	// SaveRefreshToken stores a refresh token, replacing one with the same value
	SaveRefreshToken(ctx context.Context, token *models.RefreshToken) error

	// GetRefreshToken retrieves refresh token by value
	// Returns ErrTokenNotFound if token doesn't exist
	GetRefreshToken(ctx context.Context, token string) (*models.RefreshToken, error)

	// DeleteRefreshToken deletes refresh token by value
	// Returns ErrTokenNotFound if token doesn't exist
	DeleteRefreshToken(ctx context.Context, token string) error

	// DeleteDeviceTokens deletes user's tokens issued for one device.
	// Empty deviceID deletes tokens of all devices. Returns number of deleted tokens.
	DeleteDeviceTokens(ctx context.Context, userID, deviceID string) (int, error)

	// DeleteExpiredTokens removes all expired tokens
	DeleteExpiredTokens(ctx context.Context) (int, error)
}
