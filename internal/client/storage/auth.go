package storage

import (
	"context"
	"time"
)

//go:generate moq -out auth_mock.go . AuthStorage

// AuthStorage defines interface for storing authentication data on client
type AuthStorage interface {
	// SaveAuth stores authentication data, replacing the previous session
	SaveAuth(ctx context.Context, auth *AuthData) error

	// GetAuth retrieves stored authentication data
	// Returns ErrAuthNotFound if no auth data exists
	GetAuth(ctx context.Context) (*AuthData, error)

	// DeleteAuth removes stored authentication data (logout)
	// Returns ErrAuthNotFound if no auth data exists
	DeleteAuth(ctx context.Context) error
}

// AuthData сессия пользователя на устройстве
type AuthData struct {
	Username     string `json:"username"`
	UserID       string `json:"user_id"`
	DisplayName  string `json:"display_name,omitempty"`
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	PublicSalt   string `json:"public_salt"`
	ExpiresAt    int64  `json:"expires_at"` // unix seconds, срок действия access token
}

// AccessTokenValid сообщает, что access token еще не истек
func (a *AuthData) AccessTokenValid(now time.Time) bool {
	return a.AccessToken != "" && now.Unix() < a.ExpiresAt
}
