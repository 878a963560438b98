package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/iudanet/labsync/internal/models"
	"github.com/iudanet/labsync/internal/server/storage"
)

// SaveRefreshToken stores a refresh token
func (s *Storage) SaveRefreshToken(ctx context.Context, token *models.RefreshToken) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO refresh_tokens (token, user_id, device_id, expires_at, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		token.Token,
		token.UserID,
		token.DeviceID,
		unixMilli(token.ExpiresAt),
		unixMilli(token.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to save refresh token: %w", err)
	}

	return nil
}

// GetRefreshToken retrieves refresh token by token value
func (s *Storage) GetRefreshToken(ctx context.Context, token string) (*models.RefreshToken, error) {
	var (
		rt                   models.RefreshToken
		expiresAt, createdAt int64
	)

	err := s.db.QueryRowContext(ctx, `
		SELECT token, user_id, device_id, expires_at, created_at
		FROM refresh_tokens
		WHERE token = ?`, token).Scan(&rt.Token, &rt.UserID, &rt.DeviceID, &expiresAt, &createdAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrTokenNotFound
		}
		return nil, fmt.Errorf("failed to get refresh token: %w", err)
	}

	rt.ExpiresAt = fromUnixMilli(expiresAt)
	rt.CreatedAt = fromUnixMilli(createdAt)

	return &rt, nil
}

// DeleteRefreshToken deletes refresh token by token value
func (s *Storage) DeleteRefreshToken(ctx context.Context, token string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM refresh_tokens WHERE token = ?`, token)
	if err != nil {
		return fmt.Errorf("failed to delete refresh token: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return storage.ErrTokenNotFound
	}

	return nil
}

// DeleteDeviceTokens deletes refresh tokens of a user on one device or on all devices
func (s *Storage) DeleteDeviceTokens(ctx context.Context, userID, deviceID string) (int, error) {
	query := `DELETE FROM refresh_tokens WHERE user_id = ?`
	args := []any{userID}
	if deviceID != "" {
		query += ` AND device_id = ?`
		args = append(args, deviceID)
	}

	result, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to delete user tokens: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return int(rows), nil
}

// DeleteExpiredTokens removes all expired tokens
func (s *Storage) DeleteExpiredTokens(ctx context.Context) (int, error) {
	result, err := s.db.ExecContext(ctx, `DELETE FROM refresh_tokens WHERE expires_at < ?`, unixMilli(s.now()))
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired tokens: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return int(rows), nil
}
