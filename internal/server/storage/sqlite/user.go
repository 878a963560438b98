package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/iudanet/labsync/internal/models"
	"github.com/iudanet/labsync/internal/server/storage"
)

const selectUserColumns = `
	SELECT id, username, display_name, color, auth_key_hash, public_salt, created_at, last_login
	FROM users`

// CreateUser creates a new user in the storage
func (s *Storage) CreateUser(ctx context.Context, user *models.User) error {
	var lastLogin sql.NullInt64
	if user.LastLogin != nil {
		lastLogin = sql.NullInt64{Int64: unixMilli(*user.LastLogin), Valid: true}
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (id, username, display_name, color, auth_key_hash, public_salt, created_at, last_login)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		user.ID,
		user.Username,
		user.DisplayName,
		user.Color,
		user.AuthKeyHash,
		user.PublicSalt,
		unixMilli(user.CreatedAt),
		lastLogin,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return storage.ErrUserAlreadyExists
		}
		return fmt.Errorf("failed to insert user: %w", err)
	}

	return nil
}

// GetUserByUsername retrieves user by username
func (s *Storage) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	return scanUser(s.db.QueryRowContext(ctx, selectUserColumns+` WHERE username = ?`, username))
}

// GetUserByID retrieves user by ID
func (s *Storage) GetUserByID(ctx context.Context, userID string) (*models.User, error) {
	return scanUser(s.db.QueryRowContext(ctx, selectUserColumns+` WHERE id = ?`, userID))
}

// UpdateLastLogin updates the last login timestamp
func (s *Storage) UpdateLastLogin(ctx context.Context, userID string, lastLogin time.Time) error {
	result, err := s.db.ExecContext(ctx, `UPDATE users SET last_login = ? WHERE id = ?`, unixMilli(lastLogin), userID)
	if err != nil {
		return fmt.Errorf("failed to update last login: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return storage.ErrUserNotFound
	}

	return nil
}

func scanUser(row rowScanner) (*models.User, error) {
	var (
		user      models.User
		createdAt int64
		lastLogin sql.NullInt64
	)

	err := row.Scan(
		&user.ID,
		&user.Username,
		&user.DisplayName,
		&user.Color,
		&user.AuthKeyHash,
		&user.PublicSalt,
		&createdAt,
		&lastLogin,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	user.CreatedAt = fromUnixMilli(createdAt)
	user.LastLogin = timeFromNull(lastLogin)

	return &user, nil
}
