package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"

	clientapi "github.com/iudanet/labsync/internal/client/api"
	"github.com/iudanet/labsync/internal/client/storage"
	"github.com/iudanet/labsync/internal/crypto"
	"github.com/iudanet/labsync/internal/syncerr"
	"github.com/iudanet/labsync/internal/validation"
	"github.com/iudanet/labsync/pkg/api"
)

// ErrNotLoggedIn на устройстве нет сохраненной сессии
var ErrNotLoggedIn = errors.New("not logged in")

// expirySkew запас, с которым access token считается истекшим заранее
const expirySkew = 30 * time.Second

// Service регистрирует пользователей, ведет сессию устройства и выдает access token синхронизации
type Service struct {
	api     API
	store   storage.AuthStorage
	devices DeviceIDSource
	logger  *slog.Logger
	now     func() time.Time
	refresh singleflight.Group
}

// NewService создает новый сервис авторизации
func NewService(logger *slog.Logger, apiClient API, store storage.AuthStorage, devices DeviceIDSource) *Service {
	return &Service{
		api:     apiClient,
		store:   store,
		devices: devices,
		logger:  logger,
		now:     time.Now,
	}
}

// WithClock подменяет источник времени (для тестов)
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// RegisterParams данные для регистрации
type RegisterParams struct {
	Username    string
	Password    string
	DisplayName string
	Color       string
}

// RegisterResult содержит результат регистрации
type RegisterResult struct {
	UserID     string // UUID пользователя
	Username   string
	PublicSalt string // public salt (base64)
}

// Register регистрирует нового пользователя.
// Пароль на сервер не передается: отправляется только хеш ключа, выведенного через Argon2.
func (s *Service) Register(ctx context.Context, p RegisterParams) (*RegisterResult, error) {
	if err := validation.ValidateUsername(p.Username); err != nil {
		return nil, fmt.Errorf("invalid username: %w", err)
	}
	if err := validation.ValidatePassword(p.Password); err != nil {
		return nil, fmt.Errorf("invalid password: %w", err)
	}
	if err := validation.ValidateDisplayName(p.DisplayName); err != nil {
		return nil, fmt.Errorf("invalid display name: %w", err)
	}
	if err := validation.ValidateColor(p.Color); err != nil {
		return nil, fmt.Errorf("invalid color: %w", err)
	}

	salt, err := crypto.GenerateSaltBase64()
	if err != nil {
		return nil, fmt.Errorf("failed to generate salt: %w", err)
	}

	authKeyHash, err := crypto.DeriveAuthKeyHash(p.Password, p.Username, salt)
	if err != nil {
		return nil, fmt.Errorf("failed to derive auth key: %w", err)
	}

	resp, err := s.api.Register(ctx, api.RegisterRequest{
		Username:    p.Username,
		DisplayName: p.DisplayName,
		Color:       p.Color,
		AuthKeyHash: authKeyHash,
		PublicSalt:  salt,
	})
	if err != nil {
		return nil, fmt.Errorf("registration failed: %w", err)
	}

	s.logger.InfoContext(ctx, "user registered", slog.String("username", p.Username), slog.String("user_id", resp.UserID))

	return &RegisterResult{UserID: resp.UserID, Username: p.Username, PublicSalt: salt}, nil
}

// Login выполняет аутентификацию и сохраняет сессию устройства
func (s *Service) Login(ctx context.Context, username, password string) (*storage.AuthData, error) {
	if err := validation.ValidateUsername(username); err != nil {
		return nil, fmt.Errorf("invalid username: %w", err)
	}
	if err := validation.ValidatePassword(password); err != nil {
		return nil, fmt.Errorf("invalid password: %w", err)
	}

	saltResp, err := s.api.GetSalt(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("failed to get salt: %w", err)
	}

	authKeyHash, err := crypto.DeriveAuthKeyHash(password, username, saltResp.PublicSalt)
	if err != nil {
		return nil, fmt.Errorf("failed to derive auth key: %w", err)
	}

	deviceID, err := s.devices.DeviceID(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get device id: %w", err)
	}

	tokens, err := s.api.Login(ctx, api.LoginRequest{
		Username:    username,
		AuthKeyHash: authKeyHash,
		DeviceID:    deviceID,
	})
	if err != nil {
		return nil, fmt.Errorf("login failed: %w", err)
	}

	session := &storage.AuthData{
		Username:     username,
		UserID:       tokens.UserID,
		AccessToken:  tokens.AccessToken,
		RefreshToken: tokens.RefreshToken,
		PublicSalt:   saltResp.PublicSalt,
		ExpiresAt:    s.now().Add(time.Duration(tokens.ExpiresIn) * time.Second).Unix(),
	}
	if err := s.store.SaveAuth(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to save session: %w", err)
	}

	s.logger.InfoContext(ctx, "logged in",
		slog.String("username", username),
		slog.String("device_id", deviceID))

	return session, nil
}

// Logout отзывает токены на сервере и удаляет локальную сессию.
// Недоступность сервера не мешает локальному выходу.
func (s *Service) Logout(ctx context.Context, all bool) error {
	session, err := s.store.GetAuth(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrAuthNotFound) {
			return ErrNotLoggedIn
		}
		return fmt.Errorf("failed to get session: %w", err)
	}

	if err := s.api.Logout(ctx, session.AccessToken, all); err != nil {
		s.logger.WarnContext(ctx, "server logout failed, removing local session anyway", slog.Any("error", err))
	}

	if err := s.store.DeleteAuth(ctx); err != nil && !errors.Is(err, storage.ErrAuthNotFound) {
		return fmt.Errorf("failed to delete session: %w", err)
	}

	s.logger.InfoContext(ctx, "logged out", slog.String("username", session.Username))
	return nil
}

// Session возвращает текущую сессию
func (s *Service) Session(ctx context.Context) (*storage.AuthData, error) {
	session, err := s.store.GetAuth(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrAuthNotFound) {
			return nil, ErrNotLoggedIn
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	return session, nil
}

// AccessToken возвращает действующий access token, при необходимости обновляя его.
// Отсутствие сессии или отклоненный refresh token дают AuthExpired.
func (s *Service) AccessToken(ctx context.Context) (string, error) {
	session, err := s.Session(ctx)
	if err != nil {
		if errors.Is(err, ErrNotLoggedIn) {
			return "", syncerr.AuthExpired(err)
		}
		return "", err
	}
	if session.AccessTokenValid(s.now().Add(expirySkew)) {
		return session.AccessToken, nil
	}
	return s.Refresh(ctx)
}

// Refresh обновляет пару токенов. Параллельные вызовы выполняют один запрос,
// так как сервер ротирует refresh token.
func (s *Service) Refresh(ctx context.Context) (string, error) {
	v, err, _ := s.refresh.Do("refresh", func() (any, error) {
		session, err := s.Session(ctx)
		if err != nil {
			if errors.Is(err, ErrNotLoggedIn) {
				return "", syncerr.AuthExpired(err)
			}
			return "", err
		}

		tokens, err := s.api.Refresh(ctx, session.RefreshToken)
		if err != nil {
			if errors.Is(err, clientapi.ErrUnauthorized) {
				s.logger.WarnContext(ctx, "refresh token rejected, login required")
				return "", syncerr.AuthExpired(err)
			}
			return "", err
		}

		session.AccessToken = tokens.AccessToken
		session.RefreshToken = tokens.RefreshToken
		session.ExpiresAt = s.now().Add(time.Duration(tokens.ExpiresIn) * time.Second).Unix()
		if err := s.store.SaveAuth(ctx, session); err != nil {
			return "", fmt.Errorf("failed to save refreshed session: %w", err)
		}

		s.logger.DebugContext(ctx, "access token refreshed")
		return session.AccessToken, nil
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}
