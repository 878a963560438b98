// Package jwt выпускает и проверяет токены доступа сервера синхронизации.
package jwt

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	gojwt "github.com/golang-jwt/jwt/v5"
)

// Issuer значение поля iss в выпускаемых токенах
const Issuer = "labsync"

// ErrInvalidToken токен не прошел проверку
var ErrInvalidToken = errors.New("invalid token")

// Claims represents JWT claims
type Claims struct {
	UserID      string `json:"user_id"`
	Username    string `json:"username"`
	DisplayName string `json:"display_name,omitempty"`
	Color       string `json:"color,omitempty"`
	DeviceID    string `json:"device_id,omitempty"`
	gojwt.RegisteredClaims
}

// Subject данные пользователя, которые попадают в токен
type Subject struct {
	UserID      string
	Username    string
	DisplayName string
	Color       string
	DeviceID    string
}

// Service provides JWT token generation and validation
type Service struct {
	now             func() time.Time
	secret          []byte
	accessTokenTTL  time.Duration
	refreshTokenTTL time.Duration
}

// NewService creates a new JWT service
// secret should be a cryptographically secure random string
func NewService(secret string, accessTokenTTL, refreshTokenTTL time.Duration) *Service {
	return &Service{
		now:             time.Now,
		secret:          []byte(secret),
		accessTokenTTL:  accessTokenTTL,
		refreshTokenTTL: refreshTokenTTL,
	}
}

// WithClock подменяет источник времени (для тестов)
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// RefreshTokenTTL время жизни refresh token
func (s *Service) RefreshTokenTTL() time.Duration {
	return s.refreshTokenTTL
}

// GenerateAccessToken создает новый JWT access token
func (s *Service) GenerateAccessToken(sub Subject) (string, int64, error) {
	now := s.now()
	expiresAt := now.Add(s.accessTokenTTL)

	claims := Claims{
		UserID:      sub.UserID,
		Username:    sub.Username,
		DisplayName: sub.DisplayName,
		Color:       sub.Color,
		DeviceID:    sub.DeviceID,
		RegisteredClaims: gojwt.RegisteredClaims{
			Subject:   sub.UserID,
			ExpiresAt: gojwt.NewNumericDate(expiresAt),
			IssuedAt:  gojwt.NewNumericDate(now),
			NotBefore: gojwt.NewNumericDate(now),
			Issuer:    Issuer,
		},
	}

	token := gojwt.NewWithClaims(gojwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(s.secret)
	if err != nil {
		return "", 0, fmt.Errorf("failed to sign token: %w", err)
	}

	return tokenString, int64(s.accessTokenTTL.Seconds()), nil
}

// ValidateAccessToken валидирует и парсит JWT access token
func (s *Service) ValidateAccessToken(tokenString string) (*Claims, error) {
	token, err := gojwt.ParseWithClaims(tokenString, &Claims{}, func(token *gojwt.Token) (any, error) {
		// Проверяем что используется правильный алгоритм подписи
		if _, ok := token.Method.(*gojwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	},
		gojwt.WithIssuer(Issuer),
		gojwt.WithTimeFunc(s.now),
		gojwt.WithValidMethods([]string{gojwt.SigningMethodHS256.Alg()}),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.UserID == "" {
		return nil, ErrInvalidToken
	}

	return claims, nil
}

// GenerateRefreshToken создает новый random refresh token
func (s *Service) GenerateRefreshToken() (string, time.Time, error) {
	// Генерируем случайные 32 байта
	tokenBytes := make([]byte, 32)
	if _, err := rand.Read(tokenBytes); err != nil {
		return "", time.Time{}, fmt.Errorf("failed to generate random token: %w", err)
	}

	token := base64.URLEncoding.EncodeToString(tokenBytes)
	expiresAt := s.now().Add(s.refreshTokenTTL)

	return token, expiresAt, nil
}
