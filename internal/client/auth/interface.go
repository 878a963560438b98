package auth

import (
	"context"

	"github.com/iudanet/labsync/pkg/api"
)

//go:generate moq -out api_mock.go . API

// API серверные операции, которые использует сервис авторизации
type API interface {
	Register(ctx context.Context, req api.RegisterRequest) (*api.RegisterResponse, error)
	GetSalt(ctx context.Context, username string) (*api.SaltResponse, error)
	Login(ctx context.Context, req api.LoginRequest) (*api.TokenResponse, error)
	Refresh(ctx context.Context, refreshToken string) (*api.TokenResponse, error)
	Logout(ctx context.Context, accessToken string, all bool) error
}

// DeviceIDSource источник идентификатора устройства
type DeviceIDSource interface {
	DeviceID(ctx context.Context) (string, error)
}
