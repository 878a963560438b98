package sync

import (
	"context"

	"github.com/iudanet/labsync/pkg/api"
)

//go:generate moq -out server_api_mock.go . ServerAPI

// ServerAPI транспорт синхронизации
type ServerAPI interface {
	Push(ctx context.Context, accessToken string, req api.PushRequest) (*api.PushResponse, error)
	Pull(ctx context.Context, accessToken string, req api.PullRequest) (*api.PullResponse, error)

	// Health проверяет доступность сервера, пока устройство offline
	Health(ctx context.Context) (*api.HealthResponse, error)
}

//go:generate moq -out token_source_mock.go . TokenSource

// TokenSource выдает access token для запросов синхронизации
type TokenSource interface {
	// AccessToken возвращает действующий токен
	AccessToken(ctx context.Context) (string, error)

	// Refresh принудительно обновляет токен после ответа 401
	Refresh(ctx context.Context) (string, error)
}
