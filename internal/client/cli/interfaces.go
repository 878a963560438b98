package cli

import (
	"context"
	"time"

	"github.com/iudanet/labsync/internal/client/auth"
	"github.com/iudanet/labsync/internal/client/quota"
	"github.com/iudanet/labsync/internal/client/recorder"
	"github.com/iudanet/labsync/internal/client/storage"
	clientsync "github.com/iudanet/labsync/internal/client/sync"
	"github.com/iudanet/labsync/internal/models"
	"github.com/iudanet/labsync/internal/selective"
	"github.com/iudanet/labsync/pkg/api"
)

//go:generate moq -out auth_service_mock.go . AuthService

// AuthService сессия пользователя на устройстве
type AuthService interface {
	Register(ctx context.Context, p auth.RegisterParams) (*auth.RegisterResult, error)
	Login(ctx context.Context, username, password string) (*storage.AuthData, error)
	Logout(ctx context.Context, all bool) error
	Session(ctx context.Context) (*storage.AuthData, error)
}

//go:generate moq -out sync_service_mock.go . SyncService

// SyncService координатор синхронизации
type SyncService interface {
	TriggerSync(ctx context.Context) (*clientsync.SyncResult, error)
	State(ctx context.Context) (*models.SyncState, error)
	PendingChanges(ctx context.Context) ([]*models.PendingChange, error)
	Conflicts(ctx context.Context, openOnly bool) ([]*models.SyncConflict, error)
	Entity(ctx context.Context, entityType, entityID string) (*clientsync.EntityView, error)
	Retry(ctx context.Context, changeID string) error
	Cancel(ctx context.Context, changeID string) error
	ResolveConflict(ctx context.Context, conflictID string, strategy models.ConflictStrategy, mergedValues map[string]any) (*models.SyncConflict, error)
	UpdateSelectiveSyncConfig(ctx context.Context, patch selective.Patch) (*models.SelectiveSyncConfig, error)
	SetOnline(ctx context.Context, online bool) error
	Run(ctx context.Context, interval time.Duration) error
}

//go:generate moq -out recorder_mock.go . Recorder

// Recorder записывает локальные правки в очередь
type Recorder interface {
	Record(ctx context.Context, entityType, entityID string, op models.Operation, payload map[string]any, opts ...recorder.Option) (*models.PendingChange, error)
}

//go:generate moq -out quota_reporter_mock.go . QuotaReporter

// QuotaReporter сводка занятости локального хранилища
type QuotaReporter interface {
	Report(ctx context.Context) (*quota.Report, error)
}

//go:generate moq -out presence_watcher_mock.go . PresenceWatcher

// PresenceWatcher поток событий присутствия документа
type PresenceWatcher interface {
	Watch(ctx context.Context, entityType, entityID string, fn func(api.PresenceMessage) error) error
}
