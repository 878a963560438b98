package storage

import (
	"context"

	"github.com/iudanet/labsync/internal/models"
)

// MetadataStorage defines interface for storing client metadata
type MetadataStorage interface {
	// DeviceID возвращает идентификатор устройства, создавая его при первом обращении
	DeviceID(ctx context.Context) (string, error)

	// GetSyncState возвращает сохраненное состояние синхронизации.
	// Если состояние еще не сохранялось, возвращается idle состояние в сети.
	GetSyncState(ctx context.Context) (*models.SyncState, error)

	// SaveSyncState сохраняет состояние синхронизации
	SaveSyncState(ctx context.Context, state *models.SyncState) error

	// GetSelectiveConfig возвращает конфигурацию селективной синхронизации (по умолчанию выключена)
	GetSelectiveConfig(ctx context.Context) (*models.SelectiveSyncConfig, error)

	// SaveSelectiveConfig сохраняет конфигурацию селективной синхронизации
	SaveSelectiveConfig(ctx context.Context, cfg *models.SelectiveSyncConfig) error
}
