package storage

import (
	"context"

	"github.com/iudanet/labsync/internal/models"
)

// Tx операции с очередью, конфликтами и серверными копиями внутри одной транзакции.
// Объекты, возвращаемые Tx, принадлежат вызывающему и могут изменяться.
type Tx interface {
	// GetPending returns ErrChangeNotFound if change doesn't exist
	GetPending(id string) (*models.PendingChange, error)

	// ListPending возвращает очередь в порядке отправки: приоритет, затем порядок постановки
	ListPending() ([]*models.PendingChange, error)

	// PendingForEntity возвращает изменения одной сущности в порядке постановки
	PendingForEntity(entityType, entityID string) ([]*models.PendingChange, error)

	// PutPending сохраняет изменение. Новому изменению (Seq == 0) назначается порядковый номер.
	PutPending(change *models.PendingChange) error

	// DeletePending returns ErrChangeNotFound if change doesn't exist
	DeletePending(id string) error

	// GetRecord возвращает последнюю известную серверную копию
	// Returns ErrRecordNotFound if record doesn't exist
	GetRecord(entityType, entityID string) (*models.Record, error)

	// ListRecords возвращает все известные серверные копии
	ListRecords() ([]*models.Record, error)

	PutRecord(record *models.Record) error

	// GetConflict returns ErrConflictNotFound if conflict doesn't exist
	GetConflict(id string) (*models.SyncConflict, error)

	// OpenConflictForEntity возвращает открытый конфликт сущности
	// Returns ErrConflictNotFound if there is none
	OpenConflictForEntity(entityType, entityID string) (*models.SyncConflict, error)

	// ListConflicts возвращает конфликты по времени обнаружения; openOnly - только нерешенные
	ListConflicts(openOnly bool) ([]*models.SyncConflict, error)

	PutConflict(conflict *models.SyncConflict) error
}

// SyncStorage локальное хранилище синхронизации устройства
type SyncStorage interface {
	MetadataStorage

	// Update выполняет fn в транзакции записи. Ошибка fn откатывает все изменения.
	Update(ctx context.Context, fn func(tx Tx) error) error

	// View выполняет fn в транзакции чтения
	View(ctx context.Context, fn func(tx Tx) error) error
}
