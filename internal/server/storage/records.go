package storage

import (
	"context"
	"time"

	"github.com/iudanet/labsync/internal/models"
)

//go:generate moq -out records_mock.go . RecordStorage

// Actor пользователь и устройство, от имени которых применяется изменение
type Actor struct {
	UserID   string
	DeviceID string
}

// ApplyResult результат проверки и применения одного изменения.
// При конфликте Record содержит текущую серверную копию, при успехе - сохраненную.
type ApplyResult struct {
	Record  *models.Record
	Outcome models.Outcome
}

// ChangePage порция изменений для pull
type ChangePage struct {
	Records []*models.Record
	Cursor  int64
	HasMore bool
}

// LogEntry запись журнала синхронизации
type LogEntry struct {
	CreatedAt  time.Time
	EntityType string
	EntityID   string
	ChangeID   string
	DeviceID   string
	UserID     string
	Outcome    models.Outcome
	Seq        int64
	Version    int64
	Forced     bool
}

// RecordStorage авторитетное хранилище сущностей с проверкой версий
type RecordStorage interface {
	// ApplyChange атомарно сравнивает заявленную версию с хранимой и применяет изменение.
	// Проверка и запись выполняются в одной транзакции, так что два конкурентных
	// изменения одной сущности с одной базовой версией не могут быть приняты оба.
	ApplyChange(ctx context.Context, actor Actor, change *models.PendingChange) (*ApplyResult, error)

	// GetRecord возвращает текущую копию сущности, включая удаленные.
	// Returns ErrRecordNotFound if record doesn't exist
	GetRecord(ctx context.Context, entityType, entityID string) (*models.Record, error)

	// ListChanges возвращает сущности, измененные после курсора, с учетом фильтра
	ListChanges(ctx context.Context, since int64, filter *models.SelectiveSyncConfig, limit int) (*ChangePage, error)

	// EntityLog возвращает журнал изменений сущности в порядке применения
	EntityLog(ctx context.Context, entityType, entityID string) ([]*LogEntry, error)

	// Ping проверяет доступность хранилища
	Ping(ctx context.Context) error
}
