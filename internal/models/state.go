package models

import "time"

// SyncStatus состояние синхронизации устройства
type SyncStatus string

const (
	StatusIdle     SyncStatus = "idle"
	StatusPending  SyncStatus = "pending"
	StatusSyncing  SyncStatus = "syncing"
	StatusConflict SyncStatus = "conflict"
	StatusError    SyncStatus = "error"
	StatusOffline  SyncStatus = "offline"
)

// SyncPhase фаза цикла синхронизации
type SyncPhase string

const (
	PhasePush SyncPhase = "push"
	PhasePull SyncPhase = "pull"
)

// SyncProgress прогресс текущего цикла
type SyncProgress struct {
	Phase   SyncPhase `json:"phase"`
	Current int       `json:"current"`
	Total   int       `json:"total"`
}

// SyncError неустранимая ошибка, требующая внимания пользователя
type SyncError struct {
	At         time.Time `json:"at"`
	ChangeID   string    `json:"change_id,omitempty"`
	EntityType string    `json:"entity_type,omitempty"`
	EntityID   string    `json:"entity_id,omitempty"`
	Kind       string    `json:"kind"`
	Message    string    `json:"message"`
}

// SyncState сохраняемое состояние синхронизации устройства
type SyncState struct {
	LastSyncAt     *time.Time    `json:"last_sync_at,omitempty"`
	LastPushAt     *time.Time    `json:"last_push_at,omitempty"`
	LastPullAt     *time.Time    `json:"last_pull_at,omitempty"`
	Progress       *SyncProgress `json:"progress,omitempty"`
	Status         SyncStatus    `json:"status"`
	PreviousStatus SyncStatus    `json:"previous_status,omitempty"`
	DeviceID       string        `json:"device_id"`
	Errors         []SyncError   `json:"errors"`
	PullCursor     int64         `json:"pull_cursor"`
	PendingCount   int           `json:"pending_count"`
	ConflictCount  int           `json:"conflict_count"`
	IsOnline       bool          `json:"is_online"`
	AuthRequired   bool          `json:"auth_required"`
}

// DateRange включительный диапазон дат
type DateRange struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
}

// Contains сообщает, попадает ли t в диапазон. Нулевая граница не ограничивает.
func (r DateRange) Contains(t time.Time) bool {
	if !r.From.IsZero() && t.Before(r.From) {
		return false
	}
	if !r.To.IsZero() && t.After(r.To) {
		return false
	}
	return true
}

// SelectiveSyncConfig пользовательские правила отбора сущностей для синхронизации.
// Пустой список означает "все".
type SelectiveSyncConfig struct {
	DateRange         *DateRange `json:"date_range,omitempty"`
	Projects          []string   `json:"projects,omitempty"`
	EntityTypes       []string   `json:"entity_types,omitempty"`
	Modalities        []string   `json:"modalities,omitempty"`
	MaxAttachmentSize int64      `json:"max_attachment_size,omitempty"`
	Enabled           bool       `json:"enabled"`
}
