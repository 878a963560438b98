package api

import "time"

// Outcome результат применения изменения на сервере
type Outcome string

const (
	OutcomeCreated  Outcome = "created"
	OutcomeUpdated  Outcome = "updated"
	OutcomeNoop     Outcome = "noop"
	OutcomeConflict Outcome = "conflict"
	OutcomeErrored  Outcome = "errored"
)

// Metadata атрибуты сущности для селективной синхронизации
type Metadata struct {
	ReferenceDate  *time.Time `json:"reference_date,omitempty"`
	Project        string     `json:"project,omitempty"`
	Modality       string     `json:"modality,omitempty"`
	AttachmentSize int64      `json:"attachment_size,omitempty"`
}

// Change одно локальное изменение в запросе push.
// Version - версия, которую получит сущность при успехе (base_version + 1).
type Change struct {
	Timestamp   time.Time      `json:"timestamp"`
	Payload     map[string]any `json:"payload,omitempty"`
	Metadata    Metadata       `json:"metadata"`
	ID          string         `json:"id"`
	EntityType  string         `json:"entity_type"`
	EntityID    string         `json:"entity_id"`
	Operation   string         `json:"operation"`
	BaseVersion int64          `json:"base_version"`
	Version     int64          `json:"version"`
	Force       bool           `json:"force,omitempty"`
}

// PushRequest пакет изменений от устройства
type PushRequest struct {
	DeviceID string   `json:"device_id"`
	Changes  []Change `json:"changes"`
}

// AppliedChange изменение, принятое сервером (в том числе идемпотентный повтор)
type AppliedChange struct {
	UpdatedAt  time.Time `json:"updated_at"`
	ChangeID   string    `json:"change_id"`
	EntityType string    `json:"entity_type"`
	EntityID   string    `json:"entity_id"`
	Outcome    Outcome   `json:"outcome"`
	Version    int64     `json:"version"`
}

// FieldConflict расхождение одного поля
type FieldConflict struct {
	LocalValue    any    `json:"local_value,omitempty"`
	ServerValue   any    `json:"server_value,omitempty"`
	Field         string `json:"field"`
	LocalPresent  bool   `json:"local_present"`
	ServerPresent bool   `json:"server_present"`
}

// ConflictInfo отказ из-за устаревшей версии вместе с текущей серверной копией
type ConflictInfo struct {
	ServerUpdatedAt time.Time       `json:"server_updated_at"`
	ServerData      map[string]any  `json:"server_data,omitempty"`
	ServerMetadata  Metadata        `json:"server_metadata"`
	ChangeID        string          `json:"change_id"`
	EntityType      string          `json:"entity_type"`
	EntityID        string          `json:"entity_id"`
	FieldConflicts  []FieldConflict `json:"field_conflicts"`
	ServerVersion   int64           `json:"server_version"`
	ServerDeleted   bool            `json:"server_deleted"`
}

// RejectedChange изменение, не прошедшее валидацию
type RejectedChange struct {
	ChangeID string `json:"change_id"`
	Error    string `json:"error"`
	Message  string `json:"message"`
}

// PushResponse результат обработки пакета; каждое изменение обрабатывается независимо
type PushResponse struct {
	Applied   []AppliedChange  `json:"applied"`
	Conflicts []ConflictInfo   `json:"conflicts"`
	Rejected  []RejectedChange `json:"rejected"`
}

// SelectiveFilter серверная часть селективной синхронизации
type SelectiveFilter struct {
	From              *time.Time `json:"from,omitempty"`
	To                *time.Time `json:"to,omitempty"`
	Projects          []string   `json:"projects,omitempty"`
	EntityTypes       []string   `json:"entity_types,omitempty"`
	Modalities        []string   `json:"modalities,omitempty"`
	MaxAttachmentSize int64      `json:"max_attachment_size,omitempty"`
}

// PullRequest запрос изменений после курсора
type PullRequest struct {
	Filter *SelectiveFilter `json:"filter,omitempty"`
	Since  int64            `json:"since"`
	Limit  int              `json:"limit,omitempty"`
}

// RecordDTO серверная копия сущности
type RecordDTO struct {
	UpdatedAt  time.Time      `json:"updated_at"`
	Payload    map[string]any `json:"payload,omitempty"`
	Metadata   Metadata       `json:"metadata"`
	EntityType string         `json:"entity_type"`
	EntityID   string         `json:"entity_id"`
	UpdatedBy  string         `json:"updated_by,omitempty"`
	ChangeID   string         `json:"change_id,omitempty"`
	Version    int64          `json:"version"`
	Deleted    bool           `json:"deleted"`
}

// PullResponse изменения после курсора
type PullResponse struct {
	Changes []RecordDTO `json:"changes"`
	Cursor  int64       `json:"cursor"`
	HasMore bool        `json:"has_more"`
}
