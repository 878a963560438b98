package models

import (
	"encoding/json"
	"time"
)

// Operation тип локального изменения
type Operation string

const (
	OpCreate Operation = "create"
	OpUpdate Operation = "update"
	OpDelete Operation = "delete"
)

// Valid проверяет, что операция известна
func (o Operation) Valid() bool {
	switch o {
	case OpCreate, OpUpdate, OpDelete:
		return true
	}
	return false
}

// Priority приоритет отправки изменения
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityNormal Priority = "normal"
	PriorityLow    Priority = "low"
)

// Rank возвращает порядок отправки: меньшее значение уходит раньше
func (p Priority) Rank() int {
	switch p {
	case PriorityHigh:
		return 0
	case PriorityLow:
		return 2
	default:
		return 1
	}
}

// EntityMetadata атрибуты сущности, по которым работает селективная синхронизация
type EntityMetadata struct {
	ReferenceDate  *time.Time `json:"reference_date,omitempty"`  // дата, к которой относится запись
	Project        string     `json:"project,omitempty"`         // проект
	Modality       string     `json:"modality,omitempty"`        // модальность (тип прибора/метода)
	AttachmentSize int64      `json:"attachment_size,omitempty"` // размер вложения в байтах
}

// PendingChange локальное изменение, ожидающее отправки на сервер.
// BaseVersion - версия серверной копии, от которой сделана правка (0 - сущность еще не синхронизирована).
type PendingChange struct {
	Timestamp        time.Time      `json:"timestamp"`
	NextAttemptAt    time.Time      `json:"next_attempt_at,omitempty"`
	Payload          map[string]any `json:"payload,omitempty"`
	UploadProgress   *float64       `json:"upload_progress,omitempty"`
	Metadata         EntityMetadata `json:"metadata"`
	ID               string         `json:"id"`
	EntityType       string         `json:"entity_type"`
	EntityID         string         `json:"entity_id"`
	Operation        Operation      `json:"operation"`
	Priority         Priority       `json:"priority"`
	LastError        string         `json:"last_error,omitempty"`
	ConflictID       string         `json:"conflict_id,omitempty"`
	BaseVersion      int64          `json:"base_version"`
	Revision         int64          `json:"revision"`
	Seq              uint64         `json:"seq"` // порядок постановки в очередь
	RetryCount       int            `json:"retry_count"`
	ExcludedFromSync bool           `json:"excluded_from_sync"`
	InFlight         bool           `json:"in_flight"`
	Errored          bool           `json:"errored"`
	Force            bool           `json:"force,omitempty"`
}

// EntityKey ключ сущности, к которой относится изменение
func (c *PendingChange) EntityKey() string {
	return EntityKey(c.EntityType, c.EntityID)
}

// ClaimedVersion версия, которую получит сущность, если правка будет принята
func (c *PendingChange) ClaimedVersion() int64 {
	return c.BaseVersion + 1
}

// Sendable сообщает, может ли изменение уйти в очередной push
func (c *PendingChange) Sendable(now time.Time) bool {
	if c.Errored || c.ConflictID != "" || c.InFlight {
		return false
	}
	return c.NextAttemptAt.IsZero() || !now.Before(c.NextAttemptAt)
}

// Clone возвращает глубокую копию изменения
func (c *PendingChange) Clone() *PendingChange {
	cp := *c
	cp.Payload = ClonePayload(c.Payload)
	if c.Metadata.ReferenceDate != nil {
		d := *c.Metadata.ReferenceDate
		cp.Metadata.ReferenceDate = &d
	}
	if c.UploadProgress != nil {
		p := *c.UploadProgress
		cp.UploadProgress = &p
	}
	return &cp
}

// Record авторитетная копия сущности на сервере, либо последняя известная клиенту серверная копия
type Record struct {
	UpdatedAt    time.Time      `json:"updated_at"`
	Payload      map[string]any `json:"payload,omitempty"`
	Metadata     EntityMetadata `json:"metadata"`
	EntityType   string         `json:"entity_type"`
	EntityID     string         `json:"entity_id"`
	UpdatedBy    string         `json:"updated_by,omitempty"`
	LastChangeID string         `json:"last_change_id,omitempty"`
	Version      int64          `json:"version"`
	Seq          int64          `json:"seq,omitempty"`
	Deleted      bool           `json:"deleted"`
}

// EntityKey ключ сущности записи
func (r *Record) EntityKey() string {
	return EntityKey(r.EntityType, r.EntityID)
}

// EntityKey строит составной ключ сущности
func EntityKey(entityType, entityID string) string {
	return entityType + "/" + entityID
}

// ClonePayload делает глубокую копию произвольного JSON-документа
func ClonePayload(p map[string]any) map[string]any {
	if p == nil {
		return nil
	}
	data, err := json.Marshal(p)
	if err != nil {
		out := make(map[string]any, len(p))
		for k, v := range p {
			out[k] = v
		}
		return out
	}
	var out map[string]any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil
	}
	return out
}

// Outcome результат применения изменения детектором конфликтов
type Outcome string

const (
	OutcomeCreated  Outcome = "created"
	OutcomeUpdated  Outcome = "updated"
	OutcomeNoop     Outcome = "noop"
	OutcomeConflict Outcome = "conflict"
	OutcomeErrored  Outcome = "errored"
)
