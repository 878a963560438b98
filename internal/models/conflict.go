package models

import "time"

// ConflictStrategy стратегия разрешения конфликта
type ConflictStrategy string

const (
	StrategyServerWins ConflictStrategy = "server-wins"
	StrategyClientWins ConflictStrategy = "client-wins"
	StrategyMerge      ConflictStrategy = "merge"
)

// Valid проверяет, что стратегия известна
func (s ConflictStrategy) Valid() bool {
	switch s {
	case StrategyServerWins, StrategyClientWins, StrategyMerge:
		return true
	}
	return false
}

// ConflictSource где был обнаружен конфликт
type ConflictSource string

const (
	ConflictFromPush ConflictSource = "push"
	ConflictFromPull ConflictSource = "pull"
)

// FieldConflict расхождение одного поля верхнего уровня
type FieldConflict struct {
	LocalValue    any    `json:"local_value,omitempty"`
	ServerValue   any    `json:"server_value,omitempty"`
	MergedValue   any    `json:"merged_value,omitempty"`
	Field         string `json:"field"`
	LocalPresent  bool   `json:"local_present"`
	ServerPresent bool   `json:"server_present"`
	Merged        bool   `json:"merged"`
}

// SyncConflict конфликт версий между локальной правкой и серверной копией
type SyncConflict struct {
	DetectedAt      time.Time        `json:"detected_at"`
	LocalUpdatedAt  time.Time        `json:"local_updated_at"`
	ServerUpdatedAt time.Time        `json:"server_updated_at"`
	ResolvedAt      *time.Time       `json:"resolved_at,omitempty"`
	LocalData       map[string]any   `json:"local_data,omitempty"`
	ServerData      map[string]any   `json:"server_data,omitempty"`
	ServerMetadata  EntityMetadata   `json:"server_metadata"`
	ID              string           `json:"id"`
	ChangeID        string           `json:"change_id"`
	EntityType      string           `json:"entity_type"`
	EntityID        string           `json:"entity_id"`
	Resolution      ConflictStrategy `json:"resolution,omitempty"`
	Source          ConflictSource   `json:"source"`
	FieldConflicts  []FieldConflict  `json:"field_conflicts"`
	LocalVersion    int64            `json:"local_version"`
	ServerVersion   int64            `json:"server_version"`
	ServerDeleted   bool             `json:"server_deleted"`
}

// IsOpen сообщает, ожидает ли конфликт решения
func (c *SyncConflict) IsOpen() bool {
	return c.ResolvedAt == nil
}

// EntityKey ключ сущности конфликта
func (c *SyncConflict) EntityKey() string {
	return EntityKey(c.EntityType, c.EntityID)
}
