package api

import "time"

// Типы сообщений канала присутствия
const (
	// входящие
	PresenceJoin            = "join-document"
	PresenceLeave           = "leave-document"
	PresenceCursorMove      = "cursor-move"
	PresenceSelectionChange = "selection-change"
	PresenceRequestLock     = "request-lock"
	PresenceReleaseLock     = "release-lock"
	PresenceEdit            = "edit"

	// исходящие
	PresenceDocumentState   = "document-state"
	PresenceUserJoined      = "user-joined"
	PresenceUserLeft        = "user-left"
	PresenceCursorUpdate    = "cursor-update"
	PresenceSelectionUpdate = "selection-update"
	PresenceLockGranted     = "lock-granted"
	PresenceLockDenied      = "lock-denied"
	PresenceLockAcquired    = "lock-acquired"
	PresenceLockReleased    = "lock-released"
	PresenceLockExpired     = "lock-expired"
	PresenceForceRefresh    = "force-refresh"
	PresenceError           = "error"
)

// Cursor позиция курсора
type Cursor struct {
	Field  string `json:"field,omitempty"`
	Line   int    `json:"line"`
	Column int    `json:"column"`
}

// Selection выделение
type Selection struct {
	Field string `json:"field,omitempty"`
	Start int    `json:"start"`
	End   int    `json:"end"`
}

// LockInfo блокировка поля; пустое Field - весь документ
type LockInfo struct {
	AcquiredAt time.Time `json:"acquired_at"`
	ExpiresAt  time.Time `json:"expires_at"`
	UserID     string    `json:"user_id"`
	UserName   string    `json:"user_name"`
	Field      string    `json:"field,omitempty"`
	Exclusive  bool      `json:"exclusive"`
}

// PresenceUser участник документа
type PresenceUser struct {
	LastActivity time.Time  `json:"last_activity"`
	Cursor       *Cursor    `json:"cursor,omitempty"`
	Selection    *Selection `json:"selection,omitempty"`
	ID           string     `json:"id"`
	Name         string     `json:"name"`
	Color        string     `json:"color"`
}

// PresenceMessage конверт сообщения канала присутствия
type PresenceMessage struct {
	Cursor     *Cursor        `json:"cursor,omitempty"`
	Selection  *Selection     `json:"selection,omitempty"`
	Lock       *LockInfo      `json:"lock,omitempty"`
	User       *PresenceUser  `json:"user,omitempty"`
	Type       string         `json:"type"`
	EntityType string         `json:"entity_type,omitempty"`
	EntityID   string         `json:"entity_id,omitempty"`
	UserID     string         `json:"user_id,omitempty"`
	Field      string         `json:"field,omitempty"`
	Reason     string         `json:"reason,omitempty"`
	Users      []PresenceUser `json:"users,omitempty"`
	Locks      []LockInfo     `json:"locks,omitempty"`
	Version    int64          `json:"version,omitempty"`
	Exclusive  bool           `json:"exclusive,omitempty"`
}
