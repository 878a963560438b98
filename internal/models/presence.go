package models

import "time"

// Lock рекомендательная блокировка поля или всего документа (Field == "")
type Lock struct {
	AcquiredAt time.Time `json:"acquired_at"`
	ExpiresAt  time.Time `json:"expires_at"`
	UserID     string    `json:"user_id"`
	UserName   string    `json:"user_name"`
	Field      string    `json:"field,omitempty"`
	Exclusive  bool      `json:"exclusive"`
}

// WholeDocument сообщает, блокирует ли lock весь документ
func (l *Lock) WholeDocument() bool {
	return l.Field == ""
}

// Expired сообщает, истек ли lock к моменту now
func (l *Lock) Expired(now time.Time) bool {
	return !now.Before(l.ExpiresAt)
}

// Overlaps сообщает, пересекаются ли области блокировок
func (l *Lock) Overlaps(field string) bool {
	return l.Field == "" || field == "" || l.Field == field
}

// CursorPosition позиция курсора пользователя в документе
type CursorPosition struct {
	Field  string `json:"field,omitempty"`
	Line   int    `json:"line"`
	Column int    `json:"column"`
}

// Selection выделенный пользователем фрагмент
type Selection struct {
	Field string `json:"field,omitempty"`
	Start int    `json:"start"`
	End   int    `json:"end"`
}

// UserPresence участник, открывший документ
type UserPresence struct {
	LastActivity time.Time       `json:"last_activity"`
	Cursor       *CursorPosition `json:"cursor,omitempty"`
	Selection    *Selection      `json:"selection,omitempty"`
	ID           string          `json:"id"`
	Name         string          `json:"name"`
	Color        string          `json:"color"`
}
