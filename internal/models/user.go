package models

import "time"

// User представляет пользователя в системе
type User struct {
	CreatedAt   time.Time  `json:"created_at"`           // время создания
	LastLogin   *time.Time `json:"last_login,omitempty"` // время последнего входа
	ID          string     `json:"id"`                   // UUID пользователя
	Username    string     `json:"username"`             // уникальный username
	DisplayName string     `json:"display_name"`         // имя, которое видят соавторы документа
	Color       string     `json:"color"`                // цвет курсора в presence (#rrggbb)
	AuthKeyHash string     `json:"auth_key_hash"`        // SHA256 хеш auth_key
	PublicSalt  string     `json:"public_salt"`          // base64 encoded salt (32 bytes)
}

// RefreshToken представляет refresh token пользователя
type RefreshToken struct {
	ExpiresAt time.Time `json:"expires_at"` // время истечения
	CreatedAt time.Time `json:"created_at"` // время создания
	Token     string    `json:"token"`      // значение токена
	UserID    string    `json:"user_id"`    // ID пользователя
	DeviceID  string    `json:"device_id"`  // устройство, для которого выпущен токен
}

// IsExpired сообщает, истек ли токен к моменту now
func (t *RefreshToken) IsExpired(now time.Time) bool {
	return now.After(t.ExpiresAt)
}
