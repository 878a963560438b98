// Package crypto выводит ключ аутентификации из пароля пользователя.
// Пароль на сервер не передается: сервер хранит только SHA256 от производного ключа.
package crypto

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"

	"golang.org/x/crypto/argon2"
)

// Параметры Argon2id
const (
	Argon2Time    = 1
	Argon2Memory  = 64 * 1024 // KB
	Argon2Threads = 4
	Argon2KeyLen  = 32
	SaltSize      = 32
)

// authContext разделяет ключ аутентификации и другие возможные производные ключи
const authContext = "labsync-auth"

// GenerateSalt генерирует случайную соль
func GenerateSalt() ([]byte, error) {
	salt := make([]byte, SaltSize)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("failed to generate salt: %w", err)
	}
	return salt, nil
}

// GenerateSaltBase64 генерирует соль в Base64
func GenerateSaltBase64() (string, error) {
	salt, err := GenerateSalt()
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(salt), nil
}

// DeriveAuthKey выводит ключ аутентификации из пароля, username и соли
func DeriveAuthKey(password, username string, salt []byte) ([]byte, error) {
	if password == "" {
		return nil, fmt.Errorf("password cannot be empty")
	}
	if username == "" {
		return nil, fmt.Errorf("username cannot be empty")
	}
	if len(salt) != SaltSize {
		return nil, fmt.Errorf("salt must be %d bytes, got %d", SaltSize, len(salt))
	}

	input := []byte(password + username + authContext)
	return argon2.IDKey(input, salt, Argon2Time, Argon2Memory, Argon2Threads, Argon2KeyLen), nil
}

// DeriveAuthKeyHash выводит ключ и сразу возвращает его хеш для отправки на сервер
func DeriveAuthKeyHash(password, username, saltBase64 string) (string, error) {
	salt, err := base64.StdEncoding.DecodeString(saltBase64)
	if err != nil {
		return "", fmt.Errorf("failed to decode salt: %w", err)
	}
	key, err := DeriveAuthKey(password, username, salt)
	if err != nil {
		return "", err
	}
	return HashAuthKey(key)
}
