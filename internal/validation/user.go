package validation

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

// UsernamePattern латиница, цифры и '_', от 3 до 32 символов
var UsernamePattern = regexp.MustCompile(`^[a-zA-Z0-9_]{3,32}$`)

// ColorPattern цвет участника в формате #rrggbb
var ColorPattern = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)

const (
	// MinPasswordLen минимальная длина пароля
	MinPasswordLen = 12
	// MaxDisplayNameLen максимальная длина отображаемого имени в рунах
	MaxDisplayNameLen = 64
)

// ValidateUsername проверяет формат username
func ValidateUsername(username string) error {
	if username == "" {
		return fmt.Errorf("username cannot be empty")
	}
	if !UsernamePattern.MatchString(username) {
		return fmt.Errorf("username must be 3-32 characters of letters, digits or underscores")
	}
	return nil
}

// ValidatePassword проверяет минимальные требования к паролю
func ValidatePassword(password string) error {
	if password == "" {
		return fmt.Errorf("password cannot be empty")
	}
	if len(password) < MinPasswordLen {
		return fmt.Errorf("password must be at least %d characters long", MinPasswordLen)
	}
	return nil
}

// ValidateDisplayName проверяет имя, под которым пользователя видят соавторы.
// Пустое имя допустимо: вместо него показывается username.
func ValidateDisplayName(name string) error {
	if strings.TrimSpace(name) != name {
		return fmt.Errorf("display name must not start or end with spaces")
	}
	if utf8.RuneCountInString(name) > MaxDisplayNameLen {
		return fmt.Errorf("display name must not exceed %d characters", MaxDisplayNameLen)
	}
	return nil
}

// ValidateColor проверяет цвет курсора. Пустой цвет назначается сервером.
func ValidateColor(color string) error {
	if color == "" {
		return nil
	}
	if !ColorPattern.MatchString(color) {
		return fmt.Errorf("color must be in #rrggbb format")
	}
	return nil
}
