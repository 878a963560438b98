// Package cli реализует команды клиента labsync поверх сервисов устройства.
package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/iudanet/labsync/internal/client/iocli"
)

// PasswordEnv переменная окружения с паролем
const PasswordEnv = "LABSYNC_PASSWORD"

// Passwords источники пароля помимо окружения и интерактивного ввода
type Passwords struct {
	FromFile string
	FromArgs string
}

// Cli команды клиента
type Cli struct {
	io       iocli.IO
	auth     AuthService
	sync     SyncService
	recorder Recorder
	quota    QuotaReporter
	presence PresenceWatcher
}

// Deps сервисы, с которыми работают команды. Незаданный сервис делает недоступными его команды.
type Deps struct {
	Auth     AuthService
	Sync     SyncService
	Recorder Recorder
	Quota    QuotaReporter
	Presence PresenceWatcher
}

// New creates a new Cli
func New(io iocli.IO, deps Deps) *Cli {
	return &Cli{
		io:       io,
		auth:     deps.Auth,
		sync:     deps.Sync,
		recorder: deps.Recorder,
		quota:    deps.Quota,
		presence: deps.Presence,
	}
}

var errUnavailable = errors.New("command is not available in this mode")

// getPassword получает пароль из источников в порядке приоритета:
// 1. Переменная окружения LABSYNC_PASSWORD
// 2. Файл passwords.FromFile
// 3. Параметр командной строки passwords.FromArgs
// 4. Интерактивный ввод
func (c *Cli) getPassword(_ context.Context, passwords Passwords) (string, error) {
	if envPassword := os.Getenv(PasswordEnv); envPassword != "" {
		return envPassword, nil
	}

	if passwords.FromFile != "" {
		content, err := os.ReadFile(passwords.FromFile)
		if err != nil {
			return "", fmt.Errorf("failed to read password file: %w", err)
		}
		password := strings.TrimSpace(string(content))
		if password == "" {
			return "", fmt.Errorf("password file is empty")
		}
		return password, nil
	}

	if passwords.FromArgs != "" {
		return passwords.FromArgs, nil
	}

	password, err := c.io.ReadPassword("Password: ")
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	if password == "" {
		return "", fmt.Errorf("password cannot be empty")
	}
	return password, nil
}

// readRequired возвращает value или запрашивает его интерактивно
func (c *Cli) readRequired(value, prompt string) (string, error) {
	if value != "" {
		return value, nil
	}
	v, err := c.io.ReadInput(prompt)
	if err != nil {
		return "", fmt.Errorf("failed to read input: %w", err)
	}
	if v == "" {
		return "", fmt.Errorf("%s cannot be empty", strings.TrimSuffix(strings.ToLower(prompt), ": "))
	}
	return v, nil
}
