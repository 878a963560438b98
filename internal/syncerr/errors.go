// Package syncerr классифицирует ошибки синхронизации.
package syncerr

import (
	"errors"
	"fmt"
)

// Kind категория ошибки синхронизации
type Kind string

const (
	KindNetwork    Kind = "network"
	KindConflict   Kind = "version_conflict"
	KindValidation Kind = "validation"
	KindLockDenied Kind = "lock_denied"
	KindAuth       Kind = "auth_expired"
	KindInternal   Kind = "internal"
)

// Retryable сообщает, имеет ли смысл повторять операцию
func (k Kind) Retryable() bool {
	return k == KindNetwork
}

// Error ошибка синхронизации с категорией
type Error struct {
	Err      error
	Kind     Kind
	ChangeID string
	Message  string
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if e.ChangeID != "" {
		return fmt.Sprintf("%s: change %s: %s", e.Kind, e.ChangeID, msg)
	}
	return fmt.Sprintf("%s: %s", e.Kind, msg)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is позволяет сравнивать с sentinel-ошибками по категории
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return t.Kind == e.Kind && t.ChangeID == "" && t.Message == "" && t.Err == nil
	}
	return false
}

// Sentinel-ошибки для errors.Is
var (
	ErrNetwork     = &Error{Kind: KindNetwork}
	ErrConflict    = &Error{Kind: KindConflict}
	ErrValidation  = &Error{Kind: KindValidation}
	ErrLockDenied  = &Error{Kind: KindLockDenied}
	ErrAuthExpired = &Error{Kind: KindAuth}

	// ErrOffline возвращается при попытке синхронизации без сети
	ErrOffline = errors.New("device is offline")

	// ErrUnreachable сервер недоступен на уровне транспорта (нет соединения)
	ErrUnreachable = errors.New("server unreachable")
)

// Network оборачивает транспортную ошибку
func Network(err error) error {
	return &Error{Kind: KindNetwork, Err: err}
}

// Unreachable оборачивает ошибку соединения: это сетевая ошибка,
// по которой устройство переходит в offline
func Unreachable(err error) error {
	return &Error{Kind: KindNetwork, Err: fmt.Errorf("%w: %w", ErrUnreachable, err)}
}

// Validation создает ошибку валидации изменения
func Validation(changeID, format string, args ...any) error {
	return &Error{Kind: KindValidation, ChangeID: changeID, Message: fmt.Sprintf(format, args...)}
}

// AuthExpired создает ошибку истекшей сессии
func AuthExpired(err error) error {
	return &Error{Kind: KindAuth, Err: err}
}

// KindOf возвращает категорию ошибки. Неизвестные ошибки считаются внутренними.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// IsRetryable сообщает, можно ли повторить операцию, завершившуюся этой ошибкой
func IsRetryable(err error) bool {
	return err != nil && KindOf(err).Retryable()
}
