package storage

import "errors"

// Common client storage errors
var (
	// ErrAuthNotFound indicates that no authentication data exists
	ErrAuthNotFound = errors.New("authentication data not found")

	// ErrChangeNotFound indicates that pending change was not found
	ErrChangeNotFound = errors.New("pending change not found")

	// ErrConflictNotFound indicates that sync conflict was not found
	ErrConflictNotFound = errors.New("sync conflict not found")

	// ErrRecordNotFound indicates that no server copy of the entity is known locally
	ErrRecordNotFound = errors.New("record not found")

	// ErrStorageClosed indicates that storage is closed
	ErrStorageClosed = errors.New("storage is closed")
)
