package storage

import "errors"

// Common client storage errors
var (
	// ErrStorageUnavailable indicates that the durable store could not be opened or written
	ErrStorageUnavailable = errors.New("local storage unavailable")

	// ErrStorageLocked indicates that another process holds the durable store.
	// It is not a reason to fall back to memory: writes would be lost on exit.
	ErrStorageLocked = errors.New("local storage is locked by another process")

	// ErrStorageClosed indicates that storage is closed
	ErrStorageClosed = errors.New("storage is closed")

	// ErrUnknownCollection indicates that collection is not part of the schema
	ErrUnknownCollection = errors.New("unknown collection")
)
