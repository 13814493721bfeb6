package queue

import "errors"

var (
	// ErrInvalidMutation indicates that the mutation lacks a known type, operation or id
	ErrInvalidMutation = errors.New("invalid mutation")

	// ErrItemNotFound indicates that queue item does not exist
	ErrItemNotFound = errors.New("queue item not found")

	// ErrItemClosed indicates that queue item was rejected or superseded
	ErrItemClosed = errors.New("queue item is closed")

	// ErrConflictNotFound indicates that conflict record does not exist
	ErrConflictNotFound = errors.New("conflict not found")

	// ErrConflictResolved indicates that conflict was already resolved
	ErrConflictResolved = errors.New("conflict already resolved")
)
