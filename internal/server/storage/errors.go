package storage

import "errors"

// Common storage errors
var (
	// ErrUserNotFound indicates that user was not found in storage
	ErrUserNotFound = errors.New("user not found")

	// ErrUserAlreadyExists indicates that user with this username already exists
	ErrUserAlreadyExists = errors.New("user already exists")

	// ErrRowNotFound indicates that the row does not exist or is deleted
	ErrRowNotFound = errors.New("row not found")

	// ErrRowExists indicates a create of a row that is already live
	ErrRowExists = errors.New("row already exists")

	// ErrVersionConflict indicates that the stored version differs from the expected one
	ErrVersionConflict = errors.New("version conflict")
)
