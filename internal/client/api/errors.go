package api

import (
	"errors"
	"fmt"
	"net/http"
)

// Классы ответов сервера
var (
	// ErrConflict indicates that the server state does not match the expected version
	ErrConflict = errors.New("remote conflict")

	// ErrNotFound indicates that the row does not exist on the server
	ErrNotFound = errors.New("remote row not found")

	// ErrRejected indicates that the server permanently refused the request
	ErrRejected = errors.New("request rejected by server")

	// ErrUnauthorized indicates missing or expired credentials
	ErrUnauthorized = errors.New("unauthorized")
)

// StatusError is returned for every non-2xx response.
// It unwraps to one of the class errors above when the status has a class.
type StatusError struct {
	Message    string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("server error (%d): %s", e.StatusCode, e.Message)
}

func (e *StatusError) Unwrap() error {
	switch e.StatusCode {
	case http.StatusConflict:
		return ErrConflict
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusBadRequest, http.StatusForbidden, http.StatusUnprocessableEntity:
		return ErrRejected
	case http.StatusUnauthorized:
		return ErrUnauthorized
	}
	return nil
}
