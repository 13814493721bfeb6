package auth

import "errors"

var (
	// ErrAuthNotFound возвращается, когда сессия не сохранена
	ErrAuthNotFound = errors.New("not logged in")
	// ErrAuthExpired возвращается, когда сохраненная сессия истекла
	ErrAuthExpired = errors.New("session expired, please login again")
)
