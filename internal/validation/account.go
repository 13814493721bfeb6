// Package validation checks user input before it reaches the queue or the database.
package validation

import (
	"errors"
	"fmt"
	"regexp"
)

// ErrInvalidCredentials возвращается при некорректных учетных данных
var ErrInvalidCredentials = errors.New("invalid credentials")

// usernamePattern латиница, цифры, подчеркивание и точка, 3-32 символа
var usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9_.]{3,32}$`)

const (
	MinUsernameLen = 3
	MaxUsernameLen = 32
	MinPasswordLen = 8
	// MaxPasswordLen ограничение bcrypt
	MaxPasswordLen = 72
)

// ValidateUsername checks the account login of a storefront customer.
func ValidateUsername(username string) error {
	switch {
	case username == "":
		return fmt.Errorf("%w: username cannot be empty", ErrInvalidCredentials)
	case len(username) < MinUsernameLen:
		return fmt.Errorf("%w: username must be at least %d characters long", ErrInvalidCredentials, MinUsernameLen)
	case len(username) > MaxUsernameLen:
		return fmt.Errorf("%w: username must not exceed %d characters", ErrInvalidCredentials, MaxUsernameLen)
	case !usernamePattern.MatchString(username):
		return fmt.Errorf("%w: username can only contain letters, numbers, dots and underscores", ErrInvalidCredentials)
	}
	return nil
}

// ValidatePassword checks password length limits.
func ValidatePassword(password string) error {
	switch {
	case password == "":
		return fmt.Errorf("%w: password cannot be empty", ErrInvalidCredentials)
	case len(password) < MinPasswordLen:
		return fmt.Errorf("%w: password must be at least %d characters long", ErrInvalidCredentials, MinPasswordLen)
	case len(password) > MaxPasswordLen:
		return fmt.Errorf("%w: password must not exceed %d bytes", ErrInvalidCredentials, MaxPasswordLen)
	}
	return nil
}
