package validation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateUsername(t *testing.T) {
	tests := []struct {
		name     string
		username string
		errMsg   string
		wantErr  bool
	}{
		{name: "lowercase", username: "alice"},
		{name: "mixed case with digits", username: "Alice2025"},
		{name: "dot and underscore", username: "alice.smith_1"},
		{name: "max length", username: strings.Repeat("a", 32)},
		{name: "empty", username: "", wantErr: true, errMsg: "cannot be empty"},
		{name: "too short", username: "ab", wantErr: true, errMsg: "at least 3"},
		{name: "too long", username: strings.Repeat("a", 33), wantErr: true, errMsg: "must not exceed 32"},
		{name: "with dash", username: "alice-smith", wantErr: true, errMsg: "can only contain"},
		{name: "with space", username: "alice smith", wantErr: true, errMsg: "can only contain"},
		{name: "email", username: "alice@shop", wantErr: true, errMsg: "can only contain"},
		{name: "cyrillic", username: "алиса", wantErr: true, errMsg: "can only contain"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateUsername(tt.username)
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrInvalidCredentials)
				assert.Contains(t, err.Error(), tt.errMsg)
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestValidatePassword(t *testing.T) {
	tests := []struct {
		name     string
		password string
		errMsg   string
		wantErr  bool
	}{
		{name: "exactly 8 chars", password: "rent2025"},
		{name: "special chars", password: "P@ssw0rd!"},
		{name: "unicode", password: "пароль12"},
		{name: "empty", password: "", wantErr: true, errMsg: "cannot be empty"},
		{name: "too short", password: "rent25", wantErr: true, errMsg: "at least 8"},
		{name: "over bcrypt limit", password: strings.Repeat("x", 73), wantErr: true, errMsg: "must not exceed 72"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePassword(tt.password)
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errMsg)
				return
			}
			require.NoError(t, err)
		})
	}
}
