package handlers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/iudanet/rentsync/pkg/api"
)

func newTestAuthHandler(t *testing.T) *AuthHandler {
	t.Helper()
	return NewAuthHandler(setupTestLogger(), setupTestStorage(t), testJWTConfig()).
		WithBcryptCost(bcrypt.MinCost)
}

func TestAuthHandler_Register(t *testing.T) {
	h := newTestAuthHandler(t)

	w := httptest.NewRecorder()
	h.Register(w, jsonRequest(t, http.MethodPost, "/api/v1/auth/register",
		api.RegisterRequest{Username: "alice", Password: "s3cret-pass"}))

	require.Equal(t, http.StatusCreated, w.Code)
	resp := decodeBody[api.RegisterResponse](t, w)
	assert.NotEmpty(t, resp.UserID)

	// повторная регистрация
	w = httptest.NewRecorder()
	h.Register(w, jsonRequest(t, http.MethodPost, "/api/v1/auth/register",
		api.RegisterRequest{Username: "alice", Password: "another-pass"}))
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestAuthHandler_Register_BadInput(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"invalid json", `{"username":`},
		{"unknown field", `{"username":"alice","password":"s3cret-pass","admin":true}`},
		{"short username", `{"username":"al","password":"s3cret-pass"}`},
		{"bad characters", `{"username":"al ice","password":"s3cret-pass"}`},
		{"short password", `{"username":"alice","password":"short"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newTestAuthHandler(t)
			req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/register", strings.NewReader(tt.body))
			w := httptest.NewRecorder()

			h.Register(w, req)

			assert.Equal(t, http.StatusBadRequest, w.Code)
			resp := decodeBody[api.ErrorResponse](t, w)
			assert.Equal(t, "Bad Request", resp.Error)
			assert.NotEmpty(t, resp.Message)
		})
	}
}

func TestAuthHandler_Login(t *testing.T) {
	h := newTestAuthHandler(t)

	w := httptest.NewRecorder()
	h.Register(w, jsonRequest(t, http.MethodPost, "/api/v1/auth/register",
		api.RegisterRequest{Username: "alice", Password: "s3cret-pass"}))
	require.Equal(t, http.StatusCreated, w.Code)
	userID := decodeBody[api.RegisterResponse](t, w).UserID

	t.Run("success", func(t *testing.T) {
		w := httptest.NewRecorder()
		h.Login(w, jsonRequest(t, http.MethodPost, "/api/v1/auth/login",
			api.LoginRequest{Username: "alice", Password: "s3cret-pass"}))

		require.Equal(t, http.StatusOK, w.Code)
		resp := decodeBody[api.TokenResponse](t, w)
		assert.Equal(t, userID, resp.UserID)
		assert.Equal(t, int64(15*60), resp.ExpiresIn)

		claims, err := ValidateAccessToken(testJWTConfig(), resp.AccessToken)
		require.NoError(t, err)
		assert.Equal(t, userID, claims.UserID)
		assert.Equal(t, "alice", claims.Username)
	})

	tests := []struct {
		name     string
		req      api.LoginRequest
		wantCode int
	}{
		{"wrong password", api.LoginRequest{Username: "alice", Password: "wrong-pass"}, http.StatusUnauthorized},
		{"unknown user", api.LoginRequest{Username: "bob", Password: "s3cret-pass"}, http.StatusUnauthorized},
		{"empty fields", api.LoginRequest{}, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			h.Login(w, jsonRequest(t, http.MethodPost, "/api/v1/auth/login", tt.req))
			assert.Equal(t, tt.wantCode, w.Code)
		})
	}
}
