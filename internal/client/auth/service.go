package auth

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/iudanet/rentsync/internal/models"
	"github.com/iudanet/rentsync/internal/validation"
	"github.com/iudanet/rentsync/pkg/api"
)

//go:generate moq -out backend_mock.go . Backend

// Backend is the part of the api client used for authentication.
type Backend interface {
	Register(ctx context.Context, req api.RegisterRequest) (*api.RegisterResponse, error)
	Login(ctx context.Context, req api.LoginRequest) (*api.TokenResponse, error)
}

// Service предоставляет функции авторизации
type Service struct {
	backend Backend
	cache   *Cache
	logger  *slog.Logger
	clock   func() time.Time
}

// NewService создает новый сервис авторизации
func NewService(backend Backend, cache *Cache, logger *slog.Logger) *Service {
	return &Service{
		backend: backend,
		cache:   cache,
		logger:  logger,
		clock:   cache.clock,
	}
}

// Register регистрирует нового пользователя.
// Регистрация не выполняет вход: после нее нужен Login.
func (s *Service) Register(ctx context.Context, username, password string) (*api.RegisterResponse, error) {
	if err := validation.ValidateUsername(username); err != nil {
		return nil, err
	}
	if err := validation.ValidatePassword(password); err != nil {
		return nil, err
	}

	resp, err := s.backend.Register(ctx, api.RegisterRequest{Username: username, Password: password})
	if err != nil {
		return nil, fmt.Errorf("registration failed: %w", err)
	}

	s.logger.Info("User registered", "username", username, "user_id", resp.UserID)
	return resp, nil
}

// Login выполняет аутентификацию и кэширует сессию локально
func (s *Service) Login(ctx context.Context, username, password string) (*models.CachedAuth, error) {
	if err := validation.ValidateUsername(username); err != nil {
		return nil, err
	}
	if err := validation.ValidatePassword(password); err != nil {
		return nil, err
	}

	resp, err := s.backend.Login(ctx, api.LoginRequest{Username: username, Password: password})
	if err != nil {
		return nil, fmt.Errorf("login failed: %w", err)
	}

	now := s.clock()
	auth := &models.CachedAuth{
		UserID:      resp.UserID,
		Username:    username,
		AccessToken: resp.AccessToken,
		CachedAt:    now,
		ExpiresAt:   now.Add(time.Duration(resp.ExpiresIn) * time.Second),
	}
	if err := s.cache.Save(ctx, auth); err != nil {
		return nil, err
	}

	s.logger.Info("User logged in", "username", username, "expires_at", auth.ExpiresAt)
	return auth, nil
}

// Logout удаляет локальную сессию.
// Неотправленные мутации остаются в очереди и уйдут после следующего входа.
func (s *Service) Logout(ctx context.Context) error {
	if err := s.cache.Clear(ctx); err != nil {
		return err
	}
	s.logger.Info("User logged out")
	return nil
}

// Current returns the cached session if it is still valid.
func (s *Service) Current(ctx context.Context) (*models.CachedAuth, error) {
	return s.cache.Get(ctx)
}
