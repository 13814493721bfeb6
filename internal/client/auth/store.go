package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/iudanet/rentsync/internal/client/storage"
	"github.com/iudanet/rentsync/internal/models"
)

// authKey ключ сессии в коллекции preferences
const authKey = "auth"

// Cache хранит сессию пользователя в локальном хранилище.
// Сервер остается источником истины: кэш не отдает сессию после ExpiresAt.
type Cache struct {
	store storage.Store
	clock func() time.Time
}

// NewCache creates session cache over store.
func NewCache(store storage.Store, clock func() time.Time) *Cache {
	if clock == nil {
		clock = time.Now
	}
	return &Cache{store: store, clock: clock}
}

// Save stores the session, replacing the previous one.
func (c *Cache) Save(ctx context.Context, auth *models.CachedAuth) error {
	if auth == nil {
		return fmt.Errorf("auth data is nil")
	}
	err := c.store.Update(ctx, func(tx storage.Tx) error {
		return storage.Save(tx, storage.CollectionPreferences, authKey, auth, nil)
	})
	if err != nil {
		return fmt.Errorf("failed to save auth: %w", err)
	}
	return nil
}

// Get returns the cached session. An expired session is removed
// and ErrAuthExpired is returned.
func (c *Cache) Get(ctx context.Context) (*models.CachedAuth, error) {
	var auth *models.CachedAuth
	err := c.store.View(ctx, func(r storage.Reader) error {
		var found bool
		var err error
		auth, found, err = storage.Load[models.CachedAuth](r, storage.CollectionPreferences, authKey)
		if err != nil {
			return err
		}
		if !found {
			return ErrAuthNotFound
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if auth.Expired(c.clock()) {
		if err := c.Clear(ctx); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrAuthExpired, err)
		}
		return nil, ErrAuthExpired
	}
	return auth, nil
}

// Clear removes the cached session.
func (c *Cache) Clear(ctx context.Context) error {
	err := c.store.Update(ctx, func(tx storage.Tx) error {
		return tx.Delete(storage.CollectionPreferences, authKey)
	})
	if err != nil {
		return fmt.Errorf("failed to delete auth: %w", err)
	}
	return nil
}

// IsAuthenticated reports whether a live session is cached.
func (c *Cache) IsAuthenticated(ctx context.Context) (bool, error) {
	_, err := c.Get(ctx)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, ErrAuthNotFound), errors.Is(err, ErrAuthExpired):
		return false, nil
	default:
		return false, err
	}
}

// Token returns the access token of the live session.
// Cache implements api.TokenSource.
func (c *Cache) Token(ctx context.Context) (string, error) {
	auth, err := c.Get(ctx)
	if err != nil {
		return "", err
	}
	return auth.AccessToken, nil
}
