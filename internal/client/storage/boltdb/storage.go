package boltdb

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.etcd.io/bbolt"
	berrors "go.etcd.io/bbolt/errors"

	"github.com/iudanet/rentsync/internal/client/storage"
	"github.com/iudanet/rentsync/internal/client/storage/memory"
)

// lockTimeout ограничивает ожидание блокировки файла другим процессом
const lockTimeout = time.Second

// Ensure Storage implements storage.Store.
var _ storage.Store = (*Storage)(nil)

// Storage represents BoltDB storage implementation for client
type Storage struct {
	db *bbolt.DB
	mu sync.RWMutex // защищает db от Close во время транзакций
}

// New creates a new BoltDB storage instance
// dbPath is the path to the BoltDB database file
func New(ctx context.Context, dbPath string) (*Storage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Открываем BoltDB
	db, err := bbolt.Open(dbPath, 0600, &bbolt.Options{Timeout: lockTimeout})
	if errors.Is(err, berrors.ErrTimeout) {
		return nil, fmt.Errorf("%w: %s: %w", storage.ErrStorageLocked, dbPath, err)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: failed to open boltdb: %w", storage.ErrStorageUnavailable, err)
	}

	s := &Storage{db: db}

	// Инициализируем buckets
	if err := s.initBuckets(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: failed to initialize buckets: %w", storage.ErrStorageUnavailable, err)
	}

	return s, nil
}

// OpenWithFallback opens the durable store at dbPath.
// When the file cannot be opened it returns an in-memory store together with
// a non-nil warning wrapping storage.ErrStorageUnavailable: the caller keeps
// working, but nothing survives a restart. A file locked by another process
// is reported as storage.ErrStorageLocked with a nil store.
func OpenWithFallback(ctx context.Context, dbPath string, logger *slog.Logger) (storage.Store, error) {
	s, err := New(ctx, dbPath)
	if err == nil {
		return s, nil
	}
	if !errors.Is(err, storage.ErrStorageUnavailable) {
		return nil, err
	}

	logger.Warn("durable storage unavailable, falling back to memory",
		"path", dbPath,
		"error", err)
	return memory.New(), err
}

// Close closes the database connection
func (s *Storage) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

// Update runs fn in a read-write transaction.
// Writes made by fn are committed only if fn returns nil.
func (s *Storage) Update(ctx context.Context, fn func(tx storage.Tx) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.db == nil {
		return storage.ErrStorageClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	var fnErr error
	err := s.db.Update(func(btx *bbolt.Tx) error {
		fnErr = fn(&boltTx{tx: btx})
		return fnErr
	})
	if fnErr != nil {
		return fnErr
	}
	if err != nil {
		return unavailable("commit", err)
	}
	return nil
}

// View runs fn in a read-only transaction.
func (s *Storage) View(ctx context.Context, fn func(r storage.Reader) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.db == nil {
		return storage.ErrStorageClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	var fnErr error
	err := s.db.View(func(btx *bbolt.Tx) error {
		fnErr = fn(&boltTx{tx: btx})
		return fnErr
	})
	if fnErr != nil {
		return fnErr
	}
	if err != nil {
		return unavailable("view", err)
	}
	return nil
}

// initBuckets создает необходимые buckets если они не существуют
func (s *Storage) initBuckets() error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		for _, name := range storage.Collections {
			if _, err := tx.CreateBucketIfNotExists([]byte(name)); err != nil {
				return fmt.Errorf("failed to create %s bucket: %w", name, err)
			}
			if _, err := tx.CreateBucketIfNotExists(refsBucket(name)); err != nil {
				return fmt.Errorf("failed to create %s refs bucket: %w", name, err)
			}
		}
		return nil
	})
}

func unavailable(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", storage.ErrStorageUnavailable, op, err)
}
