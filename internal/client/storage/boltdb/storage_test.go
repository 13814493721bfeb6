package boltdb

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.etcd.io/bbolt"

	"github.com/iudanet/rentsync/internal/client/storage"
	"github.com/iudanet/rentsync/internal/client/storage/memory"
	"github.com/iudanet/rentsync/internal/client/storage/storagetest"
)

// createTestStorage создает временное хранилище для тестов
func createTestStorage(t *testing.T) (*Storage, string) {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")

	store, err := New(context.Background(), dbPath)
	require.NoError(t, err)
	require.NotNil(t, store)
	t.Cleanup(func() {
		_ = store.Close()
	})

	return store, dbPath
}

func TestStorage_Contract(t *testing.T) {
	storagetest.Run(t, func(t *testing.T) storage.Store {
		s, _ := createTestStorage(t)
		return s
	})
}

func TestNew_Success(t *testing.T) {
	store, dbPath := createTestStorage(t)

	// Проверяем что файл БД действительно создан
	info, err := os.Stat(dbPath)
	require.NoError(t, err)
	assert.False(t, info.IsDir())

	// Проверяем, что бакеты существуют
	err = store.db.View(func(tx *bbolt.Tx) error {
		for _, c := range storage.Collections {
			if tx.Bucket([]byte(c)) == nil || tx.Bucket(refsBucket(c)) == nil {
				return os.ErrNotExist
			}
		}
		return nil
	})
	require.NoError(t, err)
}

func TestNew_InvalidPath(t *testing.T) {
	// Каталог не существует
	invalidPath := filepath.Join(t.TempDir(), "missing", "dir", "test.db")
	store, err := New(context.Background(), invalidPath)
	assert.ErrorIs(t, err, storage.ErrStorageUnavailable)
	assert.Nil(t, store)
}

func TestClose(t *testing.T) {
	store, _ := createTestStorage(t)

	// Закрываем БД
	err := store.Close()
	assert.NoError(t, err)

	// После закрытия поле db должно стать nil
	assert.Nil(t, store.db)

	// Второй вызов Close не должен падать и должен просто ничего не делать
	err = store.Close()
	assert.NoError(t, err)
}

func TestClose_ConcurrentWithTransactions(t *testing.T) {
	store, _ := createTestStorage(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	errs := make(chan error, 100)
	for i := range 50 {
		wg.Add(2)
		go func() {
			defer wg.Done()
			errs <- store.Update(ctx, func(tx storage.Tx) error {
				return tx.Put(storage.CollectionPreferences, fmt.Sprintf("k%d", i), []byte("v"), nil)
			})
		}()
		go func() {
			defer wg.Done()
			errs <- store.View(ctx, func(r storage.Reader) error {
				_, _, err := r.Get(storage.CollectionPreferences, "k0")
				return err
			})
		}()
	}
	require.NoError(t, store.Close())
	wg.Wait()
	close(errs)

	// транзакция либо успела до Close, либо видит закрытое хранилище
	for err := range errs {
		if err != nil {
			assert.ErrorIs(t, err, storage.ErrStorageClosed)
		}
	}

	err := store.View(ctx, func(storage.Reader) error { return nil })
	assert.ErrorIs(t, err, storage.ErrStorageClosed)
}

func TestStorage_SurvivesReopen(t *testing.T) {
	store, dbPath := createTestStorage(t)
	ctx := context.Background()

	err := store.Update(ctx, func(tx storage.Tx) error {
		if _, err := tx.NextSequence(storage.CollectionQueue); err != nil {
			return err
		}
		return tx.Put(storage.CollectionQueue, "q1", []byte(`{"id":"q1"}`), storage.Indexes{storage.IndexState: "pending"})
	})
	require.NoError(t, err)
	require.NoError(t, store.Close())

	reopened, err := New(ctx, dbPath)
	require.NoError(t, err)
	defer reopened.Close()

	err = reopened.Update(ctx, func(tx storage.Tx) error {
		recs, err := tx.QueryByIndex(storage.CollectionQueue, storage.IndexState, "pending")
		require.NoError(t, err)
		require.Len(t, recs, 1)
		assert.Equal(t, "q1", recs[0].Key)

		seq, err := tx.NextSequence(storage.CollectionQueue)
		require.NoError(t, err)
		assert.Equal(t, uint64(2), seq)
		return nil
	})
	require.NoError(t, err)
}

func TestOpenWithFallback(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	ctx := context.Background()

	t.Run("durable when path is usable", func(t *testing.T) {
		s, err := OpenWithFallback(ctx, filepath.Join(t.TempDir(), "ok.db"), logger)
		require.NoError(t, err)
		defer s.Close()
		assert.IsType(t, &Storage{}, s)
	})

	t.Run("memory when path is unusable", func(t *testing.T) {
		s, err := OpenWithFallback(ctx, filepath.Join(t.TempDir(), "missing", "x.db"), logger)
		require.ErrorIs(t, err, storage.ErrStorageUnavailable)
		require.NotNil(t, s)
		defer s.Close()
		assert.IsType(t, &memory.Store{}, s)

		err = s.Update(ctx, func(tx storage.Tx) error {
			return tx.Put(storage.CollectionPreferences, "k", []byte("v"), nil)
		})
		assert.NoError(t, err)
	})

	t.Run("no memory fallback when file is locked", func(t *testing.T) {
		// файл уже открыт другим процессом, например rentsync watch
		_, path := createTestStorage(t)

		s, err := OpenWithFallback(ctx, path, logger)
		require.ErrorIs(t, err, storage.ErrStorageLocked)
		assert.NotErrorIs(t, err, storage.ErrStorageUnavailable)
		assert.Nil(t, s)
	})
}
