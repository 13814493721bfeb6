// Package storagetest holds the behavioural suite every storage.Store must pass.
package storagetest

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/rentsync/internal/client/storage"
)

// Run executes the suite against stores produced by newStore.
func Run(t *testing.T, newStore func(t *testing.T) storage.Store) {
	t.Helper()

	t.Run("get missing key reports absent", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		err := s.View(ctx, func(r storage.Reader) error {
			v, found, err := r.Get(storage.CollectionQueue, "nope")
			require.NoError(t, err)
			assert.False(t, found)
			assert.Nil(t, v)
			return nil
		})
		require.NoError(t, err)
	})

	t.Run("put overwrites and get returns latest", func(t *testing.T) {
		s := newStore(t)

		put(t, s, storage.CollectionPreferences, "k", "v1", nil)
		put(t, s, storage.CollectionPreferences, "k", "v2", nil)

		assert.Equal(t, "v2", get(t, s, storage.CollectionPreferences, "k"))
	})

	t.Run("query by index follows overwrites", func(t *testing.T) {
		s := newStore(t)

		put(t, s, storage.CollectionQueue, "b", "item-b", storage.Indexes{storage.IndexState: "pending"})
		put(t, s, storage.CollectionQueue, "a", "item-a", storage.Indexes{storage.IndexState: "pending"})
		put(t, s, storage.CollectionQueue, "c", "item-c", storage.Indexes{storage.IndexState: "synced"})

		assert.Equal(t, []string{"a", "b"}, query(t, s, storage.CollectionQueue, storage.IndexState, "pending"))

		put(t, s, storage.CollectionQueue, "a", "item-a", storage.Indexes{storage.IndexState: "synced"})
		assert.Equal(t, []string{"b"}, query(t, s, storage.CollectionQueue, storage.IndexState, "pending"))
		assert.Equal(t, []string{"a", "c"}, query(t, s, storage.CollectionQueue, storage.IndexState, "synced"))

		assert.Empty(t, query(t, s, storage.CollectionQueue, storage.IndexState, "rejected"))
		assert.Empty(t, query(t, s, storage.CollectionQueue, "no-such-index", "x"))
	})

	t.Run("delete removes record and index entries", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		put(t, s, storage.CollectionConflicts, "c1", "x", storage.Indexes{storage.IndexOpen: "true"})

		err := s.Update(ctx, func(tx storage.Tx) error {
			return tx.Delete(storage.CollectionConflicts, "c1")
		})
		require.NoError(t, err)

		err = s.Update(ctx, func(tx storage.Tx) error {
			// повторное удаление не ошибка
			return tx.Delete(storage.CollectionConflicts, "c1")
		})
		require.NoError(t, err)

		assert.Empty(t, query(t, s, storage.CollectionConflicts, storage.IndexOpen, "true"))
		err = s.View(ctx, func(r storage.Reader) error {
			_, found, err := r.Get(storage.CollectionConflicts, "c1")
			assert.False(t, found)
			return err
		})
		require.NoError(t, err)
	})

	t.Run("failed update rolls back every write", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		boom := errors.New("boom")

		err := s.Update(ctx, func(tx storage.Tx) error {
			if err := tx.Put(storage.CollectionQueue, "q1", []byte("x"), storage.Indexes{storage.IndexState: "pending"}); err != nil {
				return err
			}
			if err := tx.Put(storage.CollectionSyncMetadata, "cart/1", []byte("y"), nil); err != nil {
				return err
			}
			return boom
		})
		require.ErrorIs(t, err, boom)

		err = s.View(ctx, func(r storage.Reader) error {
			_, found, err := r.Get(storage.CollectionQueue, "q1")
			require.NoError(t, err)
			assert.False(t, found)
			_, found, err = r.Get(storage.CollectionSyncMetadata, "cart/1")
			require.NoError(t, err)
			assert.False(t, found)
			return nil
		})
		require.NoError(t, err)
		assert.Empty(t, query(t, s, storage.CollectionQueue, storage.IndexState, "pending"))
	})

	t.Run("sequence is monotonic per collection", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		var seqs []uint64
		for range 3 {
			err := s.Update(ctx, func(tx storage.Tx) error {
				n, err := tx.NextSequence(storage.CollectionQueue)
				seqs = append(seqs, n)
				return err
			})
			require.NoError(t, err)
		}
		assert.Equal(t, []uint64{1, 2, 3}, seqs)
	})

	t.Run("list returns records ordered by key", func(t *testing.T) {
		s := newStore(t)

		put(t, s, storage.CollectionSyncMetadata, "wishlist/2", "b", nil)
		put(t, s, storage.CollectionSyncMetadata, "cart/1", "a", nil)

		var keys []string
		err := s.View(context.Background(), func(r storage.Reader) error {
			recs, err := r.List(storage.CollectionSyncMetadata)
			for _, rec := range recs {
				keys = append(keys, rec.Key)
			}
			return err
		})
		require.NoError(t, err)
		assert.Equal(t, []string{"cart/1", "wishlist/2"}, keys)
	})

	t.Run("unknown collection is rejected", func(t *testing.T) {
		s := newStore(t)

		err := s.Update(context.Background(), func(tx storage.Tx) error {
			return tx.Put("orders", "1", []byte("x"), nil)
		})
		assert.ErrorIs(t, err, storage.ErrUnknownCollection)
	})

	t.Run("typed helpers round trip", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		type pref struct {
			Theme string `json:"theme"`
		}

		err := s.Update(ctx, func(tx storage.Tx) error {
			return storage.Save(tx, storage.CollectionPreferences, "ui", pref{Theme: "dark"}, nil)
		})
		require.NoError(t, err)

		err = s.View(ctx, func(r storage.Reader) error {
			p, found, err := storage.Load[pref](r, storage.CollectionPreferences, "ui")
			require.NoError(t, err)
			require.True(t, found)
			assert.Equal(t, "dark", p.Theme)

			missing, found, err := storage.Load[pref](r, storage.CollectionPreferences, "none")
			require.NoError(t, err)
			assert.False(t, found)
			assert.Nil(t, missing)
			return nil
		})
		require.NoError(t, err)
	})

	t.Run("closed store refuses work", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Close())

		err := s.View(context.Background(), func(storage.Reader) error { return nil })
		assert.ErrorIs(t, err, storage.ErrStorageClosed)
		err = s.Update(context.Background(), func(storage.Tx) error { return nil })
		assert.ErrorIs(t, err, storage.ErrStorageClosed)
	})

	t.Run("cancelled context is honoured", func(t *testing.T) {
		s := newStore(t)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		err := s.Update(ctx, func(storage.Tx) error { return nil })
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func put(t *testing.T, s storage.Store, collection, key, value string, idx storage.Indexes) {
	t.Helper()
	err := s.Update(context.Background(), func(tx storage.Tx) error {
		return tx.Put(collection, key, []byte(value), idx)
	})
	require.NoError(t, err)
}

func get(t *testing.T, s storage.Store, collection, key string) string {
	t.Helper()
	var out string
	err := s.View(context.Background(), func(r storage.Reader) error {
		v, found, err := r.Get(collection, key)
		require.True(t, found)
		out = string(v)
		return err
	})
	require.NoError(t, err)
	return out
}

func query(t *testing.T, s storage.Store, collection, index, value string) []string {
	t.Helper()
	keys := []string{}
	err := s.View(context.Background(), func(r storage.Reader) error {
		recs, err := r.QueryByIndex(collection, index, value)
		for _, rec := range recs {
			keys = append(keys, rec.Key)
		}
		return err
	})
	require.NoError(t, err)
	return keys
}
