package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/rentsync/internal/client/storage"
	"github.com/iudanet/rentsync/internal/client/storage/storagetest"
)

func TestStore_Contract(t *testing.T) {
	storagetest.Run(t, func(t *testing.T) storage.Store {
		return New()
	})
}

func TestStore_ViewIsReadOnly(t *testing.T) {
	s := New()

	err := s.View(context.Background(), func(r storage.Reader) error {
		tx, ok := r.(storage.Tx)
		require.True(t, ok)
		return tx.Put(storage.CollectionQueue, "k", []byte("v"), nil)
	})
	assert.Error(t, err)
}

func TestStore_ValuesAreCopied(t *testing.T) {
	s := New()
	ctx := context.Background()
	value := []byte("original")

	err := s.Update(ctx, func(tx storage.Tx) error {
		return tx.Put(storage.CollectionPreferences, "k", value, nil)
	})
	require.NoError(t, err)
	value[0] = 'X'

	err = s.View(ctx, func(r storage.Reader) error {
		got, _, err := r.Get(storage.CollectionPreferences, "k")
		assert.Equal(t, "original", string(got))
		return err
	})
	require.NoError(t, err)
}
