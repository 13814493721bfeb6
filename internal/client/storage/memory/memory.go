// Package memory implements storage.Store in process memory.
// It is used when the durable store cannot be opened and in tests.
package memory

import (
	"bytes"
	"context"
	"fmt"
	"maps"
	"slices"
	"sync"

	"github.com/iudanet/rentsync/internal/client/storage"
)

// Ensure Store implements storage.Store.
var _ storage.Store = (*Store)(nil)

type entry struct {
	indexes storage.Indexes
	value   []byte
}

type state struct {
	data map[string]map[string]entry
	seq  map[string]uint64
}

func newState() *state {
	st := &state{
		data: make(map[string]map[string]entry, len(storage.Collections)),
		seq:  make(map[string]uint64, len(storage.Collections)),
	}
	for _, c := range storage.Collections {
		st.data[c] = make(map[string]entry)
	}
	return st
}

// clone копирует карты; значения неизменяемы после записи, поэтому копируются только ссылки
func (st *state) clone() *state {
	out := &state{
		data: make(map[string]map[string]entry, len(st.data)),
		seq:  maps.Clone(st.seq),
	}
	for c, recs := range st.data {
		out.data[c] = maps.Clone(recs)
	}
	return out
}

// Store is an in-memory storage.Store.
type Store struct {
	st     *state
	mu     sync.RWMutex
	closed bool
}

// New creates an empty store.
func New() *Store {
	return &Store{st: newState()}
}

// Update runs fn on a private copy and swaps it in only when fn succeeds.
func (s *Store) Update(ctx context.Context, fn func(tx storage.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return storage.ErrStorageClosed
	}

	draft := s.st.clone()
	if err := fn(&memTx{st: draft}); err != nil {
		return err
	}
	s.st = draft
	return nil
}

// View runs fn against the current state.
func (s *Store) View(ctx context.Context, fn func(r storage.Reader) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return storage.ErrStorageClosed
	}
	return fn(&memTx{st: s.st, readOnly: true})
}

// Close marks the store closed. Data is dropped.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.st = newState()
	return nil
}

type memTx struct {
	st       *state
	readOnly bool
}

func (t *memTx) collection(name string) (map[string]entry, error) {
	recs, ok := t.st.data[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", storage.ErrUnknownCollection, name)
	}
	return recs, nil
}

func (t *memTx) writable() error {
	if t.readOnly {
		return fmt.Errorf("write in read-only transaction")
	}
	return nil
}

func (t *memTx) Get(collection, key string) ([]byte, bool, error) {
	recs, err := t.collection(collection)
	if err != nil {
		return nil, false, err
	}
	e, ok := recs[key]
	if !ok {
		return nil, false, nil
	}
	return bytes.Clone(e.value), true, nil
}

func (t *memTx) QueryByIndex(collection, index, value string) ([]storage.Record, error) {
	recs, err := t.collection(collection)
	if err != nil {
		return nil, err
	}

	out := []storage.Record{}
	for _, key := range slices.Sorted(maps.Keys(recs)) {
		e := recs[key]
		if v, ok := e.indexes[index]; ok && v == value {
			out = append(out, storage.Record{Key: key, Value: bytes.Clone(e.value)})
		}
	}
	return out, nil
}

func (t *memTx) List(collection string) ([]storage.Record, error) {
	recs, err := t.collection(collection)
	if err != nil {
		return nil, err
	}

	out := make([]storage.Record, 0, len(recs))
	for _, key := range slices.Sorted(maps.Keys(recs)) {
		out = append(out, storage.Record{Key: key, Value: bytes.Clone(recs[key].value)})
	}
	return out, nil
}

func (t *memTx) Put(collection, key string, value []byte, indexes storage.Indexes) error {
	if err := t.writable(); err != nil {
		return err
	}
	recs, err := t.collection(collection)
	if err != nil {
		return err
	}
	if key == "" {
		return fmt.Errorf("empty key for %s", collection)
	}
	recs[key] = entry{value: bytes.Clone(value), indexes: maps.Clone(indexes)}
	return nil
}

func (t *memTx) Delete(collection, key string) error {
	if err := t.writable(); err != nil {
		return err
	}
	recs, err := t.collection(collection)
	if err != nil {
		return err
	}
	delete(recs, key)
	return nil
}

func (t *memTx) NextSequence(collection string) (uint64, error) {
	if err := t.writable(); err != nil {
		return 0, err
	}
	if _, err := t.collection(collection); err != nil {
		return 0, err
	}
	t.st.seq[collection]++
	return t.st.seq[collection], nil
}
