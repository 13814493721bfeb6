package boltdb

import (
	"bytes"
	"encoding/json"
	"fmt"

	"go.etcd.io/bbolt"

	"github.com/iudanet/rentsync/internal/client/storage"
)

// Раскладка buckets:
//   <collection>                 ключ -> значение
//   <collection>/refs            ключ -> JSON индексов записи
//   <collection>/idx/<index>     <значение>\x00<ключ> -> ключ

const indexSep = 0x00

func refsBucket(collection string) []byte {
	return []byte(collection + "/refs")
}

func indexBucket(collection, index string) []byte {
	return []byte(collection + "/idx/" + index)
}

func indexPrefix(value string) []byte {
	return append([]byte(value), indexSep)
}

func indexKey(value, key string) []byte {
	return append(indexPrefix(value), key...)
}

// boltTx адаптирует *bbolt.Tx к storage.Tx
type boltTx struct {
	tx *bbolt.Tx
}

func (t *boltTx) data(collection string) (*bbolt.Bucket, error) {
	if !storage.Known(collection) {
		return nil, fmt.Errorf("%w: %s", storage.ErrUnknownCollection, collection)
	}
	b := t.tx.Bucket([]byte(collection))
	if b == nil {
		return nil, fmt.Errorf("%s bucket not found", collection)
	}
	return b, nil
}

// Get returns a copy of the stored value.
func (t *boltTx) Get(collection, key string) ([]byte, bool, error) {
	b, err := t.data(collection)
	if err != nil {
		return nil, false, err
	}

	v := b.Get([]byte(key))
	if v == nil {
		return nil, false, nil
	}
	// значение действительно только внутри транзакции
	return bytes.Clone(v), true, nil
}

func (t *boltTx) QueryByIndex(collection, index, value string) ([]storage.Record, error) {
	b, err := t.data(collection)
	if err != nil {
		return nil, err
	}

	idx := t.tx.Bucket(indexBucket(collection, index))
	if idx == nil {
		return []storage.Record{}, nil
	}

	prefix := indexPrefix(value)
	recs := []storage.Record{}
	c := idx.Cursor()
	for k, pk := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, pk = c.Next() {
		v := b.Get(pk)
		if v == nil {
			continue
		}
		recs = append(recs, storage.Record{Key: string(pk), Value: bytes.Clone(v)})
	}
	return recs, nil
}

func (t *boltTx) List(collection string) ([]storage.Record, error) {
	b, err := t.data(collection)
	if err != nil {
		return nil, err
	}

	recs := []storage.Record{}
	err = b.ForEach(func(k, v []byte) error {
		recs = append(recs, storage.Record{Key: string(k), Value: bytes.Clone(v)})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", collection, err)
	}
	return recs, nil
}

func (t *boltTx) Put(collection, key string, value []byte, indexes storage.Indexes) error {
	b, err := t.data(collection)
	if err != nil {
		return err
	}
	if key == "" {
		return fmt.Errorf("empty key for %s", collection)
	}

	if err := t.dropIndexes(collection, key); err != nil {
		return err
	}
	if err := b.Put([]byte(key), value); err != nil {
		return unavailable("put "+collection, err)
	}
	if len(indexes) == 0 {
		return nil
	}

	refs, err := json.Marshal(indexes)
	if err != nil {
		return fmt.Errorf("failed to encode indexes: %w", err)
	}
	if err := t.tx.Bucket(refsBucket(collection)).Put([]byte(key), refs); err != nil {
		return unavailable("put refs "+collection, err)
	}

	for name, v := range indexes {
		idx, err := t.tx.CreateBucketIfNotExists(indexBucket(collection, name))
		if err != nil {
			return unavailable("create index "+name, err)
		}
		if err := idx.Put(indexKey(v, key), []byte(key)); err != nil {
			return unavailable("put index "+name, err)
		}
	}
	return nil
}

func (t *boltTx) Delete(collection, key string) error {
	b, err := t.data(collection)
	if err != nil {
		return err
	}
	if err := t.dropIndexes(collection, key); err != nil {
		return err
	}
	if err := b.Delete([]byte(key)); err != nil {
		return unavailable("delete "+collection, err)
	}
	return nil
}

func (t *boltTx) NextSequence(collection string) (uint64, error) {
	b, err := t.data(collection)
	if err != nil {
		return 0, err
	}
	seq, err := b.NextSequence()
	if err != nil {
		return 0, unavailable("sequence "+collection, err)
	}
	return seq, nil
}

// dropIndexes удаляет индексные записи, сохраненные для ключа
func (t *boltTx) dropIndexes(collection, key string) error {
	refs := t.tx.Bucket(refsBucket(collection))
	raw := refs.Get([]byte(key))
	if raw == nil {
		return nil
	}

	var old storage.Indexes
	if err := json.Unmarshal(raw, &old); err != nil {
		return fmt.Errorf("failed to decode indexes of %s/%s: %w", collection, key, err)
	}
	for name, v := range old {
		if idx := t.tx.Bucket(indexBucket(collection, name)); idx != nil {
			if err := idx.Delete(indexKey(v, key)); err != nil {
				return unavailable("delete index "+name, err)
			}
		}
	}
	if err := refs.Delete([]byte(key)); err != nil {
		return unavailable("delete refs "+collection, err)
	}
	return nil
}
