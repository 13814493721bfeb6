package storage

import "context"

//go:generate moq -out store_mock.go . Store

// Collections of the local store.
const (
	CollectionQueue        = "queue"
	CollectionSyncMetadata = "syncMetadata"
	CollectionConflicts    = "conflicts"
	CollectionPreferences  = "preferences"
)

// Secondary indexes maintained by the store.
const (
	IndexState  = "state"  // queue: состояние элемента
	IndexEntity = "entity" // queue, conflicts: ключ сущности "type/id"
	IndexOpen   = "open"   // conflicts: "true" для неразрешенных
	IndexStatus = "status" // syncMetadata: статус сущности
)

// Collections lists every collection created on open.
var Collections = []string{
	CollectionQueue,
	CollectionSyncMetadata,
	CollectionConflicts,
	CollectionPreferences,
}

// Indexes maps index name to the indexed value of a record.
type Indexes map[string]string

// Record is a raw stored value with its primary key.
type Record struct {
	Key   string
	Value []byte
}

// Reader provides read access inside a transaction.
type Reader interface {
	// Get returns the value stored under key.
	// A missing key is reported by found=false, never by an error.
	Get(collection, key string) (value []byte, found bool, err error)

	// QueryByIndex returns records whose index equals value, ordered by primary key.
	QueryByIndex(collection, index, value string) ([]Record, error)

	// List returns every record of the collection ordered by primary key.
	List(collection string) ([]Record, error)
}

// Tx provides read-write access inside a transaction.
type Tx interface {
	Reader

	// Put inserts or overwrites the record and replaces its index entries.
	Put(collection, key string, value []byte, indexes Indexes) error

	// Delete removes the record and its index entries. Missing keys are ignored.
	Delete(collection, key string) error

	// NextSequence returns a monotonically increasing number for the collection.
	NextSequence(collection string) (uint64, error)
}

// Store is the local durable store shared by the queue and the sync engine.
// All writes made inside one Update commit or roll back together.
type Store interface {
	Update(ctx context.Context, fn func(tx Tx) error) error
	View(ctx context.Context, fn func(r Reader) error) error
	Close() error
}

// Known reports whether collection is part of the schema.
func Known(collection string) bool {
	for _, c := range Collections {
		if c == collection {
			return true
		}
	}
	return false
}
