package storage

import (
	"encoding/json"
	"fmt"
)

// Load decodes the JSON value stored under key.
func Load[T any](r Reader, collection, key string) (*T, bool, error) {
	data, found, err := r.Get(collection, key)
	if err != nil || !found {
		return nil, false, err
	}

	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, false, fmt.Errorf("failed to decode %s/%s: %w", collection, key, err)
	}
	return &v, true, nil
}

// LoadAll decodes every record in recs.
func LoadAll[T any](recs []Record) ([]*T, error) {
	out := make([]*T, 0, len(recs))
	for _, rec := range recs {
		var v T
		if err := json.Unmarshal(rec.Value, &v); err != nil {
			return nil, fmt.Errorf("failed to decode record %s: %w", rec.Key, err)
		}
		out = append(out, &v)
	}
	return out, nil
}

// Save encodes v as JSON and puts it under key.
func Save(tx Tx, collection, key string, v any, indexes Indexes) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode %s/%s: %w", collection, key, err)
	}
	return tx.Put(collection, key, data, indexes)
}
