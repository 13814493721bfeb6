package api

import (
	"encoding/json"
	"time"
)

// Коллекции сервера
const (
	CollectionCart         = "cart_items"
	CollectionWishlist     = "wishlist_items"
	CollectionReservations = "reservations"
	CollectionProducts     = "products"
)

// Collections maps an entity type name to its server collection.
var Collections = map[string]string{
	"cart":        CollectionCart,
	"wishlist":    CollectionWishlist,
	"reservation": CollectionReservations,
	"product":     CollectionProducts,
}

// CollectionFor returns the server collection of an entity type.
func CollectionFor(entityType string) (string, bool) {
	c, ok := Collections[entityType]
	return c, ok
}

// EntityTypeFor returns the entity type name stored in a server collection.
func EntityTypeFor(collection string) (string, bool) {
	for entityType, c := range Collections {
		if c == collection {
			return entityType, true
		}
	}
	return "", false
}

// MutationRequest представляет одну мутацию строки
type MutationRequest struct {
	MutationID      string          `json:"mutation_id"` // ID элемента очереди, ключ идемпотентности
	Collection      string          `json:"collection"`
	EntityID        string          `json:"entity_id"`
	Operation       string          `json:"operation"` // create, update, delete
	Payload         json.RawMessage `json:"payload,omitempty"`
	ExpectedVersion int64           `json:"expected_version"` // 0 - без проверки версии
}

// RowResponse представляет текущее состояние строки на сервере
type RowResponse struct {
	UpdatedAt  time.Time       `json:"updated_at"`
	Collection string          `json:"collection"`
	EntityID   string          `json:"entity_id"`
	Payload    json.RawMessage `json:"payload,omitempty"`
	Version    int64           `json:"version"`
	Deleted    bool            `json:"deleted"`
	Replayed   bool            `json:"replayed,omitempty"` // мутация уже была применена ранее
}
