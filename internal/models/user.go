package models

import (
	"encoding/json"
	"time"
)

// User представляет пользователя на сервере
type User struct {
	CreatedAt    time.Time `json:"created_at"`    // время создания
	ID           string    `json:"id"`            // UUID пользователя
	Username     string    `json:"username"`      // уникальный username
	PasswordHash string    `json:"password_hash"` // bcrypt хеш пароля
}

// Row представляет серверную строку коллекции пользователя.
// Удаление мягкое: строка остается с Deleted=true, версия продолжает расти.
type Row struct {
	UpdatedAt  time.Time       `json:"updated_at"`
	UserID     string          `json:"user_id"`
	Collection string          `json:"collection"`
	EntityID   string          `json:"entity_id"`
	Payload    json.RawMessage `json:"payload,omitempty"`
	Version    int64           `json:"version"`
	Deleted    bool            `json:"deleted"`
}

// Mutation представляет мутацию, применяемую сервером в одной транзакции.
type Mutation struct {
	ID              string          `json:"id"` // ID идентификатор элемента очереди клиента, ключ идемпотентности
	UserID          string          `json:"user_id"`
	Collection      string          `json:"collection"`
	EntityID        string          `json:"entity_id"`
	Operation       Operation       `json:"operation"`
	Payload         json.RawMessage `json:"payload,omitempty"`
	ExpectedVersion int64           `json:"expected_version"` // ExpectedVersion 0 означает безусловную запись
}
