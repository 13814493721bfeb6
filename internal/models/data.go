package models

// CartItem представляет позицию в корзине аренды.
type CartItem struct {
	ProductID  string `json:"product_id" validate:"required,max=64"`           // ProductID артикул товара
	Size       string `json:"size,omitempty" validate:"omitempty,max=8"`       // Size размер (например, "M", "38")
	Quantity   int    `json:"quantity" validate:"required,min=1,max=10"`       // Quantity количество
	RentalDays int    `json:"rental_days" validate:"required,oneof=4 8 14 30"` // RentalDays срок аренды в днях
}

// WishlistItem представляет товар в списке желаний.
type WishlistItem struct {
	ProductID string `json:"product_id" validate:"required,max=64"`
	Note      string `json:"note,omitempty" validate:"omitempty,max=256"`
}

// Статусы бронирования
const (
	ReservationRequested = "requested"
	ReservationConfirmed = "confirmed"
	ReservationCancelled = "cancelled"
)

// Reservation представляет бронирование товара на даты.
// Даты в формате YYYY-MM-DD.
type Reservation struct {
	ProductID string `json:"product_id" validate:"required,max=64"`
	Size      string `json:"size,omitempty" validate:"omitempty,max=8"`
	StartDate string `json:"start_date" validate:"required,datetime=2006-01-02"`
	EndDate   string `json:"end_date" validate:"required,datetime=2006-01-02"`
	Status    string `json:"status,omitempty" validate:"omitempty,oneof=requested confirmed cancelled"`
}

// Product представляет карточку товара каталога.
// Каталог доступен клиенту только на чтение.
type Product struct {
	ID        string `json:"id" validate:"required"`
	Name      string `json:"name" validate:"required"`
	Brand     string `json:"brand,omitempty"`
	PriceCent int64  `json:"price_cent" validate:"min=0"`
}
