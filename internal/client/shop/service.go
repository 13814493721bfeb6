// Package shop turns storefront actions into queued mutations.
// Every action is validated and recorded locally before any network call;
// the returned item is the provisional state shown to the user.
package shop

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/iudanet/rentsync/internal/models"
	"github.com/iudanet/rentsync/internal/validation"
)

// ErrEmptyID возвращается, если не указан идентификатор сущности
var ErrEmptyID = errors.New("entity id is required")

// Queue принимает локальные мутации
type Queue interface {
	Enqueue(ctx context.Context, entityType models.EntityType, entityID string, op models.Operation, payload any) (*models.QueueItem, error)
}

// Service handles storefront actions
type Service struct {
	queue     Queue
	validator *validation.Payloads
	newID     func() string
}

// NewService creates storefront service
func NewService(q Queue) *Service {
	return &Service{
		queue:     q,
		validator: validation.NewPayloads(),
		newID:     func() string { return uuid.New().String() },
	}
}

// AddToCart adds a new cart line. The line id is generated locally.
func (s *Service) AddToCart(ctx context.Context, item models.CartItem) (*models.QueueItem, error) {
	return s.write(ctx, models.EntityCart, s.newID(), models.OpCreate, item)
}

// UpdateCartItem replaces the cart line.
func (s *Service) UpdateCartItem(ctx context.Context, lineID string, item models.CartItem) (*models.QueueItem, error) {
	return s.write(ctx, models.EntityCart, lineID, models.OpUpdate, item)
}

// RemoveFromCart deletes the cart line.
func (s *Service) RemoveFromCart(ctx context.Context, lineID string) (*models.QueueItem, error) {
	return s.remove(ctx, models.EntityCart, lineID)
}

// AddToWishlist adds a product to the wishlist.
// The wishlist holds one line per product, so the product id is the entity id.
func (s *Service) AddToWishlist(ctx context.Context, item models.WishlistItem) (*models.QueueItem, error) {
	return s.write(ctx, models.EntityWishlist, item.ProductID, models.OpCreate, item)
}

// RemoveFromWishlist deletes the wishlist line of the product.
func (s *Service) RemoveFromWishlist(ctx context.Context, productID string) (*models.QueueItem, error) {
	return s.remove(ctx, models.EntityWishlist, productID)
}

// CreateReservation books a product for the dates in r.
func (s *Service) CreateReservation(ctx context.Context, r models.Reservation) (*models.QueueItem, error) {
	if r.Status == "" {
		r.Status = models.ReservationRequested
	}
	return s.write(ctx, models.EntityReservation, s.newID(), models.OpCreate, r)
}

// UpdateReservation replaces the reservation.
func (s *Service) UpdateReservation(ctx context.Context, id string, r models.Reservation) (*models.QueueItem, error) {
	return s.write(ctx, models.EntityReservation, id, models.OpUpdate, r)
}

// CancelReservation marks the reservation cancelled.
// Cancelled reservations stay on the server for the rental history.
func (s *Service) CancelReservation(ctx context.Context, id string, r models.Reservation) (*models.QueueItem, error) {
	r.Status = models.ReservationCancelled
	return s.write(ctx, models.EntityReservation, id, models.OpUpdate, r)
}

func (s *Service) write(ctx context.Context, et models.EntityType, id string, op models.Operation, payload any) (*models.QueueItem, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: %s", ErrEmptyID, et)
	}
	if err := s.validator.Struct(payload); err != nil {
		return nil, err
	}
	item, err := s.queue.Enqueue(ctx, et, id, op, payload)
	if err != nil {
		return nil, fmt.Errorf("failed to queue %s %s: %w", op, et, err)
	}
	return item, nil
}

func (s *Service) remove(ctx context.Context, et models.EntityType, id string) (*models.QueueItem, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: %s", ErrEmptyID, et)
	}
	item, err := s.queue.Enqueue(ctx, et, id, models.OpDelete, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to queue %s %s: %w", models.OpDelete, et, err)
	}
	return item, nil
}
