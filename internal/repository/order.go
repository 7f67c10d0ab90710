package repository

import (
	"context"
	"time"

	"delivery/internal/domain"
)

// OrderRepository defines the persistence operations for orders.
type OrderRepository interface {
	// Create persists a new order with StatusVersion 1.
	Create(ctx context.Context, order *domain.Order) error

	// GetByID retrieves an order by ID.
	GetByID(ctx context.Context, id string) (*domain.Order, error)

	// GetForUpdate retrieves an order and locks its row until the
	// surrounding transaction ends.
	GetForUpdate(ctx context.Context, id string) (*domain.Order, error)

	// Update writes the order if its StatusVersion is unchanged since it was
	// read, and bumps the version. Returns ErrConflict otherwise.
	Update(ctx context.Context, order *domain.Order) error

	// ListStalePending returns pending orders whose status has not changed
	// since before.
	ListStalePending(ctx context.Context, before time.Time, limit int) ([]*domain.Order, error)
}
