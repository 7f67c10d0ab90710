package repository

import (
	"context"

	"delivery/internal/domain"
)

// VehicleRepository defines the persistence operations for vehicle profiles.
type VehicleRepository interface {
	// GetByID retrieves a vehicle by ID, including disabled ones.
	GetByID(ctx context.Context, id string) (*domain.Vehicle, error)

	// ListEnabled retrieves vehicles available for new orders.
	ListEnabled(ctx context.Context) ([]*domain.Vehicle, error)
}
