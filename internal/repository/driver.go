package repository

import (
	"context"

	"delivery/internal/domain"
	"delivery/internal/geo"
)

// CandidateQuery filters eligible drivers around a pickup point.
type CandidateQuery struct {
	Bounds    geo.Bounds
	VehicleID string
	Exclude   []string
}

// DriverRepository defines the persistence operations for drivers.
type DriverRepository interface {
	// GetByID retrieves a driver by user ID.
	GetByID(ctx context.Context, id string) (*domain.Driver, error)

	// FindCandidates returns every eligible driver inside the query bounds.
	FindCandidates(ctx context.Context, q CandidateQuery) ([]*domain.Driver, error)

	// SetOnline updates the availability of a driver.
	SetOnline(ctx context.Context, id string, online bool) error

	// UpdateLocation records the last known position of a driver.
	UpdateLocation(ctx context.Context, id string, loc domain.Coordinates) error

	// IncrementRejected bumps the rejected-orders counter.
	IncrementRejected(ctx context.Context, id string) error

	// IncrementCompleted bumps the completed-orders counter.
	IncrementCompleted(ctx context.Context, id string) error
}
