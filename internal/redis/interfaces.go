package redis

import (
	"context"
	"time"

	"delivery/internal/domain"
)

// LocationStoreInterface defines the interface for driver location tracking.
type LocationStoreInterface interface {
	UpdateLocation(ctx context.Context, driverID string, lat, lng float64) error
	GetLocation(ctx context.Context, driverID string) (*DriverLocation, error)
	RemoveLocation(ctx context.Context, driverID string) error
}

// LockStoreInterface defines the interface for distributed locking.
type LockStoreInterface interface {
	Acquire(ctx context.Context, name, owner string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, name, owner string) error
}

// VehicleCacheInterface defines the interface for vehicle profile caching.
// Lookups return nil on a cache miss.
type VehicleCacheInterface interface {
	GetVehicle(ctx context.Context, id string) (*domain.Vehicle, error)
	SetVehicle(ctx context.Context, vehicle *domain.Vehicle) error
	GetEnabledVehicles(ctx context.Context) ([]*domain.Vehicle, error)
	SetEnabledVehicles(ctx context.Context, vehicles []*domain.Vehicle) error
}

// Ensure concrete types implement interfaces.
var (
	_ LocationStoreInterface = (*LocationStore)(nil)
	_ LockStoreInterface     = (*LockStore)(nil)
	_ VehicleCacheInterface  = (*CacheStore)(nil)
)
