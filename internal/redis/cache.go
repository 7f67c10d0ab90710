package redis

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"delivery/internal/domain"
)

// CacheStore caches vehicle profiles, which are read on every estimate and
// order creation but rarely change.
type CacheStore struct {
	client *redis.Client
}

// NewCacheStore creates a new CacheStore.
func NewCacheStore(client *redis.Client) *CacheStore {
	return &CacheStore{client: client}
}

// VehicleCacheTTL bounds how long an admin edit takes to show up.
const VehicleCacheTTL = 5 * time.Minute

const (
	vehicleCachePrefix = "cache:vehicle:"
	enabledVehiclesKey = "cache:vehicles:enabled"
)

// CachedVehicle represents a cached vehicle profile.
type CachedVehicle struct {
	ID              string     `json:"id"`
	Name            string     `json:"name"`
	AverageSpeedKmh float64    `json:"average_speed_kmh"`
	PricePerKm      int64      `json:"price_per_km"`
	DisabledAt      *time.Time `json:"disabled_at,omitempty"`
}

func toCached(v *domain.Vehicle) CachedVehicle {
	return CachedVehicle{
		ID:              v.ID,
		Name:            v.Name,
		AverageSpeedKmh: v.AverageSpeedKmh,
		PricePerKm:      v.PricePerKm,
		DisabledAt:      v.DisabledAt,
	}
}

func (c CachedVehicle) toDomain() *domain.Vehicle {
	return &domain.Vehicle{
		ID:              c.ID,
		Name:            c.Name,
		AverageSpeedKmh: c.AverageSpeedKmh,
		PricePerKm:      c.PricePerKm,
		DisabledAt:      c.DisabledAt,
	}
}

// GetVehicle retrieves a vehicle from cache.
func (s *CacheStore) GetVehicle(ctx context.Context, id string) (*domain.Vehicle, error) {
	data, err := s.client.Get(ctx, vehicleCachePrefix+id).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil // Cache miss
		}
		return nil, err
	}

	var cached CachedVehicle
	if err := json.Unmarshal(data, &cached); err != nil {
		return nil, err
	}
	return cached.toDomain(), nil
}

// SetVehicle stores a vehicle in cache.
func (s *CacheStore) SetVehicle(ctx context.Context, vehicle *domain.Vehicle) error {
	data, err := json.Marshal(toCached(vehicle))
	if err != nil {
		return err
	}
	return s.client.Set(ctx, vehicleCachePrefix+vehicle.ID, data, VehicleCacheTTL).Err()
}

// InvalidateVehicle removes a vehicle and the enabled list from cache.
func (s *CacheStore) InvalidateVehicle(ctx context.Context, id string) error {
	return s.client.Del(ctx, vehicleCachePrefix+id, enabledVehiclesKey).Err()
}

// GetEnabledVehicles retrieves the enabled vehicle list from cache.
func (s *CacheStore) GetEnabledVehicles(ctx context.Context) ([]*domain.Vehicle, error) {
	data, err := s.client.Get(ctx, enabledVehiclesKey).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}

	var cached []CachedVehicle
	if err := json.Unmarshal(data, &cached); err != nil {
		return nil, err
	}

	vehicles := make([]*domain.Vehicle, 0, len(cached))
	for _, c := range cached {
		vehicles = append(vehicles, c.toDomain())
	}
	return vehicles, nil
}

// SetEnabledVehicles stores the enabled list and each vehicle in one pipeline.
func (s *CacheStore) SetEnabledVehicles(ctx context.Context, vehicles []*domain.Vehicle) error {
	cached := make([]CachedVehicle, 0, len(vehicles))
	for _, v := range vehicles {
		cached = append(cached, toCached(v))
	}

	list, err := json.Marshal(cached)
	if err != nil {
		return err
	}

	pipe := s.client.Pipeline()
	pipe.Set(ctx, enabledVehiclesKey, list, VehicleCacheTTL)
	for _, c := range cached {
		data, err := json.Marshal(c)
		if err != nil {
			continue // Skip invalid entries
		}
		pipe.Set(ctx, vehicleCachePrefix+c.ID, data, VehicleCacheTTL)
	}

	_, err = pipe.Exec(ctx)
	return err
}
