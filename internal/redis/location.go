package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	driverLocationKey    = "drivers:locations"
	driverLocationAtHash = "drivers:locations:updated_at"
)

// DriverLocation represents a driver's last reported position.
type DriverLocation struct {
	DriverID  string
	Lat       float64
	Lng       float64
	UpdatedAt time.Time
}

// LocationStore keeps a GEO index of online drivers for live tracking.
type LocationStore struct {
	client *redis.Client
}

// NewLocationStore creates a new LocationStore.
func NewLocationStore(client *redis.Client) *LocationStore {
	return &LocationStore{client: client}
}

// UpdateLocation stores a driver's location using GEOADD.
func (s *LocationStore) UpdateLocation(ctx context.Context, driverID string, lat, lng float64) error {
	pipe := s.client.TxPipeline()
	pipe.GeoAdd(ctx, driverLocationKey, &redis.GeoLocation{
		Name:      driverID,
		Longitude: lng,
		Latitude:  lat,
	})
	pipe.HSet(ctx, driverLocationAtHash, driverID, time.Now().Unix())
	_, err := pipe.Exec(ctx)
	return err
}

// GetLocation returns the last known position of a driver, or nil if the
// driver is not tracked.
func (s *LocationStore) GetLocation(ctx context.Context, driverID string) (*DriverLocation, error) {
	pipe := s.client.Pipeline()
	posCmd := pipe.GeoPos(ctx, driverLocationKey, driverID)
	atCmd := pipe.HGet(ctx, driverLocationAtHash, driverID)
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return nil, err
	}

	positions, err := posCmd.Result()
	if err != nil {
		return nil, err
	}
	if len(positions) == 0 || positions[0] == nil {
		return nil, nil
	}

	loc := &DriverLocation{
		DriverID: driverID,
		Lat:      positions[0].Latitude,
		Lng:      positions[0].Longitude,
	}

	if raw, err := atCmd.Result(); err == nil {
		unix, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("parse location timestamp: %w", err)
		}
		loc.UpdatedAt = time.Unix(unix, 0)
	}

	return loc, nil
}

// RemoveLocation removes a driver from the geo index.
func (s *LocationStore) RemoveLocation(ctx context.Context, driverID string) error {
	pipe := s.client.TxPipeline()
	pipe.ZRem(ctx, driverLocationKey, driverID)
	pipe.HDel(ctx, driverLocationAtHash, driverID)
	_, err := pipe.Exec(ctx)
	return err
}
