package service

import (
	"context"
	"math/rand/v2"

	"delivery/internal/domain"
	"delivery/internal/geo"
	"delivery/internal/repository"
)

// Picker returns an index in [0, n). It is only called with n > 0.
type Picker func(n int) int

// UniformPicker picks every candidate with equal probability.
func UniformPicker(n int) int {
	return rand.IntN(n)
}

// DriverCandidateSelector finds eligible drivers around a pickup point.
// Candidates form an unranked set: the default picker is uniform random,
// so the nearest driver is not guaranteed to be chosen.
type DriverCandidateSelector struct {
	drivers repository.DriverRepository
	radius  float64
	pick    Picker
}

// NewDriverCandidateSelector creates a selector searching radius units
// around the pickup point. A nil picker selects uniformly at random.
func NewDriverCandidateSelector(drivers repository.DriverRepository, radius float64, pick Picker) *DriverCandidateSelector {
	if pick == nil {
		pick = UniformPicker
	}
	return &DriverCandidateSelector{drivers: drivers, radius: radius, pick: pick}
}

// Candidates returns every eligible driver for the pickup point.
func (s *DriverCandidateSelector) Candidates(ctx context.Context, pickup domain.Coordinates, vehicleID string, exclude []string) ([]*domain.Driver, error) {
	if !pickup.Valid() {
		return nil, ErrInvalidLocation
	}

	return s.drivers.FindCandidates(ctx, repository.CandidateQuery{
		Bounds:    geo.BoundsAround(pickup.Lat, pickup.Lng, s.radius),
		VehicleID: vehicleID,
		Exclude:   exclude,
	})
}

// Select picks one eligible driver, or returns nil when none is available.
// An empty result is not an error.
func (s *DriverCandidateSelector) Select(ctx context.Context, pickup domain.Coordinates, vehicleID string, exclude []string) (*domain.Driver, error) {
	candidates, err := s.Candidates(ctx, pickup, vehicleID, exclude)
	if err != nil {
		return nil, err
	}

	if len(candidates) == 0 {
		return nil, nil
	}

	return candidates[s.pick(len(candidates))], nil
}

// InRange reports whether driver has a known location inside the search
// area around pickup.
func (s *DriverCandidateSelector) InRange(driver *domain.Driver, pickup domain.Coordinates) bool {
	if driver.Location == nil {
		return false
	}
	return geo.BoundsAround(pickup.Lat, pickup.Lng, s.radius).Contains(driver.Location.Lat, driver.Location.Lng)
}
