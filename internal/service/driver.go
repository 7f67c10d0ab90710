package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"delivery/internal/calculator"
	"delivery/internal/domain"
	"delivery/internal/geo"
	"delivery/internal/redis"
	"delivery/internal/repository"
)

// DriverService handles driver availability, location and tracking.
type DriverService struct {
	store         repository.Store
	locationStore redis.LocationStoreInterface
	timing        calculator.Timing
	logger        *slog.Logger
}

// NewDriverService creates a new DriverService. locationStore may be nil,
// in which case tracking reads positions from the database only.
func NewDriverService(
	store repository.Store,
	locationStore redis.LocationStoreInterface,
	timing calculator.Timing,
	logger *slog.Logger,
) *DriverService {
	if logger == nil {
		logger = slog.Default()
	}
	return &DriverService{
		store:         store,
		locationStore: locationStore,
		timing:        timing,
		logger:        logger,
	}
}

// UpdateLocationRequest contains the parameters for updating driver location.
type UpdateLocationRequest struct {
	DriverID string
	Lat      float64
	Lng      float64
}

// GoOnline makes a driver available for new jobs.
func (s *DriverService) GoOnline(ctx context.Context, actor domain.Actor) error {
	if !actor.Is(domain.RoleDriver) {
		return ErrForbidden
	}
	return s.store.Repos().Drivers.SetOnline(ctx, actor.ID, true)
}

// GoOffline takes a driver out of candidate selection and live tracking.
func (s *DriverService) GoOffline(ctx context.Context, actor domain.Actor) error {
	if !actor.Is(domain.RoleDriver) {
		return ErrForbidden
	}

	if err := s.store.Repos().Drivers.SetOnline(ctx, actor.ID, false); err != nil {
		return err
	}

	if s.locationStore != nil {
		if err := s.locationStore.RemoveLocation(ctx, actor.ID); err != nil {
			return err
		}
	}

	return nil
}

// UpdateLocation records a driver's position. The database copy feeds
// candidate selection; the Redis copy feeds live tracking while the driver
// is online.
func (s *DriverService) UpdateLocation(ctx context.Context, actor domain.Actor, req UpdateLocationRequest) error {
	if !actor.Is(domain.RoleDriver) {
		return ErrForbidden
	}

	if req.DriverID == "" {
		req.DriverID = actor.ID
	}
	if req.DriverID != actor.ID {
		return ErrInvalidDriverID
	}

	loc := domain.Coordinates{Lat: req.Lat, Lng: req.Lng}
	if !loc.Valid() {
		return ErrInvalidLocation
	}

	drivers := s.store.Repos().Drivers
	if err := drivers.UpdateLocation(ctx, req.DriverID, loc); err != nil {
		return err
	}

	if s.locationStore == nil {
		return nil
	}

	driver, err := drivers.GetByID(ctx, req.DriverID)
	if err != nil {
		return err
	}
	if !driver.Online {
		return nil
	}

	return s.locationStore.UpdateLocation(ctx, req.DriverID, req.Lat, req.Lng)
}

// Tracking is the live position of the driver on an order.
type Tracking struct {
	OrderID   string
	DriverID  string
	Location  domain.Coordinates
	UpdatedAt time.Time
	Arrival   calculator.Window
}

// TrackOrder returns where the order's driver is and how far away the next
// stop is: the pickup point until the order is en route, then the final
// receiver.
func (s *DriverService) TrackOrder(ctx context.Context, actor domain.Actor, orderID string) (*Tracking, error) {
	if orderID == "" {
		return nil, ErrInvalidOrderID
	}

	repos := s.store.Repos()
	order, err := repos.Orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if !actor.Is(domain.RoleAdmin) && (!actor.Is(domain.RoleCustomer) || order.CustomerID != actor.ID) {
		return nil, ErrNotOrderOwner
	}

	if order.DriverID == "" {
		return nil, ErrLocationUnknown
	}

	tracking, err := s.position(ctx, repos, order.DriverID)
	if err != nil {
		return nil, err
	}
	tracking.OrderID = order.ID

	target := order.Pickup
	if order.Status == domain.OrderStatusEnRoute && len(order.Receivers) > 0 {
		target = order.Receivers[len(order.Receivers)-1].Location
	}

	vehicle, err := repos.Vehicles.GetByID(ctx, order.VehicleID)
	if err != nil {
		return nil, err
	}

	km := geo.Distance(tracking.Location.Lat, tracking.Location.Lng, target.Lat, target.Lng)
	if tracking.Arrival, err = s.timing.ArrivalWindow(km, vehicle.AverageSpeedKmh); err != nil {
		return nil, err
	}

	return tracking, nil
}

// position reads a driver's position from Redis, falling back to the
// database.
func (s *DriverService) position(ctx context.Context, repos repository.Repositories, driverID string) (*Tracking, error) {
	if s.locationStore != nil {
		loc, err := s.locationStore.GetLocation(ctx, driverID)
		switch {
		case err != nil:
			s.logger.Warn("live location read failed", "driver_id", driverID, "error", err)
		case loc != nil:
			return &Tracking{
				DriverID:  driverID,
				Location:  domain.Coordinates{Lat: loc.Lat, Lng: loc.Lng},
				UpdatedAt: loc.UpdatedAt,
			}, nil
		}
	}

	driver, err := repos.Drivers.GetByID(ctx, driverID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrLocationUnknown
		}
		return nil, err
	}
	if driver.Location == nil {
		return nil, ErrLocationUnknown
	}

	return &Tracking{
		DriverID:  driverID,
		Location:  *driver.Location,
		UpdatedAt: driver.LocationUpdatedAt,
	}, nil
}
