package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"delivery/internal/calculator"
	"delivery/internal/domain"
	"delivery/internal/geo"
	"delivery/internal/geocoding"
	"delivery/internal/redis"
	"delivery/internal/repository"
)

// Geocoder resolves addresses and routes.
type Geocoder interface {
	Geocode(ctx context.Context, address string) (*geocoding.Place, error)
	Route(ctx context.Context, origin domain.Coordinates, stops []domain.Coordinates) (*geocoding.Route, error)
}

// EstimateRequest contains the parameters for a price estimate. An empty
// VehicleID estimates every enabled vehicle.
type EstimateRequest struct {
	PickupAddress string
	Receivers     []domain.Receiver
	VehicleID     string
}

// VehicleEstimate is the price and delivery time for one vehicle.
type VehicleEstimate struct {
	VehicleID    string
	VehicleName  string
	Price        calculator.PriceRange
	DeliveryTime calculator.Window
}

// Estimate is the quote for a delivery.
type Estimate struct {
	PickupAddress  string
	DistanceMetres int64
	Vehicles       []VehicleEstimate
}

// CreateOrderRequest contains the parameters for creating an order.
type CreateOrderRequest struct {
	PickupAddress string
	Receivers     []domain.Receiver
	VehicleID     string
	PaymentMethod domain.PaymentMethod
	CardID        string
}

// CreatedOrder is a new order with the estimates shown to the customer.
type CreatedOrder struct {
	Order        *domain.Order
	DeliveryTime calculator.Window
	ArrivalTime  calculator.Window
}

// OrderService handles order estimation, creation and lookup.
type OrderService struct {
	store    repository.Store
	geocoder Geocoder
	vehicles redis.VehicleCacheInterface
	selector *DriverCandidateSelector
	notifier *NotificationService
	pricing  calculator.Pricing
	timing   calculator.Timing
	currency string
	logger   *slog.Logger
	now      func() time.Time
}

// NewOrderService creates a new OrderService. vehicles may be nil to read
// vehicle profiles straight from the database.
func NewOrderService(
	store repository.Store,
	geocoder Geocoder,
	vehicles redis.VehicleCacheInterface,
	selector *DriverCandidateSelector,
	notifier *NotificationService,
	pricing calculator.Pricing,
	timing calculator.Timing,
	currency string,
	logger *slog.Logger,
) *OrderService {
	if logger == nil {
		logger = slog.Default()
	}
	return &OrderService{
		store:    store,
		geocoder: geocoder,
		vehicles: vehicles,
		selector: selector,
		notifier: notifier,
		pricing:  pricing,
		timing:   timing,
		currency: currency,
		logger:   logger,
		now:      time.Now,
	}
}

// Estimate quotes a delivery for the requested vehicle, or for every
// enabled vehicle.
func (s *OrderService) Estimate(ctx context.Context, req EstimateRequest) (*Estimate, error) {
	if err := validateStops(req.PickupAddress, req.Receivers); err != nil {
		return nil, err
	}

	var vehicles []*domain.Vehicle
	if req.VehicleID != "" {
		v, err := s.vehicle(ctx, req.VehicleID)
		if err != nil {
			return nil, err
		}
		vehicles = []*domain.Vehicle{v}
	} else {
		var err error
		if vehicles, err = s.enabledVehicles(ctx); err != nil {
			return nil, err
		}
	}

	pickup, _, route, err := s.resolve(ctx, req.PickupAddress, req.Receivers)
	if err != nil {
		return nil, err
	}

	distance := route.DistanceMetres()
	estimate := &Estimate{
		PickupAddress:  pickup.FormattedAddress,
		DistanceMetres: distance,
		Vehicles:       make([]VehicleEstimate, 0, len(vehicles)),
	}

	for _, v := range vehicles {
		window, err := s.timing.DeliveryWindow(float64(distance), v.AverageSpeedKmh)
		if err != nil {
			s.logger.Warn("skipping vehicle without usable speed", "vehicle_id", v.ID, "error", err)
			continue
		}
		estimate.Vehicles = append(estimate.Vehicles, VehicleEstimate{
			VehicleID:    v.ID,
			VehicleName:  v.Name,
			Price:        s.pricing.Range(distance, v.PricePerKm),
			DeliveryTime: window,
		})
	}

	return estimate, nil
}

// Create places a new order with a nearby driver. No order is stored when
// no driver is available or a collaborator fails.
func (s *OrderService) Create(ctx context.Context, actor domain.Actor, req CreateOrderRequest) (*CreatedOrder, error) {
	if !actor.Is(domain.RoleCustomer) {
		return nil, ErrForbidden
	}

	if err := validateStops(req.PickupAddress, req.Receivers); err != nil {
		return nil, err
	}

	if !req.PaymentMethod.Valid() {
		return nil, ErrInvalidPaymentMethod
	}

	repos := s.store.Repos()

	if req.PaymentMethod == domain.PaymentMethodCard {
		if req.CardID == "" {
			return nil, ErrCardNotFound
		}
		card, err := repos.Cards.GetByID(ctx, req.CardID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return nil, ErrCardNotFound
			}
			return nil, err
		}
		if card.UserID != actor.ID {
			return nil, ErrCardNotFound
		}
	}

	vehicle, err := s.vehicle(ctx, req.VehicleID)
	if err != nil {
		return nil, err
	}

	pickup, receivers, route, err := s.resolve(ctx, req.PickupAddress, req.Receivers)
	if err != nil {
		return nil, err
	}

	distance := route.DistanceMetres()
	amount := s.pricing.Amount(distance, vehicle.PricePerKm)
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}

	if req.PaymentMethod == domain.PaymentMethodWallet {
		customer, err := repos.Users.GetByID(ctx, actor.ID)
		if err != nil {
			return nil, err
		}
		if !customer.CanPay(amount) {
			return nil, ErrInsufficientBalance
		}
	}

	driver, err := s.selector.Select(ctx, pickup.Location, vehicle.ID, nil)
	if err != nil {
		return nil, err
	}
	if driver == nil {
		return nil, ErrNoDriverAvailable
	}

	delivery, err := s.timing.DeliveryWindow(float64(distance), vehicle.AverageSpeedKmh)
	if err != nil {
		return nil, err
	}

	var arrival calculator.Window
	if driver.Location != nil {
		km := geo.Distance(driver.Location.Lat, driver.Location.Lng, pickup.Location.Lat, pickup.Location.Lng)
		if arrival, err = s.timing.ArrivalWindow(km, vehicle.AverageSpeedKmh); err != nil {
			return nil, err
		}
	}

	now := s.now()
	order := &domain.Order{
		ID:              uuid.New().String(),
		CustomerID:      actor.ID,
		DriverID:        driver.UserID,
		Pickup:          pickup.Location,
		PickupAddress:   pickup.FormattedAddress,
		Receivers:       receivers,
		VehicleID:       vehicle.ID,
		DistanceMetres:  distance,
		Amount:          amount,
		Currency:        s.currency,
		PaymentMethod:   req.PaymentMethod,
		CardID:          req.CardID,
		Status:          domain.OrderStatusPending,
		StatusUpdatedAt: now,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	out := &Outbox{}
	out.Notify(order.CustomerID, titleOrderCreated,
		fmt.Sprintf("Your order with ID #%s has been created and sent to a driver", order.ID),
		orderData(order))
	notifyNewJob(out, order)

	if err := s.store.WithinTx(ctx, func(r repository.Repositories) error {
		if err := r.Orders.Create(ctx, order); err != nil {
			return err
		}
		return s.notifier.Persist(ctx, r, out)
	}); err != nil {
		return nil, err
	}

	s.notifier.Dispatch(ctx, out)

	return &CreatedOrder{Order: order, DeliveryTime: delivery, ArrivalTime: arrival}, nil
}

// Get returns an order visible to actor: its customer, its driver or an admin.
func (s *OrderService) Get(ctx context.Context, actor domain.Actor, orderID string) (*domain.Order, error) {
	if orderID == "" {
		return nil, ErrInvalidOrderID
	}

	order, err := s.store.Repos().Orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	switch {
	case actor.Is(domain.RoleAdmin):
	case actor.Is(domain.RoleCustomer) && order.CustomerID == actor.ID:
	case actor.Is(domain.RoleDriver) && order.DriverID == actor.ID:
	default:
		return nil, ErrForbidden
	}

	return order, nil
}

// resolve geocodes the pickup and every receiver and routes through them.
// Intermediate receivers come back in the provider's suggested order.
func (s *OrderService) resolve(ctx context.Context, pickupAddress string, in []domain.Receiver) (*geocoding.Place, []domain.Receiver, *geocoding.Route, error) {
	pickup, err := s.geocoder.Geocode(ctx, pickupAddress)
	if err != nil {
		return nil, nil, nil, mapsError(err)
	}

	receivers := make([]domain.Receiver, len(in))
	stops := make([]domain.Coordinates, len(in))
	for i, r := range in {
		place, err := s.geocoder.Geocode(ctx, r.Address)
		if err != nil {
			return nil, nil, nil, mapsError(err)
		}
		r.Location = place.Location
		r.FormattedAddress = place.FormattedAddress
		receivers[i] = r
		stops[i] = place.Location
	}

	route, err := s.geocoder.Route(ctx, pickup.Location, stops)
	if err != nil {
		return nil, nil, nil, mapsError(err)
	}

	return pickup, reorderWaypoints(receivers, route.WaypointOrder), route, nil
}

// reorderWaypoints applies the provider's waypoint order to every receiver
// but the last, which is always the destination. An order that does not
// match the waypoints is ignored.
func reorderWaypoints(receivers []domain.Receiver, order []int) []domain.Receiver {
	waypoints := len(receivers) - 1
	if waypoints < 2 || len(order) != waypoints {
		return receivers
	}

	seen := make([]bool, waypoints)
	out := make([]domain.Receiver, 0, len(receivers))
	for _, idx := range order {
		if idx < 0 || idx >= waypoints || seen[idx] {
			return receivers
		}
		seen[idx] = true
		out = append(out, receivers[idx])
	}
	return append(out, receivers[waypoints])
}

func (s *OrderService) vehicle(ctx context.Context, id string) (*domain.Vehicle, error) {
	if id == "" {
		return nil, ErrVehicleUnavailable
	}

	if s.vehicles != nil {
		v, err := s.vehicles.GetVehicle(ctx, id)
		if err != nil {
			s.logger.Warn("vehicle cache read failed", "vehicle_id", id, "error", err)
		} else if v != nil {
			if !v.Enabled() {
				return nil, ErrVehicleUnavailable
			}
			return v, nil
		}
	}

	v, err := s.store.Repos().Vehicles.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrVehicleUnavailable
		}
		return nil, err
	}

	if s.vehicles != nil {
		if err := s.vehicles.SetVehicle(ctx, v); err != nil {
			s.logger.Warn("vehicle cache write failed", "vehicle_id", id, "error", err)
		}
	}

	if !v.Enabled() {
		return nil, ErrVehicleUnavailable
	}
	return v, nil
}

func (s *OrderService) enabledVehicles(ctx context.Context) ([]*domain.Vehicle, error) {
	if s.vehicles != nil {
		vs, err := s.vehicles.GetEnabledVehicles(ctx)
		if err != nil {
			s.logger.Warn("vehicle cache read failed", "error", err)
		} else if vs != nil {
			return vs, nil
		}
	}

	vs, err := s.store.Repos().Vehicles.ListEnabled(ctx)
	if err != nil {
		return nil, err
	}

	if s.vehicles != nil {
		if err := s.vehicles.SetEnabledVehicles(ctx, vs); err != nil {
			s.logger.Warn("vehicle cache write failed", "error", err)
		}
	}
	return vs, nil
}

func validateStops(pickupAddress string, receivers []domain.Receiver) error {
	if strings.TrimSpace(pickupAddress) == "" {
		return ErrInvalidAddress
	}
	if len(receivers) == 0 || len(receivers) > domain.MaxReceivers {
		return ErrInvalidReceivers
	}
	for _, r := range receivers {
		if strings.TrimSpace(r.Address) == "" {
			return ErrInvalidReceivers
		}
	}
	return nil
}

// mapsError converts a geocoding failure into an *UpstreamError.
func mapsError(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	var gerr *geocoding.Error
	if errors.As(err, &gerr) {
		return &UpstreamError{Provider: "google_maps", Status: gerr.Status, Message: gerr.Err.Error()}
	}
	return &UpstreamError{Provider: "google_maps", Message: err.Error()}
}
