package tests

import (
	"context"
	"testing"
	"time"

	"delivery/internal/calculator"
	"delivery/internal/domain"
	"delivery/internal/service"
)

const (
	customerID    = "customer-1"
	driverID      = "driver-1"
	otherDriverID = "driver-2"
	adminID       = "admin-1"
	vehicleID     = "bike"
)

var (
	pickup = domain.Coordinates{Lat: 6.5244, Lng: 3.3792}

	customer = domain.Actor{ID: customerID, Role: domain.RoleCustomer}
	admin    = domain.Actor{ID: adminID, Role: domain.RoleAdmin}
)

func driverActor(id string) domain.Actor {
	return domain.Actor{ID: id, Role: domain.RoleDriver}
}

// fixture wires every service against in-memory collaborators.
type fixture struct {
	store     *MockStore
	gateway   *MockGateway
	publisher *MockPublisher
	locks     *MockLockStore
	locations *MockLocationStore
	geocoder  *MockGeocoder

	payments    *service.PaymentCoordinator
	selector    *service.DriverCandidateSelector
	lifecycle   *service.OrderLifecycle
	orders      *service.OrderService
	drivers     *service.DriverService
	withdrawals *service.WithdrawalService
	webhooks    *service.WebhookService
	sweep       *service.DispatchSweep
}

type fixtureOptions struct {
	cancellationFee calculator.Fee
	transactionFee  calculator.Fee
	picker          service.Picker
	sweepInterval   time.Duration
}

func newFixture(t *testing.T, opts fixtureOptions) *fixture {
	t.Helper()

	if opts.cancellationFee.Type == "" {
		opts.cancellationFee = calculator.Fee{Type: calculator.FeePercentage, Value: 5}
	}
	if opts.transactionFee.Type == "" {
		opts.transactionFee = calculator.Fee{Type: calculator.FeePercentage, Value: 5}
	}
	if opts.picker == nil {
		opts.picker = func(int) int { return 0 }
	}
	if opts.sweepInterval == 0 {
		opts.sweepInterval = 20 * time.Second
	}

	f := &fixture{
		store:     NewMockStore(),
		gateway:   NewMockGateway(),
		publisher: NewMockPublisher(),
		locks:     NewMockLockStore(),
		locations: NewMockLocationStore(),
		geocoder:  NewMockGeocoder(),
	}

	f.store.Vehicles.AddVehicle(&domain.Vehicle{
		ID:              vehicleID,
		Name:            "Bike",
		AverageSpeedKmh: 30,
		PricePerKm:      15_000,
	})
	f.store.Users.AddUser(&domain.User{ID: customerID, Role: domain.RoleCustomer, Email: "customer@example.com"})
	f.store.Users.AddUser(&domain.User{ID: adminID, Role: domain.RoleAdmin})

	timing := calculator.Timing{DeliveryBoundPercent: 15, ArrivalBoundPercent: 10}
	notifier := service.NewNotificationService(f.publisher, nil)

	f.payments = service.NewPaymentCoordinator(f.gateway, opts.cancellationFee, "NGN", nil, nil)
	f.selector = service.NewDriverCandidateSelector(f.store.Drivers, 2, opts.picker)
	f.lifecycle = service.NewOrderLifecycle(f.store, f.payments, notifier, f.selector, f.locks, time.Minute, nil, nil)
	f.orders = service.NewOrderService(f.store, f.geocoder, nil, f.selector, notifier,
		calculator.NewPricing(1000, 10), timing, "NGN", nil)
	f.drivers = service.NewDriverService(f.store, f.locations, timing, nil)
	f.withdrawals = service.NewWithdrawalService(f.store, f.gateway, notifier, f.locks, time.Minute, opts.transactionFee, "NGN", nil)
	f.webhooks = service.NewWebhookService(f.store, f.payments, notifier, nil)
	f.sweep = service.NewDispatchSweep(f.store, f.selector, f.lifecycle, f.locks, service.SweepConfig{
		Interval:   opts.sweepInterval,
		StaleAfter: 20 * time.Second,
		Workers:    2,
	}, nil, nil)

	return f
}

// addDriver registers an eligible, online driver offset from the pickup point.
func (f *fixture) addDriver(id string, dLat float64) {
	f.store.Users.AddUser(&domain.User{ID: id, Role: domain.RoleDriver})
	f.store.Drivers.AddDriver(&domain.Driver{
		UserID:        id,
		Name:          id,
		VehicleID:     vehicleID,
		Registration:  domain.RegistrationAccepted,
		RideStatus:    domain.RideStatusApproved,
		EmailVerified: true,
		Online:        true,
		Location:      &domain.Coordinates{Lat: pickup.Lat + dLat, Lng: pickup.Lng},
	})
}

// setBalance gives the customer equal available and ledger balances.
func (f *fixture) setBalance(userID string, amount int64) {
	u, err := f.store.Users.GetByID(context.Background(), userID)
	if err != nil {
		u = &domain.User{ID: userID}
	}
	u.AvailableBalance = amount
	u.LedgerBalance = amount
	f.store.Users.AddUser(u)
}

// addOrder stores an order assigned to driverID in status.
func (f *fixture) addOrder(id string, status domain.OrderStatus, method domain.PaymentMethod, amount int64) *domain.Order {
	order := &domain.Order{
		ID:              id,
		CustomerID:      customerID,
		DriverID:        driverID,
		Pickup:          pickup,
		PickupAddress:   "1 Marina",
		Receivers:       []domain.Receiver{{Name: "Ada", Address: "5 Broad Street"}},
		VehicleID:       vehicleID,
		DistanceMetres:  20_000,
		Amount:          amount,
		Currency:        "NGN",
		PaymentMethod:   method,
		Status:          status,
		StatusUpdatedAt: time.Now().Add(-time.Minute),
		StatusVersion:   1,
	}
	if method == domain.PaymentMethodCard {
		order.CardID = "card-1"
		f.store.Cards.AddCard(&domain.Card{
			ID:                "card-1",
			UserID:            customerID,
			Email:             "customer@example.com",
			AuthorizationCode: "AUTH_abc",
			Signature:         "SIG_abc",
			Reusable:          true,
		})
	}
	f.store.Orders.AddOrder(order)
	return order
}
