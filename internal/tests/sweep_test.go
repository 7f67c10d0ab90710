package tests

import (
	"context"
	"testing"
	"time"

	"delivery/internal/domain"
	"delivery/internal/redis"
)

func TestSweep_NoCandidateMarksOrderIdle(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newFixture(t, fixtureOptions{})
	f.addDriver(driverID, 0.001)

	order := f.addOrder("order-1", domain.OrderStatusPending, domain.PaymentMethodWallet, 100_000)
	order.PastDrivers = []string{driverID}
	f.store.Orders.AddOrder(order)

	stats, err := f.sweep.SweepOnce(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stats.Scanned != 1 || stats.Idled != 1 {
		t.Errorf("expected 1 scanned and 1 idled, got %+v", stats)
	}

	got := f.store.Orders.GetOrder("order-1")
	if got.Status != domain.OrderStatusIdle {
		t.Errorf("expected idle, got %s", got.Status)
	}
	if got.DriverID != "" {
		t.Errorf("expected driver cleared, got %q", got.DriverID)
	}
	if len(got.PastDrivers) != 1 || got.PastDrivers[0] != driverID {
		t.Errorf("expected %s exactly once in past drivers, got %v", driverID, got.PastDrivers)
	}

	pushes := f.publisher.ForUser(customerID)
	if len(pushes) != 1 || pushes[0].Title != "No Drivers Available" || pushes[0].Data["type"] != "no-drivers-available" {
		t.Errorf("expected a no-drivers push, got %+v", pushes)
	}
}

func TestSweep_SingleCandidateReassigns(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newFixture(t, fixtureOptions{})
	f.addDriver(driverID, 0.001)
	f.addDriver(otherDriverID, 0.002)
	before := f.addOrder("order-1", domain.OrderStatusPending, domain.PaymentMethodWallet, 100_000)

	stats, err := f.sweep.SweepOnce(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stats.Reassigned != 1 {
		t.Errorf("expected 1 reassignment, got %+v", stats)
	}

	got := f.store.Orders.GetOrder("order-1")
	if got.Status != domain.OrderStatusPending || got.DriverID != otherDriverID {
		t.Errorf("expected pending with %s, got %s/%q", otherDriverID, got.Status, got.DriverID)
	}
	if len(got.PastDrivers) != 1 || got.PastDrivers[0] != driverID {
		t.Errorf("expected past drivers [%s], got %v", driverID, got.PastDrivers)
	}
	if !got.StatusUpdatedAt.After(before.StatusUpdatedAt) {
		t.Error("expected the status timestamp to be refreshed")
	}

	jobs := f.publisher.ForUser(otherDriverID)
	if len(jobs) != 1 || jobs[0].Title != "New Job Alert" {
		t.Errorf("expected a job alert, got %+v", jobs)
	}
	if pushes := f.publisher.ForUser(customerID); len(pushes) != 0 {
		t.Errorf("customer with an assigned driver should not be told, got %+v", pushes)
	}

	// A second sweep leaves the freshly assigned order alone.
	stats, err = f.sweep.SweepOnce(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stats.Scanned != 0 {
		t.Errorf("expected nothing stale, got %+v", stats)
	}
}

func TestSweep_UnassignedOrderNotifiesCustomer(t *testing.T) {
	t.Parallel()

	f := newFixture(t, fixtureOptions{})
	f.addDriver(otherDriverID, 0.001)

	order := f.addOrder("order-1", domain.OrderStatusPending, domain.PaymentMethodWallet, 100_000)
	order.DriverID = ""
	f.store.Orders.AddOrder(order)

	if _, err := f.sweep.SweepOnce(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got := f.store.Orders.GetOrder("order-1")
	if got.DriverID != otherDriverID || len(got.PastDrivers) != 0 {
		t.Errorf("expected %s with no past drivers, got %q %v", otherDriverID, got.DriverID, got.PastDrivers)
	}
	if pushes := f.publisher.ForUser(customerID); len(pushes) != 1 {
		t.Errorf("expected the customer to be told, got %+v", pushes)
	}
}

func TestSweep_IgnoresFreshAndNonPendingOrders(t *testing.T) {
	t.Parallel()

	f := newFixture(t, fixtureOptions{})
	f.addDriver(otherDriverID, 0.001)

	fresh := f.addOrder("fresh", domain.OrderStatusPending, domain.PaymentMethodWallet, 100_000)
	fresh.StatusUpdatedAt = time.Now()
	f.store.Orders.AddOrder(fresh)
	f.addOrder("accepted", domain.OrderStatusAccepted, domain.PaymentMethodWallet, 100_000)
	f.addOrder("idle", domain.OrderStatusIdle, domain.PaymentMethodWallet, 100_000)

	stats, err := f.sweep.SweepOnce(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stats.Scanned != 0 {
		t.Errorf("expected nothing scanned, got %+v", stats)
	}
	if got := f.store.Orders.GetOrder("fresh").DriverID; got != driverID {
		t.Errorf("fresh order was reassigned to %q", got)
	}
}

func TestSweep_FailuresAreCountedNotReturned(t *testing.T) {
	t.Parallel()

	f := newFixture(t, fixtureOptions{})
	f.store.Drivers.FindCandidatesError = ErrMockTimeout
	f.addOrder("order-1", domain.OrderStatusPending, domain.PaymentMethodWallet, 100_000)
	f.addOrder("order-2", domain.OrderStatusPending, domain.PaymentMethodWallet, 100_000)

	stats, err := f.sweep.SweepOnce(context.Background())
	if err != nil {
		t.Fatalf("expected per-order failures to be absorbed, got %v", err)
	}
	if stats.Scanned != 2 || stats.Failed != 2 {
		t.Errorf("expected 2 failures, got %+v", stats)
	}
}

func TestSweep_LockedOrderIsSkipped(t *testing.T) {
	t.Parallel()

	f := newFixture(t, fixtureOptions{})
	f.addDriver(otherDriverID, 0.001)
	f.addOrder("order-1", domain.OrderStatusPending, domain.PaymentMethodWallet, 100_000)
	f.locks.Hold(redis.OrderLockName("order-1"))

	stats, err := f.sweep.SweepOnce(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stats.Skipped != 1 || stats.Failed != 0 {
		t.Errorf("expected the order to be skipped, got %+v", stats)
	}
}

func TestSweep_RunStopsOnCancel(t *testing.T) {
	t.Parallel()

	f := newFixture(t, fixtureOptions{sweepInterval: 10 * time.Millisecond})
	f.addOrder("order-1", domain.OrderStatusPending, domain.PaymentMethodWallet, 100_000)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- f.sweep.Run(ctx) }()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("expected nil on shutdown, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("sweep did not stop")
	}

	if got := f.store.Orders.GetOrder("order-1").Status; got != domain.OrderStatusIdle {
		t.Errorf("expected the loop to have idled the order, got %s", got)
	}
	if f.locks.IsLocked(redis.SweepLockName) {
		t.Error("sweep leader lock was not released")
	}
}

func TestSweep_RunWithoutLeadershipDoesNothing(t *testing.T) {
	t.Parallel()

	f := newFixture(t, fixtureOptions{sweepInterval: 10 * time.Millisecond})
	f.addOrder("order-1", domain.OrderStatusPending, domain.PaymentMethodWallet, 100_000)
	f.locks.Hold(redis.SweepLockName)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	if err := f.sweep.Run(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := f.store.Orders.GetOrder("order-1").Status; got != domain.OrderStatusPending {
		t.Errorf("expected order untouched without leadership, got %s", got)
	}
}
