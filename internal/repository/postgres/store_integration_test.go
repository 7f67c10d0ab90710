//go:build integration

package postgres_test

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/lib/pq"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"delivery/internal/domain"
	"delivery/internal/geo"
	"delivery/internal/repository"
	"delivery/internal/repository/postgres"
)

// setupDB starts a disposable PostgreSQL, applies the migrations and
// returns a pool to it.
func setupDB(t *testing.T) *sql.DB {
	t.Helper()
	ctx := context.Background()

	container, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("delivery"),
		tcpostgres.WithUsername("delivery"),
		tcpostgres.WithPassword("delivery"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	if err != nil {
		t.Fatalf("failed to start postgres container: %v", err)
	}
	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("failed to terminate postgres container: %v", err)
		}
	})

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("failed to get connection string: %v", err)
	}

	if err := runMigrations(connStr); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	return db
}

func runMigrations(connStr string) error {
	_, filename, _, _ := runtime.Caller(0)
	root := filepath.Join(filepath.Dir(filename), "..", "..", "..")

	m, err := migrate.New("file://"+filepath.Join(root, "migrations"), connStr)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}
	defer func() { _, _ = m.Close() }()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}
	return nil
}

func mustExec(t *testing.T, db *sql.DB, query string, args ...any) {
	t.Helper()
	if _, err := db.Exec(query, args...); err != nil {
		t.Fatalf("exec %q: %v", query, err)
	}
}

// seed creates a vehicle, a funded customer and an eligible driver at
// (6.5, 3.4).
func seed(t *testing.T, db *sql.DB) {
	t.Helper()

	mustExec(t, db, `INSERT INTO vehicles (id, name, average_speed_kmh, price_per_km) VALUES ('bike', 'Bike', 30, 15000)`)
	mustExec(t, db, `INSERT INTO vehicles (id, name, average_speed_kmh, price_per_km) VALUES ('van', 'Van', 25, 30000)`)
	mustExec(t, db, `INSERT INTO users (id, name, email, role, available_balance, ledger_balance, messaging_token)
		VALUES ('customer-1', 'Ada', 'ada@example.com', 'customer', 100000, 100000, 'fcm-token-1')`)

	addDriver(t, db, "driver-1", "bike", 6.5, 3.4, true)
}

func addDriver(t *testing.T, db *sql.DB, id, vehicleID string, lat, lng float64, online bool) {
	t.Helper()

	mustExec(t, db, `INSERT INTO users (id, name, email, role, email_verified_at, registration_status, online, latitude, longitude)
		VALUES ($1, $1, $2, 'driver', NOW(), 'accepted', $3, $4, $5)`, id, id+"@example.com", online, lat, lng)
	mustExec(t, db, `INSERT INTO rides (id, user_id, vehicle_id, status) VALUES ($1, $2, $3, 'approved')`,
		"ride-"+id, id, vehicleID)
}

func newOrder(id string) *domain.Order {
	return &domain.Order{
		ID:             id,
		CustomerID:     "customer-1",
		DriverID:       "driver-1",
		Pickup:         domain.Coordinates{Lat: 6.5, Lng: 3.4},
		PickupAddress:  "1 Marina, Lagos",
		Receivers:      []domain.Receiver{{Name: "Bola", Address: "5 Broad Street"}},
		VehicleID:      "bike",
		DistanceMetres: 10_000,
		Amount:         150_000,
		Currency:       "NGN",
		PaymentMethod:  domain.PaymentMethodWallet,
		Status:         domain.OrderStatusPending,
	}
}

// ──────────────────────────────────────────────
// ORDERS
// ──────────────────────────────────────────────

func TestOrderRepository_UpdateIsVersionGuarded(t *testing.T) {
	db := setupDB(t)
	seed(t, db)
	ctx := context.Background()
	orders := postgres.NewOrderRepository(db)

	order := newOrder("order-1")
	if err := orders.Create(ctx, order); err != nil {
		t.Fatalf("create: %v", err)
	}

	stale, err := orders.GetByID(ctx, "order-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}

	order.Status = domain.OrderStatusAccepted
	order.StatusUpdatedAt = time.Now()
	if err := orders.Update(ctx, order); err != nil {
		t.Fatalf("update: %v", err)
	}
	if order.StatusVersion != 2 {
		t.Errorf("expected version 2, got %d", order.StatusVersion)
	}

	stale.Status = domain.OrderStatusRejected
	if err := orders.Update(ctx, stale); !errors.Is(err, repository.ErrConflict) {
		t.Errorf("expected ErrConflict for stale write, got %v", err)
	}

	missing := newOrder("order-404")
	missing.StatusVersion = 1
	if err := orders.Update(ctx, missing); !errors.Is(err, repository.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}

	got, err := orders.GetByID(ctx, "order-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != domain.OrderStatusAccepted || len(got.Receivers) != 1 {
		t.Errorf("unexpected stored order %+v", got)
	}
}

func TestOrderRepository_ListStalePending(t *testing.T) {
	db := setupDB(t)
	seed(t, db)
	ctx := context.Background()
	orders := postgres.NewOrderRepository(db)

	old := newOrder("order-old")
	old.StatusUpdatedAt = time.Now().Add(-time.Minute)
	fresh := newOrder("order-fresh")
	for _, o := range []*domain.Order{old, fresh} {
		if err := orders.Create(ctx, o); err != nil {
			t.Fatalf("create %s: %v", o.ID, err)
		}
	}

	stale, err := orders.ListStalePending(ctx, time.Now().Add(-20*time.Second), 10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(stale) != 1 || stale[0].ID != "order-old" {
		t.Errorf("expected only order-old, got %d orders", len(stale))
	}
}

// ──────────────────────────────────────────────
// BALANCES
// ──────────────────────────────────────────────

func TestUserRepository_DebitNeverOverdraws(t *testing.T) {
	db := setupDB(t)
	seed(t, db)
	ctx := context.Background()
	users := postgres.NewUserRepository(db)

	err := users.Debit(ctx, "customer-1", repository.BalanceChange{Available: 150_000, Ledger: 150_000})
	if !errors.Is(err, repository.ErrInsufficientBalance) {
		t.Fatalf("expected ErrInsufficientBalance, got %v", err)
	}

	if err := users.Debit(ctx, "customer-1", repository.BalanceChange{Available: 60_000}); err != nil {
		t.Fatalf("debit: %v", err)
	}

	u, err := users.GetByID(ctx, "customer-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if u.AvailableBalance != 40_000 || u.LedgerBalance != 100_000 {
		t.Errorf("expected 40000/100000, got %d/%d", u.AvailableBalance, u.LedgerBalance)
	}

	if err := users.Debit(ctx, "nobody", repository.BalanceChange{Available: 1}); !errors.Is(err, repository.ErrNotFound) {
		t.Errorf("expected ErrNotFound for unknown user, got %v", err)
	}
}

func TestStore_WithinTxRollsBack(t *testing.T) {
	db := setupDB(t)
	seed(t, db)
	ctx := context.Background()
	store := postgres.NewStore(db)

	boom := errors.New("boom")
	err := store.WithinTx(ctx, func(r repository.Repositories) error {
		if err := r.Users.Debit(ctx, "customer-1", repository.BalanceChange{Available: 10_000, Ledger: 10_000}); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}

	u, err := store.Repos().Users.GetByID(ctx, "customer-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if u.AvailableBalance != 100_000 {
		t.Errorf("expected rollback to keep 100000, got %d", u.AvailableBalance)
	}
}

func TestTransactionRepository_ReferenceIsUnique(t *testing.T) {
	db := setupDB(t)
	seed(t, db)
	ctx := context.Background()
	txs := postgres.NewTransactionRepository(db)

	tx := &domain.Transaction{
		ID:        "tx-1",
		UserID:    "customer-1",
		Amount:    50_000,
		Currency:  "NGN",
		Type:      domain.TransactionCredit,
		Reference: "ref-1",
	}
	if err := txs.Create(ctx, tx); err != nil {
		t.Fatalf("create: %v", err)
	}

	dup := *tx
	dup.ID = "tx-2"
	if err := txs.Create(ctx, &dup); !errors.Is(err, repository.ErrDuplicate) {
		t.Errorf("expected ErrDuplicate, got %v", err)
	}

	exists, err := txs.ExistsByReference(ctx, "ref-1")
	if err != nil || !exists {
		t.Errorf("expected reference to exist, got %v (%v)", exists, err)
	}
}

// ──────────────────────────────────────────────
// DRIVERS
// ──────────────────────────────────────────────

func TestDriverRepository_FindCandidates(t *testing.T) {
	db := setupDB(t)
	seed(t, db)
	ctx := context.Background()

	addDriver(t, db, "driver-excluded", "bike", 6.501, 3.4, true)
	addDriver(t, db, "driver-offline", "bike", 6.5, 3.401, false)
	addDriver(t, db, "driver-van", "van", 6.5, 3.4, true)
	addDriver(t, db, "driver-far", "bike", 7.5, 3.4, true)

	drivers := postgres.NewDriverRepository(db)
	found, err := drivers.FindCandidates(ctx, repository.CandidateQuery{
		Bounds:    geo.BoundsAround(6.5, 3.4, 2),
		VehicleID: "bike",
		Exclude:   []string{"driver-excluded"},
	})
	if err != nil {
		t.Fatalf("find: %v", err)
	}

	if len(found) != 1 || found[0].UserID != "driver-1" {
		ids := make([]string, 0, len(found))
		for _, d := range found {
			ids = append(ids, d.UserID)
		}
		t.Errorf("expected only driver-1, got %v", ids)
	}
}

func TestUserRepository_MessagingToken(t *testing.T) {
	db := setupDB(t)
	seed(t, db)
	ctx := context.Background()
	users := postgres.NewUserRepository(db)

	token, err := users.MessagingToken(ctx, "customer-1")
	if err != nil || token != "fcm-token-1" {
		t.Errorf("expected fcm-token-1, got %q (%v)", token, err)
	}

	token, err = users.MessagingToken(ctx, "driver-1")
	if err != nil || token != "" {
		t.Errorf("expected empty token, got %q (%v)", token, err)
	}

	if _, err := users.MessagingToken(ctx, "nobody"); !errors.Is(err, repository.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}
