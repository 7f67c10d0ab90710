package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"delivery/internal/domain"
	"delivery/internal/repository"
)

// OrderRepository is a PostgreSQL implementation of repository.OrderRepository.
type OrderRepository struct {
	q Querier
}

// NewOrderRepository creates a new PostgreSQL order repository.
func NewOrderRepository(db *sql.DB) *OrderRepository {
	return &OrderRepository{q: db}
}

// NewOrderRepositoryWithTx creates an order repository using a transaction.
func NewOrderRepositoryWithTx(tx *sql.Tx) *OrderRepository {
	return &OrderRepository{q: tx}
}

const orderColumns = `
	id, customer_id, driver_id, pickup_latitude, pickup_longitude, pickup_address, receivers,
	vehicle_id, distance_metres, amount, currency, payment_method, card_id, delivery_status,
	status_updated_at, cancellation_reason, past_drivers, status_version, created_at, updated_at
`

// Create persists a new order.
func (r *OrderRepository) Create(ctx context.Context, order *domain.Order) error {
	receivers, err := json.Marshal(order.Receivers)
	if err != nil {
		return fmt.Errorf("encode receivers: %w", err)
	}

	query := `
		INSERT INTO orders (
			id, customer_id, driver_id, pickup_latitude, pickup_longitude, pickup_address, receivers,
			vehicle_id, distance_metres, amount, currency, payment_method, card_id, delivery_status,
			status_updated_at, past_drivers, status_version, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, 1, $17, $17)
	`

	now := time.Now()
	if order.StatusUpdatedAt.IsZero() {
		order.StatusUpdatedAt = now
	}

	_, err = r.q.ExecContext(ctx, query,
		order.ID,
		order.CustomerID,
		nullString(order.DriverID),
		order.Pickup.Lat,
		order.Pickup.Lng,
		order.PickupAddress,
		receivers,
		order.VehicleID,
		order.DistanceMetres,
		order.Amount,
		order.Currency,
		order.PaymentMethod,
		nullString(order.CardID),
		order.Status,
		order.StatusUpdatedAt,
		stringArray(order.PastDrivers),
		now,
	)
	if err != nil {
		return err
	}

	order.StatusVersion = 1
	order.CreatedAt = now
	order.UpdatedAt = now
	return nil
}

// GetByID retrieves an order by ID.
func (r *OrderRepository) GetByID(ctx context.Context, id string) (*domain.Order, error) {
	return r.get(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id)
}

// GetForUpdate retrieves an order and locks its row.
func (r *OrderRepository) GetForUpdate(ctx context.Context, id string) (*domain.Order, error) {
	return r.get(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1 FOR UPDATE`, id)
}

func (r *OrderRepository) get(ctx context.Context, query string, id string) (*domain.Order, error) {
	order, err := scanOrder(r.q.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return order, nil
}

// Update writes the mutable lifecycle fields guarded by the status version.
// Amount and route data are fixed at creation and never written here.
func (r *OrderRepository) Update(ctx context.Context, order *domain.Order) error {
	query := `
		UPDATE orders
		SET driver_id = $1, delivery_status = $2, status_updated_at = $3, cancellation_reason = $4,
		    past_drivers = $5, status_version = status_version + 1, updated_at = NOW()
		WHERE id = $6 AND status_version = $7
	`

	result, err := r.q.ExecContext(ctx, query,
		nullString(order.DriverID),
		order.Status,
		order.StatusUpdatedAt,
		nullString(order.CancellationReason),
		stringArray(order.PastDrivers),
		order.ID,
		order.StatusVersion,
	)
	if err != nil {
		return err
	}

	if err := expectOneRow(result); err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			return err
		}
		var exists bool
		if err := r.q.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM orders WHERE id = $1)`, order.ID).Scan(&exists); err != nil {
			return err
		}
		if exists {
			return repository.ErrConflict
		}
		return repository.ErrNotFound
	}

	order.StatusVersion++
	return nil
}

// ListStalePending returns pending orders whose status is older than before.
func (r *OrderRepository) ListStalePending(ctx context.Context, before time.Time, limit int) ([]*domain.Order, error) {
	query := `SELECT ` + orderColumns + `
		FROM orders
		WHERE delivery_status = $1 AND status_updated_at <= $2
		ORDER BY status_updated_at
		LIMIT $3
	`

	rows, err := r.q.QueryContext(ctx, query, domain.OrderStatusPending, before, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var orders []*domain.Order
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, order)
	}

	return orders, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrder(row rowScanner) (*domain.Order, error) {
	var order domain.Order
	var driverID, cardID, reason sql.NullString
	var receivers []byte
	var pastDrivers pq.StringArray

	err := row.Scan(
		&order.ID,
		&order.CustomerID,
		&driverID,
		&order.Pickup.Lat,
		&order.Pickup.Lng,
		&order.PickupAddress,
		&receivers,
		&order.VehicleID,
		&order.DistanceMetres,
		&order.Amount,
		&order.Currency,
		&order.PaymentMethod,
		&cardID,
		&order.Status,
		&order.StatusUpdatedAt,
		&reason,
		&pastDrivers,
		&order.StatusVersion,
		&order.CreatedAt,
		&order.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(receivers, &order.Receivers); err != nil {
		return nil, fmt.Errorf("decode receivers of order %s: %w", order.ID, err)
	}

	order.DriverID = driverID.String
	order.CardID = cardID.String
	order.CancellationReason = reason.String
	order.PastDrivers = []string(pastDrivers)

	return &order, nil
}

// Ensure OrderRepository implements repository.OrderRepository.
var _ repository.OrderRepository = (*OrderRepository)(nil)
