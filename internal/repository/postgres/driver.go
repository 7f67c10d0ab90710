package postgres

import (
	"context"
	"database/sql"
	"errors"

	"delivery/internal/domain"
	"delivery/internal/repository"
)

// DriverRepository is a PostgreSQL implementation of repository.DriverRepository.
type DriverRepository struct {
	q Querier
}

// NewDriverRepository creates a new PostgreSQL driver repository.
func NewDriverRepository(db *sql.DB) *DriverRepository {
	return &DriverRepository{q: db}
}

// NewDriverRepositoryWithTx creates a driver repository using a transaction.
func NewDriverRepositoryWithTx(tx *sql.Tx) *DriverRepository {
	return &DriverRepository{q: tx}
}

const driverColumns = `
	u.id, u.name, COALESCE(u.phone, ''), r.vehicle_id, u.registration_status, r.status,
	u.email_verified_at IS NOT NULL, u.online, u.latitude, u.longitude, u.location_updated_at,
	u.rejected_orders_count, u.completed_orders_count
`

// GetByID retrieves a driver by user ID.
func (r *DriverRepository) GetByID(ctx context.Context, id string) (*domain.Driver, error) {
	query := `SELECT ` + driverColumns + `
		FROM users u JOIN rides r ON r.user_id = u.id
		WHERE u.id = $1 AND u.role = 'driver'
	`

	driver, err := scanDriver(r.q.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}

	return driver, nil
}

// FindCandidates returns eligible drivers inside the bounding box.
func (r *DriverRepository) FindCandidates(ctx context.Context, q repository.CandidateQuery) ([]*domain.Driver, error) {
	query := `SELECT ` + driverColumns + `
		FROM users u JOIN rides r ON r.user_id = u.id
		WHERE u.role = 'driver'
		  AND u.email_verified_at IS NOT NULL
		  AND u.registration_status = 'accepted'
		  AND r.status = 'approved'
		  AND u.online
		  AND r.vehicle_id = $1
		  AND u.latitude BETWEEN $2 AND $3
		  AND u.longitude BETWEEN $4 AND $5
		  AND NOT (u.id = ANY($6))
	`

	rows, err := r.q.QueryContext(ctx, query,
		q.VehicleID,
		q.Bounds.LatMin,
		q.Bounds.LatMax,
		q.Bounds.LonMin,
		q.Bounds.LonMax,
		stringArray(q.Exclude),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var drivers []*domain.Driver
	for rows.Next() {
		driver, err := scanDriver(rows)
		if err != nil {
			return nil, err
		}
		drivers = append(drivers, driver)
	}

	return drivers, rows.Err()
}

// SetOnline updates the availability of a driver.
func (r *DriverRepository) SetOnline(ctx context.Context, id string, online bool) error {
	query := `UPDATE users SET online = $1, updated_at = NOW() WHERE id = $2 AND role = 'driver'`

	result, err := r.q.ExecContext(ctx, query, online, id)
	if err != nil {
		return err
	}

	return expectOneRow(result)
}

// UpdateLocation records the last known position of a driver.
func (r *DriverRepository) UpdateLocation(ctx context.Context, id string, loc domain.Coordinates) error {
	query := `
		UPDATE users
		SET latitude = $1, longitude = $2, location_updated_at = NOW(), updated_at = NOW()
		WHERE id = $3 AND role = 'driver'
	`

	result, err := r.q.ExecContext(ctx, query, loc.Lat, loc.Lng, id)
	if err != nil {
		return err
	}

	return expectOneRow(result)
}

// IncrementRejected bumps the rejected-orders counter.
func (r *DriverRepository) IncrementRejected(ctx context.Context, id string) error {
	result, err := r.q.ExecContext(ctx, `UPDATE users SET rejected_orders_count = rejected_orders_count + 1 WHERE id = $1`, id)
	if err != nil {
		return err
	}

	return expectOneRow(result)
}

// IncrementCompleted bumps the completed-orders counter.
func (r *DriverRepository) IncrementCompleted(ctx context.Context, id string) error {
	result, err := r.q.ExecContext(ctx, `UPDATE users SET completed_orders_count = completed_orders_count + 1 WHERE id = $1`, id)
	if err != nil {
		return err
	}

	return expectOneRow(result)
}

func scanDriver(row rowScanner) (*domain.Driver, error) {
	var driver domain.Driver
	var lat, lng sql.NullFloat64
	var locatedAt sql.NullTime

	err := row.Scan(
		&driver.UserID,
		&driver.Name,
		&driver.Phone,
		&driver.VehicleID,
		&driver.Registration,
		&driver.RideStatus,
		&driver.EmailVerified,
		&driver.Online,
		&lat,
		&lng,
		&locatedAt,
		&driver.RejectedOrdersCount,
		&driver.CompletedOrdersCount,
	)
	if err != nil {
		return nil, err
	}

	if lat.Valid && lng.Valid {
		driver.Location = &domain.Coordinates{Lat: lat.Float64, Lng: lng.Float64}
	}
	if locatedAt.Valid {
		driver.LocationUpdatedAt = locatedAt.Time
	}

	return &driver, nil
}

// Ensure DriverRepository implements repository.DriverRepository.
var _ repository.DriverRepository = (*DriverRepository)(nil)
