package postgres

import (
	"context"
	"database/sql"
	"errors"

	"delivery/internal/domain"
	"delivery/internal/repository"
)

// VehicleRepository is a PostgreSQL implementation of repository.VehicleRepository.
type VehicleRepository struct {
	q Querier
}

// NewVehicleRepository creates a new PostgreSQL vehicle repository.
func NewVehicleRepository(db *sql.DB) *VehicleRepository {
	return &VehicleRepository{q: db}
}

// GetByID retrieves a vehicle by ID.
func (r *VehicleRepository) GetByID(ctx context.Context, id string) (*domain.Vehicle, error) {
	query := `SELECT id, name, average_speed_kmh, price_per_km, disabled_at FROM vehicles WHERE id = $1`

	vehicle, err := scanVehicle(r.q.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}

	return vehicle, nil
}

// ListEnabled retrieves vehicles available for new orders.
func (r *VehicleRepository) ListEnabled(ctx context.Context) ([]*domain.Vehicle, error) {
	query := `
		SELECT id, name, average_speed_kmh, price_per_km, disabled_at
		FROM vehicles WHERE disabled_at IS NULL ORDER BY price_per_km, name
	`

	rows, err := r.q.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var vehicles []*domain.Vehicle
	for rows.Next() {
		vehicle, err := scanVehicle(rows)
		if err != nil {
			return nil, err
		}
		vehicles = append(vehicles, vehicle)
	}

	return vehicles, rows.Err()
}

func scanVehicle(row rowScanner) (*domain.Vehicle, error) {
	var vehicle domain.Vehicle
	var disabledAt sql.NullTime

	if err := row.Scan(&vehicle.ID, &vehicle.Name, &vehicle.AverageSpeedKmh, &vehicle.PricePerKm, &disabledAt); err != nil {
		return nil, err
	}

	if disabledAt.Valid {
		t := disabledAt.Time
		vehicle.DisabledAt = &t
	}

	return &vehicle, nil
}

// Ensure VehicleRepository implements repository.VehicleRepository.
var _ repository.VehicleRepository = (*VehicleRepository)(nil)
