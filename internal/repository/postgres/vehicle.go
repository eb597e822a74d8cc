package postgres

import (
	"context"
	"database/sql"
	"errors"

	"rideshare/internal/domain"
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
	query := `SELECT id, type, COALESCE(capacity, 0), COALESCE(fare_multiplier, 1.0), status, COALESCE(driver_id, '') FROM vehicles WHERE id = $1`

	var v domain.Vehicle
	err := r.q.QueryRowContext(ctx, query, id).Scan(
		&v.ID,
		&v.Type,
		&v.Capacity,
		&v.FareMultiplier,
		&v.Status,
		&v.DriverID,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrVehicleNotFound
		}
		return nil, domain.Unavailable("get vehicle", err)
	}

	return &v, nil
}
