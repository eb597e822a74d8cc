package repository

import (
	"context"

	"rideshare/internal/domain"
)

// VehicleRepository is the read side of the vehicle registry.
type VehicleRepository interface {
	// GetByID retrieves a vehicle by ID.
	GetByID(ctx context.Context, id string) (*domain.Vehicle, error)
}
