package repository

import (
	"context"

	"rideshare/internal/domain"
)

// RideRepository defines the persistence operations for rides.
type RideRepository interface {
	// Create persists a new ride at version 1.
	Create(ctx context.Context, ride *domain.Ride) error

	// GetByID retrieves a ride by ID.
	GetByID(ctx context.Context, id string) (*domain.Ride, error)

	// Save writes ride if the stored version still equals expectedVersion, and bumps
	// ride.Version on success. A lost race returns ErrVersionConflict.
	Save(ctx context.Context, ride *domain.Ride, expectedVersion int) error

	// List retrieves the most recently created rides.
	List(ctx context.Context, limit int) ([]*domain.Ride, error)
}
