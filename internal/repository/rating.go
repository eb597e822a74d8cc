package repository

import (
	"context"

	"rideshare/internal/domain"
)

// RatingRepository stores per-subject rating aggregates.
type RatingRepository interface {
	// GetAggregate returns the subject's aggregate, or a zero aggregate at version 0
	// when the subject has never been rated.
	GetAggregate(ctx context.Context, subject domain.Subject) (domain.RatingAggregate, error)

	// SaveAggregate writes agg if the stored version equals expectedVersion
	// (0 meaning no row yet) and bumps agg.Version on success.
	SaveAggregate(ctx context.Context, agg *domain.RatingAggregate, expectedVersion int) error
}
