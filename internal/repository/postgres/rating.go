package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"rideshare/internal/domain"
)

// RatingRepository is a PostgreSQL implementation of repository.RatingRepository.
type RatingRepository struct {
	q Querier
}

// NewRatingRepository creates a new PostgreSQL rating aggregate repository.
func NewRatingRepository(db *sql.DB) *RatingRepository {
	return &RatingRepository{q: db}
}

// NewRatingRepositoryWithTx creates a rating aggregate repository using a transaction.
func NewRatingRepositoryWithTx(tx *sql.Tx) *RatingRepository {
	return &RatingRepository{q: tx}
}

// GetAggregate returns the subject's aggregate, or a zero aggregate at version 0.
func (r *RatingRepository) GetAggregate(ctx context.Context, subject domain.Subject) (domain.RatingAggregate, error) {
	query := `SELECT average, count, version FROM rating_aggregates WHERE subject_kind = $1 AND subject_id = $2`

	agg := domain.RatingAggregate{Subject: subject}
	err := r.q.QueryRowContext(ctx, query, subject.Kind, subject.ID).Scan(&agg.Average, &agg.Count, &agg.Version)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.RatingAggregate{Subject: subject}, nil
		}
		return agg, domain.Unavailable("get rating aggregate", err)
	}
	return agg, nil
}

// SaveAggregate inserts the first aggregate row for a subject or updates it at expectedVersion.
func (r *RatingRepository) SaveAggregate(ctx context.Context, agg *domain.RatingAggregate, expectedVersion int) error {
	var (
		result sql.Result
		err    error
	)
	if expectedVersion == 0 {
		result, err = r.q.ExecContext(ctx, `
			INSERT INTO rating_aggregates (subject_kind, subject_id, average, count, version)
			VALUES ($1, $2, $3, $4, 1)
			ON CONFLICT (subject_kind, subject_id) DO NOTHING
		`, agg.Subject.Kind, agg.Subject.ID, agg.Average, agg.Count)
	} else {
		result, err = r.q.ExecContext(ctx, `
			UPDATE rating_aggregates SET average = $1, count = $2, version = version + 1
			WHERE subject_kind = $3 AND subject_id = $4 AND version = $5
		`, agg.Average, agg.Count, agg.Subject.Kind, agg.Subject.ID, expectedVersion)
	}
	if err != nil {
		return domain.Unavailable("save rating aggregate", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return domain.Unavailable("save rating aggregate", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: %s %s expected version %d",
			domain.ErrVersionConflict, agg.Subject.Kind, agg.Subject.ID, expectedVersion)
	}
	agg.Version = expectedVersion + 1
	return nil
}
