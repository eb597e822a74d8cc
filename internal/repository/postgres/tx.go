package postgres

import (
	"context"
	"database/sql"

	"rideshare/internal/domain"
	"rideshare/internal/repository"
)

// Transactor runs units of work in a database transaction.
type Transactor struct {
	db *sql.DB
}

// NewTransactor creates a Transactor over db.
func NewTransactor(db *sql.DB) *Transactor {
	return &Transactor{db: db}
}

// RunInTx begins a transaction, hands transaction-bound repositories to fn, and commits
// only if fn succeeds.
func (t *Transactor) RunInTx(ctx context.Context, fn func(ctx context.Context, repos repository.Repos) error) (err error) {
	tx, err := t.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.Unavailable("begin transaction", err)
	}

	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	repos := repository.Repos{
		Rides:   NewRideRepositoryWithTx(tx),
		Ratings: NewRatingRepositoryWithTx(tx),
	}
	if err = fn(ctx, repos); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return domain.Unavailable("commit transaction", err)
	}
	return nil
}
