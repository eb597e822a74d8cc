package repository

import "context"

// Repos is the set of repositories bound to one unit of work.
type Repos struct {
	Rides   RideRepository
	Ratings RatingRepository
}

// Transactor runs fn atomically: either every write made through repos commits, or none does.
type Transactor interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context, repos Repos) error) error
}
