package memory

import (
	"context"
	"fmt"

	"rideshare/internal/domain"
	"rideshare/internal/repository"
)

type stagedRide struct {
	ride   *domain.Ride
	base   int // store version when first touched; 0 for creates
	create bool
}

type stagedAggregate struct {
	agg  domain.RatingAggregate
	base int
}

// unitOfWork buffers writes and applies them in one critical section on commit,
// re-checking every base version so a concurrent writer turns the commit into a conflict.
type unitOfWork struct {
	rides      map[string]*stagedRide
	aggregates map[domain.Subject]*stagedAggregate
}

// RunInTx implements repository.Transactor.
func (s *Store) RunInTx(ctx context.Context, fn func(ctx context.Context, repos repository.Repos) error) error {
	uow := &unitOfWork{
		rides:      make(map[string]*stagedRide),
		aggregates: make(map[domain.Subject]*stagedAggregate),
	}
	repos := repository.Repos{
		Rides:   &RideRepository{s: s, tx: uow},
		Ratings: &RatingRepository{s: s, tx: uow},
	}
	if err := fn(ctx, repos); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.commit(uow)
}

func (s *Store) commit(uow *unitOfWork) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, st := range uow.rides {
		current, exists := s.rides[id]
		switch {
		case st.create && exists:
			return fmt.Errorf("%w: ride %s", domain.ErrAlreadyExists, id)
		case !st.create && !exists:
			return domain.ErrRideNotFound
		case !st.create && current.Version != st.base:
			return fmt.Errorf("%w: ride %s changed during transaction", domain.ErrVersionConflict, id)
		}
	}
	for subject, st := range uow.aggregates {
		if s.aggregate(subject).Version != st.base {
			return fmt.Errorf("%w: %s %s changed during transaction", domain.ErrVersionConflict, subject.Kind, subject.ID)
		}
	}

	for id, st := range uow.rides {
		s.rides[id] = st.ride
	}
	for subject, st := range uow.aggregates {
		s.aggregates[subject] = st.agg
	}
	return nil
}

func (u *unitOfWork) stageCreate(ride *domain.Ride) error {
	if _, ok := u.rides[ride.ID]; ok {
		return fmt.Errorf("%w: ride %s", domain.ErrAlreadyExists, ride.ID)
	}
	ride.Version = 1
	u.rides[ride.ID] = &stagedRide{ride: ride.Clone(), create: true}
	return nil
}

func (u *unitOfWork) stageSave(r *RideRepository, ride *domain.Ride, expectedVersion int) error {
	st, ok := u.rides[ride.ID]
	if !ok {
		r.s.mu.RLock()
		current, exists := r.s.rides[ride.ID]
		var version int
		if exists {
			version = current.Version
		}
		r.s.mu.RUnlock()
		if !exists {
			return domain.ErrRideNotFound
		}
		st = &stagedRide{base: version, ride: &domain.Ride{Version: version}}
	}
	if st.ride.Version != expectedVersion {
		return fmt.Errorf("%w: ride %s at version %d, expected %d",
			domain.ErrVersionConflict, ride.ID, st.ride.Version, expectedVersion)
	}
	ride.Version = expectedVersion + 1
	st.ride = ride.Clone()
	u.rides[ride.ID] = st
	return nil
}

func (u *unitOfWork) stageAggregate(r *RatingRepository, agg *domain.RatingAggregate, expectedVersion int) error {
	st, ok := u.aggregates[agg.Subject]
	if !ok {
		r.s.mu.RLock()
		current := r.s.aggregate(agg.Subject)
		r.s.mu.RUnlock()
		st = &stagedAggregate{base: current.Version, agg: current}
	}
	if st.agg.Version != expectedVersion {
		return fmt.Errorf("%w: %s %s at version %d, expected %d",
			domain.ErrVersionConflict, agg.Subject.Kind, agg.Subject.ID, st.agg.Version, expectedVersion)
	}
	agg.Version = expectedVersion + 1
	st.agg = *agg
	u.aggregates[agg.Subject] = st
	return nil
}
