// Package memory is an in-process implementation of the repository contracts.
// It backs STORE_BACKEND=memory and the service tests.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"rideshare/internal/domain"
	"rideshare/internal/repository"
)

// Store holds rides, vehicles and rating aggregates behind one mutex.
type Store struct {
	mu         sync.RWMutex
	rides      map[string]*domain.Ride
	vehicles   map[string]domain.Vehicle
	aggregates map[domain.Subject]domain.RatingAggregate
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		rides:      make(map[string]*domain.Ride),
		vehicles:   make(map[string]domain.Vehicle),
		aggregates: make(map[domain.Subject]domain.RatingAggregate),
	}
}

// Rides returns a ride repository over the store.
func (s *Store) Rides() *RideRepository { return &RideRepository{s: s} }

// Vehicles returns a vehicle registry over the store.
func (s *Store) Vehicles() *VehicleRepository { return &VehicleRepository{s: s} }

// Ratings returns a rating aggregate repository over the store.
func (s *Store) Ratings() *RatingRepository { return &RatingRepository{s: s} }

// PutVehicle registers or replaces a vehicle.
func (s *Store) PutVehicle(v domain.Vehicle) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.vehicles[v.ID] = v
}

// Ensure interfaces are satisfied.
var (
	_ repository.RideRepository    = (*RideRepository)(nil)
	_ repository.VehicleRepository = (*VehicleRepository)(nil)
	_ repository.RatingRepository  = (*RatingRepository)(nil)
	_ repository.Transactor        = (*Store)(nil)
)

// RideRepository is the in-memory repository.RideRepository.
// When tx is set, writes are staged until the unit of work commits.
type RideRepository struct {
	s  *Store
	tx *unitOfWork
}

func (r *RideRepository) Create(ctx context.Context, ride *domain.Ride) error {
	if r.tx != nil {
		return r.tx.stageCreate(ride)
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.rides[ride.ID]; ok {
		return fmt.Errorf("%w: ride %s", domain.ErrAlreadyExists, ride.ID)
	}
	ride.Version = 1
	r.s.rides[ride.ID] = ride.Clone()
	return nil
}

func (r *RideRepository) GetByID(ctx context.Context, id string) (*domain.Ride, error) {
	if r.tx != nil {
		if staged, ok := r.tx.rides[id]; ok {
			return staged.ride.Clone(), nil
		}
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	ride, ok := r.s.rides[id]
	if !ok {
		return nil, domain.ErrRideNotFound
	}
	return ride.Clone(), nil
}

func (r *RideRepository) Save(ctx context.Context, ride *domain.Ride, expectedVersion int) error {
	if r.tx != nil {
		return r.tx.stageSave(r, ride, expectedVersion)
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	current, ok := r.s.rides[ride.ID]
	if !ok {
		return domain.ErrRideNotFound
	}
	if current.Version != expectedVersion {
		return fmt.Errorf("%w: ride %s at version %d, expected %d",
			domain.ErrVersionConflict, ride.ID, current.Version, expectedVersion)
	}
	ride.Version = expectedVersion + 1
	r.s.rides[ride.ID] = ride.Clone()
	return nil
}

func (r *RideRepository) List(ctx context.Context, limit int) ([]*domain.Ride, error) {
	r.s.mu.RLock()
	rides := make([]*domain.Ride, 0, len(r.s.rides))
	for _, ride := range r.s.rides {
		rides = append(rides, ride.Clone())
	}
	r.s.mu.RUnlock()

	sort.Slice(rides, func(i, j int) bool {
		if rides[i].CreatedAt.Equal(rides[j].CreatedAt) {
			return rides[i].ID > rides[j].ID
		}
		return rides[i].CreatedAt.After(rides[j].CreatedAt)
	})
	if limit > 0 && len(rides) > limit {
		rides = rides[:limit]
	}
	return rides, nil
}

// VehicleRepository is the in-memory repository.VehicleRepository.
type VehicleRepository struct {
	s *Store
}

func (r *VehicleRepository) GetByID(ctx context.Context, id string) (*domain.Vehicle, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	v, ok := r.s.vehicles[id]
	if !ok {
		return nil, domain.ErrVehicleNotFound
	}
	return &v, nil
}

// RatingRepository is the in-memory repository.RatingRepository.
type RatingRepository struct {
	s  *Store
	tx *unitOfWork
}

func (r *RatingRepository) GetAggregate(ctx context.Context, subject domain.Subject) (domain.RatingAggregate, error) {
	if r.tx != nil {
		if staged, ok := r.tx.aggregates[subject]; ok {
			return staged.agg, nil
		}
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return r.s.aggregate(subject), nil
}

func (r *RatingRepository) SaveAggregate(ctx context.Context, agg *domain.RatingAggregate, expectedVersion int) error {
	if r.tx != nil {
		return r.tx.stageAggregate(r, agg, expectedVersion)
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if current := r.s.aggregate(agg.Subject); current.Version != expectedVersion {
		return fmt.Errorf("%w: %s %s at version %d, expected %d",
			domain.ErrVersionConflict, agg.Subject.Kind, agg.Subject.ID, current.Version, expectedVersion)
	}
	agg.Version = expectedVersion + 1
	r.s.aggregates[agg.Subject] = *agg
	return nil
}

// aggregate must be called with s.mu held.
func (s *Store) aggregate(subject domain.Subject) domain.RatingAggregate {
	if agg, ok := s.aggregates[subject]; ok {
		return agg
	}
	return domain.RatingAggregate{Subject: subject}
}
