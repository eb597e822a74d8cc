package tests

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"rideshare/internal/capacity"
	"rideshare/internal/domain"
	"rideshare/internal/fare"
	"rideshare/internal/repository"
	"rideshare/internal/repository/memory"
	"rideshare/internal/service"
)

// ──────────────────────────────────────────────
// MOCK RIDE REPOSITORY
// ──────────────────────────────────────────────

// MockRideRepository is a versioned in-memory RideRepository with failure injection.
type MockRideRepository struct {
	mu    sync.RWMutex
	rides map[string]*domain.Ride

	// Counters for verification
	GetCallCount  int32
	SaveCallCount int32

	// Error injection
	CreateError error
	GetError    error

	// ForcedConflicts makes the next n saves fail with a version conflict.
	ForcedConflicts int32
}

// NewMockRideRepository creates a new mock ride repository.
func NewMockRideRepository() *MockRideRepository {
	return &MockRideRepository{rides: make(map[string]*domain.Ride)}
}

func (m *MockRideRepository) Create(ctx context.Context, ride *domain.Ride) error {
	if m.CreateError != nil {
		return m.CreateError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	ride.Version = 1
	m.rides[ride.ID] = ride.Clone()
	return nil
}

func (m *MockRideRepository) GetByID(ctx context.Context, id string) (*domain.Ride, error) {
	atomic.AddInt32(&m.GetCallCount, 1)
	if m.GetError != nil {
		return nil, m.GetError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	ride, ok := m.rides[id]
	if !ok {
		return nil, domain.ErrRideNotFound
	}
	return ride.Clone(), nil
}

func (m *MockRideRepository) Save(ctx context.Context, ride *domain.Ride, expectedVersion int) error {
	atomic.AddInt32(&m.SaveCallCount, 1)
	if atomic.AddInt32(&m.ForcedConflicts, -1) >= 0 {
		return fmt.Errorf("%w: injected", domain.ErrVersionConflict)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	current, ok := m.rides[ride.ID]
	if !ok {
		return domain.ErrRideNotFound
	}
	if current.Version != expectedVersion {
		return fmt.Errorf("%w: ride %s", domain.ErrVersionConflict, ride.ID)
	}
	ride.Version = expectedVersion + 1
	m.rides[ride.ID] = ride.Clone()
	return nil
}

func (m *MockRideRepository) List(ctx context.Context, limit int) ([]*domain.Ride, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rides := make([]*domain.Ride, 0, len(m.rides))
	for _, r := range m.rides {
		rides = append(rides, r.Clone())
	}
	sort.Slice(rides, func(i, j int) bool { return rides[i].CreatedAt.After(rides[j].CreatedAt) })
	if limit > 0 && len(rides) > limit {
		rides = rides[:limit]
	}
	return rides, nil
}

// GetRide returns the stored ride without counting the call.
func (m *MockRideRepository) GetRide(id string) *domain.Ride {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if r, ok := m.rides[id]; ok {
		return r.Clone()
	}
	return nil
}

// ──────────────────────────────────────────────
// MOCK NOTIFIER
// ──────────────────────────────────────────────

// MockNotifier records every published event and can be made to fail.
type MockNotifier struct {
	mu     sync.Mutex
	events map[string][]domain.Event

	PublishError error
}

// NewMockNotifier creates a new mock notifier.
func NewMockNotifier() *MockNotifier {
	return &MockNotifier{events: make(map[string][]domain.Event)}
}

func (m *MockNotifier) Publish(ctx context.Context, channel string, event domain.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events[channel] = append(m.events[channel], event)
	return m.PublishError
}

// Events returns the events published on channel.
func (m *MockNotifier) Events(channel string) []domain.Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.Event(nil), m.events[channel]...)
}

// ──────────────────────────────────────────────
// ENGINE FIXTURE
// ──────────────────────────────────────────────

// Engine bundles a RideService with the doubles behind it.
type Engine struct {
	Service  *service.RideService
	Rides    *MockRideRepository
	Store    *memory.Store
	Notifier *MockNotifier
}

// Rates used by every engine test. Scenario A: sedan base 50, 15 per km.
var testRates = fare.RateTable{
	"bike":  {BaseFare: 20, PerKmRate: 6},
	"sedan": {BaseFare: 50, PerKmRate: 15},
	"van":   {BaseFare: 90, PerKmRate: 20},
}

// NewEngine builds a RideService over a mock ride repository for non-transactional writes and the
// in-memory store for vehicles, rating aggregates and rating transactions.
func NewEngine(maxAttempts int) *Engine {
	store := memory.NewStore()
	store.PutVehicle(domain.Vehicle{ID: "bike-1", Type: "bike", Status: domain.VehicleStatusActive, DriverID: "driver-1"})
	store.PutVehicle(domain.Vehicle{ID: "sedan-1", Type: "sedan", Status: domain.VehicleStatusActive, DriverID: "driver-1"})
	store.PutVehicle(domain.Vehicle{ID: "van-1", Type: "van", Status: domain.VehicleStatusActive, DriverID: "driver-1"})

	rides := NewMockRideRepository()
	notifier := NewMockNotifier()
	svc := service.NewRideService(service.RideServiceConfig{
		Rides:         rides,
		Vehicles:      store.Vehicles(),
		Ratings:       store.Ratings(),
		Transactor:    store,
		Fares:         fare.NewCalculator(testRates),
		Capacity:      capacity.NewPolicy(capacity.DefaultTable()),
		Notifications: service.NewNotificationService(notifier, zap.NewNop()),
		Retry:         service.RetryPolicy{MaxAttempts: maxAttempts, BaseBackoff: time.Microsecond, MaxBackoff: time.Millisecond},
		Currency:      "INR",
		Logger:        zap.NewNop(),
	})
	return &Engine{Service: svc, Rides: rides, Store: store, Notifier: notifier}
}

// NewTransactionalEngine builds a RideService entirely on the in-memory store, so rating
// transactions and ride saves share one version space.
func NewTransactionalEngine(maxAttempts int) *Engine {
	e := NewEngine(maxAttempts)
	e.Service = service.NewRideService(service.RideServiceConfig{
		Rides:         e.Store.Rides(),
		Vehicles:      e.Store.Vehicles(),
		Ratings:       e.Store.Ratings(),
		Transactor:    e.Store,
		Fares:         fare.NewCalculator(testRates),
		Capacity:      capacity.NewPolicy(capacity.DefaultTable()),
		Notifications: service.NewNotificationService(e.Notifier, zap.NewNop()),
		Retry:         service.RetryPolicy{MaxAttempts: maxAttempts, BaseBackoff: time.Microsecond, MaxBackoff: time.Millisecond},
		Currency:      "INR",
		Logger:        zap.NewNop(),
	})
	e.Rides = nil
	return e
}

var _ repository.RideRepository = (*MockRideRepository)(nil)
