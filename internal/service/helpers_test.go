package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"rideshare/internal/capacity"
	"rideshare/internal/domain"
	"rideshare/internal/fare"
	"rideshare/internal/geo"
	"rideshare/internal/repository/memory"
)

var testNow = time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC)

var (
	admin  = domain.Actor{ID: "admin-1", Role: domain.RoleAdmin}
	driver = domain.Actor{ID: "driver-1", Role: domain.RoleDriver}
)

func rider(id string) domain.Actor {
	return domain.Actor{ID: id, Role: domain.RolePassenger}
}

var (
	origin = domain.Location{Lat: 12.9716, Lng: 77.5946, Address: "MG Road"}
	near   = domain.Location{Lat: 13.0076, Lng: 77.5946, Address: "Hebbal"}
	far    = domain.Location{Lat: 13.0616, Lng: 77.5946, Address: "Yelahanka"}
)

// recordingNotifier captures published events, optionally failing every call.
type recordingNotifier struct {
	mu     sync.Mutex
	events []published
	err    error
}

type published struct {
	channel string
	event   domain.Event
}

func (n *recordingNotifier) Publish(ctx context.Context, channel string, event domain.Event) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, published{channel: channel, event: event})
	return n.err
}

func (n *recordingNotifier) channels(t domain.EventType) []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []string
	for _, p := range n.events {
		if p.event.Type == t {
			out = append(out, p.channel)
		}
	}
	return out
}

// fakeRideCache is an in-memory RideCacheInterface.
type fakeRideCache struct {
	mu          sync.Mutex
	rides       map[string]*domain.Ride
	hits        int
	invalidated []string
}

func newFakeRideCache() *fakeRideCache {
	return &fakeRideCache{rides: make(map[string]*domain.Ride)}
}

func (c *fakeRideCache) GetRide(ctx context.Context, id string) (*domain.Ride, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	r, ok := c.rides[id]
	if !ok {
		return nil, nil
	}
	c.hits++
	return r.Clone(), nil
}

func (c *fakeRideCache) SetRide(ctx context.Context, r *domain.Ride) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if cur, ok := c.rides[r.ID]; ok && cur.Version > r.Version {
		return nil
	}
	c.rides[r.ID] = r.Clone()
	return nil
}

func (c *fakeRideCache) InvalidateRide(ctx context.Context, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.rides, id)
	c.invalidated = append(c.invalidated, id)
	return nil
}

type fixture struct {
	store    *memory.Store
	notifier *recordingNotifier
	cache    *fakeRideCache
	cfg      RideServiceConfig
	svc      *RideService
}

var testRates = fare.RateTable{
	"bike":  {BaseFare: 20, PerKmRate: 6},
	"sedan": {BaseFare: 50, PerKmRate: 15},
	"van":   {BaseFare: 90, PerKmRate: 20},
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	store := memory.NewStore()
	store.PutVehicle(domain.Vehicle{ID: "bike-1", Type: "bike", Status: domain.VehicleStatusActive, DriverID: "driver-1"})
	store.PutVehicle(domain.Vehicle{ID: "sedan-1", Type: "sedan", Status: domain.VehicleStatusActive, DriverID: "driver-1"})
	store.PutVehicle(domain.Vehicle{ID: "van-1", Type: "van", Status: domain.VehicleStatusActive, DriverID: "driver-1", FareMultiplier: 1.5})
	store.PutVehicle(domain.Vehicle{ID: "sedan-off", Type: "sedan", Status: domain.VehicleStatusMaintenance, DriverID: "driver-2"})
	store.PutVehicle(domain.Vehicle{ID: "sedan-2seat", Type: "sedan", Capacity: 2, Status: domain.VehicleStatusActive, DriverID: "driver-1"})

	notifier := &recordingNotifier{}
	cache := newFakeRideCache()
	cfg := RideServiceConfig{
		Rides:         store.Rides(),
		Vehicles:      store.Vehicles(),
		Ratings:       store.Ratings(),
		Transactor:    store,
		Fares:         fare.NewCalculator(testRates),
		Capacity:      capacity.NewPolicy(capacity.DefaultTable()),
		Cache:         cache,
		Notifications: NewNotificationService(notifier, zap.NewNop()),
		Retry:         RetryPolicy{MaxAttempts: 50, BaseBackoff: time.Microsecond, MaxBackoff: time.Millisecond},
		Currency:      "INR",
		Logger:        zap.NewNop(),
		Clock:         func() time.Time { return testNow },
	}
	return &fixture{store: store, notifier: notifier, cache: cache, cfg: cfg, svc: NewRideService(cfg)}
}

// createRide creates a ride on vehicleID with one passenger per user.
func (f *fixture) createRide(t *testing.T, vehicleID string, users ...string) *domain.Ride {
	t.Helper()
	req := CreateRideRequest{VehicleID: vehicleID}
	for _, u := range users {
		req.Passengers = append(req.Passengers, PassengerInput{UserID: u, Pickup: origin, Dropoff: near})
	}
	ride, err := f.svc.CreateRide(context.Background(), driver, req)
	require.NoError(t, err)
	return ride
}

// advance walks the ride forward through the given statuses as its driver.
func (f *fixture) advance(t *testing.T, rideID string, statuses ...domain.RideStatus) *domain.Ride {
	t.Helper()
	var ride *domain.Ride
	var err error
	for _, s := range statuses {
		ride, err = f.svc.UpdateRideStatus(context.Background(), driver, rideID, s)
		require.NoError(t, err)
	}
	return ride
}

func (f *fixture) stored(t *testing.T, rideID string) *domain.Ride {
	t.Helper()
	ride, err := f.store.Rides().GetByID(context.Background(), rideID)
	require.NoError(t, err)
	return ride
}

func expectedFare(t *testing.T, pickup, dropoff domain.Location, rate fare.Rate, multiplier float64) int64 {
	t.Helper()
	d, err := geo.Distance(geo.FromLocation(pickup), geo.FromLocation(dropoff))
	require.NoError(t, err)
	total, err := fare.ComputeFare(d, rate.BaseFare, rate.PerKmRate, multiplier)
	require.NoError(t, err)
	return total
}
