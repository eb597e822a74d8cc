package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rideshare/internal/domain"
	"rideshare/internal/repository"
)

func TestCreateRide_PricesEachPassenger(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	ride, err := f.svc.CreateRide(ctx, driver, CreateRideRequest{
		VehicleID: "sedan-1",
		Passengers: []PassengerInput{
			{UserID: "u1", Pickup: origin, Dropoff: near},
			{UserID: "u2", Pickup: origin, Dropoff: far},
		},
	})
	require.NoError(t, err)

	nearFare := expectedFare(t, origin, near, testRates["sedan"], 1.0)
	farFare := expectedFare(t, origin, far, testRates["sedan"], 1.0)

	assert.NotEmpty(t, ride.ID)
	assert.Equal(t, domain.RideTypeOnDemand, ride.Type)
	assert.Equal(t, domain.RideStatusPending, ride.Status)
	assert.Equal(t, "driver-1", ride.DriverID)
	assert.Equal(t, "sedan", ride.VehicleType)
	assert.Equal(t, "INR", ride.Currency)
	require.Len(t, ride.Passengers, 2)
	assert.Equal(t, nearFare, ride.Passengers[0].Fare.Total)
	assert.Equal(t, farFare, ride.Passengers[1].Fare.Total)
	assert.Equal(t, nearFare+farFare, ride.TotalFare)
	assert.NotEqual(t, ride.Passengers[0].ID, ride.Passengers[1].ID)
	for _, p := range ride.Passengers {
		assert.Equal(t, domain.PassengerStatusWaiting, p.Status)
		assert.Equal(t, domain.RefundStatusNone, p.RefundStatus)
		assert.False(t, p.Fare.Paid)
		assert.Equal(t, testNow, p.JoinedAt)
	}

	stored := f.stored(t, ride.ID)
	assert.Equal(t, ride.TotalFare, stored.TotalFare)

	assert.ElementsMatch(t,
		[]string{"ride:" + ride.ID, "user:driver-1", "user:u1", "user:u2"},
		f.notifier.channels(domain.EventRideCreated))
}

func TestCreateRide_AppliesVehicleMultiplier(t *testing.T) {
	f := newFixture(t)

	ride := f.createRide(t, "van-1", "u1")

	assert.Equal(t, expectedFare(t, origin, near, testRates["van"], 1.5), ride.TotalFare)
}

func TestCreateRide_Validation(t *testing.T) {
	past := testNow.Add(-time.Hour)
	leg := []PassengerInput{{UserID: "u1", Pickup: origin, Dropoff: near}}

	tests := []struct {
		name  string
		actor domain.Actor
		req   CreateRideRequest
		kind  error
	}{
		{
			name:  "missing actor",
			actor: domain.Actor{},
			req:   CreateRideRequest{VehicleID: "sedan-1", Passengers: leg},
			kind:  domain.ErrUnauthorized,
		},
		{
			name:  "unknown ride type",
			actor: driver,
			req:   CreateRideRequest{Type: "helicopter", VehicleID: "sedan-1", Passengers: leg},
			kind:  domain.ErrValidation,
		},
		{
			name:  "missing vehicle",
			actor: driver,
			req:   CreateRideRequest{Passengers: leg},
			kind:  domain.ErrValidation,
		},
		{
			name:  "scheduled without time",
			actor: driver,
			req:   CreateRideRequest{Type: domain.RideTypeScheduled, VehicleID: "sedan-1", Passengers: leg},
			kind:  domain.ErrValidation,
		},
		{
			name:  "scheduled in the past",
			actor: driver,
			req:   CreateRideRequest{Type: domain.RideTypeScheduled, ScheduledTime: &past, VehicleID: "sedan-1", Passengers: leg},
			kind:  domain.ErrValidation,
		},
		{
			name:  "group without group id",
			actor: driver,
			req:   CreateRideRequest{Type: domain.RideTypeGroup, VehicleID: "sedan-1", Passengers: leg},
			kind:  domain.ErrValidation,
		},
		{
			name:  "invalid coordinate",
			actor: driver,
			req: CreateRideRequest{VehicleID: "sedan-1", Passengers: []PassengerInput{
				{UserID: "u1", Pickup: domain.Location{Lat: 91, Lng: 0}, Dropoff: near},
			}},
			kind: domain.ErrValidation,
		},
		{
			name:  "duplicate user",
			actor: driver,
			req: CreateRideRequest{VehicleID: "sedan-1", Passengers: []PassengerInput{
				{UserID: "u1", Pickup: origin, Dropoff: near},
				{UserID: "u1", Pickup: origin, Dropoff: far},
			}},
			kind: domain.ErrValidation,
		},
		{
			name:  "inactive vehicle",
			actor: driver,
			req:   CreateRideRequest{VehicleID: "sedan-off", Passengers: leg},
			kind:  domain.ErrValidation,
		},
		{
			name:  "unknown vehicle",
			actor: driver,
			req:   CreateRideRequest{VehicleID: "ghost", Passengers: leg},
			kind:  domain.ErrNotFound,
		},
		{
			name:  "over capacity",
			actor: driver,
			req: CreateRideRequest{VehicleID: "bike-1", Passengers: []PassengerInput{
				{UserID: "u1", Pickup: origin, Dropoff: near},
				{UserID: "u2", Pickup: origin, Dropoff: near},
			}},
			kind: domain.ErrCapacityExceeded,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)

			ride, err := f.svc.CreateRide(context.Background(), tt.actor, tt.req)

			require.ErrorIs(t, err, tt.kind)
			assert.Nil(t, ride)
			rides, err := f.store.Rides().List(context.Background(), 10)
			require.NoError(t, err)
			assert.Empty(t, rides)
		})
	}
}

func TestCreateRide_ScheduledAndGroup(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	at := testNow.Add(2 * time.Hour)

	scheduled, err := f.svc.CreateRide(ctx, driver, CreateRideRequest{
		Type:          domain.RideTypeScheduled,
		ScheduledTime: &at,
		VehicleID:     "sedan-1",
	})
	require.NoError(t, err)
	require.NotNil(t, scheduled.ScheduledTime)
	assert.Equal(t, at, *scheduled.ScheduledTime)
	assert.Empty(t, scheduled.Passengers)
	assert.Zero(t, scheduled.TotalFare)

	group, err := f.svc.CreateRide(ctx, driver, CreateRideRequest{
		Type:      domain.RideTypeGroup,
		GroupID:   "office-run",
		VehicleID: "van-1",
	})
	require.NoError(t, err)
	assert.Equal(t, "office-run", group.GroupID)
}

func TestJoinRide_AddsPricedPassenger(t *testing.T) {
	f := newFixture(t)
	ride := f.createRide(t, "sedan-1", "u1")

	joined, err := f.svc.JoinRide(context.Background(), rider("u2"), JoinRideRequest{
		RideID:  ride.ID,
		Pickup:  origin,
		Dropoff: far,
	})
	require.NoError(t, err)

	require.Len(t, joined.Passengers, 2)
	assert.Equal(t, "u2", joined.Passengers[1].UserID)
	assert.Equal(t, expectedFare(t, origin, far, testRates["sedan"], 1.0), joined.Passengers[1].Fare.Total)
	assert.Equal(t, ride.Passengers[0].Fare.Total, joined.Passengers[0].Fare.Total, "earlier fares are fixed")
	assert.Equal(t, joined.Passengers[0].Fare.Total+joined.Passengers[1].Fare.Total, joined.TotalFare)
	assert.Contains(t, f.notifier.channels(domain.EventPassengerJoined), "user:u2")
}

func TestJoinRide_SingleSeatVehicleIsFull(t *testing.T) {
	f := newFixture(t)
	ride := f.createRide(t, "bike-1", "u1")

	_, err := f.svc.JoinRide(context.Background(), rider("u2"), JoinRideRequest{
		RideID: ride.ID, Pickup: origin, Dropoff: near,
	})

	require.ErrorIs(t, err, domain.ErrCapacityExceeded)
	assert.Len(t, f.stored(t, ride.ID).Passengers, 1)
}

func TestJoinRide_Rejections(t *testing.T) {
	tests := []struct {
		name  string
		actor domain.Actor
		req   func(rideID string) JoinRideRequest
		setup func(t *testing.T, f *fixture, rideID string)
		kind  error
	}{
		{
			name:  "already on ride",
			actor: rider("u1"),
			req:   func(id string) JoinRideRequest { return JoinRideRequest{RideID: id, Pickup: origin, Dropoff: near} },
			kind:  domain.ErrAlreadyExists,
		},
		{
			name:  "joining for someone else",
			actor: rider("u2"),
			req: func(id string) JoinRideRequest {
				return JoinRideRequest{RideID: id, UserID: "u3", Pickup: origin, Dropoff: near}
			},
			kind: domain.ErrUnauthorized,
		},
		{
			name:  "missing actor",
			actor: domain.Actor{},
			req:   func(id string) JoinRideRequest { return JoinRideRequest{RideID: id, Pickup: origin, Dropoff: near} },
			kind:  domain.ErrUnauthorized,
		},
		{
			name:  "bad dropoff",
			actor: rider("u2"),
			req: func(id string) JoinRideRequest {
				return JoinRideRequest{RideID: id, Pickup: origin, Dropoff: domain.Location{Lat: 0, Lng: 181}}
			},
			kind: domain.ErrValidation,
		},
		{
			name:  "unknown ride",
			actor: rider("u2"),
			req: func(string) JoinRideRequest {
				return JoinRideRequest{RideID: "ghost", Pickup: origin, Dropoff: near}
			},
			kind: domain.ErrNotFound,
		},
		{
			name:  "ride already started",
			actor: rider("u2"),
			req:   func(id string) JoinRideRequest { return JoinRideRequest{RideID: id, Pickup: origin, Dropoff: near} },
			setup: func(t *testing.T, f *fixture, id string) {
				f.advance(t, id, domain.RideStatusConfirmed, domain.RideStatusInProgress)
			},
			kind: domain.ErrIllegalTransition,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			ride := f.createRide(t, "sedan-1", "u1")
			if tt.setup != nil {
				tt.setup(t, f, ride.ID)
			}

			_, err := f.svc.JoinRide(context.Background(), tt.actor, tt.req(ride.ID))

			require.ErrorIs(t, err, tt.kind)
			assert.Len(t, f.stored(t, ride.ID).Passengers, 1)
		})
	}
}

func TestJoinRide_AdminMayJoinForUser(t *testing.T) {
	f := newFixture(t)
	ride := f.createRide(t, "sedan-1")

	joined, err := f.svc.JoinRide(context.Background(), admin, JoinRideRequest{
		RideID: ride.ID, UserID: "u9", Pickup: origin, Dropoff: near,
	})

	require.NoError(t, err)
	require.Len(t, joined.Passengers, 1)
	assert.Equal(t, "u9", joined.Passengers[0].UserID)
}

func TestJoinRide_ConcurrentJoinsNeverOverbook(t *testing.T) {
	f := newFixture(t)
	ride := f.createRide(t, "sedan-2seat")

	const joiners = 12
	var wg sync.WaitGroup
	errs := make([]error, joiners)
	for i := 0; i < joiners; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			user := "u" + string(rune('a'+i))
			_, errs[i] = f.svc.JoinRide(context.Background(), rider(user), JoinRideRequest{
				RideID: ride.ID, Pickup: origin, Dropoff: near,
			})
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.ErrorIs(t, err, domain.ErrCapacityExceeded)
	}
	assert.Equal(t, 2, succeeded)

	stored := f.stored(t, ride.ID)
	require.Len(t, stored.Passengers, 2)
	assert.Equal(t, stored.Passengers[0].Fare.Total+stored.Passengers[1].Fare.Total, stored.TotalFare)
}

func TestUpdateRideStatus_Lifecycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ride := f.createRide(t, "sedan-1", "u1")

	confirmed, err := f.svc.UpdateRideStatus(ctx, driver, ride.ID, domain.RideStatusConfirmed)
	require.NoError(t, err)
	assert.Equal(t, domain.RideStatusConfirmed, confirmed.Status)
	assert.Nil(t, confirmed.StartTime)

	started, err := f.svc.UpdateRideStatus(ctx, driver, ride.ID, domain.RideStatusInProgress)
	require.NoError(t, err)
	require.NotNil(t, started.StartTime)
	assert.Equal(t, testNow, *started.StartTime)

	completed, err := f.svc.UpdateRideStatus(ctx, admin, ride.ID, domain.RideStatusCompleted)
	require.NoError(t, err)
	assert.Equal(t, domain.RideStatusCompleted, completed.Status)
	require.NotNil(t, completed.EndTime)

	assert.Greater(t, completed.Version, ride.Version)
	assert.Len(t, f.notifier.channels(domain.EventRideStatusChanged), 3*3)
}

func TestUpdateRideStatus_Rejections(t *testing.T) {
	tests := []struct {
		name   string
		actor  domain.Actor
		status domain.RideStatus
		kind   error
	}{
		{name: "skipping confirm", actor: driver, status: domain.RideStatusInProgress, kind: domain.ErrIllegalTransition},
		{name: "completing a pending ride", actor: driver, status: domain.RideStatusCompleted, kind: domain.ErrIllegalTransition},
		{name: "back to pending", actor: driver, status: domain.RideStatusPending, kind: domain.ErrIllegalTransition},
		{name: "unknown status", actor: driver, status: "teleported", kind: domain.ErrValidation},
		{name: "passenger confirming", actor: rider("u1"), status: domain.RideStatusConfirmed, kind: domain.ErrUnauthorized},
		{name: "other driver", actor: domain.Actor{ID: "driver-2", Role: domain.RoleDriver}, status: domain.RideStatusConfirmed, kind: domain.ErrUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			ride := f.createRide(t, "sedan-1", "u1")

			_, err := f.svc.UpdateRideStatus(context.Background(), tt.actor, ride.ID, tt.status)

			require.ErrorIs(t, err, tt.kind)
			stored := f.stored(t, ride.ID)
			assert.Equal(t, domain.RideStatusPending, stored.Status)
			assert.Equal(t, ride.Version, stored.Version)
		})
	}
}

func TestUpdateRideStatus_CancelledRoutesToCancel(t *testing.T) {
	f := newFixture(t)
	ride := f.createRide(t, "sedan-1", "u1")

	cancelled, err := f.svc.UpdateRideStatus(context.Background(), driver, ride.ID, domain.RideStatusCancelled)

	require.NoError(t, err)
	assert.Equal(t, domain.RideStatusCancelled, cancelled.Status)
	require.NotNil(t, cancelled.Cancellation)
	assert.Equal(t, "driver-1", cancelled.Cancellation.ActorID)
}

func TestUpdatePassengerStatus_BoardingFlow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ride := f.createRide(t, "sedan-1", "u1", "u2")
	p1, p2 := ride.Passengers[0].ID, ride.Passengers[1].ID

	_, err := f.svc.UpdatePassengerStatus(ctx, driver, ride.ID, p1, domain.PassengerStatusPickedUp)
	require.ErrorIs(t, err, domain.ErrIllegalTransition, "pickup before the ride starts")

	f.advance(t, ride.ID, domain.RideStatusConfirmed, domain.RideStatusInProgress)

	_, err = f.svc.UpdatePassengerStatus(ctx, driver, ride.ID, p1, domain.PassengerStatusDroppedOff)
	require.ErrorIs(t, err, domain.ErrIllegalTransition, "dropoff before pickup")

	got, err := f.svc.UpdatePassengerStatus(ctx, driver, ride.ID, p1, domain.PassengerStatusPickedUp)
	require.NoError(t, err)
	passenger, _ := got.Passenger(p1)
	require.NotNil(t, passenger.ActualPickup)
	assert.False(t, got.CompletionEligible())

	_, err = f.svc.UpdatePassengerStatus(ctx, driver, ride.ID, p1, domain.PassengerStatusDroppedOff)
	require.NoError(t, err)
	got, err = f.svc.UpdatePassengerStatus(ctx, rider("u2"), ride.ID, p2, domain.PassengerStatusCancelled)
	require.NoError(t, err)

	assert.True(t, got.CompletionEligible())
	assert.Equal(t, domain.RideStatusInProgress, got.Status, "completion stays with the driver")
	assert.Equal(t, got.Passengers[0].Fare.Total, got.TotalFare)
}

func TestUpdatePassengerStatus_Authorization(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ride := f.createRide(t, "sedan-1", "u1", "u2")
	p1 := ride.Passengers[0].ID

	_, err := f.svc.UpdatePassengerStatus(ctx, rider("u2"), ride.ID, p1, domain.PassengerStatusCancelled)
	require.ErrorIs(t, err, domain.ErrUnauthorized)

	f.advance(t, ride.ID, domain.RideStatusConfirmed, domain.RideStatusInProgress)
	_, err = f.svc.UpdatePassengerStatus(ctx, rider("u1"), ride.ID, p1, domain.PassengerStatusPickedUp)
	require.ErrorIs(t, err, domain.ErrUnauthorized, "passengers cannot board themselves")

	_, err = f.svc.UpdatePassengerStatus(ctx, driver, ride.ID, "ghost", domain.PassengerStatusPickedUp)
	require.ErrorIs(t, err, domain.ErrNotFound)

	_, err = f.svc.UpdatePassengerStatus(ctx, driver, ride.ID, p1, "floating")
	require.ErrorIs(t, err, domain.ErrValidation)
}

func TestUpdatePassengerStatus_SelfCancelRecomputesTotal(t *testing.T) {
	f := newFixture(t)
	ride := f.createRide(t, "sedan-1", "u1", "u2")
	keep := ride.Passengers[0].Fare.Total

	got, err := f.svc.UpdatePassengerStatus(context.Background(), rider("u2"), ride.ID, ride.Passengers[1].ID, domain.PassengerStatusCancelled)

	require.NoError(t, err)
	assert.Equal(t, keep, got.TotalFare)
	assert.Equal(t, domain.PassengerStatusCancelled, got.Passengers[1].Status)
	assert.Len(t, got.Passengers, 2, "cancelled records are kept")

	// the cancelled record still holds its seat
	_, err = f.svc.JoinRide(context.Background(), rider("u2"), JoinRideRequest{RideID: ride.ID, Pickup: origin, Dropoff: near})
	assert.ErrorIs(t, err, domain.ErrAlreadyExists)
}

func TestCancelRide(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ride := f.createRide(t, "sedan-1", "u1", "u2")

	_, err := f.svc.CancelRide(ctx, rider("u1"), ride.ID, "changed my mind")
	require.ErrorIs(t, err, domain.ErrUnauthorized, "only the creator, driver or an admin cancel")

	cancelled, err := f.svc.CancelRide(ctx, driver, ride.ID, "flat tyre")
	require.NoError(t, err)
	assert.Equal(t, domain.RideStatusCancelled, cancelled.Status)
	require.NotNil(t, cancelled.Cancellation)
	assert.Equal(t, "flat tyre", cancelled.Cancellation.Reason)
	assert.Equal(t, testNow, cancelled.Cancellation.CancelledAt)

	_, err = f.svc.CancelRide(ctx, driver, ride.ID, "again")
	require.ErrorIs(t, err, domain.ErrIllegalTransition)
	assert.Equal(t, "flat tyre", f.stored(t, ride.ID).Cancellation.Reason)

	channels := f.notifier.channels(domain.EventRideCancelled)
	assert.ElementsMatch(t, []string{"ride:" + ride.ID, "user:driver-1", "user:u1", "user:u2"}, channels)
}

func TestCancelRide_InProgressIsIllegal(t *testing.T) {
	f := newFixture(t)
	ride := f.createRide(t, "sedan-1", "u1")
	f.advance(t, ride.ID, domain.RideStatusConfirmed, domain.RideStatusInProgress)

	_, err := f.svc.CancelRide(context.Background(), admin, ride.ID, "")

	require.ErrorIs(t, err, domain.ErrIllegalTransition)
	assert.Equal(t, domain.RideStatusInProgress, f.stored(t, ride.ID).Status)
}

func TestCancelRide_MarksRefundsForPaidPassengers(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ride := f.createRide(t, "sedan-1", "u1", "u2")

	_, err := f.svc.ProcessPayment(ctx, rider("u1"), ProcessPaymentRequest{
		RideID: ride.ID, PassengerID: ride.Passengers[0].ID, Method: domain.PaymentMethod{Type: domain.PaymentMethodCash},
	})
	require.NoError(t, err)

	cancelled, err := f.svc.CancelRide(ctx, driver, ride.ID, "")
	require.NoError(t, err)

	assert.Equal(t, domain.RefundStatusPending, cancelled.Passengers[0].RefundStatus)
	assert.Equal(t, domain.RefundStatusNone, cancelled.Passengers[1].RefundStatus)
}

func TestGetRide_ReadThroughCache(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ride := f.createRide(t, "sedan-1", "u1")

	first, err := f.svc.GetRide(ctx, ride.ID)
	require.NoError(t, err)
	second, err := f.svc.GetRide(ctx, ride.ID)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, f.cache.hits)

	f.advance(t, ride.ID, domain.RideStatusConfirmed)
	assert.Empty(t, f.cache.invalidated, "writes refresh the entry in place")

	fresh, err := f.svc.GetRide(ctx, ride.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.RideStatusConfirmed, fresh.Status)
	assert.Equal(t, 2, f.cache.hits)

	_, err = f.svc.GetRide(ctx, "ghost")
	require.ErrorIs(t, err, domain.ErrNotFound)
	_, err = f.svc.GetRide(ctx, "")
	require.ErrorIs(t, err, domain.ErrValidation)
}

// interleavedRides runs afterGet once, right after a ride is loaded and before it is returned.
type interleavedRides struct {
	repository.RideRepository
	once     sync.Once
	afterGet func()
}

func (r *interleavedRides) GetByID(ctx context.Context, id string) (*domain.Ride, error) {
	ride, err := r.RideRepository.GetByID(ctx, id)
	r.once.Do(r.afterGet)
	return ride, err
}

func TestGetRide_StaleReadDoesNotOverwriteNewerWrite(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ride := f.createRide(t, "sedan-1", "u1")

	cfg := f.cfg
	cfg.Rides = &interleavedRides{
		RideRepository: f.store.Rides(),
		afterGet: func() {
			f.advance(t, ride.ID, domain.RideStatusConfirmed)
		},
	}
	reader := NewRideService(cfg)

	loaded, err := reader.GetRide(ctx, ride.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.RideStatusPending, loaded.Status, "the read started before the write")

	cached, err := f.svc.GetRide(ctx, ride.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.RideStatusConfirmed, cached.Status)
	assert.Equal(t, 2, cached.Version)
}

func TestRateRide_RefreshesCachedRide(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ride := f.createRide(t, "sedan-1", "u1")
	f.advance(t, ride.ID, domain.RideStatusConfirmed, domain.RideStatusInProgress, domain.RideStatusCompleted)

	require.NoError(t, f.svc.RateRide(ctx, rider("u1"), RateRideRequest{RideID: ride.ID, TargetID: "driver-1", Value: 5}))

	cached, err := f.svc.GetRide(ctx, ride.ID)
	require.NoError(t, err)
	assert.Len(t, cached.Ratings, 1)
	assert.Equal(t, 1, f.cache.hits)
}

func TestListRides(t *testing.T) {
	f := newFixture(t)
	for i := 0; i < 3; i++ {
		f.createRide(t, "sedan-1", "u1")
	}

	all, err := f.svc.ListRides(context.Background(), 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	limited, err := f.svc.ListRides(context.Background(), 2)
	require.NoError(t, err)
	assert.Len(t, limited, 2)
}

func TestSplitFare_IsAdvisory(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ride := f.createRide(t, "sedan-1", "u1")
	ride, err := f.svc.JoinRide(ctx, rider("u2"), JoinRideRequest{RideID: ride.ID, Pickup: origin, Dropoff: far})
	require.NoError(t, err)

	shares, err := f.svc.SplitFare(ctx, ride.ID)
	require.NoError(t, err)
	require.Len(t, shares, 2)

	var sum int64
	for _, s := range shares {
		sum += s.FareShare
	}
	assert.Equal(t, ride.TotalFare, sum)
	assert.Greater(t, shares[1].FareShare, shares[0].FareShare, "longer leg pays more")

	stored := f.stored(t, ride.ID)
	assert.Equal(t, ride.Version, stored.Version)
	assert.Equal(t, ride.Passengers[0].Fare.Total, stored.Passengers[0].Fare.Total)
}

func TestSplitFare_SkipsCancelledPassengers(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ride := f.createRide(t, "sedan-1", "u1", "u2")
	_, err := f.svc.UpdatePassengerStatus(ctx, rider("u1"), ride.ID, ride.Passengers[0].ID, domain.PassengerStatusCancelled)
	require.NoError(t, err)

	shares, err := f.svc.SplitFare(ctx, ride.ID)
	require.NoError(t, err)

	require.Len(t, shares, 1)
	assert.Equal(t, ride.Passengers[1].ID, shares[0].PassengerID)
	assert.Equal(t, ride.Passengers[1].Fare.Total, shares[0].FareShare)
	assert.Equal(t, 100.0, shares[0].Percentage)
}

func TestSplitFare_NoPassengers(t *testing.T) {
	f := newFixture(t)
	ride := f.createRide(t, "sedan-1")

	shares, err := f.svc.SplitFare(context.Background(), ride.ID)

	require.NoError(t, err)
	assert.Empty(t, shares)
}

func TestNotifierFailureDoesNotFailOperation(t *testing.T) {
	f := newFixture(t)
	f.notifier.err = errors.New("broker down")

	ride := f.createRide(t, "sedan-1", "u1")
	_, err := f.svc.UpdateRideStatus(context.Background(), driver, ride.ID, domain.RideStatusConfirmed)

	require.NoError(t, err)
	assert.Equal(t, domain.RideStatusConfirmed, f.stored(t, ride.ID).Status)
	assert.NotEmpty(t, f.notifier.channels(domain.EventRideStatusChanged))
}

func TestNotificationsSurviveCancelledContext(t *testing.T) {
	f := newFixture(t)
	ride := f.createRide(t, "sedan-1", "u1")

	var seen []error
	var mu sync.Mutex
	f.svc.notifications = NewNotificationService(notifierFunc(func(ctx context.Context, _ string, _ domain.Event) error {
		mu.Lock()
		defer mu.Unlock()
		seen = append(seen, ctx.Err())
		return nil
	}), f.svc.logger)

	ctx, cancel := context.WithCancel(context.Background())
	_, err := f.svc.UpdateRideStatus(ctx, driver, ride.ID, domain.RideStatusConfirmed)
	require.NoError(t, err)
	cancel()
	f.svc.notifications.NotifyRide(ctx, ride, domain.Event{Type: domain.EventRideStatusChanged, RideID: ride.ID})

	require.NotEmpty(t, seen)
	for _, err := range seen {
		assert.NoError(t, err)
	}
}

type notifierFunc func(ctx context.Context, channel string, event domain.Event) error

func (f notifierFunc) Publish(ctx context.Context, channel string, event domain.Event) error {
	return f(ctx, channel, event)
}
