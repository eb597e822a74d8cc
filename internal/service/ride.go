package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"rideshare/internal/capacity"
	"rideshare/internal/domain"
	"rideshare/internal/fare"
	"rideshare/internal/geo"
	"rideshare/internal/redis"
	"rideshare/internal/repository"
)

const defaultListLimit = 50

// RideServiceConfig carries the collaborators of a RideService.
type RideServiceConfig struct {
	Rides         repository.RideRepository
	Vehicles      repository.VehicleRepository
	Ratings       repository.RatingRepository
	Transactor    repository.Transactor
	Fares         *fare.Calculator
	Capacity      *capacity.Policy
	SplitPolicy   fare.Policy
	Cache         redis.RideCacheInterface // optional
	Notifications *NotificationService     // optional
	Retry         RetryPolicy
	Currency      string
	ListLimit     int
	Logger        *zap.Logger
	Clock         func() time.Time // optional
}

// RideService orchestrates the ride lifecycle: creation, joining, status changes,
// cancellation, payment, fare splitting and rating.
type RideService struct {
	rides         repository.RideRepository
	vehicles      repository.VehicleRepository
	ratings       repository.RatingRepository
	tx            repository.Transactor
	fares         *fare.Calculator
	capacity      *capacity.Policy
	splitPolicy   fare.Policy
	cache         redis.RideCacheInterface
	notifications *NotificationService
	retry         RetryPolicy
	currency      string
	listLimit     int
	logger        *zap.Logger
	now           func() time.Time
}

// NewRideService creates a new RideService.
func NewRideService(cfg RideServiceConfig) *RideService {
	s := &RideService{
		rides:         cfg.Rides,
		vehicles:      cfg.Vehicles,
		ratings:       cfg.Ratings,
		tx:            cfg.Transactor,
		fares:         cfg.Fares,
		capacity:      cfg.Capacity,
		splitPolicy:   cfg.SplitPolicy,
		cache:         cfg.Cache,
		notifications: cfg.Notifications,
		retry:         cfg.Retry,
		currency:      cfg.Currency,
		listLimit:     cfg.ListLimit,
		logger:        cfg.Logger,
		now:           cfg.Clock,
	}
	if s.retry.MaxAttempts == 0 {
		s.retry = DefaultRetryPolicy()
	}
	if s.splitPolicy == "" {
		s.splitPolicy = fare.PolicyDistance
	}
	if s.listLimit <= 0 {
		s.listLimit = defaultListLimit
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// PassengerInput describes one rider of a new ride or a join request.
type PassengerInput struct {
	UserID  string
	Pickup  domain.Location
	Dropoff domain.Location
}

// CreateRideRequest contains the parameters for creating a ride.
type CreateRideRequest struct {
	Type          domain.RideType // Optional: defaults to on_demand
	VehicleID     string
	Passengers    []PassengerInput
	ScheduledTime *time.Time
	GroupID       string
}

// CreateRide validates the vehicle and capacity, prices every passenger, and persists a pending ride.
func (s *RideService) CreateRide(ctx context.Context, actor domain.Actor, req CreateRideRequest) (*domain.Ride, error) {
	if actor.ID == "" {
		return nil, ErrActorRequired
	}
	if req.Type == "" {
		req.Type = domain.RideTypeOnDemand
	}
	now := s.now()
	if err := s.validateCreateRequest(req, now); err != nil {
		return nil, err
	}

	vehicle, err := s.activeVehicle(ctx, req.VehicleID)
	if err != nil {
		return nil, err
	}
	if err := s.capacity.CheckInitial(len(req.Passengers), *vehicle); err != nil {
		return nil, err
	}

	ride := &domain.Ride{
		ID:            uuid.New().String(),
		Type:          req.Type,
		Status:        domain.RideStatusPending,
		VehicleID:     vehicle.ID,
		VehicleType:   vehicle.Type,
		DriverID:      vehicle.DriverID,
		CreatedBy:     actor.ID,
		GroupID:       req.GroupID,
		Passengers:    make([]domain.Passenger, 0, len(req.Passengers)),
		ScheduledTime: req.ScheduledTime,
		Currency:      s.currency,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	for _, in := range req.Passengers {
		p, err := s.newPassenger(in, vehicle, now)
		if err != nil {
			return nil, err
		}
		ride.Passengers = append(ride.Passengers, p)
	}
	ride.RecomputeTotalFare()

	if err := s.rides.Create(ctx, ride); err != nil {
		return nil, err
	}

	s.logger.Info("ride created",
		zap.String("ride_id", ride.ID),
		zap.String("vehicle_id", ride.VehicleID),
		zap.Int("passengers", len(ride.Passengers)),
		zap.Int64("total_fare", ride.TotalFare),
	)
	s.notifications.NotifyRide(ctx, ride, s.event(domain.EventRideCreated, ride, actor.ID))
	return ride, nil
}

// JoinRideRequest contains the parameters for joining a ride.
type JoinRideRequest struct {
	RideID  string
	UserID  string // Optional: defaults to the actor
	Pickup  domain.Location
	Dropoff domain.Location
}

// JoinRide appends a passenger if capacity allows. The capacity check and the append commit together.
func (s *RideService) JoinRide(ctx context.Context, actor domain.Actor, req JoinRideRequest) (*domain.Ride, error) {
	if req.RideID == "" {
		return nil, ErrInvalidRideID
	}
	if req.UserID == "" {
		req.UserID = actor.ID
	}
	if err := authorizeSelf(actor, req.UserID); err != nil {
		return nil, err
	}
	if err := validateLeg(req.Pickup, req.Dropoff); err != nil {
		return nil, err
	}

	var joined domain.Passenger
	ride, err := s.mutate(ctx, req.RideID, func(ride *domain.Ride, now time.Time) error {
		vehicle, err := s.vehicles.GetByID(ctx, ride.VehicleID)
		if err != nil {
			return err
		}
		if err := s.capacity.CheckJoin(ride, req.UserID, *vehicle); err != nil {
			return err
		}
		p, err := s.newPassenger(PassengerInput{UserID: req.UserID, Pickup: req.Pickup, Dropoff: req.Dropoff}, vehicle, now)
		if err != nil {
			return err
		}
		ride.Passengers = append(ride.Passengers, p)
		ride.RecomputeTotalFare()
		ride.UpdatedAt = now
		joined = p
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("passenger joined",
		zap.String("ride_id", ride.ID),
		zap.String("passenger_id", joined.ID),
		zap.Int64("fare", joined.Fare.Total),
	)
	event := s.event(domain.EventPassengerJoined, ride, actor.ID)
	event.PassengerID = joined.ID
	s.notifications.NotifyRide(ctx, ride, event)
	return ride, nil
}

// UpdateRideStatus moves the ride to newStatus. Cancelling goes through CancelRide.
func (s *RideService) UpdateRideStatus(ctx context.Context, actor domain.Actor, rideID string, newStatus domain.RideStatus) (*domain.Ride, error) {
	if rideID == "" {
		return nil, ErrInvalidRideID
	}
	if newStatus == domain.RideStatusCancelled {
		return s.CancelRide(ctx, actor, rideID, "")
	}
	if !knownRideStatus(newStatus) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, newStatus)
	}

	ride, err := s.mutate(ctx, rideID, func(ride *domain.Ride, now time.Time) error {
		if err := authorizeDriver(actor, ride); err != nil {
			return err
		}
		transition, ok := domain.RideTransitionTo(newStatus)
		if !ok {
			return &domain.TransitionError{Current: string(ride.Status), Attempted: string(newStatus)}
		}
		return domain.ApplyRideTransition(ride, transition, now)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("ride status changed", zap.String("ride_id", ride.ID), zap.String("status", string(ride.Status)))
	s.notifications.NotifyRide(ctx, ride, s.event(domain.EventRideStatusChanged, ride, actor.ID))
	return ride, nil
}

// UpdatePassengerStatus moves one passenger to newStatus. The ride's driver or an admin may
// pick up and drop off; a passenger may also cancel their own boarding.
func (s *RideService) UpdatePassengerStatus(ctx context.Context, actor domain.Actor, rideID, passengerID string, newStatus domain.PassengerStatus) (*domain.Ride, error) {
	if rideID == "" {
		return nil, ErrInvalidRideID
	}
	if passengerID == "" {
		return nil, ErrInvalidPassengerID
	}
	if !knownPassengerStatus(newStatus) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, newStatus)
	}

	ride, err := s.mutate(ctx, rideID, func(ride *domain.Ride, now time.Time) error {
		p, ok := ride.Passenger(passengerID)
		if !ok {
			return domain.ErrPassengerNotFound
		}
		transition, ok := domain.PassengerTransitionTo(newStatus)
		if !ok {
			return &domain.TransitionError{Current: string(p.Status), Attempted: string(newStatus)}
		}
		selfCancel := transition == domain.TransitionCancelBoarding && actor.ID != "" && actor.ID == p.UserID
		if !selfCancel {
			if err := authorizeDriver(actor, ride); err != nil {
				return err
			}
		}
		return domain.ApplyPassengerTransition(ride, passengerID, transition, now)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("passenger status changed",
		zap.String("ride_id", ride.ID),
		zap.String("passenger_id", passengerID),
		zap.String("status", string(newStatus)),
	)
	event := s.event(domain.EventPassengerStatus, ride, actor.ID)
	event.PassengerID = passengerID
	event.Data = map[string]string{"passenger_status": string(newStatus)}
	s.notifications.NotifyRide(ctx, ride, event)
	return ride, nil
}

// CancelRide cancels a pending or confirmed ride and marks refunds for paid passengers.
func (s *RideService) CancelRide(ctx context.Context, actor domain.Actor, rideID, reason string) (*domain.Ride, error) {
	if rideID == "" {
		return nil, ErrInvalidRideID
	}

	ride, err := s.mutate(ctx, rideID, func(ride *domain.Ride, now time.Time) error {
		if actor.ID == "" || (actor.ID != ride.CreatedBy && authorizeDriver(actor, ride) != nil) {
			return ErrNotPermitted
		}
		return domain.Cancel(ride, actor.ID, reason, now)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("ride cancelled", zap.String("ride_id", ride.ID), zap.String("actor_id", actor.ID), zap.String("reason", reason))
	event := s.event(domain.EventRideCancelled, ride, actor.ID)
	if reason != "" {
		event.Data = map[string]string{"reason": reason}
	}
	s.notifications.NotifyRide(ctx, ride, event)
	return ride, nil
}

// GetRide returns a ride, served from the read cache when possible.
func (s *RideService) GetRide(ctx context.Context, rideID string) (*domain.Ride, error) {
	if rideID == "" {
		return nil, ErrInvalidRideID
	}

	if s.cache != nil {
		cached, err := s.cache.GetRide(ctx, rideID)
		if err != nil {
			s.logger.Warn("ride cache read failed", zap.String("ride_id", rideID), zap.Error(err))
		}
		if cached != nil {
			return cached, nil
		}
	}

	ride, err := s.rides.GetByID(ctx, rideID)
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		if err := s.cache.SetRide(ctx, ride); err != nil {
			s.logger.Warn("ride cache write failed", zap.String("ride_id", rideID), zap.Error(err))
		}
	}
	return ride, nil
}

// ListRides returns the most recently created rides. limit <= 0 uses the configured default.
func (s *RideService) ListRides(ctx context.Context, limit int) ([]*domain.Ride, error) {
	if limit <= 0 || limit > s.listLimit {
		limit = s.listLimit
	}
	return s.rides.List(ctx, limit)
}

// SplitFare projects the current total over non-cancelled passengers. Stored fares are not changed.
func (s *RideService) SplitFare(ctx context.Context, rideID string) ([]fare.Share, error) {
	ride, err := s.GetRide(ctx, rideID)
	if err != nil {
		return nil, err
	}

	active := ride.ActivePassengers()
	if len(active) == 0 {
		return []fare.Share{}, nil
	}
	legs := make([]fare.Leg, len(active))
	for i, p := range active {
		legs[i] = fare.Leg{PassengerID: p.ID, DistanceKm: p.DistanceKm}
	}
	return fare.Split(s.splitPolicy, legs, ride.TotalFare)
}

// mutate runs fn as one versioned read-modify-write of a ride, retrying lost races.
func (s *RideService) mutate(ctx context.Context, rideID string, fn func(ride *domain.Ride, now time.Time) error) (*domain.Ride, error) {
	var out *domain.Ride
	err := s.retry.Do(ctx, func() error {
		ride, err := s.rides.GetByID(ctx, rideID)
		if err != nil {
			return err
		}
		expected := ride.Version
		if err := fn(ride, s.now()); err != nil {
			return err
		}
		if err := s.rides.Save(ctx, ride, expected); err != nil {
			return err
		}
		out = ride
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.refreshCache(ctx, out)
	return out, nil
}

// refreshCache writes the committed ride so a read that loaded an older version cannot
// overwrite it. The entry is dropped when the write fails.
func (s *RideService) refreshCache(ctx context.Context, ride *domain.Ride) {
	if s.cache == nil {
		return
	}
	err := s.cache.SetRide(ctx, ride)
	if err == nil {
		return
	}
	s.logger.Warn("ride cache write failed", zap.String("ride_id", ride.ID), zap.Error(err))
	if err := s.cache.InvalidateRide(ctx, ride.ID); err != nil {
		s.logger.Warn("ride cache invalidation failed", zap.String("ride_id", ride.ID), zap.Error(err))
	}
}

func (s *RideService) event(t domain.EventType, ride *domain.Ride, actorID string) domain.Event {
	return domain.Event{
		Type:       t,
		RideID:     ride.ID,
		Status:     ride.Status,
		ActorID:    actorID,
		OccurredAt: s.now(),
	}
}

func (s *RideService) activeVehicle(ctx context.Context, vehicleID string) (*domain.Vehicle, error) {
	if vehicleID == "" {
		return nil, ErrInvalidVehicleID
	}
	vehicle, err := s.vehicles.GetByID(ctx, vehicleID)
	if err != nil {
		return nil, err
	}
	if vehicle.Status != domain.VehicleStatusActive {
		return nil, ErrVehicleNotActive
	}
	return vehicle, nil
}

// newPassenger prices one leg on vehicle. The fare is fixed here and never recomputed.
func (s *RideService) newPassenger(in PassengerInput, vehicle *domain.Vehicle, now time.Time) (domain.Passenger, error) {
	distance, err := geo.Distance(geo.FromLocation(in.Pickup), geo.FromLocation(in.Dropoff))
	if err != nil {
		return domain.Passenger{}, err
	}
	quote, err := s.fares.Quote(vehicle.Type, distance, vehicle.Multiplier())
	if err != nil {
		return domain.Passenger{}, err
	}
	return domain.Passenger{
		ID:         uuid.New().String(),
		UserID:     in.UserID,
		Pickup:     in.Pickup,
		Dropoff:    in.Dropoff,
		DistanceKm: distance,
		Fare: domain.Fare{
			Base:     quote.Base,
			Distance: quote.Distance,
			Total:    quote.Total,
			Currency: s.currency,
		},
		Status:       domain.PassengerStatusWaiting,
		RefundStatus: domain.RefundStatusNone,
		JoinedAt:     now,
	}, nil
}

// validateCreateRequest validates the create ride request.
func (s *RideService) validateCreateRequest(req CreateRideRequest, now time.Time) error {
	if !req.Type.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidRideType, req.Type)
	}
	if req.VehicleID == "" {
		return ErrInvalidVehicleID
	}

	switch req.Type {
	case domain.RideTypeScheduled:
		if req.ScheduledTime == nil || !req.ScheduledTime.After(now) {
			return ErrScheduledTimeRequired
		}
	case domain.RideTypeGroup:
		if req.GroupID == "" {
			return ErrGroupIDRequired
		}
	}

	seen := make(map[string]bool, len(req.Passengers))
	for _, p := range req.Passengers {
		if err := validateLeg(p.Pickup, p.Dropoff); err != nil {
			return err
		}
		if p.UserID == "" {
			continue
		}
		if seen[p.UserID] {
			return fmt.Errorf("%w: %s", ErrDuplicatePassenger, p.UserID)
		}
		seen[p.UserID] = true
	}
	return nil
}

func validateLeg(pickup, dropoff domain.Location) error {
	if err := geo.FromLocation(pickup).Validate(); err != nil {
		return fmt.Errorf("pickup: %w", err)
	}
	if err := geo.FromLocation(dropoff).Validate(); err != nil {
		return fmt.Errorf("dropoff: %w", err)
	}
	return nil
}

func authorizeDriver(actor domain.Actor, ride *domain.Ride) error {
	if actor.IsAdmin() || (actor.ID != "" && actor.ID == ride.DriverID) {
		return nil
	}
	return ErrNotRideDriver
}

func authorizeSelf(actor domain.Actor, userID string) error {
	if actor.ID == "" {
		return ErrActorRequired
	}
	if userID == "" {
		return ErrInvalidUserID
	}
	if actor.ID != userID && !actor.IsAdmin() {
		return ErrNotPermitted
	}
	return nil
}

func knownRideStatus(s domain.RideStatus) bool {
	switch s {
	case domain.RideStatusPending, domain.RideStatusConfirmed, domain.RideStatusInProgress,
		domain.RideStatusCompleted, domain.RideStatusCancelled:
		return true
	}
	return false
}

func knownPassengerStatus(s domain.PassengerStatus) bool {
	switch s {
	case domain.PassengerStatusWaiting, domain.PassengerStatusPickedUp,
		domain.PassengerStatusDroppedOff, domain.PassengerStatusCancelled:
		return true
	}
	return false
}
