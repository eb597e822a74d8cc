package service

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"rideshare/internal/domain"
	"rideshare/internal/rating"
	"rideshare/internal/repository"
)

// RateRideRequest contains the parameters for rating a ride participant.
type RateRideRequest struct {
	RideID   string
	RaterID  string // Optional: defaults to the actor
	TargetID string
	Value    int
	Comment  string
}

// RateRide records a rating on a completed ride and folds it into the target's aggregate,
// and into the vehicle's aggregate when the target is the driver. All writes commit together.
func (s *RideService) RateRide(ctx context.Context, actor domain.Actor, req RateRideRequest) error {
	if req.RideID == "" {
		return ErrInvalidRideID
	}
	if req.RaterID == "" {
		req.RaterID = actor.ID
	}
	if err := authorizeSelf(actor, req.RaterID); err != nil {
		return err
	}
	if req.TargetID == "" {
		return ErrInvalidUserID
	}
	if err := rating.ValidateValue(req.Value); err != nil {
		return err
	}
	if req.RaterID == req.TargetID {
		return domain.ErrSelfRating
	}

	var rideAfter *domain.Ride
	err := s.retry.Do(ctx, func() error {
		return s.tx.RunInTx(ctx, func(ctx context.Context, repos repository.Repos) error {
			ride, err := repos.Rides.GetByID(ctx, req.RideID)
			if err != nil {
				return err
			}
			if err := rating.CheckEligible(ride, req.RaterID, req.TargetID); err != nil {
				return err
			}

			now := s.now()
			expected := ride.Version
			ride.Ratings = append(ride.Ratings, domain.Rating{
				ID:        uuid.New().String(),
				RaterID:   req.RaterID,
				TargetID:  req.TargetID,
				RideID:    ride.ID,
				Value:     req.Value,
				Comment:   req.Comment,
				CreatedAt: now,
			})
			ride.UpdatedAt = now
			if err := repos.Rides.Save(ctx, ride, expected); err != nil {
				return err
			}

			for _, subject := range rating.Subjects(ride, req.TargetID) {
				if err := applyRating(ctx, repos.Ratings, subject, req.Value); err != nil {
					return err
				}
			}
			rideAfter = ride
			return nil
		})
	})
	if err != nil {
		if errors.Is(err, domain.ErrVersionConflict) {
			s.logger.Warn("rating gave up after retries", zap.String("ride_id", req.RideID), zap.Error(err))
		}
		return err
	}
	s.refreshCache(ctx, rideAfter)

	s.logger.Info("rating added",
		zap.String("ride_id", req.RideID),
		zap.String("target_id", req.TargetID),
		zap.Int("value", req.Value),
	)
	event := s.event(domain.EventRatingAdded, rideAfter, actor.ID)
	event.Data = map[string]string{"target_id": req.TargetID}
	s.notifications.NotifyUsers(ctx, req.RideID, event, req.TargetID)
	return nil
}

func applyRating(ctx context.Context, ratings repository.RatingRepository, subject domain.Subject, value int) error {
	agg, err := ratings.GetAggregate(ctx, subject)
	if err != nil {
		return err
	}
	next, err := rating.Apply(agg, value)
	if err != nil {
		return err
	}
	return ratings.SaveAggregate(ctx, &next, agg.Version)
}

// GetRating returns the rating aggregate of a user or vehicle.
func (s *RideService) GetRating(ctx context.Context, subject domain.Subject) (domain.RatingAggregate, error) {
	if subject.ID == "" {
		return domain.RatingAggregate{}, ErrInvalidUserID
	}
	return s.ratings.GetAggregate(ctx, subject)
}
