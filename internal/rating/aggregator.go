// Package rating maintains running rating averages.
package rating

import (
	"fmt"

	"rideshare/internal/domain"
)

const (
	MinValue = 1
	MaxValue = 5
)

// ValidateValue rejects values outside [MinValue, MaxValue].
func ValidateValue(value int) error {
	if value < MinValue || value > MaxValue {
		return fmt.Errorf("%w: got %d", domain.ErrInvalidRating, value)
	}
	return nil
}

// Apply folds value into agg and returns the updated aggregate. agg is not modified.
func Apply(agg domain.RatingAggregate, value int) (domain.RatingAggregate, error) {
	if err := ValidateValue(value); err != nil {
		return agg, err
	}
	count := agg.Count + 1
	agg.Average = (agg.Average*float64(agg.Count) + float64(value)) / float64(count)
	agg.Count = count
	return agg, nil
}

// Subjects returns the aggregates a rating of targetID on ride r updates: the target user,
// and the ride's vehicle when the target is the driver.
func Subjects(r *domain.Ride, targetID string) []domain.Subject {
	subjects := []domain.Subject{{Kind: domain.SubjectUser, ID: targetID}}
	if targetID == r.DriverID && r.VehicleID != "" {
		subjects = append(subjects, domain.Subject{Kind: domain.SubjectVehicle, ID: r.VehicleID})
	}
	return subjects
}

// CheckEligible validates that raterID may rate targetID on ride r.
func CheckEligible(r *domain.Ride, raterID, targetID string) error {
	if r.Status != domain.RideStatusCompleted {
		return &domain.TransitionError{Current: string(r.Status), Attempted: "rate"}
	}
	if raterID == targetID {
		return domain.ErrSelfRating
	}
	if !r.Participated(raterID) {
		return fmt.Errorf("%w: %s did not take part in ride %s", domain.ErrUnauthorized, raterID, r.ID)
	}
	if !r.Participated(targetID) {
		return fmt.Errorf("%w: %s did not take part in ride %s", domain.ErrValidation, targetID, r.ID)
	}
	if r.HasRating(raterID, targetID) {
		return domain.ErrDuplicateRating
	}
	return nil
}
