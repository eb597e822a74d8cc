package domain

import (
	"errors"
	"fmt"
)

// Error kinds. Every error returned by the engine wraps exactly one of these.
var (
	ErrValidation          = errors.New("validation error")
	ErrNotFound            = errors.New("not found")
	ErrUnauthorized        = errors.New("unauthorized")
	ErrCapacityExceeded    = errors.New("capacity exceeded")
	ErrAlreadyExists       = errors.New("already exists")
	ErrIllegalTransition   = errors.New("illegal transition")
	ErrVersionConflict     = errors.New("version conflict")
	ErrExternalUnavailable = errors.New("external dependency unavailable")
)

var (
	// ErrInvalidCoordinate is returned for out-of-range or non-finite coordinates.
	ErrInvalidCoordinate = fmt.Errorf("%w: invalid coordinate", ErrValidation)

	// ErrInvalidVehicleType is returned when no rate or capacity entry exists for a vehicle type.
	ErrInvalidVehicleType = fmt.Errorf("%w: invalid vehicle type", ErrValidation)

	// ErrInvalidRating is returned when a rating value is outside [1,5].
	ErrInvalidRating = fmt.Errorf("%w: rating must be between 1 and 5", ErrValidation)

	// ErrSelfRating is returned when a rater targets themselves.
	ErrSelfRating = fmt.Errorf("%w: cannot rate yourself", ErrValidation)

	// ErrRideNotFound is returned when no ride has the requested id.
	ErrRideNotFound = fmt.Errorf("%w: ride", ErrNotFound)

	// ErrVehicleNotFound is returned when the registry has no such vehicle.
	ErrVehicleNotFound = fmt.Errorf("%w: vehicle", ErrNotFound)

	// ErrPassengerNotFound is returned when a ride has no passenger with the requested id.
	ErrPassengerNotFound = fmt.Errorf("%w: passenger", ErrNotFound)

	// ErrDuplicateRating is returned when the (rater, ride, target) tuple was already rated.
	ErrDuplicateRating = fmt.Errorf("%w: rating already submitted", ErrAlreadyExists)
)

var kinds = []struct {
	err  error
	name string
}{
	{ErrValidation, "ValidationError"},
	{ErrNotFound, "NotFound"},
	{ErrUnauthorized, "Unauthorized"},
	{ErrCapacityExceeded, "CapacityExceeded"},
	{ErrAlreadyExists, "AlreadyExists"},
	{ErrIllegalTransition, "IllegalTransition"},
	{ErrVersionConflict, "VersionConflict"},
	{ErrExternalUnavailable, "ExternalUnavailable"},
}

// KindOf returns the stable kind name of err, or "Internal" when err wraps no known kind.
func KindOf(err error) string {
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.name
		}
	}
	return "Internal"
}

// TransitionError reports a state-machine violation.
type TransitionError struct {
	Current   string
	Attempted string
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("illegal transition: cannot %s from %s", e.Attempted, e.Current)
}

// Is makes errors.Is(err, ErrIllegalTransition) hold.
func (e *TransitionError) Is(target error) bool {
	return target == ErrIllegalTransition
}

// Unavailable wraps an infrastructure failure without exposing its details.
func Unavailable(op string, err error) error {
	if err == nil {
		return nil
	}
	return &unavailableError{op: op, cause: err}
}

type unavailableError struct {
	op    string
	cause error
}

func (e *unavailableError) Error() string {
	return fmt.Sprintf("%s: %s", e.op, ErrExternalUnavailable.Error())
}

func (e *unavailableError) Is(target error) bool {
	return target == ErrExternalUnavailable
}

func (e *unavailableError) Unwrap() error {
	return e.cause
}
