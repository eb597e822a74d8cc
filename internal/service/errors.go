package service

import (
	"fmt"

	"rideshare/internal/domain"
)

var (
	// ErrInvalidRideID is returned when ride ID is empty.
	ErrInvalidRideID = fmt.Errorf("%w: invalid ride id", domain.ErrValidation)

	// ErrInvalidUserID is returned when a user ID is empty.
	ErrInvalidUserID = fmt.Errorf("%w: invalid user id", domain.ErrValidation)

	// ErrInvalidVehicleID is returned when vehicle ID is empty.
	ErrInvalidVehicleID = fmt.Errorf("%w: invalid vehicle id", domain.ErrValidation)

	// ErrInvalidPassengerID is returned when passenger ID is empty.
	ErrInvalidPassengerID = fmt.Errorf("%w: invalid passenger id", domain.ErrValidation)

	// ErrInvalidRideType is returned for an unknown ride type.
	ErrInvalidRideType = fmt.Errorf("%w: invalid ride type", domain.ErrValidation)

	// ErrInvalidStatus is returned for a status name the state machine does not know.
	ErrInvalidStatus = fmt.Errorf("%w: invalid status", domain.ErrValidation)

	// ErrScheduledTimeRequired is returned when a scheduled ride has no future start time.
	ErrScheduledTimeRequired = fmt.Errorf("%w: scheduled rides need a future scheduled time", domain.ErrValidation)

	// ErrGroupIDRequired is returned when a group ride has no group.
	ErrGroupIDRequired = fmt.Errorf("%w: group rides need a group id", domain.ErrValidation)

	// ErrDuplicatePassenger is returned when the same user appears twice in a new ride.
	ErrDuplicatePassenger = fmt.Errorf("%w: user listed more than once", domain.ErrValidation)

	// ErrVehicleNotActive is returned when rides are requested on an inactive vehicle.
	ErrVehicleNotActive = fmt.Errorf("%w: vehicle is not active", domain.ErrValidation)

	// ErrActorRequired is returned when an operation is invoked without an actor.
	ErrActorRequired = fmt.Errorf("%w: actor required", domain.ErrUnauthorized)

	// ErrNotRideDriver is returned when a driver-only operation is attempted by someone else.
	ErrNotRideDriver = fmt.Errorf("%w: only the ride's driver or an admin may do this", domain.ErrUnauthorized)

	// ErrNotPermitted is returned when the actor may not act on behalf of another user.
	ErrNotPermitted = fmt.Errorf("%w: actor may not act for this user", domain.ErrUnauthorized)

	// ErrAlreadyPaid is returned when a passenger fare has been paid before.
	ErrAlreadyPaid = fmt.Errorf("%w: fare already paid", domain.ErrAlreadyExists)
)
