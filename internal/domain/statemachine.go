package domain

import "time"

// RideTransition names a ride state change.
type RideTransition string

const (
	TransitionConfirm  RideTransition = "confirm"
	TransitionStart    RideTransition = "start"
	TransitionComplete RideTransition = "complete"
	TransitionCancel   RideTransition = "cancel"
)

// PassengerTransition names a passenger state change.
type PassengerTransition string

const (
	TransitionPickup         PassengerTransition = "pickup"
	TransitionDropoff        PassengerTransition = "dropoff"
	TransitionCancelBoarding PassengerTransition = "cancel"
)

type rideEdge struct {
	from []RideStatus
	to   RideStatus
}

// rideTransitions is the ride state diagram as code.
var rideTransitions = map[RideTransition]rideEdge{
	TransitionConfirm:  {from: []RideStatus{RideStatusPending}, to: RideStatusConfirmed},
	TransitionStart:    {from: []RideStatus{RideStatusConfirmed}, to: RideStatusInProgress},
	TransitionComplete: {from: []RideStatus{RideStatusInProgress}, to: RideStatusCompleted},
	TransitionCancel:   {from: []RideStatus{RideStatusPending, RideStatusConfirmed}, to: RideStatusCancelled},
}

type passengerEdge struct {
	from []PassengerStatus
	to   PassengerStatus
	// ride statuses in which the edge may fire
	during []RideStatus
}

var passengerTransitions = map[PassengerTransition]passengerEdge{
	TransitionPickup: {
		from:   []PassengerStatus{PassengerStatusWaiting},
		to:     PassengerStatusPickedUp,
		during: []RideStatus{RideStatusInProgress},
	},
	TransitionDropoff: {
		from:   []PassengerStatus{PassengerStatusPickedUp},
		to:     PassengerStatusDroppedOff,
		during: []RideStatus{RideStatusInProgress},
	},
	TransitionCancelBoarding: {
		from:   []PassengerStatus{PassengerStatusWaiting, PassengerStatusPickedUp},
		to:     PassengerStatusCancelled,
		during: []RideStatus{RideStatusPending, RideStatusConfirmed, RideStatusInProgress},
	},
}

// RideTransitionTo returns the transition that leads to target.
func RideTransitionTo(target RideStatus) (RideTransition, bool) {
	for t, e := range rideTransitions {
		if e.to == target {
			return t, true
		}
	}
	return "", false
}

// PassengerTransitionTo returns the transition that leads to target.
func PassengerTransitionTo(target PassengerStatus) (PassengerTransition, bool) {
	for t, e := range passengerTransitions {
		if e.to == target {
			return t, true
		}
	}
	return "", false
}

// CanTransition reports whether a ride in status from may move to status to.
func CanTransition(from, to RideStatus) bool {
	t, ok := RideTransitionTo(to)
	if !ok {
		return false
	}
	return contains(rideTransitions[t].from, from)
}

// ApplyRideTransition moves r along t. On failure r is left untouched.
// Cancellation metadata is recorded by Cancel, not here.
func ApplyRideTransition(r *Ride, t RideTransition, now time.Time) error {
	if t == TransitionCancel {
		return Cancel(r, "", "", now)
	}
	edge, ok := rideTransitions[t]
	if !ok || !contains(edge.from, r.Status) {
		return &TransitionError{Current: string(r.Status), Attempted: string(t)}
	}

	r.Status = edge.to
	switch t {
	case TransitionStart:
		r.StartTime = &now
	case TransitionComplete:
		r.EndTime = &now
	}
	r.UpdatedAt = now
	return nil
}

// Cancel moves r to cancelled, records who did it, and marks refunds for paid passengers.
func Cancel(r *Ride, actorID, reason string, now time.Time) error {
	edge := rideTransitions[TransitionCancel]
	if !contains(edge.from, r.Status) {
		return &TransitionError{Current: string(r.Status), Attempted: string(TransitionCancel)}
	}

	r.Status = edge.to
	r.Cancellation = &Cancellation{Reason: reason, ActorID: actorID, CancelledAt: now}
	for i := range r.Passengers {
		r.Passengers[i].RefundStatus = r.Passengers[i].RefundFor()
	}
	r.UpdatedAt = now
	return nil
}

// ApplyPassengerTransition moves one passenger along t, subject to the ride status.
// Cancelling a passenger recomputes the ride total. On failure r is left untouched.
func ApplyPassengerTransition(r *Ride, passengerID string, t PassengerTransition, now time.Time) error {
	p, ok := r.Passenger(passengerID)
	if !ok {
		return ErrPassengerNotFound
	}
	edge, ok := passengerTransitions[t]
	if !ok {
		return &TransitionError{Current: string(p.Status), Attempted: string(t)}
	}
	if !contains(edge.during, r.Status) {
		return &TransitionError{Current: "ride " + string(r.Status), Attempted: string(t)}
	}
	if !contains(edge.from, p.Status) {
		return &TransitionError{Current: string(p.Status), Attempted: string(t)}
	}

	p.Status = edge.to
	switch t {
	case TransitionPickup:
		p.ActualPickup = &now
	case TransitionDropoff:
		p.ActualDropoff = &now
	case TransitionCancelBoarding:
		p.RefundStatus = p.RefundFor()
		r.RecomputeTotalFare()
	}
	r.UpdatedAt = now
	return nil
}

func contains[T comparable](list []T, v T) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}
