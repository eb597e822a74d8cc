package domain

import "time"

// RideType represents how a ride was requested.
type RideType string

const (
	RideTypeOnDemand  RideType = "on_demand"
	RideTypeScheduled RideType = "scheduled"
	RideTypeGroup     RideType = "group"
)

// Valid reports whether t is a known ride type.
func (t RideType) Valid() bool {
	switch t {
	case RideTypeOnDemand, RideTypeScheduled, RideTypeGroup:
		return true
	}
	return false
}

// RideStatus represents the current status of a ride.
type RideStatus string

const (
	RideStatusPending    RideStatus = "pending"
	RideStatusConfirmed  RideStatus = "confirmed"
	RideStatusInProgress RideStatus = "in-progress"
	RideStatusCompleted  RideStatus = "completed"
	RideStatusCancelled  RideStatus = "cancelled"
)

// Terminal reports whether no further mutation is allowed in this status.
func (s RideStatus) Terminal() bool {
	return s == RideStatusCompleted || s == RideStatusCancelled
}

// RefundStatus tracks money owed back to a passenger after a cancellation.
type RefundStatus string

const (
	RefundStatusNone    RefundStatus = "none"
	RefundStatusPending RefundStatus = "pending"
)

// Location is a coordinate pair with an optional display address.
type Location struct {
	Lat     float64 `json:"lat"`
	Lng     float64 `json:"lng"`
	Address string  `json:"address,omitempty"`
}

// Cancellation records who cancelled a ride and why.
type Cancellation struct {
	Reason      string    `json:"reason"`
	ActorID     string    `json:"actor_id"`
	CancelledAt time.Time `json:"cancelled_at"`
}

// Ride is the shared-ride aggregate. Passengers are owned by the ride and kept in join order.
type Ride struct {
	ID            string        `json:"id"`
	Type          RideType      `json:"type"`
	Status        RideStatus    `json:"status"`
	VehicleID     string        `json:"vehicle_id"`
	VehicleType   string        `json:"vehicle_type"`
	DriverID      string        `json:"driver_id"`
	CreatedBy     string        `json:"created_by,omitempty"`
	GroupID       string        `json:"group_id,omitempty"`
	Passengers    []Passenger   `json:"passengers"`
	ScheduledTime *time.Time    `json:"scheduled_time,omitempty"`
	StartTime     *time.Time    `json:"start_time,omitempty"`
	EndTime       *time.Time    `json:"end_time,omitempty"`
	TotalFare     int64         `json:"total_fare"`
	Currency      string        `json:"currency"`
	Cancellation  *Cancellation `json:"cancellation,omitempty"`
	Ratings       []Rating      `json:"ratings,omitempty"`
	Version       int           `json:"version"`
	CreatedAt     time.Time     `json:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at"`
}

// Passenger finds a passenger record by its id.
func (r *Ride) Passenger(id string) (*Passenger, bool) {
	for i := range r.Passengers {
		if r.Passengers[i].ID == id {
			return &r.Passengers[i], true
		}
	}
	return nil, false
}

// HasUser reports whether userID holds any passenger record on the ride.
func (r *Ride) HasUser(userID string) bool {
	if userID == "" {
		return false
	}
	for _, p := range r.Passengers {
		if p.UserID == userID {
			return true
		}
	}
	return false
}

// Participated reports whether userID was the driver or one of the passengers.
func (r *Ride) Participated(userID string) bool {
	return userID != "" && (userID == r.DriverID || r.HasUser(userID))
}

// ActivePassengers returns the passengers that have not been cancelled, in join order.
func (r *Ride) ActivePassengers() []Passenger {
	active := make([]Passenger, 0, len(r.Passengers))
	for _, p := range r.Passengers {
		if p.Status != PassengerStatusCancelled {
			active = append(active, p)
		}
	}
	return active
}

// RecomputeTotalFare sets TotalFare to the sum of non-cancelled passenger fares.
func (r *Ride) RecomputeTotalFare() {
	var total int64
	for _, p := range r.ActivePassengers() {
		total += p.Fare.Total
	}
	r.TotalFare = total
}

// CompletionEligible reports whether every passenger of an in-progress ride reached a
// terminal sub-state. It is advisory only; completion stays an explicit transition.
func (r *Ride) CompletionEligible() bool {
	if r.Status != RideStatusInProgress || len(r.Passengers) == 0 {
		return false
	}
	for _, p := range r.Passengers {
		if p.Status != PassengerStatusDroppedOff && p.Status != PassengerStatusCancelled {
			return false
		}
	}
	return true
}

// HasRating reports whether the (rater, target) pair already rated this ride.
func (r *Ride) HasRating(raterID, targetID string) bool {
	for _, rt := range r.Ratings {
		if rt.RaterID == raterID && rt.TargetID == targetID {
			return true
		}
	}
	return false
}

// Clone returns a deep copy so callers can mutate without aliasing stored state.
func (r *Ride) Clone() *Ride {
	c := *r
	c.Passengers = make([]Passenger, len(r.Passengers))
	for i, p := range r.Passengers {
		c.Passengers[i] = p.clone()
	}
	c.Ratings = append([]Rating(nil), r.Ratings...)
	c.ScheduledTime = cloneTime(r.ScheduledTime)
	c.StartTime = cloneTime(r.StartTime)
	c.EndTime = cloneTime(r.EndTime)
	if r.Cancellation != nil {
		cancellation := *r.Cancellation
		c.Cancellation = &cancellation
	}
	return &c
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
