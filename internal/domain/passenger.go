package domain

import "time"

// PassengerStatus represents where a passenger is within a ride.
type PassengerStatus string

const (
	PassengerStatusWaiting    PassengerStatus = "waiting"
	PassengerStatusPickedUp   PassengerStatus = "picked-up"
	PassengerStatusDroppedOff PassengerStatus = "dropped-off"
	PassengerStatusCancelled  PassengerStatus = "cancelled"
)

// Fare is the amount owed by a single passenger. Amounts are whole currency units.
type Fare struct {
	Base          float64        `json:"base"`
	Distance      float64        `json:"distance"`
	Total         int64          `json:"total"`
	Currency      string         `json:"currency"`
	Paid          bool           `json:"paid"`
	PaymentMethod *PaymentMethod `json:"payment_method,omitempty"`
	PaymentID     string         `json:"payment_id,omitempty"`
	PaidAt        *time.Time     `json:"paid_at,omitempty"`
}

// Passenger is one rider's record within a ride. ID is generated and never positional.
type Passenger struct {
	ID              string          `json:"id"`
	UserID          string          `json:"user_id,omitempty"`
	Pickup          Location        `json:"pickup"`
	Dropoff         Location        `json:"dropoff"`
	DistanceKm      float64         `json:"distance_km"`
	EstimatedPickup *time.Time      `json:"estimated_pickup,omitempty"`
	ActualPickup    *time.Time      `json:"actual_pickup,omitempty"`
	ActualDropoff   *time.Time      `json:"actual_dropoff,omitempty"`
	Fare            Fare            `json:"fare"`
	Status          PassengerStatus `json:"status"`
	RefundStatus    RefundStatus    `json:"refund_status"`
	JoinedAt        time.Time       `json:"joined_at"`
}

func (p Passenger) clone() Passenger {
	p.EstimatedPickup = cloneTime(p.EstimatedPickup)
	p.ActualPickup = cloneTime(p.ActualPickup)
	p.ActualDropoff = cloneTime(p.ActualDropoff)
	p.Fare.PaidAt = cloneTime(p.Fare.PaidAt)
	if p.Fare.PaymentMethod != nil {
		m := p.Fare.PaymentMethod.clone()
		p.Fare.PaymentMethod = &m
	}
	return p
}

// RefundFor returns the refund owed when this passenger's trip is cancelled.
func (p Passenger) RefundFor() RefundStatus {
	if p.Fare.Paid {
		return RefundStatusPending
	}
	return RefundStatusNone
}
