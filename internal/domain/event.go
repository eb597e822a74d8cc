package domain

import "time"

// EventType names a ride lifecycle event.
type EventType string

const (
	EventRideCreated       EventType = "ride.created"
	EventPassengerJoined   EventType = "ride.passenger_joined"
	EventRideStatusChanged EventType = "ride.status_changed"
	EventPassengerStatus   EventType = "ride.passenger_status_changed"
	EventRideCancelled     EventType = "ride.cancelled"
	EventPaymentProcessed  EventType = "ride.payment_processed"
	EventRatingAdded       EventType = "ride.rating_added"
)

// Event is published to every party affected by a committed ride change.
type Event struct {
	Type        EventType         `json:"type"`
	RideID      string            `json:"ride_id"`
	Status      RideStatus        `json:"status,omitempty"`
	PassengerID string            `json:"passenger_id,omitempty"`
	ActorID     string            `json:"actor_id,omitempty"`
	Data        map[string]string `json:"data,omitempty"`
	OccurredAt  time.Time         `json:"occurred_at"`
}

// RideChannel is the notification channel for everyone watching a ride.
func RideChannel(rideID string) string {
	return "ride:" + rideID
}

// UserChannel is the notification channel for one user.
func UserChannel(userID string) string {
	return "user:" + userID
}
