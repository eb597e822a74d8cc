package domain

import "time"

// Rating is a single score left by one ride participant for another.
type Rating struct {
	ID        string    `json:"id"`
	RaterID   string    `json:"rater_id"`
	TargetID  string    `json:"target_id"`
	RideID    string    `json:"ride_id"`
	Value     int       `json:"value"`
	Comment   string    `json:"comment,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
