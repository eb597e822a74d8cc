package domain

// SubjectKind says which aggregate a rating applies to.
type SubjectKind string

const (
	SubjectUser    SubjectKind = "user"
	SubjectVehicle SubjectKind = "vehicle"
)

// Subject identifies a rated user or vehicle.
type Subject struct {
	Kind SubjectKind `json:"kind"`
	ID   string      `json:"id"`
}

// RatingAggregate is the running average stored on a rated subject.
type RatingAggregate struct {
	Subject Subject `json:"subject"`
	Average float64 `json:"average"`
	Count   int     `json:"count"`
	Version int     `json:"version"`
}

// Role is the resolved role of the caller.
type Role string

const (
	RolePassenger Role = "passenger"
	RoleDriver    Role = "driver"
	RoleAdmin     Role = "admin"
)

// Actor is the already-authenticated caller of an engine operation.
type Actor struct {
	ID   string
	Role Role
}

// IsAdmin reports whether the actor has the admin role.
func (a Actor) IsAdmin() bool {
	return a.Role == RoleAdmin
}
