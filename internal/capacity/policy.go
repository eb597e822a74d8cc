// Package capacity decides how many passengers a vehicle may carry and whether a user may join a ride.
package capacity

import (
	"fmt"

	"rideshare/internal/domain"
)

// Table maps a vehicle type to its default seat count.
type Table map[string]int

// DefaultTable is used when no tables file is configured.
func DefaultTable() Table {
	return Table{
		"bike":  1,
		"auto":  3,
		"sedan": 4,
		"suv":   6,
		"van":   8,
		"bus":   20,
	}
}

// Policy is the single place capacity limits are evaluated.
type Policy struct {
	table Table
}

// NewPolicy creates a Policy over table.
func NewPolicy(table Table) *Policy {
	return &Policy{table: table}
}

// CapacityFor returns the vehicle's explicit capacity override, or its type default.
func (p *Policy) CapacityFor(v domain.Vehicle) (int, error) {
	if v.Capacity > 0 {
		return v.Capacity, nil
	}
	return p.CapacityForType(v.Type)
}

// CapacityForType returns the configured seat count for vehicleType.
func (p *Policy) CapacityForType(vehicleType string) (int, error) {
	seats, ok := p.table[vehicleType]
	if !ok {
		return 0, fmt.Errorf("%w: %q", domain.ErrInvalidVehicleType, vehicleType)
	}
	return seats, nil
}

// CheckJoin returns nil when userID may be appended to ride on vehicle v.
// Every passenger record counts toward capacity, cancelled ones included.
func (p *Policy) CheckJoin(ride *domain.Ride, userID string, v domain.Vehicle) error {
	if ride.Status != domain.RideStatusPending && ride.Status != domain.RideStatusConfirmed {
		return &domain.TransitionError{Current: string(ride.Status), Attempted: "join"}
	}
	if ride.HasUser(userID) {
		return fmt.Errorf("%w: user %s already on ride %s", domain.ErrAlreadyExists, userID, ride.ID)
	}
	seats, err := p.CapacityFor(v)
	if err != nil {
		return err
	}
	if len(ride.Passengers) >= seats {
		return fmt.Errorf("%w: ride %s is full (%d seats)", domain.ErrCapacityExceeded, ride.ID, seats)
	}
	return nil
}

// CanJoin is CheckJoin as a predicate.
func (p *Policy) CanJoin(ride *domain.Ride, userID string, v domain.Vehicle) bool {
	return p.CheckJoin(ride, userID, v) == nil
}

// CheckInitial validates the passenger count of a ride being created.
func (p *Policy) CheckInitial(count int, v domain.Vehicle) error {
	seats, err := p.CapacityFor(v)
	if err != nil {
		return err
	}
	if count > seats {
		return fmt.Errorf("%w: %d passengers exceed %d seats", domain.ErrCapacityExceeded, count, seats)
	}
	return nil
}
