package domain

// VehicleStatus represents whether a vehicle may be assigned rides.
type VehicleStatus string

const (
	VehicleStatusActive      VehicleStatus = "active"
	VehicleStatusInactive    VehicleStatus = "inactive"
	VehicleStatusMaintenance VehicleStatus = "maintenance"
)

// Vehicle is the registry view of a vehicle.
type Vehicle struct {
	ID             string        `json:"id"`
	Type           string        `json:"type"`
	Capacity       int           `json:"capacity"`        // explicit override; 0 means use the type default
	FareMultiplier float64       `json:"fare_multiplier"` // 1.0 when unset
	Status         VehicleStatus `json:"status"`
	DriverID       string        `json:"driver_id"`
}

// Multiplier returns the fare multiplier, defaulting to 1.0.
func (v Vehicle) Multiplier() float64 {
	if v.FareMultiplier <= 0 {
		return 1.0
	}
	return v.FareMultiplier
}
