package config

import (
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"rideshare/internal/capacity"
	"rideshare/internal/domain"
	"rideshare/internal/fare"
)

// VehicleClass is the pricing and seating entry for one vehicle type.
type VehicleClass struct {
	Seats     int     `yaml:"seats" validate:"gt=0"`
	BaseFare  float64 `yaml:"base_fare" validate:"gte=0"`
	PerKmRate float64 `yaml:"per_km_rate" validate:"gte=0"`
}

// FleetVehicle is a vehicle preloaded into the in-memory registry.
type FleetVehicle struct {
	ID             string  `yaml:"id" validate:"required"`
	Type           string  `yaml:"type" validate:"required"`
	DriverID       string  `yaml:"driver_id" validate:"required"`
	Capacity       int     `yaml:"capacity" validate:"gte=0"`
	FareMultiplier float64 `yaml:"fare_multiplier" validate:"gte=0"`
	Status         string  `yaml:"status" validate:"omitempty,oneof=active inactive maintenance"`
}

// Tables holds the rate and capacity tables keyed by vehicle type, and an optional fleet.
type Tables struct {
	SplitPolicy string                  `yaml:"split_policy" validate:"omitempty,oneof=distance equal"`
	Vehicles    map[string]VehicleClass `yaml:"vehicles" validate:"required,min=1,dive,keys,required,endkeys"`
	Fleet       []FleetVehicle          `yaml:"fleet" validate:"dive"`
}

// DefaultTables is used when FARE_TABLES_FILE is unset.
func DefaultTables() *Tables {
	return &Tables{
		SplitPolicy: string(fare.PolicyDistance),
		Vehicles: map[string]VehicleClass{
			"bike":  {Seats: 1, BaseFare: 20, PerKmRate: 6},
			"auto":  {Seats: 3, BaseFare: 30, PerKmRate: 10},
			"sedan": {Seats: 4, BaseFare: 50, PerKmRate: 15},
			"suv":   {Seats: 6, BaseFare: 70, PerKmRate: 18},
			"van":   {Seats: 8, BaseFare: 90, PerKmRate: 20},
			"bus":   {Seats: 20, BaseFare: 150, PerKmRate: 25},
		},
	}
}

// LoadTables reads and validates the tables file at path. An empty path yields DefaultTables.
func LoadTables(path string) (*Tables, error) {
	if path == "" {
		return DefaultTables(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read tables file: %w", err)
	}
	return ParseTables(data)
}

// ParseTables decodes YAML tables and validates every vehicle class.
func ParseTables(data []byte) (*Tables, error) {
	var t Tables
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("parse tables: %w", err)
	}
	v := validator.New()
	if err := v.Struct(t); err != nil {
		return nil, fmt.Errorf("invalid tables: %w", err)
	}
	for name, class := range t.Vehicles {
		if err := v.Struct(class); err != nil {
			return nil, fmt.Errorf("invalid vehicle class %q: %w", name, err)
		}
	}
	for _, fv := range t.Fleet {
		if _, ok := t.Vehicles[fv.Type]; !ok {
			return nil, fmt.Errorf("invalid fleet vehicle %q: unknown type %q", fv.ID, fv.Type)
		}
	}
	if t.SplitPolicy == "" {
		t.SplitPolicy = string(fare.PolicyDistance)
	}
	return &t, nil
}

// RateTable projects the tables onto the fare calculator's rate table.
func (t *Tables) RateTable() fare.RateTable {
	rates := make(fare.RateTable, len(t.Vehicles))
	for name, class := range t.Vehicles {
		rates[name] = fare.Rate{BaseFare: class.BaseFare, PerKmRate: class.PerKmRate}
	}
	return rates
}

// CapacityTable projects the tables onto the capacity policy's seat table.
func (t *Tables) CapacityTable() capacity.Table {
	seats := make(capacity.Table, len(t.Vehicles))
	for name, class := range t.Vehicles {
		seats[name] = class.Seats
	}
	return seats
}

// FleetVehicles converts the fleet into registry vehicles. Status defaults to active.
func (t *Tables) FleetVehicles() []domain.Vehicle {
	vehicles := make([]domain.Vehicle, 0, len(t.Fleet))
	for _, fv := range t.Fleet {
		status := domain.VehicleStatus(fv.Status)
		if status == "" {
			status = domain.VehicleStatusActive
		}
		vehicles = append(vehicles, domain.Vehicle{
			ID:             fv.ID,
			Type:           fv.Type,
			Capacity:       fv.Capacity,
			FareMultiplier: fv.FareMultiplier,
			Status:         status,
			DriverID:       fv.DriverID,
		})
	}
	return vehicles
}
