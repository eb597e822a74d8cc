// Package fare prices individual passenger legs and splits a pooled fare between passengers.
package fare

import (
	"fmt"
	"math"

	"rideshare/internal/domain"
)

// Rate is the pricing entry for one vehicle type.
type Rate struct {
	BaseFare  float64
	PerKmRate float64
}

// RateTable maps a vehicle type to its rate.
type RateTable map[string]Rate

// Lookup returns the rate for vehicleType or ErrInvalidVehicleType.
func (t RateTable) Lookup(vehicleType string) (Rate, error) {
	rate, ok := t[vehicleType]
	if !ok {
		return Rate{}, fmt.Errorf("%w: %q", domain.ErrInvalidVehicleType, vehicleType)
	}
	return rate, nil
}

// Quote is a computed fare broken down into its parts.
type Quote struct {
	Base     float64
	Distance float64
	Total    int64
}

// Calculator prices legs against an injected rate table.
type Calculator struct {
	rates RateTable
}

// NewCalculator creates a Calculator backed by rates.
func NewCalculator(rates RateTable) *Calculator {
	return &Calculator{rates: rates}
}

// Quote prices a leg of distanceKm on a vehicle of vehicleType with the given multiplier.
func (c *Calculator) Quote(vehicleType string, distanceKm, multiplier float64) (Quote, error) {
	rate, err := c.rates.Lookup(vehicleType)
	if err != nil {
		return Quote{}, err
	}
	total, err := ComputeFare(distanceKm, rate.BaseFare, rate.PerKmRate, multiplier)
	if err != nil {
		return Quote{}, err
	}
	return Quote{
		Base:     rate.BaseFare,
		Distance: distanceKm * rate.PerKmRate,
		Total:    total,
	}, nil
}

// ComputeFare returns round(baseFare + distanceKm*perKmRate) * multiplier, rounded half-up
// to a whole currency unit. The result is never below baseFare*multiplier.
func ComputeFare(distanceKm, baseFare, perKmRate, multiplier float64) (int64, error) {
	for _, v := range []float64{distanceKm, baseFare, perKmRate, multiplier} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return 0, fmt.Errorf("%w: fare inputs must be finite", domain.ErrValidation)
		}
	}
	if distanceKm < 0 || baseFare < 0 || perKmRate < 0 {
		return 0, fmt.Errorf("%w: fare inputs must not be negative", domain.ErrValidation)
	}
	if multiplier <= 0 {
		return 0, fmt.Errorf("%w: fare multiplier must be positive", domain.ErrValidation)
	}

	fare := RoundHalfUp(RoundHalfUp(baseFare+distanceKm*perKmRate) * multiplier)
	floor := math.Ceil(baseFare*multiplier - epsilon)
	if fare < floor {
		fare = floor
	}
	return int64(fare), nil
}

// epsilon absorbs binary representation error, e.g. 0.1*3 landing just under a .5 boundary.
const epsilon = 1e-9

// RoundHalfUp rounds non-negative x to the nearest integer, halves going up.
func RoundHalfUp(x float64) float64 {
	return math.Floor(x + 0.5 + epsilon)
}
