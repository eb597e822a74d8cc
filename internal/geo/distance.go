// Package geo computes great-circle distances between coordinates.
package geo

import (
	"fmt"
	"math"

	"rideshare/internal/domain"
)

// EarthRadiusKm is the mean sphere radius used by Distance.
const EarthRadiusKm = 6371.0

// Point is a latitude/longitude pair in degrees.
type Point struct {
	Lat float64
	Lng float64
}

// Validate rejects non-finite values and out-of-range latitude or longitude.
func (p Point) Validate() error {
	if math.IsNaN(p.Lat) || math.IsInf(p.Lat, 0) || math.IsNaN(p.Lng) || math.IsInf(p.Lng, 0) {
		return fmt.Errorf("%w: non-finite value", domain.ErrInvalidCoordinate)
	}
	if p.Lat < -90 || p.Lat > 90 {
		return fmt.Errorf("%w: latitude %v out of range", domain.ErrInvalidCoordinate, p.Lat)
	}
	if p.Lng < -180 || p.Lng > 180 {
		return fmt.Errorf("%w: longitude %v out of range", domain.ErrInvalidCoordinate, p.Lng)
	}
	return nil
}

// FromLocation converts a domain location.
func FromLocation(l domain.Location) Point {
	return Point{Lat: l.Lat, Lng: l.Lng}
}

// Distance returns the haversine distance between a and b in kilometres.
func Distance(a, b Point) (float64, error) {
	if err := a.Validate(); err != nil {
		return 0, err
	}
	if err := b.Validate(); err != nil {
		return 0, err
	}

	lat1 := toRadians(a.Lat)
	lat2 := toRadians(b.Lat)
	dlat := toRadians(b.Lat - a.Lat)
	dlng := toRadians(b.Lng - a.Lng)

	h := math.Sin(dlat/2)*math.Sin(dlat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dlng/2)*math.Sin(dlng/2)
	// clamp rounding drift for antipodal points
	h = math.Min(1, math.Max(0, h))
	return 2 * EarthRadiusKm * math.Asin(math.Sqrt(h)), nil
}

func toRadians(deg float64) float64 {
	return deg * math.Pi / 180.0
}
