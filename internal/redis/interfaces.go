package redis

import (
	"context"

	"rideshare/internal/domain"
	"rideshare/internal/repository"
)

// RideCacheInterface defines the ride read cache operations.
type RideCacheInterface interface {
	GetRide(ctx context.Context, rideID string) (*domain.Ride, error)
	SetRide(ctx context.Context, ride *domain.Ride) error
	InvalidateRide(ctx context.Context, rideID string) error
}

// VehicleCacheInterface defines the vehicle cache operations.
type VehicleCacheInterface interface {
	GetVehicle(ctx context.Context, vehicleID string) (*domain.Vehicle, error)
	SetVehicle(ctx context.Context, v *domain.Vehicle) error
}

// Ensure concrete types implement interfaces.
var (
	_ RideCacheInterface           = (*CacheStore)(nil)
	_ VehicleCacheInterface        = (*CacheStore)(nil)
	_ repository.VehicleRepository = (*CachedVehicleRepository)(nil)
)
