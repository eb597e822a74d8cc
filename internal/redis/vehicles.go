package redis

import (
	"context"

	"go.uber.org/zap"

	"rideshare/internal/domain"
	"rideshare/internal/repository"
)

// CachedVehicleRepository is a read-through cache in front of a vehicle registry.
// Cache failures are logged and the registry is used directly.
type CachedVehicleRepository struct {
	next   repository.VehicleRepository
	cache  VehicleCacheInterface
	logger *zap.Logger
}

// NewCachedVehicleRepository wraps next with cache.
func NewCachedVehicleRepository(next repository.VehicleRepository, cache VehicleCacheInterface, logger *zap.Logger) *CachedVehicleRepository {
	return &CachedVehicleRepository{next: next, cache: cache, logger: logger}
}

// GetByID returns the cached vehicle or loads and caches it.
func (r *CachedVehicleRepository) GetByID(ctx context.Context, id string) (*domain.Vehicle, error) {
	v, err := r.cache.GetVehicle(ctx, id)
	if err != nil {
		r.logger.Warn("vehicle cache read failed", zap.String("vehicle_id", id), zap.Error(err))
	}
	if v != nil {
		return v, nil
	}

	v, err = r.next.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := r.cache.SetVehicle(ctx, v); err != nil {
		r.logger.Warn("vehicle cache write failed", zap.String("vehicle_id", id), zap.Error(err))
	}
	return v, nil
}
