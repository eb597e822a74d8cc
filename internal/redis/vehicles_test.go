package redis

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"rideshare/internal/domain"
)

type fakeVehicleCache struct {
	mu       sync.Mutex
	vehicles map[string]domain.Vehicle
	getErr   error
	setErr   error
	sets     int
}

func (c *fakeVehicleCache) GetVehicle(ctx context.Context, id string) (*domain.Vehicle, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.getErr != nil {
		return nil, c.getErr
	}
	v, ok := c.vehicles[id]
	if !ok {
		return nil, nil
	}
	return &v, nil
}

func (c *fakeVehicleCache) SetVehicle(ctx context.Context, v *domain.Vehicle) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sets++
	if c.setErr != nil {
		return c.setErr
	}
	c.vehicles[v.ID] = *v
	return nil
}

type countingRegistry struct {
	vehicles map[string]domain.Vehicle
	calls    int
}

func (r *countingRegistry) GetByID(ctx context.Context, id string) (*domain.Vehicle, error) {
	r.calls++
	v, ok := r.vehicles[id]
	if !ok {
		return nil, domain.ErrVehicleNotFound
	}
	return &v, nil
}

func TestCachedVehicleRepository_ReadThrough(t *testing.T) {
	registry := &countingRegistry{vehicles: map[string]domain.Vehicle{"v1": {ID: "v1", Type: "sedan"}}}
	cache := &fakeVehicleCache{vehicles: map[string]domain.Vehicle{}}
	repo := NewCachedVehicleRepository(registry, cache, zap.NewNop())

	v, err := repo.GetByID(context.Background(), "v1")
	require.NoError(t, err)
	assert.Equal(t, "sedan", v.Type)

	v, err = repo.GetByID(context.Background(), "v1")
	require.NoError(t, err)
	assert.Equal(t, "sedan", v.Type)

	assert.Equal(t, 1, registry.calls)
	assert.Equal(t, 1, cache.sets)
}

func TestCachedVehicleRepository_CacheFailureFallsBack(t *testing.T) {
	registry := &countingRegistry{vehicles: map[string]domain.Vehicle{"v1": {ID: "v1", Type: "van"}}}
	cache := &fakeVehicleCache{
		vehicles: map[string]domain.Vehicle{},
		getErr:   errors.New("connection refused"),
		setErr:   errors.New("connection refused"),
	}
	repo := NewCachedVehicleRepository(registry, cache, zap.NewNop())

	v, err := repo.GetByID(context.Background(), "v1")
	require.NoError(t, err)
	assert.Equal(t, "van", v.Type)
}

func TestCachedVehicleRepository_NotFoundIsNotCached(t *testing.T) {
	registry := &countingRegistry{vehicles: map[string]domain.Vehicle{}}
	cache := &fakeVehicleCache{vehicles: map[string]domain.Vehicle{}}
	repo := NewCachedVehicleRepository(registry, cache, zap.NewNop())

	_, err := repo.GetByID(context.Background(), "ghost")
	assert.True(t, errors.Is(err, domain.ErrVehicleNotFound))
	assert.Equal(t, 0, cache.sets)
}

func TestCacheKeys(t *testing.T) {
	assert.Equal(t, "cache:ride:r1", rideKey("r1"))
	assert.Equal(t, "cache:vehicle:v1", vehicleKey("v1"))
}
