package redis

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"rideshare/internal/domain"
)

// CacheStore handles entity caching in Redis.
type CacheStore struct {
	client  *redis.Client
	rideTTL time.Duration
}

// NewCacheStore creates a new CacheStore. rideTTL <= 0 uses RideCacheTTL.
func NewCacheStore(client *redis.Client, rideTTL time.Duration) *CacheStore {
	if rideTTL <= 0 {
		rideTTL = RideCacheTTL
	}
	return &CacheStore{client: client, rideTTL: rideTTL}
}

// Cache TTL constants
const (
	RideCacheTTL    = 5 * time.Minute // writes refresh explicitly
	VehicleCacheTTL = 60 * time.Second
)

// Key prefixes
const (
	rideCachePrefix    = "cache:ride:"
	vehicleCachePrefix = "cache:vehicle:"
)

func rideKey(id string) string    { return rideCachePrefix + id }
func vehicleKey(id string) string { return vehicleCachePrefix + id }

// GetRide retrieves a ride from cache. A miss returns nil, nil.
func (s *CacheStore) GetRide(ctx context.Context, rideID string) (*domain.Ride, error) {
	var ride domain.Ride
	ok, err := s.get(ctx, rideKey(rideID), &ride)
	if err != nil || !ok {
		return nil, err
	}
	return &ride, nil
}

// setRideScript writes ARGV[1] unless the cached ride already carries a newer version.
var setRideScript = redis.NewScript(`
local current = redis.call("GET", KEYS[1])
if current then
	local ok, cached = pcall(cjson.decode, current)
	if ok and type(cached) == "table" and tonumber(cached.version) and tonumber(cached.version) > tonumber(ARGV[2]) then
		return 0
	end
end
redis.call("SET", KEYS[1], ARGV[1], "PX", ARGV[3])
return 1
`)

// SetRide stores a ride in cache. A cached ride with a higher version is kept.
func (s *CacheStore) SetRide(ctx context.Context, ride *domain.Ride) error {
	data, err := json.Marshal(ride)
	if err != nil {
		return err
	}
	err = setRideScript.Run(ctx, s.client, []string{rideKey(ride.ID)},
		data, ride.Version, s.rideTTL.Milliseconds()).Err()
	if errors.Is(err, redis.Nil) {
		return nil
	}
	return err
}

// InvalidateRide removes a ride from cache.
func (s *CacheStore) InvalidateRide(ctx context.Context, rideID string) error {
	return s.client.Del(ctx, rideKey(rideID)).Err()
}

// GetVehicle retrieves a vehicle from cache. A miss returns nil, nil.
func (s *CacheStore) GetVehicle(ctx context.Context, vehicleID string) (*domain.Vehicle, error) {
	var v domain.Vehicle
	ok, err := s.get(ctx, vehicleKey(vehicleID), &v)
	if err != nil || !ok {
		return nil, err
	}
	return &v, nil
}

// SetVehicle stores a vehicle in cache.
func (s *CacheStore) SetVehicle(ctx context.Context, v *domain.Vehicle) error {
	return s.set(ctx, vehicleKey(v.ID), v, VehicleCacheTTL)
}

func (s *CacheStore) get(ctx context.Context, key string, dest any) (bool, error) {
	data, err := s.client.Get(ctx, key).Bytes()
	if err != nil {
		if err == redis.Nil {
			return false, nil // Cache miss
		}
		return false, err
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return false, err
	}
	return true, nil
}

func (s *CacheStore) set(ctx context.Context, key string, value any, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, key, data, ttl).Err()
}
