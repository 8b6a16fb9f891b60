package redis

import (
	"context"

	"github.com/redis/go-redis/v9"
)

const (
	onlineDriversKey   = "drivers:online"
	driverPositionsKey = "drivers:positions"
)

// AvailabilityStore mirrors driver availability in Redis: a set of online
// driver ids for fast eligibility reads, and a geo index of last known
// positions. The drivers table stays authoritative; this is a read-side
// accelerator kept in sync by the driver service.
type AvailabilityStore struct {
	client *redis.Client
}

// NewAvailabilityStore creates a new AvailabilityStore.
func NewAvailabilityStore(client *redis.Client) *AvailabilityStore {
	return &AvailabilityStore{client: client}
}

// MarkOnline adds the driver to the online set.
func (s *AvailabilityStore) MarkOnline(ctx context.Context, driverID string) error {
	return s.client.SAdd(ctx, onlineDriversKey, driverID).Err()
}

// MarkOffline removes the driver from the online set and drops their
// last known position.
func (s *AvailabilityStore) MarkOffline(ctx context.Context, driverID string) error {
	if err := s.client.SRem(ctx, onlineDriversKey, driverID).Err(); err != nil {
		return err
	}
	return s.client.ZRem(ctx, driverPositionsKey, driverID).Err()
}

// IsOnline reports whether the driver is in the online set.
func (s *AvailabilityStore) IsOnline(ctx context.Context, driverID string) (bool, error) {
	return s.client.SIsMember(ctx, onlineDriversKey, driverID).Result()
}

// OnlineDrivers returns all driver ids currently marked online.
func (s *AvailabilityStore) OnlineDrivers(ctx context.Context) ([]string, error) {
	return s.client.SMembers(ctx, onlineDriversKey).Result()
}

// UpdatePosition stores a driver's last known position using GEOADD.
func (s *AvailabilityStore) UpdatePosition(ctx context.Context, driverID string, lat, lng float64) error {
	return s.client.GeoAdd(ctx, driverPositionsKey, &redis.GeoLocation{
		Name:      driverID,
		Longitude: lng,
		Latitude:  lat,
	}).Err()
}

// NearbyDrivers returns online driver ids within radiusKm of the point,
// closest first.
func (s *AvailabilityStore) NearbyDrivers(ctx context.Context, lat, lng, radiusKm float64) ([]string, error) {
	results, err := s.client.GeoRadius(ctx, driverPositionsKey, lng, lat, &redis.GeoRadiusQuery{
		Radius: radiusKm,
		Unit:   "km",
		Sort:   "ASC",
	}).Result()
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(results))
	for _, r := range results {
		ids = append(ids, r.Name)
	}
	return ids, nil
}
