package redis

import (
	"context"
	"time"
)

// LockStoreInterface defines the interface for distributed locking.
type LockStoreInterface interface {
	AcquireDriverLock(ctx context.Context, driverID string, ttl time.Duration) (bool, error)
	ReleaseDriverLock(ctx context.Context, driverID string) error
}

// AvailabilityStoreInterface defines the interface for the driver
// availability mirror.
type AvailabilityStoreInterface interface {
	MarkOnline(ctx context.Context, driverID string) error
	MarkOffline(ctx context.Context, driverID string) error
	IsOnline(ctx context.Context, driverID string) (bool, error)
	OnlineDrivers(ctx context.Context) ([]string, error)
	UpdatePosition(ctx context.Context, driverID string, lat, lng float64) error
	NearbyDrivers(ctx context.Context, lat, lng, radiusKm float64) ([]string, error)
}

// Ensure concrete types implement interfaces.
var (
	_ LockStoreInterface         = (*LockStore)(nil)
	_ AvailabilityStoreInterface = (*AvailabilityStore)(nil)
)
