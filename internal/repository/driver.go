package repository

import (
	"context"

	"ridehail/internal/domain"
)

// DriverRepository defines the persistence operations for drivers.
type DriverRepository interface {
	// Create adds a new driver.
	Create(ctx context.Context, driver *domain.Driver) error

	// GetByID retrieves a driver by ID, including the active flag of the
	// backing user account.
	GetByID(ctx context.Context, id string) (*domain.Driver, error)

	// GetByUserID retrieves the driver record owned by a user account.
	GetByUserID(ctx context.Context, userID string) (*domain.Driver, error)

	// GetAll retrieves all drivers.
	GetAll(ctx context.Context) ([]*domain.Driver, error)

	// CountApprovedOnline counts drivers that are APPROVED and ONLINE with
	// an active user account.
	CountApprovedOnline(ctx context.Context) (int, error)

	// UpdateStatus updates a driver's approval status.
	UpdateStatus(ctx context.Context, id string, status domain.DriverStatus) error

	// UpdateAvailability updates a driver's online/offline availability.
	UpdateAvailability(ctx context.Context, id string, availability domain.Availability) error
}
