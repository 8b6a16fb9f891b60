package service

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/google/uuid"

	"ridehail/internal/domain"
	"ridehail/internal/redis"
	"ridehail/internal/repository"
)

// DriverService manages driver registration, approval and availability. The
// drivers table is authoritative; the Redis availability store is a mirror
// kept in sync on every change.
type DriverService struct {
	drivers      repository.DriverRepository
	users        repository.UserRepository
	availability redis.AvailabilityStoreInterface
}

// NewDriverService creates a new DriverService.
func NewDriverService(
	drivers repository.DriverRepository,
	users repository.UserRepository,
	availability redis.AvailabilityStoreInterface,
) *DriverService {
	return &DriverService{
		drivers:      drivers,
		users:        users,
		availability: availability,
	}
}

// Register creates a driver profile for an existing user account. New
// drivers start PENDING and OFFLINE.
func (s *DriverService) Register(ctx context.Context, userID, name, phone, vehicle string) (*domain.Driver, error) {
	if userID == "" {
		return nil, ErrInvalidActor
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("loading user: %w", err)
	}

	driver := &domain.Driver{
		ID:           uuid.NewString(),
		UserID:       user.ID,
		Name:         name,
		Phone:        phone,
		Vehicle:      vehicle,
		Status:       domain.DriverStatusPending,
		Availability: domain.AvailabilityOffline,
		UserActive:   user.Active,
	}
	if err := s.drivers.Create(ctx, driver); err != nil {
		return nil, fmt.Errorf("creating driver: %w", err)
	}
	return driver, nil
}

// Approve marks a pending driver as approved.
func (s *DriverService) Approve(ctx context.Context, driverID string) error {
	return s.setStatus(ctx, driverID, domain.DriverStatusApproved)
}

// Reject marks a driver as rejected and forces them offline.
func (s *DriverService) Reject(ctx context.Context, driverID string) error {
	if err := s.setStatus(ctx, driverID, domain.DriverStatusRejected); err != nil {
		return err
	}
	if err := s.drivers.UpdateAvailability(ctx, driverID, domain.AvailabilityOffline); err != nil {
		return fmt.Errorf("forcing driver offline: %w", err)
	}
	if err := s.availability.MarkOffline(ctx, driverID); err != nil {
		log.Printf("driver %s: clearing availability mirror: %v", driverID, err)
	}
	return nil
}

func (s *DriverService) setStatus(ctx context.Context, driverID string, status domain.DriverStatus) error {
	if driverID == "" {
		return ErrInvalidActor
	}
	err := s.drivers.UpdateStatus(ctx, driverID, status)
	if errors.Is(err, repository.ErrNotFound) {
		return ErrDriverNotFound
	}
	if err != nil {
		return fmt.Errorf("updating driver status: %w", err)
	}
	return nil
}

// SetAvailability flips a driver online or offline. Going online requires
// an approved driver on an active account.
func (s *DriverService) SetAvailability(ctx context.Context, driverID string, availability domain.Availability) error {
	if driverID == "" {
		return ErrInvalidActor
	}

	driver, err := s.drivers.GetByID(ctx, driverID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrDriverNotFound
		}
		return fmt.Errorf("loading driver: %w", err)
	}

	if availability == domain.AvailabilityOnline {
		if driver.Status != domain.DriverStatusApproved {
			return ErrDriverNotApproved
		}
		if !driver.UserActive {
			return ErrDriverNotAvailable
		}
	}

	if err := s.drivers.UpdateAvailability(ctx, driverID, availability); err != nil {
		return fmt.Errorf("updating availability: %w", err)
	}

	var mirrorErr error
	if availability == domain.AvailabilityOnline {
		mirrorErr = s.availability.MarkOnline(ctx, driverID)
	} else {
		mirrorErr = s.availability.MarkOffline(ctx, driverID)
	}
	if mirrorErr != nil {
		log.Printf("driver %s: updating availability mirror: %v", driverID, mirrorErr)
	}
	return nil
}

// UpdateLocation records a driver's last known position in the geo index.
func (s *DriverService) UpdateLocation(ctx context.Context, driverID string, lat, lng float64) error {
	if driverID == "" {
		return ErrInvalidActor
	}
	online, err := s.availability.IsOnline(ctx, driverID)
	if err != nil {
		return fmt.Errorf("checking availability: %w", err)
	}
	if !online {
		return ErrDriverNotAvailable
	}
	return s.availability.UpdatePosition(ctx, driverID, lat, lng)
}

// GetDriver returns one driver by id.
func (s *DriverService) GetDriver(ctx context.Context, driverID string) (*domain.Driver, error) {
	driver, err := s.drivers.GetByID(ctx, driverID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrDriverNotFound
		}
		return nil, fmt.Errorf("loading driver: %w", err)
	}
	return driver, nil
}

// GetDrivers returns all drivers.
func (s *DriverService) GetDrivers(ctx context.Context) ([]*domain.Driver, error) {
	return s.drivers.GetAll(ctx)
}
