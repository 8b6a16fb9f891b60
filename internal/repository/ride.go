package repository

import (
	"context"
	"time"

	"ridehail/internal/domain"
)

// RideUpdate carries the optional fields set alongside a status transition.
type RideUpdate struct {
	DriverID    string
	PickupTime  time.Time
	DropoffTime time.Time
}

// RideRepository defines the persistence operations for rides.
//
// All status mutations are conditional: they match on the current status (and,
// for driver assignment, on the driver holding no other active ride) and
// return ErrConflict when the match fails, so concurrent callers racing on
// the same ride converge to exactly one winner.
type RideRepository interface {
	// Create persists a new ride.
	Create(ctx context.Context, ride *domain.Ride) error

	// GetByID retrieves a ride with its interest list, status history
	// and admin notes.
	GetByID(ctx context.Context, id string) (*domain.Ride, error)

	// GetAll retrieves all rides, newest first.
	GetAll(ctx context.Context) ([]*domain.Ride, error)

	// GetByRider retrieves all rides requested by a rider.
	GetByRider(ctx context.Context, riderID string) ([]*domain.Ride, error)

	// GetForDriver retrieves the rides assigned to the driver plus the
	// current pool of REQUESTED rides.
	GetForDriver(ctx context.Context, driverID string) ([]*domain.Ride, error)

	// GetActiveByRider returns the rider's ride in a non-terminal status,
	// or nil when there is none.
	GetActiveByRider(ctx context.Context, riderID string) (*domain.Ride, error)

	// GetActiveByDriver returns the ride the driver is currently assigned
	// to (ACCEPTED, PICKED_UP or IN_TRANSIT), or nil when there is none.
	GetActiveByDriver(ctx context.Context, driverID string) (*domain.Ride, error)

	// UpdateStatusIf transitions the ride from one status to another,
	// applying upd. Returns ErrConflict if the ride is not in from.
	UpdateStatusIf(ctx context.Context, id string, from, to domain.RideStatus, upd RideUpdate) error

	// AssignDriverIf sets status=ACCEPTED, driver and pickup time, but only
	// if the ride is still REQUESTED and the driver is not assigned to any
	// other active ride. Returns ErrConflict otherwise.
	AssignDriverIf(ctx context.Context, rideID, driverID string, pickupTime time.Time) error

	// ForceAssignDriver sets status=ACCEPTED, driver and pickup time
	// regardless of the ride's current status, but still refuses (with
	// ErrConflict) if the driver holds another active ride.
	ForceAssignDriver(ctx context.Context, rideID, driverID string, pickupTime time.Time) error

	// SetStatus sets the ride status unconditionally. Admin override only.
	SetStatus(ctx context.Context, id string, status domain.RideStatus) error

	// AddInterestedDriver adds a driver to the ride's interest list with
	// set semantics. Returns false when the driver was already present.
	AddInterestedDriver(ctx context.Context, rideID, driverID string) (bool, error)

	// RemoveInterestElsewhere removes the driver from the interest list of
	// every ride except keepRideID.
	RemoveInterestElsewhere(ctx context.Context, driverID, keepRideID string) error

	// SetPaymentFlags updates the ride's payment mirror flags.
	SetPaymentFlags(ctx context.Context, rideID string, held, released bool) error

	// AppendStatusHistory appends one entry to the ride's audit trail.
	AppendStatusHistory(ctx context.Context, rideID string, entry domain.StatusChange) error

	// AppendAdminNote appends one operator note to the ride.
	AppendAdminNote(ctx context.Context, rideID string, note domain.AdminNote) error

	// ListByStatus retrieves rides in the given status, newest first.
	ListByStatus(ctx context.Context, status domain.RideStatus) ([]*domain.Ride, error)

	// ListActive retrieves rides in REQUESTED, ACCEPTED, PICKED_UP or
	// IN_TRANSIT, newest first.
	ListActive(ctx context.Context) ([]*domain.Ride, error)

	// ListStaleRequested retrieves REQUESTED rides created before the cutoff.
	ListStaleRequested(ctx context.Context, before time.Time) ([]*domain.Ride, error)

	// ListUnattendedRequested retrieves REQUESTED rides created before the
	// cutoff that have no interested drivers.
	ListUnattendedRequested(ctx context.Context, before time.Time) ([]*domain.Ride, error)

	// ListWithManyNotes retrieves rides carrying at least minNotes admin
	// notes, a proxy for disputed rides.
	ListWithManyNotes(ctx context.Context, minNotes int) ([]*domain.Ride, error)

	// Delete removes the ride and its interest, history and note rows.
	Delete(ctx context.Context, id string) error
}
