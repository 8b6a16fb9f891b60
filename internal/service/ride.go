package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"ridehail/internal/domain"
	"ridehail/internal/redis"
	"ridehail/internal/repository"
)

// driverLockTTL bounds how long an acceptance may hold a driver lock. The
// conditional database update is the real arbiter; the lock only cuts down
// wasted work when two riders pick the same driver at once.
const driverLockTTL = 10 * time.Second

// RideService implements the ride lifecycle: request, driver interest,
// acceptance, status progression and cancellation.
type RideService struct {
	rides    repository.RideRepository
	payments repository.PaymentRepository
	drivers  repository.DriverRepository
	locks    redis.LockStoreInterface
	notifier Notifier
}

// NewRideService creates a new RideService.
func NewRideService(
	rides repository.RideRepository,
	payments repository.PaymentRepository,
	drivers repository.DriverRepository,
	locks redis.LockStoreInterface,
	notifier Notifier,
) *RideService {
	return &RideService{
		rides:    rides,
		payments: payments,
		drivers:  drivers,
		locks:    locks,
		notifier: notifier,
	}
}

// RequestRide creates a new ride in REQUESTED together with its UNPAID
// payment record. The payment row is written first; if the ride insert
// fails the payment is deleted to compensate.
func (s *RideService) RequestRide(ctx context.Context, riderID string, pickup, destination domain.GeoPoint, price float64) (*domain.Ride, error) {
	if riderID == "" {
		return nil, ErrInvalidActor
	}
	if price <= 0 {
		return nil, ErrInvalidPrice
	}
	if (pickup == domain.GeoPoint{}) || (destination == domain.GeoPoint{}) {
		return nil, ErrInvalidLocation
	}

	count, err := s.drivers.CountApprovedOnline(ctx)
	if err != nil {
		return nil, fmt.Errorf("counting available drivers: %w", err)
	}
	if count == 0 {
		return nil, ErrNoDriversAvailable
	}

	active, err := s.rides.GetActiveByRider(ctx, riderID)
	if err != nil {
		return nil, fmt.Errorf("checking rider's active ride: %w", err)
	}
	if active != nil {
		return nil, ErrRiderAlreadyOnRide
	}

	now := time.Now().UTC()
	payment := &domain.Payment{
		ID:            uuid.NewString(),
		TransactionID: "TXN-" + uuid.NewString(),
		Amount:        price,
		Status:        domain.PaymentStatusUnpaid,
		CreatedAt:     now,
	}
	if err := s.payments.Create(ctx, payment); err != nil {
		return nil, fmt.Errorf("creating payment: %w", err)
	}

	ride := &domain.Ride{
		ID:          uuid.NewString(),
		RiderID:     riderID,
		Status:      domain.RideStatusRequested,
		Pickup:      pickup,
		Destination: destination,
		Price:       price,
		PaymentID:   payment.ID,
		CreatedAt:   now,
	}
	if err := s.rides.Create(ctx, ride); err != nil {
		if delErr := s.payments.Delete(ctx, payment.ID); delErr != nil {
			log.Printf("ride request: compensating payment delete failed for %s: %v", payment.ID, delErr)
		}
		return nil, fmt.Errorf("creating ride: %w", err)
	}

	if err := s.payments.SetRideID(ctx, payment.ID, ride.ID); err != nil {
		// The ride already carries the payment id, so the link is
		// recoverable. Log and keep going.
		log.Printf("ride request: backlinking payment %s to ride %s failed: %v", payment.ID, ride.ID, err)
	}

	s.appendHistory(ctx, ride.ID, domain.StatusChange{
		Status:    domain.RideStatusRequested,
		ChangedBy: riderID,
		ChangedAt: now,
	})

	s.notifier.RideRequested(ctx, ride)
	return ride, nil
}

// ShowInterest records a driver's interest in an open ride. The interest
// list has set semantics; a repeat call is reported as a conflict.
func (s *RideService) ShowInterest(ctx context.Context, rideID, driverID string) error {
	if rideID == "" {
		return ErrInvalidRideID
	}
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
	if driver.Status != domain.DriverStatusApproved {
		return ErrDriverNotApproved
	}
	if !driver.Eligible() {
		return ErrDriverNotAvailable
	}

	ride, err := s.rides.GetByID(ctx, rideID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrRideNotFound
		}
		return fmt.Errorf("loading ride: %w", err)
	}
	if ride.Status != domain.RideStatusRequested {
		return ErrRideNotRequestable
	}

	busy, err := s.rides.GetActiveByDriver(ctx, driverID)
	if err != nil {
		return fmt.Errorf("checking driver's active ride: %w", err)
	}
	if busy != nil {
		return ErrDriverBusy
	}

	added, err := s.rides.AddInterestedDriver(ctx, rideID, driverID)
	if err != nil {
		return fmt.Errorf("recording interest: %w", err)
	}
	if !added {
		return ErrAlreadyInterested
	}
	return nil
}

// AcceptDriver commits one interested driver to the ride on behalf of its
// rider. The payment must be secured, the driver must still be eligible and
// free, and the ride must still be REQUESTED. Concurrency is settled by a
// conditional assignment update; losers get ErrRideNotAcceptable or
// ErrDriverBusy.
func (s *RideService) AcceptDriver(ctx context.Context, riderID, rideID, driverID, paymentID string) (*domain.Ride, error) {
	if riderID == "" || driverID == "" {
		return nil, ErrInvalidActor
	}
	if rideID == "" {
		return nil, ErrInvalidRideID
	}

	ride, err := s.rides.GetByID(ctx, rideID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrRideNotFound
		}
		return nil, fmt.Errorf("loading ride: %w", err)
	}
	if ride.RiderID != riderID {
		return nil, ErrNotRideOwner
	}
	if ride.Status != domain.RideStatusRequested {
		return nil, ErrRideNotAcceptable
	}

	// The payment id is optional; the ride already knows its payment.
	if paymentID == "" {
		paymentID = ride.PaymentID
	}
	payment, err := s.payments.GetByID(ctx, paymentID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrPaymentNotFound
		}
		return nil, fmt.Errorf("loading payment: %w", err)
	}
	if payment.ID != ride.PaymentID {
		return nil, ErrPaymentMismatch
	}
	secured := payment.Status == domain.PaymentStatusHeld ||
		(payment.Status == domain.PaymentStatusPaid && ride.PaymentHeld)
	if !secured {
		return nil, ErrPaymentNotReady
	}

	if !ride.InterestedIn(driverID) {
		return nil, ErrDriverNotInterested
	}

	driver, err := s.drivers.GetByID(ctx, driverID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrDriverNotFound
		}
		return nil, fmt.Errorf("loading driver: %w", err)
	}
	if driver.Status != domain.DriverStatusApproved {
		return nil, ErrDriverNotApproved
	}
	if !driver.Eligible() {
		return nil, ErrDriverNotAvailable
	}

	busy, err := s.rides.GetActiveByDriver(ctx, driverID)
	if err != nil {
		return nil, fmt.Errorf("checking driver's active ride: %w", err)
	}
	if busy != nil {
		return nil, ErrDriverBusy
	}

	locked, err := s.locks.AcquireDriverLock(ctx, driverID, driverLockTTL)
	if err != nil {
		return nil, fmt.Errorf("acquiring driver lock: %w", err)
	}
	if !locked {
		return nil, ErrDriverBusy
	}
	defer func() {
		if err := s.locks.ReleaseDriverLock(ctx, driverID); err != nil {
			log.Printf("accept: releasing lock for driver %s: %v", driverID, err)
		}
	}()

	now := time.Now().UTC()

	if payment.Status == domain.PaymentStatusPaid {
		err := s.payments.MarkHeldIf(ctx, payment.ID, driverID, now)
		if errors.Is(err, repository.ErrConflict) {
			// Someone moved the payment concurrently. Only an existing
			// hold for this same driver lets the acceptance proceed.
			fresh, getErr := s.payments.GetByID(ctx, payment.ID)
			if getErr != nil {
				return nil, fmt.Errorf("re-reading payment: %w", getErr)
			}
			if fresh.Status != domain.PaymentStatusHeld || fresh.DriverID != driverID {
				return nil, ErrPaymentNotReady
			}
		} else if err != nil {
			return nil, fmt.Errorf("holding payment: %w", err)
		}
		payment.Status = domain.PaymentStatusHeld
		payment.DriverID = driverID
	}

	if err := s.rides.AssignDriverIf(ctx, rideID, driverID, now); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, ErrRideNotAcceptable
		}
		return nil, fmt.Errorf("assigning driver: %w", err)
	}

	if err := s.rides.SetPaymentFlags(ctx, rideID, true, false); err != nil {
		log.Printf("accept: updating payment flags on ride %s: %v", rideID, err)
	}

	s.appendHistory(ctx, rideID, domain.StatusChange{
		Status:    domain.RideStatusAccepted,
		ChangedBy: riderID,
		ChangedAt: now,
	})

	if err := s.rides.RemoveInterestElsewhere(ctx, driverID, rideID); err != nil {
		log.Printf("accept: clearing interest for driver %s: %v", driverID, err)
	}

	s.notifier.DriverAccepted(ctx, ride, driverID)
	s.notifier.PaymentHeld(ctx, payment)

	return s.rides.GetByID(ctx, rideID)
}

// ManageRideStatus advances a ride through its lifecycle on behalf of the
// assigned driver or the rider. Drivers move ACCEPTED -> PICKED_UP and
// ACCEPTED/PICKED_UP -> IN_TRANSIT; the rider confirms IN_TRANSIT ->
// COMPLETED. Completion triggers a best effort payment release.
func (s *RideService) ManageRideStatus(ctx context.Context, actor domain.Actor, rideID string, target domain.RideStatus) (*domain.Ride, error) {
	if actor.ID == "" {
		return nil, ErrInvalidActor
	}
	if rideID == "" {
		return nil, ErrInvalidRideID
	}

	ride, err := s.rides.GetByID(ctx, rideID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrRideNotFound
		}
		return nil, fmt.Errorf("loading ride: %w", err)
	}
	if ride.Status.Terminal() {
		return nil, ErrRideAlreadyTerminal
	}

	var upd repository.RideUpdate
	now := time.Now().UTC()

	switch actor.Role {
	case domain.RoleDriver:
		if ride.DriverID != actor.ID {
			return nil, ErrForbiddenTransition
		}
		switch target {
		case domain.RideStatusPickedUp:
			if ride.Status != domain.RideStatusAccepted {
				return nil, ErrForbiddenTransition
			}
		case domain.RideStatusInTransit:
			if ride.Status != domain.RideStatusAccepted && ride.Status != domain.RideStatusPickedUp {
				return nil, ErrForbiddenTransition
			}
		default:
			return nil, ErrForbiddenTransition
		}
	case domain.RoleRider:
		if ride.RiderID != actor.ID {
			return nil, ErrNotRideOwner
		}
		if target != domain.RideStatusCompleted || ride.Status != domain.RideStatusInTransit {
			return nil, ErrForbiddenTransition
		}
		upd.DropoffTime = now
	default:
		return nil, ErrForbiddenTransition
	}

	if err := s.rides.UpdateStatusIf(ctx, rideID, ride.Status, target, upd); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, ErrRideStateChanged
		}
		return nil, fmt.Errorf("updating ride status: %w", err)
	}

	s.appendHistory(ctx, rideID, domain.StatusChange{
		Status:    target,
		ChangedBy: actor.ID,
		ChangedAt: now,
	})

	if target == domain.RideStatusCompleted {
		s.releasePayment(ctx, ride, now)
	}

	s.notifier.RideStatusChanged(ctx, ride, ride.Status, target)
	return s.rides.GetByID(ctx, rideID)
}

// releasePayment moves the ride's payment HELD -> RELEASED after completion.
// Failures are logged, never surfaced: the ride stays COMPLETED and the
// payment remains HELD for the reconciliation sweep.
func (s *RideService) releasePayment(ctx context.Context, ride *domain.Ride, at time.Time) {
	if ride.PaymentID == "" {
		return
	}
	if err := s.payments.MarkReleasedIf(ctx, ride.PaymentID, at); err != nil {
		log.Printf("complete: releasing payment %s for ride %s failed: %v", ride.PaymentID, ride.ID, err)
		return
	}
	if err := s.rides.SetPaymentFlags(ctx, ride.ID, true, true); err != nil {
		log.Printf("complete: updating payment flags on ride %s: %v", ride.ID, err)
	}
	payment, err := s.payments.GetByID(ctx, ride.PaymentID)
	if err == nil {
		s.notifier.PaymentReleased(ctx, payment)
	}
}

// CancelRide cancels a ride that is still REQUESTED, on behalf of its rider.
// The linked payment is cancelled alongside.
func (s *RideService) CancelRide(ctx context.Context, riderID, rideID string) error {
	if riderID == "" {
		return ErrInvalidActor
	}
	if rideID == "" {
		return ErrInvalidRideID
	}

	ride, err := s.rides.GetByID(ctx, rideID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrRideNotFound
		}
		return fmt.Errorf("loading ride: %w", err)
	}
	if ride.RiderID != riderID {
		return ErrNotRideOwner
	}
	if ride.Status != domain.RideStatusRequested || ride.DriverID != "" {
		return ErrRideNotCancellable
	}

	err = s.rides.UpdateStatusIf(ctx, rideID, domain.RideStatusRequested, domain.RideStatusCancelled, repository.RideUpdate{})
	if err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return ErrRideNotCancellable
		}
		return fmt.Errorf("cancelling ride: %w", err)
	}

	now := time.Now().UTC()
	s.appendHistory(ctx, rideID, domain.StatusChange{
		Status:    domain.RideStatusCancelled,
		ChangedBy: riderID,
		ChangedAt: now,
	})

	s.cancelPayment(ctx, ride)
	s.notifier.RideCancelled(ctx, ride, riderID)
	return nil
}

// cancelPayment voids the ride's payment if it has not advanced past PAID.
func (s *RideService) cancelPayment(ctx context.Context, ride *domain.Ride) {
	if ride.PaymentID == "" {
		return
	}
	payment, err := s.payments.GetByID(ctx, ride.PaymentID)
	if err != nil {
		log.Printf("cancel: loading payment %s for ride %s: %v", ride.PaymentID, ride.ID, err)
		return
	}
	if payment.Status != domain.PaymentStatusUnpaid && payment.Status != domain.PaymentStatusPaid {
		return
	}
	if err := s.payments.UpdateStatusIf(ctx, payment.ID, payment.Status, domain.PaymentStatusCancelled); err != nil {
		log.Printf("cancel: voiding payment %s for ride %s: %v", payment.ID, ride.ID, err)
	}
}

// GetRides returns the rides visible to the actor: riders see their own,
// drivers see assigned rides plus the open pool, admins see everything.
func (s *RideService) GetRides(ctx context.Context, actor domain.Actor) ([]*domain.Ride, error) {
	if actor.ID == "" && actor.Role != domain.RoleAdmin {
		return nil, ErrInvalidActor
	}

	switch actor.Role {
	case domain.RoleRider:
		return s.rides.GetByRider(ctx, actor.ID)
	case domain.RoleDriver:
		return s.rides.GetForDriver(ctx, actor.ID)
	case domain.RoleAdmin:
		return s.rides.GetAll(ctx)
	default:
		return nil, ErrForbiddenTransition
	}
}

// GetRideInfo returns one ride, enforcing the same visibility rules as
// GetRides.
func (s *RideService) GetRideInfo(ctx context.Context, actor domain.Actor, rideID string) (*domain.Ride, error) {
	if rideID == "" {
		return nil, ErrInvalidRideID
	}

	ride, err := s.rides.GetByID(ctx, rideID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrRideNotFound
		}
		return nil, fmt.Errorf("loading ride: %w", err)
	}

	switch actor.Role {
	case domain.RoleAdmin:
		return ride, nil
	case domain.RoleRider:
		if ride.RiderID != actor.ID {
			return nil, ErrNotRideOwner
		}
		return ride, nil
	case domain.RoleDriver:
		if ride.DriverID == actor.ID || ride.Status == domain.RideStatusRequested {
			return ride, nil
		}
		return nil, ErrForbiddenTransition
	default:
		return nil, ErrForbiddenTransition
	}
}

// appendHistory writes one audit trail entry. History is advisory; a failed
// append is logged and the operation proceeds.
func (s *RideService) appendHistory(ctx context.Context, rideID string, entry domain.StatusChange) {
	if err := s.rides.AppendStatusHistory(ctx, rideID, entry); err != nil {
		log.Printf("ride %s: appending status history: %v", rideID, err)
	}
}
