package tests

import (
	"context"
	"errors"
	"testing"

	"ridehail/internal/domain"
	"ridehail/internal/service"
)

// seedAcceptedRide stores a ride already committed to driver-1 with a HELD
// payment.
func (f *rideFixture) seedAcceptedRide(rideID, riderID, driverID string) {
	paymentID := "pay-" + rideID
	f.rides.AddRide(&domain.Ride{
		ID:          rideID,
		RiderID:     riderID,
		DriverID:    driverID,
		Status:      domain.RideStatusAccepted,
		PaymentID:   paymentID,
		PaymentHeld: true,
	})
	f.payments.AddPayment(&domain.Payment{
		ID:            paymentID,
		RideID:        rideID,
		DriverID:      driverID,
		TransactionID: "TXN-" + rideID,
		Status:        domain.PaymentStatusHeld,
	})
}

func driverActor(id string) domain.Actor {
	return domain.Actor{ID: id, Role: domain.RoleDriver}
}

func riderActor(id string) domain.Actor {
	return domain.Actor{ID: id, Role: domain.RoleRider}
}

func TestManageRideStatusDriverProgression(t *testing.T) {
	f := newRideFixture()
	f.seedAcceptedRide("ride-1", "rider-1", "driver-1")
	ctx := context.Background()

	ride, err := f.svc.ManageRideStatus(ctx, driverActor("driver-1"), "ride-1", domain.RideStatusPickedUp)
	if err != nil {
		t.Fatalf("PICKED_UP transition failed: %v", err)
	}
	if ride.Status != domain.RideStatusPickedUp {
		t.Fatalf("expected PICKED_UP, got %s", ride.Status)
	}

	ride, err = f.svc.ManageRideStatus(ctx, driverActor("driver-1"), "ride-1", domain.RideStatusInTransit)
	if err != nil {
		t.Fatalf("IN_TRANSIT transition failed: %v", err)
	}
	if ride.Status != domain.RideStatusInTransit {
		t.Fatalf("expected IN_TRANSIT, got %s", ride.Status)
	}

	// Each transition leaves an audit entry.
	if got := len(f.rides.Ride("ride-1").StatusHistory); got != 2 {
		t.Errorf("expected 2 history entries, got %d", got)
	}
}

func TestManageRideStatusSkipPickup(t *testing.T) {
	f := newRideFixture()
	f.seedAcceptedRide("ride-1", "rider-1", "driver-1")

	ride, err := f.svc.ManageRideStatus(context.Background(), driverActor("driver-1"), "ride-1", domain.RideStatusInTransit)
	if err != nil {
		t.Fatalf("ACCEPTED -> IN_TRANSIT failed: %v", err)
	}
	if ride.Status != domain.RideStatusInTransit {
		t.Fatalf("expected IN_TRANSIT, got %s", ride.Status)
	}
}

func TestManageRideStatusCompletionReleasesPayment(t *testing.T) {
	f := newRideFixture()
	f.seedAcceptedRide("ride-1", "rider-1", "driver-1")
	ctx := context.Background()

	if _, err := f.svc.ManageRideStatus(ctx, driverActor("driver-1"), "ride-1", domain.RideStatusInTransit); err != nil {
		t.Fatalf("IN_TRANSIT transition failed: %v", err)
	}

	ride, err := f.svc.ManageRideStatus(ctx, riderActor("rider-1"), "ride-1", domain.RideStatusCompleted)
	if err != nil {
		t.Fatalf("COMPLETED transition failed: %v", err)
	}
	if ride.Status != domain.RideStatusCompleted {
		t.Fatalf("expected COMPLETED, got %s", ride.Status)
	}
	if ride.DropoffTime.IsZero() {
		t.Error("expected dropoff time to be set")
	}

	payment := f.payments.Payment("pay-ride-1")
	if payment.Status != domain.PaymentStatusReleased {
		t.Errorf("expected payment RELEASED, got %s", payment.Status)
	}
	if payment.ReleasedAt.IsZero() {
		t.Error("expected release time to be stamped")
	}
	if !ride.PaymentReleased {
		t.Error("expected ride payment_released flag")
	}
}

func TestManageRideStatusCompletionSurvivesReleaseFailure(t *testing.T) {
	f := newRideFixture()
	f.seedAcceptedRide("ride-1", "rider-1", "driver-1")
	ctx := context.Background()

	if _, err := f.svc.ManageRideStatus(ctx, driverActor("driver-1"), "ride-1", domain.RideStatusInTransit); err != nil {
		t.Fatalf("IN_TRANSIT transition failed: %v", err)
	}

	f.payments.MarkReleasedError = errors.New("ledger unavailable")

	ride, err := f.svc.ManageRideStatus(ctx, riderActor("rider-1"), "ride-1", domain.RideStatusCompleted)
	if err != nil {
		t.Fatalf("expected completion to succeed despite release failure, got %v", err)
	}
	if ride.Status != domain.RideStatusCompleted {
		t.Fatalf("expected COMPLETED, got %s", ride.Status)
	}

	// Payment stays HELD for reconciliation.
	if got := f.payments.Payment("pay-ride-1").Status; got != domain.PaymentStatusHeld {
		t.Errorf("expected payment to remain HELD, got %s", got)
	}
	if f.rides.Ride("ride-1").PaymentReleased {
		t.Error("expected payment_released flag to stay false")
	}
}

func TestManageRideStatusPermissions(t *testing.T) {
	f := newRideFixture()
	f.seedAcceptedRide("ride-1", "rider-1", "driver-1")
	ctx := context.Background()

	// Only the assigned driver may progress the ride.
	if _, err := f.svc.ManageRideStatus(ctx, driverActor("driver-2"), "ride-1", domain.RideStatusPickedUp); !errors.Is(err, service.ErrForbiddenTransition) {
		t.Errorf("expected ErrForbiddenTransition for unassigned driver, got %v", err)
	}

	// The rider cannot complete before IN_TRANSIT.
	if _, err := f.svc.ManageRideStatus(ctx, riderActor("rider-1"), "ride-1", domain.RideStatusCompleted); !errors.Is(err, service.ErrForbiddenTransition) {
		t.Errorf("expected ErrForbiddenTransition for early completion, got %v", err)
	}

	// The driver cannot complete at all.
	if _, err := f.svc.ManageRideStatus(ctx, driverActor("driver-1"), "ride-1", domain.RideStatusCompleted); !errors.Is(err, service.ErrForbiddenTransition) {
		t.Errorf("expected ErrForbiddenTransition for driver completion, got %v", err)
	}

	// A stranger rider cannot touch the ride.
	if _, err := f.svc.ManageRideStatus(ctx, riderActor("rider-2"), "ride-1", domain.RideStatusCompleted); !errors.Is(err, service.ErrNotRideOwner) {
		t.Errorf("expected ErrNotRideOwner, got %v", err)
	}
}

func TestManageRideStatusTerminalRide(t *testing.T) {
	f := newRideFixture()
	f.rides.AddRide(&domain.Ride{
		ID: "ride-1", RiderID: "rider-1", DriverID: "driver-1", Status: domain.RideStatusCompleted,
	})

	_, err := f.svc.ManageRideStatus(context.Background(), driverActor("driver-1"), "ride-1", domain.RideStatusInTransit)
	if !errors.Is(err, service.ErrRideAlreadyTerminal) {
		t.Fatalf("expected ErrRideAlreadyTerminal, got %v", err)
	}
}

func TestCancelRide(t *testing.T) {
	f := newRideFixture()
	f.addEligibleDriver("driver-1")
	f.seedSecuredRide("ride-1", "rider-1")
	// Payment still awaiting checkout.
	f.payments.Payment("pay-ride-1").Status = domain.PaymentStatusUnpaid

	if err := f.svc.CancelRide(context.Background(), "rider-1", "ride-1"); err != nil {
		t.Fatalf("CancelRide failed: %v", err)
	}

	ride := f.rides.Ride("ride-1")
	if ride.Status != domain.RideStatusCancelled {
		t.Fatalf("expected CANCELLED, got %s", ride.Status)
	}
	if got := f.payments.Payment("pay-ride-1").Status; got != domain.PaymentStatusCancelled {
		t.Errorf("expected payment CANCELLED, got %s", got)
	}
	if len(ride.StatusHistory) != 1 || ride.StatusHistory[0].Status != domain.RideStatusCancelled {
		t.Errorf("expected one CANCELLED history entry, got %+v", ride.StatusHistory)
	}
}

func TestCancelRideRules(t *testing.T) {
	f := newRideFixture()
	f.seedAcceptedRide("ride-1", "rider-1", "driver-1")
	ctx := context.Background()

	// Once a driver is committed the rider can no longer cancel.
	if err := f.svc.CancelRide(ctx, "rider-1", "ride-1"); !errors.Is(err, service.ErrRideNotCancellable) {
		t.Errorf("expected ErrRideNotCancellable, got %v", err)
	}

	f.rides.AddRide(&domain.Ride{ID: "ride-2", RiderID: "rider-1", Status: domain.RideStatusRequested})
	if err := f.svc.CancelRide(ctx, "rider-2", "ride-2"); !errors.Is(err, service.ErrNotRideOwner) {
		t.Errorf("expected ErrNotRideOwner, got %v", err)
	}
	if err := f.svc.CancelRide(ctx, "rider-1", "ghost"); !errors.Is(err, service.ErrRideNotFound) {
		t.Errorf("expected ErrRideNotFound, got %v", err)
	}
}

func TestGetRidesScoping(t *testing.T) {
	f := newRideFixture()
	f.rides.AddRide(&domain.Ride{ID: "ride-1", RiderID: "rider-1", Status: domain.RideStatusRequested})
	f.rides.AddRide(&domain.Ride{ID: "ride-2", RiderID: "rider-2", DriverID: "driver-1", Status: domain.RideStatusInTransit})
	f.rides.AddRide(&domain.Ride{ID: "ride-3", RiderID: "rider-2", Status: domain.RideStatusCompleted})
	ctx := context.Background()

	rides, err := f.svc.GetRides(ctx, riderActor("rider-2"))
	if err != nil {
		t.Fatalf("rider GetRides failed: %v", err)
	}
	if len(rides) != 2 {
		t.Errorf("expected rider-2 to see 2 rides, got %d", len(rides))
	}

	// Driver sees the open pool plus their assignment.
	rides, err = f.svc.GetRides(ctx, driverActor("driver-1"))
	if err != nil {
		t.Fatalf("driver GetRides failed: %v", err)
	}
	if len(rides) != 2 {
		t.Errorf("expected driver-1 to see 2 rides, got %d", len(rides))
	}

	rides, err = f.svc.GetRides(ctx, domain.Actor{ID: "ops", Role: domain.RoleAdmin})
	if err != nil {
		t.Fatalf("admin GetRides failed: %v", err)
	}
	if len(rides) != 3 {
		t.Errorf("expected admin to see all 3 rides, got %d", len(rides))
	}
}
