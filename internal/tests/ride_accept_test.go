package tests

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"ridehail/internal/domain"
	"ridehail/internal/service"
)

// seedSecuredRide stores a REQUESTED ride whose payment came back PAID from
// the gateway, with the given drivers already on the interest list.
func (f *rideFixture) seedSecuredRide(rideID, riderID string, interested ...string) {
	paymentID := "pay-" + rideID
	f.rides.AddRide(&domain.Ride{
		ID:                rideID,
		RiderID:           riderID,
		Status:            domain.RideStatusRequested,
		Price:             100,
		PaymentID:         paymentID,
		PaymentHeld:       true,
		InterestedDrivers: interested,
		CreatedAt:         time.Now().UTC(),
	})
	f.payments.AddPayment(&domain.Payment{
		ID:            paymentID,
		RideID:        rideID,
		TransactionID: "TXN-" + rideID,
		Amount:        100,
		Status:        domain.PaymentStatusPaid,
	})
}

func TestShowInterest(t *testing.T) {
	f := newRideFixture()
	f.addEligibleDriver("driver-1")
	f.seedSecuredRide("ride-1", "rider-1")

	if err := f.svc.ShowInterest(context.Background(), "ride-1", "driver-1"); err != nil {
		t.Fatalf("ShowInterest failed: %v", err)
	}

	ride := f.rides.Ride("ride-1")
	if !ride.InterestedIn("driver-1") {
		t.Error("expected driver-1 on the interest list")
	}

	// A second call must not add a duplicate.
	err := f.svc.ShowInterest(context.Background(), "ride-1", "driver-1")
	if !errors.Is(err, service.ErrAlreadyInterested) {
		t.Fatalf("expected ErrAlreadyInterested, got %v", err)
	}
	if len(f.rides.Ride("ride-1").InterestedDrivers) != 1 {
		t.Error("expected interest list to stay a set")
	}
}

func TestShowInterestEligibility(t *testing.T) {
	f := newRideFixture()
	f.seedSecuredRide("ride-1", "rider-1")
	ctx := context.Background()

	f.drivers.AddDriver(&domain.Driver{
		ID: "pending", Status: domain.DriverStatusPending,
		Availability: domain.AvailabilityOnline, UserActive: true,
	})
	if err := f.svc.ShowInterest(ctx, "ride-1", "pending"); !errors.Is(err, service.ErrDriverNotApproved) {
		t.Errorf("expected ErrDriverNotApproved, got %v", err)
	}

	f.drivers.AddDriver(&domain.Driver{
		ID: "offline", Status: domain.DriverStatusApproved,
		Availability: domain.AvailabilityOffline, UserActive: true,
	})
	if err := f.svc.ShowInterest(ctx, "ride-1", "offline"); !errors.Is(err, service.ErrDriverNotAvailable) {
		t.Errorf("expected ErrDriverNotAvailable, got %v", err)
	}

	f.drivers.AddDriver(&domain.Driver{
		ID: "inactive", Status: domain.DriverStatusApproved,
		Availability: domain.AvailabilityOnline, UserActive: false,
	})
	if err := f.svc.ShowInterest(ctx, "ride-1", "inactive"); !errors.Is(err, service.ErrDriverNotAvailable) {
		t.Errorf("expected ErrDriverNotAvailable for inactive account, got %v", err)
	}

	if err := f.svc.ShowInterest(ctx, "ride-1", "ghost"); !errors.Is(err, service.ErrDriverNotFound) {
		t.Errorf("expected ErrDriverNotFound, got %v", err)
	}
}

func TestShowInterestRideNotOpen(t *testing.T) {
	f := newRideFixture()
	f.addEligibleDriver("driver-1")
	f.rides.AddRide(&domain.Ride{
		ID: "ride-1", RiderID: "rider-1", Status: domain.RideStatusAccepted, DriverID: "other",
	})

	err := f.svc.ShowInterest(context.Background(), "ride-1", "driver-1")
	if !errors.Is(err, service.ErrRideNotRequestable) {
		t.Fatalf("expected ErrRideNotRequestable, got %v", err)
	}
}

func TestShowInterestBusyDriver(t *testing.T) {
	f := newRideFixture()
	f.addEligibleDriver("driver-1")
	f.seedSecuredRide("ride-1", "rider-1")
	f.rides.AddRide(&domain.Ride{
		ID: "ride-2", RiderID: "rider-2", Status: domain.RideStatusInTransit, DriverID: "driver-1",
	})

	err := f.svc.ShowInterest(context.Background(), "ride-1", "driver-1")
	if !errors.Is(err, service.ErrDriverBusy) {
		t.Fatalf("expected ErrDriverBusy, got %v", err)
	}
}

func TestAcceptDriver(t *testing.T) {
	f := newRideFixture()
	f.addEligibleDriver("driver-1")
	f.seedSecuredRide("ride-1", "rider-1", "driver-1")
	f.seedSecuredRide("ride-2", "rider-2", "driver-1")

	ride, err := f.svc.AcceptDriver(context.Background(), "rider-1", "ride-1", "driver-1", "pay-ride-1")
	if err != nil {
		t.Fatalf("AcceptDriver failed: %v", err)
	}

	if ride.Status != domain.RideStatusAccepted {
		t.Errorf("expected ACCEPTED, got %s", ride.Status)
	}
	if ride.DriverID != "driver-1" {
		t.Errorf("expected driver-1 assigned, got %q", ride.DriverID)
	}
	if ride.PickupTime.IsZero() {
		t.Error("expected pickup time to be set")
	}

	payment := f.payments.Payment("pay-ride-1")
	if payment.Status != domain.PaymentStatusHeld {
		t.Errorf("expected payment HELD, got %s", payment.Status)
	}
	if payment.DriverID != "driver-1" {
		t.Errorf("expected payment bound to driver-1, got %q", payment.DriverID)
	}

	// Interest on other open rides is withdrawn once the driver commits.
	if f.rides.Ride("ride-2").InterestedIn("driver-1") {
		t.Error("expected driver-1 removed from ride-2 interest list")
	}

	// Lock is released after the acceptance.
	if f.locks.ReleaseCallCount != 1 {
		t.Errorf("expected one lock release, got %d", f.locks.ReleaseCallCount)
	}
}

func TestAcceptDriverDefaultsToRidePayment(t *testing.T) {
	f := newRideFixture()
	f.addEligibleDriver("driver-1")
	f.seedSecuredRide("ride-1", "rider-1", "driver-1")

	// No payment id supplied; the ride's own payment is used.
	ride, err := f.svc.AcceptDriver(context.Background(), "rider-1", "ride-1", "driver-1", "")
	if err != nil {
		t.Fatalf("accept without payment id failed: %v", err)
	}
	if ride.Status != domain.RideStatusAccepted || ride.DriverID != "driver-1" {
		t.Fatalf("expected ACCEPTED with driver-1, got %s/%q", ride.Status, ride.DriverID)
	}
	if got := f.payments.Payment("pay-ride-1").Status; got != domain.PaymentStatusHeld {
		t.Errorf("expected ride's payment HELD, got %s", got)
	}
}

func TestAcceptDriverGates(t *testing.T) {
	f := newRideFixture()
	f.addEligibleDriver("driver-1")
	f.seedSecuredRide("ride-1", "rider-1", "driver-1")
	ctx := context.Background()

	if _, err := f.svc.AcceptDriver(ctx, "rider-2", "ride-1", "driver-1", "pay-ride-1"); !errors.Is(err, service.ErrNotRideOwner) {
		t.Errorf("expected ErrNotRideOwner, got %v", err)
	}
	if _, err := f.svc.AcceptDriver(ctx, "rider-1", "ride-1", "driver-1", "pay-other"); !errors.Is(err, service.ErrPaymentNotFound) {
		t.Errorf("expected ErrPaymentNotFound, got %v", err)
	}

	f.payments.AddPayment(&domain.Payment{
		ID: "pay-stray", RideID: "other-ride", Status: domain.PaymentStatusPaid, TransactionID: "TXN-stray",
	})
	if _, err := f.svc.AcceptDriver(ctx, "rider-1", "ride-1", "driver-1", "pay-stray"); !errors.Is(err, service.ErrPaymentMismatch) {
		t.Errorf("expected ErrPaymentMismatch, got %v", err)
	}

	f.addEligibleDriver("driver-2")
	if _, err := f.svc.AcceptDriver(ctx, "rider-1", "ride-1", "driver-2", "pay-ride-1"); !errors.Is(err, service.ErrDriverNotInterested) {
		t.Errorf("expected ErrDriverNotInterested, got %v", err)
	}
}

func TestAcceptDriverUnsecuredPayment(t *testing.T) {
	f := newRideFixture()
	f.addEligibleDriver("driver-1")
	f.rides.AddRide(&domain.Ride{
		ID:                "ride-1",
		RiderID:           "rider-1",
		Status:            domain.RideStatusRequested,
		PaymentID:         "pay-1",
		InterestedDrivers: []string{"driver-1"},
	})
	f.payments.AddPayment(&domain.Payment{
		ID: "pay-1", RideID: "ride-1", Status: domain.PaymentStatusUnpaid, TransactionID: "TXN-1",
	})

	_, err := f.svc.AcceptDriver(context.Background(), "rider-1", "ride-1", "driver-1", "pay-1")
	if !errors.Is(err, service.ErrPaymentNotReady) {
		t.Fatalf("expected ErrPaymentNotReady, got %v", err)
	}
	if f.rides.Ride("ride-1").Status != domain.RideStatusRequested {
		t.Error("expected ride to stay REQUESTED")
	}
}

func TestAcceptDriverSecondAcceptLoses(t *testing.T) {
	f := newRideFixture()
	f.addEligibleDriver("driver-1")
	f.addEligibleDriver("driver-2")
	f.seedSecuredRide("ride-1", "rider-1", "driver-1", "driver-2")

	if _, err := f.svc.AcceptDriver(context.Background(), "rider-1", "ride-1", "driver-1", "pay-ride-1"); err != nil {
		t.Fatalf("first accept failed: %v", err)
	}

	_, err := f.svc.AcceptDriver(context.Background(), "rider-1", "ride-1", "driver-2", "pay-ride-1")
	if !errors.Is(err, service.ErrRideNotAcceptable) {
		t.Fatalf("expected ErrRideNotAcceptable for second accept, got %v", err)
	}

	ride := f.rides.Ride("ride-1")
	if ride.DriverID != "driver-1" {
		t.Errorf("expected driver-1 to keep the ride, got %q", ride.DriverID)
	}
}

func TestAcceptDriverConcurrentRidesOneWinner(t *testing.T) {
	f := newRideFixture()
	f.addEligibleDriver("driver-1")
	f.seedSecuredRide("ride-1", "rider-1", "driver-1")
	f.seedSecuredRide("ride-2", "rider-2", "driver-1")

	var wg sync.WaitGroup
	errs := make([]error, 2)

	wg.Add(2)
	go func() {
		defer wg.Done()
		_, errs[0] = f.svc.AcceptDriver(context.Background(), "rider-1", "ride-1", "driver-1", "pay-ride-1")
	}()
	go func() {
		defer wg.Done()
		_, errs[1] = f.svc.AcceptDriver(context.Background(), "rider-2", "ride-2", "driver-1", "pay-ride-2")
	}()
	wg.Wait()

	wins := 0
	for _, err := range errs {
		if err == nil {
			wins++
			continue
		}
		if !errors.Is(err, service.ErrDriverBusy) && !errors.Is(err, service.ErrRideNotAcceptable) && !errors.Is(err, service.ErrPaymentNotReady) {
			t.Errorf("unexpected loser error: %v", err)
		}
	}
	if wins != 1 {
		t.Fatalf("expected exactly one winning accept, got %d", wins)
	}

	assigned := 0
	for _, id := range []string{"ride-1", "ride-2"} {
		if f.rides.Ride(id).DriverID == "driver-1" && f.rides.Ride(id).Status == domain.RideStatusAccepted {
			assigned++
		}
	}
	if assigned != 1 {
		t.Fatalf("expected driver-1 assigned to exactly one ride, got %d", assigned)
	}
}

func TestAcceptDriverLockContention(t *testing.T) {
	f := newRideFixture()
	f.addEligibleDriver("driver-1")
	f.seedSecuredRide("ride-1", "rider-1", "driver-1")

	// Another acceptance currently holds the driver lock.
	if ok, _ := f.locks.AcquireDriverLock(context.Background(), "driver-1", time.Second); !ok {
		t.Fatal("seed lock acquire failed")
	}

	_, err := f.svc.AcceptDriver(context.Background(), "rider-1", "ride-1", "driver-1", "pay-ride-1")
	if !errors.Is(err, service.ErrDriverBusy) {
		t.Fatalf("expected ErrDriverBusy while lock is held, got %v", err)
	}
}
