package tests

import (
	"context"
	"errors"
	"strings"
	"testing"

	"ridehail/internal/domain"
	"ridehail/internal/service"
)

type paymentFixture struct {
	rides    *MockRideRepository
	payments *MockPaymentRepository
	svc      *service.PaymentService
}

func newPaymentFixture() *paymentFixture {
	f := &paymentFixture{
		rides:    NewMockRideRepository(),
		payments: NewMockPaymentRepository(),
	}
	f.svc = service.NewPaymentService(f.payments, f.rides, service.NewMockGateway(""), service.NewLogNotifier())
	return f
}

func (f *paymentFixture) seedUnpaidRide(rideID string) {
	paymentID := "pay-" + rideID
	f.rides.AddRide(&domain.Ride{
		ID:        rideID,
		RiderID:   "rider-1",
		Status:    domain.RideStatusRequested,
		PaymentID: paymentID,
	})
	f.payments.AddPayment(&domain.Payment{
		ID:            paymentID,
		RideID:        rideID,
		TransactionID: "TXN-" + rideID,
		Amount:        150,
		Status:        domain.PaymentStatusUnpaid,
	})
}

func TestInitiatePayment(t *testing.T) {
	f := newPaymentFixture()
	f.seedUnpaidRide("ride-1")

	url, err := f.svc.InitiatePayment(context.Background(), "ride-1")
	if err != nil {
		t.Fatalf("InitiatePayment failed: %v", err)
	}
	if !strings.Contains(url, "TXN-ride-1") {
		t.Errorf("expected checkout URL to carry the transaction id, got %q", url)
	}

	// Checkout can only start once the payment is UNPAID.
	f.payments.Payment("pay-ride-1").Status = domain.PaymentStatusPaid
	if _, err := f.svc.InitiatePayment(context.Background(), "ride-1"); !errors.Is(err, service.ErrPaymentNotPayable) {
		t.Errorf("expected ErrPaymentNotPayable, got %v", err)
	}
}

func TestWebhookPaid(t *testing.T) {
	f := newPaymentFixture()
	f.seedUnpaidRide("ride-1")

	if err := f.svc.HandleGatewayResult(context.Background(), "TXN-ride-1", service.GatewayResultPaid); err != nil {
		t.Fatalf("paid webhook failed: %v", err)
	}

	if got := f.payments.Payment("pay-ride-1").Status; got != domain.PaymentStatusPaid {
		t.Errorf("expected payment PAID, got %s", got)
	}
	if !f.rides.Ride("ride-1").PaymentHeld {
		t.Error("expected ride payment_held flag after paid webhook")
	}

	// Replayed callbacks must not re-apply.
	err := f.svc.HandleGatewayResult(context.Background(), "TXN-ride-1", service.GatewayResultPaid)
	if !errors.Is(err, service.ErrPaymentNotPayable) {
		t.Fatalf("expected ErrPaymentNotPayable on replay, got %v", err)
	}
}

func TestWebhookFailedCancelsRide(t *testing.T) {
	f := newPaymentFixture()
	f.seedUnpaidRide("ride-1")

	if err := f.svc.HandleGatewayResult(context.Background(), "TXN-ride-1", service.GatewayResultFailed); err != nil {
		t.Fatalf("failed webhook errored: %v", err)
	}

	if got := f.payments.Payment("pay-ride-1").Status; got != domain.PaymentStatusFailed {
		t.Errorf("expected payment FAILED, got %s", got)
	}
	ride := f.rides.Ride("ride-1")
	if ride.Status != domain.RideStatusCancelled {
		t.Errorf("expected ride CANCELLED, got %s", ride.Status)
	}
	if len(ride.StatusHistory) != 1 || ride.StatusHistory[0].Reason == "" {
		t.Errorf("expected one annotated cancellation entry, got %+v", ride.StatusHistory)
	}
}

func TestWebhookCancelledLeavesAcceptedRideAlone(t *testing.T) {
	f := newPaymentFixture()
	f.seedUnpaidRide("ride-1")
	// Ride moved on in the meantime (admin override while checkout was open).
	f.rides.Ride("ride-1").Status = domain.RideStatusAccepted
	f.rides.Ride("ride-1").DriverID = "driver-1"

	if err := f.svc.HandleGatewayResult(context.Background(), "TXN-ride-1", service.GatewayResultCancelled); err != nil {
		t.Fatalf("cancelled webhook errored: %v", err)
	}

	if got := f.payments.Payment("pay-ride-1").Status; got != domain.PaymentStatusCancelled {
		t.Errorf("expected payment CANCELLED, got %s", got)
	}
	if got := f.rides.Ride("ride-1").Status; got != domain.RideStatusAccepted {
		t.Errorf("expected ride left ACCEPTED, got %s", got)
	}
}

func TestWebhookUnknownTransaction(t *testing.T) {
	f := newPaymentFixture()

	err := f.svc.HandleGatewayResult(context.Background(), "TXN-ghost", service.GatewayResultPaid)
	if !errors.Is(err, service.ErrPaymentNotFound) {
		t.Fatalf("expected ErrPaymentNotFound, got %v", err)
	}
}

func TestHold(t *testing.T) {
	f := newPaymentFixture()
	f.seedUnpaidRide("ride-1")
	f.payments.Payment("pay-ride-1").Status = domain.PaymentStatusPaid

	if err := f.svc.Hold(context.Background(), "pay-ride-1", "driver-1"); err != nil {
		t.Fatalf("Hold failed: %v", err)
	}

	payment := f.payments.Payment("pay-ride-1")
	if payment.Status != domain.PaymentStatusHeld {
		t.Errorf("expected HELD, got %s", payment.Status)
	}
	if payment.DriverID != "driver-1" {
		t.Errorf("expected driver binding, got %q", payment.DriverID)
	}
	if payment.HeldAt.IsZero() {
		t.Error("expected hold time to be stamped")
	}

	// Holding twice is a precondition failure.
	if err := f.svc.Hold(context.Background(), "pay-ride-1", "driver-1"); !errors.Is(err, service.ErrPaymentNotHoldable) {
		t.Errorf("expected ErrPaymentNotHoldable, got %v", err)
	}
}

func TestHoldRequiresPaid(t *testing.T) {
	f := newPaymentFixture()
	f.seedUnpaidRide("ride-1")

	err := f.svc.Hold(context.Background(), "pay-ride-1", "driver-1")
	if !errors.Is(err, service.ErrPaymentNotHoldable) {
		t.Fatalf("expected ErrPaymentNotHoldable for UNPAID payment, got %v", err)
	}
}

func TestRelease(t *testing.T) {
	f := newPaymentFixture()
	f.seedUnpaidRide("ride-1")
	f.rides.Ride("ride-1").Status = domain.RideStatusCompleted
	f.payments.Payment("pay-ride-1").Status = domain.PaymentStatusHeld

	if err := f.svc.Release(context.Background(), "pay-ride-1"); err != nil {
		t.Fatalf("Release failed: %v", err)
	}

	payment := f.payments.Payment("pay-ride-1")
	if payment.Status != domain.PaymentStatusReleased {
		t.Errorf("expected RELEASED, got %s", payment.Status)
	}
	ride := f.rides.Ride("ride-1")
	if !ride.PaymentHeld || !ride.PaymentReleased {
		t.Errorf("expected both payment flags set, held=%v released=%v", ride.PaymentHeld, ride.PaymentReleased)
	}
}

func TestReleaseRequiresCompletedRide(t *testing.T) {
	f := newPaymentFixture()
	f.seedUnpaidRide("ride-1")
	f.rides.Ride("ride-1").Status = domain.RideStatusInTransit
	f.payments.Payment("pay-ride-1").Status = domain.PaymentStatusHeld

	err := f.svc.Release(context.Background(), "pay-ride-1")
	if !errors.Is(err, service.ErrRideNotCompleted) {
		t.Fatalf("expected ErrRideNotCompleted, got %v", err)
	}
	if got := f.payments.Payment("pay-ride-1").Status; got != domain.PaymentStatusHeld {
		t.Errorf("expected payment to stay HELD, got %s", got)
	}
}

func TestReleaseRequiresHeld(t *testing.T) {
	f := newPaymentFixture()
	f.seedUnpaidRide("ride-1")
	f.rides.Ride("ride-1").Status = domain.RideStatusCompleted

	err := f.svc.Release(context.Background(), "pay-ride-1")
	if !errors.Is(err, service.ErrPaymentNotReleasable) {
		t.Fatalf("expected ErrPaymentNotReleasable for UNPAID payment, got %v", err)
	}
}
