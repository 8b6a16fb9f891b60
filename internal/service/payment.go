package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"ridehail/internal/domain"
	"ridehail/internal/repository"
)

// Gateway is the external payment processor. It only needs to produce a
// checkout URL; the outcome comes back through HandleGatewayResult.
type Gateway interface {
	CreateCheckout(ctx context.Context, amount float64, transactionID string) (string, error)
}

// MockGateway is a stand-in processor for development and tests. It accepts
// every checkout and returns a deterministic URL.
type MockGateway struct {
	BaseURL string
}

// NewMockGateway creates a MockGateway rooted at baseURL.
func NewMockGateway(baseURL string) *MockGateway {
	if baseURL == "" {
		baseURL = "https://pay.example.com"
	}
	return &MockGateway{BaseURL: baseURL}
}

func (g *MockGateway) CreateCheckout(_ context.Context, amount float64, transactionID string) (string, error) {
	return fmt.Sprintf("%s/checkout/%s?amount=%.2f", g.BaseURL, transactionID, amount), nil
}

var _ Gateway = (*MockGateway)(nil)

// GatewayResult is the outcome reported by the payment processor callback.
type GatewayResult string

const (
	GatewayResultPaid      GatewayResult = "paid"
	GatewayResultFailed    GatewayResult = "failed"
	GatewayResultCancelled GatewayResult = "cancelled"
)

// PaymentService implements the payment ledger: checkout initiation, the
// gateway callback, and the hold/release transitions tied to the ride
// lifecycle.
type PaymentService struct {
	payments repository.PaymentRepository
	rides    repository.RideRepository
	gateway  Gateway
	notifier Notifier
}

// NewPaymentService creates a new PaymentService.
func NewPaymentService(
	payments repository.PaymentRepository,
	rides repository.RideRepository,
	gateway Gateway,
	notifier Notifier,
) *PaymentService {
	return &PaymentService{
		payments: payments,
		rides:    rides,
		gateway:  gateway,
		notifier: notifier,
	}
}

// InitiatePayment starts checkout for a ride's payment and returns the
// redirect URL. Only an UNPAID payment can start checkout.
func (s *PaymentService) InitiatePayment(ctx context.Context, rideID string) (string, error) {
	if rideID == "" {
		return "", ErrInvalidRideID
	}

	payment, err := s.paymentForRide(ctx, rideID)
	if err != nil {
		return "", err
	}
	if payment.Status != domain.PaymentStatusUnpaid {
		return "", ErrPaymentNotPayable
	}

	url, err := s.gateway.CreateCheckout(ctx, payment.Amount, payment.TransactionID)
	if err != nil {
		return "", fmt.Errorf("creating checkout: %w", err)
	}
	return url, nil
}

// HandleGatewayResult applies a processor callback. A paid result secures
// the payment and flags the ride; failed or cancelled results void the
// payment and cancel the still-open ride.
func (s *PaymentService) HandleGatewayResult(ctx context.Context, transactionID string, result GatewayResult) error {
	if transactionID == "" {
		return ErrPaymentNotFound
	}

	payment, err := s.payments.GetByTransactionID(ctx, transactionID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrPaymentNotFound
		}
		return fmt.Errorf("loading payment: %w", err)
	}
	if payment.Status != domain.PaymentStatusUnpaid {
		return ErrPaymentNotPayable
	}

	switch result {
	case GatewayResultPaid:
		err := s.payments.UpdateStatusIf(ctx, payment.ID, domain.PaymentStatusUnpaid, domain.PaymentStatusPaid)
		if errors.Is(err, repository.ErrConflict) {
			return ErrPaymentNotPayable
		}
		if err != nil {
			return fmt.Errorf("marking payment paid: %w", err)
		}
		if payment.RideID != "" {
			if err := s.rides.SetPaymentFlags(ctx, payment.RideID, true, false); err != nil {
				log.Printf("gateway: flagging ride %s after payment %s: %v", payment.RideID, payment.ID, err)
			}
		}
		return nil

	case GatewayResultFailed, GatewayResultCancelled:
		to := domain.PaymentStatusFailed
		if result == GatewayResultCancelled {
			to = domain.PaymentStatusCancelled
		}
		err := s.payments.UpdateStatusIf(ctx, payment.ID, domain.PaymentStatusUnpaid, to)
		if errors.Is(err, repository.ErrConflict) {
			return ErrPaymentNotPayable
		}
		if err != nil {
			return fmt.Errorf("voiding payment: %w", err)
		}
		s.cancelRideForPayment(ctx, payment, string(result))
		return nil

	default:
		return fmt.Errorf("unknown gateway result %q", result)
	}
}

// cancelRideForPayment closes the ride linked to a failed or abandoned
// checkout. Only a still-open ride is cancelled; anything later is left for
// the operators.
func (s *PaymentService) cancelRideForPayment(ctx context.Context, payment *domain.Payment, reason string) {
	if payment.RideID == "" {
		return
	}
	err := s.rides.UpdateStatusIf(ctx, payment.RideID, domain.RideStatusRequested, domain.RideStatusCancelled, repository.RideUpdate{})
	if err != nil {
		if !errors.Is(err, repository.ErrConflict) {
			log.Printf("gateway: cancelling ride %s after payment %s: %v", payment.RideID, payment.ID, err)
		}
		return
	}
	entry := domain.StatusChange{
		Status:    domain.RideStatusCancelled,
		ChangedBy: "payment-gateway",
		ChangedAt: time.Now().UTC(),
		Reason:    "payment " + reason,
	}
	if err := s.rides.AppendStatusHistory(ctx, payment.RideID, entry); err != nil {
		log.Printf("gateway: recording cancellation on ride %s: %v", payment.RideID, err)
	}
}

// Hold binds a PAID payment to the committed driver.
func (s *PaymentService) Hold(ctx context.Context, paymentID, driverID string) error {
	if paymentID == "" {
		return ErrPaymentNotFound
	}
	if driverID == "" {
		return ErrInvalidActor
	}

	err := s.payments.MarkHeldIf(ctx, paymentID, driverID, time.Now().UTC())
	if errors.Is(err, repository.ErrNotFound) {
		return ErrPaymentNotFound
	}
	if errors.Is(err, repository.ErrConflict) {
		return ErrPaymentNotHoldable
	}
	if err != nil {
		return fmt.Errorf("holding payment: %w", err)
	}

	payment, err := s.payments.GetByID(ctx, paymentID)
	if err != nil {
		return nil
	}
	if payment.RideID != "" {
		if err := s.rides.SetPaymentFlags(ctx, payment.RideID, true, false); err != nil {
			log.Printf("hold: flagging ride %s: %v", payment.RideID, err)
		}
	}
	s.notifier.PaymentHeld(ctx, payment)
	return nil
}

// Release moves a HELD payment to RELEASED. The linked ride must already be
// COMPLETED.
func (s *PaymentService) Release(ctx context.Context, paymentID string) error {
	if paymentID == "" {
		return ErrPaymentNotFound
	}

	payment, err := s.payments.GetByID(ctx, paymentID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrPaymentNotFound
		}
		return fmt.Errorf("loading payment: %w", err)
	}
	if payment.Status != domain.PaymentStatusHeld {
		return ErrPaymentNotReleasable
	}

	if payment.RideID != "" {
		ride, err := s.rides.GetByID(ctx, payment.RideID)
		if err != nil && !errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("loading ride: %w", err)
		}
		if ride != nil && ride.Status != domain.RideStatusCompleted {
			return ErrRideNotCompleted
		}
	}

	err = s.payments.MarkReleasedIf(ctx, paymentID, time.Now().UTC())
	if errors.Is(err, repository.ErrConflict) {
		return ErrPaymentNotReleasable
	}
	if err != nil {
		return fmt.Errorf("releasing payment: %w", err)
	}

	if payment.RideID != "" {
		if err := s.rides.SetPaymentFlags(ctx, payment.RideID, true, true); err != nil {
			log.Printf("release: flagging ride %s: %v", payment.RideID, err)
		}
	}
	payment.Status = domain.PaymentStatusReleased
	s.notifier.PaymentReleased(ctx, payment)
	return nil
}

// GetPayment returns one payment by id.
func (s *PaymentService) GetPayment(ctx context.Context, paymentID string) (*domain.Payment, error) {
	payment, err := s.payments.GetByID(ctx, paymentID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrPaymentNotFound
		}
		return nil, fmt.Errorf("loading payment: %w", err)
	}
	return payment, nil
}

// paymentForRide resolves a ride's payment, preferring the ride's stored
// payment id and falling back to the ride id index.
func (s *PaymentService) paymentForRide(ctx context.Context, rideID string) (*domain.Payment, error) {
	ride, err := s.rides.GetByID(ctx, rideID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrRideNotFound
		}
		return nil, fmt.Errorf("loading ride: %w", err)
	}

	if ride.PaymentID != "" {
		payment, err := s.payments.GetByID(ctx, ride.PaymentID)
		if err == nil {
			return payment, nil
		}
		if !errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("loading payment: %w", err)
		}
	}

	payment, err := s.payments.GetByRideID(ctx, rideID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrPaymentNotFound
		}
		return nil, fmt.Errorf("loading payment: %w", err)
	}
	return payment, nil
}
