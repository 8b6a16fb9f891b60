package repository

import (
	"context"
	"time"

	"ridehail/internal/domain"
)

// PaymentRepository defines the persistence operations for payments.
// Status transitions are conditional and return ErrConflict when the payment
// is no longer in the expected state.
type PaymentRepository interface {
	// Create persists a new payment.
	Create(ctx context.Context, payment *domain.Payment) error

	// GetByID retrieves a payment by ID.
	GetByID(ctx context.Context, id string) (*domain.Payment, error)

	// GetByRideID retrieves the payment linked to a ride.
	GetByRideID(ctx context.Context, rideID string) (*domain.Payment, error)

	// GetByTransactionID retrieves a payment by its unique transaction id.
	GetByTransactionID(ctx context.Context, transactionID string) (*domain.Payment, error)

	// SetRideID backlinks a payment to the ride created after it.
	SetRideID(ctx context.Context, paymentID, rideID string) error

	// UpdateStatusIf transitions the payment from one status to another.
	UpdateStatusIf(ctx context.Context, id string, from, to domain.PaymentStatus) error

	// MarkHeldIf transitions PAID -> HELD, binding the driver and stamping
	// the hold time.
	MarkHeldIf(ctx context.Context, id, driverID string, heldAt time.Time) error

	// MarkReleasedIf transitions HELD -> RELEASED, stamping the release time.
	MarkReleasedIf(ctx context.Context, id string, releasedAt time.Time) error

	// Delete removes a payment. Used to compensate when ride creation fails
	// after the payment row was written.
	Delete(ctx context.Context, id string) error
}
