package domain

import "time"

// PaymentStatus represents the current status of a payment.
type PaymentStatus string

const (
	PaymentStatusUnpaid    PaymentStatus = "UNPAID"
	PaymentStatusPaid      PaymentStatus = "PAID"
	PaymentStatusHeld      PaymentStatus = "HELD"
	PaymentStatusFailed    PaymentStatus = "FAILED"
	PaymentStatusCancelled PaymentStatus = "CANCELLED"
	PaymentStatusReleased  PaymentStatus = "RELEASED"
)

// Payment is the 1:1 payment record for a ride. Funds move
// UNPAID -> PAID (gateway callback) -> HELD (driver committed) ->
// RELEASED (ride completed), or end in FAILED/CANCELLED.
type Payment struct {
	ID     string
	RideID string

	// DriverID is set when the payment is held for a committed driver.
	DriverID string

	TransactionID string
	Amount        float64
	Status        PaymentStatus

	HeldAt     time.Time
	ReleasedAt time.Time
	CreatedAt  time.Time
}
