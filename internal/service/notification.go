package service

import (
	"context"
	"log"

	"ridehail/internal/domain"
)

// Notifier receives lifecycle events. Delivery is best effort; callers never
// fail an operation because a notification could not be sent.
type Notifier interface {
	RideRequested(ctx context.Context, ride *domain.Ride)
	DriverAccepted(ctx context.Context, ride *domain.Ride, driverID string)
	RideStatusChanged(ctx context.Context, ride *domain.Ride, from, to domain.RideStatus)
	RideCancelled(ctx context.Context, ride *domain.Ride, cancelledBy string)
	PaymentHeld(ctx context.Context, payment *domain.Payment)
	PaymentReleased(ctx context.Context, payment *domain.Payment)
}

// LogNotifier writes events to the process log. It stands in for push or SMS
// delivery in environments without a real notification backend.
type LogNotifier struct{}

// NewLogNotifier creates a new LogNotifier.
func NewLogNotifier() *LogNotifier {
	return &LogNotifier{}
}

func (n *LogNotifier) RideRequested(_ context.Context, ride *domain.Ride) {
	log.Printf("notify: ride %s requested by rider %s", ride.ID, ride.RiderID)
}

func (n *LogNotifier) DriverAccepted(_ context.Context, ride *domain.Ride, driverID string) {
	log.Printf("notify: ride %s accepted driver %s", ride.ID, driverID)
}

func (n *LogNotifier) RideStatusChanged(_ context.Context, ride *domain.Ride, from, to domain.RideStatus) {
	log.Printf("notify: ride %s moved %s -> %s", ride.ID, from, to)
}

func (n *LogNotifier) RideCancelled(_ context.Context, ride *domain.Ride, cancelledBy string) {
	log.Printf("notify: ride %s cancelled by %s", ride.ID, cancelledBy)
}

func (n *LogNotifier) PaymentHeld(_ context.Context, payment *domain.Payment) {
	log.Printf("notify: payment %s held for ride %s", payment.ID, payment.RideID)
}

func (n *LogNotifier) PaymentReleased(_ context.Context, payment *domain.Payment) {
	log.Printf("notify: payment %s released for ride %s", payment.ID, payment.RideID)
}

var _ Notifier = (*LogNotifier)(nil)
