package domain

import "time"

// RideStatus represents the current status of a ride.
type RideStatus string

const (
	RideStatusRequested RideStatus = "REQUESTED"
	RideStatusAccepted  RideStatus = "ACCEPTED"
	RideStatusPickedUp  RideStatus = "PICKED_UP"
	RideStatusInTransit RideStatus = "IN_TRANSIT"
	RideStatusCompleted RideStatus = "COMPLETED"
	RideStatusCancelled RideStatus = "CANCELLED"
)

// Active reports whether a ride in this status still occupies its driver.
func (s RideStatus) Active() bool {
	return s == RideStatusAccepted || s == RideStatusPickedUp || s == RideStatusInTransit
}

// Terminal reports whether the status admits no further transitions.
func (s RideStatus) Terminal() bool {
	return s == RideStatusCompleted || s == RideStatusCancelled
}

// GeoPoint is a latitude/longitude pair.
type GeoPoint struct {
	Lat float64
	Lng float64
}

// StatusChange is one entry of a ride's append-only status audit trail.
type StatusChange struct {
	Status    RideStatus
	ChangedBy string
	ChangedAt time.Time
	Reason    string
}

// AdminNote is an operator note attached to a ride.
type AdminNote struct {
	Note      string
	CreatedBy string
	CreatedAt time.Time
}

// Ride represents one trip request, tracked through its status lifecycle.
type Ride struct {
	ID      string
	RiderID string

	// DriverID is empty until a driver is accepted or force-assigned.
	DriverID string

	Status      RideStatus
	Pickup      GeoPoint
	Destination GeoPoint
	Price       float64

	// PaymentID links the 1:1 payment record created with the ride.
	PaymentID       string
	PaymentHeld     bool
	PaymentReleased bool

	// InterestedDrivers holds ids of drivers who opted in while the ride
	// was REQUESTED. Set semantics: no duplicates, order irrelevant.
	InterestedDrivers []string

	PickupTime  time.Time
	DropoffTime time.Time

	StatusHistory []StatusChange
	AdminNotes    []AdminNote

	CreatedAt time.Time
}

// InterestedIn reports whether the driver is on the ride's interest list.
func (r *Ride) InterestedIn(driverID string) bool {
	for _, id := range r.InterestedDrivers {
		if id == driverID {
			return true
		}
	}
	return false
}

// Role identifies the kind of actor invoking an operation.
type Role string

const (
	RoleRider  Role = "RIDER"
	RoleDriver Role = "DRIVER"
	RoleAdmin  Role = "ADMIN"
)

// Actor is the party an operation runs on behalf of. Authentication happens
// upstream; the core only needs id and role.
type Actor struct {
	ID   string
	Role Role
}
