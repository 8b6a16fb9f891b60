package domain

// DriverStatus is a driver's approval state.
type DriverStatus string

const (
	DriverStatusPending  DriverStatus = "PENDING"
	DriverStatusApproved DriverStatus = "APPROVED"
	DriverStatusRejected DriverStatus = "REJECTED"
)

// Availability is whether a driver is currently taking rides.
type Availability string

const (
	AvailabilityOnline  Availability = "ONLINE"
	AvailabilityOffline Availability = "OFFLINE"
)

// Driver holds a driver's matching identity: approval, availability, and
// the active flag of the backing user account.
type Driver struct {
	ID           string
	UserID       string
	Name         string
	Phone        string
	Vehicle      string
	Status       DriverStatus
	Availability Availability

	// UserActive mirrors the user account's active flag; a blocked account
	// disqualifies an otherwise approved, online driver.
	UserActive bool
}

// Eligible reports whether the driver may show interest or be matched.
func (d *Driver) Eligible() bool {
	return d.Status == DriverStatusApproved &&
		d.Availability == AvailabilityOnline &&
		d.UserActive
}
