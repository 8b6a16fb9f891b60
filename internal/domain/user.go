package domain

import "time"

// User represents a rider or admin account in the system.
type User struct {
	ID        string
	Name      string
	Phone     string
	Role      Role
	Active    bool
	CreatedAt time.Time
}
