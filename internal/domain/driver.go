package domain

import "time"

// RegistrationStatus represents the review state of a driver application.
type RegistrationStatus string

const (
	RegistrationPending  RegistrationStatus = "pending"
	RegistrationAccepted RegistrationStatus = "accepted"
	RegistrationRejected RegistrationStatus = "rejected"
)

// RideStatus represents the review state of the vehicle a driver registered.
type RideStatus string

const (
	RideStatusPending  RideStatus = "pending"
	RideStatusApproved RideStatus = "approved"
	RideStatusDeclined RideStatus = "declined"
)

// Driver is the driver-specific view of a user.
type Driver struct {
	UserID               string
	Name                 string
	Phone                string
	VehicleID            string
	Registration         RegistrationStatus
	RideStatus           RideStatus
	EmailVerified        bool
	Online               bool
	Location             *Coordinates
	LocationUpdatedAt    time.Time
	RejectedOrdersCount  int
	CompletedOrdersCount int
}

// Eligible reports whether the driver may be offered an order for vehicleID,
// ignoring location.
func (d *Driver) Eligible(vehicleID string) bool {
	return d.EmailVerified &&
		d.Registration == RegistrationAccepted &&
		d.RideStatus == RideStatusApproved &&
		d.Online &&
		d.VehicleID == vehicleID
}
