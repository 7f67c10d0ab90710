package domain

import "time"

// Role represents what a user is allowed to do.
type Role string

const (
	RoleCustomer Role = "customer"
	RoleDriver   Role = "driver"
	RoleAdmin    Role = "admin"
)

// User represents a customer, driver or administrator.
type User struct {
	ID               string
	Name             string
	Email            string
	Phone            string
	Role             Role
	EmailVerified    bool
	AvailableBalance int64
	LedgerBalance    int64
	CreatedAt        time.Time
}

// CanPay reports whether the available balance covers amount.
func (u *User) CanPay(amount int64) bool {
	return u.AvailableBalance >= amount
}

// Actor is the authenticated caller of an operation. System is set for
// background work such as the dispatch sweep.
type Actor struct {
	ID     string
	Role   Role
	System bool
}

// SystemActor is used by background processes.
var SystemActor = Actor{System: true}

// Is reports whether the actor has role.
func (a Actor) Is(role Role) bool {
	return !a.System && a.Role == role
}
