package repository

import "context"

// Repositories groups the repositories bound to one connection or transaction.
type Repositories struct {
	Orders        OrderRepository
	Users         UserRepository
	Drivers       DriverRepository
	Vehicles      VehicleRepository
	Transactions  TransactionRepository
	Cards         CardRepository
	Accounts      AccountRepository
	Notifications NotificationRepository
}

// Store hands out repositories and runs atomic units of work.
type Store interface {
	// Repos returns repositories that run outside any transaction.
	Repos() Repositories

	// WithinTx runs fn against transaction-scoped repositories. The
	// transaction commits if fn returns nil and rolls back otherwise.
	WithinTx(ctx context.Context, fn func(r Repositories) error) error
}
