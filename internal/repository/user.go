package repository

import (
	"context"

	"delivery/internal/domain"
)

// BalanceChange is an amount applied to both balances of a user.
type BalanceChange struct {
	Available int64
	Ledger    int64
}

// UserRepository defines the persistence operations for users and their balances.
type UserRepository interface {
	// GetByID retrieves a user by ID.
	GetByID(ctx context.Context, id string) (*domain.User, error)

	// Debit subtracts from the balances if the available balance covers
	// change.Available. Returns ErrInsufficientBalance otherwise.
	Debit(ctx context.Context, userID string, change BalanceChange) error

	// Credit adds to the balances.
	Credit(ctx context.Context, userID string, change BalanceChange) error
}
