package repository

import (
	"context"

	"delivery/internal/domain"
)

// TransactionRepository defines the persistence operations for ledger records.
type TransactionRepository interface {
	// Create appends a transaction. Returns ErrDuplicate when its reference
	// is already recorded.
	Create(ctx context.Context, tx *domain.Transaction) error

	// GetByID retrieves a transaction by ID.
	GetByID(ctx context.Context, id string) (*domain.Transaction, error)

	// GetForUpdate retrieves a transaction and locks its row.
	GetForUpdate(ctx context.Context, id string) (*domain.Transaction, error)

	// ExistsByReference reports whether a gateway reference is recorded.
	ExistsByReference(ctx context.Context, reference string) (bool, error)

	// UpdateMeta replaces the withdrawal meta and reference.
	UpdateMeta(ctx context.Context, id string, meta domain.TransactionMeta, reference string) error
}

// CardRepository defines the persistence operations for stored cards.
type CardRepository interface {
	// GetByID retrieves a card by ID.
	GetByID(ctx context.Context, id string) (*domain.Card, error)

	// Save stores a card unless the user already has one with the same
	// signature. Reports whether a row was inserted.
	Save(ctx context.Context, card *domain.Card) (bool, error)
}

// AccountRepository defines the persistence operations for payout accounts.
type AccountRepository interface {
	// GetByID retrieves an account by ID.
	GetByID(ctx context.Context, id string) (*domain.Account, error)

	// SetRecipientCode stores the gateway transfer recipient for an account.
	SetRecipientCode(ctx context.Context, id string, code string) error
}
