package postgres

import (
	"context"
	"database/sql"
	"errors"

	"delivery/internal/domain"
	"delivery/internal/repository"
)

// UserRepository is a PostgreSQL implementation of repository.UserRepository.
type UserRepository struct {
	q Querier
}

// NewUserRepository creates a new PostgreSQL user repository.
func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{q: db}
}

// NewUserRepositoryWithTx creates a user repository using a transaction.
func NewUserRepositoryWithTx(tx *sql.Tx) *UserRepository {
	return &UserRepository{q: tx}
}

// GetByID retrieves a user by ID.
func (r *UserRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	query := `
		SELECT id, name, email, COALESCE(phone, ''), role, email_verified_at IS NOT NULL,
		       available_balance, ledger_balance, created_at
		FROM users WHERE id = $1
	`

	var user domain.User
	err := r.q.QueryRowContext(ctx, query, id).Scan(
		&user.ID,
		&user.Name,
		&user.Email,
		&user.Phone,
		&user.Role,
		&user.EmailVerified,
		&user.AvailableBalance,
		&user.LedgerBalance,
		&user.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}

	return &user, nil
}

// Debit subtracts from both balances when the available balance covers it.
func (r *UserRepository) Debit(ctx context.Context, userID string, change repository.BalanceChange) error {
	query := `
		UPDATE users
		SET available_balance = available_balance - $1, ledger_balance = ledger_balance - $2, updated_at = NOW()
		WHERE id = $3 AND available_balance >= $1
	`

	result, err := r.q.ExecContext(ctx, query, change.Available, change.Ledger, userID)
	if err != nil {
		return err
	}

	if err := expectOneRow(result); err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			return err
		}
		if _, err := r.GetByID(ctx, userID); err != nil {
			return err
		}
		return repository.ErrInsufficientBalance
	}

	return nil
}

// Credit adds to both balances.
func (r *UserRepository) Credit(ctx context.Context, userID string, change repository.BalanceChange) error {
	query := `
		UPDATE users
		SET available_balance = available_balance + $1, ledger_balance = ledger_balance + $2, updated_at = NOW()
		WHERE id = $3
	`

	result, err := r.q.ExecContext(ctx, query, change.Available, change.Ledger, userID)
	if err != nil {
		return err
	}

	return expectOneRow(result)
}

// Ensure UserRepository implements repository.UserRepository.
var _ repository.UserRepository = (*UserRepository)(nil)

// MessagingToken returns the device token pushes for userID are sent to,
// or "" when the user has not registered a device.
func (r *UserRepository) MessagingToken(ctx context.Context, userID string) (string, error) {
	var token sql.NullString
	err := r.q.QueryRowContext(ctx, `SELECT messaging_token FROM users WHERE id = $1`, userID).Scan(&token)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", repository.ErrNotFound
		}
		return "", err
	}
	return token.String, nil
}
