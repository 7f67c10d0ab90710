package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"delivery/internal/domain"
	"delivery/internal/repository"
)

// TransactionRepository is a PostgreSQL implementation of repository.TransactionRepository.
type TransactionRepository struct {
	q Querier
}

// NewTransactionRepository creates a new PostgreSQL transaction repository.
func NewTransactionRepository(db *sql.DB) *TransactionRepository {
	return &TransactionRepository{q: db}
}

// NewTransactionRepositoryWithTx creates a transaction repository using a transaction.
func NewTransactionRepositoryWithTx(tx *sql.Tx) *TransactionRepository {
	return &TransactionRepository{q: tx}
}

// Create appends a ledger record.
func (r *TransactionRepository) Create(ctx context.Context, t *domain.Transaction) error {
	meta, err := encodeMeta(t.Meta)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO transactions (id, user_id, order_id, amount, currency, type, note, reference, meta)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at
	`

	err = r.q.QueryRowContext(ctx, query,
		t.ID,
		t.UserID,
		nullString(t.OrderID),
		t.Amount,
		t.Currency,
		t.Type,
		t.Note,
		nullString(t.Reference),
		meta,
	).Scan(&t.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return repository.ErrDuplicate
		}
		return err
	}

	return nil
}

const transactionColumns = `id, user_id, order_id, amount, currency, type, note, reference, meta, created_at`

// GetByID retrieves a transaction by ID.
func (r *TransactionRepository) GetByID(ctx context.Context, id string) (*domain.Transaction, error) {
	return r.get(ctx, `SELECT `+transactionColumns+` FROM transactions WHERE id = $1`, id)
}

// GetForUpdate retrieves a transaction and locks its row.
func (r *TransactionRepository) GetForUpdate(ctx context.Context, id string) (*domain.Transaction, error) {
	return r.get(ctx, `SELECT `+transactionColumns+` FROM transactions WHERE id = $1 FOR UPDATE`, id)
}

func (r *TransactionRepository) get(ctx context.Context, query string, id string) (*domain.Transaction, error) {
	var t domain.Transaction
	var orderID, reference sql.NullString
	var meta []byte

	err := r.q.QueryRowContext(ctx, query, id).Scan(
		&t.ID,
		&t.UserID,
		&orderID,
		&t.Amount,
		&t.Currency,
		&t.Type,
		&t.Note,
		&reference,
		&meta,
		&t.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}

	t.OrderID = orderID.String
	t.Reference = reference.String

	if len(meta) > 0 {
		var m domain.TransactionMeta
		if err := json.Unmarshal(meta, &m); err != nil {
			return nil, fmt.Errorf("decode meta of transaction %s: %w", t.ID, err)
		}
		t.Meta = &m
	}

	return &t, nil
}

// ExistsByReference reports whether a gateway reference is recorded.
func (r *TransactionRepository) ExistsByReference(ctx context.Context, reference string) (bool, error) {
	var exists bool
	err := r.q.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM transactions WHERE reference = $1)`, reference).Scan(&exists)
	return exists, err
}

// UpdateMeta replaces the withdrawal meta and reference.
func (r *TransactionRepository) UpdateMeta(ctx context.Context, id string, meta domain.TransactionMeta, reference string) error {
	encoded, err := encodeMeta(&meta)
	if err != nil {
		return err
	}

	query := `UPDATE transactions SET meta = $1, reference = COALESCE($2, reference) WHERE id = $3`

	result, err := r.q.ExecContext(ctx, query, encoded, nullString(reference), id)
	if err != nil {
		if isUniqueViolation(err) {
			return repository.ErrDuplicate
		}
		return err
	}

	return expectOneRow(result)
}

// encodeMeta returns an untyped nil for a missing meta so it is stored as NULL.
func encodeMeta(meta *domain.TransactionMeta) (any, error) {
	if meta == nil {
		return nil, nil
	}
	encoded, err := json.Marshal(meta)
	if err != nil {
		return nil, fmt.Errorf("encode transaction meta: %w", err)
	}
	return encoded, nil
}

// CardRepository is a PostgreSQL implementation of repository.CardRepository.
type CardRepository struct {
	q Querier
}

// NewCardRepository creates a new PostgreSQL card repository.
func NewCardRepository(db *sql.DB) *CardRepository {
	return &CardRepository{q: db}
}

// GetByID retrieves a card by ID.
func (r *CardRepository) GetByID(ctx context.Context, id string) (*domain.Card, error) {
	query := `
		SELECT id, user_id, email, authorization_code, signature, last4, brand, exp_month, exp_year, reusable, created_at
		FROM cards WHERE id = $1
	`

	var card domain.Card
	err := r.q.QueryRowContext(ctx, query, id).Scan(
		&card.ID,
		&card.UserID,
		&card.Email,
		&card.AuthorizationCode,
		&card.Signature,
		&card.Last4,
		&card.Brand,
		&card.ExpMonth,
		&card.ExpYear,
		&card.Reusable,
		&card.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}

	return &card, nil
}

// Save stores a card unless the user already has the same signature.
func (r *CardRepository) Save(ctx context.Context, card *domain.Card) (bool, error) {
	query := `
		INSERT INTO cards (id, user_id, email, authorization_code, signature, last4, brand, exp_month, exp_year, reusable)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (user_id, signature) DO NOTHING
	`

	result, err := r.q.ExecContext(ctx, query,
		card.ID,
		card.UserID,
		card.Email,
		card.AuthorizationCode,
		card.Signature,
		card.Last4,
		card.Brand,
		card.ExpMonth,
		card.ExpYear,
		card.Reusable,
	)
	if err != nil {
		return false, err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}

	return rowsAffected == 1, nil
}

// AccountRepository is a PostgreSQL implementation of repository.AccountRepository.
type AccountRepository struct {
	q Querier
}

// NewAccountRepository creates a new PostgreSQL account repository.
func NewAccountRepository(db *sql.DB) *AccountRepository {
	return &AccountRepository{q: db}
}

// GetByID retrieves an account by ID.
func (r *AccountRepository) GetByID(ctx context.Context, id string) (*domain.Account, error) {
	query := `
		SELECT id, user_id, account_name, account_number, bank_code, COALESCE(recipient_code, '')
		FROM accounts WHERE id = $1
	`

	var account domain.Account
	err := r.q.QueryRowContext(ctx, query, id).Scan(
		&account.ID,
		&account.UserID,
		&account.AccountName,
		&account.AccountNumber,
		&account.BankCode,
		&account.RecipientCode,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}

	return &account, nil
}

// SetRecipientCode stores the gateway transfer recipient for an account.
func (r *AccountRepository) SetRecipientCode(ctx context.Context, id string, code string) error {
	result, err := r.q.ExecContext(ctx, `UPDATE accounts SET recipient_code = $1 WHERE id = $2`, code, id)
	if err != nil {
		return err
	}

	return expectOneRow(result)
}

// Ensure the repositories implement their interfaces.
var (
	_ repository.TransactionRepository = (*TransactionRepository)(nil)
	_ repository.CardRepository        = (*CardRepository)(nil)
	_ repository.AccountRepository     = (*AccountRepository)(nil)
)
