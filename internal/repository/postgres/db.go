package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/lib/pq"

	"delivery/internal/repository"
)

// Querier is an interface satisfied by both *sql.DB and *sql.Tx.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// Ensure interfaces are satisfied.
var (
	_ Querier = (*sql.DB)(nil)
	_ Querier = (*sql.Tx)(nil)
)

// Store is a PostgreSQL implementation of repository.Store.
type Store struct {
	db *sql.DB
}

// NewStore creates a new PostgreSQL store.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// Repos returns repositories bound to the connection pool.
func (s *Store) Repos() repository.Repositories {
	return repositories(s.db)
}

// WithinTx runs fn inside a database transaction.
func (s *Store) WithinTx(ctx context.Context, fn func(r repository.Repositories) error) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = fn(repositories(tx)); err != nil {
		return err
	}

	return tx.Commit()
}

func repositories(q Querier) repository.Repositories {
	return repository.Repositories{
		Orders:        &OrderRepository{q: q},
		Users:         &UserRepository{q: q},
		Drivers:       &DriverRepository{q: q},
		Vehicles:      &VehicleRepository{q: q},
		Transactions:  &TransactionRepository{q: q},
		Cards:         &CardRepository{q: q},
		Accounts:      &AccountRepository{q: q},
		Notifications: &NotificationRepository{q: q},
	}
}

// Ensure Store implements repository.Store.
var _ repository.Store = (*Store)(nil)

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// expectOneRow maps a zero-row write to repository.ErrNotFound.
func expectOneRow(result sql.Result) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return repository.ErrNotFound
	}

	return nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}

// stringArray never returns NULL, so "= ANY" comparisons stay well defined.
func stringArray(values []string) any {
	if values == nil {
		values = []string{}
	}
	return pq.Array(values)
}
