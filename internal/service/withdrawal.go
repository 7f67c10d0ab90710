package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"delivery/internal/calculator"
	"delivery/internal/domain"
	"delivery/internal/paystack"
	"delivery/internal/redis"
	"delivery/internal/repository"
)

// WithdrawalReference is the gateway reference of a withdrawal's transfer.
func WithdrawalReference(transactionID string) string { return "withdrawal-" + transactionID }

// WithdrawalRequest contains the parameters for a withdrawal.
type WithdrawalRequest struct {
	Amount    int64
	AccountID string
}

// WithdrawalResult is the outcome of an admin action on a withdrawal.
// Changed is false when the withdrawal was already in the requested state.
type WithdrawalResult struct {
	Transaction *domain.Transaction
	Changed     bool
	Message     string
}

// WithdrawalService handles driver payout requests. A withdrawal moves from
// processing to confirmed once the gateway reports the transfer, or to
// rejected with the total refunded.
type WithdrawalService struct {
	store    repository.Store
	gateway  PaymentGateway
	notifier *NotificationService
	locks    redis.LockStoreInterface
	lockTTL  time.Duration
	fee      calculator.Fee
	currency string
	logger   *slog.Logger
}

// NewWithdrawalService creates a new WithdrawalService.
func NewWithdrawalService(
	store repository.Store,
	gateway PaymentGateway,
	notifier *NotificationService,
	locks redis.LockStoreInterface,
	lockTTL time.Duration,
	fee calculator.Fee,
	currency string,
	logger *slog.Logger,
) *WithdrawalService {
	if logger == nil {
		logger = slog.Default()
	}
	if lockTTL <= 0 {
		lockTTL = 30 * time.Second
	}
	return &WithdrawalService{
		store:    store,
		gateway:  gateway,
		notifier: notifier,
		locks:    locks,
		lockTTL:  lockTTL,
		fee:      fee,
		currency: currency,
		logger:   logger,
	}
}

// Request debits amount plus the transaction fee from the driver's
// available balance and queues the withdrawal for admin review.
func (s *WithdrawalService) Request(ctx context.Context, actor domain.Actor, req WithdrawalRequest) (*domain.Transaction, error) {
	if !actor.Is(domain.RoleDriver) {
		return nil, ErrForbidden
	}
	if req.Amount <= 0 {
		return nil, ErrInvalidAmount
	}

	fee, total, err := calculator.WithdrawalTotal(req.Amount, s.fee)
	if err != nil {
		return nil, err
	}

	tx := &domain.Transaction{
		ID:       uuid.New().String(),
		UserID:   actor.ID,
		Amount:   req.Amount,
		Currency: s.currency,
		Type:     domain.TransactionWithdrawal,
		Note:     fmt.Sprintf("Withdrawal of %d %s", req.Amount, s.currency),
		Meta: &domain.TransactionMeta{
			Status:    domain.WithdrawalProcessing,
			Fee:       fee,
			Total:     total,
			AccountID: req.AccountID,
		},
	}

	out := &Outbox{}
	data := withdrawalData(tx)
	out.Inbox(actor.ID, titleWithdrawal,
		fmt.Sprintf("Your withdrawal request of %d %s is being processed", req.Amount, s.currency), data)
	out.Admin(titleWithdrawal,
		fmt.Sprintf("A withdrawal request of %d %s was placed by user %s", req.Amount, s.currency, actor.ID), data)

	err = s.store.WithinTx(ctx, func(r repository.Repositories) error {
		account, err := r.Accounts.GetByID(ctx, req.AccountID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return ErrAccountNotFound
			}
			return err
		}
		if account.UserID != actor.ID {
			return ErrAccountNotFound
		}

		if err := r.Users.Debit(ctx, actor.ID, repository.BalanceChange{Available: total}); err != nil {
			return err
		}

		if err := r.Transactions.Create(ctx, tx); err != nil {
			return err
		}

		return s.notifier.Persist(ctx, r, out)
	})
	if err != nil {
		return nil, err
	}

	s.notifier.Dispatch(ctx, out)
	return tx, nil
}

// Confirm starts the bank transfer for a processing withdrawal. The
// withdrawal is confirmed when the gateway reports the transfer succeeded.
func (s *WithdrawalService) Confirm(ctx context.Context, actor domain.Actor, transactionID string) (*WithdrawalResult, error) {
	if !actor.Is(domain.RoleAdmin) {
		return nil, ErrForbidden
	}

	release, err := s.lock(ctx, transactionID)
	if err != nil {
		return nil, err
	}
	defer release()

	repos := s.store.Repos()
	tx, err := withdrawal(ctx, repos.Transactions.GetByID, transactionID)
	if err != nil {
		return nil, err
	}

	switch tx.Meta.Status {
	case domain.WithdrawalConfirmed:
		return &WithdrawalResult{Transaction: tx, Message: "Withdrawal already confirmed"}, nil
	case domain.WithdrawalRejected:
		return nil, &TransitionError{Action: "confirm withdrawal", From: string(tx.Meta.Status)}
	}

	if tx.Reference != "" {
		return &WithdrawalResult{Transaction: tx, Message: "Transfer already initiated"}, nil
	}

	account, err := repos.Accounts.GetByID(ctx, tx.Meta.AccountID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, err
	}

	recipient := account.RecipientCode
	if recipient == "" {
		recipient, err = s.gateway.CreateTransferRecipient(ctx, paystack.RecipientRequest{
			Name:          account.AccountName,
			AccountNumber: account.AccountNumber,
			BankCode:      account.BankCode,
			Currency:      tx.Currency,
		})
		if err != nil {
			return nil, gatewayError(err)
		}
		if err := repos.Accounts.SetRecipientCode(ctx, account.ID, recipient); err != nil {
			return nil, err
		}
	}

	transfer, err := s.gateway.InitiateTransfer(ctx, paystack.TransferRequest{
		Amount:    tx.Amount,
		Recipient: recipient,
		Reason:    tx.ID,
		Reference: WithdrawalReference(tx.ID),
		Currency:  tx.Currency,
	})
	if err != nil {
		return nil, gatewayError(err)
	}

	if err := repos.Transactions.UpdateMeta(ctx, tx.ID, *tx.Meta, transfer.Reference); err != nil {
		return nil, err
	}
	tx.Reference = transfer.Reference

	return &WithdrawalResult{Transaction: tx, Changed: true, Message: "Transfer initiated"}, nil
}

// Reject refunds a processing withdrawal's total to the driver's available
// balance. A withdrawal whose transfer is in flight cannot be rejected until
// the gateway reports the transfer failed.
func (s *WithdrawalService) Reject(ctx context.Context, actor domain.Actor, transactionID string) (*WithdrawalResult, error) {
	if !actor.Is(domain.RoleAdmin) {
		return nil, ErrForbidden
	}

	release, err := s.lock(ctx, transactionID)
	if err != nil {
		return nil, err
	}
	defer release()

	out := &Outbox{}
	var result *WithdrawalResult

	err = s.store.WithinTx(ctx, func(r repository.Repositories) error {
		tx, err := withdrawal(ctx, r.Transactions.GetForUpdate, transactionID)
		if err != nil {
			return err
		}

		switch tx.Meta.Status {
		case domain.WithdrawalRejected:
			result = &WithdrawalResult{Transaction: tx, Message: "Withdrawal already rejected"}
			return nil
		case domain.WithdrawalConfirmed:
			return &TransitionError{Action: "reject withdrawal", From: string(tx.Meta.Status)}
		}

		if tx.Reference != "" {
			return &TransitionError{Action: "reject withdrawal", From: string(tx.Meta.Status) + " with a transfer in flight"}
		}

		if err := r.Users.Credit(ctx, tx.UserID, repository.BalanceChange{Available: tx.Meta.Total}); err != nil {
			return err
		}

		tx.Meta.Status = domain.WithdrawalRejected
		if err := r.Transactions.UpdateMeta(ctx, tx.ID, *tx.Meta, tx.Reference); err != nil {
			return err
		}

		out.Notify(tx.UserID, titleWithdrawalResult,
			fmt.Sprintf("Your withdrawal request of %d %s was rejected and %d %s returned to your balance",
				tx.Amount, tx.Currency, tx.Meta.Total, tx.Currency),
			withdrawalData(tx))

		if err := s.notifier.Persist(ctx, r, out); err != nil {
			return err
		}

		result = &WithdrawalResult{Transaction: tx, Changed: true, Message: "Withdrawal rejected"}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if result.Changed {
		s.notifier.Dispatch(ctx, out)
	}
	return result, nil
}

// lock takes the withdrawal lock shared by Confirm and Reject. The returned
// func releases it.
func (s *WithdrawalService) lock(ctx context.Context, transactionID string) (func(), error) {
	if s.locks == nil {
		return func() {}, nil
	}

	name := redis.WithdrawalLockName(transactionID)
	owner := uuid.New().String()
	acquired, err := s.locks.Acquire(ctx, name, owner, s.lockTTL)
	if err != nil {
		return nil, err
	}
	if !acquired {
		return nil, ErrPaymentInProgress
	}

	return func() {
		if err := s.locks.Release(context.WithoutCancel(ctx), name, owner); err != nil {
			s.logger.Warn("failed to release withdrawal lock", "transaction_id", transactionID, "error", err)
		}
	}, nil
}

// withdrawal loads a transaction and checks it is a withdrawal.
func withdrawal(ctx context.Context, get func(context.Context, string) (*domain.Transaction, error), id string) (*domain.Transaction, error) {
	if id == "" {
		return nil, ErrNotWithdrawal
	}

	tx, err := get(ctx, id)
	if err != nil {
		return nil, err
	}

	if tx.Type != domain.TransactionWithdrawal || tx.Meta == nil {
		return nil, ErrNotWithdrawal
	}
	return tx, nil
}

func withdrawalData(tx *domain.Transaction) map[string]string {
	return map[string]string{
		"type":           pushTypeWithdrawal,
		"transaction_id": tx.ID,
	}
}
