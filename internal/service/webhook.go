package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"delivery/internal/domain"
	"delivery/internal/paystack"
	"delivery/internal/repository"
)

// ErrInvalidEvent is returned for webhook payloads that cannot be applied.
var ErrInvalidEvent = errors.New("invalid webhook event")

// WebhookService applies payment gateway events. Every handler is
// idempotent on the gateway reference or the withdrawal status, so a
// replayed delivery changes nothing.
type WebhookService struct {
	store    repository.Store
	payments *PaymentCoordinator
	notifier *NotificationService
	logger   *slog.Logger
	now      func() time.Time
}

// NewWebhookService creates a new WebhookService.
func NewWebhookService(
	store repository.Store,
	payments *PaymentCoordinator,
	notifier *NotificationService,
	logger *slog.Logger,
) *WebhookService {
	if logger == nil {
		logger = slog.Default()
	}
	return &WebhookService{
		store:    store,
		payments: payments,
		notifier: notifier,
		logger:   logger.With("component", "paystack_webhook"),
		now:      time.Now,
	}
}

// HandleEvent applies one verified event. Unknown events are ignored.
func (s *WebhookService) HandleEvent(ctx context.Context, ev *paystack.Event) error {
	switch ev.Event {
	case paystack.EventChargeSuccess:
		data, err := ev.Charge()
		if err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidEvent, err)
		}
		return s.chargeSucceeded(ctx, data)

	case paystack.EventTransferSuccess, paystack.EventTransferFailed, paystack.EventTransferReversed:
		data, err := ev.Transfer()
		if err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidEvent, err)
		}
		switch ev.Event {
		case paystack.EventTransferSuccess:
			return s.transferSucceeded(ctx, data)
		case paystack.EventTransferFailed:
			return s.transferFailed(ctx, data)
		default:
			return s.transferReversed(ctx, data)
		}

	default:
		s.logger.Debug("ignoring webhook event", "event", ev.Event)
		return nil
	}
}

func (s *WebhookService) chargeSucceeded(ctx context.Context, data *paystack.ChargeData) error {
	if data.Reference == "" {
		return fmt.Errorf("%w: missing reference", ErrInvalidEvent)
	}

	kind := data.Metadata.Get("type")
	switch kind {
	case paystack.MetadataCardPayment:
		return s.cardPayment(ctx, data)
	case paystack.MetadataOrderCancellation:
		return s.cancellationFee(ctx, data)
	case paystack.MetadataCreditAccount:
		return s.walletTopUp(ctx, data)
	case paystack.MetadataAddCard:
		return s.addCard(ctx, data)
	default:
		s.logger.Info("ignoring charge with unknown metadata type",
			"reference", data.Reference,
			"type", kind,
		)
		return nil
	}
}

// cardPayment records an order capture the gateway confirmed and moves the
// order en route if the synchronous flow did not get that far.
func (s *WebhookService) cardPayment(ctx context.Context, data *paystack.ChargeData) error {
	orderID := data.Metadata.Get("order_id")
	if orderID == "" {
		return fmt.Errorf("%w: missing order_id", ErrInvalidEvent)
	}

	return s.apply(ctx, func(r repository.Repositories, out *Outbox) error {
		if dup, err := s.duplicate(ctx, r, data.Reference); dup || err != nil {
			return err
		}

		order, err := r.Orders.GetForUpdate(ctx, orderID)
		if err != nil {
			return err
		}

		if err := s.payments.RecordCardCapture(ctx, r, order, data.Reference); err != nil {
			return err
		}

		if !CanTransition(ActionEnRoute, order.Status) {
			s.logger.Warn("card payment for order not awaiting capture",
				"order_id", order.ID,
				"status", order.Status,
			)
			return nil
		}

		order.Status = domain.OrderStatusEnRoute
		order.StatusUpdatedAt = s.now()
		if err := r.Orders.Update(ctx, order); err != nil {
			return err
		}

		out.Notify(order.CustomerID, titleOrderEnRoute,
			fmt.Sprintf("Your order with ID #%s is on its way", order.ID),
			orderData(order))
		return nil
	})
}

// cancellationFee records a cancellation fee the gateway confirmed and
// cancels the order if it is still cancelable.
func (s *WebhookService) cancellationFee(ctx context.Context, data *paystack.ChargeData) error {
	orderID := data.Metadata.Get("order_id")
	if orderID == "" {
		return fmt.Errorf("%w: missing order_id", ErrInvalidEvent)
	}

	return s.apply(ctx, func(r repository.Repositories, out *Outbox) error {
		if dup, err := s.duplicate(ctx, r, data.Reference); dup || err != nil {
			return err
		}

		order, err := r.Orders.GetForUpdate(ctx, orderID)
		if err != nil {
			return err
		}

		if err := s.payments.RecordCancellationFee(ctx, r, order, data.Amount, data.Reference); err != nil {
			return err
		}

		if !CanTransition(ActionCancel, order.Status) {
			s.logger.Warn("cancellation fee paid for an order that is no longer cancelable",
				"order_id", order.ID,
				"status", order.Status,
			)
			out.Admin(titleOrderCanceled,
				fmt.Sprintf("Cancellation fee %s was charged for order %s which is now %s and was not canceled; refund the customer",
					data.Reference, order.ID, order.Status),
				orderData(order))
			return nil
		}

		order.Status = domain.OrderStatusCanceled
		order.StatusUpdatedAt = s.now()
		order.CancellationReason = data.Metadata.Get("reason")
		if err := r.Orders.Update(ctx, order); err != nil {
			return err
		}

		out.Notify(order.DriverID, titleOrderCanceled,
			fmt.Sprintf("The customer with order ID #%s just canceled the order", order.ID),
			orderData(order))
		return nil
	})
}

// walletTopUp credits a customer's wallet and keeps the card if reusable.
func (s *WebhookService) walletTopUp(ctx context.Context, data *paystack.ChargeData) error {
	userID := data.Metadata.Get("user_id")
	if userID == "" || data.Amount <= 0 {
		return fmt.Errorf("%w: missing user_id or amount", ErrInvalidEvent)
	}

	return s.apply(ctx, func(r repository.Repositories, out *Outbox) error {
		if dup, err := s.duplicate(ctx, r, data.Reference); dup || err != nil {
			return err
		}

		if err := r.Users.Credit(ctx, userID, repository.BalanceChange{
			Available: data.Amount,
			Ledger:    data.Amount,
		}); err != nil {
			return err
		}

		tx := &domain.Transaction{
			ID:        uuid.New().String(),
			UserID:    userID,
			Amount:    data.Amount,
			Currency:  data.Currency,
			Type:      domain.TransactionCredit,
			Note:      "Wallet top-up",
			Reference: data.Reference,
		}
		if err := r.Transactions.Create(ctx, tx); err != nil {
			return err
		}

		if data.Authorization.Reusable {
			if _, err := r.Cards.Save(ctx, cardFrom(userID, data)); err != nil {
				return err
			}
		}

		out.Notify(userID, titleWalletFunded,
			fmt.Sprintf("Your wallet was credited with %d %s", data.Amount, data.Currency),
			map[string]string{"type": pushTypeTransaction, "transaction_id": tx.ID})
		return nil
	})
}

// addCard stores the card used for a verification charge.
func (s *WebhookService) addCard(ctx context.Context, data *paystack.ChargeData) error {
	userID := data.Metadata.Get("user_id")
	if userID == "" {
		return fmt.Errorf("%w: missing user_id", ErrInvalidEvent)
	}
	if !data.Authorization.Reusable {
		s.logger.Info("card is not reusable, not stored", "reference", data.Reference)
		return nil
	}

	_, err := s.store.Repos().Cards.Save(ctx, cardFrom(userID, data))
	return err
}

// transferSucceeded confirms a withdrawal and settles the ledger balance.
func (s *WebhookService) transferSucceeded(ctx context.Context, data *paystack.TransferData) error {
	return s.apply(ctx, func(r repository.Repositories, out *Outbox) error {
		tx, err := withdrawal(ctx, r.Transactions.GetForUpdate, data.Reason)
		if err != nil {
			return err
		}

		switch tx.Meta.Status {
		case domain.WithdrawalConfirmed:
			s.logger.Info("duplicate transfer confirmation", "transaction_id", tx.ID)
			return nil
		case domain.WithdrawalRejected:
			s.logger.Warn("transfer succeeded for a rejected withdrawal", "transaction_id", tx.ID)
			out.Admin(titleWithdrawalResult,
				fmt.Sprintf("Transfer %s succeeded for withdrawal %s which was already rejected", data.Reference, tx.ID),
				withdrawalData(tx))
			return nil
		}

		if err := r.Users.Debit(ctx, tx.UserID, repository.BalanceChange{Ledger: tx.Meta.Total}); err != nil {
			return err
		}

		tx.Meta.Status = domain.WithdrawalConfirmed
		if err := r.Transactions.UpdateMeta(ctx, tx.ID, *tx.Meta, data.Reference); err != nil {
			return err
		}

		out.Notify(tx.UserID, titleWithdrawalResult,
			fmt.Sprintf("Your withdrawal of %d %s has been paid", tx.Amount, tx.Currency),
			withdrawalData(tx))
		out.Admin(titleWithdrawalResult,
			fmt.Sprintf("Withdrawal %s was paid out", tx.ID),
			withdrawalData(tx))
		return nil
	})
}

// transferFailed alerts the admins; the withdrawal stays processing so it
// can be retried or rejected.
func (s *WebhookService) transferFailed(ctx context.Context, data *paystack.TransferData) error {
	return s.apply(ctx, func(r repository.Repositories, out *Outbox) error {
		tx, err := withdrawal(ctx, r.Transactions.GetForUpdate, data.Reason)
		if err != nil {
			return err
		}

		if tx.Meta.Status == domain.WithdrawalProcessing && tx.Reference != "" {
			if err := r.Transactions.UpdateMeta(ctx, tx.ID, *tx.Meta, ""); err != nil {
				return err
			}
		}

		out.Admin(titleWithdrawalResult,
			fmt.Sprintf("Transfer for withdrawal %s failed", tx.ID),
			withdrawalData(tx))
		return nil
	})
}

// transferReversed refunds a withdrawal whose transfer bounced.
func (s *WebhookService) transferReversed(ctx context.Context, data *paystack.TransferData) error {
	return s.apply(ctx, func(r repository.Repositories, out *Outbox) error {
		tx, err := withdrawal(ctx, r.Transactions.GetForUpdate, data.Reason)
		if err != nil {
			return err
		}

		var refund repository.BalanceChange
		switch tx.Meta.Status {
		case domain.WithdrawalRejected:
			s.logger.Info("duplicate transfer reversal", "transaction_id", tx.ID)
			return nil
		case domain.WithdrawalConfirmed:
			refund = repository.BalanceChange{Available: tx.Meta.Total, Ledger: tx.Meta.Total}
		default:
			refund = repository.BalanceChange{Available: tx.Meta.Total}
		}

		if err := r.Users.Credit(ctx, tx.UserID, refund); err != nil {
			return err
		}

		tx.Meta.Status = domain.WithdrawalRejected
		if err := r.Transactions.UpdateMeta(ctx, tx.ID, *tx.Meta, tx.Reference); err != nil {
			return err
		}

		out.Notify(tx.UserID, titleWithdrawalResult,
			fmt.Sprintf("Your withdrawal of %d %s was reversed and %d %s returned to your balance",
				tx.Amount, tx.Currency, tx.Meta.Total, tx.Currency),
			withdrawalData(tx))
		out.Admin(titleWithdrawalResult,
			fmt.Sprintf("Transfer for withdrawal %s was reversed", tx.ID),
			withdrawalData(tx))
		return nil
	})
}

// apply runs fn in a transaction and publishes its notifications after
// commit.
func (s *WebhookService) apply(ctx context.Context, fn func(r repository.Repositories, out *Outbox) error) error {
	out := &Outbox{}
	if err := s.store.WithinTx(ctx, func(r repository.Repositories) error {
		if err := fn(r, out); err != nil {
			return err
		}
		return s.notifier.Persist(ctx, r, out)
	}); err != nil {
		if errors.Is(err, ErrNotWithdrawal) {
			return fmt.Errorf("%w: %w", ErrInvalidEvent, err)
		}
		return err
	}

	s.notifier.Dispatch(ctx, out)
	return nil
}

// duplicate reports whether a charge reference has already been applied.
func (s *WebhookService) duplicate(ctx context.Context, r repository.Repositories, reference string) (bool, error) {
	exists, err := r.Transactions.ExistsByReference(ctx, reference)
	if err != nil {
		return false, err
	}
	if exists {
		s.logger.Info("ignoring replayed charge", "reference", reference)
	}
	return exists, nil
}

func cardFrom(userID string, data *paystack.ChargeData) *domain.Card {
	return &domain.Card{
		ID:                uuid.New().String(),
		UserID:            userID,
		Email:             data.Customer.Email,
		AuthorizationCode: data.Authorization.AuthorizationCode,
		Signature:         data.Authorization.Signature,
		Last4:             data.Authorization.Last4,
		Brand:             data.Authorization.Brand,
		ExpMonth:          data.Authorization.ExpMonth,
		ExpYear:           data.Authorization.ExpYear,
		Reusable:          data.Authorization.Reusable,
	}
}
