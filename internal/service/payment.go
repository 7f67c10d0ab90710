package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"delivery/internal/calculator"
	"delivery/internal/domain"
	"delivery/internal/paystack"
	"delivery/internal/repository"
)

// PaymentGateway is the card and transfer provider.
type PaymentGateway interface {
	Charge(ctx context.Context, req paystack.ChargeRequest) (*paystack.ChargeResult, error)
	CreateTransferRecipient(ctx context.Context, req paystack.RecipientRequest) (string, error)
	InitiateTransfer(ctx context.Context, req paystack.TransferRequest) (*paystack.Transfer, error)
}

// Payment kinds, used for metrics and gateway metadata.
const (
	paymentCapture      = "capture"
	paymentCancellation = "cancellation"
	paymentPayout       = "payout"
)

// CaptureReference is the gateway and ledger reference of an order's payment.
func CaptureReference(orderID string) string { return "order-" + orderID + "-payment" }

// CancellationReference is the reference of an order's cancellation fee.
func CancellationReference(orderID string) string { return "order-" + orderID + "-cancellation" }

// PayoutReference is the reference of the driver credit for an order.
func PayoutReference(orderID string) string { return "order-" + orderID + "-payout" }

// DeclinedError is returned when the gateway declined a card charge.
type DeclinedError struct {
	Message string
}

func (e *DeclinedError) Error() string {
	if e.Message == "" {
		return ErrPaymentFailed.Error()
	}
	return fmt.Sprintf("%s: %s", ErrPaymentFailed, e.Message)
}

func (e *DeclinedError) Unwrap() error { return ErrPaymentFailed }

// PaymentCoordinator moves money for order transitions. Methods taking a
// repository.Repositories must run inside the transaction that flips the
// order status; ChargeCard runs outside any transaction.
type PaymentCoordinator struct {
	gateway         PaymentGateway
	cancellationFee calculator.Fee
	currency        string
	metrics         Metrics
	logger          *slog.Logger
}

// NewPaymentCoordinator creates a new PaymentCoordinator.
func NewPaymentCoordinator(
	gateway PaymentGateway,
	cancellationFee calculator.Fee,
	currency string,
	metrics Metrics,
	logger *slog.Logger,
) *PaymentCoordinator {
	if logger == nil {
		logger = slog.Default()
	}
	return &PaymentCoordinator{
		gateway:         gateway,
		cancellationFee: cancellationFee,
		currency:        currency,
		metrics:         metricsOrNop(metrics),
		logger:          logger,
	}
}

// CaptureWallet debits the customer's available balance by the order amount
// and records the debit.
func (p *PaymentCoordinator) CaptureWallet(ctx context.Context, r repository.Repositories, order *domain.Order) error {
	err := r.Users.Debit(ctx, order.CustomerID, repository.BalanceChange{Available: order.Amount})
	if err == nil {
		err = r.Transactions.Create(ctx, &domain.Transaction{
			ID:        uuid.New().String(),
			UserID:    order.CustomerID,
			OrderID:   order.ID,
			Amount:    order.Amount,
			Currency:  order.Currency,
			Type:      domain.TransactionDebit,
			Note:      fmt.Sprintf("Secure payment of Order #%s", order.ID),
			Reference: CaptureReference(order.ID),
		})
	}
	p.metrics.RecordPayment(ctx, paymentCapture, domain.PaymentMethodWallet, err)
	return err
}

// ChargeCard charges amount to the order's card. A decline is reported as a
// *DeclinedError; transport and API failures as an *UpstreamError.
func (p *PaymentCoordinator) ChargeCard(
	ctx context.Context,
	r repository.Repositories,
	order *domain.Order,
	amount int64,
	reference string,
	metadata map[string]string,
) (*paystack.ChargeResult, error) {
	kind := metadata["type"]

	card, err := r.Cards.GetByID(ctx, order.CardID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrCardNotFound
		}
		return nil, err
	}
	if card.UserID != order.CustomerID {
		return nil, ErrCardNotFound
	}

	email := card.Email
	if email == "" {
		customer, err := r.Users.GetByID(ctx, order.CustomerID)
		if err != nil {
			return nil, err
		}
		email = customer.Email
	}

	res, err := p.gateway.Charge(ctx, paystack.ChargeRequest{
		Email:             email,
		Amount:            amount,
		AuthorizationCode: card.AuthorizationCode,
		Reference:         reference,
		Currency:          order.Currency,
		Metadata:          metadata,
	})
	if err != nil {
		err = gatewayError(err)
	} else if !res.Success {
		err = &DeclinedError{Message: res.Message}
	}

	p.metrics.RecordPayment(ctx, kind, domain.PaymentMethodCard, err)
	if err != nil {
		p.logger.Warn("card charge failed",
			"order_id", order.ID,
			"kind", kind,
			"error", err,
		)
		return nil, err
	}

	return res, nil
}

// RecordCardCapture records the debit for a successful card capture.
func (p *PaymentCoordinator) RecordCardCapture(ctx context.Context, r repository.Repositories, order *domain.Order, reference string) error {
	return r.Transactions.Create(ctx, &domain.Transaction{
		ID:        uuid.New().String(),
		UserID:    order.CustomerID,
		OrderID:   order.ID,
		Amount:    order.Amount,
		Currency:  order.Currency,
		Type:      domain.TransactionDebit,
		Note:      fmt.Sprintf("Secure payment of Order #%s", order.ID),
		Reference: reference,
	})
}

// Payout credits the driver for a completed order, settles the customer's
// ledger for wallet orders and bumps the driver's completed counter.
func (p *PaymentCoordinator) Payout(ctx context.Context, r repository.Repositories, order *domain.Order) error {
	err := p.payout(ctx, r, order)
	p.metrics.RecordPayment(ctx, paymentPayout, order.PaymentMethod, err)
	return err
}

func (p *PaymentCoordinator) payout(ctx context.Context, r repository.Repositories, order *domain.Order) error {
	if order.PaymentMethod == domain.PaymentMethodWallet {
		if err := r.Users.Debit(ctx, order.CustomerID, repository.BalanceChange{Ledger: order.Amount}); err != nil {
			return err
		}
	}

	if err := r.Users.Credit(ctx, order.DriverID, repository.BalanceChange{
		Available: order.Amount,
		Ledger:    order.Amount,
	}); err != nil {
		return err
	}

	if err := r.Transactions.Create(ctx, &domain.Transaction{
		ID:        uuid.New().String(),
		UserID:    order.DriverID,
		OrderID:   order.ID,
		Amount:    order.Amount,
		Currency:  order.Currency,
		Type:      domain.TransactionCredit,
		Note:      fmt.Sprintf("Payment for successful delivery of Order #%s", order.ID),
		Reference: PayoutReference(order.ID),
	}); err != nil {
		return err
	}

	return r.Drivers.IncrementCompleted(ctx, order.DriverID)
}

// CancellationFee returns the fee charged for canceling order.
func (p *PaymentCoordinator) CancellationFee(order *domain.Order) (int64, error) {
	return p.cancellationFee.For(order.Amount)
}

// ChargeCancellationWallet debits the cancellation fee from the customer's
// wallet and records it.
func (p *PaymentCoordinator) ChargeCancellationWallet(ctx context.Context, r repository.Repositories, order *domain.Order, fee int64) error {
	if fee <= 0 {
		return nil
	}

	err := r.Users.Debit(ctx, order.CustomerID, repository.BalanceChange{Available: fee, Ledger: fee})
	if err == nil {
		err = p.RecordCancellationFee(ctx, r, order, fee, CancellationReference(order.ID))
	}
	p.metrics.RecordPayment(ctx, paymentCancellation, domain.PaymentMethodWallet, err)
	return err
}

// RecordCancellationFee records a cancellation fee already collected.
func (p *PaymentCoordinator) RecordCancellationFee(ctx context.Context, r repository.Repositories, order *domain.Order, fee int64, reference string) error {
	return r.Transactions.Create(ctx, &domain.Transaction{
		ID:        uuid.New().String(),
		UserID:    order.CustomerID,
		OrderID:   order.ID,
		Amount:    fee,
		Currency:  order.Currency,
		Type:      domain.TransactionDebit,
		Note:      fmt.Sprintf("Cancellation fee for Order #%s", order.ID),
		Reference: reference,
	})
}

// gatewayError converts a gateway failure into an *UpstreamError.
func gatewayError(err error) error {
	var apiErr *paystack.APIError
	if errors.As(err, &apiErr) {
		return &UpstreamError{Provider: "paystack", StatusCode: apiErr.StatusCode, Message: apiErr.Message}
	}
	return &UpstreamError{Provider: "paystack", Message: err.Error()}
}
