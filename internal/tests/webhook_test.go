package tests

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"delivery/internal/domain"
	"delivery/internal/paystack"
	"delivery/internal/service"
)

func event(t *testing.T, name string, data any) *paystack.Event {
	t.Helper()
	raw, err := json.Marshal(data)
	if err != nil {
		t.Fatalf("marshal event: %v", err)
	}
	return &paystack.Event{Event: name, Data: raw}
}

func chargeEvent(t *testing.T, reference string, amount int64, metadata map[string]any) *paystack.Event {
	t.Helper()
	return event(t, paystack.EventChargeSuccess, map[string]any{
		"reference": reference,
		"amount":    amount,
		"currency":  "NGN",
		"status":    "success",
		"metadata":  metadata,
		"authorization": map[string]any{
			"authorization_code": "AUTH_new",
			"signature":          "SIG_new",
			"last4":              "4081",
			"reusable":           true,
		},
		"customer": map[string]any{"email": "customer@example.com"},
	})
}

func transferEvent(t *testing.T, name, transactionID string) *paystack.Event {
	t.Helper()
	return event(t, name, map[string]any{
		"reference": service.WithdrawalReference(transactionID),
		"amount":    200_000,
		"reason":    transactionID,
	})
}

func TestWebhook_CardPaymentMovesOrderEnRoute(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newFixture(t, fixtureOptions{})
	f.addOrder("order-1", domain.OrderStatusAccepted, domain.PaymentMethodCard, 300_000)

	ev := chargeEvent(t, service.CaptureReference("order-1"), 300_000, map[string]any{
		"type":     paystack.MetadataCardPayment,
		"order_id": "order-1",
	})

	for i := 0; i < 2; i++ {
		if err := f.webhooks.HandleEvent(ctx, ev); err != nil {
			t.Fatalf("delivery %d: unexpected error: %v", i+1, err)
		}
	}

	order := f.store.Orders.GetOrder("order-1")
	if order.Status != domain.OrderStatusEnRoute {
		t.Errorf("expected en_route, got %s", order.Status)
	}
	if order.StatusVersion != 2 {
		t.Errorf("expected one status change, got version %d", order.StatusVersion)
	}
	if n := len(f.store.Transactions.ByUser(customerID)); n != 1 {
		t.Errorf("expected one debit, got %d", n)
	}
	if pushes := f.publisher.ForUser(customerID); len(pushes) != 1 {
		t.Errorf("expected one push, got %d", len(pushes))
	}
}

func TestWebhook_CardPaymentAfterSyncCaptureIsNoop(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newFixture(t, fixtureOptions{})
	f.addOrder("order-1", domain.OrderStatusAccepted, domain.PaymentMethodCard, 300_000)

	if _, err := f.lifecycle.MarkEnRoute(ctx, driverActor(driverID), "order-1"); err != nil {
		t.Fatalf("mark en route: %v", err)
	}

	ev := chargeEvent(t, service.CaptureReference("order-1"), 300_000, map[string]any{
		"type":     paystack.MetadataCardPayment,
		"order_id": "order-1",
	})
	if err := f.webhooks.HandleEvent(ctx, ev); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if n := len(f.store.Transactions.ByUser(customerID)); n != 1 {
		t.Errorf("expected one debit, got %d", n)
	}
}

func TestWebhook_CancellationFeeForAcceptedOrderAlertsAdmins(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newFixture(t, fixtureOptions{})
	f.addOrder("order-1", domain.OrderStatusAccepted, domain.PaymentMethodCard, 300_000)

	ev := chargeEvent(t, service.CancellationReference("order-1"), 1_000, map[string]any{
		"type":     paystack.MetadataOrderCancellation,
		"order_id": "order-1",
		"reason":   "changed my mind",
	})
	if err := f.webhooks.HandleEvent(ctx, ev); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	order := f.store.Orders.GetOrder("order-1")
	if order.Status != domain.OrderStatusAccepted || order.CancellationReason != "" {
		t.Errorf("expected order to stay accepted, got %s (%q)", order.Status, order.CancellationReason)
	}
	if n := f.store.Notifications.CountAdmin(); n != 1 {
		t.Errorf("expected one admin alert, got %d", n)
	}
	if pushes := f.publisher.ForUser(driverID); len(pushes) != 0 {
		t.Errorf("expected no cancellation push to the driver, got %d", len(pushes))
	}
}

func TestWebhook_WalletTopUp(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newFixture(t, fixtureOptions{})
	f.setBalance(customerID, 10_000)

	ev := chargeEvent(t, "topup-1", 50_000, map[string]any{
		"type":    paystack.MetadataCreditAccount,
		"user_id": customerID,
	})

	for i := 0; i < 2; i++ {
		if err := f.webhooks.HandleEvent(ctx, ev); err != nil {
			t.Fatalf("delivery %d: unexpected error: %v", i+1, err)
		}
	}

	available, ledger := f.store.Users.Balances(customerID)
	if available != 60_000 || ledger != 60_000 {
		t.Errorf("expected 60000/60000, got %d/%d", available, ledger)
	}
	if n := f.store.Cards.CountCards(customerID); n != 1 {
		t.Errorf("expected card stored once, got %d", n)
	}
	txs := f.store.Transactions.ByUser(customerID)
	if len(txs) != 1 || txs[0].Type != domain.TransactionCredit || txs[0].Reference != "topup-1" {
		t.Errorf("unexpected transactions %+v", txs)
	}
}

func TestWebhook_AddCard(t *testing.T) {
	t.Parallel()

	f := newFixture(t, fixtureOptions{})

	ev := chargeEvent(t, "verify-1", 5_000, map[string]any{
		"type":    paystack.MetadataAddCard,
		"user_id": customerID,
	})
	if err := f.webhooks.HandleEvent(context.Background(), ev); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if n := f.store.Cards.CountCards(customerID); n != 1 {
		t.Errorf("expected one card, got %d", n)
	}
	if available, _ := f.store.Users.Balances(customerID); available != 0 {
		t.Errorf("expected no credit for a verification charge, got %d", available)
	}
}

func TestWebhook_TransferSuccessSettlesLedger(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newWithdrawalFixture(t)

	tx, err := f.withdrawals.Request(ctx, driverActor(driverID), service.WithdrawalRequest{Amount: 200_000, AccountID: "account-1"})
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if _, err := f.withdrawals.Confirm(ctx, admin, tx.ID); err != nil {
		t.Fatalf("confirm: %v", err)
	}

	ev := transferEvent(t, paystack.EventTransferSuccess, tx.ID)
	for i := 0; i < 2; i++ {
		if err := f.webhooks.HandleEvent(ctx, ev); err != nil {
			t.Fatalf("delivery %d: unexpected error: %v", i+1, err)
		}
	}

	stored, _ := f.store.Transactions.GetByID(ctx, tx.ID)
	if stored.Meta.Status != domain.WithdrawalConfirmed {
		t.Errorf("expected confirmed, got %s", stored.Meta.Status)
	}
	available, ledger := f.store.Users.Balances(driverID)
	if available != 290_000 || ledger != 290_000 {
		t.Errorf("expected 290000/290000, got %d/%d", available, ledger)
	}
}

func TestWebhook_TransferReversed(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name          string
		confirmFirst  bool
		wantAvailable int64
		wantLedger    int64
	}{
		{"reversed while processing", false, 500_000, 500_000},
		{"reversed after confirmation", true, 500_000, 500_000},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			ctx := context.Background()
			f := newWithdrawalFixture(t)

			tx, err := f.withdrawals.Request(ctx, driverActor(driverID), service.WithdrawalRequest{Amount: 200_000, AccountID: "account-1"})
			if err != nil {
				t.Fatalf("request: %v", err)
			}
			if tc.confirmFirst {
				if err := f.webhooks.HandleEvent(ctx, transferEvent(t, paystack.EventTransferSuccess, tx.ID)); err != nil {
					t.Fatalf("transfer success: %v", err)
				}
			}

			ev := transferEvent(t, paystack.EventTransferReversed, tx.ID)
			for i := 0; i < 2; i++ {
				if err := f.webhooks.HandleEvent(ctx, ev); err != nil {
					t.Fatalf("delivery %d: unexpected error: %v", i+1, err)
				}
			}

			available, ledger := f.store.Users.Balances(driverID)
			if available != tc.wantAvailable || ledger != tc.wantLedger {
				t.Errorf("expected %d/%d, got %d/%d", tc.wantAvailable, tc.wantLedger, available, ledger)
			}
			stored, _ := f.store.Transactions.GetByID(ctx, tx.ID)
			if stored.Meta.Status != domain.WithdrawalRejected {
				t.Errorf("expected rejected, got %s", stored.Meta.Status)
			}
		})
	}
}

func TestWebhook_TransferFailedClearsReference(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newWithdrawalFixture(t)

	tx, err := f.withdrawals.Request(ctx, driverActor(driverID), service.WithdrawalRequest{Amount: 200_000, AccountID: "account-1"})
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if _, err := f.withdrawals.Confirm(ctx, admin, tx.ID); err != nil {
		t.Fatalf("confirm: %v", err)
	}

	if err := f.webhooks.HandleEvent(ctx, transferEvent(t, paystack.EventTransferFailed, tx.ID)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	stored, _ := f.store.Transactions.GetByID(ctx, tx.ID)
	if stored.Reference != "" || stored.Meta.Status != domain.WithdrawalProcessing {
		t.Errorf("expected processing without reference, got %q/%s", stored.Reference, stored.Meta.Status)
	}

	// The admin can retry the transfer.
	result, err := f.withdrawals.Confirm(ctx, admin, tx.ID)
	if err != nil || !result.Changed {
		t.Fatalf("expected retry to initiate a transfer, got %+v (%v)", result, err)
	}
	if n := len(f.gateway.Transfers()); n != 2 {
		t.Errorf("expected 2 transfers, got %d", n)
	}
}

func TestWebhook_InvalidAndUnknownEvents(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newFixture(t, fixtureOptions{})
	f.store.Transactions.AddTransaction(&domain.Transaction{ID: "debit-1", UserID: customerID, Type: domain.TransactionDebit})

	if err := f.webhooks.HandleEvent(ctx, event(t, "subscription.create", map[string]any{})); err != nil {
		t.Errorf("expected unknown event to be ignored, got %v", err)
	}

	ignored := chargeEvent(t, "misc-1", 1_000, map[string]any{"type": "unknown"})
	if err := f.webhooks.HandleEvent(ctx, ignored); err != nil {
		t.Errorf("expected unknown metadata to be ignored, got %v", err)
	}

	tests := []struct {
		name string
		ev   *paystack.Event
	}{
		{"charge without reference", chargeEvent(t, "", 1_000, map[string]any{"type": paystack.MetadataCardPayment})},
		{"card payment without order", chargeEvent(t, "ref-1", 1_000, map[string]any{"type": paystack.MetadataCardPayment})},
		{"top-up without user", chargeEvent(t, "ref-2", 1_000, map[string]any{"type": paystack.MetadataCreditAccount})},
		{"transfer for a debit", transferEvent(t, paystack.EventTransferSuccess, "debit-1")},
		{"malformed payload", &paystack.Event{Event: paystack.EventChargeSuccess, Data: json.RawMessage(`[1]`)}},
	}

	for _, tc := range tests {
		if err := f.webhooks.HandleEvent(ctx, tc.ev); !errors.Is(err, service.ErrInvalidEvent) {
			t.Errorf("%s: expected ErrInvalidEvent, got %v", tc.name, err)
		}
	}
}
