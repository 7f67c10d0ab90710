package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"delivery/internal/domain"
	"delivery/internal/repository"
)

// Push titles and payload types understood by the mobile apps.
const (
	titleNewJob           = "New Job Alert"
	titleNoDrivers        = "No Drivers Available"
	titleOrderCreated     = "Order Created"
	titleOrderAccepted    = "Order Accepted"
	titleOrderRejected    = "Order Rejected"
	titleOrderEnRoute     = "Order En Route"
	titleOrderCompleted   = "Order Completed"
	titleOrderCanceled    = "Order Canceled"
	titleOrderReassigned  = "Order Reassigned"
	titlePaymentFailed    = "Payment Failed"
	titlePaymentReceived  = "Payment Received"
	titleWalletFunded     = "Wallet Funded"
	titleWithdrawal       = "Withdrawal Request"
	titleWithdrawalResult = "Withdrawal Update"

	pushTypeJob         = "job"
	pushTypeNoDrivers   = "no-drivers-available"
	pushTypeOrder       = "order"
	pushTypeWithdrawal  = "withdrawal"
	pushTypeTransaction = "transaction"
)

// Publisher queues push notifications for delivery.
type Publisher interface {
	Publish(ctx context.Context, pushes ...domain.Push) error
}

// Outbox collects the notifications produced by one unit of work. Inbox
// rows are written in the same transaction as the state change; pushes are
// published after it commits.
type Outbox struct {
	inbox  []*domain.Notification
	admin  []*domain.Notification
	pushes []domain.Push
}

// Notify records an inbox entry and a push for userID.
func (o *Outbox) Notify(userID, title, body string, data map[string]string) {
	o.Inbox(userID, title, body, data)
	o.Push(userID, title, body, data)
}

// Inbox records an inbox entry only.
func (o *Outbox) Inbox(userID, title, body string, data map[string]string) {
	if userID == "" {
		return
	}
	o.inbox = append(o.inbox, &domain.Notification{
		ID:     uuid.New().String(),
		UserID: userID,
		Title:  title,
		Body:   body,
		Data:   data,
	})
}

// Push records a device push only.
func (o *Outbox) Push(userID, title, body string, data map[string]string) {
	if userID == "" {
		return
	}
	o.pushes = append(o.pushes, domain.Push{UserID: userID, Title: title, Body: body, Data: data})
}

// Admin records an entry for the admin panel.
func (o *Outbox) Admin(title, body string, data map[string]string) {
	o.admin = append(o.admin, &domain.Notification{
		ID:    uuid.New().String(),
		Title: title,
		Body:  body,
		Data:  data,
	})
}

// Pushes returns the queued pushes.
func (o *Outbox) Pushes() []domain.Push {
	return o.pushes
}

// NotificationService persists inbox entries and publishes pushes.
type NotificationService struct {
	publisher Publisher
	logger    *slog.Logger
	timeout   time.Duration
}

// NewNotificationService creates a new NotificationService. A nil publisher
// disables pushes.
func NewNotificationService(publisher Publisher, logger *slog.Logger) *NotificationService {
	if logger == nil {
		logger = slog.Default()
	}
	return &NotificationService{
		publisher: publisher,
		logger:    logger,
		timeout:   5 * time.Second,
	}
}

// Persist writes the outbox's inbox and admin entries using r.
func (s *NotificationService) Persist(ctx context.Context, r repository.Repositories, o *Outbox) error {
	for _, n := range o.inbox {
		if err := r.Notifications.Create(ctx, n); err != nil {
			return err
		}
	}
	for _, n := range o.admin {
		if err := r.Notifications.CreateAdmin(ctx, n); err != nil {
			return err
		}
	}
	return nil
}

// Dispatch publishes the outbox's pushes. Failures are logged, never
// returned: the state change they describe has already committed.
func (s *NotificationService) Dispatch(ctx context.Context, o *Outbox) {
	if s == nil || s.publisher == nil || len(o.pushes) == 0 {
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.timeout)
	defer cancel()

	if err := s.publisher.Publish(ctx, o.pushes...); err != nil {
		s.logger.Warn("failed to publish push notifications",
			"count", len(o.pushes),
			"error", err,
		)
	}
}

// Send persists and publishes an outbox outside any other unit of work.
func (s *NotificationService) Send(ctx context.Context, store repository.Store, o *Outbox) error {
	if err := store.WithinTx(ctx, func(r repository.Repositories) error {
		return s.Persist(ctx, r, o)
	}); err != nil {
		return err
	}
	s.Dispatch(ctx, o)
	return nil
}
