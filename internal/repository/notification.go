package repository

import (
	"context"

	"delivery/internal/domain"
)

// NotificationRepository defines the persistence operations for inbox entries.
type NotificationRepository interface {
	// Create stores a user notification.
	Create(ctx context.Context, n *domain.Notification) error

	// CreateAdmin stores a notification for the admin panel.
	CreateAdmin(ctx context.Context, n *domain.Notification) error
}
