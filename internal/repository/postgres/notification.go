package postgres

import (
	"context"
	"database/sql"
	"encoding/json"

	"delivery/internal/domain"
	"delivery/internal/repository"
)

// NotificationRepository is a PostgreSQL implementation of repository.NotificationRepository.
type NotificationRepository struct {
	q Querier
}

// NewNotificationRepository creates a new PostgreSQL notification repository.
func NewNotificationRepository(db *sql.DB) *NotificationRepository {
	return &NotificationRepository{q: db}
}

// Create stores a user notification.
func (r *NotificationRepository) Create(ctx context.Context, n *domain.Notification) error {
	data, err := json.Marshal(n.Data)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO notifications (id, user_id, title, body, data)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at
	`

	return r.q.QueryRowContext(ctx, query, n.ID, n.UserID, n.Title, n.Body, data).Scan(&n.CreatedAt)
}

// CreateAdmin stores a notification for the admin panel.
func (r *NotificationRepository) CreateAdmin(ctx context.Context, n *domain.Notification) error {
	data, err := json.Marshal(n.Data)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO super_notifications (id, title, body, data)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at
	`

	return r.q.QueryRowContext(ctx, query, n.ID, n.Title, n.Body, data).Scan(&n.CreatedAt)
}

// Ensure NotificationRepository implements repository.NotificationRepository.
var _ repository.NotificationRepository = (*NotificationRepository)(nil)
