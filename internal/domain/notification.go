package domain

import "time"

// Notification is an inbox entry for a user. Admin notifications have no
// UserID.
type Notification struct {
	ID        string
	UserID    string
	Title     string
	Body      string
	Data      map[string]string
	CreatedAt time.Time
}

// Push is a device notification queued for delivery.
type Push struct {
	UserID string            `json:"user_id"`
	Title  string            `json:"title"`
	Body   string            `json:"body"`
	Data   map[string]string `json:"data,omitempty"`
}
