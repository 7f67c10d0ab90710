// Package push delivers notifications to devices through Firebase Cloud
// Messaging.
package push

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"google.golang.org/api/option"

	"delivery/internal/domain"
	"delivery/internal/repository"
)

// TokenStore looks up the device token registered for a user.
type TokenStore interface {
	MessagingToken(ctx context.Context, userID string) (string, error)
}

// MessageClient is the subset of *messaging.Client the sender uses.
type MessageClient interface {
	Send(ctx context.Context, message *messaging.Message) (string, error)
}

// Sender sends pushes to the device each user registered.
type Sender struct {
	client MessageClient
	tokens TokenStore
	logger *slog.Logger
}

// NewFirebaseClient creates an FCM client. credentialsFile may be empty to
// use application default credentials.
func NewFirebaseClient(ctx context.Context, projectID, credentialsFile string) (*messaging.Client, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}

	app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: projectID}, opts...)
	if err != nil {
		return nil, fmt.Errorf("firebase.NewApp: %w", err)
	}

	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("firebase app.Messaging: %w", err)
	}
	return client, nil
}

func NewSender(client MessageClient, tokens TokenStore, logger *slog.Logger) *Sender {
	if logger == nil {
		logger = slog.Default()
	}
	return &Sender{client: client, tokens: tokens, logger: logger}
}

// Send delivers p. Users without a registered device, and devices FCM no
// longer recognizes, are skipped without error.
func (s *Sender) Send(ctx context.Context, p domain.Push) error {
	token, err := s.tokens.MessagingToken(ctx, p.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.logger.Warn("push for unknown user dropped", "user_id", p.UserID)
			return nil
		}
		return fmt.Errorf("lookup token: %w", err)
	}
	if token == "" {
		s.logger.Debug("user has no device registered", "user_id", p.UserID)
		return nil
	}

	id, err := s.client.Send(ctx, message(token, p))
	if err != nil {
		if messaging.IsUnregistered(err) {
			s.logger.Info("device token no longer registered", "user_id", p.UserID)
			return nil
		}
		return fmt.Errorf("send push: %w", err)
	}

	s.logger.Debug("push sent", "user_id", p.UserID, "message_id", id, "title", p.Title)
	return nil
}

func message(token string, p domain.Push) *messaging.Message {
	return &messaging.Message{
		Token: token,
		Notification: &messaging.Notification{
			Title: p.Title,
			Body:  p.Body,
		},
		Data: p.Data,
		Android: &messaging.AndroidConfig{
			Priority: "high",
		},
		APNS: &messaging.APNSConfig{
			Payload: &messaging.APNSPayload{
				Aps: &messaging.Aps{Sound: "default"},
			},
		},
	}
}
