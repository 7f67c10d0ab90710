package push

import (
	"context"
	"errors"
	"sync"
	"testing"

	"firebase.google.com/go/v4/messaging"

	"delivery/internal/domain"
	"delivery/internal/repository"
)

type fakeClient struct {
	mu   sync.Mutex
	sent []*messaging.Message
	err  error
}

func (c *fakeClient) Send(ctx context.Context, m *messaging.Message) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return "", c.err
	}
	c.sent = append(c.sent, m)
	return "projects/p/messages/1", nil
}

type tokenMap map[string]string

func (t tokenMap) MessagingToken(ctx context.Context, userID string) (string, error) {
	token, ok := t[userID]
	if !ok {
		return "", repository.ErrNotFound
	}
	return token, nil
}

func TestSender_Send(t *testing.T) {
	t.Parallel()

	client := &fakeClient{}
	s := NewSender(client, tokenMap{"u1": "tok-1", "u2": ""}, nil)
	ctx := context.Background()

	push := domain.Push{UserID: "u1", Title: "New Job Alert", Body: "A new job", Data: map[string]string{"type": "job"}}
	if err := s.Send(ctx, push); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// No device and unknown user are dropped quietly.
	if err := s.Send(ctx, domain.Push{UserID: "u2"}); err != nil {
		t.Errorf("expected no error for user without device, got %v", err)
	}
	if err := s.Send(ctx, domain.Push{UserID: "ghost"}); err != nil {
		t.Errorf("expected no error for unknown user, got %v", err)
	}

	if len(client.sent) != 1 {
		t.Fatalf("expected 1 message, got %d", len(client.sent))
	}
	m := client.sent[0]
	if m.Token != "tok-1" || m.Notification.Title != "New Job Alert" || m.Data["type"] != "job" {
		t.Errorf("unexpected message %+v", m)
	}
}

func TestSender_SendFailure(t *testing.T) {
	t.Parallel()

	client := &fakeClient{err: errors.New("unavailable")}
	s := NewSender(client, tokenMap{"u1": "tok-1"}, nil)

	if err := s.Send(context.Background(), domain.Push{UserID: "u1"}); err == nil {
		t.Error("expected send error")
	}
}
