package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"delivery/internal/domain"
)

type recordingWriter struct {
	mu   sync.Mutex
	msgs []kafka.Message
	err  error
}

func (w *recordingWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *recordingWriter) Close() error { return nil }

// queueReader serves a fixed set of messages, then blocks until ctx ends.
type queueReader struct {
	mu        sync.Mutex
	pending   []kafka.Message
	committed []kafka.Message
}

func (r *queueReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	r.mu.Lock()
	if len(r.pending) > 0 {
		msg := r.pending[0]
		r.pending = r.pending[1:]
		r.mu.Unlock()
		return msg, nil
	}
	r.mu.Unlock()
	<-ctx.Done()
	return kafka.Message{}, ctx.Err()
}

func (r *queueReader) CommitMessages(ctx context.Context, msgs ...kafka.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.committed = append(r.committed, msgs...)
	return nil
}

func (r *queueReader) Close() error { return nil }

func TestMessageCarrier(t *testing.T) {
	t.Parallel()

	msg := &kafka.Message{}
	c := NewMessageCarrier(msg)
	c.Set("traceparent", "a")
	c.Set("traceparent", "b")
	c.Set("baggage", "k=v")

	if got := c.Get("traceparent"); got != "b" {
		t.Errorf("expected overwritten header, got %q", got)
	}
	if len(msg.Headers) != 2 || len(c.Keys()) != 2 {
		t.Errorf("expected 2 headers, got %d", len(msg.Headers))
	}
	if c.Get("missing") != "" {
		t.Error("expected empty value for missing header")
	}
}

func TestProducer_PublishKeysByUserAndInjectsTrace(t *testing.T) {
	t.Parallel()

	w := &recordingWriter{}
	p := &Producer{writer: w, topic: "pushes", propagator: propagation.TraceContext{}}

	tp := sdktrace.NewTracerProvider()
	ctx, span := tp.Tracer("test").Start(context.Background(), "request")
	defer span.End()

	err := p.Publish(ctx,
		domain.Push{UserID: "u1", Title: "Order Created", Data: map[string]string{"type": "order"}},
		domain.Push{UserID: "u2", Title: "New Job Alert"},
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(w.msgs) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(w.msgs))
	}
	if string(w.msgs[0].Key) != "u1" || string(w.msgs[1].Key) != "u2" {
		t.Errorf("unexpected keys %q %q", w.msgs[0].Key, w.msgs[1].Key)
	}

	var push domain.Push
	if err := json.Unmarshal(w.msgs[0].Value, &push); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if push.Title != "Order Created" || push.Data["type"] != "order" {
		t.Errorf("unexpected payload %+v", push)
	}

	if NewMessageCarrier(&w.msgs[0]).Get("traceparent") == "" {
		t.Error("expected trace context header")
	}
}

func TestProducer_PublishNothing(t *testing.T) {
	t.Parallel()

	w := &recordingWriter{err: errors.New("broker down")}
	p := NewProducerWithWriter(w, "pushes")

	if err := p.Publish(context.Background()); err != nil {
		t.Errorf("expected no-op, got %v", err)
	}
	if err := p.Publish(context.Background(), domain.Push{UserID: "u1"}); err == nil {
		t.Error("expected writer error")
	}
}

func TestConsumer_DeliversAndCommitsEveryMessage(t *testing.T) {
	t.Parallel()

	good, _ := json.Marshal(domain.Push{UserID: "u1", Title: "hello"})
	failing, _ := json.Marshal(domain.Push{UserID: "u2", Title: "fails"})
	r := &queueReader{pending: []kafka.Message{
		{Key: []byte("u1"), Value: good, Offset: 1},
		{Key: []byte("bad"), Value: []byte("not json"), Offset: 2},
		{Key: []byte("u2"), Value: failing, Offset: 3},
	}}
	c := NewConsumerWithReader(r, "pushes", "notifier", nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var mu sync.Mutex
	var delivered []string
	done := make(chan error, 1)
	go func() {
		done <- c.Consume(ctx, func(ctx context.Context, push domain.Push) error {
			mu.Lock()
			defer mu.Unlock()
			delivered = append(delivered, push.UserID)
			if push.UserID == "u2" {
				cancel()
				return errors.New("token expired")
			}
			return nil
		})
	}()

	if err := <-done; err != nil {
		t.Fatalf("expected clean stop, got %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(delivered) != 2 || delivered[0] != "u1" || delivered[1] != "u2" {
		t.Errorf("unexpected deliveries %v", delivered)
	}
	if len(r.committed) < 2 {
		t.Errorf("expected failed messages to be committed, got %d commits", len(r.committed))
	}
}
