// Package messaging carries push notifications over Kafka. Trace context
// travels in the message headers so the notifier continues the span of the
// request that produced the push.
package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"

	"delivery/internal/domain"
	"delivery/internal/service"
)

var producerTracer = otel.Tracer("delivery/messaging/producer")

// MessageWriter is the subset of *kafka.Writer the producer uses.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Producer publishes pushes to the notification topic, keyed by user so a
// user's pushes stay ordered within a partition.
type Producer struct {
	writer     MessageWriter
	topic      string
	propagator propagation.TextMapPropagator // nil uses the global propagator
}

var _ service.Publisher = (*Producer)(nil)

func NewProducer(brokers []string, topic string) *Producer {
	return NewProducerWithWriter(&kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		AllowAutoTopicCreation: true,
		BatchTimeout:           50 * time.Millisecond,
		RequiredAcks:           kafka.RequireOne,
	}, topic)
}

// NewProducerWithWriter creates a Producer over an existing writer.
func NewProducerWithWriter(w MessageWriter, topic string) *Producer {
	return &Producer{writer: w, topic: topic}
}

func (p *Producer) Publish(ctx context.Context, pushes ...domain.Push) error {
	if len(pushes) == 0 {
		return nil
	}

	ctx, span := producerTracer.Start(ctx, "send "+p.topic,
		trace.WithSpanKind(trace.SpanKindProducer),
		trace.WithAttributes(
			semconv.MessagingSystemKafka,
			semconv.MessagingOperationName("send"),
			semconv.MessagingOperationTypePublish,
			semconv.MessagingDestinationName(p.topic),
			semconv.MessagingBatchMessageCount(len(pushes)),
		),
	)
	defer span.End()

	prop := p.propagator
	if prop == nil {
		prop = otel.GetTextMapPropagator()
	}

	msgs := make([]kafka.Message, 0, len(pushes))
	for _, push := range pushes {
		data, err := json.Marshal(push)
		if err != nil {
			return fmt.Errorf("encode push: %w", err)
		}
		msg := kafka.Message{Key: []byte(push.UserID), Value: data}
		prop.Inject(ctx, NewMessageCarrier(&msg))
		msgs = append(msgs, msg)
	}

	if err := p.writer.WriteMessages(ctx, msgs...); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	return nil
}

func (p *Producer) Close() error {
	return p.writer.Close()
}
