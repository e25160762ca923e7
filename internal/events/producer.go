package events

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"
)

// Producer publishes order/payment domain events. Publishing is best-effort:
// a broker outage must never fail a checkout.
type Producer interface {
	PublishOrderCreated(ctx context.Context, ev OrderCreated)
	PublishPaymentSucceeded(ctx context.Context, ev PaymentSucceeded)
	Close() error
}

const topic = "order-events"

type KafkaProducer struct {
	writer *kafka.Writer
	logger *slog.Logger
}

func NewKafkaProducer(brokers string, logger *slog.Logger) *KafkaProducer {
	if logger == nil {
		logger = slog.Default()
	}
	w := &kafka.Writer{
		Addr:         kafka.TCP(strings.Split(brokers, ",")...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		WriteTimeout: 5 * time.Second,
	}
	return &KafkaProducer{writer: w, logger: logger}
}

func (p *KafkaProducer) PublishOrderCreated(ctx context.Context, ev OrderCreated) {
	p.publish(ctx, "order.created", "order:"+ev.OrderID, ev)
}

func (p *KafkaProducer) PublishPaymentSucceeded(ctx context.Context, ev PaymentSucceeded) {
	p.publish(ctx, "payment.succeeded", "order:"+ev.OrderID, ev)
}

func (p *KafkaProducer) publish(ctx context.Context, eventType, key string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		p.logger.ErrorContext(ctx, "event marshal failed", "type", eventType, "err", err)
		return
	}
	err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(key),
		Value: data,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(eventType)},
		},
	})
	if err != nil {
		p.logger.ErrorContext(ctx, "event publish failed", "type", eventType, "key", key, "err", err)
	}
}

func (p *KafkaProducer) Close() error { return p.writer.Close() }

// Noop is used when KAFKA_BROKERS is not configured.
type Noop struct{}

func (Noop) PublishOrderCreated(context.Context, OrderCreated)         {}
func (Noop) PublishPaymentSucceeded(context.Context, PaymentSucceeded) {}
func (Noop) Close() error                                              { return nil }

// FromEnv picks the Kafka producer when brokers are configured, Noop otherwise.
func FromEnv(brokers string, logger *slog.Logger) Producer {
	if strings.TrimSpace(brokers) == "" {
		return Noop{}
	}
	return NewKafkaProducer(brokers, logger)
}
