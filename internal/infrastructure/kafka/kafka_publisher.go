package kafka

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/bibbank/fund/internal/domain/port"
	"github.com/bibbank/fund/pkg/events"
	pkgkafka "github.com/bibbank/fund/pkg/kafka"
)

// Message headers set on every relayed event.
const (
	HeaderEventID       = "event_id"
	HeaderEventType     = "event_type"
	HeaderAggregateID   = "aggregate_id"
	HeaderAggregateType = "aggregate_type"
)

// MessageProducer is satisfied by *pkgkafka.Producer.
type MessageProducer interface {
	Publish(ctx context.Context, topic string, messages ...pkgkafka.Message) error
}

// OutboxPublisher implements port.EventPublisher by writing outbox entries to
// Kafka, keyed by aggregate ID so one aggregate's events stay ordered.
type OutboxPublisher struct {
	producer MessageProducer
	logger   *slog.Logger
}

var _ port.EventPublisher = (*OutboxPublisher)(nil)

// NewOutboxPublisher creates a publisher over producer.
func NewOutboxPublisher(producer MessageProducer, logger *slog.Logger) *OutboxPublisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &OutboxPublisher{producer: producer, logger: logger}
}

// Publish sends entries to topic in one write.
func (p *OutboxPublisher) Publish(ctx context.Context, topic string, entries ...events.OutboxEntry) error {
	if len(entries) == 0 {
		return nil
	}
	messages := make([]pkgkafka.Message, 0, len(entries))
	for _, e := range entries {
		p.logger.DebugContext(ctx, "publishing outbox entry",
			"event_type", e.EventType,
			"event_id", e.ID,
			"aggregate_id", e.AggregateID,
			"topic", topic,
			"payload_size", len(e.Payload),
		)
		messages = append(messages, pkgkafka.Message{
			Key:   []byte(e.AggregateID.String()),
			Value: e.Payload,
			Headers: map[string]string{
				HeaderEventID:       e.ID.String(),
				HeaderEventType:     e.EventType,
				HeaderAggregateID:   e.AggregateID.String(),
				HeaderAggregateType: e.AggregateType,
			},
		})
	}

	if err := p.producer.Publish(ctx, topic, messages...); err != nil {
		return fmt.Errorf("failed to publish %d events to topic %s: %w", len(messages), topic, err)
	}
	return nil
}
