package usecase

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/bibbank/fund/internal/application/dto"
	"github.com/bibbank/fund/internal/domain/event"
	"github.com/bibbank/fund/internal/domain/port"
	"github.com/bibbank/fund/pkg/events"
)

const defaultRelayBatch = 100

// RelayOutboxUseCase publishes committed outbox entries to the broker.
type RelayOutboxUseCase struct {
	deps      Deps
	publisher port.EventPublisher
}

// NewRelayOutboxUseCase wires dependencies.
func NewRelayOutboxUseCase(deps Deps, publisher port.EventPublisher) *RelayOutboxUseCase {
	return &RelayOutboxUseCase{deps: deps, publisher: publisher}
}

// Execute relays one batch grouped by topic. A topic that fails to publish
// is logged and its entries stay unpublished for the next tick.
func (uc *RelayOutboxUseCase) Execute(ctx context.Context, req dto.RelayOutboxRequest) (dto.RelayOutboxResponse, error) {
	batch := req.BatchSize
	if batch <= 0 {
		batch = defaultRelayBatch
	}
	entries, err := uc.deps.Outbox.FetchUnpublished(ctx, batch)
	if err != nil {
		return dto.RelayOutboxResponse{}, fmt.Errorf("fetch outbox: %w", err)
	}
	if len(entries) == 0 {
		return dto.RelayOutboxResponse{}, nil
	}

	var topics []string
	byTopic := make(map[string][]events.OutboxEntry)
	for _, e := range entries {
		topic := event.TopicFor(e.AggregateType)
		if _, ok := byTopic[topic]; !ok {
			topics = append(topics, topic)
		}
		byTopic[topic] = append(byTopic[topic], e)
	}

	var resp dto.RelayOutboxResponse
	published := make([]uuid.UUID, 0, len(entries))
	for _, topic := range topics {
		group := byTopic[topic]
		if err := uc.publisher.Publish(ctx, topic, group...); err != nil {
			uc.deps.logger().Error("outbox publish failed",
				"topic", topic,
				"entries", len(group),
				"error", err,
			)
			resp.Failed += len(group)
			continue
		}
		for _, e := range group {
			published = append(published, e.ID)
		}
	}

	if len(published) > 0 {
		if err := uc.deps.Outbox.MarkPublished(ctx, published, uc.deps.now()); err != nil {
			return resp, fmt.Errorf("mark outbox published: %w", err)
		}
	}
	resp.Published = len(published)

	outboxRelayed.Add(ctx, int64(resp.Published), metric.WithAttributes(attribute.String("result", "published")))
	outboxRelayed.Add(ctx, int64(resp.Failed), metric.WithAttributes(attribute.String("result", "failed")))
	return resp, nil
}
