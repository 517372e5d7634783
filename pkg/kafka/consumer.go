package kafka

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	kafkago "github.com/segmentio/kafka-go"
)

// Handler processes a consumed Kafka message.
type Handler func(ctx context.Context, msg Message) error

// Consumer wraps kafka-go reader for consuming messages.
type Consumer struct {
	reader      *kafkago.Reader
	handler     Handler
	logger      *slog.Logger
	maxAttempts int
	backoff     time.Duration
}

// NewConsumer creates a new Consumer for the given topic with the provided handler.
func NewConsumer(cfg Config, topic string, handler Handler, logger *slog.Logger) (*Consumer, error) {
	if logger == nil {
		logger = slog.Default()
	}
	dialer, err := cfg.dialer()
	if err != nil {
		return nil, err
	}

	r := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:  cfg.Brokers,
		Topic:    topic,
		GroupID:  cfg.ConsumerGroup,
		MinBytes: 1,
		MaxBytes: 10 * 1024 * 1024, // 10 MB
		Dialer:   dialer,
	})

	return &Consumer{
		reader:      r,
		handler:     handler,
		logger:      logger,
		maxAttempts: cfg.maxAttempts(),
		backoff:     cfg.backoff(),
	}, nil
}

// Start begins consuming messages. Blocks until the context is canceled.
// A message is committed once the handler succeeds or after its attempts are
// exhausted, so one poison message cannot stall the partition.
func (c *Consumer) Start(ctx context.Context) error {
	c.logger.Info("consumer starting", "topic", c.reader.Config().Topic, "group", c.reader.Config().GroupID)

	for {
		m, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				c.logger.Info("consumer stopping due to context cancellation")
				return nil
			}
			return fmt.Errorf("fetching message: %w", err)
		}

		if err := c.handle(ctx, fromKafkaMessage(m)); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			c.logger.Error("dropping message after handler failures",
				"topic", m.Topic,
				"partition", m.Partition,
				"offset", m.Offset,
				"attempts", c.maxAttempts,
				"error", err,
			)
		}

		if err := c.reader.CommitMessages(ctx, m); err != nil {
			c.logger.Error("commit error",
				"topic", m.Topic,
				"partition", m.Partition,
				"offset", m.Offset,
				"error", err,
			)
		}
	}
}

func (c *Consumer) handle(ctx context.Context, msg Message) error {
	var err error
	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		if err = c.handler(ctx, msg); err == nil {
			return nil
		}
		if attempt == c.maxAttempts {
			break
		}
		c.logger.Warn("handler error, retrying", "attempt", attempt, "error", err)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(c.backoff * time.Duration(attempt)):
		}
	}
	return err
}

func fromKafkaMessage(m kafkago.Message) Message {
	msg := Message{
		Key:     m.Key,
		Value:   m.Value,
		Headers: make(map[string]string, len(m.Headers)),
	}
	for _, h := range m.Headers {
		msg.Headers[h.Key] = string(h.Value)
	}
	return msg
}

// Close closes the reader.
func (c *Consumer) Close() error {
	if err := c.reader.Close(); err != nil {
		return fmt.Errorf("closing kafka reader: %w", err)
	}
	return nil
}
