package testutil

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"testing"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/testcontainers/testcontainers-go/modules/kafka"
)

// FundTopics are the topics the fund service reads and writes. The outbox
// relay fans out to the three event topics; the router consumes commands.
var FundTopics = []string{
	"fund.payment.events",
	"fund.loan.events",
	"fund.member.events",
	"fund.commands",
}

// KafkaContainer is a single-broker Kafka with the fund topics created up
// front, so producers never race topic auto-creation.
type KafkaContainer struct {
	Container *kafka.KafkaContainer
	Brokers   []string
	Topics    []string
}

// NewKafkaContainer starts a broker and creates topics on it, FundTopics when
// none are given. The caller should defer container.Cleanup(t).
func NewKafkaContainer(ctx context.Context, t *testing.T, topics ...string) *KafkaContainer {
	t.Helper()
	if len(topics) == 0 {
		topics = FundTopics
	}

	container, err := kafka.Run(ctx,
		"confluentinc/confluent-local:7.6.1",
		kafka.WithClusterID("fund-test"),
	)
	if err != nil {
		t.Fatalf("failed to start kafka container: %v", err)
	}
	kc := &KafkaContainer{Container: container, Topics: topics}

	kc.Brokers, err = container.Brokers(ctx)
	if err != nil {
		kc.Cleanup(t)
		t.Fatalf("failed to get kafka brokers: %v", err)
	}
	if err := kc.createTopics(ctx, topics...); err != nil {
		kc.Cleanup(t)
		t.Fatalf("failed to create fund topics: %v", err)
	}
	return kc
}

// Partitions lists the partitions of topic as the broker reports them.
func (kc *KafkaContainer) Partitions(ctx context.Context, topic string) ([]kafkago.Partition, error) {
	conn, err := kafkago.DialContext(ctx, "tcp", kc.Brokers[0])
	if err != nil {
		return nil, fmt.Errorf("dial broker: %w", err)
	}
	defer conn.Close()
	return conn.ReadPartitions(topic)
}

// createTopics goes through the controller; other brokers reject CreateTopics.
func (kc *KafkaContainer) createTopics(ctx context.Context, topics ...string) error {
	conn, err := kafkago.DialContext(ctx, "tcp", kc.Brokers[0])
	if err != nil {
		return fmt.Errorf("dial broker: %w", err)
	}
	defer conn.Close()

	controller, err := conn.Controller()
	if err != nil {
		return fmt.Errorf("find controller: %w", err)
	}
	ctrl, err := kafkago.DialContext(ctx, "tcp", net.JoinHostPort(controller.Host, strconv.Itoa(controller.Port)))
	if err != nil {
		return fmt.Errorf("dial controller: %w", err)
	}
	defer ctrl.Close()

	configs := make([]kafkago.TopicConfig, 0, len(topics))
	for _, topic := range topics {
		configs = append(configs, kafkago.TopicConfig{
			Topic:             topic,
			NumPartitions:     3,
			ReplicationFactor: 1,
		})
	}
	return ctrl.CreateTopics(configs...)
}

// Cleanup terminates the container.
func (kc *KafkaContainer) Cleanup(t *testing.T) {
	t.Helper()

	if kc.Container != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := kc.Container.Terminate(ctx); err != nil {
			t.Logf("warning: failed to terminate kafka container: %v", err)
		}
	}
}
