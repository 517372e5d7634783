package kafka

import (
	"crypto/tls"
	"fmt"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/segmentio/kafka-go/sasl"
	"github.com/segmentio/kafka-go/sasl/plain"
	"github.com/segmentio/kafka-go/sasl/scram"
)

// Config holds Kafka connection parameters.
type Config struct {
	ConsumerGroup string

	// SASL configuration for authentication.
	SASLMechanism string // "PLAIN" or "SCRAM-SHA-256" or "SCRAM-SHA-512"
	SASLUsername  string
	SASLPassword  string

	Brokers []string

	// MaxHandlerAttempts bounds redelivery of a failing message inside the
	// consumer loop before it is logged and committed. Zero means 3.
	MaxHandlerAttempts int
	RetryBackoff       time.Duration

	// TLS enables TLS for Kafka connections.
	TLS         bool
	SASLEnabled bool
}

func (c Config) tlsConfig() *tls.Config {
	if !c.TLS {
		return nil
	}
	return &tls.Config{MinVersion: tls.VersionTLS12}
}

func (c Config) saslMechanism() (sasl.Mechanism, error) {
	if !c.SASLEnabled {
		return nil, nil
	}
	switch c.SASLMechanism {
	case "SCRAM-SHA-256":
		return scram.Mechanism(scram.SHA256, c.SASLUsername, c.SASLPassword)
	case "SCRAM-SHA-512":
		return scram.Mechanism(scram.SHA512, c.SASLUsername, c.SASLPassword)
	case "PLAIN", "":
		return plain.Mechanism{Username: c.SASLUsername, Password: c.SASLPassword}, nil
	default:
		return nil, fmt.Errorf("kafka: unsupported SASL mechanism %q", c.SASLMechanism)
	}
}

// transport builds the writer transport shared by every topic writer.
func (c Config) transport() (*kafkago.Transport, error) {
	mech, err := c.saslMechanism()
	if err != nil {
		return nil, err
	}
	return &kafkago.Transport{TLS: c.tlsConfig(), SASL: mech}, nil
}

// dialer builds the reader dialer, or nil when neither TLS nor SASL is set.
func (c Config) dialer() (*kafkago.Dialer, error) {
	if !c.TLS && !c.SASLEnabled {
		return nil, nil
	}
	mech, err := c.saslMechanism()
	if err != nil {
		return nil, err
	}
	return &kafkago.Dialer{
		Timeout:       10 * time.Second,
		DualStack:     true,
		TLS:           c.tlsConfig(),
		SASLMechanism: mech,
	}, nil
}

func (c Config) maxAttempts() int {
	if c.MaxHandlerAttempts <= 0 {
		return 3
	}
	return c.MaxHandlerAttempts
}

func (c Config) backoff() time.Duration {
	if c.RetryBackoff <= 0 {
		return 500 * time.Millisecond
	}
	return c.RetryBackoff
}
