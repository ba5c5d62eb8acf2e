package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	skafka "github.com/segmentio/kafka-go"

	"github.com/99minutos/account-service/internal/core/domain"
)

// Writer is the subset of the segmentio kafka.Writer the publisher needs.
type Writer interface {
	WriteMessages(ctx context.Context, msgs ...skafka.Message) error
	Close() error
}

// Config captures the transport settings.
type Config struct {
	Brokers      []string
	WriteTimeout time.Duration
}

// Publisher writes lifecycle events to Kafka. The topic is chosen per message,
// so one writer serves every topic.
type Publisher struct {
	writer Writer
}

// NewPublisher builds a publisher backed by a real kafka.Writer.
func NewPublisher(cfg Config) *Publisher {
	timeout := cfg.WriteTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	w := &skafka.Writer{
		Addr:                   skafka.TCP(cfg.Brokers...),
		Balancer:               &skafka.Hash{},
		RequiredAcks:           skafka.RequireOne,
		WriteTimeout:           timeout,
		AllowAutoTopicCreation: true,
	}
	return &Publisher{writer: w}
}

// NewPublisherWithWriter allows injecting a test writer.
func NewPublisherWithWriter(w Writer) *Publisher {
	return &Publisher{writer: w}
}

// Write marshals event to JSON and writes one message keyed by key, so every
// event for an account lands on the same partition.
func (p *Publisher) Write(ctx context.Context, topic, key string, event domain.LifecycleEvent) error {
	b, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", event.Kind, err)
	}
	msg := skafka.Message{
		Topic: topic,
		Key:   []byte(key),
		Value: b,
		Time:  event.Timestamp,
		Headers: []skafka.Header{
			{Key: "event_type", Value: []byte(event.Kind)},
		},
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("kafka write %s: %w", topic, err)
	}
	return nil
}

// Close closes the underlying writer.
func (p *Publisher) Close() error {
	return p.writer.Close()
}
