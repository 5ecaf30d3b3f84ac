package messaging

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/segmentio/kafka-go"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher implements Publisher using segmentio/kafka-go.
type KafkaPublisher struct {
	writer messageWriter
	topic  string
	closed atomic.Bool
}

// NewKafkaPublisher creates a publisher writing to topic. brokers and topic must be non-empty.
// Call Close when shutting down.
func NewKafkaPublisher(brokers []string, topic string) (*KafkaPublisher, error) {
	if len(brokers) == 0 || topic == "" {
		return nil, errors.New("messaging: kafka brokers and topic are required")
	}
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		BatchTimeout: 50 * time.Millisecond,
	}
	return &KafkaPublisher{writer: writer, topic: topic}, nil
}

// Publish writes msg keyed by msg.Key so events for one capture land on one partition.
// The caller's context bounds the write.
func (p *KafkaPublisher) Publish(ctx context.Context, msg Message) error {
	if p.closed.Load() {
		return ErrClosed
	}
	km := kafka.Message{Key: []byte(msg.Key), Value: msg.Value}
	if msg.Type != "" {
		km.Headers = []kafka.Header{{Key: "event_type", Value: []byte(msg.Type)}}
	}
	return p.writer.WriteMessages(ctx, km)
}

// Close closes the Kafka writer. Safe to call multiple times.
func (p *KafkaPublisher) Close() error {
	if p.closed.Swap(true) {
		return nil
	}
	return p.writer.Close()
}
