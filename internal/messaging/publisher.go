// Package messaging defines the message channel domain events are published to, with Kafka,
// RabbitMQ and log-only implementations.
package messaging

import (
	"context"
	"errors"
)

// ErrClosed is returned by Publish after Close.
var ErrClosed = errors.New("messaging: publisher closed")

// Message is one payload addressed to the configured channel.
type Message struct {
	// Key identifies the entity the payload describes (the payload "id"). Used for partitioning.
	Key string
	// Type is the domain event type, carried as a header where the broker supports one.
	Type  string
	Value []byte
}

// Publisher delivers messages to a broker. Publish returns only after the broker accepted the
// message, or with an error.
type Publisher interface {
	Publish(ctx context.Context, msg Message) error
	// Close releases broker resources. Safe to call more than once.
	Close() error
}

var (
	_ Publisher = (*KafkaPublisher)(nil)
	_ Publisher = (*RabbitMQPublisher)(nil)
	_ Publisher = (*LogPublisher)(nil)
)
