package messaging

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	amqp "github.com/rabbitmq/amqp091-go"
)

var (
	// ErrNacked is returned when the broker negatively acknowledges a message.
	ErrNacked = errors.New("messaging: message nacked by broker")
	// ErrUnavailable is returned while the publisher waits out the backoff after a failed reconnect.
	ErrUnavailable = errors.New("messaging: rabbitmq unavailable")
)

// confirmChannel is the subset of *amqp.Channel the publisher uses.
type confirmChannel interface {
	Confirm(noWait bool) error
	NotifyPublish(confirm chan amqp.Confirmation) chan amqp.Confirmation
	NotifyClose(c chan *amqp.Error) chan *amqp.Error
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// channelProvider opens a fresh channel, redialing the connection when it is gone.
type channelProvider func() (confirmChannel, error)

// RabbitMQPublisher publishes persistent messages with publisher confirms. Publishes are
// serialized per instance so each confirmation matches the message just sent.
//
// A channel that closes, fails a publish or misses a confirmation is dropped; the next Publish
// opens a new one. Failed reopen attempts are spaced by an exponential backoff.
type RabbitMQPublisher struct {
	open       channelProvider
	release    func() error
	exchange   string
	routingKey string
	now        func() time.Time

	mu          sync.Mutex
	ch          confirmChannel
	confirms    chan amqp.Confirmation
	closeNotify chan *amqp.Error
	retry       *backoff.ExponentialBackOff
	retryAt     time.Time
	closed      bool
}

// DialRabbitMQ connects to url, opens a confirm-mode channel and, when exchange is empty,
// declares a durable queue named routingKey on the default exchange.
func DialRabbitMQ(url, exchange, routingKey string) (*RabbitMQPublisher, error) {
	d := &amqpDialer{url: url, exchange: exchange, routingKey: routingKey}
	p, err := newRabbitMQPublisher(d.channel, exchange, routingKey)
	if err != nil {
		_ = d.close()
		return nil, err
	}
	p.release = d.close
	return p, nil
}

func newRabbitMQPublisher(open channelProvider, exchange, routingKey string) (*RabbitMQPublisher, error) {
	retry := backoff.NewExponentialBackOff()
	retry.InitialInterval = 200 * time.Millisecond
	retry.MaxInterval = 30 * time.Second
	p := &RabbitMQPublisher{
		open:       open,
		exchange:   exchange,
		routingKey: routingKey,
		now:        time.Now,
		retry:      retry,
	}
	if err := p.connectLocked(); err != nil {
		return nil, err
	}
	return p, nil
}

// Publish sends msg and waits for the broker's confirmation or ctx's end.
func (p *RabbitMQPublisher) Publish(ctx context.Context, msg Message) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return ErrClosed
	}
	select {
	case <-p.closeNotify:
		p.dropLocked()
	default:
	}
	if p.ch == nil {
		if now := p.now(); now.Before(p.retryAt) {
			return fmt.Errorf("%w: next reconnect in %s", ErrUnavailable, p.retryAt.Sub(now).Round(time.Millisecond))
		}
		if err := p.connectLocked(); err != nil {
			p.retryAt = p.now().Add(p.retry.NextBackOff())
			return fmt.Errorf("%w: %w", ErrUnavailable, err)
		}
	}

	err := p.ch.PublishWithContext(ctx, p.exchange, p.routingKey, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    msg.Key,
		Type:         msg.Type,
		Timestamp:    time.Now().UTC(),
		Body:         msg.Value,
	})
	if err != nil {
		p.dropLocked()
		return fmt.Errorf("messaging: rabbitmq publish: %w", err)
	}

	select {
	case c, ok := <-p.confirms:
		if !ok {
			p.dropLocked()
			return fmt.Errorf("%w: channel closed before confirmation", ErrUnavailable)
		}
		if !c.Ack {
			return fmt.Errorf("%w: delivery_tag=%d", ErrNacked, c.DeliveryTag)
		}
		return nil
	case <-ctx.Done():
		// A late confirmation would be read by the next Publish.
		p.dropLocked()
		return fmt.Errorf("messaging: rabbitmq confirm: %w", ctx.Err())
	}
}

// Close closes the channel and connection. Safe to call multiple times.
func (p *RabbitMQPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true
	var err error
	if p.ch != nil {
		err = p.ch.Close()
		p.ch = nil
	}
	if p.release != nil {
		if rerr := p.release(); err == nil {
			err = rerr
		}
	}
	return err
}

func (p *RabbitMQPublisher) connectLocked() error {
	ch, err := p.open()
	if err != nil {
		return err
	}
	if err := ch.Confirm(false); err != nil {
		_ = ch.Close()
		return fmt.Errorf("messaging: rabbitmq confirm mode: %w", err)
	}
	p.ch = ch
	p.confirms = ch.NotifyPublish(make(chan amqp.Confirmation, 1))
	p.closeNotify = ch.NotifyClose(make(chan *amqp.Error, 1))
	p.retry.Reset()
	p.retryAt = time.Time{}
	return nil
}

func (p *RabbitMQPublisher) dropLocked() {
	if p.ch == nil {
		return
	}
	_ = p.ch.Close()
	p.ch = nil
	p.confirms = nil
	p.closeNotify = nil
}

// amqpDialer owns the connection behind a RabbitMQPublisher. It is only used under the
// publisher's lock.
type amqpDialer struct {
	url        string
	exchange   string
	routingKey string
	conn       *amqp.Connection
}

func (d *amqpDialer) channel() (confirmChannel, error) {
	if d.conn == nil || d.conn.IsClosed() {
		conn, err := amqp.Dial(d.url)
		if err != nil {
			return nil, fmt.Errorf("messaging: rabbitmq dial: %w", err)
		}
		d.conn = conn
	}
	ch, err := d.conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("messaging: rabbitmq channel: %w", err)
	}
	if d.exchange == "" {
		if _, err := ch.QueueDeclare(d.routingKey, true, false, false, false, nil); err != nil {
			_ = ch.Close()
			return nil, fmt.Errorf("messaging: rabbitmq declare queue %s: %w", d.routingKey, err)
		}
	}
	return ch, nil
}

func (d *amqpDialer) close() error {
	if d.conn == nil {
		return nil
	}
	err := d.conn.Close()
	d.conn = nil
	if errors.Is(err, amqp.ErrClosed) {
		return nil
	}
	return err
}
