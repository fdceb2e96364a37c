package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"

	"github.com/iliyamo/studio-booking/internal/queue"
)

// EventPublisher announces domain events.  Publishing is best effort: the
// request that triggered the event has already committed.
type EventPublisher interface {
	PublishBookingCreated(ctx context.Context, ev queue.BookingCreatedEvent) error
	PublishOrderPaid(ctx context.Context, ev queue.OrderPaidEvent) error
}

// Publisher keeps one connection and channel to RabbitMQ for the life of
// the process.  A nil *Publisher is valid and drops every event.
type Publisher struct {
	mu   sync.Mutex
	url  string
	conn *amqp.Connection
	ch   *amqp.Channel
	log  *zerolog.Logger
}

// NewPublisher dials the broker and declares both event queues (durable).
func NewPublisher(url string, log *zerolog.Logger) (*Publisher, error) {
	if log == nil {
		nop := zerolog.Nop()
		log = &nop
	}
	p := &Publisher{url: url, log: log}
	if err := p.connect(); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *Publisher) connect() error {
	conn, err := amqp.Dial(p.url)
	if err != nil {
		return fmt.Errorf("rabbitmq: dial: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("rabbitmq: channel open: %w", err)
	}
	for _, q := range []string{queue.BookingCreatedQueue, queue.OrderPaidQueue} {
		if _, err := ch.QueueDeclare(q, true, false, false, false, nil); err != nil {
			_ = ch.Close()
			_ = conn.Close()
			return fmt.Errorf("rabbitmq: queue declare %s: %w", q, err)
		}
	}
	p.conn, p.ch = conn, ch
	return nil
}

// PublishBookingCreated implements EventPublisher.
func (p *Publisher) PublishBookingCreated(ctx context.Context, ev queue.BookingCreatedEvent) error {
	return p.publish(ctx, queue.BookingCreatedQueue, ev)
}

// PublishOrderPaid implements EventPublisher.
func (p *Publisher) PublishOrderPaid(ctx context.Context, ev queue.OrderPaidEvent) error {
	return p.publish(ctx, queue.OrderPaidQueue, ev)
}

func (p *Publisher) publish(ctx context.Context, routingKey string, v any) error {
	if p == nil {
		return nil
	}
	body, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("rabbitmq: marshal event: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	// the channel dies with its connection; re-dial once before giving up
	if p.ch == nil || p.ch.IsClosed() {
		if err := p.connect(); err != nil {
			p.log.Warn().Err(err).Str("queue", routingKey).Msg("rabbitmq: reconnect failed")
			return err
		}
	}

	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    uuid.NewString(),
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}
	if err := p.ch.PublishWithContext(ctx, "", routingKey, false, false, pub); err != nil {
		p.log.Warn().Err(err).Str("queue", routingKey).Msg("rabbitmq: publish failed")
		return err
	}
	return nil
}

// Close releases the channel and connection.
func (p *Publisher) Close() error {
	if p == nil {
		return nil
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	var errs []error
	if p.ch != nil {
		errs = append(errs, p.ch.Close())
	}
	if p.conn != nil {
		errs = append(errs, p.conn.Close())
	}
	p.ch, p.conn = nil, nil
	return errors.Join(errs...)
}
