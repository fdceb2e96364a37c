package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"

	"github.com/iliyamo/studio-booking/internal/mailer"
)

// ErrBadPayload marks a delivery that can never be processed.  Such
// messages are rejected without requeue.
var ErrBadPayload = errors.New("queue: bad payload")

// Consumer listens on the booking.created and order.paid queues and sends
// a confirmation email for each event.
type Consumer struct {
	url    string
	mail   mailer.Mailer
	log    *zerolog.Logger
	minGap time.Duration
	maxGap time.Duration
}

// NewConsumer builds a consumer for the broker at url.
func NewConsumer(url string, m mailer.Mailer, log *zerolog.Logger) *Consumer {
	if log == nil {
		nop := zerolog.Nop()
		log = &nop
	}
	return &Consumer{url: url, mail: m, log: log, minGap: time.Second, maxGap: 30 * time.Second}
}

// Run connects to the broker and consumes until ctx is cancelled.  Lost
// connections are re-dialled with exponential backoff.
func (c *Consumer) Run(ctx context.Context) error {
	backoff := c.minGap
	for {
		conn, err := amqp.Dial(c.url)
		if err != nil {
			c.log.Warn().Err(err).Dur("retry_in", backoff).Msg("consumer: dial broker failed")
			if !sleep(ctx, backoff) {
				return ctx.Err()
			}
			if backoff < c.maxGap {
				backoff *= 2
			}
			continue
		}
		backoff = c.minGap

		err = c.consumeLoop(ctx, conn)
		_ = conn.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		c.log.Warn().Err(err).Msg("consumer: consume loop ended, reconnecting")
		if !sleep(ctx, 2*time.Second) {
			return ctx.Err()
		}
	}
}

func (c *Consumer) consumeLoop(ctx context.Context, conn *amqp.Connection) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(50, 0, false); err != nil {
		c.log.Warn().Err(err).Msg("consumer: set QoS failed")
	}

	var streams []<-chan amqp.Delivery
	for _, q := range []string{BookingCreatedQueue, OrderPaidQueue} {
		if _, err := ch.QueueDeclare(q, true, false, false, false, nil); err != nil {
			return fmt.Errorf("queue declare %s: %w", q, err)
		}
		msgs, err := ch.Consume(q, "", false, false, false, false, nil)
		if err != nil {
			return fmt.Errorf("queue consume %s: %w", q, err)
		}
		streams = append(streams, msgs)
	}
	bookings, orders := streams[0], streams[1]

	for {
		var (
			d  amqp.Delivery
			ok bool
		)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok = <-bookings:
		case d, ok = <-orders:
		}
		if !ok {
			return errors.New("deliveries channel closed")
		}
		c.settle(ctx, d)
	}
}

// settle processes one delivery: ack on success, reject without requeue
// for bad payloads, and requeue once for delivery failures.
func (c *Consumer) settle(ctx context.Context, d amqp.Delivery) {
	err := c.Handle(ctx, d.RoutingKey, d.Body)
	switch {
	case err == nil:
		_ = d.Ack(false)
	case errors.Is(err, ErrBadPayload):
		c.log.Error().Err(err).Str("queue", d.RoutingKey).Msg("consumer: dropping message")
		_ = d.Nack(false, false)
	default:
		c.log.Error().Err(err).Str("queue", d.RoutingKey).Bool("redelivered", d.Redelivered).Msg("consumer: handle message failed")
		_ = d.Nack(false, !d.Redelivered)
	}
}

// Handle decodes one message from queue and sends the matching email.
func (c *Consumer) Handle(ctx context.Context, queue string, body []byte) error {
	switch queue {
	case BookingCreatedQueue:
		var ev BookingCreatedEvent
		if err := json.Unmarshal(body, &ev); err != nil {
			return fmt.Errorf("%w: %v", ErrBadPayload, err)
		}
		if ev.BookingID == 0 || ev.UserEmail == "" {
			return fmt.Errorf("%w: booking event without id or email", ErrBadPayload)
		}
		c.log.Info().Uint64("booking_id", ev.BookingID).Uint64("user_id", ev.UserID).
			Uint64("session_id", ev.SessionID).Int("seats", ev.Seats).Msg("booking created")
		return c.mail.Send(ctx, mailer.BookingConfirmationEmail(ev.UserEmail, ev.UserName, mailer.BookingDetails{
			BookingID:  ev.BookingID,
			Instructor: ev.Instructor,
			Date:       ev.Date,
			StartTime:  ev.StartTime,
			EndTime:    ev.EndTime,
			Seats:      ev.Seats,
			Amount:     ev.Amount,
			Currency:   ev.Currency,
		}))
	case OrderPaidQueue:
		var ev OrderPaidEvent
		if err := json.Unmarshal(body, &ev); err != nil {
			return fmt.Errorf("%w: %v", ErrBadPayload, err)
		}
		if ev.OrderID == 0 || ev.UserEmail == "" {
			return fmt.Errorf("%w: order event without id or email", ErrBadPayload)
		}
		c.log.Info().Uint64("order_id", ev.OrderID).Uint64("user_id", ev.UserID).
			Int64("amount", ev.Amount).Str("payment_ref", ev.PaymentRef).Msg("order paid")
		return c.mail.Send(ctx, mailer.OrderPaidEmail(ev.UserEmail, ev.UserName, ev.OrderID, ev.Amount, ev.Currency))
	default:
		return fmt.Errorf("%w: unknown queue %q", ErrBadPayload, queue)
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
