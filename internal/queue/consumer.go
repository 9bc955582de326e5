package queue

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"
)

// Handler processes one message body.
type Handler func(ctx context.Context, body []byte) error

// Handlers maps queue names to their handler.
type Handlers map[string]Handler

// ErrNoHandler is returned by Dispatch for a queue nobody handles.
var ErrNoHandler = errors.New("no handler for queue")

// Dispatch runs the handler registered for queue.
func (h Handlers) Dispatch(ctx context.Context, queue string, body []byte) error {
	fn, ok := h[queue]
	if !ok {
		return fmt.Errorf("%w %q", ErrNoHandler, queue)
	}
	return fn(ctx, body)
}

// Queues returns the handled queue names in a stable order.
func (h Handlers) Queues() []string {
	names := make([]string, 0, len(h))
	for name := range h {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Consumer consumes every queue in handlers from RabbitMQ, reconnecting
// with exponential backoff until ctx is cancelled.
type Consumer struct {
	url      string
	handlers Handlers
	log      zerolog.Logger
}

func NewConsumer(url string, h Handlers, log zerolog.Logger) *Consumer {
	return &Consumer{url: url, handlers: h, log: log.With().Str("component", "consumer").Logger()}
}

// Run blocks until ctx is done.
func (c *Consumer) Run(ctx context.Context) {
	backoff := time.Second
	for {
		if ctx.Err() != nil {
			return
		}
		conn, err := amqp.Dial(c.url)
		if err != nil {
			c.log.Warn().Err(err).Dur("retry_in", backoff).Msg("failed to dial broker")
			if !sleep(ctx, backoff) {
				return
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		err = c.consume(ctx, conn)
		_ = conn.Close()
		if ctx.Err() != nil {
			return
		}
		c.log.Warn().Err(err).Msg("consume loop ended; reconnecting")
		if !sleep(ctx, 2*time.Second) {
			return
		}
	}
}

func (c *Consumer) consume(ctx context.Context, conn *amqp.Connection) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(50, 0, false); err != nil {
		c.log.Warn().Err(err).Msg("set QoS failed")
	}

	done := make(chan struct{})
	var once sync.Once
	stop := func() { once.Do(func() { close(done) }) }

	var wg sync.WaitGroup
	for _, queue := range c.handlers.Queues() {
		if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
			return fmt.Errorf("queue declare %s: %w", queue, err)
		}
		msgs, err := ch.Consume(queue, "", false, false, false, false, nil)
		if err != nil {
			return fmt.Errorf("queue consume %s: %w", queue, err)
		}
		wg.Add(1)
		go func(queue string, msgs <-chan amqp.Delivery) {
			defer wg.Done()
			defer stop()
			for d := range msgs {
				c.handle(ctx, queue, d)
			}
		}(queue, msgs)
	}
	c.log.Info().Strs("queues", c.handlers.Queues()).Msg("consuming")

	select {
	case <-ctx.Done():
		_ = ch.Close()
		wg.Wait()
		return ctx.Err()
	case <-done:
		_ = ch.Close()
		wg.Wait()
		return errors.New("deliveries channel closed")
	}
}

// acker is the part of amqp.Delivery the consumer needs.
type acker interface {
	Ack(multiple bool) error
	Nack(multiple, requeue bool) error
}

func (c *Consumer) handle(ctx context.Context, queue string, d amqp.Delivery) {
	c.settle(ctx, queue, d.Body, &d)
}

// settle acks on success and rejects without requeue on failure, so a
// poison message cannot spin.
func (c *Consumer) settle(ctx context.Context, queue string, body []byte, a acker) {
	if err := c.handlers.Dispatch(ctx, queue, body); err != nil {
		c.log.Error().Err(err).Str("queue", queue).Msg("handle message failed")
		_ = a.Nack(false, false)
		return
	}
	_ = a.Ack(false)
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
