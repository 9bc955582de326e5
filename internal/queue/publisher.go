package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"
)

// Publisher sends a JSON payload to a named queue.
type Publisher interface {
	Publish(ctx context.Context, queue string, v any) error
}

// AMQPPublisher publishes persistent JSON messages to RabbitMQ.  It dials
// per publish; traffic is a handful of messages per request.
type AMQPPublisher struct {
	url string
	log zerolog.Logger
}

func NewAMQPPublisher(url string, log zerolog.Logger) *AMQPPublisher {
	return &AMQPPublisher{url: url, log: log.With().Str("component", "publisher").Logger()}
}

// Publish declares the durable queue and sends v.  Errors are logged and
// returned so the caller can choose to ignore them.
func (p *AMQPPublisher) Publish(ctx context.Context, queue string, v any) error {
	body, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", queue, err)
	}
	conn, err := amqp.Dial(p.url)
	if err != nil {
		p.log.Error().Err(err).Str("queue", queue).Msg("dial failed")
		return err
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		p.log.Error().Err(err).Str("queue", queue).Msg("channel open failed")
		return err
	}
	defer func() { _ = ch.Close() }()

	if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		p.log.Error().Err(err).Str("queue", queue).Msg("queue declare failed")
		return err
	}

	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}
	if err := ch.PublishWithContext(ctx, "", queue, false, false, pub); err != nil {
		p.log.Error().Err(err).Str("queue", queue).Msg("publish failed")
		return err
	}
	return nil
}

// LocalPublisher runs the queue handlers in-process.  It stands in for
// the broker when none is configured.
type LocalPublisher struct {
	handlers Handlers
	log      zerolog.Logger
}

func NewLocalPublisher(h Handlers, log zerolog.Logger) *LocalPublisher {
	return &LocalPublisher{handlers: h, log: log.With().Str("component", "local-publisher").Logger()}
}

// Publish encodes v exactly as the broker path would and dispatches it.
func (p *LocalPublisher) Publish(ctx context.Context, queue string, v any) error {
	body, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", queue, err)
	}
	return p.handlers.Dispatch(ctx, queue, body)
}
