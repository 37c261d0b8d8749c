package events

import (
	"context"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"
)

// HandlerFunc processes one message body. A nil error ACKs the message, an
// error NACKs it without requeue.
type HandlerFunc func(ctx context.Context, body []byte) error

type Consumer struct {
	ch     *amqp.Channel
	logger zerolog.Logger
}

func NewConsumer(conn *amqp.Connection, logger zerolog.Logger) (*Consumer, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("open channel: %w", err)
	}
	if err := declareEventsExchange(ch); err != nil {
		_ = ch.Close()
		return nil, fmt.Errorf("declare events exchange: %w", err)
	}
	return &Consumer{ch: ch, logger: logger}, nil
}

func (c *Consumer) Close() error {
	return c.ch.Close()
}

// Subscribe binds this service's durable queue for routingKey to the events
// exchange and runs handler for every delivery until ctx is done.
func (c *Consumer) Subscribe(ctx context.Context, routingKey string, handler HandlerFunc) error {
	queue := storefrontQueueName(routingKey)

	_, err := c.ch.QueueDeclare(
		queue,
		true,  // durable
		false, // autoDelete
		false, // exclusive
		false, // noWait
		nil,
	)
	if err != nil {
		return fmt.Errorf("queue declare %s: %w", queue, err)
	}

	if err := c.ch.QueueBind(queue, routingKey, EventsExchange, false, nil); err != nil {
		return fmt.Errorf("queue bind %s: %w", queue, err)
	}

	msgs, err := c.ch.Consume(
		queue,
		storefrontServiceName, // consumer tag
		false,                 // autoAck
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return fmt.Errorf("consume %s: %w", queue, err)
	}

	logger := c.logger.With().Str("queue", queue).Logger()
	go func() {
		for {
			select {
			case <-ctx.Done():
				logger.Info().Msg("stopping consumer")
				return
			case msg, ok := <-msgs:
				if !ok {
					logger.Warn().Msg("messages channel closed")
					return
				}
				dispatch(ctx, handler, msg, logger)
			}
		}
	}()

	return nil
}

type delivery interface {
	Ack(multiple bool) error
	Nack(multiple, requeue bool) error
	body() []byte
}

type amqpDelivery struct{ amqp.Delivery }

func (d amqpDelivery) body() []byte { return d.Body }

func dispatch(ctx context.Context, handler HandlerFunc, msg amqp.Delivery, logger zerolog.Logger) {
	handle(ctx, handler, amqpDelivery{msg}, logger)
}

func handle(ctx context.Context, handler HandlerFunc, d delivery, logger zerolog.Logger) {
	if err := handler(ctx, d.body()); err != nil {
		logger.Error().Err(err).Msg("handle message")
		_ = d.Nack(false, false)
		return
	}
	_ = d.Ack(false)
}
