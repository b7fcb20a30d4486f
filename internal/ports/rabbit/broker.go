// Package rabbit implements the fan-out broker port on AMQP 0-9-1. Each game
// gets a topic exchange named by its id; each player a queue bound under the
// player's connection id and the shared broadcast key.
package rabbit

import (
	"context"
	"fmt"

	"wagerchess/internal/ports"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// Broker implements ports.Broker on a single AMQP channel.
type Broker struct {
	conn *amqp.Connection
	ch   *amqp.Channel
	log  *zap.SugaredLogger
}

// Dial connects to the AMQP URL and opens the channel.
func Dial(url string, log *zap.SugaredLogger) (*Broker, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("amqp dial: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("amqp channel: %w", err)
	}
	return &Broker{conn: conn, ch: ch, log: log}, nil
}

func (b *Broker) Close() error {
	if err := b.ch.Close(); err != nil {
		b.log.Errorf("close channel: %v", err)
	}
	return b.conn.Close()
}

func (b *Broker) ExchangeDeclare(_ context.Context, name string) error {
	return b.ch.ExchangeDeclare(name, "topic", false, false, false, false, nil)
}

func (b *Broker) ExchangeDelete(_ context.Context, name string) error {
	return b.ch.ExchangeDelete(name, false, false)
}

func (b *Broker) QueueDeclare(_ context.Context, name string) error {
	_, err := b.ch.QueueDeclare(name, false, false, false, false, nil)
	return err
}

func (b *Broker) QueueBind(_ context.Context, queue, exchange, routingKey string) error {
	return b.ch.QueueBind(queue, routingKey, exchange, false, nil)
}

func (b *Broker) QueueUnbind(_ context.Context, queue, exchange, routingKey string) error {
	return b.ch.QueueUnbind(queue, routingKey, exchange, nil)
}

func (b *Broker) QueueDelete(_ context.Context, queue string) error {
	_, err := b.ch.QueueDelete(queue, false, false, false)
	return err
}

func (b *Broker) Publish(ctx context.Context, exchange, routingKey string, body []byte) error {
	return b.ch.PublishWithContext(ctx, exchange, routingKey, false, false, amqp.Publishing{
		ContentType: "application/json",
		Body:        body,
	})
}

// Consume registers an auto-acked consumer on the queue. The queue name
// doubles as the consumer tag: one consumer per player queue.
func (b *Broker) Consume(queue string, handler ports.MessageHandler) (string, error) {
	deliveries, err := b.ch.Consume(queue, queue, true, false, false, false, nil)
	if err != nil {
		return "", fmt.Errorf("consume %s: %w", queue, err)
	}
	go func() {
		for d := range deliveries {
			handler(d.Body)
		}
	}()
	return queue, nil
}

func (b *Broker) Cancel(tag string) error {
	return b.ch.Cancel(tag, false)
}
