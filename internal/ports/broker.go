package ports

import "context"

// MessageHandler consumes one raw message body delivered from a queue.
type MessageHandler func(body []byte)

// Broker manages the per-game fan-out topology: one topic exchange per game,
// one queue per player bound under the player's connection id and the shared
// broadcast key.
type Broker interface {
	ExchangeDeclare(ctx context.Context, name string) error
	ExchangeDelete(ctx context.Context, name string) error

	QueueDeclare(ctx context.Context, name string) error
	QueueBind(ctx context.Context, queue, exchange, routingKey string) error
	QueueUnbind(ctx context.Context, queue, exchange, routingKey string) error
	QueueDelete(ctx context.Context, queue string) error

	// Publish routes the body through the exchange under the routing key.
	Publish(ctx context.Context, exchange, routingKey string, body []byte) error

	// Consume registers a handler for the queue and returns a consumer tag
	// that can later be passed to Cancel.
	Consume(queue string, handler MessageHandler) (tag string, err error)
	Cancel(tag string) error
}
