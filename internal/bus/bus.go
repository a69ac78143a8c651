// Package bus provides the publish/subscribe message bus used by all
// simulation agents. Adapters exist for RabbitMQ (topic exchange), NATS and
// an in-process bus for tests and single-binary runs.
package bus

import (
	"fmt"

	"go.uber.org/zap"
)

// MessageQueue is the bus client contract. Publish is synchronous; Subscribe
// registers a handler that the adapter invokes once per delivery, possibly
// from its own goroutine. Handlers must be cheap: agents enqueue deliveries
// into their own serial processing loop.
type MessageQueue interface {
	Publish(topic string, data []byte) error
	Subscribe(topic string, handler func(data []byte) error) error
	Close() error
}

// New creates the configured bus backend: "rabbitmq", "nats" or "memory".
// The exchange name scopes the simulation on both brokered backends: it names
// the RabbitMQ topic exchange and the NATS subject namespace.
func New(backend, rabbitURL, exchange, natsURL string, log *zap.Logger) (MessageQueue, error) {
	switch backend {
	case "rabbitmq":
		return NewRabbitMQBus(rabbitURL, exchange, log)
	case "nats":
		return NewNATSBus(natsURL, exchange, log)
	case "memory":
		return NewInMemoryBus(log), nil
	default:
		return nil, fmt.Errorf("bus: unknown backend %q", backend)
	}
}
