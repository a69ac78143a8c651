package bus

import (
	"fmt"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

// NATSBus implements MessageQueue on NATS subjects. Topics are prefixed with
// the simulation's namespace ("<namespace>.<topic>") so several simulations
// can share one server, matching the per-exchange scoping of the RabbitMQ
// adapter. Unlike RabbitMQ, the client library reconnects on its own; the
// adapter only configures and logs it.
type NATSBus struct {
	conn      *nats.Conn
	namespace string
	mu        sync.Mutex
	subs      []*nats.Subscription
	log       *zap.Logger
}

// NewNATSBus connects to a NATS server. The connection retries forever on
// drops, buffering publishes while disconnected.
func NewNATSBus(url, namespace string, log *zap.Logger) (MessageQueue, error) {
	nc, err := nats.Connect(url,
		nats.Name(namespace),
		nats.ReconnectWait(5*time.Second),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			log.Warn("NATS connection lost, reconnecting...", zap.Error(err))
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info("Reconnected to NATS", zap.String("url", nc.ConnectedUrl()))
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	log.Info("Connected to NATS", zap.String("url", url), zap.String("namespace", namespace))
	return &NATSBus{
		conn:      nc,
		namespace: namespace,
		log:       log,
	}, nil
}

func (b *NATSBus) subject(topic string) string {
	if b.namespace == "" {
		return topic
	}
	return b.namespace + "." + topic
}

func (b *NATSBus) Publish(topic string, data []byte) error {
	if err := b.conn.Publish(b.subject(topic), data); err != nil {
		return fmt.Errorf("nats: publish %s: %w", topic, err)
	}
	return nil
}

func (b *NATSBus) Subscribe(topic string, handler func(data []byte) error) error {
	sub, err := b.conn.Subscribe(b.subject(topic), func(msg *nats.Msg) {
		if err := handler(msg.Data); err != nil {
			b.log.Error("Error processing NATS message",
				zap.String("topic", topic),
				zap.Error(err),
			)
		}
	})
	if err != nil {
		return fmt.Errorf("nats: subscribe %s: %w", topic, err)
	}

	b.mu.Lock()
	b.subs = append(b.subs, sub)
	b.mu.Unlock()

	b.log.Info("Subscribed to topic",
		zap.String("topic", topic),
		zap.String("subject", b.subject(topic)),
	)
	return nil
}

// Close unsubscribes every registered subscription, then drains the
// connection so in-flight deliveries finish before it closes.
func (b *NATSBus) Close() error {
	b.mu.Lock()
	subs := b.subs
	b.subs = nil
	b.mu.Unlock()

	for _, sub := range subs {
		if err := sub.Unsubscribe(); err != nil {
			b.log.Warn("Failed to unsubscribe", zap.Error(err))
		}
	}
	return b.conn.Drain()
}
