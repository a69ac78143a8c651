package bus

import (
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// RabbitMQBus implements MessageQueue on a single RabbitMQ topic exchange.
// Topics map to routing keys, so subscribers may use AMQP wildcard patterns
// (e.g. "Status.#").
type RabbitMQBus struct {
	conn     *amqp.Connection
	channel  *amqp.Channel
	url      string
	exchange string
	mu       sync.RWMutex
	log      *zap.Logger
}

// NewRabbitMQBus connects to RabbitMQ and declares the simulation's topic
// exchange.
func NewRabbitMQBus(url, exchange string, log *zap.Logger) (MessageQueue, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open RabbitMQ channel: %w", err)
	}

	if err := ch.ExchangeDeclare(exchange, "topic", false, true, false, false, nil); err != nil {
		conn.Close()
		return nil, fmt.Errorf("rabbitmq: declare exchange: %w", err)
	}

	b := &RabbitMQBus{
		conn:     conn,
		channel:  ch,
		url:      url,
		exchange: exchange,
		log:      log,
	}

	go b.monitorConnection()

	log.Info("Connected to RabbitMQ", zap.String("url", url), zap.String("exchange", exchange))
	return b, nil
}

func (b *RabbitMQBus) Publish(topic string, data []byte) error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.channel == nil {
		return fmt.Errorf("rabbitmq: channel not available")
	}

	err := b.channel.Publish(
		b.exchange, topic, false, false,
		amqp.Publishing{
			ContentType: "application/json",
			Body:        data,
			Timestamp:   time.Now(),
		},
	)
	if err != nil {
		return fmt.Errorf("rabbitmq: publish %s: %w", topic, err)
	}
	return nil
}

func (b *RabbitMQBus) Subscribe(topic string, handler func(data []byte) error) error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.channel == nil {
		return fmt.Errorf("rabbitmq: channel not available")
	}

	queue, err := b.channel.QueueDeclare("", false, true, true, false, nil)
	if err != nil {
		return fmt.Errorf("rabbitmq: declare queue: %w", err)
	}

	if err := b.channel.QueueBind(queue.Name, topic, b.exchange, false, nil); err != nil {
		return fmt.Errorf("rabbitmq: bind queue: %w", err)
	}

	msgs, err := b.channel.Consume(queue.Name, "", true, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("rabbitmq: consume: %w", err)
	}

	go func() {
		for msg := range msgs {
			if err := handler(msg.Body); err != nil {
				b.log.Error("Error processing RabbitMQ message",
					zap.String("topic", topic),
					zap.Error(err),
				)
			}
		}
	}()

	b.log.Info("Subscribed to topic", zap.String("topic", topic))
	return nil
}

func (b *RabbitMQBus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.channel != nil {
		b.channel.Close()
	}
	if b.conn != nil {
		return b.conn.Close()
	}
	return nil
}

func (b *RabbitMQBus) monitorConnection() {
	for {
		reason, ok := <-b.conn.NotifyClose(make(chan *amqp.Error))
		if !ok {
			return
		}
		b.log.Warn("RabbitMQ connection lost, reconnecting...", zap.String("reason", reason.Reason))

		for {
			time.Sleep(5 * time.Second)
			conn, err := amqp.Dial(b.url)
			if err != nil {
				b.log.Error("Failed to reconnect to RabbitMQ", zap.Error(err))
				continue
			}
			ch, err := conn.Channel()
			if err != nil {
				conn.Close()
				continue
			}
			if err := ch.ExchangeDeclare(b.exchange, "topic", false, true, false, false, nil); err != nil {
				conn.Close()
				continue
			}

			b.mu.Lock()
			b.conn = conn
			b.channel = ch
			b.mu.Unlock()

			b.log.Info("Reconnected to RabbitMQ")
			break
		}
	}
}
