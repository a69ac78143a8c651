package bus

import (
	"sync"

	"go.uber.org/zap"
)

// InMemoryBus is a process-local MessageQueue. It delivers each published
// payload to every handler subscribed to the topic, in subscription order,
// on the publisher's goroutine. Used by the all-in-one harness and by tests.
type InMemoryBus struct {
	mu       sync.RWMutex
	handlers map[string][]func(data []byte) error
	log      *zap.Logger
	closed   bool
}

// NewInMemoryBus creates an empty in-process bus.
func NewInMemoryBus(log *zap.Logger) *InMemoryBus {
	return &InMemoryBus{
		handlers: make(map[string][]func(data []byte) error),
		log:      log,
	}
}

func (b *InMemoryBus) Publish(topic string, data []byte) error {
	b.mu.RLock()
	if b.closed {
		b.mu.RUnlock()
		return nil
	}
	handlers := append([]func([]byte) error(nil), b.handlers[topic]...)
	b.mu.RUnlock()

	for _, handler := range handlers {
		// Each subscriber gets its own copy; handlers may retain the slice.
		payload := append([]byte(nil), data...)
		if err := handler(payload); err != nil {
			b.log.Error("Error processing message", zap.String("topic", topic), zap.Error(err))
		}
	}
	return nil
}

func (b *InMemoryBus) Subscribe(topic string, handler func(data []byte) error) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[topic] = append(b.handlers[topic], handler)
	return nil
}

func (b *InMemoryBus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	b.handlers = make(map[string][]func(data []byte) error)
	return nil
}
