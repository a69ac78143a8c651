package bus

import (
	"testing"

	"go.uber.org/zap"
)

func TestInMemoryBusDeliversToAllSubscribers(t *testing.T) {
	b := NewInMemoryBus(zap.NewNop())

	var first, second [][]byte
	if err := b.Subscribe("topic", func(data []byte) error {
		first = append(first, data)
		return nil
	}); err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	if err := b.Subscribe("topic", func(data []byte) error {
		second = append(second, data)
		return nil
	}); err != nil {
		t.Fatalf("Subscribe: %v", err)
	}

	if err := b.Publish("topic", []byte("payload")); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if err := b.Publish("other", []byte("elsewhere")); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	if len(first) != 1 || len(second) != 1 {
		t.Fatalf("deliveries = %d/%d, want 1/1", len(first), len(second))
	}
	if string(first[0]) != "payload" {
		t.Fatalf("delivered %q", first[0])
	}
}

func TestInMemoryBusCopiesPayloadPerSubscriber(t *testing.T) {
	b := NewInMemoryBus(zap.NewNop())

	var got []byte
	if err := b.Subscribe("topic", func(data []byte) error {
		got = data
		return nil
	}); err != nil {
		t.Fatalf("Subscribe: %v", err)
	}

	payload := []byte("payload")
	if err := b.Publish("topic", payload); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	payload[0] = 'X'

	if string(got) != "payload" {
		t.Fatalf("subscriber saw mutated payload %q", got)
	}
}

func TestInMemoryBusCloseStopsDelivery(t *testing.T) {
	b := NewInMemoryBus(zap.NewNop())

	delivered := 0
	if err := b.Subscribe("topic", func(data []byte) error {
		delivered++
		return nil
	}); err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	if err := b.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := b.Publish("topic", []byte("payload")); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	if delivered != 0 {
		t.Fatalf("deliveries after close = %d, want 0", delivered)
	}
}
