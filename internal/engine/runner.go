package engine

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/v2gsim/v2gsim/internal/bus"
	"github.com/v2gsim/v2gsim/internal/message"
	"github.com/v2gsim/v2gsim/internal/observability/telemetry"
)

// LifecycleTopics are the bus topics of the manager protocol.
type LifecycleTopics struct {
	Epoch       string
	SimState    string
	StatusReady string
	StatusError string
}

// DefaultLifecycleTopics returns the platform defaults.
func DefaultLifecycleTopics() LifecycleTopics {
	return LifecycleTopics{
		Epoch:       "Epoch",
		SimState:    "SimState",
		StatusReady: "Status.Ready",
		StatusError: "Status.Error",
	}
}

// stopPollInterval is how often the loop re-checks the stop condition when
// the bus is quiet.
const stopPollInterval = time.Second

type delivery struct {
	topic string
	data  []byte
}

// Runner drives one Component against the bus. All component callbacks run
// on a single goroutine; bus subscriptions only enqueue deliveries.
type Runner struct {
	name      string
	comp      Component
	mq        bus.MessageQueue
	gen       *message.Generator
	log       *zap.Logger
	lifecycle LifecycleTopics

	deliveries chan delivery
	stop       chan struct{}
	done       chan struct{}
	stopOnce   sync.Once

	latestEpoch    *message.Epoch
	latestNumber   int
	completedEpoch int
	triggering     []string
}

// NewRunner wires a component to the bus. simulationID and name seed the
// outbound message envelopes.
func NewRunner(simulationID, name string, comp Component, mq bus.MessageQueue, lifecycle LifecycleTopics, log *zap.Logger) *Runner {
	return &Runner{
		name:       name,
		comp:       comp,
		mq:         mq,
		gen:        message.NewGenerator(simulationID, name),
		log:        log.With(zap.String("process", name)),
		lifecycle:  lifecycle,
		deliveries: make(chan delivery, 4096),
		stop:       make(chan struct{}),
		done:       make(chan struct{}),
	}
}

// Start subscribes to the lifecycle and component topics and launches the
// processing loop.
func (r *Runner) Start() error {
	topics := append([]string{r.lifecycle.SimState, r.lifecycle.Epoch}, r.comp.Topics()...)
	for _, topic := range topics {
		t := topic
		err := r.mq.Subscribe(t, func(data []byte) error {
			select {
			case r.deliveries <- delivery{topic: t, data: data}:
				return nil
			case <-r.done:
				return nil
			}
		})
		if err != nil {
			return fmt.Errorf("runner %s: subscribe %s: %w", r.name, t, err)
		}
	}

	go r.run()
	r.log.Info("Component started", zap.Strings("topics", topics))
	return nil
}

// Stop asks the loop to exit after any in-flight delivery.
func (r *Runner) Stop() {
	r.stopOnce.Do(func() { close(r.stop) })
}

// Done is closed once the processing loop has exited.
func (r *Runner) Done() <-chan struct{} { return r.done }

func (r *Runner) run() {
	defer close(r.done)

	ticker := time.NewTicker(stopPollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-r.stop:
			r.log.Info("Component stopping")
			return
		case <-ticker.C:
			// stop condition re-checked above; nothing else to do on a tick
		case d := <-r.deliveries:
			if r.handleDelivery(d) {
				return
			}
		}
	}
}

// handleDelivery processes one bus delivery. Returns true when the loop
// should exit (simulation stopped).
func (r *Runner) handleDelivery(d delivery) bool {
	msg, err := message.Decode(d.data)
	if err != nil {
		if errors.Is(err, message.ErrUnknownType) {
			r.log.Debug("Dropping message of unknown type", zap.String("topic", d.topic), zap.Error(err))
		} else {
			r.log.Warn("Dropping undecodable message", zap.String("topic", d.topic), zap.Error(err))
		}
		return false
	}
	telemetry.MessagesReceived.WithLabelValues(r.name, msg.MessageType()).Inc()

	switch m := msg.(type) {
	case *message.SimState:
		if m.State == message.SimStateStopped {
			r.log.Info("Simulation stopped by manager")
			r.Stop()
			return true
		}
		return false

	case *message.Epoch:
		if m.EpochNumber <= r.latestNumber {
			r.log.Warn("Ignoring stale epoch message",
				zap.Int("epoch", m.EpochNumber),
				zap.Int("latest", r.latestNumber),
			)
			return false
		}
		r.latestEpoch = m
		r.latestNumber = m.EpochNumber
		r.triggering = []string{m.MessageID}
		r.comp.ClearEpoch()
		r.log.Debug("Epoch opened", zap.Int("epoch", m.EpochNumber))
		r.tryAdvance()
		return false

	default:
		if r.latestEpoch == nil {
			r.log.Warn("Message before first epoch, ignoring",
				zap.String("type", msg.MessageType()),
				zap.String("source", msg.Meta().SourceProcessID),
			)
			return false
		}
		r.triggering = append(r.triggering, msg.Meta().MessageID)
		r.comp.HandleMessage(r, msg, d.topic)
		r.tryAdvance()
		return false
	}
}

// tryAdvance re-runs the component's epoch processing. Safe to call after
// every message: components gate their outbound bursts on per-epoch flags.
// It keeps running after the epoch completes so work that arrives late in
// the epoch (e.g. a discharge reply) is still flushed.
func (r *Runner) tryAdvance() {
	if r.latestEpoch == nil {
		return
	}

	done, err := r.comp.ProcessEpoch(r)
	if err != nil {
		r.log.Error("Epoch processing failed", zap.Int("epoch", r.latestNumber), zap.Error(err))
		r.SendError(err.Error())
		return
	}
	if !done || r.completedEpoch >= r.latestNumber {
		return
	}

	ready := &message.Status{Value: message.StatusReady}
	if err := r.Publish(r.lifecycle.StatusReady, ready); err != nil {
		r.log.Error("Failed to send ready status", zap.Int("epoch", r.latestNumber), zap.Error(err))
		return
	}
	r.completedEpoch = r.latestNumber
	telemetry.EpochsCompleted.WithLabelValues(r.name).Inc()
	r.log.Info("Epoch completed", zap.Int("epoch", r.latestNumber))
}

// Epoch implements Context.
func (r *Runner) Epoch() *message.Epoch { return r.latestEpoch }

// EpochNumber implements Context.
func (r *Runner) EpochNumber() int { return r.latestNumber }

// Logger implements Context.
func (r *Runner) Logger() *zap.Logger { return r.log }

// Publish implements Context.
func (r *Runner) Publish(topic string, msg message.Message) error {
	if err := r.gen.Stamp(msg, r.latestNumber, r.triggering); err != nil {
		return fmt.Errorf("runner %s: stamp: %w", r.name, err)
	}
	data, err := message.Encode(msg)
	if err != nil {
		return fmt.Errorf("runner %s: %w", r.name, err)
	}
	if err := r.mq.Publish(topic, data); err != nil {
		return fmt.Errorf("runner %s: publish %s: %w", r.name, topic, err)
	}
	telemetry.MessagesPublished.WithLabelValues(r.name, msg.MessageType()).Inc()
	return nil
}

// SendError implements Context. Failures to publish the error itself are
// only logged; agents never crash on message errors.
func (r *Runner) SendError(description string) {
	status := &message.Status{Value: message.StatusError, Description: description}
	if err := r.Publish(r.lifecycle.StatusError, status); err != nil {
		r.log.Error("Failed to send error status", zap.Error(err))
	}
}
