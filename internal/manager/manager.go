// Package manager implements the simulation manager: it opens the simulation,
// broadcasts epochs, collects each agent's Status Ready handshake and stops
// the simulation after the configured number of epochs.
package manager

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/v2gsim/v2gsim/internal/bus"
	"github.com/v2gsim/v2gsim/internal/engine"
	"github.com/v2gsim/v2gsim/internal/message"
)

// ErrAgentFailure is returned when an agent reports an Error status.
var ErrAgentFailure = errors.New("manager: agent reported error")

// Config carries the manager's startup parameters.
type Config struct {
	SimulationID  string
	ProcessID     string
	ExpectedReady int
	Epochs        int
	EpochStart    time.Time
	EpochLength   time.Duration
	EpochTimeout  time.Duration
	Lifecycle     engine.LifecycleTopics
}

type statusEvent struct {
	source      string
	epoch       int
	value       string
	description string
}

// Manager drives the epoch protocol.
type Manager struct {
	cfg    Config
	mq     bus.MessageQueue
	gen    *message.Generator
	log    *zap.Logger
	status chan statusEvent
}

// New creates a simulation manager.
func New(cfg Config, mq bus.MessageQueue, log *zap.Logger) *Manager {
	return &Manager{
		cfg:    cfg,
		mq:     mq,
		gen:    message.NewGenerator(cfg.SimulationID, cfg.ProcessID),
		log:    log.With(zap.String("process", cfg.ProcessID)),
		status: make(chan statusEvent, 1024),
	}
}

// Run executes the whole simulation: announce the run, drive every epoch to
// readiness, then stop the simulation. A stop message is broadcast even when
// an epoch fails, so agents shut down cleanly.
func (m *Manager) Run(ctx context.Context) error {
	for _, topic := range []string{m.cfg.Lifecycle.StatusReady, m.cfg.Lifecycle.StatusError} {
		if err := m.mq.Subscribe(topic, m.onStatus); err != nil {
			return fmt.Errorf("manager: subscribe %s: %w", topic, err)
		}
	}

	if err := m.publish(0, m.cfg.Lifecycle.SimState, &message.SimState{State: message.SimStateRunning}); err != nil {
		return err
	}
	m.log.Info("Simulation started",
		zap.String("simulation", m.cfg.SimulationID),
		zap.Int("epochs", m.cfg.Epochs),
		zap.Int("agents", m.cfg.ExpectedReady),
	)

	var runErr error
	for epoch := 1; epoch <= m.cfg.Epochs; epoch++ {
		if runErr = m.runEpoch(ctx, epoch); runErr != nil {
			break
		}
	}

	if err := m.publish(m.cfg.Epochs, m.cfg.Lifecycle.SimState, &message.SimState{State: message.SimStateStopped}); err != nil {
		m.log.Error("Failed to broadcast stop", zap.Error(err))
		if runErr == nil {
			runErr = err
		}
	}
	if runErr == nil {
		m.log.Info("Simulation finished")
	}
	return runErr
}

func (m *Manager) runEpoch(ctx context.Context, number int) error {
	start := m.cfg.EpochStart.Add(time.Duration(number-1) * m.cfg.EpochLength)
	epoch := &message.Epoch{
		StartTime: start,
		EndTime:   start.Add(m.cfg.EpochLength),
	}
	if err := m.publish(number, m.cfg.Lifecycle.Epoch, epoch); err != nil {
		return err
	}
	m.log.Info("Epoch opened", zap.Int("epoch", number), zap.Time("start", start))

	ready := make(map[string]bool, m.cfg.ExpectedReady)
	timeout := time.NewTimer(m.cfg.EpochTimeout)
	defer timeout.Stop()

	for len(ready) < m.cfg.ExpectedReady {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timeout.C:
			return fmt.Errorf("manager: epoch %d timed out with %d/%d agents ready",
				number, len(ready), m.cfg.ExpectedReady)
		case ev := <-m.status:
			if ev.value == message.StatusError {
				m.log.Error("Agent failed",
					zap.String("agent", ev.source),
					zap.Int("epoch", ev.epoch),
					zap.String("description", ev.description),
				)
				return fmt.Errorf("%w: %s: %s", ErrAgentFailure, ev.source, ev.description)
			}
			if ev.epoch != number {
				m.log.Warn("Stale ready status",
					zap.String("agent", ev.source),
					zap.Int("epoch", ev.epoch),
				)
				continue
			}
			ready[ev.source] = true
			m.log.Debug("Agent ready",
				zap.String("agent", ev.source),
				zap.Int("ready", len(ready)),
				zap.Int("expected", m.cfg.ExpectedReady),
			)
		}
	}

	m.log.Info("Epoch completed", zap.Int("epoch", number))
	return nil
}

func (m *Manager) onStatus(data []byte) error {
	msg, err := message.Decode(data)
	if err != nil {
		m.log.Warn("Dropping undecodable status", zap.Error(err))
		return nil
	}
	status, ok := msg.(*message.Status)
	if !ok {
		return nil
	}
	m.status <- statusEvent{
		source:      status.SourceProcessID,
		epoch:       status.EpochNumber,
		value:       status.Value,
		description: status.Description,
	}
	return nil
}

func (m *Manager) publish(epoch int, topic string, msg message.Message) error {
	if err := m.gen.Stamp(msg, epoch, nil); err != nil {
		return fmt.Errorf("manager: stamp: %w", err)
	}
	data, err := message.Encode(msg)
	if err != nil {
		return fmt.Errorf("manager: %w", err)
	}
	if err := m.mq.Publish(topic, data); err != nil {
		return fmt.Errorf("manager: publish %s: %w", topic, err)
	}
	return nil
}
