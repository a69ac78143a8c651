package message

import (
	"fmt"
	"time"
)

// Generator stamps outbound messages with the shared envelope attributes for
// one source process. Message ids are "<process>-<n>" with n increasing per
// generated message. Not safe for concurrent use; each agent owns one
// generator on its single message-processing goroutine.
type Generator struct {
	simulationID    string
	sourceProcessID string
	counter         int
}

// NewGenerator creates a generator for the given simulation and process.
func NewGenerator(simulationID, sourceProcessID string) *Generator {
	return &Generator{
		simulationID:    simulationID,
		sourceProcessID: sourceProcessID,
	}
}

// Stamp fills the envelope of msg for the given epoch and validates the
// result. The concrete message's type-specific attributes must already be
// set. A validation failure here is a message-construction error: the
// message must not be published.
func (g *Generator) Stamp(msg Message, epoch int, triggering []string) error {
	g.counter++
	env := msg.Meta()
	env.Type = msg.MessageType()
	env.SimulationID = g.simulationID
	env.SourceProcessID = g.sourceProcessID
	env.MessageID = fmt.Sprintf("%s-%d", g.sourceProcessID, g.counter)
	env.EpochNumber = epoch
	env.TriggeringMessageIDs = append([]string(nil), triggering...)
	env.Timestamp = time.Now().UTC()

	if err := env.validate(); err != nil {
		return err
	}
	if err := msg.Validate(); err != nil {
		return fmt.Errorf("generator: %s: %w", msg.MessageType(), err)
	}
	return nil
}
