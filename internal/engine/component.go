// Package engine runs simulation agents against the message bus: it owns the
// SimState/Epoch lifecycle, the serial message-processing loop and the
// Status Ready handshake with the simulation manager. Agent behaviour plugs
// in through the Component interface.
package engine

import (
	"go.uber.org/zap"

	"github.com/v2gsim/v2gsim/internal/message"
)

// Context is the runner surface a component uses while handling messages and
// processing an epoch. All calls happen on the component's single
// processing goroutine.
type Context interface {
	// Epoch returns the latest epoch message, or nil before the first epoch.
	Epoch() *message.Epoch
	// EpochNumber returns the latest epoch number, 0 before the first epoch.
	EpochNumber() int
	// Publish stamps msg with the current epoch and triggering message ids,
	// encodes it and sends it on topic.
	Publish(topic string, msg message.Message) error
	// SendError publishes an Error status for the current epoch.
	SendError(description string)
	// Logger returns the component's logger.
	Logger() *zap.Logger
}

// Component is one simulation agent's behaviour. The runner guarantees
// strictly serial invocation: no two methods ever run concurrently.
type Component interface {
	// Topics lists the bus topics to subscribe to, beyond Epoch and
	// SimState which the runner handles itself.
	Topics() []string
	// ClearEpoch resets per-epoch state. Called when a new epoch opens,
	// before any ProcessEpoch call for that epoch.
	ClearEpoch()
	// HandleMessage processes one inbound message. The runner calls
	// ProcessEpoch afterwards, so handlers only mutate state.
	HandleMessage(ctx Context, msg message.Message, topic string)
	// ProcessEpoch attempts to make epoch progress. It is invoked after the
	// epoch opens and after every inbound message, and must be idempotent.
	// Returning true signals the epoch is complete and triggers the Status
	// Ready handshake.
	ProcessEpoch(ctx Context) (bool, error)
}
