// Package grid implements the grid agent: it tracks the instantaneous
// available capacity, debits the controller's allocations, re-accumulates
// discharged energy and publishes a GridState every epoch.
package grid

import (
	"math"

	"go.uber.org/zap"

	"github.com/v2gsim/v2gsim/internal/engine"
	"github.com/v2gsim/v2gsim/internal/message"
)

// Topics names the grid agent's bus routing keys.
type Topics struct {
	GridState        string
	DischargeFromStn string
	UsedPower        string
}

// DefaultTopics returns the platform default routing keys.
func DefaultTopics() Topics {
	return Topics{
		GridState:        message.TopicGridState,
		DischargeFromStn: message.TopicPowerDischargeStationToGrid,
		UsedPower:        message.TopicUsedPowerValueToGrid,
	}
}

// Config carries the grid agent's startup parameters.
type Config struct {
	GridID        string
	TotalMaxPower float64
	Topics        Topics
}

// Agent is the grid component.
type Agent struct {
	cfg     Config
	current float64

	// per-epoch
	stateSent         bool
	usedPowerReceived bool
	dischargeSeen     map[string]bool
}

// New creates a grid agent with full capacity available.
func New(cfg Config) *Agent {
	return &Agent{
		cfg:           cfg,
		current:       cfg.TotalMaxPower,
		dischargeSeen: make(map[string]bool),
	}
}

func (a *Agent) Topics() []string {
	return []string{
		a.cfg.Topics.DischargeFromStn,
		a.cfg.Topics.UsedPower,
	}
}

func (a *Agent) ClearEpoch() {
	a.stateSent = false
	a.usedPowerReceived = false
	a.dischargeSeen = make(map[string]bool)
}

func (a *Agent) HandleMessage(ctx engine.Context, msg message.Message, topic string) {
	switch m := msg.(type) {
	case *message.PowerDischargeStationToGrid:
		if m.GridID != a.cfg.GridID {
			return
		}
		if a.dischargeSeen[m.StationID] {
			ctx.Logger().Warn("Duplicate discharge report in epoch, dropping",
				zap.String("station", m.StationID),
				zap.Int("epoch", ctx.EpochNumber()),
			)
			return
		}
		a.dischargeSeen[m.StationID] = true
		a.current = math.Min(a.cfg.TotalMaxPower, a.current+m.Power)
		ctx.Logger().Info("Discharge received",
			zap.String("station", m.StationID),
			zap.Float64("power_kw", m.Power),
			zap.Float64("available_kw", a.current),
		)

	case *message.UsedPowerValueToGrid:
		if a.usedPowerReceived {
			ctx.Logger().Warn("Duplicate used-power report in epoch, dropping",
				zap.Int("epoch", ctx.EpochNumber()),
			)
			return
		}
		a.usedPowerReceived = true
		a.current = math.Max(0, math.Min(a.cfg.TotalMaxPower, a.current-m.UsedPowerValue))
		ctx.Logger().Info("Allocation debited",
			zap.Float64("used_kw", m.UsedPowerValue),
			zap.Float64("available_kw", a.current),
		)

	default:
		ctx.Logger().Debug("Ignoring message type", zap.String("type", msg.MessageType()))
	}
}

func (a *Agent) ProcessEpoch(ctx engine.Context) (bool, error) {
	if !a.stateSent {
		state := &message.GridState{
			GridID:       a.cfg.GridID,
			MaxPower:     a.cfg.TotalMaxPower,
			CurrentPower: a.current,
		}
		if err := ctx.Publish(a.cfg.Topics.GridState, state); err != nil {
			return false, err
		}
		a.stateSent = true
	}
	return a.stateSent, nil
}

// AvailablePower exposes the current available capacity, for tests and the
// harness.
func (a *Agent) AvailablePower() float64 { return a.current }
