// Package station implements the charging station agent, the intermediary
// between controller and car: it forwards charge and discharge directives to
// its user, relays discharged energy to the grid and accounts charging cost.
package station

import (
	"go.uber.org/zap"

	"github.com/v2gsim/v2gsim/internal/engine"
	"github.com/v2gsim/v2gsim/internal/message"
)

// Topics names the station agent's bus routing keys.
type Topics struct {
	StationState      string
	PowerRequirement  string
	PowerOutput       string
	DischargeFromCar  string
	DischargeToGrid   string
	TotalChargingCost string
	GridLoadStatus    string
}

// DefaultTopics returns the platform default routing keys.
func DefaultTopics() Topics {
	return Topics{
		StationState:      message.TopicStationState,
		PowerRequirement:  message.TopicPowerRequirement,
		PowerOutput:       message.TopicPowerOutput,
		DischargeFromCar:  message.TopicPowerDischargeCarToStation,
		DischargeToGrid:   message.TopicPowerDischargeStationToGrid,
		TotalChargingCost: message.TopicTotalChargingCost,
		GridLoadStatus:    message.TopicGridLoadStatus,
	}
}

// Config carries one station agent's startup parameters.
type Config struct {
	StationID          string
	GridID             string
	MaxPower           float64
	ChargingCost       float64
	CompensationAmount float64
	Topics             Topics
}

// Agent is the station component. It serves at most one user per epoch.
type Agent struct {
	cfg Config

	totalChargingCost float64

	// per-epoch
	stationStateSent   bool
	requirement        *message.PowerRequirement
	powerOutputSent    bool
	costSent           bool
	discharge          *message.CarDischargePowerRequirement
	dischargeForwarded bool
	carDischarge       *message.PowerDischargeCarToStation
	dischargeRelayed   bool
	gridLoadReceived   bool
	gridUnderLoad      bool
}

// New creates a station agent.
func New(cfg Config) *Agent {
	return &Agent{cfg: cfg}
}

func (a *Agent) Topics() []string {
	return []string{
		a.cfg.Topics.PowerRequirement,
		a.cfg.Topics.DischargeFromCar,
		a.cfg.Topics.GridLoadStatus,
	}
}

func (a *Agent) ClearEpoch() {
	a.stationStateSent = false
	a.requirement = nil
	a.powerOutputSent = false
	a.costSent = false
	a.discharge = nil
	a.dischargeForwarded = false
	a.carDischarge = nil
	a.dischargeRelayed = false
	a.gridLoadReceived = false
	a.gridUnderLoad = false
}

func (a *Agent) HandleMessage(ctx engine.Context, msg message.Message, topic string) {
	switch m := msg.(type) {
	case *message.PowerRequirement:
		if m.StationID != a.cfg.StationID {
			return
		}
		if a.requirement != nil {
			ctx.Logger().Warn("Duplicate power requirement in epoch, dropping",
				zap.Int("epoch", ctx.EpochNumber()),
			)
			return
		}
		a.requirement = m

	case *message.CarDischargePowerRequirement:
		if m.StationID != a.cfg.StationID {
			return
		}
		if a.discharge != nil {
			ctx.Logger().Warn("Duplicate discharge requirement in epoch, dropping",
				zap.Int("epoch", ctx.EpochNumber()),
			)
			return
		}
		a.discharge = m

	case *message.PowerDischargeCarToStation:
		if m.StationID != a.cfg.StationID {
			return
		}
		if a.carDischarge != nil {
			ctx.Logger().Warn("Duplicate car discharge report in epoch, dropping",
				zap.Int("epoch", ctx.EpochNumber()),
			)
			return
		}
		a.carDischarge = m

	case *message.GridLoadStatus:
		a.gridLoadReceived = true
		a.gridUnderLoad = m.LoadStatus

	default:
		ctx.Logger().Debug("Ignoring message type", zap.String("type", msg.MessageType()))
	}
}

func (a *Agent) ProcessEpoch(ctx engine.Context) (bool, error) {
	if !a.stationStateSent {
		state := &message.StationState{
			StationID:          a.cfg.StationID,
			MaxPower:           a.cfg.MaxPower,
			ChargingCost:       a.cfg.ChargingCost,
			CompensationAmount: a.cfg.CompensationAmount,
		}
		if err := ctx.Publish(a.cfg.Topics.StationState, state); err != nil {
			return false, err
		}
		a.stationStateSent = true
	}

	if a.requirement != nil && !a.powerOutputSent {
		out := &message.PowerOutput{
			StationID:   a.cfg.StationID,
			UserID:      a.requirement.UserID,
			PowerOutput: a.requirement.Power,
		}
		if err := ctx.Publish(a.cfg.Topics.PowerOutput, out); err != nil {
			return false, err
		}
		a.powerOutputSent = true
		a.totalChargingCost += a.requirement.Power * a.cfg.ChargingCost
	}

	if a.powerOutputSent && !a.costSent {
		cost := &message.TotalChargingCost{
			TotalChargingCost: a.totalChargingCost,
			UserID:            a.requirement.UserID,
		}
		if err := ctx.Publish(a.cfg.Topics.TotalChargingCost, cost); err != nil {
			return false, err
		}
		a.costSent = true
	}

	if a.discharge != nil && !a.dischargeForwarded {
		// Forwarded on the user-facing topic so the car sees one stream of
		// directives from its station.
		forward := &message.CarDischargePowerRequirement{
			StationID: a.discharge.StationID,
			UserID:    a.discharge.UserID,
			Power:     a.discharge.Power,
		}
		if err := ctx.Publish(a.cfg.Topics.PowerOutput, forward); err != nil {
			return false, err
		}
		a.dischargeForwarded = true
	}

	if a.carDischarge != nil && !a.dischargeRelayed {
		relay := &message.PowerDischargeStationToGrid{
			StationID: a.cfg.StationID,
			GridID:    a.cfg.GridID,
			Power:     a.carDischarge.Power,
		}
		if err := ctx.Publish(a.cfg.Topics.DischargeToGrid, relay); err != nil {
			return false, err
		}
		a.dischargeRelayed = true
	}

	// Ready once every piece of work that has arrived is handled: the
	// charging directive answered and, when the grid is under load, the
	// discharge flow relayed end to end.
	done := a.stationStateSent && a.powerOutputSent &&
		(a.discharge == nil || a.dischargeForwarded) &&
		(a.carDischarge == nil || a.dischargeRelayed)
	return done, nil
}

// TotalChargingCost exposes the lifetime accumulated cost, for tests and the
// harness.
func (a *Agent) TotalChargingCost() float64 { return a.totalChargingCost }
