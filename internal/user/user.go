// Package user implements the EV owner agent: it announces the car once,
// publishes its occupancy window every epoch, applies charge and discharge
// directives to the battery and reports the resulting state of charge.
package user

import (
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/v2gsim/v2gsim/internal/engine"
	"github.com/v2gsim/v2gsim/internal/message"
)

// Topics names the user agent's bus routing keys.
type Topics struct {
	CarMetaData        string
	UserState          string
	CarState           string
	UserPreference     string
	PowerOutput        string
	DischargeToStation string
}

// DefaultTopics returns the platform default routing keys.
func DefaultTopics() Topics {
	return Topics{
		CarMetaData:        message.TopicCarMetaData,
		UserState:          message.TopicUserState,
		CarState:           message.TopicCarState,
		UserPreference:     message.TopicUserPreference,
		PowerOutput:        message.TopicPowerOutput,
		DischargeToStation: message.TopicPowerDischargeCarToStation,
	}
}

// Preference is the user's charging preference, announced over the bus at
// startup when present.
type Preference struct {
	MinimumSOC              float64
	MaxCostForCharging      float64
	DischargePriceThreshold float64
}

// Config carries one user agent's startup parameters.
type Config struct {
	UserID          int
	UserName        string
	StationID       string
	CarModel        string
	StateOfCharge   float64
	BatteryCapacity float64
	CarMaxPower     float64
	ArrivalTime     time.Time
	TargetTime      time.Time
	Preference      *Preference
	Topics          Topics
}

// Agent is the user component.
type Agent struct {
	cfg Config
	soc float64

	metadataSent   bool
	preferenceSent bool

	// per-epoch
	userStateSent       bool
	carStateSent        bool
	powerOutputReceived bool
	dischargeReceived   bool
	dischargeReplySent  bool
	dischargedEnergy    float64
	pendingDischargeKW  float64
}

// New creates a user agent with the configured initial battery state.
func New(cfg Config) *Agent {
	return &Agent{cfg: cfg, soc: cfg.StateOfCharge}
}

func (a *Agent) Topics() []string {
	return []string{a.cfg.Topics.PowerOutput}
}

func (a *Agent) ClearEpoch() {
	a.userStateSent = false
	a.carStateSent = false
	a.powerOutputReceived = false
	a.dischargeReceived = false
	a.dischargeReplySent = false
	a.dischargedEnergy = 0
	a.pendingDischargeKW = 0
}

// atStation reports whether the epoch lies fully inside the user's occupancy
// window. Outside it the power directive is treated as vacuously received.
func (a *Agent) atStation(epoch *message.Epoch) bool {
	return !epoch.StartTime.Before(a.cfg.ArrivalTime) && !epoch.EndTime.After(a.cfg.TargetTime)
}

func (a *Agent) HandleMessage(ctx engine.Context, msg message.Message, topic string) {
	switch m := msg.(type) {
	case *message.PowerOutput:
		a.handlePowerOutput(ctx, m)
	case *message.CarDischargePowerRequirement:
		a.handleDischarge(ctx, m)
	default:
		ctx.Logger().Debug("Ignoring message type", zap.String("type", msg.MessageType()))
	}
}

func (a *Agent) handlePowerOutput(ctx engine.Context, m *message.PowerOutput) {
	if m.StationID != a.cfg.StationID || m.UserID != a.cfg.UserID {
		return
	}
	if a.powerOutputReceived {
		ctx.Logger().Warn("Duplicate power output in epoch, dropping",
			zap.Int("epoch", ctx.EpochNumber()),
			zap.Float64("power", m.PowerOutput),
		)
		return
	}

	energy := m.PowerOutput * float64(ctx.Epoch().Seconds()) / 3600
	a.soc = math.Min(100, a.soc+energy/a.cfg.BatteryCapacity*100)
	a.powerOutputReceived = true
	ctx.Logger().Info("Charged",
		zap.Float64("power_kw", m.PowerOutput),
		zap.Float64("energy_kwh", energy),
		zap.Float64("soc", a.soc),
	)
}

func (a *Agent) handleDischarge(ctx engine.Context, m *message.CarDischargePowerRequirement) {
	if m.StationID != a.cfg.StationID || m.UserID != a.cfg.UserID {
		return
	}
	if a.dischargeReceived {
		ctx.Logger().Warn("Duplicate discharge requirement in epoch, dropping",
			zap.Int("epoch", ctx.EpochNumber()),
		)
		return
	}

	energy := m.Power * float64(ctx.Epoch().Seconds()) / 3600
	a.soc = math.Max(0, a.soc-energy/a.cfg.BatteryCapacity*100)
	a.dischargedEnergy = energy
	a.pendingDischargeKW = m.Power
	a.dischargeReceived = true
	ctx.Logger().Info("Discharging",
		zap.Float64("power_kw", m.Power),
		zap.Float64("energy_kwh", energy),
		zap.Float64("soc", a.soc),
	)
}

func (a *Agent) ProcessEpoch(ctx engine.Context) (bool, error) {
	if !a.metadataSent {
		meta := &message.CarMetaData{
			UserID:             a.cfg.UserID,
			UserName:           a.cfg.UserName,
			StationID:          a.cfg.StationID,
			StateOfCharge:      a.soc,
			CarBatteryCapacity: a.cfg.BatteryCapacity,
			CarModel:           a.cfg.CarModel,
			CarMaxPower:        a.cfg.CarMaxPower,
		}
		if err := ctx.Publish(a.cfg.Topics.CarMetaData, meta); err != nil {
			return false, err
		}
		a.metadataSent = true
	}

	if a.cfg.Preference != nil && !a.preferenceSent {
		pref := &message.UserPreference{
			UserID:                  a.cfg.UserID,
			MinimumSOC:              a.cfg.Preference.MinimumSOC,
			MaxCostForCharging:      a.cfg.Preference.MaxCostForCharging,
			DischargePriceThreshold: a.cfg.Preference.DischargePriceThreshold,
		}
		if err := ctx.Publish(a.cfg.Topics.UserPreference, pref); err != nil {
			return false, err
		}
		a.preferenceSent = true
	}

	if !a.userStateSent {
		state := &message.UserState{
			UserID:      a.cfg.UserID,
			ArrivalTime: a.cfg.ArrivalTime,
			TargetTime:  a.cfg.TargetTime,
		}
		if err := ctx.Publish(a.cfg.Topics.UserState, state); err != nil {
			return false, err
		}
		a.userStateSent = true
	}

	if a.dischargeReceived && !a.dischargeReplySent {
		reply := &message.PowerDischargeCarToStation{
			StationID: a.cfg.StationID,
			UserID:    a.cfg.UserID,
			Power:     a.pendingDischargeKW,
		}
		if err := ctx.Publish(a.cfg.Topics.DischargeToStation, reply); err != nil {
			return false, err
		}
		a.dischargeReplySent = true
	}

	received := a.powerOutputReceived || !a.atStation(ctx.Epoch())
	if received && !a.carStateSent {
		state := &message.CarState{
			UserID:        a.cfg.UserID,
			StationID:     a.cfg.StationID,
			StateOfCharge: a.soc,
		}
		if err := ctx.Publish(a.cfg.Topics.CarState, state); err != nil {
			return false, err
		}
		a.carStateSent = true
	}

	return a.userStateSent && a.carStateSent, nil
}

// StateOfCharge exposes the battery level, for tests and the harness.
func (a *Agent) StateOfCharge() float64 { return a.soc }
