// Package controller implements the central V2G scheduler: it assembles a
// per-epoch snapshot from User, Station and Grid messages, allocates grid
// power among connected cars and decides when to ask cars to discharge back
// into the grid.
package controller

import (
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/v2gsim/v2gsim/internal/engine"
	"github.com/v2gsim/v2gsim/internal/message"
	"github.com/v2gsim/v2gsim/internal/observability/telemetry"
)

// defaultTargetSoC applies to users with no preference record.
const defaultTargetSoC = 50.0

// maxSoC is the ceiling a target state of charge may be raised to.
const maxSoC = 100.0

// Topics names the controller's bus routing keys.
type Topics struct {
	CarMetaData       string
	UserState         string
	CarState          string
	UserPreference    string
	StationState      string
	GridState         string
	TotalChargingCost string

	PowerRequirement string
	GridLoadStatus   string
	UsedPower        string
}

// DefaultTopics returns the platform default routing keys.
func DefaultTopics() Topics {
	return Topics{
		CarMetaData:       message.TopicCarMetaData,
		UserState:         message.TopicUserState,
		CarState:          message.TopicCarState,
		UserPreference:    message.TopicUserPreference,
		StationState:      message.TopicStationState,
		GridState:         message.TopicGridState,
		TotalChargingCost: message.TopicTotalChargingCost,
		PowerRequirement:  message.TopicPowerRequirement,
		GridLoadStatus:    message.TopicGridLoadStatus,
		UsedPower:         message.TopicUsedPowerValueToGrid,
	}
}

// Config carries the controller's startup parameters.
type Config struct {
	TotalUsers      int
	TotalStations   int
	PreferencesFile string
	GridLoadFile    string
	Topics          Topics
}

// userRecord is the controller's lifetime view of one user, created on the
// first CarMetaData and mutated by UserState, CarState and the target
// recomputation.
type userRecord struct {
	id             int
	name           string
	stationID      string
	model          string
	soc            float64
	battery        float64
	carMaxPower    float64
	targetSoC      float64
	requiredEnergy float64
	arrival        time.Time
	target         time.Time

	// per-epoch
	discharge         bool
	userStateReceived bool
	carStateReceived  bool
}

// stationRecord is rebuilt each epoch from StationState.
type stationRecord struct {
	id                 string
	maxPower           float64
	chargingCost       float64
	compensationAmount float64
}

// gridSnapshot is replaced each epoch; maxPower is latched from the first
// GridState ever received.
type gridSnapshot struct {
	id           string
	maxPower     float64
	currentPower float64
}

// Controller is the V2G scheduling component.
type Controller struct {
	cfg Config
	log *zap.Logger

	prefs    map[int]Preference
	gridLoad GridLoadProfile

	users       map[int]*userRecord
	stations    map[string]*stationRecord
	grid        gridSnapshot
	gridMax     float64
	gridLatched bool

	// per-epoch
	gridReceived   bool
	userStateCount int
	carStateCount  int
	underLoad      bool
	gridLoadSent   bool
	burstsSent     bool

	chargingCosts map[int]float64
}

// New creates a controller, loading the static preference and grid load
// tables. Unreadable tables are logged and treated as empty: users then fall
// back to the default target and the grid is never considered under load.
func New(cfg Config, log *zap.Logger) *Controller {
	prefs, err := LoadPreferences(cfg.PreferencesFile)
	if err != nil {
		log.Error("Failed to load user preferences, continuing without", zap.Error(err))
		prefs = map[int]Preference{}
	}
	gridLoad, err := LoadGridLoadProfile(cfg.GridLoadFile)
	if err != nil {
		log.Error("Failed to load grid load profile, continuing without", zap.Error(err))
		gridLoad = GridLoadProfile{}
	}

	return &Controller{
		cfg:           cfg,
		log:           log,
		prefs:         prefs,
		gridLoad:      gridLoad,
		users:         make(map[int]*userRecord),
		stations:      make(map[string]*stationRecord),
		chargingCosts: make(map[int]float64),
	}
}

func (c *Controller) Topics() []string {
	return []string{
		c.cfg.Topics.CarMetaData,
		c.cfg.Topics.UserState,
		c.cfg.Topics.CarState,
		c.cfg.Topics.UserPreference,
		c.cfg.Topics.StationState,
		c.cfg.Topics.GridState,
		c.cfg.Topics.TotalChargingCost,
	}
}

func (c *Controller) ClearEpoch() {
	c.stations = make(map[string]*stationRecord)
	c.gridReceived = false
	c.userStateCount = 0
	c.carStateCount = 0
	c.underLoad = false
	c.gridLoadSent = false
	c.burstsSent = false
	for _, u := range c.users {
		u.discharge = false
		u.userStateReceived = false
		u.carStateReceived = false
	}
}

func (c *Controller) HandleMessage(ctx engine.Context, msg message.Message, topic string) {
	switch m := msg.(type) {
	case *message.CarMetaData:
		c.handleCarMetaData(ctx, m)
	case *message.UserState:
		c.handleUserState(ctx, m)
	case *message.CarState:
		c.handleCarState(ctx, m)
	case *message.StationState:
		c.handleStationState(ctx, m)
	case *message.GridState:
		c.handleGridState(ctx, m)
	case *message.UserPreference:
		c.handleUserPreference(ctx, m)
	case *message.TotalChargingCost:
		c.handleTotalChargingCost(ctx, m)
	default:
		ctx.Logger().Debug("Ignoring message type", zap.String("type", msg.MessageType()))
	}
}

func (c *Controller) handleCarMetaData(ctx engine.Context, m *message.CarMetaData) {
	if _, exists := c.users[m.UserID]; exists {
		ctx.Logger().Warn("Duplicate car metadata, ignoring", zap.Int("user", m.UserID))
		return
	}

	targetSoC := defaultTargetSoC
	if pref, ok := c.prefs[m.UserID]; ok {
		targetSoC = pref.MinimumSOC * 100
	}
	u := &userRecord{
		id:          m.UserID,
		name:        m.UserName,
		stationID:   m.StationID,
		model:       m.CarModel,
		soc:         m.StateOfCharge,
		battery:     m.CarBatteryCapacity,
		carMaxPower: m.CarMaxPower,
		targetSoC:   targetSoC,
	}
	u.requiredEnergy = requiredEnergy(u.battery, u.targetSoC, u.soc)
	c.users[m.UserID] = u

	ctx.Logger().Info("Registered car",
		zap.Int("user", m.UserID),
		zap.String("station", m.StationID),
		zap.Float64("soc", m.StateOfCharge),
		zap.Float64("target_soc", targetSoC),
	)
}

func (c *Controller) handleUserState(ctx engine.Context, m *message.UserState) {
	u, ok := c.users[m.UserID]
	if !ok {
		ctx.Logger().Warn("User state for unknown user, ignoring", zap.Int("user", m.UserID))
		return
	}
	if u.userStateReceived {
		ctx.Logger().Warn("Duplicate user state in epoch, ignoring",
			zap.Int("user", m.UserID),
			zap.Int("epoch", ctx.EpochNumber()),
		)
		return
	}
	u.arrival = m.ArrivalTime
	u.target = m.TargetTime
	u.userStateReceived = true
	c.userStateCount++
}

func (c *Controller) handleCarState(ctx engine.Context, m *message.CarState) {
	u, ok := c.users[m.UserID]
	if !ok {
		ctx.Logger().Warn("Car state for unknown user, ignoring", zap.Int("user", m.UserID))
		return
	}
	if u.carStateReceived {
		ctx.Logger().Warn("Duplicate car state in epoch, ignoring",
			zap.Int("user", m.UserID),
			zap.Int("epoch", ctx.EpochNumber()),
		)
		return
	}

	u.soc = math.Min(100, math.Max(0, m.StateOfCharge))
	u.requiredEnergy = requiredEnergy(u.battery, u.targetSoC, u.soc)
	c.adjustTarget(ctx, u)
	u.carStateReceived = true
	c.carStateCount++
}

func (c *Controller) handleStationState(ctx engine.Context, m *message.StationState) {
	if _, exists := c.stations[m.StationID]; exists {
		ctx.Logger().Warn("Duplicate station state in epoch, ignoring",
			zap.String("station", m.StationID),
			zap.Int("epoch", ctx.EpochNumber()),
		)
		return
	}
	c.stations[m.StationID] = &stationRecord{
		id:                 m.StationID,
		maxPower:           m.MaxPower,
		chargingCost:       m.ChargingCost,
		compensationAmount: m.CompensationAmount,
	}
}

func (c *Controller) handleGridState(ctx engine.Context, m *message.GridState) {
	if c.gridReceived {
		ctx.Logger().Warn("Duplicate grid state in epoch, ignoring", zap.Int("epoch", ctx.EpochNumber()))
		return
	}
	if !c.gridLatched {
		c.gridMax = m.MaxPower
		c.gridLatched = true
	}
	c.grid = gridSnapshot{
		id:           m.GridID,
		maxPower:     c.gridMax,
		currentPower: m.CurrentPower,
	}
	c.gridReceived = true
}

func (c *Controller) handleUserPreference(ctx engine.Context, m *message.UserPreference) {
	c.prefs[m.UserID] = Preference{
		UserID:                  m.UserID,
		MinimumSOC:              m.MinimumSOC,
		MaxCostForCharging:      m.MaxCostForCharging,
		DischargePriceThreshold: m.DischargePriceThreshold,
	}
	ctx.Logger().Info("Updated user preference", zap.Int("user", m.UserID))
}

func (c *Controller) handleTotalChargingCost(ctx engine.Context, m *message.TotalChargingCost) {
	c.chargingCosts[m.UserID] = m.TotalChargingCost
	ctx.Logger().Info("Charging cost reported",
		zap.Int("user", m.UserID),
		zap.Float64("total_cost", m.TotalChargingCost),
	)
}

// snapshotComplete is the predicate gating the outbound bursts: all car
// metadata ever (latched), plus this epoch's station states, user states and
// grid state.
func (c *Controller) snapshotComplete() bool {
	return len(c.users) == c.cfg.TotalUsers &&
		len(c.stations) == c.cfg.TotalStations &&
		c.userStateCount == c.cfg.TotalUsers &&
		c.gridReceived
}

// ProcessEpoch is the controller's re-entrant try-advance routine. It is
// invoked after every inbound message; the per-epoch sent flags make each
// outbound burst fire exactly once.
func (c *Controller) ProcessEpoch(ctx engine.Context) (bool, error) {
	epoch := ctx.Epoch()

	if !c.gridLoadSent {
		c.underLoad = c.gridLoad.UnderLoad(epoch.StartTime)
		status := &message.GridLoadStatus{LoadStatus: c.underLoad}
		if err := ctx.Publish(c.cfg.Topics.GridLoadStatus, status); err != nil {
			return false, err
		}
		c.gridLoadSent = true
	}

	if !c.burstsSent && c.snapshotComplete() {
		if err := c.sendBursts(ctx, epoch); err != nil {
			return false, err
		}
		c.burstsSent = true
	}

	done := c.burstsSent && c.carStateCount == c.cfg.TotalUsers
	return done, nil
}

// sendBursts emits the epoch's outbound messages: the PowerRequirement burst
// (connected slots in priority order, then vacant slots), the used-power
// report to the grid, and finally the discharge burst.
func (c *Controller) sendBursts(ctx engine.Context, epoch *message.Epoch) error {
	c.markDischargeFlags(ctx)

	slots, used := c.allocate(epoch)
	for _, s := range slots {
		req := &message.PowerRequirement{
			StationID: s.stationID,
			UserID:    s.userID,
			Power:     s.power,
		}
		if err := ctx.Publish(c.cfg.Topics.PowerRequirement, req); err != nil {
			return err
		}
	}

	report := &message.UsedPowerValueToGrid{
		UsedPowerValue:  used,
		TotalPowerValue: c.grid.maxPower,
	}
	if err := ctx.Publish(c.cfg.Topics.UsedPower, report); err != nil {
		return err
	}
	telemetry.AllocatedPower.Set(used)

	for _, d := range c.dischargeDirectives(epoch) {
		if err := ctx.Publish(c.cfg.Topics.PowerRequirement, d); err != nil {
			return err
		}
		telemetry.DischargeDirectives.Inc()
	}

	ctx.Logger().Info("Epoch allocation published",
		zap.Int("epoch", ctx.EpochNumber()),
		zap.Float64("allocated_kw", used),
		zap.Float64("capacity_kw", c.grid.currentPower),
		zap.Bool("grid_under_load", c.underLoad),
	)
	return nil
}

func requiredEnergy(battery, targetSoC, soc float64) float64 {
	return battery * math.Max(0, targetSoC-soc) / 100
}
