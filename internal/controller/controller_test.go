package controller

import (
	"math"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/v2gsim/v2gsim/internal/message"
)

type publishedMsg struct {
	topic string
	msg   message.Message
}

type fakeContext struct {
	epoch     *message.Epoch
	published []publishedMsg
	errs      []string
}

func (f *fakeContext) Epoch() *message.Epoch { return f.epoch }

func (f *fakeContext) EpochNumber() int {
	if f.epoch == nil {
		return 0
	}
	return f.epoch.EpochNumber
}

func (f *fakeContext) Publish(topic string, m message.Message) error {
	f.published = append(f.published, publishedMsg{topic: topic, msg: m})
	return nil
}

func (f *fakeContext) SendError(description string) { f.errs = append(f.errs, description) }

func (f *fakeContext) Logger() *zap.Logger { return zap.NewNop() }

func (f *fakeContext) powerRequirements() []*message.PowerRequirement {
	var out []*message.PowerRequirement
	for _, p := range f.published {
		if m, ok := p.msg.(*message.PowerRequirement); ok {
			out = append(out, m)
		}
	}
	return out
}

func (f *fakeContext) dischargeRequirements() []*message.CarDischargePowerRequirement {
	var out []*message.CarDischargePowerRequirement
	for _, p := range f.published {
		if m, ok := p.msg.(*message.CarDischargePowerRequirement); ok {
			out = append(out, m)
		}
	}
	return out
}

func newTestController(totalUsers, totalStations int, prefs map[int]Preference, load GridLoadProfile) *Controller {
	if prefs == nil {
		prefs = map[int]Preference{}
	}
	if load == nil {
		load = GridLoadProfile{}
	}
	return &Controller{
		cfg: Config{
			TotalUsers:    totalUsers,
			TotalStations: totalStations,
			Topics:        DefaultTopics(),
		},
		log:           zap.NewNop(),
		prefs:         prefs,
		gridLoad:      load,
		users:         make(map[int]*userRecord),
		stations:      make(map[string]*stationRecord),
		chargingCosts: make(map[int]float64),
	}
}

var epochStart = time.Date(2023, 1, 2, 8, 0, 0, 0, time.UTC)

func newEpoch(number int, length time.Duration) *message.Epoch {
	return &message.Epoch{
		Envelope:  message.Envelope{EpochNumber: number},
		StartTime: epochStart,
		EndTime:   epochStart.Add(length),
	}
}

func process(t *testing.T, c *Controller, ctx *fakeContext) bool {
	t.Helper()
	done, err := c.ProcessEpoch(ctx)
	if err != nil {
		t.Fatalf("ProcessEpoch: %v", err)
	}
	return done
}

func TestSingleUserAmplePower(t *testing.T) {
	c := newTestController(1, 1, map[int]Preference{
		1: {UserID: 1, MinimumSOC: 0.8, MaxCostForCharging: 1.0, DischargePriceThreshold: 0.1},
	}, nil)
	ctx := &fakeContext{epoch: newEpoch(1, time.Hour)}
	c.ClearEpoch()

	c.HandleMessage(ctx, &message.CarMetaData{
		UserID: 1, UserName: "alice", StationID: "ST1",
		StateOfCharge: 20, CarBatteryCapacity: 40, CarModel: "leaf", CarMaxPower: 22,
	}, message.TopicCarMetaData)
	c.HandleMessage(ctx, &message.UserState{
		UserID:      1,
		ArrivalTime: epochStart.Add(-time.Hour),
		TargetTime:  epochStart.Add(4 * time.Hour),
	}, message.TopicUserState)
	c.HandleMessage(ctx, &message.StationState{
		StationID: "ST1", MaxPower: 22, ChargingCost: 0.5, CompensationAmount: 0.2,
	}, message.TopicStationState)
	c.HandleMessage(ctx, &message.GridState{
		GridID: "G1", MaxPower: 50, CurrentPower: 50,
	}, message.TopicGridState)

	if done := process(t, c, ctx); done {
		t.Fatal("epoch done before car states")
	}

	reqs := ctx.powerRequirements()
	if len(reqs) != 1 {
		t.Fatalf("power requirements = %d, want 1", len(reqs))
	}
	if reqs[0].UserID != 1 || reqs[0].StationID != "ST1" {
		t.Fatalf("requirement addressed to (%s,%d)", reqs[0].StationID, reqs[0].UserID)
	}
	// min(station 22, car 22, capacity 50, 24 kWh / 1 h)
	if reqs[0].Power != 22 {
		t.Fatalf("allocated power = %g, want 22", reqs[0].Power)
	}

	c.HandleMessage(ctx, &message.CarState{
		UserID: 1, StationID: "ST1", StateOfCharge: 75,
	}, message.TopicCarState)
	if done := process(t, c, ctx); !done {
		t.Fatal("epoch not done after all car states")
	}
}

func TestEarliestDeadlineWins(t *testing.T) {
	c := newTestController(2, 2, map[int]Preference{
		1: {UserID: 1, MinimumSOC: 0.8},
		2: {UserID: 2, MinimumSOC: 0.8},
	}, nil)
	ctx := &fakeContext{epoch: newEpoch(1, time.Hour)}
	c.ClearEpoch()

	// A: required 40*(80-55)/100 = 10 kWh, target time 09:00.
	c.HandleMessage(ctx, &message.CarMetaData{
		UserID: 1, UserName: "a", StationID: "ST1",
		StateOfCharge: 55, CarBatteryCapacity: 40, CarMaxPower: 50,
	}, message.TopicCarMetaData)
	c.HandleMessage(ctx, &message.UserState{
		UserID: 1, ArrivalTime: epochStart.Add(-time.Hour), TargetTime: epochStart.Add(time.Hour),
	}, message.TopicUserState)
	// B: required 40*(80-30)/100 = 20 kWh, target time 10:00.
	c.HandleMessage(ctx, &message.CarMetaData{
		UserID: 2, UserName: "b", StationID: "ST2",
		StateOfCharge: 30, CarBatteryCapacity: 40, CarMaxPower: 50,
	}, message.TopicCarMetaData)
	c.HandleMessage(ctx, &message.UserState{
		UserID: 2, ArrivalTime: epochStart.Add(-time.Hour), TargetTime: epochStart.Add(2 * time.Hour),
	}, message.TopicUserState)

	for _, id := range []string{"ST1", "ST2"} {
		c.HandleMessage(ctx, &message.StationState{
			StationID: id, MaxPower: 50, ChargingCost: 0.5, CompensationAmount: 0.1,
		}, message.TopicStationState)
	}
	c.HandleMessage(ctx, &message.GridState{
		GridID: "G1", MaxPower: 10, CurrentPower: 10,
	}, message.TopicGridState)
	process(t, c, ctx)

	reqs := ctx.powerRequirements()
	if len(reqs) != 2 {
		t.Fatalf("power requirements = %d, want 2", len(reqs))
	}
	if reqs[0].UserID != 1 || reqs[0].Power != 10 {
		t.Fatalf("first slot = (user %d, %g kW), want (1, 10)", reqs[0].UserID, reqs[0].Power)
	}
	if reqs[1].UserID != 2 || reqs[1].Power != 0 {
		t.Fatalf("second slot = (user %d, %g kW), want (2, 0)", reqs[1].UserID, reqs[1].Power)
	}
}

func TestTieOnDeadlineHigherDemandWins(t *testing.T) {
	c := newTestController(2, 2, map[int]Preference{
		1: {UserID: 1, MinimumSOC: 0.8},
		2: {UserID: 2, MinimumSOC: 0.8},
	}, nil)
	ctx := &fakeContext{epoch: newEpoch(1, 30*time.Minute)}
	c.ClearEpoch()

	target := epochStart.Add(2 * time.Hour)
	// User 1: required 50*(80-60)/100 = 10 kWh.
	c.HandleMessage(ctx, &message.CarMetaData{
		UserID: 1, UserName: "a", StationID: "ST1",
		StateOfCharge: 60, CarBatteryCapacity: 50, CarMaxPower: 50,
	}, message.TopicCarMetaData)
	// User 2: required 50*(80-50)/100 = 15 kWh.
	c.HandleMessage(ctx, &message.CarMetaData{
		UserID: 2, UserName: "b", StationID: "ST2",
		StateOfCharge: 50, CarBatteryCapacity: 50, CarMaxPower: 50,
	}, message.TopicCarMetaData)
	for _, id := range []int{1, 2} {
		c.HandleMessage(ctx, &message.UserState{
			UserID: id, ArrivalTime: epochStart.Add(-time.Hour), TargetTime: target,
		}, message.TopicUserState)
	}
	for _, id := range []string{"ST1", "ST2"} {
		c.HandleMessage(ctx, &message.StationState{
			StationID: id, MaxPower: 50, ChargingCost: 0.5, CompensationAmount: 0.1,
		}, message.TopicStationState)
	}
	c.HandleMessage(ctx, &message.GridState{
		GridID: "G1", MaxPower: 50, CurrentPower: 50,
	}, message.TopicGridState)
	process(t, c, ctx)

	reqs := ctx.powerRequirements()
	if len(reqs) != 2 {
		t.Fatalf("power requirements = %d, want 2", len(reqs))
	}
	if reqs[0].UserID != 2 {
		t.Fatalf("first slot went to user %d, want the higher-demand user 2", reqs[0].UserID)
	}
	// 15 kWh over half an hour, capped only by demand: 30 kW.
	if reqs[0].Power != 30 {
		t.Fatalf("first slot power = %g, want 30", reqs[0].Power)
	}
	total := reqs[0].Power + reqs[1].Power
	if total > 50+1e-6 {
		t.Fatalf("allocation %g exceeds capacity 50", total)
	}
}

func TestNotConnectedUserGetsVacantSlot(t *testing.T) {
	c := newTestController(1, 1, nil, nil)
	ctx := &fakeContext{epoch: newEpoch(1, time.Hour)}
	c.ClearEpoch()

	c.HandleMessage(ctx, &message.CarMetaData{
		UserID: 1, UserName: "late", StationID: "ST1",
		StateOfCharge: 20, CarBatteryCapacity: 40, CarMaxPower: 22,
	}, message.TopicCarMetaData)
	// Arrives only after the epoch ends.
	c.HandleMessage(ctx, &message.UserState{
		UserID:      1,
		ArrivalTime: epochStart.Add(2 * time.Hour),
		TargetTime:  epochStart.Add(5 * time.Hour),
	}, message.TopicUserState)
	c.HandleMessage(ctx, &message.StationState{
		StationID: "ST1", MaxPower: 22, ChargingCost: 0.5, CompensationAmount: 0.1,
	}, message.TopicStationState)
	c.HandleMessage(ctx, &message.GridState{
		GridID: "G1", MaxPower: 50, CurrentPower: 50,
	}, message.TopicGridState)
	process(t, c, ctx)

	reqs := ctx.powerRequirements()
	if len(reqs) != 1 {
		t.Fatalf("power requirements = %d, want 1", len(reqs))
	}
	if reqs[0].UserID != 0 || reqs[0].Power != 0 {
		t.Fatalf("vacant slot = (user %d, %g kW), want (0, 0)", reqs[0].UserID, reqs[0].Power)
	}
}

func TestDischargeTriggered(t *testing.T) {
	c := newTestController(1, 1, map[int]Preference{
		1: {UserID: 1, MinimumSOC: 0.7, MaxCostForCharging: 1.0, DischargePriceThreshold: 0.1},
	}, GridLoadProfile{"08:00": true})
	ctx := &fakeContext{epoch: newEpoch(1, time.Hour)}
	c.ClearEpoch()

	c.HandleMessage(ctx, &message.CarMetaData{
		UserID: 1, UserName: "donor", StationID: "ST1",
		StateOfCharge: 80, CarBatteryCapacity: 40, CarMaxPower: 22,
	}, message.TopicCarMetaData)
	c.HandleMessage(ctx, &message.UserState{
		UserID: 1, ArrivalTime: epochStart.Add(-time.Hour), TargetTime: epochStart.Add(4 * time.Hour),
	}, message.TopicUserState)
	c.HandleMessage(ctx, &message.StationState{
		StationID: "ST1", MaxPower: 22, ChargingCost: 0.5, CompensationAmount: 0.2,
	}, message.TopicStationState)
	c.HandleMessage(ctx, &message.GridState{
		GridID: "G1", MaxPower: 50, CurrentPower: 50,
	}, message.TopicGridState)
	process(t, c, ctx)

	discharges := ctx.dischargeRequirements()
	if len(discharges) != 1 {
		t.Fatalf("discharge requirements = %d, want 1", len(discharges))
	}
	// 40 kWh · (80 − 70) / 100 over one hour.
	if discharges[0].Power != 4 {
		t.Fatalf("discharge power = %g, want 4", discharges[0].Power)
	}

	reqs := ctx.powerRequirements()
	if len(reqs) != 1 || reqs[0].Power != 0 {
		t.Fatalf("charging slot for discharging user should carry 0 kW, got %+v", reqs)
	}

	// CarState above target lowers it, keeping demand at zero.
	c.HandleMessage(ctx, &message.CarState{
		UserID: 1, StationID: "ST1", StateOfCharge: 76,
	}, message.TopicCarState)
	u := c.users[1]
	if u.requiredEnergy != 0 {
		t.Fatalf("required energy = %g, want 0", u.requiredEnergy)
	}
	if u.targetSoC != 70 {
		t.Fatalf("target soc = %g, want max(76-10, 70) = 70", u.targetSoC)
	}
}

func TestDischargeStopsTenPointsBelowCharge(t *testing.T) {
	// The minimum-SoC floor (50) sits well below soc−10, so the directive
	// must drain to the lowered target of 70, not all the way to the floor.
	c := newTestController(1, 1, map[int]Preference{
		1: {UserID: 1, MinimumSOC: 0.5, MaxCostForCharging: 1.0, DischargePriceThreshold: 0.1},
	}, GridLoadProfile{"08:00": true})
	ctx := &fakeContext{epoch: newEpoch(1, time.Hour)}
	c.ClearEpoch()

	c.HandleMessage(ctx, &message.CarMetaData{
		UserID: 1, UserName: "donor", StationID: "ST1",
		StateOfCharge: 80, CarBatteryCapacity: 40, CarMaxPower: 22,
	}, message.TopicCarMetaData)
	c.HandleMessage(ctx, &message.UserState{
		UserID: 1, ArrivalTime: epochStart.Add(-time.Hour), TargetTime: epochStart.Add(4 * time.Hour),
	}, message.TopicUserState)
	c.HandleMessage(ctx, &message.StationState{
		StationID: "ST1", MaxPower: 22, ChargingCost: 0.5, CompensationAmount: 0.2,
	}, message.TopicStationState)
	c.HandleMessage(ctx, &message.GridState{
		GridID: "G1", MaxPower: 50, CurrentPower: 50,
	}, message.TopicGridState)
	process(t, c, ctx)

	u := c.users[1]
	if u.targetSoC != 70 {
		t.Fatalf("target soc = %g, want max(80-10, 50) = 70", u.targetSoC)
	}
	if u.requiredEnergy != 0 {
		t.Fatalf("required energy = %g, want 0", u.requiredEnergy)
	}

	discharges := ctx.dischargeRequirements()
	if len(discharges) != 1 {
		t.Fatalf("discharge requirements = %d, want 1", len(discharges))
	}
	// 40 kWh · (80 − 70) / 100 over one hour.
	if discharges[0].Power != 4 {
		t.Fatalf("discharge power = %g, want 4", discharges[0].Power)
	}
}

func TestWillingToPayRaisesTarget(t *testing.T) {
	c := newTestController(1, 1, map[int]Preference{
		1: {UserID: 1, MinimumSOC: 0.5, MaxCostForCharging: 1.0, DischargePriceThreshold: 0.5},
	}, nil)
	ctx := &fakeContext{epoch: newEpoch(1, time.Hour)}
	c.ClearEpoch()

	c.HandleMessage(ctx, &message.CarMetaData{
		UserID: 1, UserName: "eager", StationID: "ST1",
		StateOfCharge: 50, CarBatteryCapacity: 40, CarMaxPower: 22,
	}, message.TopicCarMetaData)
	c.HandleMessage(ctx, &message.UserState{
		UserID: 1, ArrivalTime: epochStart.Add(-time.Hour), TargetTime: epochStart.Add(4 * time.Hour),
	}, message.TopicUserState)
	c.HandleMessage(ctx, &message.StationState{
		StationID: "ST1", MaxPower: 22, ChargingCost: 0.5, CompensationAmount: 0.1,
	}, message.TopicStationState)
	c.HandleMessage(ctx, &message.GridState{
		GridID: "G1", MaxPower: 50, CurrentPower: 50,
	}, message.TopicGridState)
	process(t, c, ctx)

	c.HandleMessage(ctx, &message.CarState{
		UserID: 1, StationID: "ST1", StateOfCharge: 50,
	}, message.TopicCarState)
	done := process(t, c, ctx)

	u := c.users[1]
	if u.targetSoC != 100 {
		t.Fatalf("target soc = %g, want 100", u.targetSoC)
	}
	if math.Abs(u.requiredEnergy-20) > 1e-9 {
		t.Fatalf("required energy = %g, want 40·0.5 = 20", u.requiredEnergy)
	}
	if !done {
		t.Fatal("epoch not done after all car states")
	}
}

func TestMissingPreferenceDefaultsTarget(t *testing.T) {
	c := newTestController(1, 1, nil, nil)
	ctx := &fakeContext{epoch: newEpoch(1, time.Hour)}
	c.ClearEpoch()

	c.HandleMessage(ctx, &message.CarMetaData{
		UserID: 1, UserName: "anon", StationID: "ST1",
		StateOfCharge: 20, CarBatteryCapacity: 40, CarMaxPower: 22,
	}, message.TopicCarMetaData)

	if got := c.users[1].targetSoC; got != defaultTargetSoC {
		t.Fatalf("target soc = %g, want %g", got, defaultTargetSoC)
	}
}

func TestSnapshotIncompleteHoldsBurst(t *testing.T) {
	c := newTestController(1, 1, nil, nil)
	ctx := &fakeContext{epoch: newEpoch(1, time.Hour)}
	c.ClearEpoch()

	c.HandleMessage(ctx, &message.CarMetaData{
		UserID: 1, UserName: "alice", StationID: "ST1",
		StateOfCharge: 20, CarBatteryCapacity: 40, CarMaxPower: 22,
	}, message.TopicCarMetaData)
	c.HandleMessage(ctx, &message.UserState{
		UserID: 1, ArrivalTime: epochStart.Add(-time.Hour), TargetTime: epochStart.Add(4 * time.Hour),
	}, message.TopicUserState)
	c.HandleMessage(ctx, &message.StationState{
		StationID: "ST1", MaxPower: 22, ChargingCost: 0.5, CompensationAmount: 0.1,
	}, message.TopicStationState)
	// Grid state never arrives.
	if done := process(t, c, ctx); done {
		t.Fatal("epoch done without grid state")
	}

	if got := len(ctx.powerRequirements()); got != 0 {
		t.Fatalf("power requirements before snapshot complete = %d, want 0", got)
	}
}

func TestReplayedMessagesAreIdempotent(t *testing.T) {
	c := newTestController(1, 1, nil, nil)
	ctx := &fakeContext{epoch: newEpoch(1, time.Hour)}
	c.ClearEpoch()

	meta := &message.CarMetaData{
		UserID: 1, UserName: "alice", StationID: "ST1",
		StateOfCharge: 20, CarBatteryCapacity: 40, CarMaxPower: 22,
	}
	state := &message.UserState{
		UserID: 1, ArrivalTime: epochStart.Add(-time.Hour), TargetTime: epochStart.Add(4 * time.Hour),
	}
	station := &message.StationState{
		StationID: "ST1", MaxPower: 22, ChargingCost: 0.5, CompensationAmount: 0.1,
	}
	grid := &message.GridState{GridID: "G1", MaxPower: 50, CurrentPower: 50}

	for i := 0; i < 2; i++ {
		c.HandleMessage(ctx, meta, message.TopicCarMetaData)
		c.HandleMessage(ctx, state, message.TopicUserState)
		c.HandleMessage(ctx, station, message.TopicStationState)
		c.HandleMessage(ctx, grid, message.TopicGridState)
		process(t, c, ctx)
	}

	if c.userStateCount != 1 {
		t.Fatalf("user state count = %d, want 1", c.userStateCount)
	}
	if got := len(ctx.powerRequirements()); got != 1 {
		t.Fatalf("power requirements after replay = %d, want 1", got)
	}

	car := &message.CarState{UserID: 1, StationID: "ST1", StateOfCharge: 42}
	c.HandleMessage(ctx, car, message.TopicCarState)
	c.HandleMessage(ctx, car, message.TopicCarState)
	if c.carStateCount != 1 {
		t.Fatalf("car state count = %d, want 1", c.carStateCount)
	}
}

func TestGridLoadStatusBroadcastOncePerEpoch(t *testing.T) {
	c := newTestController(1, 1, nil, GridLoadProfile{"08:00": true})
	ctx := &fakeContext{epoch: newEpoch(1, time.Hour)}
	c.ClearEpoch()

	process(t, c, ctx)
	process(t, c, ctx)

	var statuses []*message.GridLoadStatus
	for _, p := range ctx.published {
		if m, ok := p.msg.(*message.GridLoadStatus); ok {
			statuses = append(statuses, m)
		}
	}
	if len(statuses) != 1 {
		t.Fatalf("grid load status messages = %d, want 1", len(statuses))
	}
	if !statuses[0].LoadStatus {
		t.Fatal("grid should be under load at 08:00")
	}
}

func TestUsedPowerReportedToGrid(t *testing.T) {
	c := newTestController(1, 1, map[int]Preference{
		1: {UserID: 1, MinimumSOC: 0.8},
	}, nil)
	ctx := &fakeContext{epoch: newEpoch(1, time.Hour)}
	c.ClearEpoch()

	c.HandleMessage(ctx, &message.CarMetaData{
		UserID: 1, UserName: "alice", StationID: "ST1",
		StateOfCharge: 20, CarBatteryCapacity: 40, CarMaxPower: 22,
	}, message.TopicCarMetaData)
	c.HandleMessage(ctx, &message.UserState{
		UserID: 1, ArrivalTime: epochStart.Add(-time.Hour), TargetTime: epochStart.Add(4 * time.Hour),
	}, message.TopicUserState)
	c.HandleMessage(ctx, &message.StationState{
		StationID: "ST1", MaxPower: 22, ChargingCost: 0.5, CompensationAmount: 0.1,
	}, message.TopicStationState)
	c.HandleMessage(ctx, &message.GridState{
		GridID: "G1", MaxPower: 50, CurrentPower: 50,
	}, message.TopicGridState)
	process(t, c, ctx)

	var reports []*message.UsedPowerValueToGrid
	for _, p := range ctx.published {
		if m, ok := p.msg.(*message.UsedPowerValueToGrid); ok {
			reports = append(reports, m)
		}
	}
	if len(reports) != 1 {
		t.Fatalf("used power reports = %d, want 1", len(reports))
	}
	if reports[0].UsedPowerValue != 22 {
		t.Fatalf("used power = %g, want 22", reports[0].UsedPowerValue)
	}
}

func TestZeroLengthEpochAllocatesNothing(t *testing.T) {
	c := newTestController(1, 1, map[int]Preference{
		1: {UserID: 1, MinimumSOC: 0.8},
	}, nil)
	epoch := &message.Epoch{
		Envelope:  message.Envelope{EpochNumber: 1},
		StartTime: epochStart,
		EndTime:   epochStart,
	}
	ctx := &fakeContext{epoch: epoch}
	c.ClearEpoch()

	c.HandleMessage(ctx, &message.CarMetaData{
		UserID: 1, UserName: "alice", StationID: "ST1",
		StateOfCharge: 20, CarBatteryCapacity: 40, CarMaxPower: 22,
	}, message.TopicCarMetaData)
	c.HandleMessage(ctx, &message.UserState{
		UserID: 1, ArrivalTime: epochStart.Add(-time.Hour), TargetTime: epochStart.Add(4 * time.Hour),
	}, message.TopicUserState)
	c.HandleMessage(ctx, &message.StationState{
		StationID: "ST1", MaxPower: 22, ChargingCost: 0.5, CompensationAmount: 0.1,
	}, message.TopicStationState)
	c.HandleMessage(ctx, &message.GridState{
		GridID: "G1", MaxPower: 50, CurrentPower: 50,
	}, message.TopicGridState)
	process(t, c, ctx)

	for _, req := range ctx.powerRequirements() {
		if req.Power != 0 {
			t.Fatalf("zero-length epoch allocated %g kW", req.Power)
		}
	}
}

func TestLoadPreferences(t *testing.T) {
	prefs, err := LoadPreferences(filepath.Join("testdata", "v2g_user_preferences.csv"))
	if err != nil {
		t.Fatalf("LoadPreferences: %v", err)
	}
	if len(prefs) != 3 {
		t.Fatalf("loaded %d preferences, want 3", len(prefs))
	}
	p := prefs[1]
	if p.MinimumSOC != 0.8 || p.MaxCostForCharging != 1.0 || p.DischargePriceThreshold != 0.1 {
		t.Fatalf("user 1 preference = %+v", p)
	}
}

func TestLoadGridLoadProfile(t *testing.T) {
	profile, err := LoadGridLoadProfile(filepath.Join("testdata", "grid_load_daily.csv"))
	if err != nil {
		t.Fatalf("LoadGridLoadProfile: %v", err)
	}
	if !profile.UnderLoad(time.Date(2023, 1, 2, 8, 30, 0, 0, time.UTC)) {
		t.Fatal("08:xx should be under load")
	}
	if profile.UnderLoad(time.Date(2023, 1, 2, 9, 0, 0, 0, time.UTC)) {
		t.Fatal("09:xx should not be under load")
	}
	if profile.UnderLoad(time.Date(2023, 1, 2, 23, 0, 0, 0, time.UTC)) {
		t.Fatal("hours absent from the profile default to no load")
	}
}

func TestNewWithMissingTablesDefaultsEmpty(t *testing.T) {
	c := New(Config{
		TotalUsers:      1,
		TotalStations:   1,
		PreferencesFile: filepath.Join("testdata", "does_not_exist.csv"),
		GridLoadFile:    filepath.Join("testdata", "does_not_exist.csv"),
		Topics:          DefaultTopics(),
	}, zap.NewNop())

	if len(c.prefs) != 0 {
		t.Fatalf("prefs = %d entries, want 0", len(c.prefs))
	}
	if c.gridLoad.UnderLoad(epochStart) {
		t.Fatal("grid must never be under load without a profile")
	}
}
