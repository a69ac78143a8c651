package user

import (
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
}

func (f *fakeContext) Epoch() *message.Epoch { return f.epoch }
func (f *fakeContext) EpochNumber() int      { return f.epoch.EpochNumber }
func (f *fakeContext) SendError(string)      {}
func (f *fakeContext) Logger() *zap.Logger   { return zap.NewNop() }

func (f *fakeContext) Publish(topic string, m message.Message) error {
	f.published = append(f.published, publishedMsg{topic: topic, msg: m})
	return nil
}

func (f *fakeContext) byType(msgType string) []message.Message {
	var out []message.Message
	for _, p := range f.published {
		if p.msg.MessageType() == msgType {
			out = append(out, p.msg)
		}
	}
	return out
}

var epochStart = time.Date(2023, 1, 2, 8, 0, 0, 0, time.UTC)

func newEpoch(number int) *message.Epoch {
	return &message.Epoch{
		Envelope:  message.Envelope{EpochNumber: number},
		StartTime: epochStart.Add(time.Duration(number-1) * time.Hour),
		EndTime:   epochStart.Add(time.Duration(number) * time.Hour),
	}
}

func testConfig() Config {
	return Config{
		UserID:          1,
		UserName:        "alice",
		StationID:       "ST1",
		CarModel:        "leaf",
		StateOfCharge:   20,
		BatteryCapacity: 40,
		CarMaxPower:     22,
		ArrivalTime:     epochStart.Add(-time.Hour),
		TargetTime:      epochStart.Add(8 * time.Hour),
		Topics:          DefaultTopics(),
	}
}

func process(t *testing.T, a *Agent, ctx *fakeContext) bool {
	t.Helper()
	done, err := a.ProcessEpoch(ctx)
	if err != nil {
		t.Fatalf("ProcessEpoch: %v", err)
	}
	return done
}

func TestMetadataSentOnlyOnce(t *testing.T) {
	cfg := testConfig()
	cfg.Preference = &Preference{MinimumSOC: 0.8, MaxCostForCharging: 1.0, DischargePriceThreshold: 0.1}
	a := New(cfg)
	ctx := &fakeContext{epoch: newEpoch(1)}

	a.ClearEpoch()
	process(t, a, ctx)

	ctx.epoch = newEpoch(2)
	a.ClearEpoch()
	process(t, a, ctx)

	if got := len(ctx.byType(message.TypeCarMetaData)); got != 1 {
		t.Fatalf("car metadata messages = %d, want 1", got)
	}
	if got := len(ctx.byType(message.TypeUserPreference)); got != 1 {
		t.Fatalf("user preference messages = %d, want 1", got)
	}
	if got := len(ctx.byType(message.TypeUserState)); got != 2 {
		t.Fatalf("user state messages = %d, want 2", got)
	}
}

func TestChargingUpdatesStateOfCharge(t *testing.T) {
	a := New(testConfig())
	ctx := &fakeContext{epoch: newEpoch(1)}
	a.ClearEpoch()

	if done := process(t, a, ctx); done {
		t.Fatal("done before power output")
	}

	a.HandleMessage(ctx, &message.PowerOutput{
		StationID: "ST1", UserID: 1, PowerOutput: 22,
	}, message.TopicPowerOutput)
	done := process(t, a, ctx)

	// 20 + (22 kW · 1 h) / 40 kWh · 100 = 75.
	if a.StateOfCharge() != 75 {
		t.Fatalf("soc = %g, want 75", a.StateOfCharge())
	}
	states := ctx.byType(message.TypeCarState)
	if len(states) != 1 {
		t.Fatalf("car state messages = %d, want 1", len(states))
	}
	if got := states[0].(*message.CarState).StateOfCharge; got != 75 {
		t.Fatalf("reported soc = %g, want 75", got)
	}
	if !done {
		t.Fatal("not done after car state")
	}
}

func TestDuplicatePowerOutputDropped(t *testing.T) {
	a := New(testConfig())
	ctx := &fakeContext{epoch: newEpoch(1)}
	a.ClearEpoch()

	out := &message.PowerOutput{StationID: "ST1", UserID: 1, PowerOutput: 22}
	a.HandleMessage(ctx, out, message.TopicPowerOutput)
	a.HandleMessage(ctx, out, message.TopicPowerOutput)

	if a.StateOfCharge() != 75 {
		t.Fatalf("soc = %g after duplicate, want 75", a.StateOfCharge())
	}
}

func TestDirectivesForOthersIgnored(t *testing.T) {
	a := New(testConfig())
	ctx := &fakeContext{epoch: newEpoch(1)}
	a.ClearEpoch()

	a.HandleMessage(ctx, &message.PowerOutput{
		StationID: "ST2", UserID: 1, PowerOutput: 22,
	}, message.TopicPowerOutput)
	a.HandleMessage(ctx, &message.PowerOutput{
		StationID: "ST1", UserID: 7, PowerOutput: 22,
	}, message.TopicPowerOutput)

	if a.StateOfCharge() != 20 {
		t.Fatalf("soc = %g, want untouched 20", a.StateOfCharge())
	}
}

func TestNotAtStationReportsImmediately(t *testing.T) {
	cfg := testConfig()
	cfg.ArrivalTime = epochStart.Add(2 * time.Hour)
	a := New(cfg)
	ctx := &fakeContext{epoch: newEpoch(1)}
	a.ClearEpoch()

	done := process(t, a, ctx)
	if !done {
		t.Fatal("user away from station should complete without a power output")
	}
	if got := len(ctx.byType(message.TypeCarState)); got != 1 {
		t.Fatalf("car state messages = %d, want 1", got)
	}
}

func TestDischargeLowersSoCAndReplies(t *testing.T) {
	cfg := testConfig()
	cfg.StateOfCharge = 80
	a := New(cfg)
	ctx := &fakeContext{epoch: newEpoch(1)}
	a.ClearEpoch()

	a.HandleMessage(ctx, &message.CarDischargePowerRequirement{
		StationID: "ST1", UserID: 1, Power: 4,
	}, message.TopicPowerOutput)
	process(t, a, ctx)

	// 80 − (4 kW · 1 h) / 40 kWh · 100 = 70.
	if a.StateOfCharge() != 70 {
		t.Fatalf("soc = %g, want 70", a.StateOfCharge())
	}
	replies := ctx.byType(message.TypePowerDischargeCarToStation)
	if len(replies) != 1 {
		t.Fatalf("discharge replies = %d, want 1", len(replies))
	}
	if got := replies[0].(*message.PowerDischargeCarToStation).Power; got != 4 {
		t.Fatalf("discharge reply power = %g, want 4", got)
	}
}
