package message

import (
	"fmt"
	"time"
)

// SimState announces the global simulation lifecycle ("running"/"stopped").
type SimState struct {
	Envelope
	State string `json:"SimState"`
}

func (m *SimState) MessageType() string { return TypeSimState }

func (m *SimState) Validate() error {
	if m.State != SimStateRunning && m.State != SimStateStopped {
		return fmt.Errorf("sim state: invalid SimState %q", m.State)
	}
	return nil
}

// Epoch opens simulation interval [StartTime, EndTime] for the epoch number
// carried in the envelope.
type Epoch struct {
	Envelope
	StartTime time.Time `json:"StartTime"`
	EndTime   time.Time `json:"EndTime"`
}

func (m *Epoch) MessageType() string { return TypeEpoch }

func (m *Epoch) Validate() error {
	if m.StartTime.IsZero() || m.EndTime.IsZero() {
		return fmt.Errorf("epoch: missing StartTime or EndTime")
	}
	if !m.EndTime.After(m.StartTime) {
		return fmt.Errorf("epoch: EndTime %s not after StartTime %s", m.EndTime, m.StartTime)
	}
	return nil
}

// Seconds returns the epoch length in whole seconds.
func (m *Epoch) Seconds() int {
	return int(m.EndTime.Sub(m.StartTime).Seconds())
}

// Status signals per-epoch readiness or an error to the simulation manager.
type Status struct {
	Envelope
	Value       string `json:"Value"`
	Description string `json:"Description,omitempty"`
}

func (m *Status) MessageType() string { return TypeStatus }

func (m *Status) Validate() error {
	if m.Value != StatusReady && m.Value != StatusError {
		return fmt.Errorf("status: invalid Value %q", m.Value)
	}
	if m.Value == StatusError && m.Description == "" {
		return fmt.Errorf("status: error status requires Description")
	}
	return nil
}

// CarMetaData describes one EV once, at the start of the simulation.
type CarMetaData struct {
	Envelope
	UserID             int     `json:"UserId"`
	UserName           string  `json:"UserName"`
	StationID          string  `json:"StationId"`
	StateOfCharge      float64 `json:"StateOfCharge"`
	CarBatteryCapacity float64 `json:"CarBatteryCapacity"`
	CarModel           string  `json:"CarModel"`
	CarMaxPower        float64 `json:"CarMaxPower"`
}

func (m *CarMetaData) MessageType() string { return TypeCarMetaData }

func (m *CarMetaData) Validate() error {
	if m.UserID <= 0 {
		return fmt.Errorf("car metadata: UserId must be positive, got %d", m.UserID)
	}
	if m.StationID == "" {
		return fmt.Errorf("car metadata: missing StationId")
	}
	if err := checkSoC("StateOfCharge", m.StateOfCharge); err != nil {
		return fmt.Errorf("car metadata: %w", err)
	}
	if m.CarBatteryCapacity <= 0 {
		return fmt.Errorf("car metadata: CarBatteryCapacity must be > 0, got %g", m.CarBatteryCapacity)
	}
	if m.CarMaxPower <= 0 {
		return fmt.Errorf("car metadata: CarMaxPower must be > 0, got %g", m.CarMaxPower)
	}
	return nil
}

// UserState carries the user's occupancy window for the current epoch.
type UserState struct {
	Envelope
	UserID      int       `json:"UserId"`
	ArrivalTime time.Time `json:"ArrivalTime"`
	TargetTime  time.Time `json:"TargetTime"`
}

func (m *UserState) MessageType() string { return TypeUserState }

func (m *UserState) Validate() error {
	if m.UserID <= 0 {
		return fmt.Errorf("user state: UserId must be positive, got %d", m.UserID)
	}
	if m.ArrivalTime.IsZero() || m.TargetTime.IsZero() {
		return fmt.Errorf("user state: missing ArrivalTime or TargetTime")
	}
	return nil
}

// CarState reports the battery state of charge after the epoch's power flow.
type CarState struct {
	Envelope
	UserID        int     `json:"UserId"`
	StationID     string  `json:"StationId"`
	StateOfCharge float64 `json:"StateOfCharge"`
}

func (m *CarState) MessageType() string { return TypeCarState }

func (m *CarState) Validate() error {
	if m.UserID <= 0 {
		return fmt.Errorf("car state: UserId must be positive, got %d", m.UserID)
	}
	if err := checkSoC("StateOfCharge", m.StateOfCharge); err != nil {
		return fmt.Errorf("car state: %w", err)
	}
	return nil
}

// StationState publishes a station's capabilities and tariffs for the epoch.
type StationState struct {
	Envelope
	StationID          string  `json:"StationId"`
	MaxPower           float64 `json:"MaxPower"`
	ChargingCost       float64 `json:"ChargingCost"`
	CompensationAmount float64 `json:"CompensationAmount"`
}

func (m *StationState) MessageType() string { return TypeStationState }

func (m *StationState) Validate() error {
	if m.StationID == "" {
		return fmt.Errorf("station state: missing StationId")
	}
	if m.MaxPower < 0 {
		return fmt.Errorf("station state: negative MaxPower %g", m.MaxPower)
	}
	if m.ChargingCost < 0 || m.CompensationAmount < 0 {
		return fmt.Errorf("station state: negative tariff")
	}
	return nil
}

// GridState publishes total and currently available grid capacity in kW.
type GridState struct {
	Envelope
	GridID       string  `json:"GridId"`
	MaxPower     float64 `json:"MaxPower"`
	CurrentPower float64 `json:"CurrentPower"`
}

func (m *GridState) MessageType() string { return TypeGridState }

func (m *GridState) Validate() error {
	if m.GridID == "" {
		return fmt.Errorf("grid state: missing GridId")
	}
	if m.MaxPower < 0 {
		return fmt.Errorf("grid state: negative MaxPower %g", m.MaxPower)
	}
	return nil
}

// PowerRequirement is the controller's charging directive for one station
// slot. UserId 0 marks a vacant slot and always carries Power 0.
type PowerRequirement struct {
	Envelope
	StationID string  `json:"StationId"`
	UserID    int     `json:"UserId"`
	Power     float64 `json:"Power"`
}

func (m *PowerRequirement) MessageType() string { return TypePowerRequirement }

func (m *PowerRequirement) Validate() error {
	if m.StationID == "" {
		return fmt.Errorf("power requirement: missing StationId")
	}
	if m.UserID < 0 {
		return fmt.Errorf("power requirement: negative UserId %d", m.UserID)
	}
	if m.Power < 0 {
		return fmt.Errorf("power requirement: negative Power %g", m.Power)
	}
	if m.UserID == 0 && m.Power != 0 {
		return fmt.Errorf("power requirement: vacant slot must carry Power 0, got %g", m.Power)
	}
	return nil
}

// PowerOutput is the station's charging power delivered to the user, in kW.
type PowerOutput struct {
	Envelope
	StationID   string  `json:"StationId"`
	UserID      int     `json:"UserId"`
	PowerOutput float64 `json:"PowerOutput"`
}

func (m *PowerOutput) MessageType() string { return TypePowerOutput }

func (m *PowerOutput) Validate() error {
	if m.StationID == "" {
		return fmt.Errorf("power output: missing StationId")
	}
	if m.UserID < 0 {
		return fmt.Errorf("power output: negative UserId %d", m.UserID)
	}
	if m.PowerOutput < 0 {
		return fmt.Errorf("power output: negative PowerOutput %g", m.PowerOutput)
	}
	return nil
}

// CarDischargePowerRequirement asks a car to feed power back, in kW.
type CarDischargePowerRequirement struct {
	Envelope
	StationID string  `json:"StationId"`
	UserID    int     `json:"UserId"`
	Power     float64 `json:"Power"`
}

func (m *CarDischargePowerRequirement) MessageType() string {
	return TypeCarDischargePowerRequirement
}

func (m *CarDischargePowerRequirement) Validate() error {
	if m.StationID == "" {
		return fmt.Errorf("car discharge requirement: missing StationId")
	}
	if m.UserID <= 0 {
		return fmt.Errorf("car discharge requirement: UserId must be positive, got %d", m.UserID)
	}
	if m.Power < 0 {
		return fmt.Errorf("car discharge requirement: negative Power %g", m.Power)
	}
	return nil
}

// PowerDischargeCarToStation reports discharged power from car to station.
type PowerDischargeCarToStation struct {
	Envelope
	StationID string  `json:"StationId"`
	UserID    int     `json:"UserId"`
	Power     float64 `json:"Power"`
}

func (m *PowerDischargeCarToStation) MessageType() string {
	return TypePowerDischargeCarToStation
}

func (m *PowerDischargeCarToStation) Validate() error {
	if m.StationID == "" {
		return fmt.Errorf("power discharge car to station: missing StationId")
	}
	if m.UserID <= 0 {
		return fmt.Errorf("power discharge car to station: UserId must be positive, got %d", m.UserID)
	}
	if m.Power < 0 {
		return fmt.Errorf("power discharge car to station: negative Power %g", m.Power)
	}
	return nil
}

// PowerDischargeStationToGrid aggregates discharge flow from a station to
// the grid.
type PowerDischargeStationToGrid struct {
	Envelope
	StationID string  `json:"StationId"`
	GridID    string  `json:"GridId"`
	Power     float64 `json:"Power"`
}

func (m *PowerDischargeStationToGrid) MessageType() string {
	return TypePowerDischargeStationToGrid
}

func (m *PowerDischargeStationToGrid) Validate() error {
	if m.StationID == "" {
		return fmt.Errorf("power discharge station to grid: missing StationId")
	}
	if m.GridID == "" {
		return fmt.Errorf("power discharge station to grid: missing GridId")
	}
	if m.Power < 0 {
		return fmt.Errorf("power discharge station to grid: negative Power %g", m.Power)
	}
	return nil
}

// TotalChargingCost reports the station's accumulated charging cost.
type TotalChargingCost struct {
	Envelope
	TotalChargingCost float64 `json:"TotalChargingCost"`
	UserID            int     `json:"UserId"`
}

func (m *TotalChargingCost) MessageType() string { return TypeTotalChargingCost }

func (m *TotalChargingCost) Validate() error {
	if m.TotalChargingCost < 0 {
		return fmt.Errorf("total charging cost: negative cost %g", m.TotalChargingCost)
	}
	if m.UserID < 0 {
		return fmt.Errorf("total charging cost: negative UserId %d", m.UserID)
	}
	return nil
}

// GridLoadStatus broadcasts whether the grid is under load this epoch.
type GridLoadStatus struct {
	Envelope
	LoadStatus bool `json:"LoadStatus"`
}

func (m *GridLoadStatus) MessageType() string { return TypeGridLoadStatus }

func (m *GridLoadStatus) Validate() error { return nil }

// UserPreference updates a user's charging preferences at runtime.
// MinimumSOC is a fraction in [0,1]; MaximumSOC is optional.
type UserPreference struct {
	Envelope
	UserID                  int      `json:"UserId"`
	MinimumSOC              float64  `json:"MinimumSOC"`
	MaxCostForCharging      float64  `json:"MaxCostForCharging"`
	DischargePriceThreshold float64  `json:"DischargePriceThreshold"`
	MaximumSOC              *float64 `json:"MaximumSOC,omitempty"`
}

func (m *UserPreference) MessageType() string { return TypeUserPreference }

func (m *UserPreference) Validate() error {
	if m.UserID <= 0 {
		return fmt.Errorf("user preference: UserId must be positive, got %d", m.UserID)
	}
	if m.MinimumSOC < 0 || m.MinimumSOC > 1 {
		return fmt.Errorf("user preference: MinimumSOC %g outside [0,1]", m.MinimumSOC)
	}
	if m.MaximumSOC != nil && (*m.MaximumSOC < 0 || *m.MaximumSOC > 1) {
		return fmt.Errorf("user preference: MaximumSOC %g outside [0,1]", *m.MaximumSOC)
	}
	return nil
}

// UsedPowerValueToGrid reports the controller's allocated power to the grid
// so available capacity can be debited for the next epoch.
type UsedPowerValueToGrid struct {
	Envelope
	UsedPowerValue  float64 `json:"UsedPowerValue"`
	TotalPowerValue float64 `json:"TotalPowerValue"`
}

func (m *UsedPowerValueToGrid) MessageType() string { return TypeUsedPowerValueToGrid }

func (m *UsedPowerValueToGrid) Validate() error {
	if m.UsedPowerValue < 0 {
		return fmt.Errorf("used power value: negative UsedPowerValue %g", m.UsedPowerValue)
	}
	return nil
}

func checkSoC(name string, v float64) error {
	if v < 0 || v > 100 {
		return fmt.Errorf("%s %g outside [0,100]", name, v)
	}
	return nil
}
