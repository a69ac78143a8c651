package sim

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/v2gsim/v2gsim/internal/controller"
	"github.com/v2gsim/v2gsim/internal/engine"
	"github.com/v2gsim/v2gsim/internal/grid"
	"github.com/v2gsim/v2gsim/internal/station"
	"github.com/v2gsim/v2gsim/internal/user"
	"github.com/v2gsim/v2gsim/pkg/config"
)

// Lifecycle maps the topic overrides onto the engine's lifecycle topics.
func Lifecycle(t config.TopicsConfig) engine.LifecycleTopics {
	return engine.LifecycleTopics{
		Epoch:       t.Epoch,
		SimState:    t.SimState,
		StatusReady: t.StatusReady,
		StatusError: t.StatusError,
	}
}

// ControllerFrom builds the controller configuration.
func ControllerFrom(cfg *config.Config) controller.Config {
	t := cfg.Topics
	return controller.Config{
		TotalUsers:      cfg.Controller.TotalUsers,
		TotalStations:   cfg.Controller.TotalStations,
		PreferencesFile: cfg.Controller.PreferencesFile,
		GridLoadFile:    cfg.Controller.GridLoadFile,
		Topics: controller.Topics{
			CarMetaData:       t.CarMetaData,
			UserState:         t.UserState,
			CarState:          t.CarState,
			UserPreference:    t.UserPreference,
			StationState:      t.StationState,
			GridState:         t.GridState,
			TotalChargingCost: t.TotalChargingCost,
			PowerRequirement:  t.PowerRequirement,
			GridLoadStatus:    t.GridLoadStatus,
			UsedPower:         t.UsedPowerValueToGrid,
		},
	}
}

// UserFrom builds one user agent configuration, parsing the occupancy window.
func UserFrom(u config.UserConfig, t config.TopicsConfig) (user.Config, error) {
	arrival, err := time.Parse(time.RFC3339, u.ArrivalTime)
	if err != nil {
		return user.Config{}, fmt.Errorf("user %d: bad arrival_time: %w", u.ID, err)
	}
	target, err := time.Parse(time.RFC3339, u.TargetTime)
	if err != nil {
		return user.Config{}, fmt.Errorf("user %d: bad target_time: %w", u.ID, err)
	}

	cfg := user.Config{
		UserID:          u.ID,
		UserName:        u.Name,
		StationID:       u.StationID,
		CarModel:        u.CarModel,
		StateOfCharge:   u.StateOfCharge,
		BatteryCapacity: u.BatteryCapacity,
		CarMaxPower:     u.CarMaxPower,
		ArrivalTime:     arrival,
		TargetTime:      target,
		Topics: user.Topics{
			CarMetaData:        t.CarMetaData,
			UserState:          t.UserState,
			CarState:           t.CarState,
			UserPreference:     t.UserPreference,
			PowerOutput:        t.PowerOutput,
			DischargeToStation: t.DischargeCarToStation,
		},
	}
	if u.Preference != nil {
		cfg.Preference = &user.Preference{
			MinimumSOC:              u.Preference.MinimumSOC,
			MaxCostForCharging:      u.Preference.MaxCostForCharging,
			DischargePriceThreshold: u.Preference.DischargePriceThreshold,
		}
	}
	return cfg, nil
}

// StationFrom builds one station agent configuration.
func StationFrom(s config.StationConfig, gridID string, t config.TopicsConfig) station.Config {
	return station.Config{
		StationID:          s.ID,
		GridID:             gridID,
		MaxPower:           s.MaxPower,
		ChargingCost:       s.ChargingCost,
		CompensationAmount: s.CompensationAmount,
		Topics: station.Topics{
			StationState:      t.StationState,
			PowerRequirement:  t.PowerRequirement,
			PowerOutput:       t.PowerOutput,
			DischargeFromCar:  t.DischargeCarToStation,
			DischargeToGrid:   t.DischargeStationToGrid,
			TotalChargingCost: t.TotalChargingCost,
			GridLoadStatus:    t.GridLoadStatus,
		},
	}
}

// GridFrom builds the grid agent configuration.
func GridFrom(cfg *config.Config) grid.Config {
	t := cfg.Topics
	return grid.Config{
		GridID:        cfg.Grid.ID,
		TotalMaxPower: cfg.Grid.MaxPower,
		Topics: grid.Topics{
			GridState:        t.GridState,
			DischargeFromStn: t.DischargeStationToGrid,
			UsedPower:        t.UsedPowerValueToGrid,
		},
	}
}

// FromConfig assembles the all-in-one simulation configuration. When no
// simulation id is configured a fresh one is generated for the run.
func FromConfig(cfg *config.Config) (Config, error) {
	start, err := time.Parse(time.RFC3339, cfg.Simulation.EpochStart)
	if err != nil {
		return Config{}, fmt.Errorf("simulation: bad epoch_start: %w", err)
	}

	simID := cfg.Simulation.ID
	if simID == "" {
		simID = "v2g-" + uuid.NewString()
	}

	out := Config{
		SimulationID: simID,
		Epochs:       cfg.Simulation.Epochs,
		EpochStart:   start,
		EpochLength:  cfg.Simulation.EpochLength,
		EpochTimeout: cfg.Simulation.EpochTimeout,
		Lifecycle:    Lifecycle(cfg.Topics),
		Controller:   ControllerFrom(cfg),
		Grid:         GridFrom(cfg),
	}
	for _, u := range cfg.Users {
		uc, err := UserFrom(u, cfg.Topics)
		if err != nil {
			return Config{}, err
		}
		out.Users = append(out.Users, uc)
	}
	for _, s := range cfg.Stations {
		out.Stations = append(out.Stations, StationFrom(s, cfg.Grid.ID, cfg.Topics))
	}
	return out, nil
}
