package config

import "time"

// Config is the full configuration tree shared by every binary. Each binary
// reads the sections it needs.
type Config struct {
	App        AppConfig        `mapstructure:"app"`
	Logging    LoggingConfig    `mapstructure:"logging"`
	Bus        BusConfig        `mapstructure:"bus"`
	Prometheus PrometheusConfig `mapstructure:"prometheus"`
	Simulation SimulationConfig `mapstructure:"simulation"`
	Topics     TopicsConfig     `mapstructure:"topics"`
	Controller ControllerConfig `mapstructure:"controller"`
	Grid       GridConfig       `mapstructure:"grid"`
	Users      []UserConfig     `mapstructure:"users"`
	Stations   []StationConfig  `mapstructure:"stations"`
}

type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// BusConfig selects and parameterizes the message bus backend.
type BusConfig struct {
	Backend  string         `mapstructure:"backend"`
	RabbitMQ RabbitMQConfig `mapstructure:"rabbitmq"`
	NATS     NATSConfig     `mapstructure:"nats"`
}

type RabbitMQConfig struct {
	URL      string `mapstructure:"url"`
	Exchange string `mapstructure:"exchange"`
}

type NATSConfig struct {
	URL string `mapstructure:"url"`
}

type PrometheusConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
	Port    int    `mapstructure:"port"`
}

// SimulationConfig drives the epoch protocol. EpochStart is RFC 3339.
type SimulationConfig struct {
	ID           string        `mapstructure:"id"`
	Epochs       int           `mapstructure:"epochs"`
	EpochStart   string        `mapstructure:"epoch_start"`
	EpochLength  time.Duration `mapstructure:"epoch_length"`
	EpochTimeout time.Duration `mapstructure:"epoch_timeout"`
	Agents       int           `mapstructure:"agents"`
}

// TopicsConfig overrides the default bus routing keys.
type TopicsConfig struct {
	Epoch       string `mapstructure:"epoch"`
	SimState    string `mapstructure:"sim_state"`
	StatusReady string `mapstructure:"status_ready"`
	StatusError string `mapstructure:"status_error"`

	CarMetaData               string `mapstructure:"car_metadata"`
	UserState                 string `mapstructure:"user_state"`
	CarState                  string `mapstructure:"car_state"`
	UserPreference            string `mapstructure:"user_preference"`
	StationState              string `mapstructure:"station_state"`
	GridState                 string `mapstructure:"grid_state"`
	PowerRequirement          string `mapstructure:"power_requirement"`
	PowerOutput               string `mapstructure:"power_output"`
	DischargeCarToStation     string `mapstructure:"discharge_car_to_station"`
	DischargeStationToGrid    string `mapstructure:"discharge_station_to_grid"`
	TotalChargingCost         string `mapstructure:"total_charging_cost"`
	GridLoadStatus            string `mapstructure:"grid_load_status"`
	UsedPowerValueToGrid      string `mapstructure:"used_power_value_to_grid"`
}

type ControllerConfig struct {
	TotalUsers      int    `mapstructure:"total_users"`
	TotalStations   int    `mapstructure:"total_stations"`
	PreferencesFile string `mapstructure:"preferences_file"`
	GridLoadFile    string `mapstructure:"grid_load_file"`
}

type GridConfig struct {
	ID       string  `mapstructure:"id"`
	MaxPower float64 `mapstructure:"max_power"`
}

// UserConfig describes one EV and its owner. Times are RFC 3339.
type UserConfig struct {
	ID              int               `mapstructure:"id"`
	Name            string            `mapstructure:"name"`
	StationID       string            `mapstructure:"station_id"`
	CarModel        string            `mapstructure:"car_model"`
	StateOfCharge   float64           `mapstructure:"state_of_charge"`
	BatteryCapacity float64           `mapstructure:"battery_capacity"`
	CarMaxPower     float64           `mapstructure:"car_max_power"`
	ArrivalTime     string            `mapstructure:"arrival_time"`
	TargetTime      string            `mapstructure:"target_time"`
	Preference      *PreferenceConfig `mapstructure:"preference"`
}

type PreferenceConfig struct {
	MinimumSOC              float64 `mapstructure:"minimum_soc"`
	MaxCostForCharging      float64 `mapstructure:"max_cost_for_charging"`
	DischargePriceThreshold float64 `mapstructure:"discharge_price_threshold"`
}

type StationConfig struct {
	ID                 string  `mapstructure:"id"`
	MaxPower           float64 `mapstructure:"max_power"`
	ChargingCost       float64 `mapstructure:"charging_cost"`
	CompensationAmount float64 `mapstructure:"compensation_amount"`
}
