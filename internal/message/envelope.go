package message

import (
	"fmt"
	"time"
)

// Message type tags carried in the envelope's Type attribute.
const (
	TypeSimState                     = "SimState"
	TypeEpoch                        = "Epoch"
	TypeStatus                       = "Status"
	TypeCarMetaData                  = "CarMetaData"
	TypeUserState                    = "UserState"
	TypeCarState                     = "CarState"
	TypeStationState                 = "StationState"
	TypeGridState                    = "GridState"
	TypePowerRequirement             = "PowerRequirement"
	TypePowerOutput                  = "PowerOutput"
	TypeCarDischargePowerRequirement = "CarDischargePowerRequirement"
	TypePowerDischargeCarToStation   = "PowerDischargeCarToStation"
	TypePowerDischargeStationToGrid  = "PowerDischargeStationToGrid"
	TypeTotalChargingCost            = "TotalChargingCost"
	TypeGridLoadStatus               = "GridLoadStatus"
	TypeUserPreference               = "UserPreference"
	TypeUsedPowerValueToGrid         = "UsedPowerValueToGrid"
)

// SimState message values.
const (
	SimStateRunning = "running"
	SimStateStopped = "stopped"
)

// Status message values.
const (
	StatusReady = "ready"
	StatusError = "error"
)

// Envelope holds the attributes common to every message on the bus.
// Concrete message types embed it.
type Envelope struct {
	Type                 string    `json:"Type"`
	SimulationID         string    `json:"SimulationId"`
	SourceProcessID      string    `json:"SourceProcessId"`
	MessageID            string    `json:"MessageId"`
	EpochNumber          int       `json:"EpochNumber"`
	TriggeringMessageIDs []string  `json:"TriggeringMessageIds,omitempty"`
	Timestamp            time.Time `json:"Timestamp"`
}

// Meta returns the envelope itself. Embedding promotes this method so every
// concrete message satisfies the Message interface's Meta accessor.
func (e *Envelope) Meta() *Envelope { return e }

func (e *Envelope) validate() error {
	if e.Type == "" {
		return fmt.Errorf("envelope: missing Type")
	}
	if e.SimulationID == "" {
		return fmt.Errorf("envelope: missing SimulationId")
	}
	if e.SourceProcessID == "" {
		return fmt.Errorf("envelope: missing SourceProcessId")
	}
	if e.MessageID == "" {
		return fmt.Errorf("envelope: missing MessageId")
	}
	if e.EpochNumber < 0 {
		return fmt.Errorf("envelope: negative EpochNumber %d", e.EpochNumber)
	}
	return nil
}

// Message is implemented by every typed simulation message.
type Message interface {
	// MessageType returns the wire tag for the concrete type.
	MessageType() string
	// Meta exposes the shared envelope for reading and stamping.
	Meta() *Envelope
	// Validate checks type-specific attribute constraints.
	Validate() error
}
