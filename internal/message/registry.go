package message

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrUnknownType marks an inbound message whose Type tag is not registered.
// Callers are expected to log and drop these.
var ErrUnknownType = errors.New("message: unknown type")

var registry = map[string]func() Message{
	TypeSimState:                     func() Message { return &SimState{} },
	TypeEpoch:                        func() Message { return &Epoch{} },
	TypeStatus:                       func() Message { return &Status{} },
	TypeCarMetaData:                  func() Message { return &CarMetaData{} },
	TypeUserState:                    func() Message { return &UserState{} },
	TypeCarState:                     func() Message { return &CarState{} },
	TypeStationState:                 func() Message { return &StationState{} },
	TypeGridState:                    func() Message { return &GridState{} },
	TypePowerRequirement:             func() Message { return &PowerRequirement{} },
	TypePowerOutput:                  func() Message { return &PowerOutput{} },
	TypeCarDischargePowerRequirement: func() Message { return &CarDischargePowerRequirement{} },
	TypePowerDischargeCarToStation:   func() Message { return &PowerDischargeCarToStation{} },
	TypePowerDischargeStationToGrid:  func() Message { return &PowerDischargeStationToGrid{} },
	TypeTotalChargingCost:            func() Message { return &TotalChargingCost{} },
	TypeGridLoadStatus:               func() Message { return &GridLoadStatus{} },
	TypeUserPreference:               func() Message { return &UserPreference{} },
	TypeUsedPowerValueToGrid:         func() Message { return &UsedPowerValueToGrid{} },
}

// Decode parses a wire payload into its registered concrete type and
// validates both the envelope and the type-specific attributes. Invalid
// messages never reach a handler.
func Decode(data []byte) (Message, error) {
	var probe struct {
		Type string `json:"Type"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, fmt.Errorf("message: decode envelope: %w", err)
	}

	newMsg, ok := registry[probe.Type]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, probe.Type)
	}

	msg := newMsg()
	if err := json.Unmarshal(data, msg); err != nil {
		return nil, fmt.Errorf("message: decode %s: %w", probe.Type, err)
	}
	if err := msg.Meta().validate(); err != nil {
		return nil, fmt.Errorf("message: %s: %w", probe.Type, err)
	}
	if err := msg.Validate(); err != nil {
		return nil, fmt.Errorf("message: %s: %w", probe.Type, err)
	}
	return msg, nil
}

// Encode serializes a stamped message for the bus.
func Encode(m Message) ([]byte, error) {
	data, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("message: encode %s: %w", m.MessageType(), err)
	}
	return data, nil
}
