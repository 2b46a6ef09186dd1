// Package gpio drives the greenhouse digital lines: the two vent limit
// switches (inputs) and the light and pump relays (outputs).
// The real implementation uses the Linux GPIO character device.
// The fake implementation allows testing without hardware.
package gpio

// Lines reads the limit switches and drives the relays.
type Lines interface {
	// ReadLimitSwitches returns the logical switch states (true = engaged).
	// The switches pull the line low when engaged.
	ReadLimitSwitches() (open, closed bool, err error)

	// SetLight switches the grow light relay.
	SetLight(on bool) error

	// SetPump switches the watering pump relay.
	SetPump(on bool) error

	// Close releases GPIO resources, leaving both relays off.
	Close() error
}

// Pins holds the line offsets (BCM numbering) of the greenhouse wiring.
type Pins struct {
	OpenSwitch   int
	ClosedSwitch int
	Light        int
	Pump         int
}

// DefaultPins is the stock wiring.
var DefaultPins = Pins{
	OpenSwitch:   17,
	ClosedSwitch: 27,
	Light:        22,
	Pump:         23,
}
