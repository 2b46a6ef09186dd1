// Package board talks to the analog I/O board: the plate thermistor ADC,
// the heater PWM output and the dual motor driver (vent motor on the left
// channel, extractor fan on the right).
package board

import "errors"

// Board is the analog side of the greenhouse hardware.
type Board interface {
	// AnalogRead returns the raw 10-bit ADC value of channel ch.
	AnalogRead(ch int) (int, error)

	// AnalogWrite sets the PWM duty (0-255) of channel ch.
	AnalogWrite(ch int, duty uint8) error

	// SetSpeedLeft drives the left motor channel, -255..255.
	SetSpeedLeft(speed int) error

	// SetSpeedRight drives the right motor channel, -255..255.
	SetSpeedRight(speed int) error
}

const (
	// MaxSpeed is the full-scale motor command.
	MaxSpeed = 255
	// MaxADC is the full-scale ADC reading.
	MaxADC = 1023
)

var (
	// ErrTimeout is returned when the board does not answer in time.
	ErrTimeout = errors.New("board: response timeout")
	// ErrRejected is returned when the board answers with an error.
	ErrRejected = errors.New("board: command rejected")
)

// ClampSpeed limits a motor command to -MaxSpeed..MaxSpeed.
func ClampSpeed(speed int) int {
	if speed > MaxSpeed {
		return MaxSpeed
	}
	if speed < -MaxSpeed {
		return -MaxSpeed
	}
	return speed
}
