// Package logic contains the pure control logic of the greenhouse: heating
// regulation, vent motion and the light/watering schedules.
// This package has NO external dependencies (no GPIO, serial, I²C or time.Sleep).
// Time is always injectable via time.Time parameters.
package logic

import "errors"

// Errors reported by the control logic. None of them is fatal to the loop.
var (
	// ErrSensorOutOfRange means the plate temperature is outside the safe
	// window (sensor fault or thermal runaway). The heater is forced off.
	ErrSensorOutOfRange = errors.New("plate temperature out of range")

	// ErrActuatorTimeout means a limit switch was not reached in time.
	ErrActuatorTimeout = errors.New("vent limit switch not reached")
)

// VentState is the state of the vent actuator.
type VentState string

const (
	VentUnknown VentState = "UNKNOWN"
	VentOpen    VentState = "OPEN"
	VentClosed  VentState = "CLOSED"
	VentOpening VentState = "OPENING"
	VentClosing VentState = "CLOSING"
	VentFault   VentState = "FAULT"
)

// Motion is the result of a vent command or poll.
type Motion int

const (
	// MotionDone means the actuator is at rest (target reached or faulted).
	MotionDone Motion = iota
	// MotionMoving means the motor is running toward a limit switch.
	MotionMoving
)

// LimitSwitches is a sample of both vent end-stops. true = engaged.
type LimitSwitches struct {
	Open   bool
	Closed bool
}

// WateringSchedule is the watering program. Out-of-range values are clamped
// when evaluated, see Watering.Allow.
type WateringSchedule struct {
	StartHour       int
	DurationSeconds int
	Periodicity     int
}

// LightingSchedule is the daily light window.
type LightingSchedule struct {
	StartHour     int
	DurationHours int
}

// HeatingConfig holds the thermostat thresholds and PID tuning.
type HeatingConfig struct {
	Setpoint   float64 // °C
	MinSafe    float64 // below: sensor fault
	MaxSafe    float64 // above: thermal runaway
	BandLow    float64 // below: full power
	BandHigh   float64 // above: heater off
	Kp         float64
	Ki         float64
	Kd         float64
	SampleTime float64 // seconds
}

// DefaultHeatingConfig returns the stock tuning for the 60°C heating plate.
func DefaultHeatingConfig() HeatingConfig {
	return HeatingConfig{
		Setpoint:   60,
		MinSafe:    7,
		MaxSafe:    65,
		BandLow:    58,
		BandHigh:   62,
		Kp:         62.5,
		Ki:         0.2083,
		Kd:         31.25,
		SampleTime: 1.5,
	}
}
