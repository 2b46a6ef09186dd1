package logic

import (
	"math"
	"time"
)

// Heater is a three-zone thermostat for the heating plate: a hard safety
// cutoff, full-on/full-off outside a narrow band, and PID inside it.
type Heater struct {
	cfg    HeatingConfig
	pid    *PID
	output uint8
}

// NewHeater creates a regulator with a fresh PID state.
func NewHeater(cfg HeatingConfig) *Heater {
	pid := NewPID(cfg.Kp, cfg.Ki, cfg.Kd, cfg.Setpoint,
		time.Duration(cfg.SampleTime*float64(time.Second)))
	pid.SetOutputLimits(0, 255)
	return &Heater{cfg: cfg, pid: pid}
}

// Regulate computes the heater duty (0-255) for the given plate temperature.
//
// A plate temperature outside [MinSafe, MaxSafe] (or NaN) forces the output
// to 0 and returns ErrSensorOutOfRange, whatever enable says. The PID state
// only advances when the temperature is inside [BandLow, BandHigh].
func (h *Heater) Regulate(enable bool, plateC float64, now time.Time) (uint8, error) {
	if math.IsNaN(plateC) || plateC < h.cfg.MinSafe || plateC > h.cfg.MaxSafe {
		h.output = 0
		return 0, ErrSensorOutOfRange
	}

	switch {
	case !enable:
		h.output = 0
	case plateC < h.cfg.BandLow:
		h.output = 255
	case plateC > h.cfg.BandHigh:
		h.output = 0
	default:
		h.pid.Compute(plateC, now)
		h.output = uint8(h.pid.Output())
	}
	return h.output, nil
}

// Output returns the last applied duty.
func (h *Heater) Output() uint8 {
	return h.output
}

// Setpoint returns the plate target temperature.
func (h *Heater) Setpoint() float64 {
	return h.cfg.Setpoint
}
