package logic

import "time"

// VentConfig controls the vent actuator.
type VentConfig struct {
	Speed      int           // motor speed while moving, 0-255
	Timeout    time.Duration // max travel time per command
	RetryAfter time.Duration // hold-off before re-driving a faulted direction
}

// DefaultVentConfig returns the stock actuator settings.
func DefaultVentConfig() VentConfig {
	return VentConfig{
		Speed:      150,
		Timeout:    8 * time.Second,
		RetryAfter: time.Minute,
	}
}

// Vent drives the roof vent motor toward one of its two limit switches.
// It never blocks: callers feed it switch samples and apply Speed() to the
// motor driver after every call.
type Vent struct {
	cfg VentConfig

	state VentState
	speed int
	since time.Time // start of the current motion

	faultOpen bool // direction that faulted
	faultAt   time.Time
}

// NewVent creates a vent in the unknown state with the motor stopped.
func NewVent(cfg VentConfig) *Vent {
	return &Vent{cfg: cfg, state: VentUnknown}
}

// Open commands the vent toward the open switch.
func (v *Vent) Open(sw LimitSwitches, now time.Time) (Motion, error) {
	return v.command(true, sw, now)
}

// Close commands the vent toward the closed switch.
func (v *Vent) Close(sw LimitSwitches, now time.Time) (Motion, error) {
	return v.command(false, sw, now)
}

func (v *Vent) command(open bool, sw LimitSwitches, now time.Time) (Motion, error) {
	if reached(open, sw) {
		v.settle(open)
		return MotionDone, nil
	}

	if v.state == moving(open) {
		return v.Poll(sw, now)
	}

	if v.state == VentFault && v.faultOpen == open && now.Sub(v.faultAt) < v.cfg.RetryAfter {
		return MotionDone, ErrActuatorTimeout
	}

	v.state = moving(open)
	v.since = now
	if open {
		v.speed = v.cfg.Speed
	} else {
		v.speed = -v.cfg.Speed
	}
	return MotionMoving, nil
}

// Poll advances the current motion. At rest it only tracks the switches.
func (v *Vent) Poll(sw LimitSwitches, now time.Time) (Motion, error) {
	switch v.state {
	case VentOpening, VentClosing:
		open := v.state == VentOpening
		if reached(open, sw) {
			v.settle(open)
			return MotionDone, nil
		}
		if now.Sub(v.since) > v.cfg.Timeout {
			v.speed = 0
			v.state = VentFault
			v.faultOpen = open
			v.faultAt = now
			return MotionDone, ErrActuatorTimeout
		}
		return MotionMoving, nil
	case VentFault:
		return MotionDone, nil
	}

	switch {
	case sw.Open && !sw.Closed:
		v.state = VentOpen
	case sw.Closed && !sw.Open:
		v.state = VentClosed
	}
	return MotionDone, nil
}

// Stop cuts the motor and forgets any motion in progress.
func (v *Vent) Stop() {
	v.speed = 0
	if v.state == VentOpening || v.state == VentClosing {
		v.state = VentUnknown
	}
}

// ClearFault lifts the retry hold-off after a timeout so the next command
// drives the motor again.
func (v *Vent) ClearFault() {
	if v.state == VentFault {
		v.state = VentUnknown
	}
}

func (v *Vent) settle(open bool) {
	v.speed = 0
	if open {
		v.state = VentOpen
	} else {
		v.state = VentClosed
	}
}

// Speed returns the signed motor command to apply (positive opens).
func (v *Vent) Speed() int {
	return v.speed
}

// State returns the actuator state.
func (v *Vent) State() VentState {
	return v.state
}

// IsOpen reports whether the vent is known to be fully open.
func (v *Vent) IsOpen() bool {
	return v.state == VentOpen
}

func reached(open bool, sw LimitSwitches) bool {
	if open {
		return sw.Open
	}
	return sw.Closed
}

func moving(open bool) VentState {
	if open {
		return VentOpening
	}
	return VentClosing
}
