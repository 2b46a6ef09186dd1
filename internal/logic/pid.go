package logic

import "time"

// PID is a discrete PID controller with a fixed sample period, derivative on
// measurement and an anti-windup clamp on the integral term.
//
// Not safe for concurrent use.
type PID struct {
	kp, ki, kd float64 // ki and kd are pre-scaled to the sample period
	setpoint   float64
	outMin     float64
	outMax     float64
	sample     time.Duration

	outputSum float64
	lastInput float64
	lastTime  time.Time
	output    float64
	primed    bool
}

// NewPID creates a controller. Ki and Kd are given per second; sample is the
// minimum interval between two computations.
func NewPID(kp, ki, kd, setpoint float64, sample time.Duration) *PID {
	sec := sample.Seconds()
	return &PID{
		kp:       kp,
		ki:       ki * sec,
		kd:       kd / sec,
		setpoint: setpoint,
		outMin:   0,
		outMax:   255,
		sample:   sample,
	}
}

// SetOutputLimits clamps the output and the integral term to [min, max].
func (p *PID) SetOutputLimits(min, max float64) {
	if min >= max {
		return
	}
	p.outMin = min
	p.outMax = max
	p.output = p.clamp(p.output)
	p.outputSum = p.clamp(p.outputSum)
}

// Compute runs one step if a full sample period has elapsed since the last
// one. It reports whether a new output was computed.
func (p *PID) Compute(input float64, now time.Time) bool {
	if !p.primed {
		p.lastInput = input
		p.primed = true
	} else if now.Sub(p.lastTime) < p.sample {
		return false
	}

	err := p.setpoint - input
	dInput := input - p.lastInput

	p.outputSum = p.clamp(p.outputSum + p.ki*err)
	p.output = p.clamp(p.kp*err + p.outputSum - p.kd*dInput)

	p.lastInput = input
	p.lastTime = now
	return true
}

// Output returns the last computed output.
func (p *PID) Output() float64 {
	return p.output
}

// Integral returns the accumulated integral term.
func (p *PID) Integral() float64 {
	return p.outputSum
}

func (p *PID) clamp(v float64) float64 {
	if v < p.outMin {
		return p.outMin
	}
	if v > p.outMax {
		return p.outMax
	}
	return v
}
