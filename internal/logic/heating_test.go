package logic

import (
	"errors"
	"math"
	"testing"
	"time"
)

var t0 = time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

func TestRegulateOutOfRangeIsFault(t *testing.T) {
	tests := []struct {
		name   string
		plate  float64
		enable bool
	}{
		{"too cold enabled", 5, true},
		{"too cold disabled", 5, false},
		{"runaway enabled", 66, true},
		{"runaway disabled", 80, false},
		{"nan", math.NaN(), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHeater(DefaultHeatingConfig())
			out, err := h.Regulate(tt.enable, tt.plate, t0)
			if !errors.Is(err, ErrSensorOutOfRange) {
				t.Errorf("err: got %v, want ErrSensorOutOfRange", err)
			}
			if out != 0 {
				t.Errorf("output: got %d, want 0", out)
			}
			if h.Output() != 0 {
				t.Errorf("Output(): got %d, want 0", h.Output())
			}
		})
	}
}

func TestRegulateBypassZones(t *testing.T) {
	tests := []struct {
		name   string
		plate  float64
		enable bool
		want   uint8
	}{
		{"warm-up full power", 50, true, 255},
		{"just under band", 57.9, true, 255},
		{"cutoff above band", 64, true, 0},
		{"disabled in band", 60, false, 0},
		{"disabled cold plate", 20, false, 0},
		{"safe limit low", 7, true, 255},
		{"safe limit high", 65, true, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHeater(DefaultHeatingConfig())
			out, err := h.Regulate(tt.enable, tt.plate, t0)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if out != tt.want {
				t.Errorf("output: got %d, want %d", out, tt.want)
			}
		})
	}
}

func TestRegulatePIDInBand(t *testing.T) {
	h := NewHeater(DefaultHeatingConfig())

	// 1°C under setpoint: Kp*1 + Ki*1.5*1 = 62.81
	out, err := h.Regulate(true, 59, t0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != 62 {
		t.Errorf("output: got %d, want 62", out)
	}

	// At setpoint, nothing to correct.
	h2 := NewHeater(DefaultHeatingConfig())
	out, _ = h2.Regulate(true, 60, t0)
	if out != 0 {
		t.Errorf("output at setpoint: got %d, want 0", out)
	}
}

func TestRegulatePIDHonoursSamplePeriod(t *testing.T) {
	h := NewHeater(DefaultHeatingConfig())
	h.Regulate(true, 59, t0)
	integral := h.pid.Integral()

	// Too early for a new sample: previous output is re-applied.
	out, _ := h.Regulate(true, 60, t0.Add(time.Second))
	if out != 62 {
		t.Errorf("output before sample period: got %d, want 62", out)
	}
	if h.pid.Integral() != integral {
		t.Errorf("integral changed before sample period: got %v, want %v", h.pid.Integral(), integral)
	}

	// Rising plate: derivative kick pulls the output down to the floor.
	out, _ = h.Regulate(true, 60, t0.Add(1500*time.Millisecond))
	if out != 0 {
		t.Errorf("output after sample period: got %d, want 0", out)
	}
}

func TestRegulateBypassDoesNotTouchPID(t *testing.T) {
	h := NewHeater(DefaultHeatingConfig())
	h.Regulate(true, 59, t0)

	integral := h.pid.Integral()
	lastInput := h.pid.lastInput
	lastTime := h.pid.lastTime

	h.Regulate(true, 50, t0.Add(10*time.Second))
	h.Regulate(true, 64, t0.Add(20*time.Second))
	h.Regulate(false, 60, t0.Add(30*time.Second))
	h.Regulate(true, 3, t0.Add(40*time.Second))

	if h.pid.Integral() != integral {
		t.Errorf("integral: got %v, want %v", h.pid.Integral(), integral)
	}
	if h.pid.lastInput != lastInput {
		t.Errorf("lastInput: got %v, want %v", h.pid.lastInput, lastInput)
	}
	if !h.pid.lastTime.Equal(lastTime) {
		t.Errorf("lastTime: got %v, want %v", h.pid.lastTime, lastTime)
	}

	// Back in band the integral keeps accumulating from where it was.
	h.Regulate(true, 59, t0.Add(50*time.Second))
	want := 2 * integral
	if math.Abs(h.pid.Integral()-want) > 1e-9 {
		t.Errorf("integral after re-entry: got %v, want %v", h.pid.Integral(), want)
	}
}

func TestPIDOutputClamped(t *testing.T) {
	p := NewPID(62.5, 0.2083, 31.25, 60, 1500*time.Millisecond)
	for i := 0; i < 100; i++ {
		input := 20.0
		if i%2 == 1 {
			input = 100
		}
		p.Compute(input, t0.Add(time.Duration(i)*2*time.Second))
		if p.Output() < 0 || p.Output() > 255 {
			t.Fatalf("step %d: output %v outside [0,255]", i, p.Output())
		}
		if p.Integral() < 0 || p.Integral() > 255 {
			t.Fatalf("step %d: integral %v outside [0,255]", i, p.Integral())
		}
	}
}

func TestPIDSetOutputLimits(t *testing.T) {
	p := NewPID(1, 0, 0, 10, time.Second)
	p.SetOutputLimits(0, 5)
	p.Compute(0, t0)
	if p.Output() != 5 {
		t.Errorf("output: got %v, want 5", p.Output())
	}

	// Inverted limits are ignored.
	p.SetOutputLimits(10, 1)
	p.Compute(0, t0.Add(time.Second))
	if p.Output() != 5 {
		t.Errorf("output after invalid limits: got %v, want 5", p.Output())
	}
}
