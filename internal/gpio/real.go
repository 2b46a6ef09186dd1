//go:build linux

package gpio

import (
	"fmt"

	"github.com/warthog618/go-gpiocdev"
)

// RealLines drives actual hardware using the Linux GPIO character device.
type RealLines struct {
	chip     *gpiocdev.Chip
	openSw   *gpiocdev.Line
	closedSw *gpiocdev.Line
	light    *gpiocdev.Line
	pump     *gpiocdev.Line
}

// NewRealLines requests the switch inputs and relay outputs on chip.
func NewRealLines(chipName string, pins Pins) (*RealLines, error) {
	chip, err := gpiocdev.NewChip(chipName)
	if err != nil {
		return nil, fmt.Errorf("open gpio chip: %w", err)
	}
	l := &RealLines{chip: chip}

	// Limit switches short to ground when engaged.
	l.openSw, err = chip.RequestLine(pins.OpenSwitch, gpiocdev.AsInput, gpiocdev.WithPullUp)
	if err != nil {
		l.Close()
		return nil, fmt.Errorf("request open switch pin %d: %w", pins.OpenSwitch, err)
	}

	l.closedSw, err = chip.RequestLine(pins.ClosedSwitch, gpiocdev.AsInput, gpiocdev.WithPullUp)
	if err != nil {
		l.Close()
		return nil, fmt.Errorf("request closed switch pin %d: %w", pins.ClosedSwitch, err)
	}

	l.light, err = chip.RequestLine(pins.Light, gpiocdev.AsOutput(0))
	if err != nil {
		l.Close()
		return nil, fmt.Errorf("request light pin %d: %w", pins.Light, err)
	}

	l.pump, err = chip.RequestLine(pins.Pump, gpiocdev.AsOutput(0))
	if err != nil {
		l.Close()
		return nil, fmt.Errorf("request pump pin %d: %w", pins.Pump, err)
	}

	return l, nil
}

// ReadLimitSwitches returns the logical switch states.
// Inverts raw GPIO: raw low (0) = engaged.
func (l *RealLines) ReadLimitSwitches() (bool, bool, error) {
	openRaw, err := l.openSw.Value()
	if err != nil {
		return false, false, fmt.Errorf("read open switch: %w", err)
	}

	closedRaw, err := l.closedSw.Value()
	if err != nil {
		return false, false, fmt.Errorf("read closed switch: %w", err)
	}

	return openRaw == 0, closedRaw == 0, nil
}

// SetLight switches the grow light relay.
func (l *RealLines) SetLight(on bool) error {
	if err := l.light.SetValue(level(on)); err != nil {
		return fmt.Errorf("set light: %w", err)
	}
	return nil
}

// SetPump switches the watering pump relay.
func (l *RealLines) SetPump(on bool) error {
	if err := l.pump.SetValue(level(on)); err != nil {
		return fmt.Errorf("set pump: %w", err)
	}
	return nil
}

// Close drives both relays off and releases the lines.
// Outputs are reconfigured as pulled-down inputs so the relays stay off
// while the pins float during shutdown/reboot.
func (l *RealLines) Close() error {
	var errs []error

	for name, out := range map[string]*gpiocdev.Line{"light": l.light, "pump": l.pump} {
		if out == nil {
			continue
		}
		if err := out.SetValue(0); err != nil {
			errs = append(errs, fmt.Errorf("clear %s pin: %w", name, err))
		}
		if err := out.Reconfigure(gpiocdev.AsInput, gpiocdev.WithPullDown); err != nil {
			errs = append(errs, fmt.Errorf("reconfigure %s pin: %w", name, err))
		}
		if err := out.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s pin: %w", name, err))
		}
	}
	for name, in := range map[string]*gpiocdev.Line{"open switch": l.openSw, "closed switch": l.closedSw} {
		if in == nil {
			continue
		}
		if err := in.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s pin: %w", name, err))
		}
	}
	if l.chip != nil {
		if err := l.chip.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close chip: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}

func level(on bool) int {
	if on {
		return 1
	}
	return 0
}
