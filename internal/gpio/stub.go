//go:build !linux

package gpio

import "errors"

// RealLines is not available on non-Linux platforms.
type RealLines struct{}

// NewRealLines returns an error on non-Linux platforms.
func NewRealLines(chipName string, pins Pins) (*RealLines, error) {
	return nil, errors.New("gpio: not supported on this platform (requires Linux)")
}

// ReadLimitSwitches is not implemented on non-Linux platforms.
func (l *RealLines) ReadLimitSwitches() (bool, bool, error) {
	return false, false, errors.New("gpio: not supported")
}

// SetLight is not implemented on non-Linux platforms.
func (l *RealLines) SetLight(on bool) error {
	return errors.New("gpio: not supported")
}

// SetPump is not implemented on non-Linux platforms.
func (l *RealLines) SetPump(on bool) error {
	return errors.New("gpio: not supported")
}

// Close is not implemented on non-Linux platforms.
func (l *RealLines) Close() error {
	return nil
}
