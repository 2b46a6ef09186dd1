// Package i2c exposes a host I²C adapter as a tinygo.org/x/drivers.I2C so
// the TinyGo device drivers (LCD, clock, ambient sensor) run unchanged on
// Linux.
package i2c

import (
	"fmt"
	"sync"

	"tinygo.org/x/drivers"
)

// Recorder wraps a bus and remembers the last transfer error. Some drivers
// discard bus errors; callers use Err to detect a missing device.
type Recorder struct {
	bus drivers.I2C

	mu  sync.Mutex
	err error
}

var _ drivers.I2C = (*Recorder)(nil)

// NewRecorder wraps bus.
func NewRecorder(bus drivers.I2C) *Recorder {
	return &Recorder{bus: bus}
}

// Tx forwards the transfer and records its outcome.
func (r *Recorder) Tx(addr uint16, w, rd []byte) error {
	err := r.bus.Tx(addr, w, rd)
	if err != nil {
		err = fmt.Errorf("i2c 0x%02x: %w", addr, err)
	}
	r.mu.Lock()
	if err != nil && r.err == nil {
		r.err = err
	}
	r.mu.Unlock()
	return err
}

// Err returns and clears the first error recorded since the last call.
func (r *Recorder) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	err := r.err
	r.err = nil
	return err
}
