package rtc

import (
	"errors"
	"time"
)

// FakeClock is a test double with a settable time and in-memory NVRAM.
type FakeClock struct {
	T       time.Time
	Running bool
	NVRAM   [NVRAMSize]byte

	// Err, if set, is returned by every method.
	Err error
}

var _ Clock = (*FakeClock)(nil)

// NewFakeClock creates a running clock at t.
func NewFakeClock(t time.Time) *FakeClock {
	return &FakeClock{T: t, Running: true}
}

// Now returns the current fake time.
func (f *FakeClock) Now() (time.Time, error) {
	if f.Err != nil {
		return time.Time{}, f.Err
	}
	return f.T, nil
}

// IsRunning reports the fake oscillator state.
func (f *FakeClock) IsRunning() (bool, error) {
	if f.Err != nil {
		return false, f.Err
	}
	return f.Running, nil
}

// SetTime sets the fake time and starts it.
func (f *FakeClock) SetTime(t time.Time) error {
	if f.Err != nil {
		return f.Err
	}
	f.T = t
	f.Running = true
	return nil
}

// Advance moves the fake time forward.
func (f *FakeClock) Advance(d time.Duration) {
	f.T = f.T.Add(d)
}

// ReadNVRAM reads fake NVRAM.
func (f *FakeClock) ReadNVRAM(i int) (byte, error) {
	if f.Err != nil {
		return 0, f.Err
	}
	if i < 0 || i >= len(f.NVRAM) {
		return 0, errors.New("index out of range")
	}
	return f.NVRAM[i], nil
}

// WriteNVRAM writes fake NVRAM.
func (f *FakeClock) WriteNVRAM(i int, b byte) error {
	if f.Err != nil {
		return f.Err
	}
	if i < 0 || i >= len(f.NVRAM) {
		return errors.New("index out of range")
	}
	f.NVRAM[i] = b
	return nil
}
