package gpio

import "errors"

// FakeLines is a test double that returns scripted limit switch values and
// records relay writes.
type FakeLines struct {
	// Samples contains scripted switch values to return.
	// Each call to ReadLimitSwitches() consumes the next sample.
	Samples []Sample

	// index tracks current position in Samples
	index int

	// Light and Pump hold the last relay state written.
	Light bool
	Pump  bool

	// Writes counts relay writes.
	Writes int

	// Closed tracks if Close was called
	Closed bool

	// ReadError, if set, will be returned by ReadLimitSwitches()
	ReadError error

	// WriteError, if set, will be returned by SetLight() and SetPump()
	WriteError error
}

// Sample represents a single limit switch reading (already in logical form).
type Sample struct {
	Open   bool // true = engaged
	Closed bool // true = engaged
}

// NewFakeLines creates a FakeLines with the given samples.
func NewFakeLines(samples []Sample) *FakeLines {
	return &FakeLines{Samples: samples}
}

// ReadLimitSwitches returns the next scripted sample.
// If samples are exhausted, returns the last sample repeatedly.
func (f *FakeLines) ReadLimitSwitches() (bool, bool, error) {
	if f.ReadError != nil {
		return false, false, f.ReadError
	}

	if len(f.Samples) == 0 {
		return false, false, errors.New("no samples configured")
	}

	sample := f.Samples[f.index]
	if f.index < len(f.Samples)-1 {
		f.index++
	}

	return sample.Open, sample.Closed, nil
}

// SetLight records the light relay state.
func (f *FakeLines) SetLight(on bool) error {
	if f.WriteError != nil {
		return f.WriteError
	}
	f.Light = on
	f.Writes++
	return nil
}

// SetPump records the pump relay state.
func (f *FakeLines) SetPump(on bool) error {
	if f.WriteError != nil {
		return f.WriteError
	}
	f.Pump = on
	f.Writes++
	return nil
}

// Close turns both relays off and marks the lines as closed.
func (f *FakeLines) Close() error {
	f.Light = false
	f.Pump = false
	f.Closed = true
	return nil
}

// Reset resets the lines to the beginning of samples.
func (f *FakeLines) Reset() {
	f.index = 0
	f.Closed = false
}
