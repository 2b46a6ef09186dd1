package board

// FakeBoard is a test double that returns scripted ADC values and records
// outputs.
type FakeBoard struct {
	// Analog maps a channel to the raw value AnalogRead returns.
	Analog map[int]int

	// PWM holds the last duty written per channel.
	PWM map[int]uint8

	// Left and Right hold the last motor commands.
	Left  int
	Right int

	// LeftHistory records every left motor command in order.
	LeftHistory []int

	// ReadError, if set, will be returned by AnalogRead()
	ReadError error

	// WriteError, if set, will be returned by every output method.
	WriteError error
}

var _ Board = (*FakeBoard)(nil)

// NewFakeBoard creates a FakeBoard with no scripted readings.
func NewFakeBoard() *FakeBoard {
	return &FakeBoard{
		Analog: make(map[int]int),
		PWM:    make(map[int]uint8),
	}
}

// AnalogRead returns the scripted value of channel ch.
func (f *FakeBoard) AnalogRead(ch int) (int, error) {
	if f.ReadError != nil {
		return 0, f.ReadError
	}
	return f.Analog[ch], nil
}

// AnalogWrite records the duty of channel ch.
func (f *FakeBoard) AnalogWrite(ch int, duty uint8) error {
	if f.WriteError != nil {
		return f.WriteError
	}
	f.PWM[ch] = duty
	return nil
}

// SetSpeedLeft records the left motor command.
func (f *FakeBoard) SetSpeedLeft(speed int) error {
	if f.WriteError != nil {
		return f.WriteError
	}
	f.Left = ClampSpeed(speed)
	f.LeftHistory = append(f.LeftHistory, f.Left)
	return nil
}

// SetSpeedRight records the right motor command.
func (f *FakeBoard) SetSpeedRight(speed int) error {
	if f.WriteError != nil {
		return f.WriteError
	}
	f.Right = ClampSpeed(speed)
	return nil
}
