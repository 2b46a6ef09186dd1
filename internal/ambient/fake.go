package ambient

// FakeSensor is a test double that returns a settable reading.
type FakeSensor struct {
	Reading Reading
	Err     error
	Reads   int
}

var _ Sensor = (*FakeSensor)(nil)

// NewFakeSensor creates a FakeSensor returning tempC and humidity.
func NewFakeSensor(tempC, humidity float64) *FakeSensor {
	return &FakeSensor{Reading: Reading{TemperatureC: tempC, HumidityPct: humidity}}
}

// Read returns the configured reading or error.
func (f *FakeSensor) Read() (Reading, error) {
	f.Reads++
	if f.Err != nil {
		return Reading{}, f.Err
	}
	return f.Reading, nil
}
