package ambient

import (
	"fmt"

	"tinygo.org/x/drivers"
	"tinygo.org/x/drivers/shtc3"

	"github.com/sweeney/greenhouse/internal/i2c"
)

// SHTC3 reads a Sensirion SHTC3 on an I²C bus.
type SHTC3 struct {
	rec *i2c.Recorder
	dev shtc3.Device
}

var _ Sensor = (*SHTC3)(nil)

// NewSHTC3 binds the sensor on bus. The device address is fixed at 0x70.
func NewSHTC3(bus drivers.I2C) *SHTC3 {
	rec := i2c.NewRecorder(bus)
	return &SHTC3{rec: rec, dev: shtc3.New(rec)}
}

// Read wakes the sensor, takes one high-precision sample and puts it back
// to sleep.
func (s *SHTC3) Read() (Reading, error) {
	s.rec.Err()

	_ = s.dev.WakeUp()
	milliC, rhx100, _ := s.dev.ReadTemperatureHumidity()
	_ = s.dev.Sleep()

	// The driver drops bus errors, so a missing sensor reads as zeros.
	if err := s.rec.Err(); err != nil {
		return Reading{}, fmt.Errorf("%w: %v", ErrNoReading, err)
	}

	r := Reading{
		TemperatureC: float64(milliC) / 1000,
		HumidityPct:  float64(rhx100) / 100,
	}
	if !r.Valid() {
		return Reading{}, fmt.Errorf("%w: implausible %.1f C %.1f %%", ErrNoReading, r.TemperatureC, r.HumidityPct)
	}
	return r, nil
}
