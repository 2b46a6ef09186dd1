package rtc

import (
	"fmt"
	"time"

	"tinygo.org/x/drivers"
	"tinygo.org/x/drivers/ds1307"

	"github.com/sweeney/greenhouse/internal/i2c"
)

// NVRAMSize is the number of battery-backed bytes.
const NVRAMSize = ds1307.SRAMEndAddress - ds1307.SRAMBeginAddres + 1

// DS1307 is a Maxim DS1307 clock on an I²C bus. It holds local wall time.
type DS1307 struct {
	rec *i2c.Recorder
	dev ds1307.Device
}

var _ Clock = (*DS1307)(nil)

// NewDS1307 binds the clock at addr on bus.
func NewDS1307(bus drivers.I2C, addr uint8) *DS1307 {
	rec := i2c.NewRecorder(bus)
	dev := ds1307.New(rec)
	if addr != 0 {
		dev.Address = addr
	}
	return &DS1307{rec: rec, dev: dev}
}

// Now returns the clock's wall time, labelled in the local zone.
func (c *DS1307) Now() (time.Time, error) {
	t, err := c.dev.ReadTime()
	if err != nil {
		return time.Time{}, fmt.Errorf("rtc: read time: %w", err)
	}
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), 0, time.Local), nil
}

// IsRunning reports whether the oscillator is running.
func (c *DS1307) IsRunning() (bool, error) {
	c.rec.Err()
	running := c.dev.IsOscillatorRunning()
	if err := c.rec.Err(); err != nil {
		return false, fmt.Errorf("rtc: read halt bit: %w", err)
	}
	return running, nil
}

// SetTime sets the clock to t's wall time and starts the oscillator.
func (c *DS1307) SetTime(t time.Time) error {
	if err := c.dev.SetTime(t); err != nil {
		return fmt.Errorf("rtc: set time: %w", err)
	}
	return nil
}

// ReadNVRAM reads NVRAM byte i.
func (c *DS1307) ReadNVRAM(i int) (byte, error) {
	if err := c.seek(i); err != nil {
		return 0, err
	}
	var b [1]byte
	if _, err := c.dev.Read(b[:]); err != nil {
		return 0, fmt.Errorf("rtc: read nvram %d: %w", i, err)
	}
	return b[0], nil
}

// WriteNVRAM writes NVRAM byte i.
func (c *DS1307) WriteNVRAM(i int, b byte) error {
	if err := c.seek(i); err != nil {
		return err
	}
	if _, err := c.dev.Write([]byte{b}); err != nil {
		return fmt.Errorf("rtc: write nvram %d: %w", i, err)
	}
	return nil
}

func (c *DS1307) seek(i int) error {
	if i < 0 || i >= NVRAMSize {
		return fmt.Errorf("rtc: nvram index %d out of range", i)
	}
	if _, err := c.dev.Seek(int64(i), 0); err != nil {
		return fmt.Errorf("rtc: seek nvram %d: %w", i, err)
	}
	return nil
}
