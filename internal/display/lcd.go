package display

import (
	"fmt"

	"tinygo.org/x/drivers"
	"tinygo.org/x/drivers/hd44780i2c"

	"github.com/sweeney/greenhouse/internal/i2c"
)

// LCD is an HD44780 display behind a PCF8574 I²C backpack.
type LCD struct {
	rec *i2c.Recorder
	dev hd44780i2c.Device
}

var _ Display = (*LCD)(nil)

// NewLCD initialises the display at addr on bus with the backlight on.
func NewLCD(bus drivers.I2C, addr uint8) (*LCD, error) {
	rec := i2c.NewRecorder(bus)
	l := &LCD{rec: rec, dev: hd44780i2c.New(rec, addr)}

	if err := l.dev.Configure(hd44780i2c.Config{Width: Columns, Height: Rows}); err != nil {
		return nil, fmt.Errorf("display: configure: %w", err)
	}
	l.dev.BacklightOn(true)
	l.dev.ClearDisplay()
	if err := rec.Err(); err != nil {
		return nil, fmt.Errorf("display: init: %w", err)
	}
	return l, nil
}

// SetCursor moves the cursor.
func (l *LCD) SetCursor(col, row int) error {
	if col < 0 || col >= Columns || row < 0 || row >= Rows {
		return fmt.Errorf("display: cursor %d,%d out of range", col, row)
	}
	l.dev.SetCursor(uint8(col), uint8(row))
	return l.rec.Err()
}

// Print writes text at the cursor.
func (l *LCD) Print(text string) error {
	l.dev.Print([]byte(text))
	return l.rec.Err()
}
