// Package rtc reads the battery-backed real-time clock and keeps the
// watering program in its NVRAM so it survives power loss.
package rtc

import (
	"errors"
	"fmt"
	"time"

	"github.com/sweeney/greenhouse/internal/logic"
)

// Clock is a real-time clock with a small battery-backed RAM.
type Clock interface {
	Now() (time.Time, error)
	IsRunning() (bool, error)
	SetTime(t time.Time) error
	ReadNVRAM(i int) (byte, error)
	WriteNVRAM(i int, b byte) error
}

// NVRAM layout of the watering program.
const (
	nvStartHour   = 0
	nvDurationHi  = 1
	nvDurationLo  = 2
	nvPeriodicity = 3
)

// ErrNoProgram is returned when the NVRAM holds no valid watering program.
var ErrNoProgram = errors.New("rtc: no watering program stored")

// SaveWatering stores the watering program in NVRAM.
func SaveWatering(c Clock, s logic.WateringSchedule) error {
	if s.StartHour < 0 || s.StartHour > 23 {
		return fmt.Errorf("rtc: start hour %d does not fit", s.StartHour)
	}
	if s.DurationSeconds < 0 || s.DurationSeconds > 0xFFFF {
		return fmt.Errorf("rtc: duration %d does not fit", s.DurationSeconds)
	}
	if s.Periodicity < 0 || s.Periodicity > 0xFF {
		return fmt.Errorf("rtc: periodicity %d does not fit", s.Periodicity)
	}

	bytes := []struct {
		addr int
		val  byte
	}{
		{nvStartHour, byte(s.StartHour)},
		{nvDurationHi, byte(s.DurationSeconds >> 8)},
		{nvDurationLo, byte(s.DurationSeconds)},
		{nvPeriodicity, byte(s.Periodicity)},
	}
	for _, b := range bytes {
		if err := c.WriteNVRAM(b.addr, b.val); err != nil {
			return fmt.Errorf("rtc: save watering: %w", err)
		}
	}
	return nil
}

// RestoreWatering reads the watering program from NVRAM. It returns
// ErrNoProgram when the stored bytes are blank or out of range.
func RestoreWatering(c Clock) (logic.WateringSchedule, error) {
	var raw [4]byte
	for i := range raw {
		b, err := c.ReadNVRAM(i)
		if err != nil {
			return logic.WateringSchedule{}, fmt.Errorf("rtc: restore watering: %w", err)
		}
		raw[i] = b
	}

	s := logic.WateringSchedule{
		StartHour:       int(raw[nvStartHour]),
		DurationSeconds: int(raw[nvDurationHi])<<8 | int(raw[nvDurationLo]),
		Periodicity:     int(raw[nvPeriodicity]),
	}
	if s.StartHour > 23 || s.DurationSeconds == 0 || s.DurationSeconds > logic.MaxWateringSeconds ||
		s.Periodicity == 0 || s.Periodicity > logic.MaxPeriodicity {
		return logic.WateringSchedule{}, ErrNoProgram
	}
	return s, nil
}
