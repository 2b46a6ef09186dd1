// Package display renders the controller screens on a 16x2 character LCD.
package display

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// Columns and Rows of the character display.
const (
	Columns = 16
	Rows    = 2
)

// Version is shown on the boot and rotation screen.
const Version = "V0.1"

// Display is a character display.
type Display interface {
	SetCursor(col, row int) error
	Print(text string) error
}

// Screen is one full display page.
type Screen [Rows]string

// Show writes every row of s, padded or cut to the display width.
func Show(d Display, s Screen) error {
	for row, text := range s {
		if err := d.SetCursor(0, row); err != nil {
			return fmt.Errorf("display: row %d: %w", row, err)
		}
		if err := d.Print(fit(text)); err != nil {
			return fmt.Errorf("display: row %d: %w", row, err)
		}
	}
	return nil
}

// VersionScreen shows the firmware version and the clock.
func VersionScreen(now time.Time) Screen {
	return Screen{
		"Serre auto " + Version,
		now.Format("02/01/06 15:04"),
	}
}

// AmbianceScreen shows the plate, the setpoint and the ambient conditions.
func AmbianceScreen(plateC, setpointC, ambientC, humidityPct float64) Screen {
	return Screen{
		fmt.Sprintf("Tp=%s C  Tc=%d C", decimal(plateC), int(setpointC)),
		fmt.Sprintf("H=%s  T=%s C", decimal(humidityPct), decimal(ambientC)),
	}
}

// EmergencyScreen is left on the display after an emergency stop.
func EmergencyScreen() Screen {
	return Screen{
		"Arret d'urgence ",
		"Need to fix asap",
	}
}

func decimal(v float64) string {
	if math.IsNaN(v) {
		return "--.-"
	}
	return fmt.Sprintf("%4.1f", v)
}

func fit(text string) string {
	if len(text) >= Columns {
		return text[:Columns]
	}
	return text + strings.Repeat(" ", Columns-len(text))
}
