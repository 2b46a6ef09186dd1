package status

import (
	"fmt"
	"strings"
)

// reportTime is the clock layout of the supervision line.
const reportTime = "Mon 02 Jan 2006 15:04:05"

// FormatReport returns the supervision line for a pass, without newline:
//
//	clock, setpoint, plate, heat, ambient, humidity, light, pump,
//	valid weekday, vent open, extractor, fault
func FormatReport(snap Snapshot) string {
	fields := []string{
		snap.Clock.Format(reportTime),
		fmt.Sprintf("%d", int(snap.Config.PlateSetpoint)),
		fmt.Sprintf("%.2f", snap.PlateC),
		fmt.Sprintf("%d", snap.Heat),
		fmt.Sprintf("%.2f", snap.AmbientC),
		fmt.Sprintf("%.2f", snap.HumidityPct),
		bit(snap.Light),
		bit(snap.Pump),
		fmt.Sprintf("%d", int(snap.ValidWeekday)),
		bit(snap.VentOpen()),
		fmt.Sprintf("%d", snap.Extractor),
		snap.Fault,
	}
	return strings.Join(fields, ", ")
}

func bit(b bool) string {
	if b {
		return "1"
	}
	return "0"
}
