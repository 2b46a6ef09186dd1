package status

import (
	"encoding/json"
	"math"
	"time"
)

// StatusJSON is the top-level JSON envelope for status output.
type StatusJSON struct {
	Status StatusInner `json:"status"`
}

// StatusInner contains the status details.
type StatusInner struct {
	Halted        bool         `json:"halted"`
	HaltReason    string       `json:"halt_reason,omitempty"`
	Fault         string       `json:"fault,omitempty"`
	Passes        uint64       `json:"passes"`
	UptimeSeconds int64        `json:"uptime_seconds"`
	StartTime     string       `json:"start_time"`
	Timestamp     string       `json:"timestamp"`
	Clock         string       `json:"clock,omitempty"`
	Heating       HeatingJSON  `json:"heating"`
	Ambient       AmbientJSON  `json:"ambient"`
	Vent          VentJSON     `json:"vent"`
	Light         bool         `json:"light"`
	Watering      WateringJSON `json:"watering"`
	Config        ConfigJSON   `json:"config"`
}

// HeatingJSON reports the plate regulator.
type HeatingJSON struct {
	PlateC   *float64 `json:"plate_c"`
	Setpoint float64  `json:"setpoint_c"`
	Command  uint8    `json:"command"`
	Enabled  bool     `json:"enabled"`
}

// AmbientJSON reports the ambient sensor.
type AmbientJSON struct {
	Valid        bool     `json:"valid"`
	TemperatureC *float64 `json:"temperature_c"`
	HumidityPct  *float64 `json:"humidity_pct"`
}

// VentJSON reports the vent and the extractor.
type VentJSON struct {
	State     string `json:"state"`
	Open      bool   `json:"open"`
	Extractor int    `json:"extractor"`
}

// WateringJSON reports the pump and the next valid day.
type WateringJSON struct {
	Pump         bool   `json:"pump"`
	ValidWeekday string `json:"valid_weekday"`
}

// ConfigJSON is the JSON representation of controller config.
type ConfigJSON struct {
	PeriodMs        int64   `json:"period_ms"`
	WatchdogMs      int64   `json:"watchdog_ms"`
	AmbientSetpoint float64 `json:"ambient_setpoint_c"`
	LightStart      int     `json:"light_start_hour"`
	LightHours      int     `json:"light_duration_hours"`
	WaterStart      int     `json:"water_start_hour"`
	WaterSeconds    int     `json:"water_duration_seconds"`
	WaterPeriod     int     `json:"water_periodicity_days"`
}

// number keeps NaN out of the JSON output: it has no JSON encoding.
func number(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

func buildInner(snap Snapshot) StatusInner {
	vent := string(snap.Vent)
	if vent == "" {
		vent = "UNKNOWN"
	}

	inner := StatusInner{
		Halted:        snap.Halted,
		HaltReason:    snap.HaltReason,
		Fault:         snap.Fault,
		Passes:        snap.Passes,
		UptimeSeconds: int64(snap.Uptime().Truncate(time.Second).Seconds()),
		StartTime:     snap.StartTime.UTC().Format(time.RFC3339),
		Timestamp:     snap.Now.UTC().Format(time.RFC3339),
		Heating: HeatingJSON{
			PlateC:   number(snap.PlateC),
			Setpoint: snap.Config.PlateSetpoint,
			Command:  snap.Heat,
			Enabled:  snap.HeatingEnabled,
		},
		Ambient: AmbientJSON{
			Valid:        snap.AmbientValid,
			TemperatureC: number(snap.AmbientC),
			HumidityPct:  number(snap.HumidityPct),
		},
		Vent:  VentJSON{State: vent, Open: snap.VentOpen(), Extractor: snap.Extractor},
		Light: snap.Light,
		Watering: WateringJSON{
			Pump:         snap.Pump,
			ValidWeekday: snap.ValidWeekday.String(),
		},
		Config: ConfigJSON{
			PeriodMs:        snap.Config.PeriodMs,
			WatchdogMs:      snap.Config.WatchdogMs,
			AmbientSetpoint: snap.Config.AmbientSetpoint,
			LightStart:      snap.Config.Lighting.StartHour,
			LightHours:      snap.Config.Lighting.DurationHours,
			WaterStart:      snap.Config.Watering.StartHour,
			WaterSeconds:    snap.Config.Watering.DurationSeconds,
			WaterPeriod:     snap.Config.Watering.Periodicity,
		},
	}
	if !snap.Clock.IsZero() {
		inner.Clock = snap.Clock.Format("2006-01-02T15:04:05")
	}
	return inner
}

// FormatJSON returns the indented JSON state dump.
func FormatJSON(snap Snapshot) []byte {
	data, _ := json.MarshalIndent(StatusJSON{Status: buildInner(snap)}, "", "  ")
	return data
}
