package logic

import "time"

// AllowLighting reports whether the light should be on at the given hour.
// A duration of 0 or more than 23 hours means always on. Windows that run
// past midnight are handled by testing the complementary range.
func AllowLighting(start, duration, hour int) bool {
	if duration == 0 || duration > 23 {
		return true
	}

	inverted := false
	if start+duration > 23 {
		inverted = true
		start = start + duration - 24
		duration = 24 - duration
	}

	in := hour >= start && hour < start+duration
	if inverted {
		return !in
	}
	return in
}

// Allow is AllowLighting for a schedule value.
func (s LightingSchedule) Allow(hour int) bool {
	return AllowLighting(s.StartHour, s.DurationHours, hour)
}

// Clamp limits for the watering program.
const (
	DefaultWateringHour = 6
	MinWateringSeconds  = 5
	MaxWateringSeconds  = 600
	MaxPeriodicity      = 3
)

// Watering tracks the next valid watering weekday and the current run.
type Watering struct {
	validWeekday time.Weekday
	running      bool
	runningSince int64 // unix seconds
}

// NewWatering creates a watering scheduler valid from boot's weekday.
func NewWatering(boot time.Time) *Watering {
	return &Watering{validWeekday: boot.Weekday()}
}

// Allow reports whether the pump should run at now.
//
// A run starts when now falls on the valid weekday during the start hour;
// the valid weekday then moves forward by Periodicity days so the same day
// never fires twice. The run lasts DurationSeconds of wall time. Callers must
// poll more often than once an hour or the trigger can be missed.
func (w *Watering) Allow(s WateringSchedule, now time.Time) bool {
	start, duration, period := s.StartHour, s.DurationSeconds, s.Periodicity
	if start > 23 || start < 0 {
		start = DefaultWateringHour
	}
	if duration > MaxWateringSeconds {
		duration = MaxWateringSeconds
	} else if duration <= 0 {
		return false
	}
	if duration < MinWateringSeconds {
		duration = MinWateringSeconds
	}
	if period > MaxPeriodicity {
		period = MaxPeriodicity
	} else if period <= 0 {
		return false
	}

	if now.Weekday() == w.validWeekday && now.Hour() == start {
		w.validWeekday = (w.validWeekday + time.Weekday(period)) % 7
		w.running = true
		w.runningSince = now.Unix()
	}

	if !w.running {
		return false
	}
	if now.Unix()-w.runningSince < int64(duration) {
		return true
	}
	w.running = false
	return false
}

// ValidWeekday returns the next weekday on which watering may start.
func (w *Watering) ValidWeekday() time.Weekday {
	return w.validWeekday
}

// SetValidWeekday overrides the next valid weekday.
func (w *Watering) SetValidWeekday(d time.Weekday) {
	w.validWeekday = (d%7 + 7) % 7
}

// Running reports whether a watering run is in progress.
func (w *Watering) Running() bool {
	return w.running
}
