// Package status provides a thread-safe state tracker for the greenhouse
// controller. It is written by the control loop and read by the watchdog
// handler and the state dump.
package status

import (
	"sync"
	"time"

	"github.com/sweeney/greenhouse/internal/logic"
)

// Config contains controller configuration for display.
type Config struct {
	PeriodMs        int64
	WatchdogMs      int64
	PlateSetpoint   float64
	AmbientSetpoint float64
	Lighting        logic.LightingSchedule
	Watering        logic.WateringSchedule
}

// Pass holds the values produced by one control pass.
type Pass struct {
	Clock          time.Time
	PlateC         float64
	Heat           uint8
	HeatingEnabled bool
	AmbientC       float64
	HumidityPct    float64
	AmbientValid   bool
	Vent           logic.VentState
	Extractor      int
	Light          bool
	Pump           bool
	ValidWeekday   time.Weekday
	Fault          string
}

// Snapshot is a point-in-time view of controller state.
// It is a value type, safe to use after the lock is released.
type Snapshot struct {
	Pass
	Passes     uint64
	Halted     bool
	HaltReason string
	StartTime  time.Time
	Now        time.Time
	Config     Config
}

// Uptime returns the duration since the controller started.
func (s Snapshot) Uptime() time.Duration {
	return s.Now.Sub(s.StartTime)
}

// VentOpen reports whether the vent is known to be open.
func (s Snapshot) VentOpen() bool {
	return s.Vent == logic.VentOpen
}

// Tracker holds mutable controller state behind an RWMutex.
type Tracker struct {
	mu   sync.RWMutex
	snap Snapshot
}

// NewTracker creates a Tracker with the given start time and config.
func NewTracker(startTime time.Time, cfg Config) *Tracker {
	return &Tracker{
		snap: Snapshot{
			StartTime: startTime,
			Config:    cfg,
		},
	}
}

// Update records the outcome of a control pass.
// Called from the control loop on every tick.
func (t *Tracker) Update(p Pass) {
	t.mu.Lock()
	t.snap.Pass = p
	t.snap.Passes++
	t.mu.Unlock()
}

// SetHalted marks the controller as permanently stopped.
func (t *Tracker) SetHalted(reason string) {
	t.mu.Lock()
	t.snap.Halted = true
	t.snap.HaltReason = reason
	t.mu.Unlock()
}

// SetValidWeekday records the next valid watering day outside a pass.
func (t *Tracker) SetValidWeekday(d time.Weekday) {
	t.mu.Lock()
	t.snap.ValidWeekday = d
	t.mu.Unlock()
}

// SetWatering records the watering program in use.
func (t *Tracker) SetWatering(s logic.WateringSchedule) {
	t.mu.Lock()
	t.snap.Config.Watering = s
	t.mu.Unlock()
}

// Snapshot returns a point-in-time copy of the controller state.
// The Now field is set to the current time at the moment of the call.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	s := t.snap
	t.mu.RUnlock()
	s.Now = time.Now()
	return s
}
