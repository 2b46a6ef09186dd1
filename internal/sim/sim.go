// Package sim simulates the greenhouse hardware: a heating plate, the air
// inside the greenhouse, the roof vent with its limit switches, the relays
// and the battery-backed clock. A Greenhouse satisfies every hardware
// interface the controller needs, so the full loop can run without a board.
package sim

import (
	"errors"
	"math"
	"sync"
	"time"

	"github.com/sweeney/greenhouse/internal/ambient"
	"github.com/sweeney/greenhouse/internal/board"
	"github.com/sweeney/greenhouse/internal/gpio"
	"github.com/sweeney/greenhouse/internal/rtc"
	"github.com/sweeney/greenhouse/internal/thermistor"
)

// maxStep bounds one integration step so long gaps stay stable.
const maxStep = 100 * time.Millisecond

// Config holds the physical constants of the model. Rates are per second.
type Config struct {
	Outdoor      float64 // mean outdoor temperature, °C
	OutdoorSwing float64 // day/night amplitude, °C
	Ambient      float64 // initial inside temperature, °C
	Humidity     float64 // initial relative humidity, %

	PlateGain     float64 // plate warming at full duty, °C/s
	PlateLoss     float64 // plate loss towards the air
	PlateCoupling float64 // air warming from the plate
	WallLoss      float64 // air loss through the walls
	VentLoss      float64 // extra air loss with the vent fully open
	ExtractorLoss float64 // extra air loss with the extractor at full speed

	VentTravel time.Duration // full travel time at full motor speed

	ThermistorPin int
	HeaterPin     int
	Table         *thermistor.Table
}

// DefaultConfig returns a small greenhouse on a cool day.
func DefaultConfig() Config {
	return Config{
		Outdoor:       12,
		OutdoorSwing:  6,
		Ambient:       17,
		Humidity:      65,
		PlateGain:     2,
		PlateLoss:     0.02,
		PlateCoupling: 0.0005,
		WallLoss:      0.001,
		VentLoss:      0.01,
		ExtractorLoss: 0.004,
		VentTravel:    3 * time.Second,
		ThermistorPin: 13,
		HeaterPin:     8,
		Table:         thermistor.Default100K,
	}
}

// State is a copy of the simulated physical state.
type State struct {
	PlateC      float64
	AmbientC    float64
	OutdoorC    float64
	HumidityPct float64
	Vent        float64 // 0 closed, 1 open
	Heat        uint8
	VentSpeed   int
	Extractor   int
	Light       bool
	Pump        bool
}

// Greenhouse is the simulated hardware. It is safe for concurrent use.
type Greenhouse struct {
	cfg Config
	now func() time.Time

	mu   sync.Mutex
	last time.Time
	s    State

	clockOffset  time.Duration
	clockRunning bool
	nvram        [rtc.NVRAMSize]byte

	ambientErr error
	jammed     bool
	closed     bool
}

var (
	_ board.Board    = (*Greenhouse)(nil)
	_ gpio.Lines     = (*Greenhouse)(nil)
	_ ambient.Sensor = (*Greenhouse)(nil)
	_ rtc.Clock      = (*Greenhouse)(nil)
)

// New creates a greenhouse at rest: plate and air at cfg.Ambient, vent
// closed, everything off. now drives the physics; nil means time.Now.
func New(cfg Config, now func() time.Time) *Greenhouse {
	if now == nil {
		now = time.Now
	}
	if cfg.Table == nil {
		cfg.Table = thermistor.Default100K
	}
	g := &Greenhouse{
		cfg:          cfg,
		now:          now,
		last:         now(),
		clockRunning: true,
	}
	g.s.PlateC = cfg.Ambient
	g.s.AmbientC = cfg.Ambient
	g.s.HumidityPct = cfg.Humidity
	g.s.OutdoorC = g.outdoor(g.last)
	return g
}

// State advances the model and returns a copy of it.
func (g *Greenhouse) State() State {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.advance()
	return g.s
}

// SetAmbientFault makes the ambient sensor fail with err until cleared
// with nil.
func (g *Greenhouse) SetAmbientFault(err error) {
	g.mu.Lock()
	g.ambientErr = err
	g.mu.Unlock()
}

// SetVentJammed stops the vent from moving whatever the motor does.
func (g *Greenhouse) SetVentJammed(jammed bool) {
	g.mu.Lock()
	g.advance()
	g.jammed = jammed
	g.mu.Unlock()
}

// SetAmbient forces the inside air temperature.
func (g *Greenhouse) SetAmbient(c float64) {
	g.mu.Lock()
	g.advance()
	g.s.AmbientC = c
	g.mu.Unlock()
}

// advance integrates the model up to now. Callers hold mu.
func (g *Greenhouse) advance() {
	now := g.now()
	for g.last.Before(now) {
		dt := now.Sub(g.last)
		if dt > maxStep {
			dt = maxStep
		}
		g.last = g.last.Add(dt)
		g.step(dt.Seconds())
	}
	g.s.OutdoorC = g.outdoor(g.last)
}

func (g *Greenhouse) step(dt float64) {
	c := g.cfg
	s := &g.s
	outdoor := g.outdoor(g.last)

	duty := float64(s.Heat) / board.MaxSpeed
	s.PlateC += (duty*c.PlateGain - c.PlateLoss*(s.PlateC-s.AmbientC)) * dt

	extractor := math.Abs(float64(s.Extractor)) / board.MaxSpeed
	loss := c.WallLoss + c.VentLoss*s.Vent + c.ExtractorLoss*extractor
	s.AmbientC += (loss*(outdoor-s.AmbientC) + c.PlateCoupling*(s.PlateC-s.AmbientC)) * dt

	target := 75 - 25*s.Vent
	if s.Pump {
		target = 95
	}
	s.HumidityPct += (target - s.HumidityPct) * 0.005 * dt
	s.HumidityPct = clamp(s.HumidityPct, 0, 100)

	if !g.jammed && c.VentTravel > 0 {
		s.Vent += float64(s.VentSpeed) / board.MaxSpeed * dt / c.VentTravel.Seconds()
		s.Vent = clamp(s.Vent, 0, 1)
	}
}

// outdoor follows a daily sine, coldest at 03:00 and warmest at 15:00.
func (g *Greenhouse) outdoor(t time.Time) float64 {
	hours := float64(t.Hour()) + float64(t.Minute())/60
	return g.cfg.Outdoor - g.cfg.OutdoorSwing*math.Cos(2*math.Pi*(hours-3)/24)
}

// AnalogRead returns the thermistor reading on the thermistor channel and
// zero elsewhere.
func (g *Greenhouse) AnalogRead(ch int) (int, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.advance()
	if ch != g.cfg.ThermistorPin {
		return 0, nil
	}
	return g.cfg.Table.Raw(g.s.PlateC), nil
}

// AnalogWrite sets the heater duty on the heater channel.
func (g *Greenhouse) AnalogWrite(ch int, duty uint8) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.advance()
	if ch == g.cfg.HeaterPin {
		g.s.Heat = duty
	}
	return nil
}

// SetSpeedLeft drives the vent motor.
func (g *Greenhouse) SetSpeedLeft(speed int) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.advance()
	g.s.VentSpeed = board.ClampSpeed(speed)
	return nil
}

// SetSpeedRight drives the extractor fan.
func (g *Greenhouse) SetSpeedRight(speed int) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.advance()
	g.s.Extractor = board.ClampSpeed(speed)
	return nil
}

// ReadLimitSwitches reports the vent end-stops.
func (g *Greenhouse) ReadLimitSwitches() (bool, bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.closed {
		return false, false, errors.New("sim: lines closed")
	}
	g.advance()
	return g.s.Vent >= 1, g.s.Vent <= 0, nil
}

// SetLight switches the light relay.
func (g *Greenhouse) SetLight(on bool) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.advance()
	g.s.Light = on
	return nil
}

// SetPump switches the pump relay.
func (g *Greenhouse) SetPump(on bool) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.advance()
	g.s.Pump = on
	return nil
}

// Close releases the relays.
func (g *Greenhouse) Close() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.s.Light = false
	g.s.Pump = false
	g.closed = true
	return nil
}

// Read returns the inside air temperature and humidity.
func (g *Greenhouse) Read() (ambient.Reading, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.ambientErr != nil {
		return ambient.Reading{}, g.ambientErr
	}
	g.advance()
	return ambient.Reading{TemperatureC: g.s.AmbientC, HumidityPct: g.s.HumidityPct}, nil
}

// Now returns the simulated clock time.
func (g *Greenhouse) Now() (time.Time, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.now().Add(g.clockOffset).In(time.Local), nil
}

// IsRunning reports whether the clock oscillator runs.
func (g *Greenhouse) IsRunning() (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.clockRunning, nil
}

// SetTime sets the clock and starts it.
func (g *Greenhouse) SetTime(t time.Time) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.clockOffset = t.Sub(g.now())
	g.clockRunning = true
	return nil
}

// ReadNVRAM reads one byte of clock RAM.
func (g *Greenhouse) ReadNVRAM(i int) (byte, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if i < 0 || i >= len(g.nvram) {
		return 0, errors.New("sim: nvram index out of range")
	}
	return g.nvram[i], nil
}

// WriteNVRAM writes one byte of clock RAM.
func (g *Greenhouse) WriteNVRAM(i int, b byte) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if i < 0 || i >= len(g.nvram) {
		return errors.New("sim: nvram index out of range")
	}
	g.nvram[i] = b
	return nil
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
