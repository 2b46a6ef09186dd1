// Package controller runs the greenhouse supervisory loop: one pass per
// tick reads the sensors, drives the climate actuators, applies the light
// and watering schedules, refreshes the display and emits a report line.
//
// All hardware is injected through Deps. The controller is not safe for
// concurrent use; it is owned by the control goroutine.
package controller

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"strings"
	"time"

	"github.com/sweeney/greenhouse/internal/ambient"
	"github.com/sweeney/greenhouse/internal/board"
	"github.com/sweeney/greenhouse/internal/config"
	"github.com/sweeney/greenhouse/internal/display"
	"github.com/sweeney/greenhouse/internal/gpio"
	"github.com/sweeney/greenhouse/internal/logic"
	"github.com/sweeney/greenhouse/internal/rtc"
	"github.com/sweeney/greenhouse/internal/status"
	"github.com/sweeney/greenhouse/internal/thermistor"
)

var (
	// ErrWatchdogOverrun is the halt reason when a pass overruns.
	ErrWatchdogOverrun = errors.New("controller: watchdog overrun")
	// ErrHalted is returned by Tick after an emergency stop.
	ErrHalted = errors.New("controller: halted")

	errLimitSwitches = errors.New("limit switches unreadable")
)

// Fault descriptions used in the report line.
const (
	faultPlate   = "plate sensor out of range"
	faultAmbient = "ambient unavailable"
	faultVent    = "vent timeout"
	faultSwitch  = "limit switches unavailable"
)

// Display rotation: passes [0, versionPasses) show the version screen,
// then the ambiance screen until rotationPasses.
const (
	versionPasses  = 3
	rotationPasses = 25
)

// ventPollInterval paces DriveVent.
const ventPollInterval = 50 * time.Millisecond

// Reporter receives one supervision line per pass.
type Reporter interface {
	Report(line string) error
}

// Deps are the collaborators of a Controller.
type Deps struct {
	Ambient  ambient.Sensor
	Board    board.Board
	Lines    gpio.Lines
	Clock    rtc.Clock
	Display  display.Display
	Reporter Reporter
	Tracker  *status.Tracker

	// Now returns host time. It times the vent and the PID and sets the
	// clock when it is not running. Defaults to time.Now.
	Now func() time.Time

	// Sleep pauses between vent polls. Defaults to a context-aware sleep.
	Sleep func(ctx context.Context, d time.Duration) error
}

// climate zones of the ambient thermostat
type zone int

const (
	zoneHold zone = iota
	zoneVent
	zoneHeat
)

// Controller is the supervisory loop state.
type Controller struct {
	cfg   *config.Config
	deps  Deps
	table *thermistor.Table

	heater   *logic.Heater
	vent     *logic.Vent
	watering *logic.Watering
	holder   *ambient.Holder

	wateringSchedule logic.WateringSchedule
	lightingSchedule logic.LightingSchedule

	heatingEnabled bool
	extractor      int
	screen         int
	halted         bool
	clockTime      time.Time
}

// New creates a controller. Boot must be called before the first Tick.
func New(cfg *config.Config, deps Deps) (*Controller, error) {
	if deps.Ambient == nil || deps.Board == nil || deps.Lines == nil || deps.Clock == nil ||
		deps.Display == nil || deps.Reporter == nil || deps.Tracker == nil {
		return nil, errors.New("controller: missing dependency")
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.Sleep == nil {
		deps.Sleep = sleep
	}

	table, err := cfg.ThermistorTable()
	if err != nil {
		return nil, fmt.Errorf("controller: %w", err)
	}

	return &Controller{
		cfg:              cfg,
		deps:             deps,
		table:            table,
		heater:           logic.NewHeater(cfg.HeatingLogic()),
		vent:             logic.NewVent(cfg.VentLogic()),
		watering:         logic.NewWatering(deps.Now()),
		holder:           ambient.NewHolder(cfg.Ambient.StaleAfter),
		wateringSchedule: cfg.WateringSchedule(),
		lightingSchedule: cfg.LightingSchedule(),
	}, nil
}

// Boot runs the start-up sequence: clock check, watering program restore,
// version screen, vent self-test, light on and extractor at full speed.
// Hardware failures are logged; only a cancelled ctx aborts the boot.
func (c *Controller) Boot(ctx context.Context) error {
	c.checkClock()

	now := c.readClock()
	c.watering = logic.NewWatering(now)
	c.deps.Tracker.SetValidWeekday(c.watering.ValidWeekday())

	if c.cfg.Watering.Persist {
		c.restoreWatering()
	}
	c.deps.Tracker.SetWatering(c.wateringSchedule)

	if err := display.Show(c.deps.Display, display.VersionScreen(now)); err != nil {
		log.Printf("boot: %v", err)
	}

	for _, open := range []bool{true, false} {
		if err := c.DriveVent(ctx, open); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			log.Printf("boot: vent self-test: %v", err)
		}
	}

	if err := c.deps.Lines.SetLight(true); err != nil {
		log.Printf("boot: %v", err)
	}
	c.extractor = board.MaxSpeed
	if err := c.deps.Board.SetSpeedRight(c.extractor); err != nil {
		log.Printf("boot: extractor: %v", err)
	}

	log.Printf("boot: complete, valid watering day %s", c.watering.ValidWeekday())
	return nil
}

func (c *Controller) checkClock() {
	running, err := c.deps.Clock.IsRunning()
	if err != nil {
		log.Printf("boot: clock: %v", err)
		return
	}
	if running {
		return
	}
	log.Printf("boot: clock is not running, setting it from host time")
	if err := c.deps.Clock.SetTime(c.deps.Now()); err != nil {
		log.Printf("boot: set clock: %v", err)
	}
}

func (c *Controller) restoreWatering() {
	s, err := rtc.RestoreWatering(c.deps.Clock)
	switch {
	case err == nil:
		c.wateringSchedule = s
		log.Printf("boot: watering program restored: %dh, %ds every %d day(s)",
			s.StartHour, s.DurationSeconds, s.Periodicity)
	case errors.Is(err, rtc.ErrNoProgram):
		if err := rtc.SaveWatering(c.deps.Clock, c.wateringSchedule); err != nil {
			log.Printf("boot: %v", err)
		}
	default:
		log.Printf("boot: %v", err)
	}
}

// readClock returns the clock time, falling back to host time when the
// clock cannot be read.
func (c *Controller) readClock() time.Time {
	t, err := c.deps.Clock.Now()
	if err != nil {
		log.Printf("clock read error: %v", err)
		return c.deps.Now()
	}
	return t
}

// Tick runs one control pass. It returns ctx.Err() when ctx is cancelled
// between phases, ErrHalted after an emergency stop, and nil otherwise:
// hardware faults are logged and reported, never returned.
func (c *Controller) Tick(ctx context.Context) error {
	if c.halted {
		return ErrHalted
	}

	var p status.Pass
	var faults []string
	fault := func(f string) { faults = append(faults, f) }

	// Sense
	c.clockTime = c.readClock()
	now := c.deps.Now()
	p.Clock = c.clockTime
	p.PlateC = c.readPlate()

	reading, err := c.deps.Ambient.Read()
	if err != nil {
		log.Printf("ambient read error: %v", err)
	}
	reading, p.AmbientValid = c.holder.Update(reading, err, now)
	p.AmbientC, p.HumidityPct = reading.TemperatureC, reading.HumidityPct
	if !p.AmbientValid {
		fault(faultAmbient)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	// Climate
	z := c.classify(p.AmbientC, p.AmbientValid)
	switch z {
	case zoneVent:
		c.extractor = c.cfg.Ventilation.ExtractorVenting
		c.heatingEnabled = false
	case zoneHeat:
		c.extractor = c.cfg.Ventilation.ExtractorHeating
		c.heatingEnabled = true
	}
	if !p.AmbientValid {
		c.heatingEnabled = false
	}

	if err := c.stepVent(z, now); err != nil {
		switch {
		case errors.Is(err, logic.ErrActuatorTimeout):
			fault(faultVent)
		case errors.Is(err, errLimitSwitches):
			fault(faultSwitch)
		}
		log.Printf("vent: %v", err)
	}
	if err := c.deps.Board.SetSpeedRight(c.extractor); err != nil {
		log.Printf("extractor: %v", err)
	}

	heat, err := c.heater.Regulate(c.heatingEnabled, p.PlateC, now)
	if err != nil {
		fault(faultPlate)
	}
	if err := c.deps.Board.AnalogWrite(c.cfg.Hardware.HeaterPin, heat); err != nil {
		log.Printf("heater: %v", err)
	}
	p.Heat = heat
	p.HeatingEnabled = c.heatingEnabled
	p.Vent = c.vent.State()
	p.Extractor = c.extractor
	if err := ctx.Err(); err != nil {
		return err
	}

	// Schedule
	p.Light = c.lightingSchedule.Allow(c.clockTime.Hour())
	if err := c.deps.Lines.SetLight(p.Light); err != nil {
		log.Printf("light: %v", err)
	}
	p.Pump = c.watering.Allow(c.wateringSchedule, c.clockTime)
	if err := c.deps.Lines.SetPump(p.Pump); err != nil {
		log.Printf("pump: %v", err)
	}
	p.ValidWeekday = c.watering.ValidWeekday()
	if err := ctx.Err(); err != nil {
		return err
	}

	// Display
	c.showRotation(p)

	// Report
	if len(faults) > 0 {
		p.Fault = strings.Join(faults, "; ")
	}
	c.deps.Tracker.Update(p)
	if err := c.deps.Reporter.Report(status.FormatReport(c.deps.Tracker.Snapshot())); err != nil {
		log.Printf("report: %v", err)
	}
	return nil
}

// readPlate converts the thermistor ADC value. A failed read yields NaN,
// which the heater treats as out of range.
func (c *Controller) readPlate() float64 {
	raw, err := c.deps.Board.AnalogRead(c.cfg.Hardware.ThermistorPin)
	if err != nil {
		log.Printf("plate read error: %v", err)
		return math.NaN()
	}
	return c.table.Celsius(raw)
}

func (c *Controller) classify(ambientC float64, valid bool) zone {
	if !valid {
		return zoneHold
	}
	v := c.cfg.Ventilation
	switch {
	case ambientC >= v.Setpoint+v.Hysteresis:
		return zoneVent
	case ambientC <= v.Setpoint-v.Hysteresis:
		return zoneHeat
	}
	return zoneHold
}

// stepVent advances the vent by one non-blocking step and applies the
// motor command. With the switches unreadable the vent position is
// unknown, so the motor is stopped and the state machine is not stepped.
func (c *Controller) stepVent(z zone, now time.Time) error {
	sw, err := c.limitSwitches()
	if err != nil {
		c.vent.Stop()
		if werr := c.deps.Board.SetSpeedLeft(0); werr != nil {
			log.Printf("vent motor: %v", werr)
		}
		return err
	}

	switch z {
	case zoneVent:
		_, err = c.vent.Open(sw, now)
	case zoneHeat:
		_, err = c.vent.Close(sw, now)
	default:
		_, err = c.vent.Poll(sw, now)
	}

	if werr := c.deps.Board.SetSpeedLeft(c.vent.Speed()); werr != nil {
		log.Printf("vent motor: %v", werr)
	}
	return err
}

func (c *Controller) limitSwitches() (logic.LimitSwitches, error) {
	open, closed, err := c.deps.Lines.ReadLimitSwitches()
	if err != nil {
		return logic.LimitSwitches{}, fmt.Errorf("%w: %v", errLimitSwitches, err)
	}
	return logic.LimitSwitches{Open: open, Closed: closed}, nil
}

// DriveVent moves the vent fully open or closed, blocking until the limit
// switch engages, the vent times out, the switches cannot be read or ctx
// is done. The motor is stopped on every exit path.
func (c *Controller) DriveVent(ctx context.Context, open bool) error {
	defer func() {
		c.vent.Stop()
		if err := c.deps.Board.SetSpeedLeft(0); err != nil {
			log.Printf("vent motor: %v", err)
		}
	}()

	for {
		sw, err := c.limitSwitches()
		if err != nil {
			return err
		}

		var m logic.Motion
		if open {
			m, err = c.vent.Open(sw, c.deps.Now())
		} else {
			m, err = c.vent.Close(sw, c.deps.Now())
		}
		if werr := c.deps.Board.SetSpeedLeft(c.vent.Speed()); werr != nil {
			log.Printf("vent motor: %v", werr)
		}
		if err != nil {
			return err
		}
		if m == logic.MotionDone {
			return nil
		}

		if err := c.deps.Sleep(ctx, ventPollInterval); err != nil {
			return err
		}
	}
}

func (c *Controller) showRotation(p status.Pass) {
	var s display.Screen
	if c.screen < versionPasses {
		s = display.VersionScreen(c.clockTime)
	} else {
		s = display.AmbianceScreen(p.PlateC, c.heater.Setpoint(), p.AmbientC, p.HumidityPct)
	}
	c.screen = (c.screen + 1) % rotationPasses

	if err := display.Show(c.deps.Display, s); err != nil {
		log.Printf("display: %v", err)
	}
}

// EmergencyStop drives every output to its safe state, shows the emergency
// screen and closes the vent. The controller stays halted afterwards.
// It must run on the control goroutine.
func (c *Controller) EmergencyStop(reason error) {
	c.halted = true
	log.Printf("EMERGENCY STOP: %v", reason)

	c.safeOutputs("emergency")
	if err := display.Show(c.deps.Display, display.EmergencyScreen()); err != nil {
		log.Printf("emergency: %v", err)
	}

	// Bounded by the vent timeout, independent of the cancelled pass. A
	// recent close timeout does not hold the emergency close off.
	c.vent.ClearFault()
	ctx, cancel := context.WithTimeout(context.Background(), c.cfg.Ventilation.Timeout+time.Second)
	defer cancel()
	if err := c.DriveVent(ctx, false); err != nil {
		log.Printf("emergency: close vent: %v", err)
	}

	c.deps.Tracker.SetHalted(reason.Error())
	if err := c.deps.Reporter.Report("ATU, " + reason.Error()); err != nil {
		log.Printf("report: %v", err)
	}
}

// Shutdown turns every output off and stops both motors, leaving the vent
// where it is. Used on a clean exit.
func (c *Controller) Shutdown() {
	c.safeOutputs("shutdown")
	c.vent.Stop()
	if err := c.deps.Board.SetSpeedLeft(0); err != nil {
		log.Printf("shutdown: vent motor: %v", err)
	}
}

func (c *Controller) safeOutputs(phase string) {
	if err := c.deps.Board.AnalogWrite(c.cfg.Hardware.HeaterPin, 0); err != nil {
		log.Printf("%s: heater: %v", phase, err)
	}
	if err := c.deps.Lines.SetPump(false); err != nil {
		log.Printf("%s: pump: %v", phase, err)
	}
	c.extractor = 0
	if err := c.deps.Board.SetSpeedRight(0); err != nil {
		log.Printf("%s: extractor: %v", phase, err)
	}
	if err := c.deps.Lines.SetLight(false); err != nil {
		log.Printf("%s: light: %v", phase, err)
	}
}

// Halted reports whether EmergencyStop has run.
func (c *Controller) Halted() bool {
	return c.halted
}

// Watering returns the watering program in use.
func (c *Controller) Watering() logic.WateringSchedule {
	return c.wateringSchedule
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
