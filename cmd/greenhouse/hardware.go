package main

import (
	"errors"
	"fmt"
	"io"
	"log"
	"math"
	"os"

	"github.com/sweeney/greenhouse/internal/ambient"
	"github.com/sweeney/greenhouse/internal/board"
	"github.com/sweeney/greenhouse/internal/config"
	"github.com/sweeney/greenhouse/internal/display"
	"github.com/sweeney/greenhouse/internal/gpio"
	"github.com/sweeney/greenhouse/internal/i2c"
	"github.com/sweeney/greenhouse/internal/logic"
	"github.com/sweeney/greenhouse/internal/rtc"
	"github.com/sweeney/greenhouse/internal/sim"
	"github.com/sweeney/greenhouse/internal/status"
)

// hardware groups the controller peripherals and what must be closed on exit.
type hardware struct {
	ambient ambient.Sensor
	board   board.Board
	lines   gpio.Lines
	clock   rtc.Clock
	display display.Display

	closers []io.Closer // closed in reverse order
}

// Close releases every peripheral, stopping at nothing.
func (h *hardware) Close() error {
	var errs []error
	for i := len(h.closers) - 1; i >= 0; i-- {
		if err := h.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// openHardware opens the I²C bus (ambient sensor, clock, LCD), the analog
// board and the GPIO lines.
func openHardware(cfg *config.Config) (*hardware, error) {
	hw := &hardware{}
	fail := func(err error) (*hardware, error) {
		if cerr := hw.Close(); cerr != nil {
			log.Printf("close hardware: %v", cerr)
		}
		return nil, err
	}

	bus, err := i2c.Open(cfg.Hardware.I2CBus)
	if err != nil {
		return nil, fmt.Errorf("init i2c: %w", err)
	}
	hw.closers = append(hw.closers, bus)

	hw.ambient = ambient.NewSHTC3(bus)
	hw.clock = rtc.NewDS1307(bus, cfg.Hardware.RTCAddress)

	lcd, err := display.NewLCD(bus, cfg.Hardware.LCDAddress)
	if err != nil {
		return fail(fmt.Errorf("init lcd: %w", err))
	}
	hw.display = lcd

	b, err := board.Open(cfg.Hardware.BoardPort, cfg.Hardware.BoardBaud)
	if err != nil {
		return fail(fmt.Errorf("init board: %w", err))
	}
	hw.board = b
	hw.closers = append(hw.closers, b)

	lines, err := gpio.NewRealLines(cfg.Hardware.GPIOChip, gpio.Pins{
		OpenSwitch:   cfg.Hardware.PinOpenSwitch,
		ClosedSwitch: cfg.Hardware.PinClosedSwitch,
		Light:        cfg.Hardware.PinLight,
		Pump:         cfg.Hardware.PinPump,
	})
	if err != nil {
		return fail(fmt.Errorf("init gpio: %w", err))
	}
	hw.lines = lines
	hw.closers = append(hw.closers, lines)

	return hw, nil
}

// openSimulated builds a simulated greenhouse wired like cfg. Screens are
// echoed to w.
func openSimulated(cfg *config.Config, w io.Writer) *hardware {
	simCfg := sim.DefaultConfig()
	simCfg.ThermistorPin = cfg.Hardware.ThermistorPin
	simCfg.HeaterPin = cfg.Hardware.HeaterPin
	if tbl, err := cfg.ThermistorTable(); err == nil {
		simCfg.Table = tbl
	}

	g := sim.New(simCfg, nil)
	return &hardware{
		ambient: g,
		board:   g,
		lines:   g,
		clock:   g,
		display: sim.NewPanel(w),
		closers: []io.Closer{g},
	}
}

// openSink returns the supervision line writer: stdout, or the configured
// serial port.
func openSink(cfg *config.Config) (io.Writer, func(), error) {
	if cfg.Report.Port == "" {
		return os.Stdout, func() {}, nil
	}
	sink, err := status.OpenSerial(cfg.Report.Port, cfg.Report.Baud)
	if err != nil {
		return nil, nil, fmt.Errorf("init report: %w", err)
	}
	return sink, func() {
		if err := sink.Close(); err != nil {
			log.Printf("close report port: %v", err)
		}
	}, nil
}

// readState samples every sensor once without driving any output.
func readState(cfg *config.Config, hw *hardware, tracker *status.Tracker) status.Snapshot {
	var p status.Pass

	if t, err := hw.clock.Now(); err != nil {
		log.Printf("clock read error: %v", err)
	} else {
		p.Clock = t
	}

	p.PlateC = math.NaN()
	if raw, err := hw.board.AnalogRead(cfg.Hardware.ThermistorPin); err != nil {
		log.Printf("plate read error: %v", err)
	} else if tbl, err := cfg.ThermistorTable(); err == nil {
		p.PlateC = tbl.Celsius(raw)
	}

	r, err := hw.ambient.Read()
	if err != nil {
		log.Printf("ambient read error: %v", err)
		r = ambient.Reading{TemperatureC: math.NaN(), HumidityPct: math.NaN()}
	}
	p.AmbientC, p.HumidityPct, p.AmbientValid = r.TemperatureC, r.HumidityPct, err == nil && r.Valid()

	p.Vent = logic.VentUnknown
	if open, closed, err := hw.lines.ReadLimitSwitches(); err != nil {
		log.Printf("gpio read error: %v", err)
	} else {
		p.Vent = ventState(open, closed)
	}

	if cfg.Watering.Persist {
		if s, err := rtc.RestoreWatering(hw.clock); err == nil {
			tracker.SetWatering(s)
		}
	}
	p.ValidWeekday = p.Clock.Weekday()

	tracker.Update(p)
	return tracker.Snapshot()
}

func ventState(open, closed bool) logic.VentState {
	switch {
	case open && !closed:
		return logic.VentOpen
	case closed && !open:
		return logic.VentClosed
	}
	return logic.VentUnknown
}
