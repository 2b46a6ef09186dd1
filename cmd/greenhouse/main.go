// Command greenhouse runs the greenhouse supervisory loop: plate heating,
// roof vent and extractor, grow light and watering pump.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/sweeney/greenhouse/internal/config"
	"github.com/sweeney/greenhouse/internal/controller"
	"github.com/sweeney/greenhouse/internal/rtc"
	"github.com/sweeney/greenhouse/internal/status"
	"github.com/sweeney/greenhouse/internal/watchdog"
)

type options struct {
	configPath   string
	printState   bool
	setTime      bool
	saveWatering bool
	simulate     bool
	writeConfig  string
}

func main() {
	var o options
	flag.StringVar(&o.configPath, "config", "/etc/greenhouse.yaml", "Path to the YAML configuration")
	flag.BoolVar(&o.printState, "print-state", false, "Read sensors once, print the JSON state and exit")
	flag.BoolVar(&o.setTime, "set-time", false, "Set the clock from host time and exit")
	flag.BoolVar(&o.saveWatering, "save-watering", false, "Store the configured watering program in clock NVRAM and exit")
	flag.BoolVar(&o.simulate, "simulate", false, "Run against simulated hardware")
	flag.StringVar(&o.writeConfig, "write-config", "", "Write the effective configuration to this path and exit")

	flag.Parse()

	if err := run(o); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}

func run(o options) error {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if o.writeConfig != "" {
		if err := cfg.Save(o.writeConfig); err != nil {
			return err
		}
		fmt.Printf("configuration written to %s\n", o.writeConfig)
		return nil
	}

	var hw *hardware
	if o.simulate {
		hw = openSimulated(cfg, os.Stdout)
	} else {
		hw, err = openHardware(cfg)
		if err != nil {
			return err
		}
	}
	defer func() {
		if err := hw.Close(); err != nil {
			log.Printf("close hardware: %v", err)
		}
	}()

	switch {
	case o.setTime:
		now := time.Now()
		if err := hw.clock.SetTime(now); err != nil {
			return fmt.Errorf("set clock: %w", err)
		}
		fmt.Printf("clock set to %s\n", now.Format(time.DateTime))
		return nil

	case o.saveWatering:
		s := cfg.WateringSchedule()
		if err := rtc.SaveWatering(hw.clock, s); err != nil {
			return err
		}
		fmt.Printf("watering program saved: %dh, %ds every %d day(s)\n", s.StartHour, s.DurationSeconds, s.Periodicity)
		return nil
	}

	tracker := status.NewTracker(time.Now(), statusConfig(cfg))

	if o.printState {
		fmt.Println(string(status.FormatJSON(readState(cfg, hw, tracker))))
		return nil
	}

	sink, closeSink, err := openSink(cfg)
	if err != nil {
		return err
	}
	defer closeSink()

	ctl, err := controller.New(cfg, controller.Deps{
		Ambient:  hw.ambient,
		Board:    hw.board,
		Lines:    hw.lines,
		Clock:    hw.clock,
		Display:  hw.display,
		Reporter: status.NewReporter(sink, cfg.Report.Backlog),
		Tracker:  tracker,
	})
	if err != nil {
		return err
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	if err := ctl.Boot(context.Background()); err != nil {
		return fmt.Errorf("boot: %w", err)
	}

	log.Printf("started: period=%v watchdog=%v simulate=%v", cfg.Loop.Period, cfg.Loop.WatchdogTimeout, o.simulate)

	ticker := time.NewTicker(cfg.Loop.Period)
	defer ticker.Stop()

	// Both board implementations serialize their commands.
	heaterOff := func() {
		if err := hw.board.AnalogWrite(cfg.Hardware.HeaterPin, 0); err != nil {
			log.Printf("watchdog: heater off: %v", err)
		}
	}

	return runLoop(ctl, tracker, cfg.Loop.WatchdogTimeout, heaterOff, ticker.C, sigCh)
}

// runLoop runs one controller pass per tick under the watchdog until a
// signal arrives. After a watchdog overrun the controller is stopped and the
// loop only waits for a signal, then returns ErrWatchdogOverrun.
//
// A pass that is still stuck one more timeout after the watchdog fired
// never reaches the emergency stop, so heaterOff is called from the timer
// goroutine. It must be safe to call concurrently with the pass.
func runLoop(ctl *controller.Controller, tracker *status.Tracker, timeout time.Duration, heaterOff func(), tick <-chan time.Time, sig <-chan os.Signal) error {
	var cancelPass atomic.Pointer[context.CancelFunc]
	var inPass atomic.Bool
	wd := watchdog.New(timeout, func() {
		log.Printf("watchdog: pass exceeded %v, last state: %s", timeout, status.FormatReport(tracker.Snapshot()))
		if cancel := cancelPass.Load(); cancel != nil {
			(*cancel)()
		}
		time.AfterFunc(timeout, func() {
			if inPass.Load() {
				log.Printf("watchdog: pass still stuck after %v, forcing heater off", 2*timeout)
				heaterOff()
			}
		})
	})

	for {
		select {
		case s := <-sig:
			log.Printf("received %v, shutting down", s)
			ctl.Shutdown()
			return nil

		case <-tick:
			ctx, cancel := context.WithCancel(context.Background())
			cancelPass.Store(&cancel)

			inPass.Store(true)
			wd.Start()
			err := ctl.Tick(ctx)
			completed := wd.Stop()
			inPass.Store(false)
			cancel()

			if !completed || wd.Fired() {
				ctl.EmergencyStop(controller.ErrWatchdogOverrun)
				return halt(sig)
			}
			if err != nil {
				log.Printf("pass error: %v", err)
			}
		}
	}
}

// halt parks the process with every output safe until it is told to stop.
func halt(sig <-chan os.Signal) error {
	log.Printf("halted, waiting for a signal")
	s := <-sig
	log.Printf("received %v while halted", s)
	return controller.ErrWatchdogOverrun
}

func statusConfig(cfg *config.Config) status.Config {
	return status.Config{
		PeriodMs:        cfg.Loop.Period.Milliseconds(),
		WatchdogMs:      cfg.Loop.WatchdogTimeout.Milliseconds(),
		PlateSetpoint:   cfg.Heating.Setpoint,
		AmbientSetpoint: cfg.Ventilation.Setpoint,
		Lighting:        cfg.LightingSchedule(),
		Watering:        cfg.WateringSchedule(),
	}
}
