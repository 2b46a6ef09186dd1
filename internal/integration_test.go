package internal

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/sweeney/greenhouse/internal/config"
	"github.com/sweeney/greenhouse/internal/controller"
	"github.com/sweeney/greenhouse/internal/logic"
	"github.com/sweeney/greenhouse/internal/rtc"
	"github.com/sweeney/greenhouse/internal/sim"
	"github.com/sweeney/greenhouse/internal/status"
)

// Thursday 1 January 2026, noon.
var startTime = time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

type collector struct {
	lines []string
}

func (c *collector) Report(line string) error {
	c.lines = append(c.lines, line)
	return nil
}

// plant is the controller wired to a simulated greenhouse on a fake clock.
type plant struct {
	t       *testing.T
	now     time.Time
	cfg     *config.Config
	g       *sim.Greenhouse
	panel   *sim.Panel
	rep     *collector
	tracker *status.Tracker
	ctl     *controller.Controller
}

func newPlant(t *testing.T, setup func(p *plant)) *plant {
	t.Helper()
	p := &plant{t: t, now: startTime, cfg: config.Default(), rep: &collector{}}
	p.g = sim.New(sim.DefaultConfig(), func() time.Time { return p.now })
	p.panel = sim.NewPanel(io.Discard)
	p.tracker = status.NewTracker(startTime, status.Config{
		PlateSetpoint:   p.cfg.Heating.Setpoint,
		AmbientSetpoint: p.cfg.Ventilation.Setpoint,
	})
	if setup != nil {
		setup(p)
	}

	ctl, err := controller.New(p.cfg, controller.Deps{
		Ambient:  p.g,
		Board:    p.g,
		Lines:    p.g,
		Clock:    p.g,
		Display:  p.panel,
		Reporter: p.rep,
		Tracker:  p.tracker,
		Now:      func() time.Time { return p.now },
		Sleep: func(ctx context.Context, d time.Duration) error {
			p.now = p.now.Add(d)
			return ctx.Err()
		},
	})
	if err != nil {
		t.Fatalf("controller.New: %v", err)
	}
	p.ctl = ctl

	if err := ctl.Boot(context.Background()); err != nil {
		t.Fatalf("Boot: %v", err)
	}
	return p
}

// run executes n one-second passes.
func (p *plant) run(n int) {
	p.t.Helper()
	for i := 0; i < n; i++ {
		p.now = p.now.Add(time.Second)
		if err := p.ctl.Tick(context.Background()); err != nil {
			p.t.Fatalf("pass %d: %v", i, err)
		}
	}
}

func TestIntegrationBootSelfTest(t *testing.T) {
	p := newPlant(t, nil)

	s := p.g.State()
	if s.Vent != 0 {
		t.Errorf("vent position after self-test: got %v, want 0 (closed)", s.Vent)
	}
	if s.VentSpeed != 0 {
		t.Errorf("vent motor running after self-test: %d", s.VentSpeed)
	}
	if !s.Light {
		t.Error("expected light on after boot")
	}
	if s.Extractor != 255 {
		t.Errorf("extractor: got %d, want 255", s.Extractor)
	}
	if p.now.Sub(startTime) < 2*p.cfg.Ventilation.Timeout/3 {
		t.Errorf("self-test took %v, expected the vent to travel both ways", p.now.Sub(startTime))
	}
	if !strings.HasPrefix(p.panel.Line(0), "Serre auto V0.1") {
		t.Errorf("display: got %q, want version screen", p.panel.Line(0))
	}

	got, err := rtc.RestoreWatering(p.g)
	if err != nil {
		t.Fatalf("watering program not saved at boot: %v", err)
	}
	if got != p.cfg.WateringSchedule() {
		t.Errorf("saved program: got %+v, want %+v", got, p.cfg.WateringSchedule())
	}
}

func TestIntegrationPlateRegulation(t *testing.T) {
	p := newPlant(t, nil)

	var inBand bool
	maxPlate := 0.0
	for i := 0; i < 1200; i++ {
		p.run(1)
		snap := p.tracker.Snapshot()
		if strings.Contains(snap.Fault, "plate") {
			t.Fatalf("pass %d: unexpected plate fault at %.2f°C", i, snap.PlateC)
		}
		if snap.PlateC > maxPlate {
			maxPlate = snap.PlateC
		}
		if snap.HeatingEnabled && snap.PlateC >= 58 && snap.PlateC <= 62 {
			inBand = true
		}
	}

	if !inBand {
		t.Error("plate never reached the regulation band")
	}
	if maxPlate >= 65 {
		t.Errorf("plate overshot the safety limit: %.2f°C", maxPlate)
	}
}

func TestIntegrationClimateCycles(t *testing.T) {
	p := newPlant(t, nil)

	var opened, closed, heated bool
	minC, maxC := 100.0, -100.0
	for i := 0; i < 3600; i++ {
		p.run(1)
		snap := p.tracker.Snapshot()
		switch snap.Vent {
		case logic.VentOpen:
			opened = true
		case logic.VentClosed:
			closed = true
		}
		if snap.Heat > 0 {
			heated = true
		}
		if i > 600 {
			if snap.AmbientC < minC {
				minC = snap.AmbientC
			}
			if snap.AmbientC > maxC {
				maxC = snap.AmbientC
			}
		}
		if snap.Fault != "" {
			t.Fatalf("pass %d: unexpected fault %q", i, snap.Fault)
		}
	}

	if !opened || !closed || !heated {
		t.Errorf("expected the vent to open and close and the plate to heat: opened=%v closed=%v heated=%v", opened, closed, heated)
	}
	if minC < 17 || maxC > 23 {
		t.Errorf("ambient left the control band: min %.2f max %.2f", minC, maxC)
	}
	if len(p.rep.lines) != 3600 {
		t.Errorf("report lines: got %d, want 3600", len(p.rep.lines))
	}
}

func TestIntegrationJammedVent(t *testing.T) {
	p := newPlant(t, nil)
	p.g.SetVentJammed(true)
	p.g.SetAmbient(25)

	p.run(10)

	snap := p.tracker.Snapshot()
	if snap.Vent != logic.VentFault {
		t.Errorf("vent: got %s, want FAULT", snap.Vent)
	}
	if !strings.Contains(p.rep.lines[len(p.rep.lines)-1], "vent timeout") {
		t.Errorf("last report line lacks the fault: %q", p.rep.lines[len(p.rep.lines)-1])
	}
	if s := p.g.State(); s.VentSpeed != 0 {
		t.Errorf("vent motor still driven after timeout: %d", s.VentSpeed)
	}
}

func TestIntegrationAmbientOutage(t *testing.T) {
	p := newPlant(t, nil)
	p.run(60)
	if !p.tracker.Snapshot().HeatingEnabled {
		t.Fatal("expected heating enabled in a cold greenhouse")
	}

	p.g.SetAmbientFault(errors.New("shtc3: no ack"))
	p.run(10)
	if !p.tracker.Snapshot().HeatingEnabled {
		t.Error("heating should survive a short outage")
	}

	p.run(30)
	snap := p.tracker.Snapshot()
	if snap.HeatingEnabled || snap.Heat != 0 {
		t.Errorf("heating should stop once the reading is stale: enabled=%v heat=%d", snap.HeatingEnabled, snap.Heat)
	}
	if p.g.State().Heat != 0 {
		t.Error("heater still powered")
	}
	if !strings.Contains(snap.Fault, "ambient unavailable") {
		t.Errorf("fault: got %q", snap.Fault)
	}

	var js status.StatusJSON
	if err := json.Unmarshal(status.FormatJSON(snap), &js); err != nil {
		t.Fatalf("state JSON: %v", err)
	}
	if js.Status.Ambient.Valid || js.Status.Ambient.TemperatureC != nil {
		t.Errorf("ambient JSON: got %+v, want invalid with null temperature", js.Status.Ambient)
	}
}

func TestIntegrationWateringFromNVRAM(t *testing.T) {
	var program logic.WateringSchedule
	p := newPlant(t, func(p *plant) {
		clock, _ := p.g.Now()
		program = logic.WateringSchedule{StartHour: clock.Hour(), DurationSeconds: 20, Periodicity: 2}
		if err := rtc.SaveWatering(p.g, program); err != nil {
			t.Fatalf("SaveWatering: %v", err)
		}
	})

	if p.ctl.Watering() != program {
		t.Fatalf("program: got %+v, want %+v", p.ctl.Watering(), program)
	}

	p.run(1)
	if !p.g.State().Pump {
		t.Fatal("expected the pump on during the start hour")
	}
	clock, _ := p.g.Now()
	if want := (clock.Weekday() + 2) % 7; p.tracker.Snapshot().ValidWeekday != want {
		t.Errorf("valid weekday: got %s, want %s", p.tracker.Snapshot().ValidWeekday, want)
	}

	p.run(20)
	if p.g.State().Pump {
		t.Error("expected the pump off after 20s")
	}

	p.run(60)
	if p.g.State().Pump {
		t.Error("expected no second run in the same hour")
	}
}

func TestIntegrationEmergencyStop(t *testing.T) {
	p := newPlant(t, nil)
	p.g.SetAmbient(25)
	p.run(10)
	if p.g.State().Vent != 1 {
		t.Fatalf("expected the vent open before the stop, at %v", p.g.State().Vent)
	}

	p.ctl.EmergencyStop(controller.ErrWatchdogOverrun)

	s := p.g.State()
	if s.Heat != 0 || s.Extractor != 0 || s.Light || s.Pump {
		t.Errorf("outputs not safe: %+v", s)
	}
	if s.Vent != 0 || s.VentSpeed != 0 {
		t.Errorf("vent not closed and stopped: position %v speed %d", s.Vent, s.VentSpeed)
	}
	if !strings.HasPrefix(p.panel.Line(0), "Arret d'urgence") {
		t.Errorf("display: got %q", p.panel.Line(0))
	}
	if err := p.ctl.Tick(context.Background()); !errors.Is(err, controller.ErrHalted) {
		t.Errorf("Tick after stop: got %v, want ErrHalted", err)
	}
}
