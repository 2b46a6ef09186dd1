package main

import (
	"errors"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"syscall"
	"testing"
	"time"

	"github.com/sweeney/greenhouse/internal/ambient"
	"github.com/sweeney/greenhouse/internal/board"
	"github.com/sweeney/greenhouse/internal/config"
	"github.com/sweeney/greenhouse/internal/controller"
	"github.com/sweeney/greenhouse/internal/display"
	"github.com/sweeney/greenhouse/internal/gpio"
	"github.com/sweeney/greenhouse/internal/logic"
	"github.com/sweeney/greenhouse/internal/rtc"
	"github.com/sweeney/greenhouse/internal/status"
)

// slowSensor blocks every read, simulating a wedged I²C bus.
type slowSensor struct {
	delay time.Duration
}

func (s slowSensor) Read() (ambient.Reading, error) {
	time.Sleep(s.delay)
	return ambient.Reading{TemperatureC: 20, HumidityPct: 50}, nil
}

type lineRecorder struct {
	lines []string
}

func (r *lineRecorder) Report(line string) error {
	r.lines = append(r.lines, line)
	return nil
}

type loopRig struct {
	heaterOffs atomic.Int32

	board   *board.FakeBoard
	lines   *gpio.FakeLines
	disp    *display.FakeDisplay
	rep     *lineRecorder
	tracker *status.Tracker
	ctl     *controller.Controller
}

func newLoopRig(t *testing.T, sensor ambient.Sensor) *loopRig {
	t.Helper()
	cfg := config.Default()
	r := &loopRig{
		board:   board.NewFakeBoard(),
		lines:   gpio.NewFakeLines([]gpio.Sample{{Closed: true}}),
		disp:    display.NewFakeDisplay(),
		rep:     &lineRecorder{},
		tracker: status.NewTracker(time.Now(), statusConfig(cfg)),
	}
	r.board.Analog[cfg.Hardware.ThermistorPin] = 857 // 60°C

	ctl, err := controller.New(cfg, controller.Deps{
		Ambient:  sensor,
		Board:    r.board,
		Lines:    r.lines,
		Clock:    rtc.NewFakeClock(time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)),
		Display:  r.disp,
		Reporter: r.rep,
		Tracker:  r.tracker,
	})
	if err != nil {
		t.Fatalf("controller.New: %v", err)
	}
	r.ctl = ctl
	return r
}

// runRunLoop drives runLoop with nTicks ticks and then a signal.
func runRunLoop(t *testing.T, r *loopRig, timeout time.Duration, nTicks int, signal os.Signal) error {
	t.Helper()
	tick := make(chan time.Time)
	sig := make(chan os.Signal, 1)

	errCh := make(chan error, 1)
	go func() {
		errCh <- runLoop(r.ctl, r.tracker, timeout, func() { r.heaterOffs.Add(1) }, tick, sig)
	}()

	for i := 0; i < nTicks; i++ {
		tick <- time.Time{}
	}
	sig <- signal

	select {
	case err := <-errCh:
		return err
	case <-time.After(10 * time.Second):
		t.Fatal("runLoop did not return")
		return nil
	}
}

func TestRunLoopPassesAndShutdown(t *testing.T) {
	r := newLoopRig(t, ambient.NewFakeSensor(20, 50))

	err := runRunLoop(t, r, time.Second, 3, syscall.SIGTERM)
	if err != nil {
		t.Fatalf("runLoop returned error: %v", err)
	}

	if len(r.rep.lines) != 3 {
		t.Fatalf("expected 3 report lines, got %d", len(r.rep.lines))
	}
	if !strings.HasPrefix(r.rep.lines[0], "Thu 01 Jan 2026 12:00:00, 60, 60.00") {
		t.Errorf("unexpected report line %q", r.rep.lines[0])
	}
	if got := r.tracker.Snapshot().Passes; got != 3 {
		t.Errorf("passes: got %d, want 3", got)
	}

	// Clean shutdown leaves every output off.
	if r.lines.Light || r.lines.Pump {
		t.Errorf("relays left on: light=%v pump=%v", r.lines.Light, r.lines.Pump)
	}
	if r.board.Right != 0 || r.board.Left != 0 {
		t.Errorf("motors left running: left=%d right=%d", r.board.Left, r.board.Right)
	}
	if r.ctl.Halted() {
		t.Error("controller should not be halted after a clean shutdown")
	}
	if n := r.heaterOffs.Load(); n != 0 {
		t.Errorf("forced heater off %d times on healthy passes", n)
	}
}

func TestRunLoopShutdownWithoutTicks(t *testing.T) {
	r := newLoopRig(t, ambient.NewFakeSensor(20, 50))

	if err := runRunLoop(t, r, time.Second, 0, syscall.SIGINT); err != nil {
		t.Fatalf("runLoop returned error: %v", err)
	}
	if len(r.rep.lines) != 0 {
		t.Errorf("expected no report lines, got %d", len(r.rep.lines))
	}
}

func TestRunLoopWatchdogOverrunHalts(t *testing.T) {
	r := newLoopRig(t, slowSensor{delay: 200 * time.Millisecond})

	err := runRunLoop(t, r, 20*time.Millisecond, 1, syscall.SIGTERM)
	if !errors.Is(err, controller.ErrWatchdogOverrun) {
		t.Fatalf("err: got %v, want ErrWatchdogOverrun", err)
	}

	if !r.ctl.Halted() {
		t.Error("expected controller halted")
	}
	snap := r.tracker.Snapshot()
	if !snap.Halted {
		t.Error("expected tracker halted")
	}
	if snap.Passes != 0 {
		t.Errorf("overrun pass should not be recorded, got %d passes", snap.Passes)
	}
	if r.lines.Light || r.lines.Pump {
		t.Errorf("relays left on: light=%v pump=%v", r.lines.Light, r.lines.Pump)
	}
	if got := strings.TrimSpace(r.disp.Line(0)); got != "Arret d'urgence" {
		t.Errorf("display: got %q, want emergency screen", got)
	}
	if n := len(r.rep.lines); n != 1 || !strings.HasPrefix(r.rep.lines[0], "ATU") {
		t.Errorf("report lines: got %q, want a single ATU line", r.rep.lines)
	}
}

func TestRunLoopStuckPassForcesHeaterOff(t *testing.T) {
	r := newLoopRig(t, slowSensor{delay: 300 * time.Millisecond})

	err := runRunLoop(t, r, 20*time.Millisecond, 1, syscall.SIGTERM)
	if !errors.Is(err, controller.ErrWatchdogOverrun) {
		t.Fatalf("err: got %v, want ErrWatchdogOverrun", err)
	}
	if n := r.heaterOffs.Load(); n != 1 {
		t.Errorf("heater off: got %d calls, want 1", n)
	}
	if !r.ctl.Halted() {
		t.Error("expected controller halted")
	}
}

func TestRunWriteConfig(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "greenhouse.yaml")

	err := run(options{configPath: filepath.Join(dir, "missing.yaml"), writeConfig: out})
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	got, err := config.Load(out)
	if err != nil {
		t.Fatalf("load written config: %v", err)
	}
	if got.Heating.Setpoint != config.Default().Heating.Setpoint {
		t.Errorf("setpoint: got %v, want %v", got.Heating.Setpoint, config.Default().Heating.Setpoint)
	}
	if got.WateringSchedule() != config.Default().WateringSchedule() {
		t.Errorf("watering: got %+v, want %+v", got.WateringSchedule(), config.Default().WateringSchedule())
	}
}

func TestStatusConfig(t *testing.T) {
	cfg := config.Default()
	got := statusConfig(cfg)

	if got.PeriodMs != 1000 {
		t.Errorf("PeriodMs: got %d, want 1000", got.PeriodMs)
	}
	if got.WatchdogMs != 10000 {
		t.Errorf("WatchdogMs: got %d, want 10000", got.WatchdogMs)
	}
	if got.PlateSetpoint != 60 || got.AmbientSetpoint != 20 {
		t.Errorf("setpoints: got %v/%v, want 60/20", got.PlateSetpoint, got.AmbientSetpoint)
	}
	if got.Watering != cfg.WateringSchedule() {
		t.Errorf("Watering: got %+v, want %+v", got.Watering, cfg.WateringSchedule())
	}
}

func TestVentState(t *testing.T) {
	tests := []struct {
		open, closed bool
		want         logic.VentState
	}{
		{true, false, logic.VentOpen},
		{false, true, logic.VentClosed},
		{false, false, logic.VentUnknown},
		{true, true, logic.VentUnknown},
	}
	for _, tt := range tests {
		if got := ventState(tt.open, tt.closed); got != tt.want {
			t.Errorf("ventState(%v, %v): got %s, want %s", tt.open, tt.closed, got, tt.want)
		}
	}
}

func TestReadStateSimulated(t *testing.T) {
	cfg := config.Default()
	hw := openSimulated(cfg, io.Discard)
	defer hw.Close()

	tracker := status.NewTracker(time.Now(), statusConfig(cfg))
	snap := readState(cfg, hw, tracker)

	if !snap.AmbientValid {
		t.Error("expected valid ambient reading")
	}
	if math.Abs(snap.AmbientC-17) > 0.5 {
		t.Errorf("ambient: got %v, want about 17", snap.AmbientC)
	}
	if math.Abs(snap.PlateC-17) > 2 {
		t.Errorf("plate: got %v, want about 17", snap.PlateC)
	}
	if snap.Vent != logic.VentClosed {
		t.Errorf("vent: got %s, want CLOSED", snap.Vent)
	}
	if snap.Passes != 1 {
		t.Errorf("passes: got %d, want 1", snap.Passes)
	}
}

func TestReadStateSensorErrors(t *testing.T) {
	cfg := config.Default()
	fb := board.NewFakeBoard()
	fb.ReadError = errors.New("board: response timeout")
	fs := ambient.NewFakeSensor(0, 0)
	fs.Err = errors.New("shtc3: no ack")
	fl := gpio.NewFakeLines(nil)
	fc := rtc.NewFakeClock(time.Time{})
	fc.Err = errors.New("ds1307: no ack")

	hw := &hardware{ambient: fs, board: fb, lines: fl, clock: fc, display: display.NewFakeDisplay()}
	snap := readState(cfg, hw, status.NewTracker(time.Now(), statusConfig(cfg)))

	if !math.IsNaN(snap.PlateC) || !math.IsNaN(snap.AmbientC) {
		t.Errorf("expected NaN readings, got plate=%v ambient=%v", snap.PlateC, snap.AmbientC)
	}
	if snap.AmbientValid {
		t.Error("expected invalid ambient")
	}
	if snap.Vent != logic.VentUnknown {
		t.Errorf("vent: got %s, want UNKNOWN", snap.Vent)
	}
}

func TestOpenSinkStdout(t *testing.T) {
	w, closeFn, err := openSink(config.Default())
	if err != nil {
		t.Fatalf("openSink: %v", err)
	}
	defer closeFn()
	if w != os.Stdout {
		t.Errorf("expected stdout sink, got %T", w)
	}
}

type closeRecorder struct {
	name  string
	order *[]string
	err   error
}

func (c closeRecorder) Close() error {
	*c.order = append(*c.order, c.name)
	return c.err
}

func TestHardwareCloseOrderAndErrors(t *testing.T) {
	var order []string
	hw := &hardware{closers: []io.Closer{
		closeRecorder{name: "bus", order: &order},
		closeRecorder{name: "board", order: &order, err: errors.New("board: response timeout")},
		closeRecorder{name: "lines", order: &order},
	}}

	err := hw.Close()
	if err == nil || !strings.Contains(err.Error(), "response timeout") {
		t.Errorf("err: got %v, want board error", err)
	}
	if strings.Join(order, ",") != "lines,board,bus" {
		t.Errorf("close order: got %v, want lines,board,bus", order)
	}
}
