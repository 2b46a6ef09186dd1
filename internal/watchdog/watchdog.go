// Package watchdog provides a software watchdog for the control loop.
//
// The loop arms the watchdog before each pass and disarms it once the pass
// completes. If a pass overruns the timeout, the handler runs on the timer
// goroutine. The handler must not touch hardware outputs; it should only
// signal the control goroutine.
package watchdog

import (
	"sync"
	"sync/atomic"
	"time"
)

// Watchdog fires a handler when a pass is not completed in time.
type Watchdog struct {
	timeout time.Duration
	handler func()

	mu    sync.Mutex
	timer *time.Timer
	fired atomic.Bool
}

// New creates a disarmed watchdog.
func New(timeout time.Duration, handler func()) *Watchdog {
	return &Watchdog{timeout: timeout, handler: handler}
}

// Start arms the watchdog. Arming an armed watchdog restarts its timeout.
func (w *Watchdog) Start() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.timeout, w.fire)
}

// Stop disarms the watchdog. It returns false if the handler already fired
// (or is firing) for the current pass.
func (w *Watchdog) Stop() bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.timer == nil {
		return !w.fired.Load()
	}
	stopped := w.timer.Stop()
	w.timer = nil
	return stopped
}

// Fired reports whether the watchdog has ever fired.
func (w *Watchdog) Fired() bool {
	return w.fired.Load()
}

// Timeout returns the configured timeout.
func (w *Watchdog) Timeout() time.Duration {
	return w.timeout
}

func (w *Watchdog) fire() {
	w.fired.Store(true)
	if w.handler != nil {
		w.handler()
	}
}
