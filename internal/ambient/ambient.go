// Package ambient reads the greenhouse air temperature and humidity.
package ambient

import (
	"errors"
	"math"
	"time"
)

// ErrNoReading is returned when the sensor gives no usable value.
var ErrNoReading = errors.New("ambient: no reading")

// Reading is one ambient sample.
type Reading struct {
	TemperatureC float64
	HumidityPct  float64
}

// Sensor reads the ambient conditions.
type Sensor interface {
	Read() (Reading, error)
}

// Valid reports whether r is physically plausible for the sensor.
func (r Reading) Valid() bool {
	if math.IsNaN(r.TemperatureC) || math.IsNaN(r.HumidityPct) {
		return false
	}
	return r.TemperatureC >= -40 && r.TemperatureC <= 125 &&
		r.HumidityPct >= 0 && r.HumidityPct <= 100
}

// Holder keeps the last good reading so a short sensor outage does not
// disturb the climate decision.
type Holder struct {
	staleAfter time.Duration

	last   Reading
	lastAt time.Time
	ok     bool
}

// NewHolder creates a holder that trusts a reading for staleAfter.
func NewHolder(staleAfter time.Duration) *Holder {
	return &Holder{staleAfter: staleAfter}
}

// Update records the outcome of a read at now and returns the reading to
// use. valid is false once no good reading has been seen for staleAfter.
func (h *Holder) Update(r Reading, err error, now time.Time) (Reading, bool) {
	if err == nil && r.Valid() {
		h.last, h.lastAt, h.ok = r, now, true
		return r, true
	}
	if h.ok && now.Sub(h.lastAt) <= h.staleAfter {
		return h.last, true
	}
	return Reading{TemperatureC: math.NaN(), HumidityPct: math.NaN()}, false
}
