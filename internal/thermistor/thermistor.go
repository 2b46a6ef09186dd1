// Package thermistor converts raw ADC readings from an NTC thermistor divider
// into degrees Celsius using a calibration table.
package thermistor

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidTable is returned when a calibration table is empty or not monotonic.
var ErrInvalidTable = errors.New("thermistor: invalid calibration table")

// Entry is one calibration point. Raw rises as the temperature falls.
type Entry struct {
	Raw     int     `yaml:"raw"`
	Celsius float64 `yaml:"celsius"`
}

// Table is an immutable calibration table ordered by increasing Raw
// (and therefore decreasing Celsius).
type Table struct {
	entries []Entry
}

// NewTable validates and copies entries into a Table.
func NewTable(entries []Entry) (*Table, error) {
	if len(entries) < 2 {
		return nil, fmt.Errorf("%w: need at least 2 entries, got %d", ErrInvalidTable, len(entries))
	}
	for i := 1; i < len(entries); i++ {
		if entries[i].Raw <= entries[i-1].Raw {
			return nil, fmt.Errorf("%w: raw not increasing at index %d", ErrInvalidTable, i)
		}
		if entries[i].Celsius >= entries[i-1].Celsius {
			return nil, fmt.Errorf("%w: celsius not decreasing at index %d", ErrInvalidTable, i)
		}
	}
	cp := make([]Entry, len(entries))
	copy(cp, entries)
	return &Table{entries: cp}, nil
}

// MustTable is like NewTable but panics on an invalid table.
func MustTable(entries []Entry) *Table {
	t, err := NewTable(entries)
	if err != nil {
		panic(err)
	}
	return t
}

// Celsius returns the temperature for a raw reading.
//
// Readings below the first entry saturate to the hottest temperature and
// readings past the last entry saturate to the coldest one. Anything in
// between is linearly interpolated between the bracketing rows.
func (t *Table) Celsius(raw int) float64 {
	i := 0
	for i < len(t.entries) && raw > t.entries[i].Raw {
		i++
	}

	switch {
	case i == 0:
		return t.entries[0].Celsius
	case i == len(t.entries):
		return t.entries[i-1].Celsius
	}

	hi, lo := t.entries[i-1], t.entries[i]
	return lo.Celsius + float64(lo.Raw-raw)*(hi.Celsius-lo.Celsius)/float64(lo.Raw-hi.Raw)
}

// Raw returns the reading that converts to celsius, the inverse of Celsius.
// Temperatures outside the table saturate to its ends.
func (t *Table) Raw(celsius float64) int {
	i := 0
	for i < len(t.entries) && celsius < t.entries[i].Celsius {
		i++
	}

	switch {
	case i == 0:
		return t.entries[0].Raw
	case i == len(t.entries):
		return t.entries[i-1].Raw
	}

	hi, lo := t.entries[i-1], t.entries[i]
	raw := float64(hi.Raw) + (hi.Celsius-celsius)*float64(lo.Raw-hi.Raw)/(hi.Celsius-lo.Celsius)
	return int(math.Round(raw))
}

// Entries returns a copy of the table rows.
func (t *Table) Entries() []Entry {
	cp := make([]Entry, len(t.entries))
	copy(cp, t.entries)
	return cp
}

// Default100K is the stock table for a 100k NTC (beta 4092) on a 4.7k
// pull-up, read with a 10-bit ADC. It spans 300°C down to 0°C.
var Default100K = MustTable([]Entry{
	{23, 300}, {25, 295}, {27, 290}, {28, 285}, {31, 280}, {33, 275},
	{35, 270}, {38, 265}, {41, 260}, {44, 255}, {48, 250}, {52, 245},
	{56, 240}, {61, 235}, {66, 230}, {71, 225}, {78, 220}, {84, 215},
	{92, 210}, {100, 205}, {109, 200}, {120, 195}, {131, 190}, {143, 185},
	{156, 180}, {171, 175}, {187, 170}, {205, 165}, {224, 160}, {245, 155},
	{268, 150}, {293, 145}, {320, 140}, {348, 135}, {379, 130}, {411, 125},
	{445, 120}, {480, 115}, {516, 110}, {553, 105}, {591, 100}, {628, 95},
	{665, 90}, {702, 85}, {737, 80}, {770, 75}, {801, 70}, {830, 65},
	{857, 60}, {881, 55}, {903, 50}, {922, 45}, {939, 40}, {954, 35},
	{966, 30}, {977, 25}, {985, 20}, {993, 15}, {999, 10}, {1004, 5},
	{1008, 0},
})
