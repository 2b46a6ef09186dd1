package display

import (
	"fmt"
	"strings"
)

// FakeDisplay is a test double holding the character grid.
type FakeDisplay struct {
	grid     [Rows][Columns]byte
	col, row int

	// Err, if set, is returned by every method.
	Err error
}

var _ Display = (*FakeDisplay)(nil)

// NewFakeDisplay creates a blank display.
func NewFakeDisplay() *FakeDisplay {
	f := &FakeDisplay{}
	for r := range f.grid {
		for c := range f.grid[r] {
			f.grid[r][c] = ' '
		}
	}
	return f
}

// SetCursor moves the cursor.
func (f *FakeDisplay) SetCursor(col, row int) error {
	if f.Err != nil {
		return f.Err
	}
	if col < 0 || col >= Columns || row < 0 || row >= Rows {
		return fmt.Errorf("cursor %d,%d out of range", col, row)
	}
	f.col, f.row = col, row
	return nil
}

// Print writes text at the cursor, dropping what falls off the row.
func (f *FakeDisplay) Print(text string) error {
	if f.Err != nil {
		return f.Err
	}
	for i := 0; i < len(text) && f.col < Columns; i++ {
		f.grid[f.row][f.col] = text[i]
		f.col++
	}
	return nil
}

// Line returns row r as shown.
func (f *FakeDisplay) Line(r int) string {
	return string(f.grid[r][:])
}

// Text returns both rows joined by a newline, trailing spaces trimmed.
func (f *FakeDisplay) Text() string {
	lines := make([]string, Rows)
	for r := range lines {
		lines[r] = strings.TrimRight(f.Line(r), " ")
	}
	return strings.Join(lines, "\n")
}
