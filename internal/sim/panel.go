package sim

import (
	"fmt"
	"io"
	"strings"

	"github.com/sweeney/greenhouse/internal/display"
)

// Panel is a simulated LCD that echoes each new screen to w.
type Panel struct {
	*display.FakeDisplay

	w    io.Writer
	row  int
	last string
}

var _ display.Display = (*Panel)(nil)

// NewPanel creates a blank panel writing to w.
func NewPanel(w io.Writer) *Panel {
	return &Panel{FakeDisplay: display.NewFakeDisplay(), w: w}
}

// SetCursor moves the cursor.
func (p *Panel) SetCursor(col, row int) error {
	if err := p.FakeDisplay.SetCursor(col, row); err != nil {
		return err
	}
	p.row = row
	return nil
}

// Print writes text and echoes the screen once the last row is written.
func (p *Panel) Print(text string) error {
	if err := p.FakeDisplay.Print(text); err != nil {
		return err
	}
	if p.row != display.Rows-1 {
		return nil
	}
	if cur := p.Text(); cur != p.last {
		p.last = cur
		fmt.Fprintf(p.w, "[lcd] %s\n", strings.ReplaceAll(cur, "\n", " | "))
	}
	return nil
}
