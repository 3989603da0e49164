// Package monitor renders the task status board onto the display: one
// line per task with its last verdict and cycle accounting.
package monitor

import (
	"fmt"
	"image/color"

	"github.com/dustin/go-humanize"
	"tinygo.org/x/tinyfont"
	"tinygo.org/x/tinyfont/proggy"

	"ember/hal"
	"ember/kernel"
)

var (
	colorBG      = color.RGBA{R: 0x10, G: 0x10, B: 0x18, A: 0xFF}
	colorHeader  = color.RGBA{R: 0xE0, G: 0xE0, B: 0xE0, A: 0xFF}
	colorPass    = color.RGBA{R: 0x40, G: 0xD0, B: 0x60, A: 0xFF}
	colorFail    = color.RGBA{R: 0xE0, G: 0x50, B: 0x50, A: 0xFF}
	colorBench   = color.RGBA{R: 0xE0, G: 0xB0, B: 0x40, A: 0xFF}
	colorWaiting = color.RGBA{R: 0x80, G: 0x80, B: 0x90, A: 0xFF}
)

// Monitor draws the scheduler's task table. It redraws only when a new
// snapshot has been published since the last frame.
type Monitor struct {
	disp     *fbDisplay
	font     tinyfont.Fonter
	lineH    int16
	cell     snapshotCell
	drawnSeq uint32
}

// New builds a monitor over the given display. Returns nil if there is
// no framebuffer to draw on.
func New(d hal.Display) *Monitor {
	if d == nil {
		return nil
	}
	fb := d.Framebuffer()
	if fb == nil {
		return nil
	}
	return &Monitor{
		disp:  newFBDisplay(fb),
		font:  &proggy.TinySZ8pt7b,
		lineH: 12,
	}
}

// Publish hands the monitor a fresh task table, the cycle counter, and
// the uptime in milliseconds. Safe to call from the step loop every
// frame; cheap when nothing changed.
func (m *Monitor) Publish(tasks []kernel.TaskInfo, cycles, uptimeMS uint64) {
	if m == nil {
		return
	}
	m.cell.publish(tasks, cycles, uptimeMS/1000)
}

// Render draws the board if the published snapshot changed.
func (m *Monitor) Render() error {
	if m == nil {
		return nil
	}
	seq, tasks, cycles, upSecs := m.cell.read()
	if seq == m.drawnSeq {
		return nil
	}
	m.drawnSeq = seq

	m.disp.fb.ClearRGB(colorBG.R, colorBG.G, colorBG.B)

	y := m.lineH
	header := fmt.Sprintf("ember  up %ds  cycles %s  tasks %d",
		upSecs, humanize.Comma(int64(cycles)), len(tasks))
	tinyfont.WriteLine(m.disp, m.font, 4, y, header, colorHeader)
	y += m.lineH + m.lineH/2

	for _, t := range tasks {
		line := fmt.Sprintf("%s %-12s %s / %s",
			t.Status.Icon(), t.Name,
			humanize.Comma(int64(t.LastCost)), humanize.Comma(int64(t.Budget)))
		if t.Violations > 0 {
			line += fmt.Sprintf("  strikes %d", t.Violations)
		}
		if t.Cooldown > 0 {
			line += fmt.Sprintf("  bench %d", t.Cooldown)
		}
		tinyfont.WriteLine(m.disp, m.font, 4, y, line, statusColor(t.Status))
		y += m.lineH
	}
	return m.disp.Display()
}

func statusColor(s kernel.Status) color.RGBA {
	switch s {
	case kernel.StatusSuccess:
		return colorPass
	case kernel.StatusFailure:
		return colorFail
	case kernel.StatusPenalty:
		return colorBench
	default:
		return colorWaiting
	}
}
