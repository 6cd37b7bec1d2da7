package app

import (
	"fmt"
	"image/color"
	"runtime/debug"
	"strings"

	"jukebox/hal"

	"tinygo.org/x/tinyfont"
	"tinygo.org/x/tinyfont/proggy"
)

// guard turns a task panic into a log dump and a red screen, then parks the
// task. The other tasks keep running; the watchdog reports the dead one
// once mail piles up for it.
func guard(h hal.HAL, task string) {
	v := recover()
	if v == nil {
		return
	}

	lines := []string{
		"Jukebox panic",
		"task: " + task,
		fmt.Sprintf("panic: %v", v),
	}
	if stack := debug.Stack(); len(stack) > 0 {
		for _, line := range strings.Split(string(stack), "\n") {
			if line != "" {
				lines = append(lines, line)
			}
		}
	}

	if l := h.Logger(); l != nil {
		for _, line := range lines {
			l.WriteLineString(line)
		}
	}
	if disp := h.Display(); disp != nil {
		if fb := disp.Framebuffer(); fb != nil && fb.Buffer() != nil {
			drawPanic(fb, lines)
		}
	}
	select {}
}

const (
	panicLineHeight = 10
	panicBaseline   = 8
)

func drawPanic(fb hal.Framebuffer, lines []string) {
	fb.ClearRGB(160, 0, 0)
	d := panicDisplay{fb: fb}
	white := color.RGBA{R: 255, G: 255, B: 255, A: 255}

	_, charWidth := tinyfont.LineWidth(&proggy.TinySZ8pt7b, "0")
	cols := max(fb.Width()/max(int(charWidth), 1), 1)
	y := int16(panicBaseline)
	for _, line := range lines {
		for len(line) > 0 {
			if int(y) > fb.Height() {
				_ = fb.Present()
				return
			}
			n := min(len(line), cols)
			tinyfont.WriteLine(d, &proggy.TinySZ8pt7b, 0, y, line[:n], white)
			line = line[n:]
			y += panicLineHeight
		}
	}
	_ = fb.Present()
}

// panicDisplay is the smallest drivers.Displayer over a framebuffer.
type panicDisplay struct {
	fb hal.Framebuffer
}

func (d panicDisplay) Size() (x, y int16) {
	return int16(d.fb.Width()), int16(d.fb.Height())
}

func (d panicDisplay) SetPixel(x, y int16, c color.RGBA) {
	if x < 0 || y < 0 || int(x) >= d.fb.Width() || int(y) >= d.fb.Height() {
		return
	}
	buf := d.fb.Buffer()
	off := int(y)*d.fb.StrideBytes() + int(x)*2
	if off+1 >= len(buf) {
		return
	}
	px := uint16(c.R>>3)<<11 | uint16(c.G>>2)<<5 | uint16(c.B>>3)
	buf[off] = byte(px)
	buf[off+1] = byte(px >> 8)
}

func (d panicDisplay) Display() error { return nil }
