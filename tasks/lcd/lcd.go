// Package lcd draws the two player screens: the track list and the
// now-playing page.
package lcd

import (
	"context"
	"fmt"
	"log/slog"

	"jukebox/hal"
	"jukebox/kernel"
	"jukebox/proto"
	"jukebox/tracklist"

	"tinygo.org/x/tinyfont/proggy"
	"tinygo.org/x/tinyterm"
)

const (
	fontHeight = 10
	fontOffset = 6
	// headerRows are the lines above the track list.
	headerRows = 2
)

// Task is the LCD task. It owns the screen state and publishes the current
// screen for the button task.
type Task struct {
	sys    *kernel.System
	fb     hal.Framebuffer
	tracks *tracklist.List
	log    *slog.Logger

	screen  proto.Screen
	cursor  int
	title   string
	status  proto.Status
	renders int
}

func New(sys *kernel.System, disp hal.Display, tracks *tracklist.List, log *slog.Logger) *Task {
	t := &Task{sys: sys, tracks: tracks, log: log, status: proto.Status{Track: proto.NoTrack}}
	if disp != nil {
		t.fb = disp.Framebuffer()
	}
	if t.fb != nil && t.fb.Format() != hal.PixelFormatRGB565 {
		t.fb = nil
	}
	return t
}

// Screen returns the screen on display.
func (t *Task) Screen() proto.Screen { return t.screen }

// Cursor returns the highlighted track on the select screen.
func (t *Task) Cursor() int { return t.cursor }

// Run draws the select screen and then redraws after every message.
func (t *Task) Run(ctx context.Context) {
	t.setScreen(proto.ScreenSelect)
	t.Render()
	for {
		msg, err := t.sys.RecvContext(ctx, kernel.EPLCD)
		if err != nil {
			return
		}
		if t.Handle(msg) {
			t.Render()
		}
		t.sys.Beat(kernel.EPLCD)
	}
}

// Handle applies one message and reports whether the screen changed.
func (t *Task) Handle(msg kernel.Message) bool {
	switch proto.Kind(msg.Kind) {
	case proto.MsgButton:
		b, ok := proto.DecodeButtonPayload(msg.Payload())
		return ok && t.button(b)
	case proto.MsgNowPlaying:
		idx, title, ok := proto.DecodeNowPlayingPayload(msg.Payload())
		if !ok {
			return false
		}
		t.cursor = int(idx)
		t.title = title
		return true
	case proto.MsgStatus:
		s, ok := proto.DecodeStatusPayload(msg.Payload())
		if !ok || s == t.status {
			return false
		}
		t.status = s
		return t.screen == proto.ScreenPlaying
	}
	return false
}

func (t *Task) button(b proto.Button) bool {
	if t.screen == proto.ScreenPlaying {
		if b == proto.ButtonBack {
			t.setScreen(proto.ScreenSelect)
			return true
		}
		return false
	}

	n := t.tracks.Len()
	switch b {
	case proto.ButtonNext:
		if n > 0 {
			t.cursor = (t.cursor + 1) % n
		}
	case proto.ButtonVolume:
		if n > 0 {
			t.cursor = (t.cursor + n - 1) % n
		}
	case proto.ButtonPlayPause:
		if t.cursor >= n {
			return false
		}
		if !t.sys.TrySend(kernel.EPLCD, kernel.EPDecoder, uint8(proto.MsgPlayTrack), proto.PlayPayload(uint16(t.cursor))) {
			t.log.Warn("lcd: decoder busy")
			return false
		}
		t.setScreen(proto.ScreenPlaying)
	default:
		return false
	}
	return true
}

func (t *Task) setScreen(s proto.Screen) {
	t.screen = s
	t.sys.Shared().SetScreen(uint8(s))
}

// Lines returns the text of the current screen.
func (t *Task) Lines(rows int) []string {
	if t.screen == proto.ScreenPlaying {
		return t.playingLines()
	}
	return t.selectLines(rows)
}

func (t *Task) selectLines(rows int) []string {
	names := t.tracks.Names()
	lines := []string{fmt.Sprintf("Tracks (%d)", len(names)), ""}
	if len(names) == 0 {
		return append(lines, "  no tracks")
	}

	visible := max(rows-headerRows, 1)
	first := 0
	if t.cursor >= visible {
		first = t.cursor - visible + 1
	}
	for i := first; i < len(names) && i < first+visible; i++ {
		mark := "  "
		if i == t.cursor {
			mark = "> "
		}
		lines = append(lines, mark+t.tracks.Title(i))
	}
	return lines
}

func (t *Task) playingLines() []string {
	s := t.status
	title := t.title
	if title == "" {
		title = "-"
	}
	return []string{
		"Now playing",
		"",
		title,
		"",
		"State:  " + s.State.String(),
		fmt.Sprintf("Bitrate: %d kbit/s", s.BitRate/1024),
		fmt.Sprintf("Rate:   %d Hz", s.SampleRate),
		fmt.Sprintf("Time:   %d:%02d", s.DecodeTime/60, s.DecodeTime%60),
		fmt.Sprintf("Volume: -%d.%d dB", s.Volume/2, s.Volume%2*5),
	}
}

// Render redraws the screen. Without a usable framebuffer it does nothing.
func (t *Task) Render() {
	if t.fb == nil {
		return
	}
	t.fb.ClearRGB(0, 0, 0)
	term := tinyterm.NewTerminal(&fbDisplay{fb: t.fb})
	term.Configure(&tinyterm.Config{
		Font:       &proggy.TinySZ8pt7b,
		FontHeight: fontHeight,
		FontOffset: fontOffset,
	})
	for i, line := range t.Lines(t.fb.Height() / fontHeight) {
		if i > 0 {
			_, _ = term.Write([]byte("\r\n"))
		}
		_, _ = term.Write([]byte(line))
	}
	if err := t.fb.Present(); err != nil {
		t.log.Debug("lcd: present", slog.String("err", err.Error()))
		return
	}
	t.renders++
}
