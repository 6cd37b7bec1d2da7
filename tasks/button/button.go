// Package button turns raw button interrupts into player input: it drops
// unknown ids, debounces each button and routes presses by screen.
package button

import (
	"context"
	"log/slog"
	"time"

	"jukebox/hal"
	"jukebox/kernel"
	"jukebox/proto"
)

// DefaultDebounce is the minimum gap between two accepted presses of the
// same button.
const DefaultDebounce = 200 * time.Millisecond

// Task is the button task. It owns the debounce state; nothing else
// touches it.
type Task struct {
	sys      *kernel.System
	events   <-chan hal.ButtonEvent
	log      *slog.Logger
	debounce time.Duration

	last [proto.NumButtons]time.Time
}

func New(sys *kernel.System, events <-chan hal.ButtonEvent, log *slog.Logger, debounce time.Duration) *Task {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	return &Task{sys: sys, events: events, log: log, debounce: debounce}
}

// Run handles events until ctx is done or the event source closes.
func (t *Task) Run(ctx context.Context) {
	hb := time.NewTicker(250 * time.Millisecond)
	defer hb.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-hb.C:
			t.sys.Beat(kernel.EPButtonISR)
		case ev, ok := <-t.events:
			if !ok {
				return
			}
			t.Handle(ev)
			t.sys.Beat(kernel.EPButtonISR)
		}
	}
}

// Handle processes one event and reports whether it passed validation and
// debouncing. A full destination queue drops the press for that task only.
func (t *Task) Handle(ev hal.ButtonEvent) bool {
	b := proto.Button(ev.ID)
	if !b.Valid() {
		t.log.Error("button: invalid id", slog.Int("id", int(ev.ID)))
		return false
	}
	if last := t.last[b]; !last.IsZero() && ev.At.Sub(last) < t.debounce {
		return false
	}
	t.last[b] = ev.At

	payload := proto.ButtonPayload(b)
	for _, to := range Route(proto.Screen(t.sys.Shared().Screen()), b) {
		if !t.sys.TrySend(kernel.EPButtonISR, to, uint8(proto.MsgButton), payload) {
			t.log.Warn("button: queue full", slog.String("to", to.String()), slog.String("button", b.String()))
		}
	}
	t.log.Debug("button", slog.String("button", b.String()))
	return true
}

// Route returns the tasks that receive b while screen is shown. The select
// screen is pure navigation; while playing, Back belongs to the LCD and Next
// is seen by both so the cursor follows the track.
func Route(screen proto.Screen, b proto.Button) []kernel.Endpoint {
	if screen == proto.ScreenSelect {
		return []kernel.Endpoint{kernel.EPLCD}
	}
	switch b {
	case proto.ButtonNext:
		return []kernel.Endpoint{kernel.EPDecoder, kernel.EPLCD}
	case proto.ButtonBack:
		return []kernel.Endpoint{kernel.EPLCD}
	default:
		return []kernel.Endpoint{kernel.EPDecoder}
	}
}
