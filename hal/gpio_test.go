package hal

import (
	"log/slog"
	"strings"
	"testing"
	"time"
)

func TestVirtualPinEdges(t *testing.T) {
	now := time.Unix(100, 0)
	line := newButtonLine(2, func() time.Time { return now })
	pin := newVirtualPin("BTN", false)
	line.attach(pin, 3)

	pin.Set(true)
	pin.Set(true) // no edge
	pin.Set(false)
	pin.Set(true)

	if got := len(line.Events()); got != 2 {
		t.Fatalf("queued events = %d, want 2", got)
	}
	ev := <-line.Events()
	if ev.ID != 3 || !ev.At.Equal(now) {
		t.Fatalf("event = %+v, want id 3 at %v", ev, now)
	}
}

func TestButtonLineDropsWhenFull(t *testing.T) {
	line := newButtonLine(1, nil)
	if !line.press(0) {
		t.Fatalf("press() = false on empty queue")
	}
	if line.press(1) {
		t.Fatalf("press() = true on full queue")
	}
}

type captureLogger struct{ lines []string }

func (c *captureLogger) WriteLineString(s string) { c.lines = append(c.lines, s) }
func (c *captureLogger) WriteLineBytes(b []byte)  { c.lines = append(c.lines, string(b)) }

func TestNewSlog(t *testing.T) {
	var c captureLogger
	log := NewSlog(&c, slog.LevelInfo)

	log.Debug("hidden")
	log.Error("commit failed", slog.String("reg", "HDAT0"))

	if len(c.lines) != 1 {
		t.Fatalf("lines = %q, want one", c.lines)
	}
	line := c.lines[0]
	if strings.HasSuffix(line, "\n") || !strings.Contains(line, "reg=HDAT0") || !strings.Contains(line, "level=ERROR") {
		t.Fatalf("line = %q", line)
	}
}
