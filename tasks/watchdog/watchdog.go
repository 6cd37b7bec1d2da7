// Package watchdog reports tasks that stop draining their mailbox.
package watchdog

import (
	"context"
	"log/slog"
	"time"

	"jukebox/kernel"
	"jukebox/proto"
)

// DefaultPeriod is the time between checks.
const DefaultPeriod = time.Second

// Task is the watchdog task.
type Task struct {
	sys    *kernel.System
	log    *slog.Logger
	period time.Duration

	last    [kernel.NumEndpoints]uint32
	stalled [kernel.NumEndpoints]bool
}

func New(sys *kernel.System, log *slog.Logger, period time.Duration) *Task {
	if period <= 0 {
		period = DefaultPeriod
	}
	return &Task{sys: sys, log: log, period: period}
}

// Run checks once per period until ctx is done.
func (t *Task) Run(ctx context.Context) {
	tick := time.NewTicker(t.period)
	defer tick.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-tick.C:
			t.Check()
			t.sys.Beat(kernel.EPWatchdog)
		}
	}
}

// Check compares every heartbeat with the previous check. A task is stalled
// when its counter did not move while mail was waiting for it. Each stall
// is reported once, when it starts.
func (t *Task) Check() []kernel.Endpoint {
	var stalled []kernel.Endpoint
	for ep := kernel.Endpoint(0); ep < kernel.NumEndpoints; ep++ {
		if ep == kernel.EPWatchdog {
			continue
		}
		hb := t.sys.Heartbeat(ep)
		stuck := hb == t.last[ep] && t.sys.Pending(ep) > 0
		t.last[ep] = hb

		if stuck {
			stalled = append(stalled, ep)
			if !t.stalled[ep] {
				t.report(ep)
			}
		} else if t.stalled[ep] {
			t.log.Info("watchdog: task recovered", slog.String("task", ep.String()))
		}
		t.stalled[ep] = stuck
	}
	return stalled
}

func (t *Task) report(ep kernel.Endpoint) {
	pending := t.sys.Pending(ep)
	t.log.Error("watchdog: task stalled", slog.String("task", ep.String()), slog.Int("pending", pending))
	line := "watchdog: " + ep.String() + " stalled"
	t.sys.TrySend(kernel.EPWatchdog, kernel.EPTX, uint8(proto.MsgLogLine), proto.LogLinePayload([]byte(line)))
}
