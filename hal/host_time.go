//go:build !tinygo

package hal

import (
	"sync"
	"time"
)

const tickDur = time.Millisecond

// hostTime turns wall time into 1 ms ticks. The runner calls advance once
// per frame; every whole millisecond since the previous call becomes a tick.
type hostTime struct {
	mu   sync.Mutex
	ch   chan uint64
	seq  uint64
	last time.Time
	acc  time.Duration
	now  func() time.Time
}

func newHostTime() *hostTime {
	return &hostTime{ch: make(chan uint64, 1024), now: time.Now}
}

func (t *hostTime) Ticks() <-chan uint64 { return t.ch }

func (t *hostTime) advance() {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	if t.last.IsZero() {
		t.last = now
		t.emit(1)
		return
	}
	t.acc += now.Sub(t.last)
	t.last = now

	n := uint64(t.acc / tickDur)
	t.acc %= tickDur
	t.emit(n)
}

// emit drops ticks when nobody drains the channel.
func (t *hostTime) emit(n uint64) {
	for i := uint64(0); i < n; i++ {
		t.seq++
		select {
		case t.ch <- t.seq:
		default:
		}
	}
}
