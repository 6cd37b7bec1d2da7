package hal

import (
	"sync"
	"time"
)

// virtualPin is a Pin held in memory. onEdge, when set, runs on every level
// change with the new level.
type virtualPin struct {
	mu     sync.Mutex
	name   string
	level  bool
	onEdge func(high bool)
}

func newVirtualPin(name string, level bool) *virtualPin {
	return &virtualPin{name: name, level: level}
}

func (p *virtualPin) Name() string { return p.name }

func (p *virtualPin) Get() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.level
}

func (p *virtualPin) Set(high bool) {
	p.mu.Lock()
	changed := p.level != high
	p.level = high
	fn := p.onEdge
	p.mu.Unlock()

	if changed && fn != nil {
		fn(high)
	}
}

// buttonLine turns rising edges on a set of pins into ButtonEvents, the way
// the board's edge interrupts do.
type buttonLine struct {
	ch  chan ButtonEvent
	now func() time.Time
}

func newButtonLine(depth int, now func() time.Time) *buttonLine {
	if now == nil {
		now = time.Now
	}
	return &buttonLine{ch: make(chan ButtonEvent, depth), now: now}
}

func (b *buttonLine) Events() <-chan ButtonEvent { return b.ch }

// press queues an event without blocking; presses beyond the queue depth
// are lost, as they would be in an interrupt handler.
func (b *buttonLine) press(id uint8) bool {
	select {
	case b.ch <- ButtonEvent{ID: id, At: b.now()}:
		return true
	default:
		return false
	}
}

// attach wires a pin so that each rising edge presses id.
func (b *buttonLine) attach(p *virtualPin, id uint8) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.onEdge = func(high bool) {
		if high {
			b.press(id)
		}
	}
}
