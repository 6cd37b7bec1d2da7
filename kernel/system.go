package kernel

import (
	"context"
	"runtime"
	"sync/atomic"
	"time"
)

// System is the task substrate: one mailbox per endpoint, shared state,
// a 1 ms timebase and a heartbeat counter per task.
type System struct {
	mbox   [NumEndpoints]Mailbox
	beats  [NumEndpoints]atomic.Uint32
	shared Shared
	ticks  atomic.Uint64
}

// NewSystem creates a kernel instance.
func NewSystem() *System {
	s := &System{}
	s.shared.SetTrack(-1)
	return s
}

// StartTick starts a 1ms ticker that increments the tick counter until ctx
// is done.
func (s *System) StartTick(ctx context.Context) {
	go func() {
		t := time.NewTicker(1 * time.Millisecond)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				s.ticks.Add(1)
			}
		}
	}()
}

// Tick advances the tick counter by one. Used when an external timebase
// drives the system.
func (s *System) Tick() {
	s.ticks.Add(1)
}

// Ticks returns the current tick count (1ms per tick).
func (s *System) Ticks() uint64 {
	return s.ticks.Load()
}

// Shared returns the cross-task shared state.
func (s *System) Shared() *Shared {
	return &s.shared
}

// Mailbox returns the mailbox of an endpoint.
func (s *System) Mailbox(ep Endpoint) *Mailbox {
	return &s.mbox[ep]
}

func newMessage(from, to Endpoint, kind uint8, payload []byte) Message {
	var msg Message
	msg.From = from
	msg.To = to
	msg.Kind = kind
	if len(payload) > 0 {
		if len(payload) > MaxMessageBytes {
			payload = payload[:MaxMessageBytes]
		}
		msg.Len = uint16(len(payload))
		copy(msg.Data[:], payload)
	}
	return msg
}

// Send copies the payload into a fixed-size message and enqueues it,
// blocking while the destination is full.
func (s *System) Send(from, to Endpoint, kind uint8, payload []byte) {
	s.mbox[to].Send(newMessage(from, to, kind, payload))
}

// TrySend is Send without blocking. It reports whether the message was
// queued.
func (s *System) TrySend(from, to Endpoint, kind uint8, payload []byte) bool {
	return s.mbox[to].TrySend(newMessage(from, to, kind, payload))
}

// SendContext is Send that gives up when ctx is done.
func (s *System) SendContext(ctx context.Context, from, to Endpoint, kind uint8, payload []byte) error {
	return s.mbox[to].SendContext(ctx, newMessage(from, to, kind, payload))
}

// Recv blocks until a message is available for the endpoint.
func (s *System) Recv(to Endpoint) Message {
	return s.mbox[to].Recv()
}

// RecvContext blocks until a message is available for the endpoint or ctx
// is done.
func (s *System) RecvContext(ctx context.Context, to Endpoint) (Message, error) {
	return s.mbox[to].RecvContext(ctx)
}

// TryRecv returns a queued message for the endpoint, if any.
func (s *System) TryRecv(to Endpoint) (Message, bool) {
	return s.mbox[to].TryRecv()
}

// Pending returns how many messages wait for the endpoint.
func (s *System) Pending(ep Endpoint) int {
	return s.mbox[ep].Len()
}

// Beat records that the task behind ep made progress.
func (s *System) Beat(ep Endpoint) {
	s.beats[ep].Add(1)
}

// Heartbeat returns the progress counter of ep.
func (s *System) Heartbeat(ep Endpoint) uint32 {
	return s.beats[ep].Load()
}

// Yield yields execution to let other tasks run.
func (s *System) Yield() {
	runtime.Gosched()
}
