package kernel

import (
	"context"
	"runtime"
	"sync/atomic"
	"time"
)

// MaxMessageBytes is the maximum payload size for IPC messages.
const MaxMessageBytes = 128

// MailboxDepth is the number of messages a mailbox holds before senders
// block.
const MailboxDepth = 5

// Message is a fixed-size message envelope.
type Message struct {
	From Endpoint
	To   Endpoint
	Kind uint8
	Len  uint16
	Data [MaxMessageBytes]byte
}

// Payload returns the used part of Data.
func (m *Message) Payload() []byte {
	n := int(m.Len)
	if n > MaxMessageBytes {
		n = MaxMessageBytes
	}
	return m.Data[:n]
}

// Waiters spin this many times before they start sleeping between polls.
const spinLimit = 64

// backoff yields while a wait is short and sleeps a tick once it is not,
// so idle tasks do not hold a core on the host.
func backoff(spins *int) {
	if *spins < spinLimit {
		*spins++
		runtime.Gosched()
		return
	}
	time.Sleep(time.Millisecond)
}

type slot struct {
	full atomic.Bool
	msg  Message
}

// Mailbox is a fixed-size multi-producer, single-consumer queue.
// No allocations; blocking calls busy-wait with Gosched().
type Mailbox struct {
	_     [0]func() // prevent accidental copying.
	head  atomic.Uint32
	tail  atomic.Uint32
	slots [MailboxDepth]slot
}

// TrySend attempts to enqueue a message, returning false if the mailbox is full.
func (mb *Mailbox) TrySend(msg Message) bool {
	for {
		head := mb.head.Load()
		tail := mb.tail.Load()
		if head-tail >= MailboxDepth {
			return false
		}
		// Reserve a slot.
		if mb.head.CompareAndSwap(head, head+1) {
			s := &mb.slots[head%MailboxDepth]
			s.msg = msg
			s.full.Store(true)
			return true
		}
	}
}

// Send enqueues a message, blocking until it succeeds.
func (mb *Mailbox) Send(msg Message) {
	var spins int
	for !mb.TrySend(msg) {
		backoff(&spins)
	}
}

// SendContext enqueues a message, blocking until it succeeds or ctx is done.
func (mb *Mailbox) SendContext(ctx context.Context, msg Message) error {
	var spins int
	for !mb.TrySend(msg) {
		if err := ctx.Err(); err != nil {
			return err
		}
		backoff(&spins)
	}
	return nil
}

// TryRecv attempts to dequeue one message, returning false if empty.
func (mb *Mailbox) TryRecv() (Message, bool) {
	tail := mb.tail.Load()
	s := &mb.slots[tail%MailboxDepth]
	// A reserved slot that is not yet written counts as empty.
	if tail == mb.head.Load() || !s.full.Load() {
		return Message{}, false
	}

	msg := s.msg
	s.full.Store(false)
	mb.tail.Store(tail + 1)
	return msg, true
}

// Recv blocks until one message is available.
func (mb *Mailbox) Recv() Message {
	var spins int
	for {
		msg, ok := mb.TryRecv()
		if ok {
			return msg
		}
		backoff(&spins)
	}
}

// RecvContext blocks until one message is available or ctx is done.
func (mb *Mailbox) RecvContext(ctx context.Context) (Message, error) {
	var spins int
	for {
		msg, ok := mb.TryRecv()
		if ok {
			return msg, nil
		}
		if err := ctx.Err(); err != nil {
			return Message{}, err
		}
		backoff(&spins)
	}
}

// Len returns the number of queued messages.
func (mb *Mailbox) Len() int {
	return int(mb.head.Load() - mb.tail.Load())
}
