// Package dma stores files sent over the UART. A transfer is a begin frame
// naming the file and its size, data frames, and an end frame.
package dma

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"path"
	"strings"

	"jukebox/hal"
	"jukebox/kernel"
	"jukebox/proto"
)

var (
	errBadName  = errors.New("bad file name")
	errNoActive = errors.New("no transfer in progress")
	errOverrun  = errors.New("more data than announced")
	errShort    = errors.New("transfer ended early")
)

// Task is the DMA writer task.
type Task struct {
	sys *kernel.System
	st  hal.Storage
	dir string
	log *slog.Logger

	// Stored is called with the file name after a transfer completes.
	Stored func(name string)

	w        io.WriteCloser
	name     string
	size     uint32
	got      uint32
	finished bool
}

func New(sys *kernel.System, st hal.Storage, dir string, log *slog.Logger) *Task {
	return &Task{sys: sys, st: st, dir: dir, log: log}
}

// Active reports whether a transfer is open.
func (t *Task) Active() bool { return t.w != nil }

// Run serves the DMA mailbox until ctx is done. An open transfer is
// abandoned.
func (t *Task) Run(ctx context.Context) {
	for {
		msg, err := t.sys.RecvContext(ctx, kernel.EPDMA)
		if err != nil {
			t.abort()
			return
		}
		t.Handle(msg)
		t.sys.Beat(kernel.EPDMA)
	}
}

// Handle processes one DMA message.
func (t *Task) Handle(msg kernel.Message) {
	switch proto.Kind(msg.Kind) {
	case proto.MsgDMABegin:
		t.begin(msg.Payload())
	case proto.MsgDMAData:
		t.data(msg.Payload())
	case proto.MsgDMAEnd:
		t.end()
	default:
		t.log.Warn("dma: unexpected message", slog.String("kind", proto.Kind(msg.Kind).String()))
	}
}

func (t *Task) begin(payload []byte) {
	size, name, ok := proto.DecodeDMABeginPayload(payload)
	if !ok || size == 0 {
		t.fail(proto.ErrBadMessage, proto.OpDMABegin, nil)
		return
	}
	if !validName(name) {
		t.fail(proto.ErrBadMessage, proto.OpDMABegin, errBadName)
		return
	}
	if t.Active() {
		t.log.Warn("dma: replacing unfinished transfer", slog.String("name", t.name))
		t.abort()
	}

	w, err := t.st.Create(path.Join(t.dir, name))
	if err != nil {
		t.fail(proto.ErrInternal, proto.OpDMABegin, err)
		return
	}
	t.w, t.name, t.size, t.got, t.finished = w, name, size, 0, false
	t.log.Info("dma: begin", slog.String("name", name), slog.Uint64("size", uint64(size)))
	t.ack(proto.OpDMABegin, size)
}

func (t *Task) data(p []byte) {
	if !t.Active() {
		t.fail(proto.ErrBadMessage, proto.OpDMAData, errNoActive)
		return
	}
	if uint64(t.got)+uint64(len(p)) > uint64(t.size) {
		t.abort()
		t.fail(proto.ErrTooLarge, proto.OpDMAData, errOverrun)
		return
	}
	if _, err := t.w.Write(p); err != nil {
		t.abort()
		t.fail(proto.ErrInternal, proto.OpDMAData, err)
		return
	}
	t.got += uint32(len(p))
	if t.got == t.size {
		t.complete()
	}
}

// end closes the transfer. The file is closed as soon as the announced size
// arrives, so an end frame after that only repeats the acknowledgement.
func (t *Task) end() {
	if !t.Active() {
		if t.finished {
			t.finished = false
			t.ack(proto.OpDMAEnd, t.size)
			return
		}
		t.fail(proto.ErrBadMessage, proto.OpDMAEnd, errNoActive)
		return
	}
	got := t.got
	t.abort()
	t.log.Warn("dma: short transfer", slog.String("name", t.name), slog.Uint64("got", uint64(got)), slog.Uint64("size", uint64(t.size)))
	t.fail(proto.ErrShort, proto.OpDMAEnd, errShort)
}

func (t *Task) complete() {
	err := t.w.Close()
	t.w = nil
	if err != nil {
		t.remove()
		t.fail(proto.ErrInternal, proto.OpDMAEnd, err)
		return
	}
	t.finished = true
	t.log.Info("dma: stored", slog.String("name", t.name), slog.Uint64("size", uint64(t.size)))
	t.ack(proto.OpDMAEnd, t.size)
	if t.Stored != nil {
		t.Stored(t.name)
	}
}

// abort closes and removes a partial file.
func (t *Task) abort() {
	if t.w == nil {
		return
	}
	_ = t.w.Close()
	t.w = nil
	t.remove()
}

func (t *Task) remove() {
	if err := t.st.Remove(path.Join(t.dir, t.name)); err != nil && !errors.Is(err, hal.ErrNotFound) {
		t.log.Error("dma: remove partial file", slog.String("name", t.name), slog.String("err", err.Error()))
	}
}

func (t *Task) ack(op proto.Opcode, v uint32) {
	t.send(proto.OpAck, proto.AckPayload(op, v))
}

func (t *Task) fail(code proto.ErrCode, op proto.Opcode, err error) {
	var detail []byte
	if err != nil {
		detail = []byte(err.Error())
		t.log.Warn("dma: "+op.String(), slog.String("code", code.String()), slog.String("err", err.Error()))
	}
	t.send(proto.OpError, proto.ErrorPayload(code, op, detail))
}

func (t *Task) send(op proto.Opcode, payload []byte) {
	t.sys.TrySend(kernel.EPDMA, kernel.EPTX, uint8(proto.MsgFrameOut), proto.FrameOutPayload(op, payload))
}

// validName accepts a plain file name: no directories, no dot entries.
func validName(name string) bool {
	if name == "" || name == "." || name == ".." {
		return false
	}
	return !strings.ContainsAny(name, "/\\\x00")
}
