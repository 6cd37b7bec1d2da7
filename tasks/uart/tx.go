// Package uart runs the two halves of the serial link: TX frames whatever
// the other tasks report, RX decodes incoming frames and routes them.
package uart

import (
	"context"
	"io"
	"log/slog"

	"jukebox/kernel"
	"jukebox/proto"
)

// TX is the transmit task.
type TX struct {
	sys *kernel.System
	w   io.Writer
	log *slog.Logger
	buf []byte

	// Sent counts frames written.
	Sent int
}

func NewTX(sys *kernel.System, w io.Writer, log *slog.Logger) *TX {
	return &TX{sys: sys, w: w, log: log, buf: make([]byte, 0, proto.FrameOverhead+proto.MaxPayload)}
}

// Run drains the TX mailbox until ctx is done.
func (t *TX) Run(ctx context.Context) {
	for {
		msg, err := t.sys.RecvContext(ctx, kernel.EPTX)
		if err != nil {
			return
		}
		t.Handle(msg)
		t.sys.Beat(kernel.EPTX)
	}
}

// Handle writes the frame carried by msg.
func (t *TX) Handle(msg kernel.Message) {
	var (
		op      proto.Opcode
		payload []byte
	)
	switch proto.Kind(msg.Kind) {
	case proto.MsgFrameOut:
		var ok bool
		op, payload, ok = proto.DecodeFrameOutPayload(msg.Payload())
		if !ok {
			return
		}
	case proto.MsgLogLine:
		op, payload = proto.OpLog, msg.Payload()
	default:
		t.log.Warn("tx: unexpected message", slog.String("kind", proto.Kind(msg.Kind).String()), slog.String("from", msg.From.String()))
		return
	}
	if len(payload) > proto.MaxPayload {
		payload = payload[:proto.MaxPayload]
	}

	t.buf = proto.AppendFrame(t.buf[:0], op, payload)
	if _, err := t.w.Write(t.buf); err != nil {
		t.log.Error("tx: write", slog.String("op", op.String()), slog.String("err", err.Error()))
		return
	}
	t.Sent++
}
