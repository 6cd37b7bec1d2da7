package uart

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"time"

	"jukebox/kernel"
	"jukebox/proto"
)

// RX is the receive task.
type RX struct {
	sys *kernel.System
	r   io.Reader
	log *slog.Logger
	dec proto.FrameDecoder
	ctx context.Context
}

func NewRX(sys *kernel.System, r io.Reader, log *slog.Logger) *RX {
	return &RX{sys: sys, r: r, log: log, ctx: context.Background()}
}

// Dropped returns the number of frames rejected for length or CRC.
func (t *RX) Dropped() int { return t.dec.Dropped }

// Run reads the link until ctx is done or the reader reaches EOF. A read in
// progress is not interrupted.
func (t *RX) Run(ctx context.Context) {
	t.ctx = ctx
	buf := make([]byte, kernel.MaxMessageBytes)
	for ctx.Err() == nil {
		n, err := t.r.Read(buf)
		if n > 0 {
			t.Feed(buf[:n])
		}
		t.sys.Beat(kernel.EPRX)
		switch {
		case err == nil:
		case errors.Is(err, io.EOF):
			return
		default:
			t.log.Warn("rx: read", slog.String("err", err.Error()))
			time.Sleep(10 * time.Millisecond)
		}
	}
}

// Feed decodes p and routes every complete frame.
func (t *RX) Feed(p []byte) {
	t.dec.Decode(p, t.route)
}

// route sends control frames to the decoder and DMA frames to the DMA task.
// A busy decoder is reported back; DMA frames wait for room, so a transfer
// is never silently cut.
func (t *RX) route(f proto.Frame) {
	switch {
	case f.Op.IsControl():
		if !t.sys.TrySend(kernel.EPRX, kernel.EPDecoder, uint8(proto.MsgCommand), proto.CommandPayload(f.Op, f.Payload)) {
			t.reject(proto.ErrBusy, f.Op)
		}
	case f.Op.IsDMA():
		kind := proto.MsgDMAData
		switch f.Op {
		case proto.OpDMABegin:
			kind = proto.MsgDMABegin
		case proto.OpDMAEnd:
			kind = proto.MsgDMAEnd
		}
		if err := t.sys.SendContext(t.ctx, kernel.EPRX, kernel.EPDMA, uint8(kind), f.Payload); err != nil {
			t.reject(proto.ErrBusy, f.Op)
		}
	default:
		t.reject(proto.ErrBadMessage, f.Op)
	}
}

func (t *RX) reject(code proto.ErrCode, op proto.Opcode) {
	t.log.Warn("rx: rejected frame", slog.String("op", op.String()), slog.String("code", code.String()))
	t.sys.TrySend(kernel.EPRX, kernel.EPTX, uint8(proto.MsgFrameOut), proto.FrameOutPayload(proto.OpError, proto.ErrorPayload(code, op, nil)))
}
