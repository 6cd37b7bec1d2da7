package uart

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"jukebox/kernel"
	"jukebox/proto"
)

func discard() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func TestTXWritesFrames(t *testing.T) {
	sys := kernel.NewSystem()
	var out bytes.Buffer
	tx := NewTX(sys, &out, discard())

	status := proto.StatusPayload(proto.Status{State: proto.StatePlaying, Track: 2})
	sys.TrySend(kernel.EPDecoder, kernel.EPTX, uint8(proto.MsgFrameOut), proto.FrameOutPayload(proto.OpStatus, status))
	sys.TrySend(kernel.EPWatchdog, kernel.EPTX, uint8(proto.MsgLogLine), []byte("hello"))
	sys.TrySend(kernel.EPDecoder, kernel.EPTX, uint8(proto.MsgButton), []byte{1})

	for {
		msg, ok := sys.TryRecv(kernel.EPTX)
		if !ok {
			break
		}
		tx.Handle(msg)
	}
	if tx.Sent != 2 {
		t.Fatalf("Sent = %d, want 2", tx.Sent)
	}

	var got []proto.Frame
	var dec proto.FrameDecoder
	dec.Decode(out.Bytes(), func(f proto.Frame) {
		got = append(got, proto.Frame{Op: f.Op, Payload: append([]byte(nil), f.Payload...)})
	})
	if len(got) != 2 || got[0].Op != proto.OpStatus || got[1].Op != proto.OpLog {
		t.Fatalf("decoded %+v, want status then log", got)
	}
	if string(got[1].Payload) != "hello" {
		t.Fatalf("log payload = %q, want %q", got[1].Payload, "hello")
	}
}

func TestRXRoutes(t *testing.T) {
	sys := kernel.NewSystem()
	rx := NewRX(sys, nil, discard())

	var in []byte
	in = append(in, 0x00, 0x42) // line noise
	in = proto.AppendFrame(in, proto.OpVolume, proto.VolumePayload(0x10, 0x10))
	in = proto.AppendFrame(in, proto.OpDMABegin, proto.DMABeginPayload(3, "a.mp3"))
	in = proto.AppendFrame(in, proto.OpDMAData, []byte{1, 2, 3})
	in = proto.AppendFrame(in, proto.OpDMAEnd, nil)
	in = proto.AppendFrame(in, proto.OpAck, proto.AckPayload(proto.OpPlay, 0))
	bad := proto.EncodeFrame(proto.OpStop, nil)
	bad[len(bad)-1] ^= 0xFF
	in = append(in, bad...)

	// Split mid-frame to exercise reassembly.
	rx.Feed(in[:7])
	rx.Feed(in[7:])

	msg, ok := sys.TryRecv(kernel.EPDecoder)
	if !ok || proto.Kind(msg.Kind) != proto.MsgCommand {
		t.Fatalf("decoder message ok=%v kind=%s, want command", ok, proto.Kind(msg.Kind))
	}
	if op, payload, _ := proto.DecodeCommandPayload(msg.Payload()); op != proto.OpVolume || !bytes.Equal(payload, []byte{0x10, 0x10}) {
		t.Fatalf("command = %s % x", op, payload)
	}
	if n := sys.Pending(kernel.EPDecoder); n != 0 {
		t.Fatalf("decoder pending = %d, want 0 (bad CRC frame must be dropped)", n)
	}

	wantKinds := []proto.Kind{proto.MsgDMABegin, proto.MsgDMAData, proto.MsgDMAEnd}
	for _, want := range wantKinds {
		msg, ok := sys.TryRecv(kernel.EPDMA)
		if !ok || proto.Kind(msg.Kind) != want {
			t.Fatalf("dma message = %s (ok %v), want %s", proto.Kind(msg.Kind), ok, want)
		}
	}

	msg, ok = sys.TryRecv(kernel.EPTX)
	if !ok {
		t.Fatalf("no error frame for unexpected ack")
	}
	op, payload, _ := proto.DecodeFrameOutPayload(msg.Payload())
	code, ref, _, _ := proto.DecodeErrorPayload(payload)
	if op != proto.OpError || code != proto.ErrBadMessage || ref != proto.OpAck {
		t.Fatalf("reply = %s %s for %s", op, code, ref)
	}
	if rx.Dropped() != 1 {
		t.Fatalf("Dropped() = %d, want 1", rx.Dropped())
	}
}

func TestRXReportsBusyDecoder(t *testing.T) {
	sys := kernel.NewSystem()
	rx := NewRX(sys, nil, discard())
	for range kernel.MailboxDepth + 1 {
		rx.Feed(proto.EncodeFrame(proto.OpNext, nil))
	}
	msg, ok := sys.TryRecv(kernel.EPTX)
	if !ok {
		t.Fatalf("no busy reply")
	}
	_, payload, _ := proto.DecodeFrameOutPayload(msg.Payload())
	if code, ref, _, _ := proto.DecodeErrorPayload(payload); code != proto.ErrBusy || ref != proto.OpNext {
		t.Fatalf("reply = %s for %s, want busy for next", code, ref)
	}
}

func TestRXRunStopsAtEOF(t *testing.T) {
	sys := kernel.NewSystem()
	rx := NewRX(sys, bytes.NewReader(proto.EncodeFrame(proto.OpStop, nil)), discard())

	done := make(chan struct{})
	go func() {
		rx.Run(context.Background())
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("Run() did not return at EOF")
	}
	if sys.Pending(kernel.EPDecoder) != 1 {
		t.Fatalf("decoder pending = %d, want 1", sys.Pending(kernel.EPDecoder))
	}
}
