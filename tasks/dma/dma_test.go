package dma

import (
	"io"
	"log/slog"
	"testing"

	"jukebox/hal"
	"jukebox/kernel"
	"jukebox/proto"
)

type reply struct {
	op   proto.Opcode
	ref  proto.Opcode
	code proto.ErrCode
	v    uint32
}

func newTestTask() (*Task, *kernel.System, *hal.MemStorage) {
	sys := kernel.NewSystem()
	st := hal.NewMemStorage()
	return New(sys, st, "music", slog.New(slog.NewTextHandler(io.Discard, nil))), sys, st
}

func handle(t *Task, kind proto.Kind, payload []byte) {
	var msg kernel.Message
	msg.Kind = uint8(kind)
	msg.Len = uint16(copy(msg.Data[:], payload))
	t.Handle(msg)
}

func replies(sys *kernel.System) []reply {
	var out []reply
	for {
		msg, ok := sys.TryRecv(kernel.EPTX)
		if !ok {
			return out
		}
		op, payload, _ := proto.DecodeFrameOutPayload(msg.Payload())
		r := reply{op: op}
		switch op {
		case proto.OpAck:
			r.ref, r.v, _ = proto.DecodeAckPayload(payload)
		case proto.OpError:
			r.code, r.ref, _, _ = proto.DecodeErrorPayload(payload)
		}
		out = append(out, r)
	}
}

func TestTransferStoresFile(t *testing.T) {
	task, sys, st := newTestTask()
	var stored string
	task.Stored = func(name string) { stored = name }

	handle(task, proto.MsgDMABegin, proto.DMABeginPayload(5, "new.mp3"))
	handle(task, proto.MsgDMAData, []byte("he"))
	handle(task, proto.MsgDMAData, []byte("llo"))
	if task.Active() {
		t.Fatalf("Active() = true after the announced size arrived")
	}
	handle(task, proto.MsgDMAEnd, nil)

	got := replies(sys)
	want := []reply{
		{op: proto.OpAck, ref: proto.OpDMABegin, v: 5},
		{op: proto.OpAck, ref: proto.OpDMAEnd, v: 5},
		{op: proto.OpAck, ref: proto.OpDMAEnd, v: 5},
	}
	if len(got) != len(want) {
		t.Fatalf("replies = %+v, want %+v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("reply %d = %+v, want %+v", i, got[i], want[i])
		}
	}
	if b, ok := st.Get("music/new.mp3"); !ok || string(b) != "hello" {
		t.Fatalf("stored %q (ok %v), want %q", b, ok, "hello")
	}
	if stored != "new.mp3" {
		t.Fatalf("Stored called with %q", stored)
	}
}

func TestShortTransferRemovesFile(t *testing.T) {
	task, sys, st := newTestTask()
	handle(task, proto.MsgDMABegin, proto.DMABeginPayload(10, "part.mp3"))
	handle(task, proto.MsgDMAData, []byte("abc"))
	handle(task, proto.MsgDMAEnd, nil)

	got := replies(sys)
	if last := got[len(got)-1]; last.op != proto.OpError || last.code != proto.ErrShort || last.ref != proto.OpDMAEnd {
		t.Fatalf("last reply = %+v, want short error for dma_end", last)
	}
	if _, ok := st.Get("music/part.mp3"); ok {
		t.Fatalf("partial file left behind")
	}
}

func TestOverrunAborts(t *testing.T) {
	task, sys, st := newTestTask()
	handle(task, proto.MsgDMABegin, proto.DMABeginPayload(2, "x.mp3"))
	handle(task, proto.MsgDMAData, []byte("abc"))

	got := replies(sys)
	if last := got[len(got)-1]; last.code != proto.ErrTooLarge {
		t.Fatalf("last reply = %+v, want too_large", last)
	}
	if task.Active() {
		t.Fatalf("Active() = true after overrun")
	}
	if _, ok := st.Get("music/x.mp3"); ok {
		t.Fatalf("partial file left behind")
	}
}

func TestRejects(t *testing.T) {
	tests := []struct {
		name    string
		kind    proto.Kind
		payload []byte
		ref     proto.Opcode
	}{
		{"data without begin", proto.MsgDMAData, []byte{1}, proto.OpDMAData},
		{"end without begin", proto.MsgDMAEnd, nil, proto.OpDMAEnd},
		{"path in name", proto.MsgDMABegin, proto.DMABeginPayload(1, "../x.mp3"), proto.OpDMABegin},
		{"zero size", proto.MsgDMABegin, proto.DMABeginPayload(0, "x.mp3"), proto.OpDMABegin},
		{"short begin", proto.MsgDMABegin, []byte{1, 0}, proto.OpDMABegin},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			task, sys, _ := newTestTask()
			handle(task, tt.kind, tt.payload)
			got := replies(sys)
			if len(got) != 1 || got[0].op != proto.OpError || got[0].code != proto.ErrBadMessage || got[0].ref != tt.ref {
				t.Fatalf("replies = %+v, want one bad_message for %s", got, tt.ref)
			}
		})
	}
}

func TestValidName(t *testing.T) {
	for name, want := range map[string]bool{
		"a.mp3":   true,
		"":        false,
		"..":      false,
		"d/a.mp3": false,
		`d\a.mp3`: false,
	} {
		if got := validName(name); got != want {
			t.Fatalf("validName(%q) = %v, want %v", name, got, want)
		}
	}
}
