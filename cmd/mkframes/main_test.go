//go:build !tinygo

package main

import (
	"bytes"
	"strings"
	"testing"

	"jukebox/proto"
)

func decodeAll(t *testing.T, b []byte) []proto.Frame {
	t.Helper()
	var d proto.FrameDecoder
	var frames []proto.Frame
	d.Decode(b, func(f proto.Frame) {
		f.Payload = append([]byte(nil), f.Payload...)
		frames = append(frames, f)
	})
	return frames
}

func TestWriteUploadSplitsIntoChunks(t *testing.T) {
	body := bytes.Repeat([]byte{0xA5}, 250)
	var out bytes.Buffer
	if err := writeUpload(&out, "song.mp3", bytes.NewReader(body), uint32(len(body)), 100); err != nil {
		t.Fatalf("writeUpload: %v", err)
	}

	frames := decodeAll(t, out.Bytes())
	if len(frames) != 5 {
		t.Fatalf("frames=%d want 5", len(frames))
	}
	if frames[0].Op != proto.OpDMABegin {
		t.Fatalf("first op=%s", frames[0].Op)
	}
	size, name, ok := proto.DecodeDMABeginPayload(frames[0].Payload)
	if !ok || size != 250 || name != "song.mp3" {
		t.Fatalf("begin = %d %q %v", size, name, ok)
	}
	var got []byte
	for _, f := range frames[1:4] {
		if f.Op != proto.OpDMAData {
			t.Fatalf("op=%s want data", f.Op)
		}
		got = append(got, f.Payload...)
	}
	if !bytes.Equal(got, body) {
		t.Fatalf("data mismatch")
	}
	if frames[4].Op != proto.OpDMAEnd {
		t.Fatalf("last op=%s", frames[4].Op)
	}
}

func TestWriteUploadShortReader(t *testing.T) {
	var out bytes.Buffer
	err := writeUpload(&out, "a.mp3", strings.NewReader("abc"), 10, 4)
	if err == nil || !strings.Contains(err.Error(), "short read") {
		t.Fatalf("err=%v", err)
	}
}

func TestParsePair(t *testing.T) {
	l, r, err := parsePair("0x10, 32")
	if err != nil || l != 0x10 || r != 32 {
		t.Fatalf("parsePair = %d %d %v", l, r, err)
	}
	if _, _, err := parsePair("300,1"); err == nil {
		t.Fatalf("expected range error")
	}
	if _, _, err := parsePair("5"); err == nil {
		t.Fatalf("expected format error")
	}
}
