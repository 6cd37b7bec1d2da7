package proto

import (
	"encoding/binary"

	"github.com/sigurn/crc8"
)

// Opcode identifies a UART frame.
type Opcode uint8

const (
	OpPlay Opcode = iota + 0x01
	OpStop
	OpPause
	OpNext
	OpVolume
	OpBass
	OpTreble
	OpLowPower
)

const (
	OpDMABegin Opcode = iota + 0x10
	OpDMAData
	OpDMAEnd
)

const (
	OpStatus Opcode = iota + 0x20
	OpLog
	OpAck
	OpError
)

func (o Opcode) String() string {
	switch o {
	case OpPlay:
		return "play"
	case OpStop:
		return "stop"
	case OpPause:
		return "pause"
	case OpNext:
		return "next"
	case OpVolume:
		return "volume"
	case OpBass:
		return "bass"
	case OpTreble:
		return "treble"
	case OpLowPower:
		return "low_power"
	case OpDMABegin:
		return "dma_begin"
	case OpDMAData:
		return "dma_data"
	case OpDMAEnd:
		return "dma_end"
	case OpStatus:
		return "status"
	case OpLog:
		return "log"
	case OpAck:
		return "ack"
	case OpError:
		return "error"
	default:
		return "unknown"
	}
}

// IsControl reports whether o is a playback command for the decoder task.
func (o Opcode) IsControl() bool { return o >= OpPlay && o <= OpLowPower }

// IsDMA reports whether o belongs to a file transfer.
func (o Opcode) IsDMA() bool { return o >= OpDMABegin && o <= OpDMAEnd }

const (
	// FrameSync starts every frame.
	FrameSync = 0x7E
	// MaxPayload keeps a frame payload inside one kernel message.
	MaxPayload = 120
	// FrameOverhead is sync, opcode, length and CRC.
	FrameOverhead = 5
)

var crcTable = crc8.MakeTable(crc8.CRC8)

// Frame is one decoded UART frame.
type Frame struct {
	Op      Opcode
	Payload []byte
}

// AppendFrame appends the encoding of op and payload to dst.
//
// Layout:
//   - u8: sync (0x7E)
//   - u8: opcode
//   - u16: payload length (little-endian)
//   - bytes: payload
//   - u8: CRC-8 over opcode, length and payload
func AppendFrame(dst []byte, op Opcode, payload []byte) []byte {
	start := len(dst)
	dst = append(dst, FrameSync, byte(op))
	dst = binary.LittleEndian.AppendUint16(dst, uint16(len(payload)))
	dst = append(dst, payload...)
	return append(dst, crc8.Checksum(dst[start+1:], crcTable))
}

// EncodeFrame returns the encoding of op and payload.
func EncodeFrame(op Opcode, payload []byte) []byte {
	return AppendFrame(make([]byte, 0, FrameOverhead+len(payload)), op, payload)
}

type decodeState uint8

const (
	stateSync decodeState = iota
	stateOp
	stateLenLo
	stateLenHi
	statePayload
	stateCRC
)

// FrameDecoder reassembles frames from a byte stream. Bytes before a sync
// byte are skipped; a frame with a bad length or CRC is dropped and the
// decoder waits for the next sync byte.
type FrameDecoder struct {
	state decodeState
	op    Opcode
	n     int
	got   int
	crc   uint8
	one   [1]byte
	buf   [MaxPayload]byte

	// Dropped counts frames rejected for length or CRC.
	Dropped int
}

// Reset discards any partial frame.
func (d *FrameDecoder) Reset() {
	d.state = stateSync
	d.n, d.got = 0, 0
}

// Feed consumes one byte. When it completes a valid frame, Feed returns it
// with ok set. The payload aliases the decoder's buffer and is valid until
// the next call.
func (d *FrameDecoder) Feed(b byte) (f Frame, ok bool) {
	switch d.state {
	case stateSync:
		if b == FrameSync {
			d.state = stateOp
			d.crc = crc8.Init(crcTable)
		}
	case stateOp:
		d.op = Opcode(b)
		d.update(b)
		d.state = stateLenLo
	case stateLenLo:
		d.n = int(b)
		d.update(b)
		d.state = stateLenHi
	case stateLenHi:
		d.n |= int(b) << 8
		d.update(b)
		if d.n > MaxPayload {
			d.drop()
			return Frame{}, false
		}
		d.got = 0
		d.state = statePayload
		if d.n == 0 {
			d.state = stateCRC
		}
	case statePayload:
		d.buf[d.got] = b
		d.got++
		d.update(b)
		if d.got == d.n {
			d.state = stateCRC
		}
	case stateCRC:
		sum := crc8.Complete(d.crc, crcTable)
		d.state = stateSync
		if sum != b {
			d.Dropped++
			return Frame{}, false
		}
		return Frame{Op: d.op, Payload: d.buf[:d.n]}, true
	}
	return Frame{}, false
}

func (d *FrameDecoder) update(b byte) {
	d.one[0] = b
	d.crc = crc8.Update(d.crc, d.one[:], crcTable)
}

func (d *FrameDecoder) drop() {
	d.Dropped++
	d.Reset()
}

// Decode feeds p and calls fn for every complete frame.
func (d *FrameDecoder) Decode(p []byte, fn func(Frame)) {
	for _, b := range p {
		if f, ok := d.Feed(b); ok {
			fn(f)
		}
	}
}
