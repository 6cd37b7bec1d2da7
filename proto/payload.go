package proto

import "encoding/binary"

// PlayerState is the decoder task state.
type PlayerState uint8

const (
	StateIdle PlayerState = iota
	StatePlaying
	StatePaused
)

func (s PlayerState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StatePlaying:
		return "playing"
	case StatePaused:
		return "paused"
	default:
		return "unknown"
	}
}

// NoTrack marks the absence of a track index on the wire.
const NoTrack = 0xFFFF

// CommandPayload encodes a MsgCommand payload: a control frame handed from
// the RX task to the decoder task.
//
// Layout:
//   - u8: opcode
//   - bytes: frame payload
func CommandPayload(op Opcode, payload []byte) []byte {
	buf := make([]byte, 1+len(payload))
	buf[0] = byte(op)
	copy(buf[1:], payload)
	return buf
}

func DecodeCommandPayload(b []byte) (op Opcode, payload []byte, ok bool) {
	if len(b) < 1 {
		return 0, nil, false
	}
	return Opcode(b[0]), b[1:], true
}

// FrameOutPayload encodes a MsgFrameOut payload for the TX task. The layout
// matches CommandPayload.
func FrameOutPayload(op Opcode, payload []byte) []byte { return CommandPayload(op, payload) }

func DecodeFrameOutPayload(b []byte) (op Opcode, payload []byte, ok bool) {
	return DecodeCommandPayload(b)
}

// PlayPayload encodes a play request. An empty payload resumes or starts
// the current track.
//
// Layout (little-endian):
//   - u16: track index
func PlayPayload(index uint16) []byte {
	return binary.LittleEndian.AppendUint16(nil, index)
}

func DecodePlayPayload(b []byte) (index uint16, hasIndex bool, ok bool) {
	switch len(b) {
	case 0:
		return 0, false, true
	case 2:
		return binary.LittleEndian.Uint16(b), true, true
	}
	return 0, false, false
}

// VolumePayload encodes left and right attenuation (0 loudest, 0xFE silent).
func VolumePayload(left, right uint8) []byte { return []byte{left, right} }

func DecodeVolumePayload(b []byte) (left, right uint8, ok bool) {
	if len(b) != 2 {
		return 0, 0, false
	}
	return b[0], b[1], true
}

// TonePayload encodes a bass or treble setting.
//
// Layout:
//   - u8: amplitude (0..15)
//   - u8: frequency limit (0..15)
func TonePayload(amplitude, freqLimit uint8) []byte { return []byte{amplitude, freqLimit} }

func DecodeTonePayload(b []byte) (amplitude, freqLimit uint8, ok bool) {
	if len(b) != 2 {
		return 0, 0, false
	}
	return b[0], b[1], true
}

// LowPowerPayload encodes a low power request.
//
// Payload format:
//
//	b[0] == 0 => leave low power
//	b[0] != 0 => enter low power
func LowPowerPayload(on bool) []byte {
	if on {
		return []byte{1}
	}
	return []byte{0}
}

func DecodeLowPowerPayload(b []byte) (on bool, ok bool) {
	if len(b) != 1 {
		return false, false
	}
	return b[0] != 0, true
}

// DMABeginPayload starts a file transfer.
//
// Layout (little-endian):
//   - u32: total size in bytes
//   - bytes: UTF-8 file name
func DMABeginPayload(size uint32, name string) []byte {
	buf := make([]byte, 4+len(name))
	binary.LittleEndian.PutUint32(buf[0:4], size)
	copy(buf[4:], name)
	return buf
}

func DecodeDMABeginPayload(b []byte) (size uint32, name string, ok bool) {
	if len(b) < 5 {
		return 0, "", false
	}
	return binary.LittleEndian.Uint32(b[0:4]), string(b[4:]), true
}

// Status is the playback status reported to the LCD and over UART.
type Status struct {
	State      PlayerState
	Track      uint16 // NoTrack when idle
	Volume     uint8
	BitRate    uint32 // bits per second
	SampleRate uint16 // Hz
	DecodeTime uint16 // seconds
}

const statusLen = 12

// StatusPayload encodes a Status.
//
// Layout (little-endian):
//   - u8: state
//   - u16: track index
//   - u8: volume
//   - u32: bit rate
//   - u16: sample rate
//   - u16: decode time
func StatusPayload(s Status) []byte {
	buf := make([]byte, statusLen)
	buf[0] = uint8(s.State)
	binary.LittleEndian.PutUint16(buf[1:3], s.Track)
	buf[3] = s.Volume
	binary.LittleEndian.PutUint32(buf[4:8], s.BitRate)
	binary.LittleEndian.PutUint16(buf[8:10], s.SampleRate)
	binary.LittleEndian.PutUint16(buf[10:12], s.DecodeTime)
	return buf
}

func DecodeStatusPayload(b []byte) (s Status, ok bool) {
	if len(b) != statusLen {
		return Status{}, false
	}
	s.State = PlayerState(b[0])
	s.Track = binary.LittleEndian.Uint16(b[1:3])
	s.Volume = b[3]
	s.BitRate = binary.LittleEndian.Uint32(b[4:8])
	s.SampleRate = binary.LittleEndian.Uint16(b[8:10])
	s.DecodeTime = binary.LittleEndian.Uint16(b[10:12])
	return s, true
}

// NowPlayingPayload announces a new track. Long titles are cut to fit a
// frame.
//
// Layout (little-endian):
//   - u16: track index
//   - bytes: UTF-8 title
func NowPlayingPayload(index uint16, title string) []byte {
	if len(title) > MaxPayload-2 {
		title = title[:MaxPayload-2]
	}
	buf := make([]byte, 2+len(title))
	binary.LittleEndian.PutUint16(buf[0:2], index)
	copy(buf[2:], title)
	return buf
}

func DecodeNowPlayingPayload(b []byte) (index uint16, title string, ok bool) {
	if len(b) < 2 {
		return 0, "", false
	}
	return binary.LittleEndian.Uint16(b[0:2]), string(b[2:]), true
}

// AckPayload acknowledges a request.
//
// Layout (little-endian):
//   - u8: opcode acknowledged
//   - u32: request-defined value (bytes stored for DMA)
func AckPayload(ref Opcode, value uint32) []byte {
	buf := make([]byte, 5)
	buf[0] = byte(ref)
	binary.LittleEndian.PutUint32(buf[1:5], value)
	return buf
}

func DecodeAckPayload(b []byte) (ref Opcode, value uint32, ok bool) {
	if len(b) != 5 {
		return 0, 0, false
	}
	return Opcode(b[0]), binary.LittleEndian.Uint32(b[1:5]), true
}

// ErrorPayload encodes an error response.
//
// Layout:
//   - u8: code
//   - u8: opcode that failed
//   - bytes: optional detail
func ErrorPayload(code ErrCode, ref Opcode, detail []byte) []byte {
	if len(detail) > MaxPayload-2 {
		detail = detail[:MaxPayload-2]
	}
	buf := make([]byte, 2+len(detail))
	buf[0] = byte(code)
	buf[1] = byte(ref)
	copy(buf[2:], detail)
	return buf
}

func DecodeErrorPayload(b []byte) (code ErrCode, ref Opcode, detail []byte, ok bool) {
	if len(b) < 2 {
		return 0, 0, nil, false
	}
	return ErrCode(b[0]), Opcode(b[1]), b[2:], true
}

// LogLinePayload encodes a MsgLogLine payload.
//
// Convention:
// - Payload is UTF-8 bytes without a trailing newline.
// - Delivery is best-effort; callers may drop on overflow.
func LogLinePayload(b []byte) []byte {
	if b == nil {
		return nil
	}
	if len(b) > MaxPayload {
		b = b[:MaxPayload]
	}
	cp := make([]byte, len(b))
	copy(cp, b)
	return cp
}
