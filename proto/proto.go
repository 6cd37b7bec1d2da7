// Package proto defines the messages exchanged between tasks and the
// framing used on the UART link.
package proto

// Kind identifies the message type carried in kernel.Message.Kind.
type Kind uint8

const (
	MsgLogLine Kind = iota + 1
	MsgError
	MsgButton
	MsgCommand
	MsgPlayTrack
	MsgNowPlaying
	MsgStatus
	MsgFrameOut
	MsgDMABegin
	MsgDMAData
	MsgDMAEnd
)

func (k Kind) String() string {
	switch k {
	case MsgLogLine:
		return "log_line"
	case MsgError:
		return "error"
	case MsgButton:
		return "button"
	case MsgCommand:
		return "command"
	case MsgPlayTrack:
		return "play_track"
	case MsgNowPlaying:
		return "now_playing"
	case MsgStatus:
		return "status"
	case MsgFrameOut:
		return "frame_out"
	case MsgDMABegin:
		return "dma_begin"
	case MsgDMAData:
		return "dma_data"
	case MsgDMAEnd:
		return "dma_end"
	default:
		return "unknown"
	}
}

// ErrCode is a generic error category for error frames.
type ErrCode uint8

const (
	ErrUnknown ErrCode = iota
	ErrBadMessage
	ErrNotFound
	ErrBusy
	ErrTooLarge
	ErrShort
	ErrInternal
)

func (c ErrCode) String() string {
	switch c {
	case ErrUnknown:
		return "unknown"
	case ErrBadMessage:
		return "bad_message"
	case ErrNotFound:
		return "not_found"
	case ErrBusy:
		return "busy"
	case ErrTooLarge:
		return "too_large"
	case ErrShort:
		return "short"
	case ErrInternal:
		return "internal"
	default:
		return "unknown"
	}
}

// Button is a physical button id as produced by the interrupt layer.
type Button uint8

const (
	ButtonPlayPause Button = iota
	ButtonStop
	ButtonNext
	ButtonVolume
	ButtonBack

	NumButtons
)

func (b Button) String() string {
	switch b {
	case ButtonPlayPause:
		return "play_pause"
	case ButtonStop:
		return "stop"
	case ButtonNext:
		return "next"
	case ButtonVolume:
		return "volume"
	case ButtonBack:
		return "back"
	default:
		return "unknown"
	}
}

// Valid reports whether b names one of the five buttons.
func (b Button) Valid() bool { return b < NumButtons }

// Screen is what the LCD shows.
type Screen uint8

const (
	ScreenSelect Screen = iota
	ScreenPlaying
)

func (s Screen) String() string {
	switch s {
	case ScreenSelect:
		return "select"
	case ScreenPlaying:
		return "playing"
	default:
		return "unknown"
	}
}

// ButtonPayload encodes a MsgButton payload.
func ButtonPayload(b Button) []byte { return []byte{byte(b)} }

func DecodeButtonPayload(b []byte) (Button, bool) {
	if len(b) != 1 {
		return 0, false
	}
	return Button(b[0]), true
}
