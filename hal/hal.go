// Package hal is the only contact point between the player and the outside
// world. The tinygo build talks to machine; the host build simulates the
// board, including the decoder chip.
package hal

import (
	"errors"
	"io"
	"sync"
	"time"

	"tinygo.org/x/drivers"
)

// Logger writes newline-delimited log lines.
type Logger interface {
	WriteLineString(s string)
	WriteLineBytes(b []byte)
}

// LED is a minimal output pin abstraction.
type LED interface {
	High()
	Low()
}

var (
	ErrNotImplemented = errors.New("not implemented")
	ErrNotFound       = errors.New("not found")
	ErrNotReady       = errors.New("not ready")
)

// PixelFormat defines the framebuffer pixel encoding.
type PixelFormat uint8

const (
	// PixelFormatRGB565 is 16bpp: rrrrrggggggbbbbb.
	PixelFormatRGB565 PixelFormat = iota + 1
)

// Framebuffer is a simple pixel buffer plus a "present" hook.
type Framebuffer interface {
	Width() int
	Height() int
	Format() PixelFormat
	StrideBytes() int
	Buffer() []byte
	ClearRGB(r, g, b uint8)
	Present() error
}

// Display provides access to the framebuffer (if available).
type Display interface {
	Framebuffer() Framebuffer
}

// ButtonEvent is one press reported by the button interrupt layer. ID is
// passed through unchecked; consumers validate it.
type ButtonEvent struct {
	ID uint8
	At time.Time
}

// Buttons delivers button presses.
type Buttons interface {
	Events() <-chan ButtonEvent
}

// Serial is the UART link.
type Serial interface {
	io.Reader
	io.Writer
}

// FileInfo describes one directory entry.
type FileInfo struct {
	Name  string
	Size  int64
	IsDir bool
}

// Storage is the file store behind the track list and the DMA writer.
// Paths are slash separated and relative to the volume root.
type Storage interface {
	List(dir string) ([]FileInfo, error)
	Open(path string) (io.ReadCloser, error)
	Create(path string) (io.WriteCloser, error)
	Remove(path string) error
}

// Pin is a discrete line with boolean level, true being high.
type Pin interface {
	Get() bool
	Set(high bool)
}

// Decoder exposes the wiring of the audio decoder chip.
//
// BusLock guards the SPI bus when other devices share it. Hold it around
// every driver call; never hold it across Storage calls.
type Decoder interface {
	Bus() drivers.SPI
	Reset() Pin
	XCS() Pin
	XDCS() Pin
	DREQ() Pin
	BusLock() sync.Locker
}

// Time provides a base tick stream.
//
// The tick duration is platform-defined; higher-level timers live in userland.
type Time interface {
	Ticks() <-chan uint64
}

// HAL provides the only contact point between the player and the outside world.
type HAL interface {
	Logger() Logger
	LED() LED
	Display() Display
	Buttons() Buttons
	Serial() Serial
	Storage() Storage
	Decoder() Decoder
	Time() Time
}
