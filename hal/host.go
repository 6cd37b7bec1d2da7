//go:build !tinygo

package hal

import (
	"fmt"
	"io"
	"os"
	"sync"
)

// HostConfig selects the host resources behind the simulated board.
type HostConfig struct {
	// Root is the directory that plays the role of the SD card. Empty
	// keeps files in memory.
	Root string
	// SerialIn and SerialOut carry UART frames. They default to stdin and
	// stdout; log lines go to stderr.
	SerialIn  io.Reader
	SerialOut io.Writer
}

type hostHAL struct {
	logger  *hostLogger
	led     *hostLED
	fb      *hostFramebuffer
	buttons *hostButtons
	t       *hostTime
	serial  *hostSerial
	storage Storage
	decoder *hostDecoder
}

// New returns a host HAL with in-memory storage.
func New() HAL {
	return newHost(HostConfig{})
}

// NewHost returns a host HAL for cfg.
func NewHost(cfg HostConfig) HAL {
	return newHost(cfg)
}

func newHost(cfg HostConfig) *hostHAL {
	if cfg.SerialIn == nil {
		cfg.SerialIn = os.Stdin
	}
	if cfg.SerialOut == nil {
		cfg.SerialOut = os.Stdout
	}

	var storage Storage = NewMemStorage()
	if cfg.Root != "" {
		storage = &dirStorage{root: cfg.Root}
	}

	logger := &hostLogger{w: os.Stderr}
	return &hostHAL{
		logger:  logger,
		led:     &hostLED{logger: logger},
		fb:      newHostFramebuffer(320, 320),
		buttons: newHostButtons(),
		t:       newHostTime(),
		serial:  &hostSerial{r: cfg.SerialIn, w: cfg.SerialOut},
		storage: storage,
		decoder: newHostDecoder(),
	}
}

func (h *hostHAL) Logger() Logger   { return h.logger }
func (h *hostHAL) LED() LED         { return h.led }
func (h *hostHAL) Display() Display { return hostDisplay{fb: h.fb} }
func (h *hostHAL) Buttons() Buttons { return h.buttons.line }
func (h *hostHAL) Serial() Serial   { return h.serial }
func (h *hostHAL) Storage() Storage { return h.storage }
func (h *hostHAL) Decoder() Decoder { return h.decoder }
func (h *hostHAL) Time() Time       { return h.t }

type hostDisplay struct {
	fb *hostFramebuffer
}

func (d hostDisplay) Framebuffer() Framebuffer { return d.fb }

type hostLogger struct {
	mu sync.Mutex
	w  *os.File
}

func (l *hostLogger) WriteLineString(s string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintln(l.w, s)
}

func (l *hostLogger) WriteLineBytes(b []byte) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.w.Write(b)
	l.w.Write([]byte{'\n'})
}

type hostLED struct {
	mu     sync.Mutex
	on     bool
	logger *hostLogger
}

func (l *hostLED) High() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.on {
		l.logger.WriteLineString("led: HIGH")
	}
	l.on = true
}

func (l *hostLED) Low() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.on {
		l.logger.WriteLineString("led: LOW")
	}
	l.on = false
}

// hostButtons models the five push buttons as pins with rising-edge
// reporting. The window polls the keyboard into them.
type hostButtons struct {
	line *buttonLine
	pins [5]*virtualPin
}

func newHostButtons() *hostButtons {
	b := &hostButtons{line: newButtonLine(16, nil)}
	for i := range b.pins {
		b.pins[i] = newVirtualPin(fmt.Sprintf("BTN%d", i), false)
		b.line.attach(b.pins[i], uint8(i))
	}
	return b
}

// set drives button id to the given level.
func (b *hostButtons) set(id int, pressed bool) {
	if id < 0 || id >= len(b.pins) {
		return
	}
	b.pins[id].Set(pressed)
}
