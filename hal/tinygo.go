//go:build tinygo && baremetal && !picocalc

package hal

import (
	"machine"
	"sync"
)

type tinyGoHAL struct {
	logger  *uartLogger
	led     *pinLED
	fb      Framebuffer
	buttons Buttons
	serial  Serial
	storage Storage
	decoder *boardDecoder
	t       *tinyGoTime
}

// New returns the HAL for a bare Pico 2 (RP2350) with the decoder board.
//
// Logs: UART0 on GP0/GP1, 115200 8N1. Frames: UART1 on GP8/GP9.
// Buttons: GP20, GP21, GP22, GP26, GP27, active high.
func New() HAL {
	logUART, frameUART := newUARTs(115200)

	ledPin := machine.LED
	ledPin.Configure(machine.PinConfig{Mode: machine.PinOutput})

	bus := new(sync.Mutex)
	storage := newSDStorage(bus)
	return &tinyGoHAL{
		logger:  &uartLogger{uart: logUART},
		led:     &pinLED{pin: ledPin},
		fb:      &stubFramebuffer{w: 320, h: 320, format: PixelFormatRGB565},
		buttons: newPinButtons([]machine.Pin{machine.GP20, machine.GP21, machine.GP22, machine.GP26, machine.GP27}),
		serial:  &uartSerial{uart: frameUART},
		storage: storage,
		decoder: newBoardDecoder(machine.SPI0, bus),
		t:       newTinyGoTime(),
	}
}

func (h *tinyGoHAL) Logger() Logger   { return h.logger }
func (h *tinyGoHAL) LED() LED         { return h.led }
func (h *tinyGoHAL) Display() Display { return tinyGoDisplay{fb: h.fb} }
func (h *tinyGoHAL) Buttons() Buttons { return h.buttons }
func (h *tinyGoHAL) Serial() Serial   { return h.serial }
func (h *tinyGoHAL) Storage() Storage { return h.storage }
func (h *tinyGoHAL) Decoder() Decoder { return h.decoder }
func (h *tinyGoHAL) Time() Time       { return h.t }
