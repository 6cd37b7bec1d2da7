//go:build tinygo && baremetal && picocalc

package hal

import (
	"machine"
	"sync"
)

type picoCalcHAL struct {
	logger  *uartLogger
	led     *pinLED
	fb      Framebuffer
	buttons Buttons
	serial  Serial
	storage Storage
	decoder *boardDecoder
	t       *tinyGoTime
}

// New returns the HAL for a Pico on the PicoCalc carrier with the decoder
// board on the SD card's SPI bus. The keyboard stands in for the buttons.
func New() HAL {
	logUART, frameUART := newUARTs(115200)

	ledPin := machine.LED
	ledPin.Configure(machine.PinConfig{Mode: machine.PinOutput})

	var fb Framebuffer = &stubFramebuffer{w: lcdWidth, h: lcdHeight, format: PixelFormatRGB565}
	if panel, err := openILI9488(); err == nil {
		fb = newLCDFramebuffer(panel)
	}

	var buttons Buttons = stubButtons{}
	if kp, err := openKeypad(); err == nil {
		buttons = kp
	}

	bus := new(sync.Mutex)
	storage := newSDStorage(bus)
	return &picoCalcHAL{
		logger:  &uartLogger{uart: logUART},
		led:     &pinLED{pin: ledPin},
		fb:      fb,
		buttons: buttons,
		serial:  &uartSerial{uart: frameUART},
		storage: storage,
		decoder: newBoardDecoder(machine.SPI0, bus),
		t:       newTinyGoTime(),
	}
}

func (h *picoCalcHAL) Logger() Logger   { return h.logger }
func (h *picoCalcHAL) LED() LED         { return h.led }
func (h *picoCalcHAL) Display() Display { return tinyGoDisplay{fb: h.fb} }
func (h *picoCalcHAL) Buttons() Buttons { return h.buttons }
func (h *picoCalcHAL) Serial() Serial   { return h.serial }
func (h *picoCalcHAL) Storage() Storage { return h.storage }
func (h *picoCalcHAL) Decoder() Decoder { return h.decoder }
func (h *picoCalcHAL) Time() Time       { return h.t }
