//go:build tinygo && baremetal && picocalc

package hal

import (
	"errors"
	"machine"
	"time"
)

const (
	keyboardAddr uint16 = 0x1F
	keyboardFIFO byte   = 0x09

	keyStateDown byte = 0x01
)

const (
	keyBackspace byte = 0x08
	keyEnter     byte = '\r'
	keyEsc       byte = 0xB1
	keyLeft      byte = 0xB4
	keyUp        byte = 0xB5
	keyDown      byte = 0xB6
	keyRight     byte = 0xB7
)

// keypadButtons turns the PicoCalc I2C keyboard into the five player
// buttons. Keys with no button are ignored.
type keypadButtons struct {
	bus  *machine.I2C
	cmd  [1]byte
	resp [2]byte
	line *buttonLine
}

func openKeypad() (*keypadButtons, error) {
	k := &keypadButtons{cmd: [1]byte{keyboardFIFO}, line: newButtonLine(16, nil)}

	// The keyboard MCU boots slowly; probe both buses at both speeds.
	for _, bus := range []*machine.I2C{machine.I2C1, machine.I2C0} {
		if bus == nil {
			continue
		}
		for _, freq := range []uint32{100_000, 400_000} {
			if err := bus.Configure(machine.I2CConfig{
				SCL:       machine.GP7,
				SDA:       machine.GP6,
				Frequency: freq,
			}); err != nil {
				continue
			}
			k.bus = bus
			for range 50 {
				if k.poll() == nil {
					go k.run()
					return k, nil
				}
				time.Sleep(10 * time.Millisecond)
			}
		}
	}
	return nil, errors.New("keypad: I2C unavailable")
}

func (k *keypadButtons) poll() error {
	return k.bus.Tx(keyboardAddr, k.cmd[:], k.resp[:])
}

func (k *keypadButtons) run() {
	for {
		if k.poll() == nil && k.resp[0] == keyStateDown {
			if id, ok := keyButton(k.resp[1]); ok {
				k.line.press(id)
			}
		}
		time.Sleep(2 * time.Millisecond)
	}
}

func (k *keypadButtons) Events() <-chan ButtonEvent { return k.line.Events() }

// keyButton matches the host window key bindings.
func keyButton(code byte) (uint8, bool) {
	switch code {
	case keyEnter, '\n', ' ':
		return 0, true
	case 's', 'S':
		return 1, true
	case keyDown, keyRight, 'n', 'N':
		return 2, true
	case keyUp, 'v', 'V':
		return 3, true
	case keyLeft, keyEsc, keyBackspace:
		return 4, true
	}
	return 0, false
}
