//go:build tinygo && baremetal

package hal

import (
	"machine"
	"sync"
	"sync/atomic"
	"time"

	"tinygo.org/x/drivers"
)

// Decoder wiring. The chip shares SPI0 with the SD card.
const (
	pinXCS   = machine.GP2
	pinXDCS  = machine.GP3
	pinDREQ  = machine.GP4
	pinReset = machine.GP5
)

type tinyGoDisplay struct {
	fb Framebuffer
}

func (d tinyGoDisplay) Framebuffer() Framebuffer { return d.fb }

type tinyGoTime struct {
	ch  chan uint64
	seq uint64
}

func newTinyGoTime() *tinyGoTime {
	t := &tinyGoTime{ch: make(chan uint64, 16)}
	go func() {
		ticker := time.NewTicker(1 * time.Millisecond)
		defer ticker.Stop()
		for range ticker.C {
			t.seq++
			select {
			case t.ch <- t.seq:
			default:
			}
		}
	}()
	return t
}

func (t *tinyGoTime) Ticks() <-chan uint64 { return t.ch }

type uartLogger struct {
	mu   sync.Mutex
	uart *machine.UART
}

func (l *uartLogger) WriteLineString(s string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i := 0; i < len(s); i++ {
		l.uart.WriteByte(s[i])
	}
	l.uart.WriteByte('\r')
	l.uart.WriteByte('\n')
}

func (l *uartLogger) WriteLineBytes(b []byte) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i := 0; i < len(b); i++ {
		l.uart.WriteByte(b[i])
	}
	l.uart.WriteByte('\r')
	l.uart.WriteByte('\n')
}

type pinLED struct {
	pin machine.Pin
}

func (l *pinLED) High() { l.pin.High() }
func (l *pinLED) Low()  { l.pin.Low() }

// uartSerial carries frames on UART1 so that log lines on UART0 cannot
// corrupt them.
type uartSerial struct {
	uart *machine.UART
}

func (s *uartSerial) Read(p []byte) (int, error) {
	if s.uart == nil {
		return 0, ErrNotImplemented
	}
	for s.uart.Buffered() == 0 {
		time.Sleep(time.Millisecond)
	}
	return s.uart.Read(p)
}

func (s *uartSerial) Write(p []byte) (int, error) {
	if s.uart == nil {
		return 0, ErrNotImplemented
	}
	return s.uart.Write(p)
}

func newUARTs(baud uint32) (logUART, frameUART *machine.UART) {
	logUART = machine.UART0
	logUART.Configure(machine.UARTConfig{
		BaudRate: 115200,
		TX:       machine.GP0,
		RX:       machine.GP1,
	})
	frameUART = machine.UART1
	frameUART.Configure(machine.UARTConfig{
		BaudRate: baud,
		TX:       machine.GP8,
		RX:       machine.GP9,
	})
	return logUART, frameUART
}

type boardDecoder struct {
	bus  *machine.SPI
	lock *sync.Mutex
}

func newBoardDecoder(bus *machine.SPI, lock *sync.Mutex) *boardDecoder {
	pinReset.Configure(machine.PinConfig{Mode: machine.PinOutput})
	pinXCS.Configure(machine.PinConfig{Mode: machine.PinOutput})
	pinXDCS.Configure(machine.PinConfig{Mode: machine.PinOutput})
	pinDREQ.Configure(machine.PinConfig{Mode: machine.PinInput})
	pinReset.High()
	pinXCS.High()
	pinXDCS.High()
	return &boardDecoder{bus: bus, lock: lock}
}

func (d *boardDecoder) Bus() drivers.SPI     { return d.bus }
func (d *boardDecoder) Reset() Pin           { return pinReset }
func (d *boardDecoder) XCS() Pin             { return pinXCS }
func (d *boardDecoder) XDCS() Pin            { return pinXDCS }
func (d *boardDecoder) DREQ() Pin            { return pinDREQ }
func (d *boardDecoder) BusLock() sync.Locker { return d.lock }

// pinButtons latches rising edges in interrupt context and forwards them
// from a goroutine, so the handlers never touch a channel.
type pinButtons struct {
	line    *buttonLine
	pending atomic.Uint32
}

func newPinButtons(pins []machine.Pin) *pinButtons {
	b := &pinButtons{line: newButtonLine(16, nil)}
	for i, p := range pins {
		mask := uint32(1) << i
		p.Configure(machine.PinConfig{Mode: machine.PinInputPulldown})
		p.SetInterrupt(machine.PinRising, func(machine.Pin) {
			for {
				old := b.pending.Load()
				if b.pending.CompareAndSwap(old, old|mask) {
					return
				}
			}
		})
	}
	go b.forward()
	return b
}

func (b *pinButtons) forward() {
	for {
		bits := b.pending.Swap(0)
		for id := uint8(0); bits != 0; id++ {
			if bits&1 != 0 {
				b.line.press(id)
			}
			bits >>= 1
		}
		time.Sleep(2 * time.Millisecond)
	}
}

func (b *pinButtons) Events() <-chan ButtonEvent { return b.line.Events() }
