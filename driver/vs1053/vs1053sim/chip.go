// Package vs1053sim simulates the bus side of a VS1053b closely enough to
// drive the vs1053 package without hardware. It decodes SCI reads and
// writes, records SDI traffic, models DREQ during resets and latches the
// first MPEG frame header it sees in the stream.
package vs1053sim

import (
	"sync"
	"time"
)

const (
	opWrite = 0x02
	opRead  = 0x03

	regMode       = 0x0
	regStatus     = 0x1
	regClockF     = 0x3
	regDecodeTime = 0x4
	regAuData     = 0x5
	regWRAM       = 0x6
	regWRAMAddr   = 0x7
	regHDAT0      = 0x8
	regHDAT1      = 0x9

	modeReset  = 1 << 2
	modeCancel = 1 << 3

	endFillAddr = 0x1E06

	// 128 kbit/s, the common case.
	bytesPerSecond = 16000
	// fifoBytes is the SDI buffer the chip fills before dropping DREQ.
	fifoBytes = 2048
)

// resetValues are what the chip reports after power-up. STATUS gets SS_VER
// from Chip.Version.
var resetValues = [16]uint16{
	regMode:   0x4800,
	regStatus: 0x0008,
}

// Clock supplies the time used for reset delays.
type Clock interface {
	Now() time.Time
}

// Write is one SCI register write seen on the bus.
type Write struct {
	Reg   uint8
	Value uint16
}

// Chip is a simulated VS1053b. The zero value is not usable; call New.
type Chip struct {
	// SoftResetDelay is how long DREQ stays low after SM_RESET.
	SoftResetDelay time.Duration
	// StuckReset keeps DREQ low after SM_RESET until a hardware reset.
	StuckReset bool
	// FillByte is served from the end-fill location in WRAM.
	FillByte byte
	// Version is reported in STATUS[7:4] after a reset. New sets it to 4.
	Version uint8
	// Throttle, in bytes per second, makes DREQ track real playback once a
	// stream is synced. Zero keeps DREQ high. Needs a clock.
	Throttle int

	mu    sync.Mutex
	clock Clock
	regs  [16]uint16

	xcs, xdcs, reset bool // line levels, true is high
	busyUntil        time.Time
	stuck            bool

	sci      []byte
	segment  []byte
	segments [][]byte
	writes   []Write

	window    [4]byte
	synced    bool
	syncAt    time.Time
	streamed  int
	polls     int
	hardReset int
	conflicts int
}

// New returns a chip in its power-up state. clock may be nil, in which case
// soft resets complete immediately.
func New(clock Clock) *Chip {
	c := &Chip{clock: clock, Version: 4, xcs: true, xdcs: true, reset: true}
	c.powerOn()
	return c
}

func (c *Chip) powerOn() {
	c.regs = resetValues
	c.regs[regStatus] |= uint16(c.Version&0xF) << 4
}

func (c *Chip) now() time.Time {
	if c.clock == nil {
		return time.Time{}
	}
	return c.clock.Now()
}

// Tx implements drivers.SPI.
func (c *Chip) Tx(w, r []byte) error {
	for i := range max(len(w), len(r)) {
		var out byte
		if i < len(w) {
			out = w[i]
		}
		in, _ := c.Transfer(out)
		if i < len(r) {
			r[i] = in
		}
	}
	return nil
}

// Transfer implements drivers.SPI.
func (c *Chip) Transfer(b byte) (byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch {
	case !c.xcs:
		return c.sciByte(b), nil
	case !c.xdcs:
		c.segment = append(c.segment, b)
		c.stream(b)
	}
	return 0, nil
}

func (c *Chip) sciByte(b byte) byte {
	idx := len(c.sci)
	c.sci = append(c.sci, b)
	if idx < 2 {
		return 0
	}
	reg := c.sci[1] & 0x0F

	switch c.sci[0] {
	case opRead:
		v := c.readReg(reg)
		if idx == 2 {
			return byte(v >> 8)
		}
		if idx == 3 {
			return byte(v)
		}
	case opWrite:
		if idx == 3 {
			c.writeReg(reg, uint16(c.sci[2])<<8|uint16(b))
		}
	}
	return 0
}

func (c *Chip) readReg(reg uint8) uint16 {
	switch reg {
	case regWRAM:
		if c.regs[regWRAMAddr] == endFillAddr {
			return uint16(c.FillByte)
		}
	case regDecodeTime:
		if c.regs[regDecodeTime] == 0 && c.synced {
			rate := bytesPerSecond
			if c.Throttle > 0 {
				rate = c.Throttle
			}
			return uint16(c.streamed / rate)
		}
	}
	return c.regs[reg]
}

func (c *Chip) writeReg(reg uint8, v uint16) {
	c.writes = append(c.writes, Write{Reg: reg, Value: v})

	switch reg {
	case regMode:
		if v&modeReset != 0 {
			c.softReset()
			return
		}
		if v&modeCancel != 0 {
			v &^= modeCancel
			c.endStream()
		}
	case regDecodeTime:
		c.streamed = 0
	}
	c.regs[reg] = v
}

func (c *Chip) softReset() {
	c.powerOn()
	c.endStream()
	if c.StuckReset {
		c.stuck = true
		return
	}
	c.busyUntil = c.now().Add(c.SoftResetDelay)
}

func (c *Chip) endStream() {
	c.synced = false
	c.streamed = 0
	c.window = [4]byte{}
	c.regs[regHDAT0] = 0
	c.regs[regHDAT1] = 0
}

// stream watches SDI bytes for an MPEG frame sync and latches its header
// into HDAT1 and HDAT0.
func (c *Chip) stream(b byte) {
	if c.synced {
		c.streamed++
		return
	}
	copy(c.window[:], c.window[1:])
	c.window[3] = b
	if c.window[0] != 0xFF || c.window[1]&0xE0 != 0xE0 {
		return
	}
	c.synced = true
	c.syncAt = c.now()
	c.regs[regHDAT1] = uint16(c.window[0])<<8 | uint16(c.window[1])
	c.regs[regHDAT0] = uint16(c.window[2])<<8 | uint16(c.window[3])
	c.regs[regAuData] = 44101
	c.regs[regDecodeTime] = 0
}

func (c *Chip) ready() bool {
	if !c.reset || c.stuck {
		return false
	}
	if c.Throttle > 0 && c.synced && c.clock != nil {
		played := int(c.now().Sub(c.syncAt).Seconds() * float64(c.Throttle))
		if c.streamed > played+fifoBytes {
			return false
		}
	}
	return !c.now().Before(c.busyUntil)
}

func (c *Chip) setXCS(high bool) {
	if !high && !c.xdcs {
		c.conflicts++
	}
	if !high && c.xcs {
		c.sci = c.sci[:0]
	}
	c.xcs = high
}

func (c *Chip) setXDCS(high bool) {
	if !high && !c.xcs {
		c.conflicts++
	}
	switch {
	case !high && c.xdcs:
		c.segment = nil
	case high && !c.xdcs:
		if len(c.segment) > 0 {
			c.segments = append(c.segments, c.segment)
		}
		c.segment = nil
	}
	c.xdcs = high
}

func (c *Chip) setReset(high bool) {
	if high && !c.reset {
		c.hardReset++
		c.powerOn()
		c.stuck = false
		c.busyUntil = time.Time{}
		c.endStream()
	}
	c.reset = high
}
