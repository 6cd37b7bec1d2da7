package vs1053

import (
	"fmt"
	"log/slog"
	"runtime"
	"time"
)

const (
	opWrite byte = 0x02
	opRead  byte = 0x03
)

const (
	hardResetPulse  = 1 * time.Millisecond
	resetPoll       = 3 * time.Microsecond
	softResetBudget = 1000 * time.Microsecond
)

// XTALI assumed when SC_FREQ is zero.
const defaultXTALI = 12_288_000

// clkiTenths maps SC_MULT to the XTALI multiplier in tenths.
var clkiTenths = [8]uint32{10, 20, 25, 30, 35, 40, 45, 50}

// ClockConfig is a decoded SCI_CLOCKF value.
type ClockConfig struct {
	Multiplier uint8  // SC_MULT, bits 15:13
	Adder      uint8  // SC_ADD, bits 12:11
	Freq       uint16 // SC_FREQ, bits 10:0
}

// DecodeClockF splits a CLOCKF register value into its fields.
func DecodeClockF(v uint16) ClockConfig {
	return ClockConfig{
		Multiplier: uint8(v >> 13),
		Adder:      uint8(v>>11) & 0x3,
		Freq:       v & 0x07FF,
	}
}

// XTALI returns the crystal frequency in Hz.
func (c ClockConfig) XTALI() uint32 {
	if c.Freq == 0 {
		return defaultXTALI
	}
	return uint32(c.Freq)*4000 + 8_000_000
}

// CLKI returns the internal (multiplied) clock in Hz.
func (c ClockConfig) CLKI() uint32 {
	return c.XTALI() * clkiTenths[c.Multiplier&0x7] / 10
}

// SettleTime returns how long to wait after writing r, derived from the
// cached CLOCKF value. CLOCKF itself is timed against XTALI, every other
// register against CLKI.
func (d *Device) SettleTime(r Register) time.Duration {
	clk := DecodeClockF(d.regs.Get(RegClockF))
	rate := uint64(clk.CLKI())
	if r == RegClockF {
		rate = uint64(clk.XTALI())
	}
	cycles := uint64(d.regs.Descriptor(r).ClockCycles)
	us := (cycles*1_000_000+rate-1)/rate + 1
	return time.Duration(us) * time.Microsecond
}

// ValidAddress reports whether a lies outside the reserved address bands.
func ValidAddress(a uint16) bool {
	switch {
	case a < 0x1800:
		return false
	case a >= 0x1900 && a < 0x5800:
		return false
	case a >= 0x5900 && a < 0x8040:
		return false
	case a >= 0x8500 && a < 0xC000:
		return false
	}
	return true
}

func (d *Device) waitReady() {
	for !d.cs.Ready() {
		runtime.Gosched()
	}
}

func (d *Device) send(b ...byte) error {
	for _, v := range b {
		if _, err := d.bus.Transfer(v); err != nil {
			return err
		}
	}
	return nil
}

func (d *Device) recv() (byte, error) {
	return d.bus.Transfer(0x00)
}

// Update reads register r from the chip into the cache.
func (d *Device) Update(r Register) error {
	d.waitReady()
	if !d.cs.SelectCommand(true) {
		d.logerr("update: XCS blocked by XDCS", slog.String("reg", r.String()))
		return fmt.Errorf("vs1053: update %s: %w", r, ErrBusConflict)
	}
	defer d.cs.SelectCommand(false)

	if err := d.send(opRead, byte(r)); err != nil {
		return fmt.Errorf("vs1053: update %s: %w", r, err)
	}
	hi, err := d.recv()
	if err != nil {
		return fmt.Errorf("vs1053: update %s: %w", r, err)
	}
	lo, err := d.recv()
	if err != nil {
		return fmt.Errorf("vs1053: update %s: %w", r, err)
	}
	d.regs.Set(r, uint16(hi)<<8|uint16(lo))
	return nil
}

// Commit writes the cached value of r to the chip and waits for it to
// settle.
func (d *Device) Commit(r Register) error {
	if !d.regs.Descriptor(r).Writable {
		d.logerr("commit: read-only register", slog.String("reg", r.String()))
		return fmt.Errorf("vs1053: commit %s: %w", r, ErrReadOnly)
	}

	d.waitReady()
	if !d.cs.SelectCommand(true) {
		d.logerr("commit: XCS blocked by XDCS", slog.String("reg", r.String()))
		return fmt.Errorf("vs1053: commit %s: %w", r, ErrBusConflict)
	}
	v := d.regs.Get(r)
	err := d.send(opWrite, byte(r), byte(v>>8), byte(v))
	d.cs.SelectCommand(false)
	if err != nil {
		return fmt.Errorf("vs1053: commit %s: %w", r, err)
	}

	d.clock.Delay(d.SettleTime(r))
	return nil
}

// HardReset pulses XRESET and waits, without limit, for DREQ.
func (d *Device) HardReset() {
	d.reset.Set(false)
	d.clock.Sleep(hardResetPulse)
	d.reset.Set(true)

	for !d.cs.Ready() {
		d.clock.Delay(resetPoll)
	}
	d.regs.Reset()
}

// SoftReset sets SM_RESET and waits up to 1 ms for DREQ. On timeout it
// falls back to HardReset and returns ErrResetTimeout; on success it
// re-applies the default registers.
func (d *Device) SoftReset() error {
	if err := d.Update(RegMode); err != nil {
		return err
	}
	d.regs.SetBits(RegMode, ModeReset)
	if err := d.Commit(RegMode); err != nil {
		return err
	}

	var elapsed time.Duration
	for !d.cs.Ready() {
		d.clock.Delay(resetPoll)
		elapsed += resetPoll
		if elapsed > softResetBudget {
			d.logerr("soft reset: DREQ stuck low, hard reset", slog.Duration("waited", elapsed))
			d.HardReset()
			return fmt.Errorf("vs1053: %w", ErrResetTimeout)
		}
	}

	// SM_RESET clears itself on the chip.
	return d.SystemInit()
}
