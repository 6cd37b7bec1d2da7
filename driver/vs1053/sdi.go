package vs1053

import (
	"fmt"
	"log/slog"
	"time"
)

// chunkSize is the most the chip accepts after one DREQ check.
const chunkSize = 32

const (
	// PaddingBytes of end-fill mark the end of a stream.
	PaddingBytes = 2052
	drainDelay   = 50 * time.Millisecond
	endFillAddr  = 0x1E06
)

func (d *Device) checkTransfer(op string, addr uint16, n int) error {
	if n == 0 {
		return fmt.Errorf("vs1053: %s: %w", op, ErrEmpty)
	}
	if !ValidAddress(addr) {
		d.logerr(op+": invalid address", slog.Uint64("addr", uint64(addr)))
		return fmt.Errorf("vs1053: %s %#04x: %w", op, addr, ErrInvalidAddress)
	}
	return nil
}

func (d *Device) selectData(op string) error {
	d.waitReady()
	if !d.cs.SelectData(true) {
		d.logerr(op+": XDCS blocked by XCS")
		return fmt.Errorf("vs1053: %s: %w", op, ErrBusConflict)
	}
	return nil
}

// resync toggles XDCS and waits for DREQ before the next 32 bytes.
func (d *Device) resync() {
	d.cs.SelectData(false)
	d.cs.SelectData(true)
	d.waitReady()
}

// TransferOut streams p to the data interface at addr. Every 32 bytes the
// transfer re-frames XDCS and waits for DREQ. Nothing is sent when addr is
// reserved or p is empty.
func (d *Device) TransferOut(addr uint16, p []byte) error {
	if err := d.checkTransfer("transfer out", addr, len(p)); err != nil {
		return err
	}
	if err := d.selectData("transfer out"); err != nil {
		return err
	}
	defer d.cs.SelectData(false)

	if err := d.send(opWrite, byte(addr)); err != nil {
		return fmt.Errorf("vs1053: transfer out: %w", err)
	}
	for i, b := range p {
		if i > 0 && i%chunkSize == 0 {
			d.resync()
		}
		if err := d.send(b); err != nil {
			return fmt.Errorf("vs1053: transfer out at %d: %w", i, err)
		}
	}
	return nil
}

// TransferIn reads len(buf) bytes from the data interface at addr, with the
// same 32-byte flow control as TransferOut.
func (d *Device) TransferIn(addr uint16, buf []byte) error {
	if err := d.checkTransfer("transfer in", addr, len(buf)); err != nil {
		return err
	}
	clear(buf)
	if err := d.selectData("transfer in"); err != nil {
		return err
	}
	defer d.cs.SelectData(false)

	if err := d.send(opRead, byte(addr)); err != nil {
		return fmt.Errorf("vs1053: transfer in: %w", err)
	}
	for i := range buf {
		if i > 0 && i%chunkSize == 0 {
			d.resync()
		}
		b, err := d.recv()
		if err != nil {
			return fmt.Errorf("vs1053: transfer in at %d: %w", i, err)
		}
		buf[i] = b
	}
	return nil
}

// FillByte reads the end-fill byte from chip RAM.
func (d *Device) FillByte() (byte, error) {
	d.regs.Set(RegWRAMAddr, endFillAddr)
	if err := d.Commit(RegWRAMAddr); err != nil {
		return 0, err
	}
	if err := d.Update(RegWRAM); err != nil {
		return 0, err
	}
	return byte(d.regs.Get(RegWRAM)), nil
}

// SendPadding streams size copies of the end-fill byte in 32-byte
// transfers starting at addr.
func (d *Device) SendPadding(addr uint16, size int) error {
	if !paddingRangeValid(addr, size) {
		d.logerr("padding: invalid address", slog.Uint64("addr", uint64(addr)), slog.Int("size", size))
		return fmt.Errorf("vs1053: padding %#04x+%d: %w", addr, size, ErrInvalidAddress)
	}
	fill, err := d.FillByte()
	if err != nil {
		return err
	}

	var chunk [chunkSize]byte
	for i := range chunk {
		chunk[i] = fill
	}

	full, rem := size/chunkSize, size%chunkSize
	for i := 0; i < full; i++ {
		if err := d.TransferOut(addr+uint16(i*chunkSize), chunk[:]); err != nil {
			return err
		}
	}
	if rem > 0 {
		if err := d.TransferOut(addr+uint16(full*chunkSize), chunk[:rem]); err != nil {
			return err
		}
	}
	return nil
}

// paddingRangeValid reports whether every chunk of a size-byte padding run
// at addr starts on a valid address without wrapping past 0xFFFF.
func paddingRangeValid(addr uint16, size int) bool {
	if size > 0 && int(addr)+size-1 > 0xFFFF {
		return false
	}
	for off := 0; off == 0 || off < size; off += chunkSize {
		if !ValidAddress(addr + uint16(off)) {
			return false
		}
	}
	return true
}

// BeginPlayback sends the two-byte zero preamble and marks the device as
// playing.
func (d *Device) BeginPlayback() error {
	if err := d.TransferOut(d.streamAddr, []byte{0x00, 0x00}); err != nil {
		return err
	}
	d.status.Playing = true
	return nil
}

// Feed streams a segment of the current track.
func (d *Device) Feed(p []byte) error {
	return d.TransferOut(d.streamAddr, p)
}

// EndPlayback sends the end-fill padding, waits for the chip to drain and
// marks the device as not playing.
func (d *Device) EndPlayback() error {
	err := d.SendPadding(d.streamAddr, PaddingBytes)
	d.clock.Sleep(drainDelay)
	d.status.Playing = false
	return err
}

// StartPlayback plays a whole track held in memory and returns once it has
// drained.
func (d *Device) StartPlayback(track []byte) error {
	if len(track) == 0 {
		return fmt.Errorf("vs1053: playback: %w", ErrEmpty)
	}
	if err := d.BeginPlayback(); err != nil {
		return err
	}
	if err := d.Feed(track); err != nil {
		d.status.Playing = false
		return err
	}
	return d.EndPlayback()
}
