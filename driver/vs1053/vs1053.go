// Package vs1053 drives a VS1053b audio decoder over SPI.
//
// The chip exposes two interfaces on one bus: SCI (registers, framed by XCS)
// and SDI (stream data, framed by XDCS). DREQ tells the host when the chip can
// take more bytes. The driver is not safe for concurrent use; a single task
// should own a Device.
package vs1053

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"tinygo.org/x/drivers"
)

var (
	// ErrBusConflict is returned when a select line cannot be activated
	// because the other one is active.
	ErrBusConflict = errors.New("select line conflict")
	// ErrInvalidAddress is returned for addresses in a reserved band.
	ErrInvalidAddress = errors.New("invalid address")
	// ErrReadOnly is returned when committing a register the chip does not
	// accept writes for.
	ErrReadOnly = errors.New("register is read-only")
	// ErrEmpty is returned for zero-length transfers.
	ErrEmpty = errors.New("empty transfer")
	// ErrResetTimeout is returned when a soft reset did not complete in time
	// and the driver fell back to a hardware reset.
	ErrResetTimeout = errors.New("soft reset timeout")
	// ErrUnknownVersion is returned by Configure when STATUS reports a chip
	// other than a VS1053.
	ErrUnknownVersion = errors.New("unknown chip version")
)

// VersionVS1053 is the SS_VER value in STATUS[7:4].
const VersionVS1053 = 4

// DefaultStreamAddress is the SDI header address used for playback.
const DefaultStreamAddress uint16 = 0xC000

// Defaults are the register values applied by SystemInit.
type Defaults struct {
	Mode   uint16
	Bass   uint16
	ClockF uint16
	Volume uint16
}

// DefaultRegisters: native SDI mode with layer I/II enabled, tone controls
// off, 3.5x clock, volume silent.
var DefaultRegisters = Defaults{
	Mode:   ModeSDINew | ModeLayer12,
	Bass:   0x0000,
	ClockF: 0x9000,
	Volume: 0xFEFE,
}

// Config wires a Device to its bus and lines.
type Config struct {
	Bus   drivers.SPI
	Reset Pin
	XCS   Pin
	XDCS  Pin
	DREQ  Pin

	// Clock defaults to SystemClock.
	Clock Clock
	// Logger defaults to a discarding logger.
	Logger *slog.Logger

	// StreamAddress defaults to DefaultStreamAddress.
	StreamAddress uint16
	// Defaults defaults to DefaultRegisters.
	Defaults *Defaults
}

// PowerStatus reports the power and playback state tracked by the driver.
type PowerStatus struct {
	LowPower bool
	Playing  bool
}

// Device is a VS1053b on an SPI bus.
type Device struct {
	bus   drivers.SPI
	reset Pin
	cs    *ChipSelect
	clock Clock
	log   *slog.Logger
	regs  *RegisterFile

	streamAddr uint16
	defaults   Defaults

	header Header
	status PowerStatus
	saved  savedPower
}

// New returns a Device. It does not touch the chip beyond parking the select
// lines; call Configure to bring it up.
func New(cfg Config) *Device {
	d := &Device{
		bus:        cfg.Bus,
		reset:      cfg.Reset,
		cs:         NewChipSelect(cfg.XCS, cfg.XDCS, cfg.DREQ),
		clock:      cfg.Clock,
		log:        cfg.Logger,
		regs:       NewRegisterFile(),
		streamAddr: cfg.StreamAddress,
		defaults:   DefaultRegisters,
	}
	if d.clock == nil {
		d.clock = SystemClock{}
	}
	if d.log == nil {
		d.log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if d.streamAddr == 0 {
		d.streamAddr = DefaultStreamAddress
	}
	if cfg.Defaults != nil {
		d.defaults = *cfg.Defaults
	}
	return d
}

// Registers returns the register cache. Changes made through it reach the
// chip on the next Commit of the same register.
func (d *Device) Registers() *RegisterFile { return d.regs }

// ChipSelect returns the select-line controller.
func (d *Device) ChipSelect() *ChipSelect { return d.cs }

// PowerStatus returns the current power and playback flags.
func (d *Device) PowerStatus() PowerStatus { return d.status }

// Configure hardware-resets the chip, applies the default registers, reads
// back the full register file and checks the chip version.
func (d *Device) Configure() error {
	d.cs.SelectCommand(false)
	d.cs.SelectData(false)
	d.HardReset()

	if err := d.SystemInit(); err != nil {
		return err
	}
	if err := d.RefreshRegisters(); err != nil {
		return err
	}

	version := (d.regs.Get(RegStatus) >> 4) & 0x0F
	if version != VersionVS1053 {
		d.logerr("configure: unexpected version", slog.Uint64("version", uint64(version)))
		return fmt.Errorf("vs1053: version %d: %w", version, ErrUnknownVersion)
	}
	d.debug("configured", slog.Uint64("version", uint64(version)))
	return nil
}

// SystemInit writes the default MODE, BASS, CLOCKF and VOL values.
func (d *Device) SystemInit() error {
	d.regs.Set(RegMode, d.defaults.Mode)
	d.regs.Set(RegBass, d.defaults.Bass)
	d.regs.Set(RegClockF, d.defaults.ClockF)
	d.regs.Set(RegVolume, d.defaults.Volume)

	for _, r := range [...]Register{RegMode, RegBass, RegClockF, RegVolume} {
		if err := d.Commit(r); err != nil {
			return fmt.Errorf("vs1053: system init: %w", err)
		}
	}
	return nil
}

// RefreshRegisters reads every register into the cache.
func (d *Device) RefreshRegisters() error {
	for r := Register(0); r < NumRegisters; r++ {
		if err := d.Update(r); err != nil {
			return err
		}
	}
	return nil
}

func (d *Device) debug(msg string, attrs ...slog.Attr) {
	d.log.LogAttrs(context.Background(), slog.LevelDebug, msg, attrs...)
}

func (d *Device) logerr(msg string, attrs ...slog.Attr) {
	d.log.LogAttrs(context.Background(), slog.LevelError, msg, attrs...)
}
