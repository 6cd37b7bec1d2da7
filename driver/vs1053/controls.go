package vs1053

import (
	"fmt"
	"log/slog"
)

// EarSpeaker selects the spatial processing level.
type EarSpeaker uint8

const (
	EarSpeakerOff EarSpeaker = iota
	EarSpeakerMinimal
	EarSpeakerNormal
	EarSpeakerExtreme
)

func (e EarSpeaker) String() string {
	switch e {
	case EarSpeakerOff:
		return "off"
	case EarSpeakerMinimal:
		return "minimal"
	case EarSpeakerNormal:
		return "normal"
	case EarSpeakerExtreme:
		return "extreme"
	default:
		return "unknown"
	}
}

// Values written while in low power mode.
const (
	lowPowerAuData = 0x0010
	silentVolume   = 0xFFFF
	clockFreqMask  = 0x07FF
)

// savedPower holds what SetLowPowerMode overwrote.
type savedPower struct {
	clockF  uint16
	auData  uint16
	volume  uint16
	earMode EarSpeaker
}

// SetVolume sets the left and right attenuation in 0.5 dB steps. 0 is
// loudest, 0xFE is silent.
func (d *Device) SetVolume(left, right uint8) error {
	return d.setVolume(uint16(left)<<8 | uint16(right))
}

func (d *Device) setVolume(v uint16) error {
	d.regs.Set(RegVolume, v)
	return d.Commit(RegVolume)
}

// Volume returns the cached left and right attenuation.
func (d *Device) Volume() (left, right uint8) {
	v := d.regs.Get(RegVolume)
	return uint8(v >> 8), uint8(v)
}

func toneNibbles(amplitude, freqLimit uint8) uint16 {
	amplitude = min(amplitude, 0xF)
	freqLimit = min(freqLimit, 0xF)
	return uint16(amplitude)<<4 | uint16(freqLimit)
}

// SetBassEnhancement sets the bass boost amplitude (dB) and its lower limit
// frequency (10 Hz steps). Both are clamped to 0xF. Zero amplitude turns the
// enhancer off. The tone fields live in SCI_BASS; SCI_STATUS is not touched.
func (d *Device) SetBassEnhancement(amplitude, freqLimit uint8) error {
	if err := d.Update(RegBass); err != nil {
		return err
	}
	d.regs.ClearBits(RegBass, 0x00FF)
	d.regs.SetBits(RegBass, toneNibbles(amplitude, freqLimit))
	return d.Commit(RegBass)
}

// SetTrebleControl sets the treble amplitude (1.5 dB steps) and its lower
// limit frequency (kHz). Both are clamped to 0xF.
func (d *Device) SetTrebleControl(amplitude, freqLimit uint8) error {
	if err := d.Update(RegBass); err != nil {
		return err
	}
	d.regs.ClearBits(RegBass, 0xFF00)
	d.regs.SetBits(RegBass, toneNibbles(amplitude, freqLimit)<<8)
	return d.Commit(RegBass)
}

func (d *Device) setModeBits(mask uint16, on bool) error {
	if err := d.Update(RegMode); err != nil {
		return err
	}
	if on {
		d.regs.SetBits(RegMode, mask)
	} else {
		d.regs.ClearBits(RegMode, mask)
	}
	return d.Commit(RegMode)
}

// SetEarSpeaker maps mode onto SM_EARSPEAKER_LO and SM_EARSPEAKER_HI.
func (d *Device) SetEarSpeaker(mode EarSpeaker) error {
	if err := d.Update(RegMode); err != nil {
		return err
	}
	d.regs.ClearBits(RegMode, ModeEarSpeakerLo|ModeEarSpeakerHi)
	if mode&1 != 0 {
		d.regs.SetBits(RegMode, ModeEarSpeakerLo)
	}
	if mode&2 != 0 {
		d.regs.SetBits(RegMode, ModeEarSpeakerHi)
	}
	return d.Commit(RegMode)
}

// EarSpeaker returns the mode held in the cached MODE register.
func (d *Device) EarSpeaker() EarSpeaker {
	m := d.regs.Get(RegMode)
	var e EarSpeaker
	if m&ModeEarSpeakerLo != 0 {
		e |= 1
	}
	if m&ModeEarSpeakerHi != 0 {
		e |= 2
	}
	return e
}

// SetStreamMode toggles SM_STREAM.
func (d *Device) SetStreamMode(on bool) error {
	return d.setModeBits(ModeStream, on)
}

// SetClockDivider toggles SM_CLK_RANGE, which halves XTALI for 24-26 MHz
// crystals.
func (d *Device) SetClockDivider(on bool) error {
	return d.setModeBits(ModeClkRange, on)
}

// CancelDecoding asks the chip to drop the current stream. The chip clears
// SM_CANCEL itself once it has.
func (d *Device) CancelDecoding() error {
	return d.setModeBits(ModeCancel, true)
}

// Status reads and returns SCI_STATUS.
func (d *Device) Status() (uint16, error) {
	if err := d.Update(RegStatus); err != nil {
		return 0, err
	}
	return d.regs.Get(RegStatus), nil
}

// DecodeTime reads the seconds decoded so far.
func (d *Device) DecodeTime() (uint16, error) {
	if err := d.Update(RegDecodeTime); err != nil {
		return 0, err
	}
	return d.regs.Get(RegDecodeTime), nil
}

// ResetDecodeTime zeroes DECODE_TIME. The chip wants the write twice.
func (d *Device) ResetDecodeTime() error {
	for i := 0; i < 2; i++ {
		d.regs.Set(RegDecodeTime, 0)
		if err := d.Commit(RegDecodeTime); err != nil {
			return err
		}
	}
	return nil
}

// SampleRate reads AUDATA and returns the sample rate in Hz. Bit 0 carries
// the stereo flag.
func (d *Device) SampleRate() (uint16, error) {
	if err := d.Update(RegAuData); err != nil {
		return 0, err
	}
	return DecodeSampleRate(d.regs.Get(RegAuData)), nil
}

// DecodeSampleRate strips the stereo flag from an AUDATA value.
func DecodeSampleRate(v uint16) uint16 {
	if v&1 == 1 {
		return v - 1
	}
	return v
}

// SetLowPowerMode slows the clock and mutes the outputs, or restores what
// was there before. Calling it with the current state does nothing.
func (d *Device) SetLowPowerMode(on bool) error {
	if on == d.status.LowPower {
		return nil
	}
	if on {
		return d.enterLowPower()
	}
	return d.leaveLowPower()
}

func (d *Device) enterLowPower() error {
	d.saved = savedPower{
		clockF:  d.regs.Get(RegClockF),
		auData:  d.regs.Get(RegAuData),
		volume:  d.regs.Get(RegVolume),
		earMode: d.EarSpeaker(),
	}

	d.regs.Set(RegClockF, d.saved.clockF&clockFreqMask)
	if err := d.Commit(RegClockF); err != nil {
		return fmt.Errorf("vs1053: low power: %w", err)
	}
	d.regs.Set(RegAuData, lowPowerAuData)
	if err := d.Commit(RegAuData); err != nil {
		return fmt.Errorf("vs1053: low power: %w", err)
	}
	if err := d.SetEarSpeaker(EarSpeakerOff); err != nil {
		return fmt.Errorf("vs1053: low power: %w", err)
	}
	if err := d.setVolume(silentVolume); err != nil {
		return fmt.Errorf("vs1053: low power: %w", err)
	}

	d.status.LowPower = true
	d.debug("low power on")
	return nil
}

func (d *Device) leaveLowPower() error {
	if err := d.setVolume(d.saved.volume); err != nil {
		return fmt.Errorf("vs1053: low power off: %w", err)
	}
	if err := d.SetEarSpeaker(d.saved.earMode); err != nil {
		return fmt.Errorf("vs1053: low power off: %w", err)
	}
	d.regs.Set(RegAuData, d.saved.auData)
	if err := d.Commit(RegAuData); err != nil {
		return fmt.Errorf("vs1053: low power off: %w", err)
	}
	d.regs.Set(RegClockF, d.saved.clockF)
	if err := d.Commit(RegClockF); err != nil {
		return fmt.Errorf("vs1053: low power off: %w", err)
	}

	d.status.LowPower = false
	d.debug("low power off", slog.Uint64("clockf", uint64(d.saved.clockF)))
	return nil
}
