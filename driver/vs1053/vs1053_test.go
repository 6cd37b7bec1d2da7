package vs1053

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"jukebox/driver/vs1053/vs1053sim"
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time          { return c.now }
func (c *fakeClock) Delay(d time.Duration)   { c.now = c.now.Add(d) }
func (c *fakeClock) Sleep(d time.Duration)   { c.now = c.now.Add(d) }
func (c *fakeClock) since(t time.Time) int64 { return int64(c.now.Sub(t) / time.Microsecond) }

func newTestDevice(t *testing.T) (*Device, *vs1053sim.Chip, *fakeClock) {
	t.Helper()

	clk := &fakeClock{now: time.Unix(0, 0)}
	chip := vs1053sim.New(clk)
	d := New(Config{
		Bus:   chip,
		Reset: chip.Reset(),
		XCS:   chip.XCS(),
		XDCS:  chip.XDCS(),
		DREQ:  chip.DREQ(),
		Clock: clk,
	})
	if err := d.Configure(); err != nil {
		t.Fatalf("Configure() err = %v", err)
	}
	chip.ClearLog()
	return d, chip, clk
}

func writesTo(ws []vs1053sim.Write) []Register {
	regs := make([]Register, 0, len(ws))
	for _, w := range ws {
		regs = append(regs, Register(w.Reg))
	}
	return regs
}

func TestConfigureAppliesDefaults(t *testing.T) {
	d, chip, _ := newTestDevice(t)

	if got := chip.Reg(uint8(RegMode)); got != DefaultRegisters.Mode {
		t.Fatalf("MODE = %#04x, want %#04x", got, DefaultRegisters.Mode)
	}
	if got := chip.Reg(uint8(RegClockF)); got != DefaultRegisters.ClockF {
		t.Fatalf("CLOCKF = %#04x, want %#04x", got, DefaultRegisters.ClockF)
	}
	if got := d.Registers().Get(RegVolume); got != DefaultRegisters.Volume {
		t.Fatalf("cached VOL = %#04x, want %#04x", got, DefaultRegisters.Volume)
	}
	if chip.Conflicts() != 0 {
		t.Fatalf("select conflicts = %d, want 0", chip.Conflicts())
	}
}

func TestConfigureRejectsUnknownVersion(t *testing.T) {
	clk := &fakeClock{}
	chip := vs1053sim.New(clk)
	chip.Version = 3
	d := New(Config{Bus: chip, Reset: chip.Reset(), XCS: chip.XCS(), XDCS: chip.XDCS(), DREQ: chip.DREQ(), Clock: clk})

	if err := d.Configure(); !errors.Is(err, ErrUnknownVersion) {
		t.Fatalf("Configure() err = %v, want ErrUnknownVersion", err)
	}
}

func TestChipSelectConflict(t *testing.T) {
	xcs, xdcs, dreq := &testPin{}, &testPin{}, &testPin{high: true}
	cs := NewChipSelect(xcs, xdcs, dreq)

	if !xcs.high || !xdcs.high {
		t.Fatalf("lines not parked high: xcs=%v xdcs=%v", xcs.high, xdcs.high)
	}
	if !cs.SelectCommand(true) {
		t.Fatalf("SelectCommand(true) = false, want true")
	}
	if cs.SelectData(true) {
		t.Fatalf("SelectData(true) with XCS active = true, want false")
	}
	if !cs.CommandSelected() || cs.DataSelected() {
		t.Fatalf("state changed after failed select: cmd=%v data=%v", cs.CommandSelected(), cs.DataSelected())
	}
	if xcs.high || !xdcs.high {
		t.Fatalf("pins changed after failed select: xcs=%v xdcs=%v", xcs.high, xdcs.high)
	}
	if !cs.SelectData(false) {
		t.Fatalf("SelectData(false) = false, want true")
	}
	if !cs.SelectCommand(false) {
		t.Fatalf("SelectCommand(false) = false, want true")
	}

	if !cs.SelectData(true) {
		t.Fatalf("SelectData(true) = false, want true")
	}
	if cs.SelectCommand(true) {
		t.Fatalf("SelectCommand(true) with XDCS active = true, want false")
	}
	if cs.CommandSelected() || !cs.DataSelected() {
		t.Fatalf("state changed after failed select: cmd=%v data=%v", cs.CommandSelected(), cs.DataSelected())
	}

	dreq.high = false
	if cs.Ready() {
		t.Fatalf("Ready() = true with DREQ low")
	}
}

type testPin struct{ high bool }

func (p *testPin) Get() bool     { return p.high }
func (p *testPin) Set(high bool) { p.high = high }

func TestValidAddress(t *testing.T) {
	tests := []struct {
		addr uint16
		want bool
	}{
		{0x0000, false},
		{0x17FF, false},
		{0x1800, true},
		{0x18FF, true},
		{0x1900, false},
		{0x57FF, false},
		{0x5800, true},
		{0x58FF, true},
		{0x5900, false},
		{0x803F, false},
		{0x8040, true},
		{0x84FF, true},
		{0x8500, false},
		{0xBFFF, false},
		{0xC000, true},
		{0xFFFF, true},
	}
	for _, tt := range tests {
		if got := ValidAddress(tt.addr); got != tt.want {
			t.Errorf("ValidAddress(%#04x) = %v, want %v", tt.addr, got, tt.want)
		}
	}
}

func TestSettleTime(t *testing.T) {
	d, _, _ := newTestDevice(t)

	tests := []struct {
		clockf uint16
		reg    Register
		want   time.Duration
	}{
		{0x9000, RegMode, 3 * time.Microsecond},
		{0x9000, RegClockF, 99 * time.Microsecond},
		{0x9000, RegAuData, 12 * time.Microsecond},
		{0x0000, RegMode, 8 * time.Microsecond},
	}
	for _, tt := range tests {
		d.Registers().Set(RegClockF, tt.clockf)
		if got := d.SettleTime(tt.reg); got != tt.want {
			t.Errorf("SettleTime(%s) with CLOCKF=%#04x = %v, want %v", tt.reg, tt.clockf, got, tt.want)
		}
	}
}

func TestClockConfig(t *testing.T) {
	tests := []struct {
		clockf      uint16
		xtali, clki uint32
	}{
		{0x0000, 12_288_000, 12_288_000},
		{0x9000, 12_288_000, 43_008_000},
		{0x9800, 12_288_000, 43_008_000}, // SC_ADD does not count
		{0x0001, 8_004_000, 8_004_000},
		{0xE000, 12_288_000, 61_440_000},
	}
	for _, tt := range tests {
		c := DecodeClockF(tt.clockf)
		if got := c.XTALI(); got != tt.xtali {
			t.Errorf("DecodeClockF(%#04x).XTALI() = %d, want %d", tt.clockf, got, tt.xtali)
		}
		if got := c.CLKI(); got != tt.clki {
			t.Errorf("DecodeClockF(%#04x).CLKI() = %d, want %d", tt.clockf, got, tt.clki)
		}
	}
}

func TestCommitWaitsSettleTime(t *testing.T) {
	d, _, clk := newTestDevice(t)

	start := clk.now
	d.Registers().Set(RegVolume, 0x2020)
	if err := d.Commit(RegVolume); err != nil {
		t.Fatalf("Commit() err = %v", err)
	}
	if got := clk.since(start); got != 3 {
		t.Fatalf("Commit() waited %dus, want 3us", got)
	}
}

func TestCommitReadOnly(t *testing.T) {
	d, chip, _ := newTestDevice(t)

	before := d.Registers().Get(RegHDAT0)
	err := d.Commit(RegHDAT0)
	if !errors.Is(err, ErrReadOnly) {
		t.Fatalf("Commit(HDAT0) err = %v, want ErrReadOnly", err)
	}
	if got := d.Registers().Get(RegHDAT0); got != before {
		t.Fatalf("HDAT0 cache = %#04x, want %#04x", got, before)
	}
	if n := len(chip.Writes()); n != 0 {
		t.Fatalf("bus writes = %d, want 0", n)
	}
	if n := chip.ReadyPolls(); n != 0 {
		t.Fatalf("DREQ polls = %d, want 0", n)
	}
}

func TestTransferOutResync(t *testing.T) {
	d, chip, _ := newTestDevice(t)

	payload := bytes.Repeat([]byte{0x55}, 65)
	if err := d.TransferOut(0xC000, payload); err != nil {
		t.Fatalf("TransferOut() err = %v", err)
	}

	// One wait before the header, one at index 32, one at 64.
	if got := chip.ReadyPolls(); got != 3 {
		t.Fatalf("DREQ polls = %d, want 3", got)
	}
	segs := chip.Segments()
	if len(segs) != 3 {
		t.Fatalf("segments = %d, want 3", len(segs))
	}
	if got := []int{len(segs[0]), len(segs[1]), len(segs[2])}; got[0] != 34 || got[1] != 32 || got[2] != 1 {
		t.Fatalf("segment sizes = %v, want [34 32 1]", got)
	}
	if segs[0][0] != opWrite || segs[0][1] != 0x00 {
		t.Fatalf("header = % x, want 02 00", segs[0][:2])
	}
	if d.ChipSelect().DataSelected() {
		t.Fatalf("XDCS left selected")
	}
}

func TestTransferRejects(t *testing.T) {
	d, chip, _ := newTestDevice(t)

	if err := d.TransferOut(0x0100, []byte{1}); !errors.Is(err, ErrInvalidAddress) {
		t.Fatalf("TransferOut(0x0100) err = %v, want ErrInvalidAddress", err)
	}
	if err := d.TransferOut(0xC000, nil); !errors.Is(err, ErrEmpty) {
		t.Fatalf("TransferOut(nil) err = %v, want ErrEmpty", err)
	}
	if err := d.TransferIn(0xC000, nil); !errors.Is(err, ErrEmpty) {
		t.Fatalf("TransferIn(nil) err = %v, want ErrEmpty", err)
	}
	if err := d.TransferIn(0x8600, make([]byte, 4)); !errors.Is(err, ErrInvalidAddress) {
		t.Fatalf("TransferIn(0x8600) err = %v, want ErrInvalidAddress", err)
	}
	if n := len(chip.Segments()); n != 0 {
		t.Fatalf("segments = %d, want 0", n)
	}
	if n := chip.ReadyPolls(); n != 0 {
		t.Fatalf("DREQ polls = %d, want 0", n)
	}
}

func TestTransferBlockedByCommandSelect(t *testing.T) {
	d, chip, _ := newTestDevice(t)

	d.ChipSelect().SelectCommand(true)
	err := d.TransferOut(0xC000, []byte{1, 2})
	d.ChipSelect().SelectCommand(false)

	if !errors.Is(err, ErrBusConflict) {
		t.Fatalf("TransferOut() err = %v, want ErrBusConflict", err)
	}
	if chip.Conflicts() != 0 {
		t.Fatalf("select conflicts on bus = %d, want 0", chip.Conflicts())
	}
}

func TestSendPadding(t *testing.T) {
	d, chip, _ := newTestDevice(t)
	chip.FillByte = 0xAA

	if err := d.SendPadding(0x1800, 100); err != nil {
		t.Fatalf("SendPadding() err = %v", err)
	}

	segs := chip.Segments()
	if len(segs) != 4 {
		t.Fatalf("transfers = %d, want 4", len(segs))
	}
	wantLen := []int{32, 32, 32, 4}
	wantAddr := []byte{0x00, 0x20, 0x40, 0x60}
	for i, seg := range segs {
		if seg[1] != wantAddr[i] {
			t.Errorf("transfer %d address low byte = %#02x, want %#02x", i, seg[1], wantAddr[i])
		}
		data := seg[2:]
		if len(data) != wantLen[i] {
			t.Errorf("transfer %d size = %d, want %d", i, len(data), wantLen[i])
		}
		if !bytes.Equal(data, bytes.Repeat([]byte{0xAA}, len(data))) {
			t.Errorf("transfer %d data = % x, want fill byte", i, data)
		}
	}

	if err := d.SendPadding(0x2000, 10); !errors.Is(err, ErrInvalidAddress) {
		t.Fatalf("SendPadding(0x2000) err = %v, want ErrInvalidAddress", err)
	}
}

func TestSendPaddingRejectsWholeRange(t *testing.T) {
	tests := []struct {
		name string
		addr uint16
		size int
	}{
		{"wraps past 0xffff", 0xFFE0, 64},
		{"last byte past 0xffff", 0xFFF0, 17},
		{"later chunk in reserved band", 0x18E0, 64},
		{"start in reserved band", 0x2000, 10},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, chip, _ := newTestDevice(t)
			err := d.SendPadding(tt.addr, tt.size)
			if !errors.Is(err, ErrInvalidAddress) {
				t.Fatalf("SendPadding(%#04x, %d) err = %v, want ErrInvalidAddress", tt.addr, tt.size, err)
			}
			if n := len(chip.Segments()); n != 0 {
				t.Fatalf("transfers = %d, want 0", n)
			}
			if n := len(chip.Writes()); n != 0 {
				t.Fatalf("register writes = %d, want 0", n)
			}
		})
	}

	d, chip, _ := newTestDevice(t)
	if err := d.SendPadding(0xFFE0, 32); err != nil {
		t.Fatalf("SendPadding(0xffe0, 32) err = %v", err)
	}
	if n := len(chip.Segments()); n != 1 {
		t.Fatalf("transfers = %d, want 1", n)
	}
}

func TestHardResetReloadsCache(t *testing.T) {
	d, _, _ := newTestDevice(t)
	if err := d.SetVolume(0x10, 0x10); err != nil {
		t.Fatalf("SetVolume() err = %v", err)
	}
	status := d.PowerStatus()

	d.HardReset()

	for _, r := range []Register{RegMode, RegBass, RegClockF, RegVolume} {
		want := d.Registers().Descriptor(r).Reset
		if got := d.Registers().Get(r); got != want {
			t.Errorf("%s after HardReset = %#04x, want reset value %#04x", r, got, want)
		}
	}
	if got := d.PowerStatus(); got != status {
		t.Fatalf("PowerStatus() = %+v, want %+v", got, status)
	}
}

func TestSoftResetTimeout(t *testing.T) {
	d, chip, _ := newTestDevice(t)
	chip.StuckReset = true
	before := chip.HardResets()

	err := d.SoftReset()
	if !errors.Is(err, ErrResetTimeout) {
		t.Fatalf("SoftReset() err = %v, want ErrResetTimeout", err)
	}
	if got := chip.HardResets() - before; got != 1 {
		t.Fatalf("hard resets = %d, want 1", got)
	}
}

func TestSoftResetRecovers(t *testing.T) {
	d, chip, clk := newTestDevice(t)
	chip.SoftResetDelay = 900 * time.Microsecond
	before := chip.HardResets()
	start := clk.now

	if err := d.SoftReset(); err != nil {
		t.Fatalf("SoftReset() err = %v", err)
	}
	if chip.HardResets() != before {
		t.Fatalf("hard reset issued on successful soft reset")
	}
	if waited := clk.since(start); waited < 900 || waited > 1200 {
		t.Fatalf("SoftReset() took %dus, want about 900us", waited)
	}

	want := map[Register]uint16{
		RegMode:   DefaultRegisters.Mode,
		RegBass:   DefaultRegisters.Bass,
		RegClockF: DefaultRegisters.ClockF,
		RegVolume: DefaultRegisters.Volume,
	}
	for r, v := range want {
		if got := chip.Reg(uint8(r)); got != v {
			t.Errorf("%s = %#04x, want %#04x", r, got, v)
		}
	}
}

func TestLowPowerMode(t *testing.T) {
	d, chip, _ := newTestDevice(t)
	if err := d.SetEarSpeaker(EarSpeakerNormal); err != nil {
		t.Fatalf("SetEarSpeaker() err = %v", err)
	}
	chip.ClearLog()

	if err := d.SetLowPowerMode(true); err != nil {
		t.Fatalf("SetLowPowerMode(true) err = %v", err)
	}
	enter := writesTo(chip.Writes())
	want := []Register{RegClockF, RegAuData, RegMode, RegVolume}
	if len(enter) != len(want) {
		t.Fatalf("enter writes = %v, want %v", enter, want)
	}
	for i := range want {
		if enter[i] != want[i] {
			t.Fatalf("enter writes = %v, want %v", enter, want)
		}
	}
	if !d.PowerStatus().LowPower {
		t.Fatalf("LowPower = false after enter")
	}
	if got := chip.Reg(uint8(RegVolume)); got != 0xFFFF {
		t.Fatalf("VOL = %#04x, want 0xffff", got)
	}
	if got := chip.Reg(uint8(RegClockF)) >> 13; got != 0 {
		t.Fatalf("SC_MULT = %d, want 0", got)
	}

	n := len(chip.Writes())
	if err := d.SetLowPowerMode(true); err != nil {
		t.Fatalf("second SetLowPowerMode(true) err = %v", err)
	}
	if got := len(chip.Writes()); got != n {
		t.Fatalf("second enter issued %d writes, want 0", got-n)
	}

	chip.ClearLog()
	if err := d.SetLowPowerMode(false); err != nil {
		t.Fatalf("SetLowPowerMode(false) err = %v", err)
	}
	leave := writesTo(chip.Writes())
	want = []Register{RegVolume, RegMode, RegAuData, RegClockF}
	for i := range want {
		if i >= len(leave) || leave[i] != want[i] {
			t.Fatalf("leave writes = %v, want %v", leave, want)
		}
	}
	if got := chip.Reg(uint8(RegClockF)); got != DefaultRegisters.ClockF {
		t.Fatalf("CLOCKF = %#04x, want %#04x", got, DefaultRegisters.ClockF)
	}
	if got := chip.Reg(uint8(RegVolume)); got != DefaultRegisters.Volume {
		t.Fatalf("VOL = %#04x, want %#04x", got, DefaultRegisters.Volume)
	}
	if got := d.EarSpeaker(); got != EarSpeakerNormal {
		t.Fatalf("EarSpeaker() = %v, want normal", got)
	}
}

func TestToneControls(t *testing.T) {
	d, chip, _ := newTestDevice(t)
	status := chip.Reg(uint8(RegStatus))

	if err := d.SetBassEnhancement(0x1F, 3); err != nil {
		t.Fatalf("SetBassEnhancement() err = %v", err)
	}
	if err := d.SetTrebleControl(2, 0x20); err != nil {
		t.Fatalf("SetTrebleControl() err = %v", err)
	}
	if got := chip.Reg(uint8(RegBass)); got != 0x2FF3 {
		t.Fatalf("BASS = %#04x, want 0x2ff3", got)
	}
	if err := d.SetBassEnhancement(0, 0); err != nil {
		t.Fatalf("SetBassEnhancement(0, 0) err = %v", err)
	}
	if got := chip.Reg(uint8(RegBass)); got != 0x2F00 {
		t.Fatalf("BASS = %#04x, want 0x2f00", got)
	}
	if got := chip.Reg(uint8(RegStatus)); got != status {
		t.Fatalf("STATUS = %#04x, want %#04x", got, status)
	}
	for _, r := range writesTo(chip.Writes()) {
		if r != RegBass {
			t.Fatalf("tone controls wrote %v, want only BASS", r)
		}
	}
}

func TestModeControls(t *testing.T) {
	d, chip, _ := newTestDevice(t)

	if err := d.SetVolume(0x10, 0x20); err != nil {
		t.Fatalf("SetVolume() err = %v", err)
	}
	if got := chip.Reg(uint8(RegVolume)); got != 0x1020 {
		t.Fatalf("VOL = %#04x, want 0x1020", got)
	}

	if err := d.SetEarSpeaker(EarSpeakerExtreme); err != nil {
		t.Fatalf("SetEarSpeaker() err = %v", err)
	}
	if got := chip.Reg(uint8(RegMode)) & (ModeEarSpeakerLo | ModeEarSpeakerHi); got != ModeEarSpeakerLo|ModeEarSpeakerHi {
		t.Fatalf("ear speaker bits = %#04x", got)
	}
	if err := d.SetEarSpeaker(EarSpeakerMinimal); err != nil {
		t.Fatalf("SetEarSpeaker() err = %v", err)
	}
	if got := chip.Reg(uint8(RegMode)) & (ModeEarSpeakerLo | ModeEarSpeakerHi); got != ModeEarSpeakerLo {
		t.Fatalf("ear speaker bits = %#04x, want lo only", got)
	}

	if err := d.SetStreamMode(true); err != nil {
		t.Fatalf("SetStreamMode() err = %v", err)
	}
	if err := d.SetClockDivider(true); err != nil {
		t.Fatalf("SetClockDivider() err = %v", err)
	}
	mode := chip.Reg(uint8(RegMode))
	if mode&ModeStream == 0 || mode&ModeClkRange == 0 {
		t.Fatalf("MODE = %#04x, want stream and clock range set", mode)
	}
	if err := d.SetStreamMode(false); err != nil {
		t.Fatalf("SetStreamMode(false) err = %v", err)
	}
	if chip.Reg(uint8(RegMode))&ModeStream != 0 {
		t.Fatalf("stream bit still set")
	}

	chip.ClearLog()
	if err := d.ResetDecodeTime(); err != nil {
		t.Fatalf("ResetDecodeTime() err = %v", err)
	}
	ws := chip.Writes()
	if len(ws) != 2 || ws[0] != (vs1053sim.Write{Reg: uint8(RegDecodeTime)}) || ws[1] != ws[0] {
		t.Fatalf("ResetDecodeTime() writes = %v, want two zero writes", ws)
	}

	chip.ClearLog()
	if err := d.CancelDecoding(); err != nil {
		t.Fatalf("CancelDecoding() err = %v", err)
	}
	ws = chip.Writes()
	if len(ws) != 1 || ws[0].Value&ModeCancel == 0 {
		t.Fatalf("CancelDecoding() writes = %v, want MODE with SM_CANCEL", ws)
	}
}

func TestDecodeSampleRate(t *testing.T) {
	tests := []struct{ in, want uint16 }{
		{44101, 44100},
		{44100, 44100},
		{22051, 22050},
		{1, 0},
		{0, 0},
	}
	for _, tt := range tests {
		if got := DecodeSampleRate(tt.in); got != tt.want {
			t.Errorf("DecodeSampleRate(%d) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestDecodeHeader(t *testing.T) {
	// MPEG-1 layer III, CRC off, index 9, 44.1 kHz field, joint stereo.
	h := DecodeHeader(0x9040, 0xFFFB)
	if !h.SyncValid || h.ID != 3 || h.Layer != 1 || !h.Protected {
		t.Fatalf("DecodeHeader() = %+v", h)
	}
	if h.ChannelMode != 1 || h.Pad {
		t.Fatalf("DecodeHeader() mode/pad = %d/%v", h.ChannelMode, h.Pad)
	}
	if want := (32 + 32*8) * 1024; h.BitRate != want {
		t.Fatalf("BitRate = %d, want %d", h.BitRate, want)
	}

	if DecodeHeader(0, 0).SyncValid {
		t.Fatalf("SyncValid = true for zero header")
	}

	tests := []struct {
		name  string
		hdat0 uint16
		hdat1 uint16
		rate  int
		bits  int
	}{
		// Index 2 and 1 cascade into index 0.
		{"idx2 layer3", 2 << 10, 3 << 1, 44100, 0},
		{"idx1 layer2", 1 << 10, 2 << 1, 22050, 0},
		{"idx0 layer1", 0, 1 << 1, 11025, 0},
		{"idx3", 3 << 10, 3 << 1, 0, 0},
		{"free bitrate", 0, 3 << 1, 44100, 0},
		{"bad bitrate", 0xF << 12, 3 << 1, 44100, 0},
		{"layer2 id3", 2 << 12, 3<<3 | 2<<1, 22050, 48 * 1024},
		{"layer2 id2", 2 << 12, 2<<3 | 2<<1, 22050, 16 * 1024},
		{"layer3 id3", 5 << 12, 3<<3 | 3<<1, 44100, 64 * 1024},
		{"layer1 id2", 3 << 12, 2<<3 | 1<<1, 11025, 48 * 1024},
	}
	for _, tt := range tests {
		h := DecodeHeader(tt.hdat0, tt.hdat1)
		if h.SampleRate != tt.rate || h.BitRate != tt.bits {
			t.Errorf("%s: rate/bits = %d/%d, want %d/%d", tt.name, h.SampleRate, h.BitRate, tt.rate, tt.bits)
		}
	}
}

func TestStartPlayback(t *testing.T) {
	d, chip, clk := newTestDevice(t)

	track := make([]byte, 64)
	copy(track, []byte{0xFF, 0xFB, 0x90, 0x40})
	start := clk.now

	if err := d.StartPlayback(track); err != nil {
		t.Fatalf("StartPlayback() err = %v", err)
	}
	if d.PowerStatus().Playing {
		t.Fatalf("Playing = true after playback")
	}
	if clk.now.Sub(start) < 50*time.Millisecond {
		t.Fatalf("playback returned before drain delay")
	}

	segs := chip.Segments()
	// preamble, track in two chunks, 64 full padding chunks and a remainder
	if len(segs) != 1+2+65 {
		t.Fatalf("segments = %d, want 68", len(segs))
	}
	if !bytes.Equal(segs[0], []byte{opWrite, 0x00, 0x00, 0x00}) {
		t.Fatalf("preamble = % x", segs[0])
	}

	h, err := d.UpdateHeader()
	if err != nil {
		t.Fatalf("UpdateHeader() err = %v", err)
	}
	if !h.SyncValid || h.BitRate != (32+32*8)*1024 {
		t.Fatalf("header = %+v", h)
	}
	if d.Header() != h {
		t.Fatalf("Header() = %+v, want %+v", d.Header(), h)
	}
	rate, err := d.SampleRate()
	if err != nil || rate != 44100 {
		t.Fatalf("SampleRate() = %d, %v, want 44100", rate, err)
	}

	if err := d.StartPlayback(nil); !errors.Is(err, ErrEmpty) {
		t.Fatalf("StartPlayback(nil) err = %v, want ErrEmpty", err)
	}
}

func TestTransferIn(t *testing.T) {
	d, chip, _ := newTestDevice(t)

	buf := []byte{9, 9, 9}
	if err := d.TransferIn(0x1800, buf); err != nil {
		t.Fatalf("TransferIn() err = %v", err)
	}
	if !bytes.Equal(buf, []byte{0, 0, 0}) {
		t.Fatalf("TransferIn() buf = % x", buf)
	}
	segs := chip.Segments()
	if len(segs) != 1 || segs[0][0] != opRead {
		t.Fatalf("segments = %v, want one read", segs)
	}
}
