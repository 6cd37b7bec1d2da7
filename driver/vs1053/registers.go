package vs1053

// Register identifies one of the chip's SCI registers.
type Register uint8

const (
	RegMode Register = iota
	RegStatus
	RegBass
	RegClockF
	RegDecodeTime
	RegAuData
	RegWRAM
	RegWRAMAddr
	RegHDAT0
	RegHDAT1
	RegAIAddr
	RegVolume
	RegAICtrl0
	RegAICtrl1
	RegAICtrl2
	RegAICtrl3

	// NumRegisters is the fixed size of the SCI register file.
	NumRegisters = 16
)

func (r Register) String() string {
	switch r {
	case RegMode:
		return "MODE"
	case RegStatus:
		return "STATUS"
	case RegBass:
		return "BASS"
	case RegClockF:
		return "CLOCKF"
	case RegDecodeTime:
		return "DECODE_TIME"
	case RegAuData:
		return "AUDATA"
	case RegWRAM:
		return "WRAM"
	case RegWRAMAddr:
		return "WRAMADDR"
	case RegHDAT0:
		return "HDAT0"
	case RegHDAT1:
		return "HDAT1"
	case RegAIAddr:
		return "AIADDR"
	case RegVolume:
		return "VOL"
	case RegAICtrl0:
		return "AICTRL0"
	case RegAICtrl1:
		return "AICTRL1"
	case RegAICtrl2:
		return "AICTRL2"
	case RegAICtrl3:
		return "AICTRL3"
	default:
		return "unknown"
	}
}

// SCI_MODE bits.
const (
	ModeDiff         uint16 = 1 << 0
	ModeLayer12      uint16 = 1 << 1
	ModeReset        uint16 = 1 << 2
	ModeCancel       uint16 = 1 << 3
	ModeEarSpeakerLo uint16 = 1 << 4
	ModeTests        uint16 = 1 << 5
	ModeStream       uint16 = 1 << 6
	ModeEarSpeakerHi uint16 = 1 << 7
	ModeDACT         uint16 = 1 << 8
	ModeSDIORD       uint16 = 1 << 9
	ModeSDIShare     uint16 = 1 << 10
	ModeSDINew       uint16 = 1 << 11
	ModeADPCM        uint16 = 1 << 12
	ModeLine1        uint16 = 1 << 14
	ModeClkRange     uint16 = 1 << 15
)

// Descriptor describes one register and holds its cached value.
type Descriptor struct {
	Writable    bool
	Reset       uint16
	ClockCycles uint32
	Value       uint16
}

var descriptorTable = [NumRegisters]Descriptor{
	RegMode:       {Writable: true, Reset: 0x4000, ClockCycles: 80},
	RegStatus:     {Writable: true, Reset: 0x000C, ClockCycles: 80},
	RegBass:       {Writable: true, Reset: 0x0000, ClockCycles: 80},
	RegClockF:     {Writable: true, Reset: 0x0000, ClockCycles: 1200},
	RegDecodeTime: {Writable: true, Reset: 0x0000, ClockCycles: 100},
	RegAuData:     {Writable: true, Reset: 0x0000, ClockCycles: 450},
	RegWRAM:       {Writable: true, Reset: 0x0000, ClockCycles: 100},
	RegWRAMAddr:   {Writable: true, Reset: 0x0000, ClockCycles: 100},
	RegHDAT0:      {Writable: false, Reset: 0x0000, ClockCycles: 80},
	RegHDAT1:      {Writable: false, Reset: 0x0000, ClockCycles: 80},
	RegAIAddr:     {Writable: true, Reset: 0x0000, ClockCycles: 210},
	RegVolume:     {Writable: true, Reset: 0x0000, ClockCycles: 80},
	RegAICtrl0:    {Writable: true, Reset: 0x0000, ClockCycles: 80},
	RegAICtrl1:    {Writable: true, Reset: 0x0000, ClockCycles: 80},
	RegAICtrl2:    {Writable: true, Reset: 0x0000, ClockCycles: 80},
	RegAICtrl3:    {Writable: true, Reset: 0x0000, ClockCycles: 80},
}

// RegisterFile is the in-process mirror of the chip's register set.
//
// Mutators only touch the cache. Nothing reaches the chip until
// Device.Commit is called for the register.
type RegisterFile struct {
	regs [NumRegisters]Descriptor
}

// NewRegisterFile returns a register file with every cached value at its
// reset value.
func NewRegisterFile() *RegisterFile {
	f := &RegisterFile{regs: descriptorTable}
	f.Reset()
	return f
}

// Reset returns every cached value to its reset value.
func (f *RegisterFile) Reset() {
	for i := range f.regs {
		f.regs[i].Value = f.regs[i].Reset
	}
}

// Descriptor returns a copy of the register's descriptor.
func (f *RegisterFile) Descriptor(r Register) Descriptor {
	if r >= NumRegisters {
		return Descriptor{}
	}
	return f.regs[r]
}

// Get returns the cached value.
func (f *RegisterFile) Get(r Register) uint16 {
	if r >= NumRegisters {
		return 0
	}
	return f.regs[r].Value
}

// Set replaces the cached value.
func (f *RegisterFile) Set(r Register, v uint16) {
	if r >= NumRegisters {
		return
	}
	f.regs[r].Value = v
}

// SetBits ors mask into the cached value.
func (f *RegisterFile) SetBits(r Register, mask uint16) {
	f.Set(r, f.Get(r)|mask)
}

// ClearBits clears mask in the cached value.
func (f *RegisterFile) ClearBits(r Register, mask uint16) {
	f.Set(r, f.Get(r)&^mask)
}

// SetBit sets or clears a single bit of the cached value.
func (f *RegisterFile) SetBit(r Register, bit uint8, on bool) {
	mask := uint16(1) << (bit & 0x0F)
	if on {
		f.SetBits(r, mask)
	} else {
		f.ClearBits(r, mask)
	}
}
