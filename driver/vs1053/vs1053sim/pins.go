package vs1053sim

type line uint8

const (
	lineXCS line = iota
	lineXDCS
	lineDREQ
	lineReset
)

// Pin is one of the chip's control lines.
type Pin struct {
	c *Chip
	l line
}

func (p Pin) Get() bool {
	p.c.mu.Lock()
	defer p.c.mu.Unlock()

	switch p.l {
	case lineXCS:
		return p.c.xcs
	case lineXDCS:
		return p.c.xdcs
	case lineReset:
		return p.c.reset
	}
	p.c.polls++
	return p.c.ready()
}

// Set drives the line. DREQ is an output of the chip and ignores it.
func (p Pin) Set(high bool) {
	p.c.mu.Lock()
	defer p.c.mu.Unlock()

	switch p.l {
	case lineXCS:
		p.c.setXCS(high)
	case lineXDCS:
		p.c.setXDCS(high)
	case lineReset:
		p.c.setReset(high)
	}
}

func (c *Chip) XCS() Pin   { return Pin{c, lineXCS} }
func (c *Chip) XDCS() Pin  { return Pin{c, lineXDCS} }
func (c *Chip) DREQ() Pin  { return Pin{c, lineDREQ} }
func (c *Chip) Reset() Pin { return Pin{c, lineReset} }

// Reg returns the chip-side value of a register.
func (c *Chip) Reg(reg uint8) uint16 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.regs[reg&0x0F]
}

// SetReg changes a register behind the driver's back.
func (c *Chip) SetReg(reg uint8, v uint16) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.regs[reg&0x0F] = v
}

// Writes returns every SCI write seen so far.
func (c *Chip) Writes() []Write {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Write(nil), c.writes...)
}

// Segments returns the SDI bytes of each completed XDCS frame, header
// included when the frame carried one.
func (c *Chip) Segments() [][]byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([][]byte(nil), c.segments...)
}

// ReadyPolls counts reads of DREQ.
func (c *Chip) ReadyPolls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.polls
}

// HardResets counts rising edges on XRESET.
func (c *Chip) HardResets() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hardReset
}

// Conflicts counts times both select lines were low together.
func (c *Chip) Conflicts() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conflicts
}

// Streamed returns how many audio bytes followed the latched frame header.
func (c *Chip) Streamed() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.streamed
}

// ClearLog drops recorded writes, segments and poll counts.
func (c *Chip) ClearLog() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.writes = nil
	c.segments = nil
	c.polls = 0
}
