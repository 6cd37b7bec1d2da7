package vs1053

// Pin is a single discrete line. machine.Pin satisfies it.
type Pin interface {
	Get() bool
	Set(high bool)
}

// ChipSelect owns the two active-low select lines and the DREQ handshake
// line. At most one select line is ever active.
type ChipSelect struct {
	xcs  Pin
	xdcs Pin
	dreq Pin

	command bool
	data    bool
}

// NewChipSelect drives both select lines inactive.
func NewChipSelect(xcs, xdcs, dreq Pin) *ChipSelect {
	c := &ChipSelect{xcs: xcs, xdcs: xdcs, dreq: dreq}
	c.xcs.Set(true)
	c.xdcs.Set(true)
	return c
}

// SelectCommand activates or releases XCS. Activating fails, leaving both
// lines unchanged, while XDCS is active. Releasing always succeeds.
func (c *ChipSelect) SelectCommand(active bool) bool {
	if active && c.data {
		return false
	}
	c.command = active
	c.xcs.Set(!active)
	return true
}

// SelectData activates or releases XDCS. Activating fails, leaving both
// lines unchanged, while XCS is active. Releasing always succeeds.
func (c *ChipSelect) SelectData(active bool) bool {
	if active && c.command {
		return false
	}
	c.data = active
	c.xdcs.Set(!active)
	return true
}

// CommandSelected reports whether XCS is active.
func (c *ChipSelect) CommandSelected() bool { return c.command }

// DataSelected reports whether XDCS is active.
func (c *ChipSelect) DataSelected() bool { return c.data }

// Ready samples DREQ. It does not wait.
func (c *ChipSelect) Ready() bool { return c.dreq.Get() }
