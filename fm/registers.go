package fm

// NumRegisters is the size of the two-bank register address space.
const NumRegisters = 512

// Global registers written by reset.
const (
	regTest      = 0x001
	regRhythm    = 0x0BD
	regFourOp    = 0x104
	regNewMode   = 0x105
	regWaveBase  = 0x0E0
	regCharBase  = 0x020
	regLevelBase = 0x040
	regADBase    = 0x060
	regSRBase    = 0x080
	regFnumLo    = 0x0A0
	regKeyBlock  = 0x0B0
	regFeedback  = 0x0C0
)

// Key-on flag inside the 0xB0 group.
const keyOnBit = 0x20

// WriteReg stores value in the shadow and forwards it to the chip.
// Registers above 511 are logged and ignored.
func (c *Controller) WriteReg(reg uint16, value uint8) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.writeRegLocked(reg, value)
}

// ReadShadow returns the last value written to reg, or 0 for out-of-range.
func (c *Controller) ReadShadow(reg uint16) uint8 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.readShadowLocked(reg)
}

// Shadow returns a copy of the full register shadow.
func (c *Controller) Shadow() [NumRegisters]uint8 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.shadow
}

func (c *Controller) writeRegLocked(reg uint16, value uint8) {
	if reg >= NumRegisters {
		c.logger.Printf("fm: register 0x%03X out of range", reg)
		return
	}
	c.shadow[reg] = value

	// Bank 0 uses ports 0/1, bank 1 uses ports 2/3.
	port := uint8(0)
	if reg&0x100 != 0 {
		port = 2
	}
	c.chip.WritePort(port, uint8(reg&0xFF))
	c.chip.WritePort(port+1, value)
}

func (c *Controller) readShadowLocked(reg uint16) uint8 {
	if reg >= NumRegisters {
		return 0
	}
	return c.shadow[reg]
}
