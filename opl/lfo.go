package opl

// Tremolo runs at ~3.7Hz: 210 steps of 64 samples at the native rate.
const (
	tremoloSteps  = 210
	tremoloPeriod = 64
)

// Vibrato runs at ~6.1Hz: 8 steps of 1024 samples at the native rate.
const vibratoPeriod = 1024

// stepLFO advances the tremolo and vibrato counters by one native sample.
func (c *Chip) stepLFO() {
	c.lfoCnt++
	if c.lfoCnt%tremoloPeriod == 0 {
		c.tremoloStep++
		if c.tremoloStep >= tremoloSteps {
			c.tremoloStep = 0
		}
	}
	if c.lfoCnt%vibratoPeriod == 0 {
		c.vibratoStep = (c.vibratoStep + 1) & 0x07
	}
}

// tremoloAtten returns the current tremolo attenuation in 10-bit units.
// Depth is 4.8dB with register 0xBD bit 7 set, 1dB otherwise.
func (c *Chip) tremoloAtten() uint16 {
	// Triangle 0..104..0 over the 210-step cycle.
	tri := c.tremoloStep
	if tri > tremoloSteps/2 {
		tri = tremoloSteps - tri
	}
	if c.amDepth {
		return uint16(tri) >> 1
	}
	return uint16(tri) / 9
}

// vibratoFnum returns the F-number after applying the vibrato offset.
// Depth is 14 cents with register 0xBD bit 6 set, 7 cents otherwise.
func (c *Chip) vibratoFnum(fNum uint16) uint16 {
	delta := int32(fNum>>7) & 0x07
	if !c.vibDepth {
		delta >>= 1
	}
	switch c.vibratoStep {
	case 1, 3:
		delta >>= 1
	case 2:
	case 5, 7:
		delta = -(delta >> 1)
	case 6:
		delta = -delta
	default:
		delta = 0
	}
	v := int32(fNum) + delta
	if v < 0 {
		v = 0
	}
	return uint16(v) & 0x3FF
}
