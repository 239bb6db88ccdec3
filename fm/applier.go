package fm

import "fmt"

// ApplyInstrument writes the patch at index of the active instrument list
// to hardware channel hw.
func (c *Controller) ApplyInstrument(hw, index int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.applyInstrumentLocked(hw, index)
}

func (c *Controller) applyInstrumentLocked(hw, index int) error {
	if hw < 0 || hw >= NumHardwareChannels {
		return fmt.Errorf("%w: hardware channel %d", ErrChannelRange, hw)
	}
	insts := c.instrumentsLocked()
	if index < 0 || index >= len(insts) {
		return fmt.Errorf("%w: instrument %d of %d", ErrInstrumentRange, index, len(insts))
	}
	inst := &insts[index]

	if bit, ok := fourOpBit(hw); ok {
		v := c.readShadowLocked(regFourOp)
		if inst.FourOp {
			v |= 1 << bit
		} else {
			v &^= 1 << bit
		}
		c.writeRegLocked(regFourOp, v)
	}

	c.writePairLocked(hw, &inst.Pairs[0])

	if isMaster(hw) {
		linked := hw + 3
		if inst.usesSecondPair() {
			c.writePairLocked(linked, &inst.Pairs[1])
			c.applied[linked] = index
		} else {
			c.silenceChannelLocked(linked)
		}
	}
	c.applied[hw] = index
	return nil
}

// writePairLocked writes both operators of pair to hw followed by the
// feedback/connection register.
func (c *Controller) writePairLocked(hw int, pair *OpPair) {
	ops := [2]*OpParams{&pair.Mod, &pair.Car}
	for op, p := range ops {
		c.writeRegLocked(operatorReg(hw, op, regCharBase), p.charByte())
		c.writeRegLocked(operatorReg(hw, op, regLevelBase), p.levelByte(p.TotalLevel))
		c.writeRegLocked(operatorReg(hw, op, regADBase), p.adByte())
		c.writeRegLocked(operatorReg(hw, op, regSRBase), p.srByte())
		c.writeRegLocked(operatorReg(hw, op, regWaveBase), p.Waveform&0x07)
	}
	pan := pair.Panning & PanCenter
	if pan == 0 {
		pan = PanCenter
	}
	c.writeRegLocked(channelReg(hw, regFeedback), pair.feedbackByte(pan))
}

// carrierMask reports which operators of inst reach the output, indexed by
// [pair][op] with op 0 the modulator. Only those are scaled by volume.
// fourOp is false when a four-op patch plays pair 0 alone on a channel
// that cannot be paired.
func carrierMask(inst *Instrument, fourOp bool) [2][2]bool {
	var m [2][2]bool
	if !fourOp {
		for p := range inst.Pairs {
			m[p][1] = true
			m[p][0] = inst.Pairs[p].Connection == ConnectionAdditive
		}
		return m
	}

	cnt1 := inst.Pairs[0].Connection & 1
	cnt2 := inst.Pairs[1].Connection & 1
	m[1][1] = true
	switch cnt1<<1 | cnt2 {
	case 0x2: // 1 + (2>3>4)
		m[0][0] = true
	case 0x1: // (1>2) + (3>4)
		m[0][1] = true
	case 0x3: // 1 + (2>3) + 4
		m[0][0] = true
		m[1][0] = true
	}
	return m
}

// applyVolumeLocked rewrites the carrier total levels of hw for a 0-63
// channel volume. Channels without an applied instrument are left alone.
func (c *Controller) applyVolumeLocked(hw int, volume uint8) {
	insts := c.instrumentsLocked()
	idx := c.applied[hw]
	if idx < 0 || idx >= len(insts) {
		return
	}
	inst := &insts[idx]
	mask := carrierMask(inst, inst.FourOp && isMaster(hw))

	pairs := 1
	if isMaster(hw) && inst.usesSecondPair() {
		pairs = 2
	}
	for p := 0; p < pairs; p++ {
		ch := hw + 3*p
		ops := [2]*OpParams{&inst.Pairs[p].Mod, &inst.Pairs[p].Car}
		for op, params := range ops {
			tl := params.TotalLevel
			if mask[p][op] {
				tl = scaledLevel(tl, volume)
			}
			c.writeRegLocked(operatorReg(ch, op, regLevelBase), params.levelByte(tl))
		}
	}
}

// panBits maps a 0-64 step panning to output routing bits.
func panBits(pan uint8) uint8 {
	switch {
	case pan <= 21:
		return PanLeft
	case pan >= 43:
		return PanRight
	}
	return PanCenter
}

// applyPanningLocked routes hw to the outputs selected by pan, restricted to
// the instrument's own routing when the two overlap.
func (c *Controller) applyPanningLocked(hw int, pan uint8) {
	insts := c.instrumentsLocked()
	idx := c.applied[hw]
	if idx < 0 || idx >= len(insts) {
		return
	}
	inst := &insts[idx]
	bits := panBits(pan)

	pairs := 1
	if isMaster(hw) && inst.usesSecondPair() {
		pairs = 2
	}
	for p := 0; p < pairs; p++ {
		pair := &inst.Pairs[p]
		out := bits
		if own := pair.Panning & PanCenter; own != 0 && own&bits != 0 {
			out = own & bits
		}
		c.writeRegLocked(channelReg(hw+3*p, regFeedback), pair.feedbackByte(out))
	}
}
