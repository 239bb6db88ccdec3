// Package opl implements an OPL3-compatible FM synthesizer: 18 two-operator
// channels across two register banks, six of which can be paired into
// four-operator voices.
package opl

// NumChannels is the number of hardware channels (9 per bank).
const NumChannels = 18

// DefaultClock is the OPL3 master clock in Hz.
const DefaultClock = 14318180

// Frame is one native sample of the four output channels (A, B, C, D).
type Frame [4]int16

// operator holds decoded register state for one operator in a channel.
type operator struct {
	// Register fields
	am   bool  // Tremolo enable
	vib  bool  // Vibrato enable
	egt  bool  // Sustaining envelope (hold at sustain level)
	ksr  bool  // Key scale rate
	mult uint8 // Frequency multiplier (4-bit)
	ksl  uint8 // Key scale level (2-bit)
	tl   uint8 // Total level / attenuation (6-bit, 0=max vol)
	ar   uint8 // Attack rate (4-bit)
	dr   uint8 // Decay rate (4-bit)
	sl   uint8 // Sustain level (4-bit)
	rr   uint8 // Release rate (4-bit)
	wave uint8 // Waveform select (3-bit)

	// Phase generator state
	phase uint32 // 20-bit phase accumulator

	// Envelope generator state
	egState uint8
	egLevel uint16 // 10-bit attenuation (0=full vol, 0x3FF=silent)
	keyOn   bool

	prevOut [2]int16 // Previous two outputs (for feedback)
}

// channel holds decoded register state for one hardware channel.
type channel struct {
	op [2]operator

	fNum  uint16 // 10-bit F-number
	block uint8  // 3-bit block (octave)
	keyOn bool

	feedback uint8 // 3-bit feedback level
	cnt      uint8 // Connection: 0=FM, 1=additive
	out      [4]bool
}

// Chip implements the OPL3 register interface and sample generation.
type Chip struct {
	ch [NumChannels]channel

	// Address latches for bank 0 (ports 0/1) and bank 1 (ports 2/3)
	addrLatch [2]uint8

	newMode    bool  // Register 0x105 bit 0
	waveSelect bool  // Register 0x01 bit 5 (OPL2 compatibility)
	fourOp     uint8 // Register 0x104 bits 0-5
	amDepth    bool  // Register 0xBD bit 7
	vibDepth   bool  // Register 0xBD bit 6

	egCounter   uint32
	lfoCnt      uint32
	tremoloStep uint8
	vibratoStep uint8
}

// New creates a chip in its power-on state.
func New() *Chip {
	c := &Chip{}
	c.Reset()
	return c
}

// Reset returns every register and generator to its power-on state.
func (c *Chip) Reset() {
	*c = Chip{}
	for i := range c.ch {
		for j := range c.ch[i].op {
			c.ch[i].op[j].egState = egRelease
			c.ch[i].op[j].egLevel = 0x3FF
		}
	}
}

// SampleRate returns the native output rate for a master clock.
func (c *Chip) SampleRate(masterClock uint32) uint32 {
	return masterClock / 288
}

// WritePort writes to a chip port (0-3).
// Port 0: address latch for bank 0
// Port 1: data write for bank 0
// Port 2: address latch for bank 1
// Port 3: data write for bank 1
func (c *Chip) WritePort(port uint8, val uint8) {
	switch port {
	case 0:
		c.addrLatch[0] = val
	case 1:
		c.writeRegister(0, c.addrLatch[0], val)
	case 2:
		c.addrLatch[1] = val
	case 3:
		c.writeRegister(1, c.addrLatch[1], val)
	}
}

// slotChannel and slotOperator map an operator register offset (0x00-0x15)
// to the channel within the bank and the operator index. -1 marks holes.
var slotChannel = [22]int{0, 1, 2, 0, 1, 2, -1, -1, 3, 4, 5, 3, 4, 5, -1, -1, 6, 7, 8, 6, 7, 8}
var slotOperator = [22]int{0, 0, 0, 1, 1, 1, -1, -1, 0, 0, 0, 1, 1, 1, -1, -1, 0, 0, 0, 1, 1, 1}

// writeRegister dispatches a register write to the appropriate handler.
func (c *Chip) writeRegister(bank int, addr, val uint8) {
	switch {
	case addr < 0x20:
		c.writeGlobalRegister(bank, addr, val)
	case addr < 0xA0:
		c.writeOperatorRegister(bank, addr, val)
	case addr == 0xBD:
		if bank == 0 {
			c.amDepth = val&0x80 != 0
			c.vibDepth = val&0x40 != 0
		}
	case addr < 0xD0:
		c.writeChannelRegister(bank, addr, val)
	case addr >= 0xE0:
		c.writeOperatorRegister(bank, addr, val)
	}
}

// writeGlobalRegister handles writes to registers $00-$1F.
func (c *Chip) writeGlobalRegister(bank int, addr, val uint8) {
	switch {
	case bank == 0 && addr == 0x01:
		c.waveSelect = val&0x20 != 0
	case bank == 1 && addr == 0x04:
		c.fourOp = val & 0x3F
	case bank == 1 && addr == 0x05:
		c.newMode = val&0x01 != 0
	}
}

// writeOperatorRegister handles the operator groups $20, $40, $60, $80 and $E0.
func (c *Chip) writeOperatorRegister(bank int, addr, val uint8) {
	slot := int(addr & 0x1F)
	if slot >= len(slotChannel) || slotChannel[slot] < 0 {
		return
	}
	op := &c.ch[slotChannel[slot]+bank*9].op[slotOperator[slot]]

	switch addr & 0xE0 {
	case 0x20:
		op.am = val&0x80 != 0
		op.vib = val&0x40 != 0
		op.egt = val&0x20 != 0
		op.ksr = val&0x10 != 0
		op.mult = val & 0x0F
	case 0x40:
		op.ksl = val >> 6
		op.tl = val & 0x3F
	case 0x60:
		op.ar = val >> 4
		op.dr = val & 0x0F
	case 0x80:
		op.sl = val >> 4
		op.rr = val & 0x0F
	case 0xE0:
		op.wave = val & 0x07
	}
}

// writeChannelRegister handles writes to registers $A0-$C8.
func (c *Chip) writeChannelRegister(bank int, addr, val uint8) {
	idx := int(addr & 0x0F)
	if idx > 8 {
		return
	}
	chIdx := idx + bank*9
	ch := &c.ch[chIdx]

	switch addr & 0xF0 {
	case 0xA0:
		ch.fNum = (ch.fNum & 0x300) | uint16(val)
	case 0xB0:
		ch.fNum = (ch.fNum & 0x0FF) | uint16(val&0x03)<<8
		ch.block = (val >> 2) & 0x07
		c.setKey(chIdx, val&0x20 != 0)
	case 0xC0:
		ch.cnt = val & 0x01
		ch.feedback = (val >> 1) & 0x07
		for i := range ch.out {
			ch.out[i] = val&(0x10<<uint(i)) != 0
		}
	}
}

// setKey applies a key-on/off change. Channels paired into a four-operator
// voice are keyed by the master; key bits on the slave are ignored.
func (c *Chip) setKey(chIdx int, on bool) {
	if c.isFourOpSlave(chIdx) {
		return
	}
	targets := []int{chIdx}
	if c.isFourOpMaster(chIdx) {
		targets = append(targets, chIdx+3)
	}
	for _, t := range targets {
		ch := &c.ch[t]
		ch.keyOn = on
		for i := range ch.op {
			if on {
				keyOnOperator(&ch.op[i])
			} else {
				keyOffOperator(&ch.op[i])
			}
		}
	}
}

// fourOpBit returns the 0x104 bit index for a pairable master channel.
func fourOpBit(chIdx int) (uint, bool) {
	switch chIdx {
	case 0, 1, 2:
		return uint(chIdx), true
	case 9, 10, 11:
		return uint(chIdx - 6), true
	}
	return 0, false
}

// isFourOpMaster reports whether chIdx currently drives a four-operator voice.
func (c *Chip) isFourOpMaster(chIdx int) bool {
	bit, ok := fourOpBit(chIdx)
	return ok && c.newMode && c.fourOp&(1<<bit) != 0
}

// isFourOpSlave reports whether chIdx is the second half of an active pair.
func (c *Chip) isFourOpSlave(chIdx int) bool {
	return chIdx >= 3 && c.isFourOpMaster(chIdx-3)
}

// KeyOn reports the key state of a hardware channel. Out-of-range channels
// report false.
func (c *Chip) KeyOn(chIdx int) bool {
	if chIdx < 0 || chIdx >= NumChannels {
		return false
	}
	return c.ch[chIdx].keyOn
}

// FourOpEnabled reports whether the pair mastered by chIdx is enabled.
func (c *Chip) FourOpEnabled(chIdx int) bool {
	return c.isFourOpMaster(chIdx)
}

// Generate produces one native sample for all four output channels.
func (c *Chip) Generate(out *Frame) {
	c.stepLFO()
	c.egCounter++

	var acc [4]int32
	for i := 0; i < NumChannels; i++ {
		if c.isFourOpSlave(i) {
			continue
		}
		ch := &c.ch[i]
		var s int32
		if c.isFourOpMaster(i) {
			s = c.evaluateFourOp(i)
		} else {
			s = c.evaluateTwoOp(ch)
		}
		if s == 0 {
			continue
		}
		if !c.newMode {
			acc[0] += s
			acc[1] += s
			continue
		}
		for o := range acc {
			if ch.out[o] {
				acc[o] += s
			}
		}
	}

	for o := range acc {
		out[o] = int16(clampInt32(acc[o], -32768, 32767))
	}
}

// operatorFreq returns the F-number and block for the channel, with vibrato
// applied for the operator if enabled.
func (c *Chip) operatorFreq(ch *channel, op *operator) (uint16, uint8) {
	fNum := ch.fNum
	if op.vib {
		fNum = c.vibratoFnum(fNum)
	}
	return fNum, ch.block
}

// stepOperator advances the phase and envelope of one operator, using the
// frequency of freqCh.
func (c *Chip) stepOperator(freqCh *channel, op *operator) {
	fNum, block := c.operatorFreq(freqCh, op)
	op.phase = (op.phase + phaseIncrement(fNum, block, op.mult)) & 0xFFFFF
	stepOperatorEnvelope(op, c.egCounter, keyCode(freqCh.fNum, freqCh.block))
}

// evaluateTwoOp computes one sample for a two-operator channel.
func (c *Chip) evaluateTwoOp(ch *channel) int32 {
	m, k := &ch.op[0], &ch.op[1]
	c.stepOperator(ch, m)
	c.stepOperator(ch, k)
	if m.egLevel >= 0x3FF && k.egLevel >= 0x3FF {
		return 0
	}

	s1 := c.opOut(m, feedback(m, ch.feedback), ch.fNum, ch.block)
	if ch.cnt == 0 {
		return int32(c.opOut(k, int32(s1)>>1, ch.fNum, ch.block))
	}
	s2 := c.opOut(k, 0, ch.fNum, ch.block)
	return int32(s1) + int32(s2)
}

// evaluateFourOp computes one sample for a four-operator voice mastered by
// chIdx. The master's frequency, feedback and outputs drive all four
// operators; the two connection bits select the algorithm.
func (c *Chip) evaluateFourOp(chIdx int) int32 {
	master, slave := &c.ch[chIdx], &c.ch[chIdx+3]
	o1, o2 := &master.op[0], &master.op[1]
	o3, o4 := &slave.op[0], &slave.op[1]
	for _, op := range []*operator{o1, o2, o3, o4} {
		c.stepOperator(master, op)
	}

	f, b := master.fNum, master.block
	s1 := c.opOut(o1, feedback(o1, master.feedback), f, b)

	switch master.cnt<<1 | slave.cnt {
	case 0: // FM-FM: 1->2->3->4
		s2 := c.opOut(o2, int32(s1)>>1, f, b)
		s3 := c.opOut(o3, int32(s2)>>1, f, b)
		return int32(c.opOut(o4, int32(s3)>>1, f, b))
	case 2: // AM-FM: 1 + (2->3->4)
		s2 := c.opOut(o2, 0, f, b)
		s3 := c.opOut(o3, int32(s2)>>1, f, b)
		return int32(s1) + int32(c.opOut(o4, int32(s3)>>1, f, b))
	case 1: // FM-AM: (1->2) + (3->4)
		s2 := c.opOut(o2, int32(s1)>>1, f, b)
		s3 := c.opOut(o3, 0, f, b)
		return int32(s2) + int32(c.opOut(o4, int32(s3)>>1, f, b))
	default: // AM-AM: 1 + (2->3) + 4
		s2 := c.opOut(o2, 0, f, b)
		s3 := c.opOut(o3, int32(s2)>>1, f, b)
		s4 := c.opOut(o4, 0, f, b)
		return int32(s1) + int32(s3) + int32(s4)
	}
}

// clampInt32 clamps v to [min, max].
func clampInt32(v, min, max int32) int32 {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}
