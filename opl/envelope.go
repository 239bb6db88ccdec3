package opl

// Envelope states for ADSR
const (
	egAttack  = 0
	egDecay   = 1
	egSustain = 2
	egRelease = 3
)

// egIncrementTable defines the attenuation increment patterns for rates 4-47.
// The shift value (11 - rate>>2) controls how often updates occur and rate&3
// selects one of the 4 base patterns. Row 0 is unused.
var egIncrementTable = [5][8]uint8{
	{0, 0, 0, 0, 0, 0, 0, 0},
	{0, 1, 0, 1, 0, 1, 0, 1},
	{0, 1, 0, 1, 1, 1, 0, 1},
	{0, 1, 1, 1, 0, 1, 1, 1},
	{0, 1, 1, 1, 1, 1, 1, 1},
}

// egHighRateTable defines per-rate increment patterns for rates 48-63,
// which update on every envelope tick.
var egHighRateTable = [16][8]uint8{
	{1, 1, 1, 1, 1, 1, 1, 1},
	{1, 1, 1, 2, 1, 1, 1, 2},
	{1, 2, 1, 2, 1, 2, 1, 2},
	{1, 2, 2, 2, 1, 2, 2, 2},
	{2, 2, 2, 2, 2, 2, 2, 2},
	{2, 2, 2, 4, 2, 2, 2, 4},
	{2, 4, 2, 4, 2, 4, 2, 4},
	{2, 4, 4, 4, 2, 4, 4, 4},
	{4, 4, 4, 4, 4, 4, 4, 4},
	{4, 4, 4, 8, 4, 4, 4, 8},
	{4, 8, 4, 8, 4, 8, 4, 8},
	{4, 8, 8, 8, 4, 8, 8, 8},
	{8, 8, 8, 8, 8, 8, 8, 8},
	{8, 8, 8, 8, 8, 8, 8, 8},
	{8, 8, 8, 8, 8, 8, 8, 8},
	{8, 8, 8, 8, 8, 8, 8, 8},
}

// keyCode returns the 4-bit rate key code (block and F-number bit 9).
func keyCode(fNum uint16, block uint8) uint8 {
	return block<<1 | uint8((fNum>>9)&1)
}

// effectiveRate computes 4*rate + rks, clamped to 63. Returns 0 if rate is 0.
func effectiveRate(rate uint8, op *operator, kc uint8) uint8 {
	if rate == 0 {
		return 0
	}
	rks := kc >> 2
	if op.ksr {
		rks = kc
	}
	r := int(4*rate) + int(rks)
	if r > 63 {
		r = 63
	}
	return uint8(r)
}

// sustainLevel converts the 4-bit SL field to a 10-bit attenuation level.
// SL 0-14 = 3dB steps, SL 15 = 93dB.
func sustainLevel(sl uint8) uint16 {
	if sl >= 15 {
		return 0x3E0
	}
	return uint16(sl) << 5
}

// stepOperatorEnvelope advances one operator's envelope by one EG step.
// kc is the key code of the channel supplying the operator's frequency.
func stepOperatorEnvelope(op *operator, counter uint32, kc uint8) {
	if op.egState == egDecay && op.egLevel >= sustainLevel(op.sl) {
		op.egState = egSustain
	}

	var rate uint8
	switch op.egState {
	case egAttack:
		rate = effectiveRate(op.ar, op, kc)
	case egDecay:
		rate = effectiveRate(op.dr, op, kc)
	case egSustain:
		if op.egt {
			return // Held until key-off
		}
		rate = effectiveRate(op.rr, op, kc)
	case egRelease:
		rate = effectiveRate(op.rr, op, kc)
	}

	if rate == 0 {
		return
	}

	var incr uint8
	if rate >= 48 {
		incr = egHighRateTable[rate-48][counter&7]
	} else {
		group := rate >> 2
		shift := uint(11 - int(group))
		if shift > 0 && (counter&((1<<shift)-1)) != 0 {
			return
		}
		incr = egIncrementTable[(rate&3)+1][(counter>>shift)&7]
	}
	if incr == 0 {
		return
	}

	switch op.egState {
	case egAttack:
		if rate >= 60 {
			op.egLevel = 0
		} else {
			step := (^int32(op.egLevel) * int32(incr)) >> 3
			newLevel := int32(op.egLevel) + step
			if newLevel <= 0 {
				op.egLevel = 0
			} else {
				op.egLevel = uint16(newLevel)
			}
		}
		if op.egLevel == 0 {
			op.egState = egDecay
		}
	default:
		// Attenuation is 10-bit here, the OPL's native envelope is 9-bit.
		op.egLevel += uint16(incr) << 1
		if op.egLevel > 0x3FF {
			op.egLevel = 0x3FF
		}
	}
}

// keyOnOperator starts the attack phase and resets the phase accumulator.
func keyOnOperator(op *operator) {
	if op.keyOn {
		return
	}
	op.keyOn = true
	op.phase = 0
	op.egState = egAttack
}

// keyOffOperator moves the envelope to release.
func keyOffOperator(op *operator) {
	if !op.keyOn {
		return
	}
	op.keyOn = false
	op.egState = egRelease
}
