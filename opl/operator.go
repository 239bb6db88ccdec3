package opl

import "math"

// sineTable is a quarter-sine log table: 256 entries of -log2(sin((2i+1)/512 * pi/2))
// in 4.8 fixed-point. Shared by all eight waveforms.
var sineTable [256]uint16

// pow2Table is a power-of-2 table: 256 entries of 2^(1-(i+1)/256) scaled to 11-bit.
// Used to convert log-domain attenuation back to linear amplitude.
var pow2Table [256]uint16

func init() {
	for i := 0; i < 256; i++ {
		angle := float64(2*i+1) / 512.0 * math.Pi / 2.0
		logVal := -math.Log2(math.Sin(angle)) * 256.0
		sineTable[i] = uint16(math.Round(logVal))
	}
	for i := 0; i < 256; i++ {
		val := math.Pow(2.0, 1.0-float64(i+1)/256.0) * 1024.0
		pow2Table[i] = uint16(math.Round(val))
	}
}

// multTable holds the frequency multiplier for each 4-bit MULT value, doubled
// so MULT=0 (x0.5) stays integral.
var multTable = [16]uint32{1, 2, 4, 6, 8, 10, 12, 14, 16, 18, 20, 20, 24, 24, 30, 30}

// kslTable is the key scale level ROM indexed by the top 4 bits of the F-number.
var kslTable = [16]int32{0, 32, 40, 45, 48, 51, 53, 55, 56, 58, 59, 60, 61, 62, 63, 64}

// kslShift maps the 2-bit KSL field to a right shift of the raw KSL value.
// KSL 0 disables scaling, 1 = 3dB/oct, 2 = 1.5dB/oct, 3 = 6dB/oct.
var kslShift = [4]uint{8, 1, 2, 0}

// sineLookup returns the log-sine attenuation for a 10-bit phase index and
// whether the sample falls in the negative half of the period.
func sineLookup(idx uint32) (uint32, bool) {
	neg := idx&0x200 != 0
	i := idx & 0xFF
	if idx&0x100 != 0 {
		i = 0xFF - i
	}
	return uint32(sineTable[i]), neg
}

// expOutput converts a log-domain attenuation (4.8 fixed point) to a signed
// linear sample.
func expOutput(totalAtten uint32, neg bool) int16 {
	intPart := totalAtten >> 8
	fracPart := totalAtten & 0xFF
	linear := uint32(pow2Table[fracPart]) << 2
	linear >>= intPart
	if neg {
		return -int16(linear)
	}
	return int16(linear)
}

// computeOperatorOutput computes the signed output of an operator for the
// given waveform, 20-bit phase (with modulation) and 10-bit attenuation.
func computeOperatorOutput(wave uint8, phase uint32, atten uint16) int16 {
	idx := (phase >> 10) & 0x3FF

	var logSin uint32
	var neg bool
	switch wave & 0x07 {
	case 0: // sine
		logSin, neg = sineLookup(idx)
	case 1: // half sine
		if idx&0x200 != 0 {
			return 0
		}
		logSin, _ = sineLookup(idx)
	case 2: // absolute sine
		logSin, _ = sineLookup(idx)
	case 3: // pulse sine: rising quarters only
		if idx&0x100 != 0 {
			return 0
		}
		logSin, _ = sineLookup(idx)
	case 4: // alternating sine, double speed on even half
		if idx&0x200 != 0 {
			return 0
		}
		logSin, neg = sineLookup((idx << 1) & 0x3FF)
	case 5: // camel sine
		if idx&0x200 != 0 {
			return 0
		}
		logSin, _ = sineLookup((idx << 1) & 0x3FF)
	case 6: // square
		neg = idx&0x200 != 0
	case 7: // derived square (log saw)
		neg = idx&0x200 != 0
		i := idx & 0x1FF
		if neg {
			i ^= 0x1FF
		}
		logSin = i << 3
	}

	return expOutput(logSin+(uint32(atten)<<2), neg)
}

// phaseIncrement returns the 20-bit phase step for one native sample.
func phaseIncrement(fNum uint16, block uint8, mult uint8) uint32 {
	base := uint32(fNum) << uint(block)
	return ((base * multTable[mult&0x0F]) >> 1) & 0xFFFFF
}

// keyScaleAttenuation returns the KSL attenuation in 10-bit envelope units.
func keyScaleAttenuation(fNum uint16, block uint8, ksl uint8) uint16 {
	v := kslTable[(fNum>>6)&0x0F]<<2 - int32(8-int32(block))<<5
	if v <= 0 {
		return 0
	}
	// The ROM is in 9-bit units; envelope attenuation here is 10-bit.
	return uint16(v>>kslShift[ksl&0x03]) << 1
}

// feedback computes the self-feedback modulation for the first operator of a channel.
func feedback(op *operator, fbLevel uint8) int32 {
	if fbLevel == 0 {
		return 0
	}
	return (int32(op.prevOut[0]) + int32(op.prevOut[1])) >> (10 - uint(fbLevel))
}

// opOut computes an operator's output for the given modulation and stores
// the history used by feedback.
func (c *Chip) opOut(op *operator, modulation int32, fNum uint16, block uint8) int16 {
	atten := uint32(op.egLevel) + uint32(op.tl)<<3 + uint32(keyScaleAttenuation(fNum, block, op.ksl))
	if op.am {
		atten += uint32(c.tremoloAtten())
	}
	if atten > 0x3FF {
		atten = 0x3FF
	}
	phase := op.phase + uint32(modulation<<10)
	out := computeOperatorOutput(c.waveform(op.wave), phase, uint16(atten))

	op.prevOut[1] = op.prevOut[0]
	op.prevOut[0] = out
	return out
}

// waveform masks the waveform select to what the current mode allows.
// OPL2 mode exposes waveforms 0-3 only when the wave select enable is set.
func (c *Chip) waveform(w uint8) uint8 {
	if c.newMode {
		return w & 0x07
	}
	if !c.waveSelect {
		return 0
	}
	return w & 0x03
}
