package fm

// Connection modes for an operator pair.
const (
	ConnectionFM       = 0 // Modulator drives the carrier's phase
	ConnectionAdditive = 1 // Modulator and carrier are summed
)

// Output routing bits used in OpPair.Panning and register 0xC0 bits 4-5.
const (
	PanLeft   = 0x01
	PanRight  = 0x02
	PanCenter = PanLeft | PanRight
)

// OpParams are the per-operator patch parameters.
type OpParams struct {
	Mult          uint8 // Frequency multiplier (4-bit)
	TotalLevel    uint8 // Attenuation (6-bit, 0=loudest)
	Attack        uint8 // 4-bit
	Decay         uint8 // 4-bit
	Sustain       uint8 // 4-bit sustain level (0=loudest)
	Release       uint8 // 4-bit
	Waveform      uint8 // 3-bit
	KeyScaleLevel uint8 // 2-bit
	Tremolo       bool
	Vibrato       bool
	Sustaining    bool // Hold at sustain level until key-off
	KeyScaleRate  bool
}

// OpPair is one two-operator voice.
type OpPair struct {
	Feedback   uint8 // 3-bit
	Connection uint8 // ConnectionFM or ConnectionAdditive
	Panning    uint8 // PanLeft/PanRight bits
	Mod        OpParams
	Car        OpParams
}

// Instrument is a 2-op or 4-op patch. Pairs[1] is used by four-operator and
// dual-voice instruments only.
type Instrument struct {
	Name        string
	FourOp      bool
	DoubleVoice bool
	FineTune    int8  // Cents
	FixedNote   uint8 // 0 disables the override
	NoteOffset  int8  // Semitones
	Pairs       [2]OpPair
}

// usesSecondPair reports whether the linked channel carries pair 1.
func (inst *Instrument) usesSecondPair() bool {
	return inst.FourOp || inst.DoubleVoice
}

// charByte encodes register 0x20: AM, VIB, EGT, KSR, MULT.
func (p OpParams) charByte() uint8 {
	v := p.Mult & 0x0F
	if p.Tremolo {
		v |= 0x80
	}
	if p.Vibrato {
		v |= 0x40
	}
	if p.Sustaining {
		v |= 0x20
	}
	if p.KeyScaleRate {
		v |= 0x10
	}
	return v
}

// levelByte encodes register 0x40 with an explicit total level.
func (p OpParams) levelByte(tl uint8) uint8 {
	return (p.KeyScaleLevel&0x03)<<6 | tl&0x3F
}

// adByte encodes register 0x60: attack and decay rates.
func (p OpParams) adByte() uint8 {
	return (p.Attack&0x0F)<<4 | p.Decay&0x0F
}

// srByte encodes register 0x80: sustain level and release rate.
func (p OpParams) srByte() uint8 {
	return (p.Sustain&0x0F)<<4 | p.Release&0x0F
}

// feedbackByte encodes register 0xC0 with explicit output bits.
func (p OpPair) feedbackByte(pan uint8) uint8 {
	return (pan&0x03)<<4 | (p.Feedback&0x07)<<1 | p.Connection&0x01
}

// scaledLevel attenuates a total level by a 0-63 channel volume.
func scaledLevel(tl uint8, volume uint8) uint8 {
	if volume > MaxVolume {
		volume = MaxVolume
	}
	l := 63 - (63-int(tl&0x3F))*int(volume)/MaxVolume
	return uint8(l)
}
