package fm

import "math"

// fnumTable holds the F-number of each semitone from C, tuned for A4=440Hz
// at the chip's 49716Hz native rate.
var fnumTable = [12]uint16{345, 365, 387, 410, 435, 460, 488, 517, 547, 580, 614, 651}

// fineTuneTable maps a signed cent offset (index cents+128) to a frequency
// ratio.
var fineTuneTable [256]float64

func init() {
	for i := range fineTuneTable {
		fineTuneTable[i] = math.Pow(2, float64(i-128)/1200)
	}
}

// NotePitch converts a note number into an F-number and block for inst.
// The instrument's fixed note, when set, replaces note; its note offset is
// then added and the result clamped to [0, MaxNote].
func NotePitch(note uint8, inst *Instrument) (fnum uint16, block uint8) {
	n := int(note)
	var tune int8
	if inst != nil {
		if inst.FixedNote != 0 {
			n = int(inst.FixedNote)
		}
		n += int(inst.NoteOffset)
		tune = inst.FineTune
	}
	n = max(0, min(n, MaxNote))

	b := n/12 - 1
	f := math.Round(float64(fnumTable[n%12]) * fineTuneTable[int(tune)+128])

	b = max(0, min(b, 7))
	f = max(0, min(f, 1023))
	return uint16(f), uint8(b)
}
