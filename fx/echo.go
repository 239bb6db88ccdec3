package fx

import (
	"io"

	"github.com/user-none/fmtrack/fm"
)

// maxDelayFrames bounds the delay line allocated on load.
const maxDelayFrames = 192000

// Echo is a feedback delay with a dry/wet mix.
type Echo struct {
	DelayFrames uint32
	Feedback    float32 // [0, 0.95]
	Mix         float32 // [0, 1]

	line []float32
	pos  int
}

// NewEcho creates an echo with the given delay in frames.
func NewEcho(delayFrames int, feedback, mix float32) *Echo {
	e := &Echo{
		DelayFrames: uint32(max(delayFrames, 1)),
		Feedback:    feedback,
		Mix:         mix,
	}
	e.normalize()
	return e
}

func (e *Echo) normalize() {
	e.DelayFrames = min(max(e.DelayFrames, 1), maxDelayFrames)
	e.Feedback = clamp(e.Feedback, 0, 0.95)
	e.Mix = clamp(e.Mix, 0, 1)
	e.line = nil
	e.pos = 0
}

// Process mixes the delayed signal into buf. Parameters set directly on the
// struct are clamped first, so a zero Echo acts as a one-frame delay.
func (e *Echo) Process(buf []float32, frames int) {
	e.DelayFrames = min(max(e.DelayFrames, 1), maxDelayFrames)
	e.Feedback = clamp(e.Feedback, 0, 0.95)
	e.Mix = clamp(e.Mix, 0, 1)
	if len(e.line) != int(e.DelayFrames)*2 {
		e.line = make([]float32, int(e.DelayFrames)*2)
		e.pos = 0
	}
	frames = min(frames, len(buf)/2)
	for i := 0; i < frames; i++ {
		for ch := 0; ch < 2; ch++ {
			dry := buf[i*2+ch]
			wet := e.line[e.pos*2+ch]
			e.line[e.pos*2+ch] = dry + wet*e.Feedback
			buf[i*2+ch] = dry*(1-e.Mix) + wet*e.Mix
		}
		e.pos++
		if e.pos == int(e.DelayFrames) {
			e.pos = 0
		}
	}
}

// Type returns TypeEcho.
func (e *Echo) Type() fm.EffectType { return TypeEcho }

// Save writes the delay, feedback and mix.
func (e *Echo) Save(w io.Writer) error {
	return writeParams(w, e.DelayFrames, e.Feedback, e.Mix)
}

// Load reads parameters written by Save, clamps them and clears the
// delay line.
func (e *Echo) Load(r io.Reader) error {
	if err := readParams(r, &e.DelayFrames, &e.Feedback, &e.Mix); err != nil {
		return err
	}
	e.normalize()
	return nil
}
