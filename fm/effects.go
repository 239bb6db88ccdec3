package fm

import "io"

// EffectType identifies an effect in the song file's effect block.
type EffectType uint8

// Effect is one stage of the post-processing chain applied on export.
// Process works in place on interleaved stereo samples.
type Effect interface {
	Process(buf []float32, frames int)
	Type() EffectType
	Save(w io.Writer) error
	Load(r io.Reader) error
}

// EffectFactory creates an empty effect of the given type for loading.
type EffectFactory func(t EffectType) (Effect, error)

// MaxEffects is the largest effect chain a song file may carry.
const MaxEffects = 16

// ProcessChain runs every effect in order over buf.
func ProcessChain(chain []Effect, buf []float32, frames int) {
	for _, e := range chain {
		if e != nil {
			e.Process(buf, frames)
		}
	}
}
