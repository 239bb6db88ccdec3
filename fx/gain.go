package fx

import (
	"io"

	"github.com/user-none/fmtrack/fm"
)

// Gain scales every sample by a fixed level in decibels.
type Gain struct {
	DB float32
}

// NewGain creates a gain stage clamped to [-48, 24] dB.
func NewGain(db float32) *Gain {
	return &Gain{DB: clamp(db, -48, 24)}
}

// Process scales frames stereo frames of buf in place.
func (g *Gain) Process(buf []float32, frames int) {
	k := dbToLinear(g.DB)
	n := min(frames*2, len(buf))
	for i := 0; i < n; i++ {
		buf[i] *= k
	}
}

// Type returns TypeGain.
func (g *Gain) Type() fm.EffectType { return TypeGain }

// Save writes the level as a float32.
func (g *Gain) Save(w io.Writer) error {
	return writeParams(w, g.DB)
}

// Load reads a level written by Save and clamps it.
func (g *Gain) Load(r io.Reader) error {
	if err := readParams(r, &g.DB); err != nil {
		return err
	}
	g.DB = clamp(g.DB, -48, 24)
	return nil
}
