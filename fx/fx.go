// Package fx provides the post-processing effects used by song export.
// Each effect works in place on interleaved stereo float samples and
// persists its parameters as a little-endian payload.
package fx

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"

	"github.com/user-none/fmtrack/fm"
)

// Effect type tags stored in song files.
const (
	TypeGain    fm.EffectType = 1
	TypeLimiter fm.EffectType = 2
	TypeEcho    fm.EffectType = 3
)

// Factory creates an empty effect for a stored type tag.
func Factory(t fm.EffectType) (fm.Effect, error) {
	switch t {
	case TypeGain:
		return &Gain{}, nil
	case TypeLimiter:
		return &Limiter{}, nil
	case TypeEcho:
		return &Echo{}, nil
	}
	return nil, fmt.Errorf("%w: %d", fm.ErrUnknownEffect, t)
}

// Name returns a display name for a type tag.
func Name(t fm.EffectType) string {
	switch t {
	case TypeGain:
		return "gain"
	case TypeLimiter:
		return "limiter"
	case TypeEcho:
		return "echo"
	}
	return fmt.Sprintf("unknown(%d)", t)
}

func clamp(v, lo, hi float32) float32 {
	return max(lo, min(v, hi))
}

func dbToLinear(db float32) float32 {
	return float32(math.Pow(10, float64(db)/20))
}

func writeParams(w io.Writer, params ...any) error {
	for _, p := range params {
		if err := binary.Write(w, binary.LittleEndian, p); err != nil {
			return err
		}
	}
	return nil
}

func readParams(r io.Reader, params ...any) error {
	for _, p := range params {
		if err := binary.Read(r, binary.LittleEndian, p); err != nil {
			return err
		}
	}
	return nil
}
