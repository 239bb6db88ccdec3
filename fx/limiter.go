package fx

import (
	"io"
	"math"

	"github.com/user-none/fmtrack/fm"
)

// Limiter is a peak limiter with instant attack and exponential release.
// Both channels share a gain envelope so the stereo image is kept.
type Limiter struct {
	ThresholdDB float32 // [-24, 0]
	ReleaseMs   float32 // [1, 5000]
	SampleRate  uint32

	gain float32
}

// NewLimiter creates a limiter for sampleRate.
func NewLimiter(sampleRate int, thresholdDB, releaseMs float32) *Limiter {
	l := &Limiter{
		ThresholdDB: thresholdDB,
		ReleaseMs:   releaseMs,
		SampleRate:  uint32(sampleRate),
	}
	l.normalize()
	return l
}

func (l *Limiter) normalize() {
	l.ThresholdDB = clamp(l.ThresholdDB, -24, 0)
	l.ReleaseMs = clamp(l.ReleaseMs, 1, 5000)
	if l.SampleRate == 0 {
		l.SampleRate = 44100
	}
	l.gain = 1
}

// Reset clears the gain envelope.
func (l *Limiter) Reset() {
	l.gain = 1
}

// Process limits buf in place. The gain envelope carries over between
// calls; use Reset to start fresh.
func (l *Limiter) Process(buf []float32, frames int) {
	if l.gain == 0 {
		l.gain = 1
	}
	threshold := dbToLinear(l.ThresholdDB)
	release := float32(1 - math.Exp(-1000/(float64(l.ReleaseMs)*float64(l.SampleRate))))

	frames = min(frames, len(buf)/2)
	for i := 0; i < frames; i++ {
		peak := max(abs(buf[i*2]), abs(buf[i*2+1]))
		target := float32(1)
		if peak > threshold {
			target = threshold / peak
		}
		if target < l.gain {
			l.gain = target
		} else {
			l.gain += (target - l.gain) * release
		}
		buf[i*2] *= l.gain
		buf[i*2+1] *= l.gain
	}
}

func abs(v float32) float32 {
	if v < 0 {
		return -v
	}
	return v
}

// Type returns TypeLimiter.
func (l *Limiter) Type() fm.EffectType { return TypeLimiter }

// Save writes threshold, release and sample rate.
func (l *Limiter) Save(w io.Writer) error {
	return writeParams(w, l.ThresholdDB, l.ReleaseMs, l.SampleRate)
}

// Load reads parameters written by Save and clamps them.
func (l *Limiter) Load(r io.Reader) error {
	if err := readParams(r, &l.ThresholdDB, &l.ReleaseMs, &l.SampleRate); err != nil {
		return err
	}
	l.normalize()
	return nil
}
