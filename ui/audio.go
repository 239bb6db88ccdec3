package ui

import (
	"encoding/binary"
	"fmt"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ebitengine/oto/v3"
)

// bytesPerFrame is one stereo float32 frame.
const bytesPerFrame = 8

// Source renders interleaved stereo float samples on demand.
type Source interface {
	FillBuffer(buf []float32, frames int)
}

// sourceRef boxes a Source so it can sit behind an atomic.Pointer.
type sourceRef struct {
	src Source
}

// AudioPlayer pulls float32 stereo samples from a Source through oto.
// oto's goroutine calls Read; the source is swapped atomically so Read
// never blocks on control operations.
type AudioPlayer struct {
	player *oto.Player

	source   atomic.Pointer[sourceRef]
	attached Source     // Restored by Attach
	readMu   sync.Mutex // Held for the duration of one Read
	ctrlMu   sync.Mutex // Serializes Attach/Detach
	samples  []float32
}

// oto context singleton
var (
	otoCtx      *oto.Context
	otoCtxRate  int
	otoInitOnce sync.Once
	otoInitErr  error
)

// ensureOtoContext initializes the oto audio context on first use.
// oto allows a single context per process, so the rate is fixed by the
// first caller.
func ensureOtoContext(sampleRate int) (*oto.Context, error) {
	otoInitOnce.Do(func() {
		op := &oto.NewContextOptions{
			SampleRate:   sampleRate,
			ChannelCount: 2,
			Format:       oto.FormatFloat32LE,
			BufferSize:   50 * time.Millisecond,
		}
		var readyChan chan struct{}
		otoCtx, readyChan, otoInitErr = oto.NewContext(op)
		if otoInitErr != nil {
			return
		}
		otoCtxRate = sampleRate
		<-readyChan
	})
	if otoInitErr == nil && otoCtxRate != sampleRate {
		return nil, fmt.Errorf("oto context already running at %d Hz", otoCtxRate)
	}
	return otoCtx, otoInitErr
}

// NewAudioPlayer opens the default output device and starts pulling from
// src at sampleRate.
func NewAudioPlayer(src Source, sampleRate int, volume float64) (*AudioPlayer, error) {
	ctx, err := ensureOtoContext(sampleRate)
	if err != nil {
		return nil, fmt.Errorf("oto audio not available: %w", err)
	}

	a := newAudioPlayer(src)
	a.player = ctx.NewPlayer(a)
	// About 46ms of float stereo at 44.1kHz.
	a.player.SetBufferSize(2048 * bytesPerFrame)
	a.player.SetVolume(volume)
	a.player.Play()
	return a, nil
}

func newAudioPlayer(src Source) *AudioPlayer {
	a := &AudioPlayer{attached: src, samples: make([]float32, 0, 4096)}
	if src != nil {
		a.source.Store(&sourceRef{src: src})
	}
	return a
}

// Read implements io.Reader for oto. Without a source it emits silence.
func (a *AudioPlayer) Read(p []byte) (int, error) {
	a.readMu.Lock()
	defer a.readMu.Unlock()

	ref := a.source.Load()
	frames := len(p) / bytesPerFrame
	if ref == nil || frames == 0 {
		clear(p)
		return len(p), nil
	}

	if cap(a.samples) < frames*2 {
		a.samples = make([]float32, frames*2)
	}
	buf := a.samples[:frames*2]
	ref.src.FillBuffer(buf, frames)

	for i, s := range buf {
		binary.LittleEndian.PutUint32(p[i*4:], math.Float32bits(s))
	}
	clear(p[frames*bytesPerFrame:])
	return len(p), nil
}

// Detach stops pulling from the source and waits for an in-flight Read
// to finish. Output continues as silence.
func (a *AudioPlayer) Detach() {
	a.ctrlMu.Lock()
	defer a.ctrlMu.Unlock()
	a.source.Store(nil)
	a.readMu.Lock()
	a.readMu.Unlock()
}

// Attach resumes pulling from the source given at construction.
func (a *AudioPlayer) Attach() {
	a.ctrlMu.Lock()
	defer a.ctrlMu.Unlock()
	if a.attached != nil {
		a.source.Store(&sourceRef{src: a.attached})
	}
}

// Attached reports whether Read is pulling from the source.
func (a *AudioPlayer) Attached() bool {
	return a.source.Load() != nil
}

// BufferedSize returns the bytes queued inside oto's player.
func (a *AudioPlayer) BufferedSize() int {
	if a.player == nil {
		return 0
	}
	return a.player.BufferedSize()
}

// SetVolume sets the playback volume (0.0 = silent, 1.0 = full).
func (a *AudioPlayer) SetVolume(vol float64) {
	if a.player != nil {
		a.player.SetVolume(vol)
	}
}

// Close stops playback and releases the player.
func (a *AudioPlayer) Close() error {
	a.Detach()
	if a.player == nil {
		return nil
	}
	return a.player.Close()
}
