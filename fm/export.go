package fm

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"os"
)

// exportChunk is the number of frames rendered per progress step.
const exportChunk = 4096

// Output is a live audio sink that pulls from the controller.
type Output interface {
	Detach()
	Attach()
}

// SetOutput registers the live sink detached for the duration of exports.
func (c *Controller) SetOutput(o Output) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.output = o
}

// ExportOptions controls offline rendering.
type ExportOptions struct {
	Effects   []Effect           // Applied in order after rendering
	Normalize bool               // Scale the peak to normalizePeak
	Progress  func(done float64) // Called with 0..1 after every chunk
}

// normalizePeak is the target level of the normalisation pass.
const normalizePeak = 0.98

// maxExportSeconds bounds the length of one export.
const maxExportSeconds = 60 * 60

// exportFrames returns the number of frames needed to play song once.
func (c *Controller) exportFrames(song *SongData) int {
	spt := samplesPerTick(c.sampleRate, song.BPM)
	return int(math.Ceil(float64(song.TotalTicks()) * spt))
}

// Export renders song once, without looping, into interleaved stereo
// samples. The live output is detached while rendering.
func (c *Controller) Export(song *SongData, opts ExportOptions) ([]float32, error) {
	c.mu.Lock()
	out := c.output
	c.mu.Unlock()
	if out != nil {
		out.Detach()
		defer out.Attach()
	}

	if err := c.PlaySong(song, false); err != nil {
		return nil, err
	}
	defer c.Stop()

	frames := c.exportFrames(song)
	if limit := c.sampleRate * maxExportSeconds; frames > limit {
		err := fmt.Errorf("%w: export of %d frames (max %d)", ErrTooLarge, frames, limit)
		c.mu.Lock()
		c.recordErrorLocked(err)
		c.mu.Unlock()
		return nil, err
	}
	buf := make([]float32, frames*2)
	for pos := 0; pos < frames; pos += exportChunk {
		n := min(exportChunk, frames-pos)
		c.FillBuffer(buf[pos*2:(pos+n)*2], n)
		if opts.Progress != nil {
			opts.Progress(float64(pos+n) / float64(frames))
		}
	}
	if opts.Progress != nil && frames == 0 {
		opts.Progress(1)
	}

	ProcessChain(opts.Effects, buf, frames)
	if opts.Normalize {
		Normalize(buf, normalizePeak)
	}
	return buf, nil
}

// ExportWAV renders song and writes it to w as a float WAV stream.
func (c *Controller) ExportWAV(w io.Writer, song *SongData, opts ExportOptions) error {
	samples, err := c.Export(song, opts)
	if err != nil {
		return err
	}
	return WriteWAV(w, samples, c.sampleRate)
}

// ExportWAVFile renders song to a WAV file at path.
func (c *Controller) ExportWAVFile(path string, song *SongData, opts ExportOptions) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	bw := bufio.NewWriter(f)
	if err := c.ExportWAV(bw, song, opts); err != nil {
		f.Close()
		return err
	}
	if err := bw.Flush(); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}

// Normalize scales buf so its absolute peak equals peak. Silent buffers are
// left unchanged.
func Normalize(buf []float32, peak float32) {
	var maxAbs float32
	for _, s := range buf {
		if s < 0 {
			s = -s
		}
		maxAbs = max(maxAbs, s)
	}
	if maxAbs == 0 {
		return
	}
	g := peak / maxAbs
	for i := range buf {
		buf[i] *= g
	}
}
