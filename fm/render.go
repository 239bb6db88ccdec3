package fm

import "github.com/user-none/fmtrack/opl"

// silenceFloor is the absolute sample level treated as silence by the
// voice-activity watchdog.
const silenceFloor = 1.0 / 32768

// sleepThreshold is the number of silent frames after which the watchdog
// reports the chip as sleeping.
func (c *Controller) sleepThreshold() int {
	return c.sampleRate / 2
}

// wakeLocked clears the watchdog after a key-on.
func (c *Controller) wakeLocked() {
	c.silentFrames = 0
	c.sleeping = false
}

// Sleeping reports whether the watchdog has seen sustained silence with no
// keyed channel.
func (c *Controller) Sleeping() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sleeping
}

// FillBuffer renders frames interleaved stereo frames into buf. It is the
// audio callback and the only place the sequencer is clocked. A panic in
// the chip path zeroes the buffer.
func (c *Controller) FillBuffer(buf []float32, frames int) {
	if frames <= 0 {
		return
	}
	if frames*2 > len(buf) {
		frames = len(buf) / 2
	}
	out := buf[:frames*2]

	c.mu.Lock()
	defer c.mu.Unlock()
	defer func() {
		if r := recover(); r != nil {
			c.logger.Printf("fm: render failed: %v", r)
			clear(out)
		}
	}()

	if !c.seq.playing {
		if c.sleeping && !c.anyKeyedLocked() {
			clear(out)
			return
		}
		c.renderLocked(out, frames)
		c.watchdogLocked(out, frames)
		return
	}

	pos := 0
	for pos < frames {
		if c.seq.sampleAcc >= c.seq.samplesPerTick {
			c.tickLocked()
			c.seq.sampleAcc -= c.seq.samplesPerTick
		}
		if !c.seq.playing {
			// Song ended mid-buffer: let release tails finish.
			c.renderLocked(out[pos*2:], frames-pos)
			break
		}
		n := max(1, int(c.seq.samplesPerTick-c.seq.sampleAcc))
		n = min(n, frames-pos)
		c.renderLocked(out[pos*2:(pos+n)*2], n)
		pos += n
		c.seq.sampleAcc += float64(n)
	}
	c.watchdogLocked(out, frames)
}

// renderLocked produces frames output frames from the chip, holding each
// native sample until the resampler steps past it.
func (c *Controller) renderLocked(out []float32, frames int) {
	for i := 0; i < frames; i++ {
		c.resampleAcc += c.resampleStep
		for c.resampleAcc >= 1 {
			c.resampleAcc--
			c.chip.Generate(&c.frame)
			c.held = mixFrame(&c.frame)
		}
		out[i*2] = c.held[0]
		out[i*2+1] = c.held[1]
	}
}

// mixFrame folds the four chip outputs to stereo: A+C left, B+D right.
func mixFrame(f *opl.Frame) [2]float32 {
	l := (float32(f[0]) + float32(f[2])) / 32768
	r := (float32(f[1]) + float32(f[3])) / 32768
	return [2]float32{clampSample(l), clampSample(r)}
}

func clampSample(v float32) float32 {
	if v > 1 {
		return 1
	}
	if v < -1 {
		return -1
	}
	return v
}

func (c *Controller) anyKeyedLocked() bool {
	for _, on := range c.keyOn {
		if on {
			return true
		}
	}
	return false
}

// watchdogLocked tracks how many trailing frames have been silent.
func (c *Controller) watchdogLocked(out []float32, frames int) {
	if c.anyKeyedLocked() {
		c.wakeLocked()
		return
	}
	quiet := 0
	for i := frames - 1; i >= 0; i-- {
		l, r := out[i*2], out[i*2+1]
		if l > silenceFloor || l < -silenceFloor || r > silenceFloor || r < -silenceFloor {
			break
		}
		quiet++
	}
	if quiet < frames {
		c.silentFrames = quiet
	} else {
		c.silentFrames += quiet
	}
	c.sleeping = c.silentFrames >= c.sleepThreshold()
}
