package fm

import "fmt"

// Position is the playback cursor.
type Position struct {
	Playing bool
	Order   int
	Row     int
	Tick    int
}

// unsetVolume never appears in step data, so the first row re-applies
// volume and panning on every channel.
const unsetVolume = 0xFF

type sequencer struct {
	song     *SongData
	playing  bool
	loop     bool
	finished bool // Last tick has played; stop on the next one

	orderIdx int
	rowIdx   int
	tick     int

	ticksPerRow    int
	samplesPerTick float64
	sampleAcc      float64

	loopStart int
	stopOrder int // -1 plays to the end of the order list

	last    [NumHardwareChannels]SongStep // Last values written per channel
	display [NumSoftwareChannels]SongStep // Snapshot for UI readers
}

// samplesPerTick returns output frames per tick for bpm at sampleRate.
func samplesPerTick(sampleRate int, bpm float32) float64 {
	return float64(sampleRate) / (float64(bpm) * 0.4)
}

// PlaySong validates song and starts playing it from the first order.
// The first row is processed on the first rendered frame.
func (c *Controller) PlaySong(song *SongData, loop bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := song.Validate(); err != nil {
		c.recordErrorLocked(err)
		return err
	}

	c.stopLocked()
	s := &c.seq
	s.song = song
	s.loop = loop
	s.finished = false
	s.orderIdx, s.rowIdx, s.tick = 0, 0, 0
	s.ticksPerRow = int(song.TicksPerRow)
	s.samplesPerTick = samplesPerTick(c.sampleRate, song.BPM)
	s.sampleAcc = s.samplesPerTick
	for hw := range s.last {
		s.last[hw] = SongStep{Note: NoteNone, Volume: unsetVolume, Panning: unsetVolume}
		c.applied[hw] = -1
	}
	for sw := range s.display {
		s.display[sw] = EmptyStep
	}
	s.playing = true
	c.wakeLocked()
	return nil
}

// Stop halts playback and silences every channel.
func (c *Controller) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopLocked()
}

func (c *Controller) stopLocked() {
	wasPlaying := c.seq.playing
	c.seq.playing = false
	c.seq.song = nil
	for sw := range c.seq.display {
		c.seq.display[sw] = EmptyStep
	}
	if wasPlaying {
		c.silenceAllLocked()
	}
}

// SetLoopStart sets the order index playback returns to when looping.
func (c *Controller) SetLoopStart(order int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seq.loopStart = max(order, 0)
}

// SetStopOrder sets the last order to play. A negative order disables it.
func (c *Controller) SetStopOrder(order int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if order < 0 {
		order = -1
	}
	c.seq.stopOrder = order
}

// Position returns the current playback cursor.
func (c *Controller) Position() Position {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Position{
		Playing: c.seq.playing,
		Order:   c.seq.orderIdx,
		Row:     c.seq.rowIdx,
		Tick:    c.seq.tick,
	}
}

// Playing reports whether a song is playing.
func (c *Controller) Playing() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.seq.playing
}

// ChannelSnapshot returns a copy of the last step seen on each song channel.
func (c *Controller) ChannelSnapshot() [NumSoftwareChannels]SongStep {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.seq.display
}

// PlayNote starts note on song channel sw using an instrument from the live
// bank. It is ignored during song playback.
func (c *Controller) PlayNote(sw int, note uint8, instrument int, volume uint8) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if sw < 0 || sw >= NumSoftwareChannels {
		return fmt.Errorf("%w: software channel %d", ErrChannelRange, sw)
	}
	if note > MaxNote {
		return fmt.Errorf("note %d out of range", note)
	}
	if instrument < 0 || instrument >= len(c.bank) {
		return fmt.Errorf("%w: instrument %d of %d", ErrInstrumentRange, instrument, len(c.bank))
	}
	if c.seq.playing {
		return nil
	}

	hw := softwareToHardware[sw]
	c.playNoteHWLocked(hw, SongStep{
		Note:       note,
		Instrument: uint16(instrument),
		Volume:     min(volume, MaxVolume),
		Panning:    CenterPanning,
	})
	return nil
}

// StopNote keys off song channel sw and its linked channel.
func (c *Controller) StopNote(sw int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if sw < 0 || sw >= NumSoftwareChannels {
		c.logger.Printf("fm: software channel %d out of range", sw)
		return
	}
	c.stopNoteHWLocked(softwareToHardware[sw])
}

// stopNoteHWLocked keys off hw and, for four-op masters, the linked channel.
func (c *Controller) stopNoteHWLocked(hw int) {
	c.keyOffChannelLocked(hw)
	if isMaster(hw) {
		c.keyOffChannelLocked(hw + 3)
	}
}

// writeFrequencyLocked writes F-number, block and key state for one channel.
func (c *Controller) writeFrequencyLocked(hw int, fnum uint16, block uint8, key bool) {
	v := (block&0x07)<<2 | uint8(fnum>>8)&0x03
	if key {
		v |= keyOnBit
	}
	c.writeRegLocked(channelReg(hw, regFnumLo), uint8(fnum))
	c.writeRegLocked(channelReg(hw, regKeyBlock), v)
	c.keyOn[hw] = key
}

// playNoteHWLocked applies step to hw: a volume and panning update for
// NoteNone, a key-off for NoteStop, or a full retrigger for a pitch.
func (c *Controller) playNoteHWLocked(hw int, step SongStep) {
	last := &c.seq.last[hw]

	switch {
	case step.Note == NoteNone:
		if step.Volume != last.Volume {
			c.applyVolumeLocked(hw, step.Volume)
		}
		if step.Panning != last.Panning {
			c.applyPanningLocked(hw, step.Panning)
		}
		last.Volume = step.Volume
		last.Panning = step.Panning

	case step.Note == NoteStop:
		c.stopNoteHWLocked(hw)
		last.Note = NoteStop

	case step.isPitch():
		c.stopNoteHWLocked(hw)
		if err := c.applyInstrumentLocked(hw, int(step.Instrument)); err != nil {
			c.recordErrorLocked(err)
			return
		}
		inst := &c.instrumentsLocked()[step.Instrument]
		c.applyVolumeLocked(hw, step.Volume)
		c.applyPanningLocked(hw, step.Panning)

		fnum, block := NotePitch(step.Note, inst)
		c.writeFrequencyLocked(hw, fnum, block, true)
		if isMaster(hw) && inst.DoubleVoice && !inst.FourOp {
			c.writeFrequencyLocked(hw+3, fnum, block, true)
		}
		*last = step
		c.wakeLocked()

	default:
		c.logger.Printf("fm: ignoring note value %d on channel %d", step.Note, hw)
	}
}

// tickLocked advances the song by one tick. It is only called from the
// renderer.
func (c *Controller) tickLocked() {
	s := &c.seq
	if !s.playing || s.song == nil {
		return
	}
	if s.finished {
		c.stopLocked()
		return
	}
	song := s.song
	pat := song.Patterns[song.Orders[s.orderIdx]]

	for sw := 0; sw < NumSoftwareChannels; sw++ {
		hw := softwareToHardware[sw]
		step := pat.Step(s.rowIdx, sw)

		if s.tick == 0 {
			last := s.last[hw]
			if step.Note != NoteNone || step.Volume != last.Volume || step.Panning != last.Panning {
				c.playNoteHWLocked(hw, step)
			}
			s.display[sw] = step
		}
		if step.EffectType != EffNone {
			c.processStepEffectsLocked(hw, sw, step)
		}
	}

	playedOrder, playedRow, playedTick := s.orderIdx, s.rowIdx, s.tick
	s.tick++
	if s.tick < s.ticksPerRow {
		return
	}
	s.tick = 0
	s.rowIdx++
	if s.rowIdx < pat.Rows() {
		return
	}
	s.rowIdx = 0
	s.orderIdx++
	pastStop := s.stopOrder >= 0 && s.orderIdx > s.stopOrder
	if s.orderIdx < len(song.Orders) && !pastStop {
		return
	}
	if !s.loop {
		// Hold the cursor on the last tick played until the stop.
		s.orderIdx, s.rowIdx, s.tick = playedOrder, playedRow, playedTick
		s.finished = true
		return
	}
	s.orderIdx = s.loopStart
	if s.orderIdx >= len(song.Orders) {
		s.orderIdx = 0
	}
}

// processStepEffectsLocked runs the step's effect for the current tick.
// Set volume and set panning act on tick 0, slides act on every tick.
func (c *Controller) processStepEffectsLocked(hw, sw int, step SongStep) {
	s := &c.seq
	last := &s.last[hw]
	val := step.EffectVal

	switch step.EffectType {
	case EffVolSlide:
		v := int(last.Volume)
		if v > MaxVolume {
			v = int(step.Volume)
		}
		v += int(val>>4) - int(val&0x0F)
		v = max(0, min(v, MaxVolume))
		last.Volume = uint8(v)
		c.applyVolumeLocked(hw, last.Volume)
		s.display[sw].Volume = last.Volume

	case EffSetVolume:
		if s.tick != 0 {
			return
		}
		last.Volume = min(val, MaxVolume)
		c.applyVolumeLocked(hw, last.Volume)
		s.display[sw].Volume = last.Volume

	case EffSetPanning:
		if s.tick != 0 {
			return
		}
		last.Panning = min(val, MaxPanning)
		c.applyPanningLocked(hw, last.Panning)
		s.display[sw].Panning = last.Panning

	case EffPortaUp:
		c.portaLocked(hw, int(val))

	case EffPortaDown:
		c.portaLocked(hw, -int(val))

	case EffPositionJump, EffSetSpeed:
		// Recognised, no behaviour yet.

	default:
		if s.tick == 0 {
			c.logger.Printf("fm: unknown effect 0x%02X on channel %d", step.EffectType, sw)
		}
	}
}

// portaLocked shifts the frequency of hw by delta F-number units using the
// shadow as the source of the current pitch.
func (c *Controller) portaLocked(hw int, delta int) {
	c.portaChannelLocked(hw, delta)

	insts := c.instrumentsLocked()
	idx := c.applied[hw]
	if isMaster(hw) && idx >= 0 && idx < len(insts) && insts[idx].DoubleVoice && !insts[idx].FourOp {
		c.portaChannelLocked(hw+3, delta)
	}
}

func (c *Controller) portaChannelLocked(hw int, delta int) {
	kb := c.readShadowLocked(channelReg(hw, regKeyBlock))
	fnum := int(c.readShadowLocked(channelReg(hw, regFnumLo))) | int(kb&0x03)<<8
	block := int(kb>>2) & 0x07

	fnum += delta
	switch {
	case fnum > 0x3FF && block < 7:
		fnum >>= 1
		block++
	case fnum < 0x100 && block > 0 && delta < 0:
		fnum <<= 1
		block--
	}
	fnum = max(0, min(fnum, 0x3FF))

	c.writeFrequencyLocked(hw, uint16(fnum), uint8(block), kb&keyOnBit != 0)
}
