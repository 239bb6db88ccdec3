package fm

import (
	"bufio"
	"fmt"
	"io"
	"os"
)

// Song and bank file constants
const (
	songMagic      = "Huehn Thomas FM OPL3 Song"
	songVersion    = 2
	songVersionV1  = 1
	songReserved   = 32
	bankMagic      = "Huehn Thomas FM OPL3 SoundBank"
	bankVersion    = 1
	bankReserved   = 16
	effectMagic    = 0x4E494843 // "CHIN"
	instrFourOp    = 0x01
	instrDualVoice = 0x02
)

// SaveSong writes song and its effect chain to w.
func SaveSong(w io.Writer, song *SongData, chain []Effect) error {
	if song == nil {
		return fmt.Errorf("%w: no song", ErrInvalidSong)
	}
	for i, e := range chain {
		if e == nil {
			return fmt.Errorf("%w: effect %d is nil", ErrInvalidSong, i)
		}
	}
	b := &binWriter{w: w}
	b.magic(songMagic)
	b.u16(songVersion)
	b.str(song.Title)
	b.f32(song.BPM)
	b.u8(song.TicksPerRow)
	for _, ch := range song.Channels {
		b.u16(ch.Instrument)
		b.u8(ch.Octave)
		b.u8(ch.Step)
	}
	b.zeros(songReserved)

	writeInstruments(b, song.Instruments)

	b.count(len(song.Patterns), maxPatterns, "patterns")
	for i, p := range song.Patterns {
		if p == nil {
			b.fail(fmt.Errorf("%w: pattern %d is nil", ErrInvalidSong, i))
			break
		}
		writePattern(b, p)
	}

	b.count(len(song.Orders), maxVectorElements, "orders")
	for _, o := range song.Orders {
		b.u16(o)
	}
	b.magic(songMagic)

	b.u32(effectMagic)
	b.count(len(chain), MaxEffects, "effects")
	for _, e := range chain {
		if b.err != nil {
			break
		}
		b.u8(uint8(e.Type()))
		if b.err == nil {
			if err := e.Save(w); err != nil {
				b.fail(fmt.Errorf("save effect %d: %w", e.Type(), err))
			}
		}
	}
	return b.err
}

// LoadSong reads a song written by SaveSong. factory creates the effects
// named in the effect block; it may be nil for songs without effects.
func LoadSong(r io.Reader, factory EffectFactory) (*SongData, []Effect, error) {
	b := &binReader{r: r}
	b.magic(songMagic)
	version := b.u16()
	if b.err == nil && version != songVersion && version != songVersionV1 {
		return nil, nil, fmt.Errorf("%w: song version %d", ErrBadVersion, version)
	}

	song := &SongData{}
	song.Title = b.str()
	song.BPM = b.f32()
	song.TicksPerRow = b.u8()
	for i := range song.Channels {
		song.Channels[i].Instrument = b.u16()
		song.Channels[i].Octave = b.u8()
		song.Channels[i].Step = b.u8()
	}
	b.skip(songReserved)

	song.Instruments = readInstruments(b)

	n := b.count(maxPatterns, "patterns")
	for i := 0; i < n && b.err == nil; i++ {
		song.Patterns = append(song.Patterns, readPattern(b))
	}

	n = b.count(maxVectorElements, "orders")
	for i := 0; i < n && b.err == nil; i++ {
		song.Orders = append(song.Orders, b.u16())
	}
	b.magic(songMagic)

	var chain []Effect
	if version >= songVersion {
		chain = readEffects(b, factory)
	}
	b.expectEOF()
	if b.err != nil {
		return nil, nil, fmt.Errorf("load song: %w", b.err)
	}
	return song, chain, nil
}

func readEffects(b *binReader, factory EffectFactory) []Effect {
	if m := b.u32(); b.err == nil && m != effectMagic {
		b.fail(fmt.Errorf("%w: effect block 0x%08X", ErrBadMagic, m))
	}
	n := b.count(MaxEffects, "effects")
	var chain []Effect
	for i := 0; i < n && b.err == nil; i++ {
		t := EffectType(b.u8())
		if b.err != nil {
			break
		}
		if factory == nil {
			b.fail(fmt.Errorf("%w: %d", ErrUnknownEffect, t))
			break
		}
		e, err := factory(t)
		if err != nil {
			b.fail(err)
			break
		}
		if err := e.Load(b.r); err != nil {
			b.fail(fmt.Errorf("load effect %d: %w", t, err))
			break
		}
		chain = append(chain, e)
	}
	return chain
}

func writePattern(b *binWriter, p *Pattern) {
	b.str(p.Name)
	b.u32(p.Color)
	if p.Rows() > maxPatternRows {
		b.fail(fmt.Errorf("%w: %d pattern rows (max %d)", ErrTooLarge, p.Rows(), maxPatternRows))
		return
	}
	b.u8(uint8(p.cols))
	b.count(len(p.steps), maxVectorElements, "steps")
	for _, s := range p.steps {
		b.u8(s.Note)
		b.u16(s.Instrument)
		b.u8(s.Volume)
		b.u8(s.Panning)
		b.u8(s.EffectType)
		b.u8(s.EffectVal)
	}
}

func readPattern(b *binReader) *Pattern {
	name := b.str()
	color := b.u32()
	cols := int(b.u8())
	n := b.count(maxVectorElements, "steps")
	if b.err != nil {
		return nil
	}
	if cols < 1 || cols > NumSoftwareChannels {
		b.fail(fmt.Errorf("%w: pattern %q has %d columns", ErrInvalidSong, name, cols))
		return nil
	}
	if n%cols != 0 {
		b.fail(fmt.Errorf("%w: pattern %q has %d steps for %d columns", ErrInvalidSong, name, n, cols))
		return nil
	}
	if n/cols > maxPatternRows {
		b.fail(fmt.Errorf("%w: %d pattern rows (max %d)", ErrTooLarge, n/cols, maxPatternRows))
		return nil
	}

	p := &Pattern{Name: name, Color: color, cols: cols, steps: make([]SongStep, n)}
	for i := range p.steps {
		s := &p.steps[i]
		s.Note = b.u8()
		s.Instrument = b.u16()
		s.Volume = b.u8()
		s.Panning = b.u8()
		s.EffectType = b.u8()
		s.EffectVal = b.u8()
	}
	return p
}

func writeInstruments(b *binWriter, insts []Instrument) {
	b.count(len(insts), maxInstruments, "instruments")
	for i := range insts {
		if b.err != nil {
			return
		}
		writeInstrument(b, &insts[i])
	}
}

func readInstruments(b *binReader) []Instrument {
	n := b.count(maxInstruments, "instruments")
	if b.err != nil {
		return nil
	}
	insts := make([]Instrument, n)
	for i := range insts {
		readInstrument(b, &insts[i])
	}
	return insts
}

func writeInstrument(b *binWriter, inst *Instrument) {
	b.str(inst.Name)
	var flags uint8
	if inst.FourOp {
		flags |= instrFourOp
	}
	if inst.DoubleVoice {
		flags |= instrDualVoice
	}
	b.u8(flags)
	b.i8(inst.FineTune)
	b.u8(inst.FixedNote)
	b.i8(inst.NoteOffset)
	for i := range inst.Pairs {
		p := &inst.Pairs[i]
		b.u8(p.Feedback)
		b.u8(p.Connection)
		b.u8(p.Panning)
		writeOpParams(b, &p.Mod)
		writeOpParams(b, &p.Car)
	}
}

func readInstrument(b *binReader, inst *Instrument) {
	inst.Name = b.str()
	flags := b.u8()
	inst.FourOp = flags&instrFourOp != 0
	inst.DoubleVoice = flags&instrDualVoice != 0
	inst.FineTune = b.i8()
	inst.FixedNote = b.u8()
	inst.NoteOffset = b.i8()
	for i := range inst.Pairs {
		p := &inst.Pairs[i]
		p.Feedback = b.u8()
		p.Connection = b.u8()
		p.Panning = b.u8()
		readOpParams(b, &p.Mod)
		readOpParams(b, &p.Car)
	}
}

func writeOpParams(b *binWriter, p *OpParams) {
	b.u8(p.Mult)
	b.u8(p.TotalLevel)
	b.u8(p.Attack)
	b.u8(p.Decay)
	b.u8(p.Sustain)
	b.u8(p.Release)
	b.u8(p.Waveform)
	b.u8(p.KeyScaleLevel)
	b.u8(boolByte(p.Tremolo) | boolByte(p.Vibrato)<<1 | boolByte(p.Sustaining)<<2 | boolByte(p.KeyScaleRate)<<3)
}

func readOpParams(b *binReader, p *OpParams) {
	p.Mult = b.u8()
	p.TotalLevel = b.u8()
	p.Attack = b.u8()
	p.Decay = b.u8()
	p.Sustain = b.u8()
	p.Release = b.u8()
	p.Waveform = b.u8()
	p.KeyScaleLevel = b.u8()
	flags := b.u8()
	p.Tremolo = flags&0x01 != 0
	p.Vibrato = flags&0x02 != 0
	p.Sustaining = flags&0x04 != 0
	p.KeyScaleRate = flags&0x08 != 0
}

// SaveBank writes an instrument bank to w.
func SaveBank(w io.Writer, insts []Instrument) error {
	b := &binWriter{w: w}
	b.magic(bankMagic)
	b.u16(bankVersion)
	b.zeros(bankReserved)
	writeInstruments(b, insts)
	b.magic(bankMagic)
	return b.err
}

// LoadBank reads a bank written by SaveBank.
func LoadBank(r io.Reader) ([]Instrument, error) {
	b := &binReader{r: r}
	b.magic(bankMagic)
	version := b.u16()
	if b.err == nil && version != bankVersion {
		return nil, fmt.Errorf("%w: bank version %d", ErrBadVersion, version)
	}
	b.skip(bankReserved)
	insts := readInstruments(b)
	b.magic(bankMagic)
	b.expectEOF()
	if b.err != nil {
		return nil, fmt.Errorf("load bank: %w", b.err)
	}
	return insts, nil
}

// SaveSongFile writes song and chain to path.
func SaveSongFile(path string, song *SongData, chain []Effect) error {
	return writeFile(path, func(w io.Writer) error {
		return SaveSong(w, song, chain)
	})
}

// LoadSongFile reads a song from path.
func LoadSongFile(path string, factory EffectFactory) (*SongData, []Effect, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()
	return LoadSong(bufio.NewReader(f), factory)
}

// SaveBankFile writes insts to path.
func SaveBankFile(path string, insts []Instrument) error {
	return writeFile(path, func(w io.Writer) error {
		return SaveBank(w, insts)
	})
}

// LoadBankFile reads a bank from path.
func LoadBankFile(path string) ([]Instrument, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return LoadBank(bufio.NewReader(f))
}

func writeFile(path string, fn func(w io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	bw := bufio.NewWriter(f)
	if err := fn(bw); err != nil {
		f.Close()
		os.Remove(path)
		return err
	}
	if err := bw.Flush(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// LoadSongFile reads a song from path, recording any failure in the
// controller's error log.
func (c *Controller) LoadSongFile(path string, factory EffectFactory) (*SongData, []Effect, error) {
	song, chain, err := LoadSongFile(path, factory)
	if err != nil {
		c.mu.Lock()
		c.recordErrorLocked(fmt.Errorf("%s: %w", path, err))
		c.mu.Unlock()
	}
	return song, chain, err
}

// LoadBankFile replaces the live bank with the bank at path. Failures are
// recorded in the error log and leave the bank unchanged.
func (c *Controller) LoadBankFile(path string) error {
	insts, err := LoadBankFile(path)
	if err != nil {
		c.mu.Lock()
		c.recordErrorLocked(fmt.Errorf("%s: %w", path, err))
		c.mu.Unlock()
		return err
	}
	c.SetBank(insts)
	return nil
}
