package fm

import (
	"fmt"
	"math"
)

// Step sentinels.
const (
	NoteNone = 255 // No event
	NoteStop = 128 // Note-off
	MaxNote  = 127
)

// Tempo range accepted by Validate.
const (
	MinBPM = 1
	MaxBPM = 1000
)

// Volume and panning ranges.
const (
	MaxVolume     = 63
	MaxPanning    = 64
	CenterPanning = 32
)

// Effect codes.
const (
	EffNone         = 0x00
	EffPortaUp      = 0x01
	EffPortaDown    = 0x02
	EffSetPanning   = 0x08
	EffVolSlide     = 0x0A
	EffPositionJump = 0x0B // Recognised, not implemented
	EffSetVolume    = 0x0C
	EffSetSpeed     = 0x0F // Recognised, not implemented
)

// SongStep is one cell of a pattern.
type SongStep struct {
	Note       uint8
	Instrument uint16
	Volume     uint8
	Panning    uint8
	EffectType uint8
	EffectVal  uint8
}

// EmptyStep is the value of a cell with no event.
var EmptyStep = SongStep{Note: NoteNone, Volume: MaxVolume, Panning: CenterPanning}

// isPitch reports whether the step carries a playable note.
func (s SongStep) isPitch() bool {
	return s.Note <= MaxNote
}

// IsEmpty reports whether the step has no note and no effect.
func (s SongStep) IsEmpty() bool {
	return s.Note == NoteNone && s.EffectType == EffNone
}

// Pattern is a row-major grid of steps with a fixed column count.
type Pattern struct {
	Name  string
	Color uint32
	cols  int
	steps []SongStep
}

// NewPattern creates a pattern of rows x cols empty steps. cols is clamped
// to [1, NumSoftwareChannels].
func NewPattern(name string, rows, cols int) *Pattern {
	if cols < 1 {
		cols = 1
	}
	if cols > NumSoftwareChannels {
		cols = NumSoftwareChannels
	}
	if rows < 0 {
		rows = 0
	}
	p := &Pattern{Name: name, cols: cols, steps: make([]SongStep, rows*cols)}
	for i := range p.steps {
		p.steps[i] = EmptyStep
	}
	return p
}

// Columns returns the fixed column count.
func (p *Pattern) Columns() int {
	return p.cols
}

// Rows returns the number of rows derived from the step count.
func (p *Pattern) Rows() int {
	if p.cols == 0 {
		return 0
	}
	return len(p.steps) / p.cols
}

// Step returns the step at (row, ch), or EmptyStep when out of range.
func (p *Pattern) Step(row, ch int) SongStep {
	if row < 0 || ch < 0 || ch >= p.cols || row >= p.Rows() {
		return EmptyStep
	}
	return p.steps[row*p.cols+ch]
}

// SetStep writes a step. Out-of-range coordinates are ignored.
func (p *Pattern) SetStep(row, ch int, s SongStep) {
	if row < 0 || ch < 0 || ch >= p.cols || row >= p.Rows() {
		return
	}
	p.steps[row*p.cols+ch] = s
}

// Steps returns the raw row-major step slice.
func (p *Pattern) Steps() []SongStep {
	return p.steps
}

// ChannelDefault holds the per-channel editor defaults stored with a song.
type ChannelDefault struct {
	Instrument uint16
	Octave     uint8
	Step       uint8
}

// SongData is a complete song.
type SongData struct {
	Title       string
	BPM         float32
	TicksPerRow uint8
	Instruments []Instrument
	Patterns    []*Pattern
	Orders      []uint16
	Channels    [NumSoftwareChannels]ChannelDefault
}

// Validate checks that the song can be played: it needs patterns, orders
// within range and instrument references within range.
func (s *SongData) Validate() error {
	if s == nil {
		return fmt.Errorf("%w: no song", ErrInvalidSong)
	}
	if len(s.Patterns) == 0 {
		return fmt.Errorf("%w: song has no patterns", ErrInvalidSong)
	}
	if len(s.Orders) == 0 {
		return fmt.Errorf("%w: order list is empty", ErrInvalidSong)
	}
	if bpm := float64(s.BPM); math.IsNaN(bpm) || bpm < MinBPM || bpm > MaxBPM {
		return fmt.Errorf("%w: bpm %.2f outside [%d, %d]", ErrInvalidSong, s.BPM, MinBPM, MaxBPM)
	}
	if s.TicksPerRow == 0 {
		return fmt.Errorf("%w: ticks per row is zero", ErrInvalidSong)
	}
	for i, o := range s.Orders {
		if int(o) >= len(s.Patterns) {
			return fmt.Errorf("%w: order %d references pattern %d of %d", ErrInvalidSong, i, o, len(s.Patterns))
		}
		if p := s.Patterns[o]; p == nil || p.Rows() == 0 {
			return fmt.Errorf("%w: order %d references empty pattern %d", ErrInvalidSong, i, o)
		}
	}
	for pi, p := range s.Patterns {
		if p == nil {
			return fmt.Errorf("%w: pattern %d is nil", ErrInvalidSong, pi)
		}
		for i, st := range p.steps {
			if st.isPitch() && int(st.Instrument) >= len(s.Instruments) {
				return fmt.Errorf("%w: pattern %d row %d channel %d uses instrument %d of %d",
					ErrInvalidSong, pi, i/p.cols, i%p.cols, st.Instrument, len(s.Instruments))
			}
		}
	}
	return nil
}

// TotalTicks returns the number of ticks needed to play every order once.
func (s *SongData) TotalTicks() int {
	total := 0
	for _, o := range s.Orders {
		if int(o) < len(s.Patterns) && s.Patterns[o] != nil {
			total += s.Patterns[o].Rows() * int(s.TicksPerRow)
		}
	}
	return total
}
