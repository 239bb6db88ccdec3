package fm

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPattern_Bounds(t *testing.T) {
	p := NewPattern("p", 4, 3)
	assert.Equal(t, 4, p.Rows())
	assert.Equal(t, 3, p.Columns())

	st := SongStep{Note: 60, Volume: 10, Panning: 20}
	p.SetStep(3, 2, st)
	assert.Equal(t, st, p.Step(3, 2))
	assert.Equal(t, st, p.Steps()[3*3+2])

	// Out of range reads return the empty step and writes are ignored.
	assert.Equal(t, EmptyStep, p.Step(4, 0))
	assert.Equal(t, EmptyStep, p.Step(0, 3))
	assert.Equal(t, EmptyStep, p.Step(-1, 0))
	p.SetStep(0, 5, st)
	p.SetStep(9, 0, st)
	for i, s := range p.Steps() {
		if i != 3*3+2 {
			assert.Equal(t, EmptyStep, s, "step %d", i)
		}
	}
}

func TestPattern_ColumnClamp(t *testing.T) {
	assert.Equal(t, 1, NewPattern("", 2, 0).Columns())
	assert.Equal(t, NumSoftwareChannels, NewPattern("", 2, 40).Columns())
	assert.Equal(t, 0, NewPattern("", -1, 2).Rows())
}

func TestSongStep_IsEmpty(t *testing.T) {
	assert.True(t, EmptyStep.IsEmpty())
	s := EmptyStep
	s.EffectType = EffVolSlide
	assert.False(t, s.IsEmpty())
}

func TestValidate(t *testing.T) {
	assert.NoError(t, DemoSong().Validate())

	var nilSong *SongData
	assert.ErrorIs(t, nilSong.Validate(), ErrInvalidSong)

	tests := []struct {
		name   string
		mutate func(s *SongData)
	}{
		{"no patterns", func(s *SongData) { s.Patterns = nil }},
		{"no orders", func(s *SongData) { s.Orders = nil }},
		{"zero bpm", func(s *SongData) { s.BPM = 0 }},
		{"nan bpm", func(s *SongData) { s.BPM = float32(math.NaN()) }},
		{"infinite bpm", func(s *SongData) { s.BPM = float32(math.Inf(1)) }},
		{"tiny bpm", func(s *SongData) { s.BPM = 0.0001 }},
		{"huge bpm", func(s *SongData) { s.BPM = MaxBPM + 1 }},
		{"zero ticks", func(s *SongData) { s.TicksPerRow = 0 }},
		{"order out of range", func(s *SongData) { s.Orders[1] = 7 }},
		{"nil pattern", func(s *SongData) { s.Patterns = append(s.Patterns, nil) }},
		{"empty pattern", func(s *SongData) { s.Patterns[1] = NewPattern("", 0, 4) }},
		{"instrument out of range", func(s *SongData) { s.Instruments = s.Instruments[:1] }},
	}
	for _, tt := range tests {
		s := DemoSong()
		tt.mutate(s)
		assert.ErrorIs(t, s.Validate(), ErrInvalidSong, tt.name)
	}
}

func TestTotalTicks(t *testing.T) {
	s := DemoSong()
	assert.Equal(t, 3*16*6, s.TotalTicks())
	s.Orders = append(s.Orders, 99)
	assert.Equal(t, 3*16*6, s.TotalTicks())
}

func TestDefaultBank(t *testing.T) {
	bank := DefaultBank()
	var fourOp, dual, fixed bool
	for _, inst := range bank {
		assert.NotEmpty(t, inst.Name)
		fourOp = fourOp || inst.FourOp
		dual = dual || inst.DoubleVoice
		fixed = fixed || inst.FixedNote != 0
	}
	assert.True(t, fourOp)
	assert.True(t, dual)
	assert.True(t, fixed)
}
