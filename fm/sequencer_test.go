package fm

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// seqSong builds a one-channel song with rows rows per pattern. At 8000Hz
// and 20 BPM every tick lasts exactly 1000 frames.
func seqSong(patterns, rows int) *SongData {
	song := &SongData{
		Title:       "test",
		BPM:         20,
		TicksPerRow: 2,
		Instruments: testBank(),
	}
	for i := 0; i < patterns; i++ {
		p := NewPattern("p", rows, 2)
		song.Patterns = append(song.Patterns, p)
		song.Orders = append(song.Orders, uint16(i))
	}
	return song
}

func render(c *Controller, frames int) []float32 {
	buf := make([]float32, frames*2)
	c.FillBuffer(buf, frames)
	return buf
}

func TestNotePitch(t *testing.T) {
	fnum, block := NotePitch(69, nil)
	assert.Equal(t, uint16(580), fnum)
	assert.Equal(t, uint8(4), block)

	fnum, block = NotePitch(60, &Instrument{})
	assert.Equal(t, uint16(345), fnum)
	assert.Equal(t, uint8(4), block)

	// Deterministic across calls.
	for i := 0; i < 3; i++ {
		f, b := NotePitch(69, &Instrument{FineTune: 100})
		assert.Equal(t, uint16(614), f)
		assert.Equal(t, uint8(4), b)
	}

	_, block = NotePitch(5, nil)
	assert.Equal(t, uint8(0), block, "block clamps at 0")
	_, block = NotePitch(127, nil)
	assert.Equal(t, uint8(7), block, "block clamps at 7")

	fnum, block = NotePitch(90, &Instrument{FixedNote: 69, NoteOffset: 12})
	assert.Equal(t, uint16(580), fnum)
	assert.Equal(t, uint8(5), block)

	_, block = NotePitch(2, &Instrument{NoteOffset: -40})
	assert.Equal(t, uint8(0), block)
}

func TestPlayNote_StopNoteKeysOffLinked(t *testing.T) {
	c, chip, _ := newTestController(t)
	c.SetBank(testBank())

	require.NoError(t, c.PlayNote(0, 69, 1, 63))
	assert.NotZero(t, c.ReadShadow(0xB0)&keyOnBit)
	assert.False(t, c.Sleeping())

	chip.writes = nil
	c.StopNote(0)
	assert.Zero(t, c.ReadShadow(0xB0)&keyOnBit)
	assert.Zero(t, c.ReadShadow(0xB3)&keyOnBit)
	assert.True(t, chip.wrote(0xB0, c.ReadShadow(0xB0)))
	assert.True(t, chip.wrote(0xB3, c.ReadShadow(0xB3)))
}

func TestPlayNote_DualVoiceKeysBothChannels(t *testing.T) {
	c, _, _ := newTestController(t)
	c.SetBank(testBank())

	require.NoError(t, c.PlayNote(6, 69, 2, 63))
	// Software channel 6 is hardware 9, linked to 12.
	assert.NotZero(t, c.ReadShadow(channelReg(9, regKeyBlock))&keyOnBit)
	assert.NotZero(t, c.ReadShadow(channelReg(12, regKeyBlock))&keyOnBit)
	assert.Equal(t, c.ReadShadow(channelReg(9, regFnumLo)), c.ReadShadow(channelReg(12, regFnumLo)))

	// Each pair keeps its own routing when panned center.
	assert.Equal(t, uint8(PanLeft<<4), c.ReadShadow(channelReg(9, regFeedback))&0x30)
	assert.Equal(t, uint8(PanRight<<4), c.ReadShadow(channelReg(12, regFeedback))&0x30)
}

func TestPlayNote_Range(t *testing.T) {
	c, _, _ := newTestController(t)
	assert.ErrorIs(t, c.PlayNote(12, 60, 0, 63), ErrChannelRange)
	assert.Error(t, c.PlayNote(0, NoteStop, 0, 63))
}

func TestPlayNote_VolumeScalesCarrierOnly(t *testing.T) {
	c, _, _ := newTestController(t)
	c.SetBank(testBank())

	require.NoError(t, c.PlayNote(3, 60, 0, 0))
	hw := softwareToHardware[3]
	assert.Equal(t, uint8(20), c.ReadShadow(operatorReg(hw, 0, regLevelBase)))
	assert.Equal(t, uint8(63), c.ReadShadow(operatorReg(hw, 1, regLevelBase)))
}

func TestPlaySong_Validation(t *testing.T) {
	c, _, _ := newTestController(t)

	song := seqSong(1, 4)
	song.Orders = append(song.Orders, 5)
	assert.ErrorIs(t, c.PlaySong(song, false), ErrInvalidSong)
	assert.False(t, c.Playing())

	song = seqSong(1, 4)
	st := EmptyStep
	st.Note = 60
	st.Instrument = 9
	song.Patterns[0].SetStep(1, 0, st)
	assert.ErrorIs(t, c.PlaySong(song, false), ErrInvalidSong)

	song = seqSong(1, 4)
	song.BPM = float32(math.NaN())
	assert.ErrorIs(t, c.PlaySong(song, false), ErrInvalidSong)
	assert.False(t, c.Playing())
	assert.Len(t, c.Errors(), 3)
}

func TestPlaySong_RowZeroOnFirstFrame(t *testing.T) {
	c, _, _ := newTestController(t)
	song := seqSong(1, 4)
	st := EmptyStep
	st.Note = 69
	song.Patterns[0].SetStep(0, 0, st)

	require.NoError(t, c.PlaySong(song, false))
	render(c, 1)

	assert.Equal(t, uint8(69), c.ChannelSnapshot()[0].Note)
	assert.NotZero(t, c.ReadShadow(0xB0)&keyOnBit)
	assert.Equal(t, Position{Playing: true, Order: 0, Row: 0, Tick: 1}, c.Position())
}

func TestPlaySong_StopsAtEnd(t *testing.T) {
	c, _, _ := newTestController(t)
	song := seqSong(2, 2)
	st := EmptyStep
	st.Note = 60
	song.Patterns[1].SetStep(0, 0, st)

	require.NoError(t, c.PlaySong(song, false))
	// 2 patterns x 2 rows x 2 ticks of 1000 frames.
	render(c, 7000)
	assert.Equal(t, 1, c.Position().Order)
	assert.True(t, c.Playing())
	assert.NotZero(t, c.ReadShadow(0xB0)&keyOnBit)

	render(c, 1001)
	assert.False(t, c.Playing())
	assert.Zero(t, c.ReadShadow(0xB0)&keyOnBit)
	assert.Equal(t, EmptyStep, c.ChannelSnapshot()[0])
}

func TestPlaySong_Loops(t *testing.T) {
	c, _, _ := newTestController(t)
	song := seqSong(3, 1)

	c.SetLoopStart(1)
	require.NoError(t, c.PlaySong(song, true))
	render(c, 6001)
	assert.True(t, c.Playing())
	assert.Equal(t, 1, c.Position().Order)

	// Out-of-range loop start wraps to the first order.
	c.SetLoopStart(10)
	render(c, 4000)
	assert.True(t, c.Playing())
	assert.Equal(t, 0, c.Position().Order)
}

func TestPlaySong_StopOrder(t *testing.T) {
	c, _, _ := newTestController(t)
	song := seqSong(3, 1)

	c.SetStopOrder(0)
	require.NoError(t, c.PlaySong(song, false))
	render(c, 1001)
	assert.Equal(t, Position{Playing: true, Order: 0, Row: 0, Tick: 1}, c.Position())
	render(c, 1000)
	assert.False(t, c.Playing())

	c.SetStopOrder(-5)
	require.NoError(t, c.PlaySong(song, false))
	render(c, 2001)
	assert.True(t, c.Playing())
	assert.Equal(t, 1, c.Position().Order)
}

func TestPlaySong_IgnoresManualNotes(t *testing.T) {
	c, _, _ := newTestController(t)
	require.NoError(t, c.PlaySong(seqSong(1, 4), true))
	render(c, 1)
	require.NoError(t, c.PlayNote(0, 60, 0, 63))
	assert.Zero(t, c.ReadShadow(0xB0)&keyOnBit)
}

func TestPlaySong_VolumeOnlyRowKeepsNote(t *testing.T) {
	c, chip, _ := newTestController(t)
	song := seqSong(1, 2)
	st := EmptyStep
	st.Note = 60
	song.Patterns[0].SetStep(0, 0, st)
	quiet := EmptyStep
	quiet.Volume = 20
	song.Patterns[0].SetStep(1, 0, quiet)

	require.NoError(t, c.PlaySong(song, false))
	render(c, 1)
	keyBlock := c.ReadShadow(0xB0)
	require.NotZero(t, keyBlock&keyOnBit)

	chip.writes = nil
	render(c, 2000)
	assert.True(t, chip.wrote(0x43, scaledLevel(10, 20)))
	assert.False(t, chip.touched(0xA0), "no frequency rewrite")
	assert.False(t, chip.touched(0xB0), "no key-off or key-on")
	assert.Equal(t, keyBlock, c.ReadShadow(0xB0))
	assert.Equal(t, uint8(20), c.ChannelSnapshot()[0].Volume)
}

func TestPlaySong_StopRowOnlyClearsKey(t *testing.T) {
	c, chip, _ := newTestController(t)
	song := seqSong(1, 2)
	st := EmptyStep
	st.Note = 60
	song.Patterns[0].SetStep(0, 0, st)
	off := EmptyStep
	off.Note = NoteStop
	song.Patterns[0].SetStep(1, 0, off)

	require.NoError(t, c.PlaySong(song, false))
	render(c, 1)
	keyBlock := c.ReadShadow(0xB0)
	require.NotZero(t, keyBlock&keyOnBit)

	chip.writes = nil
	render(c, 2000)
	assert.Equal(t, keyBlock&^keyOnBit, c.ReadShadow(0xB0), "block and F-number kept")
	assert.True(t, chip.wrote(0xB0, keyBlock&^keyOnBit))
	assert.False(t, chip.touched(0xA0))
	assert.False(t, chip.touched(0x40))
	assert.False(t, chip.touched(0x43))
	assert.False(t, chip.touched(0xC0))
}

func TestEffects_VolumeSlide(t *testing.T) {
	c, _, _ := newTestController(t)
	song := seqSong(1, 2)
	song.TicksPerRow = 6
	st := EmptyStep
	st.Note = 60
	st.EffectType, st.EffectVal = EffVolSlide, 0x02
	song.Patterns[0].SetStep(0, 0, st)

	require.NoError(t, c.PlaySong(song, false))
	render(c, 1)
	assert.Equal(t, uint8(61), c.ChannelSnapshot()[0].Volume)

	render(c, 5000)
	assert.Equal(t, uint8(51), c.ChannelSnapshot()[0].Volume)
	assert.Equal(t, scaledLevel(10, 51), c.ReadShadow(0x43))
}

func TestEffects_SetVolumeAndPanning(t *testing.T) {
	c, _, _ := newTestController(t)
	song := seqSong(1, 2)
	st := EmptyStep
	st.Note = 60
	song.Patterns[0].SetStep(0, 0, st)
	vol := EmptyStep
	vol.EffectType, vol.EffectVal = EffSetVolume, 20
	song.Patterns[0].SetStep(1, 0, vol)
	pan := EmptyStep
	pan.EffectType, pan.EffectVal = EffSetPanning, 60
	song.Patterns[0].SetStep(0, 1, pan)

	require.NoError(t, c.PlaySong(song, false))
	render(c, 1)
	assert.Equal(t, uint8(60), c.ChannelSnapshot()[1].Panning)

	render(c, 2000)
	assert.Equal(t, uint8(20), c.ChannelSnapshot()[0].Volume)
	assert.Equal(t, scaledLevel(10, 20), c.ReadShadow(0x43))
	assert.Equal(t, uint8(PanCenter<<4), c.ReadShadow(0xC0)&0x30)
}

func TestSetBank_DuringPlaybackKeepsEffects(t *testing.T) {
	c, _, _ := newTestController(t)
	song := seqSong(1, 2)
	st := EmptyStep
	st.Note = 60
	song.Patterns[0].SetStep(0, 0, st)
	vol := EmptyStep
	vol.EffectType, vol.EffectVal = EffSetVolume, 20
	song.Patterns[0].SetStep(1, 0, vol)

	require.NoError(t, c.PlaySong(song, false))
	render(c, 1)
	c.SetBank(DefaultBank())

	render(c, 2000)
	assert.Equal(t, scaledLevel(10, 20), c.ReadShadow(0x43))
	assert.Equal(t, DefaultBank(), c.Bank())
}

func TestEffects_Portamento(t *testing.T) {
	c, _, _ := newTestController(t)
	song := seqSong(1, 2)
	st := EmptyStep
	st.Note = 69
	st.EffectType, st.EffectVal = EffPortaUp, 10
	song.Patterns[0].SetStep(0, 0, st)

	require.NoError(t, c.PlaySong(song, false))
	render(c, 1001)

	fnum := uint16(c.ReadShadow(0xA0)) | uint16(c.ReadShadow(0xB0)&0x03)<<8
	assert.Equal(t, uint16(600), fnum)
	assert.NotZero(t, c.ReadShadow(0xB0)&keyOnBit)
}

func TestPortamento_OctaveBoundary(t *testing.T) {
	c, _, _ := newTestController(t)
	c.mu.Lock()
	defer c.mu.Unlock()

	c.writeFrequencyLocked(6, 1020, 3, true)
	c.portaChannelLocked(6, 10)
	kb := c.readShadowLocked(channelReg(6, regKeyBlock))
	assert.Equal(t, uint8(4), kb>>2&0x07)
	assert.Equal(t, 515, int(c.readShadowLocked(channelReg(6, regFnumLo)))|int(kb&0x03)<<8)

	c.writeFrequencyLocked(6, 0x104, 2, false)
	c.portaChannelLocked(6, -10)
	kb = c.readShadowLocked(channelReg(6, regKeyBlock))
	assert.Equal(t, uint8(1), kb>>2&0x07)
	assert.Zero(t, kb&keyOnBit)

	c.writeFrequencyLocked(6, 1020, 7, true)
	c.portaChannelLocked(6, 10)
	kb = c.readShadowLocked(channelReg(6, regKeyBlock))
	assert.Equal(t, uint8(7), kb>>2&0x07)
	assert.Equal(t, uint8(0x03), kb&0x03)
	assert.Equal(t, uint8(0xFF), c.readShadowLocked(channelReg(6, regFnumLo)))
}

func TestStop_Silences(t *testing.T) {
	c, _, _ := newTestController(t)
	song := seqSong(1, 4)
	st := EmptyStep
	st.Note = 60
	song.Patterns[0].SetStep(0, 1, st)
	require.NoError(t, c.PlaySong(song, true))
	render(c, 1)
	require.NotZero(t, c.ReadShadow(0xB1)&keyOnBit)

	c.Stop()
	assert.False(t, c.Playing())
	assert.Zero(t, c.ReadShadow(0xB1)&keyOnBit)
}
