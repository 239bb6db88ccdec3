package fm

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testFactory(t EffectType) (Effect, error) {
	if t == 42 {
		return &scaleEffect{}, nil
	}
	return nil, fmt.Errorf("%w: %d", ErrUnknownEffect, t)
}

func saveDemo(t *testing.T, chain []Effect) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, SaveSong(&buf, DemoSong(), chain))
	return buf.Bytes()
}

func TestSong_RoundTrip(t *testing.T) {
	song := DemoSong()
	song.Channels[3] = ChannelDefault{Instrument: 2, Octave: 5, Step: 3}
	chain := []Effect{&scaleEffect{factor: 0.5}}

	var buf bytes.Buffer
	require.NoError(t, SaveSong(&buf, song, chain))

	got, gotChain, err := LoadSong(bytes.NewReader(buf.Bytes()), testFactory)
	require.NoError(t, err)
	assert.Equal(t, song, got)
	require.Len(t, gotChain, 1)
	assert.Equal(t, chain[0], gotChain[0])
}

func TestSong_RoundTripEmptyChain(t *testing.T) {
	data := saveDemo(t, nil)
	got, chain, err := LoadSong(bytes.NewReader(data), nil)
	require.NoError(t, err)
	assert.Empty(t, chain)
	assert.Equal(t, DemoSong(), got)
}

func TestSong_TruncationRejected(t *testing.T) {
	data := saveDemo(t, []Effect{&scaleEffect{factor: 1}})
	for n := 1; n < len(data); n++ {
		_, _, err := LoadSong(bytes.NewReader(data[:len(data)-n]), testFactory)
		if err == nil {
			t.Fatalf("truncating %d bytes loaded without error", n)
		}
	}
}

func TestSong_TrailingDataRejected(t *testing.T) {
	data := append(saveDemo(t, nil), 0x00)
	_, _, err := LoadSong(bytes.NewReader(data), nil)
	assert.ErrorIs(t, err, ErrTrailingData)
}

func TestSong_BadMagicAndVersion(t *testing.T) {
	data := saveDemo(t, nil)

	bad := bytes.Clone(data)
	bad[0] = 'X'
	_, _, err := LoadSong(bytes.NewReader(bad), nil)
	assert.ErrorIs(t, err, ErrBadMagic)

	bad = bytes.Clone(data)
	binary.LittleEndian.PutUint16(bad[len(songMagic):], 9)
	_, _, err = LoadSong(bytes.NewReader(bad), nil)
	assert.ErrorIs(t, err, ErrBadVersion)

	// Corrupting the trailing magic is caught too.
	bad = bytes.Clone(data)
	bad[len(bad)-9] ^= 0xFF
	_, _, err = LoadSong(bytes.NewReader(bad), nil)
	assert.ErrorIs(t, err, ErrBadMagic)
}

func TestSong_VersionOneHasNoEffectBlock(t *testing.T) {
	data := saveDemo(t, nil)
	v1 := bytes.Clone(data[:len(data)-8])
	binary.LittleEndian.PutUint16(v1[len(songMagic):], songVersionV1)

	got, chain, err := LoadSong(bytes.NewReader(v1), nil)
	require.NoError(t, err)
	assert.Nil(t, chain)
	assert.Equal(t, "Demo", got.Title)
}

func TestSong_NilEffectRejected(t *testing.T) {
	var buf bytes.Buffer
	err := SaveSong(&buf, DemoSong(), []Effect{&scaleEffect{factor: 1}, nil})
	assert.ErrorIs(t, err, ErrInvalidSong)
	assert.Zero(t, buf.Len())
}

func TestSong_UnknownEffect(t *testing.T) {
	data := saveDemo(t, []Effect{&scaleEffect{factor: 1}})
	_, _, err := LoadSong(bytes.NewReader(data), nil)
	assert.ErrorIs(t, err, ErrUnknownEffect)
}

func TestSong_Limits(t *testing.T) {
	song := DemoSong()
	song.Title = strings.Repeat("x", maxStringLength+1)
	assert.ErrorIs(t, SaveSong(&bytes.Buffer{}, song, nil), ErrTooLarge)

	song = DemoSong()
	song.Patterns = append(song.Patterns, NewPattern("long", maxPatternRows+1, 1))
	assert.ErrorIs(t, SaveSong(&bytes.Buffer{}, song, nil), ErrTooLarge)

	chain := make([]Effect, MaxEffects+1)
	for i := range chain {
		chain[i] = &scaleEffect{}
	}
	assert.ErrorIs(t, SaveSong(&bytes.Buffer{}, DemoSong(), chain), ErrTooLarge)

	// A declared instrument count beyond the cap fails before allocating.
	var buf bytes.Buffer
	b := &binWriter{w: &buf}
	b.magic(songMagic)
	b.u16(songVersion)
	b.str("")
	b.f32(120)
	b.u8(6)
	b.zeros(NumSoftwareChannels*4 + songReserved)
	b.u32(maxInstruments + 1)
	require.NoError(t, b.err)
	_, _, err := LoadSong(bytes.NewReader(buf.Bytes()), nil)
	assert.ErrorIs(t, err, ErrTooLarge)
}

func TestBank_RoundTrip(t *testing.T) {
	bank := DefaultBank()
	var buf bytes.Buffer
	require.NoError(t, SaveBank(&buf, bank))

	got, err := LoadBank(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, bank, got)

	data := buf.Bytes()
	for n := 1; n < len(data); n++ {
		if _, err := LoadBank(bytes.NewReader(data[:len(data)-n])); err == nil {
			t.Fatalf("truncating %d bytes loaded without error", n)
		}
	}

	_, err = LoadBank(bytes.NewReader(append(bytes.Clone(data), 1)))
	assert.ErrorIs(t, err, ErrTrailingData)

	_, _, err = LoadSong(bytes.NewReader(data), nil)
	assert.ErrorIs(t, err, ErrBadMagic)
}

func TestBank_TooMany(t *testing.T) {
	bank := make([]Instrument, maxInstruments+1)
	assert.ErrorIs(t, SaveBank(&bytes.Buffer{}, bank), ErrTooLarge)
}

func TestFiles_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	c, _, _ := newTestController(t)

	songPath := filepath.Join(dir, "demo.song")
	require.NoError(t, SaveSongFile(songPath, DemoSong(), nil))
	got, _, err := c.LoadSongFile(songPath, nil)
	require.NoError(t, err)
	assert.Equal(t, DemoSong(), got)

	bankPath := filepath.Join(dir, "default.bank")
	require.NoError(t, SaveBankFile(bankPath, testBank()))
	require.NoError(t, c.LoadBankFile(bankPath))
	assert.Equal(t, testBank(), c.Bank())

	assert.Error(t, c.LoadBankFile(filepath.Join(dir, "missing.bank")))
	assert.Len(t, c.Errors(), 1)
	assert.Equal(t, testBank(), c.Bank())
}
