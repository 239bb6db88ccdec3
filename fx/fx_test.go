package fx

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user-none/fmtrack/fm"
)

func TestGain(t *testing.T) {
	g := NewGain(-6.0206)
	buf := []float32{1, -1, 0.5, 0.25}
	g.Process(buf, 2)
	assert.InDelta(t, 0.5, buf[0], 1e-4)
	assert.InDelta(t, -0.5, buf[1], 1e-4)
	assert.InDelta(t, 0.125, buf[3], 1e-4)

	assert.Equal(t, float32(24), NewGain(100).DB)
}

func TestLimiter_HoldsThreshold(t *testing.T) {
	l := NewLimiter(44100, -6, 50)
	buf := make([]float32, 2000)
	for i := range buf {
		buf[i] = 1
	}
	l.Process(buf, 1000)

	threshold := dbToLinear(-6)
	for i, s := range buf {
		if s > threshold+1e-6 {
			t.Fatalf("sample %d = %f exceeds %f", i, s, threshold)
		}
	}
}

func TestLimiter_Releases(t *testing.T) {
	l := NewLimiter(1000, -12, 10)
	loud := []float32{1, 1}
	l.Process(loud, 1)

	quiet := make([]float32, 400)
	for i := range quiet {
		quiet[i] = 0.01
	}
	l.Process(quiet, 200)
	assert.InDelta(t, 0.01, quiet[len(quiet)-1], 1e-4)
	assert.Less(t, quiet[0], float32(0.01))
}

func TestEcho(t *testing.T) {
	e := NewEcho(2, 0.5, 0.5)
	buf := make([]float32, 16)
	buf[0], buf[1] = 1, 1
	e.Process(buf, 8)

	assert.Equal(t, float32(0.5), buf[0], "dry")
	assert.Equal(t, float32(0.5), buf[4], "first repeat")
	assert.Equal(t, float32(0.25), buf[8], "second repeat")
	assert.Equal(t, float32(0), buf[2])
}

func TestEcho_ZeroValue(t *testing.T) {
	e, err := Factory(TypeEcho)
	require.NoError(t, err)

	buf := []float32{1, -1, 0.5, 0.5, 0, 0}
	assert.NotPanics(t, func() { fm.ProcessChain([]fm.Effect{e, &Echo{}}, buf, 3) })
	assert.Equal(t, []float32{1, -1, 0.5, 0.5, 0, 0}, buf, "zero mix passes the dry signal")
	assert.Equal(t, uint32(1), e.(*Echo).DelayFrames)

	wet := &Echo{Mix: 1}
	buf = []float32{1, 1, 0, 0}
	wet.Process(buf, 2)
	assert.Equal(t, []float32{0, 0, 1, 1}, buf, "one-frame delay")
}

func TestFactory(t *testing.T) {
	for _, typ := range []fm.EffectType{TypeGain, TypeLimiter, TypeEcho} {
		e, err := Factory(typ)
		require.NoError(t, err)
		assert.Equal(t, typ, e.Type())
	}
	_, err := Factory(99)
	assert.ErrorIs(t, err, fm.ErrUnknownEffect)
	assert.Equal(t, "echo", Name(TypeEcho))
	assert.Equal(t, "unknown(99)", Name(99))
}

func TestChain_SongRoundTrip(t *testing.T) {
	chain := []fm.Effect{
		NewGain(-3),
		NewLimiter(44100, -1, 100),
		NewEcho(4410, 0.3, 0.2),
	}
	var buf bytes.Buffer
	require.NoError(t, fm.SaveSong(&buf, fm.DemoSong(), chain))

	_, got, err := fm.LoadSong(bytes.NewReader(buf.Bytes()), Factory)
	require.NoError(t, err)
	assert.Equal(t, chain, got)
}

func TestChain_LoadClampsParameters(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, (&Echo{DelayFrames: 1 << 30, Feedback: 7, Mix: -1}).Save(&buf))

	e := &Echo{}
	require.NoError(t, e.Load(&buf))
	assert.Equal(t, uint32(maxDelayFrames), e.DelayFrames)
	assert.Equal(t, float32(0.95), e.Feedback)
	assert.Equal(t, float32(0), e.Mix)
}
