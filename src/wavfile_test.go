package pagerbits

import (
	"bytes"
	"encoding/binary"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWavRoundTrip(t *testing.T) {
	var in = []float32{0, 0.5, -0.5, 0.25, 1, -1, 0.001}

	var buf bytes.Buffer
	require.NoError(t, WriteWav(&buf, in, 22050))
	assert.Equal(t, 44+2*len(in), buf.Len())

	var out, sampleRate, err = ReadWav(&buf)
	require.NoError(t, err)
	assert.Equal(t, 22050, sampleRate)
	assert.InDeltaSlice(t, in, out, 1.0/16384)
}

func TestWavClips(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteWav(&buf, []float32{3, -3}, 8000))

	var pcm = make([]int16, 2)
	require.NoError(t, binary.Read(bytes.NewReader(buf.Bytes()[44:]), binary.LittleEndian, pcm))
	assert.Equal(t, []int16{32767, -32768}, pcm)
}

func TestWavRejectsStereo(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteWav(&buf, make([]float32, 8), 8000))

	var b = buf.Bytes()
	binary.LittleEndian.PutUint16(b[22:], 2) // Channels
	binary.LittleEndian.PutUint16(b[32:], 4) // Block align

	var _, _, err = ReadWav(bytes.NewReader(b))
	assert.ErrorIs(t, err, ErrUnsupportedWav)
}

func TestWavRejectsNonsense(t *testing.T) {
	var _, _, err = ReadWav(bytes.NewReader([]byte("this is not a WAV file at all, not even close")))
	assert.ErrorIs(t, err, ErrUnsupportedWav)
}

func TestWavFile(t *testing.T) {
	var path = filepath.Join(t.TempDir(), "pager.wav")

	var g = NewGenerator(testSampleRate, 1200)
	g.Amplitude = 0.5

	var samples = testTransmission(g)
	require.NoError(t, WriteWavFile(path, samples, testSampleRate))

	var out, sampleRate, err = ReadWavFile(path)
	require.NoError(t, err)
	assert.Equal(t, testSampleRate, sampleRate)
	assert.Len(t, out, len(samples))

	var d, rec = newTestDecoder(t, DefaultConfig())
	assert.Equal(t, 1, d.Process(out))
	assert.Equal(t, testWords, rec.frameWords(0))

	_, _, err = ReadWavFile(filepath.Join(t.TempDir(), "missing.wav"))
	assert.Error(t, err)
}
