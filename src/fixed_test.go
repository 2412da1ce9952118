package pagerbits

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"
)

func TestFixedPerSymbol(t *testing.T) {
	assert.Equal(t, Fixed1024(20*1024), FixedPerSymbol(24000, 1200))
	assert.Equal(t, Fixed1024(6*1024), FixedPerSymbol(24000, 4000))
	assert.Equal(t, int64(18), FixedPerSymbol(22050, 1200).Samples()) // 18.375
}

func TestFixedSamplesFloors(t *testing.T) {
	assert.Equal(t, int64(2), Fixed1024(2*1024+1023).Samples())
	assert.Equal(t, int64(-1), Fixed1024(-1).Samples())
	assert.InDelta(t, 2.5, Fixed1024(2*1024+512).Float(), 1e-9)
}

func TestFixedBaud(t *testing.T) {
	assert.Equal(t, 1200, FixedPerSymbol(24000, 1200).Baud(24000))
	assert.Equal(t, 0, Fixed1024(0).Baud(24000))
	assert.Equal(t, 0, Fixed1024(-5).Baud(24000))
}

func TestFixedBaudRoundTrip(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		var sampleRate = rapid.IntRange(8000, 96000).Draw(t, "sampleRate")
		var baud = rapid.IntRange(100, sampleRate/2).Draw(t, "baud")

		var got = FixedPerSymbol(sampleRate, baud).Baud(sampleRate)

		// Truncation to 1/1024 sample can move it a little.
		assert.InDelta(t, baud, got, float64(baud)/100+1)
	})
}
