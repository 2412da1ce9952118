package pagerbits

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHandlerFuncsNil(t *testing.T) {
	var h HandlerFuncs

	assert.Equal(t, 0, h.OnDataWord(1, 0))
	assert.Equal(t, 0, h.OnDataFrame(16, 1200))
}

func TestHandlerFuncs(t *testing.T) {
	var words []uint32

	var h = HandlerFuncs{
		Word: func(word uint32, pos int) int {
			words = append(words, word)

			return pos
		},
		Frame: func(length int, baud int) int {
			return length + baud
		},
	}

	assert.Equal(t, 3, h.OnDataWord(0xABCD, 3))
	assert.Equal(t, 1216, h.OnDataFrame(16, 1200))
	assert.Equal(t, []uint32{0xABCD}, words)
}

func TestFrameCollector(t *testing.T) {
	var c = NewFrameCollector(1)

	c.OnDataWord(0x11, 0)
	c.OnDataWord(0x22, 1)
	c.OnDataWord(0x99, MAX_CODEWORDS) // Nowhere to put it.
	assert.Equal(t, 1, c.OnDataFrame(2, 1200))

	// Queue full.
	c.OnDataWord(0x33, 0)
	assert.Equal(t, 0, c.OnDataFrame(1, 1200))
	assert.Equal(t, uint64(1), c.Dropped())

	c.Close()

	var frames []Frame
	for f := range c.Frames() {
		frames = append(frames, f)
	}

	if assert.Len(t, frames, 1) {
		assert.Equal(t, []uint32{0x11, 0x22}, frames[0].Slice())
		assert.Equal(t, 1200, frames[0].Baud)
		assert.False(t, frames[0].Time.IsZero())
	}
}
