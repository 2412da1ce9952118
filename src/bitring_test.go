package pagerbits

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"
)

func TestBitRingEmpty(t *testing.T) {
	var r BitRing

	var bit, ok = r.GetBit()

	assert.False(t, ok)
	assert.Equal(t, byte(0), bit)
	assert.Equal(t, 0, r.NoOfBits())
}

func TestBitRingOrder(t *testing.T) {
	var r BitRing

	for _, b := range []byte{1, 0, 0, 1, 7} {
		r.StoreBit(b)
	}

	assert.Equal(t, 5, r.NoOfBits())

	var got []byte

	for r.NoOfBits() > 0 {
		var bit, _ = r.GetBit()
		got = append(got, bit)
	}

	assert.Equal(t, []byte{1, 0, 0, 1, 1}, got)
}

func TestBitRingOverflowDropsOldest(t *testing.T) {
	var r BitRing

	for i := range BIT_BUF_SIZE + 3 {
		r.StoreBit(byte(i % 2))
	}

	assert.Equal(t, BIT_BUF_SIZE, r.NoOfBits())
	assert.Equal(t, uint64(3), r.Overflows())

	// Bits 0, 1 and 2 went.  Bit 3 is a 1.
	var bit, ok = r.GetBit()
	assert.True(t, ok)
	assert.Equal(t, byte(1), bit)

	r.Clear()
	assert.Equal(t, 0, r.NoOfBits())
	assert.Equal(t, uint64(0), r.Overflows())
}

// Compare with a plain slice that drops from the front.
func TestBitRingModel(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		var r BitRing
		var model []byte
		var overflows uint64

		var ops = rapid.SliceOfN(rapid.IntRange(0, 2), 1, 500).Draw(t, "ops")

		for _, op := range ops {
			switch op {
			case 0, 1:
				r.StoreBit(byte(op))

				model = append(model, byte(op))
				if len(model) > BIT_BUF_SIZE {
					model = model[1:]
					overflows++
				}
			case 2:
				var bit, ok = r.GetBit()
				if len(model) == 0 {
					assert.False(t, ok)
				} else {
					assert.True(t, ok)
					assert.Equal(t, model[0], bit)
					model = model[1:]
				}
			}

			assert.Equal(t, len(model), r.NoOfBits())
			assert.LessOrEqual(t, r.NoOfBits(), BIT_BUF_SIZE)
		}

		assert.Equal(t, overflows, r.Overflows())
	})
}
