package pagerbits

/*------------------------------------------------------------------
 *
 * Purpose:	Make synthetic demodulator output for testing.
 *
 * Description:	Plain NRZ: +amplitude for a 1, -amplitude for a 0,
 *		with symbol boundaries rounded to the nearest sample so
 *		the average rate is exact even when the sample rate isn't
 *		a multiple of the baud.
 *
 *		A transmission is a preamble of alternating bits followed
 *		by one or more batches, each a sync codeword and
 *		MAX_CODEWORDS codewords.  A short last batch is padded
 *		with IDLE.
 *
 *------------------------------------------------------------------*/

import (
	"math/rand/v2"
)

const PREAMBLE_BITS = 576

type Generator struct {
	SampleRate int
	Baud       int
	Amplitude  float32
	Invert     bool /* Upside down, as from some receivers. */

	bitNo int64 /* Bits generated so far. */
}

func NewGenerator(samplesPerSec int, baud int) *Generator {
	return &Generator{ //nolint:exhaustruct
		SampleRate: samplesPerSec,
		Baud:       baud,
		Amplitude:  1,
	}
}

// First sample of bit k.
func (g *Generator) boundary(k int64) int64 {
	var sr = int64(g.SampleRate)
	var baud = int64(g.Baud)

	return (2*k*sr + baud) / (2 * baud)
}

// Bits appends the samples for each bit to dst.
func (g *Generator) Bits(dst []float32, bits ...byte) []float32 {
	for _, bit := range bits {
		var level = -g.Amplitude
		if (bit != 0) != g.Invert {
			level = g.Amplitude
		}

		var n = g.boundary(g.bitNo+1) - g.boundary(g.bitNo)
		for range n {
			dst = append(dst, level)
		}

		g.bitNo++
	}

	return dst
}

// Word appends 32 bits, most significant first.
func (g *Generator) Word(dst []float32, w uint32) []float32 {
	for i := CODEWORD_BITS - 1; i >= 0; i-- {
		dst = g.Bits(dst, byte(w>>i)&1)
	}

	return dst
}

func (g *Generator) Words(dst []float32, words ...uint32) []float32 {
	for _, w := range words {
		dst = g.Word(dst, w)
	}

	return dst
}

// Preamble appends n alternating bits starting with 1.
func (g *Generator) Preamble(dst []float32, n int) []float32 {
	for i := range n {
		dst = g.Bits(dst, byte(1-i%2))
	}

	return dst
}

// Run appends n copies of the same bit.
func (g *Generator) Run(dst []float32, bit byte, n int) []float32 {
	for range n {
		dst = g.Bits(dst, bit)
	}

	return dst
}

// Batch appends a sync codeword and up to MAX_CODEWORDS words,
// padded with IDLE.
func (g *Generator) Batch(dst []float32, words []uint32) []float32 {
	dst = g.Word(dst, SYNC_CODEWORD)

	for i := range MAX_CODEWORDS {
		if i < len(words) {
			dst = g.Word(dst, words[i])
		} else {
			dst = g.Word(dst, IDLE_CODEWORD)
		}
	}

	return dst
}

// Transmission is a complete burst: preamble then as many batches as
// needed for words.
func (g *Generator) Transmission(dst []float32, words []uint32) []float32 {
	dst = g.Preamble(dst, PREAMBLE_BITS)

	for len(words) > 0 {
		var n = min(len(words), MAX_CODEWORDS)
		dst = g.Batch(dst, words[:n])
		words = words[n:]
	}

	return dst
}

// Silence appends n samples of nothing.
func (g *Generator) Silence(dst []float32, n int) []float32 {
	for range n {
		dst = append(dst, 0)
	}

	return dst
}

// AddNoise adds uniform noise of up to +-amplitude.  The same seed
// always gives the same noise.
func AddNoise(samples []float32, amplitude float32, seed uint64) {
	var rng = rand.New(rand.NewPCG(seed, seed^0x9E3779B97F4A7C15)) //nolint:gosec

	for i := range samples {
		samples[i] += amplitude * (2*rng.Float32() - 1)
	}
}
