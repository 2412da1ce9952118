package pagerbits

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

const testSampleRate = 24000

// Plenty of isolated single bits, so nothing here looks like a long run.
var testWords = []uint32{
	0x12345678, 0xCAFEBABE, 0xDEADBEEF, IDLE_CODEWORD,
	0x13579BDF, 0x2468ACE1, 0x31415926, 0x27182818,
	0x16180339, 0x14142135, 0x17320508, 0x22360679,
	0x26457513, 0x28284271, 0x69314718, 0x57721566,
}

func newTestBitSync(t *testing.T) *BitSync {
	t.Helper()

	var bs, err = NewBitSync(testSampleRate, DEFAULT_MAX_BAUD, DEFAULT_MIN_BAUD, MAX_CONSEC_SAME)
	require.NoError(t, err)

	return bs
}

func drainBits(src BitSource) []byte {
	var out []byte

	for src.NoOfBits() > 0 {
		var bit, _ = src.GetBit()
		out = append(out, bit)
	}

	return out
}

// Feed samples in pieces small enough that the ring never overflows,
// pulling bits out as we go.
func syncAndCollect(bs *BitSync, samples []float32) []byte {
	var out []byte

	for off := 0; off < len(samples); off += 64 {
		bs.ProcessSamples(samples[off:min(off+64, len(samples))])
		out = append(out, drainBits(bs)...)
	}

	return out
}

func wordBits(words ...uint32) []byte {
	var out []byte

	for _, w := range words {
		for i := CODEWORD_BITS - 1; i >= 0; i-- {
			out = append(out, byte(w>>i)&1)
		}
	}

	return out
}

// bitSlice is a BitSource for testing the extractor on its own.
type bitSlice struct {
	bits []byte
	rate int
}

func (b *bitSlice) GetBit() (byte, bool) {
	if len(b.bits) == 0 {
		return 0, false
	}

	var bit = b.bits[0]
	b.bits = b.bits[1:]

	return bit, true
}

func (b *bitSlice) NoOfBits() int {
	return len(b.bits)
}

func (b *bitSlice) Rate() int {
	return b.rate
}

type wordRecord struct {
	word uint32
	pos  int
}

type frameRecord struct {
	length int
	baud   int
}

// recorder is a Handler which remembers everything.
type recorder struct {
	words  []wordRecord
	frames []frameRecord
}

func (r *recorder) OnDataWord(word uint32, pos int) int {
	r.words = append(r.words, wordRecord{word: word, pos: pos})

	return 0
}

func (r *recorder) OnDataFrame(length int, baud int) int {
	r.frames = append(r.frames, frameRecord{length: length, baud: baud})

	return 1
}

func (r *recorder) frameWords(n int) []uint32 {
	var out []uint32

	for _, w := range r.words[n*MAX_CODEWORDS : (n+1)*MAX_CODEWORDS] {
		out = append(out, w.word)
	}

	return out
}

// driftingNRZ is like Generator.Bits except the rate moves in a
// straight line from startBaud at the first bit to endBaud at the last.
func driftingNRZ(samplesPerSec int, startBaud float64, endBaud float64, bits []byte) []float32 {
	var out []float32
	var t = 0.0
	var prev = 0

	for k, bit := range bits {
		var baud = startBaud
		if len(bits) > 1 {
			baud += (endBaud - startBaud) * float64(k) / float64(len(bits)-1)
		}

		t += float64(samplesPerSec) / baud

		var end = int(math.Floor(t + 0.5))

		var level float32 = -1
		if bit != 0 {
			level = 1
		}

		for range end - prev {
			out = append(out, level)
		}

		prev = end
	}

	return out
}
