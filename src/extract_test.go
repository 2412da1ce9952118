package pagerbits

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func alternatingBits(n int) []byte {
	var out = make([]byte, n)
	for i := range out {
		out[i] = byte(1 - i%2)
	}

	return out
}

func invertBits(bits []byte) []byte {
	var out = make([]byte, len(bits))
	for i, b := range bits {
		out[i] = b ^ 1
	}

	return out
}

func batchBits(preamble int, words ...uint32) []byte {
	var bits = alternatingBits(preamble)
	bits = append(bits, wordBits(SYNC_CODEWORD)...)

	return append(bits, wordBits(words...)...)
}

func newTestExtractor(t *testing.T, bits []byte, opts ...ExtractorOption) (*FrameExtractor, *recorder, *bitSlice) {
	t.Helper()

	var src = &bitSlice{bits: bits, rate: 1200}
	var rec = new(recorder)

	var ex, err = NewFrameExtractor(src, rec, opts...)
	require.NoError(t, err)

	return ex, rec, src
}

func TestExtractorFindsSync(t *testing.T) {
	var ex, rec, _ = newTestExtractor(t, batchBits(100, testWords...))

	assert.Equal(t, 1, ex.ExtractFrames())

	require.Len(t, rec.words, MAX_CODEWORDS)

	for i, w := range rec.words {
		assert.Equal(t, testWords[i], w.word)
		assert.Equal(t, i, w.pos)
	}

	assert.Equal(t, []frameRecord{{length: MAX_CODEWORDS, baud: 1200}}, rec.frames)
	assert.False(t, ex.Inverted())
	assert.False(t, ex.GotSync())
	assert.Equal(t, -1, ex.NumCode())

	var stats = ex.Stats()
	assert.Equal(t, uint64(1), stats.Syncs)
	assert.Equal(t, uint64(0), stats.InvertedSyncs)
	assert.Equal(t, uint64(MAX_CODEWORDS), stats.Codewords)
	assert.Equal(t, uint64(1), stats.Frames)
}

func TestExtractorInverted(t *testing.T) {
	var ex, rec, _ = newTestExtractor(t, invertBits(batchBits(100, testWords...)))

	assert.Equal(t, 1, ex.ExtractFrames())
	assert.Equal(t, testWords, rec.frameWords(0))
	assert.True(t, ex.Inverted())
	assert.Equal(t, uint64(1), ex.Stats().InvertedSyncs)
}

func TestExtractorEitherPolarity(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		var words = rapid.SliceOfN(rapid.Uint32(), MAX_CODEWORDS, MAX_CODEWORDS).Draw(t, "words")
		var preamble = rapid.IntRange(0, 200).Draw(t, "preamble")
		var inverted = rapid.Bool().Draw(t, "inverted")

		var bits = batchBits(preamble, words...)
		if inverted {
			bits = invertBits(bits)
		}

		var rec = new(recorder)
		var ex, err = NewFrameExtractor(&bitSlice{bits: bits, rate: 512}, rec)
		require.NoError(t, err)

		assert.Equal(t, 1, ex.ExtractFrames())
		assert.Equal(t, words, rec.frameWords(0))
		assert.Equal(t, inverted, ex.Inverted())
	})
}

func TestExtractorIdleIsNotSync(t *testing.T) {
	var bits = wordBits(IDLE_CODEWORD)
	bits = append(bits, invertBits(wordBits(IDLE_CODEWORD))...)
	bits = append(bits, alternatingBits(50)...)

	var ex, rec, _ = newTestExtractor(t, bits)

	assert.Equal(t, 0, ex.ExtractFrames())
	assert.False(t, ex.GotSync())
	assert.Empty(t, rec.words)
	assert.Equal(t, uint64(2), ex.Stats().IdleWords)
}

func TestExtractorSearchBudgetResumes(t *testing.T) {
	const budget = 32

	var bits = batchBits(300, testWords...)
	var total = len(bits)

	var ex, rec, src = newTestExtractor(t, bits, WithSearchBudget(budget))

	// Sync ends at bit 331, in the 11th call.
	for i := range 10 {
		assert.Equal(t, 0, ex.ExtractFrames())
		assert.False(t, ex.GotSync())
		assert.Equal(t, total-budget*(i+1), src.NoOfBits())
	}

	// Once synced, the rest of the frame isn't limited.
	assert.Equal(t, 1, ex.ExtractFrames())
	assert.Equal(t, 0, src.NoOfBits())
	assert.Equal(t, testWords, rec.frameWords(0))
}

func TestExtractorFlushPadsWithIdle(t *testing.T) {
	var bits = batchBits(40, testWords[:5]...)
	bits = append(bits, 1, 0, 1, 1, 0) // Partial codeword, discarded.

	var ex, rec, _ = newTestExtractor(t, bits)

	assert.Equal(t, 0, ex.ExtractFrames())
	assert.True(t, ex.GotSync())
	assert.Equal(t, 4, ex.NumCode())

	assert.Equal(t, 1, ex.Flush())
	assert.False(t, ex.GotSync())

	require.Len(t, rec.words, MAX_CODEWORDS)

	var got = rec.frameWords(0)
	assert.Equal(t, testWords[:5], got[:5])

	for i := 5; i < MAX_CODEWORDS; i++ {
		assert.Equal(t, IDLE_CODEWORD, got[i])
		assert.Equal(t, i, rec.words[i].pos)
	}

	assert.Equal(t, []frameRecord{{length: MAX_CODEWORDS, baud: 1200}}, rec.frames)
	assert.Equal(t, uint64(1), ex.Stats().FlushedFrames)
}

func TestExtractorFlushWithNothingPending(t *testing.T) {
	var ex, rec, _ = newTestExtractor(t, batchBits(40))

	ex.ExtractFrames()
	assert.True(t, ex.GotSync())

	assert.Equal(t, 0, ex.Flush())
	assert.False(t, ex.GotSync())
	assert.Empty(t, rec.words)
	assert.Empty(t, rec.frames)
	assert.Equal(t, 0, ex.Flush())
}

func corruptSync(flips ...int) []byte {
	var w = SYNC_CODEWORD
	for _, f := range flips {
		w ^= 1 << f
	}

	var bits = alternatingBits(40)
	bits = append(bits, wordBits(w)...)

	return append(bits, wordBits(testWords...)...)
}

func TestExtractorSyncBitErrors(t *testing.T) {
	var tests = []struct {
		name     string
		bits     []byte
		allowed  int
		frames   int
		inverted bool
	}{
		{"exact match needed", corruptSync(0, 8), 0, 0, false},
		{"two allowed", corruptSync(0, 8), 2, 1, false},
		{"two allowed inverted", invertBits(corruptSync(0, 8)), 2, 1, true},
		{"three is too many", corruptSync(3, 20, 27), 2, 0, false},
		{"up to four", corruptSync(3, 20, 27), 4, 1, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var ex, rec, _ = newTestExtractor(t, tt.bits, WithSyncBitErrors(tt.allowed))

			assert.Equal(t, tt.frames, ex.ExtractFrames())

			if tt.frames > 0 {
				assert.Equal(t, testWords, rec.frameWords(0))
				assert.Equal(t, tt.inverted, ex.Inverted())
			}
		})
	}
}

func TestExtractorShortFrames(t *testing.T) {
	var bits = batchBits(40, 0x11111111, 0x22222222)
	bits = append(bits, wordBits(SYNC_CODEWORD, 0x33333333, 0x44444444)...)

	var ex, rec, _ = newTestExtractor(t, bits, WithFrameWords(2))

	assert.Equal(t, 2, ex.ExtractFrames())
	assert.Equal(t, []wordRecord{
		{0x11111111, 0}, {0x22222222, 1},
		{0x33333333, 0}, {0x44444444, 1},
	}, rec.words)
	assert.Equal(t, []frameRecord{{2, 1200}, {2, 1200}}, rec.frames)
}

func TestExtractorBadOptions(t *testing.T) {
	for _, opt := range []ExtractorOption{
		WithFrameWords(0),
		WithFrameWords(MAX_CODEWORDS + 1),
		WithSyncBitErrors(-1),
		WithSyncBitErrors(MAX_SYNC_BIT_ERRORS + 1),
		WithSearchBudget(CODEWORD_BITS - 1),
	} {
		var ex, err = NewFrameExtractor(new(bitSlice), nil, opt)

		assert.ErrorIs(t, err, ErrInvalidExtractorOption)
		assert.Nil(t, ex)
	}
}

func TestExtractorCodewordQueue(t *testing.T) {
	var ex, _, _ = newTestExtractor(t, batchBits(10, testWords...))

	ex.ExtractFrames()

	assert.Equal(t, MAX_CODEWORDS, ex.PendingCodewords())
	assert.Equal(t, testWords, ex.AppendCodewords(nil))

	var cw, ok = ex.PopCodeword()
	assert.True(t, ok)
	assert.Equal(t, Codeword{Word: testWords[0], Bits: CODEWORD_BITS}, cw)
	assert.Equal(t, MAX_CODEWORDS-1, ex.PendingCodewords())

	ex.Reset()

	_, ok = ex.PopCodeword()
	assert.False(t, ok)
	assert.Equal(t, ExtractorStats{}, ex.Stats())
}

// Without a rate from the source, frames report 0 baud.
func TestExtractorNoRate(t *testing.T) {
	var ring BitRing

	for _, b := range wordBits(SYNC_CODEWORD, 0xCAFEBABE) {
		ring.StoreBit(b)
	}

	var rec = new(recorder)
	var ex, err = NewFrameExtractor(&ring, rec, WithFrameWords(1))
	require.NoError(t, err)

	assert.Equal(t, 1, ex.ExtractFrames())
	assert.Equal(t, []wordRecord{{0xCAFEBABE, 0}}, rec.words)
	assert.Equal(t, []frameRecord{{1, 0}}, rec.frames)
}

func TestCodewordFifoDropsOldest(t *testing.T) {
	var q codewordFifo

	for i := range MAX_CODEWORDS + 2 {
		q.push(Codeword{Word: uint32(i), Bits: CODEWORD_BITS})
	}

	assert.Equal(t, MAX_CODEWORDS, q.len())
	assert.Equal(t, uint64(2), q.overflows)

	var cw, ok = q.pop()
	assert.True(t, ok)
	assert.Equal(t, uint32(2), cw.Word)

	q.clear()

	_, ok = q.pop()
	assert.False(t, ok)
}

func TestBitsDiff(t *testing.T) {
	assert.Equal(t, 0, bitsDiff(SYNC_CODEWORD, SYNC_CODEWORD))
	assert.Equal(t, 32, bitsDiff(SYNC_CODEWORD, NOT_SYNC_CODEWORD))
	assert.Equal(t, 2, bitsDiff(0, 0x81))
}
