package pagerbits

/*------------------------------------------------------------------
 *
 * Purpose:	Find the sync codeword in the recovered bit stream and
 *		chop what follows into 32 bit codewords.
 *
 * Description:	Bits are shifted into a 32 bit window, most significant
 *		first.  Until we have sync, the window is compared with the
 *		sync codeword and its complement after every bit.  The
 *		complement means the demodulator output is upside down;
 *		everything that follows is flipped back before delivery.
 *
 *		After sync, every 32 bits make a codeword.  After the
 *		configured number of codewords the frame is complete and
 *		we go back to looking for sync.  The next frame's sync word
 *		normally follows immediately.
 *
 *		We don't try to detect loss of signal in the middle of a
 *		frame.  Garbage is delivered as codewords and it's up to
 *		the consumer, which knows about parity, to reject it.
 *
 *		While looking for sync, only a limited number of bits are
 *		examined per call so a long stretch of noise doesn't hog
 *		the sample path.  The window is kept so the search carries
 *		on where it stopped next time.
 *
 *------------------------------------------------------------------*/

import (
	"errors"
	"fmt"
	"math/bits"
)

const SYNC_CODEWORD uint32 = 0x7CD215D8

const NOT_SYNC_CODEWORD uint32 = 0x832DEA27 /* ^SYNC_CODEWORD */

const IDLE_CODEWORD uint32 = 0x7A89C197

const CODEWORD_BITS = 32

var ErrInvalidExtractorOption = errors.New("invalid frame extractor option")

// RateSource is implemented by bit sources which can estimate their baud.
type RateSource interface {
	Rate() int
}

type ExtractorStats struct {
	Syncs         uint64 /* Sync words found, either polarity. */
	InvertedSyncs uint64
	IdleWords     uint64 /* IDLE seen while looking for sync. */
	Codewords     uint64
	Frames        uint64
	FlushedFrames uint64 /* Completed by Flush with IDLE padding. */
	FifoOverflows uint64
	BitsSearched  uint64
}

type FrameExtractor struct {
	src     BitSource
	handler Handler

	frameWords   int
	maxBitErrors int
	searchBudget int

	window     uint32
	windowBits int /* Bits in window since last cleared, up to 32. */

	gotSync  bool
	inverted bool
	numCode  int /* Position of the last codeword delivered, -1 for none yet. */

	fifo  codewordFifo
	stats ExtractorStats
}

type ExtractorOption func(*FrameExtractor) error

// WithFrameWords sets the number of codewords after each sync word.
func WithFrameWords(n int) ExtractorOption {
	return func(e *FrameExtractor) error {
		if n < 1 || n > MAX_CODEWORDS {
			return fmt.Errorf("%w: %d frame words", ErrInvalidExtractorOption, n)
		}

		e.frameWords = n

		return nil
	}
}

// WithSyncBitErrors allows up to n bits to differ from the sync codeword.
// Zero means an exact match.
func WithSyncBitErrors(n int) ExtractorOption {
	return func(e *FrameExtractor) error {
		if n < 0 || n > MAX_SYNC_BIT_ERRORS {
			return fmt.Errorf("%w: %d sync bit errors", ErrInvalidExtractorOption, n)
		}

		e.maxBitErrors = n

		return nil
	}
}

// WithSearchBudget limits the bits examined per call while looking for sync.
func WithSearchBudget(n int) ExtractorOption {
	return func(e *FrameExtractor) error {
		if n < CODEWORD_BITS {
			return fmt.Errorf("%w: search budget %d", ErrInvalidExtractorOption, n)
		}

		e.searchBudget = n

		return nil
	}
}

func NewFrameExtractor(src BitSource, h Handler, opts ...ExtractorOption) (*FrameExtractor, error) {
	var e = &FrameExtractor{ //nolint:exhaustruct
		src:          src,
		handler:      h,
		frameWords:   DEFAULT_FRAME_WORDS,
		maxBitErrors: 0,
		searchBudget: DEFAULT_SEARCH_BUDGET,
		numCode:      -1,
	}

	for _, opt := range opts {
		var err = opt(e)
		if err != nil {
			return nil, err
		}
	}

	return e, nil
}

/*-------------------------------------------------------------------
 *
 * Name:        ExtractFrames
 *
 * Purpose:     Take whatever bits are waiting and do something with them.
 *
 * Returns:	Sum of what the handler returned.
 *
 *--------------------------------------------------------------------*/

func (e *FrameExtractor) ExtractFrames() int {
	var result = 0
	var searched = 0

	for e.src.NoOfBits() > 0 {
		if !e.gotSync && searched >= e.searchBudget {
			break
		}

		var bit, ok = e.src.GetBit()
		if !ok {
			break
		}

		e.window = (e.window << 1) | uint32(bit&1)
		if e.windowBits < CODEWORD_BITS {
			e.windowBits++
		}

		if !e.gotSync {
			searched++
			e.stats.BitsSearched++

			if e.windowBits == CODEWORD_BITS {
				e.search()
			}

			continue
		}

		if e.windowBits == CODEWORD_BITS {
			result += e.saveCodeword()
		}
	}

	return result
}

func (e *FrameExtractor) search() {
	switch {
	case bitsDiff(e.window, SYNC_CODEWORD) <= e.maxBitErrors:
		e.handleSync(false)
	case bitsDiff(e.window, NOT_SYNC_CODEWORD) <= e.maxBitErrors:
		e.handleSync(true)
	case e.window == IDLE_CODEWORD || e.window == ^IDLE_CODEWORD:
		// Transmitter is keyed up but has nothing to say.
		e.stats.IdleWords++
	}
}

func (e *FrameExtractor) handleSync(inverted bool) {
	e.gotSync = true
	e.inverted = inverted
	e.numCode = -1
	e.clearWindow()
	e.fifo.clear()

	e.stats.Syncs++
	if inverted {
		e.stats.InvertedSyncs++
	}
}

func (e *FrameExtractor) saveCodeword() int {
	var word = e.window
	if e.inverted {
		word = ^word
	}

	e.clearWindow()

	return e.deliver(word)
}

func (e *FrameExtractor) deliver(word uint32) int {
	var result = 0

	e.numCode++
	e.fifo.push(Codeword{Word: word, Bits: CODEWORD_BITS})
	e.stats.Codewords++

	if e.handler != nil {
		result += e.handler.OnDataWord(word, e.numCode)
	}

	if e.numCode+1 >= e.frameWords {
		result += e.frameComplete()
	}

	return result
}

func (e *FrameExtractor) frameComplete() int {
	var result = 0

	e.stats.Frames++

	if e.handler != nil {
		result = e.handler.OnDataFrame(e.numCode+1, e.rate())
	}

	e.gotSync = false
	e.numCode = -1

	return result
}

/*-------------------------------------------------------------------
 *
 * Name:        Flush
 *
 * Purpose:     The signal has gone away.  Finish any partial frame.
 *
 * Description:	The rest of the frame is filled with IDLE codewords,
 *		delivered like any other, then the frame is completed.
 *		Nothing happens if no codeword has arrived since sync.
 *		Either way, we go back to looking for sync and the
 *		partial window is discarded.
 *
 *--------------------------------------------------------------------*/

func (e *FrameExtractor) Flush() int {
	var result = 0

	if e.gotSync && e.numCode >= 0 {
		e.stats.FlushedFrames++

		for e.gotSync {
			result += e.deliver(IDLE_CODEWORD)
		}
	}

	e.Resync()

	return result
}

// Resync abandons any frame in progress and starts looking for sync.
// Counters and codewords not yet popped are kept.
func (e *FrameExtractor) Resync() {
	e.gotSync = false
	e.numCode = -1
	e.clearWindow()
}

// Reset forgets everything, counters included.
func (e *FrameExtractor) Reset() {
	e.Resync()
	e.inverted = false
	e.fifo.clear()
	e.fifo.overflows = 0
	e.stats = ExtractorStats{} //nolint:exhaustruct
}

func (e *FrameExtractor) clearWindow() {
	e.window = 0
	e.windowBits = 0
}

func (e *FrameExtractor) rate() int {
	if rs, ok := e.src.(RateSource); ok {
		return rs.Rate()
	}

	return 0
}

func (e *FrameExtractor) Inverted() bool {
	return e.inverted
}

func (e *FrameExtractor) GotSync() bool {
	return e.gotSync
}

// NumCode is the position of the last codeword delivered in the
// current frame, or -1.
func (e *FrameExtractor) NumCode() int {
	return e.numCode
}

// PopCodeword removes the oldest codeword of the current frame.
// The queue is emptied at every sync.
func (e *FrameExtractor) PopCodeword() (Codeword, bool) {
	return e.fifo.pop()
}

func (e *FrameExtractor) PendingCodewords() int {
	return e.fifo.len()
}

// AppendCodewords appends the unpopped codewords, oldest first.
func (e *FrameExtractor) AppendCodewords(dst []uint32) []uint32 {
	return e.fifo.appendWords(dst)
}

func (e *FrameExtractor) Stats() ExtractorStats {
	var s = e.stats
	s.FifoOverflows = e.fifo.overflows

	return s
}

// Number of bit positions that differ.
func bitsDiff(a, b uint32) int {
	return bits.OnesCount32(a ^ b)
}
