package pagerbits

/*------------------------------------------------------------------
 *
 * Purpose:	Recover bit timing from demodulated samples.
 *
 * Description:	The input is the output of a demodulator, one float per
 *		sample, at a fixed sample rate.  There is no data clock.
 *		The symbol rate is only known to be somewhere between
 *		min and max baud and it may drift.
 *
 *		We watch for transitions across a slowly tracking mid
 *		point.  The time between transitions should be a whole
 *		number of symbols.  Those that are become "good" and
 *		refine the symbol length estimate.  Those that aren't
 *		are "bad" and otherwise ignored.
 *
 *		Between transitions bits are produced by prediction, one
 *		symbol length apart, sampled near the centre of each bit.
 *
 *		Three states:
 *
 *		Searching	- No estimate.  The first transition just
 *				  gives a reference point.  The next one
 *				  within plausible bounds seeds the estimate.
 *
 *		Sync		- Estimate being refined.  Bits are produced
 *				  once more than MIN_GOOD_FOR_BITS good
 *				  transitions have been seen.
 *
 *		Locked		- BAUD_STABLE good transitions.  The estimate
 *				  is trusted and bit positions are only
 *				  nudged by transitions, not re-centred.
 *
 *		Too many bad transitions in a row, or a run of the same
 *		value too long to trust prediction over, drops us back
 *		to Searching.
 *
 *		Nothing here allocates after construction.
 *
 *------------------------------------------------------------------*/

import (
	"fmt"
	"math"
)

const BAUD_STABLE = 104 /* Good transitions before the estimate is trusted. */

const MAX_CONSEC_SAME = 32 /* Symbols between transitions. */

const MAX_WITHOUT_SINGLE = 64 /* Symbols since an isolated single bit. */

const MAX_BAD_TRANS = 10 /* Bad transitions in a row. */

const MIN_GOOD_FOR_BITS = 20 /* No output until we have more than this. */

type SyncState int

const (
	StateSearching SyncState = iota
	StateSync
	StateLocked
)

func (s SyncState) String() string {
	switch s {
	case StateSearching:
		return "searching"
	case StateSync:
		return "sync"
	case StateLocked:
		return "locked"
	}

	return fmt.Sprintf("SyncState(%d)", int(s))
}

type BitSync struct {
	samplesPerSec     int
	minSymSamples     Fixed1024 /* One symbol at max baud. */
	maxSymSamples     Fixed1024 /* One symbol at min baud. */
	maxRunOfSameValue int

	state         SyncState
	onStateChange func(from, to SyncState)

	averageSymbolLen    Fixed1024
	lastStableSymbolLen Fixed1024
	shortestGoodTrans   Fixed1024

	goodTransitions int
	badTransitions  int
	demotions       int

	haveTrans        bool /* lastTransPos is meaningful. */
	lastTransPos     Fixed1024
	lastSingleBitPos Fixed1024
	lastBitPos       Fixed1024
	nextBitPos       Fixed1024
	nextBitPosInt    int64 /* First whole sample after nextBitPos. */

	primed     bool /* Have a previous sample to compare with. */
	sampleNo   int64
	sample     float32
	lastSample float32
	valMid     float32 /* Decision threshold. */

	bits BitRing
}

// SyncSnapshot is a copy of the timing state, for telemetry and tests.
type SyncSnapshot struct {
	State               SyncState
	AverageSymbolLen    Fixed1024
	LastStableSymbolLen Fixed1024
	ShortestGoodTrans   Fixed1024
	MinSymSamples       Fixed1024
	MaxSymSamples       Fixed1024
	GoodTransitions     int
	BadTransitions      int
	Demotions           int
	LastTransitionPos   Fixed1024
	NextBitPos          Fixed1024
	SampleNo            int64
	BitsAvailable       int
	RingOverflows       uint64
}

/*-------------------------------------------------------------------
 *
 * Name:        NewBitSync
 *
 * Purpose:     Create a bit synchronizer for one decoding session.
 *
 * Inputs:	samplesPerSec	- Sample rate of the demodulated input.
 *
 *		maxBaud, minBaud - Range of plausible symbol rates.
 *
 *		maxRunOfSameValue - Longest run of identical bits we will
 *				  produce from prediction alone.
 *
 * Returns:	Error for an impossible configuration.  Nothing is clamped.
 *
 *--------------------------------------------------------------------*/

func NewBitSync(samplesPerSec int, maxBaud int, minBaud int, maxRunOfSameValue int) (*BitSync, error) {
	var b = new(BitSync)

	var err = b.SetParams(samplesPerSec, maxBaud, minBaud, maxRunOfSameValue)
	if err != nil {
		return nil, err
	}

	return b, nil
}

func (b *BitSync) SetParams(samplesPerSec int, maxBaud int, minBaud int, maxRunOfSameValue int) error {
	var err = validateTiming(samplesPerSec, minBaud, maxBaud, maxRunOfSameValue)
	if err != nil {
		return err
	}

	b.samplesPerSec = samplesPerSec
	b.minSymSamples = FixedPerSymbol(samplesPerSec, maxBaud)
	b.maxSymSamples = FixedPerSymbol(samplesPerSec, minBaud)
	b.maxRunOfSameValue = maxRunOfSameValue

	b.Reset()

	return nil
}

// OnStateChange registers a function called on every state change.
// It runs on the sample processing path so it had better be quick.
func (b *BitSync) OnStateChange(fn func(from, to SyncState)) {
	b.onStateChange = fn
}

/*-------------------------------------------------------------------
 *
 * Name:        Reset
 *
 * Purpose:     Back to the state just after SetParams.
 *
 * Description:	Everything goes: estimates, counters, unread bits.
 *		Configuration and the state change callback stay.
 *
 *--------------------------------------------------------------------*/

func (b *BitSync) Reset() {
	var from = b.state

	b.state = StateSearching

	b.averageSymbolLen = 0
	b.lastStableSymbolLen = 0
	b.shortestGoodTrans = 0
	b.goodTransitions = 0
	b.badTransitions = 0
	b.demotions = 0

	b.haveTrans = false
	b.lastTransPos = 0
	b.lastSingleBitPos = 0
	b.lastBitPos = 0
	b.nextBitPos = 0
	b.nextBitPosInt = 0

	b.primed = false
	b.sampleNo = 0
	b.sample = 0
	b.lastSample = 0
	b.valMid = 0

	b.bits.Clear()

	if from != StateSearching && b.onStateChange != nil {
		b.onStateChange(from, StateSearching)
	}
}

// Give up on the current estimate and start acquiring again.
// Unlike Reset this keeps the sample clock, the threshold, the last
// stable rate for display and any bits not yet read.
func (b *BitSync) demote() {
	b.averageSymbolLen = 0
	b.shortestGoodTrans = 0
	b.goodTransitions = 0
	b.badTransitions = 0
	b.demotions++

	b.haveTrans = false
	b.lastTransPos = 0
	b.lastSingleBitPos = 0
	b.lastBitPos = 0
	b.nextBitPos = 0
	b.nextBitPosInt = 0

	b.setState(StateSearching)
}

func (b *BitSync) setState(to SyncState) {
	if b.state == to {
		return
	}

	var from = b.state
	b.state = to

	if b.onStateChange != nil {
		b.onStateChange(from, to)
	}
}

/*-------------------------------------------------------------------
 *
 * Name:        ProcessSamples
 *
 * Purpose:     Run a buffer of demodulated samples through the
 *		clock recovery.
 *
 * Inputs:	samples	- One buffer from the demodulator.
 *			  Not retained after return.
 *
 * Returns:	Number of bits now waiting in the ring buffer.
 *
 * Description:	The caller should drain the ring buffer often enough
 *		that it doesn't overflow.  BIT_BUF_SIZE is small.
 *
 *--------------------------------------------------------------------*/

func (b *BitSync) ProcessSamples(samples []float32) int {
	for _, s := range samples {
		if math.IsNaN(float64(s)) || math.IsInf(float64(s), 0) {
			s = b.lastSample
		}

		b.sample = s
		b.valMid += (s - b.valMid) / 1024

		b.sampleNo++

		if !b.primed {
			b.primed = true
			b.lastSample = s

			continue
		}

		if (b.lastSample < b.valMid) != (s < b.valMid) {
			b.transition()
		}

		if b.state != StateSearching && b.sampleNo >= b.nextBitPosInt {
			b.bitDue()
		}

		b.lastSample = s
	}

	return b.bits.NoOfBits()
}

// Shortest interval that is anything other than noise.
func (b *BitSync) minTransLen() Fixed1024 {
	return b.minSymSamples - b.minSymSamples/4
}

// Longest interval that can seed an estimate.
func (b *BitSync) maxSeedLen() Fixed1024 {
	return b.maxSymSamples + b.maxSymSamples/4
}

func (b *BitSync) symbolLen() Fixed1024 {
	if b.state == StateLocked {
		return b.lastStableSymbolLen
	}

	return b.averageSymbolLen
}

/*-------------------------------------------------------------------
 *
 * Name:        transition
 *
 * Purpose:     Deal with the signal crossing the mid point between
 *		the previous sample and this one.
 *
 * Description:	Linear interpolation between the two samples gives the
 *		crossing to a fraction of a sample.
 *
 *		An interval is good when it is within a quarter symbol of
 *		a whole number of symbols, rounding to the nearest whole
 *		number.  Bad intervals leave the reference point alone so
 *		a noise spike in the middle of a bit doesn't upset the
 *		measurement of the next real transition.
 *
 *		While not locked, a much shorter interval than we have
 *		seen before means the estimate is a multiple of the real
 *		symbol length.  Exactly half, halve it.  Otherwise start
 *		the estimate again from this interval.
 *
 *--------------------------------------------------------------------*/

func (b *BitSync) transition() {
	var fractional = Fixed1024((b.sample - b.valMid) * float32(FIXED_ONE) / (b.sample - b.lastSample)).Abs()
	var pos = FixedFromSamples(b.sampleNo) - fractional

	if !b.haveTrans {
		b.haveTrans = true
		b.lastTransPos = pos

		return
	}

	var length = pos - b.lastTransPos

	if b.state == StateSearching {
		if length < b.minTransLen() || length > b.maxSeedLen() {
			b.lastTransPos = pos

			return
		}

		b.averageSymbolLen = length
		b.shortestGoodTrans = length
		b.lastSingleBitPos = pos - length
		b.setState(StateSync)
	}

	if length < b.minTransLen() {
		b.badTransition()

		return
	}

	if b.state != StateLocked && length < b.shortestGoodTrans {
		var fractionOfShortest = (length << FIXED_SHIFT) / b.shortestGoodTrans

		if fractionOfShortest > 410 && fractionOfShortest < 614 { // 0.4 to 0.6
			b.averageSymbolLen /= 2
			b.shortestGoodTrans = length
		} else if fractionOfShortest < 768 { // 0.75
			b.averageSymbolLen = length
			b.shortestGoodTrans = length
			b.goodTransitions = 0
			b.lastSingleBitPos = pos - length
		}
	}

	var avg = b.averageSymbolLen
	var halfSymbol = avg / 2
	var bitsSinceLastTrans = max(1, int64((length+halfSymbol)/avg))
	var bitsSinceLastSingle = int64((FixedFromSamples(b.sampleNo) - b.lastSingleBitPos + halfSymbol) / avg)

	if bitsSinceLastTrans > MAX_CONSEC_SAME || bitsSinceLastSingle > MAX_WITHOUT_SINGLE {
		b.demote()
		b.haveTrans = true
		b.lastTransPos = pos

		return
	}

	var offset = (length - Fixed1024(bitsSinceLastTrans)*avg).Abs()
	if offset >= avg/4 {
		b.badTransition()

		return
	}

	if bitsSinceLastTrans == 1 {
		b.lastSingleBitPos = pos
	}

	b.goodTransitions++
	b.badTransitions = 0

	// Running average over the first BAUD_STABLE, exponential after that.
	var weight = Fixed1024(min(BAUD_STABLE, b.goodTransitions))
	b.averageSymbolLen = (avg*weight + length/Fixed1024(bitsSinceLastTrans)) / (weight + 1)
	avg = b.averageSymbolLen

	if b.goodTransitions >= BAUD_STABLE {
		b.lastStableSymbolLen = avg
		b.setState(StateLocked)
	}

	if b.state != StateLocked {
		b.lastBitPos = pos - avg/2
	}

	// Pull the next sampling point 1/16 of the way toward half a
	// symbol after this transition.
	var thisPlusHalfSymbol = pos + avg/2
	var lastPlusSymbol = b.lastBitPos + avg
	b.nextBitPos = lastPlusSymbol + (thisPlusHalfSymbol-lastPlusSymbol)/16

	if b.nextBitPos < pos {
		b.nextBitPos += avg
	}

	b.nextBitPosInt = b.nextBitPos.Samples() + 1
	b.lastTransPos = pos
}

func (b *BitSync) badTransition() {
	b.badTransitions++

	if b.badTransitions > MAX_BAD_TRANS {
		b.demote()
	}
}

/*-------------------------------------------------------------------
 *
 * Name:        bitDue
 *
 * Purpose:     We have reached the predicted centre of a bit.
 *
 * Description:	Produce the bit if we have enough confidence, then
 *		move the prediction on by one symbol.
 *
 *		The same value for longer than maxRunOfSameValue symbols
 *		means prediction has been running on its own for too
 *		long to trust.
 *
 *--------------------------------------------------------------------*/

func (b *BitSync) bitDue() {
	if b.state == StateLocked || b.goodTransitions > MIN_GOOD_FOR_BITS {
		b.storeBit()
	}

	var step = b.symbolLen()

	var bitsSinceLastTrans = int64((FixedFromSamples(b.sampleNo) - b.lastTransPos) / step)
	if bitsSinceLastTrans > int64(b.maxRunOfSameValue) {
		b.demote()

		return
	}

	b.lastBitPos = b.nextBitPos
	b.nextBitPos += step
	b.nextBitPosInt = b.nextBitPos.Samples() + 1
}

// Value at the centre of the bit, from the two samples either side.
func (b *BitSync) storeBit() {
	var centre = (b.sample + b.lastSample) / 2

	if centre > b.valMid {
		b.bits.StoreBit(1)
	} else {
		b.bits.StoreBit(0)
	}
}

func (b *BitSync) GetBit() (byte, bool) {
	return b.bits.GetBit()
}

func (b *BitSync) NoOfBits() int {
	return b.bits.NoOfBits()
}

// Rate is the estimated baud.  From the last stable symbol length once
// there has been a lock, which a demotion doesn't forget.  Before that
// it follows the running average.  Zero with no estimate at all.
func (b *BitSync) Rate() int {
	if b.lastStableSymbolLen > 0 {
		return b.lastStableSymbolLen.Baud(b.samplesPerSec)
	}

	return b.averageSymbolLen.Baud(b.samplesPerSec)
}

func (b *BitSync) State() SyncState {
	return b.state
}

func (b *BitSync) Snapshot() SyncSnapshot {
	return SyncSnapshot{
		State:               b.state,
		AverageSymbolLen:    b.averageSymbolLen,
		LastStableSymbolLen: b.lastStableSymbolLen,
		ShortestGoodTrans:   b.shortestGoodTrans,
		MinSymSamples:       b.minSymSamples,
		MaxSymSamples:       b.maxSymSamples,
		GoodTransitions:     b.goodTransitions,
		BadTransitions:      b.badTransitions,
		Demotions:           b.demotions,
		LastTransitionPos:   b.lastTransPos,
		NextBitPos:          b.nextBitPos,
		SampleNo:            b.sampleNo,
		BitsAvailable:       b.bits.NoOfBits(),
		RingOverflows:       b.bits.Overflows(),
	}
}
