package pagerbits

/*------------------------------------------------------------------
 *
 * Purpose:	Fixed point sample positions and durations.
 *
 * Description:	All timing in the bit synchronizer is kept in 1024ths of
 *		a sample period.  This keeps the per sample path free of
 *		floating point division while still giving sub-sample
 *		precision for drift accumulation.
 *
 *		Positions are 64 bit so a long running session can't wrap.
 *
 *------------------------------------------------------------------*/

type Fixed1024 int64

const FIXED_SHIFT = 10

const FIXED_ONE Fixed1024 = 1 << FIXED_SHIFT

// FixedFromSamples converts a whole number of samples.
func FixedFromSamples(n int64) Fixed1024 {
	return Fixed1024(n << FIXED_SHIFT)
}

// FixedPerSymbol is the number of samples in one symbol at the given baud.
func FixedPerSymbol(samplesPerSec int, baud int) Fixed1024 {
	return Fixed1024((int64(samplesPerSec) << FIXED_SHIFT) / int64(baud))
}

// Whole samples, rounded toward negative infinity.
func (f Fixed1024) Samples() int64 {
	return int64(f) >> FIXED_SHIFT
}

func (f Fixed1024) Float() float64 {
	return float64(f) / float64(FIXED_ONE)
}

func (f Fixed1024) Abs() Fixed1024 {
	if f < 0 {
		return -f
	}

	return f
}

// Baud converts a symbol length back to a rate, rounding to nearest.
// Zero length gives zero rather than a division fault.
func (f Fixed1024) Baud(samplesPerSec int) int {
	if f <= 0 {
		return 0
	}

	return int(((int64(samplesPerSec) << FIXED_SHIFT) + int64(f)/2) / int64(f))
}
