package pagerbits

/********************************************************************************
 *
 * Purpose:	Recovered bit ring buffer.
 *		Holds bits out of the bit synchronizer until the frame
 *		extractor gets around to reading them.
 *
 * Description:	Fixed capacity, no allocation after construction.
 *		One bit per byte rather than packed; the capacity is
 *		so small that packing isn't worth the shifting.
 *
 *		start and end only ever increase.  The difference is the
 *		number of unread bits and never exceeds BIT_BUF_SIZE.
 *
 *		When full, the oldest unread bit is dropped to make room.
 *		In a real time sample path we would rather lose a bit
 *		than stall everything upstream.  This shouldn't happen
 *		when the reader keeps up, so it is counted.
 *
 *******************************************************************************/

const BIT_BUF_SIZE = 64

// BitSource is anything the frame extractor can read bits from.
type BitSource interface {
	GetBit() (byte, bool)
	NoOfBits() int
}

type BitRing struct {
	bits [BIT_BUF_SIZE]byte

	start uint64 /* Next to read. */
	end   uint64 /* Next to write. */

	overflows uint64 /* Bits discarded because reader fell behind. */
}

/***********************************************************************************
 *
 * Name:	StoreBit
 *
 * Purpose:	Append another bit to the end.
 *
 * Inputs:	bit	- 0 or 1.  Anything else is treated as 1.
 *
 ***********************************************************************************/

func (r *BitRing) StoreBit(bit byte) {
	if r.end-r.start >= BIT_BUF_SIZE {
		r.start++
		r.overflows++
	}

	if bit != 0 {
		bit = 1
	}

	r.bits[r.end%BIT_BUF_SIZE] = bit
	r.end++
}

/***********************************************************************************
 *
 * Name:	GetBit
 *
 * Purpose:	Remove the oldest unread bit.
 *
 * Returns:	The bit and true, or 0 and false if nothing is available.
 *
 ***********************************************************************************/

func (r *BitRing) GetBit() (byte, bool) {
	if r.start == r.end {
		return 0, false
	}

	var bit = r.bits[r.start%BIT_BUF_SIZE]
	r.start++

	return bit, true
}

func (r *BitRing) NoOfBits() int {
	return int(r.end - r.start)
}

func (r *BitRing) Overflows() uint64 {
	return r.overflows
}

// Clear discards unread bits and the overflow count.
func (r *BitRing) Clear() {
	r.start = 0
	r.end = 0
	r.overflows = 0
}
