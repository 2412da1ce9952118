package pagerbits

// Codewords between the frame extractor and whoever consumes them.
// Fixed size.  The oldest entry goes when a new one doesn't fit.

const MAX_CODEWORDS = 16

type Codeword struct {
	Word uint32
	Bits int /* Number of valid bits, always 32 so far. */
}

type codewordFifo struct {
	entries   [MAX_CODEWORDS]Codeword
	head      int /* Oldest. */
	count     int
	overflows uint64
}

func (q *codewordFifo) push(cw Codeword) {
	if q.count == MAX_CODEWORDS {
		q.head = (q.head + 1) % MAX_CODEWORDS
		q.count--
		q.overflows++
	}

	q.entries[(q.head+q.count)%MAX_CODEWORDS] = cw
	q.count++
}

func (q *codewordFifo) pop() (Codeword, bool) {
	if q.count == 0 {
		return Codeword{}, false //nolint:exhaustruct
	}

	var cw = q.entries[q.head]
	q.head = (q.head + 1) % MAX_CODEWORDS
	q.count--

	return cw, true
}

func (q *codewordFifo) len() int {
	return q.count
}

// Oldest first, appended to dst.
func (q *codewordFifo) appendWords(dst []uint32) []uint32 {
	for i := range q.count {
		dst = append(dst, q.entries[(q.head+i)%MAX_CODEWORDS].Word)
	}

	return dst
}

func (q *codewordFifo) clear() {
	q.head = 0
	q.count = 0
}
