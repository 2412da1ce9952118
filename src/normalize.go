package pagerbits

/*------------------------------------------------------------------
 *
 * Purpose:	Optional slicer in front of the bit synchronizer.
 *
 * Description:	Demodulator output wanders in level and offset.  Keep
 *		track of the peaks, decaying them once a second so one
 *		big transient doesn't ruin things, and map each sample
 *		to +1 or -1 on either side of the centre.
 *
 *		Within 10% of the centre we output 0.  A buffer which is
 *		entirely 0 is as good as silence.
 *
 *------------------------------------------------------------------*/

import (
	"math"
)

const NORMALIZE_DEAD_ZONE = 0.1

const NORMALIZE_DECAY = 0.9

type Normalizer struct {
	decayPeriod int
	counter     int

	max float32
	min float32

	hi float32
	lo float32
}

func NewNormalizer(samplesPerSec int) *Normalizer {
	var n = &Normalizer{decayPeriod: max(1, samplesPerSec)} //nolint:exhaustruct
	n.Reset()

	return n
}

func (n *Normalizer) Reset() {
	n.counter = 0
	n.max = 0
	n.min = 0
	n.thresholds()
}

func (n *Normalizer) thresholds() {
	var centre = (n.max + n.min) / 2
	var halfRange = (n.max - n.min) / 2

	n.hi = centre + halfRange*NORMALIZE_DEAD_ZONE
	n.lo = centre - halfRange*NORMALIZE_DEAD_ZONE
}

// Normalize slices one sample.  NaN and infinities come out as 0 and
// don't disturb the peaks.
func (n *Normalizer) Normalize(s float32) float32 {
	if math.IsNaN(float64(s)) || math.IsInf(float64(s), 0) {
		return 0
	}

	if n.counter >= n.decayPeriod {
		n.max *= NORMALIZE_DECAY
		n.min *= NORMALIZE_DECAY
		n.counter = 0
		n.thresholds()
	}

	n.counter++

	if s > n.max {
		n.max = s
		n.thresholds()
	}

	if s < n.min {
		n.min = s
		n.thresholds()
	}

	switch {
	case s >= n.hi && n.hi > n.lo:
		return 1
	case s <= n.lo && n.hi > n.lo:
		return -1
	}

	return 0
}

// NormalizeBuffer writes the sliced version of in to out, which must
// be at least as long.  Returns false if everything was in the dead zone.
func (n *Normalizer) NormalizeBuffer(out []float32, in []float32) bool {
	var active = false

	for i, s := range in {
		out[i] = n.Normalize(s)
		if out[i] != 0 {
			active = true
		}
	}

	return active
}
