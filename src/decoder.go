package pagerbits

/*------------------------------------------------------------------
 *
 * Purpose:	One decoding session: samples in, codewords out.
 *
 * Description:	Ties together the optional normalizer, the bit
 *		synchronizer and the frame extractor.
 *
 *		The bit ring buffer is tiny, so input is fed through the
 *		synchronizer in chunks short enough that the extractor
 *		can always empty the ring between them.
 *
 *		When normalizing, a run of buffers with nothing outside
 *		the dead zone is taken as loss of signal.  Any partial
 *		frame is padded out and delivered and we start again from
 *		scratch, ready for the next transmission.
 *
 *------------------------------------------------------------------*/

import (
	"fmt"
)

const CHUNK_SYMBOLS = 16 /* Symbols at max baud per chunk. */

type DecoderStats struct {
	State    SyncState
	Rate     int
	GotSync  bool
	Inverted bool
	NumCode  int /* Position in current frame, -1 for none. */

	GoodTransitions int
	BadTransitions  int
	Demotions       int
	RingOverflows   uint64
	SilenceFlushes  uint64

	Extractor ExtractorStats
}

type Decoder struct {
	cfg Config

	bs   *BitSync
	ex   *FrameExtractor
	norm *Normalizer

	chunk   int
	scratch []float32

	silentBuffers  int
	silenceFlushes uint64

	observer func(from, to SyncState)

	// What was last reported, so we only log changes.
	loggedState     SyncState
	loggedFrames    uint64
	loggedOverflows uint64
	loggedDemotions int
}

func NewDecoder(cfg Config, h Handler) (*Decoder, error) {
	var err = cfg.Validate()
	if err != nil {
		return nil, err
	}

	var d = new(Decoder)
	d.cfg = cfg

	d.bs, err = NewBitSync(cfg.SampleRate, cfg.MaxBaud, cfg.MinBaud, cfg.MaxRunOfSameValue)
	if err != nil {
		return nil, err
	}

	d.ex, err = NewFrameExtractor(d.bs, h,
		WithFrameWords(cfg.FrameWords),
		WithSyncBitErrors(cfg.SyncMaxBitErrors),
		WithSearchBudget(cfg.SearchBudget))
	if err != nil {
		return nil, fmt.Errorf("frame extractor: %w", err)
	}

	d.chunk = max(1, CHUNK_SYMBOLS*cfg.SampleRate/cfg.MaxBaud)

	if cfg.Normalize {
		d.norm = NewNormalizer(cfg.SampleRate)
		d.scratch = make([]float32, d.chunk)
	}

	d.bs.OnStateChange(func(from, to SyncState) {
		if d.observer != nil {
			d.observer(from, to)
		}
	})

	return d, nil
}

// OnStateChange registers a function called whenever the bit
// synchronizer changes state.  Same rules as BitSync.OnStateChange.
func (d *Decoder) OnStateChange(fn func(from, to SyncState)) {
	d.observer = fn
}

/*-------------------------------------------------------------------
 *
 * Name:        Process
 *
 * Purpose:     Process one buffer of demodulated samples.
 *
 * Returns:	Sum of what the handler returned.
 *
 *--------------------------------------------------------------------*/

func (d *Decoder) Process(samples []float32) int {
	var result = 0
	var active = false

	for off := 0; off < len(samples); off += d.chunk {
		var in = samples[off:min(off+d.chunk, len(samples))]

		if d.norm != nil {
			var out = d.scratch[:len(in)]
			if d.norm.NormalizeBuffer(out, in) {
				active = true
			}

			in = out
		}

		d.bs.ProcessSamples(in)
		result += d.ex.ExtractFrames()
	}

	if d.cfg.SilenceFlushBuffers > 0 && len(samples) > 0 {
		if active {
			d.silentBuffers = 0
		} else {
			d.silentBuffers++
			if d.silentBuffers == d.cfg.SilenceFlushBuffers {
				result += d.silenceFlush()
			}
		}
	}

	d.report()

	return result
}

func (d *Decoder) silenceFlush() int {
	var result = d.ex.Flush()

	d.bs.Reset()
	d.silenceFlushes++

	Logger().Debug("Signal lost, starting over", "flushed", result)

	return result
}

// Flush completes any partial frame, e.g. at end of file.
func (d *Decoder) Flush() int {
	var result = d.ex.Flush()

	d.report()

	return result
}

// Reset starts the session again from nothing.  Configuration,
// handler and state observer are kept.
func (d *Decoder) Reset() {
	d.bs.Reset()
	d.ex.Reset()

	if d.norm != nil {
		d.norm.Reset()
	}

	d.silentBuffers = 0
	d.silenceFlushes = 0

	d.loggedState = StateSearching
	d.loggedFrames = 0
	d.loggedOverflows = 0
	d.loggedDemotions = 0
}

func (d *Decoder) Rate() int {
	return d.bs.Rate()
}

func (d *Decoder) State() SyncState {
	return d.bs.State()
}

func (d *Decoder) Extractor() *FrameExtractor {
	return d.ex
}

func (d *Decoder) Stats() DecoderStats {
	var snap = d.bs.Snapshot()

	return DecoderStats{
		State:           snap.State,
		Rate:            d.bs.Rate(),
		GotSync:         d.ex.GotSync(),
		Inverted:        d.ex.Inverted(),
		NumCode:         d.ex.NumCode(),
		GoodTransitions: snap.GoodTransitions,
		BadTransitions:  snap.BadTransitions,
		Demotions:       snap.Demotions,
		RingOverflows:   snap.RingOverflows,
		SilenceFlushes:  d.silenceFlushes,
		Extractor:       d.ex.Stats(),
	}
}

// Log anything which changed since last time.
func (d *Decoder) report() {
	var l = Logger()
	var snap = d.bs.Snapshot()

	if snap.State != d.loggedState {
		l.Info("Bit sync", "from", d.loggedState, "to", snap.State, "rate", d.bs.Rate())
		d.loggedState = snap.State
	}

	if snap.Demotions < d.loggedDemotions {
		d.loggedDemotions = 0 // BitSync was reset.
	}

	if snap.Demotions > d.loggedDemotions {
		l.Debug("Lost bit sync", "demotions", snap.Demotions)
		d.loggedDemotions = snap.Demotions
	}

	var frames = d.ex.Stats().Frames
	if frames > d.loggedFrames {
		l.Debug("Frame complete", "frames", frames, "rate", d.bs.Rate(), "inverted", d.ex.Inverted())
		d.loggedFrames = frames
	}

	if snap.RingOverflows < d.loggedOverflows {
		d.loggedOverflows = 0
	}

	if snap.RingOverflows > d.loggedOverflows {
		l.Warn("Bit buffer overflow, extractor not keeping up", "lost", snap.RingOverflows-d.loggedOverflows)
		d.loggedOverflows = snap.RingOverflows
	}
}
