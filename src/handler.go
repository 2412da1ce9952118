package pagerbits

import (
	"time"
)

/*-------------------------------------------------------------------
 *
 * Name:        Handler
 *
 * Purpose:     Where the frame extractor delivers what it finds.
 *
 * Description:	OnDataWord is called for every codeword after a sync
 *		word, with its position in the frame, starting at 0.
 *		Polarity has already been corrected.
 *
 *		OnDataFrame is called once the frame is complete, with
 *		the number of codewords and the estimated baud.
 *
 *		Both run synchronously on the sample processing path.
 *		Copy what you need and get out.  Anything slow, like
 *		formatting or I/O, belongs somewhere else.
 *
 *		The return values are added up and returned from
 *		ExtractFrames.  Conventionally the number of messages.
 *
 *--------------------------------------------------------------------*/

type Handler interface {
	OnDataWord(word uint32, pos int) int
	OnDataFrame(length int, baud int) int
}

// HandlerFuncs adapts a pair of functions.  Either may be nil.
type HandlerFuncs struct {
	Word  func(word uint32, pos int) int
	Frame func(length int, baud int) int
}

func (h HandlerFuncs) OnDataWord(word uint32, pos int) int {
	if h.Word == nil {
		return 0
	}

	return h.Word(word, pos)
}

func (h HandlerFuncs) OnDataFrame(length int, baud int) int {
	if h.Frame == nil {
		return 0
	}

	return h.Frame(length, baud)
}

// Frame is one complete frame, by value so queueing doesn't allocate.
type Frame struct {
	Words [MAX_CODEWORDS]uint32
	Len   int
	Baud  int
	Time  time.Time
}

func (f *Frame) Slice() []uint32 {
	return f.Words[:f.Len]
}

/*-------------------------------------------------------------------
 *
 * Name:        FrameCollector
 *
 * Purpose:     A Handler which queues complete frames for some other
 *		goroutine to deal with.
 *
 * Description:	Never blocks.  If the queue is full the frame is
 *		dropped and counted.
 *
 *--------------------------------------------------------------------*/

type FrameCollector struct {
	current Frame
	frames  chan Frame
	dropped uint64
}

func NewFrameCollector(depth int) *FrameCollector {
	return &FrameCollector{ //nolint:exhaustruct
		frames: make(chan Frame, depth),
	}
}

func (c *FrameCollector) OnDataWord(word uint32, pos int) int {
	if pos >= 0 && pos < MAX_CODEWORDS {
		c.current.Words[pos] = word
	}

	return 0
}

func (c *FrameCollector) OnDataFrame(length int, baud int) int {
	c.current.Len = min(max(length, 0), MAX_CODEWORDS)
	c.current.Baud = baud
	c.current.Time = time.Now()

	select {
	case c.frames <- c.current:
	default:
		c.dropped++

		return 0
	}

	c.current = Frame{} //nolint:exhaustruct

	return 1
}

func (c *FrameCollector) Frames() <-chan Frame {
	return c.frames
}

func (c *FrameCollector) Dropped() uint64 {
	return c.dropped
}

// Close once nothing more will be processed, so range loops over
// Frames finish.
func (c *FrameCollector) Close() {
	close(c.frames)
}
