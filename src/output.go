package pagerbits

/*------------------------------------------------------------------
 *
 * Purpose:	Turn complete frames into lines of text.
 *
 * Description:	One line per frame:
 *
 *			[timestamp] baud codewords: cw1 cw2 ...
 *
 *		Codewords in hexadecimal.  The optional time stamp uses
 *		a strftime format, e.g. "%Y-%m-%d %H:%M:%S", so it is the
 *		same as other tools in this family.
 *
 *		IDLE codewords are shown as "IDLE" unless Raw is set.
 *
 *------------------------------------------------------------------*/

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/lestrrat-go/strftime"
)

type FrameFormatter struct {
	stamp *strftime.Strftime
	Raw   bool
}

// NewFrameFormatter with an empty timestampFormat means no time stamp.
func NewFrameFormatter(timestampFormat string) (*FrameFormatter, error) {
	var f = new(FrameFormatter)

	if timestampFormat != "" {
		var stamp, err = strftime.New(timestampFormat)
		if err != nil {
			return nil, fmt.Errorf("timestamp format %q: %w", timestampFormat, err)
		}

		f.stamp = stamp
	}

	return f, nil
}

func (f *FrameFormatter) Format(fr *Frame) string {
	var sb strings.Builder

	if f.stamp != nil {
		sb.WriteByte('[')
		sb.WriteString(f.stamp.FormatString(fr.Time))
		sb.WriteString("] ")
	}

	fmt.Fprintf(&sb, "%d %d:", fr.Baud, fr.Len)

	for _, w := range fr.Slice() {
		if w == IDLE_CODEWORD && !f.Raw {
			sb.WriteString(" IDLE")
		} else {
			fmt.Fprintf(&sb, " %08X", w)
		}
	}

	sb.WriteByte('\n')

	return sb.String()
}

/*-------------------------------------------------------------------
 *
 * Name:        WriteFrames
 *
 * Purpose:     Format frames as they arrive and write them out.
 *
 * Description:	Runs until frames is closed or ctx is done.
 *		An error from w is returned.  With a FanOut there
 *		never is one; it logs and drops failing sinks itself.
 *
 *--------------------------------------------------------------------*/

func WriteFrames(ctx context.Context, frames <-chan Frame, f *FrameFormatter, w io.Writer) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case fr, ok := <-frames:
			if !ok {
				return nil
			}

			var _, err = io.WriteString(w, f.Format(&fr))
			if err != nil {
				return fmt.Errorf("writing frame: %w", err)
			}
		}
	}
}

/*-------------------------------------------------------------------
 *
 * Name:        FanOut
 *
 * Purpose:     Copy output to any number of sinks.
 *
 * Description:	Unlike io.MultiWriter, a sink which fails is logged
 *		and dropped and the others carry on.  Sinks can be added
 *		while writing is going on.
 *
 *--------------------------------------------------------------------*/

type FanOut struct {
	mu    sync.Mutex
	sinks []fanOutSink
}

type fanOutSink struct {
	name string
	w    io.Writer
}

func (f *FanOut) Add(name string, w io.Writer) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.sinks = append(f.sinks, fanOutSink{name: name, w: w})
}

func (f *FanOut) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()

	return len(f.sinks)
}

// Write never fails.
func (f *FanOut) Write(p []byte) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var kept = f.sinks[:0]

	for _, s := range f.sinks {
		var _, err = s.w.Write(p)
		if err != nil {
			Logger().Warn("Dropping output", "sink", s.name, "err", err)

			continue
		}

		kept = append(kept, s)
	}

	f.sinks = kept

	return len(p), nil
}
