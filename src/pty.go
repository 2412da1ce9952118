package pagerbits

/*------------------------------------------------------------------
 *
 * Purpose:	Send decoded frames to a pseudo terminal.
 *
 * Description:	Applications which want a serial port can open the
 *		other end, whose name is logged and available from Name.
 *
 *		If no one is reading from the other end, the buffer would
 *		eventually fill and the writer would get stuck.  Writes
 *		have a deadline and anything which doesn't fit in time is
 *		thrown away.
 *
 *---------------------------------------------------------------*/

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/creack/pty"
)

const PTY_WRITE_TIMEOUT = 100 * time.Millisecond

type PtySink struct {
	ptmx *os.File
	pts  *os.File

	discarded uint64
}

func OpenPtySink() (*PtySink, error) {
	var ptmx, pts, err = pty.Open()
	if err != nil {
		return nil, fmt.Errorf("could not create pseudo terminal: %w", err)
	}

	Logger().Info("Virtual terminal for frames", "name", pts.Name())

	return &PtySink{ptmx: ptmx, pts: pts}, nil //nolint:exhaustruct
}

// Name of the end for applications to open.
func (p *PtySink) Name() string {
	return p.pts.Name()
}

// Write never blocks for long.  A full buffer isn't an error.
func (p *PtySink) Write(b []byte) (int, error) {
	var deadlineErr = p.ptmx.SetWriteDeadline(time.Now().Add(PTY_WRITE_TIMEOUT))

	var n, err = p.ptmx.Write(b)
	if err != nil {
		if deadlineErr == nil && errors.Is(err, os.ErrDeadlineExceeded) {
			p.discarded++

			return len(b), nil
		}

		return n, fmt.Errorf("pseudo terminal %s: %w", p.pts.Name(), err)
	}

	return n, nil
}

// Discarded is the number of writes abandoned because no one was reading.
func (p *PtySink) Discarded() uint64 {
	return p.discarded
}

func (p *PtySink) Close() error {
	var err = p.ptmx.Close()
	p.pts.Close() //nolint:gosec

	return err
}
