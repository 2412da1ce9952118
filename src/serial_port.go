package pagerbits

/*------------------------------------------------------------------
 *
 * Purpose:	Send decoded frames out a serial port.
 *
 * Description:	For a pager display, a logging terminal or another
 *		computer.  Output only.  Lines end in CR LF because that
 *		is what terminals expect.
 *
 *---------------------------------------------------------------*/

import (
	"bytes"
	"fmt"

	"github.com/pkg/term"
)

type SerialSink struct {
	name string
	fd   *term.Term
}

/*-------------------------------------------------------------------
 *
 * Name:        OpenSerialSink
 *
 * Inputs:	devicename	- For example /dev/ttyUSB0.
 *
 *		baud		- Speed.  1200, 2400, 4800, 9600, etc.
 *				  If 0, leave it alone.
 *
 *---------------------------------------------------------------*/

func OpenSerialSink(devicename string, baud int) (*SerialSink, error) {
	switch baud {
	case 0: /* Leave it alone. */
	case 1200, 2400, 4800, 9600, 19200, 38400, 57600, 115200:
	default:
		return nil, fmt.Errorf("serial port %s: unsupported speed %d", devicename, baud)
	}

	var fd, err = term.Open(devicename, term.RawMode)
	if err != nil {
		return nil, fmt.Errorf("could not open serial port %s: %w", devicename, err)
	}

	if baud != 0 {
		err = fd.SetSpeed(baud)
		if err != nil {
			fd.Close() //nolint:gosec

			return nil, fmt.Errorf("serial port %s: setting speed %d: %w", devicename, baud, err)
		}
	}

	return &SerialSink{name: devicename, fd: fd}, nil
}

func (s *SerialSink) Name() string {
	return s.name
}

func (s *SerialSink) Write(p []byte) (int, error) {
	var _, err = s.fd.Write(bytes.ReplaceAll(p, []byte("\n"), []byte("\r\n")))
	if err != nil {
		return 0, fmt.Errorf("serial port %s: %w", s.name, err)
	}

	return len(p), nil
}

func (s *SerialSink) Close() error {
	return s.fd.Close()
}
