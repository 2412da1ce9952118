package pagerbits

/*------------------------------------------------------------------
 *
 * Purpose:	Show bit sync lock on some external indicator.
 *
 * Description:	Like a DCD light on a TNC.  On when Locked, off in any
 *		other state.
 *
 *		Two kinds:
 *
 *		GPIO	- A line on a gpiochip through the character
 *			  device interface.
 *
 *		RTS	- The RTS modem control line of a serial port.
 *			  Handy with a USB serial adapter and an LED.
 *
 *---------------------------------------------------------------*/

import (
	"fmt"
	"os"

	"github.com/warthog618/go-gpiocdev"
	"golang.org/x/sys/unix"
)

type LockIndicator interface {
	SetLocked(locked bool) error
	Close() error
}

// What we need from a requested GPIO line.  *gpiocdev.Line in real life.
type gpioOutputLine interface {
	SetValue(v int) error
	Close() error
}

type GPIOIndicator struct {
	line gpioOutputLine
}

// OpenGPIOIndicator requests one line on a chip, e.g. "gpiochip0", 17.
// Invert for an active low output.
func OpenGPIOIndicator(chip string, offset int, invert bool) (*GPIOIndicator, error) {
	var opts = []gpiocdev.LineReqOption{
		gpiocdev.AsOutput(0),
		gpiocdev.WithConsumer("pagerbits"),
	}

	if invert {
		opts = append(opts, gpiocdev.AsActiveLow)
	}

	var line, err = gpiocdev.RequestLine(chip, offset, opts...)
	if err != nil {
		return nil, fmt.Errorf("GPIO %s line %d: %w", chip, offset, err)
	}

	return &GPIOIndicator{line: line}, nil
}

func (g *GPIOIndicator) SetLocked(locked bool) error {
	var v = 0
	if locked {
		v = 1
	}

	return g.line.SetValue(v)
}

func (g *GPIOIndicator) Close() error {
	return g.line.Close()
}

type RTSIndicator struct {
	f      *os.File
	invert bool
}

func OpenRTSIndicator(devicename string, invert bool) (*RTSIndicator, error) {
	var f, err = os.OpenFile(devicename, os.O_RDWR|unix.O_NOCTTY, 0) //nolint:gosec // User supplied device
	if err != nil {
		return nil, fmt.Errorf("lock indicator %s: %w", devicename, err)
	}

	var r = &RTSIndicator{f: f, invert: invert}

	err = r.SetLocked(false)
	if err != nil {
		f.Close() //nolint:gosec

		return nil, err
	}

	return r, nil
}

func (r *RTSIndicator) SetLocked(locked bool) error {
	var fd = int(r.f.Fd()) //nolint:gosec

	var stuff, err = unix.IoctlGetInt(fd, unix.TIOCMGET)
	if err != nil {
		return fmt.Errorf("TIOCMGET: %w", err)
	}

	if locked != r.invert {
		stuff |= unix.TIOCM_RTS
	} else {
		stuff &^= unix.TIOCM_RTS
	}

	err = unix.IoctlSetPointerInt(fd, unix.TIOCMSET, stuff)
	if err != nil {
		return fmt.Errorf("TIOCMSET: %w", err)
	}

	return nil
}

func (r *RTSIndicator) Close() error {
	return r.f.Close()
}

/*-------------------------------------------------------------------
 *
 * Name:        WatchLock
 *
 * Purpose:     Keep an indicator up to date with a decoder.
 *
 * Description:	State changes happen on the sample path, where we
 *		don't want ioctls.  They are passed to a goroutine
 *		through a small channel.  If that is full, the oldest
 *		change is dropped since only the latest matters.
 *
 *		The returned function stops the goroutine and turns the
 *		indicator off.  Call it once the decoder is no longer
 *		being fed.
 *
 *---------------------------------------------------------------*/

func WatchLock(d *Decoder, ind LockIndicator) (stop func()) {
	var changes = make(chan bool, 4)
	var done = make(chan struct{})

	d.OnStateChange(func(from, to SyncState) {
		var locked = to == StateLocked

		for {
			select {
			case changes <- locked:
				return
			default:
			}

			select {
			case <-changes:
			default:
			}
		}
	})

	go func() {
		defer close(done)

		for locked := range changes {
			var err = ind.SetLocked(locked)
			if err != nil {
				Logger().Warn("Lock indicator", "err", err)
			}
		}

		ind.SetLocked(false) //nolint:gosec
	}()

	return func() {
		d.OnStateChange(nil)
		close(changes)
		<-done
	}
}
