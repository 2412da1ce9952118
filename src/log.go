package pagerbits

/*------------------------------------------------------------------
 *
 * Purpose:	Diagnostic logging.
 *
 * Description:	Nothing on the sample path logs.  The decoder looks at
 *		counters between buffers and reports anything interesting.
 *
 *		Applications can substitute their own logger, for example
 *		to change the level or send it somewhere else.
 *
 *------------------------------------------------------------------*/

import (
	"io"
	"os"
	"sync/atomic"

	"github.com/charmbracelet/log"
)

var logger atomic.Pointer[log.Logger]

func init() {
	logger.Store(log.NewWithOptions(os.Stderr, log.Options{ //nolint:exhaustruct
		Prefix:          "pagerbits",
		ReportTimestamp: true,
	}))
}

func Logger() *log.Logger {
	return logger.Load()
}

// SetLogger replaces the package logger.  nil discards everything.
func SetLogger(l *log.Logger) {
	if l == nil {
		l = log.NewWithOptions(io.Discard, log.Options{}) //nolint:exhaustruct
	}

	logger.Store(l)
}

// SetLogLevel is the usual reason for wanting a different logger.
func SetLogLevel(level log.Level) {
	Logger().SetLevel(level)
}
