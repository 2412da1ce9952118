package pagerbits

/*------------------------------------------------------------------
 *
 * Purpose:	Decode pager frames from demodulated audio.
 *
 * Description:	Input is either .WAV files, processed as fast as
 *		possible, or live audio from the sound card.
 *
 *		Complete frames are printed, one per line, and can also
 *		be sent to a serial port, a pseudo terminal and TCP
 *		clients.  The TCP service can be announced with DNS-SD.
 *
 *		Bit sync lock can be shown on a GPIO line or the RTS line
 *		of a serial port.
 *
 *		For testing, like atest, we can complain if the number of
 *		frames decoded is outside an expected range.
 *
 *---------------------------------------------------------------*/

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"
)

const FRAME_QUEUE_DEPTH = 64

const WAV_BUFFER_SAMPLES = 1024

var ErrFrameCount = errors.New("unexpected number of frames")

type pagerDecodeOptions struct {
	cfg Config

	audio           bool
	timestampFormat string
	raw             bool

	port       int
	dnsSD      bool
	dnsSDName  string
	serial     string
	serialBaud int
	pty        bool

	lockGPIO   string
	lockRTS    string
	lockInvert bool

	errorIfLessThan    int
	errorIfGreaterThan int

	files []string
}

func PagerDecodeMain() {
	var configFile = pflag.StringP("config", "c", "", "YAML configuration file.  Flags override it.")
	var sampleRate = pflag.IntP("sample-rate", "r", DEFAULT_SAMPLES_PER_SEC, "Audio sample rate for live input.  WAV files use their own.")
	var minBaud = pflag.IntP("min-baud", "b", DEFAULT_MIN_BAUD, "Lowest expected bit rate.")
	var maxBaud = pflag.IntP("max-baud", "B", DEFAULT_MAX_BAUD, "Highest expected bit rate.")
	var syncErrors = pflag.IntP("sync-errors", "e", 0, "Bits which may be wrong in a sync codeword, 0 to 4.")
	var frameWords = pflag.IntP("frame-words", "w", DEFAULT_FRAME_WORDS, "Codewords after each sync codeword.")
	var normalize = pflag.BoolP("normalize", "n", false, "Slice the input before clock recovery.")
	var silenceFlush = pflag.Int("silence-flush", 0, "Finish a partial frame after this many silent buffers.  Needs --normalize.")
	var audio = pflag.BoolP("audio", "a", false, "Use live audio from the default input device.")
	var timestampFormat = pflag.StringP("timestamp-format", "T", "", "Precede frames with 'strftime' format time stamp.")
	var raw = pflag.Bool("raw", false, "Show IDLE codewords in hexadecimal.")
	var port = pflag.IntP("port", "p", 0, "TCP port for frame clients.  0 for none.")
	var dnsSD = pflag.Bool("dns-sd", false, "Announce the TCP port with DNS-SD.")
	var dnsSDName = pflag.String("dns-sd-name", "", "DNS-SD service name.")
	var serial = pflag.StringP("serial", "s", "", "Also send frames to this serial port.")
	var serialBaud = pflag.Int("serial-baud", 0, "Serial port speed.  0 to leave it alone.")
	var pty = pflag.BoolP("pty", "P", false, "Also send frames to a pseudo terminal.")
	var lockGPIO = pflag.String("lock-gpio", "", "Show lock on a GPIO line, chip:offset, e.g. gpiochip0:17.")
	var lockRTS = pflag.String("lock-rts", "", "Show lock on the RTS line of this serial port.")
	var lockInvert = pflag.Bool("lock-invert", false, "Lock indicator is active low.")
	var errorIfLessThan = pflag.IntP("error-if-less-than", "L", -1, "Error if less than this number of frames decoded.")
	var errorIfGreaterThan = pflag.IntP("error-if-greater-than", "G", -1, "Error if greater than this number of frames decoded.")
	var debug = pflag.BoolP("debug", "d", false, "Debug logging.")
	var version = pflag.BoolP("version", "v", false, "Print version and exit.")
	var help = pflag.Bool("help", false, "Display help text.")

	pflag.Usage = func() {
		fmt.Fprintf(os.Stderr, "%s decodes pager frames from demodulated audio.\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\n")
		fmt.Fprintf(os.Stderr, "Usage: %s [OPTION]... <WAV FILE>...\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "       %s [OPTION]... --audio\n", os.Args[0])
		pflag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\n")
		fmt.Fprintf(os.Stderr, "Examples:\n")
		fmt.Fprintf(os.Stderr, "\n")
		fmt.Fprintf(os.Stderr, "$ pagergen -o test.wav\n")
		fmt.Fprintf(os.Stderr, "$ pagerdecode test.wav\n")
		fmt.Fprintf(os.Stderr, "\n")
		fmt.Fprintf(os.Stderr, "$ pagerdecode -a -n --silence-flush 20 -p 8005 --dns-sd\n")
	}

	pflag.Parse()

	if *help {
		pflag.Usage()
		os.Exit(1)
	}

	if *version {
		printVersion(os.Stdout, "pagerdecode")

		return
	}

	if *debug {
		SetLogLevel(log.DebugLevel)
	}

	var cfg = DefaultConfig()

	if *configFile != "" {
		var err error

		cfg, err = LoadConfig(*configFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%s\n", err)
			os.Exit(1)
		}
	}

	// Only what was actually given on the command line overrides the file.
	var changed = pflag.CommandLine.Changed
	if changed("sample-rate") {
		cfg.SampleRate = *sampleRate
	}

	if changed("min-baud") {
		cfg.MinBaud = *minBaud
	}

	if changed("max-baud") {
		cfg.MaxBaud = *maxBaud
	}

	if changed("sync-errors") {
		cfg.SyncMaxBitErrors = *syncErrors
	}

	if changed("frame-words") {
		cfg.FrameWords = *frameWords
	}

	if changed("normalize") {
		cfg.Normalize = *normalize
	}

	if changed("silence-flush") {
		cfg.SilenceFlushBuffers = *silenceFlush
	}

	var opts = pagerDecodeOptions{
		cfg:                cfg,
		audio:              *audio,
		timestampFormat:    *timestampFormat,
		raw:                *raw,
		port:               *port,
		dnsSD:              *dnsSD,
		dnsSDName:          *dnsSDName,
		serial:             *serial,
		serialBaud:         *serialBaud,
		pty:                *pty,
		lockGPIO:           *lockGPIO,
		lockRTS:            *lockRTS,
		lockInvert:         *lockInvert,
		errorIfLessThan:    *errorIfLessThan,
		errorIfGreaterThan: *errorIfGreaterThan,
		files:              pflag.Args(),
	}

	if !opts.audio && len(opts.files) == 0 {
		fmt.Fprintf(os.Stderr, "Need WAV files or --audio.\n")
		pflag.Usage()
		os.Exit(1)
	}

	var ctx, cancel = signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	var err = pagerDecode(ctx, opts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", err)
		os.Exit(1)
	}
}

/*-------------------------------------------------------------------
 *
 * Name:        pagerDecode
 *
 * Purpose:     Set up the outputs, run the decoder and wait for
 *		everything to finish.
 *
 *--------------------------------------------------------------------*/

func pagerDecode(parent context.Context, opts pagerDecodeOptions) error {
	var formatter, err = NewFrameFormatter(opts.timestampFormat)
	if err != nil {
		return err
	}

	formatter.Raw = opts.raw

	var out = new(FanOut)
	out.Add("stdout", os.Stdout)

	if opts.serial != "" {
		var s, serialErr = OpenSerialSink(opts.serial, opts.serialBaud)
		if serialErr != nil {
			return serialErr
		}
		defer s.Close()

		out.Add(opts.serial, s)
	}

	if opts.pty {
		var p, ptyErr = OpenPtySink()
		if ptyErr != nil {
			return ptyErr
		}
		defer p.Close()

		out.Add(p.Name(), p)
	}

	var ind LockIndicator

	ind, err = openLockIndicator(opts)
	if err != nil {
		return err
	}

	if ind != nil {
		defer ind.Close()
	}

	var ctx, cancel = context.WithCancel(parent)
	defer cancel()

	var g, gctx = errgroup.WithContext(ctx)

	if opts.port != 0 {
		var server, listenErr = ListenFrameServer(":" + strconv.Itoa(opts.port))
		if listenErr != nil {
			return listenErr
		}

		out.Add("tcp", server)

		g.Go(func() error {
			return server.Serve(gctx)
		})

		if opts.dnsSD {
			g.Go(func() error {
				var announceErr = AnnounceFrameServer(gctx, opts.dnsSDName, server.Port())
				if announceErr != nil {
					Logger().Warn("Not announcing", "err", announceErr)
				}

				return nil
			})
		}
	}

	var collector = NewFrameCollector(FRAME_QUEUE_DEPTH)
	var frames uint64

	g.Go(func() error {
		var writeErr = WriteFrames(gctx, collector.Frames(), formatter, out)

		// Nothing more to show, so the servers can go too.
		cancel()

		return writeErr
	})

	g.Go(func() error {
		defer collector.Close()

		var n, decodeErr = decodeInput(gctx, opts, collector, ind)
		frames = n

		return decodeErr
	})

	err = g.Wait()
	if err != nil {
		return err
	}

	Logger().Info("Decoded", "frames", frames, "dropped", collector.Dropped())

	if opts.errorIfLessThan >= 0 && frames < uint64(opts.errorIfLessThan) { //nolint:gosec
		return fmt.Errorf("%w: %d, expected at least %d", ErrFrameCount, frames, opts.errorIfLessThan)
	}

	if opts.errorIfGreaterThan >= 0 && frames > uint64(opts.errorIfGreaterThan) { //nolint:gosec
		return fmt.Errorf("%w: %d, expected no more than %d", ErrFrameCount, frames, opts.errorIfGreaterThan)
	}

	return nil
}

func decodeInput(ctx context.Context, opts pagerDecodeOptions, h Handler, ind LockIndicator) (uint64, error) {
	var frames uint64

	if opts.audio {
		var d, err = NewDecoder(opts.cfg, h)
		if err != nil {
			return 0, err
		}

		if ind != nil {
			var stop = WatchLock(d, ind)
			defer stop()
		}

		err = CaptureAudio(ctx, opts.cfg.SampleRate, 0, func(buf []float32) {
			d.Process(buf)
		})
		d.Flush()

		return d.Stats().Extractor.Frames, err
	}

	for _, file := range opts.files {
		if ctx.Err() != nil {
			break
		}

		var n, err = decodeFile(opts.cfg, file, h, ind)
		if err != nil {
			return frames, err
		}

		frames += n
	}

	return frames, nil
}

func decodeFile(cfg Config, file string, h Handler, ind LockIndicator) (uint64, error) {
	var samples, sampleRate, err = ReadWavFile(file)
	if err != nil {
		return 0, err
	}

	cfg.SampleRate = sampleRate

	d, err := NewDecoder(cfg, h)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", file, err)
	}

	if ind != nil {
		var stop = WatchLock(d, ind)
		defer stop()
	}

	Logger().Info("Decoding", "file", file, "rate", sampleRate, "samples", len(samples))

	for off := 0; off < len(samples); off += WAV_BUFFER_SAMPLES {
		d.Process(samples[off:min(off+WAV_BUFFER_SAMPLES, len(samples))])
	}

	d.Flush()

	var stats = d.Stats()
	Logger().Info("Finished", "file", file, "frames", stats.Extractor.Frames, "rate", stats.Rate,
		"demotions", stats.Demotions, "syncs", stats.Extractor.Syncs)

	return stats.Extractor.Frames, nil
}

func openLockIndicator(opts pagerDecodeOptions) (LockIndicator, error) {
	switch {
	case opts.lockGPIO != "" && opts.lockRTS != "":
		return nil, errors.New("use --lock-gpio or --lock-rts, not both")
	case opts.lockGPIO != "":
		var chip, offsetStr, found = strings.Cut(opts.lockGPIO, ":")
		if !found {
			return nil, fmt.Errorf("--lock-gpio %q should be chip:offset", opts.lockGPIO)
		}

		var offset, err = strconv.Atoi(offsetStr)
		if err != nil {
			return nil, fmt.Errorf("--lock-gpio offset %q: %w", offsetStr, err)
		}

		var g, gpioErr = OpenGPIOIndicator(chip, offset, opts.lockInvert)
		if gpioErr != nil {
			return nil, gpioErr
		}

		return g, nil
	case opts.lockRTS != "":
		var r, rtsErr = OpenRTSIndicator(opts.lockRTS, opts.lockInvert)
		if rtsErr != nil {
			return nil, rtsErr
		}

		return r, nil
	}

	return nil, nil //nolint:nilnil
}
