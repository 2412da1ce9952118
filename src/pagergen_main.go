package pagerbits

/*------------------------------------------------------------------
 *
 * Purpose:	Generate .WAV files of demodulated pager transmissions
 *		for testing the decoder.
 *
 * Description:	Codewords are given in hexadecimal on the command line.
 *		Without any, random ones are made up.  They are sent
 *		after a preamble, in batches with a sync codeword at the
 *		start of each.
 *
 *		Noise can be added.  The same seed gives the same file.
 *
 *---------------------------------------------------------------*/

import (
	"fmt"
	"math/rand/v2"
	"os"
	"strconv"

	"github.com/spf13/pflag"
)

func PagerGenMain() {
	var outFile = pflag.StringP("output", "o", "", "Output .WAV file name.  Required.")
	var sampleRate = pflag.IntP("sample-rate", "r", DEFAULT_SAMPLES_PER_SEC, "Audio sample rate.")
	var baud = pflag.IntP("baud", "B", 1200, "Bits per second.  Usually 512, 1200 or 2400.")
	var amplitude = pflag.Float64P("amplitude", "a", 0.5, "Signal amplitude, 0 to 1.")
	var invert = pflag.BoolP("invert", "i", false, "Invert polarity.")
	var batches = pflag.IntP("batches", "n", 1, "Number of batches of random codewords when none are given.")
	var noise = pflag.Float64P("noise", "N", 0, "Add uniform noise of up to this amplitude.")
	var seed = pflag.Uint64P("seed", "S", 1, "Seed for random codewords and noise.")
	var preamble = pflag.IntP("preamble", "p", PREAMBLE_BITS, "Number of preamble bits.")
	var silence = pflag.Float64P("silence", "s", 0.1, "Seconds of silence before and after.")
	var version = pflag.BoolP("version", "v", false, "Print version and exit.")
	var help = pflag.Bool("help", false, "Display help text.")

	pflag.Usage = func() {
		fmt.Fprintf(os.Stderr, "%s generates a .WAV file of demodulated pager batches.\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\n")
		fmt.Fprintf(os.Stderr, "Usage: %s [OPTION]... [CODEWORD]...\n", os.Args[0])
		pflag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\n")
		fmt.Fprintf(os.Stderr, "Examples:\n")
		fmt.Fprintf(os.Stderr, "\n")
		fmt.Fprintf(os.Stderr, "$ pagergen -o test.wav 12345678 CAFEBABE\n")
		fmt.Fprintf(os.Stderr, "$ pagergen -B 512 -n 3 -N 0.2 -o noisy.wav\n")
	}

	pflag.Parse()

	if *help {
		pflag.Usage()
		os.Exit(1)
	}

	if *version {
		printVersion(os.Stdout, "pagergen")

		return
	}

	if *outFile == "" {
		fmt.Fprintf(os.Stderr, "An output file name is required.\n")
		pflag.Usage()
		os.Exit(1)
	}

	var words, err = parseCodewords(pflag.Args())
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", err)
		os.Exit(1)
	}

	if len(words) == 0 {
		var rng = rand.New(rand.NewPCG(*seed, *seed)) //nolint:gosec
		for range *batches * MAX_CODEWORDS {
			words = append(words, rng.Uint32())
		}
	}

	var g = NewGenerator(*sampleRate, *baud)
	g.Amplitude = float32(*amplitude)
	g.Invert = *invert

	var quiet = int(*silence * float64(*sampleRate))

	var samples = g.Silence(nil, quiet)
	samples = g.Preamble(samples, *preamble)

	for len(words) > 0 {
		var n = min(len(words), MAX_CODEWORDS)
		samples = g.Batch(samples, words[:n])
		words = words[n:]
	}

	samples = g.Silence(samples, quiet)

	if *noise > 0 {
		AddNoise(samples, float32(*noise), *seed)
	}

	err = WriteWavFile(*outFile, samples, *sampleRate)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", err)
		os.Exit(1)
	}

	Logger().Info("Wrote", "file", *outFile, "samples", len(samples), "baud", *baud)
}

func parseCodewords(args []string) ([]uint32, error) {
	var words = make([]uint32, 0, len(args))

	for _, a := range args {
		var w, err = strconv.ParseUint(a, 16, 32)
		if err != nil {
			return nil, fmt.Errorf("codeword %q: %w", a, err)
		}

		words = append(words, uint32(w))
	}

	return words, nil
}
