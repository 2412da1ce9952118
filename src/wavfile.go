package pagerbits

/*------------------------------------------------------------------
 *
 * Purpose:	Read and write demodulated audio as .WAV files.
 *
 * Description:	Reading is anything go-dsp understands, converted to
 *		float32 in the range -1 to +1.  Only mono.  Demodulator
 *		output has one channel and guessing which of two is
 *		wanted isn't our job.
 *
 *		Writing is always 16 bit mono PCM.
 *
 *------------------------------------------------------------------*/

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/mjibson/go-dsp/wav"
)

var ErrUnsupportedWav = errors.New("unsupported WAV file")

const WAV_READ_CHUNK = 4096

type wav_header struct { /* .WAV file header. */
	riff            [4]byte /* "RIFF" */
	filesize        int32   /* file length - 8 */
	wave            [4]byte /* "WAVE" */
	fmt             [4]byte /* "fmt " */
	fmtsize         int32   /* 16. */
	wformattag      int16   /* 1 for PCM. */
	nchannels       int16   /* 1 for mono. */
	nsamplespersec  int32   /* sampling freq, Hz. */
	navgbytespersec int32   /* = nblockalign * nsamplespersec. */
	nblockalign     int16   /* = wbitspersample / 8 * nchannels. */
	wbitspersample  int16   /* 16. */
	data            [4]byte /* "data" */
	datasize        int32   /* number of bytes following. */
}

/*-------------------------------------------------------------------
 *
 * Name:        ReadWav
 *
 * Purpose:     Read a whole mono .WAV stream.
 *
 * Returns:	Samples, sample rate, error.
 *
 *--------------------------------------------------------------------*/

func ReadWav(r io.Reader) ([]float32, int, error) {
	var w, err = wav.New(r)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %w", ErrUnsupportedWav, err)
	}

	if w.NumChannels != 1 {
		return nil, 0, fmt.Errorf("%w: %d channels, need mono", ErrUnsupportedWav, w.NumChannels)
	}

	if w.SampleRate == 0 {
		return nil, 0, fmt.Errorf("%w: sample rate 0", ErrUnsupportedWav)
	}

	var samples = make([]float32, 0, w.Samples)

	for len(samples) < w.Samples {
		var chunk, readErr = w.ReadFloats(min(WAV_READ_CHUNK, w.Samples-len(samples)))
		samples = append(samples, chunk...)

		if errors.Is(readErr, io.EOF) || errors.Is(readErr, io.ErrUnexpectedEOF) || len(chunk) == 0 {
			break // Truncated file.  Use what we got.
		}

		if readErr != nil {
			return samples, int(w.SampleRate), fmt.Errorf("reading samples: %w", readErr)
		}
	}

	return samples, int(w.SampleRate), nil
}

func ReadWavFile(path string) ([]float32, int, error) {
	var f, err = os.Open(path) //nolint:gosec // User supplied file
	if err != nil {
		return nil, 0, err
	}
	defer f.Close()

	var samples, sampleRate, readErr = ReadWav(bufio.NewReader(f))
	if readErr != nil {
		return samples, sampleRate, fmt.Errorf("%s: %w", path, readErr)
	}

	return samples, sampleRate, nil
}

/*-------------------------------------------------------------------
 *
 * Name:        WriteWav
 *
 * Purpose:     Write samples as 16 bit mono PCM.
 *
 * Description:	Anything outside -1 to +1 is clipped.
 *
 *--------------------------------------------------------------------*/

func WriteWav(w io.Writer, samples []float32, samplesPerSec int) error {
	var header wav_header

	var byteCount = len(samples) * 2

	copy(header.riff[:], "RIFF")
	header.filesize = int32(byteCount + binary.Size(new(wav_header)) - 8) //nolint:gosec
	copy(header.wave[:], "WAVE")
	copy(header.fmt[:], "fmt ")
	header.fmtsize = 16   // Always 16.
	header.wformattag = 1 // 1 for PCM.
	header.nchannels = 1
	header.nsamplespersec = int32(samplesPerSec) //nolint:gosec
	header.wbitspersample = 16
	header.nblockalign = header.wbitspersample / 8 * header.nchannels
	header.navgbytespersec = int32(header.nblockalign) * header.nsamplespersec
	copy(header.data[:], "data")
	header.datasize = int32(byteCount) //nolint:gosec

	var bw = bufio.NewWriter(w)

	var err = binary.Write(bw, binary.LittleEndian, header)
	if err != nil {
		return fmt.Errorf("writing WAV header: %w", err)
	}

	var pcm = make([]int16, len(samples))
	for i, s := range samples {
		var v = math.Round(float64(s) * 32767)
		pcm[i] = int16(max(-32768, min(32767, v)))
	}

	err = binary.Write(bw, binary.LittleEndian, pcm)
	if err != nil {
		return fmt.Errorf("writing samples: %w", err)
	}

	return bw.Flush()
}

func WriteWavFile(path string, samples []float32, samplesPerSec int) error {
	var f, err = os.Create(path) //nolint:gosec // We expect to write to a user-supplied file from CLI
	if err != nil {
		return err
	}

	err = WriteWav(f, samples, samplesPerSec)
	if err != nil {
		f.Close() //nolint:gosec

		return fmt.Errorf("%s: %w", path, err)
	}

	return f.Close()
}
