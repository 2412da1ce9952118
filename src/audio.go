package pagerbits

/*------------------------------------------------------------------
 *
 * Purpose:	Live input from a sound card.
 *
 * Description:	For a receiver with a discriminator output, or anything
 *		else which already gives demodulated baseband, wired to
 *		the sound card input.  Mono, default input device.
 *
 *		Buffers are delivered to a callback as they arrive.  The
 *		buffer is reused so the callback must not keep it.
 *
 *		An input overflow means we fell behind and lost some
 *		audio.  That is logged but isn't fatal.
 *
 *---------------------------------------------------------------*/

import (
	"context"
	"errors"
	"fmt"

	"github.com/gordonklaus/portaudio"
)

const DEFAULT_FRAMES_PER_BUFFER = 1024

func CaptureAudio(ctx context.Context, samplesPerSec int, framesPerBuffer int, fn func([]float32)) error {
	if framesPerBuffer <= 0 {
		framesPerBuffer = DEFAULT_FRAMES_PER_BUFFER
	}

	var err = portaudio.Initialize()
	if err != nil {
		return fmt.Errorf("audio initialize: %w", err)
	}
	defer portaudio.Terminate() //nolint:errcheck

	var buf = make([]float32, framesPerBuffer)

	stream, err := portaudio.OpenDefaultStream(1, 0, float64(samplesPerSec), framesPerBuffer, buf)
	if err != nil {
		return fmt.Errorf("audio open: %w", err)
	}
	defer stream.Close() //nolint:errcheck

	err = stream.Start()
	if err != nil {
		return fmt.Errorf("audio start: %w", err)
	}
	defer stream.Stop() //nolint:errcheck

	Logger().Info("Audio input", "rate", samplesPerSec, "buffer", framesPerBuffer)

	var overflows = 0

	for ctx.Err() == nil {
		err = stream.Read()
		if errors.Is(err, portaudio.InputOverflowed) {
			overflows++
			Logger().Warn("Audio input overflow, samples lost", "count", overflows)
		} else if err != nil {
			return fmt.Errorf("audio read: %w", err)
		}

		fn(buf)
	}

	return nil
}
